package entitycache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/faketransport"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

func newTestTransport(t *testing.T) (*Transport, *fakeEntity) {
	t.Helper()
	bus := faketransport.NewBus()
	controllerPI := faketransport.New(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x01})
	entity := newFakeEntity(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x02}, testEntityID)
	return NewTransport(controllerPI, 0x001B210000000001, avdecclog.NoopLogger{}), entity
}

func TestSendAEMRoundTrip(t *testing.T) {
	transport, _ := newTestTransport(t)

	status, payload, err := transport.SendAEM(context.Background(), testEntityID, wire.AECPGetConfiguration, wire.ConfigurationPayload{}.Encode())
	require.NoError(t, err)
	assert.Equal(t, avdeccstatus.AEMSuccess, status)

	p, err := wire.DecodeConfigurationPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), p.ConfigurationIndex)
}

func TestSendAEMTimesOutWhenNoResponder(t *testing.T) {
	bus := faketransport.NewBus()
	controllerPI := faketransport.New(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x01})
	transport := NewTransport(controllerPI, 0x001B210000000001, avdecclog.NoopLogger{})

	status, _, err := transport.SendAEM(context.Background(), 0xFFFFFFFF, wire.AECPGetConfiguration, wire.ConfigurationPayload{}.Encode())
	require.NoError(t, err)
	assert.Equal(t, avdeccstatus.AEMTimedOut, status)
}

func TestTransportReleaseCompletesInFlightCommandsAsUnknownEntity(t *testing.T) {
	bus := faketransport.NewBus()
	controllerPI := faketransport.New(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x01})
	transport := NewTransport(controllerPI, 0x001B210000000001, avdecclog.NoopLogger{})

	// Force the pipeline to exist before Release by issuing one call that
	// will never get a response (no fake entity registered on this bus).
	done := make(chan struct{})
	var status avdeccstatus.AEMStatus
	go func() {
		defer close(done)
		status, _, _ = transport.SendAEM(context.Background(), 0xABCDEF, wire.AECPGetConfiguration, nil)
	}()

	// Give SendAEM a moment to register its pipeline before releasing it.
	time.Sleep(20 * time.Millisecond)
	transport.Release(0xABCDEF)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendAEM did not return after Release")
	}
	assert.Equal(t, avdeccstatus.AEMUnknownEntity, status)
}

func TestSendACMPRoundTrip(t *testing.T) {
	transport, _ := newTestTransport(t)

	req := wire.ACMPFrame{ListenerEntityID: testEntityID, ListenerUniqueID: 0}
	resp, status, err := transport.SendACMP(context.Background(), wire.ACMPGetRXStateCommand, req)
	require.NoError(t, err)
	assert.Equal(t, avdeccstatus.ACMPSuccess, status)
	assert.Equal(t, uint64(0), resp.TalkerEntityID)
}

func TestAcmpPipelineKeyPicksListenerOrTalker(t *testing.T) {
	f := wire.ACMPFrame{ListenerEntityID: 1, TalkerEntityID: 2}
	assert.Equal(t, uint64(1), acmpPipelineKey(wire.ACMPGetRXStateCommand, f))
	assert.Equal(t, uint64(2), acmpPipelineKey(wire.ACMPGetTXStateCommand, f))
}
