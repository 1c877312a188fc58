package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/faketransport"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) handle(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func waitForEvent(t *testing.T, sink *eventSink, kind EventKind, timeout time.Duration) Event {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, e := range sink.snapshot() {
			if e.Kind == kind {
				return e
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for event kind %d", kind)
	return Event{}
}

func TestLivenessDurationClamping(t *testing.T) {
	assert.Equal(t, time.Second, livenessDuration(0))
	assert.Equal(t, 2*time.Second, livenessDuration(1))
	assert.Equal(t, 62*time.Second, livenessDuration(200))
}

func TestEngineSeesNewEntityAsAvailable(t *testing.T) {
	bus := faketransport.NewBus()
	controllerIf := faketransport.New(bus, entitymodel.MacAddress{1})
	entityIf := faketransport.New(bus, entitymodel.MacAddress{2})
	defer controllerIf.Close()
	defer entityIf.Close()

	sink := &eventSink{}
	e := New(controllerIf, 50*time.Millisecond, sink.handle, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	pdu := wire.ADPPDU{
		MessageType:    wire.ADPEntityAvailable,
		ValidTime:      30,
		EntityID:       0x1111,
		AvailableIndex: 1,
	}
	require.NoError(t, entityIf.Send(context.Background(), faketransportMulticast(), pdu.Encode()))

	ev := waitForEvent(t, sink, EventAvailable, time.Second)
	assert.Equal(t, uint64(0x1111), ev.EntityID)
}

func TestEngineDetectsRestartOnIndexDecrease(t *testing.T) {
	bus := faketransport.NewBus()
	controllerIf := faketransport.New(bus, entitymodel.MacAddress{1})
	entityIf := faketransport.New(bus, entitymodel.MacAddress{2})
	defer controllerIf.Close()
	defer entityIf.Close()

	sink := &eventSink{}
	e := New(controllerIf, 50*time.Millisecond, sink.handle, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	first := wire.ADPPDU{MessageType: wire.ADPEntityAvailable, ValidTime: 30, EntityID: 0x2222, AvailableIndex: 5}
	require.NoError(t, entityIf.Send(context.Background(), faketransportMulticast(), first.Encode()))
	waitForEvent(t, sink, EventAvailable, time.Second)

	restarted := wire.ADPPDU{MessageType: wire.ADPEntityAvailable, ValidTime: 30, EntityID: 0x2222, AvailableIndex: 1}
	require.NoError(t, entityIf.Send(context.Background(), faketransportMulticast(), restarted.Encode()))
	waitForEvent(t, sink, EventRestarted, time.Second)
}

func TestEngineDeparture(t *testing.T) {
	bus := faketransport.NewBus()
	controllerIf := faketransport.New(bus, entitymodel.MacAddress{1})
	entityIf := faketransport.New(bus, entitymodel.MacAddress{2})
	defer controllerIf.Close()
	defer entityIf.Close()

	sink := &eventSink{}
	e := New(controllerIf, 50*time.Millisecond, sink.handle, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	avail := wire.ADPPDU{MessageType: wire.ADPEntityAvailable, ValidTime: 30, EntityID: 0x3333, AvailableIndex: 1}
	require.NoError(t, entityIf.Send(context.Background(), faketransportMulticast(), avail.Encode()))
	waitForEvent(t, sink, EventAvailable, time.Second)

	depart := wire.ADPPDU{MessageType: wire.ADPEntityDeparting, ValidTime: 0, EntityID: 0x3333}
	require.NoError(t, entityIf.Send(context.Background(), faketransportMulticast(), depart.Encode()))
	waitForEvent(t, sink, EventDeparted, time.Second)
}

func TestEngineLivenessExpiry(t *testing.T) {
	bus := faketransport.NewBus()
	controllerIf := faketransport.New(bus, entitymodel.MacAddress{1})
	entityIf := faketransport.New(bus, entitymodel.MacAddress{2})
	defer controllerIf.Close()
	defer entityIf.Close()

	sink := &eventSink{}
	e := New(controllerIf, 50*time.Millisecond, sink.handle, nil)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	// ValidTime=1 -> liveness of 1*2 = 2 seconds.
	avail := wire.ADPPDU{MessageType: wire.ADPEntityAvailable, ValidTime: 1, EntityID: 0x4444, AvailableIndex: 1}
	require.NoError(t, entityIf.Send(context.Background(), faketransportMulticast(), avail.Encode()))
	waitForEvent(t, sink, EventAvailable, time.Second)

	waitForEvent(t, sink, EventExpired, 3*time.Second)
}

func faketransportMulticast() entitymodel.MacAddress {
	return entitymodel.MacAddress{0x01, 0x80, 0xC2, 0x00, 0x00, 0x0E}
}
