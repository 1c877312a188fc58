package framedemux

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/faketransport"
)

func TestDemuxFansOutToAllSubscribers(t *testing.T) {
	bus := faketransport.NewBus()
	station := faketransport.New(bus, entitymodel.MacAddress{1})
	peer := faketransport.New(bus, entitymodel.MacAddress{2})
	defer station.Close()
	defer peer.Close()

	d := Wrap(station)

	var mu sync.Mutex
	var gotA, gotB bool
	d.OnFrame(func(protocolif.Frame) { mu.Lock(); gotA = true; mu.Unlock() })
	d.OnFrame(func(protocolif.Frame) { mu.Lock(); gotB = true; mu.Unlock() })

	done := make(chan struct{})
	go func() {
		// station.deliver runs synchronously from peer.Send, so by the
		// time Send returns both subscribers have already run.
		close(done)
	}()
	require.NoError(t, peer.Send(context.Background(), entitymodel.MacAddress{1}, []byte("x")))
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, gotA)
	assert.True(t, gotB)
}

func TestDemuxDelegatesLocalMACSendClose(t *testing.T) {
	bus := faketransport.NewBus()
	station := faketransport.New(bus, entitymodel.MacAddress{0xAA})
	d := Wrap(station)

	assert.Equal(t, entitymodel.MacAddress{0xAA}, d.LocalMAC())
	assert.NoError(t, d.Send(context.Background(), entitymodel.MacAddress{0xBB}, []byte("y")))
	assert.NoError(t, d.Close())
}
