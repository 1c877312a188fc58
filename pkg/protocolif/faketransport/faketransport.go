// Package faketransport is an in-process ProtocolInterface used by
// tests: frames sent on one instance are delivered to every other
// instance registered on the same Bus, mirroring a shared Ethernet
// segment without touching the network stack.
package faketransport

import (
	"context"
	"sync"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
)

// Bus is a shared medium a set of fake interfaces transmit on.
type Bus struct {
	mu   sync.Mutex
	taps []*Interface
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) register(i *Interface) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taps = append(b.taps, i)
}

func (b *Bus) unregister(i *Interface) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for idx, t := range b.taps {
		if t == i {
			b.taps = append(b.taps[:idx], b.taps[idx+1:]...)
			return
		}
	}
}

func (b *Bus) broadcast(from *Interface, dest entitymodel.MacAddress, payload []byte) {
	b.mu.Lock()
	taps := append([]*Interface(nil), b.taps...)
	b.mu.Unlock()

	for _, t := range taps {
		if t == from {
			continue
		}
		t.deliver(protocolif.Frame{
			Destination: dest,
			Source:      from.mac,
			EtherType:   0x22F0,
			Payload:     append([]byte(nil), payload...),
		})
	}
}

// Interface is one station attached to a Bus.
type Interface struct {
	bus *Bus
	mac entitymodel.MacAddress

	mu      sync.RWMutex
	handler protocolif.FrameHandler
	closed  bool
}

// New attaches a new fake interface with the given MAC to bus.
func New(bus *Bus, mac entitymodel.MacAddress) *Interface {
	i := &Interface{bus: bus, mac: mac}
	bus.register(i)
	return i
}

var _ protocolif.ProtocolInterface = (*Interface)(nil)

func (i *Interface) LocalMAC() entitymodel.MacAddress {
	return i.mac
}

func (i *Interface) Send(ctx context.Context, dest entitymodel.MacAddress, payload []byte) error {
	i.mu.RLock()
	closed := i.closed
	i.mu.RUnlock()
	if closed {
		return protocolif.ErrAlreadyClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	i.bus.broadcast(i, dest, payload)
	return nil
}

func (i *Interface) OnFrame(handler protocolif.FrameHandler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handler = handler
}

func (i *Interface) deliver(f protocolif.Frame) {
	i.mu.RLock()
	h := i.handler
	closed := i.closed
	i.mu.RUnlock()
	if closed || h == nil {
		return
	}
	h(f)
}

func (i *Interface) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return protocolif.ErrAlreadyClosed
	}
	i.closed = true
	i.mu.Unlock()
	i.bus.unregister(i)
	return nil
}
