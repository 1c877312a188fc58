package framedemux

import (
	"context"
	"sync"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
)

// Demux fans received frames out to every subscriber registered via
// OnFrame, in registration order. Subscribers are stored copy-on-write
// so dispatch never holds the subscriber lock while calling out.
type Demux struct {
	pi protocolif.ProtocolInterface

	mu          sync.Mutex
	subscribers []protocolif.FrameHandler
}

var _ protocolif.ProtocolInterface = (*Demux)(nil)

// Wrap attaches a Demux to pi, registering itself as pi's sole frame
// handler. Every frame pi delivers afterward is fanned out to
// whatever handlers are subscribed via the Demux's own OnFrame.
func Wrap(pi protocolif.ProtocolInterface) *Demux {
	d := &Demux{pi: pi}
	pi.OnFrame(d.dispatch)
	return d
}

// OnFrame adds handler to the fan-out list. Unlike the ProtocolInterface
// contract it satisfies, repeated calls accumulate subscribers rather
// than replacing the previous one.
func (d *Demux) OnFrame(handler protocolif.FrameHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := make([]protocolif.FrameHandler, len(d.subscribers), len(d.subscribers)+1)
	copy(next, d.subscribers)
	next = append(next, handler)
	d.subscribers = next
}

func (d *Demux) dispatch(f protocolif.Frame) {
	d.mu.Lock()
	subs := d.subscribers
	d.mu.Unlock()
	for _, h := range subs {
		h(f)
	}
}

// LocalMAC delegates to the wrapped interface.
func (d *Demux) LocalMAC() entitymodel.MacAddress {
	return d.pi.LocalMAC()
}

// Send delegates to the wrapped interface.
func (d *Demux) Send(ctx context.Context, dest entitymodel.MacAddress, payload []byte) error {
	return d.pi.Send(ctx, dest, payload)
}

// Close delegates to the wrapped interface.
func (d *Demux) Close() error {
	return d.pi.Close()
}
