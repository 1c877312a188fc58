package protocolif

import (
	"context"
	"errors"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
)

// Errors returned by ProtocolInterface implementations.
var (
	ErrInvalidProtocolInterfaceType = errors.New("protocolif: invalid protocol interface type")
	ErrInterfaceOpenError           = errors.New("protocolif: failed to open interface")
	ErrInterfaceNotFound            = errors.New("protocolif: interface not found")
	ErrInterfaceInvalid             = errors.New("protocolif: interface is invalid or administratively down")
	ErrAlreadyClosed                = errors.New("protocolif: already closed")
)

// Frame is a raw Ethernet frame exchanged with the network, destination
// MAC, EtherType and payload split out from the L2 header the backend
// parsed or needs to build.
type Frame struct {
	Destination entitymodel.MacAddress
	Source      entitymodel.MacAddress
	EtherType   uint16
	Payload     []byte
}

// FrameHandler is invoked for every received frame whose EtherType
// matches AVTP. Implementations must not block for long: the backend
// calls it synchronously from its receive loop.
type FrameHandler func(Frame)

// ProtocolInterface is the network boundary a controller binds to.
// All methods are safe for concurrent use.
type ProtocolInterface interface {
	// LocalMAC returns the MAC address bound to this interface.
	LocalMAC() entitymodel.MacAddress

	// Send transmits a raw AVTP frame. The destination is typically
	// the AVDECC multicast address for ADP/ACMP or a unicast address
	// for AECP responses/commands.
	Send(ctx context.Context, dest entitymodel.MacAddress, payload []byte) error

	// OnFrame registers the handler invoked for every received AVTP
	// frame. Only one handler may be registered; the last call wins.
	OnFrame(handler FrameHandler)

	// Close shuts the interface down. Send after Close returns
	// ErrAlreadyClosed. Close is idempotent.
	Close() error
}

// AvdeccMulticastMAC is the reserved destination address for ADP and
// ACMP frames (01:80:C2:00:00:0E, per IEEE 1722.1 Annex B).
var AvdeccMulticastMAC = entitymodel.MacAddress{0x01, 0x80, 0xC2, 0x00, 0x00, 0x0E}
