//go:build linux

package rawsocket

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
)

const etherTypeAVTP = 0x22F0

// Interface binds an AF_PACKET socket to one network interface and
// exchanges raw AVTP frames over it.
type Interface struct {
	fd      int
	ifindex int
	mac     entitymodel.MacAddress

	mu      sync.RWMutex
	handler protocolif.FrameHandler
	closed  bool

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ protocolif.ProtocolInterface = (*Interface)(nil)

// Open binds a new raw AVTP socket to the named interface.
func Open(ifaceName string) (*Interface, error) {
	netIf, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", protocolif.ErrInterfaceNotFound, ifaceName, err)
	}
	if netIf.Flags&net.FlagUp == 0 {
		return nil, fmt.Errorf("%w: %s is administratively down", protocolif.ErrInterfaceInvalid, ifaceName)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(etherTypeAVTP)))
	if err != nil {
		return nil, fmt.Errorf("%w: socket: %v", protocolif.ErrInterfaceOpenError, err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(etherTypeAVTP),
		Ifindex:  netIf.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: bind: %v", protocolif.ErrInterfaceOpenError, err)
	}

	var mac entitymodel.MacAddress
	copy(mac[:], netIf.HardwareAddr)

	i := &Interface{
		fd:      fd,
		ifindex: netIf.Index,
		mac:     mac,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go i.receiveLoop()
	return i, nil
}

func htons(v uint16) uint16 {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return binary.LittleEndian.Uint16(b)
}

func (i *Interface) LocalMAC() entitymodel.MacAddress {
	return i.mac
}

func (i *Interface) OnFrame(handler protocolif.FrameHandler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handler = handler
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

	frame := make([]byte, 12+2+len(payload))
	copy(frame[0:6], dest[:])
	copy(frame[6:12], i.mac[:])
	binary.BigEndian.PutUint16(frame[12:14], etherTypeAVTP)
	copy(frame[14:], payload)

	to := unix.SockaddrLinklayer{
		Protocol: htons(etherTypeAVTP),
		Ifindex:  i.ifindex,
		Halen:    6,
	}
	copy(to.Addr[:6], dest[:])

	if err := unix.Sendto(i.fd, frame, 0, &to); err != nil {
		return fmt.Errorf("rawsocket: sendto: %w", err)
	}
	return nil
}

func (i *Interface) receiveLoop() {
	defer close(i.doneCh)
	buf := make([]byte, 1600)
	for {
		select {
		case <-i.stopCh:
			return
		default:
		}
		n, from, err := unix.Recvfrom(i.fd, buf, 0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n < 14 {
			continue
		}
		ll, ok := from.(*unix.SockaddrLinklayer)
		if !ok {
			continue
		}
		etherType := binary.BigEndian.Uint16(buf[12:14])
		if etherType != etherTypeAVTP {
			continue
		}

		var src entitymodel.MacAddress
		copy(src[:], ll.Addr[:6])
		var dst entitymodel.MacAddress
		copy(dst[:], buf[0:6])

		frame := protocolif.Frame{
			Destination: dst,
			Source:      src,
			EtherType:   etherType,
			Payload:     append([]byte(nil), buf[14:n]...),
		}

		i.mu.RLock()
		h := i.handler
		i.mu.RUnlock()
		if h != nil {
			h(frame)
		}
	}
}

func (i *Interface) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return protocolif.ErrAlreadyClosed
	}
	i.closed = true
	i.mu.Unlock()

	close(i.stopCh)
	_ = unix.Close(i.fd)
	<-i.doneCh
	return nil
}
