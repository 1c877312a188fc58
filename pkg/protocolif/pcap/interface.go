package pcap

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"unsafe"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
)

const (
	snapLen       = 1600
	promiscuous   = 1
	readTimeoutMs = 50
	etherTypeAVTP = 0x22F0
)

// avtpFilter is the BPF filter expression restricting capture to AVTP
// frames, matching the EtherType at the standard 14-byte Ethernet
// header offset.
const avtpFilter = "ether proto 0x22f0"

// Interface binds a dynamically loaded pcap_t handle to one network
// interface and exchanges raw AVTP frames over it.
type Interface struct {
	lib     *library
	handle  uintptr
	mac     entitymodel.MacAddress
	ifName  string

	mu      sync.RWMutex
	handler protocolif.FrameHandler
	closed  bool

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ protocolif.ProtocolInterface = (*Interface)(nil)

// Open loads libpcap and binds a live capture session to ifaceName.
func Open(ifaceName string) (*Interface, error) {
	return OpenWithLibrary(ifaceName, "")
}

// OpenWithLibrary is Open with an explicit override for the libpcap
// shared library path, tried before the platform's default names.
func OpenWithLibrary(ifaceName, libraryPath string) (*Interface, error) {
	netIf, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", protocolif.ErrInterfaceNotFound, ifaceName, err)
	}

	lib, err := loadLibrary(libraryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocolif.ErrInterfaceOpenError, err)
	}

	errbuf := make([]byte, 256)
	handle := lib.openLive(ifaceName, snapLen, promiscuous, readTimeoutMs, &errbuf[0])
	if handle == 0 {
		return nil, fmt.Errorf("%w: pcap_open_live: %s", protocolif.ErrInterfaceOpenError, nullTerminated(errbuf))
	}

	var prog bpfProgram
	if lib.compile(handle, &prog, avtpFilter, 1, 0) != 0 {
		lib.close(handle)
		return nil, fmt.Errorf("%w: pcap_compile failed for filter %q", protocolif.ErrInterfaceOpenError, avtpFilter)
	}
	if lib.setFilter(handle, &prog) != 0 {
		lib.freeCode(&prog)
		lib.close(handle)
		return nil, fmt.Errorf("%w: pcap_setfilter failed", protocolif.ErrInterfaceOpenError)
	}
	lib.freeCode(&prog)

	var mac entitymodel.MacAddress
	copy(mac[:], netIf.HardwareAddr)

	i := &Interface{
		lib:    lib,
		handle: handle,
		mac:    mac,
		ifName: ifaceName,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go i.receiveLoop()
	return i, nil
}

func nullTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
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

	if rc := i.lib.sendPacket(i.handle, frame, int32(len(frame))); rc != 0 {
		return fmt.Errorf("pcap: pcap_sendpacket failed, rc=%d", rc)
	}
	return nil
}

func (i *Interface) receiveLoop() {
	defer close(i.doneCh)
	for {
		select {
		case <-i.stopCh:
			return
		default:
		}

		var hdr *pktHeader
		var data *byte
		rc := i.lib.nextEx(i.handle, &hdr, &data)
		switch rc {
		case 1:
			i.deliverCaptured(hdr, data)
		case 0:
			// timed out waiting for a packet, loop and check stopCh again.
		default:
			// negative: error or EOF on the capture handle.
			return
		}
	}
}

func (i *Interface) deliverCaptured(hdr *pktHeader, data *byte) {
	if hdr == nil || data == nil || hdr.Caplen < 14 {
		return
	}
	buf := unsafe.Slice(data, int(hdr.Caplen))
	etherType := binary.BigEndian.Uint16(buf[12:14])
	if etherType != etherTypeAVTP {
		return
	}

	var dst, src entitymodel.MacAddress
	copy(dst[:], buf[0:6])
	copy(src[:], buf[6:12])

	frame := protocolif.Frame{
		Destination: dst,
		Source:      src,
		EtherType:   etherType,
		Payload:     append([]byte(nil), buf[14:]...),
	}

	i.mu.RLock()
	h := i.handler
	i.mu.RUnlock()
	if h != nil {
		h(frame)
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
	<-i.doneCh
	i.lib.close(i.handle)
	return nil
}
