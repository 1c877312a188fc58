package pcap

import (
	"fmt"
	"runtime"

	"github.com/ebitengine/purego"
)

// library names to try, in order, per platform. macOS needs the
// absolute path because of hardened-runtime dlopen restrictions.
// override, if non-empty, is tried first.
func candidateLibraryNames(override string) []string {
	var defaults []string
	switch runtime.GOOS {
	case "darwin":
		defaults = []string{"/usr/lib/libpcap.dylib"}
	case "windows":
		defaults = []string{"wpcap.dll"}
	default:
		defaults = []string{"libpcap.so.0.8", "libpcap.so"}
	}
	if override == "" {
		return defaults
	}
	return append([]string{override}, defaults...)
}

// library holds the resolved function pointers this package uses. All
// ten are required: matching libpcap's own foundAllFunctions-style
// availability gate, a build missing any one of them is treated as
// libpcap being unusable rather than partially usable.
type library struct {
	handle uintptr

	openLive   func(device string, snaplen int32, promisc int32, toMs int32, errbuf *byte) uintptr
	fileno     func(p uintptr) int32
	close      func(p uintptr)
	compile    func(p uintptr, program *bpfProgram, filter string, optimize int32, netmask uint32) int32
	setFilter  func(p uintptr, program *bpfProgram) int32
	freeCode   func(program *bpfProgram)
	nextEx     func(p uintptr, hdr **pktHeader, data **byte) int32
	loop       func(p uintptr, cnt int32, callback uintptr, user *byte) int32
	breakloop  func(p uintptr)
	sendPacket func(p uintptr, data []byte, size int32) int32
}

// bpfProgram mirrors struct bpf_program: a length and a pointer to the
// compiled instruction array, as libpcap lays it out on LP64 platforms.
type bpfProgram struct {
	Len    uint32
	_      uint32
	Insns  uintptr
}

// pktHeader mirrors the fixed prefix of struct pcap_pkthdr: a timeval
// followed by caplen/len, as libpcap lays it out on LP64 platforms.
type pktHeader struct {
	TvSec   int64
	TvUsec  int64
	Caplen  uint32
	Len     uint32
}

// bindSymbol registers fnPtr against symbol in handle, converting the
// panic purego.RegisterLibFunc raises on an unresolved symbol into an
// error instead of letting it crash the process.
func bindSymbol(handle uintptr, symbol string, fnPtr interface{}) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("symbol %s: %v", symbol, rec)
		}
	}()
	purego.RegisterLibFunc(fnPtr, handle, symbol)
	return nil
}

func loadLibrary(override string) (*library, error) {
	var lastErr error
	for _, name := range candidateLibraryNames(override) {
		handle, err := purego.Dlopen(name, purego.RTLD_LAZY)
		if err != nil {
			lastErr = err
			continue
		}
		lib, err := bindAllSymbols(handle)
		if err != nil {
			purego.Dlclose(handle)
			lastErr = fmt.Errorf("%s: %w", name, err)
			continue
		}
		return lib, nil
	}
	return nil, fmt.Errorf("pcap: could not load libpcap: %w", lastErr)
}

// bindAllSymbols resolves every function this package depends on, and
// fails the whole library if even one is missing: a partially resolved
// libpcap is treated as no libpcap at all.
func bindAllSymbols(handle uintptr) (*library, error) {
	lib := &library{handle: handle}
	binds := []struct {
		symbol string
		fnPtr  interface{}
	}{
		{"pcap_open_live", &lib.openLive},
		{"pcap_fileno", &lib.fileno},
		{"pcap_close", &lib.close},
		{"pcap_compile", &lib.compile},
		{"pcap_setfilter", &lib.setFilter},
		{"pcap_freecode", &lib.freeCode},
		{"pcap_next_ex", &lib.nextEx},
		{"pcap_loop", &lib.loop},
		{"pcap_breakloop", &lib.breakloop},
		{"pcap_sendpacket", &lib.sendPacket},
	}
	for _, b := range binds {
		if err := bindSymbol(handle, b.symbol, b.fnPtr); err != nil {
			return nil, err
		}
	}
	return lib, nil
}
