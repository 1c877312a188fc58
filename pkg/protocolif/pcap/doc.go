// Package pcap implements protocolif.ProtocolInterface against a
// dynamically loaded libpcap, for platforms where the rawsocket
// backend's AF_PACKET approach is unavailable. The library is resolved
// at runtime via dlopen/LoadLibrary (through purego) rather than linked
// at build time, so the binary still runs on hosts without libpcap
// installed, just without this backend available.
package pcap
