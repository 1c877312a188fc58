// Package rawsocket implements protocolif.ProtocolInterface on top of
// a Linux AF_PACKET socket bound to a single interface and filtered to
// the AVTP EtherType, so ADP/AECP/ACMP frames are delivered directly
// without going through the kernel's IP stack.
package rawsocket
