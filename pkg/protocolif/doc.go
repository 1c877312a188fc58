// Package protocolif defines the boundary between the AVDECC protocol
// stack and the underlying network: a ProtocolInterface sends and
// receives raw Ethernet frames carrying ADP, AECP and ACMP PDUs.
//
// Three implementations are provided: rawsocket (Linux AF_PACKET),
// pcap (dynamically loaded libpcap, for platforms without AF_PACKET)
// and faketransport (in-process, for tests).
package protocolif
