// Package wire implements the binary framing for IEEE 1722.1 AVDECC
// PDUs: the AVTP common control header, and the ADP, AECP (AEM) and
// ACMP subtype layouts layered on top of it. Bit-exact field offsets
// follow IEEE 1722.1-2013; this package owns only the encode/decode,
// never the protocol state machines built on top of it.
//
// All integers are big-endian on the wire, per AVTP convention.
package wire
