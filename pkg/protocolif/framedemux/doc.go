// Package framedemux wraps a protocolif.ProtocolInterface so several
// independent subsystems (ADP discovery, the AECP/ACMP command
// transport, the controller's own duplicate-ID probe) can each
// register a frame handler against the same underlying interface.
// ProtocolInterface.OnFrame documents "last call wins" for a single
// subscriber; Demux itself satisfies ProtocolInterface and turns every
// OnFrame call into an added subscriber instead, fanning out received
// frames to all of them.
package framedemux
