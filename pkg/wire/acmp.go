package wire

import (
	"encoding/binary"
	"fmt"
)

// ACMPMessageType identifies the kind of ACMP frame.
type ACMPMessageType uint8

const (
	ACMPConnectRXCommand      ACMPMessageType = 0x00
	ACMPConnectRXResponse     ACMPMessageType = 0x01
	ACMPDisconnectRXCommand   ACMPMessageType = 0x02
	ACMPDisconnectRXResponse  ACMPMessageType = 0x03
	ACMPGetRXStateCommand     ACMPMessageType = 0x04
	ACMPGetRXStateResponse    ACMPMessageType = 0x05
	ACMPConnectTXCommand      ACMPMessageType = 0x06
	ACMPConnectTXResponse     ACMPMessageType = 0x07
	ACMPDisconnectTXCommand   ACMPMessageType = 0x08
	ACMPDisconnectTXResponse  ACMPMessageType = 0x09
	ACMPGetTXStateCommand     ACMPMessageType = 0x0A
	ACMPGetTXStateResponse    ACMPMessageType = 0x0B
)

// String returns the ACMP message type mnemonic.
func (t ACMPMessageType) String() string {
	switch t {
	case ACMPConnectRXCommand:
		return "CONNECT_RX_COMMAND"
	case ACMPConnectRXResponse:
		return "CONNECT_RX_RESPONSE"
	case ACMPDisconnectRXCommand:
		return "DISCONNECT_RX_COMMAND"
	case ACMPDisconnectRXResponse:
		return "DISCONNECT_RX_RESPONSE"
	case ACMPGetRXStateCommand:
		return "GET_RX_STATE_COMMAND"
	case ACMPGetRXStateResponse:
		return "GET_RX_STATE_RESPONSE"
	case ACMPConnectTXCommand:
		return "CONNECT_TX_COMMAND"
	case ACMPConnectTXResponse:
		return "CONNECT_TX_RESPONSE"
	case ACMPDisconnectTXCommand:
		return "DISCONNECT_TX_COMMAND"
	case ACMPDisconnectTXResponse:
		return "DISCONNECT_TX_RESPONSE"
	case ACMPGetTXStateCommand:
		return "GET_TX_STATE_COMMAND"
	case ACMPGetTXStateResponse:
		return "GET_TX_STATE_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// acmpBodySize is the size, in bytes, of the ACMP PDU body following
// the 4-byte common header.
const acmpBodySize = 44

// ACMPFrame is a decoded ACMP frame.
type ACMPFrame struct {
	MessageType        ACMPMessageType
	Status             uint8 // ACMPStatus value, see avdeccstatus
	StreamID           uint64
	ControllerEntityID uint64
	TalkerEntityID     uint64
	ListenerEntityID   uint64
	TalkerUniqueID     uint16
	ListenerUniqueID   uint16
	StreamDestMAC      [6]byte
	ConnectionCount    uint16
	SequenceID         uint16
	Flags              uint16
	StreamVlanID       uint16
}

// Encode serializes the frame including the common header.
func (f ACMPFrame) Encode() []byte {
	buf := make([]byte, headerSize+acmpBodySize)
	hdr := CommonHeader{
		Subtype:           SubtypeACMP,
		Version:           0,
		MessageType:       uint8(f.MessageType),
		StatusOrValidTime: f.Status,
		ControlDataLength: acmpBodySize,
	}
	copy(buf[0:headerSize], encodeHeader(hdr))

	b := buf[headerSize:]
	binary.BigEndian.PutUint64(b[0:8], f.StreamID)
	binary.BigEndian.PutUint64(b[8:16], f.ControllerEntityID)
	binary.BigEndian.PutUint64(b[16:24], f.TalkerEntityID)
	binary.BigEndian.PutUint64(b[24:32], f.ListenerEntityID)
	binary.BigEndian.PutUint16(b[32:34], f.TalkerUniqueID)
	binary.BigEndian.PutUint16(b[34:36], f.ListenerUniqueID)
	copy(b[36:42], f.StreamDestMAC[:])
	binary.BigEndian.PutUint16(b[42:44], f.ConnectionCount)
	// sequence_id, flags and stream_vlan_id trail the fixed ACMP body.
	return appendTail(buf, f.SequenceID, f.Flags, f.StreamVlanID)
}

func appendTail(buf []byte, sequenceID, flags, vlanID uint16) []byte {
	tail := make([]byte, 6)
	binary.BigEndian.PutUint16(tail[0:2], sequenceID)
	binary.BigEndian.PutUint16(tail[2:4], flags)
	binary.BigEndian.PutUint16(tail[4:6], vlanID)
	return append(buf, tail...)
}

// DecodeACMP parses a full frame (common header + body + tail) as an ACMP frame.
func DecodeACMP(data []byte) (ACMPFrame, error) {
	hdr, err := DecodeCommonHeader(data)
	if err != nil {
		return ACMPFrame{}, err
	}
	if hdr.Subtype != SubtypeACMP {
		return ACMPFrame{}, fmt.Errorf("wire: not an ACMP frame (subtype=%s)", hdr.Subtype)
	}
	const total = headerSize + acmpBodySize + 6
	if len(data) < total {
		return ACMPFrame{}, fmt.Errorf("wire: short ACMP frame, need %d bytes, got %d", total, len(data))
	}
	b := data[headerSize:]
	f := ACMPFrame{
		MessageType:        ACMPMessageType(hdr.MessageType),
		Status:              hdr.StatusOrValidTime,
		StreamID:            binary.BigEndian.Uint64(b[0:8]),
		ControllerEntityID:  binary.BigEndian.Uint64(b[8:16]),
		TalkerEntityID:      binary.BigEndian.Uint64(b[16:24]),
		ListenerEntityID:    binary.BigEndian.Uint64(b[24:32]),
		TalkerUniqueID:      binary.BigEndian.Uint16(b[32:34]),
		ListenerUniqueID:    binary.BigEndian.Uint16(b[34:36]),
		ConnectionCount:     binary.BigEndian.Uint16(b[42:44]),
	}
	copy(f.StreamDestMAC[:], b[36:42])
	tail := b[acmpBodySize : acmpBodySize+6]
	f.SequenceID = binary.BigEndian.Uint16(tail[0:2])
	f.Flags = binary.BigEndian.Uint16(tail[2:4])
	f.StreamVlanID = binary.BigEndian.Uint16(tail[4:6])
	return f, nil
}
