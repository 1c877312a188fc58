package wire

import (
	"encoding/binary"
	"fmt"
)

// AECPMessageType identifies the direction/kind of an AECP frame.
type AECPMessageType uint8

const (
	AECPAEMCommand  AECPMessageType = 0x00
	AECPAEMResponse AECPMessageType = 0x01
)

// String returns the AECP message type mnemonic.
func (t AECPMessageType) String() string {
	switch t {
	case AECPAEMCommand:
		return "AEM_COMMAND"
	case AECPAEMResponse:
		return "AEM_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// AECPCommandType identifies the AEM command carried in an AECP frame.
// Only the subset this module implements is enumerated.
type AECPCommandType uint16

const (
	AECPAcquireEntity     AECPCommandType = 0x0000
	AECPLockEntity        AECPCommandType = 0x0001
	AECPReadDescriptor    AECPCommandType = 0x0004
	AECPWriteDescriptor   AECPCommandType = 0x0005
	AECPSetConfiguration  AECPCommandType = 0x0006
	AECPGetConfiguration  AECPCommandType = 0x0007
	AECPSetStreamFormat   AECPCommandType = 0x0008
	AECPGetStreamFormat   AECPCommandType = 0x0009
	AECPSetName           AECPCommandType = 0x000C
	AECPGetName           AECPCommandType = 0x000D
	AECPSetSamplingRate   AECPCommandType = 0x000E
	AECPGetSamplingRate   AECPCommandType = 0x000F
	AECPSetClockSource    AECPCommandType = 0x0010
	AECPGetClockSource    AECPCommandType = 0x0011
	AECPStartStreaming    AECPCommandType = 0x0022
	AECPStopStreaming     AECPCommandType = 0x0023
	AECPGetAudioMap       AECPCommandType = 0x0028
	AECPAddAudioMappings  AECPCommandType = 0x0029
	AECPRemoveAudioMappings AECPCommandType = 0x002A
	AECPGetStreamInfo     AECPCommandType = 0x0012
	AECPSetMemoryObjectLength AECPCommandType = 0x002E
	AECPGetMemoryObjectLength AECPCommandType = 0x002F
)

// String returns the AEM command mnemonic.
func (c AECPCommandType) String() string {
	switch c {
	case AECPAcquireEntity:
		return "ACQUIRE_ENTITY"
	case AECPLockEntity:
		return "LOCK_ENTITY"
	case AECPReadDescriptor:
		return "READ_DESCRIPTOR"
	case AECPWriteDescriptor:
		return "WRITE_DESCRIPTOR"
	case AECPSetConfiguration:
		return "SET_CONFIGURATION"
	case AECPGetConfiguration:
		return "GET_CONFIGURATION"
	case AECPSetStreamFormat:
		return "SET_STREAM_FORMAT"
	case AECPGetStreamFormat:
		return "GET_STREAM_FORMAT"
	case AECPSetName:
		return "SET_NAME"
	case AECPGetName:
		return "GET_NAME"
	case AECPSetSamplingRate:
		return "SET_SAMPLING_RATE"
	case AECPGetSamplingRate:
		return "GET_SAMPLING_RATE"
	case AECPSetClockSource:
		return "SET_CLOCK_SOURCE"
	case AECPGetClockSource:
		return "GET_CLOCK_SOURCE"
	case AECPGetStreamInfo:
		return "GET_STREAM_INFO"
	case AECPStartStreaming:
		return "START_STREAMING"
	case AECPStopStreaming:
		return "STOP_STREAMING"
	case AECPGetAudioMap:
		return "GET_AUDIO_MAP"
	case AECPAddAudioMappings:
		return "ADD_AUDIO_MAPPINGS"
	case AECPRemoveAudioMappings:
		return "REMOVE_AUDIO_MAPPINGS"
	case AECPSetMemoryObjectLength:
		return "SET_MEMORY_OBJECT_LENGTH"
	case AECPGetMemoryObjectLength:
		return "GET_MEMORY_OBJECT_LENGTH"
	default:
		return "UNKNOWN"
	}
}

// aecpHeaderSize is the size, in bytes, of the AECP AEM body preceding
// the command-specific payload: target entity ID, controller entity
// ID, sequence ID and the command type (with its U bit).
const aecpHeaderSize = 20

// AECPFrame is a decoded AECP AEM command or response, payload left
// as opaque bytes for the command-specific codec to interpret.
type AECPFrame struct {
	MessageType       AECPMessageType
	Status            uint8 // AEMStatus value, see avdeccstatus
	TargetEntityID    uint64
	ControllerEntityID uint64
	SequenceID        uint16
	CommandType       AECPCommandType
	Payload           []byte
}

// Encode serializes the frame including the common header.
func (f AECPFrame) Encode() []byte {
	buf := make([]byte, headerSize+aecpHeaderSize+len(f.Payload))
	hdr := CommonHeader{
		Subtype:           SubtypeAECP,
		Version:           0,
		MessageType:       uint8(f.MessageType),
		StatusOrValidTime: f.Status,
		ControlDataLength: uint16(aecpHeaderSize + len(f.Payload)),
	}
	copy(buf[0:headerSize], encodeHeader(hdr))

	b := buf[headerSize:]
	binary.BigEndian.PutUint64(b[0:8], f.TargetEntityID)
	binary.BigEndian.PutUint64(b[8:16], f.ControllerEntityID)
	binary.BigEndian.PutUint16(b[16:18], f.SequenceID)
	binary.BigEndian.PutUint16(b[18:20], uint16(f.CommandType)&0x7FFF)
	copy(b[20:], f.Payload)
	return buf
}

// DecodeAECP parses a full frame (common header + body) as an AECP AEM frame.
func DecodeAECP(data []byte) (AECPFrame, error) {
	hdr, err := DecodeCommonHeader(data)
	if err != nil {
		return AECPFrame{}, err
	}
	if hdr.Subtype != SubtypeAECP {
		return AECPFrame{}, fmt.Errorf("wire: not an AECP frame (subtype=%s)", hdr.Subtype)
	}
	if len(data) < headerSize+aecpHeaderSize {
		return AECPFrame{}, fmt.Errorf("wire: short AECP frame, need at least %d bytes, got %d", headerSize+aecpHeaderSize, len(data))
	}
	b := data[headerSize:]
	payloadLen := int(hdr.ControlDataLength) - aecpHeaderSize
	if payloadLen < 0 || headerSize+aecpHeaderSize+payloadLen > len(data) {
		return AECPFrame{}, fmt.Errorf("wire: inconsistent AECP control_data_length")
	}
	return AECPFrame{
		MessageType:        AECPMessageType(hdr.MessageType),
		Status:              hdr.StatusOrValidTime,
		TargetEntityID:       binary.BigEndian.Uint64(b[0:8]),
		ControllerEntityID:   binary.BigEndian.Uint64(b[8:16]),
		SequenceID:           binary.BigEndian.Uint16(b[16:18]),
		CommandType:          AECPCommandType(binary.BigEndian.Uint16(b[18:20]) & 0x7FFF),
		Payload:              append([]byte(nil), b[20:20+payloadLen]...),
	}, nil
}
