package wire

import (
	"encoding/binary"
	"fmt"
)

// ADPMessageType identifies the kind of ADP advertisement.
type ADPMessageType uint8

const (
	ADPEntityAvailable  ADPMessageType = 0x00
	ADPEntityDeparting  ADPMessageType = 0x01
	ADPEntityDiscover   ADPMessageType = 0x02
)

// String returns the ADP message type mnemonic.
func (t ADPMessageType) String() string {
	switch t {
	case ADPEntityAvailable:
		return "ENTITY_AVAILABLE"
	case ADPEntityDeparting:
		return "ENTITY_DEPARTING"
	case ADPEntityDiscover:
		return "ENTITY_DISCOVER"
	default:
		return "UNKNOWN"
	}
}

// adpBodySize is the size, in bytes, of the ADP PDU body following the
// 4-byte common header.
const adpBodySize = 58

// ADPPDU is a fully decoded ADP advertisement or discovery request.
type ADPPDU struct {
	MessageType            ADPMessageType
	ValidTime               uint8 // seconds / 2, a 5-bit field on the wire (0-31)
	EntityID                uint64
	EntityModelID           uint64
	EntityCapabilities      uint32
	TalkerStreamSources     uint16
	TalkerCapabilities      uint16
	ListenerStreamSinks     uint16
	ListenerCapabilities    uint16
	ControllerCapabilities  uint32
	AvailableIndex          uint32
	GptpGrandmasterID       uint64
	GptpDomainNumber        uint8
	IdentifyControlIndex    uint16
	InterfaceIndex          uint16
	AssociationID           uint64
}

// Encode serializes the PDU including the common header.
func (p ADPPDU) Encode() []byte {
	buf := make([]byte, headerSize+adpBodySize)
	hdr := CommonHeader{
		Subtype:           SubtypeADP,
		Version:           0,
		MessageType:       uint8(p.MessageType),
		StatusOrValidTime: p.ValidTime,
		ControlDataLength: adpBodySize,
	}
	copy(buf[0:headerSize], encodeHeader(hdr))

	b := buf[headerSize:]
	binary.BigEndian.PutUint64(b[0:8], p.EntityID)
	binary.BigEndian.PutUint64(b[8:16], p.EntityModelID)
	binary.BigEndian.PutUint32(b[16:20], p.EntityCapabilities)
	binary.BigEndian.PutUint16(b[20:22], p.TalkerStreamSources)
	binary.BigEndian.PutUint16(b[22:24], p.TalkerCapabilities)
	binary.BigEndian.PutUint16(b[24:26], p.ListenerStreamSinks)
	binary.BigEndian.PutUint16(b[26:28], p.ListenerCapabilities)
	binary.BigEndian.PutUint32(b[28:32], p.ControllerCapabilities)
	binary.BigEndian.PutUint32(b[32:36], p.AvailableIndex)
	binary.BigEndian.PutUint64(b[36:44], p.GptpGrandmasterID)
	b[44] = p.GptpDomainNumber
	// b[45] is reserved, left zero.
	binary.BigEndian.PutUint16(b[46:48], p.IdentifyControlIndex)
	binary.BigEndian.PutUint16(b[48:50], p.InterfaceIndex)
	binary.BigEndian.PutUint64(b[50:58], p.AssociationID)
	return buf
}

// DecodeADP parses a full frame (common header + body) as an ADP PDU.
func DecodeADP(data []byte) (ADPPDU, error) {
	hdr, err := DecodeCommonHeader(data)
	if err != nil {
		return ADPPDU{}, err
	}
	if hdr.Subtype != SubtypeADP {
		return ADPPDU{}, fmt.Errorf("wire: not an ADP frame (subtype=%s)", hdr.Subtype)
	}
	if len(data) < headerSize+adpBodySize {
		return ADPPDU{}, fmt.Errorf("wire: short ADP frame, need %d bytes, got %d", headerSize+adpBodySize, len(data))
	}
	b := data[headerSize:]
	return ADPPDU{
		MessageType:            ADPMessageType(hdr.MessageType),
		ValidTime:              hdr.StatusOrValidTime,
		EntityID:               binary.BigEndian.Uint64(b[0:8]),
		EntityModelID:          binary.BigEndian.Uint64(b[8:16]),
		EntityCapabilities:     binary.BigEndian.Uint32(b[16:20]),
		TalkerStreamSources:    binary.BigEndian.Uint16(b[20:22]),
		TalkerCapabilities:     binary.BigEndian.Uint16(b[22:24]),
		ListenerStreamSinks:    binary.BigEndian.Uint16(b[24:26]),
		ListenerCapabilities:   binary.BigEndian.Uint16(b[26:28]),
		ControllerCapabilities: binary.BigEndian.Uint32(b[28:32]),
		AvailableIndex:         binary.BigEndian.Uint32(b[32:36]),
		GptpGrandmasterID:      binary.BigEndian.Uint64(b[36:44]),
		GptpDomainNumber:       b[44],
		IdentifyControlIndex:   binary.BigEndian.Uint16(b[46:48]),
		InterfaceIndex:         binary.BigEndian.Uint16(b[48:50]),
		AssociationID:          binary.BigEndian.Uint64(b[50:58]),
	}, nil
}

func encodeHeader(h CommonHeader) []byte {
	enc := h.Encode()
	return enc[:]
}
