package wire

import (
	"encoding/binary"
	"fmt"
)

// AcquireEntityFlags controls the semantics of an ACQUIRE_ENTITY command.
type AcquireEntityFlags uint32

const (
	// AcquireEntityPersistent marks the acquisition as surviving the
	// controller's own restart, per IEEE 1722.1's PERSISTENT flag.
	AcquireEntityPersistent AcquireEntityFlags = 1 << 0
	// AcquireEntityRelease requests release rather than acquisition when
	// set, per IEEE 1722.1's RELEASE flag on the same command type.
	AcquireEntityRelease AcquireEntityFlags = 1 << 31
)

// AcquireEntityPayload is the payload of ACQUIRE_ENTITY and, with
// AcquireEntityRelease set, its paired release request.
type AcquireEntityPayload struct {
	Flags              AcquireEntityFlags
	OwnerEntityID      uint64
	DescriptorType     uint16
	DescriptorIndex    uint16
}

func (p AcquireEntityPayload) Encode() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], uint32(p.Flags))
	binary.BigEndian.PutUint64(buf[4:12], p.OwnerEntityID)
	binary.BigEndian.PutUint16(buf[12:14], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[14:16], p.DescriptorIndex)
	return buf
}

func DecodeAcquireEntityPayload(b []byte) (AcquireEntityPayload, error) {
	if len(b) < 16 {
		return AcquireEntityPayload{}, fmt.Errorf("wire: short ACQUIRE_ENTITY payload")
	}
	return AcquireEntityPayload{
		Flags:           AcquireEntityFlags(binary.BigEndian.Uint32(b[0:4])),
		OwnerEntityID:   binary.BigEndian.Uint64(b[4:12]),
		DescriptorType:  binary.BigEndian.Uint16(b[12:14]),
		DescriptorIndex: binary.BigEndian.Uint16(b[14:16]),
	}, nil
}

// LockEntityFlags mirrors AcquireEntityFlags for LOCK_ENTITY's own
// RELEASE bit; LOCK_ENTITY has no PERSISTENT equivalent.
type LockEntityFlags uint32

const (
	LockEntityRelease LockEntityFlags = 1 << 31
)

// LockEntityPayload is the payload of LOCK_ENTITY and its paired
// unlock request.
type LockEntityPayload struct {
	Flags           LockEntityFlags
	LockedEntityID  uint64
	DescriptorType  uint16
	DescriptorIndex uint16
}

func (p LockEntityPayload) Encode() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], uint32(p.Flags))
	binary.BigEndian.PutUint64(buf[4:12], p.LockedEntityID)
	binary.BigEndian.PutUint16(buf[12:14], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[14:16], p.DescriptorIndex)
	return buf
}

func DecodeLockEntityPayload(b []byte) (LockEntityPayload, error) {
	if len(b) < 16 {
		return LockEntityPayload{}, fmt.Errorf("wire: short LOCK_ENTITY payload")
	}
	return LockEntityPayload{
		Flags:           LockEntityFlags(binary.BigEndian.Uint32(b[0:4])),
		LockedEntityID:  binary.BigEndian.Uint64(b[4:12]),
		DescriptorType:  binary.BigEndian.Uint16(b[12:14]),
		DescriptorIndex: binary.BigEndian.Uint16(b[14:16]),
	}, nil
}

// DescriptorRefPayload is the payload of START_STREAMING and
// STOP_STREAMING: just the descriptor being addressed.
type DescriptorRefPayload struct {
	DescriptorType  uint16
	DescriptorIndex uint16
}

func (p DescriptorRefPayload) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	return buf
}

func DecodeDescriptorRefPayload(b []byte) (DescriptorRefPayload, error) {
	if len(b) < 4 {
		return DescriptorRefPayload{}, fmt.Errorf("wire: short descriptor-ref payload")
	}
	return DescriptorRefPayload{
		DescriptorType:  binary.BigEndian.Uint16(b[0:2]),
		DescriptorIndex: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// ReadDescriptorRequest is the payload of a READ_DESCRIPTOR command.
type ReadDescriptorRequest struct {
	ConfigurationIndex uint16
	DescriptorType     uint16
	DescriptorIndex    uint16
}

func (r ReadDescriptorRequest) Encode() []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint16(buf[0:2], r.ConfigurationIndex)
	binary.BigEndian.PutUint16(buf[2:4], r.DescriptorType)
	binary.BigEndian.PutUint16(buf[4:6], r.DescriptorIndex)
	return buf
}

func DecodeReadDescriptorRequest(b []byte) (ReadDescriptorRequest, error) {
	if len(b) < 6 {
		return ReadDescriptorRequest{}, fmt.Errorf("wire: short READ_DESCRIPTOR request")
	}
	return ReadDescriptorRequest{
		ConfigurationIndex: binary.BigEndian.Uint16(b[0:2]),
		DescriptorType:     binary.BigEndian.Uint16(b[2:4]),
		DescriptorIndex:    binary.BigEndian.Uint16(b[4:6]),
	}, nil
}

// NamePayload is the shared shape of GET_NAME / SET_NAME command bodies:
// the target descriptor, a name index (some descriptors expose more
// than one name slot) and, for SET_NAME, the new value.
type NamePayload struct {
	DescriptorType     uint16
	DescriptorIndex    uint16
	NameIndex          uint16
	ConfigurationIndex uint16
	Name               [64]byte
}

func (n NamePayload) Encode() []byte {
	buf := make([]byte, 8+64)
	binary.BigEndian.PutUint16(buf[0:2], n.DescriptorType)
	binary.BigEndian.PutUint16(buf[2:4], n.DescriptorIndex)
	binary.BigEndian.PutUint16(buf[4:6], n.NameIndex)
	binary.BigEndian.PutUint16(buf[6:8], n.ConfigurationIndex)
	copy(buf[8:], n.Name[:])
	return buf
}

func DecodeNamePayload(b []byte) (NamePayload, error) {
	if len(b) < 8+64 {
		return NamePayload{}, fmt.Errorf("wire: short name payload")
	}
	var n NamePayload
	n.DescriptorType = binary.BigEndian.Uint16(b[0:2])
	n.DescriptorIndex = binary.BigEndian.Uint16(b[2:4])
	n.NameIndex = binary.BigEndian.Uint16(b[4:6])
	n.ConfigurationIndex = binary.BigEndian.Uint16(b[6:8])
	copy(n.Name[:], b[8:8+64])
	return n, nil
}

// StreamFormatPayload is the shared shape of GET/SET_STREAM_FORMAT.
type StreamFormatPayload struct {
	DescriptorType  uint16
	DescriptorIndex uint16
	StreamFormat    uint64
}

func (p StreamFormatPayload) Encode() []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[0:2], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	binary.BigEndian.PutUint64(buf[4:12], p.StreamFormat)
	return buf
}

func DecodeStreamFormatPayload(b []byte) (StreamFormatPayload, error) {
	if len(b) < 12 {
		return StreamFormatPayload{}, fmt.Errorf("wire: short stream format payload")
	}
	return StreamFormatPayload{
		DescriptorType:  binary.BigEndian.Uint16(b[0:2]),
		DescriptorIndex: binary.BigEndian.Uint16(b[2:4]),
		StreamFormat:    binary.BigEndian.Uint64(b[4:12]),
	}, nil
}

// ConfigurationPayload is the payload of GET/SET_CONFIGURATION.
type ConfigurationPayload struct {
	ConfigurationIndex uint16
}

func (p ConfigurationPayload) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[2:4], p.ConfigurationIndex)
	return buf
}

func DecodeConfigurationPayload(b []byte) (ConfigurationPayload, error) {
	if len(b) < 4 {
		return ConfigurationPayload{}, fmt.Errorf("wire: short configuration payload")
	}
	return ConfigurationPayload{ConfigurationIndex: binary.BigEndian.Uint16(b[2:4])}, nil
}

// SamplingRatePayload is the payload of GET/SET_SAMPLING_RATE.
type SamplingRatePayload struct {
	DescriptorType  uint16
	DescriptorIndex uint16
	SamplingRate    uint32
}

func (p SamplingRatePayload) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	binary.BigEndian.PutUint32(buf[4:8], p.SamplingRate)
	return buf
}

func DecodeSamplingRatePayload(b []byte) (SamplingRatePayload, error) {
	if len(b) < 8 {
		return SamplingRatePayload{}, fmt.Errorf("wire: short sampling rate payload")
	}
	return SamplingRatePayload{
		DescriptorType:  binary.BigEndian.Uint16(b[0:2]),
		DescriptorIndex: binary.BigEndian.Uint16(b[2:4]),
		SamplingRate:    binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// ClockSourcePayload is the payload of GET/SET_CLOCK_SOURCE.
type ClockSourcePayload struct {
	DescriptorType    uint16
	DescriptorIndex   uint16
	ClockSourceIndex  uint16
}

func (p ClockSourcePayload) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	binary.BigEndian.PutUint16(buf[6:8], p.ClockSourceIndex)
	return buf
}

func DecodeClockSourcePayload(b []byte) (ClockSourcePayload, error) {
	if len(b) < 8 {
		return ClockSourcePayload{}, fmt.Errorf("wire: short clock source payload")
	}
	return ClockSourcePayload{
		DescriptorType:   binary.BigEndian.Uint16(b[0:2]),
		DescriptorIndex:  binary.BigEndian.Uint16(b[2:4]),
		ClockSourceIndex: binary.BigEndian.Uint16(b[6:8]),
	}, nil
}

// AudioMapPayload is the payload of GET_AUDIO_MAP responses: one page
// of the mapping table, paginated by MapIndex.
type AudioMapPayload struct {
	DescriptorType  uint16
	DescriptorIndex uint16
	MapIndex        uint16
	NumberOfMaps    uint16
	NumberOfMappings uint16
	Mappings        []AudioMapEntry
}

// AudioMapEntry is one {stream_index, stream_channel, cluster_offset, cluster_channel} quadruple.
type AudioMapEntry struct {
	StreamIndex    uint16
	StreamChannel  uint16
	ClusterOffset  uint16
	ClusterChannel uint16
}

func (p AudioMapPayload) Encode() []byte {
	buf := make([]byte, 12+8*len(p.Mappings))
	binary.BigEndian.PutUint16(buf[0:2], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	binary.BigEndian.PutUint16(buf[4:6], p.MapIndex)
	binary.BigEndian.PutUint16(buf[6:8], p.NumberOfMaps)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(p.Mappings)))
	off := 12
	for _, m := range p.Mappings {
		binary.BigEndian.PutUint16(buf[off:off+2], m.StreamIndex)
		binary.BigEndian.PutUint16(buf[off+2:off+4], m.StreamChannel)
		binary.BigEndian.PutUint16(buf[off+4:off+6], m.ClusterOffset)
		binary.BigEndian.PutUint16(buf[off+6:off+8], m.ClusterChannel)
		off += 8
	}
	return buf
}

func DecodeAudioMapPayload(b []byte) (AudioMapPayload, error) {
	if len(b) < 12 {
		return AudioMapPayload{}, fmt.Errorf("wire: short audio map payload")
	}
	p := AudioMapPayload{
		DescriptorType:  binary.BigEndian.Uint16(b[0:2]),
		DescriptorIndex: binary.BigEndian.Uint16(b[2:4]),
		MapIndex:        binary.BigEndian.Uint16(b[4:6]),
		NumberOfMaps:    binary.BigEndian.Uint16(b[6:8]),
	}
	count := int(binary.BigEndian.Uint16(b[8:10]))
	p.NumberOfMappings = uint16(count)
	off := 12
	for i := 0; i < count && off+8 <= len(b); i++ {
		p.Mappings = append(p.Mappings, AudioMapEntry{
			StreamIndex:    binary.BigEndian.Uint16(b[off : off+2]),
			StreamChannel:  binary.BigEndian.Uint16(b[off+2 : off+4]),
			ClusterOffset:  binary.BigEndian.Uint16(b[off+4 : off+6]),
			ClusterChannel: binary.BigEndian.Uint16(b[off+6 : off+8]),
		})
		off += 8
	}
	return p, nil
}

// MemoryObjectLengthPayload is the payload of GET/SET_MEMORY_OBJECT_LENGTH.
type MemoryObjectLengthPayload struct {
	ConfigurationIndex uint16
	DescriptorIndex    uint16
	Length             uint64
}

func (p MemoryObjectLengthPayload) Encode() []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[0:2], p.ConfigurationIndex)
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	binary.BigEndian.PutUint64(buf[4:12], p.Length)
	return buf
}

func DecodeMemoryObjectLengthPayload(b []byte) (MemoryObjectLengthPayload, error) {
	if len(b) < 12 {
		return MemoryObjectLengthPayload{}, fmt.Errorf("wire: short memory object length payload")
	}
	return MemoryObjectLengthPayload{
		ConfigurationIndex: binary.BigEndian.Uint16(b[0:2]),
		DescriptorIndex:    binary.BigEndian.Uint16(b[2:4]),
		Length:             binary.BigEndian.Uint64(b[4:12]),
	}, nil
}

// StreamInfoFlags is the stream_info_flags field of a GET_STREAM_INFO
// response. Only the bit this module reads is named.
type StreamInfoFlags uint32

const (
	// StreamInfoActive marks the stream as currently streaming, per
	// IEEE 1722.1's ACTIVE bit on GET_STREAM_INFO.
	StreamInfoActive StreamInfoFlags = 1 << 6
)

// StreamInfoPayload is the response payload of GET_STREAM_INFO. Fields
// beyond flags/format/ID (MSRP reservation status, VLAN ID) are not
// meaningful to anything this module tracks and are left undecoded.
type StreamInfoPayload struct {
	DescriptorType  uint16
	DescriptorIndex uint16
	Flags           StreamInfoFlags
	StreamFormat    uint64
	StreamID        uint64
}

func (p StreamInfoPayload) Encode() []byte {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint16(buf[0:2], p.DescriptorType)
	binary.BigEndian.PutUint16(buf[2:4], p.DescriptorIndex)
	binary.BigEndian.PutUint32(buf[4:8], uint32(p.Flags))
	binary.BigEndian.PutUint64(buf[8:16], p.StreamFormat)
	binary.BigEndian.PutUint64(buf[16:24], p.StreamID)
	return buf
}

func DecodeStreamInfoPayload(b []byte) (StreamInfoPayload, error) {
	if len(b) < 24 {
		return StreamInfoPayload{}, fmt.Errorf("wire: short stream info payload")
	}
	return StreamInfoPayload{
		DescriptorType:  binary.BigEndian.Uint16(b[0:2]),
		DescriptorIndex: binary.BigEndian.Uint16(b[2:4]),
		Flags:           StreamInfoFlags(binary.BigEndian.Uint32(b[4:8])),
		StreamFormat:    binary.BigEndian.Uint64(b[8:16]),
		StreamID:        binary.BigEndian.Uint64(b[16:24]),
	}, nil
}
