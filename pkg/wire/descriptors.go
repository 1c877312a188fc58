package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
)

func putFixedString(b []byte, s entitymodel.AvdeccFixedString) {
	copy(b, s[:])
}

func getFixedString(b []byte) entitymodel.AvdeccFixedString {
	var s entitymodel.AvdeccFixedString
	copy(s[:], b)
	return s
}

func needLen(b []byte, n int, what string) error {
	if len(b) < n {
		return fmt.Errorf("wire: short %s, need %d bytes, got %d", what, n, len(b))
	}
	return nil
}

// EncodeEntityDescriptor serializes an EntityDescriptor READ_DESCRIPTOR response body.
func EncodeEntityDescriptor(d entitymodel.EntityDescriptor) []byte {
	b := make([]byte, 8+8+4+2+2+2+2+4+4+8+64*4+2+2)
	off := 0
	binary.BigEndian.PutUint64(b[off:], uint64(d.EntityID))
	off += 8
	binary.BigEndian.PutUint64(b[off:], uint64(d.EntityModelID))
	off += 8
	binary.BigEndian.PutUint32(b[off:], d.EntityCapabilities)
	off += 4
	binary.BigEndian.PutUint16(b[off:], d.TalkerStreamSources)
	off += 2
	binary.BigEndian.PutUint16(b[off:], d.TalkerCapabilities)
	off += 2
	binary.BigEndian.PutUint16(b[off:], d.ListenerStreamSinks)
	off += 2
	binary.BigEndian.PutUint16(b[off:], d.ListenerCapabilities)
	off += 2
	binary.BigEndian.PutUint32(b[off:], d.ControllerCapabilities)
	off += 4
	binary.BigEndian.PutUint32(b[off:], d.AvailableIndex)
	off += 4
	binary.BigEndian.PutUint64(b[off:], uint64(d.AssociationID))
	off += 8
	putFixedString(b[off:off+64], d.EntityName)
	off += 64
	putFixedString(b[off:off+64], d.FirmwareVersion)
	off += 64
	putFixedString(b[off:off+64], d.GroupName)
	off += 64
	putFixedString(b[off:off+64], d.SerialNumber)
	off += 64
	binary.BigEndian.PutUint16(b[off:], d.ConfigurationsCount)
	off += 2
	binary.BigEndian.PutUint16(b[off:], uint16(d.CurrentConfiguration))
	return b
}

// DecodeEntityDescriptor parses an EntityDescriptor READ_DESCRIPTOR response body.
func DecodeEntityDescriptor(b []byte) (entitymodel.EntityDescriptor, error) {
	const size = 8 + 8 + 4 + 2 + 2 + 2 + 2 + 4 + 4 + 8 + 64*4 + 2 + 2
	if err := needLen(b, size, "EntityDescriptor"); err != nil {
		return entitymodel.EntityDescriptor{}, err
	}
	var d entitymodel.EntityDescriptor
	off := 0
	d.EntityID = entitymodel.UniqueIdentifier(binary.BigEndian.Uint64(b[off:]))
	off += 8
	d.EntityModelID = entitymodel.UniqueIdentifier(binary.BigEndian.Uint64(b[off:]))
	off += 8
	d.EntityCapabilities = binary.BigEndian.Uint32(b[off:])
	off += 4
	d.TalkerStreamSources = binary.BigEndian.Uint16(b[off:])
	off += 2
	d.TalkerCapabilities = binary.BigEndian.Uint16(b[off:])
	off += 2
	d.ListenerStreamSinks = binary.BigEndian.Uint16(b[off:])
	off += 2
	d.ListenerCapabilities = binary.BigEndian.Uint16(b[off:])
	off += 2
	d.ControllerCapabilities = binary.BigEndian.Uint32(b[off:])
	off += 4
	d.AvailableIndex = binary.BigEndian.Uint32(b[off:])
	off += 4
	d.AssociationID = entitymodel.UniqueIdentifier(binary.BigEndian.Uint64(b[off:]))
	off += 8
	d.EntityName = getFixedString(b[off : off+64])
	off += 64
	d.FirmwareVersion = getFixedString(b[off : off+64])
	off += 64
	d.GroupName = getFixedString(b[off : off+64])
	off += 64
	d.SerialNumber = getFixedString(b[off : off+64])
	off += 64
	d.ConfigurationsCount = binary.BigEndian.Uint16(b[off:])
	off += 2
	d.CurrentConfiguration = entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[off:]))
	return d, nil
}

// EncodeConfigurationDescriptor serializes a ConfigurationDescriptor.
// DescriptorCounts is written as a sorted-by-type count table so the
// encoding is deterministic.
func EncodeConfigurationDescriptor(d entitymodel.ConfigurationDescriptor) []byte {
	types := sortedDescriptorTypes(d.DescriptorCounts)
	b := make([]byte, 64+2+4*len(types))
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], uint16(len(types)))
	off := 66
	for _, t := range types {
		binary.BigEndian.PutUint16(b[off:off+2], uint16(t))
		binary.BigEndian.PutUint16(b[off+2:off+4], d.DescriptorCounts[t])
		off += 4
	}
	return b
}

func sortedDescriptorTypes(m map[entitymodel.DescriptorType]uint16) []entitymodel.DescriptorType {
	types := make([]entitymodel.DescriptorType, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	for i := 1; i < len(types); i++ {
		for j := i; j > 0 && types[j-1] > types[j]; j-- {
			types[j-1], types[j] = types[j], types[j-1]
		}
	}
	return types
}

// DecodeConfigurationDescriptor parses a ConfigurationDescriptor.
func DecodeConfigurationDescriptor(b []byte) (entitymodel.ConfigurationDescriptor, error) {
	if err := needLen(b, 66, "ConfigurationDescriptor"); err != nil {
		return entitymodel.ConfigurationDescriptor{}, err
	}
	d := entitymodel.ConfigurationDescriptor{
		ObjectName:       getFixedString(b[0:64]),
		DescriptorCounts: make(map[entitymodel.DescriptorType]uint16),
	}
	count := int(binary.BigEndian.Uint16(b[64:66]))
	off := 66
	for i := 0; i < count; i++ {
		if err := needLen(b[off:], 4, "ConfigurationDescriptor count entry"); err != nil {
			return entitymodel.ConfigurationDescriptor{}, err
		}
		descType := entitymodel.DescriptorType(binary.BigEndian.Uint16(b[off : off+2]))
		d.DescriptorCounts[descType] = binary.BigEndian.Uint16(b[off+2 : off+4])
		off += 4
	}
	return d, nil
}

// EncodeAudioUnitDescriptor serializes an AudioUnitDescriptor.
func EncodeAudioUnitDescriptor(d entitymodel.AudioUnitDescriptor) []byte {
	b := make([]byte, 64+2+2+2+2+2+2+4*len(d.SamplingRates))
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], uint16(d.ClockDomainIndex))
	binary.BigEndian.PutUint16(b[66:68], d.NumberOfStreamInputPorts)
	binary.BigEndian.PutUint16(b[68:70], uint16(d.BaseStreamInputPort))
	binary.BigEndian.PutUint16(b[70:72], d.NumberOfStreamOutputPorts)
	binary.BigEndian.PutUint16(b[72:74], uint16(d.BaseStreamOutputPort))
	binary.BigEndian.PutUint16(b[74:76], uint16(len(d.SamplingRates)))
	off := 76
	for _, r := range d.SamplingRates {
		binary.BigEndian.PutUint32(b[off:off+4], r)
		off += 4
	}
	return b
}

// DecodeAudioUnitDescriptor parses an AudioUnitDescriptor.
func DecodeAudioUnitDescriptor(b []byte) (entitymodel.AudioUnitDescriptor, error) {
	if err := needLen(b, 76, "AudioUnitDescriptor"); err != nil {
		return entitymodel.AudioUnitDescriptor{}, err
	}
	d := entitymodel.AudioUnitDescriptor{
		ObjectName:                getFixedString(b[0:64]),
		ClockDomainIndex:          entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[64:66])),
		NumberOfStreamInputPorts:  binary.BigEndian.Uint16(b[66:68]),
		BaseStreamInputPort:       entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[68:70])),
		NumberOfStreamOutputPorts: binary.BigEndian.Uint16(b[70:72]),
		BaseStreamOutputPort:      entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[72:74])),
	}
	count := int(binary.BigEndian.Uint16(b[74:76]))
	off := 76
	for i := 0; i < count && off+4 <= len(b); i++ {
		d.SamplingRates = append(d.SamplingRates, binary.BigEndian.Uint32(b[off:off+4]))
		off += 4
	}
	return d, nil
}

// EncodeStreamDescriptor serializes a StreamDescriptor (input or output).
func EncodeStreamDescriptor(d entitymodel.StreamDescriptor) []byte {
	b := make([]byte, 64+2+2+8+2+2+8*len(d.Formats))
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], uint16(d.ClockDomainIndex))
	binary.BigEndian.PutUint16(b[66:68], d.StreamFlags)
	binary.BigEndian.PutUint64(b[68:76], d.CurrentFormat)
	binary.BigEndian.PutUint16(b[76:78], uint16(d.AvbInterfaceIndex))
	binary.BigEndian.PutUint16(b[78:80], uint16(len(d.Formats)))
	off := 80
	for _, f := range d.Formats {
		binary.BigEndian.PutUint64(b[off:off+8], f)
		off += 8
	}
	return b
}

// DecodeStreamDescriptor parses a StreamDescriptor (input or output).
func DecodeStreamDescriptor(b []byte) (entitymodel.StreamDescriptor, error) {
	if err := needLen(b, 80, "StreamDescriptor"); err != nil {
		return entitymodel.StreamDescriptor{}, err
	}
	d := entitymodel.StreamDescriptor{
		ObjectName:        getFixedString(b[0:64]),
		ClockDomainIndex:  entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[64:66])),
		StreamFlags:       binary.BigEndian.Uint16(b[66:68]),
		CurrentFormat:     binary.BigEndian.Uint64(b[68:76]),
		AvbInterfaceIndex: entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[76:78])),
	}
	count := int(binary.BigEndian.Uint16(b[78:80]))
	off := 80
	for i := 0; i < count && off+8 <= len(b); i++ {
		d.Formats = append(d.Formats, binary.BigEndian.Uint64(b[off:off+8]))
		off += 8
	}
	return d, nil
}

// EncodeJackDescriptor serializes a JackDescriptor (input or output).
func EncodeJackDescriptor(d entitymodel.JackDescriptor) []byte {
	b := make([]byte, 64+2+2)
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], d.JackFlags)
	binary.BigEndian.PutUint16(b[66:68], d.JackType)
	return b
}

// DecodeJackDescriptor parses a JackDescriptor (input or output).
func DecodeJackDescriptor(b []byte) (entitymodel.JackDescriptor, error) {
	if err := needLen(b, 68, "JackDescriptor"); err != nil {
		return entitymodel.JackDescriptor{}, err
	}
	return entitymodel.JackDescriptor{
		ObjectName: getFixedString(b[0:64]),
		JackFlags:  binary.BigEndian.Uint16(b[64:66]),
		JackType:   binary.BigEndian.Uint16(b[66:68]),
	}, nil
}

// EncodeAvbInterfaceDescriptor serializes an AvbInterfaceDescriptor.
func EncodeAvbInterfaceDescriptor(d entitymodel.AvbInterfaceDescriptor) []byte {
	b := make([]byte, 64+6+2+8+1+1+2)
	putFixedString(b[0:64], d.ObjectName)
	copy(b[64:70], d.MacAddress[:])
	binary.BigEndian.PutUint16(b[70:72], d.InterfaceFlags)
	binary.BigEndian.PutUint64(b[72:80], uint64(d.ClockIdentity))
	b[80] = d.Priority1
	b[81] = d.ClockClass
	binary.BigEndian.PutUint16(b[82:84], d.PortNumber)
	return b
}

// DecodeAvbInterfaceDescriptor parses an AvbInterfaceDescriptor.
func DecodeAvbInterfaceDescriptor(b []byte) (entitymodel.AvbInterfaceDescriptor, error) {
	if err := needLen(b, 84, "AvbInterfaceDescriptor"); err != nil {
		return entitymodel.AvbInterfaceDescriptor{}, err
	}
	d := entitymodel.AvbInterfaceDescriptor{
		ObjectName:     getFixedString(b[0:64]),
		InterfaceFlags: binary.BigEndian.Uint16(b[70:72]),
		ClockIdentity:  entitymodel.UniqueIdentifier(binary.BigEndian.Uint64(b[72:80])),
		Priority1:      b[80],
		ClockClass:     b[81],
		PortNumber:     binary.BigEndian.Uint16(b[82:84]),
	}
	copy(d.MacAddress[:], b[64:70])
	return d, nil
}

// EncodeClockSourceDescriptor serializes a ClockSourceDescriptor.
func EncodeClockSourceDescriptor(d entitymodel.ClockSourceDescriptor) []byte {
	b := make([]byte, 64+2+2+2+2)
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], d.ClockSourceFlags)
	binary.BigEndian.PutUint16(b[66:68], d.ClockSourceType)
	binary.BigEndian.PutUint16(b[68:70], uint16(d.ClockSourceLocationType))
	binary.BigEndian.PutUint16(b[70:72], uint16(d.ClockSourceLocationIndex))
	return b
}

// DecodeClockSourceDescriptor parses a ClockSourceDescriptor.
func DecodeClockSourceDescriptor(b []byte) (entitymodel.ClockSourceDescriptor, error) {
	if err := needLen(b, 72, "ClockSourceDescriptor"); err != nil {
		return entitymodel.ClockSourceDescriptor{}, err
	}
	return entitymodel.ClockSourceDescriptor{
		ObjectName:               getFixedString(b[0:64]),
		ClockSourceFlags:         binary.BigEndian.Uint16(b[64:66]),
		ClockSourceType:          binary.BigEndian.Uint16(b[66:68]),
		ClockSourceLocationType:  entitymodel.DescriptorType(binary.BigEndian.Uint16(b[68:70])),
		ClockSourceLocationIndex: entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[70:72])),
	}, nil
}

// EncodeMemoryObjectDescriptor serializes a MemoryObjectDescriptor.
func EncodeMemoryObjectDescriptor(d entitymodel.MemoryObjectDescriptor) []byte {
	b := make([]byte, 64+2+8+8)
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], d.MemoryObjectType)
	binary.BigEndian.PutUint64(b[66:74], d.StartAddress)
	binary.BigEndian.PutUint64(b[74:82], d.MaximumLength)
	return b
}

// DecodeMemoryObjectDescriptor parses a MemoryObjectDescriptor.
func DecodeMemoryObjectDescriptor(b []byte) (entitymodel.MemoryObjectDescriptor, error) {
	if err := needLen(b, 82, "MemoryObjectDescriptor"); err != nil {
		return entitymodel.MemoryObjectDescriptor{}, err
	}
	return entitymodel.MemoryObjectDescriptor{
		ObjectName:       getFixedString(b[0:64]),
		MemoryObjectType: binary.BigEndian.Uint16(b[64:66]),
		StartAddress:     binary.BigEndian.Uint64(b[66:74]),
		MaximumLength:    binary.BigEndian.Uint64(b[74:82]),
	}, nil
}

// EncodeLocaleDescriptor serializes a LocaleDescriptor.
func EncodeLocaleDescriptor(d entitymodel.LocaleDescriptor) []byte {
	b := make([]byte, 64+2+2)
	putFixedString(b[0:64], entitymodel.NewAvdeccFixedString(d.LocaleID))
	binary.BigEndian.PutUint16(b[64:66], uint16(d.BaseStringsIndex))
	binary.BigEndian.PutUint16(b[66:68], d.NumberOfStringsDescriptors)
	return b
}

// DecodeLocaleDescriptor parses a LocaleDescriptor.
func DecodeLocaleDescriptor(b []byte) (entitymodel.LocaleDescriptor, error) {
	if err := needLen(b, 68, "LocaleDescriptor"); err != nil {
		return entitymodel.LocaleDescriptor{}, err
	}
	return entitymodel.LocaleDescriptor{
		LocaleID:                   getFixedString(b[0:64]).String(),
		BaseStringsIndex:           entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[64:66])),
		NumberOfStringsDescriptors: binary.BigEndian.Uint16(b[66:68]),
	}, nil
}

// EncodeStringsDescriptor serializes a StringsDescriptor.
func EncodeStringsDescriptor(d entitymodel.StringsDescriptor) []byte {
	b := make([]byte, 64*7)
	for i, s := range d.Strings {
		putFixedString(b[i*64:(i+1)*64], s)
	}
	return b
}

// DecodeStringsDescriptor parses a StringsDescriptor.
func DecodeStringsDescriptor(b []byte) (entitymodel.StringsDescriptor, error) {
	if err := needLen(b, 64*7, "StringsDescriptor"); err != nil {
		return entitymodel.StringsDescriptor{}, err
	}
	var d entitymodel.StringsDescriptor
	for i := range d.Strings {
		d.Strings[i] = getFixedString(b[i*64 : (i+1)*64])
	}
	return d, nil
}

// EncodeStreamPortDescriptor serializes a StreamPortDescriptor (input or output).
func EncodeStreamPortDescriptor(d entitymodel.StreamPortDescriptor) []byte {
	b := make([]byte, 2+2+2+2+2+2)
	binary.BigEndian.PutUint16(b[0:2], uint16(d.ClockDomainIndex))
	binary.BigEndian.PutUint16(b[2:4], d.PortFlags)
	binary.BigEndian.PutUint16(b[4:6], d.NumberOfClusters)
	binary.BigEndian.PutUint16(b[6:8], uint16(d.BaseCluster))
	binary.BigEndian.PutUint16(b[8:10], d.NumberOfMaps)
	binary.BigEndian.PutUint16(b[10:12], uint16(d.BaseMap))
	return b
}

// DecodeStreamPortDescriptor parses a StreamPortDescriptor (input or output).
func DecodeStreamPortDescriptor(b []byte) (entitymodel.StreamPortDescriptor, error) {
	if err := needLen(b, 12, "StreamPortDescriptor"); err != nil {
		return entitymodel.StreamPortDescriptor{}, err
	}
	return entitymodel.StreamPortDescriptor{
		ClockDomainIndex: entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[0:2])),
		PortFlags:        binary.BigEndian.Uint16(b[2:4]),
		NumberOfClusters: binary.BigEndian.Uint16(b[4:6]),
		BaseCluster:      entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[6:8])),
		NumberOfMaps:     binary.BigEndian.Uint16(b[8:10]),
		BaseMap:          entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[10:12])),
	}, nil
}

// EncodeAudioClusterDescriptor serializes an AudioClusterDescriptor.
func EncodeAudioClusterDescriptor(d entitymodel.AudioClusterDescriptor) []byte {
	b := make([]byte, 64+2+2+4+2+1)
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], uint16(d.SignalType))
	binary.BigEndian.PutUint16(b[66:68], uint16(d.SignalIndex))
	binary.BigEndian.PutUint32(b[68:72], d.PathLatency)
	binary.BigEndian.PutUint16(b[72:74], d.ChannelCount)
	b[74] = d.Format
	return b
}

// DecodeAudioClusterDescriptor parses an AudioClusterDescriptor.
func DecodeAudioClusterDescriptor(b []byte) (entitymodel.AudioClusterDescriptor, error) {
	if err := needLen(b, 75, "AudioClusterDescriptor"); err != nil {
		return entitymodel.AudioClusterDescriptor{}, err
	}
	return entitymodel.AudioClusterDescriptor{
		ObjectName:   getFixedString(b[0:64]),
		SignalType:   entitymodel.DescriptorType(binary.BigEndian.Uint16(b[64:66])),
		SignalIndex:  entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[66:68])),
		PathLatency:  binary.BigEndian.Uint32(b[68:72]),
		ChannelCount: binary.BigEndian.Uint16(b[72:74]),
		Format:       b[74],
	}, nil
}

// EncodeAudioMapDescriptor serializes the static AudioMapDescriptor placeholder.
func EncodeAudioMapDescriptor(d entitymodel.AudioMapDescriptor) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, d.NumberOfMappings)
	return b
}

// DecodeAudioMapDescriptor parses the static AudioMapDescriptor placeholder.
func DecodeAudioMapDescriptor(b []byte) (entitymodel.AudioMapDescriptor, error) {
	if err := needLen(b, 2, "AudioMapDescriptor"); err != nil {
		return entitymodel.AudioMapDescriptor{}, err
	}
	return entitymodel.AudioMapDescriptor{NumberOfMappings: binary.BigEndian.Uint16(b)}, nil
}

// EncodeClockDomainDescriptor serializes a ClockDomainDescriptor.
func EncodeClockDomainDescriptor(d entitymodel.ClockDomainDescriptor) []byte {
	b := make([]byte, 64+2+2*len(d.ClockSources))
	putFixedString(b[0:64], d.ObjectName)
	binary.BigEndian.PutUint16(b[64:66], uint16(len(d.ClockSources)))
	off := 66
	for _, s := range d.ClockSources {
		binary.BigEndian.PutUint16(b[off:off+2], uint16(s))
		off += 2
	}
	return b
}

// DecodeClockDomainDescriptor parses a ClockDomainDescriptor.
func DecodeClockDomainDescriptor(b []byte) (entitymodel.ClockDomainDescriptor, error) {
	if err := needLen(b, 66, "ClockDomainDescriptor"); err != nil {
		return entitymodel.ClockDomainDescriptor{}, err
	}
	d := entitymodel.ClockDomainDescriptor{ObjectName: getFixedString(b[0:64])}
	count := int(binary.BigEndian.Uint16(b[64:66]))
	off := 66
	for i := 0; i < count && off+2 <= len(b); i++ {
		d.ClockSources = append(d.ClockSources, entitymodel.DescriptorIndex(binary.BigEndian.Uint16(b[off:off+2])))
		off += 2
	}
	return d, nil
}
