package entitymodel

// EntityDescriptor is the top-level descriptor (DescriptorEntity, index 0).
type EntityDescriptor struct {
	EntityID              UniqueIdentifier
	EntityModelID         UniqueIdentifier
	EntityCapabilities    uint32
	TalkerStreamSources    uint16
	TalkerCapabilities     uint16
	ListenerStreamSinks    uint16
	ListenerCapabilities   uint16
	ControllerCapabilities uint32
	AvailableIndex         uint32
	AssociationID          UniqueIdentifier
	EntityName             AvdeccFixedString
	FirmwareVersion        AvdeccFixedString
	GroupName              AvdeccFixedString
	SerialNumber           AvdeccFixedString
	ConfigurationsCount    uint16
	CurrentConfiguration   DescriptorIndex
}

// ConfigurationDescriptor lists how many of each child descriptor type a
// configuration contains, and the set of descriptor counts keyed by type.
type ConfigurationDescriptor struct {
	ObjectName     AvdeccFixedString
	DescriptorCounts map[DescriptorType]uint16
}

// AudioUnitDescriptor describes a clocked group of audio streams.
type AudioUnitDescriptor struct {
	ObjectName           AvdeccFixedString
	ClockDomainIndex     DescriptorIndex
	NumberOfStreamInputPorts  uint16
	BaseStreamInputPort       DescriptorIndex
	NumberOfStreamOutputPorts uint16
	BaseStreamOutputPort      DescriptorIndex
	SamplingRates         []uint32 // available sampling rates, Hz
}

// StreamDescriptor is shared shape for StreamInput and StreamOutput descriptors.
type StreamDescriptor struct {
	ObjectName        AvdeccFixedString
	ClockDomainIndex  DescriptorIndex
	StreamFlags       uint16
	CurrentFormat     uint64 // AVDECC stream format field, opaque to this layer
	Formats           []uint64
	AvbInterfaceIndex DescriptorIndex
}

// JackDescriptor is shared shape for JackInput and JackOutput descriptors.
type JackDescriptor struct {
	ObjectName AvdeccFixedString
	JackFlags  uint16
	JackType   uint16
}

// AvbInterfaceDescriptor describes a network interface used for AVB traffic.
type AvbInterfaceDescriptor struct {
	ObjectName     AvdeccFixedString
	MacAddress     MacAddress
	InterfaceFlags uint16
	ClockIdentity  UniqueIdentifier
	Priority1      uint8
	ClockClass     uint8
	PortNumber     uint16
}

// ClockSourceDescriptor describes a selectable clock reference.
type ClockSourceDescriptor struct {
	ObjectName           AvdeccFixedString
	ClockSourceFlags     uint16
	ClockSourceType      uint16
	ClockSourceLocationType  DescriptorType
	ClockSourceLocationIndex DescriptorIndex
}

// MemoryObjectDescriptor describes an addressable firmware/image blob.
type MemoryObjectDescriptor struct {
	ObjectName       AvdeccFixedString
	MemoryObjectType uint16
	StartAddress     uint64
	MaximumLength    uint64
}

// LocaleDescriptor names a language/region locale and its strings range.
type LocaleDescriptor struct {
	LocaleID        string
	BaseStringsIndex DescriptorIndex
	NumberOfStringsDescriptors uint16
}

// StringsDescriptor holds up to 7 localized strings.
type StringsDescriptor struct {
	Strings [7]AvdeccFixedString
}

// StreamPortDescriptor is shared shape for StreamPortInput/StreamPortOutput.
type StreamPortDescriptor struct {
	ClockDomainIndex      DescriptorIndex
	PortFlags             uint16
	NumberOfClusters      uint16
	BaseCluster           DescriptorIndex
	NumberOfMaps          uint16
	BaseMap               DescriptorIndex
}

// AudioClusterDescriptor describes a group of audio channels within a stream port.
type AudioClusterDescriptor struct {
	ObjectName     AvdeccFixedString
	SignalType     DescriptorType
	SignalIndex    DescriptorIndex
	PathLatency    uint32
	ChannelCount   uint16
	Format         uint8
}

// AudioMapDescriptor is the static placeholder for a mapping page; the
// actual mapping entries belong to the dynamic model, fetched per page.
type AudioMapDescriptor struct {
	NumberOfMappings uint16
}

// ClockDomainDescriptor describes a synchronization domain and its selectable sources.
type ClockDomainDescriptor struct {
	ObjectName        AvdeccFixedString
	ClockSources      []DescriptorIndex
}
