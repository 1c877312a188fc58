package entitymodel

// DescriptorType identifies the kind of descriptor in the AEM tree.
// Values follow IEEE 1722.1 Clause 7.2.
type DescriptorType uint16

const (
	DescriptorEntity          DescriptorType = 0x0000
	DescriptorConfiguration   DescriptorType = 0x0001
	DescriptorAudioUnit       DescriptorType = 0x0002
	DescriptorStreamInput     DescriptorType = 0x0005
	DescriptorStreamOutput    DescriptorType = 0x0006
	DescriptorJackInput       DescriptorType = 0x0007
	DescriptorJackOutput      DescriptorType = 0x0008
	DescriptorAvbInterface    DescriptorType = 0x0009
	DescriptorClockSource     DescriptorType = 0x000A
	DescriptorMemoryObject    DescriptorType = 0x000B
	DescriptorLocale          DescriptorType = 0x000C
	DescriptorStrings         DescriptorType = 0x000D
	DescriptorStreamPortInput DescriptorType = 0x000E
	DescriptorStreamPortOutput DescriptorType = 0x000F
	DescriptorAudioCluster    DescriptorType = 0x0014
	DescriptorAudioMap        DescriptorType = 0x0017
	DescriptorClockDomain     DescriptorType = 0x0024
)

// String returns the descriptor type name, matching the IEEE 1722.1 mnemonic.
func (t DescriptorType) String() string {
	switch t {
	case DescriptorEntity:
		return "ENTITY"
	case DescriptorConfiguration:
		return "CONFIGURATION"
	case DescriptorAudioUnit:
		return "AUDIO_UNIT"
	case DescriptorStreamInput:
		return "STREAM_INPUT"
	case DescriptorStreamOutput:
		return "STREAM_OUTPUT"
	case DescriptorJackInput:
		return "JACK_INPUT"
	case DescriptorJackOutput:
		return "JACK_OUTPUT"
	case DescriptorAvbInterface:
		return "AVB_INTERFACE"
	case DescriptorClockSource:
		return "CLOCK_SOURCE"
	case DescriptorMemoryObject:
		return "MEMORY_OBJECT"
	case DescriptorLocale:
		return "LOCALE"
	case DescriptorStrings:
		return "STRINGS"
	case DescriptorStreamPortInput:
		return "STREAM_PORT_INPUT"
	case DescriptorStreamPortOutput:
		return "STREAM_PORT_OUTPUT"
	case DescriptorAudioCluster:
		return "AUDIO_CLUSTER"
	case DescriptorAudioMap:
		return "AUDIO_MAP"
	case DescriptorClockDomain:
		return "CLOCK_DOMAIN"
	default:
		return "UNKNOWN"
	}
}

// DescriptorIndex is the zero-based index of a descriptor within its type.
type DescriptorIndex uint16

// DescriptorKey uniquely addresses a descriptor within one configuration.
type DescriptorKey struct {
	Type  DescriptorType
	Index DescriptorIndex
}
