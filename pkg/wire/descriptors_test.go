package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
)

func TestEntityDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.EntityDescriptor{
		EntityID:               0x0011223344556677,
		EntityModelID:          0x8899AABBCCDDEEFF,
		EntityCapabilities:     1,
		TalkerStreamSources:    2,
		TalkerCapabilities:     3,
		ListenerStreamSinks:    4,
		ListenerCapabilities:   5,
		ControllerCapabilities: 6,
		AvailableIndex:         7,
		AssociationID:          8,
		EntityName:             entitymodel.NewAvdeccFixedString("talker"),
		FirmwareVersion:        entitymodel.NewAvdeccFixedString("1.0"),
		GroupName:              entitymodel.NewAvdeccFixedString("group"),
		SerialNumber:           entitymodel.NewAvdeccFixedString("SN1"),
		ConfigurationsCount:    1,
		CurrentConfiguration:   0,
	}
	got, err := DecodeEntityDescriptor(EncodeEntityDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDecodeEntityDescriptorShort(t *testing.T) {
	_, err := DecodeEntityDescriptor([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestConfigurationDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.ConfigurationDescriptor{
		ObjectName: entitymodel.NewAvdeccFixedString("default"),
		DescriptorCounts: map[entitymodel.DescriptorType]uint16{
			entitymodel.DescriptorType(1): 2,
			entitymodel.DescriptorType(3): 4,
		},
	}
	got, err := DecodeConfigurationDescriptor(EncodeConfigurationDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestAudioUnitDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.AudioUnitDescriptor{
		ObjectName:                entitymodel.NewAvdeccFixedString("unit0"),
		ClockDomainIndex:          1,
		NumberOfStreamInputPorts:  2,
		BaseStreamInputPort:       3,
		NumberOfStreamOutputPorts: 4,
		BaseStreamOutputPort:      5,
		SamplingRates:             []uint32{44100, 48000, 96000},
	}
	got, err := DecodeAudioUnitDescriptor(EncodeAudioUnitDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestStreamDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.StreamDescriptor{
		ObjectName:        entitymodel.NewAvdeccFixedString("stream0"),
		ClockDomainIndex:  1,
		StreamFlags:       2,
		CurrentFormat:     0x0203FFFF00000000,
		Formats:           []uint64{0x01, 0x02},
		AvbInterfaceIndex: 3,
	}
	got, err := DecodeStreamDescriptor(EncodeStreamDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestJackDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.JackDescriptor{
		ObjectName: entitymodel.NewAvdeccFixedString("jack0"),
		JackFlags:  1,
		JackType:   2,
	}
	got, err := DecodeJackDescriptor(EncodeJackDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestAvbInterfaceDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.AvbInterfaceDescriptor{
		ObjectName:     entitymodel.NewAvdeccFixedString("eth0"),
		MacAddress:     entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x01, 0x02, 0x03},
		InterfaceFlags: 1,
		ClockIdentity:  0xAABBCCDDEEFF0011,
		Priority1:      248,
		ClockClass:     6,
		PortNumber:     1,
	}
	got, err := DecodeAvbInterfaceDescriptor(EncodeAvbInterfaceDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestClockSourceDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.ClockSourceDescriptor{
		ObjectName:               entitymodel.NewAvdeccFixedString("clk0"),
		ClockSourceFlags:         1,
		ClockSourceType:          2,
		ClockSourceLocationType:  entitymodel.DescriptorType(5),
		ClockSourceLocationIndex: 0,
	}
	got, err := DecodeClockSourceDescriptor(EncodeClockSourceDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestMemoryObjectDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.MemoryObjectDescriptor{
		ObjectName:       entitymodel.NewAvdeccFixedString("firmware"),
		MemoryObjectType: 1,
		StartAddress:     0x1000,
		MaximumLength:    0x20000,
	}
	got, err := DecodeMemoryObjectDescriptor(EncodeMemoryObjectDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestLocaleDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.LocaleDescriptor{
		LocaleID:                   "en-US",
		BaseStringsIndex:           1,
		NumberOfStringsDescriptors: 2,
	}
	got, err := DecodeLocaleDescriptor(EncodeLocaleDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestStringsDescriptorRoundTrip(t *testing.T) {
	var d entitymodel.StringsDescriptor
	d.Strings[0] = entitymodel.NewAvdeccFixedString("hello")
	d.Strings[6] = entitymodel.NewAvdeccFixedString("world")
	got, err := DecodeStringsDescriptor(EncodeStringsDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestStreamPortDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.StreamPortDescriptor{
		ClockDomainIndex: 1,
		PortFlags:        2,
		NumberOfClusters: 3,
		BaseCluster:      4,
		NumberOfMaps:     5,
		BaseMap:          6,
	}
	got, err := DecodeStreamPortDescriptor(EncodeStreamPortDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestAudioClusterDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.AudioClusterDescriptor{
		ObjectName:   entitymodel.NewAvdeccFixedString("cluster0"),
		SignalType:   entitymodel.DescriptorType(1),
		SignalIndex:  2,
		PathLatency:  3,
		ChannelCount: 4,
		Format:       5,
	}
	got, err := DecodeAudioClusterDescriptor(EncodeAudioClusterDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestAudioMapDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.AudioMapDescriptor{NumberOfMappings: 9}
	got, err := DecodeAudioMapDescriptor(EncodeAudioMapDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestClockDomainDescriptorRoundTrip(t *testing.T) {
	d := entitymodel.ClockDomainDescriptor{
		ObjectName:   entitymodel.NewAvdeccFixedString("domain0"),
		ClockSources: []entitymodel.DescriptorIndex{0, 1, 2},
	}
	got, err := DecodeClockDomainDescriptor(EncodeClockDomainDescriptor(d))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDecodeDescriptorsShortBuffers(t *testing.T) {
	_, err := DecodeConfigurationDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeAudioUnitDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeStreamDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeJackDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeAvbInterfaceDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeClockSourceDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeMemoryObjectDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeLocaleDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeStringsDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeStreamPortDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeAudioClusterDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeAudioMapDescriptor(nil)
	assert.Error(t, err)
	_, err = DecodeClockDomainDescriptor(nil)
	assert.Error(t, err)
}
