package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
)

func TestCommonHeaderRoundTrip(t *testing.T) {
	hdr := CommonHeader{
		Subtype:           SubtypeAECP,
		Version:           0,
		MessageType:       1,
		StatusOrValidTime: 7,
		ControlDataLength: 0x321,
	}
	enc := hdr.Encode()
	got, err := DecodeCommonHeader(enc[:])
	require.NoError(t, err)
	assert.Equal(t, hdr, got)
}

func TestDecodeCommonHeaderShort(t *testing.T) {
	_, err := DecodeCommonHeader([]byte{0x7A, 0x00})
	assert.Error(t, err)
}

func TestADPRoundTrip(t *testing.T) {
	pdu := ADPPDU{
		MessageType:            ADPEntityAvailable,
		ValidTime:              30,
		EntityID:               0x0011223344556677,
		EntityModelID:          0x8899AABBCCDDEEFF,
		EntityCapabilities:     0x00000001,
		TalkerStreamSources:    2,
		TalkerCapabilities:     0x4001,
		ListenerStreamSinks:    3,
		ListenerCapabilities:   0x4001,
		ControllerCapabilities: 0x00000001,
		AvailableIndex:         42,
		GptpGrandmasterID:      0x0102030405060708,
		GptpDomainNumber:       1,
		IdentifyControlIndex:   5,
		InterfaceIndex:         0,
		AssociationID:          0,
	}
	enc := pdu.Encode()
	assert.Equal(t, headerSize+adpBodySize, len(enc))

	got, err := DecodeADP(enc)
	require.NoError(t, err)
	assert.Equal(t, pdu, got)
}

func TestDecodeADPWrongSubtype(t *testing.T) {
	frame := ACMPFrame{MessageType: ACMPConnectRXCommand}.Encode()
	_, err := DecodeADP(frame)
	assert.Error(t, err)
}

func TestDecodeADPShort(t *testing.T) {
	hdr := CommonHeader{Subtype: SubtypeADP, ControlDataLength: adpBodySize}
	enc := hdr.Encode()
	_, err := DecodeADP(enc[:])
	assert.Error(t, err)
}

func TestAECPRoundTrip(t *testing.T) {
	payload := NamePayload{
		DescriptorType:  2,
		DescriptorIndex: 0,
		NameIndex:       0,
		Name:            [64]byte{'s', 't', 'r', 'e', 'a', 'm'},
	}.Encode()

	frame := AECPFrame{
		MessageType:        AECPAEMCommand,
		Status:              uint8(avdeccstatus.AEMSuccess),
		TargetEntityID:       0x0011223344556677,
		ControllerEntityID:   0xAABBCCDDEEFF0011,
		SequenceID:           17,
		CommandType:          AECPSetName,
		Payload:              payload,
	}
	enc := frame.Encode()

	got, err := DecodeAECP(enc)
	require.NoError(t, err)
	assert.Equal(t, frame.MessageType, got.MessageType)
	assert.Equal(t, frame.Status, got.Status)
	assert.Equal(t, frame.TargetEntityID, got.TargetEntityID)
	assert.Equal(t, frame.ControllerEntityID, got.ControllerEntityID)
	assert.Equal(t, frame.SequenceID, got.SequenceID)
	assert.Equal(t, frame.CommandType, got.CommandType)
	assert.Equal(t, frame.Payload, got.Payload)

	decodedPayload, err := DecodeNamePayload(got.Payload)
	require.NoError(t, err)
	assert.Equal(t, "stream", stringifyFixed(decodedPayload.Name))
}

// stringifyFixed stringifies a raw [64]byte name buffer up to the first
// NUL, mirroring AvdeccFixedString semantics.
func stringifyFixed(b [64]byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b[:])
}

func TestDecodeAECPInconsistentLength(t *testing.T) {
	frame := AECPFrame{
		MessageType:    AECPAEMCommand,
		CommandType:    AECPGetName,
		TargetEntityID: 1,
	}
	enc := frame.Encode()
	// Corrupt control_data_length to claim far more payload than present.
	enc[2] = 0x7F
	enc[3] = 0xFF
	_, err := DecodeAECP(enc)
	assert.Error(t, err)
}

func TestACMPRoundTrip(t *testing.T) {
	frame := ACMPFrame{
		MessageType:        ACMPConnectRXCommand,
		Status:              uint8(avdeccstatus.ACMPSuccess),
		StreamID:            0x1,
		ControllerEntityID:  0x2,
		TalkerEntityID:      0x3,
		ListenerEntityID:    0x4,
		TalkerUniqueID:      5,
		ListenerUniqueID:    6,
		StreamDestMAC:       [6]byte{0x91, 0xE0, 0xF0, 0x00, 0x01, 0x02},
		ConnectionCount:     1,
		SequenceID:          99,
		Flags:               0x0001,
		StreamVlanID:        2,
	}
	enc := frame.Encode()
	assert.Equal(t, headerSize+acmpBodySize+6, len(enc))

	got, err := DecodeACMP(enc)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestDecodeACMPWrongSubtype(t *testing.T) {
	hdr := CommonHeader{Subtype: SubtypeADP}
	enc := hdr.Encode()
	_, err := DecodeACMP(enc[:])
	assert.Error(t, err)
}

func TestAEMStatusWireMapping(t *testing.T) {
	for _, s := range []avdeccstatus.AEMStatus{
		avdeccstatus.AEMSuccess,
		avdeccstatus.AEMNoSuchDescriptor,
		avdeccstatus.AEMAcquiredByOther,
		avdeccstatus.AEMStreamIsRunning,
	} {
		b := AEMStatusToWire(s)
		assert.Equal(t, s, AEMStatusFromWire(b))
	}

	assert.Equal(t, avdeccstatus.AEMInternalError, AEMStatusFromWire(0xFE))
	assert.Equal(t, uint8(0xFF), AEMStatusToWire(avdeccstatus.AEMTimedOut))
}

func TestACMPStatusWireMapping(t *testing.T) {
	for _, s := range []avdeccstatus.ACMPStatus{
		avdeccstatus.ACMPSuccess,
		avdeccstatus.ACMPTalkerUnknownID,
		avdeccstatus.ACMPNotConnected,
		avdeccstatus.ACMPCouldNotSendMessage,
	} {
		b := ACMPStatusToWire(s)
		assert.Equal(t, s, ACMPStatusFromWire(b))
	}

	assert.Equal(t, avdeccstatus.ACMPInternalError, ACMPStatusFromWire(0xFE))
	assert.Equal(t, uint8(0xFF), ACMPStatusToWire(avdeccstatus.ACMPTimedOut))
}

func TestPayloadRoundTrips(t *testing.T) {
	rd := ReadDescriptorRequest{ConfigurationIndex: 0, DescriptorType: 3, DescriptorIndex: 1}
	gotRD, err := DecodeReadDescriptorRequest(rd.Encode())
	require.NoError(t, err)
	assert.Equal(t, rd, gotRD)

	sf := StreamFormatPayload{DescriptorType: 5, DescriptorIndex: 0, StreamFormat: 0x0205021002006001}
	gotSF, err := DecodeStreamFormatPayload(sf.Encode())
	require.NoError(t, err)
	assert.Equal(t, sf, gotSF)

	cfg := ConfigurationPayload{ConfigurationIndex: 1}
	gotCfg, err := DecodeConfigurationPayload(cfg.Encode())
	require.NoError(t, err)
	assert.Equal(t, cfg, gotCfg)

	sr := SamplingRatePayload{DescriptorType: 1, DescriptorIndex: 0, SamplingRate: 0x02000000}
	gotSR, err := DecodeSamplingRatePayload(sr.Encode())
	require.NoError(t, err)
	assert.Equal(t, sr, gotSR)

	cs := ClockSourcePayload{DescriptorType: 0x24, DescriptorIndex: 0, ClockSourceIndex: 2}
	gotCS, err := DecodeClockSourcePayload(cs.Encode())
	require.NoError(t, err)
	assert.Equal(t, cs, gotCS)

	am := AudioMapPayload{
		DescriptorType:  0x06,
		DescriptorIndex: 0,
		MapIndex:        0,
		NumberOfMaps:    1,
		Mappings: []AudioMapEntry{
			{StreamIndex: 0, StreamChannel: 0, ClusterOffset: 0, ClusterChannel: 0},
			{StreamIndex: 0, StreamChannel: 1, ClusterOffset: 1, ClusterChannel: 0},
		},
	}
	gotAM, err := DecodeAudioMapPayload(am.Encode())
	require.NoError(t, err)
	assert.Equal(t, am.DescriptorType, gotAM.DescriptorType)
	assert.Equal(t, am.Mappings, gotAM.Mappings)

	mol := MemoryObjectLengthPayload{ConfigurationIndex: 0, DescriptorIndex: 2, Length: 1024}
	gotMOL, err := DecodeMemoryObjectLengthPayload(mol.Encode())
	require.NoError(t, err)
	assert.Equal(t, mol, gotMOL)
}

func TestPayloadDecodeShort(t *testing.T) {
	_, err := DecodeReadDescriptorRequest([]byte{0x01})
	assert.Error(t, err)
	_, err = DecodeNamePayload([]byte{0x01, 0x02})
	assert.Error(t, err)
	_, err = DecodeStreamFormatPayload(nil)
	assert.Error(t, err)
	_, err = DecodeConfigurationPayload([]byte{0x01})
	assert.Error(t, err)
	_, err = DecodeSamplingRatePayload([]byte{0x01})
	assert.Error(t, err)
	_, err = DecodeClockSourcePayload([]byte{0x01})
	assert.Error(t, err)
	_, err = DecodeAudioMapPayload([]byte{0x01})
	assert.Error(t, err)
	_, err = DecodeMemoryObjectLengthPayload([]byte{0x01})
	assert.Error(t, err)
}
