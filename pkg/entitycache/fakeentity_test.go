package entitycache

import (
	"context"

	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/faketransport"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// fakeEntity answers AECP/ACMP commands addressed to entityID over a
// faketransport bus with a single configuration holding one audio unit,
// one stream input and one clock source, mirroring the shape used by
// pkg/enum's own fakeTransport but exercised through the real wire
// codec and a real Transport on the caller's side.
type fakeEntity struct {
	pi       protocolif.ProtocolInterface
	entityID uint64
}

func newFakeEntity(bus *faketransport.Bus, mac entitymodel.MacAddress, entityID uint64) *fakeEntity {
	f := &fakeEntity{pi: faketransport.New(bus, mac), entityID: entityID}
	f.pi.OnFrame(f.handleFrame)
	return f
}

func (f *fakeEntity) handleFrame(frame protocolif.Frame) {
	hdr, err := wire.DecodeCommonHeader(frame.Payload)
	if err != nil {
		return
	}
	switch hdr.Subtype {
	case wire.SubtypeAECP:
		f.handleAECP(frame.Payload)
	case wire.SubtypeACMP:
		f.handleACMP(frame.Payload)
	}
}

func (f *fakeEntity) handleAECP(payload []byte) {
	req, err := wire.DecodeAECP(payload)
	if err != nil || req.MessageType != wire.AECPAEMCommand || req.TargetEntityID != f.entityID {
		return
	}
	status, respPayload := f.respond(req)
	resp := wire.AECPFrame{
		MessageType:        wire.AECPAEMResponse,
		Status:             uint8(status),
		TargetEntityID:      req.TargetEntityID,
		ControllerEntityID:  req.ControllerEntityID,
		SequenceID:          req.SequenceID,
		CommandType:         req.CommandType,
		Payload:             respPayload,
	}
	_ = f.pi.Send(context.Background(), protocolif.AvdeccMulticastMAC, resp.Encode())
}

func (f *fakeEntity) respond(req wire.AECPFrame) (avdeccstatus.AEMStatus, []byte) {
	switch req.CommandType {
	case wire.AECPReadDescriptor:
		dreq, err := wire.DecodeReadDescriptorRequest(req.Payload)
		if err != nil {
			return avdeccstatus.AEMBadArguments, nil
		}
		return f.readDescriptor(entitymodel.DescriptorType(dreq.DescriptorType), entitymodel.DescriptorIndex(dreq.DescriptorIndex))
	case wire.AECPGetConfiguration:
		return avdeccstatus.AEMSuccess, wire.ConfigurationPayload{ConfigurationIndex: 0}.Encode()
	case wire.AECPGetName:
		return avdeccstatus.AEMSuccess, wire.NamePayload{Name: entitymodel.NewAvdeccFixedString("dyn-name")}.Encode()
	case wire.AECPGetStreamFormat:
		return avdeccstatus.AEMSuccess, wire.StreamFormatPayload{StreamFormat: 0xAABB}.Encode()
	case wire.AECPGetSamplingRate:
		return avdeccstatus.AEMSuccess, wire.SamplingRatePayload{SamplingRate: 48000}.Encode()
	case wire.AECPGetClockSource:
		return avdeccstatus.AEMSuccess, wire.ClockSourcePayload{}.Encode()
	case wire.AECPGetMemoryObjectLength:
		return avdeccstatus.AEMSuccess, wire.MemoryObjectLengthPayload{Length: 1024}.Encode()
	case wire.AECPGetAudioMap:
		p, _ := wire.DecodeAudioMapPayload(req.Payload)
		if p.MapIndex == 0 {
			return avdeccstatus.AEMSuccess, wire.AudioMapPayload{
				MapIndex:     0,
				NumberOfMaps: 1,
				Mappings:     []wire.AudioMapEntry{{StreamChannel: 0, ClusterOffset: 0, ClusterChannel: 0}},
			}.Encode()
		}
		return avdeccstatus.AEMSuccess, wire.AudioMapPayload{MapIndex: p.MapIndex, NumberOfMaps: 1}.Encode()
	default:
		return avdeccstatus.AEMNotImplemented, nil
	}
}

func (f *fakeEntity) readDescriptor(descType entitymodel.DescriptorType, index entitymodel.DescriptorIndex) (avdeccstatus.AEMStatus, []byte) {
	switch descType {
	case entitymodel.DescriptorEntity:
		return avdeccstatus.AEMSuccess, wire.EncodeEntityDescriptor(entitymodel.EntityDescriptor{
			EntityID:             entitymodel.UniqueIdentifier(f.entityID),
			EntityModelID:        entitymodel.UniqueIdentifier(0x001B21FFFE000001),
			ConfigurationsCount:  1,
			CurrentConfiguration: 0,
			EntityName:           entitymodel.NewAvdeccFixedString("fake-entity"),
		})
	case entitymodel.DescriptorConfiguration:
		return avdeccstatus.AEMSuccess, wire.EncodeConfigurationDescriptor(entitymodel.ConfigurationDescriptor{
			ObjectName: entitymodel.NewAvdeccFixedString("default"),
			DescriptorCounts: map[entitymodel.DescriptorType]uint16{
				entitymodel.DescriptorAudioUnit:   1,
				entitymodel.DescriptorStreamInput: 1,
				entitymodel.DescriptorClockSource: 1,
			},
		})
	case entitymodel.DescriptorAudioUnit:
		return avdeccstatus.AEMSuccess, wire.EncodeAudioUnitDescriptor(entitymodel.AudioUnitDescriptor{
			ObjectName: entitymodel.NewAvdeccFixedString("unit0"),
		})
	case entitymodel.DescriptorStreamInput:
		return avdeccstatus.AEMSuccess, wire.EncodeStreamDescriptor(entitymodel.StreamDescriptor{
			ObjectName: entitymodel.NewAvdeccFixedString("stream-in-0"),
		})
	case entitymodel.DescriptorClockSource:
		return avdeccstatus.AEMSuccess, wire.EncodeClockSourceDescriptor(entitymodel.ClockSourceDescriptor{
			ObjectName: entitymodel.NewAvdeccFixedString("clk0"),
		})
	default:
		return avdeccstatus.AEMNoSuchDescriptor, nil
	}
}

func (f *fakeEntity) handleACMP(payload []byte) {
	req, err := wire.DecodeACMP(payload)
	if err != nil || req.MessageType != wire.ACMPGetRXStateCommand || req.ListenerEntityID != f.entityID {
		return
	}
	resp := req
	resp.MessageType = wire.ACMPGetRXStateResponse
	resp.Status = 0 // ACMPSuccess
	resp.TalkerEntityID = 0
	_ = f.pi.Send(context.Background(), protocolif.AvdeccMulticastMAC, resp.Encode())
}
