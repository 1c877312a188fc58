package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i-n-g-o/avdecc/pkg/avdeccconfig"
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/discovery"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/observerbus"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/faketransport"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

const testEntityID = 0x001B210000000002

// fakeEntity answers AECP/ACMP commands addressed to entityID over a
// faketransport bus, holding one configuration with one audio unit,
// one stream input and one clock source. It also tracks acquire/lock
// ownership and a single listener connection, so the control
// operations exercised against it observe real state transitions
// rather than a fixed canned response.
type fakeEntity struct {
	pi       protocolif.ProtocolInterface
	entityID uint64

	owner      entitymodel.UniqueIdentifier
	locker     entitymodel.UniqueIdentifier
	connected  bool
	talkerID   uint64
	talkerIdx  uint16
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
		TargetEntityID:     req.TargetEntityID,
		ControllerEntityID: req.ControllerEntityID,
		SequenceID:         req.SequenceID,
		CommandType:        req.CommandType,
		Payload:            respPayload,
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
	case wire.AECPGetStreamInfo:
		return avdeccstatus.AEMSuccess, wire.StreamInfoPayload{Flags: wire.StreamInfoActive}.Encode()
	case wire.AECPGetAudioMap:
		return avdeccstatus.AEMSuccess, wire.AudioMapPayload{MapIndex: 0, NumberOfMaps: 1}.Encode()
	case wire.AECPAcquireEntity:
		return f.acquire(req.Payload)
	case wire.AECPLockEntity:
		return f.lock(req.Payload)
	case wire.AECPSetName, wire.AECPSetStreamFormat, wire.AECPStartStreaming, wire.AECPStopStreaming,
		wire.AECPAddAudioMappings, wire.AECPRemoveAudioMappings, wire.AECPSetMemoryObjectLength,
		wire.AECPSetSamplingRate, wire.AECPSetClockSource, wire.AECPSetConfiguration:
		return avdeccstatus.AEMSuccess, req.Payload
	default:
		return avdeccstatus.AEMNotImplemented, nil
	}
}

func (f *fakeEntity) acquire(payload []byte) (avdeccstatus.AEMStatus, []byte) {
	p, err := wire.DecodeAcquireEntityPayload(payload)
	if err != nil {
		return avdeccstatus.AEMBadArguments, nil
	}
	if p.Flags&wire.AcquireEntityRelease != 0 {
		f.owner = entitymodel.NullUniqueIdentifier
		return avdeccstatus.AEMSuccess, wire.AcquireEntityPayload{OwnerEntityID: 0}.Encode()
	}
	requester := entitymodel.UniqueIdentifier(p.OwnerEntityID)
	if f.owner != entitymodel.NullUniqueIdentifier && f.owner != requester {
		return avdeccstatus.AEMAcquiredByOther, wire.AcquireEntityPayload{OwnerEntityID: uint64(f.owner)}.Encode()
	}
	f.owner = requester
	return avdeccstatus.AEMSuccess, wire.AcquireEntityPayload{OwnerEntityID: uint64(f.owner)}.Encode()
}

func (f *fakeEntity) lock(payload []byte) (avdeccstatus.AEMStatus, []byte) {
	p, err := wire.DecodeLockEntityPayload(payload)
	if err != nil {
		return avdeccstatus.AEMBadArguments, nil
	}
	if p.Flags&wire.LockEntityRelease != 0 {
		f.locker = entitymodel.NullUniqueIdentifier
		return avdeccstatus.AEMSuccess, wire.LockEntityPayload{LockedEntityID: 0}.Encode()
	}
	requester := entitymodel.UniqueIdentifier(p.LockedEntityID)
	if f.locker != entitymodel.NullUniqueIdentifier && f.locker != requester {
		return avdeccstatus.AEMAcquiredByOther, wire.LockEntityPayload{LockedEntityID: uint64(f.locker)}.Encode()
	}
	f.locker = requester
	return avdeccstatus.AEMSuccess, wire.LockEntityPayload{LockedEntityID: uint64(f.locker)}.Encode()
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
	if err != nil || req.ListenerEntityID != f.entityID {
		return
	}
	resp := req
	switch req.MessageType {
	case wire.ACMPConnectRXCommand:
		f.connected = true
		f.talkerID = req.TalkerEntityID
		f.talkerIdx = req.TalkerUniqueID
		resp.MessageType = wire.ACMPConnectRXResponse
		resp.Status = uint8(avdeccstatus.ACMPSuccess)
	case wire.ACMPDisconnectRXCommand:
		resp.MessageType = wire.ACMPDisconnectRXResponse
		if !f.connected {
			resp.Status = uint8(avdeccstatus.ACMPNotConnected)
		} else {
			f.connected = false
			resp.Status = uint8(avdeccstatus.ACMPSuccess)
		}
	case wire.ACMPGetRXStateCommand:
		resp.MessageType = wire.ACMPGetRXStateResponse
		resp.Status = uint8(avdeccstatus.ACMPSuccess)
		if f.connected {
			resp.ConnectionCount = 1
			resp.TalkerEntityID = f.talkerID
			resp.TalkerUniqueID = f.talkerIdx
		} else {
			resp.ConnectionCount = 0
			resp.TalkerEntityID = 0
		}
	default:
		return
	}
	_ = f.pi.Send(context.Background(), protocolif.AvdeccMulticastMAC, resp.Encode())
}

// testHarness wires one Controller against one fakeEntity on a shared
// in-process bus, bypassing the discovery engine's own ADP timers by
// feeding the cache a synthetic discovery.EventAvailable directly, the
// same shortcut pkg/entitycache's own tests use.
type testHarness struct {
	ctrl   *Controller
	entity *fakeEntity
	events chan observerbus.Event
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	bus := faketransport.NewBus()
	pi := faketransport.New(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x01})
	entity := newFakeEntity(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x02}, testEntityID)

	cfg := avdeccconfig.Default()
	cfg.Backend = avdeccconfig.BackendFake
	cfg.ControllerEntityID = 0x001B210000000001
	cfg.CommandTimeout = 200 * time.Millisecond
	cfg.CommandRetries = 1
	require.NoError(t, cfg.Validate())

	ctrl, err := NewWithInterface(cfg, pi)
	require.NoError(t, err)

	events := make(chan observerbus.Event, 64)
	ctrl.Observers().Register(func(ev observerbus.Event) { events <- ev })

	h := &testHarness{ctrl: ctrl, entity: entity, events: events}
	t.Cleanup(func() { ctrl.Close() })
	return h
}

func (h *testHarness) waitFor(t *testing.T, kind observerbus.EventKind) observerbus.Event {
	t.Helper()
	for {
		select {
		case ev := <-h.events:
			if ev.Kind == kind {
				return ev
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %s", kind)
		}
	}
}

func (h *testHarness) onlineEntity(t *testing.T) {
	t.Helper()
	h.ctrl.Cache().HandleDiscoveryEvent(discovery.Event{Kind: discovery.EventAvailable, EntityID: testEntityID})
	h.waitFor(t, observerbus.EventEntityOnline)
}

func TestNewWithInterfaceRejectsInvalidConfig(t *testing.T) {
	bus := faketransport.NewBus()
	pi := faketransport.New(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x01})
	cfg := avdeccconfig.Config{Backend: "bogus"}
	_, err := NewWithInterface(cfg, pi)
	assert.Error(t, err)
}

func TestEntityIDDerivedWhenUnset(t *testing.T) {
	bus := faketransport.NewBus()
	pi := faketransport.New(bus, entitymodel.MacAddress{0x00, 0x1B, 0x21, 0x00, 0x00, 0x01})
	cfg := avdeccconfig.Default()
	cfg.Backend = avdeccconfig.BackendFake
	require.NoError(t, cfg.Validate())

	ctrl, err := NewWithInterface(cfg, pi)
	require.NoError(t, err)
	t.Cleanup(func() { ctrl.Close() })
	// MAC 00:1B:21:00:00:01 with ProgID 0 derives 00:1B:21 | 0000 | 00:00:01.
	assert.Equal(t, uint64(0x001B210000000001), ctrl.EntityID())
}

func TestEnumerationGoesOnlineAndIsVisibleInCache(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	guard, ok := h.ctrl.Cache().Get(testEntityID)
	require.True(t, ok)
	assert.Equal(t, "fake-entity", guard.Tree.Identity().EntityName.String())

	state, ok := guard.Tree.StreamState(entitymodel.DescriptorKey{Type: entitymodel.DescriptorStreamInput, Index: 0})
	require.True(t, ok)
	assert.True(t, state.IsRunning, "GET_STREAM_INFO's ACTIVE flag should have populated IsRunning before any StartStreaming call")
}

func TestSetEntityNameAppliesAndDispatches(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	var got avdeccstatus.AEMStatus
	done := make(chan struct{})
	h.ctrl.SetEntityName(testEntityID, entitymodel.DescriptorKey{}, 0, 0, "renamed", func(status avdeccstatus.AEMStatus) {
		got = status
		close(done)
	})
	<-done
	assert.Equal(t, avdeccstatus.AEMSuccess, got)
	h.waitFor(t, observerbus.EventNameChanged)

	guard, ok := h.ctrl.Cache().Get(testEntityID)
	require.True(t, ok)
	name, ok := guard.Tree.Name(entitymodel.DescriptorKey{})
	require.True(t, ok)
	assert.Equal(t, "renamed", name.String())
}

func TestSetEntityNameUnknownEntityFastRejects(t *testing.T) {
	h := newTestHarness(t)
	var got avdeccstatus.AEMStatus
	h.ctrl.SetEntityName(0xDEAD, entitymodel.DescriptorKey{}, 0, 0, "x", func(status avdeccstatus.AEMStatus) {
		got = status
	})
	assert.Equal(t, avdeccstatus.AEMUnknownEntity, got)
}

func TestStartStopStreaming(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)
	key := entitymodel.DescriptorKey{Type: entitymodel.DescriptorStreamInput, Index: 0}

	done := make(chan avdeccstatus.AEMStatus, 1)
	h.ctrl.StartStreaming(testEntityID, key, func(status avdeccstatus.AEMStatus) { done <- status })
	assert.Equal(t, avdeccstatus.AEMSuccess, <-done)
	h.waitFor(t, observerbus.EventStreamRunningChanged)

	h.ctrl.StopStreaming(testEntityID, key, func(status avdeccstatus.AEMStatus) { done <- status })
	assert.Equal(t, avdeccstatus.AEMSuccess, <-done)
	h.waitFor(t, observerbus.EventStreamRunningChanged)
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	done := make(chan struct{})
	var state entitymodel.AcquireState
	var status avdeccstatus.AEMStatus
	h.ctrl.AcquireEntity(testEntityID, false, func(s entitymodel.AcquireState, st avdeccstatus.AEMStatus) {
		state, status = s, st
		close(done)
	})
	<-done
	assert.Equal(t, entitymodel.AcquireStateAcquired, state)
	assert.Equal(t, avdeccstatus.AEMSuccess, status)
	h.waitFor(t, observerbus.EventAcquireStateChanged)

	guard, ok := h.ctrl.Cache().Get(testEntityID)
	require.True(t, ok)
	assert.Equal(t, entitymodel.AcquireStateAcquired, guard.AcquireState)

	done = make(chan struct{})
	h.ctrl.ReleaseEntity(testEntityID, func(s entitymodel.AcquireState, st avdeccstatus.AEMStatus) {
		state, status = s, st
		close(done)
	})
	<-done
	assert.Equal(t, entitymodel.AcquireStateNotAcquired, state)
	assert.Equal(t, avdeccstatus.AEMSuccess, status)
}

func TestAcquireAlreadyOwnedByOther(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)
	h.entity.owner = entitymodel.UniqueIdentifier(0xFEDCBA9876543210)

	done := make(chan struct{})
	var state entitymodel.AcquireState
	h.ctrl.AcquireEntity(testEntityID, false, func(s entitymodel.AcquireState, _ avdeccstatus.AEMStatus) {
		state = s
		close(done)
	})
	<-done
	assert.Equal(t, entitymodel.AcquireStateAcquiredByOther, state)
}

func TestAcquireEntityFastRejectsSecondConcurrentAttempt(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	h.ctrl.AcquireEntity(testEntityID, false, nil)
	done := make(chan struct{})
	var status avdeccstatus.AEMStatus
	h.ctrl.AcquireEntity(testEntityID, false, func(_ entitymodel.AcquireState, st avdeccstatus.AEMStatus) {
		status = st
		close(done)
	})
	<-done
	assert.Equal(t, avdeccstatus.AEMUnknownEntity, status)
}

func TestLockUnlockRoundTrip(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	done := make(chan struct{})
	var state entitymodel.LockState
	var status avdeccstatus.AEMStatus
	h.ctrl.LockEntity(testEntityID, func(s entitymodel.LockState, st avdeccstatus.AEMStatus) {
		state, status = s, st
		close(done)
	})
	<-done
	assert.Equal(t, entitymodel.LockStateLocked, state)
	assert.Equal(t, avdeccstatus.AEMSuccess, status)
	h.waitFor(t, observerbus.EventLockStateChanged)

	done = make(chan struct{})
	h.ctrl.UnlockEntity(testEntityID, func(s entitymodel.LockState, st avdeccstatus.AEMStatus) {
		state, status = s, st
		close(done)
	})
	<-done
	assert.Equal(t, entitymodel.LockStateNotLocked, state)
	assert.Equal(t, avdeccstatus.AEMSuccess, status)
}

func TestConnectDisconnectStream(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	talkerKey := entitymodel.DescriptorIndex(0)
	listenerKey := entitymodel.DescriptorIndex(0)

	done := make(chan avdeccstatus.ACMPStatus, 1)
	h.ctrl.ConnectStream(0x001B21000000AAAA, talkerKey, testEntityID, listenerKey, func(status avdeccstatus.ACMPStatus) { done <- status })
	assert.Equal(t, avdeccstatus.ACMPSuccess, <-done)
	h.waitFor(t, observerbus.EventStreamConnectionChanged)

	guard, ok := h.ctrl.Cache().Get(testEntityID)
	require.True(t, ok)
	info := guard.Tree.ConnectionInfo(listenerKey)
	require.NotNil(t, info)
	assert.Equal(t, entitymodel.UniqueIdentifier(0x001B21000000AAAA), info.TalkerEntityID)

	h.ctrl.DisconnectStream(0x001B21000000AAAA, talkerKey, testEntityID, listenerKey, func(status avdeccstatus.ACMPStatus) { done <- status })
	assert.Equal(t, avdeccstatus.ACMPSuccess, <-done)
	h.waitFor(t, observerbus.EventStreamConnectionChanged)

	guard, ok = h.ctrl.Cache().Get(testEntityID)
	require.True(t, ok)
	assert.Nil(t, guard.Tree.ConnectionInfo(listenerKey))
}

func TestDisconnectStreamNormalisesNotConnectedToSuccess(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	done := make(chan avdeccstatus.ACMPStatus, 1)
	h.ctrl.DisconnectStream(0x001B21000000AAAA, 0, testEntityID, 0, func(status avdeccstatus.ACMPStatus) { done <- status })
	assert.Equal(t, avdeccstatus.ACMPSuccess, <-done)
}

func TestConnectStreamUnknownListenerFastRejects(t *testing.T) {
	h := newTestHarness(t)
	done := make(chan avdeccstatus.ACMPStatus, 1)
	h.ctrl.ConnectStream(0x001B21000000AAAA, 0, 0xDEAD, 0, func(status avdeccstatus.ACMPStatus) { done <- status })
	assert.Equal(t, avdeccstatus.ACMPUnknownEntity, <-done)
}

func TestCloseIsIdempotentAndReleasesAcquired(t *testing.T) {
	h := newTestHarness(t)
	h.onlineEntity(t)

	done := make(chan struct{})
	h.ctrl.AcquireEntity(testEntityID, false, func(entitymodel.AcquireState, avdeccstatus.AEMStatus) { close(done) })
	<-done

	assert.NoError(t, h.ctrl.Close())
	assert.NoError(t, h.ctrl.Close())
	assert.Equal(t, entitymodel.NullUniqueIdentifier, h.entity.owner)
}
