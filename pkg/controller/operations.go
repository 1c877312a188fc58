package controller

import (
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/observerbus"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// StatusCallback is the completion callback for every AEM control
// operation that reports nothing beyond success/failure.
type StatusCallback func(status avdeccstatus.AEMStatus)

// AcquireCallback reports the resolved ownership state alongside the
// AEM status the command actually completed with.
type AcquireCallback func(state entitymodel.AcquireState, status avdeccstatus.AEMStatus)

// LockCallback reports the resolved lock state alongside the AEM
// status the command actually completed with.
type LockCallback func(state entitymodel.LockState, status avdeccstatus.AEMStatus)

func noopStatus(avdeccstatus.AEMStatus) {}

// doAEM is the shared shape of every control operation: fast-reject if
// entityID is unknown, otherwise issue cmd off the loop goroutine and,
// on success, apply the cache mutation and fire the observer event
// before invoking done — all from the loop goroutine.
func (c *Controller) doAEM(entityID uint64, cmd wire.AECPCommandType, payload []byte, apply func(*entitymodel.EntityTree), ev observerbus.EventKind, detail any, done StatusCallback) {
	if done == nil {
		done = noopStatus
	}
	if _, ok := c.cache.Get(entityID); !ok {
		done(avdeccstatus.AEMUnknownEntity)
		return
	}
	go func() {
		status, _, _ := c.transport.SendAEM(c.cmdCtx, entityID, cmd, payload)
		c.post(func() {
			if status.IsSuccess() && apply != nil {
				c.cache.Mutate(entityID, ev, detail, apply)
			}
			done(status)
		})
	}()
}

// SetEntityName issues SET_NAME against the descriptor key identifies
// (the ENTITY descriptor itself when key is the zero DescriptorKey).
func (c *Controller) SetEntityName(entityID uint64, key entitymodel.DescriptorKey, nameIndex, configurationIndex uint16, name string, done StatusCallback) {
	fixed := entitymodel.NewAvdeccFixedString(name)
	payload := wire.NamePayload{
		DescriptorType:     uint16(key.Type),
		DescriptorIndex:     uint16(key.Index),
		NameIndex:           nameIndex,
		ConfigurationIndex:  configurationIndex,
		Name:                fixed,
	}.Encode()
	apply := func(tree *entitymodel.EntityTree) { tree.SetName(key, fixed) }
	c.doAEM(entityID, wire.AECPSetName, payload, apply, observerbus.EventNameChanged, name, done)
}

// SetStreamFormat issues SET_STREAM_FORMAT against a stream descriptor.
func (c *Controller) SetStreamFormat(entityID uint64, key entitymodel.DescriptorKey, format uint64, done StatusCallback) {
	payload := wire.StreamFormatPayload{
		DescriptorType:  uint16(key.Type),
		DescriptorIndex: uint16(key.Index),
		StreamFormat:    format,
	}.Encode()
	apply := func(tree *entitymodel.EntityTree) { tree.SetStreamFormat(key, format) }
	c.doAEM(entityID, wire.AECPSetStreamFormat, payload, apply, observerbus.EventStreamFormatChanged, format, done)
}

// StartStreaming issues START_STREAMING against a stream descriptor.
func (c *Controller) StartStreaming(entityID uint64, key entitymodel.DescriptorKey, done StatusCallback) {
	c.setStreamRunning(entityID, key, true, wire.AECPStartStreaming, done)
}

// StopStreaming issues STOP_STREAMING against a stream descriptor.
func (c *Controller) StopStreaming(entityID uint64, key entitymodel.DescriptorKey, done StatusCallback) {
	c.setStreamRunning(entityID, key, false, wire.AECPStopStreaming, done)
}

func (c *Controller) setStreamRunning(entityID uint64, key entitymodel.DescriptorKey, running bool, cmd wire.AECPCommandType, done StatusCallback) {
	payload := wire.DescriptorRefPayload{
		DescriptorType:  uint16(key.Type),
		DescriptorIndex: uint16(key.Index),
	}.Encode()
	apply := func(tree *entitymodel.EntityTree) { tree.SetStreamRunning(key, running) }
	c.doAEM(entityID, cmd, payload, apply, observerbus.EventStreamRunningChanged, running, done)
}

// AddAudioMappings issues ADD_AUDIO_MAPPINGS against a stream port.
func (c *Controller) AddAudioMappings(entityID uint64, portKey entitymodel.DescriptorKey, mappings []entitymodel.AudioMapping, done StatusCallback) {
	payload := audioMapPayload(portKey, mappings)
	apply := func(tree *entitymodel.EntityTree) { tree.AddAudioMappings(portKey, mappings) }
	c.doAEM(entityID, wire.AECPAddAudioMappings, payload, apply, observerbus.EventAudioMappingsChanged, mappings, done)
}

// RemoveAudioMappings issues REMOVE_AUDIO_MAPPINGS against a stream port.
func (c *Controller) RemoveAudioMappings(entityID uint64, portKey entitymodel.DescriptorKey, mappings []entitymodel.AudioMapping, done StatusCallback) {
	payload := audioMapPayload(portKey, mappings)
	apply := func(tree *entitymodel.EntityTree) { tree.RemoveAudioMappings(portKey, mappings) }
	c.doAEM(entityID, wire.AECPRemoveAudioMappings, payload, apply, observerbus.EventAudioMappingsChanged, mappings, done)
}

func audioMapPayload(portKey entitymodel.DescriptorKey, mappings []entitymodel.AudioMapping) []byte {
	entries := make([]wire.AudioMapEntry, len(mappings))
	for i, m := range mappings {
		entries[i] = wire.AudioMapEntry{
			StreamChannel:  m.StreamChannel,
			ClusterOffset:  m.ClusterOffset,
			ClusterChannel: m.ClusterChannel,
		}
	}
	return wire.AudioMapPayload{
		DescriptorType:  uint16(portKey.Type),
		DescriptorIndex: uint16(portKey.Index),
		Mappings:        entries,
	}.Encode()
}

// SetMemoryObjectLength issues SET_MEMORY_OBJECT_LENGTH.
func (c *Controller) SetMemoryObjectLength(entityID uint64, configurationIndex uint16, memoryObject entitymodel.DescriptorIndex, length uint64, done StatusCallback) {
	payload := wire.MemoryObjectLengthPayload{
		ConfigurationIndex: configurationIndex,
		DescriptorIndex:    uint16(memoryObject),
		Length:             length,
	}.Encode()
	apply := func(tree *entitymodel.EntityTree) { tree.SetMemoryObjectLength(memoryObject, length) }
	c.doAEM(entityID, wire.AECPSetMemoryObjectLength, payload, apply, observerbus.EventMemoryObjectLengthChanged, length, done)
}

// SetSamplingRate issues SET_SAMPLING_RATE against an audio unit.
func (c *Controller) SetSamplingRate(entityID uint64, audioUnit entitymodel.DescriptorIndex, rate uint32, done StatusCallback) {
	payload := wire.SamplingRatePayload{
		DescriptorType:  uint16(entitymodel.DescriptorAudioUnit),
		DescriptorIndex: uint16(audioUnit),
		SamplingRate:    rate,
	}.Encode()
	apply := func(tree *entitymodel.EntityTree) { tree.SetSamplingRate(audioUnit, rate) }
	c.doAEM(entityID, wire.AECPSetSamplingRate, payload, apply, observerbus.EventSamplingRateChanged, rate, done)
}

// SetClockSource issues SET_CLOCK_SOURCE against a clock domain.
func (c *Controller) SetClockSource(entityID uint64, clockDomain, clockSourceIndex entitymodel.DescriptorIndex, done StatusCallback) {
	payload := wire.ClockSourcePayload{
		DescriptorType:   uint16(entitymodel.DescriptorClockDomain),
		DescriptorIndex:  uint16(clockDomain),
		ClockSourceIndex: uint16(clockSourceIndex),
	}.Encode()
	apply := func(tree *entitymodel.EntityTree) { tree.SetClockSource(clockDomain, clockSourceIndex) }
	c.doAEM(entityID, wire.AECPSetClockSource, payload, apply, observerbus.EventClockSourceChanged, clockSourceIndex, done)
}

// SetConfiguration issues SET_CONFIGURATION, switching the entity's
// active configuration.
func (c *Controller) SetConfiguration(entityID uint64, configurationIndex entitymodel.DescriptorIndex, done StatusCallback) {
	payload := wire.ConfigurationPayload{ConfigurationIndex: uint16(configurationIndex)}.Encode()
	apply := func(tree *entitymodel.EntityTree) { tree.SetCurrentConfiguration(configurationIndex) }
	c.doAEM(entityID, wire.AECPSetConfiguration, payload, apply, observerbus.EventConfigurationChanged, configurationIndex, done)
}

// AcquireEntity issues ACQUIRE_ENTITY against the entity's ENTITY
// descriptor, driving the cache's acquire state machine. Reports
// AEMUnknownEntity (via the state-only callback path) if the entity
// is unknown or its acquire state is anything other than NotAcquired
// (mid-transition, Acquired, AcquiredByOther or Undefined).
func (c *Controller) AcquireEntity(entityID uint64, persistent bool, done AcquireCallback) {
	if done == nil {
		done = func(entitymodel.AcquireState, avdeccstatus.AEMStatus) {}
	}
	if !c.cache.BeginAcquire(entityID) {
		done(entitymodel.AcquireStateUndefined, avdeccstatus.AEMUnknownEntity)
		return
	}
	var flags wire.AcquireEntityFlags
	if persistent {
		flags |= wire.AcquireEntityPersistent
	}
	payload := wire.AcquireEntityPayload{
		Flags:          flags,
		OwnerEntityID:  c.identity.EntityID(),
		DescriptorType: uint16(entitymodel.DescriptorEntity),
	}.Encode()
	go func() {
		status, resp, _ := c.transport.SendAEM(c.cmdCtx, entityID, wire.AECPAcquireEntity, payload)
		owner := entitymodel.NullUniqueIdentifier
		if p, err := wire.DecodeAcquireEntityPayload(resp); err == nil {
			owner = entitymodel.UniqueIdentifier(p.OwnerEntityID)
		}
		c.post(func() {
			state := c.cache.CompleteAcquire(entityID, status, owner)
			done(state, status)
		})
	}()
}

// ReleaseEntity issues ACQUIRE_ENTITY with the RELEASE flag set,
// returning the entity to NotAcquired on success.
func (c *Controller) ReleaseEntity(entityID uint64, done AcquireCallback) {
	if done == nil {
		done = func(entitymodel.AcquireState, avdeccstatus.AEMStatus) {}
	}
	if _, ok := c.cache.Get(entityID); !ok {
		done(entitymodel.AcquireStateUndefined, avdeccstatus.AEMUnknownEntity)
		return
	}
	payload := wire.AcquireEntityPayload{
		Flags:          wire.AcquireEntityRelease,
		OwnerEntityID:  c.identity.EntityID(),
		DescriptorType: uint16(entitymodel.DescriptorEntity),
	}.Encode()
	go func() {
		status, _, _ := c.transport.SendAEM(c.cmdCtx, entityID, wire.AECPAcquireEntity, payload)
		c.post(func() {
			state := c.cache.CompleteRelease(entityID, status)
			done(state, status)
		})
	}()
}

// LockEntity issues LOCK_ENTITY against the entity's ENTITY descriptor,
// driving the cache's lock state machine. Locking is a short-lived,
// non-exclusive-ownership hold (unlike AcquireEntity) used to pin an
// entity's configuration against concurrent change by another
// controller while this one performs a multi-command sequence.
func (c *Controller) LockEntity(entityID uint64, done LockCallback) {
	if done == nil {
		done = func(entitymodel.LockState, avdeccstatus.AEMStatus) {}
	}
	if !c.cache.BeginLock(entityID) {
		done(entitymodel.LockStateUndefined, avdeccstatus.AEMUnknownEntity)
		return
	}
	payload := wire.LockEntityPayload{
		LockedEntityID: c.identity.EntityID(),
		DescriptorType: uint16(entitymodel.DescriptorEntity),
	}.Encode()
	go func() {
		status, resp, _ := c.transport.SendAEM(c.cmdCtx, entityID, wire.AECPLockEntity, payload)
		locker := entitymodel.NullUniqueIdentifier
		if p, err := wire.DecodeLockEntityPayload(resp); err == nil {
			locker = entitymodel.UniqueIdentifier(p.LockedEntityID)
		}
		c.post(func() {
			state := c.cache.CompleteLock(entityID, status, locker)
			done(state, status)
		})
	}()
}

// UnlockEntity issues LOCK_ENTITY with the RELEASE flag set, returning
// the entity to NotLocked on success.
func (c *Controller) UnlockEntity(entityID uint64, done LockCallback) {
	if done == nil {
		done = func(entitymodel.LockState, avdeccstatus.AEMStatus) {}
	}
	if _, ok := c.cache.Get(entityID); !ok {
		done(entitymodel.LockStateUndefined, avdeccstatus.AEMUnknownEntity)
		return
	}
	payload := wire.LockEntityPayload{
		Flags:          wire.LockEntityRelease,
		LockedEntityID: c.identity.EntityID(),
		DescriptorType: uint16(entitymodel.DescriptorEntity),
	}.Encode()
	go func() {
		status, _, _ := c.transport.SendAEM(c.cmdCtx, entityID, wire.AECPLockEntity, payload)
		c.post(func() {
			state := c.cache.CompleteUnlock(entityID, status)
			done(state, status)
		})
	}()
}
