package entitymodel

// AudioMapping is one {stream_channel, cluster_offset, cluster_channel}
// quadruple describing how a stream port's audio channels map onto
// clusters (the fourth, implicit, part of the quadruple is the
// AudioMap descriptor index the mapping lives under).
type AudioMapping struct {
	StreamChannel  uint16
	ClusterOffset  uint16
	ClusterChannel uint16
}

// StreamDynamicState holds the mutable, per-stream runtime fields.
type StreamDynamicState struct {
	CurrentFormat  uint64
	IsRunning      bool
	ConnectionInfo *ConnectionInfo // non-nil when this stream is a listener with a recorded connection
}

// ConnectionInfo is the connection state of a listener stream as seen by
// GET_RX_STATE / CONNECT_RX_RESPONSE / DISCONNECT_RX_RESPONSE.
type ConnectionInfo struct {
	TalkerEntityID UniqueIdentifier // NullUniqueIdentifier if not connected
	TalkerStreamIndex DescriptorIndex
	ConnectionFlags   uint16
}

// StreamPortDynamicState holds the mutable audio mapping set for one stream port.
type StreamPortDynamicState struct {
	Mappings []AudioMapping
}

// AudioUnitDynamicState holds the mutable sampling rate for one audio unit.
type AudioUnitDynamicState struct {
	SamplingRate uint32
}

// ClockDomainDynamicState holds the mutable clock source selection.
type ClockDomainDynamicState struct {
	ClockSourceIndex DescriptorIndex
}

// MemoryObjectDynamicState holds the mutable occupied length of a memory object.
type MemoryObjectDynamicState struct {
	Length uint64
}

// DynamicState is the mutable half of an entity's model: everything that
// can change without re-walking the static descriptor tree.
type DynamicState struct {
	CurrentConfiguration DescriptorIndex

	// Names, keyed by the descriptor they apply to. Every applicable
	// descriptor type (Entity, Configuration, AudioUnit, Stream*, Jack*,
	// AvbInterface, ClockSource, MemoryObject, AudioCluster, ClockDomain)
	// may have an entry here.
	Names map[DescriptorKey]AvdeccFixedString

	Streams      map[DescriptorKey]*StreamDynamicState // keyed by (StreamInput|StreamOutput, index)
	StreamPorts  map[DescriptorKey]*StreamPortDynamicState
	AudioUnits   map[DescriptorIndex]*AudioUnitDynamicState
	ClockDomains map[DescriptorIndex]*ClockDomainDynamicState
	MemoryObjects map[DescriptorIndex]*MemoryObjectDynamicState
}

// NewDynamicState returns an empty, ready-to-populate dynamic model.
func NewDynamicState() *DynamicState {
	return &DynamicState{
		Names:         make(map[DescriptorKey]AvdeccFixedString),
		Streams:       make(map[DescriptorKey]*StreamDynamicState),
		StreamPorts:   make(map[DescriptorKey]*StreamPortDynamicState),
		AudioUnits:    make(map[DescriptorIndex]*AudioUnitDynamicState),
		ClockDomains:  make(map[DescriptorIndex]*ClockDomainDynamicState),
		MemoryObjects: make(map[DescriptorIndex]*MemoryObjectDynamicState),
	}
}

// AcquireState is the ownership state of a controlled entity with respect
// to this controller. It transitions only from explicit AECP ACQUIRE/
// RELEASE outcomes (see pkg/entitycache for the transition table).
type AcquireState uint8

const (
	AcquireStateNotAcquired AcquireState = iota
	AcquireStateTryAcquire
	AcquireStateAcquired
	AcquireStateAcquiredByOther
	AcquireStateUndefined
)

// String returns the acquire state name.
func (s AcquireState) String() string {
	switch s {
	case AcquireStateNotAcquired:
		return "NOT_ACQUIRED"
	case AcquireStateTryAcquire:
		return "TRY_ACQUIRE"
	case AcquireStateAcquired:
		return "ACQUIRED"
	case AcquireStateAcquiredByOther:
		return "ACQUIRED_BY_OTHER"
	case AcquireStateUndefined:
		return "UNDEFINED"
	default:
		return "UNKNOWN"
	}
}

// LockState is the transient-lock ownership state of a controlled
// entity with respect to this controller. Unlike AcquireState it is
// not persisted in the entity's advertised capabilities; it only
// tracks the outcome of this controller's own LOCK_ENTITY/UNLOCK_ENTITY
// commands (see pkg/entitycache for the transition table).
type LockState uint8

const (
	LockStateNotLocked LockState = iota
	LockStateTryLock
	LockStateLocked
	LockStateLockedByOther
	LockStateUndefined
)

// String returns the lock state name.
func (s LockState) String() string {
	switch s {
	case LockStateNotLocked:
		return "NOT_LOCKED"
	case LockStateTryLock:
		return "TRY_LOCK"
	case LockStateLocked:
		return "LOCKED"
	case LockStateLockedByOther:
		return "LOCKED_BY_OTHER"
	case LockStateUndefined:
		return "UNDEFINED"
	default:
		return "UNKNOWN"
	}
}
