package observerbus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
)

// EventKind identifies the lifecycle or state-change event being delivered.
type EventKind int

const (
	EventEntityOnline EventKind = iota
	EventEntityOffline
	EventAcquireStateChanged
	EventLockStateChanged
	EventNameChanged
	EventStreamFormatChanged
	EventStreamRunningChanged
	EventStreamConnectionChanged
	EventSamplingRateChanged
	EventClockSourceChanged
	EventAudioMappingsChanged
	EventMemoryObjectLengthChanged
	EventConfigurationChanged
	EventEnumerationError
)

// String returns the event kind mnemonic.
func (k EventKind) String() string {
	switch k {
	case EventEntityOnline:
		return "EntityOnline"
	case EventEntityOffline:
		return "EntityOffline"
	case EventAcquireStateChanged:
		return "AcquireStateChanged"
	case EventLockStateChanged:
		return "LockStateChanged"
	case EventNameChanged:
		return "NameChanged"
	case EventStreamFormatChanged:
		return "StreamFormatChanged"
	case EventStreamRunningChanged:
		return "StreamRunningChanged"
	case EventStreamConnectionChanged:
		return "StreamConnectionChanged"
	case EventSamplingRateChanged:
		return "SamplingRateChanged"
	case EventClockSourceChanged:
		return "ClockSourceChanged"
	case EventAudioMappingsChanged:
		return "AudioMappingsChanged"
	case EventMemoryObjectLengthChanged:
		return "MemoryObjectLengthChanged"
	case EventConfigurationChanged:
		return "ConfigurationChanged"
	case EventEnumerationError:
		return "EnumerationError"
	default:
		return "Unknown"
	}
}

// Event is one notification broadcast to observers. DescriptorKey and
// Detail are zero-valued when the event kind does not apply to a
// specific descriptor (e.g. EventEntityOnline/Offline/EnumerationError).
type Event struct {
	Kind          EventKind
	EntityID      uint64
	DescriptorKey entitymodel.DescriptorKey
	Detail        any
}

// Observer receives bus events. Must not block for long; a slow
// observer delays every subsequent observer in the same Dispatch call.
type Observer func(Event)

type registration struct {
	id uint64
	fn Observer
}

// Bus fans Dispatch calls out to every registered Observer, outside of
// any lock it holds itself, catching and logging any panic from an
// individual observer rather than letting it propagate.
type Bus struct {
	logger avdecclog.Logger

	mu        sync.Mutex
	observers []*registration
	nextID    atomic.Uint64
}

// New creates an empty bus. logger may be avdecclog.NoopLogger{}.
func New(logger avdecclog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Register adds an observer and returns a handle for Unregister.
func (b *Bus) Register(fn Observer) uint64 {
	id := b.nextID.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]*registration, len(b.observers), len(b.observers)+1)
	copy(next, b.observers)
	next = append(next, &registration{id: id, fn: fn})
	b.observers = next
	return id
}

// Unregister removes a previously registered observer. No-op if the
// handle is unknown (e.g. already unregistered).
func (b *Bus) Unregister(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]*registration, 0, len(b.observers))
	for _, r := range b.observers {
		if r.id != id {
			next = append(next, r)
		}
	}
	b.observers = next
}

// Count reports the number of currently registered observers.
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Dispatch delivers ev to every observer registered at the time of the
// call, in registration order, without holding the bus's own lock.
func (b *Bus) Dispatch(ev Event) {
	b.mu.Lock()
	snapshot := b.observers
	b.mu.Unlock()

	for _, r := range snapshot {
		b.invoke(r, ev)
	}
}

func (b *Bus) invoke(r *registration, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Log(avdecclog.NewEvent(avdecclog.LevelError, avdecclog.LayerControllerEntity, "",
				entitymodel.UniqueIdentifier(ev.EntityID).String(),
				fmt.Sprintf("observer panicked on %s: %v", ev.Kind, rec)))
		}
	}()
	r.fn(ev)
}
