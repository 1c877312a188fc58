package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// EventKind identifies what happened to an advertised entity.
type EventKind int

const (
	// EventAvailable fires the first time an entity is heard from.
	EventAvailable EventKind = iota
	// EventAvailableUpdated fires on a subsequent ENTITY_AVAILABLE with
	// a plain availableIndex increment; cached identity data is safe
	// to keep, but liveness should be reset.
	EventAvailableUpdated
	// EventRestarted fires when availableIndex decreases or otherwise
	// moves non-monotonically: the remote process restarted and any
	// cached state for it must be purged and re-enumerated.
	EventRestarted
	// EventDeparted fires on an explicit ENTITY_DEPARTING advertisement.
	EventDeparted
	// EventExpired fires when an entity's liveness timer elapses
	// without a renewing ENTITY_AVAILABLE.
	EventExpired
)

// Event describes one discovery-level occurrence.
type Event struct {
	Kind     EventKind
	EntityID uint64
	PDU      wire.ADPPDU
}

// Handler is invoked for every discovery Event. Called outside any
// internal lock, but from whichever goroutine received the frame or
// fired the liveness timer — handlers must be safe for concurrent use
// and should not block for long.
type Handler func(Event)

type trackedEntity struct {
	availableIndex uint32
	timer          *time.Timer
}

// Engine runs the ADP discovery state machine against one
// ProtocolInterface: broadcasting ENTITY_DISCOVER on an interval and
// tracking every entity advertised back.
type Engine struct {
	pi               protocolif.ProtocolInterface
	discoverInterval time.Duration
	handler          Handler
	logger           avdecclog.Logger

	mu       sync.Mutex
	entities map[uint64]*trackedEntity

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a discovery engine. handler is invoked for every Event;
// it must not be nil.
func New(pi protocolif.ProtocolInterface, discoverInterval time.Duration, handler Handler, logger avdecclog.Logger) *Engine {
	if logger == nil {
		logger = avdecclog.NoopLogger{}
	}
	return &Engine{
		pi:               pi,
		discoverInterval: discoverInterval,
		handler:          handler,
		logger:           logger,
		entities:         make(map[uint64]*trackedEntity),
		stopCh:           make(chan struct{}),
	}
}

// Start registers the frame handler and begins the periodic
// ENTITY_DISCOVER broadcast. Start must be called at most once.
func (e *Engine) Start(ctx context.Context) error {
	e.pi.OnFrame(e.handleFrame)
	if err := e.sendDiscover(ctx); err != nil {
		return err
	}
	e.wg.Add(1)
	go e.broadcastLoop(ctx)
	return nil
}

// Stop halts the discover broadcast and cancels every pending liveness
// timer. Stop is idempotent.
func (e *Engine) Stop() {
	e.once.Do(func() {
		close(e.stopCh)
	})
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.entities {
		t.timer.Stop()
		delete(e.entities, id)
	}
}

func (e *Engine) broadcastLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.discoverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := e.sendDiscover(ctx); err != nil {
				e.logger.Log(avdecclog.NewEvent(avdecclog.LevelWarn, avdecclog.LayerProtocolInterface, "", "", "discovery: ENTITY_DISCOVER send failed: "+err.Error()))
			}
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) sendDiscover(ctx context.Context) error {
	pdu := wire.ADPPDU{MessageType: wire.ADPEntityDiscover}
	return e.pi.Send(ctx, protocolif.AvdeccMulticastMAC, pdu.Encode())
}

func (e *Engine) handleFrame(f protocolif.Frame) {
	hdr, err := wire.DecodeCommonHeader(f.Payload)
	if err != nil || hdr.Subtype != wire.SubtypeADP {
		return
	}
	pdu, err := wire.DecodeADP(f.Payload)
	if err != nil {
		e.logger.Log(avdecclog.NewEvent(avdecclog.LevelWarn, avdecclog.LayerSerialization, "", "", "discovery: malformed ADP frame: "+err.Error()))
		return
	}

	switch pdu.MessageType {
	case wire.ADPEntityAvailable:
		e.handleAvailable(pdu)
	case wire.ADPEntityDeparting:
		e.handleDeparting(pdu)
	case wire.ADPEntityDiscover:
		// Requests from other controllers; this engine does not answer
		// on behalf of the local process (pkg/controller's observeADP does).
	}
}

func (e *Engine) handleAvailable(pdu wire.ADPPDU) {
	e.mu.Lock()
	t, existed := e.entities[pdu.EntityID]
	var kind EventKind
	switch {
	case !existed:
		kind = EventAvailable
		t = &trackedEntity{}
		e.entities[pdu.EntityID] = t
	case pdu.AvailableIndex < t.availableIndex:
		kind = EventRestarted
		if t.timer != nil {
			t.timer.Stop()
		}
	default:
		kind = EventAvailableUpdated
		if t.timer != nil {
			t.timer.Stop()
		}
	}
	t.availableIndex = pdu.AvailableIndex
	t.timer = time.AfterFunc(livenessDuration(pdu.ValidTime), func() { e.expire(pdu.EntityID) })
	e.mu.Unlock()

	e.handler(Event{Kind: kind, EntityID: pdu.EntityID, PDU: pdu})
}

func (e *Engine) handleDeparting(pdu wire.ADPPDU) {
	e.mu.Lock()
	t, ok := e.entities[pdu.EntityID]
	if ok {
		t.timer.Stop()
		delete(e.entities, pdu.EntityID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	e.handler(Event{Kind: EventDeparted, EntityID: pdu.EntityID, PDU: pdu})
}

func (e *Engine) expire(entityID uint64) {
	e.mu.Lock()
	_, ok := e.entities[entityID]
	delete(e.entities, entityID)
	e.mu.Unlock()
	if !ok {
		return
	}
	e.handler(Event{Kind: EventExpired, EntityID: entityID})
}

// livenessDuration derives the liveness timeout from a decoded
// valid_time field: validTime*2 seconds, clamped to [1,62].
func livenessDuration(validTime uint8) time.Duration {
	secs := int(validTime) * 2
	if secs < 1 {
		secs = 1
	}
	if secs > 62 {
		secs = 62
	}
	return time.Duration(secs) * time.Second
}
