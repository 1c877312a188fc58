package entitycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/discovery"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/enum"
	"github.com/i-n-g-o/avdecc/pkg/observerbus"
)

// enumerationTimeout bounds one full walk of an entity's descriptor
// tree and dynamic state; a misbehaving entity that never answers
// cannot wedge a cache slot forever.
const enumerationTimeout = 30 * time.Second

// entry is the cache's private bookkeeping for one ControlledEntity.
// Tree carries its own locking; everything else here is guarded by mu.
type entry struct {
	mu sync.RWMutex

	tree              *entitymodel.EntityTree
	acquireState      entitymodel.AcquireState
	owningController  entitymodel.UniqueIdentifier
	lockState         entitymodel.LockState
	lockingController entitymodel.UniqueIdentifier
	wasAdvertised     bool
	enumerationError  bool

	cancelEnum context.CancelFunc
}

// Guard is a read-only snapshot of one ControlledEntity's cached
// fields, safe to hold and read after the entity has been removed
// from the Cache.
type Guard struct {
	EntityID          uint64
	Tree              *entitymodel.EntityTree
	AcquireState      entitymodel.AcquireState
	OwningController  entitymodel.UniqueIdentifier
	LockState         entitymodel.LockState
	LockingController entitymodel.UniqueIdentifier
	WasAdvertised     bool
	EnumerationError  bool
}

func (e *entry) guard(entityID uint64) Guard {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Guard{
		EntityID:          entityID,
		Tree:              e.tree,
		AcquireState:      e.acquireState,
		OwningController:  e.owningController,
		LockState:         e.lockState,
		LockingController: e.lockingController,
		WasAdvertised:     e.wasAdvertised,
		EnumerationError:  e.enumerationError,
	}
}

// Cache is the thread-safe registry of every currently-known
// ControlledEntity, protected by a single readers-writer lock.
type Cache struct {
	transport *Transport
	bus       *observerbus.Bus
	logger    avdecclog.Logger

	mu       sync.RWMutex
	entities map[uint64]*entry

	modelMu sync.RWMutex
	model   *EntityModelCache
}

// New creates an empty cache. transport supplies the AECP/ACMP command
// pipeline used both for enumeration and for later control operations;
// bus receives onEntityOnline/onEntityOffline notifications.
func New(transport *Transport, bus *observerbus.Bus, logger avdecclog.Logger) *Cache {
	if logger == nil {
		logger = avdecclog.NoopLogger{}
	}
	return &Cache{
		transport: transport,
		bus:       bus,
		logger:    logger,
		entities:  make(map[uint64]*entry),
	}
}

// EnableEntityModelCache turns on the opt-in on-disk static-model
// cache rooted at dir, creating it if this is the first call.
func (c *Cache) EnableEntityModelCache(dir string) error {
	c.modelMu.Lock()
	defer c.modelMu.Unlock()
	if c.model == nil {
		m, err := NewEntityModelCache(dir)
		if err != nil {
			return err
		}
		c.model = m
	}
	c.model.Enable()
	return nil
}

// DisableEntityModelCache turns the on-disk static-model cache off
// without discarding previously persisted entries.
func (c *Cache) DisableEntityModelCache() {
	c.modelMu.RLock()
	defer c.modelMu.RUnlock()
	if c.model != nil {
		c.model.Disable()
	}
}

func (c *Cache) modelCache() *EntityModelCache {
	c.modelMu.RLock()
	defer c.modelMu.RUnlock()
	return c.model
}

func (c *Cache) log(level avdecclog.Level, entityID uint64, msg string) {
	c.logger.Log(avdecclog.NewEvent(level, avdecclog.LayerEntity, "", entitymodel.UniqueIdentifier(entityID).String(), msg))
}

// Get returns a read-only snapshot of entityID's cached state.
func (c *Cache) Get(entityID uint64) (Guard, bool) {
	c.mu.RLock()
	e, ok := c.entities[entityID]
	c.mu.RUnlock()
	if !ok {
		return Guard{}, false
	}
	return e.guard(entityID), true
}

// Count reports the number of currently cached entities.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// Snapshot returns a guard for every currently cached entity, in no
// particular order. Used by the controller facade on shutdown to
// drain observers for every still-advertised entity.
func (c *Cache) Snapshot() []Guard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Guard, 0, len(c.entities))
	for id, e := range c.entities {
		out = append(out, e.guard(id))
	}
	return out
}

// HandleDiscoveryEvent is a discovery.Handler: it drives insertion,
// restart-triggered re-enumeration and removal of cache entries from
// the ADP discovery engine's events.
func (c *Cache) HandleDiscoveryEvent(ev discovery.Event) {
	switch ev.Kind {
	case discovery.EventAvailable:
		c.insert(ev.EntityID)
	case discovery.EventRestarted:
		c.remove(ev.EntityID, "remote restarted")
		c.insert(ev.EntityID)
	case discovery.EventAvailableUpdated:
		if e, ok := c.lookup(ev.EntityID); ok {
			identity := e.tree.Identity()
			identity.AvailableIndex = ev.PDU.AvailableIndex
			e.tree.SetIdentity(identity)
		}
	case discovery.EventDeparted:
		c.remove(ev.EntityID, "entity departed")
	case discovery.EventExpired:
		c.remove(ev.EntityID, "liveness timeout")
	}
}

func (c *Cache) lookup(entityID uint64) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[entityID]
	return e, ok
}

// insert creates a fresh, not-yet-advertised cache slot for entityID
// and kicks off asynchronous enumeration. A no-op if entityID is
// already cached (a duplicate ENTITY_AVAILABLE the discovery engine
// already folded into EventAvailableUpdated will not reach here).
func (c *Cache) insert(entityID uint64) {
	c.mu.Lock()
	if _, exists := c.entities[entityID]; exists {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{cancelEnum: cancel}
	c.entities[entityID] = e
	c.mu.Unlock()

	go c.enumerate(ctx, entityID, e)
}

func (c *Cache) enumerate(ctx context.Context, entityID uint64, e *entry) {
	ctx, cancel := context.WithTimeout(ctx, enumerationTimeout)
	defer cancel()

	engine := enum.New(c.transport, c.transport, c.logger)
	if model := c.modelCache(); model != nil {
		engine.UseSeed(model.Seed)
	}
	tree, err := engine.Enumerate(ctx, entityID)

	e.mu.Lock()
	if err != nil {
		e.enumerationError = true
		e.wasAdvertised = true
		e.mu.Unlock()
		c.log(avdecclog.LevelWarn, entityID, fmt.Sprintf("enumeration failed: %v", err))
		c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventEnumerationError, EntityID: entityID})
		return
	}
	e.tree = tree
	e.wasAdvertised = true
	e.mu.Unlock()

	if model := c.modelCache(); model != nil {
		entityModelID := uint64(tree.Identity().EntityModelID)
		activeIndex := tree.Dynamic().CurrentConfiguration
		if cfg, err := tree.ActiveConfiguration(); err == nil {
			if err := model.Store(entityModelID, activeIndex, cfg); err != nil {
				c.log(avdecclog.LevelWarn, entityID, "storing model cache snapshot: "+err.Error())
			}
		}
	}

	c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventEntityOnline, EntityID: entityID})
}

// remove deletes entityID's cache slot, cancels any in-flight
// enumeration, releases its command pipelines (completing every
// pending command with UnknownEntity) and, iff the entity had already
// been advertised, broadcasts onEntityOffline.
func (c *Cache) remove(entityID uint64, reason string) {
	c.mu.Lock()
	e, ok := c.entities[entityID]
	if ok {
		delete(c.entities, entityID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	e.cancelEnum()
	c.transport.Release(entityID)

	e.mu.RLock()
	wasAdvertised := e.wasAdvertised
	e.mu.RUnlock()

	c.log(avdecclog.LevelInfo, entityID, "removed: "+reason)
	if wasAdvertised {
		c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventEntityOffline, EntityID: entityID})
	}
}

// Purge explicitly removes entityID, as if it had departed. Exposed
// for the controller facade's own cache-invalidation operations.
func (c *Cache) Purge(entityID uint64) {
	c.remove(entityID, "explicit purge")
}

// acquireTransition applies the table in the acquire state machine
// (spec module 4.6) given the AEM status returned by an ACQUIRE_ENTITY
// command sent while in TryAcquire.
func acquireTransition(status avdeccstatus.AEMStatus) entitymodel.AcquireState {
	switch {
	case status.IsSuccess():
		return entitymodel.AcquireStateAcquired
	case status == avdeccstatus.AEMAcquiredByOther:
		return entitymodel.AcquireStateAcquiredByOther
	case status == avdeccstatus.AEMNotImplemented || status == avdeccstatus.AEMNotSupported:
		return entitymodel.AcquireStateNotAcquired
	default:
		return entitymodel.AcquireStateUndefined
	}
}

// BeginAcquire transitions entityID from NotAcquired to TryAcquire
// before the ACQUIRE_ENTITY command is sent. Reports false if the
// entity is unknown or not currently NotAcquired.
func (c *Cache) BeginAcquire(entityID uint64) bool {
	e, ok := c.lookup(entityID)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acquireState != entitymodel.AcquireStateNotAcquired {
		return false
	}
	e.acquireState = entitymodel.AcquireStateTryAcquire
	return true
}

// CompleteAcquire applies the acquire transition table for a resolved
// ACQUIRE_ENTITY command and broadcasts EventAcquireStateChanged.
// owningController is meaningful only when status is AcquiredByOther.
func (c *Cache) CompleteAcquire(entityID uint64, status avdeccstatus.AEMStatus, owningController entitymodel.UniqueIdentifier) entitymodel.AcquireState {
	e, ok := c.lookup(entityID)
	if !ok {
		return entitymodel.AcquireStateUndefined
	}
	next := acquireTransition(status)
	e.mu.Lock()
	e.acquireState = next
	if next == entitymodel.AcquireStateAcquiredByOther {
		e.owningController = owningController
	} else {
		e.owningController = entitymodel.NullUniqueIdentifier
	}
	e.mu.Unlock()

	c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventAcquireStateChanged, EntityID: entityID, Detail: next})
	return next
}

// CompleteRelease records a successful RELEASE_ENTITY, returning the
// entity to NotAcquired, and broadcasts EventAcquireStateChanged. A
// failed release leaves the cached state untouched, per the facade's
// "leave cache unchanged on non-success" contract.
func (c *Cache) CompleteRelease(entityID uint64, status avdeccstatus.AEMStatus) entitymodel.AcquireState {
	e, ok := c.lookup(entityID)
	if !ok {
		return entitymodel.AcquireStateUndefined
	}
	if !status.IsSuccess() {
		e.mu.RLock()
		cur := e.acquireState
		e.mu.RUnlock()
		return cur
	}
	e.mu.Lock()
	e.acquireState = entitymodel.AcquireStateNotAcquired
	e.owningController = entitymodel.NullUniqueIdentifier
	e.mu.Unlock()

	c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventAcquireStateChanged, EntityID: entityID, Detail: entitymodel.AcquireStateNotAcquired})
	return entitymodel.AcquireStateNotAcquired
}

// lockTransition mirrors acquireTransition for LOCK_ENTITY outcomes.
func lockTransition(status avdeccstatus.AEMStatus) entitymodel.LockState {
	switch {
	case status.IsSuccess():
		return entitymodel.LockStateLocked
	case status == avdeccstatus.AEMLockedByOther:
		return entitymodel.LockStateLockedByOther
	case status == avdeccstatus.AEMNotImplemented || status == avdeccstatus.AEMNotSupported:
		return entitymodel.LockStateNotLocked
	default:
		return entitymodel.LockStateUndefined
	}
}

// BeginLock transitions entityID from NotLocked to TryLock before the
// LOCK_ENTITY command is sent. Reports false if the entity is unknown
// or not currently NotLocked.
func (c *Cache) BeginLock(entityID uint64) bool {
	e, ok := c.lookup(entityID)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lockState != entitymodel.LockStateNotLocked {
		return false
	}
	e.lockState = entitymodel.LockStateTryLock
	return true
}

// CompleteLock applies the lock transition table for a resolved
// LOCK_ENTITY command and broadcasts EventLockStateChanged.
// lockingController is meaningful only when status is LockedByOther.
func (c *Cache) CompleteLock(entityID uint64, status avdeccstatus.AEMStatus, lockingController entitymodel.UniqueIdentifier) entitymodel.LockState {
	e, ok := c.lookup(entityID)
	if !ok {
		return entitymodel.LockStateUndefined
	}
	next := lockTransition(status)
	e.mu.Lock()
	e.lockState = next
	if next == entitymodel.LockStateLockedByOther {
		e.lockingController = lockingController
	} else {
		e.lockingController = entitymodel.NullUniqueIdentifier
	}
	e.mu.Unlock()

	c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventLockStateChanged, EntityID: entityID, Detail: next})
	return next
}

// CompleteUnlock records a successful UNLOCK_ENTITY, returning the
// entity to NotLocked, and broadcasts EventLockStateChanged. A failed
// unlock leaves the cached state untouched.
func (c *Cache) CompleteUnlock(entityID uint64, status avdeccstatus.AEMStatus) entitymodel.LockState {
	e, ok := c.lookup(entityID)
	if !ok {
		return entitymodel.LockStateUndefined
	}
	if !status.IsSuccess() {
		e.mu.RLock()
		cur := e.lockState
		e.mu.RUnlock()
		return cur
	}
	e.mu.Lock()
	e.lockState = entitymodel.LockStateNotLocked
	e.lockingController = entitymodel.NullUniqueIdentifier
	e.mu.Unlock()

	c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventLockStateChanged, EntityID: entityID, Detail: entitymodel.LockStateNotLocked})
	return entitymodel.LockStateNotLocked
}

// Mutate runs fn against entityID's EntityTree and, on success,
// broadcasts ev. Used by the controller
// facade so every successful control operation mutates the cache and
// notifies observers as one atomic-from-the-caller's-view step,
// without ever holding the cache lock while fn or the dispatch runs.
func (c *Cache) Mutate(entityID uint64, ev observerbus.EventKind, detail any, fn func(tree *entitymodel.EntityTree)) bool {
	e, ok := c.lookup(entityID)
	if !ok {
		return false
	}
	e.mu.RLock()
	tree := e.tree
	e.mu.RUnlock()
	if tree == nil {
		return false
	}
	fn(tree)
	c.bus.Dispatch(observerbus.Event{Kind: ev, EntityID: entityID, Detail: detail})
	return true
}
