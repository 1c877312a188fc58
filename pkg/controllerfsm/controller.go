package controllerfsm

import (
	"context"
	"sync"
	"time"

	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// ProbeSender broadcasts whatever discovery-probe frame the caller
// uses to provoke ENTITY_AVAILABLE responses (typically ENTITY_DISCOVER).
type ProbeSender func(ctx context.Context) error

// Controller owns the local process's own AVDECC identity and its
// advertising on/off state.
type Controller struct {
	entityID      uint64
	entityModelID uint64
	progID        uint16

	mu          sync.Mutex
	advertising bool
	probeMatch  chan struct{}
}

// New derives this controller's entityID from mac and progID.
func New(mac entitymodel.MacAddress, progID uint16, entityModelID uint64) *Controller {
	return &Controller{
		entityID:      DeriveEntityID(mac, progID),
		entityModelID: entityModelID,
		progID:        progID,
	}
}

// NewWithEntityID is New with an explicit entityID, used when the
// caller's configuration pins a controller entity ID instead of
// letting it derive from the bound interface's MAC address.
func NewWithEntityID(entityID uint64, progID uint16, entityModelID uint64) *Controller {
	return &Controller{
		entityID:      entityID,
		entityModelID: entityModelID,
		progID:        progID,
	}
}

// EntityID returns this controller's own EUI-64 identity.
func (c *Controller) EntityID() uint64 {
	return c.entityID
}

// EntityModelID returns this controller's advertised entity model ID.
func (c *Controller) EntityModelID() uint64 {
	return c.entityModelID
}

// ProgID returns the program identifier used to derive EntityID.
func (c *Controller) ProgID() uint16 {
	return c.progID
}

// IsAdvertising reports whether this controller currently announces
// itself via ADP.
func (c *Controller) IsAdvertising() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advertising
}

// Observe is fed every decoded ADP PDU seen on the wire. During a
// probe window it watches for an ENTITY_AVAILABLE matching this
// controller's own entityID, meaning the derived ID is already taken.
func (c *Controller) Observe(pdu wire.ADPPDU) {
	if pdu.MessageType != wire.ADPEntityAvailable || pdu.EntityID != c.entityID {
		return
	}
	c.mu.Lock()
	ch := c.probeMatch
	c.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// EnableAdvertising runs the duplicate-ProgID probe and, if clear,
// turns advertising on. probe is called once to provoke any
// ENTITY_AVAILABLE response carrying this controller's own entityID;
// if one arrives within probeWindow, EnableAdvertising fails with
// ErrDuplicateProgID and advertising stays off. Synchronous: it blocks
// until the probe window elapses or a duplicate is detected.
func (c *Controller) EnableAdvertising(ctx context.Context, probe ProbeSender, probeWindow time.Duration) error {
	c.mu.Lock()
	if c.advertising {
		c.mu.Unlock()
		return nil
	}
	c.probeMatch = make(chan struct{}, 1)
	matchCh := c.probeMatch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.probeMatch = nil
		c.mu.Unlock()
	}()

	if err := probe(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(probeWindow)
	defer timer.Stop()
	select {
	case <-matchCh:
		return avdeccstatus.ErrDuplicateProgID
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	c.advertising = true
	c.mu.Unlock()
	return nil
}

// DisableAdvertising turns off ADP self-announcement. Idempotent.
func (c *Controller) DisableAdvertising() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advertising = false
}

// AdvertisementPDU renders the ADP PDU this controller announces
// itself with while advertising is enabled.
func (c *Controller) AdvertisementPDU(availableIndex uint32, validTime time.Duration) wire.ADPPDU {
	secs := int(validTime / time.Second)
	if secs < 1 {
		secs = 1
	}
	if secs > 62 {
		secs = 62
	}
	return wire.ADPPDU{
		MessageType:    wire.ADPEntityAvailable,
		ValidTime:      uint8(secs / 2),
		EntityID:       c.entityID,
		EntityModelID:  c.entityModelID,
		AvailableIndex: availableIndex,
		ControllerCapabilities: 0x00000001, // IMPLEMENTED, per 1722.1 Clause 6.2.1.17
	}
}
