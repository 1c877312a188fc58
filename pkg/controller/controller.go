// Package controller assembles the discovery engine, the entity
// cache, the command transport and this process's own AVDECC identity
// into the single facade applications drive: one Controller per bound
// network interface.
package controller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i-n-g-o/avdecc/pkg/avdeccconfig"
	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/controllerfsm"
	"github.com/i-n-g-o/avdecc/pkg/discovery"
	"github.com/i-n-g-o/avdecc/pkg/entitycache"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/observerbus"
	"github.com/i-n-g-o/avdecc/pkg/presence"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/framedemux"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/pcap"
	"github.com/i-n-g-o/avdecc/pkg/protocolif/rawsocket"
	"github.com/i-n-g-o/avdecc/pkg/wire"
)

// workQueueDepth bounds the event loop's work channel. It must stay
// deep enough that a user callback reentering the facade from the
// loop goroutine itself never blocks on its own queue.
const workQueueDepth = 1024

// probeWindow is how long EnableAdvertising waits for a duplicate
// ProgID response before declaring the derived entityID clear.
const probeWindow = 500 * time.Millisecond

// Controller is the library's public entry point: it owns one bound
// ProtocolInterface, the entities discovered through it, and this
// process's own advertised AVDECC identity.
type Controller struct {
	cfg avdeccconfig.Config

	pi        protocolif.ProtocolInterface
	demux     *framedemux.Demux
	transport *entitycache.Transport
	cache     *entitycache.Cache
	bus       *observerbus.Bus
	identity  *controllerfsm.Controller
	discovery *discovery.Engine
	presence  presence.Advertiser
	logger    avdecclog.Logger

	cmdCtx    context.Context
	cmdCancel context.CancelFunc

	workCh     chan func()
	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopWg     sync.WaitGroup

	advertiseValidTime time.Duration
	advIndex           atomic.Uint32

	closed    atomic.Bool
	closeOnce sync.Once
}

// New builds a Controller from cfg alone, opening the network backend
// cfg.Backend names (falling back from pcap to raw sockets per the
// capability-probe design, see openBackend). Use NewWithInterface to
// inject a test double or an already-open ProtocolInterface instead.
func New(cfg avdeccconfig.Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pi, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewWithInterface(cfg, pi)
	if err != nil {
		pi.Close()
		return nil, err
	}
	return c, nil
}

// openBackend resolves cfg.Backend to a concrete ProtocolInterface.
// The pcap backend is a capability probe: if dynamic loading or the
// live-capture handle fails, the controller silently falls back to
// raw sockets and only surfaces InterfaceOpenError if both fail.
func openBackend(cfg avdeccconfig.Config) (protocolif.ProtocolInterface, error) {
	switch cfg.Backend {
	case avdeccconfig.BackendPcap:
		if pi, err := pcap.OpenWithLibrary(cfg.InterfaceName, cfg.PcapLibraryPath); err == nil {
			return pi, nil
		}
		pi, err := rawsocket.Open(cfg.InterfaceName)
		if err != nil {
			return nil, fmt.Errorf("%w: pcap backend unavailable and raw-socket fallback failed: %v", avdeccstatus.ErrInterfaceOpenError, err)
		}
		return pi, nil
	case avdeccconfig.BackendRawSocket:
		return rawsocket.Open(cfg.InterfaceName)
	case avdeccconfig.BackendFake:
		return nil, fmt.Errorf("%w: fake backend requires NewWithInterface", avdeccstatus.ErrInvalidProtocolInterfaceType)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", avdeccstatus.ErrInvalidProtocolInterfaceType, cfg.Backend)
	}
}

// NewWithInterface wires a Controller around an already-open
// ProtocolInterface, used both by New and directly by callers
// supplying a test double (pkg/protocolif/faketransport) or a backend
// New does not know how to open.
func NewWithInterface(cfg avdeccconfig.Config, pi protocolif.ProtocolInterface) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := avdecclog.Logger(avdecclog.NoopLogger{})
	if cfg.LogLevel != avdecclog.LevelNone {
		registry := avdecclog.NewRegistry()
		registry.SetLevel(cfg.LogLevel)
		registry.SetReleaseMode(cfg.ReleaseMode)
		logger = registry
	}

	demux := framedemux.Wrap(pi)

	var entityID uint64
	if cfg.ControllerEntityID != 0 {
		entityID = cfg.ControllerEntityID
	} else {
		entityID = controllerfsm.DeriveEntityID(pi.LocalMAC(), cfg.ProgID)
	}
	identity := controllerfsm.NewWithEntityID(entityID, cfg.ProgID, cfg.EntityModelID)

	transport := entitycache.NewTransport(demux, identity.EntityID(), logger)
	transport.SetCommandTiming(cfg.CommandTimeout, cfg.CommandRetries)

	bus := observerbus.New(logger)
	cache := entitycache.New(transport, bus, logger)
	if cfg.DiskCachePath != "" {
		if err := cache.EnableEntityModelCache(cfg.DiskCachePath); err != nil {
			return nil, fmt.Errorf("controller: enabling entity model disk cache: %w", err)
		}
	}

	engine := discovery.New(demux, cfg.DiscoverInterval, cache.HandleDiscoveryEvent, logger)

	cmdCtx, cmdCancel := context.WithCancel(context.Background())
	loopCtx, loopCancel := context.WithCancel(context.Background())

	c := &Controller{
		cfg:                cfg,
		pi:                 pi,
		demux:              demux,
		transport:          transport,
		cache:              cache,
		bus:                bus,
		identity:           identity,
		discovery:          engine,
		logger:             logger,
		cmdCtx:             cmdCtx,
		cmdCancel:          cmdCancel,
		workCh:             make(chan func(), workQueueDepth),
		loopCtx:            loopCtx,
		loopCancel:         loopCancel,
		advertiseValidTime: cfg.AdvertiseValidTime,
	}

	demux.OnFrame(c.observeADP)

	c.loopWg.Add(1)
	go c.runLoop()

	if err := engine.Start(loopCtx); err != nil {
		c.Close()
		return nil, err
	}

	if cfg.AdvertiseEnabled {
		if err := identity.EnableAdvertising(loopCtx, c.sendDiscoverProbe, probeWindow); err != nil {
			c.Close()
			return nil, err
		}
		if err := c.broadcastAdvertisement(loopCtx); err != nil {
			c.Close()
			return nil, err
		}
		c.loopWg.Add(1)
		go c.advertiseLoop()
	}

	if cfg.PresenceEnabled {
		info := presence.Info{
			InstanceName:  fmt.Sprintf("avdecc-%016X", c.identity.EntityID()),
			EntityID:      c.identity.EntityID(),
			InterfaceName: cfg.InterfaceName,
		}
		if err := c.presence.Start(info); err != nil {
			c.logger.Log(avdecclog.NewEvent(avdecclog.LevelWarn, avdecclog.LayerGeneric, "", "",
				"presence advertisement failed to start: "+err.Error()))
		}
	}

	return c, nil
}

// observeADP feeds every decoded ADP PDU to this controller's own
// identity state machine, which only acts on it during a probe window,
// and answers an incoming ENTITY_DISCOVER with this controller's own
// advertisement while advertising is enabled.
func (c *Controller) observeADP(f protocolif.Frame) {
	hdr, err := wire.DecodeCommonHeader(f.Payload)
	if err != nil || hdr.Subtype != wire.SubtypeADP {
		return
	}
	pdu, err := wire.DecodeADP(f.Payload)
	if err != nil {
		return
	}
	c.identity.Observe(pdu)

	if pdu.MessageType == wire.ADPEntityDiscover && c.identity.IsAdvertising() {
		if err := c.broadcastAdvertisement(c.loopCtx); err != nil {
			c.logger.Log(avdecclog.NewEvent(avdecclog.LevelWarn, avdecclog.LayerProtocolInterface, "", "",
				"advertising: ENTITY_AVAILABLE response to ENTITY_DISCOVER failed: "+err.Error()))
		}
	}
}

func (c *Controller) sendDiscoverProbe(ctx context.Context) error {
	pdu := wire.ADPPDU{MessageType: wire.ADPEntityDiscover, EntityID: c.identity.EntityID()}
	return c.pi.Send(ctx, protocolif.AvdeccMulticastMAC, pdu.Encode())
}

// broadcastAdvertisement sends one ENTITY_AVAILABLE for this
// controller's own identity, with a fresh, monotonically increasing
// available_index.
func (c *Controller) broadcastAdvertisement(ctx context.Context) error {
	index := c.advIndex.Add(1) - 1
	pdu := c.identity.AdvertisementPDU(index, c.advertiseValidTime)
	return c.pi.Send(ctx, protocolif.AvdeccMulticastMAC, pdu.Encode())
}

// advertiseLoop re-broadcasts ENTITY_AVAILABLE at half the advertised
// valid_time, so a listener's liveness timer never lapses between
// renewals under normal network conditions.
func (c *Controller) advertiseLoop() {
	defer c.loopWg.Done()
	interval := c.advertiseValidTime / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !c.identity.IsAdvertising() {
				continue
			}
			if err := c.broadcastAdvertisement(c.loopCtx); err != nil {
				c.logger.Log(avdecclog.NewEvent(avdecclog.LevelWarn, avdecclog.LayerProtocolInterface, "", "",
					"advertising: periodic ENTITY_AVAILABLE send failed: "+err.Error()))
			}
		case <-c.loopCtx.Done():
			return
		}
	}
}

// EntityID returns this controller's own EUI-64 identity.
func (c *Controller) EntityID() uint64 {
	return c.identity.EntityID()
}

// Cache exposes the read-only controlled-entity registry, for callers
// that need to inspect state outside a control operation's callback.
func (c *Controller) Cache() *entitycache.Cache {
	return c.cache
}

// Observers exposes the bus so callers can Register/Unregister.
func (c *Controller) Observers() *observerbus.Bus {
	return c.bus
}

// post enqueues job to run on the event loop goroutine. Buffered deep
// enough that calling it from within the loop goroutine itself (a
// user callback re-entering the facade) never blocks the loop on its
// own queue.
func (c *Controller) post(job func()) {
	select {
	case c.workCh <- job:
	case <-c.loopCtx.Done():
	}
}

func (c *Controller) runLoop() {
	defer c.loopWg.Done()
	for {
		select {
		case <-c.loopCtx.Done():
			return
		case job := <-c.workCh:
			job()
		}
	}
}

// Close stops discovery, cancels every pending command issued through
// this facade, releases entities this controller holds Acquired on a
// best-effort basis, closes the network interface and finally drains
// observers with onEntityOffline for every entity that was advertised
// at the time of the call. Idempotent.
func (c *Controller) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.presence.Stop()
		c.discovery.Stop()
		c.identity.DisableAdvertising()

		c.cmdCancel()

		c.releaseAcquiredBestEffort()

		closeErr = c.pi.Close()

		for _, g := range c.cache.Snapshot() {
			if g.WasAdvertised {
				c.bus.Dispatch(observerbus.Event{Kind: observerbus.EventEntityOffline, EntityID: g.EntityID})
			}
		}

		c.loopCancel()
		c.loopWg.Wait()
	})
	return closeErr
}

func (c *Controller) releaseAcquiredBestEffort() {
	for _, g := range c.cache.Snapshot() {
		if g.AcquireState != entitymodel.AcquireStateAcquired {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CommandTimeout)
		payload := wire.AcquireEntityPayload{
			Flags:         wire.AcquireEntityRelease,
			OwnerEntityID: c.identity.EntityID(),
		}.Encode()
		c.transport.SendAEM(ctx, g.EntityID, wire.AECPAcquireEntity, payload)
		cancel()
	}
}
