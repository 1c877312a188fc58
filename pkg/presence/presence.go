// Package presence advertises a running controller process over mDNS,
// independent of the AVDECC/ADP advertisement the entity model itself
// carries. It exists so a management UI or a fleet of controllers can
// find each other on the LAN without speaking AVTP.
package presence

import (
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// ServiceType is the mDNS service type a controller process registers
// itself under.
const ServiceType = "_avdecc-controller._tcp"

// Domain is the mDNS domain services are registered in.
const Domain = "local."

// Info describes the controller instance being advertised.
type Info struct {
	// InstanceName is the mDNS instance label, e.g. the hostname or a
	// user-chosen controller name. Must be unique on the segment.
	InstanceName string
	// Port is the port a management client can reach this process on.
	// Zero is valid: it means the process offers no reachable service
	// of its own, only presence.
	Port int
	// EntityID is this controller's own AVDECC identity, published as
	// a TXT record so a client can correlate the mDNS record back to
	// the ADP advertisement (if any) from the same process.
	EntityID uint64
	// InterfaceName restricts advertisement to one network interface.
	// Empty means every interface.
	InterfaceName string
}

// Advertiser registers and retracts one mDNS service record for a
// controller process. The zero value is ready to use.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// Start registers info's service record. Stops and replaces any
// previously registered record.
func (a *Advertiser) Start(info Info) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	txt := []string{fmt.Sprintf("entity_id=%016X", info.EntityID)}

	var ifaces []net.Interface
	if info.InterfaceName != "" {
		iface, err := net.InterfaceByName(info.InterfaceName)
		if err != nil {
			return fmt.Errorf("presence: resolving interface %q: %w", info.InterfaceName, err)
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(info.InstanceName, ServiceType, Domain, info.Port, txt, ifaces)
	if err != nil {
		return fmt.Errorf("presence: registering mDNS service: %w", err)
	}
	a.server = server
	return nil
}

// Stop retracts the advertised record. Idempotent.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
