// Package avdecc re-exports the controller facade at the module root,
// so callers can write avdecc.New(cfg) instead of reaching into
// pkg/controller directly. Everything else — entity model types,
// status taxonomies, wire codecs — stays in its own package; this
// file only aliases the one type applications are expected to hold
// onto for the lifetime of their process.
package avdecc

import (
	"github.com/i-n-g-o/avdecc/pkg/avdeccconfig"
	"github.com/i-n-g-o/avdecc/pkg/controller"
	"github.com/i-n-g-o/avdecc/pkg/protocolif"
)

// Controller is the library's public entry point. See pkg/controller
// for the full method set (control operations, stream connect/
// disconnect, observer registration, Close).
type Controller = controller.Controller

// Config is the full set of knobs a Controller is built from.
type Config = avdeccconfig.Config

// New builds a Controller bound to cfg.InterfaceName, opening the
// network backend cfg.Backend names.
func New(cfg Config) (*Controller, error) {
	return controller.New(cfg)
}

// NewWithInterface wires a Controller around an already-open
// ProtocolInterface, for injecting a test double such as
// pkg/protocolif/faketransport.
func NewWithInterface(cfg Config, pi protocolif.ProtocolInterface) (*Controller, error) {
	return controller.NewWithInterface(cfg, pi)
}

// DefaultConfig returns the library's default configuration.
func DefaultConfig() Config {
	return avdeccconfig.Default()
}
