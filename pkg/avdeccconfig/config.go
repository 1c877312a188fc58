package avdeccconfig

import (
	"fmt"
	"time"

	"github.com/i-n-g-o/avdecc/pkg/avdecclog"
)

// InterfaceBackend selects which ProtocolInterface implementation a
// controller binds to.
type InterfaceBackend string

const (
	BackendRawSocket InterfaceBackend = "rawsocket"
	BackendPcap      InterfaceBackend = "pcap"
	BackendFake      InterfaceBackend = "fake"
)

// Config is the full set of knobs a Controller is built from.
type Config struct {
	// InterfaceName is the network interface to bind to, e.g. "eth0".
	InterfaceName string `yaml:"interface"`

	// Backend selects the ProtocolInterface implementation.
	Backend InterfaceBackend `yaml:"backend"`

	// PcapLibraryPath overrides the dynamic library search path used
	// by the pcap backend. Empty means use the platform default names.
	PcapLibraryPath string `yaml:"pcap_library_path"`

	// ControllerEntityID is this controller's own EUI-64 identity. If
	// zero, one is derived from the bound interface's MAC address and
	// ProgID at startup.
	ControllerEntityID uint64 `yaml:"controller_entity_id"`

	// ProgID disambiguates multiple controller instances sharing a MAC
	// address, per the EUI-64 derivation scheme.
	ProgID uint16 `yaml:"prog_id"`

	// EntityModelID is the entity model ID this controller advertises
	// for itself when AdvertiseEnabled is set. If zero, a library
	// default is used.
	EntityModelID uint64 `yaml:"entity_model_id"`

	// DiscoverInterval is how often ENTITY_DISCOVER is broadcast.
	DiscoverInterval time.Duration `yaml:"discover_interval"`

	// AdvertiseEnabled turns on ENTITY_AVAILABLE broadcasting for this
	// controller as a discoverable AVDECC entity in its own right.
	AdvertiseEnabled bool `yaml:"advertise_enabled"`

	// AdvertiseValidTime is the ADP valid_time advertised, in seconds.
	// Validate rejects values outside [2s,124s]; the advertisement caps
	// it at 62 seconds and carries seconds/2 in the 5-bit wire field.
	AdvertiseValidTime time.Duration `yaml:"advertise_valid_time"`

	// PresenceEnabled turns on mDNS advertisement of the controller
	// process itself, independent of AVDECC/ADP.
	PresenceEnabled bool `yaml:"presence_enabled"`

	// CommandTimeout is the per-attempt AECP/ACMP response deadline.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// CommandRetries is the number of retransmissions attempted after
	// the first send before a command fails with TimedOut.
	CommandRetries int `yaml:"command_retries"`

	// DiskCachePath, if non-empty, persists enumerated entity models
	// across restarts, keyed by EntityModelID and configuration index,
	// so a reconnecting entity skips the static descriptor walk when its
	// configuration's descriptor counts are unchanged.
	DiskCachePath string `yaml:"disk_cache_path"`

	// LogLevel is the minimum avdecclog.Level the controller's log
	// registry passes on to its sinks; LevelNone disables logging.
	LogLevel avdecclog.Level `yaml:"-"`

	// LogLevelName is the YAML-facing string form of LogLevel.
	LogLevelName string `yaml:"log_level"`

	// ReleaseMode, when true, promotes Trace/Debug log events to Info
	// before the level gate, matching field-deployment log verbosity.
	ReleaseMode bool `yaml:"release_mode"`
}

// Default returns a Config mirroring the reference implementation's
// defaults: a 10 second rediscovery interval, a single retry at a
// 250ms base timeout, and advertising/presence disabled.
func Default() Config {
	return Config{
		Backend:             BackendRawSocket,
		DiscoverInterval:    10 * time.Second,
		AdvertiseEnabled:    false,
		AdvertiseValidTime:  60 * time.Second,
		EntityModelID:       DefaultEntityModelID,
		PresenceEnabled:     false,
		CommandTimeout:      250 * time.Millisecond,
		CommandRetries:      1,
		LogLevel:            avdecclog.LevelInfo,
		LogLevelName:        "info",
	}
}

// DefaultEntityModelID is advertised by a controller whose
// configuration leaves EntityModelID unset.
const DefaultEntityModelID uint64 = 0x001B21FFFE000001

// Validate fills in any field left at its zero value with the matching
// Default() value and rejects impossible combinations.
func (c *Config) Validate() error {
	def := Default()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.DiscoverInterval <= 0 {
		c.DiscoverInterval = def.DiscoverInterval
	}
	if c.AdvertiseValidTime <= 0 {
		c.AdvertiseValidTime = def.AdvertiseValidTime
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = def.CommandTimeout
	}
	if c.CommandRetries <= 0 {
		c.CommandRetries = def.CommandRetries
	}
	if c.EntityModelID == 0 {
		c.EntityModelID = def.EntityModelID
	}
	if c.LogLevelName == "" {
		c.LogLevelName = def.LogLevelName
	}
	level, err := parseLevel(c.LogLevelName)
	if err != nil {
		return err
	}
	c.LogLevel = level

	switch c.Backend {
	case BackendRawSocket, BackendPcap, BackendFake:
	default:
		return fmt.Errorf("avdeccconfig: unknown backend %q", c.Backend)
	}
	if c.Backend != BackendFake && c.InterfaceName == "" {
		return fmt.Errorf("avdeccconfig: interface name is required for backend %q", c.Backend)
	}
	if c.AdvertiseValidTime < 2*time.Second || c.AdvertiseValidTime > 124*time.Second {
		return fmt.Errorf("avdeccconfig: advertise_valid_time must be within [2s,124s], got %s", c.AdvertiseValidTime)
	}
	return nil
}

func parseLevel(name string) (avdecclog.Level, error) {
	switch name {
	case "trace":
		return avdecclog.LevelTrace, nil
	case "debug":
		return avdecclog.LevelDebug, nil
	case "info":
		return avdecclog.LevelInfo, nil
	case "warn":
		return avdecclog.LevelWarn, nil
	case "error":
		return avdecclog.LevelError, nil
	case "none":
		return avdecclog.LevelNone, nil
	default:
		return 0, fmt.Errorf("avdeccconfig: unknown log level %q", name)
	}
}
