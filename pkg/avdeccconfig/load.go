package avdeccconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config's on-disk shape. Durations are accepted as
// YAML strings ("10s", "250ms") rather than Go's Duration integer form.
type yamlConfig struct {
	InterfaceName       string `yaml:"interface"`
	Backend             string `yaml:"backend"`
	PcapLibraryPath     string `yaml:"pcap_library_path"`
	ControllerEntityID  uint64 `yaml:"controller_entity_id"`
	ProgID              uint16 `yaml:"prog_id"`
	DiscoverInterval    string `yaml:"discover_interval"`
	AdvertiseEnabled    bool   `yaml:"advertise_enabled"`
	AdvertiseValidTime  string `yaml:"advertise_valid_time"`
	PresenceEnabled     bool   `yaml:"presence_enabled"`
	CommandTimeout      string `yaml:"command_timeout"`
	CommandRetries      int    `yaml:"command_retries"`
	DiskCachePath       string `yaml:"disk_cache_path"`
	LogLevel            string `yaml:"log_level"`
	ReleaseMode         bool   `yaml:"release_mode"`
}

// LoadFile reads and validates a Config from a YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("avdeccconfig: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes into a validated Config.
func Parse(data []byte) (Config, error) {
	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return Config{}, fmt.Errorf("avdeccconfig: parsing YAML: %w", err)
	}

	cfg := Config{
		InterfaceName:      y.InterfaceName,
		Backend:            InterfaceBackend(y.Backend),
		PcapLibraryPath:    y.PcapLibraryPath,
		ControllerEntityID: y.ControllerEntityID,
		ProgID:             y.ProgID,
		AdvertiseEnabled:   y.AdvertiseEnabled,
		PresenceEnabled:    y.PresenceEnabled,
		CommandRetries:     y.CommandRetries,
		DiskCachePath:      y.DiskCachePath,
		LogLevelName:       y.LogLevel,
		ReleaseMode:        y.ReleaseMode,
	}

	var err error
	if cfg.DiscoverInterval, err = parseDurationField("discover_interval", y.DiscoverInterval); err != nil {
		return Config{}, err
	}
	if cfg.AdvertiseValidTime, err = parseDurationField("advertise_valid_time", y.AdvertiseValidTime); err != nil {
		return Config{}, err
	}
	if cfg.CommandTimeout, err = parseDurationField("command_timeout", y.CommandTimeout); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDurationField(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("avdeccconfig: field %s: %w", field, err)
	}
	return d, nil
}
