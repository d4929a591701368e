// Package config loads the daemon's YAML configuration, following the
// teacher's proxy-validation UnmarshalYAML idiom so a malformed bus
// list or control endpoint is rejected at load time rather than at
// first use.
package config

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/redux-robotics/reduxfifo/internal/logging"
)

// BusConfig preconfigures one bus to open at startup, the way a fixed
// deployment (a RoboRIO with known SocketCAN/HAL channels) would
// rather than waiting for a client to call OpenBus.
type BusConfig struct {
	// Params is the bus address string, e.g. "socketcan:can0".
	Params string `yaml:"params"`
	// DefaultSessionCapacity sizes the ring buffer of any session
	// opened on this bus without an explicit capacity.
	DefaultSessionCapacity uint32 `yaml:"default_session_capacity"`
}

// ControlConfig configures the control-plane gRPC listener.
type ControlConfig struct {
	// Endpoint is the "host:port" the gRPC server listens on.
	Endpoint string `yaml:"endpoint"`
}

type Config config
type config struct {
	// Buses preconfigures buses opened at startup.
	Buses []BusConfig `yaml:"buses"`
	// Logging configures the structured logger.
	Logging logging.Config `yaml:"logging"`
	// Control configures the gRPC control-plane listener.
	Control ControlConfig `yaml:"control"`
	// MaxBuses bounds how many buses may be open concurrently; 0
	// means unbounded.
	MaxBuses int `yaml:"max_buses"`
}

// DefaultConfig returns the daemon's defaults: no preconfigured buses,
// info-level logging, and the control endpoint listening on the IPv6
// loopback address.
func DefaultConfig() *Config {
	return &Config{
		Buses: nil,
		Logging: logging.Config{
			Level: zapcore.InfoLevel,
		},
		Control: ControlConfig{
			Endpoint: "[::1]:8080",
		},
		MaxBuses: 0,
	}
}

// LoadConfig reads and validates the configuration at path, starting
// from DefaultConfig so unset fields keep their default.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}
	return cfg, nil
}

// UnmarshalYAML serves as a proxy for validation.
//
// To avoid infinite recursion, the validating wrapper casts itself to
// the private config struct. This lets the decoder populate it with
// the default struct-field behavior before Validate runs.
func (m *Config) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode((*config)(m)); err != nil {
		return err
	}
	return m.Validate()
}

// Validate rejects a bus with an empty params string or a zero
// session capacity, and an empty control endpoint.
func (m *Config) Validate() error {
	for i, b := range m.Buses {
		if b.Params == "" {
			return fmt.Errorf("bus %d: params must not be empty", i)
		}
		if b.DefaultSessionCapacity == 0 {
			return fmt.Errorf("bus %d (%s): default_session_capacity must be non-zero", i, b.Params)
		}
	}
	if m.Control.Endpoint == "" {
		return fmt.Errorf("control endpoint must not be empty")
	}
	return nil
}
