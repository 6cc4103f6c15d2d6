// Package config loads a world's static configuration: its schema file
// path, fixed-update tick rate, and networking role. Grounded on the
// teacher's config surface in spirit (centralized, defaulted
// configuration) but loaded from a YAML document via gopkg.in/yaml.v3
// rather than environment variables, since this runtime's configuration
// is a build artifact (which schema, which timelines) rather than deploy-
// time server settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorldConfig is the static configuration a world is constructed from.
type WorldConfig struct {
	// SchemaPath points at the codegen YAML schema describing this
	// world's components, systems and messages.
	SchemaPath string `yaml:"schema_path"`

	// FixedUpdateHz is the fixed-update timeline's tick rate.
	FixedUpdateHz float64 `yaml:"fixed_update_hz"`

	// NetworkRole names the process's networking role ("standalone",
	// "host" or "client"). It is loaded and validated here only; nothing
	// in this module reads it to choose a Transport.
	NetworkRole string `yaml:"network_role"`
}

// DefaultWorldConfig returns the configuration a world uses when none is
// supplied: single-process, 60Hz fixed update.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		FixedUpdateHz: 60,
		NetworkRole:   "standalone",
	}
}

// FixedUpdateInterval returns the fixed-update timeline's tick period.
func (c WorldConfig) FixedUpdateInterval() time.Duration {
	if c.FixedUpdateHz <= 0 {
		return time.Second / 60
	}
	return time.Duration(float64(time.Second) / c.FixedUpdateHz)
}

// Load reads and parses a WorldConfig from the YAML document at path,
// filling unset fields from DefaultWorldConfig.
func Load(path string) (WorldConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return WorldConfig{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultWorldConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return WorldConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
