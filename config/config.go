// Package config loads the dump tool's settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/croixa/astrix/errs"
)

// Config represents the astrixdump configuration.
type Config struct {
	// Definitions settings
	Definitions struct {
		Manifest string `toml:"manifest"` // path to the definitions manifest
	} `toml:"definitions"`

	// Input settings
	Input struct {
		Framing string `toml:"framing"` // raw, pcap or final
	} `toml:"input"`

	// Output settings
	Output struct {
		Format string `toml:"format"` // text, line, json, jsonh, jsone, xml, xmlh
		File   string `toml:"file"`   // empty writes to stdout
	} `toml:"output"`

	// Filters suppress selected fields from the output
	Filters []FilterEntry `toml:"filter"`
}

// FilterEntry names one suppressed item or field.
type FilterEntry struct {
	Category int    `toml:"category"`
	Item     string `toml:"item"`
	Field    string `toml:"field"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Definitions.Manifest = "config/asterix.ini"
	cfg.Input.Framing = "raw"
	cfg.Output.Format = "text"

	return cfg
}

// Load reads a configuration file, overlaying the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %v: %w", path, err, errs.ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDefault looks for astrix.toml in the working directory and then under
// the user config directory, returning defaults when neither exists.
func LoadDefault() (*Config, error) {
	candidates := []string{"astrix.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "astrix", "config.toml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return DefaultConfig(), nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Input.Framing {
	case "raw", "pcap", "final":
	default:
		return fmt.Errorf("unknown input framing %q: %w", c.Input.Framing, errs.ErrConfig)
	}

	switch c.Output.Format {
	case "text", "line", "json", "jsonh", "jsone", "xml", "xmlh":
	default:
		return fmt.Errorf("unknown output format %q: %w", c.Output.Format, errs.ErrConfig)
	}

	for _, f := range c.Filters {
		if f.Category < 1 || f.Category > 255 {
			return fmt.Errorf("filter category %d outside 1..255: %w", f.Category, errs.ErrConfig)
		}
		if f.Item == "" {
			return fmt.Errorf("filter for category %d names no item: %w", f.Category, errs.ErrConfig)
		}
	}

	return nil
}
