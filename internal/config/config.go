// Package config loads jobboss settings.
//
// Precedence, lowest first: built-in defaults, the YAML file named by
// --config, JOBBOSS_* environment variables, then explicit command flags
// (applied by the cli package).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds one HTTP exchange with the bridge.
const DefaultTimeout = 30 * time.Second

// Config holds settings shared by every command.
type Config struct {
	// Endpoint is the base URL of the bridge host.
	Endpoint string `yaml:"endpoint" env:"JOBBOSS_ENDPOINT"`

	User     string `yaml:"user" env:"JOBBOSS_USER"`
	Password string `yaml:"password" env:"JOBBOSS_PASSWORD"`

	// Reason is the cause code for adjustments. Empty means the command's
	// own default.
	Reason string `yaml:"reason" env:"JOBBOSS_REASON"`

	// Timeout applies to the HTTP transport only.
	Timeout time.Duration `yaml:"timeout" env:"JOBBOSS_TIMEOUT"`

	// Journal is an optional SQLite run journal path.
	Journal string `yaml:"journal" env:"JOBBOSS_JOURNAL"`

	// MetricsTextfile is an optional Prometheus text file path.
	MetricsTextfile string `yaml:"metrics_textfile" env:"JOBBOSS_METRICS_TEXTFILE"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{Timeout: DefaultTimeout}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that no layer may set.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("invalid config: timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
