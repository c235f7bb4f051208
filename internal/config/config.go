// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/thanhle/paperbroker/internal/types"
)

// Config is the full application configuration.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Store    StoreConfig    `yaml:"store"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Alerting AlertingConfig `yaml:"alerting"`
}

// AccountConfig holds the simulated account settings.
type AccountConfig struct {
	ID             string  `yaml:"id"`
	StartingEquity float64 `yaml:"starting_equity"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SweepConfig holds resting-order sweep settings.
type SweepConfig struct {
	IntervalSec int    `yaml:"interval_sec"`
	RatePerSec  int    `yaml:"rate_per_sec"`
	PricesPath  string `yaml:"prices_path"`
}

// MetricsConfig holds metrics server settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// AlertingConfig holds alerting settings.
type AlertingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load loads configuration from a YAML file, expanding environment
// variables first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration, collecting every violation.
func (c *Config) Validate() error {
	var errs []string

	if c.Account.ID == "" {
		errs = append(errs, "account.id is required")
	}
	if c.Account.StartingEquity <= 0 {
		errs = append(errs, "account.starting_equity must be positive")
	}
	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}
	if c.Sweep.IntervalSec <= 0 {
		c.Sweep.IntervalSec = 5 // default
	}
	if c.Sweep.RatePerSec <= 0 {
		c.Sweep.RatePerSec = 1 // default
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errs = append(errs, "metrics.port must be a valid port")
		}
		if c.Metrics.Path == "" {
			c.Metrics.Path = "/metrics"
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}

	return nil
}

// StartingEquityDecimal returns starting equity as a decimal.
func (c *Config) StartingEquityDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Account.StartingEquity)
}

// SweepInterval returns the resting-order sweep interval.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalSec) * time.Second
}
