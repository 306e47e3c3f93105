// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the bridge configuration.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

// Config holds all bridge configuration.
type Config struct {
	UART   UARTConfig   `yaml:"uart"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`

	// Limits tightens the writable range of individual fields below the
	// protocol bounds. Keys are field names.
	Limits map[string]FieldLimit `yaml:"limits"`
}

type UARTConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Enabled    bool   `yaml:"enabled"`
}

type StoreConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// FieldLimit is a user-supplied bound override for one writable field.
type FieldLimit struct {
	Max float64 `yaml:"max"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		UART: UARTConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 9600,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
			Enabled:    true,
		},
		Store: StoreConfig{
			Path:    "aquabridge.db",
			Enabled: false,
		},
	}
}

// Load reads the YAML config at path over the defaults, applies environment
// variable overrides and validates the result. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		log.Printf("[config] no config at %s, using defaults", path)
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		log.Printf("[config] loaded from %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides reads environment variables over the file values.
// Supported: UART_PORT, UART_BAUD, LISTEN_ADDR, STORE_PATH.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("UART_PORT"); v != "" {
		c.UART.Port = v
	}
	if v := os.Getenv("UART_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UART.BaudRate = n
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Validate checks the limit overrides against the protocol field tables. A
// user maximum may only tighten a field's range: the field must exist, be
// writable, and the override must fall inside the protocol bounds.
func (c *Config) Validate() error {
	if c.UART.Port == "" {
		return fmt.Errorf("uart.port must not be empty")
	}
	if c.UART.BaudRate <= 0 {
		return fmt.Errorf("uart.baud_rate must be positive, got %d", c.UART.BaudRate)
	}

	for name, limit := range c.Limits {
		f, ok := aquarea.FieldByName(aquarea.StandardFields, name)
		if !ok {
			f, ok = aquarea.FieldByName(aquarea.ExtraFields, name)
		}
		if !ok {
			return fmt.Errorf("limits: unknown field %q", name)
		}
		if !f.Writable {
			return fmt.Errorf("limits: field %q is not writable", name)
		}
		if limit.Max > f.Max {
			return fmt.Errorf("limits: max %v for %q exceeds protocol maximum %v",
				limit.Max, name, f.Max)
		}
		if limit.Max < f.Min {
			return fmt.Errorf("limits: max %v for %q is below protocol minimum %v",
				limit.Max, name, f.Min)
		}
	}
	return nil
}

// MaxOverrides flattens the limits into the per-field maximum map the codec
// consumes.
func (c *Config) MaxOverrides() map[string]float64 {
	if len(c.Limits) == 0 {
		return nil
	}
	out := make(map[string]float64, len(c.Limits))
	for name, limit := range c.Limits {
		out[name] = limit.Max
	}
	return out
}
