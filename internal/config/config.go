// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
)

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on. Example: ":9300"
	ListenAddr string `toml:"listen_addr"`

	// Store holds document store settings.
	Store StoreConfig `toml:"store"`

	// Cache holds resolution-index cache settings.
	Cache CacheConfig `toml:"cache"`

	// Registry holds item registry client settings.
	Registry RegistryConfig `toml:"registry"`

	// Sinks maps sink names to their raw config tables.
	// Each sink decodes its own table. Example: [sinks.gateway] ...
	Sinks map[string]map[string]any `toml:"sinks"`

	// TLS configuration.
	TLS TLSConfig `toml:"tls"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	// Driver is the store driver name: "json" (default) or "sqlite".
	Driver string `toml:"driver"`

	// DataDir is the directory holding the driver's files.
	DataDir string `toml:"data_dir"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	// Driver is the cache driver name: "memory" (default).
	Driver string `toml:"driver"`

	// Drivers holds per-driver configuration.
	// Example: [cache.drivers.memory] default_ttl_seconds = 300
	Drivers map[string]map[string]any `toml:"drivers"`
}

// RegistryConfig holds item registry client settings.
type RegistryConfig struct {
	// BaseURL is the registry endpoint. Empty disables the HTTP client and
	// items cannot be validated against ownership.
	BaseURL string `toml:"base_url"`

	// TimeoutMS is the per-lookup timeout in milliseconds. Default: 5000.
	TimeoutMS int `toml:"timeout_ms"`
}

// TLSConfig holds TLS settings.
type TLSConfig struct {
	// Mode is "off" (default) or "static".
	Mode string `toml:"mode"`

	// CertFile and KeyFile are required in static mode.
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: info.
	Level string `toml:"level"`
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9300"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "json"
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = "data"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Registry.TimeoutMS == 0 {
		c.Registry.TimeoutMS = 5000
	}
	if c.TLS.Mode == "" {
		c.TLS.Mode = "off"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks enum fields and required combinations.
func (c *Config) Validate() error {
	switch c.TLS.Mode {
	case "off":
	case "static":
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.mode=static requires cert_file and key_file")
		}
	default:
		return fmt.Errorf("invalid tls.mode %q: must be off or static", c.TLS.Mode)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}
