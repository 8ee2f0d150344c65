package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but the file is missing or invalid, loading fails.
	ConfigPath string

	// FlagOverrides are CLI flag values that override config file values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr   *string
	StoreDriver  *string
	StoreDataDir *string
	CacheDriver  *string
	TLSMode      *string
	LoggingLevel *string
}

// Load loads configuration with the following precedence:
//  1. Start from defaults
//  2. Overlay TOML config file values
//  3. Overlay CLI flags
//  4. Validate enum fields
//
// Unknown TOML keys produce a warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &Config{}

	if opts.ConfigPath != "" {
		meta, err := toml.DecodeFile(opts.ConfigPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", opts.ConfigPath, err)
		}
		for _, key := range meta.Undecoded() {
			logger.Warn("unknown config key", "key", key.String())
		}
	}

	applyOverride := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}
	applyOverride(&cfg.ListenAddr, opts.FlagOverrides.ListenAddr)
	applyOverride(&cfg.Store.Driver, opts.FlagOverrides.StoreDriver)
	applyOverride(&cfg.Store.DataDir, opts.FlagOverrides.StoreDataDir)
	applyOverride(&cfg.Cache.Driver, opts.FlagOverrides.CacheDriver)
	applyOverride(&cfg.TLS.Mode, opts.FlagOverrides.TLSMode)
	applyOverride(&cfg.Logging.Level, opts.FlagOverrides.LoggingLevel)

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogLevel maps the configured level to a slog.Level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
