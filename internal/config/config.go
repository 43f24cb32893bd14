// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, and command-line flags, in that order of precedence.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	// Addr is the API listen address.
	Addr string `koanf:"addr"`
	// MetricsAddr is the observability listen address (empty = disabled).
	MetricsAddr string `koanf:"metrics_addr"`
}

// DatabaseConfig configures the PostgreSQL backing store.
type DatabaseConfig struct {
	// URL is the connection string. Empty selects the in-memory backing,
	// which is suitable only for development and tests.
	URL string `koanf:"url"`
}

// AuthConfig configures token lifetimes and session policy.
type AuthConfig struct {
	SessionTTL time.Duration `koanf:"session_ttl"`
	ResetTTL   time.Duration `koanf:"reset_ttl"`
	// SingleSession revokes all prior sessions for a user on each login.
	SingleSession bool `koanf:"single_session"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Format is "json" or "text".
	Format string `koanf:"format"`
}

// Default returns the configuration defaults. DATABASE_URL from the
// environment seeds the database URL so containerized deployments work
// without a config file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			MetricsAddr: "127.0.0.1:9100",
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
			ResetTTL:   15 * time.Minute,
		},
		Log: LogConfig{
			Format: "json",
		},
	}
}

// flagKeys maps command-line flag names to config keys. Only flags listed
// here participate in config loading.
var flagKeys = map[string]string{
	"addr":           "server.addr",
	"metrics-addr":   "server.metrics_addr",
	"database-url":   "database.url",
	"session-ttl":    "auth.session_ttl",
	"reset-ttl":      "auth.reset_ttl",
	"single-session": "auth.single_session",
	"log-format":     "log.format",
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then any changed flags from flags (if non-nil).
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_INVALID").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.Auth.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.ResetTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.reset_ttl must be positive")
	}
	return nil
}
