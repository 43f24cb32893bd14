// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("addr", "127.0.0.1:8080", "")
	f.String("metrics-addr", "127.0.0.1:9100", "")
	f.String("database-url", "", "")
	f.Duration("session-ttl", 24*time.Hour, "")
	f.Duration("reset-ttl", 15*time.Minute, "")
	f.Bool("single-session", false, "")
	f.String("log-format", "json", "")
	return f
}

func TestDefault(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg := config.Default()
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.MetricsAddr)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTTL)
	assert.False(t, cfg.Auth.SingleSession)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Run("DATABASE_URL seeds the database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://env/db")
		assert.Equal(t, "postgres://env/db", config.Default().Database.URL)
	})
}

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	t.Run("defaults only", func(t *testing.T) {
		cfg, err := config.Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: "0.0.0.0:9000"
auth:
  session_ttl: 1h
  single_session: true
log:
  format: text
`)
		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
		assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
		assert.True(t, cfg.Auth.SingleSession)
		assert.Equal(t, "text", cfg.Log.Format)
		// Untouched keys keep their defaults
		assert.Equal(t, "127.0.0.1:9100", cfg.Server.MetricsAddr)
		assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTTL)
	})

	t.Run("changed flags override the file", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: "0.0.0.0:9000"
`)
		flags := newFlags()
		require.NoError(t, flags.Parse([]string{"--addr", "0.0.0.0:7777", "--single-session"}))

		cfg, err := config.Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:7777", cfg.Server.Addr)
		assert.True(t, cfg.Auth.SingleSession)
	})

	t.Run("unchanged flags do not override the file", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: "0.0.0.0:9000"
`)
		cfg, err := config.Load(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "server: [not: a map")
		_, err := config.Load(path, nil)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "empty addr",
			mutate:  func(c *config.Config) { c.Server.Addr = "" },
			wantErr: "server.addr is required",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *config.Config) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
		{
			name:    "zero session ttl",
			mutate:  func(c *config.Config) { c.Auth.SessionTTL = 0 },
			wantErr: "session_ttl",
		},
		{
			name:    "negative reset ttl",
			mutate:  func(c *config.Config) { c.Auth.ResetTTL = -time.Minute },
			wantErr: "reset_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
