package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, cfg any) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	conf := cfg.QuicConfig()
	require.Equal(t, 30*time.Second, conf.MaxIdleTimeout)
	require.Equal(t, uint64(4), conf.ActiveConnectionIDLimit)
	require.True(t, conf.AllowPeerMigration)
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfigFile(t, map[string]any{
		"server": map[string]any{"addr": "127.0.0.1:4433"},
		"client": map[string]any{"migrate": false},
		"connection": map[string]any{
			"max_idle_timeout":  "10s",
			"keep_alive_period": "2s",
			"disable_ecn":       true,
		},
		"qlog":    map[string]any{"dir": "/tmp/qlog"},
		"message": "foobar",
	})
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:4433", cfg.Server.Addr)
	require.False(t, cfg.Client.Migrate)
	// not set in the file
	require.Equal(t, "127.0.0.1:0", cfg.Client.MigrateAddr)
	require.Equal(t, 10*time.Second, cfg.Connection.MaxIdleTimeout)
	require.Equal(t, 2*time.Second, cfg.Connection.KeepAlivePeriod)
	require.Equal(t, 5*time.Second, cfg.Connection.HandshakeIdleTimeout)
	require.True(t, cfg.Connection.DisableECN)
	require.Equal(t, "/tmp/qlog", cfg.Qlog.Dir)
	require.Equal(t, "foobar", cfg.Message)
}

func TestLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Client.MigrateAddr = "127.0.0.1:6121"
	cfg.Connection.KeepAlivePeriod = 1500 * time.Millisecond
	cfg.Connection.DisableKeyUpdate = true

	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, cfg))
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUICCONN_CLIENT__MIGRATE_ADDR", "127.0.0.1:7000")
	t.Setenv("QUICCONN_CONNECTION__MAX_IDLE_TIMEOUT", "1m")
	t.Setenv("QUICCONN_MESSAGE", "from env")

	path := writeConfigFile(t, map[string]any{"message": "from file"})
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.Client.MigrateAddr)
	require.Equal(t, time.Minute, cfg.Connection.MaxIdleTimeout)
	require.Equal(t, "from env", cfg.Message)
}

func TestLoadInvalid(t *testing.T) {
	t.Run("address", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{"server": map[string]any{"addr": "localhost"}})
		_, err := Load(path)
		require.ErrorIs(t, err, ErrInvalidAddr)
	})

	t.Run("connection settings", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{"connection": map[string]any{"active_connection_id_limit": 1}})
		_, err := Load(path)
		require.ErrorContains(t, err, "connection")
	})

	t.Run("empty message", func(t *testing.T) {
		path := writeConfigFile(t, map[string]any{"message": ""})
		_, err := Load(path)
		require.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
