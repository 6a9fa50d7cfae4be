package main

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/quic-go/quicconn"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix of environment variables overriding the configuration.
// Nested keys are separated by a double underscore:
//
//	QUICCONN_CLIENT__MIGRATE_ADDR           -> client.migrate_addr
//	QUICCONN_CONNECTION__MAX_IDLE_TIMEOUT   -> connection.max_idle_timeout
const envPrefix = "QUICCONN_"

// Config is the configuration of a simulation run.
type Config struct {
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	Client     ClientConfig     `koanf:"client" yaml:"client"`
	Connection ConnectionConfig `koanf:"connection" yaml:"connection"`
	Metrics    MetricsConfig    `koanf:"metrics" yaml:"metrics"`
	Qlog       QlogConfig       `koanf:"qlog" yaml:"qlog"`
	// Message is sent by the client on the original path, and again after the migration.
	Message string `koanf:"message" yaml:"message"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

type ClientConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
	// MigrateAddr is the address of the socket the client migrates to.
	MigrateAddr string `koanf:"migrate_addr" yaml:"migrate_addr"`
	Migrate     bool   `koanf:"migrate" yaml:"migrate"`
}

// ConnectionConfig is mapped to a quicconn.Config.
type ConnectionConfig struct {
	MaxIdleTimeout          time.Duration `koanf:"max_idle_timeout" yaml:"max_idle_timeout"`
	HandshakeIdleTimeout    time.Duration `koanf:"handshake_idle_timeout" yaml:"handshake_idle_timeout"`
	KeepAlivePeriod         time.Duration `koanf:"keep_alive_period" yaml:"keep_alive_period"`
	ActiveConnectionIDLimit uint64        `koanf:"active_connection_id_limit" yaml:"active_connection_id_limit"`
	InitialPacketSize       uint16        `koanf:"initial_packet_size" yaml:"initial_packet_size"`
	DisablePathMTUDiscovery bool          `koanf:"disable_path_mtu_discovery" yaml:"disable_path_mtu_discovery"`
	DisableKeyUpdate        bool          `koanf:"disable_key_update" yaml:"disable_key_update"`
	DisableECN              bool          `koanf:"disable_ecn" yaml:"disable_ecn"`
}

type MetricsConfig struct {
	// Addr is the listen address of the Prometheus endpoint. Empty disables it.
	Addr string `koanf:"addr" yaml:"addr"`
	Path string `koanf:"path" yaml:"path"`
}

type QlogConfig struct {
	// Dir is the directory qlog files are written to. Empty disables qlog.
	Dir string `koanf:"dir" yaml:"dir"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: "127.0.0.1:0"},
		Client: ClientConfig{
			Addr:        "127.0.0.1:0",
			MigrateAddr: "127.0.0.1:0",
			Migrate:     true,
		},
		Connection: ConnectionConfig{
			MaxIdleTimeout:          30 * time.Second,
			HandshakeIdleTimeout:    5 * time.Second,
			ActiveConnectionIDLimit: 4,
			InitialPacketSize:       1252,
		},
		Metrics: MetricsConfig{Path: "/metrics"},
		Message: "hello from quicconn-sim",
	}
}

// Load loads the configuration: defaults, then the YAML file at path (if not empty),
// then QUICCONN_ environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"server.addr":                           defaults.Server.Addr,
		"client.addr":                           defaults.Client.Addr,
		"client.migrate_addr":                   defaults.Client.MigrateAddr,
		"client.migrate":                        defaults.Client.Migrate,
		"connection.max_idle_timeout":           defaults.Connection.MaxIdleTimeout.String(),
		"connection.handshake_idle_timeout":     defaults.Connection.HandshakeIdleTimeout.String(),
		"connection.keep_alive_period":          defaults.Connection.KeepAlivePeriod.String(),
		"connection.active_connection_id_limit": defaults.Connection.ActiveConnectionIDLimit,
		"connection.initial_packet_size":        defaults.Connection.InitialPacketSize,
		"metrics.path":                          defaults.Metrics.Path,
		"message":                               defaults.Message,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

var (
	ErrInvalidAddr  = errors.New("invalid address")
	ErrEmptyMessage = errors.New("message must not be empty")
)

// Validate checks the addresses and the connection settings.
func (c *Config) Validate() error {
	for name, addr := range map[string]string{
		"server.addr":         c.Server.Addr,
		"client.addr":         c.Client.Addr,
		"client.migrate_addr": c.Client.MigrateAddr,
	} {
		if _, err := netip.ParseAddrPort(addr); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidAddr, name, err)
		}
	}
	if c.Message == "" {
		return ErrEmptyMessage
	}
	if err := c.QuicConfig().Validate(); err != nil {
		return fmt.Errorf("connection: %w", err)
	}
	return nil
}

// QuicConfig maps the connection settings to a quicconn.Config.
func (c *Config) QuicConfig() *quicconn.Config {
	return &quicconn.Config{
		MaxIdleTimeout:          c.Connection.MaxIdleTimeout,
		HandshakeIdleTimeout:    c.Connection.HandshakeIdleTimeout,
		KeepAlivePeriod:         c.Connection.KeepAlivePeriod,
		ActiveConnectionIDLimit: c.Connection.ActiveConnectionIDLimit,
		InitialPacketSize:       c.Connection.InitialPacketSize,
		DisablePathMTUDiscovery: c.Connection.DisablePathMTUDiscovery,
		DisableKeyUpdate:        c.Connection.DisableKeyUpdate,
		DisableECN:              c.Connection.DisableECN,
		AllowPeerMigration:      true,
	}
}
