package quicconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quic-go/quicconn/internal/handshake"
	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/logging"
)

// Config contains all configuration data needed for a connection.
// Zero values are replaced by defaults.
type Config struct {
	// The QUIC version. Defaults to QUIC version 1.
	Version Version
	// The length of the connection IDs issued by this endpoint.
	ConnectionIDLength int

	// MaxUndecryptablePackets is the number of packets queued while waiting for keys.
	MaxUndecryptablePackets int
	// AntiAmplificationFactor limits the bytes a server sends to an unvalidated address,
	// relative to the bytes received from it.
	AntiAmplificationFactor int
	// EnforceStrictAmplificationFactor only allows sending a datagram to an unvalidated address
	// if a full-sized datagram fits into the amplification budget.
	// Otherwise, datagrams are shrunk to the remaining budget.
	EnforceStrictAmplificationFactor bool
	// ReleaseTimeIntoFuture is the look-ahead window of the pacer:
	// packets that are due within this window are sent right away.
	ReleaseTimeIntoFuture time.Duration

	// ActiveConnectionIDLimit is the number of connection IDs issued to the peer,
	// and the number of connection IDs accepted from the peer.
	ActiveConnectionIDLimit uint64
	// MaxTrackedPackets is the maximum distance between the largest sent and the least unacked packet.
	MaxTrackedPackets uint64

	// InitialPacketSize is the size of the first packets, before path MTU discovery.
	InitialPacketSize uint16
	// MaxPacketSize is the upper bound for path MTU discovery.
	MaxPacketSize           uint16
	DisablePathMTUDiscovery bool

	DisableKeyUpdate bool

	// Enable5RTOBlackholeDetection waits for 5 instead of 3 PTOs without forward progress
	// before closing the connection.
	Enable5RTOBlackholeDetection bool
	// ECNPTOLimit is the number of consecutive PTOs without an acknowledged ECN-marked packet
	// before packets are no longer marked.
	ECNPTOLimit uint8
	DisableECN  bool

	MaxIdleTimeout       time.Duration
	HandshakeIdleTimeout time.Duration
	// KeepAlivePeriod is the interval of keep-alive PINGs. 0 disables keep-alives.
	KeepAlivePeriod time.Duration
	// MultiPortProbingInterval is the interval at which the client re-probes an alternative path
	// that it validated for multi-port use. 0 disables re-probing.
	MultiPortProbingInterval time.Duration
	// AllowPeerMigration allows the client to migrate to a new address.
	AllowPeerMigration bool

	// Token is an address token received in a NEW_TOKEN frame on an earlier connection.
	// The client sends it in its Initial packets.
	Token []byte
	// TokenValidator issues and validates address tokens on the server.
	// If unset, tokens are protected with a random key.
	TokenValidator TokenValidator
	// Clock is the time source. Defaults to the monotonic clock.
	Clock Clock
	// Tracer creates a tracer for a connection.
	Tracer func(context.Context, Perspective, ConnectionID) *logging.ConnectionTracer
	Logger *slog.Logger
}

var (
	errInvalidAmplificationFactor = errors.New("invalid anti-amplification factor")
	errInvalidPacketSize          = errors.New("invalid packet size")
	errInvalidConnIDLimit         = errors.New("invalid active connection ID limit")
	errInvalidKeepAlive           = errors.New("keep-alive period must be shorter than the idle timeout")
	errInvalidConnIDLength        = errors.New("invalid connection ID length")
)

// Clone clones a Config.
func (c *Config) Clone() *Config {
	copy := *c
	return &copy
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Version != 0 && !protocol.IsValidVersion(c.Version) {
		return fmt.Errorf("unsupported version %s", c.Version)
	}
	if c.ConnectionIDLength < 0 || c.ConnectionIDLength > protocol.MaxConnIDLen ||
		(c.ConnectionIDLength > 0 && c.ConnectionIDLength < 4) {
		return errInvalidConnIDLength
	}
	if c.AntiAmplificationFactor < 0 {
		return errInvalidAmplificationFactor
	}
	if c.InitialPacketSize != 0 && c.InitialPacketSize < protocol.MinInitialPacketSize {
		return fmt.Errorf("%w: initial packet size %d is smaller than %d", errInvalidPacketSize, c.InitialPacketSize, protocol.MinInitialPacketSize)
	}
	if c.MaxPacketSize != 0 && c.MaxPacketSize < max(c.InitialPacketSize, protocol.MinInitialPacketSize) {
		return fmt.Errorf("%w: maximum packet size %d is smaller than the initial packet size", errInvalidPacketSize, c.MaxPacketSize)
	}
	if c.ActiveConnectionIDLimit == 1 || c.ActiveConnectionIDLimit > protocol.MaxActiveConnectionIDs {
		return fmt.Errorf("%w: %d", errInvalidConnIDLimit, c.ActiveConnectionIDLimit)
	}
	idleTimeout := c.MaxIdleTimeout
	if idleTimeout == 0 {
		idleTimeout = protocol.DefaultIdleTimeout
	}
	if c.KeepAlivePeriod > 0 && c.KeepAlivePeriod >= idleTimeout {
		return errInvalidKeepAlive
	}
	return nil
}

// populateConfig populates fields in the Config with their default values, if none are set.
// It may be called with nil.
func populateConfig(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	version := config.Version
	if version == 0 {
		version = protocol.Version1
	}
	connIDLen := config.ConnectionIDLength
	if connIDLen == 0 {
		connIDLen = protocol.DefaultConnectionIDLength
	}
	maxUndecryptable := config.MaxUndecryptablePackets
	if maxUndecryptable == 0 {
		maxUndecryptable = protocol.DefaultMaxUndecryptablePackets
	}
	amplificationFactor := config.AntiAmplificationFactor
	if amplificationFactor == 0 {
		amplificationFactor = protocol.DefaultAmplificationFactor
	}
	releaseTime := config.ReleaseTimeIntoFuture
	if releaseTime == 0 {
		releaseTime = protocol.DefaultReleaseTimeIntoFuture
	}
	connIDLimit := config.ActiveConnectionIDLimit
	if connIDLimit == 0 {
		connIDLimit = protocol.DefaultActiveConnectionIDLimit
	}
	maxTracked := config.MaxTrackedPackets
	if maxTracked == 0 {
		maxTracked = protocol.DefaultMaxTrackedPackets
	}
	initialPacketSize := config.InitialPacketSize
	if initialPacketSize == 0 {
		initialPacketSize = protocol.InitialPacketSize
	}
	maxPacketSize := config.MaxPacketSize
	if maxPacketSize == 0 {
		maxPacketSize = protocol.MaxPacketBufferSize
	}
	maxPacketSize = max(maxPacketSize, initialPacketSize)
	ecnPTOLimit := config.ECNPTOLimit
	if ecnPTOLimit == 0 {
		ecnPTOLimit = protocol.DefaultECNPTOLimit
	}
	idleTimeout := protocol.DefaultIdleTimeout
	if config.MaxIdleTimeout != 0 {
		idleTimeout = config.MaxIdleTimeout
	}
	handshakeIdleTimeout := protocol.DefaultHandshakeIdleTimeout
	if config.HandshakeIdleTimeout != 0 {
		handshakeIdleTimeout = config.HandshakeIdleTimeout
	}
	clock := config.Clock
	if clock == nil {
		clock = monotimeClock{}
	}
	logger := config.Logger
	if logger == nil {
		logger = logutils.DefaultLogger()
	}

	return &Config{
		Version:                          version,
		ConnectionIDLength:               connIDLen,
		MaxUndecryptablePackets:          maxUndecryptable,
		AntiAmplificationFactor:          amplificationFactor,
		EnforceStrictAmplificationFactor: config.EnforceStrictAmplificationFactor,
		ReleaseTimeIntoFuture:            releaseTime,
		ActiveConnectionIDLimit:          connIDLimit,
		MaxTrackedPackets:                maxTracked,
		InitialPacketSize:                initialPacketSize,
		MaxPacketSize:                    maxPacketSize,
		DisablePathMTUDiscovery:          config.DisablePathMTUDiscovery,
		DisableKeyUpdate:                 config.DisableKeyUpdate,
		Enable5RTOBlackholeDetection:     config.Enable5RTOBlackholeDetection,
		ECNPTOLimit:                      ecnPTOLimit,
		DisableECN:                       config.DisableECN,
		MaxIdleTimeout:                   idleTimeout,
		HandshakeIdleTimeout:             handshakeIdleTimeout,
		KeepAlivePeriod:                  config.KeepAlivePeriod,
		MultiPortProbingInterval:         config.MultiPortProbingInterval,
		AllowPeerMigration:               config.AllowPeerMigration,
		Token:                            config.Token,
		TokenValidator:                   config.TokenValidator,
		Clock:                            clock,
		Tracer:                           config.Tracer,
		Logger:                           logger,
	}
}

// handshakeConfig is the configuration passed to the crypto handshake.
func (c *Config) handshakeConfig(rttStats *logging.RTTStats, tracer *logging.ConnectionTracer, logger *slog.Logger) handshake.Config {
	return handshake.Config{
		Version:          c.Version,
		RTTStats:         rttStats,
		DisableKeyUpdate: c.DisableKeyUpdate,
		Tracer:           tracer,
		Logger:           logger,
	}
}
