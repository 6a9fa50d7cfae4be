package handshake

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"slices"
	"time"

	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/logging"

	"golang.org/x/crypto/hkdf"
)

const (
	nonceLen = 32
	// DefaultTokenMaxAge is the maximum age of a source address token.
	DefaultTokenMaxAge = 24 * time.Hour
	// maxBufferedCryptoData is the amount of crypto data buffered per encryption level
	// while waiting for the rest of a message.
	maxBufferedCryptoData = maxMessageSize + 16
)

// Config configures a crypto handshake.
type Config struct {
	Version          protocol.Version
	RTTStats         *utils.RTTStats
	DisableKeyUpdate bool
	Tracer           *logging.ConnectionTracer
	Logger           *slog.Logger

	// StaticKey is the server's key exchange key, sent in rejections.
	// A new key is generated if unset.
	StaticKey *ecdh.PrivateKey
	// TokenGenerator issues and validates source address tokens on the server.
	// A generator with a random key is used if unset.
	TokenGenerator *TokenGenerator
	TokenMaxAge    time.Duration
	// Now returns the current wall clock time, used for source address tokens.
	Now func() time.Time
}

func (c *Config) populate() error {
	if c.RTTStats == nil {
		c.RTTStats = utils.NewRTTStats()
	}
	if c.Logger == nil {
		c.Logger = logutils.Discard()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.TokenMaxAge == 0 {
		c.TokenMaxAge = DefaultTokenMaxAge
	}
	if c.StaticKey == nil {
		key, err := ecdh.X25519().GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		c.StaticKey = key
	}
	if c.TokenGenerator == nil {
		var key TokenProtectorKey
		if _, err := rand.Read(key[:]); err != nil {
			return err
		}
		c.TokenGenerator = NewTokenGenerator(key)
	}
	return nil
}

// A ClientState is a state of the client handshake.
type ClientState uint8

const (
	StateInitialized ClientState = iota
	StateSendCHLO
	StateRecvREJ
	StateRecvSHLO
	StateConnected
)

func (s ClientState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateSendCHLO:
		return "send_chlo"
	case StateRecvREJ:
		return "recv_rej"
	case StateRecvSHLO:
		return "recv_shlo"
	case StateConnected:
		return "connected"
	default:
		return "invalid"
	}
}

// messageBuffer reassembles crypto messages from the in-order crypto stream of one encryption level.
type messageBuffer struct {
	buf [protocol.Encryption1RTT + 1][]byte
}

func (b *messageBuffer) handle(level protocol.EncryptionLevel, data []byte, fn func(protocol.EncryptionLevel, *Message) error) error {
	b.buf[level] = append(b.buf[level], data...)
	for len(b.buf[level]) > 0 {
		m, n, err := ParseMessage(b.buf[level])
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				if len(b.buf[level]) > maxBufferedCryptoData {
					return qerr.Errorf(qerr.ErrCryptoBufferExceeded, "%d bytes of crypto data buffered at %s", len(b.buf[level]), level)
				}
				return nil
			}
			return qerr.NewError(qerr.ErrInvalidCryptoMessageType, err.Error())
		}
		b.buf[level] = b.buf[level][n:]
		if err := fn(level, m); err != nil {
			return err
		}
	}
	b.buf[level] = nil
	return nil
}

func deriveSecrets(shared, clientNonce, serverNonce []byte, clientLabel, serverLabel string) (clientSecret, serverSecret []byte) {
	prk := hkdf.Extract(sha256.New, shared, slices.Concat(clientNonce, serverNonce))
	clientSecret = hkdfExpandLabel(sha256.New, prk, nil, clientLabel, sha256.Size)
	serverSecret = hkdfExpandLabel(sha256.New, prk, nil, serverLabel, sha256.Size)
	return
}

func versionTag(v protocol.Version) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(v))
}

func newNonce() ([]byte, error) {
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// ClientHandshake is the client side of the crypto handshake.
// It sends an inchoate client hello, waits for the rejection carrying the server's
// key and a source address token, and completes the handshake with a full client hello.
type ClientHandshake struct {
	host   Host
	config Config
	logger *slog.Logger

	state           ClientState
	numClientHellos int
	messages        messageBuffer

	key         *ecdh.PrivateKey
	clientNonce []byte
	serverNonce []byte
	stk         []byte
	// shared is the secret agreed with the server's static key
	shared []byte
}

// NewClientHandshake creates the client side of the crypto handshake.
func NewClientHandshake(host Host, config Config) (*ClientHandshake, error) {
	if err := config.populate(); err != nil {
		return nil, err
	}
	key, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	return &ClientHandshake{
		host:        host,
		config:      config,
		logger:      logutils.Component(config.Logger, logutils.ComponentHandshake),
		key:         key,
		clientNonce: nonce,
	}, nil
}

// State returns the state of the handshake.
func (h *ClientHandshake) State() ClientState { return h.state }

// NumClientHellos is the number of client hellos sent.
func (h *ClientHandshake) NumClientHellos() int { return h.numClientHellos }

// HandshakeComplete says if the 1-RTT keys are installed.
func (h *ClientHandshake) HandshakeComplete() bool { return h.state == StateConnected }

// StartHandshake sends the first client hello.
func (h *ClientHandshake) StartHandshake() error {
	if h.state != StateInitialized {
		return errors.New("handshake already started")
	}
	h.state = StateSendCHLO
	return h.sendClientHello()
}

func (h *ClientHandshake) sendClientHello() error {
	h.numClientHellos++
	m := &Message{
		Tag: TagCHLO,
		Values: map[Tag][]byte{
			TagVER:  versionTag(h.config.Version),
			TagNONC: h.clientNonce,
		},
	}
	full := h.stk != nil
	if full {
		m.Values[TagSTK] = h.stk
		m.Values[TagPUBS] = h.key.PublicKey().Bytes()
	}
	h.logger.Debug("sending client hello", "message", m, "count", h.numClientHellos)
	h.host.SendCryptoData(protocol.EncryptionInitial, m.Append(nil))
	if !full {
		h.state = StateRecvREJ
		return nil
	}
	if h.shared == nil {
		return errors.New("full client hello without a shared secret")
	}

	// the shared secret with the server's static key protects Handshake and 0-RTT packets
	clientHS, serverHS := deriveSecrets(h.shared, h.clientNonce, h.serverNonce, "client hs", "server hs")
	zeroRTT, _ := deriveSecrets(h.shared, h.clientNonce, h.serverNonce, "client 0rtt", "server 0rtt")
	h.host.OnNewEncryptionKey(protocol.Encryption0RTT, NewSealer(zeroRTT))
	h.host.OnNewEncryptionKey(protocol.EncryptionHandshake, NewSealer(clientHS))
	h.host.OnNewDecryptionKey(protocol.EncryptionHandshake, NewOpener(serverHS))
	h.state = StateRecvSHLO
	return nil
}

// HandleCryptoData handles in-order data received in CRYPTO frames.
func (h *ClientHandshake) HandleCryptoData(level protocol.EncryptionLevel, data []byte) error {
	return h.messages.handle(level, data, h.handleMessage)
}

func (h *ClientHandshake) handleMessage(level protocol.EncryptionLevel, m *Message) error {
	h.logger.Debug("received handshake message", "message", m, "encryption_level", level, "state", h.state)
	switch m.Tag {
	case TagREJ:
		return h.handleRejection(level, m)
	case TagSHLO:
		return h.handleServerHello(level, m)
	default:
		return qerr.Errorf(qerr.ErrInvalidCryptoMessageType, "expected REJ or SHLO, received %s", m.Tag)
	}
}

func (h *ClientHandshake) handleRejection(level protocol.EncryptionLevel, m *Message) error {
	if h.state == StateConnected {
		return qerr.NewError(qerr.ErrProtocolViolation, "received REJ after the handshake completed")
	}
	if level != protocol.EncryptionInitial {
		return qerr.Errorf(qerr.ErrProtocolViolation, "received REJ at encryption level %s", level)
	}
	if h.state != StateRecvREJ && h.state != StateRecvSHLO {
		return qerr.Errorf(qerr.ErrInvalidCryptoMessageType, "unexpected REJ in state %s", h.state)
	}
	if h.numClientHellos >= protocol.MaxClientHellos {
		return qerr.Errorf(qerr.ErrCryptoTooManyRejects, "%d client hellos rejected", h.numClientHellos)
	}
	stk, ok := m.Values[TagSTK]
	if !ok {
		return qerr.NewError(qerr.ErrCryptoMessageParameterNotFound, "REJ without STK")
	}
	sno, ok := m.Values[TagSNO]
	if !ok || len(sno) != nonceLen {
		return qerr.NewError(qerr.ErrCryptoMessageParameterNotFound, "REJ without valid SNO")
	}
	pubs, ok := m.Values[TagPUBS]
	if !ok {
		return qerr.NewError(qerr.ErrCryptoMessageParameterNotFound, "REJ without PUBS")
	}
	serverKey, err := ecdh.X25519().NewPublicKey(pubs)
	if err != nil {
		return qerr.Errorf(qerr.ErrCryptoMessageParameterNotFound, "invalid PUBS: %s", err)
	}
	// low-order points are accepted by NewPublicKey but fail the key exchange
	shared, err := h.key.ECDH(serverKey)
	if err != nil {
		return qerr.Errorf(qerr.ErrCryptoMessageParameterNotFound, "key exchange failed: %s", err)
	}
	h.stk = stk
	h.serverNonce = sno
	h.shared = shared
	h.state = StateSendCHLO
	return h.sendClientHello()
}

func (h *ClientHandshake) handleServerHello(level protocol.EncryptionLevel, m *Message) error {
	if h.state != StateRecvSHLO {
		return qerr.Errorf(qerr.ErrInvalidCryptoMessageType, "unexpected SHLO in state %s", h.state)
	}
	if level != protocol.EncryptionHandshake {
		return qerr.Errorf(qerr.ErrProtocolViolation, "received SHLO at encryption level %s", level)
	}
	pubs, ok := m.Values[TagPUBS]
	if !ok {
		return qerr.NewError(qerr.ErrCryptoMessageParameterNotFound, "SHLO without PUBS")
	}
	ephemeral, err := ecdh.X25519().NewPublicKey(pubs)
	if err != nil {
		return qerr.Errorf(qerr.ErrCryptoMessageParameterNotFound, "invalid PUBS: %s", err)
	}
	shared, err := h.key.ECDH(ephemeral)
	if err != nil {
		return qerr.Errorf(qerr.ErrCryptoMessageParameterNotFound, "key exchange failed: %s", err)
	}
	clientSecret, serverSecret := deriveSecrets(shared, h.clientNonce, h.serverNonce, "client ap", "server ap")
	aead := NewUpdatableAEAD(h.config.RTTStats, h.config.DisableKeyUpdate, h.config.Tracer, h.config.Logger)
	aead.SetReadKey(serverSecret)
	aead.SetWriteKey(clientSecret)
	h.state = StateConnected
	h.host.OnNewDecryptionKey(protocol.Encryption1RTT, aead)
	h.host.OnNewEncryptionKey(protocol.Encryption1RTT, aead)
	h.host.OnHandshakeComplete()
	return nil
}

// ServerHandshake is the server side of the crypto handshake.
// Client hellos without a valid source address token or key share are rejected.
type ServerHandshake struct {
	host       Host
	config     Config
	logger     *slog.Logger
	remoteAddr netip.AddrPort

	numClientHellos int
	complete        bool
	messages        messageBuffer

	serverNonce []byte
}

// NewServerHandshake creates the server side of the crypto handshake
// for a client at remoteAddr.
func NewServerHandshake(host Host, remoteAddr netip.AddrPort, config Config) (*ServerHandshake, error) {
	if err := config.populate(); err != nil {
		return nil, err
	}
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	return &ServerHandshake{
		host:        host,
		config:      config,
		logger:      logutils.Component(config.Logger, logutils.ComponentHandshake),
		remoteAddr:  remoteAddr,
		serverNonce: nonce,
	}, nil
}

// StartHandshake is a no-op for the server.
func (h *ServerHandshake) StartHandshake() error { return nil }

// HandshakeComplete says if the 1-RTT keys are installed.
func (h *ServerHandshake) HandshakeComplete() bool { return h.complete }

// NumClientHellos is the number of client hellos received.
func (h *ServerHandshake) NumClientHellos() int { return h.numClientHellos }

// HandleCryptoData handles in-order data received in CRYPTO frames.
func (h *ServerHandshake) HandleCryptoData(level protocol.EncryptionLevel, data []byte) error {
	return h.messages.handle(level, data, h.handleMessage)
}

func (h *ServerHandshake) handleMessage(level protocol.EncryptionLevel, m *Message) error {
	h.logger.Debug("received handshake message", "message", m, "encryption_level", level)
	if m.Tag != TagCHLO {
		return qerr.Errorf(qerr.ErrInvalidCryptoMessageType, "expected CHLO, received %s", m.Tag)
	}
	if h.complete {
		return qerr.NewError(qerr.ErrProtocolViolation, "received CHLO after the handshake completed")
	}
	if level != protocol.EncryptionInitial {
		return qerr.Errorf(qerr.ErrProtocolViolation, "received CHLO at encryption level %s", level)
	}
	h.numClientHellos++
	if h.numClientHellos >= protocol.MaxClientHellos {
		return qerr.Errorf(qerr.ErrCryptoTooManyRejects, "received %d client hellos", h.numClientHellos)
	}
	ver, ok := m.Values[TagVER]
	if !ok {
		return qerr.NewError(qerr.ErrCryptoMessageParameterNotFound, "CHLO without VER")
	}
	if !bytes.Equal(ver, versionTag(h.config.Version)) {
		return qerr.Errorf(qerr.ErrInvalidCryptoMessageType, "CHLO for version %x", ver)
	}
	clientNonce, ok := m.Values[TagNONC]
	if !ok || len(clientNonce) != nonceLen {
		return qerr.NewError(qerr.ErrCryptoMessageParameterNotFound, "CHLO without valid NONC")
	}
	clientKey, ok := h.acceptClientHello(m)
	if !ok {
		return h.sendRejection()
	}
	return h.completeHandshake(clientNonce, clientKey)
}

// acceptClientHello checks the source address token and the key share of a client hello.
func (h *ServerHandshake) acceptClientHello(m *Message) (*ecdh.PublicKey, bool) {
	stk, ok := m.Values[TagSTK]
	if !ok {
		return nil, false
	}
	if err := h.config.TokenGenerator.ValidateToken(stk, TokenTypeSourceAddress, h.remoteAddr, h.config.Now(), h.config.TokenMaxAge); err != nil {
		h.logger.Debug("rejecting client hello", "error", err)
		return nil, false
	}
	pubs, ok := m.Values[TagPUBS]
	if !ok {
		return nil, false
	}
	key, err := ecdh.X25519().NewPublicKey(pubs)
	if err != nil {
		return nil, false
	}
	return key, true
}

func (h *ServerHandshake) sendRejection() error {
	stk, err := h.config.TokenGenerator.NewToken(TokenTypeSourceAddress, h.remoteAddr, h.config.Now())
	if err != nil {
		return qerr.Errorf(qerr.ErrInternalError, "creating source address token: %s", err)
	}
	m := &Message{
		Tag: TagREJ,
		Values: map[Tag][]byte{
			TagSTK:  stk,
			TagSNO:  h.serverNonce,
			TagPUBS: h.config.StaticKey.PublicKey().Bytes(),
		},
	}
	h.logger.Debug("sending rejection", "message", m, "client_hellos", h.numClientHellos)
	h.host.SendCryptoData(protocol.EncryptionInitial, m.Append(nil))
	return nil
}

func (h *ServerHandshake) completeHandshake(clientNonce []byte, clientKey *ecdh.PublicKey) error {
	shared, err := h.config.StaticKey.ECDH(clientKey)
	if err != nil {
		return qerr.Errorf(qerr.ErrCryptoMessageParameterNotFound, "key exchange failed: %s", err)
	}
	clientHS, serverHS := deriveSecrets(shared, clientNonce, h.serverNonce, "client hs", "server hs")
	zeroRTT, _ := deriveSecrets(shared, clientNonce, h.serverNonce, "client 0rtt", "server 0rtt")
	h.host.OnNewDecryptionKey(protocol.Encryption0RTT, NewOpener(zeroRTT))
	h.host.OnNewEncryptionKey(protocol.EncryptionHandshake, NewSealer(serverHS))
	h.host.OnNewDecryptionKey(protocol.EncryptionHandshake, NewOpener(clientHS))

	ephemeral, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return qerr.Errorf(qerr.ErrInternalError, "generating key: %s", err)
	}
	m := &Message{
		Tag: TagSHLO,
		Values: map[Tag][]byte{
			TagPUBS: ephemeral.PublicKey().Bytes(),
			TagSNO:  h.serverNonce,
		},
	}
	h.logger.Debug("sending server hello", "message", m)
	h.host.SendCryptoData(protocol.EncryptionHandshake, m.Append(nil))

	shared, err = ephemeral.ECDH(clientKey)
	if err != nil {
		return qerr.Errorf(qerr.ErrCryptoMessageParameterNotFound, "key exchange failed: %s", err)
	}
	clientSecret, serverSecret := deriveSecrets(shared, clientNonce, h.serverNonce, "client ap", "server ap")
	aead := NewUpdatableAEAD(h.config.RTTStats, h.config.DisableKeyUpdate, h.config.Tracer, h.config.Logger)
	aead.SetWriteKey(serverSecret)
	aead.SetReadKey(clientSecret)
	h.complete = true
	h.host.OnNewEncryptionKey(protocol.Encryption1RTT, aead)
	h.host.OnNewDecryptionKey(protocol.Encryption1RTT, aead)
	h.host.OnHandshakeComplete()
	return nil
}
