package quicconn

import (
	"errors"
	"net/netip"

	"github.com/quic-go/quicconn/internal/ackhandler"
	"github.com/quic-go/quicconn/internal/handshake"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/logging"
)

type (
	// A ConnectionID is a QUIC Connection ID, as defined in RFC 9000.
	ConnectionID = protocol.ConnectionID
	// The Perspective is the role of an endpoint (client or server).
	Perspective = protocol.Perspective
	// A ByteCount is used to count bytes.
	ByteCount = protocol.ByteCount
	// ECN is the ECN codepoint of an IP packet.
	ECN = protocol.ECN
	// A Version is a QUIC version number.
	Version = protocol.Version
	// An EncryptionLevel is an encryption level.
	EncryptionLevel = protocol.EncryptionLevel
	// A StatelessResetToken is bound to a connection ID.
	StatelessResetToken = protocol.StatelessResetToken
	// PathValidationReason says why a path is validated.
	PathValidationReason = logging.PathValidationReason
)

const (
	PerspectiveClient = protocol.PerspectiveClient
	PerspectiveServer = protocol.PerspectiveServer
)

var (
	// ErrWriteBlocked is returned by a PacketWriter that can't accept the packet right now.
	// The packet is buffered and resent once OnCanWrite is called.
	ErrWriteBlocked = errors.New("write blocked")
	// ErrMessageTooBig is returned by a PacketWriter if the packet exceeds the path MTU.
	ErrMessageTooBig = errors.New("message too big")
)

// A PacketWriter sends UDP datagrams.
type PacketWriter interface {
	WritePacket(b []byte, self, peer netip.AddrPort, ecn ECN) error
	IsWriteBlocked() bool
}

// ConnectionEvents receives the events of a connection.
// All methods are called synchronously, from within the call that caused the event.
type ConnectionEvents interface {
	OnHandshakeComplete()
	OnStreamFrame(streamID uint64, offset ByteCount, data []byte, fin bool)
	// OnNewToken is called on the client when the server issued an address token.
	OnNewToken(token []byte)
	OnConnectionMigration(from, to netip.AddrPort)
	OnConnectionClosed(err error)
}

// A TokenValidator issues and validates address tokens on the server.
type TokenValidator interface {
	ValidateToken(token []byte, peer netip.AddrPort) bool
	IssueAddressToken(peer netip.AddrPort) []byte
}

// A Clock returns the current time.
type Clock interface {
	Now() monotime.Time
}

type monotimeClock struct{}

func (monotimeClock) Now() monotime.Time { return monotime.Now() }

// PathValidationContext is the path that is being validated.
type PathValidationContext struct {
	Self   netip.AddrPort
	Peer   netip.AddrPort
	Writer PacketWriter
}

// PathValidationResult is notified when a path validation completes.
type PathValidationResult interface {
	OnPathValidationSuccess(ctx *PathValidationContext, startTime monotime.Time)
	OnPathValidationFailure(ctx *PathValidationContext)
}

// The sendAlgorithm decides when packets may be sent, and detects losses.
type sendAlgorithm interface {
	ackhandler.SentPacketHandler
}

type handshaker interface {
	StartHandshake() error
	HandleCryptoData(protocol.EncryptionLevel, []byte) error
	HandshakeComplete() bool
}

var (
	_ handshaker = &handshake.ClientHandshake{}
	_ handshaker = &handshake.ServerHandshake{}
)

// oneRTTKeys are the 1-RTT keys. They are updated during the lifetime of the connection.
type oneRTTKeys interface {
	handshake.ShortHeaderSealer
	handshake.ShortHeaderOpener
	DecodePacketNumber(protocol.PacketNumber, protocol.PacketNumberLen) protocol.PacketNumber
	SetLargestAcked(protocol.PacketNumber) error
	SetHandshakeConfirmed()
	CurrentKeyPhase() protocol.KeyPhase
	PreviousKeysDropTime() monotime.Time
	DropPreviousKeys()
}

var _ oneRTTKeys = &handshake.UpdatableAEAD{}

// HandshakeState is the progress of the handshake.
type HandshakeState uint8

const (
	// HandshakeStateInitial means that only Initial keys are available.
	HandshakeStateInitial HandshakeState = iota
	// HandshakeStateZeroRTT means that 0-RTT keys are available.
	HandshakeStateZeroRTT
	// HandshakeStateHandshake means that Handshake keys are available.
	HandshakeStateHandshake
	// HandshakeStateForwardSecure means that 1-RTT keys are available, but the handshake is not yet confirmed.
	HandshakeStateForwardSecure
	// HandshakeStateConfirmed means that the handshake is confirmed.
	HandshakeStateConfirmed
	// HandshakeStateClosed means that the connection is closed.
	HandshakeStateClosed
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeStateInitial:
		return "initial"
	case HandshakeStateZeroRTT:
		return "0-RTT"
	case HandshakeStateHandshake:
		return "handshake"
	case HandshakeStateForwardSecure:
		return "forward secure"
	case HandshakeStateConfirmed:
		return "confirmed"
	case HandshakeStateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// ConnectionCloseBehavior says if a CONNECTION_CLOSE frame is sent when the connection is closed.
type ConnectionCloseBehavior uint8

const (
	// SendConnectionClosePacket sends a CONNECTION_CLOSE frame at every encryption level
	// that keys are still available for.
	SendConnectionClosePacket ConnectionCloseBehavior = iota
	// SilentClose tears down the connection without notifying the peer.
	SilentClose
)
