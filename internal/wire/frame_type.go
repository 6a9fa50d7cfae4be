package wire

import "github.com/quic-go/quicconn/internal/protocol"

// A FrameType is the type of a QUIC frame, as encoded on the wire.
type FrameType uint64

const (
	PaddingFrameType            FrameType = 0x0
	PingFrameType               FrameType = 0x1
	AckFrameType                FrameType = 0x2
	AckECNFrameType             FrameType = 0x3
	CryptoFrameType             FrameType = 0x6
	NewTokenFrameType           FrameType = 0x7
	NewConnectionIDFrameType    FrameType = 0x18
	RetireConnectionIDFrameType FrameType = 0x19
	PathChallengeFrameType      FrameType = 0x1a
	PathResponseFrameType       FrameType = 0x1b
	ConnectionCloseFrameType    FrameType = 0x1c
	ApplicationCloseFrameType   FrameType = 0x1d
	HandshakeDoneFrameType      FrameType = 0x1e

	streamFrameTypeMin FrameType = 0x8
	streamFrameTypeMax FrameType = 0xf
)

// IsStreamFrameType says if the type byte belongs to a STREAM frame.
func (t FrameType) IsStreamFrameType() bool {
	return t >= streamFrameTypeMin && t <= streamFrameTypeMax
}

// isAllowedAtEncLevel applies the frame restrictions of RFC 9000, section 12.4.
// STREAM frames are accepted at every level: the connection decides what to do
// with application data that arrives without forward-secure protection.
func (t FrameType) isAllowedAtEncLevel(encLevel protocol.EncryptionLevel) bool {
	if t.IsStreamFrameType() {
		return true
	}
	switch encLevel {
	case protocol.EncryptionInitial, protocol.EncryptionHandshake:
		switch t {
		case PaddingFrameType, PingFrameType, AckFrameType, AckECNFrameType, CryptoFrameType, ConnectionCloseFrameType:
			return true
		}
		return false
	case protocol.Encryption0RTT:
		switch t {
		case AckFrameType, AckECNFrameType, CryptoFrameType, NewTokenFrameType, PathResponseFrameType,
			RetireConnectionIDFrameType, HandshakeDoneFrameType:
			return false
		}
		return true
	case protocol.Encryption1RTT:
		return true
	default:
		return false
	}
}
