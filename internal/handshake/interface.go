package handshake

import (
	"errors"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
)

var (
	// ErrKeysNotYetAvailable is returned when an opener or a sealer is requested for an encryption level,
	// but the corresponding opener has not yet been initialized
	// This can happen when packets arrive out of order.
	ErrKeysNotYetAvailable = errors.New("CryptoSetup: keys at this encryption level not yet available")
	// ErrKeysDropped is returned when an opener or a sealer is requested for an encryption level,
	// but the corresponding keys have already been dropped.
	ErrKeysDropped = errors.New("CryptoSetup: keys were already dropped")
	// ErrDecryptionFailed is returned when the AEAD fails to open the packet.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// A Sealer seals packets of one encryption level.
type Sealer interface {
	Seal(dst, src []byte, packetNumber protocol.PacketNumber, associatedData []byte) []byte
	Overhead() int
}

// An Opener opens packets of one encryption level.
type Opener interface {
	Open(dst, src []byte, packetNumber protocol.PacketNumber, associatedData []byte) ([]byte, error)
}

// ShortHeaderSealer seals a 1-RTT packet.
type ShortHeaderSealer interface {
	Sealer
	// KeyPhase returns the key phase to use for the next packet.
	// It may initiate a key update.
	KeyPhase() protocol.KeyPhaseBit
	// ConfidentialityLimitReached says if no further packet may be sealed with the current keys.
	ConfidentialityLimitReached() bool
}

// ShortHeaderOpener opens a short header packet
type ShortHeaderOpener interface {
	Opener
	OpenShortHeader(dst, src []byte, rcvTime monotime.Time, pn protocol.PacketNumber, kp protocol.KeyPhaseBit, associatedData []byte) ([]byte, error)
}

// The Host is the connection that a handshaker runs on.
// All calls are made synchronously from HandleCryptoData or StartHandshake.
type Host interface {
	SendCryptoData(protocol.EncryptionLevel, []byte)
	OnNewEncryptionKey(protocol.EncryptionLevel, Sealer)
	OnNewDecryptionKey(protocol.EncryptionLevel, Opener)
	OnHandshakeComplete()
}
