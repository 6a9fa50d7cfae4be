package quicconn

import (
	"fmt"

	"github.com/quic-go/quicconn/internal/handshake"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"
)

type headerDecryptor interface {
	handshake.ShortHeaderOpener
	DecodePacketNumber(protocol.PacketNumber, protocol.PacketNumberLen) protocol.PacketNumber
}

type openerGetter interface {
	Opener(protocol.EncryptionLevel) (handshake.Opener, error)
	ShortHeaderOpener() (headerDecryptor, error)
}

type largestObservedGetter interface {
	LargestObserved(protocol.EncryptionLevel) protocol.PacketNumber
}

type unpackedPacket struct {
	encryptionLevel protocol.EncryptionLevel
	// hdr is nil for short header packets
	hdr          *wire.Header
	destConnID   protocol.ConnectionID
	packetNumber protocol.PacketNumber
	keyPhase     protocol.KeyPhaseBit
	data         []byte
}

// The packetUnpacker removes the packet protection.
// Errors returned from the Opener (including handshake.ErrKeysNotYetAvailable and
// handshake.ErrKeysDropped) are passed on to the caller unchanged.
type packetUnpacker struct {
	openers           openerGetter
	largestObserved   largestObservedGetter
	shortHdrConnIDLen int
}

func newPacketUnpacker(openers openerGetter, largestObserved largestObservedGetter, shortHdrConnIDLen int) *packetUnpacker {
	return &packetUnpacker{
		openers:           openers,
		largestObserved:   largestObserved,
		shortHdrConnIDLen: shortHdrConnIDLen,
	}
}

// UnpackLongHeader unpacks a long header packet.
// data is the packet, as returned by wire.ParseLongHeaderPacket.
func (u *packetUnpacker) UnpackLongHeader(hdr *wire.Header, data []byte) (*unpackedPacket, error) {
	encLevel := hdr.EncryptionLevel()
	opener, err := u.openers.Opener(encLevel)
	if err != nil {
		return nil, err
	}
	hdrLen := int(hdr.ParsedLen())
	if len(data) < hdrLen {
		return nil, fmt.Errorf("packet too small: %d bytes", len(data))
	}
	pn := u.decodePacketNumber(encLevel, hdr)
	// the header was already copied into the Header struct, decrypt in place
	decrypted, err := opener.Open(data[hdrLen:hdrLen], data[hdrLen:], pn, data[:hdrLen])
	if err != nil {
		return nil, handshake.ErrDecryptionFailed
	}
	if err := checkPayload(decrypted); err != nil {
		return nil, err
	}
	return &unpackedPacket{
		encryptionLevel: encLevel,
		hdr:             hdr,
		destConnID:      hdr.DestConnectionID,
		packetNumber:    pn,
		data:            decrypted,
	}, nil
}

func (u *packetUnpacker) decodePacketNumber(encLevel protocol.EncryptionLevel, hdr *wire.Header) protocol.PacketNumber {
	return protocol.DecodePacketNumber(hdr.PacketNumberLen, u.largestObserved.LargestObserved(encLevel), hdr.PacketNumber)
}

// UnpackShortHeader unpacks a 1-RTT packet.
// It returns wire.ErrInvalidReservedBits only after the packet was successfully decrypted.
func (u *packetUnpacker) UnpackShortHeader(rcvTime monotime.Time, data []byte) (*unpackedPacket, error) {
	hdr, parseErr := wire.ParseShortHeader(data, u.shortHdrConnIDLen)
	if parseErr != nil && parseErr != wire.ErrInvalidReservedBits {
		return nil, &headerParseError{err: parseErr}
	}
	opener, err := u.openers.ShortHeaderOpener()
	if err != nil {
		return nil, err
	}
	hdrLen := int(hdr.Len())
	pn := opener.DecodePacketNumber(hdr.PacketNumber, hdr.PacketNumberLen)
	decrypted, err := opener.OpenShortHeader(data[hdrLen:hdrLen], data[hdrLen:], rcvTime, pn, hdr.KeyPhase, data[:hdrLen])
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if err := checkPayload(decrypted); err != nil {
		return nil, err
	}
	return &unpackedPacket{
		encryptionLevel: protocol.Encryption1RTT,
		destConnID:      hdr.DestConnectionID,
		packetNumber:    pn,
		keyPhase:        hdr.KeyPhase,
		data:            decrypted,
	}, nil
}

// checkPayload checks that a packet carries at least one frame.
func checkPayload(data []byte) error {
	if len(data) == 0 {
		return qerr.NewError(qerr.ErrProtocolViolation, "empty packet")
	}
	return nil
}

type headerParseError struct {
	err error
}

func (e *headerParseError) Unwrap() error { return e.err }

func (e *headerParseError) Error() string {
	return "error parsing packet header: " + e.err.Error()
}
