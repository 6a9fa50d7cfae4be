package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/quicvarint"
)

// ErrUnsupportedVersion is returned for long header packets of a version we don't speak.
var ErrUnsupportedVersion = errors.New("unsupported version")

// ErrInvalidReservedBits is returned when the reserved bits are not zero.
var ErrInvalidReservedBits = errors.New("invalid reserved bits")

var errNotQUICPacket = errors.New("not a QUIC packet")

// IsLongHeaderPacket says if this is a Long Header packet
func IsLongHeaderPacket(firstByte byte) bool {
	return firstByte&0x80 > 0
}

// ParseConnectionID parses the destination connection ID of a packet.
func ParseConnectionID(data []byte, shortHeaderConnIDLen int) (protocol.ConnectionID, error) {
	if len(data) == 0 {
		return protocol.ConnectionID{}, io.EOF
	}
	if !IsLongHeaderPacket(data[0]) {
		if len(data) < shortHeaderConnIDLen+1 {
			return protocol.ConnectionID{}, io.EOF
		}
		return protocol.ParseConnectionID(data[1 : 1+shortHeaderConnIDLen]), nil
	}
	if len(data) < 6 {
		return protocol.ConnectionID{}, io.EOF
	}
	destConnIDLen := int(data[5])
	if destConnIDLen > protocol.MaxConnIDLen {
		return protocol.ConnectionID{}, fmt.Errorf("invalid connection ID length: %d", destConnIDLen)
	}
	if len(data) < 6+destConnIDLen {
		return protocol.ConnectionID{}, io.EOF
	}
	return protocol.ParseConnectionID(data[6 : 6+destConnIDLen]), nil
}

// ParseVersion parses the QUIC version.
// It should only be called for Long Header packets (Short Header packets don't contain a version number).
func ParseVersion(data []byte) (protocol.Version, error) {
	if len(data) < 5 {
		return 0, io.EOF
	}
	return protocol.Version(binary.BigEndian.Uint32(data[1:5])), nil
}

// The Header of a long header packet, up to and including the packet number.
// Headers are not protected, the packet number is read directly.
type Header struct {
	Type             protocol.PacketType
	Version          protocol.Version
	SrcConnectionID  protocol.ConnectionID
	DestConnectionID protocol.ConnectionID

	// Length is the length of the packet number and the payload.
	Length protocol.ByteCount
	Token  []byte

	PacketNumber    protocol.PacketNumber
	PacketNumberLen protocol.PacketNumberLen

	parsedLen protocol.ByteCount
}

// ParseLongHeaderPacket parses a long header packet.
// The packet is cut according to the length field; the remainder of the datagram
// (coalesced packets) is returned as rest.
func ParseLongHeaderPacket(data []byte) (*Header, []byte /* packet data */, []byte /* rest */, error) {
	hdr, err := parseLongHeader(data)
	if err != nil {
		return hdr, nil, nil, err
	}
	if protocol.ByteCount(len(data)) < hdr.parsedLen+hdr.Length-protocol.ByteCount(hdr.PacketNumberLen) {
		return nil, nil, nil, fmt.Errorf("packet length (%d bytes) is smaller than the expected length (%d bytes)", len(data)-int(hdr.parsedLen), hdr.Length)
	}
	packetLen := int(hdr.parsedLen + hdr.Length - protocol.ByteCount(hdr.PacketNumberLen))
	return hdr, data[:packetLen], data[packetLen:], nil
}

func parseLongHeader(b []byte) (*Header, error) {
	startLen := len(b)
	if len(b) < 5 {
		return nil, io.EOF
	}
	typeByte := b[0]
	if typeByte&0x80 == 0 {
		return nil, errors.New("not a long header packet")
	}
	h := &Header{Version: protocol.Version(binary.BigEndian.Uint32(b[1:5]))}
	if typeByte&0x40 == 0 {
		return nil, errNotQUICPacket
	}
	if !protocol.IsValidVersion(h.Version) {
		return h, ErrUnsupportedVersion
	}
	b = b[5:]
	var err error
	if h.DestConnectionID, b, err = readConnectionID(b); err != nil {
		return nil, err
	}
	if h.SrcConnectionID, b, err = readConnectionID(b); err != nil {
		return nil, err
	}

	switch (typeByte & 0x30) >> 4 {
	case 0x0:
		h.Type = protocol.PacketTypeInitial
	case 0x1:
		h.Type = protocol.PacketType0RTT
	case 0x2:
		h.Type = protocol.PacketTypeHandshake
	case 0x3:
		h.Type = protocol.PacketTypeRetry
		return h, errors.New("retry packets are not supported")
	}

	if h.Type == protocol.PacketTypeInitial {
		tokenLen, n, err := quicvarint.Parse(b)
		if err != nil {
			return nil, replaceUnexpectedEOF(err)
		}
		b = b[n:]
		if tokenLen > uint64(len(b)) {
			return nil, io.EOF
		}
		if tokenLen > 0 {
			h.Token = make([]byte, tokenLen)
			copy(h.Token, b)
		}
		b = b[tokenLen:]
	}

	pl, n, err := quicvarint.Parse(b)
	if err != nil {
		return nil, replaceUnexpectedEOF(err)
	}
	b = b[n:]
	h.Length = protocol.ByteCount(pl)
	h.PacketNumberLen = protocol.PacketNumberLen(typeByte&0x3) + 1
	if h.Length < protocol.ByteCount(h.PacketNumberLen) {
		return nil, fmt.Errorf("length too small for the packet number: %d", h.Length)
	}
	if len(b) < int(h.PacketNumberLen) {
		return nil, io.EOF
	}
	h.PacketNumber = readPacketNumber(b, h.PacketNumberLen)
	b = b[h.PacketNumberLen:]
	h.parsedLen = protocol.ByteCount(startLen - len(b))
	if typeByte&0xc != 0 {
		return h, ErrInvalidReservedBits
	}
	return h, nil
}

func readConnectionID(b []byte) (protocol.ConnectionID, []byte, error) {
	if len(b) == 0 {
		return protocol.ConnectionID{}, nil, io.EOF
	}
	l := int(b[0])
	if l > protocol.MaxConnIDLen {
		return protocol.ConnectionID{}, nil, fmt.Errorf("invalid connection ID length: %d", l)
	}
	if len(b) < 1+l {
		return protocol.ConnectionID{}, nil, io.EOF
	}
	return protocol.ParseConnectionID(b[1 : 1+l]), b[1+l:], nil
}

func readPacketNumber(b []byte, pnLen protocol.PacketNumberLen) protocol.PacketNumber {
	var pn protocol.PacketNumber
	for _, c := range b[:pnLen] {
		pn = pn<<8 | protocol.PacketNumber(c)
	}
	return pn
}

func appendPacketNumber(b []byte, pn protocol.PacketNumber, pnLen protocol.PacketNumberLen) ([]byte, error) {
	switch pnLen {
	case protocol.PacketNumberLen1, protocol.PacketNumberLen2, protocol.PacketNumberLen3, protocol.PacketNumberLen4:
	default:
		return nil, fmt.Errorf("invalid packet number length: %d", pnLen)
	}
	for i := int(pnLen) - 1; i >= 0; i-- {
		b = append(b, uint8(pn>>(8*i)))
	}
	return b, nil
}

// ParsedLen returns the number of bytes that were consumed when parsing the header
func (h *Header) ParsedLen() protocol.ByteCount {
	return h.parsedLen
}

// EncryptionLevel is the level the payload of this packet is protected with.
func (h *Header) EncryptionLevel() protocol.EncryptionLevel {
	return h.Type.EncryptionLevel()
}

// Append appends the header.
// The length field always uses a 2 byte varint, so it can be filled in after sealing.
func (h *Header) Append(b []byte, _ protocol.Version) ([]byte, error) {
	var packetType uint8
	switch h.Type {
	case protocol.PacketTypeInitial:
		packetType = 0b00
	case protocol.PacketType0RTT:
		packetType = 0b01
	case protocol.PacketTypeHandshake:
		packetType = 0b10
	default:
		return nil, fmt.Errorf("cannot write packet type %s", h.Type)
	}
	firstByte := 0xc0 | packetType<<4 | uint8(h.PacketNumberLen-1)
	b = append(b, firstByte)
	b = binary.BigEndian.AppendUint32(b, uint32(h.Version))
	b = append(b, uint8(h.DestConnectionID.Len()))
	b = append(b, h.DestConnectionID.Bytes()...)
	b = append(b, uint8(h.SrcConnectionID.Len()))
	b = append(b, h.SrcConnectionID.Bytes()...)
	if h.Type == protocol.PacketTypeInitial {
		b = quicvarint.Append(b, uint64(len(h.Token)))
		b = append(b, h.Token...)
	}
	b = quicvarint.AppendWithLen(b, uint64(h.Length), 2)
	return appendPacketNumber(b, h.PacketNumber, h.PacketNumberLen)
}

// GetLength determines the length of the Header.
func (h *Header) GetLength(_ protocol.Version) protocol.ByteCount {
	length := 1 /* type byte */ + 4 /* version */ + 1 /* dest conn ID len */ + protocol.ByteCount(h.DestConnectionID.Len()) +
		1 /* src conn ID len */ + protocol.ByteCount(h.SrcConnectionID.Len()) +
		protocol.ByteCount(h.PacketNumberLen) + 2 /* length */
	if h.Type == protocol.PacketTypeInitial {
		length += protocol.ByteCount(quicvarint.Len(uint64(len(h.Token))) + len(h.Token))
	}
	return length
}

// A ShortHeader is the header of a 1-RTT packet.
type ShortHeader struct {
	DestConnectionID protocol.ConnectionID
	PacketNumber     protocol.PacketNumber
	PacketNumberLen  protocol.PacketNumberLen
	KeyPhase         protocol.KeyPhaseBit
}

// ParseShortHeader parses a short header packet.
// It returns ErrInvalidReservedBits together with the header if the reserved bits are set.
func ParseShortHeader(data []byte, connIDLen int) (*ShortHeader, error) {
	if len(data) == 0 {
		return nil, io.EOF
	}
	if IsLongHeaderPacket(data[0]) {
		return nil, errors.New("not a short header packet")
	}
	if data[0]&0x40 == 0 {
		return nil, errNotQUICPacket
	}
	pnLen := protocol.PacketNumberLen(data[0]&0b11) + 1
	if len(data) < 1+int(pnLen)+connIDLen {
		return nil, io.EOF
	}
	kp := protocol.KeyPhaseZero
	if data[0]&0b100 > 0 {
		kp = protocol.KeyPhaseOne
	}
	hdr := &ShortHeader{
		DestConnectionID: protocol.ParseConnectionID(data[1 : 1+connIDLen]),
		PacketNumber:     readPacketNumber(data[1+connIDLen:], pnLen),
		PacketNumberLen:  pnLen,
		KeyPhase:         kp,
	}
	if data[0]&0x18 != 0 {
		return hdr, ErrInvalidReservedBits
	}
	return hdr, nil
}

// Len returns the length of the short header.
func (h *ShortHeader) Len() protocol.ByteCount {
	return ShortHeaderLen(h.DestConnectionID, h.PacketNumberLen)
}

// AppendShortHeader writes a short header.
func AppendShortHeader(b []byte, connID protocol.ConnectionID, pn protocol.PacketNumber, pnLen protocol.PacketNumberLen, kp protocol.KeyPhaseBit) ([]byte, error) {
	typeByte := 0x40 | uint8(pnLen-1)
	if kp == protocol.KeyPhaseOne {
		typeByte |= byte(1 << 2)
	}
	b = append(b, typeByte)
	b = append(b, connID.Bytes()...)
	return appendPacketNumber(b, pn, pnLen)
}

// ShortHeaderLen is the length of a short header with the given connection ID and packet number length.
func ShortHeaderLen(dest protocol.ConnectionID, pnLen protocol.PacketNumberLen) protocol.ByteCount {
	return 1 + protocol.ByteCount(dest.Len()) + protocol.ByteCount(pnLen)
}
