package quicconn

import (
	"errors"
	"fmt"

	"github.com/quic-go/quicconn/internal/ackhandler"
	"github.com/quic-go/quicconn/internal/handshake"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"
)

// A packet is only added to a partially filled datagram if at least this much space is left.
const minCoalescedPacketSize protocol.ByteCount = 128

var errNothingToPack = errors.New("nothing to pack")

type sealerGetter interface {
	Sealer(protocol.EncryptionLevel) (handshake.Sealer, error)
}

type ackFrameSource interface {
	GetAckFrame(encLevel protocol.EncryptionLevel, now monotime.Time, onlyIfQueued bool) *wire.AckFrame
}

// A packedPacket is a packet that was assembled by the packetPacker.
type packedPacket struct {
	EncryptionLevel protocol.EncryptionLevel
	PacketNumber    protocol.PacketNumber
	// Frames are all frames of the packet, including the ACK frame.
	Frames []wire.Frame
	Ack    *wire.AckFrame

	IsPathMTUProbePacket bool
	IsPathProbePacket    bool

	// raw is the sealed packet.
	// Initial packets are sealed when the datagram is complete, so that they can be padded.
	raw []byte

	hdr     *wire.Header
	payload []byte
	sealer  handshake.Sealer
}

// Len is the length of the packet on the wire, without any padding added when sealing.
func (p *packedPacket) Len() protocol.ByteCount {
	if p.raw != nil {
		return protocol.ByteCount(len(p.raw))
	}
	return p.hdr.GetLength(p.hdr.Version) + protocol.ByteCount(len(p.payload)+p.sealer.Overhead())
}

func (p *packedPacket) IsSealed() bool { return p.raw != nil }

// Seal seals a long header packet. PADDING frames are added to make it at least minSize bytes long.
// It is a no-op for packets that are already sealed.
func (p *packedPacket) Seal(minSize protocol.ByteCount) error {
	if p.raw != nil {
		return nil
	}
	if padding := minSize - p.Len(); padding > 0 {
		p.payload = append(p.payload, make([]byte, padding)...)
	}
	overhead := protocol.ByteCount(p.sealer.Overhead())
	p.hdr.Length = protocol.ByteCount(p.hdr.PacketNumberLen) + protocol.ByteCount(len(p.payload)) + overhead
	raw := make([]byte, 0, p.hdr.GetLength(p.hdr.Version)+protocol.ByteCount(len(p.payload))+overhead)
	raw, err := p.hdr.Append(raw, p.hdr.Version)
	if err != nil {
		return err
	}
	payloadOffset := len(raw)
	raw = append(raw, p.payload...)
	sealed := p.sealer.Seal(raw[payloadOffset:payloadOffset], raw[payloadOffset:], p.PacketNumber, raw[:payloadOffset])
	p.raw = raw[:payloadOffset+len(sealed)]
	p.payload = nil
	return nil
}

func (p *packedPacket) IsAckEliciting() bool {
	return wire.HasAckElicitingFrames(p.Frames)
}

// retransmittableFrames are the frames that are sent again if the packet is lost.
func (p *packedPacket) retransmittableFrames() []wire.Frame {
	frames := make([]wire.Frame, 0, len(p.Frames))
	for _, f := range p.Frames {
		if wire.IsAckEliciting(f) {
			frames = append(frames, f)
		}
	}
	return frames
}

func (p *packedPacket) ToAckHandlerPacket(now monotime.Time, ecn protocol.ECN) *ackhandler.Packet {
	return &ackhandler.Packet{
		PacketNumber:         p.PacketNumber,
		EncryptionLevel:      p.EncryptionLevel,
		Length:               p.Len(),
		Frames:               p.retransmittableFrames(),
		SendTime:             now,
		ECN:                  ecn,
		AckEliciting:         p.IsAckEliciting(),
		IsPathMTUProbePacket: p.IsPathMTUProbePacket,
	}
}

// The packetPacker assembles the frames of an encryption level into a packet.
type packetPacker struct {
	perspective protocol.Perspective
	version     protocol.Version

	getDestConnID func() protocol.ConnectionID
	getSrcConnID  func() protocol.ConnectionID
	token         []byte

	sealers sealerGetter
	acks    ackFrameSource

	pnGenerators [protocol.NumPacketNumberSpaces]*ackhandler.PacketNumberGenerator
	largestAcked [protocol.NumPacketNumberSpaces]protocol.PacketNumber

	framer              *framer
	retransmissionQueue *retransmissionQueue
	initialStream       *cryptoStream
	handshakeStream     *cryptoStream
}

func newPacketPacker(
	perspective protocol.Perspective,
	version protocol.Version,
	getDestConnID, getSrcConnID func() protocol.ConnectionID,
	token []byte,
	sealers sealerGetter,
	acks ackFrameSource,
	framer *framer,
	retransmissionQueue *retransmissionQueue,
	initialStream, handshakeStream *cryptoStream,
) *packetPacker {
	p := &packetPacker{
		perspective:         perspective,
		version:             version,
		getDestConnID:       getDestConnID,
		getSrcConnID:        getSrcConnID,
		token:               token,
		sealers:             sealers,
		acks:                acks,
		framer:              framer,
		retransmissionQueue: retransmissionQueue,
		initialStream:       initialStream,
		handshakeStream:     handshakeStream,
	}
	for i := range p.pnGenerators {
		p.pnGenerators[i] = ackhandler.NewPacketNumberGenerator(0)
		p.largestAcked[i] = protocol.InvalidPacketNumber
	}
	return p
}

// SetLargestAcked is used to determine the length of the packet number.
func (p *packetPacker) SetLargestAcked(space protocol.PacketNumberSpace, pn protocol.PacketNumber) {
	if pn > p.largestAcked[space] {
		p.largestAcked[space] = pn
	}
}

// PeekPacketNumber returns the packet number of the next packet sent at encLevel.
func (p *packetPacker) PeekPacketNumber(encLevel protocol.EncryptionLevel) protocol.PacketNumber {
	return p.pnGenerators[encLevel.PacketNumberSpace()].Peek()
}

func (p *packetPacker) cryptoStream(encLevel protocol.EncryptionLevel) *cryptoStream {
	switch encLevel {
	case protocol.EncryptionInitial:
		return p.initialStream
	case protocol.EncryptionHandshake:
		return p.handshakeStream
	}
	return nil
}

// HasData says if there are frames to send at encLevel, apart from ACKs.
func (p *packetPacker) HasData(encLevel protocol.EncryptionLevel) bool {
	switch encLevel {
	case protocol.EncryptionInitial, protocol.EncryptionHandshake:
		if s := p.cryptoStream(encLevel); s != nil && s.HasData() {
			return true
		}
		return p.retransmissionQueue.HasData(encLevel)
	case protocol.Encryption0RTT:
		return p.framer.HasStreamData()
	case protocol.Encryption1RTT:
		return p.framer.HasData() || p.retransmissionQueue.HasData(encLevel)
	}
	return false
}

// PackPacket packs a packet at encLevel that is at most maxSize bytes long.
// If onlyAck is set, the packet only contains an ACK frame.
// It returns errNothingToPack if there's nothing to send.
func (p *packetPacker) PackPacket(encLevel protocol.EncryptionLevel, maxSize protocol.ByteCount, now monotime.Time, onlyAck bool) (*packedPacket, error) {
	return p.pack(encLevel, maxSize, 0, func(maxLen protocol.ByteCount) ([]wire.Frame, *wire.AckFrame) {
		return p.composeFrames(encLevel, maxLen, now, onlyAck)
	})
}

// PackPingPacket packs an ack-eliciting packet, used as a probe after a PTO and as a keep-alive.
func (p *packetPacker) PackPingPacket(encLevel protocol.EncryptionLevel, maxSize protocol.ByteCount, now monotime.Time) (*packedPacket, error) {
	return p.pack(encLevel, maxSize, 0, func(maxLen protocol.ByteCount) ([]wire.Frame, *wire.AckFrame) {
		var frames []wire.Frame
		var ack *wire.AckFrame
		if encLevel != protocol.Encryption0RTT {
			ack = p.acks.GetAckFrame(encLevel, now, true)
		}
		if ack != nil && ack.Length(p.version)+1 <= maxLen {
			frames = append(frames, ack)
		} else {
			ack = nil
		}
		return append(frames, &wire.PingFrame{}), ack
	})
}

// PackConnectionClose packs a packet carrying a CONNECTION_CLOSE frame.
func (p *packetPacker) PackConnectionClose(encLevel protocol.EncryptionLevel, maxSize protocol.ByteCount, ccf *wire.ConnectionCloseFrame) (*packedPacket, error) {
	return p.pack(encLevel, maxSize, 0, func(maxLen protocol.ByteCount) ([]wire.Frame, *wire.AckFrame) {
		f := *ccf
		if l := f.Length(p.version); l > maxLen {
			cut := min(int(l-maxLen), len(f.ReasonPhrase))
			f.ReasonPhrase = f.ReasonPhrase[:len(f.ReasonPhrase)-cut]
		}
		return []wire.Frame{&f}, nil
	})
}

// PackMTUProbePacket packs a 1-RTT packet of exactly size bytes.
func (p *packetPacker) PackMTUProbePacket(size protocol.ByteCount, now monotime.Time) (*packedPacket, error) {
	packet, err := p.pack(protocol.Encryption1RTT, size, size, func(protocol.ByteCount) ([]wire.Frame, *wire.AckFrame) {
		return []wire.Frame{&wire.PingFrame{}}, nil
	})
	if err != nil {
		return nil, err
	}
	packet.IsPathMTUProbePacket = true
	return packet, nil
}

// PackPathProbePacket packs a 1-RTT packet carrying a PATH_CHALLENGE or PATH_RESPONSE frame,
// sent on a path other than the default path.
func (p *packetPacker) PackPathProbePacket(destConnID protocol.ConnectionID, f wire.Frame, size protocol.ByteCount) (*packedPacket, error) {
	getDestConnID := p.getDestConnID
	p.getDestConnID = func() protocol.ConnectionID { return destConnID }
	defer func() { p.getDestConnID = getDestConnID }()

	packet, err := p.pack(protocol.Encryption1RTT, size, size, func(protocol.ByteCount) ([]wire.Frame, *wire.AckFrame) {
		return []wire.Frame{f}, nil
	})
	if err != nil {
		return nil, err
	}
	packet.IsPathProbePacket = true
	return packet, nil
}

func (p *packetPacker) composeFrames(encLevel protocol.EncryptionLevel, maxLen protocol.ByteCount, now monotime.Time, onlyAck bool) ([]wire.Frame, *wire.AckFrame) {
	hasData := !onlyAck && p.HasData(encLevel)
	var frames []wire.Frame
	var length protocol.ByteCount
	var ack *wire.AckFrame
	// 0-RTT packets can't contain ACK frames
	if encLevel != protocol.Encryption0RTT {
		ack = p.acks.GetAckFrame(encLevel, now, !hasData)
		if ack != nil {
			frames = append(frames, ack)
			length += ack.Length(p.version)
		}
	}
	if !hasData {
		return frames, ack
	}

	switch encLevel {
	case protocol.EncryptionInitial, protocol.EncryptionHandshake:
		for {
			f := p.retransmissionQueue.GetFrame(encLevel, maxLen-length, p.version)
			if f == nil {
				break
			}
			frames = append(frames, f)
			length += f.Length(p.version)
		}
		s := p.cryptoStream(encLevel)
		for s != nil && s.HasData() {
			f := s.PopCryptoFrame(maxLen - length)
			if f == nil {
				break
			}
			frames = append(frames, f)
			length += f.Length(p.version)
		}
	case protocol.Encryption0RTT:
		frames, _ = p.framer.AppendStreamFrames(frames, maxLen-length)
	case protocol.Encryption1RTT:
		var l protocol.ByteCount
		frames, l = p.framer.AppendControlFrames(frames, maxLen-length)
		length += l
		for {
			f := p.retransmissionQueue.GetFrame(encLevel, maxLen-length, p.version)
			if f == nil {
				break
			}
			frames = append(frames, f)
			length += f.Length(p.version)
		}
		frames, _ = p.framer.AppendStreamFrames(frames, maxLen-length)
	}
	return frames, ack
}

// pack assembles a packet.
// If minSize is set, the packet is padded to that size.
func (p *packetPacker) pack(
	encLevel protocol.EncryptionLevel,
	maxSize, minSize protocol.ByteCount,
	compose func(maxLen protocol.ByteCount) ([]wire.Frame, *wire.AckFrame),
) (*packedPacket, error) {
	sealer, err := p.sealers.Sealer(encLevel)
	if err != nil {
		return nil, errNothingToPack
	}
	space := encLevel.PacketNumberSpace()
	pn := p.pnGenerators[space].Peek()
	pnLen := protocol.PacketNumberLengthForHeader(pn, p.largestAcked[space])

	var hdr *wire.Header
	var hdrLen protocol.ByteCount
	if encLevel == protocol.Encryption1RTT {
		hdrLen = wire.ShortHeaderLen(p.getDestConnID(), pnLen)
	} else {
		hdr = p.longHeader(encLevel, pn, pnLen)
		hdrLen = hdr.GetLength(p.version)
	}
	overhead := protocol.ByteCount(sealer.Overhead())
	if maxSize <= hdrLen+overhead {
		return nil, errNothingToPack
	}
	frames, ack := compose(maxSize - hdrLen - overhead)
	if len(frames) == 0 {
		return nil, errNothingToPack
	}

	payload := make([]byte, 0, maxSize-hdrLen)
	for _, f := range frames {
		payload, err = f.Append(payload, p.version)
		if err != nil {
			return nil, fmt.Errorf("serializing %T: %w", f, err)
		}
	}
	if padding := minSize - hdrLen - overhead - protocol.ByteCount(len(payload)); padding > 0 {
		payload = append(payload, make([]byte, padding)...)
	}
	if hdrLen+protocol.ByteCount(len(payload))+overhead > maxSize {
		return nil, qerr.Errorf(qerr.ErrFailedToSerializePacket, "packet too large (%d bytes, maximum %d)", hdrLen+protocol.ByteCount(len(payload))+overhead, maxSize)
	}
	p.pnGenerators[space].Pop()

	packet := &packedPacket{
		EncryptionLevel: encLevel,
		PacketNumber:    pn,
		Frames:          frames,
		Ack:             ack,
		hdr:             hdr,
		payload:         payload,
		sealer:          sealer,
	}
	switch encLevel {
	case protocol.EncryptionInitial:
		// sealed once the datagram is complete
		return packet, nil
	case protocol.Encryption1RTT:
		if err := p.sealShortHeaderPacket(packet, pnLen); err != nil {
			return nil, err
		}
		return packet, nil
	default:
		if err := packet.Seal(0); err != nil {
			return nil, err
		}
		return packet, nil
	}
}

func (p *packetPacker) sealShortHeaderPacket(packet *packedPacket, pnLen protocol.PacketNumberLen) error {
	sealer, ok := packet.sealer.(handshake.ShortHeaderSealer)
	if !ok {
		return fmt.Errorf("invalid 1-RTT sealer: %T", packet.sealer)
	}
	// KeyPhase initiates a key update when the confidentiality limit is approached
	kp := sealer.KeyPhase()
	if sealer.ConfidentialityLimitReached() {
		return qerr.NewError(qerr.ErrAEADLimitReached, "confidentiality limit reached")
	}
	raw := make([]byte, 0, len(packet.payload)+1+protocol.MaxConnIDLen+int(pnLen)+sealer.Overhead())
	raw, err := wire.AppendShortHeader(raw, p.getDestConnID(), packet.PacketNumber, pnLen, kp)
	if err != nil {
		return err
	}
	payloadOffset := len(raw)
	raw = append(raw, packet.payload...)
	sealed := sealer.Seal(raw[payloadOffset:payloadOffset], raw[payloadOffset:], packet.PacketNumber, raw[:payloadOffset])
	packet.raw = raw[:payloadOffset+len(sealed)]
	packet.payload = nil
	return nil
}

func (p *packetPacker) longHeader(encLevel protocol.EncryptionLevel, pn protocol.PacketNumber, pnLen protocol.PacketNumberLen) *wire.Header {
	hdr := &wire.Header{
		Version:          p.version,
		DestConnectionID: p.getDestConnID(),
		SrcConnectionID:  p.getSrcConnID(),
		PacketNumber:     pn,
		PacketNumberLen:  pnLen,
	}
	switch encLevel {
	case protocol.EncryptionInitial:
		hdr.Type = protocol.PacketTypeInitial
		if p.perspective == protocol.PerspectiveClient {
			hdr.Token = p.token
		}
	case protocol.EncryptionHandshake:
		hdr.Type = protocol.PacketTypeHandshake
	case protocol.Encryption0RTT:
		hdr.Type = protocol.PacketType0RTT
	}
	return hdr
}
