package quicconn

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"

	"github.com/quic-go/quicconn/internal/handshake"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"
)

// handleDatagram processes all coalesced packets of a datagram.
func (c *Connection) handleDatagram(self, peer netip.AddrPort, data []byte, ecn protocol.ECN, rcvTime monotime.Time) {
	size := protocol.ByteCount(len(data))
	c.stats.BytesReceived += size
	destConnID, err := wire.ParseConnectionID(data, c.srcConnIDLen)
	if err != nil {
		c.logger.Debug("dropping datagram, error parsing connection ID", "error", err)
		c.dropPacket(logging.PacketTypeNotDetermined, protocol.InvalidPacketNumber, size, logging.PacketDropHeaderParseError)
		return
	}
	if !c.isKnownConnectionID(destConnID) {
		c.logger.Debug("dropping datagram for unknown connection ID", "connection_id", destConnID)
		c.dropPacket(logging.PacketTypeNotDetermined, protocol.InvalidPacketNumber, size, logging.PacketDropUnknownConnectionID)
		return
	}
	c.currentDatagramSize = size
	c.onDatagramReceived(self, peer, size)
	c.handlePackets(self, peer, data, ecn, rcvTime)
}

// onDatagramReceived counts the datagram towards the anti-amplification limit of the path it was received on.
func (c *Connection) onDatagramReceived(self, peer netip.AddrPort, size protocol.ByteCount) {
	switch {
	case c.defaultPath.SelfAddress == self && c.defaultPath.PeerAddress == peer:
		c.defaultPath.onBytesReceived(size)
	case !c.alternativePath.IsEmpty() && c.alternativePath.SelfAddress == self && c.alternativePath.PeerAddress == peer:
		c.alternativePath.onBytesReceived(size)
	}
}

func (c *Connection) isKnownConnectionID(connID protocol.ConnectionID) bool {
	if c.selfConnIDs.IsKnown(connID) {
		return true
	}
	// the client keeps using the original destination connection ID until it receives a packet from the server
	return c.perspective == protocol.PerspectiveServer && !c.handshakeComplete && connID.Equal(c.origDestConnID)
}

func (c *Connection) handlePackets(self, peer netip.AddrPort, data []byte, ecn protocol.ECN, rcvTime monotime.Time) {
	for len(data) > 0 && c.connected {
		if !wire.IsLongHeaderPacket(data[0]) {
			c.handleShortHeaderPacket(self, peer, data, ecn, rcvTime)
			return
		}
		hdr, packetData, rest, err := wire.ParseLongHeaderPacket(data)
		if err != nil {
			reason := logging.PacketDropHeaderParseError
			if errors.Is(err, wire.ErrUnsupportedVersion) {
				reason = logging.PacketDropUnsupportedVersion
			}
			c.logger.Debug("dropping packet, error parsing header", "error", err)
			c.dropPacket(logging.PacketTypeNotDetermined, protocol.InvalidPacketNumber, protocol.ByteCount(len(data)), reason)
			return
		}
		data = rest
		if !c.isKnownConnectionID(hdr.DestConnectionID) {
			c.logger.Debug("dropping coalesced packet with a different connection ID", "connection_id", hdr.DestConnectionID)
			c.dropPacket(logging.PacketTypeFromEncryptionLevel(hdr.EncryptionLevel()), protocol.InvalidPacketNumber, protocol.ByteCount(len(packetData)), logging.PacketDropUnknownConnectionID)
			continue
		}
		c.handleLongHeaderPacket(self, peer, hdr, packetData, ecn, rcvTime)
	}
}

func (c *Connection) handleLongHeaderPacket(self, peer netip.AddrPort, hdr *wire.Header, data []byte, ecn protocol.ECN, rcvTime monotime.Time) {
	encLevel := hdr.EncryptionLevel()
	typ := logging.PacketTypeFromEncryptionLevel(encLevel)
	size := protocol.ByteCount(len(data))
	if hdr.Version != c.version {
		c.logger.Debug("dropping packet with a different version", "version", hdr.Version)
		c.dropPacket(typ, protocol.InvalidPacketNumber, size, logging.PacketDropUnsupportedVersion)
		return
	}
	if encLevel == protocol.Encryption0RTT && c.perspective == protocol.PerspectiveClient {
		c.logger.Debug("dropping 0-RTT packet received by the client")
		c.dropPacket(typ, protocol.InvalidPacketNumber, size, logging.PacketDropUnexpectedPacket)
		return
	}
	// the packet is decrypted in place, keep a copy in case it has to be queued
	raw := append([]byte(nil), data...)
	p, err := c.unpacker.UnpackLongHeader(hdr, data)
	if err != nil {
		c.handleUnpackError(err, encLevel, self, peer, raw, ecn, rcvTime)
		return
	}

	if c.perspective == protocol.PerspectiveClient && !c.receivedFirstPacket && !hdr.SrcConnectionID.Equal(c.defaultPath.DestConnID) {
		// the server chose its own connection ID
		c.logger.Debug("adopting connection ID chosen by the server", "connection_id", hdr.SrcConnectionID)
		c.peerConnIDs.SetInitialConnID(hdr.SrcConnectionID)
		c.defaultPath.DestConnID = hdr.SrcConnectionID
	}
	if c.perspective == protocol.PerspectiveServer && !c.defaultPath.hasDestConnID() {
		c.peerConnIDs.SetInitialConnID(hdr.SrcConnectionID)
		c.defaultPath.DestConnID = hdr.SrcConnectionID
	}
	if c.perspective == protocol.PerspectiveServer && encLevel == protocol.EncryptionInitial && len(hdr.Token) > 0 && !c.defaultPath.Validated {
		if c.tokenValidator.ValidateToken(hdr.Token, peer) {
			c.logger.Debug("address validated by token", "peer", peer)
			c.defaultPath.Validated = true
		} else {
			c.logger.Debug("ignoring invalid address token", "peer", peer)
		}
	}
	c.handleUnpackedPacket(p, self, peer, size, ecn, rcvTime)
}

func (c *Connection) handleShortHeaderPacket(self, peer netip.AddrPort, data []byte, ecn protocol.ECN, rcvTime monotime.Time) {
	size := protocol.ByteCount(len(data))
	// the last 16 bytes of a stateless reset are the token
	var token protocol.StatelessResetToken
	var mightBeStatelessReset bool
	if len(data) >= 1+16 {
		copy(token[:], data[len(data)-16:])
		mightBeStatelessReset = true
	}
	raw := append([]byte(nil), data...)
	p, err := c.unpacker.UnpackShortHeader(rcvTime, data)
	if err != nil {
		if mightBeStatelessReset && errors.Is(err, handshake.ErrDecryptionFailed) && c.handleStatelessReset(token, size) {
			return
		}
		c.handleUnpackError(err, protocol.Encryption1RTT, self, peer, raw, ecn, rcvTime)
		return
	}
	c.handleUnpackedPacket(p, self, peer, size, ecn, rcvTime)
}

// handleStatelessReset checks if the packet is a stateless reset for one of the paths.
func (c *Connection) handleStatelessReset(token protocol.StatelessResetToken, size protocol.ByteCount) bool {
	if t := c.defaultPath.StatelessResetToken; t != nil && *t == token {
		c.logger.Info("received stateless reset", "peer", c.defaultPath.PeerAddress)
		if c.tracer != nil && c.tracer.DroppedPacket != nil {
			c.tracer.DroppedPacket(logging.PacketTypeStatelessReset, protocol.InvalidPacketNumber, size, logging.PacketDropPayloadDecryptError)
		}
		c.closeConnection(&qerr.ConnectionError{
			Code:     qerr.ErrPublicReset,
			Details:  "received a stateless reset",
			Source:   qerr.CloseSourceFromPeer,
			WireCode: qerr.NoError,
		}, SilentClose)
		return true
	}
	if t := c.alternativePath.StatelessResetToken; t != nil && *t == token {
		c.logger.Debug("received stateless reset on the alternative path", "peer", c.alternativePath.PeerAddress)
		if c.pathValidator.IsValidatingPeerAddress(c.alternativePath.PeerAddress) {
			c.pathValidator.CancelPathValidation()
		}
		return true
	}
	return false
}

func (c *Connection) handleUnpackError(err error, encLevel protocol.EncryptionLevel, self, peer netip.AddrPort, data []byte, ecn protocol.ECN, rcvTime monotime.Time) {
	typ := logging.PacketTypeFromEncryptionLevel(encLevel)
	size := protocol.ByteCount(len(data))
	var hdrErr *headerParseError
	switch {
	case errors.Is(err, handshake.ErrKeysDropped):
		c.logger.Debug("dropping packet, keys were dropped", "encryption_level", encLevel)
		c.dropPacket(typ, protocol.InvalidPacketNumber, size, logging.PacketDropKeyUnavailable)
	case errors.Is(err, handshake.ErrKeysNotYetAvailable):
		if !c.shouldQueueUndecryptablePacket(encLevel) {
			reason := logging.PacketDropKeyUnavailable
			if len(c.undecryptablePackets) >= c.config.MaxUndecryptablePackets {
				reason = logging.PacketDropDOSPrevention
			}
			c.logger.Debug("dropping undecryptable packet", "encryption_level", encLevel, "queued", len(c.undecryptablePackets))
			c.dropPacket(typ, protocol.InvalidPacketNumber, size, reason)
			return
		}
		c.logger.Debug("queueing undecryptable packet", "encryption_level", encLevel, "size", size)
		c.undecryptablePackets = append(c.undecryptablePackets, undecryptablePacket{
			data:     data,
			self:     self,
			peer:     peer,
			ecn:      ecn,
			rcvTime:  rcvTime,
			encLevel: encLevel,
		})
		c.stats.PacketsBuffered++
		if c.tracer != nil && c.tracer.BufferedPacket != nil {
			c.tracer.BufferedPacket(typ, size)
		}
	case errors.Is(err, wire.ErrInvalidReservedBits):
		c.closeConnection(qerr.NewError(qerr.ErrProtocolViolation, "invalid reserved bits"), SendConnectionClosePacket)
	case errors.Is(err, handshake.ErrDecryptionFailed):
		c.logger.Debug("dropping packet that failed to decrypt", "encryption_level", encLevel, "size", size)
		c.stats.UndecryptableSeen++
		c.dropPacket(typ, protocol.InvalidPacketNumber, size, logging.PacketDropPayloadDecryptError)
	case errors.As(err, &hdrErr):
		c.logger.Debug("dropping packet, error parsing header", "error", err)
		c.dropPacket(typ, protocol.InvalidPacketNumber, size, logging.PacketDropHeaderParseError)
	default:
		// AEAD limit reached, or an invalid key update
		c.closeConnection(toConnectionError(err), SendConnectionClosePacket)
	}
}

// shouldQueueUndecryptablePacket says if a packet that can't be decrypted yet is kept until the keys are available.
func (c *Connection) shouldQueueUndecryptablePacket(encLevel protocol.EncryptionLevel) bool {
	if c.handshakeComplete || encLevel == protocol.EncryptionInitial {
		return false
	}
	if encLevel == protocol.Encryption0RTT && c.perspective == protocol.PerspectiveClient {
		return false
	}
	return len(c.undecryptablePackets) < c.config.MaxUndecryptablePackets
}

// processUndecryptablePackets retries the queued packets after new keys were installed.
func (c *Connection) processUndecryptablePackets(monotime.Time) {
	if len(c.undecryptablePackets) == 0 {
		return
	}
	packets := c.undecryptablePackets
	c.undecryptablePackets = nil
	for _, p := range packets {
		if !c.connected {
			return
		}
		if !c.keys.HasOpener(p.encLevel) {
			c.undecryptablePackets = append(c.undecryptablePackets, p)
			continue
		}
		c.logger.Debug("processing queued packet", "encryption_level", p.encLevel)
		c.handlePackets(p.self, p.peer, p.data, p.ecn, p.rcvTime)
	}
	if c.handshakeComplete && len(c.undecryptablePackets) > 0 {
		c.logger.Debug("discarding undecryptable packets", "count", len(c.undecryptablePackets))
		for _, p := range c.undecryptablePackets {
			c.dropPacket(logging.PacketTypeFromEncryptionLevel(p.encLevel), protocol.InvalidPacketNumber, protocol.ByteCount(len(p.data)), logging.PacketDropKeyUnavailable)
		}
		c.undecryptablePackets = nil
	}
}

func (c *Connection) handleUnpackedPacket(p *unpackedPacket, self, peer netip.AddrPort, size protocol.ByteCount, ecn protocol.ECN, rcvTime monotime.Time) {
	typ := logging.PacketTypeFromEncryptionLevel(p.encryptionLevel)
	if c.receivedPacketHandler.IsPotentiallyDuplicate(p.packetNumber, p.encryptionLevel) {
		c.logger.Debug("dropping duplicate packet", "encryption_level", p.encryptionLevel, "packet_number", p.packetNumber)
		c.stats.DuplicatePackets++
		c.dropPacket(typ, p.packetNumber, size, logging.PacketDropDuplicate)
		return
	}
	c.receivedFirstPacket = true
	c.stats.PacketsReceived++
	c.lastPacketReceivedTime = rcvTime
	c.firstAckElicitingPacketAfterIdleSentTime = 0
	c.keepAlivePingSent = false

	if c.perspective == protocol.PerspectiveServer {
		switch p.encryptionLevel {
		case protocol.EncryptionHandshake:
			// only the client can have derived the Handshake keys
			if peer == c.defaultPath.PeerAddress {
				c.defaultPath.Validated = true
			}
			c.dropEncryptionLevel(protocol.EncryptionInitial)
		case protocol.Encryption1RTT:
			if peer == c.defaultPath.PeerAddress {
				c.defaultPath.Validated = true
			}
			if c.handshakeComplete && !c.handshakeConfirmed {
				c.OnHandshakeConfirmed()
				if c.keys.HasOpener(protocol.Encryption0RTT) {
					c.alarms.Set(AlarmDiscardZeroRTTKeys, rcvTime.Add(protocol.KeyDiscardPTOs*c.rttStats.PTO(false)))
				}
			}
		}
	}

	largestBefore := c.receivedPacketHandler.LargestObserved(p.encryptionLevel)
	frames, isNonProbing, err := c.handleFrames(p, self, peer, rcvTime)
	if err != nil {
		c.closeConnection(toConnectionError(err), SendConnectionClosePacket)
		return
	}
	if !c.connected {
		return
	}
	if c.tracer != nil && c.tracer.ReceivedPacket != nil {
		c.tracer.ReceivedPacket(p.encryptionLevel, p.packetNumber, size, ecn, frames)
	}
	if p.encryptionLevel == protocol.Encryption1RTT && isNonProbing && peer != c.defaultPath.PeerAddress &&
		(largestBefore == protocol.InvalidPacketNumber || p.packetNumber > largestBefore) {
		c.onPeerAddressChanged(self, peer)
		if !c.connected {
			return
		}
	}
	if err := c.receivedPacketHandler.ReceivedPacket(p.packetNumber, ecn, p.encryptionLevel, rcvTime, wire.HasAckElicitingFrames(frames)); err != nil {
		c.closeConnection(toConnectionError(err), SendConnectionClosePacket)
	}
}

// handleFrames parses and handles all frames of a packet.
// It reports if the packet contained any non-probing frames.
func (c *Connection) handleFrames(p *unpackedPacket, self, peer netip.AddrPort, rcvTime monotime.Time) ([]wire.Frame, bool, error) {
	var frames []wire.Frame
	var isNonProbing bool
	var answeredPathChallenge bool
	data := p.data
	for len(data) > 0 {
		l, frame, err := c.frameParser.ParseNext(data, p.encryptionLevel, c.version)
		if err != nil {
			return nil, false, err
		}
		data = data[l:]
		if frame == nil {
			break
		}
		frames = append(frames, frame)
		if !wire.IsProbingFrame(frame) {
			isNonProbing = true
		}
		if c.logger.Enabled(context.Background(), slog.LevelDebug) {
			c.logger.Debug("received frame", "encryption_level", p.encryptionLevel, "packet_number", p.packetNumber, wire.FrameAttr(frame))
		}
		if err := c.handleFrame(frame, p, self, peer, rcvTime, &answeredPathChallenge); err != nil {
			return nil, false, err
		}
		if !c.connected {
			break
		}
	}
	return frames, isNonProbing, nil
}

func (c *Connection) handleFrame(f wire.Frame, p *unpackedPacket, self, peer netip.AddrPort, rcvTime monotime.Time, answeredPathChallenge *bool) error {
	encLevel := p.encryptionLevel
	switch frame := f.(type) {
	case *wire.PingFrame:
	case *wire.AckFrame:
		return c.handleAckFrame(frame, encLevel, rcvTime)
	case *wire.CryptoFrame:
		return c.handleCryptoFrame(frame, encLevel)
	case *wire.StreamFrame:
		return c.handleStreamFrame(frame, encLevel)
	case *wire.ConnectionCloseFrame:
		c.handleConnectionCloseFrame(frame)
	case *wire.NewTokenFrame:
		return c.handleNewTokenFrame(frame)
	case *wire.NewConnectionIDFrame:
		return c.handleNewConnectionIDFrame(frame)
	case *wire.RetireConnectionIDFrame:
		return c.handleRetireConnectionIDFrame(frame, p.destConnID, rcvTime)
	case *wire.PathChallengeFrame:
		if *answeredPathChallenge {
			c.logger.Debug("ignoring PATH_CHALLENGE, already answered one in this packet")
			return nil
		}
		*answeredPathChallenge = true
		c.handlePathChallengeFrame(frame, self, peer)
	case *wire.PathResponseFrame:
		c.pathValidator.OnPathResponse(frame.Data, self)
	case *wire.HandshakeDoneFrame:
		return c.handleHandshakeDoneFrame()
	default:
		return qerr.Errorf(qerr.ErrInvalidFrameData, "unexpected frame type %T", f)
	}
	return nil
}

func (c *Connection) handleAckFrame(f *wire.AckFrame, encLevel protocol.EncryptionLevel, rcvTime monotime.Time) error {
	res, err := c.sentPacketHandler.OnAckReceived(f, encLevel, rcvTime)
	if err != nil {
		return err
	}
	for _, p := range res.AckedPackets {
		if p.IsPathMTUProbePacket {
			c.mtuDiscoverer.OnProbeAcked(p.Length)
			c.sentPacketHandler.SetMaxDatagramSize(c.mtuDiscoverer.CurrentSize())
		}
	}
	if len(res.AckedPackets) > 0 {
		// forward progress
		c.alarms.Cancel(AlarmNetworkBlackhole)
	}
	c.onPacketsLost(res.LostPackets)
	if res.ECNMarkedAcked {
		c.onECNMarkedPacketAcked()
	}
	if res.LargestAcked == protocol.InvalidPacketNumber {
		return nil
	}
	if encLevel == protocol.Encryption1RTT && c.keys.oneRTT != nil {
		if err := c.keys.oneRTT.SetLargestAcked(res.LargestAcked); err != nil {
			return err
		}
	}
	c.packer.SetLargestAcked(encLevel.PacketNumberSpace(), res.LargestAcked)
	return nil
}

func (c *Connection) handleCryptoFrame(f *wire.CryptoFrame, encLevel protocol.EncryptionLevel) error {
	var s *cryptoStream
	switch encLevel {
	case protocol.EncryptionInitial:
		s = c.initialStream
	case protocol.EncryptionHandshake:
		s = c.handshakeStream
	default:
		return qerr.Errorf(qerr.ErrProtocolViolation, "CRYPTO frame at encryption level %s", encLevel)
	}
	if err := s.HandleCryptoFrame(f); err != nil {
		return err
	}
	data := s.GetCryptoData()
	if len(data) == 0 {
		return nil
	}
	return c.handshaker.HandleCryptoData(encLevel, data)
}

func (c *Connection) handleStreamFrame(f *wire.StreamFrame, encLevel protocol.EncryptionLevel) error {
	if encLevel == protocol.EncryptionInitial || encLevel == protocol.EncryptionHandshake {
		if handshake.LooksLikeHandshakeMessage(f.Data) {
			return qerr.Errorf(qerr.ErrMaybeCorruptedMemory, "stream %d: unencrypted data looks like a handshake message", f.StreamID)
		}
		return qerr.Errorf(qerr.ErrUnencryptedStreamData, "unencrypted STREAM frame for stream %d", f.StreamID)
	}
	c.events.OnStreamFrame(f.StreamID, f.Offset, f.Data, f.Fin)
	return nil
}

func (c *Connection) handleConnectionCloseFrame(f *wire.ConnectionCloseFrame) {
	code := qerr.ErrInternalError
	switch qerr.TransportErrorCode(f.ErrorCode) {
	case qerr.NoError:
		code = qerr.ErrPeerGoingAway
	case qerr.ProtocolViolation:
		code = qerr.ErrProtocolViolation
	}
	c.closeConnection(&qerr.ConnectionError{
		Code:     code,
		Details:  f.ReasonPhrase,
		Source:   qerr.CloseSourceFromPeer,
		WireCode: qerr.TransportErrorCode(f.ErrorCode),
	}, SilentClose)
}

func (c *Connection) handleNewTokenFrame(f *wire.NewTokenFrame) error {
	if c.perspective == protocol.PerspectiveServer {
		return qerr.NewError(qerr.ErrInvalidNewToken, "received NEW_TOKEN frame from the client")
	}
	if len(f.Token) == 0 {
		return qerr.NewError(qerr.ErrInvalidNewToken, "empty token")
	}
	c.events.OnNewToken(append([]byte(nil), f.Token...))
	return nil
}

func (c *Connection) handleNewConnectionIDFrame(f *wire.NewConnectionIDFrame) error {
	if err := c.peerConnIDs.Add(f); err != nil {
		return err
	}
	c.updatePathConnectionIDs()
	return nil
}

// updatePathConnectionIDs replaces connection IDs that the peer asked to retire.
func (c *Connection) updatePathConnectionIDs() {
	if c.defaultPath.hasDestConnID() && !c.peerConnIDs.IsActive(c.defaultPath.destConnIDSeq) {
		if !c.switchConnectionID(&c.defaultPath) {
			c.logger.Info("no connection ID available for the default path")
		}
	}
	if !c.alternativePath.IsEmpty() && c.alternativePath.hasDestConnID() && !c.peerConnIDs.IsActive(c.alternativePath.destConnIDSeq) {
		if !c.switchConnectionID(&c.alternativePath) {
			c.logger.Debug("no connection ID available for the alternative path, abandoning it")
			if c.pathValidator.IsValidatingPeerAddress(c.alternativePath.PeerAddress) {
				c.pathValidator.CancelPathValidation()
			}
			c.alternativePath.Clear()
		}
	}
}

func (c *Connection) switchConnectionID(path *PathState) bool {
	id, ok := c.peerConnIDs.ConsumeUnused()
	if !ok {
		return false
	}
	c.logger.Debug("switching connection ID", "peer", path.PeerAddress, "old", path.DestConnID, "new", id.ConnectionID)
	path.DestConnID = id.ConnectionID
	path.destConnIDSeq = id.SequenceNumber
	path.StatelessResetToken = id.StatelessResetToken
	return true
}

func (c *Connection) handleRetireConnectionIDFrame(f *wire.RetireConnectionIDFrame, destConnID protocol.ConnectionID, rcvTime monotime.Time) error {
	deadline := rcvTime.Add(protocol.KeyDiscardPTOs * c.rttStats.PTO(false))
	if err := c.selfConnIDs.Retire(f.SequenceNumber, destConnID, deadline); err != nil {
		return err
	}
	c.alarms.Set(AlarmRetireSelfIssuedConnectionID, c.selfConnIDs.NextRetireDeadline())
	return nil
}

func (c *Connection) handleHandshakeDoneFrame() error {
	if c.perspective == protocol.PerspectiveServer {
		return qerr.NewError(qerr.ErrInvalidHandshakeDone, "received HANDSHAKE_DONE frame from the client")
	}
	c.OnHandshakeConfirmed()
	return nil
}
