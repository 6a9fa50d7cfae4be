package quicconn

import (
	"errors"

	"github.com/quic-go/quicconn/internal/ackhandler"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"
)

// packetFate is what happens to a packet after it was packed.
type packetFate uint8

const (
	// fateDiscard drops the packet without sending it.
	fateDiscard packetFate = iota
	// fateCoalesce adds the packet to the datagram that is being assembled.
	fateCoalesce
	// fateBuffer buffers the datagram until the writer is unblocked.
	fateBuffer
	// fateSendToWriter sends the datagram right away.
	fateSendToWriter
)

func (f packetFate) String() string {
	switch f {
	case fateDiscard:
		return "discard"
	case fateCoalesce:
		return "coalesce"
	case fateBuffer:
		return "buffer"
	case fateSendToWriter:
		return "send_to_writer"
	default:
		return "unknown"
	}
}

// amplificationBudget is the number of bytes that can still be sent on the default path.
func (c *Connection) amplificationBudget() protocol.ByteCount {
	return c.pathAmplificationBudget(&c.defaultPath)
}

func (c *Connection) pathAmplificationBudget(path *PathState) protocol.ByteCount {
	if c.perspective == protocol.PerspectiveClient || !c.version.SupportsAntiAmplificationLimit() {
		return protocol.MaxByteCount
	}
	return path.amplificationBudget(c.config.AntiAmplificationFactor)
}

// isAmplificationLimited says if the server has to wait for more data from an unvalidated client address.
func (c *Connection) isAmplificationLimited() bool {
	budget := c.amplificationBudget()
	if c.config.EnforceStrictAmplificationFactor {
		return budget < c.mtuDiscoverer.CurrentSize()
	}
	return budget <= 0
}

// maxDatagramSize is the size limit of the next datagram sent on the default path.
func (c *Connection) maxDatagramSize() protocol.ByteCount {
	return min(c.mtuDiscoverer.CurrentSize(), c.amplificationBudget())
}

// canWrite says if a packet can be sent now.
// Packets that only carry ACKs (hasRetransmittableData == false) are not subject to congestion control and pacing.
func (c *Connection) canWrite(hasRetransmittableData bool, now monotime.Time) bool {
	if !c.connected {
		return false
	}
	if !c.defaultPath.hasDestConnID() {
		return false
	}
	if c.defaultPath.writer.IsWriteBlocked() || len(c.bufferedPackets) > 0 {
		return false
	}
	if c.isAmplificationLimited() {
		c.logger.Debug("amplification limited", "budget", c.amplificationBudget())
		return false
	}
	if !hasRetransmittableData {
		return true
	}
	if deadline := c.sentPacketHandler.TimeUntilSend(now); !deadline.IsZero() && deadline.Sub(now) > c.config.ReleaseTimeIntoFuture {
		c.alarms.Set(AlarmSend, deadline)
		return false
	}
	return c.sentPacketHandler.CanSend(now)
}

// writePackets sends packets until there's nothing left to send, or sending is blocked.
func (c *Connection) writePackets(now monotime.Time) {
	if !c.connected {
		return
	}
	f := c.newFlusher()
	defer f.Close()

	if !c.writeBufferedPackets() {
		return
	}
	for c.connected {
		if !c.canWrite(false, now) {
			return
		}
		onlyAck := !c.canWrite(true, now)
		sent, err := c.packAndSend(now, onlyAck)
		if err != nil {
			c.closeConnection(toConnectionError(err), SendConnectionClosePacket)
			return
		}
		if !sent || onlyAck {
			return
		}
	}
}

// packAndSend packs at most one packet per encryption level.
func (c *Connection) packAndSend(now monotime.Time, onlyAck bool) (bool, error) {
	var sent bool
	for _, encLevel := range protocol.EncryptionLevels {
		if !c.connected {
			return sent, nil
		}
		if c.coalescer.IsEmpty() && !c.canWrite(false, now) {
			return sent, nil
		}
		maxSize := c.maxDatagramSize() - c.coalescer.Len()
		if maxSize < minCoalescedPacketSize && !c.coalescer.IsEmpty() {
			c.flushCoalescedPacket()
			if !c.canWrite(false, now) {
				return sent, nil
			}
			maxSize = c.maxDatagramSize()
		}
		p, err := c.packer.PackPacket(encLevel, maxSize, now, onlyAck)
		if err != nil {
			if errors.Is(err, errNothingToPack) {
				continue
			}
			return sent, err
		}
		c.sendPacket(p)
		sent = true
	}
	return sent, nil
}

// packetFate decides what to do with a packet.
func (c *Connection) packetFate(p *packedPacket) packetFate {
	if c.version == protocol.VersionLegacy && p.EncryptionLevel != protocol.Encryption1RTT && c.encryptionLevel == protocol.Encryption1RTT {
		return fateDiscard
	}
	if c.version.CanSendCoalescedPackets() && (!c.handshakeConfirmed || !c.coalescer.IsEmpty()) {
		return fateCoalesce
	}
	if c.defaultPath.writer.IsWriteBlocked() || len(c.bufferedPackets) > 0 {
		return fateBuffer
	}
	return fateSendToWriter
}

func (c *Connection) sendPacket(p *packedPacket) {
	fate := c.packetFate(p)
	switch fate {
	case fateDiscard:
		c.logger.Debug("discarding packet", "encryption_level", p.EncryptionLevel, "packet_number", p.PacketNumber)
	case fateCoalesce:
		c.coalescer.Add(p)
		if c.maxDatagramSize()-c.coalescer.Len() < minCoalescedPacketSize {
			c.flushCoalescedPacket()
		}
	default:
		c.coalescer.Add(p)
		c.flushCoalescedPacket()
	}
}

// flushCoalescedPacket seals the datagram assembled by the coalescer and sends it.
func (c *Connection) flushCoalescedPacket() {
	if c.coalescer.IsEmpty() {
		return
	}
	var minSize protocol.ByteCount
	// The client pads all datagrams containing Initial packets.
	// The server pads ack-eliciting ones.
	if c.coalescer.Contains(protocol.EncryptionInitial) &&
		(c.perspective == protocol.PerspectiveClient || c.coalescer.IsAckEliciting()) {
		minSize = min(protocol.MinInitialPacketSize, c.amplificationBudget())
	}
	buf := getPacketBuffer()
	if err := c.coalescer.Assemble(buf, minSize); err != nil {
		buf.Release()
		c.coalescer.Reset()
		c.closeConnection(qerr.Errorf(qerr.ErrFailedToSerializePacket, "assembling datagram: %s", err), SendConnectionClosePacket)
		return
	}
	packets := append([]*packedPacket(nil), c.coalescer.Packets()...)
	c.coalescer.Reset()

	ecn := c.ecnMarking()
	var sentHandshakePacket bool
	for _, p := range packets {
		if err := c.sentPacketHandler.OnPacketSent(p.ToAckHandlerPacket(c.clock.Now(), ecn)); err != nil {
			buf.Release()
			c.logger.Error("failed to register sent packet", "encryption_level", p.EncryptionLevel, "packet_number", p.PacketNumber, "error", err)
			c.closeConnection(qerr.Errorf(qerr.ErrInternalError, "registering packet %d: %s", p.PacketNumber, err), SilentClose)
			return
		}
		c.onPacketSent(p, ecn)
		if p.EncryptionLevel == protocol.EncryptionHandshake {
			sentHandshakePacket = true
		}
	}
	c.defaultPath.onBytesSent(buf.Len())
	c.stats.BytesSent += buf.Len()
	isMTUProbe := len(packets) == 1 && packets[0].IsPathMTUProbePacket
	c.writeDatagram(buf, ecn, isMTUProbe)

	if sentHandshakePacket && c.perspective == protocol.PerspectiveClient {
		c.dropEncryptionLevel(protocol.EncryptionInitial)
	}
}

// onPacketSent updates the statistics after a packet was sent.
func (c *Connection) onPacketSent(p *packedPacket, ecn protocol.ECN) {
	c.stats.PacketsSent++
	now := c.clock.Now()
	if p.IsAckEliciting() && c.firstAckElicitingPacketAfterIdleSentTime.IsZero() {
		c.firstAckElicitingPacketAfterIdleSentTime = now
	}
	if c.tracer != nil && c.tracer.SentPacket != nil {
		c.tracer.SentPacket(p.EncryptionLevel, p.PacketNumber, p.Len(), ecn, p.Frames)
	}
}

// writeDatagram writes a datagram on the default path.
// If the writer is blocked, the datagram is buffered.
func (c *Connection) writeDatagram(buf *packetBuffer, ecn protocol.ECN, isMTUProbe bool) {
	path := &c.defaultPath
	if path.writer.IsWriteBlocked() || len(c.bufferedPackets) > 0 {
		c.bufferDatagram(buf, ecn, isMTUProbe)
		return
	}
	err := path.writer.WritePacket(buf.Data, path.SelfAddress, path.PeerAddress, ecn)
	if errors.Is(err, ErrWriteBlocked) {
		c.bufferDatagram(buf, ecn, isMTUProbe)
		return
	}
	buf.Release()
	if err != nil {
		c.handleWriteError(err, isMTUProbe)
	}
}

func (c *Connection) bufferDatagram(buf *packetBuffer, ecn protocol.ECN, isMTUProbe bool) {
	c.logger.Debug("buffering datagram, writer is blocked", "size", buf.Len())
	c.stats.PacketsBuffered++
	c.bufferedPackets = append(c.bufferedPackets, bufferedPacket{
		buf:        buf,
		self:       c.defaultPath.SelfAddress,
		peer:       c.defaultPath.PeerAddress,
		ecn:        ecn,
		writer:     c.defaultPath.writer,
		isMTUProbe: isMTUProbe,
	})
}

// writeBufferedPackets writes the buffered datagrams, in order.
// It returns false if datagrams are still buffered.
func (c *Connection) writeBufferedPackets() bool {
	for len(c.bufferedPackets) > 0 {
		p := c.bufferedPackets[0]
		if p.writer.IsWriteBlocked() {
			return false
		}
		err := p.writer.WritePacket(p.buf.Data, p.self, p.peer, p.ecn)
		if errors.Is(err, ErrWriteBlocked) {
			return false
		}
		c.bufferedPackets[0] = bufferedPacket{}
		c.bufferedPackets = c.bufferedPackets[1:]
		p.buf.Release()
		if err != nil {
			c.handleWriteError(err, p.isMTUProbe)
			if !c.connected {
				return false
			}
		}
	}
	c.bufferedPackets = nil
	return true
}

// handleWriteError handles an error returned by the PacketWriter.
// An MTU that turns out to be too large is reverted once. Any other write error closes the connection.
func (c *Connection) handleWriteError(err error, isMTUProbe bool) {
	if c.closing {
		c.logger.Debug("write error while closing", "error", err)
		return
	}
	tooBig := errors.Is(err, ErrMessageTooBig)
	if tooBig && isMTUProbe {
		c.logger.Debug("MTU probe too big for the path, disabling MTU discovery", "error", err)
		c.mtuDiscoverer.Disable()
		return
	}
	if tooBig && c.mtuDiscoverer.Revert() {
		c.logger.Info("packet too big for the path, reverting MTU", "mtu", c.mtuDiscoverer.CurrentSize())
		c.sentPacketHandler.SetMaxDatagramSize(c.mtuDiscoverer.CurrentSize())
		return
	}
	behavior := SilentClose
	if tooBig {
		behavior = SendConnectionClosePacket
	} else {
		c.writeErrorOccurred = true
	}
	c.closeConnection(qerr.Errorf(qerr.ErrPacketWriteError, "writing packet: %s", err), behavior)
}

func (c *Connection) onRetransmissionAlarm(now monotime.Time) {
	res := c.sentPacketHandler.OnRetransmissionTimeout(now)
	c.onPacketsLost(res.LostPackets)
	if res.IsPTO {
		c.stats.PTOCount++
		c.onPTOForECN()
		c.sendProbePacket(res.ProbeSpace, now)
	}
	c.writePackets(now)
}

// sendProbePacket sends an ack-eliciting packet after a PTO.
// Probe packets are not subject to congestion control.
func (c *Connection) sendProbePacket(space protocol.PacketNumberSpace, now monotime.Time) {
	if !c.canWrite(false, now) {
		return
	}
	encLevel := protocol.Encryption1RTT
	switch space {
	case protocol.PacketNumberSpaceInitial:
		encLevel = protocol.EncryptionInitial
	case protocol.PacketNumberSpaceHandshake:
		encLevel = protocol.EncryptionHandshake
	default:
		if !c.keys.HasSealer(protocol.Encryption1RTT) {
			encLevel = protocol.Encryption0RTT
		}
	}
	if p := c.sentPacketHandler.QueueProbePacket(space); p != nil {
		c.requeueFrames(p)
	}
	maxSize := c.maxDatagramSize() - c.coalescer.Len()
	p, err := c.packer.PackPacket(encLevel, maxSize, now, false)
	if err == nil && !p.IsAckEliciting() {
		c.sendPacket(p)
		maxSize = c.maxDatagramSize() - c.coalescer.Len()
		err = errNothingToPack
	}
	if errors.Is(err, errNothingToPack) {
		p, err = c.packer.PackPingPacket(encLevel, maxSize, now)
	}
	if err != nil {
		if !errors.Is(err, errNothingToPack) {
			c.closeConnection(toConnectionError(err), SendConnectionClosePacket)
			return
		}
		c.logger.Debug("not sending probe packet", "encryption_level", encLevel)
		return
	}
	c.logger.Debug("sending probe packet", "encryption_level", encLevel, "packet_number", p.PacketNumber)
	c.sendPacket(p)
}

// requeueFrames queues the frames of a lost packet for retransmission.
func (c *Connection) requeueFrames(p *ackhandler.Packet) {
	encLevel := p.EncryptionLevel
	if encLevel == protocol.Encryption0RTT {
		encLevel = protocol.Encryption1RTT
	}
	if c.keys.IsDropped(encLevel) {
		return
	}
	for _, f := range p.Frames {
		if sf, ok := f.(*wire.StreamFrame); ok {
			c.framer.QueueStreamFrame(sf)
			continue
		}
		c.retransmissionQueue.Add(encLevel, f)
	}
}

func (c *Connection) onPacketsLost(lost []*ackhandler.Packet) {
	for _, p := range lost {
		c.stats.PacketsLost++
		if p.IsPathMTUProbePacket {
			c.mtuDiscoverer.OnProbeLost(p.Length)
			continue
		}
		c.requeueFrames(p)
	}
}

// sendMTUProbe sends a PING packet of the next probe size.
func (c *Connection) sendMTUProbe(now monotime.Time) {
	if !c.handshakeConfirmed || !c.mtuDiscoverer.ShouldSendProbe(now) || !c.canWrite(false, now) {
		return
	}
	c.flushCoalescedPacket()
	size := c.mtuDiscoverer.GetProbeSize(now)
	p, err := c.packer.PackMTUProbePacket(size, now)
	if err != nil {
		c.logger.Debug("failed to pack MTU probe", "size", size, "error", err)
		c.mtuDiscoverer.OnProbeLost(size)
		return
	}
	c.coalescer.Add(p)
	c.flushCoalescedPacket()
}

// sendPathProbe sends a padded 1-RTT packet carrying a PATH_CHALLENGE or PATH_RESPONSE frame on a path.
// The packet is not subject to congestion control, and is not retransmitted.
func (c *Connection) sendPathProbe(path *PathState, f wire.Frame) {
	if !c.keys.HasSealer(protocol.Encryption1RTT) || !path.hasDestConnID() {
		c.logger.Debug("can't send path probe", "peer", path.PeerAddress)
		return
	}
	// keep the packet numbers of the default path in order
	c.flushCoalescedPacket()
	size := min(protocol.MinInitialPacketSize, c.pathAmplificationBudget(path))
	p, err := c.packer.PackPathProbePacket(path.DestConnID, f, size)
	if err != nil {
		if !errors.Is(err, errNothingToPack) {
			c.closeConnection(toConnectionError(err), SendConnectionClosePacket)
			return
		}
		c.logger.Debug("amplification limit prevents sending path probe", "peer", path.PeerAddress, "budget", size)
		return
	}
	now := c.clock.Now()
	if err := c.sentPacketHandler.OnPacketSent(&ackhandler.Packet{
		PacketNumber:    p.PacketNumber,
		EncryptionLevel: protocol.Encryption1RTT,
		Length:          p.Len(),
		SendTime:        now,
		ECN:             protocol.ECNNon,
	}); err != nil {
		c.closeConnection(qerr.Errorf(qerr.ErrInternalError, "registering path probe: %s", err), SilentClose)
		return
	}
	c.onPacketSent(p, protocol.ECNNon)
	path.onBytesSent(p.Len())
	c.stats.BytesSent += p.Len()
	c.logger.Debug("sending path probe", "peer", path.PeerAddress, "frame", wire.FrameAttr(f), "size", p.Len())
	if err := path.writer.WritePacket(p.raw, path.SelfAddress, path.PeerAddress, protocol.ECNNon); err != nil {
		c.logger.Debug("failed to send path probe", "peer", path.PeerAddress, "error", err)
	}
}

func (c *Connection) ecnMarking() protocol.ECN {
	if c.config.DisableECN || c.ecnState == logging.ECNStateFailed {
		return protocol.ECNNon
	}
	return protocol.ECT0
}

func (c *Connection) setECNState(state logging.ECNState) {
	if c.ecnState == state {
		return
	}
	c.logger.Debug("ECN state changed", "from", c.ecnState, "to", state)
	c.ecnState = state
	if c.tracer != nil && c.tracer.ECNStateUpdated != nil {
		c.tracer.ECNStateUpdated(state)
	}
}

func (c *Connection) onECNMarkedPacketAcked() {
	if c.ecnState == logging.ECNStateFailed || c.config.DisableECN {
		return
	}
	c.ecnPTOCount = 0
	c.setECNState(logging.ECNStateCapable)
}

// onPTOForECN stops marking packets after too many PTOs without an acknowledged ECN-marked packet.
// Middleboxes sometimes drop ECN-marked packets.
func (c *Connection) onPTOForECN() {
	if c.ecnState == logging.ECNStateFailed || c.config.DisableECN {
		return
	}
	c.ecnPTOCount++
	if c.ecnPTOCount >= c.config.ECNPTOLimit {
		c.logger.Info("disabling ECN", "ptos", c.ecnPTOCount)
		c.setECNState(logging.ECNStateFailed)
	}
}
