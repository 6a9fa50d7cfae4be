package quicconn

import (
	"net/netip"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"
)

func (p *PathState) matches(self, peer netip.AddrPort) bool {
	return p.SelfAddress == self && p.PeerAddress == peer
}

// sendPathChallenge is called by the PathValidator.
func (c *Connection) sendPathChallenge(ctx *PathValidationContext, data [8]byte) {
	f := &wire.PathChallengeFrame{Data: data}
	switch {
	case c.defaultPath.matches(ctx.Self, ctx.Peer):
		c.sendPathProbe(&c.defaultPath, f)
	case c.alternativePath.matches(ctx.Self, ctx.Peer):
		c.sendPathProbe(&c.alternativePath, f)
	default:
		c.logger.Debug("not sending PATH_CHALLENGE, unknown path", "self", ctx.Self, "peer", ctx.Peer)
	}
}

// handlePathChallengeFrame answers a PATH_CHALLENGE on the path it was received on.
// A PATH_CHALLENGE from an unknown address starts the validation of that address,
// unless the server is validating the peer address after a migration: that validation is never preempted.
func (c *Connection) handlePathChallengeFrame(f *wire.PathChallengeFrame, self, peer netip.AddrPort) {
	resp := &wire.PathResponseFrame{Data: f.Data}
	if c.defaultPath.matches(self, peer) {
		c.framer.QueueControlFrame(resp)
		return
	}
	if c.alternativePath.matches(self, peer) {
		c.sendPathProbe(&c.alternativePath, resp)
		return
	}
	if c.perspective == protocol.PerspectiveClient || !c.handshakeConfirmed {
		c.logger.Debug("ignoring PATH_CHALLENGE from unknown path", "self", self, "peer", peer)
		return
	}

	if c.pathValidator.HasPendingPathValidation() && c.pathValidator.Reason() == logging.PathValidationReasonReversePath {
		// answer on a temporary path, without replacing the alternative path
		tmp := PathState{
			SelfAddress:                   self,
			PeerAddress:                   peer,
			SrcConnID:                     c.defaultPath.SrcConnID,
			DestConnID:                    c.defaultPath.DestConnID,
			BytesReceivedBeforeValidation: c.currentDatagramSize,
			writer:                        c.defaultPath.writer,
		}
		c.sendPathProbe(&tmp, resp)
		return
	}

	path := PathState{
		SelfAddress:                   self,
		PeerAddress:                   peer,
		SrcConnID:                     c.defaultPath.SrcConnID,
		BytesReceivedBeforeValidation: c.currentDatagramSize,
		writer:                        c.defaultPath.writer,
	}
	if id, ok := c.peerConnIDs.ConsumeUnused(); ok {
		path.DestConnID = id.ConnectionID
		path.destConnIDSeq = id.SequenceNumber
		path.StatelessResetToken = id.StatelessResetToken
	} else if !c.version.RequiresConnectionIDsOnMigration() {
		path.DestConnID = c.defaultPath.DestConnID
		path.destConnIDSeq = c.defaultPath.destConnIDSeq
		path.StatelessResetToken = c.defaultPath.StatelessResetToken
	} else {
		c.logger.Debug("no unused connection ID to answer PATH_CHALLENGE", "peer", peer)
		return
	}
	c.discardAlternativePath()
	c.alternativePath = path
	c.sendPathProbe(&c.alternativePath, resp)
	if !c.connected {
		return
	}
	c.pathValidator.StartPathValidation(
		&PathValidationContext{Self: self, Peer: peer, Writer: path.writer},
		&alternativePathValidationResult{conn: c, reason: logging.PathValidationReasonPeerChallenge},
		logging.PathValidationReasonPeerChallenge,
	)
}

// discardAlternativePath clears the alternative path and gives back its connection ID.
func (c *Connection) discardAlternativePath() {
	alt := c.alternativePath
	if alt.IsEmpty() {
		return
	}
	c.alternativePath.Clear()
	if c.pathValidator.IsValidatingPeerAddress(alt.PeerAddress) && c.pathValidator.Context().Self == alt.SelfAddress {
		c.pathValidator.CancelPathValidation()
	}
	c.retireUnusedConnID(alt)
}

// retireUnusedConnID retires the connection ID of a path that is no longer used,
// unless another path still uses it.
func (c *Connection) retireUnusedConnID(p PathState) {
	if !p.hasDestConnID() {
		return
	}
	if c.defaultPath.hasDestConnID() && c.defaultPath.destConnIDSeq == p.destConnIDSeq {
		return
	}
	if c.alternativePath.hasDestConnID() && c.alternativePath.destConnIDSeq == p.destConnIDSeq {
		return
	}
	c.peerConnIDs.Retire(p.destConnIDSeq)
}

// alternativePathValidationResult handles the validation of the alternative path.
type alternativePathValidationResult struct {
	conn   *Connection
	reason PathValidationReason
	// inner is the result passed to ValidatePath, if any
	inner PathValidationResult
}

var _ PathValidationResult = &alternativePathValidationResult{}

func (r *alternativePathValidationResult) OnPathValidationSuccess(ctx *PathValidationContext, startTime monotime.Time) {
	c := r.conn
	switch {
	case c.alternativePath.matches(ctx.Self, ctx.Peer):
		c.alternativePath.Validated = true
		c.stats.PathValidations++
		if r.reason == logging.PathValidationReasonMultiPort && c.config.MultiPortProbingInterval > 0 {
			c.alarms.Set(AlarmMultiPortProbing, c.clock.Now().Add(c.config.MultiPortProbingInterval))
		}
	case c.defaultPath.matches(ctx.Self, ctx.Peer):
		// the peer migrated to this path while it was being validated
		c.defaultPath.Validated = true
		c.stats.PathValidations++
	}
	if r.inner != nil {
		r.inner.OnPathValidationSuccess(ctx, startTime)
	}
}

func (r *alternativePathValidationResult) OnPathValidationFailure(ctx *PathValidationContext) {
	c := r.conn
	if c.alternativePath.matches(ctx.Self, ctx.Peer) {
		c.logger.Debug("alternative path validation failed", "self", ctx.Self, "peer", ctx.Peer)
		alt := c.alternativePath
		c.alternativePath.Clear()
		c.retireUnusedConnID(alt)
	}
	if r.inner != nil {
		r.inner.OnPathValidationFailure(ctx)
	}
}

// reversePathValidationResult handles the validation of the peer address after the peer migrated.
type reversePathValidationResult struct {
	conn      *Connection
	ipChanged bool
}

var _ PathValidationResult = &reversePathValidationResult{}

func (r *reversePathValidationResult) OnPathValidationSuccess(ctx *PathValidationContext, _ monotime.Time) {
	c := r.conn
	if !c.defaultPath.matches(ctx.Self, ctx.Peer) {
		return
	}
	c.logger.Debug("validated peer address", "peer", ctx.Peer)
	c.defaultPath.Validated = true
	c.stats.PathValidations++
	old := c.alternativePath
	c.alternativePath.Clear()
	c.retireUnusedConnID(old)
	if r.ipChanged {
		c.sendNewToken()
	}
}

// OnPathValidationFailure restores the previous validated path.
// Without such a path the connection is closed.
func (r *reversePathValidationResult) OnPathValidationFailure(ctx *PathValidationContext) {
	c := r.conn
	if !c.connected || !c.defaultPath.matches(ctx.Self, ctx.Peer) {
		return
	}
	if c.alternativePath.IsEmpty() || !c.alternativePath.Validated {
		c.closeConnection(qerr.Errorf(qerr.ErrInternalError, "validation of peer address %s failed", ctx.Peer), SilentClose)
		return
	}
	failed := c.defaultPath
	restored := c.alternativePath
	c.alternativePath.Clear()
	if restored.congestionState != nil {
		c.sentPacketHandler.ResetCongestionState()
		for _, p := range c.sentPacketHandler.MarkAllForRetransmission() {
			c.requeueFrames(p)
		}
		c.sentPacketHandler.RestoreCongestionState(restored.congestionState)
		restored.congestionState = nil
	}
	c.defaultPath = restored
	c.retireUnusedConnID(failed)
	c.logger.Info("peer address validation failed, reverting to previous path", "failed", failed.PeerAddress, "restored", restored.PeerAddress)
	if c.tracer != nil && c.tracer.MigratedPath != nil {
		c.tracer.MigratedPath(failed.PeerAddress, restored.PeerAddress, false)
	}
	c.events.OnConnectionMigration(failed.PeerAddress, restored.PeerAddress)
}

// onPeerAddressChanged is called for a non-probing packet received from a new peer address.
func (c *Connection) onPeerAddressChanged(self, peer netip.AddrPort) {
	if c.perspective == protocol.PerspectiveClient {
		c.logger.Debug("ignoring packet from a different server address", "peer", peer)
		return
	}
	portChange := samePeerIP(peer, c.defaultPath.PeerAddress)
	if !c.handshakeConfirmed {
		code := qerr.ErrConnectionMigrationHandshakeUnconfirmed
		if portChange {
			code = qerr.ErrPeerPortChangeHandshakeUnconfirmed
		}
		c.closeConnection(qerr.Errorf(code, "peer address changed from %s to %s", c.defaultPath.PeerAddress, peer), SendConnectionClosePacket)
		return
	}
	if !c.config.AllowPeerMigration {
		c.logger.Debug("ignoring peer migration", "from", c.defaultPath.PeerAddress, "to", peer)
		return
	}

	oldPath := c.defaultPath
	var newPath PathState
	if c.alternativePath.matches(self, peer) {
		newPath = c.alternativePath
		c.alternativePath.Clear()
	} else {
		newPath = PathState{
			SelfAddress:                   self,
			PeerAddress:                   peer,
			SrcConnID:                     oldPath.SrcConnID,
			DestConnID:                    oldPath.DestConnID,
			destConnIDSeq:                 oldPath.destConnIDSeq,
			StatelessResetToken:           oldPath.StatelessResetToken,
			BytesReceivedBeforeValidation: c.currentDatagramSize,
			writer:                        oldPath.writer,
		}
	}

	// A port change keeps the congestion controller.
	oldState := newPath.congestionState
	newPath.congestionState = nil
	if !portChange {
		saved := c.sentPacketHandler.ResetCongestionState()
		for _, p := range c.sentPacketHandler.MarkAllForRetransmission() {
			c.requeueFrames(p)
		}
		if oldState != nil {
			c.sentPacketHandler.RestoreCongestionState(oldState)
		}
		oldPath.congestionState = saved
	}

	c.defaultPath = newPath
	if oldPath.Validated {
		if !c.alternativePath.IsEmpty() {
			c.discardAlternativePath()
		}
		c.alternativePath = oldPath
	} else {
		oldPath.congestionState = nil
		if c.pathValidator.IsValidatingPeerAddress(oldPath.PeerAddress) {
			c.pathValidator.CancelPathValidation()
		}
		c.retireUnusedConnID(oldPath)
	}

	c.ecnPTOCount = 0
	if c.config.DisableECN {
		c.setECNState(logging.ECNStateUnknown)
	} else {
		c.setECNState(logging.ECNStateTesting)
	}
	c.stats.Migrations++
	c.logger.Info("peer migrated", "from", oldPath.PeerAddress, "to", peer, "port_change", portChange, "validated", newPath.Validated)
	if c.tracer != nil && c.tracer.MigratedPath != nil {
		c.tracer.MigratedPath(oldPath.PeerAddress, peer, true)
	}
	c.events.OnConnectionMigration(oldPath.PeerAddress, peer)

	if !newPath.Validated {
		c.pathValidator.StartPathValidation(
			&PathValidationContext{Self: self, Peer: peer, Writer: newPath.writer},
			&reversePathValidationResult{conn: c, ipChanged: !portChange},
			logging.PathValidationReasonReversePath,
		)
		return
	}
	if !portChange {
		c.sendNewToken()
	}
}

// sendNewToken issues an address token for the current peer address.
func (c *Connection) sendNewToken() {
	if c.perspective != protocol.PerspectiveServer || c.tokenValidator == nil {
		return
	}
	token := c.tokenValidator.IssueAddressToken(c.defaultPath.PeerAddress)
	if len(token) == 0 {
		return
	}
	c.framer.QueueControlFrame(&wire.NewTokenFrame{Token: token})
}

// MigratePath moves the connection to a new path.
// It is only available to the client, after the handshake was confirmed.
// It returns false if the connection can't be migrated,
// e.g. because the server didn't provide an unused connection ID.
func (c *Connection) MigratePath(self, peer netip.AddrPort, writer PacketWriter) bool {
	if c.perspective != protocol.PerspectiveClient || !c.connected || !c.handshakeConfirmed {
		return false
	}
	if c.defaultPath.matches(self, peer) {
		c.defaultPath.writer = writer
		return true
	}
	f := c.newFlusher()
	defer f.Close()

	var newPath PathState
	if c.alternativePath.matches(self, peer) {
		newPath = c.alternativePath
		c.alternativePath.Clear()
		if c.pathValidator.IsValidatingPeerAddress(peer) {
			c.pathValidator.CancelPathValidation()
		}
		c.alarms.Cancel(AlarmMultiPortProbing)
	} else {
		newPath = PathState{
			SelfAddress: self,
			PeerAddress: peer,
			SrcConnID:   c.defaultPath.SrcConnID,
		}
		if id, ok := c.peerConnIDs.ConsumeUnused(); ok {
			newPath.DestConnID = id.ConnectionID
			newPath.destConnIDSeq = id.SequenceNumber
			newPath.StatelessResetToken = id.StatelessResetToken
		} else if c.version.RequiresConnectionIDsOnMigration() {
			c.logger.Debug("can't migrate, no unused connection ID", "self", self, "peer", peer)
			return false
		} else {
			newPath.DestConnID = c.defaultPath.DestConnID
			newPath.destConnIDSeq = c.defaultPath.destConnIDSeq
			newPath.StatelessResetToken = c.defaultPath.StatelessResetToken
		}
	}
	newPath.writer = writer
	newPath.Validated = true
	newPath.congestionState = nil

	oldPath := c.defaultPath
	c.defaultPath = newPath
	c.retireUnusedConnID(oldPath)
	c.sentPacketHandler.ResetCongestionState()
	for _, p := range c.sentPacketHandler.MarkAllForRetransmission() {
		c.requeueFrames(p)
	}
	c.ecnPTOCount = 0
	if !c.config.DisableECN {
		c.setECNState(logging.ECNStateTesting)
	}
	c.stats.Migrations++
	c.logger.Info("migrated to new path", "self", self, "peer", peer, "dest_conn_id", newPath.DestConnID)
	if c.tracer != nil && c.tracer.MigratedPath != nil {
		c.tracer.MigratedPath(oldPath.SelfAddress, self, false)
	}
	c.events.OnConnectionMigration(oldPath.SelfAddress, self)
	c.writePackets(c.clock.Now())
	return c.connected
}

// ValidatePath starts the validation of a new path by the client.
// The path becomes the alternative path. result is notified when the validation completes.
func (c *Connection) ValidatePath(ctx *PathValidationContext, result PathValidationResult, reason PathValidationReason) bool {
	if c.perspective != protocol.PerspectiveClient || !c.connected || !c.handshakeConfirmed {
		return false
	}
	if c.defaultPath.matches(ctx.Self, ctx.Peer) {
		return false
	}
	id, ok := c.peerConnIDs.ConsumeUnused()
	if !ok {
		c.logger.Debug("can't validate path, no unused connection ID", "self", ctx.Self, "peer", ctx.Peer)
		return false
	}
	f := c.newFlusher()
	defer f.Close()

	c.discardAlternativePath()
	c.alternativePath = PathState{
		SelfAddress:         ctx.Self,
		PeerAddress:         ctx.Peer,
		SrcConnID:           c.defaultPath.SrcConnID,
		DestConnID:          id.ConnectionID,
		destConnIDSeq:       id.SequenceNumber,
		StatelessResetToken: id.StatelessResetToken,
		writer:              ctx.Writer,
	}
	c.pathValidator.StartPathValidation(ctx, &alternativePathValidationResult{conn: c, reason: reason, inner: result}, reason)
	return c.connected
}

// onMultiPortProbingAlarm probes the validated alternative path again.
func (c *Connection) onMultiPortProbingAlarm(monotime.Time) {
	alt := c.alternativePath
	if alt.IsEmpty() || !alt.Validated || c.pathValidator.HasPendingPathValidation() {
		return
	}
	c.logger.Debug("probing alternative path", "self", alt.SelfAddress, "peer", alt.PeerAddress)
	c.pathValidator.StartPathValidation(
		&PathValidationContext{Self: alt.SelfAddress, Peer: alt.PeerAddress, Writer: alt.writer},
		&alternativePathValidationResult{conn: c, reason: logging.PathValidationReasonMultiPort},
		logging.PathValidationReasonMultiPort,
	)
}
