package quicconn

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/quic-go/quicconn/internal/ackhandler"
	"github.com/quic-go/quicconn/internal/handshake"
	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"
)

type bufferedPacket struct {
	buf        *packetBuffer
	self, peer netip.AddrPort
	ecn        protocol.ECN
	writer     PacketWriter
	isMTUProbe bool
}

type undecryptablePacket struct {
	data     []byte
	self     netip.AddrPort
	peer     netip.AddrPort
	ecn      protocol.ECN
	rcvTime  monotime.Time
	encLevel protocol.EncryptionLevel
}

// A Connection is the state machine of a single QUIC connection.
//
// It doesn't start any goroutines and doesn't read from the network.
// Datagrams are passed in via ProcessPacket, and packets are written to the PacketWriter.
// Timers are driven by the caller: NextAlarm returns the next deadline, and OnAlarm fires the alarms that are due.
// A Connection is not safe for concurrent use.
type Connection struct {
	perspective protocol.Perspective
	version     protocol.Version
	config      *Config
	clock       Clock
	events      ConnectionEvents
	tracer      *logging.ConnectionTracer
	logger      *slog.Logger

	// the destination connection ID of the client's first Initial packet
	origDestConnID protocol.ConnectionID
	srcConnIDLen   int

	handshaker        handshaker
	keys              keyStore
	encryptionLevel   protocol.EncryptionLevel
	handshakeComplete bool
	// The handshake is confirmed when the server received a 1-RTT packet,
	// and when the client received a HANDSHAKE_DONE frame.
	handshakeConfirmed bool

	initialStream         *cryptoStream
	handshakeStream       *cryptoStream
	rttStats              *utils.RTTStats
	sentPacketHandler     sendAlgorithm
	receivedPacketHandler ackhandler.ReceivedPacketHandler
	framer                *framer
	retransmissionQueue   *retransmissionQueue
	packer                *packetPacker
	unpacker              *packetUnpacker
	frameParser           *wire.FrameParser

	alarms          AlarmSet
	pathValidator   *PathValidator
	selfConnIDs     *selfIssuedConnIDs
	peerConnIDs     *peerIssuedConnIDs
	defaultPath     PathState
	alternativePath PathState
	mtuDiscoverer   *mtuFinder
	tokenValidator  TokenValidator

	coalescer            coalescer
	bufferedPackets      []bufferedPacket
	undecryptablePackets []undecryptablePacket

	flusherDepth int
	connected    bool
	closing      bool
	closeErr     *qerr.ConnectionError

	writeErrorOccurred  bool
	receivedFirstPacket bool

	// size of the datagram that is currently processed
	currentDatagramSize protocol.ByteCount

	ecnState    logging.ECNState
	ecnPTOCount uint8

	creationTime                             monotime.Time
	lastPacketReceivedTime                   monotime.Time
	firstAckElicitingPacketAfterIdleSentTime monotime.Time
	keepAlivePingSent                        bool

	stats ConnectionStats
}

var _ handshake.Host = &Connection{}

// NewClientConnection creates a client connection.
// The handshake is started by calling Connect.
func NewClientConnection(
	config *Config,
	self, peer netip.AddrPort,
	writer PacketWriter,
	events ConnectionEvents,
) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = populateConfig(config)
	destConnID, err := protocol.GenerateConnectionID(protocol.MinConnectionIDLenInitial)
	if err != nil {
		return nil, err
	}
	return newConnection(config, protocol.PerspectiveClient, destConnID, self, peer, writer, events, nil)
}

// NewServerConnection creates a server connection for a client that sent its first Initial packet
// to origDestConnID. The packet is then passed to ProcessPacket.
func NewServerConnection(
	config *Config,
	origDestConnID ConnectionID,
	self, peer netip.AddrPort,
	writer PacketWriter,
	events ConnectionEvents,
) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if origDestConnID.Len() < protocol.MinConnectionIDLenInitial {
		return nil, fmt.Errorf("destination connection ID too short: %d bytes", origDestConnID.Len())
	}
	config = populateConfig(config)
	return newConnection(config, protocol.PerspectiveServer, origDestConnID, self, peer, writer, events, nil)
}

// newConnection creates a connection. If sph is nil, the default loss recovery and congestion controller is used.
func newConnection(
	config *Config,
	pers protocol.Perspective,
	origDestConnID protocol.ConnectionID,
	self, peer netip.AddrPort,
	writer PacketWriter,
	events ConnectionEvents,
	sph sendAlgorithm,
) (*Connection, error) {
	c := &Connection{
		perspective:    pers,
		version:        config.Version,
		config:         config,
		clock:          config.Clock,
		events:         events,
		origDestConnID: origDestConnID,
		srcConnIDLen:   config.ConnectionIDLength,
		connected:      true,
		rttStats:       utils.NewRTTStats(),
		ecnState:       logging.ECNStateTesting,
	}
	if config.DisableECN {
		c.ecnState = logging.ECNStateUnknown
	}
	// the peer delays ACKs by the same fixed amount as we do
	c.rttStats.SetMaxAckDelay(protocol.MaxAckDelay)
	c.creationTime = c.clock.Now()
	c.logger = logutils.Component(config.Logger, logutils.ComponentConnection).With("perspective", pers.String())

	srcConnID, err := protocol.GenerateConnectionID(c.srcConnIDLen)
	if err != nil {
		return nil, err
	}
	if config.Tracer != nil {
		c.tracer = config.Tracer(context.Background(), pers, origDestConnID)
	}

	var rph ackhandler.ReceivedPacketHandler
	var defaultSPH ackhandler.SentPacketHandler
	defaultSPH, rph = ackhandler.NewAckHandler(
		c.rttStats,
		protocol.ByteCount(config.InitialPacketSize),
		pers,
		c.OnCongestionChange,
		c.tracer,
		config.Logger,
	)
	if sph == nil {
		sph = defaultSPH
	}
	c.sentPacketHandler = sph
	c.receivedPacketHandler = rph

	c.framer = newFramer(c.version)
	c.retransmissionQueue = newRetransmissionQueue()
	c.initialStream = newCryptoStream()
	c.handshakeStream = newCryptoStream()
	c.frameParser = wire.NewFrameParser()

	c.selfConnIDs = newSelfIssuedConnIDs(
		srcConnID,
		&protocol.DefaultConnectionIDGenerator{ConnLen: c.srcConnIDLen},
		config.ActiveConnectionIDLimit,
		c.framer.QueueControlFrame,
		c.logger,
	)
	var initialPeerConnID protocol.ConnectionID
	if pers == protocol.PerspectiveClient {
		initialPeerConnID = origDestConnID
	}
	c.peerConnIDs = newPeerIssuedConnIDs(initialPeerConnID, config.ActiveConnectionIDLimit, c.framer.QueueControlFrame, c.logger)

	c.defaultPath = PathState{
		SelfAddress: self,
		PeerAddress: peer,
		SrcConnID:   srcConnID,
		DestConnID:  initialPeerConnID,
		writer:      writer,
	}
	if pers == protocol.PerspectiveClient {
		c.defaultPath.Validated = true
	} else {
		c.defaultPath.Validated = !c.version.SupportsAntiAmplificationLimit()
		c.tokenValidator = config.TokenValidator
		if c.tokenValidator == nil {
			c.tokenValidator = newTokenValidator()
		}
	}

	sealer, opener := handshake.NewInitialAEAD(origDestConnID, pers, c.version)
	c.keys.SetSealer(protocol.EncryptionInitial, sealer)
	c.keys.SetOpener(protocol.EncryptionInitial, opener)
	c.encryptionLevel = protocol.EncryptionInitial

	c.packer = newPacketPacker(
		pers,
		c.version,
		func() protocol.ConnectionID { return c.defaultPath.DestConnID },
		func() protocol.ConnectionID { return c.defaultPath.SrcConnID },
		config.Token,
		&c.keys,
		rph,
		c.framer,
		c.retransmissionQueue,
		c.initialStream,
		c.handshakeStream,
	)
	c.unpacker = newPacketUnpacker(&c.keys, rph, c.srcConnIDLen)

	c.mtuDiscoverer = newMTUDiscoverer(
		c.rttStats,
		protocol.ByteCount(config.InitialPacketSize),
		protocol.ByteCount(config.MaxPacketSize),
		c.creationTime,
		c.tracer,
		c.logger,
	)
	if config.DisablePathMTUDiscovery {
		c.mtuDiscoverer.Disable()
	}
	c.pathValidator = newPathValidator(
		&pathValidatorHostAdapter{conn: c},
		&c.alarms,
		c.clock,
		c.tracer,
		logutils.Component(config.Logger, logutils.ComponentPathValidator),
	)

	hsConfig := config.handshakeConfig(c.rttStats, c.tracer, logutils.Component(config.Logger, logutils.ComponentHandshake))
	if pers == protocol.PerspectiveClient {
		c.handshaker, err = handshake.NewClientHandshake(c, hsConfig)
	} else {
		c.handshaker, err = handshake.NewServerHandshake(c, peer, hsConfig)
	}
	if err != nil {
		return nil, err
	}

	c.registerAlarms()
	c.alarms.Set(AlarmIdle, c.creationTime.Add(config.HandshakeIdleTimeout))

	if c.tracer != nil && c.tracer.StartedConnection != nil {
		c.tracer.StartedConnection(self, peer, srcConnID, origDestConnID)
	}
	c.logger.Debug("created connection", "self", self, "peer", peer, "src_conn_id", srcConnID, "orig_dest_conn_id", origDestConnID, "version", c.version)
	return c, nil
}

func (c *Connection) registerAlarms() {
	c.alarms.Register(AlarmAck, func(now monotime.Time) { c.writePackets(now) })
	c.alarms.Register(AlarmRetransmission, c.onRetransmissionAlarm)
	c.alarms.Register(AlarmSend, func(now monotime.Time) { c.writePackets(now) })
	c.alarms.Register(AlarmMTUDiscovery, c.sendMTUProbe)
	c.alarms.Register(AlarmPing, c.onPingAlarm)
	c.alarms.Register(AlarmDiscardZeroRTTKeys, func(monotime.Time) {
		c.dropEncryptionLevel(protocol.Encryption0RTT)
	})
	c.alarms.Register(AlarmDiscardPreviousOneRTTKeys, func(monotime.Time) {
		if c.keys.oneRTT != nil {
			c.keys.oneRTT.DropPreviousKeys()
		}
	})
	c.alarms.Register(AlarmRetireSelfIssuedConnectionID, func(now monotime.Time) {
		c.selfConnIDs.RemoveRetired(now)
		c.alarms.Set(AlarmRetireSelfIssuedConnectionID, c.selfConnIDs.NextRetireDeadline())
	})
	c.alarms.Register(AlarmMultiPortProbing, c.onMultiPortProbingAlarm)
	c.alarms.Register(AlarmIdle, c.onIdleAlarm)
	c.alarms.Register(AlarmNetworkBlackhole, c.onBlackholeAlarm)
	c.alarms.Register(AlarmProcessUndecryptablePackets, c.processUndecryptablePackets)
}

// Connect starts the handshake of a client connection, and sends the first packets.
// It returns false if the connection was closed, and for server connections.
func (c *Connection) Connect() bool {
	if c.perspective != protocol.PerspectiveClient {
		c.logger.Error("Connect called on a server connection")
		return false
	}
	if !c.connected {
		return false
	}
	f := c.newFlusher()
	if err := c.handshaker.StartHandshake(); err != nil {
		c.closeConnection(toConnectionError(err), SendConnectionClosePacket)
	} else {
		c.writePackets(c.clock.Now())
	}
	f.Close()
	return c.connected
}

// ProcessPacket processes a UDP datagram received on the path (self, peer).
// The datagram is copied, the caller may reuse it afterwards.
func (c *Connection) ProcessPacket(self, peer netip.AddrPort, datagram []byte, ecn ECN) {
	if !c.connected {
		c.logger.Debug("dropping packet, connection is closed", "peer", peer, "size", len(datagram))
		c.dropPacket(logging.PacketTypeNotDetermined, protocol.InvalidPacketNumber, protocol.ByteCount(len(datagram)), logging.PacketDropConnectionClosed)
		return
	}
	f := c.newFlusher()
	defer f.Close()

	now := c.clock.Now()
	data := make([]byte, len(datagram))
	copy(data, datagram)
	c.handleDatagram(self, peer, data, ecn, now)

	if c.connected && c.alarms.IsSet(AlarmProcessUndecryptablePackets) && !c.alarms.Deadline(AlarmProcessUndecryptablePackets).After(now) {
		c.alarms.Cancel(AlarmProcessUndecryptablePackets)
		c.processUndecryptablePackets(now)
	}
	if c.connected {
		c.writePackets(now)
	}
}

// OnCanWrite is called when the PacketWriter is writable again.
// It sends the buffered packets, and then new packets.
func (c *Connection) OnCanWrite() {
	if !c.connected {
		return
	}
	defer c.newFlusher().Close()
	c.writePackets(c.clock.Now())
}

// NextAlarm returns the time when OnAlarm needs to be called next.
// It returns the zero value if no alarm is set.
func (c *Connection) NextAlarm() monotime.Time {
	return c.alarms.NextDeadline()
}

// OnAlarm fires all alarms that are due at now.
func (c *Connection) OnAlarm(now monotime.Time) {
	if !c.connected {
		return
	}
	defer c.newFlusher().Close()
	if n := c.alarms.Fire(now); n > 0 {
		c.logger.Debug("fired alarms", "count", n)
	}
}

// OnCongestionChange is called when the congestion window grows.
// Packets are sent right away, unless the connection is processing an event already.
func (c *Connection) OnCongestionChange() {
	if c.tracer != nil && c.tracer.UpdatedMetrics != nil {
		c.tracer.UpdatedMetrics(c.rttStats, c.sentPacketHandler.CongestionWindow(), c.sentPacketHandler.BytesInFlight())
	}
	if c.flusherDepth > 0 || !c.connected {
		return
	}
	defer c.newFlusher().Close()
	c.writePackets(c.clock.Now())
}

// SendStreamData queues stream data, and sends it as soon as possible.
// Data is sent in 0-RTT packets until the 1-RTT keys are available.
func (c *Connection) SendStreamData(streamID uint64, offset ByteCount, data []byte, fin bool) error {
	if !c.connected {
		return c.closeErr
	}
	c.framer.QueueStreamFrame(&wire.StreamFrame{
		StreamID: streamID,
		Offset:   offset,
		Data:     append([]byte(nil), data...),
		Fin:      fin,
	})
	defer c.newFlusher().Close()
	c.writePackets(c.clock.Now())
	return nil
}

// Close closes the connection.
// It is a no-op if the connection is already closed.
func (c *Connection) Close(code ErrorCode, details string, behavior ConnectionCloseBehavior) {
	c.closeConnection(qerr.NewError(code, details), behavior)
}

// SendCryptoData is called by the handshaker.
func (c *Connection) SendCryptoData(encLevel protocol.EncryptionLevel, data []byte) {
	switch encLevel {
	case protocol.EncryptionInitial:
		c.initialStream.Write(data)
	case protocol.EncryptionHandshake:
		c.handshakeStream.Write(data)
	default:
		c.closeConnection(qerr.Errorf(qerr.ErrInternalError, "crypto data at encryption level %s", encLevel), SendConnectionClosePacket)
	}
}

// OnNewEncryptionKey is called by the handshaker.
func (c *Connection) OnNewEncryptionKey(encLevel protocol.EncryptionLevel, sealer handshake.Sealer) {
	c.keys.SetSealer(encLevel, sealer)
	if encLevel > c.encryptionLevel {
		c.encryptionLevel = encLevel
	}
	c.logger.Debug("installed encryption key", "encryption_level", encLevel)
	if c.tracer != nil && c.tracer.UpdatedKeyFromHandshake != nil {
		c.tracer.UpdatedKeyFromHandshake(encLevel, c.perspective)
	}
	// 0-RTT data that wasn't sent yet is sent in 1-RTT packets
	if encLevel == protocol.Encryption1RTT && c.perspective == protocol.PerspectiveClient {
		c.keys.DropSealer(protocol.Encryption0RTT)
	}
}

// OnNewDecryptionKey is called by the handshaker.
func (c *Connection) OnNewDecryptionKey(encLevel protocol.EncryptionLevel, opener handshake.Opener) {
	c.keys.SetOpener(encLevel, opener)
	c.logger.Debug("installed decryption key", "encryption_level", encLevel)
	if c.perspective == protocol.PerspectiveServer && c.tracer != nil && c.tracer.UpdatedKeyFromHandshake != nil {
		c.tracer.UpdatedKeyFromHandshake(encLevel, c.perspective.Opposite())
	}
	if len(c.undecryptablePackets) > 0 {
		c.alarms.Set(AlarmProcessUndecryptablePackets, c.clock.Now())
	}
}

// OnHandshakeComplete is called by the handshaker.
func (c *Connection) OnHandshakeComplete() {
	c.handshakeComplete = true
	c.logger.Info("handshake complete", "encryption_level", c.encryptionLevel, "rtt", c.rttStats.SmoothedRTT())
	if err := c.selfConnIDs.SetHandshakeComplete(); err != nil {
		c.closeConnection(qerr.Errorf(qerr.ErrInternalError, "issuing connection IDs: %s", err), SendConnectionClosePacket)
		return
	}
	c.alarms.Cancel(AlarmIdle)
	if c.perspective == protocol.PerspectiveClient {
		// the server confirms the handshake once it receives a 1-RTT packet
		c.framer.QueueControlFrame(&wire.PingFrame{})
	}
	c.events.OnHandshakeComplete()
}

// OnHandshakeConfirmed is called when the handshake is confirmed.
// The Initial and Handshake keys are discarded, and the server sends a HANDSHAKE_DONE frame.
func (c *Connection) OnHandshakeConfirmed() {
	if c.handshakeConfirmed || !c.connected {
		return
	}
	c.handshakeConfirmed = true
	c.logger.Debug("handshake confirmed")
	c.sentPacketHandler.SetHandshakeConfirmed()
	if c.keys.oneRTT != nil {
		c.keys.oneRTT.SetHandshakeConfirmed()
	}
	c.dropEncryptionLevel(protocol.EncryptionInitial)
	c.dropEncryptionLevel(protocol.EncryptionHandshake)
	if c.perspective == protocol.PerspectiveServer {
		c.framer.QueueControlFrame(&wire.HandshakeDoneFrame{})
	}
}

func (c *Connection) dropEncryptionLevel(encLevel protocol.EncryptionLevel) {
	if c.keys.IsDropped(encLevel) {
		return
	}
	c.logger.Debug("dropping keys", "encryption_level", encLevel)
	c.keys.Drop(encLevel)
	c.sentPacketHandler.DropPackets(encLevel)
	c.receivedPacketHandler.DropPackets(encLevel)
	c.retransmissionQueue.DropPackets(encLevel)
	if encLevel == protocol.Encryption0RTT {
		c.alarms.Cancel(AlarmDiscardZeroRTTKeys)
	}
	if c.tracer != nil && c.tracer.DroppedEncryptionLevel != nil {
		c.tracer.DroppedEncryptionLevel(encLevel)
	}
}

// closeConnection closes the connection. Only the first call has any effect.
func (c *Connection) closeConnection(err *qerr.ConnectionError, behavior ConnectionCloseBehavior) {
	if !c.connected || c.closing {
		c.logger.Debug("ignoring close, connection already closed", "error", err)
		return
	}
	c.closing = true
	if err.Source == qerr.CloseSourceFromPeer {
		c.logger.Info("peer closed connection", "error", err)
	} else {
		c.logger.Info("closing connection", "error", err, "send_connection_close", behavior == SendConnectionClosePacket)
	}
	if behavior == SendConnectionClosePacket && err.Source == qerr.CloseSourceSelf && !c.writeErrorOccurred {
		c.sendConnectionClose(err)
	}

	c.connected = false
	c.closeErr = err
	c.alarms.PermanentlyCancel()
	c.pathValidator.CancelPathValidation()
	c.coalescer.Reset()
	for _, p := range c.bufferedPackets {
		p.buf.Release()
	}
	c.bufferedPackets = nil
	c.undecryptablePackets = nil

	if c.tracer != nil {
		if c.tracer.ClosedConnection != nil {
			c.tracer.ClosedConnection(err)
		}
		if c.tracer.Close != nil {
			c.tracer.Close()
		}
	}
	c.events.OnConnectionClosed(err)
}

// sendConnectionClose sends a CONNECTION_CLOSE frame at every encryption level that keys are available for,
// coalesced into a single datagram.
func (c *Connection) sendConnectionClose(connErr *qerr.ConnectionError) {
	c.flushCoalescedPacket()
	if !c.defaultPath.hasDestConnID() {
		return
	}
	ccf := &wire.ConnectionCloseFrame{
		ErrorCode:    uint64(connErr.WireCode),
		ReasonPhrase: connErr.Details,
	}
	var co coalescer
	for _, encLevel := range protocol.EncryptionLevels {
		if !c.keys.HasSealer(encLevel) {
			continue
		}
		if encLevel == protocol.Encryption0RTT && c.keys.HasSealer(protocol.Encryption1RTT) {
			continue
		}
		maxSize := c.maxDatagramSize() - co.Len()
		p, err := c.packer.PackConnectionClose(encLevel, maxSize, ccf)
		if err != nil {
			c.logger.Debug("not sending CONNECTION_CLOSE", "encryption_level", encLevel, "error", err)
			continue
		}
		co.Add(p)
	}
	if co.IsEmpty() {
		return
	}
	var minSize protocol.ByteCount
	if co.Contains(protocol.EncryptionInitial) && c.perspective == protocol.PerspectiveClient {
		minSize = protocol.MinInitialPacketSize
	}
	buf := getPacketBuffer()
	defer buf.Release()
	if err := co.Assemble(buf, minSize); err != nil {
		c.logger.Error("failed to assemble CONNECTION_CLOSE packet", "error", err)
		return
	}
	for _, p := range co.Packets() {
		c.logger.Debug("sending CONNECTION_CLOSE", "encryption_level", p.EncryptionLevel, "packet_number", p.PacketNumber, "error_code", connErr.WireCode)
		c.onPacketSent(p, protocol.ECNNon)
	}
	c.defaultPath.onBytesSent(buf.Len())
	c.stats.BytesSent += buf.Len()
	if err := c.defaultPath.writer.WritePacket(buf.Data, c.defaultPath.SelfAddress, c.defaultPath.PeerAddress, protocol.ECNNon); err != nil {
		c.logger.Debug("failed to send CONNECTION_CLOSE", "error", err)
	}
}

func (c *Connection) dropPacket(typ logging.PacketType, pn protocol.PacketNumber, size protocol.ByteCount, reason logging.PacketDropReason) {
	c.stats.PacketsDropped++
	if c.tracer != nil && c.tracer.DroppedPacket != nil {
		c.tracer.DroppedPacket(typ, pn, size, reason)
	}
}

// Connected says if the connection is still open.
func (c *Connection) Connected() bool { return c.connected }

// CloseError returns the error the connection was closed with, or nil.
func (c *Connection) CloseError() *ConnectionError { return c.closeErr }

// Perspective returns whether this is a client or a server connection.
func (c *Connection) Perspective() Perspective { return c.perspective }

// Version returns the QUIC version used.
func (c *Connection) Version() Version { return c.version }

// EncryptionLevel is the highest encryption level packets can be sent at.
func (c *Connection) EncryptionLevel() EncryptionLevel { return c.encryptionLevel }

// IsHandshakeConfirmed says if the handshake is confirmed.
func (c *Connection) IsHandshakeConfirmed() bool { return c.handshakeConfirmed }

// HandshakeState returns the progress of the handshake.
func (c *Connection) HandshakeState() HandshakeState {
	switch {
	case !c.connected:
		return HandshakeStateClosed
	case c.handshakeConfirmed:
		return HandshakeStateConfirmed
	case c.handshakeComplete || c.keys.HasSealer(protocol.Encryption1RTT):
		return HandshakeStateForwardSecure
	case c.keys.HasSealer(protocol.EncryptionHandshake):
		return HandshakeStateHandshake
	case c.keys.HasSealer(protocol.Encryption0RTT) || c.keys.HasOpener(protocol.Encryption0RTT):
		return HandshakeStateZeroRTT
	default:
		return HandshakeStateInitial
	}
}

// DefaultPath returns the path packets are sent on.
func (c *Connection) DefaultPath() PathState { return c.defaultPath }

// AlternativePath returns the path that is being validated, or that was the default path before a migration.
// The path is empty if there's no such path.
func (c *Connection) AlternativePath() PathState { return c.alternativePath }

// Stats returns the connection statistics.
func (c *Connection) Stats() ConnectionStats {
	s := c.stats
	s.SmoothedRTT = c.rttStats.SmoothedRTT()
	s.MinRTT = c.rttStats.MinRTT()
	s.CongestionWindow = c.sentPacketHandler.CongestionWindow()
	s.BytesInFlight = c.sentPacketHandler.BytesInFlight()
	s.MTU = c.mtuDiscoverer.CurrentSize()
	s.ECNCapable = c.ecnState == logging.ECNStateCapable
	if c.keys.oneRTT != nil {
		s.KeyUpdates = uint64(c.keys.oneRTT.CurrentKeyPhase())
	}
	return s
}

// rearmAlarms sets the alarms that depend on the state of loss recovery.
// It is called after every event.
func (c *Connection) rearmAlarms() {
	c.setRetransmissionAlarm()
	// Alarms that only send are rearmed once ProcessPacket or OnCanWrite unblock the path.
	// Leaving them set would make them fire over and over without sending anything.
	sendBlocked := c.isAmplificationLimited() || c.defaultPath.writer.IsWriteBlocked() || len(c.bufferedPackets) > 0
	if sendBlocked {
		c.alarms.Cancel(AlarmAck)
	} else {
		c.alarms.Set(AlarmAck, c.receivedPacketHandler.GetAlarmTimeout())
	}
	c.setIdleAlarms()
	c.setBlackholeAlarm()
	if sendBlocked {
		c.alarms.Cancel(AlarmMTUDiscovery)
	} else if c.handshakeConfirmed && c.keys.HasSealer(protocol.Encryption1RTT) {
		c.alarms.Set(AlarmMTUDiscovery, c.mtuDiscoverer.NextProbeTime())
	}
	if c.keys.oneRTT != nil {
		c.alarms.Set(AlarmDiscardPreviousOneRTTKeys, c.keys.oneRTT.PreviousKeysDropTime())
	}
	c.checkOutstandingPackets()
}

func (c *Connection) setRetransmissionAlarm() {
	c.alarms.Set(AlarmRetransmission, c.sentPacketHandler.RetransmissionDeadline())
}

func (c *Connection) setIdleAlarms() {
	if !c.handshakeComplete {
		// the handshake timeout is set when the connection is created
		return
	}
	c.alarms.Set(AlarmIdle, c.idleDeadline())
	if c.config.KeepAlivePeriod > 0 && !c.keepAlivePingSent {
		c.alarms.Set(AlarmPing, c.lastActivityTime().Add(c.keepAliveInterval()))
	} else {
		c.alarms.Cancel(AlarmPing)
	}
}

func (c *Connection) lastActivityTime() monotime.Time {
	t := c.lastPacketReceivedTime
	if t.IsZero() {
		t = c.creationTime
	}
	if c.firstAckElicitingPacketAfterIdleSentTime.After(t) {
		t = c.firstAckElicitingPacketAfterIdleSentTime
	}
	return t
}

func (c *Connection) idleDeadline() monotime.Time {
	// don't time out before a few PTOs have passed
	timeout := max(c.config.MaxIdleTimeout, 3*c.rttStats.PTO(true))
	return c.lastActivityTime().Add(timeout)
}

func (c *Connection) keepAliveInterval() time.Duration {
	return min(c.config.KeepAlivePeriod, c.config.MaxIdleTimeout/2)
}

func (c *Connection) onIdleAlarm(monotime.Time) {
	if !c.handshakeComplete {
		c.closeConnection(qerr.Errorf(qerr.ErrHandshakeTimeout, "handshake did not complete in %s", c.config.HandshakeIdleTimeout), SilentClose)
		return
	}
	c.closeConnection(qerr.Errorf(qerr.ErrNetworkIdleTimeout, "no network activity for %s", c.config.MaxIdleTimeout), SilentClose)
}

func (c *Connection) onPingAlarm(now monotime.Time) {
	if !c.keys.HasSealer(protocol.Encryption1RTT) {
		return
	}
	c.logger.Debug("sending keep-alive PING")
	c.keepAlivePingSent = true
	c.framer.QueueControlFrame(&wire.PingFrame{})
	c.writePackets(now)
}

// blackholeDelay is the time without forward progress after which the network is considered a blackhole.
// It corresponds to the sum of the PTOs before the connection is closed.
func (c *Connection) blackholeDelay() time.Duration {
	numPTOs := protocol.DefaultNumPTOsForBlackholeDetection
	if c.config.Enable5RTOBlackholeDetection {
		numPTOs = 5
	}
	return c.rttStats.PTO(true) * time.Duration(1<<numPTOs-1)
}

func (c *Connection) setBlackholeAlarm() {
	if !c.handshakeComplete || c.sentPacketHandler.BytesInFlight() == 0 {
		c.alarms.Cancel(AlarmNetworkBlackhole)
		return
	}
	if c.alarms.IsSet(AlarmNetworkBlackhole) {
		return
	}
	c.alarms.Set(AlarmNetworkBlackhole, c.clock.Now().Add(c.blackholeDelay()))
}

func (c *Connection) onBlackholeAlarm(monotime.Time) {
	c.closeConnection(qerr.Errorf(qerr.ErrTooManyRTOs, "no forward progress after %d PTOs", c.sentPacketHandler.PTOCount()), SendConnectionClosePacket)
}

// checkOutstandingPackets closes the connection if too many packets are awaiting acknowledgement.
func (c *Connection) checkOutstandingPackets() {
	if !c.connected {
		return
	}
	space := protocol.PacketNumberSpaceApplicationData
	largestSent := c.sentPacketHandler.LargestSent(space)
	leastUnacked := c.sentPacketHandler.LeastUnacked(space)
	if largestSent == protocol.InvalidPacketNumber || leastUnacked == protocol.InvalidPacketNumber {
		return
	}
	if largestSent > leastUnacked && uint64(largestSent-leastUnacked) > c.config.MaxTrackedPackets {
		c.closeConnection(
			qerr.Errorf(qerr.ErrTooManyOutstandingSentPackets, "%d outstanding packets (least unacked: %d, largest sent: %d)", largestSent-leastUnacked, leastUnacked, largestSent),
			SendConnectionClosePacket,
		)
	}
}

type pathValidatorHostAdapter struct {
	conn *Connection
}

var _ pathValidatorHost = &pathValidatorHostAdapter{}

func (a *pathValidatorHostAdapter) SendPathChallenge(ctx *PathValidationContext, data [8]byte) {
	a.conn.sendPathChallenge(ctx, data)
}

func (a *pathValidatorHostAdapter) PathChallengeRetryTimeout(ctx *PathValidationContext) time.Duration {
	c := a.conn
	if ctx.Peer == c.defaultPath.PeerAddress && ctx.Self == c.defaultPath.SelfAddress {
		return 3 * c.rttStats.PTO(false)
	}
	return protocol.PathChallengeRetryTimeoutNonDefault
}
