package ackhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quic-go/quicconn/internal/congestion"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"
)

const (
	// Maximum reordering in time space before time based loss detection considers a packet lost.
	// Specified as an RTT multiplier.
	timeThreshold = 9.0 / 8
	// Maximum reordering in packets before packet threshold loss detection considers a packet lost.
	packetThreshold = 3
	// maxPTOExponent caps the exponential backoff of the probe timeout.
	maxPTOExponent = 16
)

var errSpaceDropped = errors.New("packet number space already dropped")

type packetNumberSpace struct {
	history *sentPacketHistory

	lossTime                   monotime.Time
	lastAckElicitingPacketTime monotime.Time

	largestAcked protocol.PacketNumber
	largestSent  protocol.PacketNumber
}

func newPacketNumberSpace() *packetNumberSpace {
	return &packetNumberSpace{
		history:      newSentPacketHistory(),
		largestSent:  protocol.InvalidPacketNumber,
		largestAcked: protocol.InvalidPacketNumber,
	}
}

type sentPacketHandler struct {
	spaces [protocol.NumPacketNumberSpaces]*packetNumberSpace

	handshakeConfirmed bool

	bytesInFlight protocol.ByteCount

	congestion congestion.SendAlgorithmWithDebugInfos
	rttStats   *utils.RTTStats

	maxDatagramSize    protocol.ByteCount
	onCongestionChange func()

	// The number of times a PTO has been sent without receiving an ack.
	ptoCount uint32

	perspective protocol.Perspective

	tracer *logging.ConnectionTracer
	logger *slog.Logger
}

var _ SentPacketHandler = &sentPacketHandler{}

func newSentPacketHandler(
	rttStats *utils.RTTStats,
	initialMaxDatagramSize protocol.ByteCount,
	pers protocol.Perspective,
	onCongestionChange func(),
	tracer *logging.ConnectionTracer,
	logger *slog.Logger,
) *sentPacketHandler {
	h := &sentPacketHandler{
		rttStats:           rttStats,
		maxDatagramSize:    initialMaxDatagramSize,
		onCongestionChange: onCongestionChange,
		perspective:        pers,
		tracer:             tracer,
		logger:             logger,
	}
	for i := range h.spaces {
		h.spaces[i] = newPacketNumberSpace()
	}
	h.congestion = h.newCongestionController()
	return h
}

func (h *sentPacketHandler) newCongestionController() congestion.SendAlgorithmWithDebugInfos {
	return congestion.NewRenoSender(h.rttStats, h.maxDatagramSize, h.congestionChanged)
}

func (h *sentPacketHandler) congestionChanged() {
	if h.onCongestionChange != nil {
		h.onCongestionChange()
	}
}

func (h *sentPacketHandler) OnPacketSent(p *Packet) error {
	pnSpace := h.spaces[p.EncryptionLevel.PacketNumberSpace()]
	if pnSpace == nil {
		return fmt.Errorf("sent %s packet %d: %w", p.EncryptionLevel, p.PacketNumber, errSpaceDropped)
	}
	if err := pnSpace.history.SentPacket(p); err != nil {
		return err
	}
	pnSpace.largestSent = p.PacketNumber
	priorInFlight := h.bytesInFlight
	if p.AckEliciting {
		pnSpace.lastAckElicitingPacketTime = p.SendTime
		h.bytesInFlight += p.Length
	}
	h.congestion.OnPacketSent(p.SendTime, priorInFlight, p.PacketNumber, p.Length, p.AckEliciting)
	if h.tracer != nil && h.tracer.UpdatedMetrics != nil {
		h.tracer.UpdatedMetrics(h.rttStats, h.congestion.GetCongestionWindow(), h.bytesInFlight)
	}
	return nil
}

func (h *sentPacketHandler) OnAckReceived(ack *wire.AckFrame, encLevel protocol.EncryptionLevel, rcvTime monotime.Time) (AckResult, error) {
	pnSpace := h.spaces[encLevel.PacketNumberSpace()]
	if pnSpace == nil {
		return AckResult{}, fmt.Errorf("received ACK for %s: %w", encLevel, errSpaceDropped)
	}
	largestAcked := ack.LargestAcked()
	if largestAcked > pnSpace.largestSent {
		return AckResult{}, qerr.Errorf(qerr.ErrProtocolViolation, "received ACK for an unsent packet")
	}
	pnSpace.largestAcked = max(pnSpace.largestAcked, largestAcked)
	res := AckResult{LargestAcked: largestAcked}

	priorInFlight := h.bytesInFlight
	hasECNCounts := ack.ECT0 > 0 || ack.ECT1 > 0 || ack.ECNCE > 0
	res.AckedPackets = pnSpace.history.RemoveFunc(func(p *Packet) bool { return ack.AcksPacket(p.PacketNumber) })
	for _, p := range res.AckedPackets {
		if p.PacketNumber == largestAcked {
			var ackDelay time.Duration
			if encLevel == protocol.Encryption1RTT {
				ackDelay = min(ack.DelayTime, h.rttStats.MaxAckDelay())
			}
			h.rttStats.UpdateRTT(rcvTime.Sub(p.SendTime), ackDelay)
			if h.logger.Enabled(context.Background(), slog.LevelDebug) {
				h.logger.Debug("updated RTT",
					"latest", h.rttStats.LatestRTT(),
					"smoothed", h.rttStats.SmoothedRTT(),
					"mean_deviation", h.rttStats.MeanDeviation(),
				)
			}
		}
		if hasECNCounts && (p.ECN == protocol.ECT0 || p.ECN == protocol.ECT1) {
			res.ECNMarkedAcked = true
		}
		h.bytesInFlight -= p.Length
		h.congestion.OnPacketAcked(p.PacketNumber, p.Length, priorInFlight, rcvTime)
	}
	if len(res.AckedPackets) == 0 {
		return res, nil
	}

	res.LostPackets = h.detectLostPackets(rcvTime, pnSpace, priorInFlight)
	h.ptoCount = 0
	if h.tracer != nil && h.tracer.UpdatedMetrics != nil {
		h.tracer.UpdatedMetrics(h.rttStats, h.congestion.GetCongestionWindow(), h.bytesInFlight)
	}
	return res, nil
}

func (h *sentPacketHandler) detectLostPackets(now monotime.Time, pnSpace *packetNumberSpace, priorInFlight protocol.ByteCount) []*Packet {
	pnSpace.lossTime = 0

	maxRTT := float64(max(h.rttStats.LatestRTT(), h.rttStats.SmoothedRTT()))
	lossDelay := max(time.Duration(timeThreshold*maxRTT), protocol.TimerGranularity)

	// Minimum time of sending for a packet to not be considered lost
	lostSendTime := now.Add(-lossDelay)

	lost := pnSpace.history.RemoveFunc(func(p *Packet) bool {
		if p.PacketNumber > pnSpace.largestAcked {
			return false
		}
		if !p.SendTime.After(lostSendTime) || pnSpace.largestAcked >= p.PacketNumber+packetThreshold {
			return true
		}
		if lossTime := p.SendTime.Add(lossDelay); pnSpace.lossTime.IsZero() || lossTime.Before(pnSpace.lossTime) {
			pnSpace.lossTime = lossTime
		}
		return false
	})
	for _, p := range lost {
		h.bytesInFlight -= p.Length
		if p.IsPathMTUProbePacket {
			continue
		}
		h.congestion.OnCongestionEvent(p.PacketNumber, p.Length, priorInFlight)
	}
	if len(lost) > 0 && h.logger.Enabled(context.Background(), slog.LevelDebug) {
		h.logger.Debug("declared packets lost", "count", len(lost), "first", lost[0].PacketNumber)
	}
	return lost
}

func (h *sentPacketHandler) getLossTimeAndSpace() (monotime.Time, protocol.PacketNumberSpace) {
	var t monotime.Time
	var space protocol.PacketNumberSpace
	for i, s := range h.spaces {
		if s == nil || s.lossTime.IsZero() {
			continue
		}
		if t.IsZero() || s.lossTime.Before(t) {
			t = s.lossTime
			space = protocol.PacketNumberSpace(i)
		}
	}
	return t, space
}

func (h *sentPacketHandler) hasOutstandingCryptoPackets() bool {
	for _, s := range h.spaces[:protocol.PacketNumberSpaceApplicationData] {
		if s != nil && s.history.Len() > 0 {
			return true
		}
	}
	return false
}

// getPTOTimeAndSpace returns the earliest PTO deadline.
// The application data space is only considered once no Initial or Handshake packets are outstanding.
func (h *sentPacketHandler) getPTOTimeAndSpace() (monotime.Time, protocol.PacketNumberSpace, bool) {
	var t monotime.Time
	var space protocol.PacketNumberSpace
	var ok bool
	cryptoOutstanding := h.hasOutstandingCryptoPackets()
	for i, s := range h.spaces {
		if s == nil || s.history.Len() == 0 {
			continue
		}
		ps := protocol.PacketNumberSpace(i)
		if ps == protocol.PacketNumberSpaceApplicationData && cryptoOutstanding && !h.handshakeConfirmed {
			continue
		}
		pto := h.rttStats.PTO(ps == protocol.PacketNumberSpaceApplicationData) << min(h.ptoCount, maxPTOExponent)
		if pt := s.lastAckElicitingPacketTime.Add(pto); !ok || pt.Before(t) {
			t = pt
			space = ps
			ok = true
		}
	}
	return t, space, ok
}

func (h *sentPacketHandler) RetransmissionDeadline() monotime.Time {
	if t, _ := h.getLossTimeAndSpace(); !t.IsZero() {
		return t
	}
	t, _, ok := h.getPTOTimeAndSpace()
	if !ok {
		return 0
	}
	return t
}

func (h *sentPacketHandler) OnRetransmissionTimeout(now monotime.Time) TimeoutResult {
	if lossTime, space := h.getLossTimeAndSpace(); !lossTime.IsZero() {
		// Early retransmit or time loss detection
		lost := h.detectLostPackets(now, h.spaces[space], h.bytesInFlight)
		return TimeoutResult{LostPackets: lost}
	}
	_, space, ok := h.getPTOTimeAndSpace()
	if !ok {
		return TimeoutResult{}
	}
	h.ptoCount++
	if h.logger.Enabled(context.Background(), slog.LevelDebug) {
		h.logger.Debug("probe timeout", "space", space, "count", h.ptoCount)
	}
	return TimeoutResult{IsPTO: true, ProbeSpace: space}
}

func (h *sentPacketHandler) DropPackets(encLevel protocol.EncryptionLevel) {
	pnSpace := h.spaces[encLevel.PacketNumberSpace()]
	if pnSpace == nil {
		return
	}
	//nolint:exhaustive // 1-RTT packets are never dropped.
	switch encLevel {
	case protocol.EncryptionInitial, protocol.EncryptionHandshake:
		for _, p := range pnSpace.history.Clear() {
			h.bytesInFlight -= p.Length
		}
		h.spaces[encLevel.PacketNumberSpace()] = nil
	case protocol.Encryption0RTT:
		// 0-RTT packets share the packet number space with 1-RTT packets
		for _, p := range pnSpace.history.RemoveFunc(func(p *Packet) bool { return p.EncryptionLevel == protocol.Encryption0RTT }) {
			h.bytesInFlight -= p.Length
		}
	default:
		panic(fmt.Sprintf("Cannot drop keys for encryption level %s", encLevel))
	}
	// Reset the PTO count, otherwise the PTO for the next space would start
	// with an exponential backoff.
	h.ptoCount = 0
}

func (h *sentPacketHandler) QueueProbePacket(space protocol.PacketNumberSpace) *Packet {
	pnSpace := h.spaces[space]
	if pnSpace == nil {
		return nil
	}
	first := pnSpace.history.FirstOutstanding()
	if first == nil {
		return nil
	}
	pnSpace.history.RemoveFunc(func(p *Packet) bool { return p == first })
	h.bytesInFlight -= first.Length
	return first
}

func (h *sentPacketHandler) MarkAllForRetransmission() []*Packet {
	var packets []*Packet
	for _, s := range h.spaces {
		if s == nil {
			continue
		}
		s.lossTime = 0
		packets = append(packets, s.history.Clear()...)
	}
	h.bytesInFlight = 0
	return packets
}

func (h *sentPacketHandler) ResetCongestionState() *CongestionState {
	old := &CongestionState{Controller: h.congestion, RTTStats: h.rttStats.Clone()}
	h.rttStats.ResetForPathMigration()
	h.congestion = h.newCongestionController()
	h.ptoCount = 0
	return old
}

func (h *sentPacketHandler) RestoreCongestionState(s *CongestionState) {
	h.congestion = s.Controller
	*h.rttStats = *s.RTTStats
	h.congestion.SetMaxDatagramSize(h.maxDatagramSize)
}

func (h *sentPacketHandler) SetHandshakeConfirmed() {
	h.handshakeConfirmed = true
}

func (h *sentPacketHandler) SetMaxDatagramSize(s protocol.ByteCount) {
	if s <= h.maxDatagramSize {
		return
	}
	h.maxDatagramSize = s
	h.congestion.SetMaxDatagramSize(s)
}

func (h *sentPacketHandler) CanSend(monotime.Time) bool {
	return h.congestion.CanSend(h.bytesInFlight)
}

func (h *sentPacketHandler) TimeUntilSend(now monotime.Time) monotime.Time {
	if h.congestion.HasPacingBudget(now) {
		return 0
	}
	return h.congestion.TimeUntilSend(h.bytesInFlight)
}

func (h *sentPacketHandler) BytesInFlight() protocol.ByteCount { return h.bytesInFlight }

func (h *sentPacketHandler) LeastUnacked(space protocol.PacketNumberSpace) protocol.PacketNumber {
	s := h.spaces[space]
	if s == nil {
		return protocol.InvalidPacketNumber
	}
	if p := s.history.FirstOutstanding(); p != nil {
		return p.PacketNumber
	}
	return s.largestSent + 1
}

func (h *sentPacketHandler) LargestSent(space protocol.PacketNumberSpace) protocol.PacketNumber {
	if s := h.spaces[space]; s != nil {
		return s.largestSent
	}
	return protocol.InvalidPacketNumber
}

func (h *sentPacketHandler) PTOCount() uint32 { return h.ptoCount }

func (h *sentPacketHandler) RTTStats() *utils.RTTStats { return h.rttStats }

func (h *sentPacketHandler) CongestionWindow() protocol.ByteCount {
	return h.congestion.GetCongestionWindow()
}
