package congestion

import (
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/utils"
)

const (
	// initialMaxDatagramSize is the packet size assumed before path MTU discovery.
	// Used in QUIC for congestion window computations in bytes.
	initialMaxDatagramSize         = protocol.ByteCount(protocol.InitialPacketSize)
	initialCongestionWindowPackets = 32
	maxCongestionWindowPackets     = 10000
	minCongestionWindowPackets     = 2
	// renoBeta is the multiplicative decrease factor applied on a loss event.
	renoBeta = 0.7
)

type renoSender struct {
	rttStats *utils.RTTStats
	pacer    *pacer

	// Track the largest packet that has been sent.
	largestSentPacketNumber protocol.PacketNumber
	// Track the largest packet that has been acked.
	largestAckedPacketNumber protocol.PacketNumber
	// Track the largest packet number outstanding when a CWND cutback occurs.
	largestSentAtLastCutback protocol.PacketNumber

	// ACK counter for the Reno implementation.
	numAckedPackets uint64

	congestionWindow    protocol.ByteCount
	slowStartThreshold  protocol.ByteCount
	maxCongestionWindow protocol.ByteCount
	maxDatagramSize     protocol.ByteCount

	onChange func()
}

var _ SendAlgorithmWithDebugInfos = &renoSender{}

// NewRenoSender makes a new NewReno sender with pacing.
// onChange is called whenever the congestion window changes. It may be nil.
func NewRenoSender(rttStats *utils.RTTStats, initialMaxDatagramSize protocol.ByteCount, onChange func()) *renoSender {
	c := &renoSender{
		rttStats:                 rttStats,
		largestSentPacketNumber:  protocol.InvalidPacketNumber,
		largestAckedPacketNumber: protocol.InvalidPacketNumber,
		largestSentAtLastCutback: protocol.InvalidPacketNumber,
		congestionWindow:         initialCongestionWindowPackets * initialMaxDatagramSize,
		slowStartThreshold:       protocol.MaxByteCount,
		maxCongestionWindow:      maxCongestionWindowPackets * initialMaxDatagramSize,
		maxDatagramSize:          initialMaxDatagramSize,
		onChange:                 onChange,
	}
	c.pacer = newPacer(c.BandwidthEstimate)
	c.pacer.SetMaxDatagramSize(initialMaxDatagramSize)
	return c
}

// TimeUntilSend returns when the next packet should be sent.
func (c *renoSender) TimeUntilSend(_ protocol.ByteCount) monotime.Time {
	return c.pacer.TimeUntilSend()
}

func (c *renoSender) HasPacingBudget(now monotime.Time) bool {
	return c.pacer.Budget(now) >= c.maxDatagramSize
}

func (c *renoSender) minCongestionWindow() protocol.ByteCount {
	return c.maxDatagramSize * minCongestionWindowPackets
}

func (c *renoSender) OnPacketSent(
	sentTime monotime.Time,
	_ protocol.ByteCount,
	packetNumber protocol.PacketNumber,
	bytes protocol.ByteCount,
	isRetransmittable bool,
) {
	c.pacer.SentPacket(sentTime, bytes)
	if !isRetransmittable {
		return
	}
	c.largestSentPacketNumber = packetNumber
}

func (c *renoSender) CanSend(bytesInFlight protocol.ByteCount) bool {
	return bytesInFlight < c.GetCongestionWindow()
}

func (c *renoSender) InRecovery() bool {
	return c.largestAckedPacketNumber != protocol.InvalidPacketNumber && c.largestAckedPacketNumber <= c.largestSentAtLastCutback
}

func (c *renoSender) InSlowStart() bool {
	return c.GetCongestionWindow() < c.slowStartThreshold
}

func (c *renoSender) GetCongestionWindow() protocol.ByteCount {
	return c.congestionWindow
}

// MaybeExitSlowStart is a no-op: slow start ends on the first loss.
func (c *renoSender) MaybeExitSlowStart() {}

func (c *renoSender) OnPacketAcked(
	ackedPacketNumber protocol.PacketNumber,
	ackedBytes protocol.ByteCount,
	priorInFlight protocol.ByteCount,
	eventTime monotime.Time,
) {
	c.largestAckedPacketNumber = max(ackedPacketNumber, c.largestAckedPacketNumber)
	if c.InRecovery() {
		return
	}
	c.maybeIncreaseCwnd(ackedPacketNumber, ackedBytes, priorInFlight, eventTime)
}

func (c *renoSender) OnCongestionEvent(packetNumber protocol.PacketNumber, lostBytes, priorInFlight protocol.ByteCount) {
	// TCP NewReno (RFC6582) says that once a loss occurs, any losses in packets
	// already sent should be treated as a single loss event, since it's expected.
	if packetNumber <= c.largestSentAtLastCutback {
		return
	}
	c.congestionWindow = max(protocol.ByteCount(float64(c.congestionWindow)*renoBeta), c.minCongestionWindow())
	c.slowStartThreshold = c.congestionWindow
	c.largestSentAtLastCutback = c.largestSentPacketNumber
	// reset packet count from congestion avoidance mode. We start
	// counting again when we're out of recovery.
	c.numAckedPackets = 0
	c.changed()
}

// Called when we receive an ack. Normal TCP tracks how many packets one ack
// represents, but quic has a separate ack for each packet.
func (c *renoSender) maybeIncreaseCwnd(
	_ protocol.PacketNumber,
	_ protocol.ByteCount,
	priorInFlight protocol.ByteCount,
	_ monotime.Time,
) {
	// Do not increase the congestion window unless the sender is close to using
	// the current window.
	if !c.isCwndLimited(priorInFlight) {
		return
	}
	if c.congestionWindow >= c.maxCongestionWindow {
		return
	}
	if c.InSlowStart() {
		// TCP slow start, exponential growth, increase by one for each ACK.
		c.congestionWindow += c.maxDatagramSize
		c.changed()
		return
	}
	// Classic Reno congestion avoidance.
	c.numAckedPackets++
	if c.numAckedPackets >= uint64(c.congestionWindow/c.maxDatagramSize) {
		c.congestionWindow += c.maxDatagramSize
		c.numAckedPackets = 0
		c.changed()
	}
}

func (c *renoSender) isCwndLimited(bytesInFlight protocol.ByteCount) bool {
	congestionWindow := c.GetCongestionWindow()
	if bytesInFlight >= congestionWindow {
		return true
	}
	availableBytes := congestionWindow - bytesInFlight
	slowStartLimited := c.InSlowStart() && bytesInFlight > congestionWindow/2
	return slowStartLimited || availableBytes <= maxBurstSizePackets*c.maxDatagramSize
}

// BandwidthEstimate returns the current bandwidth estimate
func (c *renoSender) BandwidthEstimate() Bandwidth {
	srtt := c.rttStats.SmoothedRTT()
	if srtt == 0 {
		srtt = protocol.DefaultInitialRTT
	}
	// pace at 1.25 times the congestion window per RTT, to avoid underutilizing it
	return BandwidthFromDelta(c.GetCongestionWindow(), srtt) * 5 / 4
}

// OnRetransmissionTimeout is called on an retransmission timeout
func (c *renoSender) OnRetransmissionTimeout(packetsRetransmitted bool) {
	c.largestSentAtLastCutback = protocol.InvalidPacketNumber
	if !packetsRetransmitted {
		return
	}
	c.slowStartThreshold = c.congestionWindow / 2
	c.congestionWindow = c.minCongestionWindow()
	c.changed()
}

func (c *renoSender) SetMaxDatagramSize(s protocol.ByteCount) {
	if s < c.maxDatagramSize {
		panic("congestion BUG: decreased max datagram size")
	}
	cwndIsMinCwnd := c.congestionWindow == c.minCongestionWindow()
	c.maxDatagramSize = s
	if cwndIsMinCwnd {
		c.congestionWindow = c.minCongestionWindow()
	}
	c.pacer.SetMaxDatagramSize(s)
}

func (c *renoSender) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

