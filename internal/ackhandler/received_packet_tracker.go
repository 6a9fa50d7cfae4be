package ackhandler

import (
	"time"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/wire"

	"github.com/bits-and-blooms/bitset"
)

// packetWindow is the number of packet numbers below the largest observed one
// for which receipt is remembered. Older packets are treated as duplicates.
const packetWindow = 1 << 12

// The receivedPacketTracker tracks packets of one packet number space.
// Receipt is stored in a bitset used as a ring, indexed by packet number modulo the window size.
type receivedPacketTracker struct {
	received *bitset.BitSet

	largestObserved         protocol.PacketNumber
	largestObservedRcvdTime monotime.Time
	// packets below this packet number are considered duplicates
	ignoreBelow protocol.PacketNumber

	ect0, ect1, ecnce uint64

	// ack immediately, instead of waiting for PacketsBeforeAck packets
	immediateAck bool
	maxAckDelay  time.Duration

	hasNewAck                bool // true as soon as we received an ack-eliciting new packet
	ackQueued                bool // true once we received PacketsBeforeAck ack-eliciting packets
	ackElicitingSinceLastAck int
	ackAlarm                 monotime.Time
	lastAck                  *wire.AckFrame
}

func newReceivedPacketTracker(immediateAck bool) *receivedPacketTracker {
	return &receivedPacketTracker{
		received:        bitset.New(packetWindow),
		largestObserved: protocol.InvalidPacketNumber,
		immediateAck:    immediateAck,
		maxAckDelay:     protocol.MaxAckDelay,
	}
}

func (h *receivedPacketTracker) IsPotentiallyDuplicate(pn protocol.PacketNumber) bool {
	if h.largestObserved == protocol.InvalidPacketNumber || pn > h.largestObserved {
		return false
	}
	if pn < h.ignoreBelow {
		return true
	}
	return h.received.Test(bitIndex(pn))
}

func bitIndex(pn protocol.PacketNumber) uint {
	return uint(pn % packetWindow)
}

// ReceivedPacket records a packet. The caller checks for duplicates first.
func (h *receivedPacketTracker) ReceivedPacket(pn protocol.PacketNumber, ecn protocol.ECN, rcvTime monotime.Time, ackEliciting bool) {
	isMissing := h.isMissing(pn)
	h.markReceived(pn, rcvTime)

	//nolint:exhaustive // Only need to count ECT(0), ECT(1) and ECN-CE.
	switch ecn {
	case protocol.ECT0:
		h.ect0++
	case protocol.ECT1:
		h.ect1++
	case protocol.ECNCE:
		h.ecnce++
	}

	if !ackEliciting {
		return
	}
	h.hasNewAck = true
	h.maybeQueueACK(rcvTime, ecn, isMissing)
}

func (h *receivedPacketTracker) markReceived(pn protocol.PacketNumber, rcvTime monotime.Time) {
	if h.largestObserved == protocol.InvalidPacketNumber {
		h.received.ClearAll()
		h.largestObserved = pn
		h.largestObservedRcvdTime = rcvTime
		h.ignoreBelow = max(0, pn-packetWindow+1)
		h.received.Set(bitIndex(pn))
		return
	}
	if pn > h.largestObserved {
		if pn-h.largestObserved >= packetWindow {
			h.received.ClearAll()
		} else {
			for p := h.largestObserved + 1; p < pn; p++ {
				h.received.Clear(bitIndex(p))
			}
		}
		h.largestObserved = pn
		h.largestObservedRcvdTime = rcvTime
		h.ignoreBelow = max(h.ignoreBelow, pn-packetWindow+1)
	}
	h.received.Set(bitIndex(pn))
}

// isMissing says if a packet was reported as missing in the last ACK frame.
func (h *receivedPacketTracker) isMissing(p protocol.PacketNumber) bool {
	if h.lastAck == nil || p < h.ignoreBelow {
		return false
	}
	return p < h.lastAck.LargestAcked() && !h.lastAck.AcksPacket(p)
}

func (h *receivedPacketTracker) hasNewMissingPackets() bool {
	if h.lastAck == nil {
		return false
	}
	// the packet directly below the largest observed one was not received
	return h.largestObserved > h.lastAck.LargestAcked()+1 && !h.received.Test(bitIndex(h.largestObserved-1))
}

// maybeQueueACK queues an ACK, if necessary.
func (h *receivedPacketTracker) maybeQueueACK(rcvTime monotime.Time, ecn protocol.ECN, wasMissing bool) {
	// always acknowledge the first packet
	if h.lastAck == nil || h.immediateAck {
		h.ackQueued = true
		return
	}

	// Send an ACK if this packet was reported missing in an ACK sent before.
	// Ack decimation with reordering relies on the timer to send an ACK, but if
	// missing packets we reported in the previous ACK, send an ACK immediately.
	if wasMissing {
		h.ackQueued = true
	}

	h.ackElicitingSinceLastAck++
	if !h.ackQueued && h.ackElicitingSinceLastAck >= protocol.PacketsBeforeAck {
		h.ackQueued = true
	} else if h.ackAlarm.IsZero() {
		h.ackAlarm = rcvTime.Add(h.maxAckDelay)
	}

	// queue an ACK if there are new missing packets to report
	if h.hasNewMissingPackets() {
		h.ackQueued = true
	}

	// queue an ACK if the packet was ECN-CE marked
	if ecn == protocol.ECNCE {
		h.ackQueued = true
	}

	if h.ackQueued {
		// cancel the ack alarm
		h.ackAlarm = 0
	}
}

func (h *receivedPacketTracker) ackRanges() []wire.AckRange {
	ranges := make([]wire.AckRange, 0, 4)
	var inRange bool
	for p := h.largestObserved; p >= h.ignoreBelow; p-- {
		if !h.received.Test(bitIndex(p)) {
			inRange = false
			continue
		}
		if inRange {
			ranges[len(ranges)-1].Smallest = p
			continue
		}
		if len(ranges) == protocol.MaxNumAckRanges {
			break
		}
		ranges = append(ranges, wire.AckRange{Smallest: p, Largest: p})
		inRange = true
	}
	return ranges
}

func (h *receivedPacketTracker) GetAckFrame(now monotime.Time, onlyIfQueued bool) *wire.AckFrame {
	if !h.hasNewAck {
		return nil
	}
	if onlyIfQueued && !h.ackQueued && (h.ackAlarm.IsZero() || h.ackAlarm.After(now)) {
		return nil
	}

	ack := &wire.AckFrame{
		AckRanges: h.ackRanges(),
		// Make sure that the DelayTime is always positive.
		// This is not guaranteed on systems that don't have a monotonic clock.
		DelayTime: max(0, now.Sub(h.largestObservedRcvdTime)),
		ECT0:      h.ect0,
		ECT1:      h.ect1,
		ECNCE:     h.ecnce,
	}

	h.lastAck = ack
	h.ackAlarm = 0
	h.ackQueued = false
	h.hasNewAck = false
	h.ackElicitingSinceLastAck = 0
	return ack
}

func (h *receivedPacketTracker) GetAlarmTimeout() monotime.Time { return h.ackAlarm }

func (h *receivedPacketTracker) IsAckQueued() bool { return h.ackQueued }
