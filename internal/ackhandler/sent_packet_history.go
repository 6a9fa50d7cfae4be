package ackhandler

import (
	"fmt"
	"iter"
	"slices"

	"github.com/quic-go/quicconn/internal/protocol"
)

// sentPacketHistory holds the outstanding ack-eliciting packets of one packet number space,
// ordered by packet number.
type sentPacketHistory struct {
	packets []*Packet

	highestPacketNumber protocol.PacketNumber
}

func newSentPacketHistory() *sentPacketHistory {
	return &sentPacketHistory{
		packets:             make([]*Packet, 0, 32),
		highestPacketNumber: protocol.InvalidPacketNumber,
	}
}

// SentPacket records a sent packet.
// Only ack-eliciting packets are stored, but every packet number has to be larger than the previous one.
func (h *sentPacketHistory) SentPacket(p *Packet) error {
	if p.PacketNumber <= h.highestPacketNumber {
		return fmt.Errorf("non-sequential packet number use: %d after %d", p.PacketNumber, h.highestPacketNumber)
	}
	h.highestPacketNumber = p.PacketNumber
	if p.AckEliciting {
		h.packets = append(h.packets, p)
	}
	return nil
}

// Packets iterates over all outstanding packets, in packet number order.
func (h *sentPacketHistory) Packets() iter.Seq[*Packet] {
	return slices.Values(h.packets)
}

// FirstOutstanding returns the first outstanding packet.
func (h *sentPacketHistory) FirstOutstanding() *Packet {
	if len(h.packets) == 0 {
		return nil
	}
	return h.packets[0]
}

func (h *sentPacketHistory) Len() int {
	return len(h.packets)
}

// RemoveFunc removes all packets for which del returns true, and returns them.
func (h *sentPacketHistory) RemoveFunc(del func(*Packet) bool) []*Packet {
	var removed []*Packet
	h.packets = slices.DeleteFunc(h.packets, func(p *Packet) bool {
		if del(p) {
			removed = append(removed, p)
			return true
		}
		return false
	})
	return removed
}

// Clear removes all packets.
func (h *sentPacketHistory) Clear() []*Packet {
	packets := h.packets
	h.packets = make([]*Packet, 0, 32)
	return packets
}
