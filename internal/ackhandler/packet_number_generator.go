package ackhandler

import "github.com/quic-go/quicconn/internal/protocol"

// The PacketNumberGenerator generates the packet number for the next packet.
// Packet numbers are strictly increasing.
type PacketNumberGenerator struct {
	next protocol.PacketNumber
}

// NewPacketNumberGenerator creates a generator starting at initial.
func NewPacketNumberGenerator(initial protocol.PacketNumber) *PacketNumberGenerator {
	return &PacketNumberGenerator{next: initial}
}

// Peek returns the next packet number, without consuming it.
func (p *PacketNumberGenerator) Peek() protocol.PacketNumber {
	return p.next
}

// Pop returns the next packet number.
func (p *PacketNumberGenerator) Pop() protocol.PacketNumber {
	next := p.next
	p.next++
	return next
}
