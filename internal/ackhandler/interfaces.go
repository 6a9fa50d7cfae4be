package ackhandler

import (
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/internal/wire"
)

// SentPacketHandler handles ACKs received for outgoing packets
type SentPacketHandler interface {
	// OnPacketSent may modify the packet
	OnPacketSent(p *Packet) error
	OnAckReceived(ack *wire.AckFrame, encLevel protocol.EncryptionLevel, rcvTime monotime.Time) (AckResult, error)
	DropPackets(protocol.EncryptionLevel)
	SetHandshakeConfirmed()
	SetMaxDatagramSize(protocol.ByteCount)

	// CanSend says if the congestion window allows sending an ack-eliciting packet.
	CanSend(now monotime.Time) bool
	// TimeUntilSend returns the pacing deadline, or the zero value if a packet can be sent now.
	TimeUntilSend(now monotime.Time) monotime.Time

	RetransmissionDeadline() monotime.Time
	OnRetransmissionTimeout(now monotime.Time) TimeoutResult
	// QueueProbePacket removes the oldest outstanding packet of a packet number space,
	// so that its frames can be sent in a probe packet.
	QueueProbePacket(protocol.PacketNumberSpace) *Packet
	// MarkAllForRetransmission removes all outstanding packets, so their frames can be sent again.
	MarkAllForRetransmission() []*Packet

	ResetCongestionState() *CongestionState
	RestoreCongestionState(*CongestionState)

	BytesInFlight() protocol.ByteCount
	LeastUnacked(protocol.PacketNumberSpace) protocol.PacketNumber
	LargestSent(protocol.PacketNumberSpace) protocol.PacketNumber
	PTOCount() uint32
	RTTStats() *utils.RTTStats
	CongestionWindow() protocol.ByteCount
}

// ReceivedPacketHandler handles ACKs needed to send for incoming packets
type ReceivedPacketHandler interface {
	IsPotentiallyDuplicate(protocol.PacketNumber, protocol.EncryptionLevel) bool
	ReceivedPacket(pn protocol.PacketNumber, ecn protocol.ECN, encLevel protocol.EncryptionLevel, rcvTime monotime.Time, ackEliciting bool) error
	DropPackets(protocol.EncryptionLevel)
	LargestObserved(protocol.EncryptionLevel) protocol.PacketNumber

	GetAlarmTimeout() monotime.Time
	GetAckFrame(encLevel protocol.EncryptionLevel, now monotime.Time, onlyIfQueued bool) *wire.AckFrame
}
