package ackhandler

import (
	"github.com/quic-go/quicconn/internal/congestion"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/internal/wire"
)

// A Packet is a packet
type Packet struct {
	PacketNumber    protocol.PacketNumber
	EncryptionLevel protocol.EncryptionLevel
	Length          protocol.ByteCount
	// Frames are the retransmittable frames. ACK, PADDING and CONNECTION_CLOSE frames are not included.
	Frames   []wire.Frame
	SendTime monotime.Time
	ECN      protocol.ECN

	AckEliciting         bool
	IsPathMTUProbePacket bool
}

// An AckResult is the outcome of processing an ACK frame.
type AckResult struct {
	AckedPackets []*Packet
	LostPackets  []*Packet
	// LargestAcked is the largest packet number acknowledged by this frame.
	LargestAcked protocol.PacketNumber
	// ECNMarkedAcked is set if an acknowledged packet carried an ECN mark,
	// and the peer reported ECN counts.
	ECNMarkedAcked bool
}

// TimeoutResult is the outcome of a retransmission timeout.
type TimeoutResult struct {
	// LostPackets are set when the loss timer expired.
	LostPackets []*Packet
	// IsPTO is set if the timeout was a probe timeout.
	// The caller then sends an ack-eliciting probe packet in ProbeSpace.
	IsPTO      bool
	ProbeSpace protocol.PacketNumberSpace
}

// CongestionState is a congestion controller together with the RTT samples it was fed.
// A path that stops being the default path keeps its state, so it can be restored later.
type CongestionState struct {
	Controller congestion.SendAlgorithmWithDebugInfos
	RTTStats   *utils.RTTStats
}
