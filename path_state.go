package quicconn

import (
	"fmt"
	"net/netip"

	"github.com/quic-go/quicconn/internal/ackhandler"
	"github.com/quic-go/quicconn/internal/protocol"
)

// PathState is a path between this endpoint and the peer.
type PathState struct {
	SelfAddress netip.AddrPort
	PeerAddress netip.AddrPort

	// SrcConnID is the connection ID the peer uses to send packets on this path.
	SrcConnID protocol.ConnectionID
	// DestConnID is the connection ID packets sent on this path are addressed to.
	DestConnID    protocol.ConnectionID
	destConnIDSeq uint64

	// StatelessResetToken is bound to DestConnID. It is nil if the peer didn't provide one.
	StatelessResetToken *protocol.StatelessResetToken

	Validated bool
	// Byte counters for the anti-amplification limit.
	// They are only incremented while the path is unvalidated.
	BytesSentBeforeValidation     protocol.ByteCount
	BytesReceivedBeforeValidation protocol.ByteCount

	writer PacketWriter

	// The congestion state of a path that was the default path before.
	// It is restored when the path becomes the default path again.
	congestionState *ackhandler.CongestionState
}

// Clear resets the path.
func (p *PathState) Clear() {
	*p = PathState{}
}

// IsEmpty says if the path is unset.
func (p PathState) IsEmpty() bool {
	return !p.SelfAddress.IsValid() && !p.PeerAddress.IsValid()
}

func (p *PathState) hasDestConnID() bool {
	return p.DestConnID.Len() > 0
}

func (p *PathState) onBytesSent(n protocol.ByteCount) {
	if !p.Validated {
		p.BytesSentBeforeValidation += n
	}
}

func (p *PathState) onBytesReceived(n protocol.ByteCount) {
	if !p.Validated {
		p.BytesReceivedBeforeValidation += n
	}
}

// amplificationBudget is the number of bytes that may still be sent on the unvalidated path.
func (p *PathState) amplificationBudget(factor int) protocol.ByteCount {
	if p.Validated {
		return protocol.MaxByteCount
	}
	return max(0, protocol.ByteCount(factor)*p.BytesReceivedBeforeValidation-p.BytesSentBeforeValidation)
}

func (p *PathState) String() string {
	return fmt.Sprintf("{self: %s, peer: %s, src: %s, dest: %s, validated: %t, sent: %d, received: %d}",
		p.SelfAddress, p.PeerAddress, p.SrcConnID, p.DestConnID, p.Validated,
		p.BytesSentBeforeValidation, p.BytesReceivedBeforeValidation,
	)
}

// samePeerIP says if two addresses only differ in the port.
func samePeerIP(a, b netip.AddrPort) bool {
	return a.Addr().Unmap() == b.Addr().Unmap()
}
