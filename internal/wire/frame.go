package wire

import (
	"github.com/quic-go/quicconn/internal/protocol"
)

// A Frame in QUIC
type Frame interface {
	Append(b []byte, version protocol.Version) ([]byte, error)
	Length(version protocol.Version) protocol.ByteCount
}

// IsProbingFrame returns true if the frame is a probing frame.
// See section 9.1 of RFC 9000.
func IsProbingFrame(f Frame) bool {
	switch f.(type) {
	case *PathChallengeFrame, *PathResponseFrame, *NewConnectionIDFrame:
		return true
	}
	return false
}

// IsAckEliciting says if a frame elicits an acknowledgement.
func IsAckEliciting(f Frame) bool {
	switch f.(type) {
	case *AckFrame, *ConnectionCloseFrame:
		return false
	}
	return true
}

// HasAckElicitingFrames returns true if at least one frame is ack-eliciting.
func HasAckElicitingFrames(fs []Frame) bool {
	for _, f := range fs {
		if IsAckEliciting(f) {
			return true
		}
	}
	return false
}
