package quicconn

import (
	"slices"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/wire"
)

// The framer queues the frames sent in 1-RTT packets (and STREAM frames in 0-RTT packets).
// Control frames are sent before STREAM frames.
type framer struct {
	version protocol.Version

	controlFrames []wire.Frame
	// PATH_RESPONSE frames are sent before all other control frames
	pathResponses []*wire.PathResponseFrame
	streamFrames  []wire.Frame
}

func newFramer(v protocol.Version) *framer {
	return &framer{version: v}
}

func (f *framer) QueueControlFrame(frame wire.Frame) {
	if pr, ok := frame.(*wire.PathResponseFrame); ok {
		f.pathResponses = append(f.pathResponses, pr)
		return
	}
	f.controlFrames = append(f.controlFrames, frame)
}

func (f *framer) HasControlFrames() bool {
	return len(f.controlFrames) > 0 || len(f.pathResponses) > 0
}

// AppendControlFrames appends as many queued control frames as fit into maxLen bytes.
func (f *framer) AppendControlFrames(frames []wire.Frame, maxLen protocol.ByteCount) ([]wire.Frame, protocol.ByteCount) {
	var length protocol.ByteCount
	for len(f.pathResponses) > 0 {
		pr := f.pathResponses[0]
		l := pr.Length(f.version)
		if length+l > maxLen {
			return frames, length
		}
		frames = append(frames, pr)
		length += l
		f.pathResponses = f.pathResponses[1:]
	}
	for len(f.controlFrames) > 0 {
		frame := f.controlFrames[0]
		l := frame.Length(f.version)
		if length+l > maxLen {
			break
		}
		frames = append(frames, frame)
		length += l
		f.controlFrames = f.controlFrames[1:]
	}
	return frames, length
}

// RemovePathChallenges drops queued PATH_CHALLENGE frames, after the path validation ended.
func (f *framer) RemovePathChallenges() {
	f.controlFrames = slices.DeleteFunc(f.controlFrames, func(frame wire.Frame) bool {
		_, ok := frame.(*wire.PathChallengeFrame)
		return ok
	})
}

func (f *framer) QueueStreamFrame(frame *wire.StreamFrame) {
	f.streamFrames = append(f.streamFrames, frame)
}

func (f *framer) HasStreamData() bool {
	return len(f.streamFrames) > 0
}

// AppendStreamFrames appends STREAM frames, splitting the last one if it doesn't fit.
func (f *framer) AppendStreamFrames(frames []wire.Frame, maxLen protocol.ByteCount) ([]wire.Frame, protocol.ByteCount) {
	var length protocol.ByteCount
	for len(f.streamFrames) > 0 {
		frame := popFrame(&f.streamFrames, maxLen-length, f.version)
		if frame == nil {
			break
		}
		frames = append(frames, frame)
		length += frame.Length(f.version)
	}
	return frames, length
}

// HasData says if there are any frames to send in a 1-RTT packet.
func (f *framer) HasData() bool {
	return f.HasControlFrames() || f.HasStreamData()
}
