package quicconn

import (
	"slices"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"
)

// maxCryptoStreamBuffer is the maximum amount of out-of-order data buffered on a crypto stream.
const maxCryptoStreamBuffer = 1 << 17

type cryptoSegment struct {
	offset protocol.ByteCount
	data   []byte
}

// A cryptoStream carries the handshake messages of one encryption level.
type cryptoStream struct {
	// received data that can't be delivered yet, sorted by offset
	segments   []cryptoSegment
	readOffset protocol.ByteCount

	writeOffset protocol.ByteCount
	writeBuf    []byte
}

func newCryptoStream() *cryptoStream {
	return &cryptoStream{}
}

// HandleCryptoFrame buffers the data of a CRYPTO frame.
func (s *cryptoStream) HandleCryptoFrame(f *wire.CryptoFrame) error {
	end := f.Offset + protocol.ByteCount(len(f.Data))
	if end <= s.readOffset {
		// retransmission of data that was already delivered
		return nil
	}
	if end-s.readOffset > maxCryptoStreamBuffer {
		return qerr.Errorf(qerr.ErrCryptoBufferExceeded, "received crypto data up to offset %d, read offset is %d", end, s.readOffset)
	}
	data, offset := f.Data, f.Offset
	if offset < s.readOffset {
		data = data[s.readOffset-offset:]
		offset = s.readOffset
	}
	i, _ := slices.BinarySearchFunc(s.segments, offset, func(seg cryptoSegment, off protocol.ByteCount) int {
		switch {
		case seg.offset < off:
			return -1
		case seg.offset > off:
			return 1
		default:
			return 0
		}
	})
	// the frame data is only valid for the duration of the call
	s.segments = slices.Insert(s.segments, i, cryptoSegment{offset: offset, data: slices.Clone(data)})
	return nil
}

// GetCryptoData returns the data that can be delivered in order.
// It returns nil if no data is available.
func (s *cryptoStream) GetCryptoData() []byte {
	var out []byte
	for len(s.segments) > 0 {
		seg := s.segments[0]
		if seg.offset > s.readOffset {
			break
		}
		s.segments = s.segments[1:]
		end := seg.offset + protocol.ByteCount(len(seg.data))
		if end <= s.readOffset {
			continue
		}
		out = append(out, seg.data[s.readOffset-seg.offset:]...)
		s.readOffset = end
	}
	return out
}

// Write queues data to be sent in CRYPTO frames.
func (s *cryptoStream) Write(p []byte) (int, error) {
	s.writeBuf = append(s.writeBuf, p...)
	return len(p), nil
}

// HasData says if there's data to send.
func (s *cryptoStream) HasData() bool {
	return len(s.writeBuf) > 0
}

// PopCryptoFrame returns a CRYPTO frame that is at most maxLen bytes long.
// It returns nil if not even a single byte of data fits.
func (s *cryptoStream) PopCryptoFrame(maxLen protocol.ByteCount) *wire.CryptoFrame {
	f := &wire.CryptoFrame{Offset: s.writeOffset}
	n := min(f.MaxDataLen(maxLen), protocol.ByteCount(len(s.writeBuf)))
	if n == 0 {
		return nil
	}
	f.Data = s.writeBuf[:n]
	s.writeBuf = s.writeBuf[n:]
	s.writeOffset += n
	return f
}
