package wire

import (
	"io"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/quicvarint"
)

// A StreamFrame of QUIC.
// The connection core does not manage streams; it forwards these frames to the application.
type StreamFrame struct {
	StreamID uint64
	Offset   protocol.ByteCount
	Data     []byte
	Fin      bool
}

func parseStreamFrame(b []byte, typ FrameType, _ protocol.Version) (*StreamFrame, int, error) {
	startLen := len(b)
	hasOffset := typ&0b100 > 0
	hasDataLen := typ&0b10 > 0
	fin := typ&0b1 > 0

	streamID, l, err := quicvarint.Parse(b)
	if err != nil {
		return nil, 0, replaceUnexpectedEOF(err)
	}
	b = b[l:]
	var offset uint64
	if hasOffset {
		offset, l, err = quicvarint.Parse(b)
		if err != nil {
			return nil, 0, replaceUnexpectedEOF(err)
		}
		b = b[l:]
	}

	var dataLen uint64
	if hasDataLen {
		dataLen, l, err = quicvarint.Parse(b)
		if err != nil {
			return nil, 0, replaceUnexpectedEOF(err)
		}
		b = b[l:]
		if dataLen > uint64(len(b)) {
			return nil, 0, io.EOF
		}
	} else {
		// The rest of the packet is data
		dataLen = uint64(len(b))
	}

	frame := &StreamFrame{
		StreamID: streamID,
		Offset:   protocol.ByteCount(offset),
		Fin:      fin,
	}
	if dataLen != 0 {
		frame.Data = make([]byte, dataLen)
		copy(frame.Data, b)
	}
	if frame.Offset+protocol.ByteCount(dataLen) > protocol.MaxByteCount {
		return nil, 0, io.EOF
	}
	return frame, startLen - len(b) + int(dataLen), nil
}

// Append writes a STREAM frame, always including the offset and the data length.
func (f *StreamFrame) Append(b []byte, _ protocol.Version) ([]byte, error) {
	typ := byte(0x8 | 0b110)
	if f.Fin {
		typ |= 0b1
	}
	b = append(b, typ)
	b = quicvarint.Append(b, f.StreamID)
	b = quicvarint.Append(b, uint64(f.Offset))
	b = quicvarint.Append(b, uint64(len(f.Data)))
	return append(b, f.Data...), nil
}

// Length returns the total length of the STREAM frame
func (f *StreamFrame) Length(_ protocol.Version) protocol.ByteCount {
	return protocol.ByteCount(1 + quicvarint.Len(f.StreamID) + quicvarint.Len(uint64(f.Offset)) +
		quicvarint.Len(uint64(len(f.Data))) + len(f.Data))
}
