package quicconn

import (
	"sync"

	"github.com/quic-go/quicconn/internal/protocol"
)

// A packetBuffer holds a datagram while it is assembled from coalesced packets.
type packetBuffer struct {
	Data []byte
}

// Release puts the buffer back into the pool.
// The Data must not be used afterwards.
func (b *packetBuffer) Release() {
	// buffers that grew beyond the pool size (e.g. for MTU probes) are left to the GC
	if cap(b.Data) != protocol.MaxPacketBufferSize {
		return
	}
	b.Data = b.Data[:0]
	bufferPool.Put(b)
}

// Len returns the number of bytes written to the buffer.
func (b *packetBuffer) Len() protocol.ByteCount {
	return protocol.ByteCount(len(b.Data))
}

var bufferPool = sync.Pool{
	New: func() any {
		return &packetBuffer{Data: make([]byte, 0, protocol.MaxPacketBufferSize)}
	},
}

func getPacketBuffer() *packetBuffer {
	buf := bufferPool.Get().(*packetBuffer)
	buf.Data = buf.Data[:0]
	return buf
}
