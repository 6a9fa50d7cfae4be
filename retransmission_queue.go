package quicconn

import (
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/wire"
)

// The retransmissionQueue holds the frames of lost packets, until they are sent again.
// Frames lost in 0-RTT packets are retransmitted in 1-RTT packets.
type retransmissionQueue struct {
	initial           []wire.Frame
	initialCryptoData []*wire.CryptoFrame

	handshake           []wire.Frame
	handshakeCryptoData []*wire.CryptoFrame

	appData []wire.Frame
}

func newRetransmissionQueue() *retransmissionQueue {
	return &retransmissionQueue{}
}

// Add queues a frame that was lost in a packet sent at encLevel.
// PING and PATH_CHALLENGE / PATH_RESPONSE frames are never retransmitted.
func (q *retransmissionQueue) Add(encLevel protocol.EncryptionLevel, f wire.Frame) {
	switch f.(type) {
	case *wire.PingFrame, *wire.PathChallengeFrame, *wire.PathResponseFrame:
		return
	}
	switch encLevel {
	case protocol.EncryptionInitial:
		if cf, ok := f.(*wire.CryptoFrame); ok {
			q.initialCryptoData = append(q.initialCryptoData, cf)
			return
		}
		q.initial = append(q.initial, f)
	case protocol.EncryptionHandshake:
		if cf, ok := f.(*wire.CryptoFrame); ok {
			q.handshakeCryptoData = append(q.handshakeCryptoData, cf)
			return
		}
		q.handshake = append(q.handshake, f)
	case protocol.Encryption0RTT, protocol.Encryption1RTT:
		q.appData = append(q.appData, f)
	}
}

// HasData says if there are frames to retransmit at encLevel.
func (q *retransmissionQueue) HasData(encLevel protocol.EncryptionLevel) bool {
	switch encLevel {
	case protocol.EncryptionInitial:
		return len(q.initialCryptoData) > 0 || len(q.initial) > 0
	case protocol.EncryptionHandshake:
		return len(q.handshakeCryptoData) > 0 || len(q.handshake) > 0
	case protocol.Encryption1RTT:
		return len(q.appData) > 0
	}
	return false
}

// GetFrame returns a frame that is at most maxLen bytes long.
// CRYPTO and STREAM frames that don't fit are split.
func (q *retransmissionQueue) GetFrame(encLevel protocol.EncryptionLevel, maxLen protocol.ByteCount, v protocol.Version) wire.Frame {
	switch encLevel {
	case protocol.EncryptionInitial:
		if f := popCryptoFrame(&q.initialCryptoData, maxLen, v); f != nil {
			return f
		}
		return popFrame(&q.initial, maxLen, v)
	case protocol.EncryptionHandshake:
		if f := popCryptoFrame(&q.handshakeCryptoData, maxLen, v); f != nil {
			return f
		}
		return popFrame(&q.handshake, maxLen, v)
	case protocol.Encryption1RTT:
		return popFrame(&q.appData, maxLen, v)
	}
	return nil
}

func popCryptoFrame(queue *[]*wire.CryptoFrame, maxLen protocol.ByteCount, v protocol.Version) *wire.CryptoFrame {
	if len(*queue) == 0 {
		return nil
	}
	f := (*queue)[0]
	if f.Length(v) <= maxLen {
		*queue = (*queue)[1:]
		return f
	}
	n := f.MaxDataLen(maxLen)
	if n == 0 {
		return nil
	}
	// leave the remainder in the queue
	split := &wire.CryptoFrame{Offset: f.Offset, Data: f.Data[:n]}
	f.Offset += n
	f.Data = f.Data[n:]
	return split
}

func popFrame(queue *[]wire.Frame, maxLen protocol.ByteCount, v protocol.Version) wire.Frame {
	if len(*queue) == 0 {
		return nil
	}
	f := (*queue)[0]
	if f.Length(v) <= maxLen {
		*queue = (*queue)[1:]
		return f
	}
	sf, ok := f.(*wire.StreamFrame)
	if !ok {
		return nil
	}
	overhead := (&wire.StreamFrame{StreamID: sf.StreamID, Offset: sf.Offset}).Length(v)
	if overhead >= maxLen {
		return nil
	}
	n := maxLen - overhead
	if n > 63 {
		// the data length takes two bytes
		n--
	}
	n = min(n, protocol.ByteCount(len(sf.Data)))
	split := &wire.StreamFrame{StreamID: sf.StreamID, Offset: sf.Offset, Data: sf.Data[:n]}
	sf.Offset += n
	sf.Data = sf.Data[n:]
	return split
}

// DropPackets discards the frames of an encryption level whose keys were dropped.
func (q *retransmissionQueue) DropPackets(encLevel protocol.EncryptionLevel) {
	switch encLevel {
	case protocol.EncryptionInitial:
		q.initial = nil
		q.initialCryptoData = nil
	case protocol.EncryptionHandshake:
		q.handshake = nil
		q.handshakeCryptoData = nil
	}
}
