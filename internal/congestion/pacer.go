package congestion

import (
	"math"
	"time"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"

	"golang.org/x/time/rate"
)

const maxBurstSizePackets = 10

// minPacingDelay is the minimum time between two paced packets.
// Delays shorter than the timer granularity can't be scheduled.
const minPacingDelay = time.Millisecond

// The pacer implements a token bucket pacing algorithm.
// The bucket is a rate.Limiter measured in bytes, whose rate follows the bandwidth estimate.
type pacer struct {
	limiter         *rate.Limiter
	lastSentTime    monotime.Time
	maxDatagramSize protocol.ByteCount
	getBandwidth    func() uint64 // in bytes/s
}

func newPacer(getBandwidth func() Bandwidth) *pacer {
	p := &pacer{
		maxDatagramSize: initialMaxDatagramSize,
		getBandwidth: func() uint64 {
			// Bandwidth is in bits/s. We need the value in bytes/s.
			return uint64(getBandwidth() / BytesPerSecond)
		},
	}
	p.limiter = rate.NewLimiter(rate.Limit(p.getBandwidth()), int(p.maxBurstSize()))
	return p
}

// adjust applies the current bandwidth estimate to the token bucket.
func (p *pacer) adjust(now time.Time) {
	p.limiter.SetLimitAt(now, rate.Limit(p.getBandwidth()))
	p.limiter.SetBurstAt(now, int(p.maxBurstSize()))
}

func (p *pacer) SentPacket(sendTime monotime.Time, size protocol.ByteCount) {
	t := sendTime.ToTime()
	p.adjust(t)
	// a reservation exceeding the burst size would be rejected without consuming any tokens
	p.limiter.ReserveN(t, int(min(size, p.maxBurstSize())))
	p.lastSentTime = sendTime
}

// Budget returns the number of bytes that can be sent now.
func (p *pacer) Budget(now monotime.Time) protocol.ByteCount {
	if p.lastSentTime.IsZero() {
		return p.maxBurstSize()
	}
	tokens := p.limiter.TokensAt(now.ToTime())
	if tokens <= 0 {
		return 0
	}
	return protocol.ByteCount(tokens)
}

func (p *pacer) maxBurstSize() protocol.ByteCount {
	return max(
		protocol.ByteCount((minPacingDelay+protocol.TimerGranularity).Nanoseconds()*int64(p.getBandwidth())/1e9),
		maxBurstSizePackets*p.maxDatagramSize,
	)
}

// TimeUntilSend returns when the next packet should be sent.
// It returns the zero value if a packet can be sent immediately.
func (p *pacer) TimeUntilSend() monotime.Time {
	if p.lastSentTime.IsZero() {
		return 0
	}
	budget := p.Budget(p.lastSentTime)
	if budget >= p.maxDatagramSize {
		return 0
	}
	d := time.Duration(math.Ceil(float64(p.maxDatagramSize-budget)*1e9/float64(p.getBandwidth()))) * time.Nanosecond
	return p.lastSentTime.Add(max(minPacingDelay, d))
}

func (p *pacer) SetMaxDatagramSize(s protocol.ByteCount) {
	p.maxDatagramSize = s
}
