package quicconn

import (
	"log/slog"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/logging"
)

const (
	// At some point, we have to stop searching for a higher MTU.
	// We're happy to send a packet that's 10 bytes smaller than the actual MTU.
	maxMTUDiff = 20
	// send a probe packet every mtuProbeDelay RTTs
	mtuProbeDelay = 5
)

// The mtuFinder searches for the path MTU between the current and the maximum packet size.
// Every probe halves the search interval: an acknowledged probe raises the current size,
// a lost probe lowers the maximum.
type mtuFinder struct {
	lastProbeTime monotime.Time
	probeInFlight bool
	probeSize     protocol.ByteCount
	disabled      bool

	rttStats *utils.RTTStats
	current  protocol.ByteCount
	// the size before the last increase, restored once if writing fails
	previous protocol.ByteCount
	max      protocol.ByteCount

	tracer *logging.ConnectionTracer
	logger *slog.Logger
}

func newMTUDiscoverer(rttStats *utils.RTTStats, start, max protocol.ByteCount, now monotime.Time, tracer *logging.ConnectionTracer, logger *slog.Logger) *mtuFinder {
	return &mtuFinder{
		current:  start,
		max:      max,
		rttStats: rttStats,
		// to make sure the first probe packet is not sent immediately
		lastProbeTime: now,
		tracer:        tracer,
		logger:        logger,
	}
}

func (f *mtuFinder) done() bool {
	return f.disabled || f.max-f.current <= maxMTUDiff+1
}

// ShouldSendProbe says if a probe packet should be sent now.
func (f *mtuFinder) ShouldSendProbe(now monotime.Time) bool {
	next := f.NextProbeTime()
	return !next.IsZero() && !now.Before(next)
}

// NextProbeTime returns the time when the next probe packet should be sent.
// It returns the zero value if no probe packet should be sent.
func (f *mtuFinder) NextProbeTime() monotime.Time {
	if f.probeInFlight || f.done() {
		return 0
	}
	rtt := f.rttStats.SmoothedRTT()
	if rtt == 0 {
		rtt = protocol.DefaultInitialRTT
	}
	return f.lastProbeTime.Add(mtuProbeDelay * rtt)
}

// GetProbeSize returns the size of the next probe packet, and marks the probe as in flight.
func (f *mtuFinder) GetProbeSize(now monotime.Time) protocol.ByteCount {
	f.probeSize = (f.max + f.current) / 2
	f.lastProbeTime = now
	f.probeInFlight = true
	f.logger.Debug("sending MTU probe", "size", f.probeSize, "current", f.current, "max", f.max)
	return f.probeSize
}

// OnProbeAcked raises the current MTU to the size of the acknowledged probe.
func (f *mtuFinder) OnProbeAcked(size protocol.ByteCount) {
	f.probeInFlight = false
	if size <= f.current {
		return
	}
	f.logger.Debug("MTU probe acknowledged", "size", size)
	f.previous = f.current
	f.current = size
	if f.tracer != nil && f.tracer.UpdatedMTU != nil {
		f.tracer.UpdatedMTU(size, f.done())
	}
}

// OnProbeLost lowers the upper bound of the search.
func (f *mtuFinder) OnProbeLost(size protocol.ByteCount) {
	f.logger.Debug("MTU probe lost", "size", size)
	f.probeInFlight = false
	f.max = min(f.max, size)
}

// Disable stops MTU discovery, after the writer rejected a probe packet as too big.
func (f *mtuFinder) Disable() {
	f.logger.Debug("disabling MTU discovery", "mtu", f.current)
	f.disabled = true
	f.probeInFlight = false
}

// Revert restores the MTU in use before the last increase.
// It can only be used once. It returns false if there's nothing to revert to.
func (f *mtuFinder) Revert() bool {
	if f.previous == 0 {
		return false
	}
	f.logger.Debug("reverting MTU", "from", f.current, "to", f.previous)
	f.max = f.current - 1
	f.current = f.previous
	f.previous = 0
	f.disabled = true
	if f.tracer != nil && f.tracer.UpdatedMTU != nil {
		f.tracer.UpdatedMTU(f.current, true)
	}
	return true
}

// CurrentSize is the largest packet size known to work on the path.
func (f *mtuFinder) CurrentSize() protocol.ByteCount {
	return f.current
}
