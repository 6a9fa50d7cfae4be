package utils

import (
	"math"
	"time"

	"github.com/quic-go/quicconn/internal/monotime"
)

// A Timer wrapper that behaves correctly when resetting
type Timer struct {
	t        *time.Timer
	read     bool
	deadline monotime.Time
}

// NewTimer creates a new timer that is not set
func NewTimer() *Timer {
	return &Timer{t: time.NewTimer(time.Duration(math.MaxInt64))}
}

// Chan returns the channel of the wrapped timer
func (t *Timer) Chan() <-chan time.Time {
	return t.t.C
}

// Reset the timer, no matter whether the value was read or not.
// A zero deadline leaves the timer unarmed.
func (t *Timer) Reset(deadline monotime.Time) {
	if deadline.Equal(t.deadline) && !t.read {
		return
	}

	// drain the channel if the value was not read yet
	if !t.t.Stop() && !t.read {
		select {
		case <-t.t.C:
		default:
		}
	}
	if !deadline.IsZero() {
		t.t.Reset(monotime.Until(deadline))
	}

	t.read = false
	t.deadline = deadline
}

// SetRead should be called after the value from the chan was read
func (t *Timer) SetRead() {
	t.read = true
}

func (t *Timer) Deadline() monotime.Time {
	return t.deadline
}

// Stop stops the timer
func (t *Timer) Stop() {
	t.t.Stop()
}
