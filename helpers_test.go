package quicconn

import (
	"time"

	"github.com/quic-go/quicconn/internal/monotime"
)

type fakeClock struct {
	now monotime.Time
}

var _ Clock = &fakeClock{}

func newFakeClock() *fakeClock {
	return &fakeClock{now: monotime.Now()}
}

func (c *fakeClock) Now() monotime.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
