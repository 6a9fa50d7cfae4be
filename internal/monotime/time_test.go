package monotime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeRelations(t *testing.T) {
	t1 := Now()
	require.Equal(t, t1, t1)
	require.False(t, t1.IsZero())

	t2 := t1.Add(time.Second)

	require.False(t, t1.Equal(t2))
	require.False(t, t2.Equal(t1))

	require.True(t, t2.After(t1))
	require.False(t, t1.After(t2))
	require.False(t, t2.Before(t1))

	require.Equal(t, t2.Sub(t1), time.Second)
	require.Equal(t, t1.Sub(t2), -time.Second)
}

func TestSinceAndUntil(t *testing.T) {
	t1 := Now().Add(-time.Minute)
	require.GreaterOrEqual(t, Since(t1), time.Minute)
	t2 := Now().Add(time.Hour)
	require.LessOrEqual(t, Until(t2), time.Hour)
	require.Greater(t, Until(t2), 59*time.Minute)
}

func TestConversions(t *testing.T) {
	t1 := Now()
	t1Time := t1.ToTime()
	require.Equal(t, FromTime(t1Time), t1)
	require.Zero(t, t1Time.Sub(t1.ToTime()))

	var zeroTime time.Time
	require.Zero(t, FromTime(zeroTime))

	var zero Time
	require.True(t, zero.ToTime().IsZero())
}

func TestMin(t *testing.T) {
	t1 := Now()
	t2 := t1.Add(time.Second)
	require.Equal(t, t1, Min(t1, t2))
	require.Equal(t, t1, Min(t2, t1))
	require.Equal(t, t2, Min(0, t2))
	require.Equal(t, t1, Min(t1, 0))
	require.Zero(t, Min(0, 0))
}

func BenchmarkNow(b *testing.B) {
	b.Run("Now", func(b *testing.B) {
		for b.Loop() {
			_ = Now()
		}
	})

	b.Run("time.Now", func(b *testing.B) {
		for b.Loop() {
			_ = time.Now()
		}
	})
}
