// Package monotime provides a monotonic time representation that is cheap to
// compare and does not carry wall clock information.
package monotime

import "time"

// The zero value of Time is reserved to mean "unset",
// therefore all timestamps are offset by one nanosecond from the start time.
var start = time.Now()

// A Time is a point in time, measured in nanoseconds since process start.
type Time int64

// Now returns the current monotonic time.
func Now() Time {
	return Time(time.Since(start)) + 1
}

// FromTime converts a time.Time.
// The zero time.Time is converted to the zero Time.
func FromTime(t time.Time) Time {
	if t.IsZero() {
		return 0
	}
	return Time(t.Sub(start)) + 1
}

// ToTime converts to a time.Time.
func (t Time) ToTime() time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return start.Add(time.Duration(t - 1))
}

// Since returns the time elapsed since t.
func Since(t Time) time.Duration {
	return time.Duration(Now() - t)
}

// Until returns the duration until t.
func Until(t Time) time.Duration {
	return time.Duration(t - Now())
}

func (t Time) Add(d time.Duration) Time {
	return t + Time(d)
}

func (t Time) Sub(u Time) time.Duration {
	return time.Duration(t - u)
}

func (t Time) Before(u Time) bool {
	return t < u
}

func (t Time) After(u Time) bool {
	return t > u
}

func (t Time) Equal(u Time) bool {
	return t == u
}

func (t Time) IsZero() bool {
	return t == 0
}

// Min returns the earlier of two times, ignoring zero values.
func Min(a, b Time) Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case a < b:
		return a
	default:
		return b
	}
}
