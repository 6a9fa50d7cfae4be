package quicconn

import (
	"slices"
	"time"

	"github.com/quic-go/quicconn/internal/monotime"
)

// An Alarm is one of the timers of a connection.
type Alarm uint8

const (
	AlarmAck Alarm = iota
	AlarmRetransmission
	AlarmSend
	AlarmMTUDiscovery
	AlarmPing
	AlarmDiscardZeroRTTKeys
	AlarmDiscardPreviousOneRTTKeys
	AlarmRetireSelfIssuedConnectionID
	AlarmMultiPortProbing
	AlarmPathValidation
	AlarmIdle
	AlarmNetworkBlackhole
	AlarmProcessUndecryptablePackets

	numAlarms
)

func (a Alarm) String() string {
	switch a {
	case AlarmAck:
		return "ack"
	case AlarmRetransmission:
		return "retransmission"
	case AlarmSend:
		return "send"
	case AlarmMTUDiscovery:
		return "mtu_discovery"
	case AlarmPing:
		return "ping"
	case AlarmDiscardZeroRTTKeys:
		return "discard_0rtt_keys"
	case AlarmDiscardPreviousOneRTTKeys:
		return "discard_previous_1rtt_keys"
	case AlarmRetireSelfIssuedConnectionID:
		return "retire_self_issued_connection_id"
	case AlarmMultiPortProbing:
		return "multi_port_probing"
	case AlarmPathValidation:
		return "path_validation"
	case AlarmIdle:
		return "idle"
	case AlarmNetworkBlackhole:
		return "network_blackhole"
	case AlarmProcessUndecryptablePackets:
		return "process_undecryptable_packets"
	default:
		return "unknown"
	}
}

// AlarmCallback is called when an alarm fires.
type AlarmCallback func(now monotime.Time)

// The AlarmSet holds the one-shot timers of a connection.
// It doesn't start any goroutines: the owner asks for the next deadline,
// and calls Fire once that deadline has passed.
type AlarmSet struct {
	deadlines [numAlarms]monotime.Time
	callbacks [numAlarms]AlarmCallback

	permanentlyCancelled bool
}

// Register sets the callback of an alarm.
func (s *AlarmSet) Register(a Alarm, cb AlarmCallback) {
	s.callbacks[a] = cb
}

// Set arms an alarm. An alarm that is already armed is rescheduled.
// Setting the zero deadline cancels the alarm.
// After PermanentlyCancel, Set is a no-op.
func (s *AlarmSet) Set(a Alarm, deadline monotime.Time) {
	if s.permanentlyCancelled {
		return
	}
	s.deadlines[a] = deadline
}

// Update reschedules an alarm, unless the new deadline is within granularity of the current one.
func (s *AlarmSet) Update(a Alarm, deadline monotime.Time, granularity time.Duration) {
	if deadline.IsZero() {
		s.Cancel(a)
		return
	}
	if current := s.deadlines[a]; !current.IsZero() {
		diff := deadline.Sub(current)
		if diff < 0 {
			diff = -diff
		}
		if diff < granularity {
			return
		}
	}
	s.Set(a, deadline)
}

// Cancel disarms an alarm.
func (s *AlarmSet) Cancel(a Alarm) {
	s.deadlines[a] = 0
}

// IsSet says if an alarm is armed.
func (s *AlarmSet) IsSet(a Alarm) bool {
	return !s.deadlines[a].IsZero()
}

// Deadline returns the deadline of an alarm, or the zero value if it isn't armed.
func (s *AlarmSet) Deadline(a Alarm) monotime.Time {
	return s.deadlines[a]
}

// NextDeadline returns the earliest deadline of all armed alarms.
func (s *AlarmSet) NextDeadline() monotime.Time {
	var next monotime.Time
	for _, d := range s.deadlines {
		if d.IsZero() {
			continue
		}
		if next.IsZero() || d.Before(next) {
			next = d
		}
	}
	return next
}

// PermanentlyCancel disarms all alarms. They can't be set again.
func (s *AlarmSet) PermanentlyCancel() {
	s.permanentlyCancelled = true
	clear(s.deadlines[:])
}

// IsPermanentlyCancelled says if PermanentlyCancel was called.
func (s *AlarmSet) IsPermanentlyCancelled() bool {
	return s.permanentlyCancelled
}

// Fire runs the callbacks of all alarms that are due at now, in deadline order.
// An alarm is disarmed before its callback runs, so the callback may set it again.
// Callbacks may cancel or reschedule alarms that haven't fired yet.
// It returns the number of alarms that fired.
func (s *AlarmSet) Fire(now monotime.Time) int {
	var due []Alarm
	for a, d := range s.deadlines {
		if !d.IsZero() && !d.After(now) {
			due = append(due, Alarm(a))
		}
	}
	slices.SortStableFunc(due, func(a, b Alarm) int {
		da, db := s.deadlines[a], s.deadlines[b]
		switch {
		case da.Before(db):
			return -1
		case db.Before(da):
			return 1
		default:
			return 0
		}
	})
	var fired int
	for _, a := range due {
		d := s.deadlines[a]
		if d.IsZero() || d.After(now) {
			continue
		}
		s.deadlines[a] = 0
		fired++
		if cb := s.callbacks[a]; cb != nil {
			cb(now)
		}
	}
	return fired
}
