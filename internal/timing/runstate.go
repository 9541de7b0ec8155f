package timing

import "time"

// RunState is the mutable state of one sequence run. It belongs to a single
// Run call and is never shared.
type RunState struct {
	// LastStart is the reference time the next time-based wait counts from.
	LastStart time.Time

	started   bool
	suspended time.Duration
	cursor    int
}

// NewRunState returns an empty state for a new run.
func NewRunState() *RunState {
	return &RunState{}
}

// MarkFirstPresentation sets LastStart on the first presentation of the run
// and reports whether this call did so.
func (rs *RunState) MarkFirstPresentation(now time.Time) bool {
	if rs.started {
		return false
	}
	rs.started = true
	rs.LastStart = now
	return true
}

// Started reports whether the first stimulus has been presented.
func (rs *RunState) Started() bool { return rs.started }

// AddSuspended records time spent blocked on the suspend flag.
func (rs *RunState) AddSuspended(d time.Duration) {
	if d > 0 {
		rs.suspended += d
	}
}

// TakeSuspended returns the pending suspended time and clears it.
func (rs *RunState) TakeSuspended() time.Duration {
	d := rs.suspended
	rs.suspended = 0
	return d
}

// NextInterval returns the next interval of s and moves the cursor.
func (rs *RunState) NextInterval(s Schedule) Interval {
	iv := s.At(rs.cursor)
	rs.cursor++
	return iv
}
