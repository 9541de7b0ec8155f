package timing

import (
	"context"
	"time"

	"github.com/stimkit/stimkit/internal/clock"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
)

// DefaultPollInterval is the sleep granularity of frame-based waits.
const DefaultPollInterval = 10 * time.Millisecond

// WaitResult describes one completed wait.
type WaitResult struct {
	Interval Interval
	// Scheduled is the time the wait was meant to cover, including any
	// suspended-time correction.
	Scheduled time.Duration
	// Elapsed is the wall time actually spent in Wait.
	Elapsed time.Duration
	// Overshoot is how far past the target the wait woke up.
	Overshoot   time.Duration
	Late        bool
	Interrupted bool
	// Frames is the frame count observed at the end of a frame-based wait.
	Frames int
}

// WaitStrategy decides how long to pause before the next stimulus.
type WaitStrategy interface {
	// Unit is the interval unit the strategy consumes.
	Unit() Unit
	// Wait blocks until the next stimulus is due. It never fails: timing
	// problems are logged and reported in the result.
	Wait(ctx context.Context, rs *RunState, next Interval) WaitResult
}

// TimeWait waits on the wall clock.
//
// With Fixed set, LastStart advances by exactly the scheduled interval, so an
// overshoot shortens the following wait and drift does not accumulate.
// Otherwise LastStart is reset to the wake-up time and every interval is
// measured on its own.
type TimeWait struct {
	clock clock.Clock
	fixed bool
	log   stimlog.Logger
}

// NewTimeWait creates a wall-clock wait strategy.
func NewTimeWait(c clock.Clock, fixed bool, log stimlog.Logger) *TimeWait {
	return &TimeWait{clock: c, fixed: fixed, log: log}
}

func (w *TimeWait) Unit() Unit { return UnitSeconds }

// Fixed reports whether the strategy keeps a fixed cadence.
func (w *TimeWait) Fixed() bool { return w.fixed }

func (w *TimeWait) Wait(ctx context.Context, rs *RunState, next Interval) WaitResult {
	begin := w.clock.Now()
	scheduled := next.Duration + rs.TakeSuspended()
	target := rs.LastStart.Add(scheduled)
	remaining := target.Sub(begin)

	res := WaitResult{Interval: next, Scheduled: scheduled}
	if remaining > 0 {
		if err := w.clock.Sleep(ctx, remaining); err != nil {
			res.Interrupted = true
			w.log.Warnf("Wait of %v cut short, treating it as complete: %v", remaining, stimerrors.NewTimingInterruption(remaining, err))
		}
	} else {
		res.Late = true
		w.log.Debugf("Already %v behind schedule, not sleeping", -remaining)
	}

	now := w.clock.Now()
	switch {
	case w.fixed:
		rs.LastStart = target
	case res.Interrupted && now.Before(target):
		rs.LastStart = target
	default:
		rs.LastStart = now
	}

	res.Elapsed = now.Sub(begin)
	if over := now.Sub(target); over > 0 {
		res.Overshoot = over
	}
	return res
}

// FrameWait polls the frame counter until enough frames have been rendered
// since the last lock. Time spent suspended is converted to frames at rate
// and added to the target.
type FrameWait struct {
	clock   clock.Clock
	counter v1.FrameCounter
	rate    Freq
	poll    time.Duration
	log     stimlog.Logger
}

// NewFrameWait creates a frame-based wait strategy. A non-positive poll
// falls back to DefaultPollInterval.
func NewFrameWait(c clock.Clock, counter v1.FrameCounter, rate Freq, poll time.Duration, log stimlog.Logger) *FrameWait {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &FrameWait{clock: c, counter: counter, rate: rate, poll: poll, log: log}
}

func (w *FrameWait) Unit() Unit { return UnitFrames }

func (w *FrameWait) Wait(ctx context.Context, rs *RunState, next Interval) WaitResult {
	begin := w.clock.Now()
	target := next.Frames + w.rate.FramesIn(rs.TakeSuspended())
	res := WaitResult{Interval: next, Scheduled: w.rate.Duration(target)}

	for w.counter.LastInterval() < target {
		if err := w.clock.Sleep(ctx, w.poll); err != nil {
			if !res.Interrupted {
				w.log.Warnf("Frame poll interrupted while waiting for %d frames: %v", target, stimerrors.NewTimingInterruption(w.poll, err))
			}
			res.Interrupted = true
			// a cancelled context ends the wait; other sleep errors only cost one poll
			if ctx.Err() != nil {
				break
			}
		}
	}

	now := w.clock.Now()
	res.Frames = w.counter.LastInterval()
	res.Elapsed = now.Sub(begin)
	if over := res.Frames - target; over > 0 {
		res.Overshoot = w.rate.Duration(over)
	}
	return res
}
