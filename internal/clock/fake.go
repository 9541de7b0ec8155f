package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a Clock whose time only moves when Sleep or Advance is called.
// Sleep returns immediately after moving time forward by the requested
// duration plus whatever the overshoot function adds.
type Fake struct {
	mu        sync.Mutex
	now       time.Time
	overshoot func(d time.Duration) time.Duration
	failures  []error
	sleeps    []time.Duration
	onSleep   []func(d time.Duration)
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// SetOvershoot installs a function returning the extra time each sleep
// takes beyond what was requested.
func (f *Fake) SetOvershoot(fn func(d time.Duration) time.Duration) {
	f.mu.Lock()
	f.overshoot = fn
	f.mu.Unlock()
}

// FailNextSleep makes the next sleep return err. Time still advances by the
// requested duration.
func (f *Fake) FailNextSleep(err error) {
	f.mu.Lock()
	f.failures = append(f.failures, err)
	f.mu.Unlock()
}

// OnSleep registers fn to run after every sleep with the slept duration.
func (f *Fake) OnSleep(fn func(d time.Duration)) {
	f.mu.Lock()
	f.onSleep = append(f.onSleep, fn)
	f.mu.Unlock()
}

// Sleeps returns the durations requested so far.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// Sleep advances the clock and returns without blocking.
func (f *Fake) Sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	actual := d
	if f.overshoot != nil {
		actual += f.overshoot(d)
	}
	f.now = f.now.Add(actual)
	var err error
	if len(f.failures) > 0 {
		err = f.failures[0]
		f.failures = f.failures[1:]
	}
	hooks := append([]func(time.Duration){}, f.onSleep...)
	f.mu.Unlock()

	for _, fn := range hooks {
		fn(actual)
	}
	return err
}
