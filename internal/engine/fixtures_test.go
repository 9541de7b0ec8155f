package engine_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stimkit/stimkit/internal/clock"
	"github.com/stimkit/stimkit/internal/engine"
	"github.com/stimkit/stimkit/internal/logger"
	"github.com/stimkit/stimkit/internal/source"
	"github.com/stimkit/stimkit/internal/timing"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// countingRenderer records every Present call and can fail or take time.
type countingRenderer struct {
	mu       sync.Mutex
	calls    int
	failAt   int
	failWith error
	clock    *clock.Fake
	cost     time.Duration
	onCall   func(index int)
}

func (r *countingRenderer) Present() error {
	r.mu.Lock()
	idx := r.calls
	r.calls++
	r.mu.Unlock()

	if r.onCall != nil {
		r.onCall(idx)
	}
	if r.clock != nil && r.cost > 0 {
		r.clock.Advance(r.cost)
	}
	if r.failWith != nil && idx == r.failAt {
		return r.failWith
	}
	return nil
}

func (r *countingRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// scriptedFlag reports suspended on selected preparation steps and advances
// the fake clock while "blocked".
type scriptedFlag struct {
	clock *clock.Fake
	// suspensions maps the zero-based Suspended() call to its duration.
	suspensions map[int]time.Duration
	// stopAt is the Active() call from which the flag reports inactive; -1
	// keeps it active.
	stopAt int

	suspendedCalls int
	activeCalls    int
	waits          int
	pending        time.Duration
}

func newScriptedFlag(c *clock.Fake) *scriptedFlag {
	return &scriptedFlag{clock: c, suspensions: map[int]time.Duration{}, stopAt: -1}
}

func (f *scriptedFlag) Suspended() bool {
	d, ok := f.suspensions[f.suspendedCalls]
	f.suspendedCalls++
	if ok && d > 0 {
		f.pending = d
		return true
	}
	return false
}

func (f *scriptedFlag) Wait() {
	f.waits++
	f.clock.Advance(f.pending)
	f.pending = 0
}

func (f *scriptedFlag) Active() bool {
	n := f.activeCalls
	f.activeCalls++
	return f.stopAt < 0 || n < f.stopAt
}

// passiveFlag implements only v1.SuspendFlag.
type passiveFlag struct{}

func (passiveFlag) Suspended() bool { return false }
func (passiveFlag) Wait()           {}

// onsetHook collects presentations.
type onsetHook struct {
	before []v1.Presentation
	after  []error
}

func (h *onsetHook) BeforePresent(p v1.Presentation) { h.before = append(h.before, p) }
func (h *onsetHook) AfterPresent(_ v1.Presentation, err error) {
	h.after = append(h.after, err)
}

func (h *onsetHook) actual() []time.Duration {
	out := make([]time.Duration, len(h.before))
	for i, p := range h.before {
		out[i] = p.Actual
	}
	return out
}

func countdown(n int) *source.Source {
	left := n
	return source.FromFunc(func() bool {
		if left == 0 {
			return false
		}
		left--
		return true
	})
}

func seconds(t *testing.T, values ...float64) timing.Schedule {
	t.Helper()
	ivs := make([]timing.Interval, len(values))
	for i, v := range values {
		ivs[i] = timing.Seconds(v)
	}
	s, err := timing.NewSchedule(ivs)
	require.NoError(t, err)
	return s
}

func frames(t *testing.T, values ...int) timing.Schedule {
	t.Helper()
	ivs := make([]timing.Interval, len(values))
	for i, v := range values {
		ivs[i] = timing.FrameCount(v)
	}
	s, err := timing.NewSchedule(ivs)
	require.NoError(t, err)
	return s
}

// timeConfig builds a time-based painter config on a fake clock.
func timeConfig(fake *clock.Fake, src *source.Source, sched timing.Schedule, fixed bool, r v1.Renderer) engine.Config {
	log := logger.NewDiscardLogger()
	return engine.Config{
		Source:   src,
		Schedule: sched,
		Wait:     timing.NewTimeWait(fake, fixed, log),
		Renderer: r,
		Clock:    fake,
		Log:      log,
	}
}

func newPainter(t *testing.T, cfg engine.Config) *engine.Painter {
	t.Helper()
	p, err := engine.NewPainter(cfg)
	require.NoError(t, err)
	return p
}

var errSwap = errors.New("buffer swap failed")
