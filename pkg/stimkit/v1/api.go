package v1

import (
	"time"

	"github.com/stimkit/stimkit/internal/clock"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/events"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/metrics"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/tracing"
)

// Renderer swaps the display to the prepared stimulus. Present is expected
// to be synchronous and short compared to the stimulus intervals.
type Renderer interface {
	Present() error
}

// FrameCounter counts rendered display frames. Lock sets a reference point;
// LastInterval reports frames rendered since the last Lock and Frame the
// total since the counter started.
type FrameCounter interface {
	Lock()
	Frame() int
	LastInterval() int
}

// SuspendFlag is an external pause signal. Wait blocks until the flag is no
// longer suspended.
type SuspendFlag interface {
	Suspended() bool
	Wait()
}

// ActiveFlag is implemented by flags that can also report that the feedback
// session has stopped. An inactive flag ends a sequence at its next step.
type ActiveFlag interface {
	SuspendFlag
	Active() bool
}

// FrameAnchor selects where frame-based waits count from.
type FrameAnchor int

const (
	// AnchorPerStimulus relocks the frame counter at every presentation, so
	// each frame interval is measured from the stimulus it follows.
	AnchorPerStimulus FrameAnchor = iota
	// AnchorRunStart locks the counter only at the first presentation;
	// frame intervals are then cumulative counts since the run started.
	AnchorRunStart
)

func (a FrameAnchor) String() string {
	switch a {
	case AnchorPerStimulus:
		return "per_stimulus"
	case AnchorRunStart:
		return "run_start"
	default:
		return "unknown"
	}
}

// Presentation describes one stimulus onset. Intended and Actual are offsets
// from the first presentation of the run.
type Presentation struct {
	Sequence  string
	Index     int
	Label     string
	Intended  time.Duration
	Actual    time.Duration
	Timestamp time.Time
}

// PresentationHook observes presentations. Hooks run on the presentation
// goroutine and must return quickly.
type PresentationHook interface {
	BeforePresent(p Presentation)
	AfterPresent(p Presentation, err error)
}

// Labeler is an optional interface for renderers that can name the stimulus
// they are about to present.
type Labeler interface {
	Label() string
}

// WaitRecord holds the outcome of one wait between two presentations, or
// the final drain wait.
type WaitRecord struct {
	Index       int           `json:"index"`
	Interval    time.Duration `json:"interval"`
	Frames      int           `json:"frames,omitempty"`
	Scheduled   time.Duration `json:"scheduled"`
	Elapsed     time.Duration `json:"elapsed"`
	Overshoot   time.Duration `json:"overshoot"`
	Late        bool          `json:"late,omitempty"`
	Interrupted bool          `json:"interrupted,omitempty"`
}

// RunReport summarises a completed sequence run.
type RunReport struct {
	Sequence       string        `json:"sequence,omitempty"`
	Status         string        `json:"status"`
	Presentations  int           `json:"presentations"`
	Waits          []WaitRecord  `json:"waits"`
	ScheduledTotal time.Duration `json:"scheduled_total"`
	SuspendedTotal time.Duration `json:"suspended_total"`
	LateWakeups    int           `json:"late_wakeups"`
	Interruptions  int           `json:"interruptions"`
	Drained        bool          `json:"drained"`
	FramesRendered int           `json:"frames_rendered,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration"`
	Error          string        `json:"error,omitempty"`
}

// Iterator is a one-shot producer of stimuli. Next prepares the next
// stimulus and reports whether there was one.
type Iterator interface {
	Next() bool
}

// Preparation is the object that decides whether there is a next stimulus.
// Exactly one of its two shapes is set; build it with PrepareFunc,
// PrepareIterator or PrepareSlice.
type Preparation struct {
	fn func() bool
	it Iterator
}

// PrepareFunc wraps a predicate that is called again for every step.
func PrepareFunc(fn func() bool) Preparation {
	return Preparation{fn: fn}
}

// PrepareIterator wraps a one-shot iterator that is advanced once per step.
func PrepareIterator(it Iterator) Preparation {
	return Preparation{it: it}
}

// PrepareSlice returns an iterator preparation that calls prepare for each
// item in order.
func PrepareSlice[T any](items []T, prepare func(T)) Preparation {
	return Preparation{it: &sliceIterator[T]{items: items, prepare: prepare}}
}

// Func returns the predicate, or nil.
func (p Preparation) Func() func() bool { return p.fn }

// Iterator returns the iterator, or nil.
func (p Preparation) Iterator() Iterator { return p.it }

type sliceIterator[T any] struct {
	items   []T
	prepare func(T)
	pos     int
}

func (s *sliceIterator[T]) Next() bool {
	if s.pos >= len(s.items) {
		return false
	}
	item := s.items[s.pos]
	s.pos++
	if s.prepare != nil {
		s.prepare(item)
	}
	return true
}

// FactoryV1 is the configuration surface of the sequence factory.
type FactoryV1 interface {
	SetRefreshRate(hz float64) error
	SetFrameTransition(enabled bool) error
	SetVSyncTimes(enabled bool) error
	SetPrintFrames(enabled bool) error
	SetFrameAnchor(anchor FrameAnchor) error
	SetFrameCounter(counter FrameCounter) error
	SetPollInterval(d time.Duration) error
	SetClock(c clock.Clock) error
	SetEventBus(bus events.Bus) error
	SetMetricsRegistryProvider(provider metrics.RegistryProvider) error
	SetTracerProvider(provider tracing.TracerProvider) error
	AddHook(hook PresentationHook) error
}

// FactoryOption configures a factory at creation.
type FactoryOption func(FactoryV1) error

// WithRefreshRate sets the display refresh rate in Hz used for frame and
// vsync alignment.
func WithRefreshRate(hz float64) FactoryOption {
	return func(f FactoryV1) error {
		if hz <= 0 {
			return stimerrors.NewConfigError("refresh rate must be positive", nil)
		}
		return f.SetRefreshRate(hz)
	}
}

// WithFrameTransition makes intervals frame counts waited on the frame counter.
func WithFrameTransition(enabled bool) FactoryOption {
	return func(f FactoryV1) error {
		return f.SetFrameTransition(enabled)
	}
}

// WithVSyncTimes snaps second intervals to whole frame periods.
func WithVSyncTimes(enabled bool) FactoryOption {
	return func(f FactoryV1) error {
		return f.SetVSyncTimes(enabled)
	}
}

// WithPrintFrames enables per-interval frame diagnostics at DEBUG level.
func WithPrintFrames(enabled bool) FactoryOption {
	return func(f FactoryV1) error {
		return f.SetPrintFrames(enabled)
	}
}

// WithFrameAnchor selects how frame intervals are counted.
func WithFrameAnchor(anchor FrameAnchor) FactoryOption {
	return func(f FactoryV1) error {
		if anchor != AnchorPerStimulus && anchor != AnchorRunStart {
			return stimerrors.NewConfigError("unknown frame anchor", nil)
		}
		return f.SetFrameAnchor(anchor)
	}
}

// WithFrameCounter supplies the display's frame counter.
func WithFrameCounter(counter FrameCounter) FactoryOption {
	return func(f FactoryV1) error {
		if counter == nil {
			return stimerrors.NewConfigError("frame counter cannot be nil", nil)
		}
		return f.SetFrameCounter(counter)
	}
}

// WithPollInterval sets the sleep granularity of frame-based waits.
func WithPollInterval(d time.Duration) FactoryOption {
	return func(f FactoryV1) error {
		if d <= 0 {
			return stimerrors.NewConfigError("poll interval must be positive", nil)
		}
		return f.SetPollInterval(d)
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) FactoryOption {
	return func(f FactoryV1) error {
		if c == nil {
			return stimerrors.NewConfigError("clock cannot be nil", nil)
		}
		return f.SetClock(c)
	}
}

// WithEventBus provides a custom event bus.
func WithEventBus(bus events.Bus) FactoryOption {
	return func(f FactoryV1) error {
		if bus == nil {
			return stimerrors.NewConfigError("event bus cannot be nil", nil)
		}
		return f.SetEventBus(bus)
	}
}

// WithMetricsRegistryProvider provides a custom metrics provider.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) FactoryOption {
	return func(f FactoryV1) error {
		if provider == nil {
			return stimerrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		return f.SetMetricsRegistryProvider(provider)
	}
}

// WithTracerProvider provides a custom tracing provider.
func WithTracerProvider(provider tracing.TracerProvider) FactoryOption {
	return func(f FactoryV1) error {
		if provider == nil {
			return stimerrors.NewConfigError("tracer provider cannot be nil", nil)
		}
		return f.SetTracerProvider(provider)
	}
}

// WithHooks registers presentation hooks on every painter the factory creates.
func WithHooks(hooks ...PresentationHook) FactoryOption {
	return func(f FactoryV1) error {
		for _, h := range hooks {
			if h == nil {
				return stimerrors.NewConfigError("presentation hook cannot be nil", nil)
			}
			if err := f.AddHook(h); err != nil {
				return err
			}
		}
		return nil
	}
}
