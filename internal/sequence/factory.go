// Package sequence builds painters from a preparation object and a list of
// presentation times, applying the display-wide timing options.
package sequence

import (
	"fmt"
	"math"
	"time"

	"github.com/stimkit/stimkit/internal/clock"
	"github.com/stimkit/stimkit/internal/engine"
	intEvents "github.com/stimkit/stimkit/internal/events"
	"github.com/stimkit/stimkit/internal/framecounter"
	intMetrics "github.com/stimkit/stimkit/internal/metrics"
	"github.com/stimkit/stimkit/internal/source"
	"github.com/stimkit/stimkit/internal/timing"
	intTracing "github.com/stimkit/stimkit/internal/tracing"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/events"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/metrics"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/tracing"
)

// Factory creates painters that share one display configuration: the
// renderer, the suspend flag, the refresh rate and the frame alignment mode.
type Factory struct {
	renderer v1.Renderer
	flag     v1.SuspendFlag
	root     stimlog.Logger
	log      stimlog.Logger

	refreshRate     float64
	frameTransition bool
	vsyncTimes      bool
	printFrames     bool
	anchor          v1.FrameAnchor
	counter         v1.FrameCounter
	poll            time.Duration
	clock           clock.Clock
	hooks           []v1.PresentationHook

	eventBus        events.Bus
	metricsProvider metrics.RegistryProvider
	tracerProvider  tracing.TracerProvider
	metrics         *engine.Metrics
}

var _ v1.FactoryV1 = (*Factory)(nil)

// NewFactory creates a factory for renderer. flag may be nil for sequences
// that cannot be suspended or stopped.
func NewFactory(renderer v1.Renderer, flag v1.SuspendFlag, log stimlog.Logger, opts ...v1.FactoryOption) (*Factory, error) {
	if log == nil {
		return nil, stimerrors.NewConfigError("logger cannot be nil", nil)
	}
	if renderer == nil {
		return nil, stimerrors.NewConfigError("renderer cannot be nil", nil)
	}

	f := &Factory{
		renderer: renderer,
		flag:     flag,
		root:     log,
		log:      log.With("component", "StimulusSequenceFactory"),
		poll:     timing.DefaultPollInterval,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, stimerrors.NewConfigError(fmt.Sprintf("failed to apply factory option: %v", err), err)
		}
	}

	if (f.frameTransition || f.vsyncTimes) && f.refreshRate <= 0 {
		return nil, stimerrors.NewConfigError("frame transition and vsync times need a positive refresh rate", nil)
	}
	if f.clock == nil {
		f.clock = clock.Real()
	}
	if f.eventBus == nil {
		f.log.Debugf("No event bus provided, using default NoOp bus.")
		f.eventBus = intEvents.NewNoOpEventBus()
	}
	if f.metricsProvider == nil {
		f.log.Debugf("No metrics provider provided, using default Prometheus provider.")
		f.metricsProvider = intMetrics.NewPrometheusRegistryProvider()
	}
	if f.tracerProvider == nil {
		tp, err := intTracing.NewNoOpProvider()
		if err != nil {
			return nil, stimerrors.NewConfigError("failed to create default NoOp tracer provider", err)
		}
		f.tracerProvider = tp
	}
	if f.counter == nil && f.refreshRate > 0 && (f.frameTransition || f.printFrames) {
		f.log.Warnf("No frame counter provided, counting virtual frames at %g Hz.", f.refreshRate)
		f.counter = framecounter.NewClocked(f.clock, timing.Freq(f.refreshRate))
	}
	if f.printFrames && f.counter == nil {
		f.log.Warnf("Frame diagnostics need a refresh rate or a frame counter, print frames has no effect.")
	}

	f.initMetrics()
	return f, nil
}

func (f *Factory) initMetrics() {
	reg := f.metricsProvider.Registry()
	if reg == nil {
		f.log.Errorf("Metrics provider returned a nil registry, metrics disabled.")
		f.metrics = nil
		return
	}
	f.metrics = engine.NewMetrics(reg, f.log)
}

// Spec describes one sequence.
type Spec struct {
	Name    string
	Prepare v1.Preparation
	// Times are the presentation intervals in seconds, used cyclically.
	Times        []float64
	FixedCadence bool
	Suspendable  bool
	PreStimulus  func()
	// Renderer overrides the factory's renderer for this sequence.
	Renderer v1.Renderer
}

// Create builds a painter for prep presenting each stimulus for the next of
// times, cycling through them.
func (f *Factory) Create(prep v1.Preparation, times []float64, fixedCadence, suspendable bool, preStimulus func()) (*engine.Painter, error) {
	return f.Build(Spec{
		Prepare:      prep,
		Times:        times,
		FixedCadence: fixedCadence,
		Suspendable:  suspendable,
		PreStimulus:  preStimulus,
	})
}

// CreateOne is Create with a single presentation time.
func (f *Factory) CreateOne(prep v1.Preparation, seconds float64, fixedCadence, suspendable bool, preStimulus func()) (*engine.Painter, error) {
	return f.Create(prep, []float64{seconds}, fixedCadence, suspendable, preStimulus)
}

// Build creates a painter from s.
func (f *Factory) Build(s Spec) (*engine.Painter, error) {
	src, err := source.FromPreparation(s.Prepare)
	if err != nil {
		return nil, err
	}
	intervals, err := f.AdaptTimes(s.Times)
	if err != nil {
		return nil, err
	}
	sched, err := timing.NewSchedule(intervals)
	if err != nil {
		return nil, err
	}

	log := f.root.With("component", "WaitStrategy")
	if s.Name != "" {
		log = log.With("sequence", s.Name)
	}
	var wait timing.WaitStrategy
	if f.frameTransition {
		wait = timing.NewFrameWait(f.clock, f.counter, timing.Freq(f.refreshRate), f.poll, log)
	} else {
		wait = timing.NewTimeWait(f.clock, s.FixedCadence, log)
	}

	renderer := s.Renderer
	if renderer == nil {
		renderer = f.renderer
	}
	return engine.NewPainter(engine.Config{
		Name:        s.Name,
		Source:      src,
		Schedule:    sched,
		Wait:        wait,
		Renderer:    renderer,
		Flag:        f.flag,
		Counter:     f.counter,
		Suspendable: s.Suspendable,
		PrintFrames: f.printFrames,
		Anchor:      f.anchor,
		PreStimulus: s.PreStimulus,
		Hooks:       append([]v1.PresentationHook(nil), f.hooks...),
		Clock:       f.clock,
		Log:         f.root,
		Bus:         f.eventBus,
		Tracer:      f.tracerProvider.GetTracer(intTracing.TracerName),
		Metrics:     f.metrics,
	})
}

// AdaptTimes converts presentation times in seconds to schedule intervals.
// With frame transition each time becomes the nearest whole number of
// frames; with vsync times it is snapped to a whole number of frame periods
// at microsecond precision. Otherwise times are kept as they are.
func (f *Factory) AdaptTimes(times []float64) ([]timing.Interval, error) {
	if len(times) == 0 {
		return nil, stimerrors.NewConfigError("stimulus times cannot be empty", nil)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, stimerrors.NewValidationError(fmt.Sprintf("stimulus time %d is not a finite number", i), nil)
		}
		if t < 0 {
			return nil, stimerrors.NewValidationError(fmt.Sprintf("stimulus time %d is negative: %g", i, t), nil)
		}
	}

	out := make([]timing.Interval, len(times))
	if !f.frameTransition && !f.vsyncTimes {
		for i, t := range times {
			out[i] = timing.Seconds(t)
		}
		return out, nil
	}

	rate := timing.Freq(f.refreshRate)
	frameCounts := make([]int, len(times))
	snapped := make([]float64, len(times))
	for i, t := range times {
		frameCounts[i] = rate.FramesFor(t)
		snapped[i] = rate.SnapSeconds(t)
	}
	if f.frameTransition {
		for i, n := range frameCounts {
			out[i] = timing.FrameCount(n)
		}
		f.log.Debugf("Adapted stimulus times %v to %v frames (%v)", times, frameCounts, snapped)
		return out, nil
	}
	for i, s := range snapped {
		out[i] = timing.Seconds(s)
	}
	f.log.Debugf("Adapted stimulus times %v to %v", times, snapped)
	return out, nil
}

// RefreshRate returns the configured refresh rate in Hz, or 0.
func (f *Factory) RefreshRate() float64 { return f.refreshRate }

// FrameCounter returns the counter used for frame waits and diagnostics.
func (f *Factory) FrameCounter() v1.FrameCounter { return f.counter }

func (f *Factory) MetricsRegistryProvider() metrics.RegistryProvider { return f.metricsProvider }

func (f *Factory) TracerProvider() tracing.TracerProvider { return f.tracerProvider }

func (f *Factory) SetRefreshRate(hz float64) error {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return stimerrors.NewConfigError("refresh rate must be a positive number", nil)
	}
	f.refreshRate = hz
	return nil
}

func (f *Factory) SetFrameTransition(enabled bool) error {
	f.frameTransition = enabled
	return nil
}

func (f *Factory) SetVSyncTimes(enabled bool) error {
	f.vsyncTimes = enabled
	return nil
}

func (f *Factory) SetPrintFrames(enabled bool) error {
	f.printFrames = enabled
	return nil
}

func (f *Factory) SetFrameAnchor(anchor v1.FrameAnchor) error {
	f.anchor = anchor
	return nil
}

func (f *Factory) SetFrameCounter(counter v1.FrameCounter) error {
	if counter == nil {
		return stimerrors.NewConfigError("frame counter cannot be nil", nil)
	}
	f.counter = counter
	return nil
}

func (f *Factory) SetPollInterval(d time.Duration) error {
	if d <= 0 {
		return stimerrors.NewConfigError("poll interval must be positive", nil)
	}
	f.poll = d
	return nil
}

func (f *Factory) SetClock(c clock.Clock) error {
	if c == nil {
		return stimerrors.NewConfigError("clock cannot be nil", nil)
	}
	f.clock = c
	return nil
}

func (f *Factory) SetEventBus(bus events.Bus) error {
	if bus == nil {
		return stimerrors.NewConfigError("event bus cannot be nil", nil)
	}
	f.eventBus = bus
	return nil
}

func (f *Factory) SetMetricsRegistryProvider(provider metrics.RegistryProvider) error {
	if provider == nil {
		return stimerrors.NewConfigError("metrics registry provider cannot be nil", nil)
	}
	f.metricsProvider = provider
	return nil
}

func (f *Factory) SetTracerProvider(provider tracing.TracerProvider) error {
	if provider == nil {
		return stimerrors.NewConfigError("tracer provider cannot be nil", nil)
	}
	f.tracerProvider = provider
	return nil
}

func (f *Factory) AddHook(hook v1.PresentationHook) error {
	if hook == nil {
		return stimerrors.NewConfigError("presentation hook cannot be nil", nil)
	}
	f.hooks = append(f.hooks, hook)
	return nil
}
