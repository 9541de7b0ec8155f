// Package engine runs stimulus sequences: it alternates between preparing
// the next stimulus, waiting for its onset and presenting it, honouring an
// external suspend flag.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/stimkit/stimkit/internal/clock"
	intEvents "github.com/stimkit/stimkit/internal/events"
	"github.com/stimkit/stimkit/internal/logger"
	"github.com/stimkit/stimkit/internal/source"
	"github.com/stimkit/stimkit/internal/timing"
	intTracing "github.com/stimkit/stimkit/internal/tracing"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/events"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config is everything a Painter needs. Source, Schedule, Wait and Renderer
// are required; the rest have defaults.
type Config struct {
	Name     string
	Source   *source.Source
	Schedule timing.Schedule
	Wait     timing.WaitStrategy
	Renderer v1.Renderer

	// Flag is optional. When it implements v1.ActiveFlag, an inactive flag
	// ends the run at the next preparation step.
	Flag        v1.SuspendFlag
	Counter     v1.FrameCounter
	Suspendable bool
	PrintFrames bool
	Anchor      v1.FrameAnchor
	PreStimulus func()
	Hooks       []v1.PresentationHook

	Clock   clock.Clock
	Log     stimlog.Logger
	Bus     events.Bus
	Tracer  trace.Tracer
	Metrics *Metrics
}

// Painter presents one sequence of stimuli. A Painter has a single owner:
// Run must not be called concurrently, and a concurrent call fails with
// ErrRunInProgress. Sequential runs are allowed.
type Painter struct {
	cfg     Config
	log     stimlog.Logger
	running atomic.Bool
	state   atomic.Int32
}

// NewPainter validates cfg and fills in defaults.
func NewPainter(cfg Config) (*Painter, error) {
	if err := cfg.Source.Validate(); err != nil {
		return nil, err
	}
	if cfg.Renderer == nil {
		return nil, stimerrors.NewConfigError("renderer cannot be nil", nil)
	}
	if cfg.Wait == nil {
		return nil, stimerrors.NewConfigError("wait strategy cannot be nil", nil)
	}
	if cfg.Schedule.Len() == 0 {
		return nil, stimerrors.NewConfigError("stimulus schedule cannot be empty", nil)
	}
	if cfg.Schedule.Unit() != cfg.Wait.Unit() {
		return nil, stimerrors.NewConfigError(
			fmt.Sprintf("schedule is in %s but the wait strategy counts %s", cfg.Schedule.Unit(), cfg.Wait.Unit()), nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewDiscardLogger()
	}
	if cfg.Bus == nil {
		cfg.Bus = intEvents.NewNoOpEventBus()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer(intTracing.TracerName)
	}

	log := cfg.Log.With("component", "StimulusPainter")
	if cfg.Name != "" {
		log = log.With("sequence", cfg.Name)
	}
	return &Painter{cfg: cfg, log: log}, nil
}

func (p *Painter) Name() string { return p.cfg.Name }

// Schedule returns the cyclic interval schedule.
func (p *Painter) Schedule() timing.Schedule { return p.cfg.Schedule }

// Strategy returns the wait strategy.
func (p *Painter) Strategy() timing.WaitStrategy { return p.cfg.Wait }

func (p *Painter) Suspendable() bool { return p.cfg.Suspendable }

// State reports where the current run is. It is safe to call from any
// goroutine.
func (p *Painter) State() State { return State(p.state.Load()) }

func (p *Painter) setState(s State) { p.state.Store(int32(s)) }

// Run presents the sequence and returns once the source is exhausted or the
// flag becomes inactive. Timing problems never fail a run; only a renderer
// error does, in which case the partial report is returned together with a
// PresentationError. Cancelling ctx cuts the current sleep short; the run
// carries on as if it had completed.
func (p *Painter) Run(ctx context.Context) (*v1.RunReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, stimerrors.ErrRunInProgress
	}
	defer p.running.Store(false)
	defer p.setState(StateIdle)

	ctx, span := p.cfg.Tracer.Start(ctx, "stimkit.sequence", trace.WithAttributes(
		intTracing.AttrSequence.String(p.cfg.Name),
		intTracing.AttrIntervalUnit.String(p.cfg.Schedule.Unit().String()),
		intTracing.AttrSuspendable.Bool(p.cfg.Suspendable),
	))
	defer span.End()
	if tw, ok := p.cfg.Wait.(*timing.TimeWait); ok {
		span.SetAttributes(intTracing.AttrFixedCadence.Bool(tw.Fixed()))
	}

	r := &run{
		p:    p,
		ctx:  ctx,
		span: span,
		rs:   timing.NewRunState(),
		report: &v1.RunReport{
			Sequence:  p.cfg.Name,
			StartTime: p.cfg.Clock.Now(),
			Waits:     []v1.WaitRecord{},
		},
	}
	if p.cfg.Counter != nil {
		r.frameBase = p.cfg.Counter.Frame()
	}

	p.log.LogCtx(ctx, slog.LevelDebug, "Sequence started", "intervals", p.cfg.Schedule.Len())
	p.emit(events.SequenceStart, -1, nil)

	err := r.loop()
	r.finish(err)
	return r.report, err
}

func (p *Painter) emit(typ events.EventType, index int, payload map[string]interface{}) {
	p.cfg.Bus.Emit(events.Event{
		Type:      typ,
		Timestamp: p.cfg.Clock.Now(),
		Sequence:  p.cfg.Name,
		Index:     index,
		Payload:   payload,
	})
}

// run is the state of one Run call.
type run struct {
	p      *Painter
	ctx    context.Context
	span   trace.Span
	rs     *timing.RunState
	report *v1.RunReport

	firstOnset time.Time
	intended   time.Duration
	frameBase  int
	stopped    bool
}

func (r *run) loop() error {
	state := StatePreparing
	for state != StateDone {
		r.p.setState(state)
		switch state {
		case StatePreparing:
			state = r.prepare()
		case StateWaiting:
			r.wait(false)
			state = StatePresenting
		case StatePresenting:
			if err := r.present(); err != nil {
				return err
			}
			state = StatePreparing
		case StateDraining:
			r.wait(true)
			state = StateDone
		}
	}
	r.p.setState(StateDone)
	return nil
}

// flagActive reports whether an attached flag still allows the session to
// continue. Flags without an Active method are always active.
func (r *run) flagActive() bool {
	af, ok := r.p.cfg.Flag.(v1.ActiveFlag)
	return !ok || af.Active()
}

func (r *run) prepare() State {
	p := r.p
	if p.cfg.Flag != nil {
		if !r.flagActive() {
			p.log.Debugf("Suspend flag is no longer active, ending sequence")
			r.stopped = true
			return StateDone
		}
		if p.cfg.Suspendable && p.cfg.Flag.Suspended() {
			r.suspend()
			if !r.flagActive() {
				r.stopped = true
				return StateDone
			}
		}
	}

	if !p.cfg.Source.Advance() {
		if r.report.Presentations > 0 && p.cfg.Flag != nil && r.flagActive() {
			return StateDraining
		}
		return StateDone
	}
	if r.report.Presentations == 0 {
		return StatePresenting
	}
	return StateWaiting
}

func (r *run) suspend() {
	p := r.p
	start := p.cfg.Clock.Now()
	p.log.Debugf("Sequence suspended")
	p.cfg.Flag.Wait()
	d := p.cfg.Clock.Now().Sub(start)

	// before the first onset there is no running interval to lengthen
	if r.rs.Started() {
		r.rs.AddSuspended(d)
	}
	r.report.SuspendedTotal += d
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.suspended.Add(d.Seconds())
	}
	p.log.Debugf("Sequence resumed after %v", d)
	p.emit(events.SuspensionEnded, r.report.Presentations, map[string]interface{}{"duration": d})
}

func (r *run) wait(drain bool) {
	p := r.p
	iv := r.rs.NextInterval(p.cfg.Schedule)
	res := p.cfg.Wait.Wait(r.ctx, r.rs, iv)
	r.intended += res.Scheduled

	if p.cfg.PrintFrames && p.cfg.Counter != nil {
		p.log.Debugf("Frames after waiting: %d", p.cfg.Counter.LastInterval())
	}

	rec := v1.WaitRecord{
		Index:       len(r.report.Waits),
		Interval:    iv.Duration,
		Frames:      iv.Frames,
		Scheduled:   res.Scheduled,
		Elapsed:     res.Elapsed,
		Overshoot:   res.Overshoot,
		Late:        res.Late,
		Interrupted: res.Interrupted,
	}
	r.report.Waits = append(r.report.Waits, rec)
	r.report.ScheduledTotal += res.Scheduled
	if drain {
		r.report.Drained = true
	}

	m := p.cfg.Metrics
	if m != nil {
		m.overshoot.Observe(res.Overshoot.Seconds())
	}
	if res.Late {
		r.report.LateWakeups++
		if m != nil {
			m.late.Inc()
		}
		p.emit(events.LateWakeup, r.report.Presentations, map[string]interface{}{"overshoot": res.Overshoot})
	}
	if res.Interrupted {
		r.report.Interruptions++
		if m != nil {
			m.interruptions.Inc()
		}
		p.emit(events.TimingInterrupted, r.report.Presentations, nil)
	}
	p.emit(events.WaitCompleted, r.report.Presentations, map[string]interface{}{
		"scheduled": res.Scheduled,
		"elapsed":   res.Elapsed,
		"drain":     drain,
	})
}

func (r *run) present() error {
	p := r.p
	index := r.report.Presentations
	now := p.cfg.Clock.Now()
	first := r.rs.MarkFirstPresentation(now)
	if first {
		r.firstOnset = now
	}

	if c := p.cfg.Counter; c != nil {
		if p.cfg.PrintFrames {
			before := c.LastInterval()
			if first {
				before = c.Frame() - r.frameBase
			}
			p.log.Debugf("Frames before stimulus change: %d", before)
		}
		if first || p.cfg.Anchor == v1.AnchorPerStimulus {
			c.Lock()
		}
	}
	if p.cfg.PreStimulus != nil {
		p.cfg.PreStimulus()
	}

	pres := v1.Presentation{
		Sequence:  p.cfg.Name,
		Index:     index,
		Intended:  r.intended,
		Actual:    now.Sub(r.firstOnset),
		Timestamp: now,
	}
	if l, ok := p.cfg.Renderer.(v1.Labeler); ok {
		pres.Label = l.Label()
	}

	for _, h := range p.cfg.Hooks {
		h.BeforePresent(pres)
	}
	err := p.cfg.Renderer.Present()
	for _, h := range p.cfg.Hooks {
		h.AfterPresent(pres, err)
	}
	if err != nil {
		perr := stimerrors.NewPresentationError(p.cfg.Name, index, err)
		p.emit(events.PresentationFailed, index, map[string]interface{}{"error": err.Error()})
		return perr
	}

	r.report.Presentations++
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.presentations.WithLabelValues(p.cfg.Name).Inc()
	}
	r.span.AddEvent("stimulus.presented", trace.WithAttributes(
		intTracing.AttrStimulusIndex.Int(index),
		intTracing.AttrIntended.Float64(msec(pres.Intended)),
		intTracing.AttrActual.Float64(msec(pres.Actual)),
	))
	p.emit(events.StimulusPresented, index, map[string]interface{}{
		"label":    pres.Label,
		"intended": pres.Intended,
		"actual":   pres.Actual,
	})
	return nil
}

func (r *run) finish(err error) {
	p := r.p
	rep := r.report
	rep.EndTime = p.cfg.Clock.Now()
	rep.Duration = rep.EndTime.Sub(rep.StartTime)
	if c := p.cfg.Counter; c != nil {
		rep.FramesRendered = c.Frame() - r.frameBase
		if p.cfg.PrintFrames {
			p.log.Debugf("Frames rendered during last sequence: %d", rep.FramesRendered)
		}
	}

	switch {
	case err != nil:
		rep.Status = StatusFailed
		rep.Error = err.Error()
		intTracing.RecordError(r.span, err)
		p.log.Errorf("Sequence aborted: %v", err)
	case r.stopped:
		rep.Status = StatusStopped
	default:
		rep.Status = StatusCompleted
	}

	if m := p.cfg.Metrics; m != nil {
		m.runs.WithLabelValues(rep.Status).Inc()
		m.runDuration.Observe(rep.Duration.Seconds())
	}
	r.span.SetAttributes(
		intTracing.AttrPresentations.Int(rep.Presentations),
		attribute.String("stimkit.status", rep.Status),
	)
	p.log.LogCtx(r.ctx, slog.LevelDebug, "Sequence finished",
		"status", rep.Status,
		"presentations", rep.Presentations,
		"duration", rep.Duration,
		"late_wakeups", rep.LateWakeups,
		"interruptions", rep.Interruptions,
	)
	p.emit(events.SequenceEnd, -1, map[string]interface{}{
		"status":        rep.Status,
		"presentations": rep.Presentations,
	})
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
