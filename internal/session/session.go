// Package session runs the sequences of a loaded protocol one after the
// other, sharing one suspend flag and one set of presentation hooks.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/stimkit/stimkit/internal/config"
	"github.com/stimkit/stimkit/internal/engine"
	"github.com/stimkit/stimkit/internal/sequence"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/plugin"
)

// Options configures a Runner.
type Options struct {
	Registry plugin.Registry
	// Flag may be nil, in which case sequences cannot be suspended or stopped.
	Flag v1.SuspendFlag
	// Out receives pre-stimulus markers and is handed to renderers.
	Out io.Writer
	// FactoryOptions are applied after the protocol's display options, for
	// the clock, hooks, event bus, metrics and tracing.
	FactoryOptions []v1.FactoryOption
}

// Runner executes a protocol.
type Runner struct {
	protocol *config.Protocol
	opts     Options
	log      stimlog.Logger
	env      plugin.Env

	mu      sync.Mutex
	current *engine.Painter
}

// NewRunner checks that every renderer the protocol names is registered.
func NewRunner(protocol *config.Protocol, log stimlog.Logger, opts Options) (*Runner, error) {
	if protocol == nil {
		return nil, stimerrors.NewConfigError("protocol cannot be nil", nil)
	}
	if log == nil {
		return nil, stimerrors.NewConfigError("logger cannot be nil", nil)
	}
	if opts.Registry == nil {
		return nil, stimerrors.NewConfigError("renderer registry cannot be nil", nil)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if err := CheckRenderers(protocol, opts.Registry); err != nil {
		return nil, err
	}
	return &Runner{
		protocol: protocol,
		opts:     opts,
		log:      log.With("component", "Session"),
		env:      plugin.Env{Out: opts.Out, Log: log.With("component", "Renderer")},
	}, nil
}

// CheckRenderers resolves every renderer name of protocol in registry.
func CheckRenderers(protocol *config.Protocol, registry plugin.Registry) error {
	for i := range protocol.Sequences {
		if _, err := registry.Get(protocol.Sequences[i].RendererName()); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the painter of the running sequence, or nil.
func (r *Runner) Current() *engine.Painter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Runner) setCurrent(p *engine.Painter) {
	r.mu.Lock()
	r.current = p
	r.mu.Unlock()
}

// Run presents every sequence in order. It returns the reports of the
// sequences that ran. A sequence that ends stopped, because the flag went
// inactive, ends the session; a failed one returns its error.
func (r *Runner) Run(ctx context.Context) ([]*v1.RunReport, error) {
	defer r.setCurrent(nil)

	var reports []*v1.RunReport
	for i := range r.protocol.Sequences {
		seq := &r.protocol.Sequences[i]
		name := seq.Name
		if name == "" {
			name = fmt.Sprintf("sequence-%d", i)
		}

		painter, err := r.build(name, seq)
		if err != nil {
			return reports, err
		}
		r.setCurrent(painter)

		r.log.Infof("Starting sequence '%s' (%d stimuli, renderer %s)", name, len(seq.Labels()), seq.RendererName())
		report, err := painter.Run(ctx)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
		if report.Status == engine.StatusStopped {
			r.log.Warnf("Sequence '%s' stopped after %d presentations, ending session", name, report.Presentations)
			return reports, nil
		}
	}
	return reports, nil
}

func (r *Runner) build(name string, seq *config.Sequence) (*engine.Painter, error) {
	newRenderer, err := r.opts.Registry.Get(seq.RendererName())
	if err != nil {
		return nil, err
	}
	rend, err := newRenderer(r.env)
	if err != nil {
		return nil, stimerrors.NewConfigError(fmt.Sprintf("creating renderer '%s' for sequence '%s'", seq.RendererName(), name), err)
	}

	opts := append(r.protocol.Display.FactoryOptions(), r.opts.FactoryOptions...)
	factory, err := sequence.NewFactory(rend, r.opts.Flag, r.log.With("sequence", name), opts...)
	if err != nil {
		return nil, err
	}

	var preStimulus func()
	if marker := seq.PreStimulusMarker; marker != "" {
		out := r.opts.Out
		preStimulus = func() { fmt.Fprintln(out, marker) }
	}
	return factory.Build(sequence.Spec{
		Name:         name,
		Prepare:      v1.PrepareSlice(seq.Labels(), rend.Prepare),
		Times:        seq.Times,
		FixedCadence: seq.FixedCadence(),
		Suspendable:  seq.Suspendable,
		PreStimulus:  preStimulus,
	})
}
