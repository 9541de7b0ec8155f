// Package console provides a renderer that writes each presented stimulus as
// a line of text, for headless runs and protocol rehearsal.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/stimkit/stimkit/internal/clock"
	"github.com/stimkit/stimkit/internal/logger"
	"github.com/stimkit/stimkit/internal/renderer"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/log"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/plugin"
)

func init() {
	renderer.Register("console", New)
}

// Renderer prints "<seconds since first presentation> <label>" for every
// Present.
type Renderer struct {
	mu    sync.Mutex
	out   io.Writer
	log   log.Logger
	clock clock.Clock

	label string
	first time.Time
	count int
}

// New is the factory registered as "console".
func New(env plugin.Env) (plugin.Renderer, error) {
	r := &Renderer{out: env.Out, log: env.Log, clock: env.Clock}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.log == nil {
		r.log = logger.NewDiscardLogger()
	}
	if r.clock == nil {
		r.clock = clock.Real()
	}
	return r, nil
}

func (r *Renderer) Prepare(label string) {
	r.mu.Lock()
	r.label = label
	r.mu.Unlock()
}

func (r *Renderer) Label() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.label
}

func (r *Renderer) Present() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if r.count == 0 {
		r.first = now
	}
	r.count++
	elapsed := now.Sub(r.first)
	if _, err := fmt.Fprintf(r.out, "%9.4f %s\n", elapsed.Seconds(), r.label); err != nil {
		return fmt.Errorf("writing stimulus %q: %w", r.label, err)
	}
	r.log.Debugf("Presented stimulus %q at %v", r.label, elapsed)
	return nil
}
