// Package null provides a renderer that only counts presentations.
package null

import (
	"sync/atomic"

	"github.com/stimkit/stimkit/internal/renderer"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/plugin"
)

func init() {
	renderer.Register("null", New)
}

type Renderer struct {
	label     atomic.Value
	presented atomic.Int64
}

// New is the factory registered as "null".
func New(plugin.Env) (plugin.Renderer, error) {
	return &Renderer{}, nil
}

func (r *Renderer) Prepare(label string) { r.label.Store(label) }

func (r *Renderer) Label() string {
	s, _ := r.label.Load().(string)
	return s
}

func (r *Renderer) Present() error {
	r.presented.Add(1)
	return nil
}

// Presented returns the number of Present calls so far.
func (r *Renderer) Presented() int { return int(r.presented.Load()) }
