package plugin

import (
	"io"

	"github.com/stimkit/stimkit/internal/clock"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/log"
)

// Renderer is a renderer that protocols can select by name. Prepare is
// called by the stimulus source with the label of the next stimulus; Present
// then swaps the display to it.
type Renderer interface {
	v1.Renderer
	v1.Labeler
	Prepare(label string)
}

// Env carries the process-level collaborators a renderer may use.
type Env struct {
	// Out receives any textual output of the renderer.
	Out   io.Writer
	Log   log.Logger
	Clock clock.Clock
}

// RendererFactory creates a new renderer instance. Each sequence gets its
// own instance.
type RendererFactory func(env Env) (Renderer, error)

// Registry maps renderer names to their factories.
type Registry interface {
	// Register associates name with factory. Duplicate or empty names are
	// rejected.
	Register(name string, factory RendererFactory) error
	// Get returns the factory registered under name, or a
	// RendererNotFoundError.
	Get(name string) (RendererFactory, error)
	// List returns the registered names in no particular order.
	List() []string
}
