// Package renderer holds the registry of named renderers. Renderer packages
// register themselves from init so that protocols can refer to them.
package renderer

import (
	"fmt"
	"sort"
	"sync"

	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"github.com/stimkit/stimkit/pkg/stimkit/v1/plugin"
)

// StaticRegistry implements plugin.Registry with a map filled at startup.
type StaticRegistry struct {
	factories map[string]plugin.RendererFactory
	mu        sync.RWMutex
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{factories: make(map[string]plugin.RendererFactory)}
}

// Register associates a renderer name with its factory.
func (r *StaticRegistry) Register(name string, factory plugin.RendererFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return stimerrors.NewConfigError("renderer registration error: name cannot be empty", nil)
	}
	if factory == nil {
		return stimerrors.NewConfigError(fmt.Sprintf("renderer registration error for '%s': factory cannot be nil", name), nil)
	}
	if _, exists := r.factories[name]; exists {
		return stimerrors.NewConfigError(fmt.Sprintf("renderer registration error: duplicate renderer name '%s'", name), nil)
	}
	r.factories[name] = factory
	return nil
}

// Get retrieves the factory registered under name.
func (r *StaticRegistry) Get(name string) (plugin.RendererFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, stimerrors.NewRendererNotFoundError(name)
	}
	return factory, nil
}

// List returns the registered names, sorted.
func (r *StaticRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	globalRegistry = NewStaticRegistry()

	_ plugin.Registry = (*StaticRegistry)(nil)
)

// Register adds a renderer to the default registry. It panics on error
// because it is meant to be called from init, where a failure is a
// programming mistake.
func Register(name string, factory plugin.RendererFactory) {
	if err := globalRegistry.Register(name, factory); err != nil {
		panic(fmt.Errorf("failed to register renderer '%s' globally: %w", name, err))
	}
}

// Default returns the registry that renderer packages register with.
func Default() plugin.Registry { return globalRegistry }
