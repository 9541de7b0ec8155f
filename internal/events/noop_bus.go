package events

import "github.com/stimkit/stimkit/pkg/stimkit/v1/events"

// NoOpEventBus discards every event. It is the painter's default bus.
type NoOpEventBus struct{}

func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

func (n *NoOpEventBus) Emit(events.Event) {}

var _ events.Bus = (*NoOpEventBus)(nil)
