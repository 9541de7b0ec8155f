package events

import (
	"sync"
	"sync/atomic"

	"github.com/stimkit/stimkit/pkg/stimkit/v1/events"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
)

const defaultBufferSize = 256

// ChannelEventBus delivers painter events to in-process listeners through a
// buffered channel. Emit never blocks: when the buffer is full the event is
// dropped and a warning is logged, so a slow listener cannot delay a
// stimulus onset.
type ChannelEventBus struct {
	channel chan events.Event
	log     stimlog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewChannelEventBus creates a bus with the given buffer size (256 when
// non-positive). It panics on a nil logger.
func NewChannelEventBus(bufferSize int, log stimlog.Logger) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}
	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

func (c *ChannelEventBus) Emit(event events.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.channel <- event:
	default:
		c.dropped.Add(1)
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *ChannelEventBus) Dropped() int {
	return int(c.dropped.Load())
}

// GetChannel returns the channel listeners consume from.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Close stops delivery and closes the channel. Later Emit calls are ignored.
func (c *ChannelEventBus) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.channel)
	c.log.Debugf("ChannelEventBus closed (%d events dropped)", c.dropped.Load())
}

var _ events.Bus = (*ChannelEventBus)(nil)
