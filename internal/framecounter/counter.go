// Package framecounter provides FrameCounter implementations for displays
// that report their own refreshes and for headless runs.
package framecounter

import (
	"sync/atomic"
	"time"

	"github.com/stimkit/stimkit/internal/clock"
	"github.com/stimkit/stimkit/internal/timing"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
)

// Counter is driven by the render loop calling Tick once per flip. Tick may
// run on a different goroutine than the painter reading the counter.
type Counter struct {
	frames atomic.Int64
	locked atomic.Int64
}

var _ v1.FrameCounter = (*Counter)(nil)

func New() *Counter { return &Counter{} }

// Tick records one rendered frame.
func (c *Counter) Tick() { c.frames.Add(1) }

func (c *Counter) Lock() { c.locked.Store(c.frames.Load()) }

func (c *Counter) Frame() int { return int(c.frames.Load()) }

func (c *Counter) LastInterval() int {
	return int(c.frames.Load() - c.locked.Load())
}

// Clocked derives frames from elapsed clock time at a fixed refresh rate, as
// a display locked to vsync would report them.
type Clocked struct {
	clock  clock.Clock
	rate   timing.Freq
	start  time.Time
	locked atomic.Int64
}

var _ v1.FrameCounter = (*Clocked)(nil)

// NewClocked starts counting frames from the current time of c.
func NewClocked(c clock.Clock, rate timing.Freq) *Clocked {
	return &Clocked{clock: c, rate: rate, start: c.Now()}
}

func (c *Clocked) Frame() int {
	elapsed := c.clock.Now().Sub(c.start)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed.Seconds()*float64(c.rate) + 1e-9)
}

func (c *Clocked) Lock() { c.locked.Store(int64(c.Frame())) }

func (c *Clocked) LastInterval() int {
	return c.Frame() - int(c.locked.Load())
}
