// Package suspend provides a concurrency-safe pause switch implementing
// v1.ActiveFlag.
package suspend

import (
	"sync"

	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
)

// Flag is owned by whoever controls the session (a signal handler, a
// feedback loop). The painter only reads it.
type Flag struct {
	mu        sync.Mutex
	suspended bool
	stopped   bool
	// resumed is closed whenever the flag leaves the suspended state.
	resumed chan struct{}
}

var _ v1.ActiveFlag = (*Flag)(nil)

// New returns an active, unsuspended flag.
func New() *Flag {
	return &Flag{resumed: make(chan struct{})}
}

// Suspend pauses the session. It has no effect once stopped.
func (f *Flag) Suspend() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped || f.suspended {
		return
	}
	f.suspended = true
	f.resumed = make(chan struct{})
}

// Resume releases anyone blocked in Wait.
func (f *Flag) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release()
}

// Toggle flips between suspended and running and returns the new state.
func (f *Flag) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.stopped:
	case f.suspended:
		f.release()
	default:
		f.suspended = true
		f.resumed = make(chan struct{})
	}
	return f.suspended
}

// Stop marks the session finished and releases any waiter.
func (f *Flag) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.release()
}

func (f *Flag) release() {
	if !f.suspended {
		return
	}
	f.suspended = false
	close(f.resumed)
}

func (f *Flag) Suspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended
}

func (f *Flag) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.stopped
}

// Wait blocks until the flag is not suspended.
func (f *Flag) Wait() {
	f.mu.Lock()
	if !f.suspended {
		f.mu.Unlock()
		return
	}
	ch := f.resumed
	f.mu.Unlock()
	<-ch
}
