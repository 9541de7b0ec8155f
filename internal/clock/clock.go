// Package clock provides the time source used by the painter: a monotonic
// "now" and a blocking sleep that can report interruption.
//
// Real wraps the standard time package. Fake advances only when slept on,
// which makes timing behaviour deterministic in tests.
package clock

import (
	"context"
	"time"
)

// Clock is the time source consumed by wait strategies.
type Clock interface {
	// Now returns the current time. Implementations must be monotonic.
	Now() time.Time

	// Sleep blocks for d. A non-nil error means the sleep ended early; the
	// caller decides how to recover.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
