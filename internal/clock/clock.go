// Package clock provides the shared time base of the alarm and a cancellable
// tick loop built on it.
package clock

import (
	"context"
	"time"
)

// Clock produces the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// System reads the local wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts a plain function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// Tick calls fn with the clock's time every interval until ctx is done.
// fn is also called once immediately.
func Tick(ctx context.Context, c Clock, interval time.Duration, fn func(now time.Time)) {
	fn(c.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(c.Now())
		}
	}
}
