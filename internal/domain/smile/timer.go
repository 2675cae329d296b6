// Package smile implements the debounce that turns a stream of per-frame
// smile verdicts into a single confirmation.
package smile

import "time"

// DefaultDwell is the continuous smiling time required for a confirmation.
const DefaultDwell = 2 * time.Second

// Timer tracks the current positive streak. A single negative observation
// resets it. The zero value is not usable; call NewTimer.
//
// Timer is not safe for concurrent use; the session controller owns it and
// serialises access.
type Timer struct {
	dwell       time.Duration
	streakStart time.Time
	streaking   bool
}

// NewTimer creates a timer requiring dwell of continuous smiling.
func NewTimer(dwell time.Duration) *Timer {
	if dwell <= 0 {
		dwell = DefaultDwell
	}

	return &Timer{dwell: dwell}
}

// Observe records one verdict taken at now and reports whether the streak
// has lasted at least the dwell duration.
func (t *Timer) Observe(isSmiling bool, now time.Time) bool {
	if !isSmiling {
		t.Reset()
		return false
	}

	if !t.streaking {
		t.streakStart = now
		t.streaking = true
	}

	return now.Sub(t.streakStart) >= t.dwell
}

// Elapsed returns how long the current streak has lasted at now.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	if !t.streaking {
		return 0
	}

	return now.Sub(t.streakStart)
}

// Reset forgets the current streak.
func (t *Timer) Reset() {
	t.streakStart = time.Time{}
	t.streaking = false
}

// Dwell returns the configured dwell duration.
func (t *Timer) Dwell() time.Duration {
	return t.dwell
}
