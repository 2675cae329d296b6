package alarm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock hour and minute pair.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses the "HH:MM" representation used in the alarms file.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	h, err := strconv.Atoi(hours)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	m, err := strconv.Atoi(minutes)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	tod := TimeOfDay{Hour: h, Minute: m}
	if err = tod.Validate(); err != nil {
		return TimeOfDay{}, err
	}

	return tod, nil
}

// Validate checks the hour and minute ranges.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, t.Hour, t.Minute)
	}

	return nil
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of this time of day on the calendar day of ref, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}

// NextOccurrence returns the first instant at this time of day that is not before now.
// Days are added through time.Date so month ends and DST shifts roll correctly.
func (t TimeOfDay) NextOccurrence(now time.Time) time.Time {
	at := t.On(now)
	if at.Before(now) {
		at = t.On(time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()))
	}

	return at
}

// FollowingDay returns the occurrence one calendar day after the given occurrence.
func (t TimeOfDay) FollowingDay(occurrence time.Time) time.Time {
	return t.On(time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day()+1, 0, 0, 0, 0, occurrence.Location()))
}

// NextAfter returns the first occurrence strictly after now.
func (t TimeOfDay) NextAfter(now time.Time) time.Time {
	at := t.NextOccurrence(now)
	if !at.After(now) {
		at = t.FollowingDay(at)
	}

	return at
}

// Pending returns the occurrence whose due window is still open at now, or
// the next occurrence when there is none.
func (t TimeOfDay) Pending(now time.Time) time.Time {
	return t.NextAfter(now.Add(-DueWindow))
}
