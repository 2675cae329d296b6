package alarm

import "time"

const (
	// MaxAlarms is the maximum number of alarms that may exist at once.
	MaxAlarms = 3

	// DueWindow is how long after its instant an alarm occurrence may still fire.
	DueWindow = time.Minute
)

// Alarm is a single wake-up time owned by the alarm store.
type Alarm struct {
	// ID is the opaque identity token of the alarm.
	ID string
	// Time is the wall-clock time of day the alarm rings at.
	Time TimeOfDay
	// Active reports whether the alarm is armed.
	Active bool
	// Next is the concrete instant of the next occurrence. It is derived from
	// Time and never persisted.
	Next time.Time
}

// IsDue reports whether now falls inside [Next, Next+DueWindow).
func (a *Alarm) IsDue(now time.Time) bool {
	return !now.Before(a.Next) && now.Before(a.Next.Add(DueWindow))
}

// IsMissed reports whether the due window of the current occurrence has already closed.
func (a *Alarm) IsMissed(now time.Time) bool {
	return !now.Before(a.Next.Add(DueWindow))
}

// Clone returns a copy of the alarm.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Record is the persisted form of an alarm.
type Record struct {
	ID      string `json:"id"`
	TimeStr string `json:"time_str"`
	Active  bool   `json:"active"`
}

// ToRecord converts the alarm into its persisted form.
func (a *Alarm) ToRecord() Record {
	return Record{
		ID:      a.ID,
		TimeStr: a.Time.String(),
		Active:  a.Active,
	}
}

// FromRecord rebuilds an alarm from its persisted form, arming Next relative to now.
func FromRecord(r Record, now time.Time) (*Alarm, error) {
	tod, err := ParseTimeOfDay(r.TimeStr)
	if err != nil {
		return nil, err
	}

	return &Alarm{
		ID:     r.ID,
		Time:   tod,
		Active: r.Active,
		Next:   tod.Pending(now),
	}, nil
}
