// Package scheduler detects alarms entering their due window and triggers
// the ringing session exactly once per occurrence.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/smile-alarm/internal/clock"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/logger"
)

// DefaultInterval is the scan cadence.
const DefaultInterval = time.Second

// AlarmStore is the read side of the alarm store plus the missed-window roll.
type AlarmStore interface {
	List() []domain.Alarm
	Advance(ctx context.Context, id string, now time.Time)
}

// Session accepts triggers.
type Session interface {
	IsIdle() bool
	Trigger(ctx context.Context, alarmID string) bool
}

// Scheduler polls the store against the clock.
type Scheduler struct {
	store    AlarmStore
	session  Session
	clock    clock.Clock
	interval time.Duration

	mu sync.Mutex
	// fired maps an alarm id to the occurrence it was last triggered for.
	fired map[string]time.Time
}

// New creates a scheduler.
func New(store AlarmStore, session Session, c clock.Clock, interval time.Duration) *Scheduler {
	if c == nil {
		c = clock.System{}
	}

	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		store:    store,
		session:  session,
		clock:    c,
		interval: interval,
		fired:    make(map[string]time.Time),
	}
}

// Scan returns the first active alarm whose current occurrence is due at now
// and has not been returned before. Active alarms whose window has already
// closed are rolled to their next occurrence and never returned.
func (s *Scheduler) Scan(ctx context.Context, now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alarms := s.store.List()
	s.pruneLocked(alarms, now)

	for _, a := range alarms {
		if !a.Active {
			continue
		}

		if a.IsMissed(now) {
			s.store.Advance(ctx, a.ID, now)
			continue
		}

		if !a.IsDue(now) {
			continue
		}

		if occurrence, ok := s.fired[a.ID]; ok && occurrence.Equal(a.Next) {
			continue
		}

		s.fired[a.ID] = a.Next

		return a.ID, true
	}

	return "", false
}

// Run scans every interval until ctx is done. Scans are skipped while a
// session is active; an alarm that stays due until the session ends still
// fires, one whose window closes meanwhile is missed.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "scheduler")

	logger.DebugKV(ctx, "Scheduler started", "interval", s.interval)

	clock.Tick(ctx, s.clock, s.interval, func(now time.Time) {
		s.tick(ctx, now)
	})

	return nil
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if !s.session.IsIdle() {
		return
	}

	id, ok := s.Scan(ctx, now)
	if !ok {
		return
	}

	logger.InfoKV(ctx, "Alarm due", "alarm_id", id, "now", now.Format(time.TimeOnly))

	if !s.session.Trigger(ctx, id) {
		s.forget(id)
	}
}

// forget lets a trigger that the session rejected be retried.
func (s *Scheduler) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fired, id)
}

// pruneLocked drops cooldowns of deleted alarms and closed windows.
func (s *Scheduler) pruneLocked(alarms []domain.Alarm, now time.Time) {
	present := make(map[string]struct{}, len(alarms))
	for _, a := range alarms {
		present[a.ID] = struct{}{}
	}

	for id, occurrence := range s.fired {
		if _, ok := present[id]; !ok || !now.Before(occurrence.Add(domain.DueWindow)) {
			delete(s.fired, id)
		}
	}
}
