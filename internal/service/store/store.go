package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/smile-alarm/internal/clock"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/observe"
	repo "github.com/oshokin/smile-alarm/internal/repository/alarms"
)

// Store is a mutex-guarded ordered collection of alarms.
type Store struct {
	// repo persists the alarm list.
	repo repo.Repository
	// clock is the shared time base.
	clock clock.Clock
	// metrics records persistence failures.
	metrics *observe.Metrics
	// capacity is the maximum number of alarms.
	capacity int
	// newID generates alarm identities.
	newID func() string

	// mu protects alarms.
	mu sync.RWMutex
	// alarms is kept in creation order.
	alarms []*domain.Alarm
	// retained are loaded records that are not served, either malformed or
	// beyond capacity. They are written back unchanged.
	retained []domain.Record
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time base.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetrics overrides the metric instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithCapacity lowers the alarm cap. Values outside (0, MaxAlarms] are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 && n <= domain.MaxAlarms {
			s.capacity = n
		}
	}
}

// WithIDGenerator overrides the alarm id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates a store and loads the persisted alarms.
func New(ctx context.Context, repository repo.Repository, opts ...Option) (*Store, error) {
	s := &Store{
		repo:     repository,
		clock:    clock.System{},
		metrics:  observe.DefaultMetrics(),
		capacity: domain.MaxAlarms,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload replaces the in-memory alarms with the persisted list. Alarms whose
// time of day is unchanged keep their current occurrence, others get the
// occurrence whose due window is still open, so a reload inside an alarm's
// minute does not skip it.
func (s *Store) Reload(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	records, err := s.repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		records = nil
	default:
		return fmt.Errorf("%w: load alarms: %w", domain.ErrPersistenceFailed, err)
	}

	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]*domain.Alarm, len(s.alarms))
	for _, a := range s.alarms {
		previous[a.ID] = a
	}

	loaded := make([]*domain.Alarm, 0, len(records))

	var retained []domain.Record

	for _, record := range records {
		if len(loaded) == s.capacity {
			retained = append(retained, record)
			continue
		}

		a, convErr := domain.FromRecord(record, now)
		if convErr != nil {
			logger.WarnKV(ctx, "Keeping malformed alarm on disk without serving it", "id", record.ID, "error", convErr)
			retained = append(retained, record)

			continue
		}

		if prev, ok := previous[a.ID]; ok && prev.Time == a.Time {
			a.Next = prev.Next
		}

		loaded = append(loaded, a)
	}

	if len(loaded) == s.capacity && len(retained) > 0 {
		logger.WarnKV(ctx, "Keeping alarms beyond capacity on disk without serving them",
			"capacity", s.capacity,
			"stored", len(records),
		)
	}

	s.alarms = loaded
	s.retained = retained

	logger.DebugKV(ctx, "Alarms loaded", "count", len(loaded))

	return nil
}

// Add creates a new active alarm at the given time of day.
func (s *Store) Add(ctx context.Context, at domain.TimeOfDay) (*domain.Alarm, error) {
	if err := at.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.alarms) >= s.capacity {
		return nil, fmt.Errorf("%w: at most %d alarms", domain.ErrCapacityExceeded, s.capacity)
	}

	a := &domain.Alarm{
		ID:     s.newID(),
		Time:   at,
		Active: true,
		Next:   at.NextOccurrence(s.clock.Now()),
	}

	s.alarms = append(s.alarms, a)

	logger.InfoKV(ctx, "Alarm added", "id", a.ID, "time", a.Time.String(), "next", a.Next.Format(time.RFC3339))

	return a.Clone(), s.persistLocked(ctx)
}

// Remove deletes the alarm with the given id.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrAlarmNotFound, id)
	}

	s.alarms = append(s.alarms[:idx], s.alarms[idx+1:]...)

	logger.InfoKV(ctx, "Alarm removed", "id", id)

	return s.persistLocked(ctx)
}

// ToggleActive arms or disarms an alarm. Arming an alarm whose occurrence has
// already passed rolls it to the next day immediately.
func (s *Store) ToggleActive(ctx context.Context, id string, active bool) (*domain.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlarmNotFound, id)
	}

	a := s.alarms[idx]
	a.Active = active

	if now := s.clock.Now(); active && a.Next.Before(now) {
		a.Next = a.Time.NextOccurrence(now)
	}

	logger.InfoKV(ctx, "Alarm toggled", "id", id, "active", active, "next", a.Next.Format(time.RFC3339))

	return a.Clone(), s.persistLocked(ctx)
}

// Deactivate disarms the alarm after a completed ringing session and re-arms
// its next occurrence on a following day.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrAlarmNotFound, id)
	}

	a := s.alarms[idx]
	a.Active = false
	a.Next = a.Time.NextAfter(s.clock.Now())

	logger.InfoKV(ctx, "Alarm deactivated", "id", id)

	return s.persistLocked(ctx)
}

// Advance rolls an alarm whose due window has been missed to its next
// occurrence. Only the derived instant changes, so nothing is persisted.
func (s *Store) Advance(ctx context.Context, id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return
	}

	a := s.alarms[idx]
	if !a.IsMissed(now) {
		return
	}

	missed := a.Next
	a.Next = a.Time.NextAfter(now)

	logger.WarnKV(ctx, "Alarm occurrence missed",
		"id", id,
		"missed", missed.Format(time.RFC3339),
		"next", a.Next.Format(time.RFC3339),
	)
}

// Get returns a copy of the alarm with the given id.
func (s *Store) Get(id string) (*domain.Alarm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, false
	}

	return s.alarms[idx].Clone(), true
}

// List returns copies of all alarms in creation order.
func (s *Store) List() []domain.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		result = append(result, *a)
	}

	return result
}

// NextActive returns the active alarm with the earliest upcoming occurrence.
func (s *Store) NextActive() (*domain.Alarm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *domain.Alarm

	for _, a := range s.alarms {
		if !a.Active {
			continue
		}

		if next == nil || a.Next.Before(next.Next) {
			next = a
		}
	}

	if next == nil {
		return nil, false
	}

	return next.Clone(), true
}

// Capacity returns the maximum number of alarms.
func (s *Store) Capacity() int {
	return s.capacity
}

// indexLocked returns the position of id or -1. Must be called with mu held.
func (s *Store) indexLocked(id string) int {
	for i, a := range s.alarms {
		if a.ID == id {
			return i
		}
	}

	return -1
}

// persistLocked writes the whole list. Must be called with mu held.
func (s *Store) persistLocked(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	records := make([]domain.Record, 0, len(s.alarms)+len(s.retained))
	for _, a := range s.alarms {
		records = append(records, a.ToRecord())
	}

	records = append(records, s.retained...)

	if err := s.repo.Save(ctx, records); err != nil {
		s.metrics.PersistenceFailures.Add(ctx, 1)
		logger.WarnKV(ctx, "Failed to persist alarms", "error", err)

		return fmt.Errorf("%w: save alarms: %w", domain.ErrPersistenceFailed, err)
	}

	return nil
}
