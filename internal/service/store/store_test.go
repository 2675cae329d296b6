package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smile-alarm/internal/clock"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/observe/observetest"
	repo "github.com/oshokin/smile-alarm/internal/repository/alarms"
)

var errDiskFull = errors.New("disk full")

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	mu sync.Mutex
	// records is returned from Load.
	records []domain.Record
	// loadErr is returned from Load.
	loadErr error
	// saveErr is returned from Save.
	saveErr error
	// saves counts Save calls.
	saves int
}

func (m *memoryRepository) Load(context.Context) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.Record(nil), m.records...), m.loadErr
}

func (m *memoryRepository) Save(_ context.Context, records []domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}

	m.records = append([]domain.Record(nil), records...)

	return nil
}

func (m *memoryRepository) snapshot() []domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.Record(nil), m.records...)
}

func sequentialIDs() func() string {
	var n int

	return func() string {
		n++
		return fmt.Sprintf("alarm-%d", n)
	}
}

func newStore(t *testing.T, r repo.Repository, c clock.Clock) *Store {
	t.Helper()

	s, err := New(context.Background(), r,
		WithClock(c),
		WithIDGenerator(sequentialIDs()),
		WithMetrics(observetest.New(t).Metrics),
	)
	require.NoError(t, err)

	return s
}

var morning = time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

// TestNew_LoadsOrDefaults covers existing, missing and failing persistence.
func TestNew_LoadsOrDefaults(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(morning)

	s := newStore(t, &memoryRepository{records: []domain.Record{
		{ID: "x", TimeStr: "07:00", Active: true},
		{ID: "bad", TimeStr: "99:99", Active: true},
		{ID: "y", TimeStr: "05:00", Active: false},
	}}, c)

	list := s.List()
	require.Len(t, list, 2)
	require.Equal(t, "x", list[0].ID)
	require.Equal(t, time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC), list[0].Next)
	require.Equal(t, time.Date(2026, 3, 11, 5, 0, 0, 0, time.UTC), list[1].Next)

	s = newStore(t, &memoryRepository{loadErr: repo.ErrNotFound}, c)
	require.Empty(t, s.List())

	_, err := New(context.Background(), &memoryRepository{loadErr: errDiskFull}, WithClock(c))
	require.ErrorIs(t, err, domain.ErrPersistenceFailed)
	require.ErrorIs(t, err, errDiskFull)
}

// TestAdd_CapacityExceeded verifies the cap and that rejected adds change nothing.
func TestAdd_CapacityExceeded(t *testing.T) {
	t.Parallel()

	r := new(memoryRepository)
	s := newStore(t, r, clock.NewManual(morning))
	ctx := context.Background()

	for i := range domain.MaxAlarms {
		a, err := s.Add(ctx, domain.TimeOfDay{Hour: 7, Minute: i})
		require.NoError(t, err)
		require.True(t, a.Active)
	}

	before := s.List()
	savesBefore := r.saves

	_, err := s.Add(ctx, domain.TimeOfDay{Hour: 8})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	require.Equal(t, before, s.List())
	require.Equal(t, savesBefore, r.saves)

	// Toggling never changes the count.
	for i := range 10 {
		_, err = s.ToggleActive(ctx, before[i%len(before)].ID, i%2 == 0)
		require.NoError(t, err)
		require.Len(t, s.List(), domain.MaxAlarms)
	}

	_, err = s.Add(ctx, domain.TimeOfDay{Hour: 9})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	require.NoError(t, s.Remove(ctx, before[1].ID))

	_, err = s.Add(ctx, domain.TimeOfDay{Hour: 9})
	require.NoError(t, err)
}

// TestAdd_RollsPastTimeToTomorrow checks the first occurrence of a new alarm.
func TestAdd_RollsPastTimeToTomorrow(t *testing.T) {
	t.Parallel()

	s := newStore(t, new(memoryRepository), clock.NewManual(morning))

	a, err := s.Add(context.Background(), domain.TimeOfDay{Hour: 5, Minute: 30})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 11, 5, 30, 0, 0, time.UTC), a.Next)

	_, err = s.Add(context.Background(), domain.TimeOfDay{Hour: 25})
	require.ErrorIs(t, err, domain.ErrInvalidTime)
}

// TestToggleActive_RollsStaleOccurrence verifies re-arming a passed alarm moves it to tomorrow.
func TestToggleActive_RollsStaleOccurrence(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(morning)
	s := newStore(t, new(memoryRepository), c)
	ctx := context.Background()

	a, err := s.Add(ctx, domain.TimeOfDay{Hour: 7})
	require.NoError(t, err)

	_, err = s.ToggleActive(ctx, a.ID, false)
	require.NoError(t, err)

	c.Set(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	toggled, err := s.ToggleActive(ctx, a.ID, true)
	require.NoError(t, err)
	require.True(t, toggled.Active)
	require.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), toggled.Next)

	_, err = s.ToggleActive(ctx, "missing", true)
	require.ErrorIs(t, err, domain.ErrAlarmNotFound)
}

// TestPersistenceFailure_KeepsInMemoryEffect checks that a failed save still applies the toggle.
func TestPersistenceFailure_KeepsInMemoryEffect(t *testing.T) {
	t.Parallel()

	r := new(memoryRepository)
	rec := observetest.New(t)

	s, err := New(context.Background(), r,
		WithClock(clock.NewManual(morning)),
		WithMetrics(rec.Metrics),
	)
	require.NoError(t, err)

	a, err := s.Add(context.Background(), domain.TimeOfDay{Hour: 7})
	require.NoError(t, err)

	r.mu.Lock()
	r.saveErr = errDiskFull
	r.mu.Unlock()

	_, err = s.ToggleActive(context.Background(), a.ID, false)
	require.ErrorIs(t, err, domain.ErrPersistenceFailed)
	require.ErrorIs(t, err, errDiskFull)

	got, ok := s.Get(a.ID)
	require.True(t, ok)
	require.False(t, got.Active)
	require.EqualValues(t, 1, rec.Count(t, "smile_alarm.persistence.failures"))
}

// TestDeactivate_RollsForward verifies the post-ring re-arm and persistence.
func TestDeactivate_RollsForward(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(morning)
	r := new(memoryRepository)
	s := newStore(t, r, c)
	ctx := context.Background()

	a, err := s.Add(ctx, domain.TimeOfDay{Hour: 7})
	require.NoError(t, err)

	c.Set(time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC))
	require.NoError(t, s.Deactivate(ctx, a.ID))

	got, ok := s.Get(a.ID)
	require.True(t, ok)
	require.False(t, got.Active)
	require.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), got.Next)
	require.Equal(t, []domain.Record{{ID: a.ID, TimeStr: "07:00", Active: false}}, r.snapshot())

	require.ErrorIs(t, s.Deactivate(ctx, "nope"), domain.ErrAlarmNotFound)
}

// TestAdvance_OnlyRollsMissedOccurrences checks in-memory roll of missed windows.
func TestAdvance_OnlyRollsMissedOccurrences(t *testing.T) {
	t.Parallel()

	s := newStore(t, new(memoryRepository), clock.NewManual(morning))
	ctx := context.Background()

	a, err := s.Add(ctx, domain.TimeOfDay{Hour: 7})
	require.NoError(t, err)

	s.Advance(ctx, a.ID, time.Date(2026, 3, 10, 7, 0, 30, 0, time.UTC))

	got, _ := s.Get(a.ID)
	require.Equal(t, a.Next, got.Next)

	s.Advance(ctx, a.ID, time.Date(2026, 3, 10, 7, 5, 0, 0, time.UTC))

	got, _ = s.Get(a.ID)
	require.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), got.Next)
	require.True(t, got.Active)
}

// TestNextActive picks the earliest armed occurrence.
func TestNextActive(t *testing.T) {
	t.Parallel()

	s := newStore(t, new(memoryRepository), clock.NewManual(morning))
	ctx := context.Background()

	_, ok := s.NextActive()
	require.False(t, ok)

	late, err := s.Add(ctx, domain.TimeOfDay{Hour: 9})
	require.NoError(t, err)

	early, err := s.Add(ctx, domain.TimeOfDay{Hour: 6, Minute: 30})
	require.NoError(t, err)

	next, ok := s.NextActive()
	require.True(t, ok)
	require.Equal(t, early.ID, next.ID)

	_, err = s.ToggleActive(ctx, early.ID, false)
	require.NoError(t, err)

	next, ok = s.NextActive()
	require.True(t, ok)
	require.Equal(t, late.ID, next.ID)
}

// TestReload_RoundTripsRecords ensures a reload reproduces the persisted triples.
func TestReload_RoundTripsRecords(t *testing.T) {
	t.Parallel()

	r := new(memoryRepository)
	c := clock.NewManual(morning)
	s := newStore(t, r, c)
	ctx := context.Background()

	_, err := s.Add(ctx, domain.TimeOfDay{Hour: 7})
	require.NoError(t, err)

	b, err := s.Add(ctx, domain.TimeOfDay{Hour: 22, Minute: 45})
	require.NoError(t, err)

	_, err = s.ToggleActive(ctx, b.ID, false)
	require.NoError(t, err)

	saved := r.snapshot()

	reloaded := newStore(t, r, clock.NewManual(morning.Add(5*time.Hour)))

	records := make([]domain.Record, 0, len(saved))
	for _, a := range reloaded.List() {
		records = append(records, a.ToRecord())
	}

	require.Equal(t, saved, records)
}

// TestReload_KeepsOpenDueWindow ensures a reload inside an alarm's minute keeps it due.
func TestReload_KeepsOpenDueWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	due := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)

	r := new(memoryRepository)
	c := clock.NewManual(due.Add(-time.Minute))
	s := newStore(t, r, c)

	a, err := s.Add(ctx, domain.TimeOfDay{Hour: 7})
	require.NoError(t, err)

	c.Set(due.Add(500 * time.Millisecond))
	require.NoError(t, s.Reload(ctx))

	reloaded, ok := s.Get(a.ID)
	require.True(t, ok)
	require.Equal(t, due, reloaded.Next)
	require.True(t, reloaded.IsDue(c.Now()))

	// A fresh store started inside the window sees the same occurrence.
	fresh := newStore(t, r, c)
	started, ok := fresh.Get(a.ID)
	require.True(t, ok)
	require.True(t, started.IsDue(c.Now()))
}

// TestReload_KeepsOccurrenceOfUnchangedAlarms ensures a reload does not re-arm
// an alarm that was already rolled forward, while edited alarms are re-derived.
func TestReload_KeepsOccurrenceOfUnchangedAlarms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	due := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)

	r := new(memoryRepository)
	c := clock.NewManual(due.Add(-time.Minute))
	s := newStore(t, r, c)

	a, err := s.Add(ctx, domain.TimeOfDay{Hour: 7})
	require.NoError(t, err)

	b, err := s.Add(ctx, domain.TimeOfDay{Hour: 7, Minute: 30})
	require.NoError(t, err)

	c.Set(due.Add(10 * time.Second))
	require.NoError(t, s.Deactivate(ctx, a.ID))

	_, err = s.ToggleActive(ctx, a.ID, true)
	require.NoError(t, err)

	// Another writer moves b to the current minute.
	records := r.snapshot()
	records[1].TimeStr = "07:00"
	r.mu.Lock()
	r.records = records
	r.mu.Unlock()

	require.NoError(t, s.Reload(ctx))

	kept, ok := s.Get(a.ID)
	require.True(t, ok)
	require.Equal(t, due.AddDate(0, 0, 1), kept.Next)

	moved, ok := s.Get(b.ID)
	require.True(t, ok)
	require.Equal(t, due, moved.Next)
}

// TestReload_KeepsUnservedRecordsOnDisk ensures records beyond capacity and
// malformed records survive the next save.
func TestReload_KeepsUnservedRecordsOnDisk(t *testing.T) {
	t.Parallel()

	stored := []domain.Record{
		{ID: "a", TimeStr: "07:00", Active: true},
		{ID: "bad", TimeStr: "25:00", Active: true},
		{ID: "b", TimeStr: "07:10", Active: true},
		{ID: "c", TimeStr: "07:20", Active: true},
		{ID: "d", TimeStr: "07:30", Active: true},
		{ID: "e", TimeStr: "07:40", Active: false},
	}

	r := &memoryRepository{records: stored}
	s := newStore(t, r, clock.NewManual(morning))
	ctx := context.Background()

	list := s.List()
	require.Len(t, list, domain.MaxAlarms)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, "c", list[2].ID)

	_, err := s.Add(ctx, domain.TimeOfDay{Hour: 9})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, err = s.ToggleActive(ctx, "b", false)
	require.NoError(t, err)

	saved := r.snapshot()
	require.Len(t, saved, len(stored))
	require.ElementsMatch(t,
		[]string{"a", "b", "c", "bad", "d", "e"},
		[]string{saved[0].ID, saved[1].ID, saved[2].ID, saved[3].ID, saved[4].ID, saved[5].ID},
	)
	require.False(t, saved[1].Active)
	require.Equal(t, "25:00", saved[3].TimeStr)
}
