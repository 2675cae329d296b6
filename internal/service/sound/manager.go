package sound

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/smile-alarm/internal/clock"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/observe"
	prefsrepo "github.com/oshokin/smile-alarm/internal/repository/preferences"
	"github.com/oshokin/smile-alarm/internal/service/audioloop"
)

// Manager owns the sound preferences.
type Manager struct {
	repo    prefsrepo.Repository
	deck    *audioloop.Deck
	dir     string
	clock   clock.Clock
	metrics *observe.Metrics

	mu    sync.RWMutex
	prefs domain.Preferences
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time base used for last_used.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithMetrics overrides the metric instruments.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) {
		if met != nil {
			m.metrics = met
		}
	}
}

// NewManager loads the persisted preferences. Unreadable or invalid
// preferences fall back to the defaults with a warning, since a wrong sound
// must never keep the alarm from ringing.
func NewManager(ctx context.Context, repo prefsrepo.Repository, deck *audioloop.Deck, dir string, opts ...Option) *Manager {
	m := &Manager{
		repo:    repo,
		deck:    deck,
		dir:     dir,
		clock:   clock.System{},
		metrics: observe.DefaultMetrics(),
		prefs:   domain.DefaultPreferences(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.Reload(ctx); err != nil {
		logger.WarnKV(ctx, "Failed to load sound preferences, using defaults", "error", err)
	}

	return m
}

// Reload re-reads the persisted preferences. On failure the current
// preferences are kept.
func (m *Manager) Reload(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}

	prefs, err := m.repo.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, prefsrepo.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("%w: load preferences: %w", domain.ErrPersistenceFailed, err)
	}

	if _, ok := Lookup(prefs.SoundID); !ok {
		logger.WarnKV(ctx, "Unknown stored sound, using default", "sound", prefs.SoundID)
		prefs.SoundID = domain.DefaultSound
	}

	prefs.Volume = domain.ClampVolume(prefs.Volume)

	m.mu.Lock()
	m.prefs = prefs
	m.mu.Unlock()

	return nil
}

// Preferences returns a copy of the current preferences.
func (m *Manager) Preferences() domain.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.prefs
}

// Select makes id the alarm sound.
func (m *Manager) Select(ctx context.Context, id string) error {
	if _, ok := Lookup(id); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownSound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs.SoundID = id

	logger.InfoKV(ctx, "Alarm sound selected", "sound", id)

	return m.persistLocked(ctx)
}

// SetVolume stores the playback volume clamped to [0, 1] and returns it.
func (m *Manager) SetVolume(ctx context.Context, volume float64) (float64, error) {
	volume = domain.ClampVolume(volume)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs.Volume = volume

	logger.InfoKV(ctx, "Alarm volume set", "volume", volume)

	return volume, m.persistLocked(ctx)
}

// Path resolves the WAV file of a sound, falling back to the default sound
// when the id is unknown or its file is missing.
func (m *Manager) Path(id string) string {
	if _, ok := Lookup(id); ok {
		p := m.file(id)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return m.file(domain.DefaultSound)
}

// Track returns the selected sound at the selected volume.
func (m *Manager) Track() audioloop.Track {
	prefs := m.Preferences()

	return audioloop.Track{
		Path:   m.Path(prefs.SoundID),
		Volume: prefs.Volume,
	}
}

// Test previews a sound at the selected volume. A ringing session regains the
// device on its next cadence tick.
func (m *Manager) Test(ctx context.Context, id string) error {
	if _, ok := Lookup(id); !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownSound, id)
	}

	if m.deck == nil {
		return fmt.Errorf("%w: no audio device", domain.ErrCollaboratorUnavailable)
	}

	track := audioloop.Track{
		Path:   m.Path(id),
		Volume: m.Preferences().Volume,
	}

	if err := m.deck.PlayFromStart(ctx, audioloop.OwnerPreview, track); err != nil {
		m.metrics.RecordCollaboratorFailure(ctx, "audio")
		return fmt.Errorf("%w: preview %s: %w", domain.ErrCollaboratorUnavailable, id, err)
	}

	return nil
}

// StopTest pauses a running preview.
func (m *Manager) StopTest(ctx context.Context) error {
	if m.deck == nil {
		return nil
	}

	return m.deck.Release(ctx, audioloop.OwnerPreview)
}

func (m *Manager) file(id string) string {
	return filepath.Join(m.dir, id+".wav")
}

// persistLocked writes the preferences. Must be called with mu held.
func (m *Manager) persistLocked(ctx context.Context) error {
	m.prefs.LastUsed = m.clock.Now()

	if m.repo == nil {
		return nil
	}

	if err := m.repo.Save(ctx, m.prefs); err != nil {
		m.metrics.PersistenceFailures.Add(ctx, 1)
		logger.WarnKV(ctx, "Failed to persist sound preferences", "error", err)

		return fmt.Errorf("%w: save preferences: %w", domain.ErrPersistenceFailed, err)
	}

	return nil
}
