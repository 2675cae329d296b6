package preferences

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
)

// TestFileRepository_MissingReturnsDefaults checks the not-found path.
func TestFileRepository_MissingReturnsDefaults(t *testing.T) {
	t.Parallel()

	prefs, err := NewFileRepository(filepath.Join(t.TempDir(), "none.json")).Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, domain.DefaultPreferences(), prefs)
}

// TestFileRepository_Roundtrip saves and reloads preferences.
func TestFileRepository_Roundtrip(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "prefs.json"))
	want := domain.Preferences{
		SoundID:  "melodic",
		Volume:   0.8,
		LastUsed: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC),
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.SoundID, got.SoundID)
	require.InDelta(t, want.Volume, got.Volume, 1e-9)
	require.True(t, want.LastUsed.Equal(got.LastUsed))
}

// TestFileRepository_PartialDocument keeps defaults for absent keys.
func TestFileRepository_PartialDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"current_sound":"gentle"}`), 0o600))

	prefs, err := NewFileRepository(path).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gentle", prefs.SoundID)
	require.InDelta(t, domain.DefaultVolume, prefs.Volume, 0)
}
