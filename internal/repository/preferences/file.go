// Package preferences persists the selected alarm sound and volume as a JSON
// document that is overwritten on every change.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/smile-alarm/internal/config"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
)

// Repository defines persistence operations for sound preferences.
type Repository interface {
	Load(ctx context.Context) (domain.Preferences, error)
	Save(ctx context.Context, prefs domain.Preferences) error
}

// FileRepository persists preferences to a JSON file on disk.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// ErrNotFound is returned when the preferences file does not exist yet.
var ErrNotFound = errors.New("preferences not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the preferences from disk. Missing fields keep their defaults.
func (r *FileRepository) Load(_ context.Context) (domain.Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefs := domain.DefaultPreferences()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, ErrNotFound
		}

		return prefs, fmt.Errorf("read preferences file: %w", err)
	}

	if err = json.Unmarshal(contents, &prefs); err != nil {
		return domain.DefaultPreferences(), fmt.Errorf("decode preferences file: %w", err)
	}

	return prefs, nil
}

// Save overwrites the preferences file.
func (r *FileRepository) Save(_ context.Context, prefs domain.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write preferences file: %w", err)
	}

	return nil
}
