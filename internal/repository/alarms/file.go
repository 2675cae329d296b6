package alarms

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

// Repository defines persistence operations for the alarm list.
type Repository interface {
	Load(ctx context.Context) ([]domain.Record, error)
	Save(ctx context.Context, records []domain.Record) error
}

// FileRepository persists the alarm list to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON file.
	path string
	// mu protects concurrent access to the file.
	mu sync.Mutex
}

// ErrNotFound is returned when the alarms file does not exist yet.
var ErrNotFound = errors.New("alarms not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the alarms file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the alarm records from disk in their stored order.
func (r *FileRepository) Load(_ context.Context) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read alarms file: %w", err)
	}

	var records []domain.Record
	if err = json.Unmarshal(contents, &records); err != nil {
		return nil, fmt.Errorf("decode alarms file: %w", err)
	}

	return records, nil
}

// Save overwrites the alarms file with the provided records.
func (r *FileRepository) Save(_ context.Context, records []domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if records == nil {
		records = []domain.Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode alarms: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write alarms file: %w", err)
	}

	return nil
}
