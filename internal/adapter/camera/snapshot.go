// Package camera provides camera sources for the ingestion loop.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/smile-alarm/internal/domain/vision"
	camerasvc "github.com/oshokin/smile-alarm/internal/service/camera"
)

// ErrNotConfigured is returned by Unavailable.
var ErrNotConfigured = errors.New("no camera configured")

// Snapshot reads frames that an external capture tool keeps overwriting at a
// fixed path. A new frame is detected by a change of the file's modification
// time or size.
type Snapshot struct {
	path string
}

// NewSnapshot creates a source for the image file at path.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: filepath.Clean(path)}
}

// Open succeeds once the snapshot file exists.
func (s *Snapshot) Open(_ context.Context) (camerasvc.Stream, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("open snapshot: %s is a directory", s.path)
	}

	return &snapshotStream{path: s.path}, nil
}

type snapshotStream struct {
	path string

	mu      sync.Mutex
	seq     uint64
	modTime time.Time
	size    int64
	frame   vision.Frame
	closed  bool
}

// Latest returns the current snapshot, with a new sequence number only when
// the file changed since the previous call.
func (s *snapshotStream) Latest(_ context.Context) (vision.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vision.Frame{}, os.ErrClosed
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if s.seq == 0 {
			return vision.Frame{}, vision.ErrNoFrame
		}

		return vision.Frame{}, fmt.Errorf("stat snapshot: %w", err)
	}

	if s.seq > 0 && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.frame, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return vision.Frame{}, fmt.Errorf("read snapshot: %w", err)
	}

	if len(data) == 0 {
		// The capture tool is in the middle of rewriting the file.
		return vision.Frame{}, vision.ErrNoFrame
	}

	s.seq++
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.frame = vision.Frame{
		Seq:        s.seq,
		Data:       data,
		CapturedAt: info.ModTime(),
	}

	return s.frame, nil
}

func (s *snapshotStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Unavailable is the source used when no camera is configured. The alarm
// still rings and can be stopped manually.
type Unavailable struct{}

// Open always fails.
func (Unavailable) Open(context.Context) (camerasvc.Stream, error) {
	return nil, ErrNotConfigured
}
