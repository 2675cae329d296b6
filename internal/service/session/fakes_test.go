package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/smile-alarm/internal/domain/vision"
	"github.com/oshokin/smile-alarm/internal/service/audioloop"
)

var (
	errNoWebcam = errors.New("no webcam")
	errDiskFull = errors.New("disk full")
	errModel    = errors.New("landmark model failed")
)

// fakeCamera publishes whatever frame the test pushes.
type fakeCamera struct {
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
	frame    atomic.Pointer[vision.Frame]
}

func (c *fakeCamera) Start(context.Context) error {
	c.starts.Add(1)
	c.frame.Store(nil)

	return c.startErr
}

func (c *fakeCamera) Stop(context.Context) error {
	c.stops.Add(1)
	return nil
}

func (c *fakeCamera) Latest() (vision.Frame, bool) {
	f := c.frame.Load()
	if f == nil {
		return vision.Frame{}, false
	}

	return *f, true
}

func (c *fakeCamera) push(seq uint64) {
	c.frame.Store(&vision.Frame{Seq: seq, Data: []byte{byte(seq)}})
}

// fakeDetector returns the configured verdict for every frame.
type fakeDetector struct {
	smiling atomic.Bool
	failing atomic.Bool
	calls   atomic.Int32
}

func (d *fakeDetector) Detect(_ context.Context, frame vision.Frame) (vision.Detection, error) {
	d.calls.Add(1)

	if d.failing.Load() {
		return vision.Detection{}, errModel
	}

	confidence := 0.1
	if d.smiling.Load() {
		confidence = 0.45
	}

	return vision.Detection{
		IsSmiling:  d.smiling.Load(),
		Confidence: confidence,
		Annotated:  frame,
	}, nil
}

// fakeAudio counts loop starts and stops.
type fakeAudio struct {
	starts atomic.Int32
	stops  atomic.Int32
	track  atomic.Pointer[audioloop.Track]
}

func (a *fakeAudio) Start(_ context.Context, track audioloop.Track) error {
	a.starts.Add(1)
	a.track.Store(&track)

	return nil
}

func (a *fakeAudio) Stop(context.Context) error {
	a.stops.Add(1)
	return nil
}

// fakeStore records deactivations and can block inside Deactivate.
type fakeStore struct {
	mu      sync.Mutex
	ids     []string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (s *fakeStore) Deactivate(_ context.Context, id string) error {
	if s.entered != nil {
		close(s.entered)
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = append(s.ids, id)

	return s.err
}

func (s *fakeStore) deactivated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.ids...)
}

type fixedTracks struct{}

func (fixedTracks) Track() audioloop.Track {
	return audioloop.Track{Path: "assets/sounds/urgent.wav", Volume: 0.5}
}

var testStart = time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)
