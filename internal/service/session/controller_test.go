package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/smile-alarm/internal/clock"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/observe/observetest"
)

type harness struct {
	ctrl     *Controller
	camera   *fakeCamera
	detector *fakeDetector
	audio    *fakeAudio
	store    *fakeStore
	clock    *clock.Manual
	rec      *observetest.Recorder
}

func newHarness(t *testing.T, store *fakeStore, camera *fakeCamera) *harness {
	t.Helper()

	if store == nil {
		store = new(fakeStore)
	}

	if camera == nil {
		camera = new(fakeCamera)
	}

	h := &harness{
		camera:   camera,
		detector: new(fakeDetector),
		audio:    new(fakeAudio),
		store:    store,
		clock:    clock.NewManual(testStart),
		rec:      observetest.New(t),
	}

	h.ctrl = NewController(Deps{
		Store:    h.store,
		Camera:   h.camera,
		Audio:    h.audio,
		Tracks:   fixedTracks{},
		Detector: h.detector,
		Clock:    h.clock,
		Metrics:  h.rec.Metrics,
	}, Options{
		ConfirmInterval: time.Millisecond,
		DetectTimeout:   time.Second,
	})

	return h
}

// feed publishes frame seq at the given offset from the start and waits until
// the controller has evaluated it or the session has ended.
func (h *harness) feed(t *testing.T, seq uint64, offset time.Duration, smiling bool) {
	t.Helper()

	h.clock.Set(testStart.Add(offset))
	h.detector.smiling.Store(smiling)
	h.camera.push(seq)

	require.Eventually(t, func() bool {
		s := h.ctrl.Status()
		return s.LastFrameSeq == seq || s.State == domain.StateIdle
	}, time.Second, time.Millisecond)
}

func TestController_TriggerStartsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()

	require.True(t, h.ctrl.IsIdle())
	require.True(t, h.ctrl.Trigger(ctx, "a1"))

	s := h.ctrl.Status()
	require.Equal(t, domain.StateRinging, s.State)
	require.Equal(t, "a1", s.ActiveAlarmID)
	require.EqualValues(t, 1, h.audio.starts.Load())
	require.EqualValues(t, 1, h.camera.starts.Load())
	require.Equal(t, "assets/sounds/urgent.wav", h.audio.track.Load().Path)

	require.False(t, h.ctrl.Trigger(ctx, "a2"), "only one ringing session")
	require.Equal(t, "a1", h.ctrl.Status().ActiveAlarmID)
	require.EqualValues(t, 1, h.rec.Count(t, "smile_alarm.triggers.dropped"))

	require.NoError(t, h.ctrl.ForceStop(ctx, "a1"))
}

func TestController_SmileConfirmationStops(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	require.True(t, h.ctrl.Trigger(context.Background(), "a1"))

	h.feed(t, 1, 0, true)
	h.feed(t, 2, time.Second, true)

	s := h.ctrl.Status()
	require.Equal(t, domain.StateRinging, s.State)
	require.True(t, s.Smiling)
	require.InDelta(t, 1.0, s.Progress, 1e-9)

	h.feed(t, 3, 2*time.Second, true)

	require.Eventually(t, h.ctrl.IsIdle, time.Second, time.Millisecond)
	require.Equal(t, []string{"a1"}, h.store.deactivated())
	require.EqualValues(t, 1, h.audio.stops.Load())
	require.EqualValues(t, 1, h.camera.stops.Load())
	require.EqualValues(t, 1, h.rec.Count(t, "smile_alarm.session.stops", "reason", "smile"))
	require.Empty(t, h.ctrl.Status().ActiveAlarmID)
	require.Equal(t, domain.StopSmile, h.ctrl.Status().LastStop)

	require.True(t, h.ctrl.Trigger(context.Background(), "a1"))
	require.Empty(t, h.ctrl.Status().LastStop)
}

func TestController_FrownResetsStreak(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	require.True(t, h.ctrl.Trigger(context.Background(), "a1"))

	h.feed(t, 1, 0, true)
	h.feed(t, 2, 1500*time.Millisecond, false)
	h.feed(t, 3, 1600*time.Millisecond, true)
	h.feed(t, 4, 2500*time.Millisecond, true)
	h.feed(t, 5, 3500*time.Millisecond, true)

	require.Equal(t, domain.StateRinging, h.ctrl.Status().State, "streak restarted at 1.6s")

	h.feed(t, 6, 3600*time.Millisecond, true)
	require.Eventually(t, h.ctrl.IsIdle, time.Second, time.Millisecond)
}

func TestController_StaleFrameNotReevaluated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	require.True(t, h.ctrl.Trigger(context.Background(), "a1"))

	h.feed(t, 1, 0, true)
	calls := h.detector.calls.Load()

	// Time passes but the camera delivers nothing new.
	h.clock.Set(testStart.Add(5 * time.Second))
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, calls, h.detector.calls.Load())
	require.Equal(t, domain.StateRinging, h.ctrl.Status().State)

	require.NoError(t, h.ctrl.ForceStop(context.Background(), ""))
}

func TestController_NewSessionStartsFreshStreak(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()

	require.True(t, h.ctrl.Trigger(ctx, "a1"))
	h.feed(t, 1, 0, true)
	h.feed(t, 2, 1900*time.Millisecond, true)
	require.NoError(t, h.ctrl.ForceStop(ctx, "a1"))

	require.True(t, h.ctrl.Trigger(ctx, "a2"))
	h.feed(t, 3, 2*time.Second, true)

	s := h.ctrl.Status()
	require.Equal(t, domain.StateRinging, s.State)
	require.Equal(t, "a2", s.ActiveAlarmID)

	require.NoError(t, h.ctrl.ForceStop(ctx, "a2"))
	require.Equal(t, []string{"a1", "a2"}, h.store.deactivated())
}

func TestController_ConcurrentStopsDeactivateOnce(t *testing.T) {
	t.Parallel()

	store := &fakeStore{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, store, nil)
	ctx := context.Background()

	require.True(t, h.ctrl.Trigger(ctx, "a1"))
	h.feed(t, 1, 0, true)

	firstErr := make(chan error, 1)

	go func() { firstErr <- h.ctrl.ForceStop(ctx, "a1") }()

	<-store.entered
	require.Equal(t, domain.StateStopping, h.ctrl.Status().State)

	// A confirmation arriving now must not re-enter the stop logic.
	h.clock.Set(testStart.Add(3 * time.Second))
	h.camera.push(2)

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := h.ctrl.ForceStop(ctx, "a1")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrNotRinging)
			}
		}()
	}

	wg.Wait()
	close(store.release)

	require.NoError(t, <-firstErr)
	require.True(t, h.ctrl.IsIdle())
	require.Equal(t, []string{"a1"}, store.deactivated())
	require.EqualValues(t, 1, h.rec.Count(t, "smile_alarm.session.stops"))
	require.EqualValues(t, 1, h.audio.stops.Load())
}

func TestController_PersistenceFailureStillIdles(t *testing.T) {
	t.Parallel()

	store := &fakeStore{err: domain.ErrPersistenceFailed}
	h := newHarness(t, store, nil)
	ctx := context.Background()

	require.True(t, h.ctrl.Trigger(ctx, "a1"))
	require.ErrorIs(t, h.ctrl.ForceStop(ctx, "a1"), domain.ErrPersistenceFailed)
	require.True(t, h.ctrl.IsIdle())

	// The next alarm can ring.
	require.True(t, h.ctrl.Trigger(ctx, "a2"))
	require.ErrorIs(t, h.ctrl.ForceStop(ctx, ""), domain.ErrPersistenceFailed)
}

func TestController_DegradedCameraNeedsManualStop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, &fakeCamera{startErr: errNoWebcam})
	ctx := context.Background()

	require.True(t, h.ctrl.Trigger(ctx, "a1"))
	require.Equal(t, domain.StateRinging, h.ctrl.Status().State)
	require.EqualValues(t, 1, h.audio.starts.Load(), "alarm sounds without camera")
	require.EqualValues(t, 1, h.rec.Count(t, "smile_alarm.collaborator.failures", "collaborator", "camera"))

	require.NoError(t, h.ctrl.ForceStop(ctx, "a1"))
	require.True(t, h.ctrl.IsIdle())
	require.Equal(t, []string{"a1"}, h.store.deactivated())
	require.EqualValues(t, 1, h.rec.Count(t, "smile_alarm.session.stops", "reason", "manual"))
}

func TestController_ForceStopErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, h.ctrl.ForceStop(ctx, "a1"), domain.ErrNotRinging)

	require.True(t, h.ctrl.Trigger(ctx, "a1"))
	require.ErrorIs(t, h.ctrl.ForceStop(ctx, "b7"), domain.ErrAlarmMismatch)
	require.Equal(t, domain.StateRinging, h.ctrl.Status().State)

	require.NoError(t, h.ctrl.ForceStop(ctx, "a1"))
}

func TestController_ShutdownKeepsAlarmArmed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Shutdown(ctx))

	require.True(t, h.ctrl.Trigger(ctx, "a1"))
	require.NoError(t, h.ctrl.Shutdown(ctx))
	require.True(t, h.ctrl.IsIdle())
	require.Empty(t, h.store.deactivated())
	require.EqualValues(t, 1, h.camera.stops.Load())
}

func TestController_DetectorFailureIsTransient(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	require.True(t, h.ctrl.Trigger(context.Background(), "a1"))

	h.detector.failing.Store(true)
	h.camera.push(1)

	require.Eventually(t, func() bool {
		return h.rec.Count(t, "smile_alarm.detector.failures") >= 1
	}, time.Second, time.Millisecond)
	require.Equal(t, domain.StateRinging, h.ctrl.Status().State)

	h.detector.failing.Store(false)
	h.feed(t, 2, 0, true)
	h.feed(t, 3, 2*time.Second, true)

	require.Eventually(t, h.ctrl.IsIdle, time.Second, time.Millisecond)
}

func TestController_ShutdownWaitsForStopInFlight(t *testing.T) {
	t.Parallel()

	store := &fakeStore{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, store, nil)
	ctx := context.Background()

	require.True(t, h.ctrl.Trigger(ctx, "a1"))

	stopErr := make(chan error, 1)

	go func() { stopErr <- h.ctrl.ForceStop(ctx, "a1") }()

	<-store.entered

	shutdownErr := make(chan error, 1)

	go func() { shutdownErr <- h.ctrl.Shutdown(ctx) }()

	select {
	case err := <-shutdownErr:
		t.Fatalf("shutdown returned while a stop was persisting: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	close(store.release)

	require.NoError(t, <-stopErr)
	require.NoError(t, <-shutdownErr)
	require.True(t, h.ctrl.IsIdle())
	require.Equal(t, []string{"a1"}, store.deactivated())
	require.EqualValues(t, 1, h.audio.stops.Load())
}

func TestController_ShutdownGivesUpWaitingOnCancel(t *testing.T) {
	t.Parallel()

	store := &fakeStore{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, store, nil)
	ctx := context.Background()

	require.True(t, h.ctrl.Trigger(ctx, "a1"))

	stopErr := make(chan error, 1)

	go func() { stopErr <- h.ctrl.ForceStop(ctx, "a1") }()

	<-store.entered

	shutdownCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, h.ctrl.Shutdown(shutdownCtx), context.DeadlineExceeded)

	close(store.release)
	require.NoError(t, <-stopErr)
}
