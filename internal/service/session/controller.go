package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/smile-alarm/internal/clock"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/domain/smile"
	"github.com/oshokin/smile-alarm/internal/domain/vision"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/observe"
	"github.com/oshokin/smile-alarm/internal/resilience"
	"github.com/oshokin/smile-alarm/internal/service/audioloop"
)

// Detector scores one frame for a smile.
type Detector interface {
	Detect(ctx context.Context, frame vision.Frame) (vision.Detection, error)
}

// Camera is the frame ingestion task.
type Camera interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Latest() (vision.Frame, bool)
}

// Audio is the looping playback task.
type Audio interface {
	Start(ctx context.Context, track audioloop.Track) error
	Stop(ctx context.Context) error
}

// AlarmStore is the part of the alarm store the controller mutates.
type AlarmStore interface {
	Deactivate(ctx context.Context, id string) error
}

// Tracks supplies the sound to ring with.
type Tracks interface {
	Track() audioloop.Track
}

// Options tunes the controller.
type Options struct {
	// Dwell is the continuous smiling time needed to stop the alarm.
	Dwell time.Duration
	// ConfirmInterval is the cadence at which frames are evaluated.
	ConfirmInterval time.Duration
	// DetectTimeout bounds one detector call.
	DetectTimeout time.Duration
	// Threshold normalises detector confidence into progress.
	Threshold float64
}

const (
	// stopPollInterval is how often Shutdown checks a stop in flight.
	stopPollInterval = 5 * time.Millisecond

	defaultConfirmInterval = 100 * time.Millisecond
	defaultDetectTimeout   = 500 * time.Millisecond
	defaultThreshold       = 0.3
)

// errStopInFlight is returned by stop when another stop holds the latch.
var errStopInFlight = errors.New("stop already in flight")

// Controller owns the ringing session.
type Controller struct {
	store    AlarmStore
	camera   Camera
	audio    Audio
	tracks   Tracks
	detector Detector
	clock    clock.Clock
	metrics  *observe.Metrics
	opts     Options

	// stopping is the single-flight latch of the stop transition.
	stopping atomic.Bool
	// transition serialises starting and stopping the collaborators.
	transition sync.Mutex

	// mu guards the fields below.
	mu      sync.Mutex
	session domain.Session
	// generation identifies the current session so a monitor of an
	// earlier session can never act on a later one.
	generation    uint64
	timer         *smile.Timer
	ringingSince  time.Time
	cancelMonitor context.CancelFunc
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Store    AlarmStore
	Camera   Camera
	Audio    Audio
	Tracks   Tracks
	Detector Detector
	Clock    clock.Clock
	Metrics  *observe.Metrics
}

// NewController creates an idle controller.
func NewController(deps Deps, opts Options) *Controller {
	if opts.Dwell <= 0 {
		opts.Dwell = smile.DefaultDwell
	}

	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = defaultConfirmInterval
	}

	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = defaultDetectTimeout
	}

	if opts.Threshold <= 0 {
		opts.Threshold = defaultThreshold
	}

	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}

	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}

	return &Controller{
		store:    deps.Store,
		camera:   deps.Camera,
		audio:    deps.Audio,
		tracks:   deps.Tracks,
		detector: deps.Detector,
		clock:    deps.Clock,
		metrics:  deps.Metrics,
		opts:     opts,
		timer:    smile.NewTimer(opts.Dwell),
	}
}

// Status returns a snapshot of the session.
func (c *Controller) Status() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

// IsIdle reports whether no session is active.
func (c *Controller) IsIdle() bool {
	return c.Status().State == domain.StateIdle
}

// Trigger starts ringing for alarmID. It returns false and does nothing when
// a session is already active. Camera and audio failures do not prevent the
// session from entering Ringing.
func (c *Controller) Trigger(ctx context.Context, alarmID string) bool {
	ctx = logger.WithKV(logger.WithName(ctx, "session"), "alarm_id", alarmID)

	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()

	if c.session.State != domain.StateIdle {
		active := c.session.ActiveAlarmID
		c.mu.Unlock()

		c.metrics.DroppedTriggers.Add(ctx, 1)
		logger.InfoKV(ctx, "Trigger dropped, a session is already active", "active_alarm_id", active)

		return false
	}

	c.generation++
	generation := c.generation

	c.timer.Reset()
	c.session = domain.Session{
		State:         domain.StateRinging,
		ActiveAlarmID: alarmID,
	}
	c.ringingSince = c.clock.Now()

	monitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelMonitor = cancel

	c.mu.Unlock()

	c.metrics.AlarmTriggers.Add(ctx, 1)
	c.metrics.Ringing.Add(ctx, 1)
	logger.Info(ctx, "Alarm ringing")

	c.startCollaborators(ctx)

	go c.monitor(monitorCtx, generation)

	return true
}

// ForceStop ends the ringing session as if a smile had been confirmed. An
// empty alarmID matches whichever alarm is ringing. A stop that is already in
// flight makes ForceStop a no-op.
func (c *Controller) ForceStop(ctx context.Context, alarmID string) error {
	err := c.stop(logger.WithName(ctx, "session"), alarmID, domain.StopManual)
	if errors.Is(err, errStopInFlight) {
		return nil
	}

	return err
}

// Shutdown stops a ringing session without disarming its alarm. A stop that
// is already in flight is awaited, so collaborators are released on return.
func (c *Controller) Shutdown(ctx context.Context) error {
	ctx = logger.WithName(ctx, "session")

	for {
		err := c.stop(ctx, "", domain.StopShutdown)

		switch {
		case errors.Is(err, errStopInFlight):
			if waitErr := c.awaitStop(ctx); waitErr != nil {
				return fmt.Errorf("wait for stop in flight: %w", waitErr)
			}
		case errors.Is(err, domain.ErrNotRinging):
			return nil
		default:
			return err
		}
	}
}

// awaitStop blocks until no stop transition is in flight.
func (c *Controller) awaitStop(ctx context.Context) error {
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for c.stopping.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

func (c *Controller) startCollaborators(ctx context.Context) {
	if c.audio != nil {
		var track audioloop.Track
		if c.tracks != nil {
			track = c.tracks.Track()
		}

		if err := c.audio.Start(ctx, track); err != nil {
			c.metrics.RecordCollaboratorFailure(ctx, "audio")
			logger.WarnKV(ctx, "Failed to start audio loop",
				"error", fmt.Errorf("%w: %w", domain.ErrCollaboratorUnavailable, err))
		}
	}

	if c.camera != nil {
		if err := c.camera.Start(ctx); err != nil {
			c.metrics.RecordCollaboratorFailure(ctx, "camera")
			logger.WarnKV(ctx, "Failed to start camera, only a manual stop can end this session",
				"error", fmt.Errorf("%w: %w", domain.ErrCollaboratorUnavailable, err))
		}
	}
}

// stop performs the Ringing -> Stopping -> Idle transition.
func (c *Controller) stop(ctx context.Context, alarmID string, reason domain.StopReason) error {
	if !c.stopping.CompareAndSwap(false, true) {
		logger.DebugKV(ctx, "Stop already in flight", "reason", reason)
		return errStopInFlight
	}
	defer c.stopping.Store(false)

	c.mu.Lock()

	if c.session.State != domain.StateRinging {
		c.mu.Unlock()
		return domain.ErrNotRinging
	}

	active := c.session.ActiveAlarmID
	if alarmID != "" && alarmID != active {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s is ringing, not %s", domain.ErrAlarmMismatch, active, alarmID)
	}

	c.session.State = domain.StateStopping
	ringingSince := c.ringingSince
	cancelMonitor := c.cancelMonitor
	c.cancelMonitor = nil

	c.mu.Unlock()

	ctx = logger.WithFields(ctx, "alarm_id", active, "reason", reason)

	c.transition.Lock()
	defer c.transition.Unlock()

	if cancelMonitor != nil {
		cancelMonitor()
	}

	c.stopCollaborators(ctx)

	var err error

	if reason != domain.StopShutdown && c.store != nil {
		if err = c.store.Deactivate(ctx, active); err != nil {
			logger.WarnKV(ctx, "Failed to disarm alarm after stop", "error", err)
		}
	}

	c.mu.Lock()
	c.session = domain.Session{State: domain.StateIdle, LastStop: reason}
	c.timer.Reset()
	c.mu.Unlock()

	c.metrics.Ringing.Add(ctx, -1)
	c.metrics.RecordStop(ctx, string(reason))

	if reason == domain.StopSmile {
		c.metrics.ConfirmDuration.Record(ctx, c.clock.Now().Sub(ringingSince).Seconds())
	}

	logger.Info(ctx, "Alarm stopped")

	return err
}

func (c *Controller) stopCollaborators(ctx context.Context) {
	if c.audio != nil {
		if err := c.audio.Stop(ctx); err != nil {
			c.metrics.RecordCollaboratorFailure(ctx, "audio")
			logger.WarnKV(ctx, "Audio loop did not stop cleanly", "error", err)
		}
	}

	if c.camera != nil {
		if err := c.camera.Stop(ctx); err != nil {
			c.metrics.RecordCollaboratorFailure(ctx, "camera")
			logger.WarnKV(ctx, "Camera did not stop cleanly", "error", err)
		}
	}
}

// monitor evaluates fresh frames every ConfirmInterval until the session of
// generation ends or a smile is confirmed.
func (c *Controller) monitor(ctx context.Context, generation uint64) {
	ctx = logger.WithName(ctx, "monitor")

	ticker := time.NewTicker(c.opts.ConfirmInterval)
	defer ticker.Stop()

	var lastSeq uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		alarmID, confirmed, alive := c.evaluate(ctx, generation, &lastSeq)
		if !alive {
			return
		}

		if confirmed {
			logger.Info(ctx, "Smile confirmed")

			if err := c.stop(context.WithoutCancel(ctx), alarmID, domain.StopSmile); err != nil &&
				!errors.Is(err, domain.ErrNotRinging) && !errors.Is(err, errStopInFlight) {
				logger.WarnKV(ctx, "Stop after smile finished with error", "error", err)
			}

			return
		}
	}
}

// evaluate runs the detector on the latest frame if it is new and feeds the
// verdict to the smile timer. alive is false once the session of generation
// is over.
func (c *Controller) evaluate(ctx context.Context, generation uint64, lastSeq *uint64) (alarmID string, confirmed, alive bool) {
	if c.camera == nil || c.detector == nil {
		return "", false, c.isCurrent(generation)
	}

	frame, ok := c.camera.Latest()
	if !ok || frame.Seq == *lastSeq {
		return "", false, c.isCurrent(generation)
	}

	*lastSeq = frame.Seq

	detection, err := resilience.Do(ctx, c.opts.DetectTimeout, func(ctx context.Context) (vision.Detection, error) {
		return c.detector.Detect(ctx, frame)
	})
	if err != nil {
		if ctx.Err() == nil {
			c.metrics.DetectorFailures.Add(ctx, 1)
			logger.DebugKV(ctx, "Smile detection failed", "seq", frame.Seq, "error", err)
		}

		return "", false, c.isCurrent(generation)
	}

	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation || c.session.State != domain.StateRinging {
		return "", false, false
	}

	confirmed = c.timer.Observe(detection.IsSmiling, now)

	c.session.Smiling = detection.IsSmiling
	c.session.Confidence = detection.Confidence
	c.session.Progress = detection.Progress(c.opts.Threshold)
	c.session.LastFrameSeq = frame.Seq

	return c.session.ActiveAlarmID, confirmed, true
}

func (c *Controller) isCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation == generation && c.session.State == domain.StateRinging
}
