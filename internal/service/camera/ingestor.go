// Package camera runs camera frame ingestion on its own goroutine and
// publishes only the most recent frame.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/domain/vision"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/observe"
	"github.com/oshokin/smile-alarm/internal/resilience"
)

// Source opens camera streams.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera handle. Latest must tolerate high frequency polling
// and returns vision.ErrNoFrame while nothing has been captured.
type Stream interface {
	Latest(ctx context.Context) (vision.Frame, error)
	Close() error
}

// Options tunes the ingestion loop.
type Options struct {
	// Interval is the polling cadence.
	Interval time.Duration
	// CallTimeout bounds Open, Latest and Close.
	CallTimeout time.Duration
	// RetryInterval is the delay between Open attempts while unavailable.
	RetryInterval time.Duration
	// StopTimeout bounds the wait for the loop to acknowledge a stop.
	StopTimeout time.Duration
}

const (
	defaultInterval      = 33 * time.Millisecond
	defaultCallTimeout   = 500 * time.Millisecond
	defaultRetryInterval = time.Second
	defaultStopTimeout   = 2 * time.Second
)

var (
	// ErrAlreadyRunning is returned by Start while ingestion is active.
	ErrAlreadyRunning = errors.New("camera ingestion already running")
	// ErrStopTimeout is returned when the loop does not acknowledge a stop in time.
	ErrStopTimeout = errors.New("camera ingestion did not acknowledge stop")
)

// Ingestor polls a camera source and keeps the latest frame.
type Ingestor struct {
	source  Source
	opts    Options
	metrics *observe.Metrics

	// mu serialises Start and Stop.
	mu     sync.Mutex
	cancel context.CancelFunc
	// done is closed once the loop has released the stream.
	done chan struct{}

	latest atomic.Pointer[vision.Frame]
}

// NewIngestor creates an ingestor over source.
func NewIngestor(source Source, opts Options, metrics *observe.Metrics) *Ingestor {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}

	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}

	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}

	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}

	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	return &Ingestor{
		source:  source,
		opts:    opts,
		metrics: metrics,
	}
}

// Start launches the ingestion loop. The camera is opened asynchronously and
// reopened while unavailable, so Start never blocks on the device. If the
// previous loop has not yet released its stream, Start waits for it up to
// StopTimeout.
func (i *Ingestor) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		return ErrAlreadyRunning
	}

	if err := i.awaitReleaseLocked(ctx); err != nil {
		return err
	}

	i.latest.Store(nil)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	i.cancel = cancel
	i.done = done

	go i.run(loopCtx, done)

	return nil
}

// Stop cancels the loop and waits for it to close the stream.
func (i *Ingestor) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel == nil {
		return nil
	}

	i.cancel()
	i.cancel = nil

	return i.awaitReleaseLocked(ctx)
}

// Latest returns the most recent frame, if any.
func (i *Ingestor) Latest() (vision.Frame, bool) {
	f := i.latest.Load()
	if f == nil {
		return vision.Frame{}, false
	}

	return *f, true
}

// awaitReleaseLocked waits for the previous loop to exit. Must be called with mu held.
func (i *Ingestor) awaitReleaseLocked(ctx context.Context) error {
	if i.done == nil {
		return nil
	}

	timer := time.NewTimer(i.opts.StopTimeout)
	defer timer.Stop()

	select {
	case <-i.done:
		i.done = nil
		return nil
	case <-timer.C:
		return fmt.Errorf("%w within %s", ErrStopTimeout, i.opts.StopTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the ingestion loop.
func (i *Ingestor) run(ctx context.Context, done chan struct{}) {
	ctx = logger.WithName(ctx, "camera")

	var (
		stream      Stream
		lastSeq     uint64
		lastAttempt time.Time
		reported    bool
	)

	defer func() {
		if stream != nil {
			closeErr := resilience.Call(context.WithoutCancel(ctx), i.opts.CallTimeout, func(context.Context) error {
				return stream.Close()
			})
			if closeErr != nil {
				logger.WarnKV(ctx, "Failed to close camera", "error", closeErr)
			}
		}

		close(done)
	}()

	ticker := time.NewTicker(i.opts.Interval)
	defer ticker.Stop()

	for {
		if stream == nil && time.Since(lastAttempt) >= i.opts.RetryInterval {
			lastAttempt = time.Now()

			opened, err := resilience.Do(ctx, i.opts.CallTimeout, i.source.Open)
			switch {
			case err == nil:
				stream = opened
				logger.Info(ctx, "Camera opened")
			case ctx.Err() != nil:
				return
			case !reported:
				reported = true

				i.metrics.RecordCollaboratorFailure(ctx, "camera")
				logger.WarnKV(ctx, "Camera unavailable, will keep retrying",
					"error", fmt.Errorf("%w: %w", domain.ErrCollaboratorUnavailable, err))
			default:
				logger.DebugKV(ctx, "Camera still unavailable", "error", err)
			}
		}

		if stream != nil {
			lastSeq = i.poll(ctx, stream, lastSeq)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll reads one frame and publishes it if it is newer than lastSeq.
func (i *Ingestor) poll(ctx context.Context, stream Stream, lastSeq uint64) uint64 {
	frame, err := resilience.Do(ctx, i.opts.CallTimeout, stream.Latest)
	if err != nil {
		if !errors.Is(err, vision.ErrNoFrame) && ctx.Err() == nil {
			logger.DebugKV(ctx, "Frame read failed", "error", err)
		}

		return lastSeq
	}

	if frame.Seq <= lastSeq {
		return lastSeq
	}

	i.latest.Store(&frame)
	i.metrics.FramesIngested.Add(ctx, 1)

	return frame.Seq
}
