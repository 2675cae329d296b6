package audioloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/observe"
)

const (
	// DefaultInterval is the cadence at which the ringing track is restarted.
	DefaultInterval = 2 * time.Second

	defaultStopTimeout = 2 * time.Second
)

var (
	// ErrAlreadyRunning is returned by Start while the loop is active.
	ErrAlreadyRunning = errors.New("audio loop already running")
	// ErrStopTimeout is returned when the loop does not acknowledge a stop in time.
	ErrStopTimeout = errors.New("audio loop did not acknowledge stop")
)

// Driver restarts the ringing track every Interval until stopped.
type Driver struct {
	deck        *Deck
	interval    time.Duration
	stopTimeout time.Duration
	metrics     *observe.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDriver creates a loop driver over deck.
func NewDriver(deck *Deck, interval, stopTimeout time.Duration, metrics *observe.Metrics) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	return &Driver{
		deck:        deck,
		interval:    interval,
		stopTimeout: stopTimeout,
		metrics:     metrics,
	}
}

// Start begins looping track. Playback failures never fail Start: the alarm
// session must ring on even if the device is missing, and the next tick retries.
func (d *Driver) Start(ctx context.Context, track Track) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return ErrAlreadyRunning
	}

	if err := d.awaitLocked(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	d.cancel = cancel
	d.done = done

	go d.run(loopCtx, track, done)

	return nil
}

// Stop halts the loop, pauses the ringing track and waits for the acknowledgement.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel == nil {
		return nil
	}

	d.cancel()
	d.cancel = nil

	return d.awaitLocked(ctx)
}

// Running reports whether the loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cancel != nil
}

func (d *Driver) awaitLocked(ctx context.Context) error {
	if d.done == nil {
		return nil
	}

	timer := time.NewTimer(d.stopTimeout)
	defer timer.Stop()

	select {
	case <-d.done:
		d.done = nil
		return nil
	case <-timer.C:
		return fmt.Errorf("%w within %s", ErrStopTimeout, d.stopTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) run(ctx context.Context, track Track, done chan struct{}) {
	ctx = logger.WithName(ctx, "audio-loop")

	defer func() {
		if err := d.deck.Release(context.WithoutCancel(ctx), OwnerRinging); err != nil {
			logger.WarnKV(ctx, "Failed to pause ringing track", "error", err)
		}

		close(done)
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	reported := false

	for {
		err := d.deck.PlayFromStart(ctx, OwnerRinging, track)
		switch {
		case err == nil, ctx.Err() != nil:
		case !reported:
			reported = true

			d.metrics.RecordCollaboratorFailure(ctx, "audio")
			logger.WarnKV(ctx, "Audio playback unavailable, will keep retrying",
				"path", track.Path,
				"error", fmt.Errorf("%w: %w", domain.ErrCollaboratorUnavailable, err))
		default:
			logger.DebugKV(ctx, "Audio playback failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
