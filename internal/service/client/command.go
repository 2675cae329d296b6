package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	audioadapter "github.com/oshokin/smile-alarm/internal/adapter/audio"
	"github.com/oshokin/smile-alarm/internal/command"
	"github.com/oshokin/smile-alarm/internal/config"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/observe"
	alarmsrepo "github.com/oshokin/smile-alarm/internal/repository/alarms"
	prefsrepo "github.com/oshokin/smile-alarm/internal/repository/preferences"
	"github.com/oshokin/smile-alarm/internal/service/audioloop"
	"github.com/oshokin/smile-alarm/internal/service/instance"
	"github.com/oshokin/smile-alarm/internal/service/sound"
	"github.com/oshokin/smile-alarm/internal/service/store"
)

// Options configures a single command run.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// Command is the operation to perform.
	Command command.Command

	// Out receives the rendered result, os.Stdout by default.
	Out io.Writer

	// Player overrides the audio device used by sound previews.
	Player audioloop.Player

	// PreviewDuration is how long a sound preview plays.
	PreviewDuration time.Duration

	// Notify delivers requests to the running daemon, instance.Notify by default.
	Notify func(pidFile string, req instance.Request) error
}

// defaultPreviewDuration is how long a sound preview plays from the command line.
const defaultPreviewDuration = 3 * time.Second

// ErrNoCommand is returned when Options.Command is not set.
var ErrNoCommand = errors.New("no command given")

// Run executes opts.Command and prints the result.
//
//nolint:cyclop // One branch per kind of command.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "client")

	if opts.Command == nil {
		return ErrNoCommand
	}

	// Load settings from configuration file.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = logger.Configure(cfg.LogLevel); err != nil {
		return err
	}

	// Keep informational logs out of the command output.
	logger.Quiet()

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	notify := opts.Notify
	if notify == nil {
		notify = instance.Notify
	}

	// Stopping needs the daemon, there is no ringing session here.
	if stop, ok := opts.Command.(command.ManualStop); ok {
		if stop.AlarmID != "" {
			logger.WarnKV(ctx, "The daemon stops whichever alarm is ringing, the id is ignored", "alarm_id", stop.AlarmID)
		}

		if err = notify(cfg.PIDFile, instance.Stop); err != nil {
			return fmt.Errorf("stop ringing alarm: %w", err)
		}

		_, _ = fmt.Fprintln(out, "Stop request sent")

		return nil
	}

	dispatcher, sounds, closeAll, err := newDispatcher(ctx, cfg, opts)
	if err != nil {
		return err
	}

	defer closeAll()

	res, err := dispatcher.Dispatch(ctx, opts.Command)
	if err != nil {
		return err
	}

	command.Render(out, res)

	if _, ok := opts.Command.(command.TestSound); ok {
		preview(ctx, sounds, opts.PreviewDuration)
	}

	if !res.Changed {
		return nil
	}

	// Let the running daemon pick up the new files.
	switch err = notify(cfg.PIDFile, instance.Reload); {
	case err == nil:
		logger.Debug(ctx, "Daemon asked to reload")
	case errors.Is(err, instance.ErrNotRunning):
		logger.Debug(ctx, "No running daemon to reload")
	default:
		logger.WarnKV(ctx, "Failed to notify the running daemon, changes apply on its next start", "error", err)
	}

	return nil
}

// newDispatcher builds the store and sound manager over the shared files.
func newDispatcher(
	ctx context.Context,
	cfg *config.Config,
	opts *Options,
) (*command.Dispatcher, *sound.Manager, func(), error) {
	metrics := observe.DefaultMetrics()

	alarmStore, err := store.New(ctx, alarmsrepo.NewFileRepository(cfg.AlarmsFile),
		store.WithMetrics(metrics),
		store.WithCapacity(cfg.MaxAlarms),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load alarms: %w", err)
	}

	closeAll := func() {}

	// Only previews need the audio device.
	var deck *audioloop.Deck

	if _, ok := opts.Command.(command.TestSound); ok {
		player := opts.Player
		if player == nil {
			otoPlayer := audioadapter.NewOtoPlayer()
			player = otoPlayer

			closeAll = func() {
				if closeErr := otoPlayer.Close(); closeErr != nil {
					logger.WarnKV(ctx, "Failed to close audio device", "error", closeErr)
				}
			}
		}

		deck = audioloop.NewDeck(player, cfg.CollaboratorTimeout)
	}

	sounds := sound.NewManager(ctx, prefsrepo.NewFileRepository(cfg.PreferencesFile), deck, cfg.SoundsDir,
		sound.WithMetrics(metrics),
	)

	return &command.Dispatcher{
		Store:  alarmStore,
		Sounds: sounds,
	}, sounds, closeAll, nil
}

// preview keeps a started sound test audible for a while.
func preview(ctx context.Context, sounds *sound.Manager, duration time.Duration) {
	if duration <= 0 {
		duration = defaultPreviewDuration
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	if err := sounds.StopTest(context.WithoutCancel(ctx)); err != nil {
		logger.WarnKV(ctx, "Failed to stop sound preview", "error", err)
	}
}
