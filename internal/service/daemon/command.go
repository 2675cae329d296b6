package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	audioadapter "github.com/oshokin/smile-alarm/internal/adapter/audio"
	cameraadapter "github.com/oshokin/smile-alarm/internal/adapter/camera"
	"github.com/oshokin/smile-alarm/internal/adapter/detector"
	"github.com/oshokin/smile-alarm/internal/clock"
	"github.com/oshokin/smile-alarm/internal/command"
	"github.com/oshokin/smile-alarm/internal/config"
	"github.com/oshokin/smile-alarm/internal/display"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/observe"
	alarmsrepo "github.com/oshokin/smile-alarm/internal/repository/alarms"
	prefsrepo "github.com/oshokin/smile-alarm/internal/repository/preferences"
	"github.com/oshokin/smile-alarm/internal/service/audioloop"
	"github.com/oshokin/smile-alarm/internal/service/camera"
	"github.com/oshokin/smile-alarm/internal/service/instance"
	"github.com/oshokin/smile-alarm/internal/service/scheduler"
	"github.com/oshokin/smile-alarm/internal/service/session"
	"github.com/oshokin/smile-alarm/internal/service/sound"
	"github.com/oshokin/smile-alarm/internal/service/store"
)

// Options controls the daemon.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Bedside starts in passive display mode.
	Bedside bool
	// Interactive reads commands from In.
	Interactive bool
	// In is the command input, os.Stdin by default.
	In io.Reader
	// Out receives the clock and command output, os.Stdout by default.
	Out io.Writer
	// Player overrides the audio device.
	Player audioloop.Player
	// Clock overrides the time base.
	Clock clock.Clock
}

// shutdownTimeout bounds stopping a ringing session on exit.
const shutdownTimeout = 5 * time.Second

// Run starts the daemon and blocks until ctx is cancelled or the interactive
// user quits.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "daemon")

	// Missing settings file is fine, defaults are used.
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = logger.Configure(cfg.LogLevel); err != nil {
		return err
	}

	// Refuse to run twice against the same files.
	guard, err := instance.Acquire(cfg.PIDFile)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := guard.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Failed to remove pid file", "error", releaseErr)
		}
	}()

	d, err := newDaemon(ctx, cfg, opts)
	if err != nil {
		return err
	}

	defer d.close(ctx)

	logger.InfoKV(ctx, "Smile alarm started",
		"alarms", len(d.store.List()),
		"alarms_file", cfg.AlarmsFile,
		"camera", cfg.Camera.SnapshotPath,
		"detector", cfg.Detector.Command,
	)

	if opts.Bedside {
		d.execute(ctx, command.EnterBedside{})
	}

	return d.run(ctx)
}

// daemon holds the wired components.
type daemon struct {
	cfg         *config.Config
	opts        *Options
	clock       clock.Clock
	store       *store.Store
	sounds      *sound.Manager
	controller  *session.Controller
	scheduler   *scheduler.Scheduler
	bedside     *display.Bedside
	dispatcher  *command.Dispatcher
	closePlayer func() error
	out         *syncWriter
}

func newDaemon(ctx context.Context, cfg *config.Config, opts *Options) (*daemon, error) {
	metrics := observe.DefaultMetrics()

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	// A broken alarms file must not be overwritten by an empty list.
	alarmStore, err := store.New(ctx, alarmsrepo.NewFileRepository(cfg.AlarmsFile),
		store.WithClock(clk),
		store.WithMetrics(metrics),
		store.WithCapacity(cfg.MaxAlarms),
	)
	if err != nil {
		return nil, fmt.Errorf("load alarms: %w", err)
	}

	player := opts.Player
	closePlayer := func() error { return nil }

	if player == nil {
		otoPlayer := audioadapter.NewOtoPlayer()
		player, closePlayer = otoPlayer, otoPlayer.Close
	}

	deck := audioloop.NewDeck(player, cfg.CollaboratorTimeout)

	sounds := sound.NewManager(ctx, prefsrepo.NewFileRepository(cfg.PreferencesFile), deck, cfg.SoundsDir,
		sound.WithClock(clk),
		sound.WithMetrics(metrics),
	)

	var source camera.Source = cameraadapter.Unavailable{}
	if cfg.Camera.SnapshotPath != "" {
		source = cameraadapter.NewSnapshot(cfg.Camera.SnapshotPath)
	} else {
		logger.Warn(ctx, "No camera configured, ringing alarms can only be stopped manually")
	}

	ingestor := camera.NewIngestor(source, camera.Options{
		Interval:    cfg.FrameInterval,
		CallTimeout: cfg.CollaboratorTimeout,
		StopTimeout: cfg.StopTimeout,
	}, metrics)

	controller := session.NewController(session.Deps{
		Store:    alarmStore,
		Camera:   ingestor,
		Audio:    audioloop.NewDriver(deck, cfg.AudioLoopInterval, cfg.StopTimeout, metrics),
		Tracks:   sounds,
		Detector: detector.NewCommand(cfg.Detector.Command, cfg.Detector.Args, cfg.Detector.Threshold),
		Clock:    clk,
		Metrics:  metrics,
	}, session.Options{
		Dwell:           cfg.Dwell,
		ConfirmInterval: cfg.ConfirmInterval,
		DetectTimeout:   cfg.CollaboratorTimeout,
		Threshold:       cfg.Detector.Threshold,
	})

	bedside := new(display.Bedside)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &daemon{
		cfg:        cfg,
		opts:       opts,
		clock:      clk,
		store:      alarmStore,
		sounds:     sounds,
		controller: controller,
		scheduler:  scheduler.New(alarmStore, controller, clk, cfg.ScanInterval),
		bedside:    bedside,
		dispatcher: &command.Dispatcher{
			Store:   alarmStore,
			Session: controller,
			Sounds:  sounds,
			Bedside: bedside,
		},
		closePlayer: closePlayer,
		out:         &syncWriter{w: out},
	}, nil
}

// errQuit ends the daemon on an interactive quit.
var errQuit = errors.New("quit requested")

func (d *daemon) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.scheduler.Run(gctx)
	})

	g.Go(func() error {
		return d.clockLoop(gctx)
	})

	g.Go(func() error {
		return d.controlLoop(gctx)
	})

	if d.opts.Interactive {
		in := d.opts.In
		if in == nil {
			in = os.Stdin
		}

		g.Go(func() error {
			return d.commandLoop(gctx, in)
		})
	}

	err := g.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}

	return err
}

// close stops a ringing session and releases the audio device.
func (d *daemon) close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := d.controller.Shutdown(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "Ringing session did not shut down cleanly", "error", err)
	}

	if err := d.closePlayer(); err != nil {
		logger.WarnKV(ctx, "Failed to close audio device", "error", err)
	}

	logger.Info(ctx, "Smile alarm stopped")
}

// execute dispatches one command and prints the result.
func (d *daemon) execute(ctx context.Context, cmd command.Command) {
	res, err := d.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		d.out.printf("error: %v\n", err)
		return
	}

	d.out.render(res)
}
