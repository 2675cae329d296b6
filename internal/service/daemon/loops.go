package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/smile-alarm/internal/clock"
	"github.com/oshokin/smile-alarm/internal/command"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/display"
	"github.com/oshokin/smile-alarm/internal/logger"
	"github.com/oshokin/smile-alarm/internal/service/instance"
)

// clockLoop refreshes the bedside display and the ringing status.
func (d *daemon) clockLoop(ctx context.Context) error {
	ctx = logger.WithName(ctx, "clock")

	var wasRinging bool

	clock.Tick(ctx, d.clock, d.cfg.ClockInterval, func(now time.Time) {
		status := d.controller.Status()

		if status.State == domain.StateIdle && wasRinging {
			d.out.printf("%s\n", display.StoppedLine(status.LastStop))
		}

		wasRinging = status.State != domain.StateIdle

		if wasRinging {
			if d.bedside.Exit() {
				d.out.printf("Alarm ringing, leaving bedside mode\n")
			}

			d.out.printf("%s\n", display.SessionLine(status))

			return
		}

		if d.bedside.Active() {
			next, _ := d.store.NextActive()
			d.out.printf("%s\n", display.BedsideLine(now, next))
		}
	})

	return nil
}

// controlLoop serves reload and stop requests from other invocations.
func (d *daemon) controlLoop(ctx context.Context) error {
	ctx = logger.WithName(ctx, "control")

	signals := instance.Signals()
	if len(signals) == 0 {
		<-ctx.Done()
		return nil
	}

	received := make(chan os.Signal, 1)
	signal.Notify(received, signals...)

	defer signal.Stop(received)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-received:
			req, ok := instance.RequestOf(sig)
			if !ok {
				continue
			}

			d.handle(ctx, req)
		}
	}
}

func (d *daemon) handle(ctx context.Context, req instance.Request) {
	logger.InfoKV(ctx, "Control request received", "request", req.String())

	switch req {
	case instance.Reload:
		if err := d.store.Reload(ctx); err != nil {
			logger.WarnKV(ctx, "Failed to reload alarms", "error", err)
		}

		if err := d.sounds.Reload(ctx); err != nil {
			logger.WarnKV(ctx, "Failed to reload sound preferences", "error", err)
		}
	case instance.Stop:
		d.execute(ctx, command.ManualStop{})
	}
}

// commandLoop reads commands line by line until in is exhausted or the user quits.
func (d *daemon) commandLoop(ctx context.Context, in io.Reader) error {
	ctx = logger.WithName(ctx, "commands")

	lines := make(chan string)

	// The scanner cannot be interrupted, so it lives outside the loop set.
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			logger.WarnKV(ctx, "Command input failed", "error", err)
		}
	}()

	d.out.printf("%s\n", command.Usage)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				logger.Debug(ctx, "Command input closed")
				return nil
			}

			switch strings.ToLower(strings.TrimSpace(line)) {
			case "quit", "exit":
				return errQuit
			case "help", "?":
				d.out.printf("%s\n", command.Usage)
				continue
			}

			cmd, err := command.Parse(line)
			if errors.Is(err, command.ErrEmpty) {
				continue
			}

			if err != nil {
				d.out.printf("error: %v\n", err)
				continue
			}

			d.execute(ctx, cmd)
		}
	}
}

// syncWriter serialises output of the concurrent loops.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.w, format, args...)
}

func (s *syncWriter) render(res command.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	command.Render(s.w, res)
}
