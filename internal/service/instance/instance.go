// Package instance keeps a single daemon running per pid file and lets other
// invocations of the binary find it and send it control requests.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/smile-alarm/internal/config"
)

var (
	// ErrAlreadyRunning is returned by Acquire when a live daemon owns the pid file.
	ErrAlreadyRunning = errors.New("smile alarm daemon is already running")
	// ErrNotRunning is returned when no live daemon owns the pid file.
	ErrNotRunning = errors.New("smile alarm daemon is not running")
	// ErrUnsupported is returned on platforms without control signals.
	ErrUnsupported = errors.New("control requests are not supported on this platform")
)

// Request is a control request sent to the daemon.
type Request int

const (
	// Reload re-reads alarms and preferences from disk.
	Reload Request = iota + 1
	// Stop ends the ringing session as a manual stop.
	Stop
)

// String returns the request name.
func (r Request) String() string {
	switch r {
	case Reload:
		return "reload"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Guard owns the pid file of the running daemon.
type Guard struct {
	path string
	pid  int
}

// Acquire writes the current process id to path unless another live process
// of the same executable already owns it. Stale files are overwritten.
func Acquire(path string) (*Guard, error) {
	path = filepath.Clean(path)

	if owner, err := lookup(path); err == nil {
		return nil, fmt.Errorf("%w with pid %d", ErrAlreadyRunning, owner.Pid())
	} else if !errors.Is(err, ErrNotRunning) {
		return nil, err
	}

	pid := os.Getpid()

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return &Guard{path: path, pid: pid}, nil
}

// Release removes the pid file if it still names this process.
func (g *Guard) Release() error {
	if g == nil {
		return nil
	}

	pid, err := readPID(g.path)
	if err != nil || pid != g.pid {
		return nil //nolint:nilerr // Someone else owns the file now.
	}

	if err = os.Remove(g.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}

	return nil
}

// Find returns the process id of the running daemon.
func Find(path string) (int, error) {
	owner, err := lookup(filepath.Clean(path))
	if err != nil {
		return 0, err
	}

	return owner.Pid(), nil
}

// Notify sends req to the running daemon.
func Notify(path string, req Request) error {
	sig, ok := signalFor(req)
	if !ok {
		return ErrUnsupported
	}

	pid, err := Find(path)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}

	if err = process.Signal(sig); err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}

	return nil
}

// lookup returns the live process named by the pid file. The process must
// run the same executable as the caller, so a recycled pid is ignored.
func lookup(path string) (ps.Process, error) {
	pid, err := readPID(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotRunning
		}

		return nil, err
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("inspect pid %d: %w", pid, err)
	}

	if process == nil {
		return nil, ErrNotRunning
	}

	self, err := ps.FindProcess(os.Getpid())
	if err == nil && self != nil && process.Executable() != self.Executable() {
		return nil, ErrNotRunning
	}

	return process, nil
}

func readPID(path string) (int, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		// A garbled file cannot name a live daemon.
		return 0, fmt.Errorf("%w: malformed pid file", os.ErrNotExist)
	}

	return pid, nil
}
