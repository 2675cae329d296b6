//go:build !windows

package instance

import (
	"os"
	"syscall"
)

// Signals returns the signals carrying control requests.
func Signals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGUSR1}
}

// RequestOf maps a received signal to its request.
func RequestOf(sig os.Signal) (Request, bool) {
	switch sig {
	case syscall.SIGHUP:
		return Reload, true
	case syscall.SIGUSR1:
		return Stop, true
	default:
		return 0, false
	}
}

func signalFor(req Request) (os.Signal, bool) {
	switch req {
	case Reload:
		return syscall.SIGHUP, true
	case Stop:
		return syscall.SIGUSR1, true
	default:
		return nil, false
	}
}
