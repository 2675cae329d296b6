//go:build windows

package instance

import "os"

// Signals returns nil: Windows processes cannot receive control signals.
func Signals() []os.Signal {
	return nil
}

// RequestOf never matches on Windows.
func RequestOf(os.Signal) (Request, bool) {
	return 0, false
}

func signalFor(Request) (os.Signal, bool) {
	return nil, false
}
