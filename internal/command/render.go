package command

import (
	"fmt"
	"io"

	"github.com/oshokin/smile-alarm/internal/display"
)

// Render prints res for the user.
func Render(w io.Writer, res Result) {
	if res.Message != "" {
		_, _ = fmt.Fprintln(w, res.Message)
	}

	if res.Warning != "" {
		_, _ = fmt.Fprintln(w, "warning:", res.Warning)
	}

	if res.Alarms != nil {
		_, _ = fmt.Fprintln(w, display.AlarmTable(res.Alarms))
	}

	if res.Sounds != nil {
		_, _ = fmt.Fprintln(w, display.SoundList(res.Sounds, res.Preferences))
	}
}
