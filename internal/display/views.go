package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/service/sound"
)

const progressWidth = 20

// Bedside tracks whether the passive display mode is on.
type Bedside struct {
	active atomic.Bool
}

// Enter turns the mode on.
func (b *Bedside) Enter() {
	b.active.Store(true)
}

// Exit turns the mode off and reports whether it was on.
func (b *Bedside) Exit() bool {
	return b.active.Swap(false)
}

// Active reports whether the mode is on.
func (b *Bedside) Active() bool {
	return b.active.Load()
}

// BedsideLine renders "HH:MM:SS  next alarm HH:MM".
func BedsideLine(now time.Time, next *domain.Alarm) string {
	line := clockStyle.Render(now.Format(time.TimeOnly))

	if next == nil {
		return line + "  " + mutedStyle.Render("no active alarm")
	}

	return line + "  " + mutedStyle.Render("next alarm") + " " + activeStyle.Render(next.Time.String())
}

// AlarmTable renders the alarms with their ids, times and state.
func AlarmTable(alarms []domain.Alarm) string {
	if len(alarms) == 0 {
		return mutedStyle.Render("No alarms.")
	}

	idWidth := len("ID")
	for _, a := range alarms {
		idWidth = max(idWidth, lipgloss.Width(a.ID))
	}

	idCol := lipgloss.NewStyle().Width(idWidth + 2)
	timeCol := lipgloss.NewStyle().Width(len("HH:MM") + 2)

	rows := make([]string, 0, len(alarms)+1)
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
		idCol.Render(headerStyle.Render("ID")),
		timeCol.Render(headerStyle.Render("TIME")),
		headerStyle.Render("STATE"),
	))

	for _, a := range alarms {
		state := mutedStyle.Render("off")
		if a.Active {
			state = activeStyle.Render("on") + mutedStyle.Render(" next "+a.Next.Format("Mon 15:04"))
		}

		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			idCol.Render(a.ID),
			timeCol.Render(a.Time.String()),
			state,
		))
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SoundList renders the catalog marking the selected sound.
func SoundList(sounds []sound.Sound, prefs domain.Preferences) string {
	rows := make([]string, 0, len(sounds)+1)

	for _, s := range sounds {
		marker := "  "
		name := s.Name

		if s.ID == prefs.SoundID {
			marker = activeStyle.Render("* ")
			name = activeStyle.Render(name)
		}

		rows = append(rows, fmt.Sprintf("%s%-10s %s", marker, s.ID, name))
	}

	rows = append(rows, mutedStyle.Render(fmt.Sprintf("volume %d%%", int(prefs.Volume*100+0.5))))

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SessionLine renders the ringing session status with a smile progress bar.
func SessionLine(s domain.Session) string {
	switch s.State {
	case domain.StateIdle:
		return mutedStyle.Render("idle")
	case domain.StateStopping:
		return mutedStyle.Render("stopping alarm " + s.ActiveAlarmID)
	}

	verdict := "not smiling"
	if s.Smiling {
		verdict = "smiling"
	}

	return fmt.Sprintf("%s %s  %s %s  %s",
		ringingStyle.Render("RINGING"),
		s.ActiveAlarmID,
		progressStyle.Render(progressBar(s.Progress)),
		mutedStyle.Render(fmt.Sprintf("%.2f", s.Confidence)),
		verdict,
	)
}

// StoppedLine announces the end of a ringing session.
func StoppedLine(reason domain.StopReason) string {
	switch reason {
	case domain.StopSmile:
		return activeStyle.Bold(true).Render("Good morning!") + " Smile confirmed, alarm stopped."
	case domain.StopManual:
		return mutedStyle.Render("Alarm stopped manually.")
	default:
		return mutedStyle.Render("Alarm stopped.")
	}
}

func progressBar(progress float64) string {
	filled := int(min(max(progress, 0), 1)*progressWidth + 0.5)

	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", progressWidth-filled) + "]"
}
