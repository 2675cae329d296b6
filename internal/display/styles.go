// Package display renders the terminal views: the bedside clock line, the
// alarm and sound lists and the ringing session status.
package display

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorSuccess = lipgloss.Color("#9ece6a")
	colorWarning = lipgloss.Color("#e0af68")
	colorError   = lipgloss.Color("#f7768e")
	colorMuted   = lipgloss.Color("#565f89")
)

var (
	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	activeStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	ringingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	progressStyle = lipgloss.NewStyle().Foreground(colorWarning)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)
