// Package command defines the user commands, parses them from text and
// dispatches each one to exactly one store, session or sound operation.
package command

import domain "github.com/oshokin/smile-alarm/internal/domain/alarm"

// Command is a user request. Ids are carried by value.
type Command interface {
	// Name is the keyword the command is parsed from.
	Name() string
}

// AddAlarm creates an alarm.
type AddAlarm struct{ Time domain.TimeOfDay }

// DeleteAlarm removes an alarm.
type DeleteAlarm struct{ ID string }

// ToggleAlarm arms or disarms an alarm.
type ToggleAlarm struct {
	ID     string
	Active bool
}

// ListAlarms shows the alarms.
type ListAlarms struct{}

// ListSounds shows the sound catalog.
type ListSounds struct{}

// SelectSound chooses the alarm sound.
type SelectSound struct{ ID string }

// SetVolume sets the playback volume.
type SetVolume struct{ Volume float64 }

// TestSound previews a sound.
type TestSound struct{ ID string }

// EnterBedside turns the passive display mode on.
type EnterBedside struct{}

// ExitBedside turns the passive display mode off.
type ExitBedside struct{}

// ManualStop ends the ringing session without a smile. An empty AlarmID
// stops whichever alarm is ringing.
type ManualStop struct{ AlarmID string }

func (AddAlarm) Name() string     { return "add" }
func (DeleteAlarm) Name() string  { return "delete" }
func (ToggleAlarm) Name() string  { return "toggle" }
func (ListAlarms) Name() string   { return "list" }
func (ListSounds) Name() string   { return "sounds" }
func (SelectSound) Name() string  { return "sound" }
func (SetVolume) Name() string    { return "volume" }
func (TestSound) Name() string    { return "test" }
func (EnterBedside) Name() string { return "bedside" }
func (ExitBedside) Name() string  { return "bedside" }
func (ManualStop) Name() string   { return "stop" }
