package command

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
	"github.com/oshokin/smile-alarm/internal/service/sound"
)

// ErrUnsupported is returned for commands that have no target in the current process.
var ErrUnsupported = errors.New("command not available here")

// Store is the alarm store.
type Store interface {
	Add(ctx context.Context, at domain.TimeOfDay) (*domain.Alarm, error)
	Remove(ctx context.Context, id string) error
	ToggleActive(ctx context.Context, id string, active bool) (*domain.Alarm, error)
	List() []domain.Alarm
	NextActive() (*domain.Alarm, bool)
}

// Session is the ringing session.
type Session interface {
	ForceStop(ctx context.Context, alarmID string) error
}

// Sounds is the sound preference manager.
type Sounds interface {
	Select(ctx context.Context, id string) error
	SetVolume(ctx context.Context, volume float64) (float64, error)
	Test(ctx context.Context, id string) error
	Preferences() domain.Preferences
}

// Bedside is the passive display mode switch.
type Bedside interface {
	Enter()
	Exit() bool
}

// Result is what a command produced for the user.
type Result struct {
	// Message is a one-line summary.
	Message string
	// Warning is set when the operation took effect but could not be saved.
	Warning string
	// Alarms is set by ListAlarms.
	Alarms []domain.Alarm
	// Sounds is set by ListSounds.
	Sounds []sound.Sound
	// Preferences accompanies Sounds.
	Preferences domain.Preferences
	// Changed reports that persisted state was modified.
	Changed bool
}

// Dispatcher routes commands. Nil targets make their commands fail with ErrUnsupported.
type Dispatcher struct {
	Store   Store
	Session Session
	Sounds  Sounds
	Bedside Bedside
}

// Dispatch executes cmd. A persistence failure after an applied change is
// reported through Result.Warning rather than as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case AddAlarm:
		if d.Store == nil {
			return Result{}, unsupported(cmd)
		}

		a, err := d.Store.Add(ctx, c.Time)
		if a == nil {
			return Result{}, err
		}

		return applied(fmt.Sprintf("Alarm %s set for %s", a.ID, a.Time), err)
	case DeleteAlarm:
		if d.Store == nil {
			return Result{}, unsupported(cmd)
		}

		err := d.Store.Remove(ctx, c.ID)
		if errors.Is(err, domain.ErrAlarmNotFound) {
			return Result{}, err
		}

		return applied("Alarm "+c.ID+" deleted", err)
	case ToggleAlarm:
		if d.Store == nil {
			return Result{}, unsupported(cmd)
		}

		a, err := d.Store.ToggleActive(ctx, c.ID, c.Active)
		if a == nil {
			return Result{}, err
		}

		state := "off"
		if a.Active {
			state = "on, next " + a.Next.Format("Mon 15:04")
		}

		return applied(fmt.Sprintf("Alarm %s %s", a.ID, state), err)
	case ListAlarms:
		if d.Store == nil {
			return Result{}, unsupported(cmd)
		}

		return Result{Alarms: d.Store.List()}, nil
	case ListSounds:
		if d.Sounds == nil {
			return Result{}, unsupported(cmd)
		}

		return Result{Sounds: sound.Catalog(), Preferences: d.Sounds.Preferences()}, nil
	case SelectSound:
		if d.Sounds == nil {
			return Result{}, unsupported(cmd)
		}

		err := d.Sounds.Select(ctx, c.ID)
		if errors.Is(err, domain.ErrUnknownSound) {
			return Result{}, err
		}

		return applied("Alarm sound set to "+c.ID, err)
	case SetVolume:
		if d.Sounds == nil {
			return Result{}, unsupported(cmd)
		}

		v, err := d.Sounds.SetVolume(ctx, c.Volume)

		return applied(fmt.Sprintf("Volume set to %d%%", int(v*100+0.5)), err)
	case TestSound:
		if d.Sounds == nil {
			return Result{}, unsupported(cmd)
		}

		if err := d.Sounds.Test(ctx, c.ID); err != nil {
			return Result{}, err
		}

		return Result{Message: "Playing " + c.ID}, nil
	case EnterBedside:
		if d.Bedside == nil || d.Store == nil {
			return Result{}, unsupported(cmd)
		}

		if _, ok := d.Store.NextActive(); !ok {
			return Result{Message: "Set an active alarm before entering bedside mode"}, nil
		}

		d.Bedside.Enter()

		return Result{Message: "Bedside mode on"}, nil
	case ExitBedside:
		if d.Bedside == nil {
			return Result{}, unsupported(cmd)
		}

		d.Bedside.Exit()

		return Result{Message: "Bedside mode off"}, nil
	case ManualStop:
		if d.Session == nil {
			return Result{}, unsupported(cmd)
		}

		return applied("Alarm stopped", d.Session.ForceStop(ctx, c.AlarmID))
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknown, cmd)
	}
}

// applied builds the result of a state change, demoting a persistence failure to a warning.
func applied(message string, err error) (Result, error) {
	switch {
	case err == nil:
		return Result{Message: message, Changed: true}, nil
	case errors.Is(err, domain.ErrPersistenceFailed):
		return Result{Message: message, Warning: err.Error(), Changed: true}, nil
	default:
		return Result{}, err
	}
}

func unsupported(cmd Command) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, cmd.Name())
}
