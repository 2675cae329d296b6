package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
)

var (
	// ErrEmpty is returned for a blank line.
	ErrEmpty = errors.New("empty command")
	// ErrUnknown is returned for an unrecognised keyword.
	ErrUnknown = errors.New("unknown command")
	// ErrUsage is returned for wrong arguments.
	ErrUsage = errors.New("usage")
)

// Usage lists the accepted commands.
const Usage = `commands:
  add HH:MM             add an alarm
  delete ID             delete an alarm
  toggle ID on|off      arm or disarm an alarm
  list                  list alarms
  sounds                list sounds
  sound ID              select the alarm sound
  volume 0..1           set the volume
  test ID               preview a sound
  bedside on|off        passive clock display
  stop [ID]             stop the ringing alarm without a smile`

// Parse turns one line of input into a Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrEmpty
	}

	keyword, args := strings.ToLower(fields[0]), fields[1:]

	switch keyword {
	case "add":
		if len(args) != 1 {
			return nil, usage("add HH:MM")
		}

		tod, err := domain.ParseTimeOfDay(args[0])
		if err != nil {
			return nil, err
		}

		return AddAlarm{Time: tod}, nil
	case "delete", "remove", "rm":
		if len(args) != 1 {
			return nil, usage("delete ID")
		}

		return DeleteAlarm{ID: args[0]}, nil
	case "toggle":
		if len(args) != 2 { //nolint:mnd // ID and state.
			return nil, usage("toggle ID on|off")
		}

		active, err := parseSwitch(args[1])
		if err != nil {
			return nil, usage("toggle ID on|off")
		}

		return ToggleAlarm{ID: args[0], Active: active}, nil
	case "list", "ls":
		return ListAlarms{}, nil
	case "sounds":
		return ListSounds{}, nil
	case "sound":
		if len(args) != 1 {
			return nil, usage("sound ID")
		}

		return SelectSound{ID: args[0]}, nil
	case "volume":
		if len(args) != 1 {
			return nil, usage("volume 0..1")
		}

		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, usage("volume 0..1")
		}

		return SetVolume{Volume: v}, nil
	case "test":
		if len(args) != 1 {
			return nil, usage("test ID")
		}

		return TestSound{ID: args[0]}, nil
	case "bedside":
		if len(args) != 1 {
			return nil, usage("bedside on|off")
		}

		on, err := parseSwitch(args[0])
		if err != nil {
			return nil, usage("bedside on|off")
		}

		if on {
			return EnterBedside{}, nil
		}

		return ExitBedside{}, nil
	case "stop":
		if len(args) > 1 {
			return nil, usage("stop [ID]")
		}

		var id string
		if len(args) == 1 {
			id = args[0]
		}

		return ManualStop{AlarmID: id}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknown, keyword)
	}
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "enable":
		return true, nil
	case "off", "false", "0", "disable":
		return false, nil
	default:
		return false, fmt.Errorf("invalid switch %q", s)
	}
}

func usage(text string) error {
	return fmt.Errorf("%w: %s", ErrUsage, text)
}
