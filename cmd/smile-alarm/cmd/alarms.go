package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/smile-alarm/internal/command"
	domain "github.com/oshokin/smile-alarm/internal/domain/alarm"
)

var (
	// addCmd creates an alarm.
	addCmd = &cobra.Command{
		Use:   "add HH:MM",
		Short: "Add an alarm.",
		Long:  "Adds an active alarm that rings every day at the given 24-hour local time.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := domain.ParseTimeOfDay(args[0])
			if err != nil {
				return err
			}

			return runOnce(cmd, command.AddAlarm{Time: at})
		},
	}

	// deleteCmd removes an alarm.
	deleteCmd = &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an alarm.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, command.DeleteAlarm{ID: args[0]})
		},
	}

	// toggleCmd arms or disarms an alarm.
	toggleCmd = &cobra.Command{
		Use:       "toggle ID on|off",
		Short:     "Arm or disarm an alarm.",
		Args:      cobra.ExactArgs(2), //nolint:mnd // id and state.
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var active bool

			switch strings.ToLower(args[1]) {
			case "on":
				active = true
			case "off":
				active = false
			default:
				return fmt.Errorf("%w: toggle %s on|off", command.ErrUsage, args[0])
			}

			return runOnce(cmd, command.ToggleAlarm{ID: args[0], Active: active})
		},
	}

	// listCmd shows the alarms.
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List alarms.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, command.ListAlarms{})
		},
	}

	// stopCmd stops the ringing alarm through the daemon.
	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the ringing alarm without a smile.",
		Long:  "Asks the running daemon to stop whichever alarm is ringing and disarm it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, command.ManualStop{})
		},
	}
)
