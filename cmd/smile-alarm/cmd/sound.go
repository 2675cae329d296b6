package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/smile-alarm/internal/command"
)

var (
	// soundCmd groups the sound preference commands.
	soundCmd = &cobra.Command{
		Use:   "sound",
		Short: "Manage the alarm sound.",
	}

	// soundListCmd shows the sound catalog.
	soundListCmd = &cobra.Command{
		Use:   "list",
		Short: "List available sounds.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, command.ListSounds{})
		},
	}

	// soundSelectCmd chooses the alarm sound.
	soundSelectCmd = &cobra.Command{
		Use:   "select ID",
		Short: "Select the alarm sound.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, command.SelectSound{ID: args[0]})
		},
	}

	// soundVolumeCmd sets the playback volume.
	soundVolumeCmd = &cobra.Command{
		Use:   "volume 0..1",
		Short: "Set the playback volume.",
		Long:  "Sets the playback volume. Values outside 0..1 are clamped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("%w: volume 0..1", command.ErrUsage)
			}

			return runOnce(cmd, command.SetVolume{Volume: volume})
		},
	}

	// soundTestCmd previews a sound.
	soundTestCmd = &cobra.Command{
		Use:   "test ID",
		Short: "Play a short preview of a sound.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, command.TestSound{ID: args[0]})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	soundCmd.AddCommand(soundListCmd, soundSelectCmd, soundVolumeCmd, soundTestCmd)
}
