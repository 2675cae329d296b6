package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smile-alarm/internal/service/daemon"
)

var (
	// bedside starts the daemon in passive display mode.
	bedside bool
	// interactive reads commands from standard input.
	interactive bool

	// runCmd starts the alarm daemon.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the alarm daemon.",
		Long: `Starts the daemon that watches the clock, rings due alarms and stops them
once a sustained smile is confirmed.

Only one daemon may run per pid file. Other smile-alarm commands signal it to
reload alarms and preferences or to stop a ringing alarm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &daemon.Options{
				ConfigPath:  configPath,
				Bedside:     bedside,
				Interactive: interactive,
				In:          cmd.InOrStdin(),
				Out:         cmd.OutOrStdout(),
			}

			return daemon.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	runCmd.Flags().BoolVarP(&bedside, "bedside", "b", false, "start in bedside display mode")
	runCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read commands from standard input")
}
