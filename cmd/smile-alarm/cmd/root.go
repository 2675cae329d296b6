package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smile-alarm/internal/command"
	"github.com/oshokin/smile-alarm/internal/config"
	"github.com/oshokin/smile-alarm/internal/service/client"
	"github.com/oshokin/smile-alarm/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command of the smile alarm.
	rootCmd = &cobra.Command{
		Use:   "smile-alarm",
		Short: "Wake-up alarm that only stops when you smile.",
		Long: `A wake-up alarm clock that keeps ringing until the camera sees you smile
continuously for two seconds.

Run "smile-alarm run" to start the daemon. The other commands edit alarms and
sound preferences and ask a running daemon to reload them.`,
		SilenceUsage: true,
	}
)

// Execute runs the smile-alarm CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runOnce executes a single command against the shared files.
func runOnce(cmd *cobra.Command, c command.Command) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, &client.Options{
		ConfigPath: configPath,
		Command:    c,
		Out:        cmd.OutOrStdout(),
	})
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")

	rootCmd.AddCommand(runCmd, addCmd, deleteCmd, toggleCmd, listCmd, soundCmd, stopCmd)
}
