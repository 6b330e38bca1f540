package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wake-engine/internal/config"
	"github.com/oshokin/wake-engine/internal/service/client"
	"github.com/oshokin/wake-engine/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides the control API address from the settings file.
	serverAddress string

	// rootCmd represents the base command for controlling the wake engine.
	rootCmd = &cobra.Command{
		Use:   "wake-ctl",
		Short: "Control a running wake engine.",
		Long: `Talks to the wake-server control API to manage alarms, start countdown
timers, inspect the wake history and drive ringing sessions.

The server address is read from the settings file unless overridden with
the --server flag.`,
	}
)

// Execute runs the wake-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "control API address (host:port)")

	rootCmd.AddCommand(
		newAlarmCommand(),
		newTimerCommand(),
		newSessionCommand(),
		newHistoryCommand(),
		newOnBodyCommand(),
	)
}

// commandContext returns a context cancelled on SIGTERM/SIGINT.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// dialDaemon resolves the control address and connects to the daemon.
func dialDaemon(ctx context.Context) (*client.Client, error) {
	address := serverAddress

	if address == "" {
		settings, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}

		address = settings.ControlAddress
	}

	return client.Dial(ctx, address)
}
