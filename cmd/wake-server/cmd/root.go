package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wake-engine/internal/config"
	"github.com/oshokin/wake-engine/internal/service/daemon"
	"github.com/oshokin/wake-engine/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// controlAddress overrides the control API listen address.
	controlAddress string
	// companionAddress overrides the companion hub listen address.
	companionAddress string
	// databasePath overrides the SQLite database location.
	databasePath string

	// rootCmd represents the base command for running the wake engine.
	rootCmd = &cobra.Command{
		Use:   "wake-server",
		Short: "Run the wake engine daemon.",
		Long: `Starts the wake engine: the alarm and countdown scheduler, the ringing
dispatcher, the companion device hub and the JSON-RPC control API.

Alarms, countdowns and the wake history are persisted to a SQLite database
and re-armed automatically after a restart. Companion devices connect to
the WebSocket hub; the wake-ctl CLI talks to the control API.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return daemon.Run(ctx, &daemon.Options{
				ConfigPath:       configPath,
				ControlAddress:   controlAddress,
				CompanionAddress: companionAddress,
				DatabasePath:     databasePath,
			})
		},
	}
)

// Execute runs the wake-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&controlAddress, "control-addr", "", "listen address for the control API")
	rootCmd.Flags().StringVar(&companionAddress, "companion-addr", "", "listen address for the companion hub")
	rootCmd.Flags().StringVar(&databasePath, "database", "", "path to the SQLite database")
}
