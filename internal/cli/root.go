// Package cli provides the command-line interface for goobox-installer.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goobox/sync-installer/internal/config"
	"github.com/goobox/sync-installer/internal/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	debug   bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by main package at startup
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command. Without a subcommand it runs the
// setup wizard.
func NewRootCmd() *cobra.Command {
	var opts wizardOptions

	rootCmd := &cobra.Command{
		Use:   "goobox-installer",
		Short: "Goobox sync installer",
		Long: `Goobox Installer ` + Version + ` - Built: ` + BuildTime + `
Sets up Goobox: picks the storage network (Storj, Sia or both), signs in or
creates the accounts and chooses the folder to sync.

Running goobox-installer without a command opens the setup wizard. The
wizard starts the installer daemon in the background when it is not already
running.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(GetContext(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Installer configuration file (default: installer.conf in the config directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Flags().StringVar(&opts.screen, "screen", "", "Open the wizard on this screen (e.g. storj-login, sia-wallet)")
	rootCmd.Flags().StringVar(&opts.syncFolder, "sync-folder", "", "Default sync folder (default: <home>/<app name>)")
	rootCmd.Flags().BoolVar(&opts.noDaemon, "no-daemon", false, "Do not start the installer daemon")

	rootCmd.Version = Version + " (" + BuildTime + ")"
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				GetLogger().Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.ExecuteContext(rootContext)

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newDaemonCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadSettings reads and validates installer.conf and applies its log level
// unless --verbose or --debug was given.
func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettings(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid installer configuration: %w", err)
	}
	if !verbose && !debug {
		logging.SetGlobalLevel(logging.ParseLevel(settings.Log.Level))
	}
	return settings, nil
}
