package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goobox/sync-installer/internal/daemon"
	"github.com/goobox/sync-installer/internal/ipc"
	"github.com/goobox/sync-installer/internal/logging"
)

// newDaemonCmd creates the 'daemon' command.
func newDaemonCmd() *cobra.Command {
	var (
		logFile string
		console bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the installer daemon",
		Long: `Run the installer daemon in the foreground.

The daemon listens on the installer socket (named pipe on Windows) and
carries out the wizard's backend requests by running the helper commands
from the [dependency] and [helpers] sections of installer.conf.

The wizard starts the daemon on its own; running it by hand is useful
for debugging helpers:
  goobox-installer daemon --console -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			client := ipc.NewClientWithAddress(settings.IPC.Socket)
			if client.IsDaemonRunning(cmd.Context()) {
				return fmt.Errorf("installer daemon already listening on %s", client.Address())
			}

			if logFile == "" {
				logFile = settings.Log.File
			}
			if logFile == "" {
				logFile = daemon.DefaultLogFile()
			}

			w, err := daemon.NewLogWriter(daemon.LogConfig{
				File:    logFile,
				Console: console || !daemon.IsDaemonChild(),
			})
			if err != nil {
				return fmt.Errorf("failed to open daemon log: %w", err)
			}
			defer w.Close()

			dlog := logging.NewLogger("daemon", w)
			dlog.Info().
				Str("version", Version).
				Int("pid", os.Getpid()).
				Str("log_file", logFile).
				Msg("Starting installer daemon")

			d := daemon.New(settings, settings.IPC.Socket, Version, dlog)
			return d.Run(GetContext())
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Daemon log file (default: daemon.log in the log directory)")
	cmd.Flags().BoolVar(&console, "console", false, "Also log to stderr")

	cmd.AddCommand(newDaemonStopCmd())

	return cmd
}

// newDaemonStopCmd creates the 'daemon stop' command.
func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask a running installer daemon to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			client := ipc.NewClientWithAddress(settings.IPC.Socket)
			if !client.IsDaemonRunning(cmd.Context()) {
				fmt.Println("Installer daemon is not running")
				return nil
			}
			if err := client.Shutdown(cmd.Context()); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Println("Installer daemon stopping")
			return nil
		},
	}
}
