package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goobox/sync-installer/internal/daemon"
	"github.com/goobox/sync-installer/internal/ipc"
)

// newStatusCmd creates the 'status' command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the installer daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			client := ipc.NewClientWithAddress(settings.IPC.Socket)
			status, err := client.GetStatus(cmd.Context())
			if err != nil {
				if pid := daemon.IsDaemonRunning(); pid != 0 {
					fmt.Printf("Installer daemon: PID %d, not answering on %s\n", pid, client.Address())
					return nil
				}
				fmt.Println("Installer daemon: not running")
				return nil
			}

			fmt.Println("Installer daemon: running")
			fmt.Printf("  Address:  %s\n", client.Address())
			fmt.Printf("  Version:  %s\n", status.Version)
			fmt.Printf("  PID:      %d\n", status.PID)
			fmt.Printf("  Started:  %s (up %s)\n", status.StartedAt.Format("2006-01-02 15:04:05"), status.Uptime)
			fmt.Printf("  Helpers:  %d running\n", status.RunningHelpers)
			return nil
		},
	}
}
