package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goobox/sync-installer/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect installer configuration",
		Long: `Configuration commands for goobox-installer.

Commands:
  show  - Display installer settings and the saved sync configuration
  init  - Write installer.conf with default values
  path  - Show configuration file paths`,
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			fmt.Println("Installer settings:")
			fmt.Printf("  App name:        %s\n", settings.App.Name)
			fmt.Printf("  Main command:    %s\n", orNone(settings.App.MainCommand))
			fmt.Printf("  IPC address:     %s\n", orNone(settings.IPC.Socket))
			fmt.Printf("  Dependency dir:  %s\n", orNone(settings.Dependency.Dir))
			fmt.Printf("  Notifications:   %t\n", settings.App.Notify)
			fmt.Printf("  Log level:       %s\n", settings.Log.Level)
			fmt.Println()

			fmt.Println("Helpers:")
			fmt.Printf("  check-dependency: %s\n", orNone(settings.Dependency.InstallCommand))
			fmt.Printf("  login:            %s\n", orNone(settings.Helpers.Login))
			fmt.Printf("  register:         %s\n", orNone(settings.Helpers.Register))
			fmt.Printf("  request-wallet:   %s\n", orNone(settings.Helpers.RequestWallet))
			fmt.Printf("  stop-sync-apps:   %s\n", orNone(settings.Helpers.StopSyncApps))
			fmt.Printf("  sync-app:         %s\n", orNone(settings.Helpers.SyncApp))
			fmt.Println()

			syncPath, err := config.DefaultSyncConfigPath()
			if err != nil {
				return err
			}
			record, err := config.LoadSyncConfig(syncPath)
			if err != nil {
				return err
			}

			fmt.Println("Sync configuration:")
			if !record.Installed {
				fmt.Println("  Not installed (wizard not finished)")
				return nil
			}
			fmt.Printf("  Folder:  %s\n", record.SyncFolder)
			fmt.Printf("  Storj:   %t\n", record.Storj)
			fmt.Printf("  Sia:     %t\n", record.Sia)
			return nil
		},
	}
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write installer.conf with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultSettingsPath()
				if err != nil {
					return err
				}
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", path)
					fmt.Println("Use --force to overwrite.")
					return nil
				}
			}

			if err := config.SaveSettings(config.NewSettings(), path); err != nil {
				return fmt.Errorf("failed to write configuration: %w", err)
			}
			fmt.Printf("Configuration written to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			settingsPath, err := config.DefaultSettingsPath()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				settingsPath = cfgFile
			}
			syncPath, err := config.DefaultSyncConfigPath()
			if err != nil {
				return err
			}

			fmt.Printf("Settings:     %s\n", settingsPath)
			fmt.Printf("Sync config:  %s\n", syncPath)
			fmt.Printf("Logs:         %s\n", config.LogDirectory())
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
