// Package config provides configuration management for the Goobox installer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultAppName is the application name used for the default sync folder
// and the per-user config directory.
const DefaultAppName = "Goobox"

// ConfigDirectory returns the per-user directory holding installer.conf,
// sync.conf, the PID file and the IPC socket.
//
// Locations:
//   - Windows: %APPDATA%\Goobox
//   - Unix: ~/.config/goobox
func ConfigDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", errors.New("neither APPDATA nor USERPROFILE environment variable set")
			}
			appData = filepath.Join(userProfile, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Goobox"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "goobox"), nil
}

// LogDirectory returns the directory the daemon log file is written to.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\Goobox\logs
//   - Unix: ~/.config/goobox/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "goobox-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "Goobox", "logs")
	}

	dir, err := ConfigDirectory()
	if err != nil {
		return filepath.Join(os.TempDir(), "goobox-logs")
	}
	return filepath.Join(dir, "logs")
}

// EnsureLogDirectory creates the log directory if it doesn't exist.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}

// DefaultSyncFolder returns <home>/<appName>.
func DefaultSyncFolder(appName string) string {
	if appName == "" {
		appName = DefaultAppName
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, appName)
}

// EnsureSyncFolder creates the sync folder when it is missing. It returns
// true when the folder had to be created.
func EnsureSyncFolder(path string) (bool, error) {
	if path == "" {
		return false, ErrMissingSyncFolder
	}

	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("sync folder %s exists but is not a directory", path)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat sync folder: %w", err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return false, fmt.Errorf("failed to create sync folder: %w", err)
	}
	return true, nil
}

func defaultPath(name string) (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// writeAtomic writes data through a temporary file and renames it into place
// with owner-only permissions.
func writeAtomic(path string, save func(tmpPath string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := save(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename config file: %w", err)
	}
	return nil
}
