package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"
)

// Settings is the installer's own configuration, read by both the wizard and
// the daemon.
//
// Config file location:
//   - Windows: %APPDATA%\Goobox\installer.conf
//   - Unix: ~/.config/goobox/installer.conf
//
// INI format:
//
//	[app]
//	name = Goobox
//	main_command = goobox
//	notify = true
//
//	[ipc]
//	socket = /home/me/.config/goobox/installer.sock
//
//	[dependency]
//	dir = /home/me/.config/goobox/jre
//	install_command = goobox-helper install-jre
//
//	[helpers]
//	login = goobox-sync-storj login
//	register = goobox-sync-storj register
//	request_wallet = goobox-sync-sia wallet
//	stop_sync_apps = goobox-sync-sia stop
//	sync_app = goobox-sync-sia run --reset-db
//
//	[log]
//	level = info
//	file =
type Settings struct {
	App        AppSettings
	IPC        IPCSettings
	Dependency DependencySettings
	Helpers    HelperSettings
	Log        LogSettings
}

// AppSettings names the application being installed.
type AppSettings struct {
	// Name is used for the default sync folder (<home>/<name>).
	Name string `ini:"name"`

	// MainCommand is started once the wizard closes with a finished install.
	MainCommand string `ini:"main_command"`

	// Notify enables the desktop notification sent after the wizard closes.
	Notify bool `ini:"notify"`
}

// IPCSettings configures the wizard/daemon channel.
type IPCSettings struct {
	// Socket overrides the default socket path (Unix) or pipe name (Windows).
	Socket string `ini:"socket"`
}

// DependencySettings describes the runtime dependency checked on the welcome
// screen. When Dir exists nothing is installed.
type DependencySettings struct {
	Dir            string `ini:"dir"`
	InstallCommand string `ini:"install_command"`
}

// HelperSettings holds the commands the daemon runs for backend requests.
// Each helper receives the JSON payload on stdin and prints a JSON result.
type HelperSettings struct {
	Login         string `ini:"login"`
	Register      string `ini:"register"`
	RequestWallet string `ini:"request_wallet"`
	StopSyncApps  string `ini:"stop_sync_apps"`

	// SyncApp is started after a wallet is created and runs until
	// stop-sync-apps or the main application takes over.
	SyncApp string `ini:"sync_app"`
}

// LogSettings controls daemon logging.
type LogSettings struct {
	Level string `ini:"level"`
	// File overrides <LogDirectory>/daemon.log.
	File string `ini:"file"`
}

// Settings validation errors
var (
	ErrMissingAppName  = errors.New("app name is required")
	ErrInvalidLogLevel = errors.New("log level must be one of trace, debug, info, warn, error")
)

// DefaultSettingsPath returns the default path for installer.conf.
func DefaultSettingsPath() (string, error) {
	return defaultPath("installer.conf")
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		App: AppSettings{
			Name:        DefaultAppName,
			MainCommand: "goobox",
			Notify:      true,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// LoadSettings loads installer.conf. If path is empty, uses the default path.
// A missing file yields the defaults and no error.
func LoadSettings(path string) (*Settings, error) {
	cfg := NewSettings()

	if path == "" {
		var err error
		path, err = DefaultSettingsPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load installer.conf: %w", err)
	}

	appSection := iniFile.Section("app")
	cfg.App.Name = appSection.Key("name").MustString(DefaultAppName)
	cfg.App.MainCommand = appSection.Key("main_command").MustString("goobox")
	cfg.App.Notify = appSection.Key("notify").MustBool(true)

	cfg.IPC.Socket = iniFile.Section("ipc").Key("socket").String()

	depSection := iniFile.Section("dependency")
	cfg.Dependency.Dir = depSection.Key("dir").String()
	cfg.Dependency.InstallCommand = depSection.Key("install_command").String()

	if err := iniFile.Section("helpers").MapTo(&cfg.Helpers); err != nil {
		return nil, fmt.Errorf("failed to parse helpers section: %w", err)
	}

	logSection := iniFile.Section("log")
	cfg.Log.Level = logSection.Key("level").MustString("info")
	cfg.Log.File = logSection.Key("file").String()

	return cfg, nil
}

// SaveSettings writes installer.conf. If path is empty, uses the default path.
func SaveSettings(cfg *Settings, path string) error {
	if path == "" {
		var err error
		path, err = DefaultSettingsPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	iniFile := ini.Empty()

	appSection, err := iniFile.NewSection("app")
	if err != nil {
		return fmt.Errorf("failed to create app section: %w", err)
	}
	appSection.Key("name").SetValue(cfg.App.Name)
	appSection.Key("main_command").SetValue(cfg.App.MainCommand)
	appSection.Key("notify").SetValue(strconv.FormatBool(cfg.App.Notify))

	ipcSection, err := iniFile.NewSection("ipc")
	if err != nil {
		return fmt.Errorf("failed to create ipc section: %w", err)
	}
	ipcSection.Key("socket").SetValue(cfg.IPC.Socket)

	depSection, err := iniFile.NewSection("dependency")
	if err != nil {
		return fmt.Errorf("failed to create dependency section: %w", err)
	}
	depSection.Key("dir").SetValue(cfg.Dependency.Dir)
	depSection.Key("install_command").SetValue(cfg.Dependency.InstallCommand)

	helpersSection, err := iniFile.NewSection("helpers")
	if err != nil {
		return fmt.Errorf("failed to create helpers section: %w", err)
	}
	if err := helpersSection.ReflectFrom(&cfg.Helpers); err != nil {
		return fmt.Errorf("failed to write helpers section: %w", err)
	}

	logSection, err := iniFile.NewSection("log")
	if err != nil {
		return fmt.Errorf("failed to create log section: %w", err)
	}
	logSection.Key("level").SetValue(cfg.Log.Level)
	logSection.Key("file").SetValue(cfg.Log.File)

	return writeAtomic(path, iniFile.SaveTo)
}

// Validate checks if the settings are usable.
func (cfg *Settings) Validate() error {
	if strings.TrimSpace(cfg.App.Name) == "" {
		return ErrMissingAppName
	}
	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			return ErrInvalidLogLevel
		}
	}
	return nil
}

// SyncFolder returns the default sync folder for the configured app name.
func (cfg *Settings) SyncFolder() string {
	return DefaultSyncFolder(cfg.App.Name)
}

// Command splits a configured command line into program and arguments.
// It returns nil for an empty command.
func Command(line string) []string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
