package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// SyncConfig is the record the wizard persists when a finish screen is
// reached. The main application reads it on startup.
//
//	[sync]
//	folder = /home/me/Goobox
//	installed = true
//	storj = true
//	sia = false
type SyncConfig struct {
	SyncFolder string `ini:"folder"`
	Installed  bool   `ini:"installed"`
	Storj      bool   `ini:"storj"`
	Sia        bool   `ini:"sia"`
}

// SyncConfig validation errors
var (
	ErrMissingSyncFolder  = errors.New("sync folder is required")
	ErrRelativeSyncFolder = errors.New("sync folder must be an absolute path")
	ErrNoBackendSelected  = errors.New("at least one of storj or sia must be selected")
)

// DefaultSyncConfigPath returns the default path for sync.conf.
func DefaultSyncConfigPath() (string, error) {
	return defaultPath("sync.conf")
}

// LoadSyncConfig reads sync.conf. A missing file yields a zero record
// (Installed=false) and no error.
func LoadSyncConfig(path string) (*SyncConfig, error) {
	cfg := &SyncConfig{}

	if path == "" {
		var err error
		path, err = DefaultSyncConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync.conf: %w", err)
	}

	section := iniFile.Section("sync")
	cfg.SyncFolder = section.Key("folder").String()
	cfg.Installed = section.Key("installed").MustBool(false)
	cfg.Storj = section.Key("storj").MustBool(false)
	cfg.Sia = section.Key("sia").MustBool(false)

	return cfg, nil
}

// SaveSyncConfig writes sync.conf. If path is empty, uses the default path.
func SaveSyncConfig(cfg *SyncConfig, path string) error {
	if path == "" {
		var err error
		path, err = DefaultSyncConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	iniFile := ini.Empty()
	section, err := iniFile.NewSection("sync")
	if err != nil {
		return fmt.Errorf("failed to create sync section: %w", err)
	}
	section.Key("folder").SetValue(cfg.SyncFolder)
	section.Key("installed").SetValue(fmt.Sprintf("%t", cfg.Installed))
	section.Key("storj").SetValue(fmt.Sprintf("%t", cfg.Storj))
	section.Key("sia").SetValue(fmt.Sprintf("%t", cfg.Sia))

	return writeAtomic(path, iniFile.SaveTo)
}

// Validate checks the record is complete enough for the main application.
func (cfg *SyncConfig) Validate() error {
	if strings.TrimSpace(cfg.SyncFolder) == "" {
		return ErrMissingSyncFolder
	}
	if !filepath.IsAbs(cfg.SyncFolder) {
		return ErrRelativeSyncFolder
	}
	if !cfg.Storj && !cfg.Sia {
		return ErrNoBackendSelected
	}
	return nil
}

// SyncConfigFile persists SyncConfig records to a fixed path. The wizard's
// save-config step goes through it.
type SyncConfigFile struct {
	mu   sync.Mutex
	path string
}

// NewSyncConfigFile returns a store for path; empty path means the default.
func NewSyncConfigFile(path string) *SyncConfigFile {
	return &SyncConfigFile{path: path}
}

// Path returns the configured path, resolving the default if needed.
func (f *SyncConfigFile) Path() string {
	if f.path != "" {
		return f.path
	}
	p, _ := DefaultSyncConfigPath()
	return p
}

// Save validates and writes cfg.
func (f *SyncConfigFile) Save(cfg SyncConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid sync config: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return SaveSyncConfig(&cfg, f.path)
}

// Load reads the record.
func (f *SyncConfigFile) Load() (*SyncConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return LoadSyncConfig(f.path)
}
