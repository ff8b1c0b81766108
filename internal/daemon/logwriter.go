package daemon

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/goobox/sync-installer/internal/config"
)

// LogConfig configures the daemon log output.
type LogConfig struct {
	// File is the path of the rotated log file. Empty disables file logging.
	File string

	// Console also writes human-readable lines to stderr. Used when the
	// daemon runs in the foreground.
	Console bool
}

// DefaultLogFile returns <LogDirectory>/daemon.log.
func DefaultLogFile() string {
	return filepath.Join(config.LogDirectory(), "daemon.log")
}

// LogWriter fans zerolog's JSON lines out to a rotated file and, optionally,
// the console.
type LogWriter struct {
	mu      sync.Mutex
	console io.Writer
	file    *lumberjack.Logger
}

// NewLogWriter creates a log writer for cfg.
func NewLogWriter(cfg LogConfig) (*LogWriter, error) {
	w := &LogWriter{}

	if cfg.Console {
		w.console = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
			return nil, err
		}
		w.file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	return w, nil
}

// Write implements io.Writer.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.console != nil {
		w.console.Write(p)
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close closes the log file.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
