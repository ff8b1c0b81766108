// Package daemon is the installer's background process. It owns the IPC
// endpoint the wizard talks to and carries out backend requests by running
// the configured helper programs.
package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/goobox/sync-installer/internal/config"
	"github.com/goobox/sync-installer/internal/ipc"
	"github.com/goobox/sync-installer/internal/logging"
)

// Daemon hosts the IPC server until it is stopped or asked to shut down.
type Daemon struct {
	settings *config.Settings
	address  string
	logger   *logging.Logger
	handler  *Handler
	server   *ipc.Server

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New creates a daemon for settings listening on address (empty means the
// default socket or pipe).
func New(settings *config.Settings, address, version string, logger *logging.Logger) *Daemon {
	d := &Daemon{
		settings:   settings,
		address:    address,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
	d.handler = NewHandler(settings, version, logger.Named("handler"), d.requestShutdown)
	d.server = ipc.NewServerWithAddress(d.handler, logger.Named("ipc"), address)
	return d
}

// Handler returns the request handler.
func (d *Daemon) Handler() *Handler {
	return d.handler
}

// Address returns the IPC endpoint.
func (d *Daemon) Address() string {
	return d.server.Address()
}

// Run starts the IPC server and blocks until ctx is cancelled or a shutdown
// request arrives. Helper processes still running are stopped on the way out.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}

	if err := WritePIDFile(); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to write PID file")
	}
	defer RemovePIDFile()

	d.logger.Info().
		Str("address", d.server.Address()).
		Str("app", d.settings.App.Name).
		Msg("Installer daemon running")

	select {
	case <-ctx.Done():
		d.logger.Info().Msg("Daemon context cancelled")
	case <-d.shutdownCh:
		d.logger.Info().Msg("Shutdown requested over IPC")
	}

	d.server.Stop()

	if stopped := d.handler.stopHelpers(); stopped > 0 {
		d.logger.Info().Int("helpers", stopped).Msg("Stopped running helpers")
	}

	return nil
}

func (d *Daemon) requestShutdown() error {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
	return nil
}
