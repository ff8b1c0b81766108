package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goobox/sync-installer/internal/config"
	"github.com/goobox/sync-installer/internal/ipc"
	"github.com/goobox/sync-installer/internal/logging"
)

const syncAppName = "sync-app"

// ErrHelperNotConfigured is returned for requests whose helper command is empty.
var ErrHelperNotConfigured = errors.New("no helper configured")

// Handler implements ipc.ServiceHandler by delegating to helper programs.
type Handler struct {
	settings  *config.Settings
	version   string
	logger    *logging.Logger
	helpers   *helperRunner
	startedAt time.Time
	shutdown  func() error
}

// NewHandler creates a handler. shutdown is called when a shutdown request
// has been answered.
func NewHandler(settings *config.Settings, version string, logger *logging.Logger, shutdown func() error) *Handler {
	return &Handler{
		settings:  settings,
		version:   version,
		logger:    logger,
		helpers:   newHelperRunner(logger),
		startedAt: time.Now(),
		shutdown:  shutdown,
	}
}

// CheckDependency makes sure the runtime dependency is installed. When the
// dependency directory exists nothing is done; otherwise the install
// command runs.
func (h *Handler) CheckDependency(ctx context.Context) (*ipc.Result, error) {
	dep := h.settings.Dependency

	if dep.Dir != "" {
		if info, err := os.Stat(dep.Dir); err == nil && info.IsDir() {
			h.logger.Debug().Str("dir", dep.Dir).Msg("Dependency already installed")
			return &ipc.Result{OK: true}, nil
		}
	}

	argv := config.Command(dep.InstallCommand)
	if argv == nil {
		if dep.Dir == "" {
			// Nothing to check.
			return &ipc.Result{OK: true}, nil
		}
		return &ipc.Result{OK: false, Message: fmt.Sprintf("dependency missing at %s and no installer configured", dep.Dir)}, nil
	}

	h.logger.Info().Str("dir", dep.Dir).Strs("command", argv).Msg("Installing dependency")

	var result ipc.Result
	if err := h.helpers.run(ctx, "check-dependency", argv, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login verifies Storj credentials with the login helper.
func (h *Handler) Login(ctx context.Context, creds ipc.Credentials) (*ipc.LoginResult, error) {
	var result ipc.LoginResult
	if err := h.runConfigured(ctx, "login", h.settings.Helpers.Login, creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates a Storj account with the register helper.
func (h *Handler) Register(ctx context.Context, reg ipc.Registration) (*ipc.RegisterResult, error) {
	var result ipc.RegisterResult
	if err := h.runConfigured(ctx, "register", h.settings.Helpers.Register, reg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RequestWallet asks the wallet helper for a new Sia wallet.
func (h *Handler) RequestWallet(ctx context.Context) (*ipc.WalletResult, error) {
	var result ipc.WalletResult
	if err := h.runConfigured(ctx, "request-wallet", h.settings.Helpers.RequestWallet, nil, &result); err != nil {
		return nil, err
	}
	if result.OK && (result.Address == "" || result.Seed == "") {
		return nil, errors.New("wallet helper returned an incomplete wallet")
	}
	if result.OK {
		if err := h.startSyncApp(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// startSyncApp starts the configured sync app so it is running by the time
// the wizard finishes.
func (h *Handler) startSyncApp() error {
	argv := config.Command(h.settings.Helpers.SyncApp)
	if argv == nil {
		return nil
	}
	pid, err := h.helpers.start(syncAppName, argv)
	if err != nil {
		return err
	}
	if pid != 0 {
		h.logger.Info().Strs("command", argv).Int("pid", pid).Msg("Started sync app")
	}
	return nil
}

// StopSyncApps terminates the sync app and any helper still running, then
// runs the stop helper if one is configured.
func (h *Handler) StopSyncApps(ctx context.Context) (*ipc.Result, error) {
	stopped := h.stopHelpers()
	h.logger.Info().Int("stopped", stopped).Msg("Stopping sync apps")

	argv := config.Command(h.settings.Helpers.StopSyncApps)
	if argv == nil {
		return &ipc.Result{OK: true}, nil
	}

	var result ipc.Result
	if err := h.helpers.run(ctx, "stop-sync-apps", argv, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStatus returns the current daemon status.
func (h *Handler) GetStatus() *ipc.StatusData {
	return &ipc.StatusData{
		Version:        h.version,
		PID:            os.Getpid(),
		StartedAt:      h.startedAt,
		Uptime:         time.Since(h.startedAt).Round(time.Second).String(),
		RunningHelpers: h.helpers.count(),
	}
}

// Shutdown stops the daemon.
func (h *Handler) Shutdown() error {
	if h.shutdown == nil {
		return nil
	}
	return h.shutdown()
}

func (h *Handler) runConfigured(ctx context.Context, name, command string, payload, result interface{}) error {
	argv := config.Command(command)
	if argv == nil {
		return fmt.Errorf("%w for %s", ErrHelperNotConfigured, name)
	}
	return h.helpers.run(ctx, name, argv, payload, result)
}

func (h *Handler) stopHelpers() int {
	return h.helpers.stopAll()
}
