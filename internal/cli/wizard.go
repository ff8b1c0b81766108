package cli

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/goobox/sync-installer/internal/config"
	"github.com/goobox/sync-installer/internal/daemon"
	"github.com/goobox/sync-installer/internal/events"
	"github.com/goobox/sync-installer/internal/gateway"
	"github.com/goobox/sync-installer/internal/gui"
	"github.com/goobox/sync-installer/internal/ipc"
	"github.com/goobox/sync-installer/internal/notify"
	"github.com/goobox/sync-installer/internal/pathutil"
	"github.com/goobox/sync-installer/internal/wizard"
)

// daemonStartTimeout bounds how long the wizard waits for a spawned daemon
// to accept connections.
const daemonStartTimeout = 5 * time.Second

// Hand-off actions reported on the event bus.
const (
	actionStartMainApp = "start-main-app"
	actionStopSyncApps = "stop-sync-apps"
)

type wizardOptions struct {
	screen     string
	syncFolder string
	noDaemon   bool
}

// runWizard opens the setup wizard and performs the hand-off once its window
// is closed.
func runWizard(ctx context.Context, opts wizardOptions) error {
	log := GetLogger()

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	screen, err := wizard.ParseScreen(opts.screen)
	if err != nil {
		return err
	}

	if err := gui.CheckDisplay(); err != nil {
		return err
	}

	folder := opts.syncFolder
	if folder == "" {
		folder = settings.SyncFolder()
	}
	if resolved, err := pathutil.ResolveFolder(folder); err == nil {
		folder = resolved
	}
	if created, err := config.EnsureSyncFolder(folder); err != nil {
		log.Warn().Err(err).Str("folder", folder).Msg("Could not create sync folder")
	} else if created {
		log.Info().Str("folder", folder).Msg("Created sync folder")
	}

	address := settings.IPC.Socket
	if address == "" {
		address = ipc.DefaultAddress()
	}
	if !opts.noDaemon {
		if err := ensureDaemon(ctx, address); err != nil {
			// The wizard still opens; backend requests fail until a daemon is up.
			log.Warn().Err(err).Msg("Installer daemon not available")
		}
	}

	syncPath, err := config.DefaultSyncConfigPath()
	if err != nil {
		return fmt.Errorf("failed to determine sync config path: %w", err)
	}

	bus := events.NewEventBus(events.DefaultBufferSize)
	defer bus.Close()
	go logBusEvents(bus.SubscribeAll())

	ctrl, err := wizard.NewController(wizard.Options{
		Backend:       gateway.NewIPC(address, log.Named("gateway")),
		Configs:       config.NewSyncConfigFile(syncPath),
		Logger:        log.Named("wizard"),
		Bus:           bus,
		InitialScreen: screen,
		SyncFolder:    folder,
	})
	if err != nil {
		return err
	}

	log.Info().Str("screen", screen.String()).Str("folder", folder).Msg("Starting setup wizard")
	gui.New(ctrl, bus, log.Named("gui"), settings.App.Name+" Setup").Run()

	err = handoff(ctx, settings, address, syncPath, bus)
	if n := bus.GetDroppedEventCount(); n > 0 {
		log.Debugf("Event bus dropped %d events", n)
	}
	return err
}

// ensureDaemon starts the installer daemon in the background unless one
// already answers on address.
func ensureDaemon(ctx context.Context, address string) error {
	client := ipc.NewClientWithAddress(address)
	if client.IsDaemonRunning(ctx) {
		GetLogger().Debug().Str("address", address).Msg("Installer daemon already running")
		return nil
	}

	args := []string{"daemon"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	pid, err := daemon.Spawn(args)
	if err != nil {
		return err
	}
	GetLogger().Info().Int("pid", pid).Msg("Started installer daemon")

	ctx, cancel := context.WithTimeout(ctx, daemonStartTimeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("daemon (PID %d) did not start listening on %s", pid, address)
		case <-ticker.C:
			if client.IsDaemonRunning(ctx) {
				return nil
			}
		}
	}
}

// handoff runs after the wizard window is gone. A finished install starts
// the main application; anything else stops the sync apps the wizard may have
// started. The installer daemon is shut down either way.
func handoff(ctx context.Context, settings *config.Settings, address, syncPath string, bus *events.EventBus) error {
	log := GetLogger()

	record, err := config.LoadSyncConfig(syncPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read sync configuration, treating install as unfinished")
		record = &config.SyncConfig{}
	}

	client := ipc.NewClientWithAddress(address)
	daemonUp := client.IsDaemonRunning(ctx)
	notifier := notify.NewNotifier(settings.App.Name, settings.App.Notify, log.Named("notify"))

	var startErr error
	if record.Installed {
		bus.PublishHandoff(true, actionStartMainApp)
		startErr = startMainApp(settings)
		if startErr != nil {
			notifier.Alert(startErr.Error())
		} else {
			notifier.SetupComplete(record.SyncFolder)
		}
	} else {
		bus.PublishHandoff(false, actionStopSyncApps)
		notifier.SetupIncomplete()
		if daemonUp {
			var result ipc.Result
			if err := client.Call(ctx, ipc.ReqStopSyncApps, nil, &result); err != nil {
				log.Warn().Err(err).Msg("Failed to stop sync apps")
			}
		}
	}

	if daemonUp {
		if err := client.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down installer daemon")
		}
	}

	return startErr
}

func startMainApp(settings *config.Settings) error {
	argv := config.Command(settings.App.MainCommand)
	if argv == nil {
		GetLogger().Info().Msg("No main command configured")
		return nil
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	GetLogger().Info().Strs("command", argv).Int("pid", cmd.Process.Pid).Msg("Started main application")
	return cmd.Process.Release()
}

// logBusEvents logs wizard activity until the bus is closed.
func logBusEvents(ch <-chan events.Event) {
	log := GetLogger().Named("events")

	for ev := range ch {
		switch e := ev.(type) {
		case *events.StateChangeEvent:
			log.Debug().Str("update", e.Update).Str("from", e.FromScreen).Str("to", e.ToScreen).Msg("Wizard state")
		case *events.ErrorEvent:
			log.Debug().Err(e.Error).Str("screen", e.Screen).Str("request", e.Request).Msg("Wizard error")
		case *events.HandoffEvent:
			log.Infof("Hand-off: installed=%t, %s", e.Installed, e.Action)
		}
	}
}
