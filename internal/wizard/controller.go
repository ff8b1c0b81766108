// Package wizard implements the installer's screen flow: the wizard state,
// the transition table and the controller that runs backend calls while
// moving between screens.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goobox/sync-installer/internal/config"
	"github.com/goobox/sync-installer/internal/events"
	"github.com/goobox/sync-installer/internal/ipc"
	"github.com/goobox/sync-installer/internal/logging"
)

// Backend is the set of backend requests the wizard makes.
// *gateway.Gateway satisfies it.
type Backend interface {
	CheckDependency(ctx context.Context) (*ipc.Result, error)
	Login(ctx context.Context, creds ipc.Credentials) (*ipc.LoginResult, error)
	Register(ctx context.Context, reg ipc.Registration) (*ipc.RegisterResult, error)
	RequestWallet(ctx context.Context) (*ipc.WalletResult, error)
	StopSyncApps(ctx context.Context) (*ipc.Result, error)
}

// ConfigStore persists the final sync configuration.
// *config.SyncConfigFile satisfies it.
type ConfigStore interface {
	Save(cfg config.SyncConfig) error
}

// DirectoryChooser asks the user for a folder. ok is false when the user
// cancelled.
type DirectoryChooser interface {
	ChooseDirectory(ctx context.Context, defaultPath string) (path string, ok bool)
}

// Window is the wizard window.
type Window interface {
	Close()
}

// Options configures a Controller.
type Options struct {
	Backend Backend
	Configs ConfigStore
	Chooser DirectoryChooser
	Window  Window
	Logger  *logging.Logger
	Bus     *events.EventBus

	// InitialScreen resumes the wizard on a deep-linked screen.
	InitialScreen Screen
	// SyncFolder is the default sync folder.
	SyncFolder string
}

// Controller owns the wizard state and runs one event at a time.
type Controller struct {
	mu sync.Mutex

	store   *Store
	backend Backend
	configs ConfigStore
	chooser DirectoryChooser
	window  Window
	logger  *logging.Logger
	bus     *events.EventBus

	table transitionTable
}

// NewController creates a controller from opts.
func NewController(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("wizard: backend is required")
	}
	if opts.Configs == nil {
		return nil, errors.New("wizard: config store is required")
	}
	if !opts.InitialScreen.Valid() {
		return nil, fmt.Errorf("wizard: invalid initial screen %q", string(opts.InitialScreen))
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	// A deep-linked screen past ChooseBackend implies its backends.
	storj, sia := opts.InitialScreen.Selection()
	initial := State{
		Screen:     opts.InitialScreen,
		Storj:      storj,
		Sia:        sia,
		SyncFolder: opts.SyncFolder,
	}

	return &Controller{
		store:   NewStore(initial, opts.Bus),
		backend: opts.Backend,
		configs: opts.Configs,
		chooser: opts.Chooser,
		window:  opts.Window,
		logger:  logger,
		bus:     opts.Bus,
		table:   newTransitionTable(),
	}, nil
}

// SetWindow sets the window closed from the finish screens.
func (c *Controller) SetWindow(w Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = w
}

// SetChooser sets the directory chooser.
func (c *Controller) SetChooser(d DirectoryChooser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chooser = d
}

// State returns a snapshot of the wizard state.
func (c *Controller) State() State {
	return c.store.Snapshot()
}

// Dispatch runs ev against the current screen and returns once the
// transition, including any backend calls, has finished. It returns false
// when the event was dropped: no row in the table, or a backend call or the
// folder chooser is outstanding.
//
// Dispatch may be called from any goroutine. Events that arrive while a call
// is outstanding are dropped, not queued.
func (c *Controller) Dispatch(ctx context.Context, ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.store.Snapshot()

	if st.Busy() {
		c.logger.Debug().
			Str("screen", st.Screen.String()).
			Str("event", ev.Kind().String()).
			Bool("requesting", st.Requesting).
			Bool("selecting", st.Selecting).
			Msg("Dropped event while busy")
		return false
	}

	h, ok := c.table.lookup(st.Screen, ev.Kind())
	if !ok {
		c.logger.Debug().
			Str("screen", st.Screen.String()).
			Str("event", ev.Kind().String()).
			Msg("No transition for event")
		return false
	}

	c.logger.Debug().
		Str("screen", st.Screen.String()).
		Str("event", ev.Kind().String()).
		Msg("Dispatching event")

	h(c, ctx, st, ev)
	return true
}

// navigate moves to screen and clears the last error.
func (c *Controller) navigate(screen Screen) {
	c.store.apply("navigate", func(s *State) {
		s.Screen = screen
		s.ErrorMessage = ""
	})
}

// await marks a backend call outstanding, releases the controller lock for
// the duration of call and takes it back. Requesting and Waiting are cleared
// whatever the outcome. Must be called with c.mu held.
func (c *Controller) await(request string, call func() error) error {
	c.store.apply("request-start", func(s *State) {
		s.Requesting = true
		s.Waiting = true
	})

	c.mu.Unlock()
	err := call()
	c.mu.Lock()

	c.store.apply("request-end", func(s *State) {
		s.Requesting = false
		s.Waiting = false
	})

	if err != nil {
		c.fail(request, err)
	}
	return err
}

// fail records a failure that keeps the wizard on the current screen.
func (c *Controller) fail(request string, err error) {
	st := c.store.apply("error", func(s *State) {
		s.ErrorMessage = err.Error()
	})

	c.logger.Warn().
		Err(err).
		Str("screen", st.Screen.String()).
		Str("request", request).
		Msg("Backend request failed")

	if c.bus != nil {
		c.bus.PublishError(st.Screen.String(), request, err)
	}
}

// refusal turns a backend "no" into an error for fail.
func refusal(request string, r ipc.Result) error {
	if r.Message != "" {
		return errors.New(r.Message)
	}
	return fmt.Errorf("%s was refused", request)
}

// checkDependency runs on Welcome/next.
func (c *Controller) checkDependency(ctx context.Context) {
	var result *ipc.Result
	err := c.await("check-dependency", func() error {
		var err error
		result, err = c.backend.CheckDependency(ctx)
		return err
	})
	if err != nil {
		return
	}
	if !result.OK {
		c.fail("check-dependency", refusal("check-dependency", *result))
		return
	}
	c.navigate(ChooseBackend)
}

// stopSyncApps runs on FolderSelected*/back.
func (c *Controller) stopSyncApps(ctx context.Context) {
	err := c.await("stop-sync-apps", func() error {
		_, err := c.backend.StopSyncApps(ctx)
		return err
	})
	if err != nil {
		return
	}
	c.navigate(ChooseBackend)
}

// login runs on LoginA/finish.
func (c *Controller) login(ctx context.Context, creds ipc.Credentials) {
	var result *ipc.LoginResult
	err := c.await("login", func() error {
		var err error
		result, err = c.backend.Login(ctx, creds)
		return err
	})
	if err != nil {
		return
	}

	if !result.OK {
		account := StorjAccount{
			Email:         creds.Email,
			Password:      creds.Password,
			EncryptionKey: creds.EncryptionKey,
			WarnMessage:   result.Message,
		}
		if result.Fields != nil {
			account.EmailWarn = !result.Fields.Email
			account.PasswordWarn = !result.Fields.Password
			account.KeyWarn = !result.Fields.EncryptionKey
		} else {
			account.EmailWarn = true
			account.PasswordWarn = true
		}
		c.store.apply("login-failure", func(s *State) {
			s.StorjAccount = account
		})
		c.logger.Info().Str("message", result.Message).Msg("Storj login refused")
		return
	}

	st := c.store.apply("login-success", func(s *State) {
		s.StorjAccount = StorjAccount{
			Email:         creds.Email,
			Password:      creds.Password,
			EncryptionKey: creds.EncryptionKey,
		}
	})

	if st.Sia {
		c.requestWallet(ctx)
		return
	}
	c.saveConfig(FinishAll)
}

// register runs on RegisterA/next.
func (c *Controller) register(ctx context.Context, reg ipc.Registration) {
	var result *ipc.RegisterResult
	err := c.await("register", func() error {
		var err error
		result, err = c.backend.Register(ctx, reg)
		return err
	})
	if err != nil {
		return
	}

	if !result.OK {
		c.store.apply("register-failure", func(s *State) {
			s.StorjAccount = StorjAccount{
				Email:       reg.Email,
				Password:    reg.Password,
				WarnMessage: result.Message,
			}
		})
		c.logger.Info().Str("message", result.Message).Msg("Storj registration refused")
		return
	}

	c.store.apply("register-success", func(s *State) {
		s.StorjAccount = StorjAccount{
			Email:         reg.Email,
			Password:      reg.Password,
			EncryptionKey: result.EncryptionKey,
		}
	})
	c.navigate(EncryptionKeyA)
}

// requestWallet fetches the Sia wallet once and moves to WalletB.
func (c *Controller) requestWallet(ctx context.Context) {
	if c.store.Snapshot().SiaAccount.Complete() {
		c.navigate(WalletB)
		return
	}

	var result *ipc.WalletResult
	err := c.await("request-wallet", func() error {
		var err error
		result, err = c.backend.RequestWallet(ctx)
		return err
	})
	if err != nil {
		return
	}
	if !result.OK {
		c.fail("request-wallet", refusal("request-wallet", result.Result))
		return
	}

	c.store.apply("wallet", func(s *State) {
		s.SiaAccount = SiaAccount{Address: result.Address, Seed: result.Seed}
	})
	c.navigate(WalletB)
}

// saveConfig persists the sync configuration and moves to finish.
func (c *Controller) saveConfig(finish Screen) {
	st := c.store.Snapshot()
	record := config.SyncConfig{
		SyncFolder: st.SyncFolder,
		Installed:  true,
		Storj:      st.Storj,
		Sia:        st.Sia,
	}

	err := c.await("save-config", func() error {
		return c.configs.Save(record)
	})
	if err != nil {
		return
	}

	c.logger.Info().
		Str("folder", record.SyncFolder).
		Bool("storj", record.Storj).
		Bool("sia", record.Sia).
		Msg("Sync configuration saved")
	c.navigate(finish)
}

// chooseFolder opens the directory chooser. Cancel leaves the folder as is.
func (c *Controller) chooseFolder(ctx context.Context) {
	if c.chooser == nil {
		c.logger.Warn().Msg("No directory chooser configured")
		return
	}

	st := c.store.apply("select-start", func(s *State) {
		s.Selecting = true
	})

	c.mu.Unlock()
	path, ok := c.chooser.ChooseDirectory(ctx, st.SyncFolder)
	c.mu.Lock()

	c.store.apply("select-end", func(s *State) {
		s.Selecting = false
		if !ok {
			return
		}
		if folder, valid := NormalizeFolder(path); valid {
			s.SyncFolder = folder
		}
	})
}

// closeWindow runs on the finish screens.
func (c *Controller) closeWindow() {
	if c.window == nil {
		c.logger.Warn().Msg("No window to close")
		return
	}
	c.logger.Info().Msg("Closing installer window")
	c.window.Close()
}
