package wizard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goobox/sync-installer/internal/config"
	"github.com/goobox/sync-installer/internal/events"
	"github.com/goobox/sync-installer/internal/ipc"
)

// fakeBackend records calls and answers from its fields. When gate is set,
// every call blocks until the test sends on it.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	depResult    ipc.Result
	depErr       error
	loginResult  ipc.LoginResult
	loginErr     error
	lastCreds    ipc.Credentials
	regResult    ipc.RegisterResult
	regErr       error
	lastReg      ipc.Registration
	walletResult ipc.WalletResult
	walletErr    error
	stopErr      error

	gate    chan struct{}
	entered chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		depResult:    ipc.Result{OK: true},
		loginResult:  ipc.LoginResult{Result: ipc.Result{OK: true}},
		regResult:    ipc.RegisterResult{Result: ipc.Result{OK: true}, EncryptionKey: "generated key"},
		walletResult: ipc.WalletResult{Result: ipc.Result{OK: true}, Address: "sia-address", Seed: "sia seed words"},
	}
}

func (b *fakeBackend) record(name string) {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	b.mu.Unlock()
	if b.entered != nil {
		b.entered <- name
	}
	if b.gate != nil {
		<-b.gate
	}
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) count(name string) int {
	n := 0
	for _, c := range b.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (b *fakeBackend) CheckDependency(ctx context.Context) (*ipc.Result, error) {
	b.record("check-dependency")
	if b.depErr != nil {
		return nil, b.depErr
	}
	r := b.depResult
	return &r, nil
}

func (b *fakeBackend) Login(ctx context.Context, creds ipc.Credentials) (*ipc.LoginResult, error) {
	b.record("login")
	b.lastCreds = creds
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	r := b.loginResult
	return &r, nil
}

func (b *fakeBackend) Register(ctx context.Context, reg ipc.Registration) (*ipc.RegisterResult, error) {
	b.record("register")
	b.lastReg = reg
	if b.regErr != nil {
		return nil, b.regErr
	}
	r := b.regResult
	return &r, nil
}

func (b *fakeBackend) RequestWallet(ctx context.Context) (*ipc.WalletResult, error) {
	b.record("request-wallet")
	if b.walletErr != nil {
		return nil, b.walletErr
	}
	r := b.walletResult
	return &r, nil
}

func (b *fakeBackend) StopSyncApps(ctx context.Context) (*ipc.Result, error) {
	b.record("stop-sync-apps")
	if b.stopErr != nil {
		return nil, b.stopErr
	}
	return &ipc.Result{OK: true}, nil
}

type fakeConfigs struct {
	saved []config.SyncConfig
	err   error
}

func (f *fakeConfigs) Save(cfg config.SyncConfig) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, cfg)
	return nil
}

type fakeWindow struct{ closed int }

func (w *fakeWindow) Close() { w.closed++ }

type fakeChooser struct {
	path     string
	ok       bool
	gotPath  string
	release  chan struct{}
	openedCh chan struct{}
}

func (f *fakeChooser) ChooseDirectory(ctx context.Context, defaultPath string) (string, bool) {
	f.gotPath = defaultPath
	if f.openedCh != nil {
		f.openedCh <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.path, f.ok
}

type harness struct {
	ctrl    *Controller
	backend *fakeBackend
	configs *fakeConfigs
	window  *fakeWindow
}

func newHarness(t *testing.T, initial Screen) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		configs: &fakeConfigs{},
		window:  &fakeWindow{},
	}
	ctrl, err := NewController(Options{
		Backend:       h.backend,
		Configs:       h.configs,
		Window:        h.window,
		InitialScreen: initial,
		SyncFolder:    "/home/user/Goobox",
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) dispatch(ev Event) bool {
	return h.ctrl.Dispatch(context.Background(), ev)
}

// setState bypasses the transition table to put the wizard in a given state.
func (h *harness) setState(update func(*State)) {
	h.ctrl.store.apply("test", update)
}

var validCreds = ipc.Credentials{Email: "a@b.com", Password: "p", EncryptionKey: "k"}

func TestDeepLinkImpliesSelection(t *testing.T) {
	tests := []struct {
		screen    Screen
		wantStorj bool
		wantSia   bool
	}{
		{Welcome, false, false},
		{ChooseBackend, false, false},
		{FolderSelectedA, true, false},
		{FolderSelectedB, false, true},
		{FolderSelectedBoth, true, true},
		{LoginA, true, false},
		{RegisterA, true, false},
		{EncryptionKeyA, true, false},
		{EmailConfirmationA, true, false},
		{WalletB, false, true},
		{FinishB, false, true},
		{FinishAll, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.screen.String(), func(t *testing.T) {
			st := newHarness(t, tt.screen).ctrl.State()
			assert.Equal(t, tt.wantStorj, st.Storj)
			assert.Equal(t, tt.wantSia, st.Sia)
		})
	}
}

func TestDeepLinkedLoginFinishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.conf")
	ctrl, err := NewController(Options{
		Backend:       newFakeBackend(),
		Configs:       config.NewSyncConfigFile(path),
		InitialScreen: LoginA,
		SyncFolder:    "/home/user/Goobox",
	})
	require.NoError(t, err)

	ctrl.Dispatch(context.Background(), Finish{Credentials: validCreds})

	st := ctrl.State()
	assert.Equal(t, FinishAll, st.Screen)
	assert.Empty(t, st.ErrorMessage)

	record, err := config.LoadSyncConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.SyncConfig{SyncFolder: "/home/user/Goobox", Installed: true, Storj: true}, *record)
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(Options{Configs: &fakeConfigs{}})
	assert.Error(t, err)

	_, err = NewController(Options{Backend: newFakeBackend()})
	assert.Error(t, err)

	_, err = NewController(Options{Backend: newFakeBackend(), Configs: &fakeConfigs{}, InitialScreen: Screen("nowhere")})
	assert.Error(t, err)

	ctrl, err := NewController(Options{Backend: newFakeBackend(), Configs: &fakeConfigs{}, InitialScreen: LoginA})
	require.NoError(t, err)
	assert.Equal(t, LoginA, ctrl.State().Screen)
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, Welcome)
	st := h.ctrl.State()

	assert.Equal(t, Welcome, st.Screen)
	assert.False(t, st.Storj)
	assert.False(t, st.Sia)
	assert.Equal(t, "/home/user/Goobox", st.SyncFolder)
	assert.False(t, st.Requesting)
	assert.False(t, st.Waiting)
}

func TestWelcomeNext(t *testing.T) {
	t.Run("dependency ok", func(t *testing.T) {
		h := newHarness(t, Welcome)
		assert.True(t, h.dispatch(Next{}))
		assert.Equal(t, ChooseBackend, h.ctrl.State().Screen)
		assert.Equal(t, []string{"check-dependency"}, h.backend.Calls())
	})

	t.Run("dependency refused", func(t *testing.T) {
		h := newHarness(t, Welcome)
		h.backend.depResult = ipc.Result{OK: false, Message: "failed to install JRE"}
		h.dispatch(Next{})

		st := h.ctrl.State()
		assert.Equal(t, Welcome, st.Screen)
		assert.Equal(t, "failed to install JRE", st.ErrorMessage)
		assert.False(t, st.Requesting)
		assert.False(t, st.Waiting)
	})

	t.Run("transport failure", func(t *testing.T) {
		h := newHarness(t, Welcome)
		h.backend.depErr = errors.New("connection refused")
		h.dispatch(Next{})

		st := h.ctrl.State()
		assert.Equal(t, Welcome, st.Screen)
		assert.Contains(t, st.ErrorMessage, "connection refused")
		assert.False(t, st.Requesting)

		// No retry: the user re-triggers and the error clears on success.
		h.backend.depErr = nil
		h.dispatch(Next{})
		st = h.ctrl.State()
		assert.Equal(t, ChooseBackend, st.Screen)
		assert.Empty(t, st.ErrorMessage)
		assert.Equal(t, 2, h.backend.count("check-dependency"))
	})
}

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		wantStorj bool
		wantSia   bool
		want      Screen
	}{
		{"storj", SelectStorj{}, true, false, FolderSelectedA},
		{"sia", SelectSia{}, false, true, FolderSelectedB},
		{"both", SelectBoth{}, true, true, FolderSelectedBoth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, ChooseBackend)
			// A previous selection is replaced, not merged.
			h.setState(func(s *State) { s.Storj, s.Sia = !tt.wantStorj, !tt.wantSia })

			h.dispatch(tt.event)
			st := h.ctrl.State()
			assert.Equal(t, tt.want, st.Screen)
			assert.Equal(t, tt.wantStorj, st.Storj)
			assert.Equal(t, tt.wantSia, st.Sia)
			assert.Empty(t, h.backend.Calls())
		})
	}
}

func TestFolderScreens(t *testing.T) {
	for _, screen := range []Screen{FolderSelectedA, FolderSelectedB, FolderSelectedBoth} {
		t.Run(screen.String(), func(t *testing.T) {
			h := newHarness(t, screen)

			h.dispatch(ChangeFolder{Path: "/data/sync"})
			st := h.ctrl.State()
			assert.Equal(t, screen, st.Screen)
			assert.Equal(t, "/data/sync", st.SyncFolder)

			h.dispatch(ChangeFolder{})
			assert.Equal(t, "/data/sync", h.ctrl.State().SyncFolder, "empty path leaves the folder unchanged")

			h.dispatch(Back{})
			assert.Equal(t, ChooseBackend, h.ctrl.State().Screen)
			assert.Equal(t, []string{"stop-sync-apps"}, h.backend.Calls())
		})
	}
}

func TestChangeFolderNeedsAbsolutePath(t *testing.T) {
	h := newHarness(t, FolderSelectedA)

	h.dispatch(ChangeFolder{Path: "relative/dir"})
	assert.Equal(t, "/home/user/Goobox", h.ctrl.State().SyncFolder)

	h.dispatch(ChangeFolder{Path: "/srv/sync/../data/"})
	assert.Equal(t, "/srv/data", h.ctrl.State().SyncFolder)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	h.dispatch(ChangeFolder{Path: "~/Sync"})
	assert.Equal(t, filepath.Join(home, "Sync"), h.ctrl.State().SyncFolder)

	h.dispatch(ChangeFolder{Path: "relative/dir"})
	h.dispatch(Next{})
	h.dispatch(Finish{Credentials: validCreds})
	require.Len(t, h.configs.saved, 1)
	assert.Equal(t, filepath.Join(home, "Sync"), h.configs.saved[0].SyncFolder)
}

func TestNormalizeFolder(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"/data/Goobox", "/data/Goobox", true},
		{" /data/Goobox/ ", "/data/Goobox", true},
		{"", "", false},
		{"Goobox", "", false},
		{"./Goobox", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeFolder(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFolderBackStopFailure(t *testing.T) {
	h := newHarness(t, FolderSelectedA)
	h.backend.stopErr = errors.New("pipe closed")

	h.dispatch(Back{})
	st := h.ctrl.State()
	assert.Equal(t, FolderSelectedA, st.Screen)
	assert.Contains(t, st.ErrorMessage, "pipe closed")
	assert.False(t, st.Requesting)
}

func TestFolderNext(t *testing.T) {
	t.Run("storj goes to login", func(t *testing.T) {
		h := newHarness(t, FolderSelectedA)
		h.dispatch(Next{})
		assert.Equal(t, LoginA, h.ctrl.State().Screen)
		assert.Empty(t, h.backend.Calls())
	})

	t.Run("both goes to login", func(t *testing.T) {
		h := newHarness(t, FolderSelectedBoth)
		h.dispatch(Next{})
		assert.Equal(t, LoginA, h.ctrl.State().Screen)
	})

	t.Run("sia requests wallet", func(t *testing.T) {
		h := newHarness(t, FolderSelectedB)
		h.dispatch(Next{})
		st := h.ctrl.State()
		assert.Equal(t, WalletB, st.Screen)
		assert.Equal(t, SiaAccount{Address: "sia-address", Seed: "sia seed words"}, st.SiaAccount)
	})

	t.Run("sia wallet refused stays", func(t *testing.T) {
		h := newHarness(t, FolderSelectedB)
		h.backend.walletResult = ipc.WalletResult{Result: ipc.Result{OK: false, Message: "siad not running"}}
		h.dispatch(Next{})
		st := h.ctrl.State()
		assert.Equal(t, FolderSelectedB, st.Screen)
		assert.Equal(t, "siad not running", st.ErrorMessage)
		assert.False(t, st.SiaAccount.Complete())
	})

	t.Run("sia wallet transport failure stays", func(t *testing.T) {
		h := newHarness(t, FolderSelectedB)
		h.backend.walletErr = errors.New("broken pipe")
		h.dispatch(Next{})
		st := h.ctrl.State()
		assert.Equal(t, FolderSelectedB, st.Screen)
		assert.False(t, st.Requesting)
		assert.False(t, st.Waiting)
	})
}

func TestWalletFetchOnce(t *testing.T) {
	h := newHarness(t, FolderSelectedB)
	h.setState(func(s *State) {
		s.Sia = true
		s.SiaAccount = SiaAccount{Address: "existing", Seed: "existing seed"}
	})

	h.dispatch(Next{})
	st := h.ctrl.State()
	assert.Equal(t, WalletB, st.Screen)
	assert.Equal(t, "existing", st.SiaAccount.Address)
	assert.Zero(t, h.backend.count("request-wallet"))

	// Back and forth never refetches.
	h.dispatch(Back{})
	assert.Equal(t, FolderSelectedB, h.ctrl.State().Screen)
	h.dispatch(Next{})
	assert.Equal(t, WalletB, h.ctrl.State().Screen)
	assert.Zero(t, h.backend.count("request-wallet"))
}

func TestWalletPartialAccountIsRefetched(t *testing.T) {
	h := newHarness(t, FolderSelectedB)
	h.setState(func(s *State) { s.SiaAccount = SiaAccount{Address: "only-address"} })

	h.dispatch(Next{})
	assert.Equal(t, 1, h.backend.count("request-wallet"))
	assert.Equal(t, "sia seed words", h.ctrl.State().SiaAccount.Seed)
}

func TestLoginSuccessStorjOnly(t *testing.T) {
	h := newHarness(t, LoginA)
	h.setState(func(s *State) { s.Storj = true })

	h.dispatch(Finish{Credentials: validCreds})

	st := h.ctrl.State()
	assert.Equal(t, FinishAll, st.Screen)
	assert.Equal(t, StorjAccount{Email: "a@b.com", Password: "p", EncryptionKey: "k"}, st.StorjAccount)
	assert.Equal(t, validCreds, h.backend.lastCreds)
	require.Len(t, h.configs.saved, 1, "exactly one save-config call")
	assert.Equal(t, config.SyncConfig{SyncFolder: "/home/user/Goobox", Installed: true, Storj: true, Sia: false}, h.configs.saved[0])
	assert.Zero(t, h.backend.count("request-wallet"))
}

func TestLoginSuccessWithSia(t *testing.T) {
	h := newHarness(t, LoginA)
	h.setState(func(s *State) { s.Storj, s.Sia = true, true })

	h.dispatch(Finish{Credentials: validCreds})

	st := h.ctrl.State()
	assert.Equal(t, WalletB, st.Screen)
	assert.Empty(t, h.configs.saved, "no save-config before the wallet screen")
	assert.Equal(t, []string{"login", "request-wallet"}, h.backend.Calls(), "wallet is requested after login completes")
	assert.False(t, st.Requesting)
}

func TestLoginSuccessWalletFailureStaysOnLogin(t *testing.T) {
	h := newHarness(t, LoginA)
	h.setState(func(s *State) { s.Storj, s.Sia = true, true })
	h.backend.walletErr = errors.New("connection reset")

	h.dispatch(Finish{Credentials: validCreds})

	st := h.ctrl.State()
	assert.Equal(t, LoginA, st.Screen)
	assert.Equal(t, "a@b.com", st.StorjAccount.Email, "login result is kept")
	assert.Contains(t, st.ErrorMessage, "connection reset")
}

func TestLoginFailureFieldWarnings(t *testing.T) {
	h := newHarness(t, LoginA)
	h.setState(func(s *State) { s.Storj = true })
	h.backend.loginResult = ipc.LoginResult{
		Result: ipc.Result{OK: false, Message: "invalid email or password"},
		Fields: &ipc.FieldStatus{Email: false, Password: false, EncryptionKey: true},
	}

	h.dispatch(Finish{Credentials: validCreds})

	st := h.ctrl.State()
	assert.Equal(t, LoginA, st.Screen)
	assert.True(t, st.StorjAccount.EmailWarn)
	assert.True(t, st.StorjAccount.PasswordWarn)
	assert.False(t, st.StorjAccount.KeyWarn)
	assert.Equal(t, "invalid email or password", st.StorjAccount.WarnMessage)
	assert.Equal(t, "a@b.com", st.StorjAccount.Email)
	assert.Empty(t, h.configs.saved)
	assert.False(t, st.Requesting)
	assert.False(t, st.Waiting)
}

func TestLoginFailureWithoutFields(t *testing.T) {
	h := newHarness(t, LoginA)
	h.backend.loginResult = ipc.LoginResult{Result: ipc.Result{OK: false, Message: "denied"}}

	h.dispatch(Finish{Credentials: validCreds})

	acct := h.ctrl.State().StorjAccount
	assert.True(t, acct.EmailWarn)
	assert.True(t, acct.PasswordWarn)
	assert.False(t, acct.KeyWarn)
	assert.Equal(t, "denied", acct.WarnMessage)
}

func TestLoginRetryClearsWarnings(t *testing.T) {
	h := newHarness(t, LoginA)
	h.setState(func(s *State) { s.Storj = true })
	h.backend.loginResult = ipc.LoginResult{
		Result: ipc.Result{OK: false, Message: "bad key"},
		Fields: &ipc.FieldStatus{Email: true, Password: true, EncryptionKey: false},
	}
	h.dispatch(Finish{Credentials: validCreds})
	assert.True(t, h.ctrl.State().StorjAccount.KeyWarn)

	h.backend.loginResult = ipc.LoginResult{Result: ipc.Result{OK: true}}
	h.dispatch(Finish{Credentials: validCreds})

	st := h.ctrl.State()
	assert.Equal(t, FinishAll, st.Screen)
	assert.False(t, st.StorjAccount.KeyWarn)
	assert.Empty(t, st.StorjAccount.WarnMessage)
}

func TestLoginTransportFailure(t *testing.T) {
	h := newHarness(t, LoginA)
	h.backend.loginErr = errors.New("daemon gone")

	h.dispatch(Finish{Credentials: validCreds})
	st := h.ctrl.State()
	assert.Equal(t, LoginA, st.Screen)
	assert.Contains(t, st.ErrorMessage, "daemon gone")
	assert.False(t, st.Requesting)
}

func TestSaveConfigFailureStays(t *testing.T) {
	h := newHarness(t, WalletB)
	h.setState(func(s *State) { s.Sia = true })
	h.configs.err = errors.New("disk full")

	h.dispatch(Next{})
	st := h.ctrl.State()
	assert.Equal(t, WalletB, st.Screen)
	assert.Contains(t, st.ErrorMessage, "disk full")
	assert.False(t, st.Requesting)
}

func TestLoginScreenNavigation(t *testing.T) {
	h := newHarness(t, LoginA)
	h.dispatch(CreateAccount{})
	assert.Equal(t, RegisterA, h.ctrl.State().Screen)

	h.dispatch(GoToLogin{})
	assert.Equal(t, LoginA, h.ctrl.State().Screen)

	h.dispatch(Back{})
	assert.Equal(t, FolderSelectedA, h.ctrl.State().Screen, "storj only returns to its folder screen")

	h = newHarness(t, RegisterA)
	h.setState(func(s *State) { s.Storj, s.Sia = true, true })
	h.dispatch(Back{})
	assert.Equal(t, FolderSelectedBoth, h.ctrl.State().Screen)
}

func TestRegister(t *testing.T) {
	t.Run("success stores generated key", func(t *testing.T) {
		h := newHarness(t, RegisterA)
		reg := ipc.Registration{Email: "new@b.com", Password: "pw"}

		h.dispatch(SubmitRegistration{Registration: reg})

		st := h.ctrl.State()
		assert.Equal(t, EncryptionKeyA, st.Screen)
		assert.Equal(t, StorjAccount{Email: "new@b.com", Password: "pw", EncryptionKey: "generated key"}, st.StorjAccount)
		assert.Equal(t, reg, h.backend.lastReg)
	})

	t.Run("refused stays with message", func(t *testing.T) {
		h := newHarness(t, RegisterA)
		h.backend.regResult = ipc.RegisterResult{Result: ipc.Result{OK: false, Message: "email already registered"}}

		h.dispatch(SubmitRegistration{Registration: ipc.Registration{Email: "dup@b.com", Password: "pw"}})

		st := h.ctrl.State()
		assert.Equal(t, RegisterA, st.Screen)
		assert.Equal(t, "email already registered", st.StorjAccount.WarnMessage)
		assert.Empty(t, st.StorjAccount.EncryptionKey)
	})

	t.Run("plain next without details is ignored", func(t *testing.T) {
		h := newHarness(t, RegisterA)
		h.dispatch(Next{})
		assert.Equal(t, RegisterA, h.ctrl.State().Screen)
		assert.Empty(t, h.backend.Calls())
	})
}

func TestRegistrationFlowScreens(t *testing.T) {
	h := newHarness(t, EncryptionKeyA)
	h.dispatch(Next{})
	assert.Equal(t, EmailConfirmationA, h.ctrl.State().Screen)
	h.dispatch(Back{})
	assert.Equal(t, EncryptionKeyA, h.ctrl.State().Screen)
	h.dispatch(Back{})
	assert.Equal(t, RegisterA, h.ctrl.State().Screen)

	h = newHarness(t, EmailConfirmationA)
	h.dispatch(GoToLogin{})
	assert.Equal(t, LoginA, h.ctrl.State().Screen)
}

func TestWalletBack(t *testing.T) {
	h := newHarness(t, WalletB)
	h.setState(func(s *State) { s.Storj, s.Sia = true, true })
	h.dispatch(Back{})
	assert.Equal(t, LoginA, h.ctrl.State().Screen)

	h = newHarness(t, WalletB)
	h.setState(func(s *State) { s.Sia = true })
	h.dispatch(Back{})
	assert.Equal(t, FolderSelectedB, h.ctrl.State().Screen)
}

func TestFinishScreens(t *testing.T) {
	h := newHarness(t, FinishB)
	h.dispatch(Back{})
	assert.Equal(t, WalletB, h.ctrl.State().Screen)

	h = newHarness(t, FinishAll)
	h.dispatch(Back{})
	assert.Equal(t, LoginA, h.ctrl.State().Screen)

	for _, screen := range []Screen{FinishB, FinishAll} {
		h = newHarness(t, screen)
		assert.True(t, h.dispatch(Close{}))
		assert.Equal(t, 1, h.window.closed)
		assert.Equal(t, screen, h.ctrl.State().Screen)
	}
}

func TestCloseOnlyFromTerminalScreens(t *testing.T) {
	for _, screen := range Screens() {
		if screen.Terminal() {
			continue
		}
		h := newHarness(t, screen)
		assert.False(t, h.dispatch(Close{}), screen.String())
		assert.Zero(t, h.window.closed)
	}
}

func TestUnknownEventIsDropped(t *testing.T) {
	h := newHarness(t, ChooseBackend)
	assert.False(t, h.dispatch(Next{}))
	assert.Equal(t, ChooseBackend, h.ctrl.State().Screen)
}

func TestEventsDroppedWhileRequesting(t *testing.T) {
	for _, screen := range Screens() {
		t.Run(screen.String(), func(t *testing.T) {
			h := newHarness(t, screen)
			h.setState(func(s *State) {
				s.Requesting = true
				s.Waiting = true
				s.Storj, s.Sia = true, true
			})
			before := h.ctrl.State()

			for _, ev := range []Event{Back{}, Next{}, CreateAccount{}, GoToLogin{}, Finish{Credentials: validCreds}, SelectBoth{}} {
				assert.False(t, h.dispatch(ev))
			}

			assert.Equal(t, before, h.ctrl.State())
			assert.Empty(t, h.backend.Calls())
			assert.Empty(t, h.configs.saved)
		})
	}
}

func TestConcurrentEventDroppedDuringCall(t *testing.T) {
	h := newHarness(t, LoginA)
	h.setState(func(s *State) { s.Storj = true })
	h.backend.gate = make(chan struct{})
	h.backend.entered = make(chan string, 4)

	done := make(chan bool, 1)
	go func() { done <- h.dispatch(Finish{Credentials: validCreds}) }()

	require.Equal(t, "login", <-h.backend.entered)

	st := h.ctrl.State()
	assert.True(t, st.Requesting)
	assert.True(t, st.Waiting)

	// Arrives while login is outstanding: dropped, not queued.
	assert.False(t, h.dispatch(Back{}))
	assert.False(t, h.dispatch(CreateAccount{}))
	assert.Equal(t, LoginA, h.ctrl.State().Screen)

	close(h.backend.gate)
	select {
	case handled := <-done:
		assert.True(t, handled)
	case <-time.After(time.Second):
		t.Fatal("login did not complete")
	}

	st = h.ctrl.State()
	assert.Equal(t, FinishAll, st.Screen)
	assert.False(t, st.Requesting)
	assert.Equal(t, []string{"login"}, h.backend.Calls())
}

func TestChooseFolder(t *testing.T) {
	t.Run("chosen path is stored", func(t *testing.T) {
		h := newHarness(t, FolderSelectedA)
		chooser := &fakeChooser{path: "/mnt/data/Goobox", ok: true}
		h.ctrl.SetChooser(chooser)

		h.dispatch(ChooseFolder{})
		st := h.ctrl.State()
		assert.Equal(t, "/mnt/data/Goobox", st.SyncFolder)
		assert.Equal(t, "/home/user/Goobox", chooser.gotPath, "dialog opens at the current folder")
		assert.False(t, st.Selecting)
	})

	t.Run("cancel leaves state unchanged", func(t *testing.T) {
		h := newHarness(t, FolderSelectedA)
		h.ctrl.SetChooser(&fakeChooser{ok: false})
		before := h.ctrl.State()

		h.dispatch(ChooseFolder{})
		assert.Equal(t, before, h.ctrl.State())
	})

	t.Run("navigation dropped while dialog open", func(t *testing.T) {
		h := newHarness(t, FolderSelectedA)
		chooser := &fakeChooser{path: "/x", ok: true, release: make(chan struct{}), openedCh: make(chan struct{}, 1)}
		h.ctrl.SetChooser(chooser)

		done := make(chan struct{})
		go func() {
			h.dispatch(ChooseFolder{})
			close(done)
		}()
		<-chooser.openedCh

		assert.True(t, h.ctrl.State().Selecting)
		assert.False(t, h.dispatch(Next{}))
		assert.False(t, h.dispatch(Back{}))

		close(chooser.release)
		<-done

		st := h.ctrl.State()
		assert.Equal(t, FolderSelectedA, st.Screen)
		assert.Equal(t, "/x", st.SyncFolder)
		assert.Empty(t, h.backend.Calls())
	})
}

func TestStateChangesArePublished(t *testing.T) {
	bus := events.NewEventBus(32)
	defer bus.Close()
	ch := bus.Subscribe(events.EventStateChange)

	ctrl, err := NewController(Options{Backend: newFakeBackend(), Configs: &fakeConfigs{}, Bus: bus})
	require.NoError(t, err)
	ctrl.Dispatch(context.Background(), Next{})

	var updates []string
	var last *events.StateChangeEvent
	timeout := time.After(time.Second)
	for last == nil || last.ToScreen != ChooseBackend.String() {
		select {
		case ev := <-ch:
			last = ev.(*events.StateChangeEvent)
			updates = append(updates, last.Update)
		case <-timeout:
			t.Fatalf("did not observe navigation, got %v", updates)
		}
	}
	assert.Equal(t, []string{"request-start", "request-end", "navigate"}, updates)
}

func TestEndToEndBothBackends(t *testing.T) {
	h := newHarness(t, Welcome)

	steps := []struct {
		event Event
		want  Screen
	}{
		{Next{}, ChooseBackend},
		{SelectBoth{}, FolderSelectedBoth},
		{Next{}, LoginA},
		{Finish{Credentials: validCreds}, WalletB},
		{Next{}, FinishB},
	}
	for _, step := range steps {
		require.True(t, h.dispatch(step.event), "event %s", step.event.Kind())
		require.Equal(t, step.want, h.ctrl.State().Screen)
	}

	st := h.ctrl.State()
	assert.Equal(t, []string{"check-dependency", "login", "request-wallet"}, h.backend.Calls())
	assert.Equal(t, SiaAccount{Address: "sia-address", Seed: "sia seed words"}, st.SiaAccount)
	assert.Equal(t, StorjAccount{Email: "a@b.com", Password: "p", EncryptionKey: "k"}, st.StorjAccount)
	require.Len(t, h.configs.saved, 1)
	assert.Equal(t, config.SyncConfig{SyncFolder: "/home/user/Goobox", Installed: true, Storj: true, Sia: true}, h.configs.saved[0])

	require.True(t, h.dispatch(Close{}))
	assert.Equal(t, 1, h.window.closed)
}

func TestEndToEndStorjRegistration(t *testing.T) {
	h := newHarness(t, Welcome)

	h.dispatch(Next{})
	h.dispatch(SelectStorj{})
	h.dispatch(ChangeFolder{Path: "/srv/sync"})
	h.dispatch(Next{})
	h.dispatch(CreateAccount{})
	h.dispatch(SubmitRegistration{Registration: ipc.Registration{Email: "n@b.com", Password: "pw"}})
	require.Equal(t, EncryptionKeyA, h.ctrl.State().Screen)
	h.dispatch(Next{})
	h.dispatch(GoToLogin{})
	require.Equal(t, LoginA, h.ctrl.State().Screen)

	key := h.ctrl.State().StorjAccount.EncryptionKey
	h.dispatch(Finish{Credentials: ipc.Credentials{Email: "n@b.com", Password: "pw", EncryptionKey: key}})

	assert.Equal(t, FinishAll, h.ctrl.State().Screen)
	require.Len(t, h.configs.saved, 1)
	assert.Equal(t, config.SyncConfig{SyncFolder: "/srv/sync", Installed: true, Storj: true}, h.configs.saved[0])
	assert.Equal(t, "generated key", h.backend.lastCreds.EncryptionKey)
}
