// Package gui is the fyne front end of the installer wizard. It renders the
// controller's state and turns button presses into wizard events.
package gui

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/goobox/sync-installer/internal/events"
	"github.com/goobox/sync-installer/internal/logging"
	"github.com/goobox/sync-installer/internal/wizard"
)

// AppID is the fyne application identifier.
const AppID = "io.goobox.installer"

const eventQueueSize = 16

// App is the wizard window. It implements wizard.Window and
// wizard.DirectoryChooser.
type App struct {
	ctrl   *wizard.Controller
	bus    *events.EventBus
	logger *logging.Logger

	fyneApp fyne.App
	window  fyne.Window

	ctx    context.Context
	cancel context.CancelFunc

	status *StatusBar
	body   *fyne.Container

	// queue feeds events to the controller in the order they were raised.
	queue chan wizard.Event

	// shown is the screen the body was last built for.
	shown    wizard.Screen
	built    bool
	actions  []*widget.Button
	fields   *fields
	onRender func(wizard.State)
}

// CheckDisplay returns an error on Linux when no display is available.
func CheckDisplay() error {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return fmt.Errorf("the installer needs a display: DISPLAY and WAYLAND_DISPLAY are not set")
	}
	return nil
}

// New creates the wizard window for ctrl using a new fyne application.
func New(ctrl *wizard.Controller, bus *events.EventBus, logger *logging.Logger, title string) *App {
	fyneApp := app.NewWithID(AppID)
	fyneApp.Settings().SetTheme(&gooboxTheme{})
	return newApp(fyneApp, ctrl, bus, logger, title)
}

func newApp(fyneApp fyne.App, ctrl *wizard.Controller, bus *events.EventBus, logger *logging.Logger, title string) *App {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		ctrl:    ctrl,
		bus:     bus,
		logger:  logger,
		fyneApp: fyneApp,
		window:  fyneApp.NewWindow(title),
		ctx:     ctx,
		cancel:  cancel,
		status:  NewStatusBar(),
		body:    container.NewStack(),
		queue:   make(chan wizard.Event, eventQueueSize),
		fields:  newFields(),
	}
	a.fields.bind(a)
	go a.processEvents()

	a.window.SetMaster()
	a.window.SetContent(container.NewBorder(nil, container.NewPadded(a.status), nil, nil, container.NewPadded(a.body)))
	a.window.Resize(fyne.NewSize(640, 460))
	a.window.CenterOnScreen()
	a.window.SetOnClosed(a.cancel)

	ctrl.SetWindow(a)
	ctrl.SetChooser(a)
	return a
}

// Run shows the window and blocks until it is closed.
func (a *App) Run() {
	var ch <-chan events.Event
	if a.bus != nil {
		ch = a.bus.Subscribe(events.EventStateChange)
		defer a.bus.Unsubscribe(events.EventStateChange, ch)
		go a.watch(ch)
	}

	a.render(a.ctrl.State())
	a.window.ShowAndRun()
	a.cancel()
}

// Close implements wizard.Window.
func (a *App) Close() {
	fyne.Do(a.window.Close)
}

// ChooseDirectory implements wizard.DirectoryChooser with fyne's folder
// dialog, opened at defaultPath when it exists.
func (a *App) ChooseDirectory(ctx context.Context, defaultPath string) (string, bool) {
	type choice struct {
		path string
		ok   bool
	}
	result := make(chan choice, 1)

	fyne.Do(func() {
		d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				a.logger.Warn().Err(err).Msg("Folder dialog failed")
				result <- choice{}
				return
			}
			if uri == nil {
				result <- choice{} // cancelled
				return
			}
			result <- choice{path: uri.Path(), ok: true}
		}, a.window)

		if defaultPath != "" {
			if lister, err := storage.ListerForURI(storage.NewFileURI(defaultPath)); err == nil {
				d.SetLocation(lister)
			}
		}
		d.Resize(fyne.NewSize(600, 420))
		d.Show()
	})

	select {
	case c := <-result:
		return c.path, c.ok
	case <-ctx.Done():
		return "", false
	}
}

// watch re-renders on every state change until the window goes away.
func (a *App) watch(ch <-chan events.Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			st := a.ctrl.State()
			fyne.Do(func() { a.render(st) })
		case <-a.ctx.Done():
			return
		}
	}
}

// dispatch queues ev for the controller. Events raised while the wizard is
// busy are dropped here, as the controller would drop them.
func (a *App) dispatch(ev wizard.Event) {
	if a.ctrl.State().Busy() {
		a.logger.Debug().Str("event", ev.Kind().String()).Msg("Event ignored while busy")
		return
	}
	select {
	case a.queue <- ev:
	default:
		a.logger.Warn().Str("event", ev.Kind().String()).Msg("Event queue full, dropping event")
	}
}

// processEvents hands queued events to the controller one at a time, off the
// UI goroutine, until the window goes away.
func (a *App) processEvents() {
	for {
		select {
		case ev := <-a.queue:
			if !a.ctrl.Dispatch(a.ctx, ev) {
				a.logger.Debug().Str("event", ev.Kind().String()).Msg("Event ignored")
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// commitFolder sends the folder typed into the entry to the controller.
// It returns false and shows an error when text is not an absolute path.
func (a *App) commitFolder(text string) bool {
	folder, ok := wizard.NormalizeFolder(text)
	if !ok {
		a.status.SetError("The sync folder must be an absolute path")
		return false
	}
	if folder != a.ctrl.State().SyncFolder {
		a.dispatch(wizard.ChangeFolder{Path: folder})
	}
	return true
}

// render brings the window in line with st. The body is rebuilt only when
// the screen changes so entries keep focus while the state updates.
func (a *App) render(st wizard.State) {
	if !a.built || st.Screen != a.shown {
		a.actions = nil
		a.fields.load(st)
		a.body.Objects = []fyne.CanvasObject{a.buildScreen(st)}
		a.body.Refresh()
		a.shown = st.Screen
		a.built = true
	}

	a.fields.update(st)

	for _, b := range a.actions {
		if st.Busy() {
			b.Disable()
		} else {
			b.Enable()
		}
	}

	switch {
	case st.Waiting:
		a.status.SetProgress("Please wait...")
	case st.Selecting:
		a.status.SetInfo("Choose a folder")
	case st.ErrorMessage != "":
		a.status.SetError(st.ErrorMessage)
	default:
		a.status.SetInfo("")
	}

	if a.onRender != nil {
		a.onRender(st)
	}
}

// button creates an action button that dispatches the event returned by ev
// and is disabled while the wizard is busy. A nil event dispatches nothing.
func (a *App) button(label string, primary bool, ev func() wizard.Event) *widget.Button {
	b := widget.NewButton(label, func() {
		if e := ev(); e != nil {
			a.dispatch(e)
		}
	})
	if primary {
		b.Importance = widget.HighImportance
	}
	a.actions = append(a.actions, b)
	return b
}
