package wizard

import "github.com/goobox/sync-installer/internal/ipc"

// EventKind is the key the transition table is indexed by.
type EventKind int

const (
	EventNext EventKind = iota
	EventBack
	EventSelectStorj
	EventSelectSia
	EventSelectBoth
	EventChooseFolder
	EventChangeFolder
	EventCreateAccount
	EventLogin
	EventFinish
	EventClose
)

var eventKindNames = map[EventKind]string{
	EventNext:          "next",
	EventBack:          "back",
	EventSelectStorj:   "select-storj",
	EventSelectSia:     "select-sia",
	EventSelectBoth:    "select-both",
	EventChooseFolder:  "choose-folder",
	EventChangeFolder:  "change-folder",
	EventCreateAccount: "create-account",
	EventLogin:         "login",
	EventFinish:        "finish",
	EventClose:         "close",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a user intent sent by a screen.
type Event interface {
	Kind() EventKind
}

// Next moves forward from screens that need no input.
type Next struct{}

// Back returns to the previous screen.
type Back struct{}

// Backend choices on ChooseBackend.
type (
	// SelectStorj picks Storj only.
	SelectStorj struct{}
	// SelectSia picks Sia only.
	SelectSia struct{}
	// SelectBoth picks Storj and Sia.
	SelectBoth struct{}
)

// ChooseFolder opens the directory chooser.
type ChooseFolder struct{}

// ChangeFolder sets the sync folder to Path. A leading "~" is expanded;
// relative paths are ignored.
type ChangeFolder struct {
	Path string
}

// CreateAccount switches from login to registration.
type CreateAccount struct{}

// GoToLogin switches to the login screen.
type GoToLogin struct{}

// Finish submits Storj credentials on the login screen.
type Finish struct {
	Credentials ipc.Credentials
}

// SubmitRegistration is "next" on the registration screen.
type SubmitRegistration struct {
	Registration ipc.Registration
}

// Close closes the window from a finish screen.
type Close struct{}

func (Next) Kind() EventKind               { return EventNext }
func (Back) Kind() EventKind               { return EventBack }
func (SelectStorj) Kind() EventKind        { return EventSelectStorj }
func (SelectSia) Kind() EventKind          { return EventSelectSia }
func (SelectBoth) Kind() EventKind         { return EventSelectBoth }
func (ChooseFolder) Kind() EventKind       { return EventChooseFolder }
func (ChangeFolder) Kind() EventKind       { return EventChangeFolder }
func (CreateAccount) Kind() EventKind      { return EventCreateAccount }
func (GoToLogin) Kind() EventKind          { return EventLogin }
func (Finish) Kind() EventKind             { return EventFinish }
func (SubmitRegistration) Kind() EventKind { return EventNext }
func (Close) Kind() EventKind              { return EventClose }
