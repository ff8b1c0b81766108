package wizard

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/goobox/sync-installer/internal/events"
	"github.com/goobox/sync-installer/internal/pathutil"
)

// StorjAccount holds the Storj credentials being set up and the inline
// warnings from the last failed attempt.
type StorjAccount struct {
	Email         string
	Password      string
	EncryptionKey string

	EmailWarn    bool
	PasswordWarn bool
	KeyWarn      bool
	WarnMessage  string
}

// SiaAccount holds the generated Sia wallet.
type SiaAccount struct {
	Address string
	Seed    string
}

// Complete reports whether both address and seed are set.
func (a SiaAccount) Complete() bool {
	return a.Address != "" && a.Seed != ""
}

// State is everything the wizard knows. Only the controller changes it.
type State struct {
	Screen Screen

	Storj bool
	Sia   bool

	SyncFolder string

	StorjAccount StorjAccount
	SiaAccount   SiaAccount

	// Requesting is true while one backend call is outstanding.
	Requesting bool
	// Waiting mirrors Requesting for the front end's busy indicator.
	Waiting bool
	// Selecting is true while the folder chooser is open.
	Selecting bool

	// ErrorMessage is the last failure that did not belong to a field.
	ErrorMessage string
}

// Busy reports whether events must be dropped.
func (s State) Busy() bool {
	return s.Requesting || s.Selecting
}

// NormalizeFolder expands a leading "~" and cleans path. ok is false for an
// empty or relative path; those never become the sync folder.
func NormalizeFolder(path string) (folder string, ok bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", false
	}
	expanded, err := pathutil.Expand(path)
	if err != nil || !filepath.IsAbs(expanded) {
		return "", false
	}
	return filepath.Clean(expanded), true
}

// Store holds the wizard state and announces every change on the event bus.
type Store struct {
	mu    sync.RWMutex
	state State
	bus   *events.EventBus
}

// NewStore creates a store with the given initial state. bus may be nil.
func NewStore(initial State, bus *events.EventBus) *Store {
	return &Store{state: initial, bus: bus}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// apply runs a named update and publishes a state change.
func (s *Store) apply(name string, update func(*State)) State {
	s.mu.Lock()
	from := s.state.Screen
	update(&s.state)
	next := s.state
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.PublishStateChange(name, from.String(), next.Screen.String(), next.Requesting)
	}
	return next
}
