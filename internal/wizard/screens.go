package wizard

import (
	"fmt"
	"strings"
)

// Screen identifies one wizard screen. The value is the screen's deep-link
// name; the welcome screen's name is empty, so the zero Screen is Welcome.
type Screen string

const (
	Welcome            Screen = ""
	ChooseBackend      Screen = "choose-cloud-service"
	FolderSelectedA    Screen = "storj-selected"
	FolderSelectedB    Screen = "sia-selected"
	FolderSelectedBoth Screen = "both-selected"
	LoginA             Screen = "storj-login"
	RegisterA          Screen = "storj-registration"
	EncryptionKeyA     Screen = "storj-encryption-key"
	EmailConfirmationA Screen = "storj-email-confirmation"
	WalletB            Screen = "sia-wallet"
	FinishB            Screen = "sia-finish"
	FinishAll          Screen = "finish-all"
)

var screens = []Screen{
	Welcome,
	ChooseBackend,
	FolderSelectedA,
	FolderSelectedB,
	FolderSelectedBoth,
	LoginA,
	RegisterA,
	EncryptionKeyA,
	EmailConfirmationA,
	WalletB,
	FinishB,
	FinishAll,
}

// Screens returns every screen in flow order.
func Screens() []Screen {
	out := make([]Screen, len(screens))
	copy(out, screens)
	return out
}

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	for _, known := range screens {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s is a finish screen.
func (s Screen) Terminal() bool {
	return s == FinishB || s == FinishAll
}

// FolderSelection reports whether s is one of the folder selection screens.
func (s Screen) FolderSelection() bool {
	return s == FolderSelectedA || s == FolderSelectedB || s == FolderSelectedBoth
}

// Selection returns the backends a screen belongs to. Welcome and
// ChooseBackend belong to none.
func (s Screen) Selection() (storj, sia bool) {
	switch s {
	case FolderSelectedA, LoginA, RegisterA, EncryptionKeyA, EmailConfirmationA, FinishAll:
		return true, false
	case FolderSelectedB, WalletB, FinishB:
		return false, true
	case FolderSelectedBoth:
		return true, true
	}
	return false, false
}

func (s Screen) String() string {
	if s == Welcome {
		return "welcome"
	}
	return string(s)
}

// ParseScreen resolves a deep-link name such as "#/storj-login" or
// "sia-wallet". An empty name, "welcome" and "/" all mean Welcome.
func ParseScreen(name string) (Screen, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "#")
	name = strings.Trim(name, "/")

	if name == "welcome" {
		return Welcome, nil
	}

	s := Screen(name)
	if !s.Valid() {
		return Welcome, fmt.Errorf("unknown screen %q", name)
	}
	return s, nil
}
