// Package notify sends the desktop notifications shown once the installer
// hands off to the main application. It uses github.com/gen2brain/beeep.
package notify

import (
	"fmt"
	"path/filepath"

	"github.com/gen2brain/beeep"

	"github.com/goobox/sync-installer/internal/logging"
)

// Notifier sends desktop notifications on behalf of an application.
type Notifier struct {
	appName string
	logger  *logging.Logger
	enabled bool

	notify func(title, message string) error
	alert  func(title, message string) error
}

// NewNotifier creates a notifier that titles its notifications with appName.
func NewNotifier(appName string, enabled bool, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Notifier{
		appName: appName,
		logger:  logger,
		enabled: enabled,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		alert: func(title, message string) error {
			return beeep.Alert(title, message, "")
		},
	}
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

// SetupComplete announces that syncing of folder is about to start.
func (n *Notifier) SetupComplete(folder string) {
	if !n.IsEnabled() {
		return
	}
	title := n.appName + " is ready"
	message := fmt.Sprintf("Your files in %s will now be synced.", shortenPath(folder))
	if err := n.notify(title, message); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send setup complete notification")
	}
}

// SetupIncomplete reminds the user that the wizard was closed early.
func (n *Notifier) SetupIncomplete() {
	if !n.IsEnabled() {
		return
	}
	message := fmt.Sprintf("Setup was not finished. Run the %s installer again to continue.", n.appName)
	if err := n.notify(n.appName, message); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send setup incomplete notification")
	}
}

// Alert reports a failure that needs the user's attention. It falls back to
// a regular notification where alerts are not supported.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() {
		return
	}
	title := n.appName + " setup failed"
	message = truncate(message, 200)
	if err := n.alert(title, message); err != nil {
		if err := n.notify(title, message); err != nil {
			n.logger.Error().Err(err).Str("message", message).Msg("Failed to send alert notification")
		}
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path to its last two components.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	short := filepath.Join("...", filepath.Base(filepath.Dir(path)), filepath.Base(path))
	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}
	return short
}
