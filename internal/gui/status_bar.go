package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// StatusLevel selects the status bar icon.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusError
	StatusProgress
)

// StatusBar shows the wizard's busy indicator and the last error at the
// bottom of the window. While a backend call is outstanding an infinite
// progress bar runs under the message.
type StatusBar struct {
	widget.BaseWidget

	mu      sync.RWMutex
	level   StatusLevel
	message string

	icon     *widget.Icon
	label    *widget.Label
	progress *widget.ProgressBarInfinite
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() *StatusBar {
	sb := &StatusBar{}
	sb.label = widget.NewLabel("")
	sb.label.Wrapping = fyne.TextWrapWord
	sb.icon = widget.NewIcon(theme.ErrorIcon())
	sb.icon.Hide()
	sb.progress = widget.NewProgressBarInfinite()
	sb.progress.Stop()
	sb.progress.Hide()
	sb.ExtendBaseWidget(sb)
	return sb
}

// SetStatus updates the message and level. Safe to call from any goroutine.
func (sb *StatusBar) SetStatus(message string, level StatusLevel) {
	sb.mu.Lock()
	sb.level = level
	sb.message = message
	sb.mu.Unlock()

	fyne.Do(func() {
		sb.label.SetText(message)
		sb.label.Importance = widget.MediumImportance
		sb.progress.Stop()
		sb.progress.Hide()
		sb.icon.Hide()

		switch level {
		case StatusError:
			sb.label.Importance = widget.DangerImportance
			sb.icon.Show()
		case StatusProgress:
			sb.progress.Show()
			sb.progress.Start()
		}
		sb.label.Refresh()
	})
}

func (sb *StatusBar) SetInfo(message string)     { sb.SetStatus(message, StatusInfo) }
func (sb *StatusBar) SetError(message string)    { sb.SetStatus(message, StatusError) }
func (sb *StatusBar) SetProgress(message string) { sb.SetStatus(message, StatusProgress) }

// Message returns the current message.
func (sb *StatusBar) Message() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.message
}

// Level returns the current level.
func (sb *StatusBar) Level() StatusLevel {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.level
}

// CreateRenderer implements fyne.Widget
func (sb *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewBorder(nil, sb.progress, sb.icon, nil, sb.label))
}
