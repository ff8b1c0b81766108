// Package events provides the in-process event bus the wizard uses to tell
// the front end that its state changed.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is used when NewEventBus is given a non-positive size.
const DefaultBufferSize = 64

// MaxBufferSize caps the per-subscriber channel buffer.
const MaxBufferSize = 1024

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventError       EventType = "error"
	EventHandoff     EventType = "handoff"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// StateChangeEvent is published after every named update of the wizard state.
type StateChangeEvent struct {
	BaseEvent
	Update     string // name of the update that was applied, e.g. "navigate"
	FromScreen string
	ToScreen   string
	Requesting bool
}

// ErrorEvent represents a failure the wizard absorbed without navigating.
type ErrorEvent struct {
	BaseEvent
	Screen  string
	Request string // gateway request that failed, empty for local failures
	Error   error
}

// HandoffEvent is published once the wizard window is gone and the installer
// decided what to do next.
type HandoffEvent struct {
	BaseEvent
	Installed bool
	Action    string // "start-main-app" or "stop-sync-apps"
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferSize > MaxBufferSize {
		bufferSize = MaxBufferSize
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking. Events that do
// not fit a subscriber's buffer are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishStateChange is a convenience method for publishing state change events
func (eb *EventBus) PublishStateChange(update, fromScreen, toScreen string, requesting bool) {
	eb.Publish(&StateChangeEvent{
		BaseEvent: BaseEvent{
			EventType: EventStateChange,
			Time:      time.Now(),
		},
		Update:     update,
		FromScreen: fromScreen,
		ToScreen:   toScreen,
		Requesting: requesting,
	})
}

// PublishError is a convenience method for publishing error events
func (eb *EventBus) PublishError(screen, request string, err error) {
	eb.Publish(&ErrorEvent{
		BaseEvent: BaseEvent{
			EventType: EventError,
			Time:      time.Now(),
		},
		Screen:  screen,
		Request: request,
		Error:   err,
	})
}

// PublishHandoff is a convenience method for publishing handoff events
func (eb *EventBus) PublishHandoff(installed bool, action string) {
	eb.Publish(&HandoffEvent{
		BaseEvent: BaseEvent{
			EventType: EventHandoff,
			Time:      time.Now(),
		},
		Installed: installed,
		Action:    action,
	})
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			close(subCh)
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
