package events

import (
	"errors"
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventStateChange)

	bus.PublishStateChange("navigate", "", "choose-cloud-service", false)

	select {
	case received := <-ch:
		change, ok := received.(*StateChangeEvent)
		if !ok {
			t.Fatal("Expected StateChangeEvent")
		}
		if change.Update != "navigate" {
			t.Errorf("Expected update 'navigate', got '%s'", change.Update)
		}
		if change.ToScreen != "choose-cloud-service" {
			t.Errorf("Expected screen 'choose-cloud-service', got '%s'", change.ToScreen)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch1 := bus.Subscribe(EventError)
	ch2 := bus.Subscribe(EventError)

	bus.PublishError("storj-login", "login", errors.New("connection refused"))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			errEv := ev.(*ErrorEvent)
			if errEv.Request != "login" {
				t.Errorf("subscriber %d: expected request 'login', got '%s'", i, errEv.Request)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d did not receive event", i)
		}
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()

	bus.PublishStateChange("select", "choose-cloud-service", "sia-selected", false)
	bus.PublishHandoff(true, "start-main-app")

	got := 0
	timeout := time.After(100 * time.Millisecond)
	for got < 2 {
		select {
		case <-all:
			got++
		case <-timeout:
			t.Fatalf("Expected 2 events, got %d", got)
		}
	}
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	_ = bus.Subscribe(EventStateChange)

	bus.PublishStateChange("a", "", "", false)
	bus.PublishStateChange("b", "", "", false)
	bus.PublishStateChange("c", "", "", false)

	if dropped := bus.GetDroppedEventCount(); dropped != 2 {
		t.Errorf("Expected 2 dropped events, got %d", dropped)
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventStateChange)
	bus.Unsubscribe(EventStateChange, ch)

	bus.PublishStateChange("navigate", "", "", false)

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after Unsubscribe")
	}
}

func TestEventBus_CloseClosesChannels(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.Subscribe(EventHandoff)
	all := bus.SubscribeAll()

	bus.Close()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("Expected typed channel to be closed")
	}
	if _, ok := <-all; ok {
		t.Error("Expected all-events channel to be closed")
	}

	// Subscribing after close returns a closed channel.
	if _, ok := <-bus.Subscribe(EventError); ok {
		t.Error("Expected closed channel from Subscribe after Close")
	}
}
