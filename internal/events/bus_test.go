package events

import (
	"testing"
	"time"
)

// TestPublishSubscribe verifies basic publish/subscribe functionality.
func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 10)

	event := TaskCompletedEvent{
		ID:          1,
		HouseholdID: 7,
		Title:       "Fix shelf",
		CompletedBy: 3,
		Timestamp:   time.Now(),
	}

	bus.Publish(TopicTask, event)

	select {
	case received := <-ch:
		if received.TaskID() != 1 {
			t.Errorf("expected task ID 1, got %d", received.TaskID())
		}
		if received.EventType() != EventTypeTaskCompleted {
			t.Errorf("expected event type '%s', got '%s'", EventTypeTaskCompleted, received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

// TestMultipleSubscribers verifies multiple subscribers receive the same event.
func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicTask, 10)
	ch2 := bus.Subscribe(TopicTask, 10)

	due := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)
	event := TaskAdvancedEvent{
		ID:               2,
		NextDue:          &due,
		PreviousAssignee: 7,
		NextAssignee:     9,
		Rotated:          true,
		Timestamp:        time.Now(),
	}

	bus.Publish(TopicTask, event)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.TaskID() != 2 {
				t.Errorf("subscriber %d: expected task ID 2, got %d", i+1, received.TaskID())
			}
			advanced, ok := received.(TaskAdvancedEvent)
			if !ok || advanced.NextAssignee != 9 {
				t.Errorf("subscriber %d: unexpected payload %#v", i+1, received)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout waiting for event", i+1)
		}
	}
}

// TestNonBlockingSend verifies that publishing doesn't block when channels are full.
func TestNonBlockingSend(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 1)

	done := make(chan bool)
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicTask, OccurrenceSkippedEvent{ID: 1, Date: "2026-02-15", Timestamp: time.Now()})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	select {
	case received := <-ch:
		if received == nil {
			t.Error("received nil event")
		}
	default:
		t.Error("expected at least one event in buffer")
	}

	if got := bus.Dropped(); got != 9 {
		t.Errorf("expected 9 dropped deliveries, got %d", got)
	}
}

// TestCloseSignalsSubscribers verifies that closing the bus closes subscriber channels.
func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe(TopicTask, 10)

	bus.Close()

	received := 0
	for range ch {
		received++
	}

	if received != 0 {
		t.Errorf("expected 0 events after close, got %d", received)
	}
}

// TestPublishAfterClose verifies publishing after close doesn't panic.
func TestPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicTask, 10)

	bus.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("publishing after close caused panic: %v", r)
		}
	}()

	bus.Publish(TopicTask, TaskCompletedEvent{ID: 1, Timestamp: time.Now()})

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after bus was closed")
		}
	default:
	}
}

// TestMultipleTopics verifies topic isolation.
func TestMultipleTopics(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	taskCh := bus.Subscribe(TopicTask, 10)
	depCh := bus.Subscribe(TopicDependency, 10)

	bus.Publish(TopicTask, OccurrenceRestoredEvent{ID: 4, Date: "2026-03-01", Timestamp: time.Now()})
	bus.Publish(TopicDependency, DependencyLinkedEvent{Prerequisite: 1, Dependent: 2, Timestamp: time.Now()})

	select {
	case received := <-taskCh:
		if received.EventType() != EventTypeOccurrenceRestored {
			t.Errorf("task channel: expected restore event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("task channel: timeout waiting for event")
	}

	select {
	case received := <-depCh:
		if received.EventType() != EventTypeDependencyLinked {
			t.Errorf("dependency channel: expected link event, got %s", received.EventType())
		}
		if received.TaskID() != 2 {
			t.Errorf("dependency event should report the dependent, got %d", received.TaskID())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("dependency channel: timeout waiting for event")
	}

	select {
	case <-taskCh:
		t.Error("task channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case <-depCh:
		t.Error("dependency channel received unexpected event")
	case <-time.After(10 * time.Millisecond):
	}
}

// TestSubscribeAll verifies that SubscribeAll receives events from all topics.
func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	allCh := bus.SubscribeAll(20)

	bus.Publish(TopicTask, TaskCompletedEvent{ID: 1, Timestamp: time.Now()})
	bus.Publish(TopicReminder, TaskDueEvent{ID: 2, DueDate: time.Now(), Timestamp: time.Now()})

	receivedTypes := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case received := <-allCh:
			receivedTypes[received.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for event")
		}
	}

	if !receivedTypes[EventTypeTaskCompleted] {
		t.Error("SubscribeAll did not receive task event")
	}
	if !receivedTypes[EventTypeTaskDue] {
		t.Error("SubscribeAll did not receive reminder event")
	}

	select {
	case <-allCh:
		t.Error("received unexpected third event")
	case <-time.After(10 * time.Millisecond):
	}
}

// TestUnsubscribe verifies a removed subscriber is closed and no longer fed.
func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	gone := bus.Subscribe(TopicTask, 10)
	kept := bus.Subscribe(TopicTask, 10)
	all := bus.SubscribeAll(10)

	bus.Unsubscribe(gone)
	bus.Unsubscribe(all)

	bus.Publish(TopicTask, TaskCompletedEvent{ID: 5, Timestamp: time.Now()})

	if _, ok := <-gone; ok {
		t.Error("unsubscribed topic channel should be closed and empty")
	}
	if _, ok := <-all; ok {
		t.Error("unsubscribed all-topic channel should be closed and empty")
	}

	select {
	case received := <-kept:
		if received.TaskID() != 5 {
			t.Errorf("kept subscriber got task %d", received.TaskID())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("kept subscriber should still receive events")
	}

	// Unsubscribing twice is harmless.
	bus.Unsubscribe(gone)
}
