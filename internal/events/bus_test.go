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

	event := TaskStartedEvent{
		Index:     1,
		Role:      "researcher",
		Task:      "find sources",
		Layer:     0,
		Timestamp: time.Now(),
	}

	bus.Publish(TopicTask, event)

	select {
	case received := <-ch:
		if received.TaskIndex() != 1 {
			t.Errorf("expected task index 1, got %d", received.TaskIndex())
		}
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("expected event type '%s', got '%s'", EventTypeTaskStarted, received.EventType())
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

	event := TaskCompletedEvent{
		Index:     2,
		Role:      "analyzer",
		Output:    "done",
		Duration:  100 * time.Millisecond,
		Timestamp: time.Now(),
	}

	bus.Publish(TopicTask, event)

	// Both channels should receive the event
	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.TaskIndex() != 2 {
				t.Errorf("subscriber %d: expected task index 2, got %d", i+1, received.TaskIndex())
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout waiting for event", i+1)
		}
	}
}

// TestSubscribeAll verifies cross-topic subscription.
func TestSubscribeAll(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.SubscribeAll(10)

	bus.Publish(TopicTask, TaskStartedEvent{Index: 0, Role: "coder", Timestamp: time.Now()})
	bus.Publish(TopicPlan, PlanCreatedEvent{Description: "test plan", Layers: 2, Timestamp: time.Now()})

	received := 0
	for received < 2 {
		select {
		case <-ch:
			received++
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout after %d events, want 2", received)
		}
	}
}

// TestNonBlockingSend verifies that publishing doesn't block when channels are full.
func TestNonBlockingSend(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	// Subscribe with buffer size 1
	ch := bus.Subscribe(TopicTask, 1)

	// Publish 10 events - should not deadlock
	done := make(chan bool)
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicTask, TaskStartedEvent{
				Index:     i,
				Role:      "coder",
				Timestamp: time.Now(),
			})
		}
		done <- true
	}()

	// Publisher should complete immediately (non-blocking)
	select {
	case <-done:
		// Success - publisher didn't block
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked (expected non-blocking behavior)")
	}

	// Verify we received at least one event (buffer size 1)
	select {
	case received := <-ch:
		if received == nil {
			t.Error("received nil event")
		}
	default:
		t.Error("expected at least one event in buffer")
	}
}

// TestCloseSignalsSubscribers verifies that closing the bus closes subscriber channels.
func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewEventBus()

	ch := bus.Subscribe(TopicTask, 10)

	// Close the bus
	bus.Close()

	// Channel should be closed (range loop should exit immediately)
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

	// This should not panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("publishing after close caused panic: %v", r)
		}
	}()

	bus.Publish(TopicTask, TaskStartedEvent{Index: 1, Role: "coder", Timestamp: time.Now()})

	// Channel is closed, so we shouldn't receive anything
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after bus was closed")
		}
	default:
		// Expected - channel closed, no data
	}
}

// TestMultipleTopics verifies topic isolation.
func TestMultipleTopics(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	taskCh := bus.Subscribe(TopicTask, 10)
	planCh := bus.Subscribe(TopicPlan, 10)

	bus.Publish(TopicTask, TaskStartedEvent{Index: 1, Role: "coder", Timestamp: time.Now()})
	bus.Publish(TopicPlan, PlanProgressEvent{
		TotalTasks:    10,
		ResolvedTasks: 5,
		FailedTasks:   0,
		Timestamp:     time.Now(),
	})

	// Task channel should receive only the task event
	select {
	case received := <-taskCh:
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("task channel: expected task event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("task channel: timeout waiting for event")
	}

	// Plan channel should receive only the plan event
	select {
	case received := <-planCh:
		if received.EventType() != EventTypePlanProgress {
			t.Errorf("plan channel: expected plan event, got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("plan channel: timeout waiting for event")
	}

	select {
	case ev := <-taskCh:
		t.Errorf("task channel received cross-topic event %s", ev.EventType())
	default:
	}
}
