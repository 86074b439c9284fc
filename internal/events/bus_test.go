package events

import (
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("expected non-nil bus")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusSubscribe(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	ch2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	if ch1 == nil || ch2 == nil {
		t.Error("expected non-nil channels")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	bus.Unsubscribe(ch)
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()

	event := NewWorkerTerminatedEvent(1)
	bus.Publish(event)

	select {
	case received := <-ch:
		if received.Type != EventWorkerTerminated {
			t.Errorf("expected type %s, got %s", EventWorkerTerminated, received.Type)
		}
		if received.Data.Worker != "worker-1" {
			t.Errorf("expected worker-1, got %s", received.Data.Worker)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestBusPublishMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	event := NewPoolStartedEvent(4)
	bus.Publish(event)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventPoolStarted {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventPoolStarted, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBusPublishNonBlocking(t *testing.T) {
	bus := NewBusWithBuffer(1)

	ch := bus.Subscribe()

	// Fill the buffer
	bus.Publish(NewWorkerTerminatedEvent(0))
	bus.Publish(NewWorkerTerminatedEvent(1))
	bus.Publish(NewWorkerTerminatedEvent(2))

	// Should not block - test passes if it completes
	// First event should be received
	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for first event")
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}

	// Channel should be closed
	_, ok := <-ch
	if ok {
		t.Error("expected channel to be closed")
	}
}

func TestEventCreation(t *testing.T) {
	t.Run("PoolStartedEvent", func(t *testing.T) {
		event := NewPoolStartedEvent(8)
		if event.Type != EventPoolStarted {
			t.Errorf("expected %s, got %s", EventPoolStarted, event.Type)
		}
		if event.Data.Workers != 8 {
			t.Errorf("expected 8 workers, got %d", event.Data.Workers)
		}
	})

	t.Run("WorkerPanicEvent", func(t *testing.T) {
		event := NewWorkerPanicEvent(3, "boom")
		if event.Type != EventWorkerPanic {
			t.Errorf("expected %s, got %s", EventWorkerPanic, event.Type)
		}
		if event.Data.Worker != "worker-3" {
			t.Errorf("expected worker-3, got %s", event.Data.Worker)
		}
		if event.Data.Error != "boom" {
			t.Errorf("expected boom, got %s", event.Data.Error)
		}
	})

	t.Run("ConnAcceptedEvent", func(t *testing.T) {
		event := NewConnAcceptedEvent("127.0.0.1:52100")
		if event.Type != EventConnAccepted {
			t.Errorf("expected %s, got %s", EventConnAccepted, event.Type)
		}
		if event.Data.Remote != "127.0.0.1:52100" {
			t.Errorf("expected remote addr, got %s", event.Data.Remote)
		}
	})

	t.Run("AcceptErrorEvent", func(t *testing.T) {
		event := NewAcceptErrorEvent(nil)
		if event.Type != EventAcceptError {
			t.Errorf("expected %s, got %s", EventAcceptError, event.Type)
		}
		if event.Data.Error != "" {
			t.Errorf("expected empty error for nil, got %s", event.Data.Error)
		}
	})
}
