// Package events provides an event system for pool and server lifecycle notifications.
package events

import (
	"fmt"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// EventPoolStarted is emitted when a thread pool has started its workers
	EventPoolStarted EventType = "pool_started"
	// EventPoolShutdown is emitted after all workers of a pool have been joined
	EventPoolShutdown EventType = "pool_shutdown"
	// EventWorkerTerminated is emitted when a worker consumes its terminate message
	EventWorkerTerminated EventType = "worker_terminated"
	// EventWorkerPanic is emitted when a job panics inside a worker
	EventWorkerPanic EventType = "worker_panic"
	// EventJobRefused is emitted when Execute is called after shutdown began
	EventJobRefused EventType = "job_refused"
	// EventConnAccepted is emitted when the server accepts a connection
	EventConnAccepted EventType = "conn_accepted"
	// EventAcceptError is emitted when the accept loop hits a transient error
	EventAcceptError EventType = "accept_error"
)

// Event represents a pool or server event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Worker  string `json:"worker,omitempty"`
	Workers int    `json:"workers,omitempty"`
	Remote  string `json:"remote,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewPoolStartedEvent creates a pool started event
func NewPoolStartedEvent(workers int) Event {
	return Event{
		Type:      EventPoolStarted,
		Timestamp: time.Now(),
		Data: EventData{
			Workers: workers,
		},
	}
}

// NewPoolShutdownEvent creates a pool shutdown event
func NewPoolShutdownEvent(workers int) Event {
	return Event{
		Type:      EventPoolShutdown,
		Timestamp: time.Now(),
		Data: EventData{
			Workers: workers,
		},
	}
}

// NewWorkerTerminatedEvent creates a worker terminated event
func NewWorkerTerminatedEvent(id int) Event {
	return Event{
		Type:      EventWorkerTerminated,
		Timestamp: time.Now(),
		Data: EventData{
			Worker: fmt.Sprintf("worker-%d", id),
		},
	}
}

// NewWorkerPanicEvent creates a worker panic event
func NewWorkerPanicEvent(id int, cause any) Event {
	return Event{
		Type:      EventWorkerPanic,
		Timestamp: time.Now(),
		Data: EventData{
			Worker: fmt.Sprintf("worker-%d", id),
			Error:  fmt.Sprint(cause),
		},
	}
}

// NewJobRefusedEvent creates a job refused event
func NewJobRefusedEvent() Event {
	return Event{
		Type:      EventJobRefused,
		Timestamp: time.Now(),
	}
}

// NewConnAcceptedEvent creates a connection accepted event
func NewConnAcceptedEvent(remote string) Event {
	return Event{
		Type:      EventConnAccepted,
		Timestamp: time.Now(),
		Data: EventData{
			Remote: remote,
		},
	}
}

// NewAcceptErrorEvent creates an accept error event
func NewAcceptErrorEvent(err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventAcceptError,
		Timestamp: time.Now(),
		Data: EventData{
			Error: errMsg,
		},
	}
}
