package events

import (
	"sync"
)

const defaultBufferSize = 100

// Bus fans events out to any number of subscribers.
//
// Publishers never block: an event is dropped for any subscriber whose
// buffer is full. The pool publishes from inside its shutdown path, so a
// slow monitor client must not be able to stall a join.
type Bus struct {
	mu         sync.RWMutex
	subs       map[chan Event]struct{}
	bufferSize int
}

// NewBus creates a bus with the default per-subscriber buffer
func NewBus() *Bus {
	return NewBusWithBuffer(defaultBufferSize)
}

// NewBusWithBuffer creates a bus whose subscriber channels hold n events
func NewBusWithBuffer(n int) *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		bufferSize: n,
	}
}

// Subscribe returns a channel that receives subsequent events
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		if sub == ch {
			delete(b.subs, sub)
			close(sub)
			return
		}
	}
}

// Publish delivers an event to every subscriber without blocking
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// buffer full, drop for this subscriber
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
