// Package bus fans gateway lifecycle events out to in-process subscribers.
// Message processing itself is synchronous end to end; the bus exists so
// operational tooling (and tests) can watch what the gateway did without the
// gateway knowing who is listening.
package bus

import (
	"context"
	"sync"
)

const defaultBufferSize = 100

// EventBus is a non-blocking publish/subscribe fan-out for Events.
type EventBus struct {
	mu               sync.RWMutex
	subscribers      map[uint64]chan Event
	nextSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

// Publish delivers the event to every live subscriber. Slow subscribers are
// skipped rather than blocking the publisher; the gateway's request path
// must never wait on an observer.
func (b *EventBus) Publish(event Event) bool {
	select {
	case <-b.done:
		return false
	default:
	}

	b.mu.RLock()
	subs := make([]chan Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
	return true
}

// Subscribe registers a new event channel with the given buffer. The channel
// closes when the context ends, unsubscribe is called, or the bus closes.
func (b *EventBus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	b.mu.Lock()
	select {
	case <-b.done:
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := b.nextSubscriberID
	b.nextSubscriberID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-b.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}

// Close shuts the bus down and closes all subscriber channels.
func (b *EventBus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		for id, ch := range b.subscribers {
			close(ch)
			delete(b.subscribers, id)
		}
		b.mu.Unlock()
	})
}
