package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	t.Parallel()

	b := NewEventBus()
	defer b.Close()

	events, unsubscribe := b.Subscribe(context.Background(), 4)
	defer unsubscribe()

	if !b.Publish(Event{Type: EventReplySent, SenderID: "s"}.Stamp()) {
		t.Fatal("Publish returned false on open bus")
	}

	select {
	case event := <-events:
		if event.Type != EventReplySent || event.SenderID != "s" {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.At.IsZero() {
			t.Fatal("Stamp did not set timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishSkipsFullSubscriber(t *testing.T) {
	t.Parallel()

	b := NewEventBus()
	defer b.Close()

	_, unsubscribe := b.Subscribe(context.Background(), 1)
	defer unsubscribe()

	// Second publish overflows the buffer; it must not block.
	done := make(chan struct{})
	go func() {
		b.Publish(Event{Type: EventMessageReceived})
		b.Publish(Event{Type: EventMessageReceived})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on full subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := NewEventBus()
	defer b.Close()

	events, unsubscribe := b.Subscribe(context.Background(), 1)
	unsubscribe()

	if _, ok := <-events; ok {
		t.Fatal("channel still open after unsubscribe")
	}
}

func TestCloseStopsPublishing(t *testing.T) {
	t.Parallel()

	b := NewEventBus()
	events, _ := b.Subscribe(context.Background(), 1)
	b.Close()

	if b.Publish(Event{Type: EventMessageReceived}) {
		t.Fatal("Publish returned true on closed bus")
	}
	if _, ok := <-events; ok {
		t.Fatal("subscriber channel still open after Close")
	}
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	t.Parallel()

	b := NewEventBus()
	b.Close()

	events, unsubscribe := b.Subscribe(context.Background(), 1)
	defer unsubscribe()

	if _, ok := <-events; ok {
		t.Fatal("Subscribe after Close returned open channel")
	}
}
