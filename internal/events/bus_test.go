package events

import (
	"testing"
	"time"
)

func TestSubscribeReceivesPublished(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventSignalEmitted, 4)
	defer unsub()

	b.Publish(EventSignalEmitted, "hello")

	select {
	case got := <-ch:
		if got != "hello" {
			t.Fatalf("got %v, want hello", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventBar, 1)
	defer unsub()

	b.Publish(EventBar, 1)
	b.Publish(EventBar, 2)

	if got := <-ch; got != 1 {
		t.Fatalf("got %v, want first message", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra message %v", extra)
	default:
	}
}

func TestSubscribeSetMergesTopics(t *testing.T) {
	b := NewBus()
	stream, cancel := b.SubscribeSet(8, EventPositionOpened, EventPositionClosed)

	b.Publish(EventPositionOpened, "open")
	b.Publish(EventPositionClosed, "close")

	got := map[Event]any{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-stream:
			got[msg.Event] = msg.Payload
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for merged messages")
		}
	}
	if got[EventPositionOpened] != "open" || got[EventPositionClosed] != "close" {
		t.Fatalf("merged payloads wrong: %v", got)
	}

	cancel()
	select {
	case _, ok := <-stream:
		if ok {
			t.Fatal("expected closed stream after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}
}
