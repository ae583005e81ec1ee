package events

import (
	"sync"
)

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan any
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan any)}
}

// Subscribe registers a listener for an event and returns the channel and an
// unsubscribe function.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[e] = append(b.subs[e], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Message couples a payload with the topic it arrived on, for subscribers
// that watch several topics through one channel.
type Message struct {
	Event   Event
	Payload any
}

// SubscribeSet merges several topics into a single channel of Messages. The
// returned cancel func unsubscribes every topic and closes the channel; slow
// consumers lose messages rather than stalling publishers.
func (b *Bus) SubscribeSet(buffer int, evs ...Event) (<-chan Message, func()) {
	out := make(chan Message, buffer)
	unsubs := make([]func(), 0, len(evs))
	var wg sync.WaitGroup

	for _, ev := range evs {
		ch, unsub := b.Subscribe(ev, buffer)
		unsubs = append(unsubs, unsub)
		wg.Add(1)
		go func(ev Event, ch <-chan any) {
			defer wg.Done()
			for p := range ch {
				select {
				case out <- Message{Event: ev, Payload: p}:
				default:
				}
			}
		}(ev, ch)
	}

	cancel := func() {
		for _, unsub := range unsubs {
			unsub()
		}
		wg.Wait()
		close(out)
	}
	return out, cancel
}

// Publish fan-outs the payload to subscribers asynchronously to avoid blocking
// the per-bar hot path.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
