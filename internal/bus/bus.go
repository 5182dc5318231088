package bus

import (
	"strings"
	"sync"
	"time"
)

type subscriber struct {
	id        int
	namespace string
	ch        chan Event
}

// Bus is the in-process event bus connecting the relay, the client loop and
// any listeners. Subscribers filter by kind prefix; delivery never blocks a
// publisher.
type Bus struct {
	mu   sync.RWMutex
	subs []subscriber
	next int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Publish delivers an event of the given kind to every subscriber whose
// namespace prefixes kind. The timestamp is set here. Subscribers with a
// full buffer miss the event.
func (b *Bus) Publish(kind string, payload any) {
	evt := Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !strings.HasPrefix(kind, sub.namespace) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribe registers a listener for kinds with the given prefix. The empty
// prefix matches everything. The returned function removes the subscription.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs = append(b.subs, subscriber{id: id, namespace: namespace, ch: ch})
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}
