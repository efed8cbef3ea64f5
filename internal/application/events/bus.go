package events

import (
	"log/slog"
	"sync"
)

// SessionSent is published when a restock session's drafts have all been
// delivered and the completion protocol has run.
type SessionSent struct {
	SessionID string
}

// SessionUpdated is published when a session's content or status changed and
// dashboard-style consumers should refetch.
type SessionUpdated struct {
	SessionID string
}

// Bus is an in-process, fire-and-forget publish/subscribe bus with typed
// topics. Delivery is best-effort: each handler runs in its own goroutine
// and publishers never block on or learn about handler outcomes.
type Bus struct {
	mu      sync.Mutex
	nextID  int
	sent    map[int]func(SessionSent)
	updated map[int]func(SessionUpdated)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		sent:    make(map[int]func(SessionSent)),
		updated: make(map[int]func(SessionUpdated)),
	}
}

// SubscribeSessionSent registers a handler for SessionSent events.
// POST: Returns an unsubscribe func; calling it is idempotent
func (b *Bus) SubscribeSessionSent(fn func(SessionSent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.sent[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.sent, id)
	}
}

// SubscribeSessionUpdated registers a handler for SessionUpdated events.
// POST: Returns an unsubscribe func; calling it is idempotent
func (b *Bus) SubscribeSessionUpdated(fn func(SessionUpdated)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.updated[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.updated, id)
	}
}

// PublishSessionSent delivers the event to all current subscribers.
// POST: Returns immediately; handler panics are recovered and logged
func (b *Bus) PublishSessionSent(ev SessionSent) {
	b.mu.Lock()
	handlers := make([]func(SessionSent), 0, len(b.sent))
	for _, fn := range b.sent {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		go runHandler(func() { fn(ev) })
	}
}

// PublishSessionUpdated delivers the event to all current subscribers.
// POST: Returns immediately; handler panics are recovered and logged
func (b *Bus) PublishSessionUpdated(ev SessionUpdated) {
	b.mu.Lock()
	handlers := make([]func(SessionUpdated), 0, len(b.updated))
	for _, fn := range b.updated {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		go runHandler(func() { fn(ev) })
	}
}

func runHandler(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event_handler_panic", "panic", r)
		}
	}()
	fn()
}
