package websocket

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Handler receives the raw payload of a routed event. It runs on the
// goroutine that read the frame, so it must not block.
type Handler func(payload json.RawMessage)

type subscription struct {
	id      uuid.UUID
	handler Handler
}

// Registry maps event types to subscriber lists. It outlives any single
// connection: a reconnect does not touch it, only an explicit teardown
// clears it.
type Registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]subscription
}

func NewRegistry() *Registry {
	return &Registry{
		listeners: make(map[EventType][]subscription),
	}
}

// Subscribe registers a handler for an event type and returns a cancel
// function. Cancel removes exactly this subscription and is a no-op when
// called again.
func (r *Registry) Subscribe(eventType EventType, handler Handler) func() {
	sub := subscription{
		id:      uuid.New(),
		handler: handler,
	}

	r.mu.Lock()
	r.listeners[eventType] = append(r.listeners[eventType], sub)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		subs := r.listeners[eventType]
		for i, s := range subs {
			if s.id == sub.id {
				r.listeners[eventType] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(r.listeners[eventType]) == 0 {
			delete(r.listeners, eventType)
		}
	}
}

// Snapshot returns the current subscribers for a type in registration
// order. Dispatch iterates the snapshot, so an unsubscribe that races a
// dispatch may still see its handler invoked once.
func (r *Registry) Snapshot(eventType EventType) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.listeners[eventType]
	if len(subs) == 0 {
		return nil
	}

	handlers := make([]Handler, len(subs))
	for i, s := range subs {
		handlers[i] = s.handler
	}
	return handlers
}

// Count reports the number of active subscriptions for a type.
func (r *Registry) Count(eventType EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[eventType])
}

// Clear drops every subscription. Called only from explicit teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = make(map[EventType][]subscription)
}
