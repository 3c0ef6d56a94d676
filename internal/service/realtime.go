package service

import (
	"SocialPulse/internal/websocket"
	"time"
)

// Realtime is the slice of the connection manager the stream adapters
// consume: subscriptions plus connection-state observation.
type Realtime interface {
	Subscribe(eventType websocket.EventType, handler websocket.Handler) func()
	IsConnected() bool
	StateChanges() (<-chan websocket.StateChange, func())
}

const (
	connPollInterval    = time.Second
	maxConnPollAttempts = 5
)

// ensureWhenOpen invokes init as soon as the shared connection is open.
// The primary signal is the state-change channel; bounded 1s polling runs
// underneath as a safety net. After the poll budget is spent the adapter
// stops actively checking but still reacts to a later state change. init
// must be idempotent.
func ensureWhenOpen(r Realtime, done <-chan struct{}, init func()) {
	if r.IsConnected() {
		init()
		return
	}

	changes, cancel := r.StateChanges()
	defer cancel()

	ticker := time.NewTicker(connPollInterval)
	defer ticker.Stop()
	attempts := 0

	for {
		select {
		case <-done:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.State == websocket.StateOpen {
				init()
				return
			}
			if change.Terminal {
				return
			}
		case <-ticker.C:
			if r.IsConnected() {
				init()
				return
			}
			attempts++
			if attempts >= maxConnPollAttempts {
				ticker.Stop()
			}
		}
	}
}
