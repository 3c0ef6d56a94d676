package websocket

import (
	"log/slog"

	"github.com/goccy/go-json"
)

// Router decodes inbound frames and fans them out to the registry's
// subscribers for the envelope type.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
	}
}

// Dispatch handles one raw inbound frame. Control frames are recognized and
// skipped before any JSON decoding; malformed frames are logged and dropped.
// Never panics into the read loop.
func (r *Router) Dispatch(raw []byte) {
	if isControlFrame(raw) {
		return
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		slog.Warn("Dropping malformed frame", "error", err)
		return
	}
	if event.Type == "" {
		slog.Warn("Dropping frame without event type")
		return
	}

	for _, handler := range r.registry.Snapshot(event.Type) {
		deliver(handler, event.Payload)
	}
}

// deliver isolates one subscriber invocation so a panicking handler cannot
// stop delivery to the rest of the list.
func deliver(handler Handler, payload json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Subscriber panicked", "panic", rec)
		}
	}()
	handler(payload)
}

// isControlFrame reports whether the frame is a bare ping/pong keepalive
// reply rather than a JSON envelope.
func isControlFrame(raw []byte) bool {
	s := string(raw)
	return s == "ping" || s == "pong"
}
