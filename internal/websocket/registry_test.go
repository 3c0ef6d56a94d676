package websocket

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

func TestRegistrySubscribeAndSnapshot(t *testing.T) {
	registry := NewRegistry()

	var order []string
	registry.Subscribe(EventPrivateMessage, func(json.RawMessage) {
		order = append(order, "first")
	})
	registry.Subscribe(EventPrivateMessage, func(json.RawMessage) {
		order = append(order, "second")
	})

	handlers := registry.Snapshot(EventPrivateMessage)
	assert.Len(t, handlers, 2)

	for _, handler := range handlers {
		handler(nil)
	}
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRegistryCancelRemovesOnlyItsSubscription(t *testing.T) {
	registry := NewRegistry()

	calls := map[string]int{}
	cancel1 := registry.Subscribe(EventUserTyping, func(json.RawMessage) { calls["one"]++ })
	registry.Subscribe(EventUserTyping, func(json.RawMessage) { calls["two"]++ })

	cancel1()
	assert.Equal(t, 1, registry.Count(EventUserTyping))

	for _, handler := range registry.Snapshot(EventUserTyping) {
		handler(nil)
	}
	assert.Equal(t, 0, calls["one"])
	assert.Equal(t, 1, calls["two"])
}

func TestRegistryCancelIsIdempotent(t *testing.T) {
	registry := NewRegistry()

	cancel := registry.Subscribe(EventMessagesRead, func(json.RawMessage) {})
	registry.Subscribe(EventMessagesRead, func(json.RawMessage) {})

	cancel()
	cancel()
	assert.Equal(t, 1, registry.Count(EventMessagesRead))
}

func TestRegistrySameHandlerTwiceYieldsTwoSubscriptions(t *testing.T) {
	registry := NewRegistry()

	calls := 0
	handler := func(json.RawMessage) { calls++ }

	cancel1 := registry.Subscribe(EventGroupMessage, handler)
	registry.Subscribe(EventGroupMessage, handler)
	assert.Equal(t, 2, registry.Count(EventGroupMessage))

	// Cancelling one registration must not take the other with it.
	cancel1()
	assert.Equal(t, 1, registry.Count(EventGroupMessage))

	for _, h := range registry.Snapshot(EventGroupMessage) {
		h(nil)
	}
	assert.Equal(t, 1, calls)
}

func TestRegistryClear(t *testing.T) {
	registry := NewRegistry()

	registry.Subscribe(EventPrivateMessage, func(json.RawMessage) {})
	registry.Subscribe(EventNotificationUpdate, func(json.RawMessage) {})

	registry.Clear()
	assert.Equal(t, 0, registry.Count(EventPrivateMessage))
	assert.Equal(t, 0, registry.Count(EventNotificationUpdate))
	assert.Nil(t, registry.Snapshot(EventPrivateMessage))
}
