package service

import (
	"SocialPulse/internal/adapter"
	"SocialPulse/internal/config"
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeRealtime stands in for the connection manager: a real registry for
// subscriptions plus a switchable connection state.
type fakeRealtime struct {
	registry *websocket.Registry

	mu        sync.Mutex
	connected bool
	watchers  []chan websocket.StateChange
}

func newFakeRealtime(connected bool) *fakeRealtime {
	return &fakeRealtime{
		registry:  websocket.NewRegistry(),
		connected: connected,
	}
}

func (f *fakeRealtime) Subscribe(eventType websocket.EventType, handler websocket.Handler) func() {
	return f.registry.Subscribe(eventType, handler)
}

func (f *fakeRealtime) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeRealtime) StateChanges() (<-chan websocket.StateChange, func()) {
	ch := make(chan websocket.StateChange, 8)

	f.mu.Lock()
	f.watchers = append(f.watchers, ch)
	f.mu.Unlock()

	return ch, func() {}
}

func (f *fakeRealtime) setConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = connected
	state := websocket.StateClosed
	if connected {
		state = websocket.StateOpen
	}
	for _, ch := range f.watchers {
		select {
		case ch <- websocket.StateChange{State: state}:
		default:
		}
	}
}

// emit marshals a payload and delivers it to every subscriber, the way the
// router would after decoding a frame.
func (f *fakeRealtime) emit(t *testing.T, eventType websocket.EventType, payload interface{}) {
	t.Helper()

	raw, err := json.Marshal(payload)
	assert.NoError(t, err)
	for _, handler := range f.registry.Snapshot(eventType) {
		handler(raw)
	}
}

func waitForSubscription(t *testing.T, f *fakeRealtime, eventType websocket.EventType) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return f.registry.Count(eventType) > 0
	}, 2*time.Second, 5*time.Millisecond, "adapter never subscribed to %s", eventType)
}

func testAppConfig(serverURL string) *config.AppConfig {
	return &config.AppConfig{
		ServerURL:              serverURL,
		Token:                  "test-token",
		HeartbeatInterval:      30 * time.Second,
		ReconnectBaseDelay:     3 * time.Second,
		ReconnectFactor:        1.5,
		MaxReconnectAttempts:   5,
		TypingExpiry:           60 * time.Millisecond,
		TypingSendInterval:     time.Hour,
		ProvisionalMatchWindow: 30 * time.Second,
		RequestTimeout:         5 * time.Second,
	}
}

func newTestAPI(t *testing.T, handler http.Handler) (*adapter.APIAdapter, *config.AppConfig) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testAppConfig(server.URL)
	return adapter.NewAPIAdapter(cfg, config.NewHTTPClient(cfg)), cfg
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})
}

func testViewer() model.UserDTO {
	return model.UserDTO{
		ID:        uuid.New(),
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}
