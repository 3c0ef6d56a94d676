package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func TestBackoffDelaySchedule(t *testing.T) {
	m := NewManager(Options{ServerURL: "http://localhost:8080", Token: "t"})

	expected := []time.Duration{
		3000 * time.Millisecond,
		4500 * time.Millisecond,
		6750 * time.Millisecond,
		10125 * time.Millisecond,
		15187500 * time.Microsecond,
	}
	for i, want := range expected {
		assert.Equal(t, want, m.backoffDelay(i+1), "attempt %d", i+1)
	}
}

func TestSocketURL(t *testing.T) {
	got, err := socketURL("http://localhost:8080", "secret")
	assert.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws?token=secret", got)

	got, err = socketURL("https://api.example.com", "secret")
	assert.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/ws?token=secret", got)
}

var testUpgrader = ws.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// startSocketServer runs an upgrade-only endpoint and reports every accepted
// connection on the returned channel.
func startSocketServer(t *testing.T) (*httptest.Server, chan *ws.Conn) {
	t.Helper()

	conns := make(chan *ws.Conn, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(server.Close)

	return server, conns
}

func testOptions(serverURL string) Options {
	return Options{
		ServerURL:            serverURL,
		Token:                "test-token",
		HeartbeatInterval:    time.Second,
		BaseDelay:            20 * time.Millisecond,
		BackoffFactor:        1.5,
		MaxReconnectAttempts: 5,
	}
}

func TestManagerConnectAndDispatch(t *testing.T) {
	server, conns := startSocketServer(t)

	m := NewManager(testOptions(server.URL))
	defer m.Close()

	received := make(chan json.RawMessage, 1)
	m.Subscribe(EventPrivateMessage, func(payload json.RawMessage) {
		received <- payload
	})

	assert.NoError(t, m.Connect())
	assert.Equal(t, StateOpen, m.State())
	assert.True(t, m.IsConnected())

	serverConn := <-conns
	defer serverConn.Close()
	err := serverConn.WriteMessage(ws.TextMessage, []byte(`{"type":"private_message","payload":{"content":"hello"}}`))
	assert.NoError(t, err)

	select {
	case payload := <-received:
		assert.JSONEq(t, `{"content":"hello"}`, string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestManagerConnectWhileOpenIsNoOp(t *testing.T) {
	server, conns := startSocketServer(t)

	m := NewManager(testOptions(server.URL))
	defer m.Close()

	assert.NoError(t, m.Connect())
	assert.NoError(t, m.Connect())

	first := <-conns
	defer first.Close()

	select {
	case extra := <-conns:
		extra.Close()
		t.Fatal("second Connect dialed a second socket")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestManagerReconnectsAfterAbnormalClose(t *testing.T) {
	server, conns := startSocketServer(t)

	m := NewManager(testOptions(server.URL))
	defer m.Close()

	assert.NoError(t, m.Connect())

	first := <-conns
	// Drop the transport without a close handshake.
	first.UnderlyingConn().Close()

	select {
	case second := <-conns:
		second.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not reconnect after abnormal close")
	}
	assert.Eventually(t, m.IsConnected, 2*time.Second, 10*time.Millisecond)
}

func TestManagerNormalClosureSuppressesReconnect(t *testing.T) {
	server, conns := startSocketServer(t)

	m := NewManager(testOptions(server.URL))
	defer m.Close()

	assert.NoError(t, m.Connect())

	first := <-conns
	first.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "bye"))
	first.Close()

	select {
	case second := <-conns:
		second.Close()
		t.Fatal("manager reconnected after a normal closure")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, StateClosed, m.State())
}

func TestManagerGivesUpAfterReconnectBudget(t *testing.T) {
	// A server that is already gone: every dial fails.
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	opts := testOptions(url)
	opts.BaseDelay = 5 * time.Millisecond
	opts.MaxReconnectAttempts = 2

	m := NewManager(opts)
	defer m.Close()

	changes, cancel := m.StateChanges()
	defer cancel()

	assert.Error(t, m.Connect())

	deadline := time.After(3 * time.Second)
	for {
		select {
		case change := <-changes:
			if change.Terminal {
				assert.Equal(t, StateClosed, change.State)
				return
			}
		case <-deadline:
			t.Fatal("terminal notice never arrived")
		}
	}
}

func TestManagerHeartbeat(t *testing.T) {
	server, conns := startSocketServer(t)

	opts := testOptions(server.URL)
	opts.HeartbeatInterval = 30 * time.Millisecond

	m := NewManager(opts)
	defer m.Close()
	assert.NoError(t, m.Connect())

	serverConn := <-conns
	defer serverConn.Close()

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := serverConn.ReadMessage()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping"}`, string(frame))

	// The literal pong reply must be skipped by the router, not treated as
	// a malformed envelope.
	assert.NoError(t, serverConn.WriteMessage(ws.TextMessage, []byte("pong")))
	time.Sleep(50 * time.Millisecond)
	assert.True(t, m.IsConnected())
}

func TestManagerCloseTearsDown(t *testing.T) {
	server, conns := startSocketServer(t)

	m := NewManager(testOptions(server.URL))

	m.Subscribe(EventPrivateMessage, func(json.RawMessage) {})
	m.Subscribe(EventNotificationUpdate, func(json.RawMessage) {})

	assert.NoError(t, m.Connect())
	serverConn := <-conns
	defer serverConn.Close()

	changes, cancel := m.StateChanges()
	defer cancel()

	m.Close()

	assert.Equal(t, StateClosed, m.State())
	assert.Equal(t, 0, m.registry.Count(EventPrivateMessage))
	assert.Equal(t, 0, m.registry.Count(EventNotificationUpdate))
	assert.ErrorIs(t, m.Connect(), ErrManagerClosed)

	// Teardown closes observer channels.
	_, open := <-changes
	for open {
		_, open = <-changes
	}

	// The server side sees the normal-closure code.
	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := serverConn.ReadMessage()
	assert.True(t, ws.IsCloseError(err, ws.CloseNormalClosure), "expected close code 1000, got %v", err)
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	server, conns := startSocketServer(t)

	m := NewManager(testOptions(server.URL))
	assert.NoError(t, m.Connect())
	serverConn := <-conns
	defer serverConn.Close()

	assert.NotPanics(t, func() {
		m.Close()
		m.Close()
	})
}
