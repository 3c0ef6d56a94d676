package websocket

import (
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
	StateClosed     State = "closed"
)

// StateChange is delivered to observers on every connection state
// transition. Terminal marks the notice sent after the reconnect budget is
// exhausted; no further reconnection happens after it.
type StateChange struct {
	State    State
	Terminal bool
}

var ErrManagerClosed = fmt.Errorf("websocket: manager has been torn down")

type Options struct {
	// ServerURL is the http(s) base URL of the API server. The socket
	// endpoint is derived from it: http -> ws, https -> wss, path /ws.
	ServerURL string
	Token     string

	HeartbeatInterval    time.Duration
	HandshakeTimeout     time.Duration
	BaseDelay            time.Duration
	BackoffFactor        float64
	MaxReconnectAttempts int
}

func (o *Options) applyDefaults() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 3 * time.Second
	}
	if o.BackoffFactor <= 0 {
		o.BackoffFactor = 1.5
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = 5
	}
}

// Manager owns the single live socket for an authenticated client process.
// It dials, keeps the connection alive with an application-level heartbeat,
// reconnects with exponential backoff on abnormal closes, and feeds every
// inbound frame through the router to the subscription registry.
type Manager struct {
	opts     Options
	registry *Registry
	router   *Router

	mu         sync.Mutex
	conn       *ws.Conn
	state      State
	generation int
	attempts   int
	closed     bool

	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}

	watchers map[uuid.UUID]chan StateChange

	writeMu sync.Mutex
}

func NewManager(opts Options) *Manager {
	opts.applyDefaults()
	registry := NewRegistry()

	return &Manager{
		opts:     opts,
		registry: registry,
		router:   NewRouter(registry),
		state:    StateClosed,
		watchers: make(map[uuid.UUID]chan StateChange),
	}
}

// Subscribe registers a handler for an event type. See Registry.Subscribe.
func (m *Manager) Subscribe(eventType EventType, handler Handler) func() {
	return m.registry.Subscribe(eventType, handler)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// StateChanges returns a channel observing connection state transitions and
// a cancel function. Notifications are best-effort: a slow observer misses
// transitions instead of blocking the connection.
func (m *Manager) StateChanges() (<-chan StateChange, func()) {
	ch := make(chan StateChange, 8)
	id := uuid.New()

	m.mu.Lock()
	m.watchers[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(ch)
		}
	}
}

// Connect establishes the socket. A call while the connection is already
// open or opening is a no-op. A failed dial follows the same backoff policy
// as an abnormal close.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.state == StateOpen || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(StateConnecting, false)
	wsURL, err := socketURL(m.opts.ServerURL, m.opts.Token)
	if err != nil {
		m.setStateLocked(StateClosed, false)
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	dialer := ws.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		slog.Warn("Websocket dial failed", "error", err)
		m.mu.Lock()
		m.setStateLocked(StateClosed, false)
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return fmt.Errorf("websocket dial: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close()
		return ErrManagerClosed
	}
	// A new connection invalidates any prior handle before it is stored.
	if m.conn != nil {
		m.conn.Close()
	}
	m.conn = conn
	m.generation++
	gen := m.generation
	m.attempts = 0
	m.heartbeatStop = make(chan struct{})
	stop := m.heartbeatStop
	m.setStateLocked(StateOpen, false)
	m.mu.Unlock()

	slog.Info("Websocket connected", "url", m.opts.ServerURL)

	go m.readLoop(conn, gen)
	go m.heartbeatLoop(conn, stop)

	return nil
}

// Close is the explicit teardown path (logout). It cancels the pending
// reconnect and heartbeat, closes the transport with the normal-closure
// code, wipes the registry and resets the attempt counter. The manager
// cannot be reused afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.setStateLocked(StateClosing, false)

	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
	conn := m.conn
	m.conn = nil
	m.attempts = 0
	m.setStateLocked(StateClosed, false)

	for id, ch := range m.watchers {
		delete(m.watchers, id)
		close(ch)
	}
	m.mu.Unlock()

	if conn != nil {
		m.writeMu.Lock()
		conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, "logout"),
			time.Now().Add(time.Second),
		)
		m.writeMu.Unlock()
		conn.Close()
	}

	m.registry.Clear()
}

func (m *Manager) readLoop(conn *ws.Conn, gen int) {
	// Any inbound traffic proves the link is alive; a silent link past two
	// heartbeat intervals is treated as dead and surfaces as a read error.
	deadline := 2 * m.opts.HeartbeatInterval

	for {
		conn.SetReadDeadline(time.Now().Add(deadline))
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			normal := ws.IsCloseError(err, ws.CloseNormalClosure)
			m.handleClose(conn, gen, normal, err)
			return
		}
		if messageType != ws.TextMessage && messageType != ws.BinaryMessage {
			continue
		}
		m.router.Dispatch(raw)
	}
}

func (m *Manager) heartbeatLoop(conn *ws.Conn, stop chan struct{}) {
	ticker := time.NewTicker(m.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := conn.WriteMessage(ws.TextMessage, []byte(`{"type":"ping"}`))
			m.writeMu.Unlock()
			if err != nil {
				slog.Warn("Heartbeat write failed", "error", err)
				return
			}
		}
	}
}

// handleClose runs once per connection generation when its read loop ends.
// Stale generations (already replaced by a newer dial) are ignored.
func (m *Manager) handleClose(conn *ws.Conn, gen int, normal bool, cause error) {
	conn.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || gen != m.generation {
		return
	}

	slog.Info("Websocket closed", "normal", normal, "cause", cause)

	if m.heartbeatStop != nil {
		close(m.heartbeatStop)
		m.heartbeatStop = nil
	}
	m.conn = nil
	m.setStateLocked(StateClosed, false)

	if !normal {
		m.scheduleReconnectLocked()
	}
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// emits the terminal notice once the budget is spent. Caller holds m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.closed {
		return
	}
	if m.attempts >= m.opts.MaxReconnectAttempts {
		slog.Error("Giving up on reconnection", "attempts", m.attempts)
		m.notifyLocked(StateChange{State: StateClosed, Terminal: true})
		return
	}

	m.attempts++
	delay := m.backoffDelay(m.attempts)
	slog.Info("Scheduling reconnect", "attempt", m.attempts, "delay", delay)

	m.reconnectTimer = time.AfterFunc(delay, func() {
		if err := m.Connect(); err != nil {
			slog.Warn("Reconnect attempt failed", "error", err)
		}
	})
}

func (m *Manager) backoffDelay(attempt int) time.Duration {
	factor := math.Pow(m.opts.BackoffFactor, float64(attempt-1))
	return time.Duration(float64(m.opts.BaseDelay) * factor)
}

func (m *Manager) setStateLocked(state State, terminal bool) {
	if m.state == state {
		return
	}
	m.state = state
	m.notifyLocked(StateChange{State: state, Terminal: terminal})
}

func (m *Manager) notifyLocked(change StateChange) {
	for _, ch := range m.watchers {
		select {
		case ch <- change:
		default:
		}
	}
}

// socketURL derives the websocket endpoint from the API base URL, mirroring
// the page scheme: http -> ws, https -> wss.
func socketURL(base, token string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}

	endpoint := url.URL{
		Scheme:   scheme,
		Host:     parsed.Host,
		Path:     "/ws",
		RawQuery: url.Values{"token": {token}}.Encode(),
	}
	return endpoint.String(), nil
}
