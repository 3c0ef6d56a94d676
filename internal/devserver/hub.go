package devserver

import (
	"SocialPulse/internal/websocket"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// Hub tracks connected dev clients per user and fans events out to them.
type Hub struct {
	clients     map[*Client]bool
	userClients map[uuid.UUID]map[*Client]bool
	Register    chan *Client
	Unregister  chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		userClients: make(map[uuid.UUID]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			if _, ok := h.userClients[client.UserID]; !ok {
				h.userClients[client.UserID] = make(map[*Client]bool)
				go h.broadcastUserStatus(client.UserID, true)
			}
			h.userClients[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				if userSet, ok := h.userClients[client.UserID]; ok {
					delete(userSet, client)
					if len(userSet) == 0 {
						delete(h.userClients, client.UserID)
						go h.broadcastUserStatus(client.UserID, false)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) BroadcastToUser(userID uuid.UUID, eventType websocket.EventType, payload interface{}) {
	data, ok := encodeEvent(eventType, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userClients[userID] {
		client.trySend(data)
	}
}

func (h *Hub) BroadcastToAll(eventType websocket.EventType, payload interface{}) {
	data, ok := encodeEvent(eventType, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.trySend(data)
	}
}

// DropConnections severs every live socket without a close handshake,
// simulating a network failure. Clients are expected to reconnect.
func (h *Hub) DropConnections() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.Conn.UnderlyingConn().Close()
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}

func (h *Hub) broadcastUserStatus(userID uuid.UUID, isOnline bool) {
	h.BroadcastToAll(websocket.EventUserStatusUpdate, websocket.UserStatusUpdatePayload{
		UserID:    userID,
		IsOnline:  isOnline,
		Timestamp: time.Now().UnixMilli(),
	})
}

func encodeEvent(eventType websocket.EventType, payload interface{}) ([]byte, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal event payload", "type", eventType, "error", err)
		return nil, false
	}
	data, err := json.Marshal(websocket.Event{Type: eventType, Payload: raw})
	if err != nil {
		slog.Error("Failed to marshal event", "type", eventType, "error", err)
		return nil, false
	}
	return data, true
}

// Client is one dev-server side socket.
type Client struct {
	Hub    *Hub
	Conn   *ws.Conn
	Send   chan []byte
	UserID uuid.UUID
}

func (c *Client) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
		// Slow consumer; the dev server just drops the frame.
	}
}

// ReadPump consumes inbound frames. The only application frame a client
// sends over the socket is the heartbeat ping, answered with a literal pong
// text frame.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(64 * 1024)

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				slog.Debug("Websocket read error", "error", err)
			}
			return
		}

		var frame struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &frame); err == nil && frame.Type == "ping" {
			c.trySend([]byte("pong"))
		}
	}
}

func (c *Client) WritePump() {
	defer c.Conn.Close()

	for data := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.Conn.WriteMessage(ws.TextMessage, data); err != nil {
			return
		}
	}
	c.Conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
}
