package service

import (
	"SocialPulse/internal/adapter"
	"SocialPulse/internal/config"
	"SocialPulse/internal/helper"
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
)

// ChatService is the direct-chat stream adapter. It consumes routed
// private_message / messages_read / user_typing events, keeps derived state
// per counterpart (message lists, unread counters, typing windows) and
// exposes actions that pair an HTTP mutation with an optimistic local
// update reconciled against the server echo.
type ChatService struct {
	cfg       *config.AppConfig
	api       *adapter.APIAdapter
	realtime  Realtime
	validator *validator.Validate
	viewer    model.UserDTO

	mu          sync.Mutex
	messages    map[uuid.UUID][]model.Message
	typingUsers map[uuid.UUID]int64
	unread      map[uuid.UUID]int
	limiters    map[uuid.UUID]*rate.Limiter
	unsubs      []func()
	initialized bool

	done chan struct{}
}

func NewChatService(cfg *config.AppConfig, api *adapter.APIAdapter, realtime Realtime, validator *validator.Validate, viewer model.UserDTO) *ChatService {
	return &ChatService{
		cfg:         cfg,
		api:         api,
		realtime:    realtime,
		validator:   validator,
		viewer:      viewer,
		messages:    make(map[uuid.UUID][]model.Message),
		typingUsers: make(map[uuid.UUID]int64),
		unread:      make(map[uuid.UUID]int),
		limiters:    make(map[uuid.UUID]*rate.Limiter),
		done:        make(chan struct{}),
	}
}

// Start registers the event subscriptions once the shared connection is
// open.
func (s *ChatService) Start() {
	go ensureWhenOpen(s.realtime, s.done, s.initSubscriptions)
}

// Stop tears the subscriptions down. Safe to call more than once.
func (s *ChatService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.initialized = false
}

func (s *ChatService) initSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}
	s.unsubs = []func(){
		s.realtime.Subscribe(websocket.EventPrivateMessage, s.handleMessage),
		s.realtime.Subscribe(websocket.EventMessagesRead, s.handleMessagesRead),
		s.realtime.Subscribe(websocket.EventUserTyping, s.handleTyping),
	}
	s.initialized = true
}

// SendMessage appends a provisional copy locally, then issues the HTTP
// mutation. The server echo replaces the provisional entry; on HTTP failure
// the local copy stays (best-effort, the caller reports the error).
func (s *ChatService) SendMessage(ctx context.Context, receiverID uuid.UUID, content string) (model.Message, error) {
	req := model.SendMessageRequest{ReceiverID: receiverID, Content: content}
	if err := s.validator.Struct(req); err != nil {
		return model.Message{}, helper.NewBadRequestError("")
	}

	provisional := model.Message{
		TempID:      uuid.New(),
		SenderID:    s.viewer.ID,
		ReceiverID:  receiverID,
		Content:     content,
		CreatedAt:   time.Now(),
		Provisional: true,
		Sender: model.Sender{
			ID:        s.viewer.ID,
			FirstName: s.viewer.FirstName,
			LastName:  s.viewer.LastName,
			Avatar:    s.viewer.Avatar,
		},
	}

	s.mu.Lock()
	s.messages[receiverID] = append(s.messages[receiverID], provisional)
	s.mu.Unlock()

	if err := s.api.Post(ctx, "chat/send", req, nil); err != nil {
		slog.Warn("Failed to send message", "receiverId", receiverID, "error", err)
		return provisional, err
	}
	return provisional, nil
}

// MarkRead zeroes the unread counter for a sender, flips the unread inbound
// entries in that conversation and issues the mark-read mutation. A failed
// call is not rolled back.
func (s *ChatService) MarkRead(ctx context.Context, senderID uuid.UUID) error {
	now := time.Now()

	s.mu.Lock()
	s.unread[senderID] = 0
	bucket := s.messages[senderID]
	for i := range bucket {
		if bucket[i].SenderID == senderID && !bucket[i].IsRead {
			bucket[i].IsRead = true
			bucket[i].ReadAt = &now
		}
	}
	s.mu.Unlock()

	req := model.MarkReadRequest{SenderID: senderID}
	if err := s.api.Post(ctx, "chat/mark-read", req, nil); err != nil {
		slog.Warn("Failed to mark messages read", "senderId", senderID, "error", err)
		return err
	}
	return nil
}

// SendTyping notifies the counterpart that the viewer is typing, throttled
// per conversation.
func (s *ChatService) SendTyping(ctx context.Context, receiverID uuid.UUID) error {
	s.mu.Lock()
	limiter, ok := s.limiters[receiverID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(s.cfg.TypingSendInterval), 1)
		s.limiters[receiverID] = limiter
	}
	s.mu.Unlock()

	if !limiter.Allow() {
		return nil
	}
	return s.api.Post(ctx, "chat/typing", model.TypingRequest{ReceiverID: receiverID}, nil)
}

func (s *ChatService) LoadContacts(ctx context.Context) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := s.api.Get(ctx, "chat/contacts", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// LoadMessages fetches the history for one counterpart and replaces the
// local bucket with it.
func (s *ChatService) LoadMessages(ctx context.Context, contactID uuid.UUID, limit, offset int) ([]model.Message, error) {
	query := url.Values{
		"userId": {contactID.String()},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	var history []model.Message
	if err := s.api.Get(ctx, "chat/messages", query, &history); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.messages[contactID] = history
	s.mu.Unlock()

	return history, nil
}

// Messages returns a copy of the conversation with the given counterpart.
func (s *ChatService) Messages(contactID uuid.UUID) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages[contactID]...)
}

func (s *ChatService) UnreadCount(contactID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[contactID]
}

// TypingUsers lists the senders whose typing indicator has not expired.
func (s *ChatService) TypingUsers() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]uuid.UUID, 0, len(s.typingUsers))
	for id := range s.typingUsers {
		users = append(users, id)
	}
	return users
}

func (s *ChatService) IsTyping(senderID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.typingUsers[senderID]
	return ok
}

func (s *ChatService) handleMessage(raw json.RawMessage) {
	var payload websocket.PrivateMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad private_message payload", "error", err)
		return
	}

	// One conversation bucket per counterpart: the echo of our own message
	// files under the receiver, everything else under the sender.
	contactID := payload.SenderID
	if payload.SenderID == s.viewer.ID {
		contactID = payload.ReceiverID
	}

	confirmed := model.Message{
		ID:         payload.MessageID,
		SenderID:   payload.SenderID,
		ReceiverID: payload.ReceiverID,
		Content:    payload.Content,
		CreatedAt:  parseEventTime(payload.CreatedAt),
		IsRead:     payload.IsRead,
		Sender:     senderFromName(payload.SenderID, payload.SenderName, payload.SenderAvatar),
	}

	s.mu.Lock()
	s.messages[contactID] = reconcileMessages(s.messages[contactID], confirmed, s.cfg.ProvisionalMatchWindow)
	if payload.ReceiverID == s.viewer.ID && !payload.IsRead {
		s.unread[payload.SenderID]++
	}
	s.mu.Unlock()
}

func (s *ChatService) handleMessagesRead(raw json.RawMessage) {
	var payload websocket.MessagesReadPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad messages_read payload", "error", err)
		return
	}

	// Only the original sender flips its outbound copies; unread -> read is
	// one-way.
	if payload.SenderID != s.viewer.ID {
		return
	}
	readAt := parseEventTime(payload.ReadAt)

	s.mu.Lock()
	bucket := s.messages[payload.ReceiverID]
	for i := range bucket {
		if bucket[i].SenderID == s.viewer.ID && !bucket[i].IsRead {
			bucket[i].IsRead = true
			bucket[i].ReadAt = &readAt
		}
	}
	s.mu.Unlock()
}

func (s *ChatService) handleTyping(raw json.RawMessage) {
	var payload websocket.UserTypingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad user_typing payload", "error", err)
		return
	}

	s.mu.Lock()
	s.typingUsers[payload.SenderID] = payload.Timestamp
	s.mu.Unlock()

	// Expire only if no fresher indicator replaced the captured timestamp.
	captured := payload.Timestamp
	time.AfterFunc(s.cfg.TypingExpiry, func() {
		s.mu.Lock()
		if s.typingUsers[payload.SenderID] == captured {
			delete(s.typingUsers, payload.SenderID)
		}
		s.mu.Unlock()
	})
}
