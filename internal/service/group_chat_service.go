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

// TypingStatus is one live typing indicator in a group conversation.
type TypingStatus struct {
	Timestamp int64
	Name      string
}

// GroupChatService is the group-chat stream adapter. One instance serves
// one group; events for other groups are filtered out. Stop must be called
// when the owning scope goes away or switches groups, so two conversations
// never cross-talk.
type GroupChatService struct {
	cfg       *config.AppConfig
	api       *adapter.APIAdapter
	realtime  Realtime
	validator *validator.Validate
	viewer    model.UserDTO
	groupID   uuid.UUID

	mu          sync.Mutex
	messages    []model.GroupMessage
	typingUsers map[uuid.UUID]TypingStatus
	roster      map[uuid.UUID]model.GroupMember
	unread      int
	limiter     *rate.Limiter
	unsubs      []func()
	initialized bool

	done chan struct{}
}

func NewGroupChatService(cfg *config.AppConfig, api *adapter.APIAdapter, realtime Realtime, validator *validator.Validate, viewer model.UserDTO, groupID uuid.UUID) *GroupChatService {
	return &GroupChatService{
		cfg:         cfg,
		api:         api,
		realtime:    realtime,
		validator:   validator,
		viewer:      viewer,
		groupID:     groupID,
		typingUsers: make(map[uuid.UUID]TypingStatus),
		roster:      make(map[uuid.UUID]model.GroupMember),
		limiter:     rate.NewLimiter(rate.Every(cfg.TypingSendInterval), 1),
		done:        make(chan struct{}),
	}
}

func (s *GroupChatService) GroupID() uuid.UUID {
	return s.groupID
}

func (s *GroupChatService) Start() {
	go ensureWhenOpen(s.realtime, s.done, s.initSubscriptions)
}

func (s *GroupChatService) Stop() {
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

func (s *GroupChatService) initSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}
	s.unsubs = []func(){
		s.realtime.Subscribe(websocket.EventGroupMessage, s.handleMessage),
		s.realtime.Subscribe(websocket.EventGroupMessagesRead, s.handleMessagesRead),
		s.realtime.Subscribe(websocket.EventGroupUserTyping, s.handleTyping),
		s.realtime.Subscribe(websocket.EventGroupUserJoined, s.handleUserJoined),
		s.realtime.Subscribe(websocket.EventGroupUserLeft, s.handleUserLeft),
	}
	s.initialized = true
}

func (s *GroupChatService) SendMessage(ctx context.Context, content string) (model.GroupMessage, error) {
	req := model.SendGroupMessageRequest{GroupID: s.groupID, Content: content}
	if err := s.validator.Struct(req); err != nil {
		return model.GroupMessage{}, helper.NewBadRequestError("")
	}

	provisional := model.GroupMessage{
		TempID:      uuid.New(),
		SenderID:    s.viewer.ID,
		GroupID:     s.groupID,
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
	s.messages = append(s.messages, provisional)
	s.mu.Unlock()

	if err := s.api.Post(ctx, "groups/send-message", req, nil); err != nil {
		slog.Warn("Failed to send group message", "groupId", s.groupID, "error", err)
		return provisional, err
	}
	return provisional, nil
}

// MarkRead zeroes the counter, flips the unread entries and issues the
// mutation; a failed call is not rolled back.
func (s *GroupChatService) MarkRead(ctx context.Context) error {
	now := time.Now()

	s.mu.Lock()
	s.unread = 0
	for i := range s.messages {
		if !s.messages[i].IsRead {
			s.messages[i].IsRead = true
			s.messages[i].ReadAt = &now
		}
	}
	s.mu.Unlock()

	req := model.GroupMarkReadRequest{GroupID: s.groupID}
	if err := s.api.Post(ctx, "groups/mark-read", req, nil); err != nil {
		slog.Warn("Failed to mark group messages read", "groupId", s.groupID, "error", err)
		return err
	}
	return nil
}

func (s *GroupChatService) SendTyping(ctx context.Context) error {
	if !s.limiter.Allow() {
		return nil
	}
	return s.api.Post(ctx, "groups/typing", model.GroupTypingRequest{GroupID: s.groupID}, nil)
}

func (s *GroupChatService) LoadMessages(ctx context.Context, limit, offset int) ([]model.GroupMessage, error) {
	query := url.Values{
		"groupId": {s.groupID.String()},
		"limit":   {strconv.Itoa(limit)},
		"offset":  {strconv.Itoa(offset)},
	}

	var history []model.GroupMessage
	if err := s.api.Get(ctx, "groups/get-messages", query, &history); err != nil {
		return nil, err
	}

	s.mu.Lock()
	// History merges under existing state; live events may already have
	// appended entries the page does not contain.
	seen := make(map[uuid.UUID]bool, len(s.messages))
	for _, m := range s.messages {
		seen[m.ID] = true
	}
	for _, m := range history {
		if !seen[m.ID] {
			s.messages = append(s.messages, m)
		}
	}
	s.mu.Unlock()

	return history, nil
}

func (s *GroupChatService) LoadMembers(ctx context.Context) ([]model.GroupMember, error) {
	query := url.Values{"groupId": {s.groupID.String()}}

	var members []model.GroupMember
	if err := s.api.Get(ctx, "groups/members", query, &members); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, m := range members {
		s.roster[m.ID] = m
	}
	s.mu.Unlock()

	return members, nil
}

func (s *GroupChatService) Messages() []model.GroupMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GroupMessage(nil), s.messages...)
}

func (s *GroupChatService) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *GroupChatService) TypingUsers() map[uuid.UUID]TypingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]TypingStatus, len(s.typingUsers))
	for id, status := range s.typingUsers {
		out[id] = status
	}
	return out
}

func (s *GroupChatService) ActiveMembers() []model.GroupMember {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]model.GroupMember, 0, len(s.roster))
	for _, m := range s.roster {
		members = append(members, m)
	}
	return members
}

func (s *GroupChatService) handleMessage(raw json.RawMessage) {
	var payload websocket.GroupMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad group_message payload", "error", err)
		return
	}
	if payload.GroupID != s.groupID {
		return
	}

	confirmed := model.GroupMessage{
		ID:        payload.MessageID,
		SenderID:  payload.SenderID,
		GroupID:   payload.GroupID,
		Content:   payload.Content,
		CreatedAt: parseEventTime(payload.CreatedAt),
		IsRead:    payload.IsRead,
		Sender:    senderFromName(payload.SenderID, payload.SenderName, payload.SenderAvatar),
	}

	s.mu.Lock()
	s.messages = reconcileGroupMessages(s.messages, confirmed, s.cfg.ProvisionalMatchWindow)
	if payload.SenderID != s.viewer.ID && !payload.IsRead {
		s.unread++
	}
	s.mu.Unlock()
}

func (s *GroupChatService) handleMessagesRead(raw json.RawMessage) {
	var payload websocket.GroupMessagesReadPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad group_messages_read payload", "error", err)
		return
	}
	if payload.GroupID != s.groupID || payload.UserID != s.viewer.ID {
		return
	}
	readAt := parseEventTime(payload.ReadAt)

	s.mu.Lock()
	s.unread = 0
	for i := range s.messages {
		if !s.messages[i].IsRead {
			s.messages[i].IsRead = true
			s.messages[i].ReadAt = &readAt
		}
	}
	s.mu.Unlock()
}

func (s *GroupChatService) handleTyping(raw json.RawMessage) {
	var payload websocket.GroupUserTypingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad group_user_typing payload", "error", err)
		return
	}
	if payload.GroupID != s.groupID {
		return
	}

	s.mu.Lock()
	s.typingUsers[payload.SenderID] = TypingStatus{
		Timestamp: payload.Timestamp,
		Name:      payload.SenderName,
	}
	s.mu.Unlock()

	captured := payload.Timestamp
	time.AfterFunc(s.cfg.TypingExpiry, func() {
		s.mu.Lock()
		if s.typingUsers[payload.SenderID].Timestamp == captured {
			delete(s.typingUsers, payload.SenderID)
		}
		s.mu.Unlock()
	})
}

func (s *GroupChatService) handleUserJoined(raw json.RawMessage) {
	var payload websocket.GroupUserJoinedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad group_user_joined payload", "error", err)
		return
	}
	if payload.GroupID != s.groupID {
		return
	}

	s.mu.Lock()
	// A join for a member already present is a no-op.
	if _, ok := s.roster[payload.UserID]; !ok {
		s.roster[payload.UserID] = model.GroupMember{
			ID:       payload.UserID,
			Name:     payload.UserName,
			Avatar:   payload.Avatar,
			IsOnline: true,
		}
	}
	s.mu.Unlock()
}

func (s *GroupChatService) handleUserLeft(raw json.RawMessage) {
	var payload websocket.GroupUserLeftPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad group_user_left payload", "error", err)
		return
	}
	if payload.GroupID != s.groupID {
		return
	}

	s.mu.Lock()
	delete(s.roster, payload.UserID)
	s.mu.Unlock()
}
