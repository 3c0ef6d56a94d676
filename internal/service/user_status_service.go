package service

import (
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// UserStatusService tracks contact presence from user_status_update events.
type UserStatusService struct {
	realtime Realtime

	mu       sync.Mutex
	statuses map[uuid.UUID]model.UserStatus
	unsubs   []func()
}

func NewUserStatusService(realtime Realtime) *UserStatusService {
	return &UserStatusService{
		realtime: realtime,
		statuses: make(map[uuid.UUID]model.UserStatus),
	}
}

func (s *UserStatusService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubs != nil {
		return
	}
	s.unsubs = []func(){
		s.realtime.Subscribe(websocket.EventUserStatusUpdate, s.handleStatusUpdate),
	}
}

func (s *UserStatusService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

func (s *UserStatusService) IsOnline(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[userID].IsOnline
}

func (s *UserStatusService) Statuses() map[uuid.UUID]model.UserStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]model.UserStatus, len(s.statuses))
	for id, status := range s.statuses {
		out[id] = status
	}
	return out
}

func (s *UserStatusService) handleStatusUpdate(raw json.RawMessage) {
	var payload websocket.UserStatusUpdatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad user_status_update payload", "error", err)
		return
	}

	s.mu.Lock()
	s.statuses[payload.UserID] = model.UserStatus{
		UserID:   payload.UserID,
		IsOnline: payload.IsOnline,
		LastSeen: time.UnixMilli(payload.Timestamp),
	}
	s.mu.Unlock()
}
