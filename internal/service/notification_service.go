package service

import (
	"SocialPulse/internal/adapter"
	"SocialPulse/internal/helper"
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// NotificationService is the notification-feed stream adapter.
type NotificationService struct {
	api      *adapter.APIAdapter
	realtime Realtime

	mu            sync.Mutex
	notifications []model.Notification
	unsubs        []func()
}

func NewNotificationService(api *adapter.APIAdapter, realtime Realtime) *NotificationService {
	return &NotificationService{
		api:      api,
		realtime: realtime,
	}
}

func (s *NotificationService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubs != nil {
		return
	}
	s.unsubs = []func(){
		s.realtime.Subscribe(websocket.EventNotificationUpdate, s.handleUpdate),
	}
}

func (s *NotificationService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

func (s *NotificationService) Fetch(ctx context.Context, limit, offset int) ([]model.Notification, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	var notifications []model.Notification
	if err := s.api.Get(ctx, "notifications", query, &notifications); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.notifications = notifications
	s.mu.Unlock()

	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID) error {
	if err := s.api.Put(ctx, "notifications/"+id.String()); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	if err := s.api.Put(ctx, "notifications/read"); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}
	s.mu.Unlock()
	return nil
}

func (s *NotificationService) ClearAll(ctx context.Context) error {
	if err := s.api.Delete(ctx, "notifications"); err != nil {
		return err
	}

	s.mu.Lock()
	s.notifications = nil
	s.mu.Unlock()
	return nil
}

// HandleFriendRequest accepts or declines the friend request behind a
// notification and drops the notification from the feed.
func (s *NotificationService) HandleFriendRequest(ctx context.Context, id uuid.UUID, action string) error {
	if action != "accept" && action != "decline" {
		return helper.NewBadRequestError(fmt.Sprintf("unknown action %q", action))
	}

	path := fmt.Sprintf("notifications/%s/%s", id, action)
	if err := s.api.Post(ctx, path, nil, nil); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	s.mu.Unlock()
	return nil
}

func (s *NotificationService) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.notifications...)
}

func (s *NotificationService) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (s *NotificationService) handleUpdate(raw json.RawMessage) {
	var payload websocket.NotificationUpdatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad notification_update payload", "error", err)
		return
	}

	notification := model.Notification{
		ID:           payload.ID,
		Type:         payload.Type,
		Message:      payload.Message,
		SenderName:   payload.SenderName,
		SenderAvatar: payload.SenderAvatar,
		CreatedAt:    parseEventTime(payload.CreatedAt),
		IsRead:       payload.IsRead,
	}

	s.mu.Lock()
	s.notifications = append([]model.Notification{notification}, s.notifications...)
	s.mu.Unlock()
}
