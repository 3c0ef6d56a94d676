package service

import (
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newNotificationService(t *testing.T, handler http.Handler) (*NotificationService, *fakeRealtime) {
	t.Helper()

	realtime := newFakeRealtime(true)
	api, _ := newTestAPI(t, handler)

	s := NewNotificationService(api, realtime)
	s.Start()
	t.Cleanup(s.Stop)

	return s, realtime
}

func TestNotificationServiceFetchAndUnreadCount(t *testing.T) {
	feed := []model.Notification{
		{ID: uuid.New(), Type: "like", Message: "liked your post"},
		{ID: uuid.New(), Type: "comment", Message: "commented", IsRead: true},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(feed)
	})

	s, _ := newNotificationService(t, mux)

	got, err := s.Fetch(context.Background(), 20, 0)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, s.UnreadCount())
}

func TestNotificationServiceLiveUpdatePrepends(t *testing.T) {
	s, realtime := newNotificationService(t, okHandler())

	realtime.emit(t, websocket.EventNotificationUpdate, websocket.NotificationUpdatePayload{
		ID:        uuid.New(),
		Type:      "like",
		Message:   "older",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})
	realtime.emit(t, websocket.EventNotificationUpdate, websocket.NotificationUpdatePayload{
		ID:        uuid.New(),
		Type:      "follow_request",
		Message:   "newer",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})

	notifications := s.Notifications()
	assert.Len(t, notifications, 2)
	assert.Equal(t, "newer", notifications[0].Message)
	assert.Equal(t, 2, s.UnreadCount())
}

func TestNotificationServiceMarkRead(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /notifications/"+id.String(), func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("PUT /notifications/read", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	s, realtime := newNotificationService(t, mux)
	realtime.emit(t, websocket.EventNotificationUpdate, websocket.NotificationUpdatePayload{
		ID:        id,
		Message:   "one",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})
	realtime.emit(t, websocket.EventNotificationUpdate, websocket.NotificationUpdatePayload{
		ID:        uuid.New(),
		Message:   "two",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})

	assert.NoError(t, s.MarkRead(context.Background(), id))
	assert.Equal(t, 1, s.UnreadCount())

	assert.NoError(t, s.MarkAllRead(context.Background()))
	assert.Equal(t, 0, s.UnreadCount())
}

func TestNotificationServiceClearAll(t *testing.T) {
	s, realtime := newNotificationService(t, okHandler())
	realtime.emit(t, websocket.EventNotificationUpdate, websocket.NotificationUpdatePayload{
		ID:        uuid.New(),
		Message:   "gone soon",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})

	assert.NoError(t, s.ClearAll(context.Background()))
	assert.Empty(t, s.Notifications())
}

func TestNotificationServiceHandleFriendRequest(t *testing.T) {
	id := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notifications/"+id.String()+"/accept", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	s, realtime := newNotificationService(t, mux)
	realtime.emit(t, websocket.EventNotificationUpdate, websocket.NotificationUpdatePayload{
		ID:        id,
		Type:      "follow_request",
		Message:   "wants to follow you",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})

	assert.Error(t, s.HandleFriendRequest(context.Background(), id, "ignore"))

	assert.NoError(t, s.HandleFriendRequest(context.Background(), id, "accept"))
	assert.Empty(t, s.Notifications())
}
