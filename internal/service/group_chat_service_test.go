package service

import (
	"SocialPulse/internal/config"
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newGroupChatService(t *testing.T, handler http.Handler) (*GroupChatService, *fakeRealtime, model.UserDTO) {
	t.Helper()

	realtime := newFakeRealtime(true)
	api, cfg := newTestAPI(t, handler)
	viewer := testViewer()

	s := NewGroupChatService(cfg, api, realtime, config.NewValidator(), viewer, uuid.New())
	s.Start()
	t.Cleanup(s.Stop)
	waitForSubscription(t, realtime, websocket.EventGroupMessage)

	return s, realtime, viewer
}

func TestGroupChatServiceFiltersOtherGroups(t *testing.T) {
	s, realtime, _ := newGroupChatService(t, okHandler())

	realtime.emit(t, websocket.EventGroupMessage, websocket.GroupMessagePayload{
		MessageID: uuid.New(),
		SenderID:  uuid.New(),
		GroupID:   uuid.New(),
		Content:   "wrong room",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, s.UnreadCount())

	realtime.emit(t, websocket.EventGroupMessage, websocket.GroupMessagePayload{
		MessageID: uuid.New(),
		SenderID:  uuid.New(),
		GroupID:   s.GroupID(),
		Content:   "right room",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})
	assert.Len(t, s.Messages(), 1)
	assert.Equal(t, 1, s.UnreadCount())
}

func TestGroupChatServiceOptimisticSendCollapsesOnEcho(t *testing.T) {
	s, realtime, viewer := newGroupChatService(t, okHandler())

	provisional, err := s.SendMessage(context.Background(), "group hello")
	assert.NoError(t, err)
	assert.True(t, provisional.Provisional)

	confirmedID := uuid.New()
	realtime.emit(t, websocket.EventGroupMessage, websocket.GroupMessagePayload{
		MessageID: confirmedID,
		SenderID:  viewer.ID,
		GroupID:   s.GroupID(),
		Content:   "group hello",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})

	messages := s.Messages()
	assert.Len(t, messages, 1)
	assert.Equal(t, confirmedID, messages[0].ID)
	// The viewer's own echo never bumps the unread counter.
	assert.Equal(t, 0, s.UnreadCount())
}

func TestGroupChatServiceMarkReadFlipsEverything(t *testing.T) {
	s, realtime, _ := newGroupChatService(t, okHandler())

	for _, content := range []string{"a", "b", "c"} {
		realtime.emit(t, websocket.EventGroupMessage, websocket.GroupMessagePayload{
			MessageID: uuid.New(),
			SenderID:  uuid.New(),
			GroupID:   s.GroupID(),
			Content:   content,
			CreatedAt: time.Now().Format(time.RFC3339Nano),
		})
	}
	assert.Equal(t, 3, s.UnreadCount())

	assert.NoError(t, s.MarkRead(context.Background()))
	assert.Equal(t, 0, s.UnreadCount())
	for _, m := range s.Messages() {
		assert.True(t, m.IsRead)
		assert.NotNil(t, m.ReadAt)
	}
}

func TestGroupChatServiceReadEventForViewerOnly(t *testing.T) {
	s, realtime, viewer := newGroupChatService(t, okHandler())

	realtime.emit(t, websocket.EventGroupMessage, websocket.GroupMessagePayload{
		MessageID: uuid.New(),
		SenderID:  uuid.New(),
		GroupID:   s.GroupID(),
		Content:   "unread",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})
	assert.Equal(t, 1, s.UnreadCount())

	// Another member reading the room does not clear the viewer's counter.
	realtime.emit(t, websocket.EventGroupMessagesRead, websocket.GroupMessagesReadPayload{
		GroupID: s.GroupID(),
		UserID:  uuid.New(),
		ReadAt:  time.Now().Format(time.RFC3339Nano),
	})
	assert.Equal(t, 1, s.UnreadCount())

	realtime.emit(t, websocket.EventGroupMessagesRead, websocket.GroupMessagesReadPayload{
		GroupID: s.GroupID(),
		UserID:  viewer.ID,
		ReadAt:  time.Now().Format(time.RFC3339Nano),
	})
	assert.Equal(t, 0, s.UnreadCount())
}

func TestGroupChatServiceRosterJoinAndLeave(t *testing.T) {
	s, realtime, _ := newGroupChatService(t, okHandler())
	member := uuid.New()

	join := websocket.GroupUserJoinedPayload{
		GroupID:  s.GroupID(),
		UserID:   member,
		UserName: "Grace Hopper",
	}
	realtime.emit(t, websocket.EventGroupUserJoined, join)
	assert.Len(t, s.ActiveMembers(), 1)

	// Duplicate join is a no-op.
	realtime.emit(t, websocket.EventGroupUserJoined, join)
	assert.Len(t, s.ActiveMembers(), 1)

	realtime.emit(t, websocket.EventGroupUserLeft, websocket.GroupUserLeftPayload{
		GroupID: s.GroupID(),
		UserID:  member,
	})
	assert.Empty(t, s.ActiveMembers())

	// Leaving twice stays harmless.
	realtime.emit(t, websocket.EventGroupUserLeft, websocket.GroupUserLeftPayload{
		GroupID: s.GroupID(),
		UserID:  member,
	})
	assert.Empty(t, s.ActiveMembers())
}

func TestGroupChatServiceTypingTracksNames(t *testing.T) {
	s, realtime, _ := newGroupChatService(t, okHandler())
	member := uuid.New()

	realtime.emit(t, websocket.EventGroupUserTyping, websocket.GroupUserTypingPayload{
		GroupID:    s.GroupID(),
		SenderID:   member,
		SenderName: "Grace Hopper",
		Timestamp:  time.Now().UnixMilli(),
	})

	typing := s.TypingUsers()
	assert.Len(t, typing, 1)
	assert.Equal(t, "Grace Hopper", typing[member].Name)

	assert.Eventually(t, func() bool {
		return len(s.TypingUsers()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestGroupChatServiceStopSilencesHandlers(t *testing.T) {
	s, realtime, _ := newGroupChatService(t, okHandler())

	s.Stop()
	realtime.emit(t, websocket.EventGroupMessage, websocket.GroupMessagePayload{
		MessageID: uuid.New(),
		SenderID:  uuid.New(),
		GroupID:   s.GroupID(),
		Content:   "after stop",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
	})
	assert.Empty(t, s.Messages())
}
