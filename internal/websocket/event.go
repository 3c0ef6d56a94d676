package websocket

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type EventType string

const (
	EventPostCreated      EventType = "post_created"
	EventPostLiked        EventType = "post_liked"
	EventPostCommented    EventType = "post_commented"
	EventUserStatsUpdated EventType = "user_stats_updated"
	EventUserStatusUpdate EventType = "user_status_update"

	EventPrivateMessage EventType = "private_message"
	EventMessagesRead   EventType = "messages_read"
	EventUserTyping     EventType = "user_typing"

	EventGroupMessage      EventType = "group_message"
	EventGroupMessagesRead EventType = "group_messages_read"
	EventGroupUserTyping   EventType = "group_user_typing"
	EventGroupUserJoined   EventType = "group_user_joined"
	EventGroupUserLeft     EventType = "group_user_left"

	EventNotificationUpdate    EventType = "notification_update"
	EventFollowRequest         EventType = "follow_request"
	EventFollowRequestAccepted EventType = "follow_request_accepted"
)

// Event is the wire envelope carried over the socket in both directions.
// Payload stays raw until a subscriber decodes it into its own type.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PrivateMessagePayload is the broadcast echo of a direct message, sent to
// both sender and receiver.
type PrivateMessagePayload struct {
	MessageID    uuid.UUID `json:"messageId"`
	SenderID     uuid.UUID `json:"senderId"`
	ReceiverID   uuid.UUID `json:"receiverId"`
	Content      string    `json:"content"`
	CreatedAt    string    `json:"createdAt"`
	IsRead       bool      `json:"isRead"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar"`
}

type MessagesReadPayload struct {
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	ReadAt     string    `json:"readAt"`
}

type UserTypingPayload struct {
	SenderID  uuid.UUID `json:"senderId"`
	Timestamp int64     `json:"timestamp"`
}

type GroupMessagePayload struct {
	MessageID    uuid.UUID `json:"messageId"`
	SenderID     uuid.UUID `json:"senderId"`
	GroupID      uuid.UUID `json:"groupId"`
	Content      string    `json:"content"`
	CreatedAt    string    `json:"createdAt"`
	IsRead       bool      `json:"isRead"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar"`
}

type GroupMessagesReadPayload struct {
	GroupID uuid.UUID `json:"groupId"`
	UserID  uuid.UUID `json:"userId"`
	ReadAt  string    `json:"readAt"`
}

type GroupUserTypingPayload struct {
	GroupID    uuid.UUID `json:"groupId"`
	SenderID   uuid.UUID `json:"senderId"`
	SenderName string    `json:"senderName"`
	Timestamp  int64     `json:"timestamp"`
}

type GroupUserJoinedPayload struct {
	GroupID  uuid.UUID `json:"groupId"`
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName"`
	Avatar   string    `json:"avatar"`
}

type GroupUserLeftPayload struct {
	GroupID uuid.UUID `json:"groupId"`
	UserID  uuid.UUID `json:"userId"`
}

type UserStatusUpdatePayload struct {
	UserID    uuid.UUID `json:"userId"`
	IsOnline  bool      `json:"isOnline"`
	Timestamp int64     `json:"timestamp"`
}

type FollowRequestPayload struct {
	FollowerID   uuid.UUID `json:"followerID"`
	FollowerName string    `json:"followerName"`
	Avatar       string    `json:"avatar"`
}

type FollowRequestAcceptedPayload struct {
	UserID   uuid.UUID `json:"userID"`
	UserName string    `json:"userName"`
}

type NotificationUpdatePayload struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar"`
	CreatedAt    string    `json:"createdAt"`
	IsRead       bool      `json:"isRead"`
}
