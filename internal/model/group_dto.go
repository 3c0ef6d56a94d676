package model

import (
	"time"

	"github.com/google/uuid"
)

type GroupMessage struct {
	ID          uuid.UUID  `json:"id"`
	TempID      uuid.UUID  `json:"-"`
	SenderID    uuid.UUID  `json:"senderId"`
	GroupID     uuid.UUID  `json:"groupId"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"createdAt"`
	IsRead      bool       `json:"isRead"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	Provisional bool       `json:"-"`
	Sender      Sender     `json:"sender"`
}

type SendGroupMessageRequest struct {
	GroupID uuid.UUID `json:"groupId" validate:"required"`
	Content string    `json:"content" validate:"required,max=4000"`
}

type GroupMarkReadRequest struct {
	GroupID uuid.UUID `json:"groupId" validate:"required"`
}

type GroupTypingRequest struct {
	GroupID uuid.UUID `json:"groupId" validate:"required"`
}

type GroupMember struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
}
