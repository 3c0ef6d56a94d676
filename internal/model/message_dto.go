package model

import (
	"time"

	"github.com/google/uuid"
)

type Sender struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Avatar    string    `json:"avatar"`
}

// Message is one direct-chat entry. Provisional marks a locally created
// message still waiting for its server echo; TempID identifies it until the
// confirmed ID arrives.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	TempID      uuid.UUID  `json:"-"`
	SenderID    uuid.UUID  `json:"senderId"`
	ReceiverID  uuid.UUID  `json:"receiverId"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"createdAt"`
	IsRead      bool       `json:"isRead"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	Provisional bool       `json:"-"`
	Sender      Sender     `json:"sender"`
}

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiverId" validate:"required"`
	Content    string    `json:"content" validate:"required,max=4000"`
}

type MarkReadRequest struct {
	SenderID uuid.UUID `json:"senderId" validate:"required"`
}

type TypingRequest struct {
	ReceiverID uuid.UUID `json:"receiverId" validate:"required"`
}

type Contact struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
}
