package model

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar"`
	CreatedAt    time.Time `json:"createdAt"`
	IsRead       bool      `json:"isRead"`
}
