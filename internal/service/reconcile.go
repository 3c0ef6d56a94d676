package service

import (
	"SocialPulse/internal/model"
	"strings"
	"time"

	"github.com/google/uuid"
)

// reconcileMessages folds a confirmed inbound message into a conversation
// bucket. A provisional entry from the same sender with the same content,
// created within the match window, is replaced in place (newest first);
// otherwise the confirmed message is appended. An id already present is
// dropped as a duplicate.
func reconcileMessages(bucket []model.Message, confirmed model.Message, window time.Duration) []model.Message {
	for i := range bucket {
		if bucket[i].ID != uuid.Nil && bucket[i].ID == confirmed.ID {
			return bucket
		}
	}

	cutoff := time.Now().Add(-window)
	for i := len(bucket) - 1; i >= 0; i-- {
		m := bucket[i]
		if m.Provisional && m.SenderID == confirmed.SenderID && m.Content == confirmed.Content && m.CreatedAt.After(cutoff) {
			bucket[i] = confirmed
			return bucket
		}
	}

	return append(bucket, confirmed)
}

func reconcileGroupMessages(bucket []model.GroupMessage, confirmed model.GroupMessage, window time.Duration) []model.GroupMessage {
	for i := range bucket {
		if bucket[i].ID != uuid.Nil && bucket[i].ID == confirmed.ID {
			return bucket
		}
	}

	cutoff := time.Now().Add(-window)
	for i := len(bucket) - 1; i >= 0; i-- {
		m := bucket[i]
		if m.Provisional && m.SenderID == confirmed.SenderID && m.Content == confirmed.Content && m.CreatedAt.After(cutoff) {
			bucket[i] = confirmed
			return bucket
		}
	}

	return append(bucket, confirmed)
}

// parseEventTime reads the RFC3339 timestamps events carry; receipt time is
// the fallback for anything unparseable.
func parseEventTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Now()
	}
	return parsed
}

func senderFromName(id uuid.UUID, displayName, avatar string) model.Sender {
	first, last, _ := strings.Cut(displayName, " ")
	return model.Sender{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Avatar:    avatar,
	}
}
