package model

import "github.com/google/uuid"

type FollowRequest struct {
	ID            uuid.UUID `json:"id"`
	FollowerID    uuid.UUID `json:"followerId"`
	Name          string    `json:"name"`
	Avatar        string    `json:"avatar"`
	MutualFriends int       `json:"mutualFriendsCount"`
}

type FollowActionRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}
