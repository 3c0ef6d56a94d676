package service

import (
	"SocialPulse/internal/adapter"
	"SocialPulse/internal/helper"
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"context"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/go-playground/validator/v10"
)

// FollowService is the friend/follow stream adapter: it keeps the pending
// request list and the contact roster current from follow_request and
// follow_request_accepted events, and exposes the accept/decline actions.
type FollowService struct {
	api       *adapter.APIAdapter
	realtime  Realtime
	validator *validator.Validate

	mu       sync.Mutex
	requests []model.FollowRequest
	contacts []model.Contact
	unsubs   []func()
}

func NewFollowService(api *adapter.APIAdapter, realtime Realtime, validator *validator.Validate) *FollowService {
	return &FollowService{
		api:       api,
		realtime:  realtime,
		validator: validator,
	}
}

func (s *FollowService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubs != nil {
		return
	}
	s.unsubs = []func(){
		s.realtime.Subscribe(websocket.EventFollowRequest, s.handleFollowRequest),
		s.realtime.Subscribe(websocket.EventFollowRequestAccepted, s.handleRequestAccepted),
	}
}

func (s *FollowService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

func (s *FollowService) FetchPendingRequests(ctx context.Context) ([]model.FollowRequest, error) {
	var requests []model.FollowRequest
	if err := s.api.Get(ctx, "follow/pending-requests", nil, &requests); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests = requests
	s.mu.Unlock()

	return requests, nil
}

func (s *FollowService) FetchFollowing(ctx context.Context) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := s.api.Get(ctx, "follow/following", nil, &contacts); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.contacts = contacts
	s.mu.Unlock()

	return contacts, nil
}

// Accept confirms a pending request, removes it locally and refreshes the
// contact roster.
func (s *FollowService) Accept(ctx context.Context, userID uuid.UUID) error {
	req := model.FollowActionRequest{UserID: userID}
	if err := s.validator.Struct(req); err != nil {
		return helper.NewBadRequestError("")
	}
	if err := s.api.Post(ctx, "follow/accept", req, nil); err != nil {
		return err
	}

	s.removeRequest(userID)

	if _, err := s.FetchFollowing(ctx); err != nil {
		slog.Warn("Failed to refresh contacts after accept", "error", err)
	}
	return nil
}

func (s *FollowService) Decline(ctx context.Context, userID uuid.UUID) error {
	req := model.FollowActionRequest{UserID: userID}
	if err := s.validator.Struct(req); err != nil {
		return helper.NewBadRequestError("")
	}
	if err := s.api.Post(ctx, "follow/decline", req, nil); err != nil {
		return err
	}

	s.removeRequest(userID)
	return nil
}

func (s *FollowService) PendingRequests() []model.FollowRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FollowRequest(nil), s.requests...)
}

func (s *FollowService) Contacts() []model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Contact(nil), s.contacts...)
}

func (s *FollowService) removeRequest(followerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.requests[:0]
	for _, r := range s.requests {
		if r.FollowerID != followerID {
			kept = append(kept, r)
		}
	}
	s.requests = kept
}

func (s *FollowService) handleFollowRequest(raw json.RawMessage) {
	var payload websocket.FollowRequestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad follow_request payload", "error", err)
		return
	}

	request := model.FollowRequest{
		ID:         uuid.New(),
		FollowerID: payload.FollowerID,
		Name:       payload.FollowerName,
		Avatar:     payload.Avatar,
	}

	s.mu.Lock()
	s.requests = append([]model.FollowRequest{request}, s.requests...)
	s.mu.Unlock()
}

func (s *FollowService) handleRequestAccepted(raw json.RawMessage) {
	var payload websocket.FollowRequestAcceptedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("Bad follow_request_accepted payload", "error", err)
		return
	}

	// The roster changed server-side; refetch rather than patch locally.
	go func() {
		if _, err := s.FetchFollowing(context.Background()); err != nil {
			slog.Warn("Failed to refresh contacts", "error", err)
		}
	}()
}
