package devserver

import (
	"SocialPulse/internal/model"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the dev server's in-memory state. It stands in for the real
// backend's database; everything vanishes when the process exits.
type Store struct {
	mu sync.Mutex

	users          map[uuid.UUID]model.UserDTO
	messages       []model.Message
	groupMessages  map[uuid.UUID][]model.GroupMessage
	groupMembers   map[uuid.UUID]map[uuid.UUID]model.GroupMember
	followRequests map[uuid.UUID][]model.FollowRequest
	following      map[uuid.UUID][]model.Contact
	notifications  map[uuid.UUID][]model.Notification
}

func NewStore() *Store {
	return &Store{
		users:          make(map[uuid.UUID]model.UserDTO),
		groupMessages:  make(map[uuid.UUID][]model.GroupMessage),
		groupMembers:   make(map[uuid.UUID]map[uuid.UUID]model.GroupMember),
		followRequests: make(map[uuid.UUID][]model.FollowRequest),
		following:      make(map[uuid.UUID][]model.Contact),
		notifications:  make(map[uuid.UUID][]model.Notification),
	}
}

// EnsureUser registers a user the first time its token shows up.
func (s *Store) EnsureUser(id uuid.UUID) model.UserDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[id]; ok {
		return user
	}
	user := model.UserDTO{
		ID:        id,
		FirstName: "User",
		LastName:  shortID(id),
	}
	s.users[id] = user
	return user
}

func (s *Store) Users(except uuid.UUID) []model.UserDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.UserDTO, 0, len(s.users))
	for id, user := range s.users {
		if id != except {
			out = append(out, user)
		}
	}
	return out
}

func (s *Store) AddMessage(m model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// MessagesBetween returns the conversation of two users, oldest first.
func (s *Store) MessagesBetween(a, b uuid.UUID, limit, offset int) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Message
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return page(out, limit, offset)
}

// MarkMessagesRead flips every unread message from sender to reader and
// reports whether anything changed.
func (s *Store) MarkMessagesRead(sender, reader uuid.UUID, readAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.messages {
		m := &s.messages[i]
		if m.SenderID == sender && m.ReceiverID == reader && !m.IsRead {
			m.IsRead = true
			m.ReadAt = &readAt
			changed = true
		}
	}
	return changed
}

func (s *Store) AddGroupMessage(m model.GroupMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupMessages[m.GroupID] = append(s.groupMessages[m.GroupID], m)
}

func (s *Store) GroupMessages(groupID uuid.UUID, limit, offset int) []model.GroupMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(s.groupMessages[groupID], limit, offset)
}

func (s *Store) JoinGroup(groupID uuid.UUID, member model.GroupMember) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groupMembers[groupID]; !ok {
		s.groupMembers[groupID] = make(map[uuid.UUID]model.GroupMember)
	}
	if _, ok := s.groupMembers[groupID][member.ID]; ok {
		return false
	}
	s.groupMembers[groupID][member.ID] = member
	return true
}

func (s *Store) LeaveGroup(groupID, userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groupMembers[groupID][userID]; !ok {
		return false
	}
	delete(s.groupMembers[groupID], userID)
	return true
}

func (s *Store) GroupMemberIDs(groupID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uuid.UUID, 0, len(s.groupMembers[groupID]))
	for id := range s.groupMembers[groupID] {
		out = append(out, id)
	}
	return out
}

func (s *Store) GroupMembers(groupID uuid.UUID) []model.GroupMember {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.GroupMember, 0, len(s.groupMembers[groupID]))
	for _, m := range s.groupMembers[groupID] {
		out = append(out, m)
	}
	return out
}

func (s *Store) AddFollowRequest(target uuid.UUID, request model.FollowRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followRequests[target] = append([]model.FollowRequest{request}, s.followRequests[target]...)
}

func (s *Store) FollowRequests(target uuid.UUID) []model.FollowRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FollowRequest(nil), s.followRequests[target]...)
}

// ResolveFollowRequest removes the pending request from follower on
// target's list, reporting whether it existed.
func (s *Store) ResolveFollowRequest(target, follower uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := s.followRequests[target]
	for i, r := range requests {
		if r.FollowerID == follower {
			s.followRequests[target] = append(requests[:i:i], requests[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) AddFollowing(owner uuid.UUID, contact model.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.following[owner] = append(s.following[owner], contact)
}

func (s *Store) Following(owner uuid.UUID) []model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Contact(nil), s.following[owner]...)
}

func (s *Store) AddNotification(owner uuid.UUID, n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[owner] = append([]model.Notification{n}, s.notifications[owner]...)
}

func (s *Store) Notifications(owner uuid.UUID, limit, offset int) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(s.notifications[owner], limit, offset)
}

func (s *Store) MarkNotificationRead(owner, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications[owner] {
		if s.notifications[owner][i].ID == id {
			s.notifications[owner][i].IsRead = true
			return true
		}
	}
	return false
}

func (s *Store) MarkAllNotificationsRead(owner uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications[owner] {
		s.notifications[owner][i].IsRead = true
	}
}

func (s *Store) ClearNotifications(owner uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notifications, owner)
}

func (s *Store) RemoveNotification(owner, id uuid.UUID) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notifications[owner]
	for i, n := range list {
		if n.ID == id {
			s.notifications[owner] = append(list[:i:i], list[i+1:]...)
			return n, true
		}
	}
	return model.Notification{}, false
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return append([]T(nil), items...)
}

func shortID(id uuid.UUID) string {
	return fmt.Sprintf("%.8s", id.String())
}
