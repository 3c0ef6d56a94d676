package devserver

import (
	"SocialPulse/internal/helper"
	"SocialPulse/internal/model"
	"SocialPulse/internal/websocket"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *helper.AppError
	if !errors.As(err, &appErr) {
		appErr = helper.NewInternalServerError("")
	}
	writeJSON(w, appErr.Code, map[string]string{"error": appErr.Message})
}

func decodeBody(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return helper.NewBadRequestError("")
	}
	return nil
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	return limit, offset
}

func displayName(u model.UserDTO) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ReceiverID == uuid.Nil || req.Content == "" {
		writeError(w, helper.NewBadRequestError(""))
		return
	}

	sender := s.store.EnsureUser(s.viewer(r))
	s.store.EnsureUser(req.ReceiverID)

	message := model.Message{
		ID:         uuid.New(),
		SenderID:   sender.ID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		CreatedAt:  time.Now(),
		Sender: model.Sender{
			ID:        sender.ID,
			FirstName: sender.FirstName,
			LastName:  sender.LastName,
			Avatar:    sender.Avatar,
		},
	}
	s.store.AddMessage(message)

	payload := websocket.PrivateMessagePayload{
		MessageID:    message.ID,
		SenderID:     message.SenderID,
		ReceiverID:   message.ReceiverID,
		Content:      message.Content,
		CreatedAt:    message.CreatedAt.Format(time.RFC3339Nano),
		SenderName:   displayName(sender),
		SenderAvatar: sender.Avatar,
	}
	s.hub.BroadcastToUser(message.SenderID, websocket.EventPrivateMessage, payload)
	if message.ReceiverID != message.SenderID {
		s.hub.BroadcastToUser(message.ReceiverID, websocket.EventPrivateMessage, payload)
	}

	writeJSON(w, http.StatusCreated, message)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	other, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, helper.NewBadRequestError(""))
		return
	}
	limit, offset := pageParams(r)
	writeJSON(w, http.StatusOK, s.store.MessagesBetween(s.viewer(r), other, limit, offset))
}

func (s *Server) getContacts(w http.ResponseWriter, r *http.Request) {
	users := s.store.Users(s.viewer(r))
	contacts := make([]model.Contact, 0, len(users))
	for _, u := range users {
		contacts = append(contacts, model.Contact{
			ID:       u.ID,
			Name:     displayName(u),
			Avatar:   u.Avatar,
			IsOnline: s.hub.IsOnline(u.ID),
		})
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	var req model.MarkReadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	reader := s.viewer(r)
	readAt := time.Now()
	if s.store.MarkMessagesRead(req.SenderID, reader, readAt) {
		payload := websocket.MessagesReadPayload{
			SenderID:   req.SenderID,
			ReceiverID: reader,
			ReadAt:     readAt.Format(time.RFC3339Nano),
		}
		s.hub.BroadcastToUser(req.SenderID, websocket.EventMessagesRead, payload)
		s.hub.BroadcastToUser(reader, websocket.EventMessagesRead, payload)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) typing(w http.ResponseWriter, r *http.Request) {
	var req model.TypingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.hub.BroadcastToUser(req.ReceiverID, websocket.EventUserTyping, websocket.UserTypingPayload{
		SenderID:  s.viewer(r),
		Timestamp: time.Now().UnixMilli(),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) sendGroupMessage(w http.ResponseWriter, r *http.Request) {
	var req model.SendGroupMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.GroupID == uuid.Nil || req.Content == "" {
		writeError(w, helper.NewBadRequestError(""))
		return
	}

	sender := s.store.EnsureUser(s.viewer(r))
	message := model.GroupMessage{
		ID:        uuid.New(),
		SenderID:  sender.ID,
		GroupID:   req.GroupID,
		Content:   req.Content,
		CreatedAt: time.Now(),
		Sender: model.Sender{
			ID:        sender.ID,
			FirstName: sender.FirstName,
			LastName:  sender.LastName,
			Avatar:    sender.Avatar,
		},
	}
	s.store.AddGroupMessage(message)

	payload := websocket.GroupMessagePayload{
		MessageID:    message.ID,
		SenderID:     message.SenderID,
		GroupID:      message.GroupID,
		Content:      message.Content,
		CreatedAt:    message.CreatedAt.Format(time.RFC3339Nano),
		SenderName:   displayName(sender),
		SenderAvatar: sender.Avatar,
	}
	s.broadcastToGroup(message.GroupID, websocket.EventGroupMessage, payload)

	writeJSON(w, http.StatusCreated, message)
}

func (s *Server) getGroupMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(r.URL.Query().Get("groupId"))
	if err != nil {
		writeError(w, helper.NewBadRequestError(""))
		return
	}
	limit, offset := pageParams(r)
	writeJSON(w, http.StatusOK, s.store.GroupMessages(groupID, limit, offset))
}

func (s *Server) getGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(r.URL.Query().Get("groupId"))
	if err != nil {
		writeError(w, helper.NewBadRequestError(""))
		return
	}

	members := s.store.GroupMembers(groupID)
	for i := range members {
		members[i].IsOnline = s.hub.IsOnline(members[i].ID)
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) markGroupRead(w http.ResponseWriter, r *http.Request) {
	var req model.GroupMarkReadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.broadcastToGroup(req.GroupID, websocket.EventGroupMessagesRead, websocket.GroupMessagesReadPayload{
		GroupID: req.GroupID,
		UserID:  s.viewer(r),
		ReadAt:  time.Now().Format(time.RFC3339Nano),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) groupTyping(w http.ResponseWriter, r *http.Request) {
	var req model.GroupTypingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sender := s.store.EnsureUser(s.viewer(r))
	s.broadcastToGroup(req.GroupID, websocket.EventGroupUserTyping, websocket.GroupUserTypingPayload{
		GroupID:    req.GroupID,
		SenderID:   sender.ID,
		SenderName: displayName(sender),
		Timestamp:  time.Now().UnixMilli(),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) joinGroup(w http.ResponseWriter, r *http.Request) {
	var req model.GroupMarkReadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user := s.store.EnsureUser(s.viewer(r))
	member := model.GroupMember{
		ID:     user.ID,
		Name:   displayName(user),
		Avatar: user.Avatar,
	}
	if s.store.JoinGroup(req.GroupID, member) {
		s.broadcastToGroup(req.GroupID, websocket.EventGroupUserJoined, websocket.GroupUserJoinedPayload{
			GroupID:  req.GroupID,
			UserID:   member.ID,
			UserName: member.Name,
			Avatar:   member.Avatar,
		})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) leaveGroup(w http.ResponseWriter, r *http.Request) {
	var req model.GroupMarkReadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID := s.viewer(r)
	if s.store.LeaveGroup(req.GroupID, userID) {
		payload := websocket.GroupUserLeftPayload{GroupID: req.GroupID, UserID: userID}
		s.broadcastToGroup(req.GroupID, websocket.EventGroupUserLeft, payload)
		s.hub.BroadcastToUser(userID, websocket.EventGroupUserLeft, payload)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) broadcastToGroup(groupID uuid.UUID, eventType websocket.EventType, payload interface{}) {
	for _, memberID := range s.store.GroupMemberIDs(groupID) {
		s.hub.BroadcastToUser(memberID, eventType, payload)
	}
}

func (s *Server) pendingRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.FollowRequests(s.viewer(r)))
}

func (s *Server) following(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Following(s.viewer(r)))
}

func (s *Server) followRequest(w http.ResponseWriter, r *http.Request) {
	var req model.FollowActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, helper.NewBadRequestError(""))
		return
	}

	follower := s.store.EnsureUser(s.viewer(r))
	s.store.EnsureUser(req.UserID)

	request := model.FollowRequest{
		ID:         uuid.New(),
		FollowerID: follower.ID,
		Name:       displayName(follower),
		Avatar:     follower.Avatar,
	}
	s.store.AddFollowRequest(req.UserID, request)

	s.hub.BroadcastToUser(req.UserID, websocket.EventFollowRequest, websocket.FollowRequestPayload{
		FollowerID:   follower.ID,
		FollowerName: request.Name,
		Avatar:       follower.Avatar,
	})

	notification := model.Notification{
		ID:         uuid.New(),
		Type:       "follow_request",
		Message:    request.Name + " wants to follow you",
		SenderName: request.Name,
		CreatedAt:  time.Now(),
	}
	s.store.AddNotification(req.UserID, notification)
	s.hub.BroadcastToUser(req.UserID, websocket.EventNotificationUpdate, websocket.NotificationUpdatePayload{
		ID:         notification.ID,
		Type:       notification.Type,
		Message:    notification.Message,
		SenderName: notification.SenderName,
		CreatedAt:  notification.CreatedAt.Format(time.RFC3339Nano),
	})

	writeJSON(w, http.StatusCreated, request)
}

func (s *Server) acceptFollow(w http.ResponseWriter, r *http.Request) {
	var req model.FollowActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	target := s.store.EnsureUser(s.viewer(r))
	if !s.store.ResolveFollowRequest(target.ID, req.UserID) {
		writeError(w, helper.NewNotFoundError(""))
		return
	}

	follower := s.store.EnsureUser(req.UserID)
	s.store.AddFollowing(follower.ID, model.Contact{
		ID:     target.ID,
		Name:   displayName(target),
		Avatar: target.Avatar,
	})
	s.store.AddFollowing(target.ID, model.Contact{
		ID:     follower.ID,
		Name:   displayName(follower),
		Avatar: follower.Avatar,
	})

	s.hub.BroadcastToUser(follower.ID, websocket.EventFollowRequestAccepted, websocket.FollowRequestAcceptedPayload{
		UserID:   target.ID,
		UserName: displayName(target),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) declineFollow(w http.ResponseWriter, r *http.Request) {
	var req model.FollowActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if !s.store.ResolveFollowRequest(s.viewer(r), req.UserID) {
		writeError(w, helper.NewNotFoundError(""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	writeJSON(w, http.StatusOK, s.store.Notifications(s.viewer(r), limit, offset))
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, helper.NewBadRequestError(""))
		return
	}

	if !s.store.MarkNotificationRead(s.viewer(r), id) {
		writeError(w, helper.NewNotFoundError(""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	s.store.MarkAllNotificationsRead(s.viewer(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) clearNotifications(w http.ResponseWriter, r *http.Request) {
	s.store.ClearNotifications(s.viewer(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) notificationAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action != "accept" && action != "decline" {
		writeError(w, helper.NewBadRequestError(""))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, helper.NewBadRequestError(""))
		return
	}

	viewer := s.viewer(r)
	notification, ok := s.store.RemoveNotification(viewer, id)
	if !ok {
		writeError(w, helper.NewNotFoundError(""))
		return
	}

	slog.Info("Resolved notification", "id", notification.ID, "action", action, "user", viewer)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
