// Package chat implements the realtime messaging subsystem: presence
// tracking, room fan-out, and message CRUD with read receipts.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage"
)

// Service validates and persists chat messages and computes their fan-out
// targets. Delivery is best effort: a receiver with no live handle still
// gets the persisted message on the next history fetch.
type Service struct {
	messages storage.MessageStore
	groups   storage.GroupStore
	presence *Presence
	rooms    *Rooms
	now      func() time.Time
}

// NewService wires the messaging service.
func NewService(messages storage.MessageStore, groups storage.GroupStore, presence *Presence, rooms *Rooms) *Service {
	return &Service{
		messages: messages,
		groups:   groups,
		presence: presence,
		rooms:    rooms,
		now:      time.Now,
	}
}

// Presence exposes the registry for the transport layer.
func (s *Service) Presence() *Presence { return s.presence }

// Rooms exposes the channel router for the transport layer.
func (s *Service) Rooms() *Rooms { return s.rooms }

// SendInput is a validated-at-the-edge message send request. Exactly one of
// ReceiverID and GroupID must be set.
type SendInput struct {
	SenderID   int64
	Content    string
	ReceiverID *int64
	GroupID    *int64
}

// Send persists a new message and delivers it: group messages broadcast on
// the group channel, direct messages go to every live handle of the
// receiver. Repeated calls create duplicate messages; there is no dedup
// token.
func (s *Service) Send(ctx context.Context, in SendInput) (models.ChatMessage, error) {
	if strings.TrimSpace(in.Content) == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: message content is empty", app.ErrValidation)
	}
	if (in.ReceiverID == nil) == (in.GroupID == nil) {
		return models.ChatMessage{}, fmt.Errorf("%w: exactly one of receiverId and groupId is required", app.ErrValidation)
	}
	if in.GroupID != nil {
		member, err := s.IsMember(ctx, *in.GroupID, in.SenderID)
		if err != nil {
			return models.ChatMessage{}, err
		}
		if !member {
			return models.ChatMessage{}, fmt.Errorf("%w: sender is not a member of the group", app.ErrPermission)
		}
	}

	saved, err := s.messages.CreateMessage(ctx, models.ChatMessage{
		Content:    strings.TrimSpace(in.Content),
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		GroupID:    in.GroupID,
	})
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("save message: %w", err)
	}

	s.deliver(saved, Event{Event: EventMessage, Data: saved})
	return saved, nil
}

// HistoryQuery selects either a group's messages or the direct conversation
// between two users, in either direction.
type HistoryQuery struct {
	GroupID    *int64
	SenderID   int64
	ReceiverID *int64
	Page       int
	Limit      int
}

// History returns messages in chronological order, paginated by skip/limit.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]models.ChatMessage, error) {
	switch {
	case q.GroupID != nil:
		return s.messages.GroupHistory(ctx, *q.GroupID, q.Page, q.Limit)
	case q.ReceiverID != nil:
		return s.messages.DirectHistory(ctx, q.SenderID, *q.ReceiverID, q.Page, q.Limit)
	default:
		return nil, fmt.Errorf("%w: groupId or senderId+receiverId is required", app.ErrValidation)
	}
}

// Edit mutates the content of the requester's own message and re-delivers
// the updated record to the original audience.
func (s *Service) Edit(ctx context.Context, messageID int64, newContent string, requesterID int64) (models.ChatMessage, error) {
	if strings.TrimSpace(newContent) == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: message content is empty", app.ErrValidation)
	}
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return models.ChatMessage{}, err
	}
	if msg.SenderID != requesterID {
		return models.ChatMessage{}, fmt.Errorf("%w: only the sender may edit a message", app.ErrPermission)
	}

	updated, err := s.messages.UpdateContent(ctx, messageID, strings.TrimSpace(newContent), s.now().UTC())
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("update message: %w", err)
	}

	s.deliver(updated, Event{Event: EventMessageUpdated, Data: updated})
	return updated, nil
}

// MarkRead adds the reader to the message's read set; calling it twice is a
// no-op for the set's contents. The sender (direct) or the other live group
// members are notified of the update.
func (s *Service) MarkRead(ctx context.Context, messageID, readerID int64) (models.ChatMessage, error) {
	if _, err := s.getMessage(ctx, messageID); err != nil {
		return models.ChatMessage{}, err
	}
	updated, err := s.messages.MarkRead(ctx, messageID, readerID, s.now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.ChatMessage{}, fmt.Errorf("%w: message", app.ErrNotFound)
		}
		return models.ChatMessage{}, fmt.Errorf("mark read: %w", err)
	}

	evt := Event{Event: EventMessageUpdated, Data: updated}
	if updated.IsGroup() {
		s.notifyGroupMembers(ctx, *updated.GroupID, readerID, evt)
	} else if updated.SenderID != readerID {
		for _, h := range s.presence.HandlesFor(updated.SenderID) {
			h.Deliver(evt)
		}
	}
	return updated, nil
}

// Delete hard-removes the requester's own message and notifies the original
// audience with just the message id.
func (s *Service) Delete(ctx context.Context, messageID, requesterID int64) error {
	msg, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return fmt.Errorf("%w: only the sender may delete a message", app.ErrPermission)
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	s.deliver(msg, Event{Event: EventMessageDeleted, Data: map[string]int64{"messageId": messageID}})
	return nil
}

// Typing forwards an ephemeral typing signal to all live handles of the
// receiver. Nothing is persisted.
func (s *Service) Typing(userID int64, isTyping bool, receiverID int64) {
	evt := Event{Event: EventTyping, Data: map[string]any{"userId": userID, "isTyping": isTyping}}
	for _, h := range s.presence.HandlesFor(receiverID) {
		h.Deliver(evt)
	}
}

// JoinRoom subscribes the handle to the group channel and returns the most
// recent page of history in chronological order. No membership check happens
// here; the room channel is not a security boundary.
func (s *Service) JoinRoom(ctx context.Context, h Handle, groupID int64, page, limit int) ([]models.ChatMessage, error) {
	s.rooms.Join(h, groupID)
	latest, err := s.messages.LatestGroupMessages(ctx, groupID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch room history: %w", err)
	}
	// Newest-first fetch, reversed to chronological order before delivery.
	for i, j := 0, len(latest)-1; i < j; i, j = i+1, j-1 {
		latest[i], latest[j] = latest[j], latest[i]
	}
	return latest, nil
}

// IsMember reports whether the user belongs to the group roster.
func (s *Service) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("%w: group", app.ErrNotFound)
		}
		return false, err
	}
	return group.HasMember(userID), nil
}

func (s *Service) getMessage(ctx context.Context, id int64) (models.ChatMessage, error) {
	msg, err := s.messages.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.ChatMessage{}, fmt.Errorf("%w: message", app.ErrNotFound)
		}
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// deliver fans an event out to the message's audience: the group channel
// for room messages, the receiver's live handles for direct ones.
func (s *Service) deliver(msg models.ChatMessage, evt Event) {
	if msg.IsGroup() {
		s.rooms.Broadcast(*msg.GroupID, evt)
		return
	}
	if msg.ReceiverID == nil {
		return
	}
	for _, h := range s.presence.HandlesFor(*msg.ReceiverID) {
		h.Deliver(evt)
	}
}

// notifyGroupMembers delivers to every roster member with a live handle,
// excluding one user.
func (s *Service) notifyGroupMembers(ctx context.Context, groupID, excludeUserID int64, evt Event) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return
	}
	for _, member := range group.Members {
		if member == excludeUserID {
			continue
		}
		for _, h := range s.presence.HandlesFor(member) {
			h.Deliver(evt)
		}
	}
}
