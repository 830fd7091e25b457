package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/mentorway/mentorway-be/internal/app"
	"github.com/mentorway/mentorway-be/internal/models"
	"github.com/mentorway/mentorway-be/internal/storage/memory"
)

func ptr(v int64) *int64 { return &v }

type chatFixture struct {
	store *memory.Store
	svc   *Service
}

func newChatFixture() *chatFixture {
	store := memory.NewStore()
	return &chatFixture{
		store: store,
		svc:   NewService(store, store, NewPresence(), NewRooms()),
	}
}

func (f *chatFixture) group(t *testing.T, members ...int64) models.Group {
	t.Helper()
	group, err := f.store.CreateGroup(context.Background(), models.Group{Name: "study", Members: members})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return group
}

func TestSendValidation(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		in   SendInput
	}{
		{"empty content", SendInput{SenderID: 1, Content: "   ", ReceiverID: ptr(2)}},
		{"no target", SendInput{SenderID: 1, Content: "hi"}},
		{"both targets", SendInput{SenderID: 1, Content: "hi", ReceiverID: ptr(2), GroupID: ptr(3)}},
	}
	for _, tc := range cases {
		if _, err := f.svc.Send(ctx, tc.in); !errors.Is(err, app.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestSendDirectDelivery(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	receiver, other := &fakeHandle{}, &fakeHandle{}
	f.svc.presence.Register(2, receiver)
	f.svc.presence.Register(3, other)

	saved, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: "hello", ReceiverID: ptr(2)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if saved.ID == 0 || saved.Content != "hello" {
		t.Fatalf("saved = %+v", saved)
	}

	if got := receiver.named(EventMessage); len(got) != 1 {
		t.Fatalf("receiver got %d message events, want 1", len(got))
	}
	if got := other.named(EventMessage); len(got) != 0 {
		t.Fatalf("bystander got %d message events, want 0", len(got))
	}
}

func TestSendOfflineReceiverStillPersists(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: "you there?", ReceiverID: ptr(2)}); err != nil {
		t.Fatalf("send to offline user: %v", err)
	}
	history, err := f.svc.History(ctx, HistoryQuery{SenderID: 2, ReceiverID: ptr(1)})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d messages, want 1", len(history))
	}
}

func TestSendGroupMembership(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	group := f.group(t, 1, 2)

	member, outsider := &fakeHandle{}, &fakeHandle{}
	f.svc.rooms.Join(member, group.ID)
	f.svc.rooms.Join(outsider, group.ID+1)

	if _, err := f.svc.Send(ctx, SendInput{SenderID: 9, Content: "hi", GroupID: &group.ID}); !errors.Is(err, app.ErrPermission) {
		t.Fatalf("non-member send: err = %v, want ErrPermission", err)
	}

	if _, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: "hi", GroupID: &group.ID}); err != nil {
		t.Fatalf("member send: %v", err)
	}
	if got := member.named(EventMessage); len(got) != 1 {
		t.Fatalf("room subscriber got %d events, want 1", len(got))
	}
	if got := outsider.named(EventMessage); len(got) != 0 {
		t.Fatalf("other room got %d events, want 0", len(got))
	}
}

func TestEditOnlyBySender(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	saved, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: "draft", ReceiverID: ptr(2)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := f.svc.Edit(ctx, saved.ID, "hijacked", 2); !errors.Is(err, app.ErrPermission) {
		t.Fatalf("non-sender edit: err = %v, want ErrPermission", err)
	}
	unchanged, err := f.store.GetMessage(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if unchanged.Content != "draft" || unchanged.Edited {
		t.Fatalf("message mutated by rejected edit: %+v", unchanged)
	}

	receiver := &fakeHandle{}
	f.svc.presence.Register(2, receiver)
	updated, err := f.svc.Edit(ctx, saved.ID, "final", 1)
	if err != nil {
		t.Fatalf("sender edit: %v", err)
	}
	if updated.Content != "final" || !updated.Edited || updated.EditedAt == nil {
		t.Fatalf("updated = %+v", updated)
	}
	if got := receiver.named(EventMessageUpdated); len(got) != 1 {
		t.Fatalf("receiver got %d update events, want 1", len(got))
	}

	if _, err := f.svc.Edit(ctx, 9999, "x", 1); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("missing message: err = %v, want ErrNotFound", err)
	}
}

func TestMarkReadDedup(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	sender := &fakeHandle{}
	f.svc.presence.Register(1, sender)

	saved, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: "read me", ReceiverID: ptr(2)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	first, err := f.svc.MarkRead(ctx, saved.ID, 2)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	second, err := f.svc.MarkRead(ctx, saved.ID, 2)
	if err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}
	if len(first.ReadBy) != 1 || len(second.ReadBy) != 1 {
		t.Fatalf("read set sizes = %d, %d, want 1, 1", len(first.ReadBy), len(second.ReadBy))
	}
	if first.ReadBy[0].UserID != 2 {
		t.Fatalf("reader = %d, want 2", first.ReadBy[0].UserID)
	}
	if got := sender.named(EventMessageUpdated); len(got) != 2 {
		t.Fatalf("sender got %d update events, want one per mark-read call", len(got))
	}
}

func TestMarkReadGroupFanOut(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	group := f.group(t, 1, 2, 3)

	sender, reader, third := &fakeHandle{}, &fakeHandle{}, &fakeHandle{}
	f.svc.presence.Register(1, sender)
	f.svc.presence.Register(2, reader)
	f.svc.presence.Register(3, third)

	saved, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: "minutes", GroupID: &group.ID})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.MarkRead(ctx, saved.ID, 2); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	if got := sender.named(EventMessageUpdated); len(got) != 1 {
		t.Fatalf("sender got %d update events, want 1", len(got))
	}
	if got := third.named(EventMessageUpdated); len(got) != 1 {
		t.Fatalf("third member got %d update events, want 1", len(got))
	}
	if got := reader.named(EventMessageUpdated); len(got) != 0 {
		t.Fatalf("reader notified about own receipt: %d events", len(got))
	}
}

func TestDeleteRemovesFromHistory(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	receiver := &fakeHandle{}
	f.svc.presence.Register(2, receiver)

	saved, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: "oops", ReceiverID: ptr(2)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := f.svc.Delete(ctx, saved.ID, 2); !errors.Is(err, app.ErrPermission) {
		t.Fatalf("non-sender delete: err = %v, want ErrPermission", err)
	}
	if err := f.svc.Delete(ctx, saved.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := receiver.named(EventMessageDeleted); len(got) != 1 {
		t.Fatalf("receiver got %d delete events, want 1", len(got))
	}

	history, err := f.svc.History(ctx, HistoryQuery{SenderID: 1, ReceiverID: ptr(2)})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("deleted message still in history: %v", history)
	}
	if err := f.svc.Delete(ctx, saved.ID, 1); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("repeat delete: err = %v, want ErrNotFound", err)
	}
}

func TestTypingIsEphemeral(t *testing.T) {
	f := newChatFixture()
	receiver := &fakeHandle{}
	f.svc.presence.Register(2, receiver)

	f.svc.Typing(1, true, 2)
	got := receiver.named(EventTyping)
	if len(got) != 1 {
		t.Fatalf("receiver got %d typing events, want 1", len(got))
	}
	data, ok := got[0].Data.(map[string]any)
	if !ok || data["userId"] != int64(1) || data["isTyping"] != true {
		t.Fatalf("typing payload = %#v", got[0].Data)
	}
}

func TestJoinRoomReturnsChronologicalHistory(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	group := f.group(t, 1, 2)

	for _, content := range []string{"first", "second", "third"} {
		if _, err := f.svc.Send(ctx, SendInput{SenderID: 1, Content: content, GroupID: &group.ID}); err != nil {
			t.Fatalf("send %q: %v", content, err)
		}
	}

	h := &fakeHandle{}
	history, err := f.svc.JoinRoom(ctx, h, group.ID, 1, 2)
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	// Limit 2 picks the newest two, returned oldest first.
	if len(history) != 2 || history[0].Content != "second" || history[1].Content != "third" {
		t.Fatalf("history = %+v", history)
	}

	// The handle is now subscribed to the room channel.
	if _, err := f.svc.Send(ctx, SendInput{SenderID: 2, Content: "fourth", GroupID: &group.ID}); err != nil {
		t.Fatalf("send after join: %v", err)
	}
	if got := h.named(EventMessage); len(got) != 1 {
		t.Fatalf("joined handle got %d events, want 1", len(got))
	}
}
