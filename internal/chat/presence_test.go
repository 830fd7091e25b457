package chat

import (
	"reflect"
	"sync"
	"testing"
)

type fakeHandle struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeHandle) Deliver(evt Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakeHandle) snapshot() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

func (f *fakeHandle) named(name string) []Event {
	var out []Event
	for _, evt := range f.snapshot() {
		if evt.Event == name {
			out = append(out, evt)
		}
	}
	return out
}

func TestPresenceRegisterUnregister(t *testing.T) {
	p := NewPresence()
	h1, h2 := &fakeHandle{}, &fakeHandle{}

	online := p.Register(7, h1)
	if !reflect.DeepEqual(online, []int64{7}) {
		t.Fatalf("online after first register = %v", online)
	}
	online = p.Register(3, h2)
	if !reflect.DeepEqual(online, []int64{3, 7}) {
		t.Fatalf("online list not sorted: %v", online)
	}

	online = p.Unregister(h1)
	if !reflect.DeepEqual(online, []int64{3}) {
		t.Fatalf("online after unregister = %v", online)
	}
	if got := p.HandlesFor(7); got != nil {
		t.Fatalf("handles for offline user = %v", got)
	}

	// Unregistering an unknown handle is a no-op.
	online = p.Unregister(h1)
	if !reflect.DeepEqual(online, []int64{3}) {
		t.Fatalf("online after repeat unregister = %v", online)
	}
}

func TestPresenceMultipleDevices(t *testing.T) {
	p := NewPresence()
	phone, laptop := &fakeHandle{}, &fakeHandle{}

	p.Register(7, phone)
	p.Register(7, laptop)
	if got := len(p.HandlesFor(7)); got != 2 {
		t.Fatalf("handles = %d, want 2", got)
	}
	if got := p.Online(); !reflect.DeepEqual(got, []int64{7}) {
		t.Fatalf("online = %v, want one entry per user", got)
	}

	// Dropping one device keeps the user online.
	if got := p.Unregister(phone); !reflect.DeepEqual(got, []int64{7}) {
		t.Fatalf("online after one device dropped = %v", got)
	}
	if got := p.Unregister(laptop); len(got) != 0 {
		t.Fatalf("online after last device dropped = %v", got)
	}
}

func TestPresenceBroadcast(t *testing.T) {
	p := NewPresence()
	handles := []*fakeHandle{{}, {}, {}}
	p.Register(1, handles[0])
	p.Register(1, handles[1])
	p.Register(2, handles[2])

	p.Broadcast(Event{Event: EventOnlineUsers, Data: []int64{1, 2}})
	for i, h := range handles {
		if got := len(h.named(EventOnlineUsers)); got != 1 {
			t.Fatalf("handle %d received %d broadcasts, want 1", i, got)
		}
	}
}

func TestRoomsJoinAndBroadcast(t *testing.T) {
	r := NewRooms()
	h1, h2, outsider := &fakeHandle{}, &fakeHandle{}, &fakeHandle{}
	r.Join(h1, 10)
	r.Join(h2, 10)
	r.Join(outsider, 11)

	r.Broadcast(10, Event{Event: EventMessage})
	if len(h1.snapshot()) != 1 || len(h2.snapshot()) != 1 {
		t.Fatal("room members missed the broadcast")
	}
	if len(outsider.snapshot()) != 0 {
		t.Fatal("broadcast leaked into another room")
	}

	r.RemoveHandle(h1)
	r.Broadcast(10, Event{Event: EventMessage})
	if len(h1.snapshot()) != 1 {
		t.Fatal("removed handle still receives room events")
	}
	if len(h2.snapshot()) != 2 {
		t.Fatal("remaining member missed the second broadcast")
	}
}
