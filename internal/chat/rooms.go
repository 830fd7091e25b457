package chat

import "sync"

// Rooms maps a group id to the handles subscribed to its broadcast channel.
// Any handle may join any group id here; true membership is enforced above
// the transport, at the messaging-service boundary.
type Rooms struct {
	mu       sync.RWMutex
	byGroup  map[int64]map[Handle]struct{}
	byHandle map[Handle]map[int64]struct{}
}

// NewRooms creates an empty router.
func NewRooms() *Rooms {
	return &Rooms{
		byGroup:  make(map[int64]map[Handle]struct{}),
		byHandle: make(map[Handle]map[int64]struct{}),
	}
}

// Join subscribes the handle to the group channel.
func (r *Rooms) Join(h Handle, groupID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byGroup[groupID] == nil {
		r.byGroup[groupID] = make(map[Handle]struct{})
	}
	r.byGroup[groupID][h] = struct{}{}
	if r.byHandle[h] == nil {
		r.byHandle[h] = make(map[int64]struct{})
	}
	r.byHandle[h][groupID] = struct{}{}
}

// RemoveHandle drops the handle from every channel it joined.
func (r *Rooms) RemoveHandle(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for groupID := range r.byHandle[h] {
		if members, ok := r.byGroup[groupID]; ok {
			delete(members, h)
			if len(members) == 0 {
				delete(r.byGroup, groupID)
			}
		}
	}
	delete(r.byHandle, h)
}

// Subscribers returns the handles currently joined to the group channel.
func (r *Rooms) Subscribers(groupID int64) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byGroup[groupID]
	if len(members) == 0 {
		return nil
	}
	out := make([]Handle, 0, len(members))
	for h := range members {
		out = append(out, h)
	}
	return out
}

// Broadcast delivers the event to every subscriber of the group channel.
func (r *Rooms) Broadcast(groupID int64, evt Event) {
	for _, h := range r.Subscribers(groupID) {
		h.Deliver(evt)
	}
}
