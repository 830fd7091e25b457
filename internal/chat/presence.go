package chat

import (
	"sort"
	"sync"
)

// Presence maps user ids to their live connection handles. State is
// process-local and rebuilt from scratch on restart; every user appears
// offline until they reconnect. Multiple handles per user (several devices
// or tabs) are expected.
type Presence struct {
	mu      sync.RWMutex
	byUser  map[int64]map[Handle]struct{}
	byConn  map[Handle]int64
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[int64]map[Handle]struct{}),
		byConn: make(map[Handle]int64),
	}
}

// Register adds the handle to the user's set, creating the set if absent,
// and returns the full online user list for broadcast.
func (p *Presence) Register(userID int64, h Handle) []int64 {
	p.mu.Lock()
	if p.byUser[userID] == nil {
		p.byUser[userID] = make(map[Handle]struct{})
	}
	p.byUser[userID][h] = struct{}{}
	p.byConn[h] = userID
	p.mu.Unlock()
	return p.Online()
}

// Unregister removes the handle from whichever user held it; an emptied set
// deletes the user entry. Returns the updated online list for broadcast.
func (p *Presence) Unregister(h Handle) []int64 {
	p.mu.Lock()
	if userID, ok := p.byConn[h]; ok {
		delete(p.byConn, h)
		if set, ok := p.byUser[userID]; ok {
			delete(set, h)
			if len(set) == 0 {
				delete(p.byUser, userID)
			}
		}
	}
	p.mu.Unlock()
	return p.Online()
}

// HandlesFor returns the (possibly empty) live handles for a user.
func (p *Presence) HandlesFor(userID int64) []Handle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

// Online returns the sorted ids of all users with at least one live handle.
func (p *Presence) Online() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]int64, 0, len(p.byUser))
	for id := range p.byUser {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Broadcast delivers the event to every live handle of every user.
func (p *Presence) Broadcast(evt Event) {
	p.mu.RLock()
	handles := make([]Handle, 0, len(p.byConn))
	for h := range p.byConn {
		handles = append(handles, h)
	}
	p.mu.RUnlock()
	for _, h := range handles {
		h.Deliver(evt)
	}
}
