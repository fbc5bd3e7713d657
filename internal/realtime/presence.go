package realtime

import (
	"sort"
	"sync"
)

// Presence tracks who is typing in which group. It is local to this process;
// a second instance keeps its own view.
type Presence struct {
	mu     sync.Mutex
	typing map[string]map[uint]struct{}
}

func NewPresence() *Presence {
	return &Presence{typing: make(map[string]map[uint]struct{})}
}

// Start marks userID as typing in groupID and returns the typing users.
func (p *Presence) Start(groupID string, userID uint) []uint {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.typing[groupID]
	if !ok {
		users = make(map[uint]struct{})
		p.typing[groupID] = users
	}
	users[userID] = struct{}{}
	return sortedUsers(users)
}

// Stop clears userID in groupID and returns the remaining typing users.
func (p *Presence) Stop(groupID string, userID uint) []uint {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := p.typing[groupID]
	delete(users, userID)
	if len(users) == 0 {
		delete(p.typing, groupID)
	}
	return sortedUsers(users)
}

// Typing returns who is typing in groupID.
func (p *Presence) Typing(groupID string) []uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedUsers(p.typing[groupID])
}

// Forget clears userID in groupIDs and returns the remaining typers of each
// group where the user had been typing.
func (p *Presence) Forget(userID uint, groupIDs []string) map[string][]uint {
	p.mu.Lock()
	defer p.mu.Unlock()

	changed := make(map[string][]uint)
	for _, groupID := range groupIDs {
		users := p.typing[groupID]
		if _, ok := users[userID]; !ok {
			continue
		}
		delete(users, userID)
		if len(users) == 0 {
			delete(p.typing, groupID)
		}
		changed[groupID] = sortedUsers(users)
	}
	return changed
}

func sortedUsers(users map[uint]struct{}) []uint {
	out := make([]uint, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
