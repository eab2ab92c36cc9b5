package ws

import "sync"

// Registry maps users to their live connection. At most one connection per
// user; a new Register for the same user wins over the old one.
type Registry interface {
	Register(userID int, connID string)
	Unregister(connID string)
	Lookup(userID int) (connID string, ok bool)
	OnlineUserIDs() []int
}

// MemoryRegistry is the single-instance implementation. The primary map is
// keyed by connection id so that a stale connection's disconnect cannot evict
// a user who has already reconnected; the user index is only cleared when the
// unregistering connection is still the current one.
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]int // connID -> userID
	users map[int]string // userID -> current connID
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		conns: make(map[string]int),
		users: make(map[int]string),
	}
}

func (r *MemoryRegistry) Register(userID int, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.users[userID]; ok {
		delete(r.conns, old)
	}
	r.conns[connID] = userID
	r.users[userID] = connID
}

func (r *MemoryRegistry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	if r.users[userID] == connID {
		delete(r.users, userID)
	}
}

func (r *MemoryRegistry) Lookup(userID int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.users[userID]
	return connID, ok
}

func (r *MemoryRegistry) OnlineUserIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}
