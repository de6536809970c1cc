package gateway

import "sync"

// Registry is the process-wide user-id to connection-id map. It is
// constructed once at startup and injected, never a package global.
// The identify handler inserts; the connection lifecycle removes.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]uint64
	byUser map[uint64]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]uint64),
		byUser: make(map[uint64]map[string]struct{}),
	}
}

// Register records that connID belongs to userID.
func (r *Registry) Register(connID string, userID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[connID] = userID
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[string]struct{})
	}
	r.byUser[userID][connID] = struct{}{}
}

// Remove deletes a connection's entry, if present.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	delete(r.byUser[userID], connID)
	if len(r.byUser[userID]) == 0 {
		delete(r.byUser, userID)
	}
}

// UserFor returns the user a connection identified as.
func (r *Registry) UserFor(connID string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[connID]
	return userID, ok
}

// ConnsFor returns the ids of every live identified connection for a user.
func (r *Registry) ConnsFor(userID uint64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]string, 0, len(r.byUser[userID]))
	for connID := range r.byUser[userID] {
		conns = append(conns, connID)
	}
	return conns
}

// Len returns the number of identified connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
