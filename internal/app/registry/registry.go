package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/contracts"
)

// Registry maps user ids to their live connections. A user key exists iff its
// connection set is non-empty; Unregister removes the key when the last
// connection goes away. All mutation happens under the write lock so
// interleaved connects and disconnects can never leave an empty set behind.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]contracts.Client // user_id → conn_id → client
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[string]contracts.Client),
	}
}

// Register adds the connection to its user's set, creating the set if absent.
// Registering the same connection twice is a no-op. Returns true when the
// user had no prior connections (offline → online).
func (r *Registry) Register(c contracts.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID := c.UserID()
	conns, ok := r.users[userID]
	if !ok {
		conns = make(map[string]contracts.Client)
		r.users[userID] = conns
	}
	conns[c.ConnID()] = c
	return !ok
}

// Unregister removes the connection if present and drops the user entry when
// the set empties. Returns true when this was the user's last connection
// (online → offline).
func (r *Registry) Unregister(c contracts.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID := c.UserID()
	conns, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, ok := conns[c.ConnID()]; !ok {
		return false
	}
	delete(conns, c.ConnID())
	if len(conns) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// Snapshot returns the sorted ids of every user with at least one live
// connection.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	online := make([]string, 0, len(r.users))
	for userID := range r.users {
		online = append(online, userID)
	}
	sort.Strings(online)
	return online
}

// Broadcast sends data to every live connection. Individual send failures are
// swallowed so one torn-down socket cannot block delivery to the rest.
func (r *Registry) Broadcast(ctx context.Context, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conns := range r.users {
		for _, c := range conns {
			_ = c.Send(ctx, data)
		}
	}
}

// SendToUser sends data to each of one user's connections. A user with no
// live connections is a silent no-op.
func (r *Registry) SendToUser(ctx context.Context, userID string, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.users[userID] {
		_ = c.Send(ctx, data)
	}
}
