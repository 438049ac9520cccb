package contracts

import "context"

// Registry is the authoritative in-memory presence state: which users
// currently hold at least one live connection, and the handles needed to
// reach them.
type Registry interface {
	// Register adds a connection. The boolean reports whether the owning
	// user transitioned from offline to online.
	Register(c Client) bool
	// Unregister removes a connection. The boolean reports whether the
	// owning user transitioned from online to offline.
	Unregister(c Client) bool
	// Snapshot returns the sorted set of distinct online user ids.
	Snapshot() []string
	// Broadcast sends data to every live connection, best effort.
	Broadcast(ctx context.Context, data []byte)
	// SendToUser sends data to every connection of one user, best effort.
	// A user with zero connections is a silent no-op.
	SendToUser(ctx context.Context, userID string, data []byte)
}

// Client is the minimal surface the registry needs to track and reach an
// individual WebSocket connection. The registry never owns the underlying
// socket.
type Client interface {
	ConnID() string
	UserID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
