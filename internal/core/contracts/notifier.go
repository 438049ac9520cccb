package contracts

import "context"

// Notifier is the typed event fan-out consumed by services that change state
// other sessions need to see. Payloads are the closed event set defined in
// the domain package.
type Notifier interface {
	// BroadcastAll delivers the event to every live connection.
	BroadcastAll(ctx context.Context, event any)
	// NotifyUser delivers the event only to the given user's own live
	// connections. Zero connections is a silent no-op, never an error.
	NotifyUser(ctx context.Context, userID string, event any)
}
