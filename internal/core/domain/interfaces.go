package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository handles the persistent account identity.
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByHandle(ctx context.Context, handle string) (*User, error)
}

// ConversationRepository handles conversation lifecycle and the per-participant
// read-state rows.
type ConversationRepository interface {
	// GetConversationByID loads the conversation with its participants and
	// read states. Returns ErrConversationNotFound if absent.
	GetConversationByID(ctx context.Context, convID uuid.UUID) (*Conversation, error)
	CreateConversation(ctx context.Context, c *Conversation) error
	// UpsertReadState sets last_read_at and zeroes unread_count for one
	// participant.
	UpsertReadState(ctx context.Context, convID, userID uuid.UUID, at time.Time) error
	// IncrementUnread bumps unread_count for every participant except the
	// sender and returns the new counts keyed by user.
	IncrementUnread(ctx context.Context, convID, senderID uuid.UUID) (map[uuid.UUID]int, error)
}

// MessageRepository handles message persistence and history reads.
type MessageRepository interface {
	SaveMessage(ctx context.Context, m *Message) error
	// ListMessages returns the conversation history in creation order.
	ListMessages(ctx context.Context, convID uuid.UUID, limit int) ([]Message, error)
}
