package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the persistent account identity.
type User struct {
	ID           uuid.UUID
	DisplayName  string
	Handle       string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicProfile is the wire-safe projection of a User (never carries the hash).
type PublicProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		Handle:      u.Handle,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}

// ReadState tracks one participant's read progress in one conversation.
// LastReadAt stays nil until the first mark-read; UnreadCount never goes
// negative.
type ReadState struct {
	UserID      uuid.UUID
	LastReadAt  *time.Time
	UnreadCount int
}

// Conversation is a chat between a fixed set of participants. Every entry in
// ReadStates belongs to a user listed in Participants.
type Conversation struct {
	ID           uuid.UUID
	Participants []uuid.UUID
	ReadStates   map[uuid.UUID]*ReadState
	CreatedAt    time.Time
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Message is immutable once created.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Body           string
	CreatedAt      time.Time
}
