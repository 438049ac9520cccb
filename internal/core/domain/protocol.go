package domain

import "time"

// Event type discriminators carried in every frame pushed to clients.
const (
	TypeOnlineUsers         = "onlineUsers"
	TypeConversationUpdated = "conversation:updated"
	TypeUserCreated         = "user:created"
	TypeMessage             = "message"
	TypeAck                 = "ack"
	TypeError               = "error"
)

type AckStatus string

const (
	AckServerReceived AckStatus = "server_received"
	AckPersisted      AckStatus = "persisted"
)

// OnlineUsersEvent goes to every live connection after each connect and
// disconnect. Online is sorted so repeated snapshots compare stably.
type OnlineUsersEvent struct {
	Type   string   `json:"type"` // "onlineUsers"
	Online []string `json:"online"`
}

// ConversationUpdatedEvent goes only to one user's own sessions so the other
// tabs can sync their unread badge.
type ConversationUpdatedEvent struct {
	Type           string `json:"type"` // "conversation:updated"
	ConversationID string `json:"conversation_id"`
	UnreadCount    int    `json:"unread_count"`
}

// UserCreatedEvent announces a new account to every live connection.
type UserCreatedEvent struct {
	Type string        `json:"type"` // "user:created"
	User PublicProfile `json:"user"`
}

// ChatMessageEvent is delivered to each participant's sessions once the
// message is persisted.
type ChatMessageEvent struct {
	Type           string    `json:"type"` // "message"
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// AckEvent is sent only to the sender's sessions.
type AckEvent struct {
	Type        string    `json:"type"` // "ack"
	ClientMsgID string    `json:"client_msg_id"`
	Status      AckStatus `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorEvent is a WS-safe error frame.
type ErrorEvent struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InboundFrame is what clients send over the socket.
type InboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	ClientMsgID    string `json:"client_msg_id"`
	Body           string `json:"body"`
}

// MessagePayload is the stream-queued form of an accepted message, written by
// the gateway and consumed by the persist worker.
type MessagePayload struct {
	ClientMsgID    string    `json:"client_msg_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
