package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

/*
	-- Conversations
	CREATE TABLE conversations (
		id          UUID PRIMARY KEY,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	-- Participant rows double as per-user read state
	CREATE TABLE conversation_participants (
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		user_id         UUID NOT NULL REFERENCES users(id),
		last_read_at    TIMESTAMPTZ,
		unread_count    INT NOT NULL DEFAULT 0 CHECK (unread_count >= 0),
		PRIMARY KEY (conversation_id, user_id)
	);
*/

func (r *ConversationRepo) GetConversationByID(ctx context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	conv := &domain.Conversation{ID: convID}
	err := exec.QueryRowContext(ctx,
		`SELECT created_at FROM conversations WHERE id = $1`, convID,
	).Scan(&conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	rows, err := exec.QueryContext(ctx, `
		SELECT user_id, last_read_at, unread_count
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY user_id
	`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	conv.ReadStates = make(map[uuid.UUID]*domain.ReadState)
	for rows.Next() {
		rs := &domain.ReadState{}
		if err := rows.Scan(&rs.UserID, &rs.LastReadAt, &rs.UnreadCount); err != nil {
			return nil, err
		}
		conv.Participants = append(conv.Participants, rs.UserID)
		conv.ReadStates[rs.UserID] = rs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepo) CreateConversation(ctx context.Context, c *domain.Conversation) error {
	if c.ID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	if err := exec.QueryRowContext(ctx,
		`INSERT INTO conversations (id) VALUES ($1) RETURNING created_at`, c.ID,
	).Scan(&c.CreatedAt); err != nil {
		return err
	}
	for _, userID := range c.Participants {
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id)
			VALUES ($1, $2)
		`, c.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *ConversationRepo) UpsertReadState(ctx context.Context, convID, userID uuid.UUID, at time.Time) error {
	if convID == uuid.Nil {
		return domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE conversation_participants
		SET last_read_at = $3, unread_count = 0
		WHERE conversation_id = $1 AND user_id = $2
	`, convID, userID, at)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrForbidden
	}
	return nil
}

func (r *ConversationRepo) IncrementUnread(ctx context.Context, convID, senderID uuid.UUID) (map[uuid.UUID]int, error) {
	if convID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		UPDATE conversation_participants
		SET unread_count = unread_count + 1
		WHERE conversation_id = $1 AND user_id <> $2
		RETURNING user_id, unread_count
	`, convID, senderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var userID uuid.UUID
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}
