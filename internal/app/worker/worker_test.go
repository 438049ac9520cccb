package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
)

type memConvRepo struct {
	mu   sync.Mutex
	conv *domain.Conversation
}

func (f *memConvRepo) GetConversationByID(ctx context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conv == nil || f.conv.ID != convID {
		return nil, domain.ErrConversationNotFound
	}
	return f.conv, nil
}

func (f *memConvRepo) CreateConversation(ctx context.Context, c *domain.Conversation) error {
	return nil
}

func (f *memConvRepo) UpsertReadState(ctx context.Context, convID, userID uuid.UUID, at time.Time) error {
	return nil
}

func (f *memConvRepo) IncrementUnread(ctx context.Context, convID, senderID uuid.UUID) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[uuid.UUID]int)
	for userID, rs := range f.conv.ReadStates {
		if userID == senderID {
			continue
		}
		rs.UnreadCount++
		counts[userID] = rs.UnreadCount
	}
	return counts, nil
}

type memMsgRepo struct {
	mu    sync.Mutex
	saved []domain.Message
}

func (f *memMsgRepo) SaveMessage(ctx context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *m)
	return nil
}

func (f *memMsgRepo) ListMessages(ctx context.Context, convID uuid.UUID, limit int) ([]domain.Message, error) {
	return nil, nil
}

// recordingQueue tracks lifecycle calls so the test can assert the
// ack-then-delete sequence.
type recordingQueue struct {
	mu      sync.Mutex
	acked   []string
	deleted []string
}

func (q *recordingQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error {
	return nil
}

func (q *recordingQueue) SubscribeToStream(ctx context.Context, topic, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error {
	return nil
}

func (q *recordingQueue) AcknowledgeMessage(ctx context.Context, topic, conGroup, mesgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, mesgID)
	return nil
}

func (q *recordingQueue) DeleteMessage(ctx context.Context, topic, mesgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, mesgID)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) BroadcastAll(ctx context.Context, event any)              {}
func (noopNotifier) NotifyUser(ctx context.Context, userID string, event any) {}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestMessageWorker_ProcessFromStream(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	conv := &domain.Conversation{
		ID:           uuid.New(),
		Participants: []uuid.UUID{alice, bob},
		ReadStates: map[uuid.UUID]*domain.ReadState{
			alice: {UserID: alice},
			bob:   {UserID: bob},
		},
	}
	convRepo := &memConvRepo{conv: conv}
	msgRepo := &memMsgRepo{}
	queue := &recordingQueue{}
	msgSvc := services.NewMessageService(
		slog.Default(), queue, noopNotifier{}, convRepo, msgRepo, passthroughTx{}, "messages",
	)
	w := NewMessageWorker(slog.Default(), queue, msgSvc, "message-workers").(*MessageWorker)

	payload, err := json.Marshal(domain.MessagePayload{
		ClientMsgID:    "c-1",
		ConversationID: conv.ID.String(),
		SenderID:       alice.String(),
		Body:           "hello",
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, w.processFromStream(context.Background(), "messages", "1-0", payload))

	require.Len(t, msgRepo.saved, 1)
	assert.Equal(t, "hello", msgRepo.saved[0].Body)
	assert.Equal(t, 1, conv.ReadStates[bob].UnreadCount)
	assert.Equal(t, 0, conv.ReadStates[alice].UnreadCount)
	assert.Equal(t, []string{"1-0"}, queue.acked)
	assert.Equal(t, []string{"1-0"}, queue.deleted)
}

func TestMessageWorker_MalformedPayloadNotAcked(t *testing.T) {
	queue := &recordingQueue{}
	msgSvc := services.NewMessageService(
		slog.Default(), queue, noopNotifier{}, &memConvRepo{}, &memMsgRepo{}, passthroughTx{}, "messages",
	)
	w := NewMessageWorker(slog.Default(), queue, msgSvc, "message-workers").(*MessageWorker)

	err := w.processFromStream(context.Background(), "messages", "2-0", []byte("{broken"))
	require.Error(t, err)
	assert.Empty(t, queue.acked, "a failed entry stays pending for redelivery")
	assert.Empty(t, queue.deleted)
}
