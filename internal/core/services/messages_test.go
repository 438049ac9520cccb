package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
)

type fakeMsgRepo struct {
	mu    sync.Mutex
	saved []domain.Message
}

func (f *fakeMsgRepo) SaveMessage(ctx context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *m)
	return nil
}

func (f *fakeMsgRepo) ListMessages(ctx context.Context, convID uuid.UUID, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.saved {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeQueue struct {
	mu        sync.Mutex
	published [][]byte
}

func (f *fakeQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeQueue) SubscribeToStream(ctx context.Context, topic, conGroup string, handler func(ctx context.Context, messageID string, data []byte) error) error {
	return nil
}

func (f *fakeQueue) AcknowledgeMessage(ctx context.Context, topic, conGroup, mesgID string) error {
	return nil
}

func (f *fakeQueue) DeleteMessage(ctx context.Context, topic, mesgID string) error {
	return nil
}

func newMessageService(convRepo *fakeConvRepo, msgRepo *fakeMsgRepo, queue *fakeQueue, notifier *recordingNotifier) *MessageService {
	return NewMessageService(slog.Default(), queue, notifier, convRepo, msgRepo, noopTxManager{}, "messages")
}

func TestMessageService_AcceptQueuesAndAcks(t *testing.T) {
	convRepo := newFakeConvRepo()
	msgRepo := &fakeMsgRepo{}
	queue := &fakeQueue{}
	notifier := newRecordingNotifier()
	svc := newMessageService(convRepo, msgRepo, queue, notifier)

	alice := uuid.New()
	bob := uuid.New()
	conv := convRepo.addConversation(alice, bob)

	require.NoError(t, svc.Accept(context.Background(), alice, conv.ID, "c-1", "hi"))

	queue.mu.Lock()
	assert.Len(t, queue.published, 1)
	queue.mu.Unlock()
	// nothing persisted until the worker drains the stream
	assert.Empty(t, msgRepo.saved)

	acks := notifier.directedTo(alice.String())
	require.Len(t, acks, 1)
	ack, ok := acks[0].(domain.AckEvent)
	require.True(t, ok)
	assert.Equal(t, domain.AckServerReceived, ack.Status)
	assert.Equal(t, "c-1", ack.ClientMsgID)
}

func TestMessageService_AcceptForbidden(t *testing.T) {
	convRepo := newFakeConvRepo()
	queue := &fakeQueue{}
	svc := newMessageService(convRepo, &fakeMsgRepo{}, queue, newRecordingNotifier())

	conv := convRepo.addConversation(uuid.New(), uuid.New())

	err := svc.Accept(context.Background(), uuid.New(), conv.ID, "c-1", "hi")
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, queue.published)
}

func TestMessageService_SaveAndFanout(t *testing.T) {
	convRepo := newFakeConvRepo()
	msgRepo := &fakeMsgRepo{}
	notifier := newRecordingNotifier()
	svc := newMessageService(convRepo, msgRepo, &fakeQueue{}, notifier)

	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	conv := convRepo.addConversation(alice, bob, carol)

	payload := &domain.MessagePayload{
		ClientMsgID:    "c-7",
		ConversationID: conv.ID.String(),
		SenderID:       alice.String(),
		Body:           "hello",
		CreatedAt:      time.Now(),
	}
	require.NoError(t, svc.SaveAndFanout(context.Background(), payload))

	require.Len(t, msgRepo.saved, 1)
	assert.Equal(t, "hello", msgRepo.saved[0].Body)

	// sender's unread stays untouched, recipients each go to 1
	assert.Equal(t, 0, conv.ReadStates[alice].UnreadCount)
	assert.Equal(t, 1, conv.ReadStates[bob].UnreadCount)
	assert.Equal(t, 1, conv.ReadStates[carol].UnreadCount)

	// every participant gets the message; recipients also get a badge update
	for _, recipient := range []uuid.UUID{bob, carol} {
		events := notifier.directedTo(recipient.String())
		require.Len(t, events, 2)
		_, isMsg := events[0].(domain.ChatMessageEvent)
		assert.True(t, isMsg)
		updated, isUpdate := events[1].(domain.ConversationUpdatedEvent)
		require.True(t, isUpdate)
		assert.Equal(t, 1, updated.UnreadCount)
	}

	// sender gets the message echo plus the persisted ack, no badge bump
	senderEvents := notifier.directedTo(alice.String())
	require.Len(t, senderEvents, 2)
	_, isMsg := senderEvents[0].(domain.ChatMessageEvent)
	assert.True(t, isMsg)
	ack, isAck := senderEvents[1].(domain.AckEvent)
	require.True(t, isAck)
	assert.Equal(t, domain.AckPersisted, ack.Status)
}

func TestMessageService_HistoryForbidden(t *testing.T) {
	convRepo := newFakeConvRepo()
	svc := newMessageService(convRepo, &fakeMsgRepo{}, &fakeQueue{}, newRecordingNotifier())

	conv := convRepo.addConversation(uuid.New(), uuid.New())
	_, err := svc.History(context.Background(), conv.ID, uuid.New(), 50)
	require.ErrorIs(t, err, domain.ErrForbidden)
}
