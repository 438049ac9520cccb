package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/contracts"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
)

// MessageService accepts inbound messages onto the stream and, on the worker
// side, persists them and fans the results out. Acceptance and persistence
// are decoupled so a slow database never blocks the socket read loop.
type MessageService struct {
	queue     contracts.MessageQueue
	notifier  contracts.Notifier
	convRepo  domain.ConversationRepository
	msgRepo   domain.MessageRepository
	txManager contracts.TxManager
	stream    string
	log       *slog.Logger
}

func NewMessageService(
	log *slog.Logger,
	queue contracts.MessageQueue,
	notifier contracts.Notifier,
	convRepo domain.ConversationRepository,
	msgRepo domain.MessageRepository,
	txManager contracts.TxManager,
	stream string,
) *MessageService {
	return &MessageService{
		log:       log,
		queue:     queue,
		notifier:  notifier,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		txManager: txManager,
		stream:    stream,
	}
}

// Accept validates the sender's membership, queues the message and sends the
// sender's sessions a server_received ack.
func (s *MessageService) Accept(
	ctx context.Context,
	senderID uuid.UUID,
	convID uuid.UUID,
	clientMsgID, body string,
) error {
	ctx, span := tracer.Start(ctx, "MessageService.Accept", trace.WithAttributes(
		attribute.String("sender_id", senderID.String()),
		attribute.String("conv_id", convID.String()),
		attribute.Int("body_size", len(body)),
	))
	defer span.End()
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - accept - load conversation failed",
			"conv_id", convID, "sender_id", senderID, "err", err)
		return err
	}
	if !conv.HasParticipant(senderID) {
		span.SetStatus(codes.Error, "not a participant")
		return domain.ErrForbidden
	}
	payload := domain.MessagePayload{
		ClientMsgID:    clientMsgID,
		ConversationID: convID.String(),
		SenderID:       senderID.String(),
		Body:           body,
		CreatedAt:      time.Now(),
	}
	raw, _ := json.Marshal(payload)
	if err := s.queue.PublishToStream(ctx, s.stream, raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		s.log.ErrorContext(ctx, "messages - accept - publish to stream failed",
			"stream", s.stream, "conv_id", convID, "err", err)
		return err
	}
	s.notifier.NotifyUser(ctx, senderID.String(), domain.AckEvent{
		Type:        domain.TypeAck,
		ClientMsgID: clientMsgID,
		Status:      domain.AckServerReceived,
		Timestamp:   time.Now(),
	})
	s.log.InfoContext(ctx, "messages - accept - queued",
		"conv_id", convID, "sender_id", senderID)
	return nil
}

// SaveAndFanout persists a queued message, raises each recipient's unread
// counter and pushes the message plus updated badges to the right sessions.
// Per-recipient delivery is best effort.
func (s *MessageService) SaveAndFanout(
	ctx context.Context,
	payload *domain.MessagePayload,
) error {
	ctx, span := tracer.Start(ctx, "MessageService.SaveAndFanout", trace.WithAttributes(
		attribute.String("conv_id", payload.ConversationID),
		attribute.String("sender_id", payload.SenderID),
	))
	defer span.End()
	convID, err := uuid.Parse(payload.ConversationID)
	if err != nil {
		return domain.ErrInvalidConversationID
	}
	senderID, err := uuid.Parse(payload.SenderID)
	if err != nil {
		return domain.ErrInvalidUserID
	}
	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       senderID,
		Body:           payload.Body,
		CreatedAt:      payload.CreatedAt,
	}
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	var counts map[uuid.UUID]int
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.msgRepo.SaveMessage(txCtx, msg); err != nil {
			return err
		}
		var txErr error
		counts, txErr = s.convRepo.IncrementUnread(txCtx, convID, senderID)
		return txErr
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "messages - save and fanout - persist failed",
			"conv_id", convID, "err", err)
		return err
	}
	out := domain.ChatMessageEvent{
		Type:           domain.TypeMessage,
		MessageID:      msg.ID.String(),
		ConversationID: convID.String(),
		SenderID:       senderID.String(),
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt,
	}
	for _, participantID := range conv.Participants {
		s.notifier.NotifyUser(ctx, participantID.String(), out)
		if count, ok := counts[participantID]; ok {
			s.notifier.NotifyUser(ctx, participantID.String(), domain.ConversationUpdatedEvent{
				Type:           domain.TypeConversationUpdated,
				ConversationID: convID.String(),
				UnreadCount:    count,
			})
		}
	}
	s.notifier.NotifyUser(ctx, senderID.String(), domain.AckEvent{
		Type:        domain.TypeAck,
		ClientMsgID: payload.ClientMsgID,
		Status:      domain.AckPersisted,
		Timestamp:   time.Now(),
	})
	s.log.InfoContext(ctx, "messages - save and fanout - success",
		"conv_id", convID, "message_id", msg.ID, "recipients", len(counts))
	return nil
}

// History returns the conversation's recent messages for a participant.
func (s *MessageService) History(
	ctx context.Context,
	convID, userID uuid.UUID,
	limit int,
) ([]domain.Message, error) {
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrForbidden
	}
	return s.msgRepo.ListMessages(ctx, convID, limit)
}
