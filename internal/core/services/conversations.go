package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/contracts"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
)

// ConversationService owns conversation lifecycle and the per-participant
// read tracker. MarkRead is the only transition to the read state; the
// new-message path (worker) is the only thing that raises unread counts.
type ConversationService struct {
	repo      domain.ConversationRepository
	notifier  contracts.Notifier
	txManager contracts.TxManager
	log       *slog.Logger
	now       func() time.Time
}

func NewConversationService(
	log *slog.Logger,
	repo domain.ConversationRepository,
	notifier contracts.Notifier,
	txManager contracts.TxManager,
) *ConversationService {
	return &ConversationService{
		log:       log,
		repo:      repo,
		notifier:  notifier,
		txManager: txManager,
		now:       time.Now,
	}
}

func (s *ConversationService) Create(
	ctx context.Context,
	creatorID uuid.UUID,
	participantIDs []uuid.UUID,
) (*domain.Conversation, error) {
	ctx, span := tracer.Start(ctx, "ConversationService.Create", trace.WithAttributes(
		attribute.String("creator_id", creatorID.String()),
	))
	defer span.End()
	// participants are a set fixed at creation; the creator is always in it
	seen := map[uuid.UUID]bool{creatorID: true}
	participants := []uuid.UUID{creatorID}
	for _, id := range participantIDs {
		if id == uuid.Nil {
			return nil, domain.ErrInvalidUserID
		}
		if !seen[id] {
			seen[id] = true
			participants = append(participants, id)
		}
	}
	if len(participants) < 2 {
		return nil, domain.ErrNotEnoughParticipants
	}
	conv := &domain.Conversation{
		ID:           uuid.New(),
		Participants: participants,
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.CreateConversation(txCtx, conv)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create conversation failed")
		s.log.ErrorContext(ctx, "conversations - create - persist failed",
			"creator_id", creatorID, "err", err)
		return nil, err
	}
	conv.ReadStates = make(map[uuid.UUID]*domain.ReadState, len(participants))
	for _, id := range participants {
		conv.ReadStates[id] = &domain.ReadState{UserID: id}
	}
	s.log.InfoContext(ctx, "conversations - create - success",
		"conv_id", conv.ID, "participants", len(participants))
	return conv, nil
}

// Get loads a conversation for one of its participants.
func (s *ConversationService) Get(
	ctx context.Context,
	convID, userID uuid.UUID,
) (*domain.Conversation, error) {
	conv, err := s.repo.GetConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

// MarkRead zeroes the caller's unread count, stamps lastReadAt and tells the
// caller's other live sessions to clear the badge. Idempotent: a repeat call
// only advances lastReadAt. A store failure is returned to the caller and
// produces no notification.
func (s *ConversationService) MarkRead(
	ctx context.Context,
	convID, userID uuid.UUID,
) error {
	ctx, span := tracer.Start(ctx, "ConversationService.MarkRead", trace.WithAttributes(
		attribute.String("conv_id", convID.String()),
		attribute.String("user_id", userID.String()),
	))
	defer span.End()
	conv, err := s.repo.GetConversationByID(ctx, convID)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "conversations - mark read - load failed",
			"conv_id", convID, "user_id", userID, "err", err)
		return err
	}
	if !conv.HasParticipant(userID) {
		span.SetStatus(codes.Error, "not a participant")
		s.log.WarnContext(ctx, "conversations - mark read - forbidden",
			"conv_id", convID, "user_id", userID)
		return domain.ErrForbidden
	}
	readAt := s.now()
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpsertReadState(txCtx, convID, userID, readAt)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist read state failed")
		s.log.ErrorContext(ctx, "conversations - mark read - persist failed",
			"conv_id", convID, "user_id", userID, "err", err)
		return err
	}
	s.notifier.NotifyUser(ctx, userID.String(), domain.ConversationUpdatedEvent{
		Type:           domain.TypeConversationUpdated,
		ConversationID: convID.String(),
		UnreadCount:    0,
	})
	s.log.InfoContext(ctx, "conversations - mark read - success",
		"conv_id", convID, "user_id", userID)
	return nil
}
