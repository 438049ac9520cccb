package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/contracts"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
)

// MessageWorker drains the accepted-message stream: each entry is persisted,
// unread counters are raised and the fan-out happens, then the entry is acked
// and deleted.
type MessageWorker struct {
	log      *slog.Logger
	queue    contracts.MessageQueue
	messages *services.MessageService
	conGroup string
}

func NewMessageWorker(
	log *slog.Logger,
	queue contracts.MessageQueue,
	messages *services.MessageService,
	conGroup string,
) contracts.AsyncWorker {
	return &MessageWorker{
		log:      log,
		queue:    queue,
		messages: messages,
		conGroup: conGroup,
	}
}

func (w *MessageWorker) Run(ctx context.Context, topic string) error {
	w.log.InfoContext(ctx, "worker - run - consuming stream", "topic", topic, "group", w.conGroup)
	return w.queue.SubscribeToStream(ctx, topic, w.conGroup, func(ctx context.Context, messageID string, data []byte) error {
		return w.processFromStream(ctx, topic, messageID, data)
	})
}

func (w *MessageWorker) ProcessMessage(ctx context.Context, msgID string, rawData []byte) error {
	var payload domain.MessagePayload
	if err := json.Unmarshal(rawData, &payload); err != nil {
		w.log.Error("worker - process message - malformed payload", "message_id", msgID)
		return err
	}
	if err := w.messages.SaveAndFanout(ctx, &payload); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - save and fanout failed",
			"message_id", msgID, "err", err)
		return err
	}
	return nil
}

func (w *MessageWorker) processFromStream(ctx context.Context, topic, messageID string, data []byte) error {
	if err := w.ProcessMessage(ctx, messageID, data); err != nil {
		return err
	}
	// The DB write is committed; take the entry off the pending list.
	if err := w.queue.AcknowledgeMessage(ctx, topic, w.conGroup, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - ack failed", "message_id", messageID, "err", err)
		return err
	}
	// Already processed and acked; a failed delete only costs stream memory.
	if err := w.queue.DeleteMessage(ctx, topic, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - delete failed", "message_id", messageID, "err", err)
	}
	return nil
}
