package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/contracts"
)

// NotifierService marshals typed gateway events and routes them through the
// presence registry: whole-gateway broadcasts or one user's own sessions.
// Delivery is best effort; failures to individual sockets never propagate.
type NotifierService struct {
	registry contracts.Registry
	log      *slog.Logger
}

func NewNotifierService(log *slog.Logger, registry contracts.Registry) *NotifierService {
	return &NotifierService{
		log:      log,
		registry: registry,
	}
}

func (n *NotifierService) BroadcastAll(ctx context.Context, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		n.log.ErrorContext(ctx, "notifier - broadcast all - marshal failed", "err", err)
		return
	}
	n.registry.Broadcast(ctx, data)
}

func (n *NotifierService) NotifyUser(ctx context.Context, userID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		n.log.ErrorContext(ctx, "notifier - notify user - marshal failed", "user_id", userID, "err", err)
		return
	}
	n.registry.SendToUser(ctx, userID, data)
}
