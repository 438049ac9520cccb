package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/contracts"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
)

var tracer = otel.Tracer("core-services")

// PresenceService orchestrates connection lifecycle against the registry and
// pushes the online-user set to everyone after each change. Emission is
// unconditional: every connect and disconnect produces a broadcast, even when
// the user's online status did not flip.
type PresenceService struct {
	registry contracts.Registry
	notifier contracts.Notifier
	log      *slog.Logger
}

func NewPresenceService(
	log *slog.Logger,
	registry contracts.Registry,
	notifier contracts.Notifier,
) *PresenceService {
	return &PresenceService{
		log:      log,
		registry: registry,
		notifier: notifier,
	}
}

func (p *PresenceService) HandleConnect(ctx context.Context, client contracts.Client) {
	ctx, span := tracer.Start(ctx, "PresenceService.HandleConnect", trace.WithAttributes(
		attribute.String("user_id", client.UserID()),
		attribute.String("conn_id", client.ConnID()),
	))
	defer span.End()
	cameOnline := p.registry.Register(client)
	span.SetAttributes(attribute.Bool("presence.came_online", cameOnline))
	p.log.InfoContext(ctx, "presence - handle connect - client registered",
		"user_id", client.UserID(), "conn_id", client.ConnID(), "came_online", cameOnline)
	p.broadcastOnline(ctx)
}

func (p *PresenceService) HandleDisconnect(ctx context.Context, client contracts.Client) {
	ctx, span := tracer.Start(ctx, "PresenceService.HandleDisconnect", trace.WithAttributes(
		attribute.String("user_id", client.UserID()),
		attribute.String("conn_id", client.ConnID()),
	))
	defer span.End()
	wentOffline := p.registry.Unregister(client)
	span.SetAttributes(attribute.Bool("presence.went_offline", wentOffline))
	p.log.InfoContext(ctx, "presence - handle disconnect - client unregistered",
		"user_id", client.UserID(), "conn_id", client.ConnID(), "went_offline", wentOffline)
	p.broadcastOnline(ctx)
}

func (p *PresenceService) broadcastOnline(ctx context.Context) {
	p.notifier.BroadcastAll(ctx, domain.OnlineUsersEvent{
		Type:   domain.TypeOnlineUsers,
		Online: p.registry.Snapshot(),
	})
}
