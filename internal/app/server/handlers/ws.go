package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/app/server/ws"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/domain"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/platform/logger"
)

// sessionCookie is the handshake credential carrier.
const sessionCookie = "jwt"

type WSHandler struct {
	tokenSvc *services.TokenService
	presence *services.PresenceService
	messages *services.MessageService
}

func NewWSHandler(
	tokenSvc *services.TokenService,
	presence *services.PresenceService,
	messages *services.MessageService,
) *WSHandler {
	return &WSHandler{
		tokenSvc: tokenSvc,
		presence: presence,
		messages: messages,
	}
}

// authenticate resolves the handshake cookie to a user id. It runs to
// completion before the upgrade, so a rejected connection never appears in
// presence state, even transiently.
func (s *WSHandler) authenticate(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	sub, err := s.tokenSvc.ValidateToken(cookie.Value)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthenticated
	}
	return userID, nil
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())

	userID, err := s.authenticate(r)
	if err != nil {
		log.WarnContext(r.Context(), "ws handler - handshake rejected", "err", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID.String()))

	// the session outlives the upgrade request
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", "err", err)
		cancel()
		return
	}
	defer cancel()
	conn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(ctx, conn)

	connID := uuid.NewString()
	client := ws.NewClient(ctx, socket, connID, userID.String())
	s.presence.HandleConnect(ctx, client)
	defer s.presence.HandleDisconnect(sessionCtx, client)
	defer client.Close()
	log.InfoContext(r.Context(), "ws handler - connection established",
		"user_id", userID, "conn_id", connID)

	socket.ReadLoop(func(data []byte) {
		s.handleFrame(ctx, log, userID, data)
	})
}

func (s *WSHandler) handleFrame(ctx context.Context, log *slog.Logger, userID uuid.UUID, data []byte) {
	var frame domain.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn("ws handler - malformed frame", "user_id", userID)
		return
	}
	switch frame.Type {
	case domain.TypeMessage:
		convID, err := uuid.Parse(frame.ConversationID)
		if err != nil {
			log.Warn("ws handler - bad conversation id", "user_id", userID)
			return
		}
		if err := s.messages.Accept(ctx, userID, convID, frame.ClientMsgID, frame.Body); err != nil {
			log.ErrorContext(ctx, "ws handler - accept message failed",
				"user_id", userID, "conv_id", convID, "err", err)
		}
	default:
		log.Warn("ws handler - unknown frame type", "type", frame.Type, "user_id", userID)
	}
}
