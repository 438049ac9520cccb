package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/app/server/handlers"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
	"github.com/oleg-sazonov/mern-chat-app-sub001/pkg/middleware"
)

type Server struct {
	mux         *http.ServeMux
	addr        string
	name        string
	log         *slog.Logger
	authHandler *handlers.AuthHandler
	convHandler *handlers.ConversationHandler
	wsHandler   *handlers.WSHandler
	tokenSvc    *services.TokenService
	httpServer  *http.Server
}

func NewServer(
	addr string,
	name string,
	log *slog.Logger,
	userSvc *services.UserService,
	tokenSvc *services.TokenService,
	presenceSvc *services.PresenceService,
	convSvc *services.ConversationService,
	msgSvc *services.MessageService,
) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		addr:        addr,
		name:        name,
		log:         log,
		authHandler: handlers.NewAuthHandler(userSvc, tokenSvc),
		convHandler: handlers.NewConversationHandler(convSvc, msgSvc),
		wsHandler:   handlers.NewWSHandler(tokenSvc, presenceSvc, msgSvc),
		tokenSvc:    tokenSvc,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	// Public routes
	s.mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	s.mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	// The WebSocket handshake authenticates itself from the session cookie,
	// before any presence mutation.
	s.mux.HandleFunc("GET /ws", s.wsHandler.Handler)

	// Protected routes
	s.mux.Handle("POST /conversations", auth(http.HandlerFunc(s.convHandler.Create)))
	s.mux.Handle("GET /conversations/{id}", auth(http.HandlerFunc(s.convHandler.Get)))
	s.mux.Handle("GET /conversations/{id}/messages", auth(http.HandlerFunc(s.convHandler.Messages)))
	s.mux.Handle("POST /conversations/{id}/read", auth(http.HandlerFunc(s.convHandler.MarkRead)))
}

func (s *Server) Start() error {
	handler := middleware.TracerMiddleware(s.name)(
		middleware.RequestLogger(s.log)(s.mux),
	)
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.log.Info("server starting", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
