package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/app/registry"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/app/server"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/app/worker"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/config"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/core/services"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/platform/logger"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/platform/telemetry"
	"github.com/oleg-sazonov/mern-chat-app-sub001/internal/plugins/postgres"
	redisPlugin "github.com/oleg-sazonov/mern-chat-app-sub001/internal/plugins/redis"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	pdb, err := postgres.New(ctx, *cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "err", err)
		os.Exit(1)
	}
	defer pdb.Close()

	rdb, err := redisPlugin.NewRedisClient(ctx, *cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(pdb)
	convRepo := postgres.NewConversationRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	txManager := postgres.NewTxManager(pdb)
	queue := redisPlugin.NewRedisMessageQueue(rdb)

	// Presence core
	reg := registry.NewRegistry()
	notifier := services.NewNotifierService(log, reg)
	presenceSvc := services.NewPresenceService(log, reg, notifier)

	// Services
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	userSvc := services.NewUserService(log, userRepo, notifier)
	convSvc := services.NewConversationService(log, convRepo, notifier, txManager)
	msgSvc := services.NewMessageService(log, queue, notifier, convRepo, msgRepo, txManager, cfg.Worker.MessageStream)

	// Persist worker
	msgWorker := worker.NewMessageWorker(log, queue, msgSvc, cfg.Worker.MessageGroup)
	go func() {
		if err := msgWorker.Run(ctx, cfg.Worker.MessageStream); err != nil && ctx.Err() == nil {
			log.Error("message worker stopped", "err", err)
		}
	}()

	// HTTP server
	srv := server.NewServer(
		cfg.Service.Addr,
		cfg.Service.Name,
		log,
		userSvc,
		tokenSvc,
		presenceSvc,
		convSvc,
		msgSvc,
	)
	go func() {
		if err := srv.Start(); err != nil && ctx.Err() == nil {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "err", err)
	}
}
