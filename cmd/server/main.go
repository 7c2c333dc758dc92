package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/config"
	"github.com/itqan-learning/progress-service/internal/events"
	"github.com/itqan-learning/progress-service/internal/grading"
	"github.com/itqan-learning/progress-service/internal/handlers"
	"github.com/itqan-learning/progress-service/internal/services"
	"github.com/itqan-learning/progress-service/internal/storage"
	"github.com/itqan-learning/progress-service/internal/utils"
	"github.com/itqan-learning/progress-service/internal/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "development" {
		logger = utils.NewDevelopmentLogger()
	} else {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.LogError(err, "Failed to initialize storage", "backend", cfg.StorageBackend)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("Storage initialized", "backend", cfg.StorageBackend)

	v := validator.New()

	// Content failures are fatal: the service never runs on partial content.
	content, err := services.LoadContent(ctx, cfg.ContentSource, v, logger)
	if err != nil {
		logger.LogError(err, "Failed to load content", "source", cfg.ContentSource)
		os.Exit(1)
	}

	eventCfg := config.EventConfigFrom(cfg)
	publisher := eventCfg.CreateEventPublisher(slog.Default())
	defer publisher.Close()

	buffer := handlers.NewNotificationBuffer(logger)
	if gcPub, ok := publisher.(*events.GoChannelEventPublisher); ok {
		if err := buffer.Run(ctx, gcPub); err != nil {
			logger.LogError(err, "Failed to start notification buffer")
			os.Exit(1)
		}
	}

	ledger := services.NewLedgerService(grading.NewEngine(), logger)
	progress := services.NewProgressService(store, logger, cfg.KeyPrefix, cfg.BackupRetention, len(content.Book().Chapters))
	certs := services.NewCertificateService(logger)

	session := services.NewSessionService(content, ledger, progress, certs, publisher, v, logger, services.SessionTimings{
		AutoSaveInterval:  cfg.AutoSaveInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		IdleWarningAfter:  cfg.IdleWarningAfter,
		TimeoutAfter:      cfg.SessionTimeout,
	})
	if err := session.Start(ctx); err != nil {
		logger.LogError(err, "Failed to start session")
		os.Exit(1)
	}

	router := gin.New()
	router.Use(gin.Recovery(), utils.LoggerMiddleware(logger))
	handlers.NewHandlerManager(session, content, certs, buffer, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError(err, "Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError(err, "Server shutdown failed")
	}
	// The final save happens here, before storage closes.
	if err := session.Stop(shutdownCtx); err != nil {
		logger.LogError(err, "Session stop failed")
	}
	logger.Info("Shutdown complete")
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return storage.NewMemoryStore(0), noop, nil
	case config.BackendFS:
		s, err := storage.NewFSStore(cfg.StorageDir)
		return s, noop, err
	case config.BackendRedis:
		s, err := storage.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { s.Close() }, nil
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { s.Close() }, nil
	}
	return nil, noop, errors.New("unknown storage backend " + cfg.StorageBackend)
}
