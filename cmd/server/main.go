package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/gitporter/gitporter/internal/api"
	"github.com/gitporter/gitporter/internal/auth"
	"github.com/gitporter/gitporter/internal/config"
	"github.com/gitporter/gitporter/internal/creator"
	"github.com/gitporter/gitporter/internal/logging"
	"github.com/gitporter/gitporter/internal/session"
	"github.com/gitporter/gitporter/internal/storage"
	"github.com/gitporter/gitporter/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Initialize database
	db, err := storage.New(cfg.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Run migrations
	if err := db.Migrate(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Session tokens need a signing secret. A generated one works but
	// invalidates cookies on restart.
	secret := cfg.Session.Secret
	if secret == "" {
		secret = uuid.NewString()
		slog.Warn("session.secret not configured, sessions will not survive a restart")
	}
	jwtManager, err := auth.NewJWTManager(secret, cfg.Session.Duration())
	if err != nil {
		slog.Error("Failed to initialize session signer", "error", err)
		os.Exit(1)
	}

	sessions := session.NewStore(cfg.Session.Duration())
	defer sessions.Close()

	projectCreator := creator.New(db, logger)

	// Initialize and start the import worker
	copier, err := worker.NewGitCopier(cfg.Worker.WorkDir)
	if err != nil {
		slog.Error("Failed to initialize git copier", "error", err)
		os.Exit(1)
	}
	importWorker, err := worker.New(worker.Config{
		Copier:       copier,
		Storage:      db,
		Logger:       logger,
		PollInterval: time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second,
		Workers:      cfg.Worker.Workers,
	})
	if err != nil {
		slog.Error("Failed to create import worker", "error", err)
		os.Exit(1)
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if err := importWorker.Start(workerCtx); err != nil {
		slog.Error("Failed to start import worker", "error", err)
		os.Exit(1)
	}

	// Create API server
	server := api.NewServer(cfg, db, logger, sessions, jwtManager, projectCreator)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	cancelWorkers()
	if err := importWorker.Stop(); err != nil {
		slog.Error("Failed to stop import worker", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}
