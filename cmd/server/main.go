package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ai-chat/internal/api/handlers"
	"ai-chat/internal/app"
	"ai-chat/internal/config"
	"ai-chat/internal/logger"
	"ai-chat/internal/repository/postgres"
	"ai-chat/internal/service/embedding"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		logger.Log.WithError(err).Fatal("Server failed")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load centralized configuration
	appConfig, err := config.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize database
	logger.Log.Info("Initializing database...")
	database, err := postgres.NewPostgresDB(ctx, appConfig.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	// Build application dependencies
	cfg := app.NewConfig(ctx, database, appConfig)

	if cfg.Embedder != nil {
		indexer := embedding.NewIndexer(database, cfg.Embedder, cfg.Validator,
			appConfig.Embedding.Workers, appConfig.Embedding.QueueSize, appConfig.Embedding.Timeout)
		cfg.Indexer = indexer
		defer indexer.Close()
	} else {
		logger.Log.Warn("Embeddings disabled, semantic search unavailable")
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           handlers.NewRouter(cfg),
		ReadHeaderTimeout: appConfig.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.WithFields(logrus.Fields{
			"port":  appConfig.Server.Port,
			"model": appConfig.LLM.Model,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Log.Info("Server stopped")
	return nil
}
