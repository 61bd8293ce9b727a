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

	"github.com/lmittmann/tint"

	"github.com/mixelka/mailhook/internal/auth"
	"github.com/mixelka/mailhook/internal/config"
	"github.com/mixelka/mailhook/internal/database"
	"github.com/mixelka/mailhook/internal/graph"
	"github.com/mixelka/mailhook/internal/ingest"
	"github.com/mixelka/mailhook/internal/server"
	"github.com/mixelka/mailhook/internal/subscription"
	"github.com/mixelka/mailhook/internal/telegram"
	"github.com/mixelka/mailhook/pkg/models"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting mail webhook service", "addr", cfg.HTTPAddr, "folders", cfg.TargetFolders)

	// Connect to store
	db, err := database.New(cfg.StoreDSN, database.Tables{
		Emails:      cfg.StoreEmailTable,
		Attachments: cfg.StoreAttachmentTable,
		Blobs:       cfg.StoreBlobTable,
	})
	if err != nil {
		logger.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Credentials
	cache, err := auth.NewCache(cfg.TokenCacheBackend, cfg.TokenCachePath)
	if err != nil {
		logger.Error("failed to open token cache", "error", err)
		os.Exit(1)
	}
	provider := auth.NewProvider(auth.Config{
		ClientID: cfg.ClientID,
		Tenant:   cfg.Tenant,
		Scopes:   cfg.Scopes,
	}, cache, logger)

	// Interactive sign-in happens here, before anything is served
	if _, err := provider.AccessToken(ctx); err != nil {
		logger.Error("failed to acquire access token", "error", err)
		os.Exit(1)
	}

	api := graph.NewClient(graph.Config{
		BaseURL: cfg.GraphBaseURL,
		Timeout: cfg.GraphTimeout,
	}, provider, logger)

	// Alerts (optional)
	alert := func(a models.Alert) {}
	if cfg.AlertsEnabled() {
		notifier, err := telegram.NewNotifier(telegram.Config{
			Token:   cfg.TelegramToken,
			ChatID:  cfg.TelegramChatID,
			TopicID: cfg.TelegramTopicID,
		}, logger)
		if err != nil {
			logger.Error("failed to create telegram notifier", "error", err)
			os.Exit(1)
		}
		alert = notifier.Handler()
		logger.Info("telegram alerts enabled", "chat_id", cfg.TelegramChatID)
	}

	// Pipeline
	classifier := ingest.NewClassifier(cfg.PlainCategory, cfg.AttachmentCategory, logger)
	service := ingest.NewService(api, classifier, db, cfg.ClientState, logger)

	// Subscriptions
	manager := subscription.NewManager(api, subscription.Config{
		CallbackURL:   cfg.CallbackURL(),
		Folders:       cfg.TargetFolders,
		ClientState:   cfg.ClientState,
		Lifetime:      cfg.SubscriptionLifetime,
		RenewMargin:   cfg.RenewMargin(),
		PollInterval:  cfg.PollInterval(),
		MaxRetries:    cfg.RenewMaxRetries,
		RetryInterval: cfg.RenewRetryInterval,
	}, logger)
	manager.SetAlertHandler(subscription.AlertHandler(alert))

	srv := server.New(service, manager, cfg.RequestTimeout, logger)
	srv.SetAlertHandler(alert)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Serve first so the validation handshake triggered by subscription
	// creation can be answered
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Subscription loop
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := manager.Run(ctx); err != nil {
			logger.Error("subscription lifecycle stopped", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err, ok := <-serveErr:
		if ok {
			logger.Error("http server failed", "error", err)
		}
	}

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}

	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		logger.Warn("subscription loop did not stop in time")
	}

	logger.Info("service stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
