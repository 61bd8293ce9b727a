package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
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
)

func main() {
	folder := flag.String("folder", "", "folder display name (defaults to the first TARGET_FOLDERS entry)")
	since := flag.String("since", "", "start of the range, YYYY-MM-DD or RFC 3339 (default: 24h ago)")
	until := flag.String("until", "", "end of the range, exclusive, YYYY-MM-DD or RFC 3339 (default: now)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      parseLevel(cfg.LogLevel),
		TimeFormat: time.DateTime,
	}))

	now := time.Now().UTC()
	start, end, err := parseRange(*since, *until, now)
	if err != nil {
		logger.Error("invalid range", "error", err)
		os.Exit(2)
	}

	name := *folder
	if name == "" {
		if len(cfg.TargetFolders) == 0 {
			logger.Error("no folder given and TARGET_FOLDERS is empty")
			os.Exit(2)
		}
		name = cfg.TargetFolders[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

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

	api := graph.NewClient(graph.Config{
		BaseURL: cfg.GraphBaseURL,
		Timeout: cfg.GraphTimeout,
	}, provider, logger)

	classifier := ingest.NewClassifier(cfg.PlainCategory, cfg.AttachmentCategory, logger)
	service := ingest.NewService(api, classifier, db, cfg.ClientState, logger)

	res, err := service.Backfill(ctx, name, start, end)
	if err != nil {
		logger.Error("backfill failed", "folder", name, "saved", res.Saved(), "error", err)
		os.Exit(1)
	}

	logger.Info("backfill completed",
		"folder", name,
		"emails", res.Emails,
		"attachments", res.Attachments,
		"skipped", res.Skipped,
	)
}

// parseRange resolves the -since/-until flags. Empty values default to the
// last 24 hours ending at now.
func parseRange(since, until string, now time.Time) (time.Time, time.Time, error) {
	end := now
	if until != "" {
		t, err := parseDate(until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad -until: %w", err)
		}
		end = t
	}

	start := end.Add(-24 * time.Hour)
	if since != "" {
		t, err := parseDate(since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad -since: %w", err)
		}
		start = t
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is not before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return t.UTC(), nil
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
