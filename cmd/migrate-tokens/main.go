package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/brojonat/solquiz/service/config"
	"github.com/brojonat/solquiz/service/db"
	"github.com/brojonat/solquiz/service/tokens"
)

// main copies the JSON token cache at TOKEN_CACHE_PATH into Postgres. Rows
// already in the database are updated in place.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("starting token cache migration")

	cfg := config.MustLoad()
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()

	fileStore := tokens.NewFileStore(cfg.TokenCachePath)
	cached, err := fileStore.Load(ctx)
	if err != nil {
		logger.Error("failed to read token cache file", "path", fileStore.Path(), "error", err)
		os.Exit(1)
	}
	logger.Info("read token cache file", "path", fileStore.Path(), "tokens", len(cached))

	if len(cached) == 0 {
		logger.Info("nothing to migrate")
		return
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	store := db.NewStore(pool, nil)
	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	before, err := store.Load(ctx)
	if err != nil {
		logger.Error("failed to read existing tokens", "error", err)
		os.Exit(1)
	}

	if err := store.Save(ctx, cached); err != nil {
		logger.Error("failed to save tokens", "error", err)
		os.Exit(1)
	}

	after, err := store.Load(ctx)
	if err != nil {
		logger.Error("failed to verify migration", "error", err)
		os.Exit(1)
	}

	logger.Info("migration complete",
		"migrated", len(cached),
		"tokens_before", len(before),
		"tokens_after", len(after),
	)
}
