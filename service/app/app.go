// Package app wires the reporting pipeline from configuration. Every binary
// builds the same explorer client, token resolver and reporting service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solquiz/client"
	"github.com/brojonat/solquiz/service/config"
	"github.com/brojonat/solquiz/service/db"
	"github.com/brojonat/solquiz/service/metrics"
	"github.com/brojonat/solquiz/service/quiz"
	"github.com/brojonat/solquiz/service/solana"
	"github.com/brojonat/solquiz/service/tokens"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds the shared reporting components.
type App struct {
	Explorer *client.Client
	Resolver *tokens.Resolver
	Service  *quiz.Service
	Renderer *quiz.Renderer

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New builds the pipeline and loads the token cache. Tokens are cached in
// Postgres when DATABASE_URL is set, otherwise in the JSON file.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*App, error) {
	store, pool, err := NewTokenStore(ctx, cfg, m, logger)
	if err != nil {
		return nil, err
	}

	rpcClient := solana.NewRPCClient(cfg.SolanaRPCURL)
	chain := solana.NewClient(rpcClient, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	resolver := tokens.NewResolver(store, chain, m, logger)
	if err := resolver.Load(ctx); err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}
	logger.Info("token cache loaded", "tokens", resolver.Len())

	explorer := client.NewClient(cfg.ExplorerAPIURL, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
	if m != nil {
		explorer.WithPageObserver(func(status string, d time.Duration) {
			m.RecordExplorerRequest(status, d.Seconds())
		})
	}

	service := quiz.NewService(explorer, resolver, quiz.Options{
		FetchLimit:        cfg.FetchLimit,
		ActionsLimit:      cfg.ActionsLimit,
		RequireSuccessful: cfg.RequireSuccessfulStatus,
	}, m, logger)

	return &App{
		Explorer: explorer,
		Resolver: resolver,
		Service:  service,
		Renderer: quiz.NewRenderer(cfg.ExplorerWebURL, cfg.Location),
		pool:     pool,
		logger:   logger,
	}, nil
}

// NewTokenStore returns the Postgres store when DATABASE_URL is set, applying
// migrations, and the file store otherwise. The returned pool is nil for the
// file store; callers close it when done.
func NewTokenStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (tokens.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using file token cache", "path", cfg.TokenCachePath)
		return tokens.NewFileStore(cfg.TokenCachePath), nil, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := db.NewStore(pool, m)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("using postgres token cache")
	return store, pool, nil
}

// Close flushes the token cache and releases the database pool.
func (a *App) Close(ctx context.Context) {
	if _, err := a.Resolver.Flush(ctx); err != nil {
		a.logger.Error("failed to flush token cache", "error", err)
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
