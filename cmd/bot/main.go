package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/solquiz/service/app"
	"github.com/brojonat/solquiz/service/bot"
	"github.com/brojonat/solquiz/service/config"
	"github.com/brojonat/solquiz/service/metrics"
	natspkg "github.com/brojonat/solquiz/service/nats"
	"github.com/brojonat/solquiz/service/server"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	if err := cfg.ValidateBot(); err != nil {
		logger.Error("invalid bot configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting bot",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"explorer", cfg.ExplorerAPIURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	pipeline, err := app.New(ctx, cfg, metricsCollector, logger)
	if err != nil {
		logger.Error("failed to initialize reporting pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close(context.Background())

	// NATS is optional; without it reports are not published
	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		p, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Warn("NATS_URL not set, report events disabled")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}
	logger.Info("authorized on telegram", "username", api.Self.UserName)

	chatBot := bot.New(api, pipeline.Service, pipeline.Renderer, publisher, cfg.MaxDays, metricsCollector, logger)
	httpServer := server.New(cfg.ServerAddr, pipeline.Service, pipeline.Resolver, pipeline.Renderer, cfg.MaxDays, metricsCollector, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	botDone := make(chan error, 1)
	go func() {
		botDone <- chatBot.Run(ctx)
	}()

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		stop()
		<-botDone
		os.Exit(1)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
	}

	select {
	case err := <-botDone:
		if err != nil {
			logger.Error("bot stopped with error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("timed out waiting for in-flight commands")
	}

	logger.Info("shutdown complete")
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
