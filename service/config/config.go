package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// Required fields are validated at startup so misconfiguration fails fast.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Chat transport
	TelegramBotToken string

	// Solana configuration
	SolanaRPCURL string

	// Explorer configuration
	ExplorerAPIURL string
	ExplorerWebURL string
	HTTPTimeout    time.Duration

	// Token cache: Postgres when DatabaseURL is set, otherwise the JSON file.
	TokenCachePath string
	DatabaseURL    string

	// NATS configuration, empty disables report events
	NATSURL string

	// Reporting configuration
	DisplayTimezone         string
	Location                *time.Location
	RequireSuccessfulStatus bool
	FetchLimit              int
	ActionsLimit            int
	MaxDays                 int

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
}

// Load reads configuration from environment variables and validates all
// required fields. Every problem found is reported, not just the first.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.ExplorerAPIURL = getEnvOrDefault("EXPLORER_API_URL", "https://api.solana.fm")
	cfg.ExplorerWebURL = getEnvOrDefault("EXPLORER_WEB_URL", "https://solana.fm")

	timeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HTTPTimeout = timeout
	}

	cfg.TokenCachePath = getEnvOrDefault("TOKEN_CACHE_PATH", "./token-cache.json")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	cfg.DisplayTimezone = getEnvOrDefault("DISPLAY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("DISPLAY_TIMEZONE: invalid timezone %q: %w", cfg.DisplayTimezone, err))
	} else {
		cfg.Location = loc
	}

	requireSuccessful, err := parseBool("REQUIRE_SUCCESSFUL_STATUS", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RequireSuccessfulStatus = requireSuccessful
	}

	for _, f := range []struct {
		key  string
		def  int
		dest *int
	}{
		{"FETCH_LIMIT", 1000, &cfg.FetchLimit},
		{"ACTIONS_LIMIT", 50, &cfg.ActionsLimit},
		{"MAX_DAYS", 30, &cfg.MaxDays},
	} {
		v, err := parseInt(f.key, f.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*f.dest = v
	}

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "solquiz-digests")

	if len(errs) == 0 {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.ExplorerAPIURL == "" {
		errs = append(errs, fmt.Errorf("ExplorerAPIURL is required"))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTPTimeout must be positive"))
	}

	if c.FetchLimit < 1 {
		errs = append(errs, fmt.Errorf("FetchLimit must be at least 1"))
	}

	if c.ActionsLimit < 1 {
		errs = append(errs, fmt.Errorf("ActionsLimit must be at least 1"))
	}

	if c.ActionsLimit > c.FetchLimit {
		errs = append(errs, fmt.Errorf("ActionsLimit (%d) cannot be greater than FetchLimit (%d)", c.ActionsLimit, c.FetchLimit))
	}

	if c.MaxDays < 1 {
		errs = append(errs, fmt.Errorf("MaxDays must be at least 1"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// ValidateBot checks the settings needed by processes that talk to Telegram.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
