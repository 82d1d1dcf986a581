// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/tgeclaim/engine/internal/settlement"
)

// Config holds all configuration values for the claim engine.
type Config struct {
	// Catalog
	CatalogPath string

	// Settlement
	SettleStrategy    string
	ClaimAllDelay     time.Duration
	SettleMinDelay    time.Duration
	SettleMaxDelay    time.Duration
	OutcomeSeed       uint64
	DemoDashboardSeed bool

	// Wallet
	WalletConnectDelay time.Duration
	MockWalletAddress  string

	// API
	APIAddr string

	// Event feed (watch command)
	FeedURL string

	// Metrics
	PrometheusPort int

	// Notifications
	ToastDuration time.Duration

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Logging
	LogLevel string
	// LogFile receives logs while the TUI owns the terminal
	LogFile string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Catalog
		CatalogPath: getEnv("CATALOG_PATH", ""),

		// Settlement
		SettleStrategy:    getEnv("SETTLE_STRATEGY", settlement.StrategyClaimAll),
		ClaimAllDelay:     time.Duration(getEnvInt("CLAIM_ALL_DELAY_MS", 2000)) * time.Millisecond,
		SettleMinDelay:    time.Duration(getEnvInt("SETTLE_MIN_DELAY_MS", 1500)) * time.Millisecond,
		SettleMaxDelay:    time.Duration(getEnvInt("SETTLE_MAX_DELAY_MS", 3500)) * time.Millisecond,
		DemoDashboardSeed: getEnvBool("DEMO_DASHBOARD", true),

		// Wallet
		WalletConnectDelay: time.Duration(getEnvInt("WALLET_CONNECT_DELAY_MS", 1500)) * time.Millisecond,
		MockWalletAddress:  getEnv("MOCK_WALLET_ADDRESS", "0xABCD...1234"),

		// API
		APIAddr: getEnv("API_ADDR", "127.0.0.1:8080"),

		// Feed
		FeedURL: getEnv("FEED_URL", "ws://127.0.0.1:8080/ws"),

		// Metrics
		PrometheusPort: getEnvInt("PROMETHEUS_PORT", 9090),

		// Notifications
		ToastDuration: time.Duration(getEnvInt("TOAST_DURATION_SECONDS", 5)) * time.Second,

		// UI
		EnableTUI:     getEnvBool("ENABLE_TUI", true),
		UIRefreshRate: time.Duration(getEnvInt("UI_REFRESH_MS", 500)) * time.Millisecond,

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	seed, err := getEnvUint64("OUTCOME_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("OUTCOME_SEED must be a non-negative integer: %w", err)
	}
	cfg.OutcomeSeed = seed

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if _, err := settlement.StrategyByName(c.SettleStrategy); err != nil {
		return fmt.Errorf("SETTLE_STRATEGY must be %q or %q: %w",
			settlement.StrategyClaimAll, settlement.StrategyMultiChain, err)
	}

	if c.ClaimAllDelay < 0 || c.SettleMinDelay < 0 || c.WalletConnectDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}

	if c.SettleMaxDelay < c.SettleMinDelay {
		return fmt.Errorf("SETTLE_MAX_DELAY_MS must be at least SETTLE_MIN_DELAY_MS")
	}

	if c.MockWalletAddress == "" {
		return fmt.Errorf("MOCK_WALLET_ADDRESS is required")
	}

	if _, _, err := net.SplitHostPort(c.APIAddr); err != nil {
		return fmt.Errorf("API_ADDR must be host:port: %w", err)
	}

	if c.PrometheusPort < 0 || c.PrometheusPort > 65535 {
		return fmt.Errorf("PROMETHEUS_PORT must be between 0 and 65535")
	}

	if c.UIRefreshRate <= 0 {
		return fmt.Errorf("UI_REFRESH_MS must be positive")
	}

	return nil
}

// MaskedWalletAddress returns the mock address with most characters hidden for logging.
func (c *Config) MaskedWalletAddress() string {
	return maskSecret(c.MockWalletAddress)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvUint64 retrieves an environment variable as an unsigned integer.
// Unlike the other helpers it reports a malformed value, since a
// wrapped negative seed would silently change every outcome.
func getEnvUint64(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseUint(value, 10, 64)
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
