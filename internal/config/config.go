package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wnt/mevx/internal/credential"
)

// Config holds all configuration for mevx
type Config struct {
	// Remote directory (postgres). An empty DBHost runs without a directory.
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	// Device-local state: sqlite://path, redis://..., or memory://
	LocalStateURL string

	// Solana RPC used to read on-chain balances at connect time
	SolanaRPCURL string

	// Price oracle configuration
	PriceSourcesFile     string
	PriceRefreshInterval time.Duration

	// Directory subscription and reconciliation
	DirectoryPollInterval time.Duration
	ReconcileSchedule     string

	// Balance guard threshold in SOL
	MinimumBalance float64

	// HTTP configuration
	HTTPAddr       string
	AdminJWTSecret string

	// Key mixed into the one-way commitment of submitted wallet secrets
	AuditPepper string

	// Recovery phrase derivation: bip44 or legacy-sha256
	CredentialDerivation string

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		DBHost:               getEnv("DB_HOST", ""),
		DBUser:               getEnv("DB_USER", ""),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBName:               getEnv("DB_NAME", "mevx"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBSSLMode:            getEnv("DB_SSL_MODE", "disable"),
		LocalStateURL:        getEnv("LOCAL_STATE_URL", "sqlite://mevx-local.db"),
		SolanaRPCURL:         getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		PriceSourcesFile:     getEnv("PRICE_SOURCES_FILE", ""),
		ReconcileSchedule:    getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		AdminJWTSecret:       getEnv("ADMIN_JWT_SECRET", ""),
		AuditPepper:          getEnv("AUDIT_PEPPER", ""),
		CredentialDerivation: getEnv("CREDENTIAL_DERIVATION", "bip44"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		MetricsPort:          getEnv("METRICS_PORT", "9100"),
	}

	var err error
	cfg.PriceRefreshInterval, err = parseDurationEnv("PRICE_REFRESH_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid PRICE_REFRESH_INTERVAL: %w", err)
	}

	cfg.DirectoryPollInterval, err = parseDurationEnv("DIRECTORY_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid DIRECTORY_POLL_INTERVAL: %w", err)
	}

	cfg.MinimumBalance, err = parseFloatEnv("MINIMUM_BALANCE", 0.5)
	if err != nil {
		return cfg, fmt.Errorf("invalid MINIMUM_BALANCE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DirectoryEnabled reports whether a remote directory database is configured
func (c Config) DirectoryEnabled() bool {
	return c.DBHost != ""
}

// DSN returns the postgres connection string for the remote directory
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.LocalStateURL == "" {
		return fmt.Errorf("LOCAL_STATE_URL is required")
	}

	if c.DirectoryEnabled() && c.DBUser == "" {
		return fmt.Errorf("DB_USER is required when DB_HOST is set")
	}

	if c.PriceRefreshInterval < time.Second {
		return fmt.Errorf("PRICE_REFRESH_INTERVAL must be at least 1s")
	}

	if c.DirectoryPollInterval < 100*time.Millisecond {
		return fmt.Errorf("DIRECTORY_POLL_INTERVAL must be at least 100ms")
	}

	if c.MinimumBalance < 0 {
		return fmt.Errorf("MINIMUM_BALANCE must not be negative")
	}

	if _, err := credential.ParseDerivation(c.CredentialDerivation); err != nil {
		return fmt.Errorf("invalid CREDENTIAL_DERIVATION: %s (must be bip44 or legacy-sha256)", c.CredentialDerivation)
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationEnv parses a duration environment variable with a default value
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}

// parseFloatEnv parses a float environment variable with a default value
func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(str, 64)
}
