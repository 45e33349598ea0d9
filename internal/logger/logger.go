package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates and configures a new zerolog logger
func New(logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	// Human-readable output in development
	if os.Getenv("API_ENV") == "development" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "mevx").
		Logger()
}

// WithComponent adds the component name to logger context
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithWallet adds wallet address to logger context
func WithWallet(logger zerolog.Logger, wallet string) zerolog.Logger {
	return logger.With().Str("wallet", wallet).Logger()
}

// WithSource adds a price source name to logger context
func WithSource(logger zerolog.Logger, source string) zerolog.Logger {
	return logger.With().Str("price_source", source).Logger()
}
