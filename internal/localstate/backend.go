package localstate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Backend stores raw blobs by key
type Backend interface {
	// Get returns the blob stored under key; ok is false when nothing is stored
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open picks a backend from the URL scheme: sqlite://path, redis://..., memory://
func Open(url string, logger zerolog.Logger) (Backend, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteBackend(strings.TrimPrefix(url, "sqlite://"), logger)
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return NewRedisBackend(url, logger)
	case strings.HasPrefix(url, "memory://"):
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported local state URL: %q", url)
	}
}
