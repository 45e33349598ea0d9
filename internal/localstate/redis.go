package localstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisHash holds every blob as one field
const redisHash = "mevx:local"

// RedisBackend stores blobs as fields of a single Redis hash
type RedisBackend struct {
	client *redis.Client
	hash   string
	logger zerolog.Logger
}

// NewRedisBackend connects to Redis and verifies the connection
func NewRedisBackend(redisURL string, logger zerolog.Logger) (*RedisBackend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_addr", opt.Addr).Msg("Connected to Redis successfully")

	return &RedisBackend{
		client: client,
		hash:   redisHash,
		logger: logger.With().Str("component", "localstate_redis").Logger(),
	}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.HGet(ctx, r.hash, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisBackend) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return fmt.Errorf("failed to set blob %s: %w", key, err)
	}

	r.logger.Debug().Str("key", key).Int("bytes", len(value)).Msg("Wrote blob")
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.hash, key).Err(); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
