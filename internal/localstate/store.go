package localstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/metrics"
)

// Keys of the persisted device-local blobs
const (
	KeyWalletSession     = "wallet-session"
	KeyAutoSnipeStorage  = "autosnipe-storage"
	KeyAutoSnipeActivity = "autosnipe-activity"
)

// defaultVersion applies to keys without a registered schema
const defaultVersion = 1

var ErrFutureVersion = errors.New("blob was written by a newer schema version")

// Migration upgrades data written at version from to the next version
type Migration func(from int, data json.RawMessage) (json.RawMessage, error)

type schema struct {
	version int
	migrate Migration
}

// envelope wraps every persisted blob. State is read from blobs written in
// the {state, version} layout used by earlier browser builds.
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
}

// Store persists versioned JSON blobs on a Backend
type Store struct {
	backend Backend
	logger  zerolog.Logger

	mu      sync.RWMutex
	schemas map[string]schema
}

func NewStore(backend Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "localstate").Logger(),
		schemas: make(map[string]schema),
	}
}

// Register sets the current schema version of key. migrate is called once per
// step for blobs older than version and may be nil when no upgrade is needed.
func (s *Store) Register(key string, version int, migrate Migration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[key] = schema{version: version, migrate: migrate}
}

func (s *Store) schemaFor(key string) schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.schemas[key]; ok {
		return sc
	}
	return schema{version: defaultVersion}
}

// Load decodes the blob under key into v. It reports false when nothing is stored.
func (s *Store) Load(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("failed to decode envelope for %s: %w", key, err)
	}

	data := env.Data
	if data == nil {
		data = env.State
	}
	if data == nil {
		return false, fmt.Errorf("blob %s has no data", key)
	}

	sc := s.schemaFor(key)
	if env.Version > sc.version {
		return false, fmt.Errorf("%w: %s at version %d, current %d", ErrFutureVersion, key, env.Version, sc.version)
	}

	for from := env.Version; from < sc.version; from++ {
		if sc.migrate == nil {
			break
		}
		data, err = sc.migrate(from, data)
		if err != nil {
			return false, fmt.Errorf("failed to migrate %s from version %d: %w", key, from, err)
		}
		s.logger.Info().Str("key", key).Int("from", from).Int("to", from+1).Msg("Migrated local blob")
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Save writes v under key at the current schema version
func (s *Store) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	raw, err := json.Marshal(envelope{Version: s.schemaFor(key).version, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode envelope for %s: %w", key, err)
	}

	if err := s.backend.Put(ctx, key, raw); err != nil {
		metrics.RecordLocalStateWrite(key, "failed")
		return err
	}

	metrics.RecordLocalStateWrite(key, "success")
	return nil
}

// Remove deletes the blob under key
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}
