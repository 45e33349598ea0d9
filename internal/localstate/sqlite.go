package localstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/zerolog"
)

const createBlobsTable = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteBackend stores blobs in a single-file SQLite database
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// NewSQLiteBackend opens (or creates) the database at path in WAL mode
func NewSQLiteBackend(path string, logger zerolog.Logger) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state database: %w", err)
	}
	// One writer keeps WAL checkpoints simple for a device-local file
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, createBlobsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	logger.Info().Str("path", path).Msg("Opened local state database")

	return &SQLiteBackend{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "localstate_sqlite").Logger(),
	}, nil
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(value)).Msg("Wrote blob")
	return nil
}

func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
