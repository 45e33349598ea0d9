package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/metrics"
	"github.com/wnt/mevx/internal/models"
	"gorm.io/gorm"
)

// DefaultPollInterval is how often subscriptions look for changes made elsewhere
const DefaultPollInterval = 5 * time.Second

// Patch is a partial update of a users row keyed by column name
type Patch map[string]any

// Client is the remote user directory
type Client struct {
	db           *gorm.DB
	logger       zerolog.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	watchers map[uint64]*watcher
	nextID   uint64
}

// Option configures a Client
type Option func(*Client)

// WithPollInterval sets the subscription poll interval
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a directory client. A nil db yields a client whose every
// operation fails with ErrRemoteUnavailable.
func New(db *gorm.DB, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		db:           db,
		logger:       logger.With().Str("component", "directory").Logger(),
		pollInterval: DefaultPollInterval,
		watchers:     make(map[uint64]*watcher),
	}
	for _, opt := range opts {
		opt(c)
	}
	if db == nil {
		c.logger.Warn().Msg("Remote directory not configured, running with local state only")
	}
	return c
}

// Available reports whether the client has a database
func (c *Client) Available() bool {
	return c.db != nil
}

func (c *Client) unavailable(op string) error {
	metrics.RecordDirectoryOperation(op, "unavailable")
	c.logger.Debug().Str("operation", op).Msg("Remote directory unavailable")
	return ErrRemoteUnavailable
}

// CreateUser inserts user and returns its id. An empty ID is assigned a UUIDv7.
func (c *Client) CreateUser(ctx context.Context, user *models.User) (string, error) {
	if c.db == nil {
		return "", c.unavailable("create")
	}

	if user.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id.String()
	}

	if err := c.db.WithContext(ctx).Create(user).Error; err != nil {
		metrics.RecordDirectoryOperation("create", "failed")
		return "", &RemoteWriteError{Op: "create", ID: user.ID, Err: err}
	}

	metrics.RecordDirectoryOperation("create", "success")
	c.logger.Info().
		Str("user_id", user.ID).
		Str("wallet", user.WalletAddress).
		Msg("Created user")

	c.notify()
	return user.ID, nil
}

// ListUsers returns every user, most recently joined first
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	if c.db == nil {
		return nil, c.unavailable("list")
	}

	var users []models.User
	if err := c.db.WithContext(ctx).Order("join_date DESC").Order("id").Find(&users).Error; err != nil {
		metrics.RecordDirectoryOperation("list", "failed")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	metrics.RecordDirectoryOperation("list", "success")
	return users, nil
}

// FindUserByWallet returns the user owning address, or nil when there is none
func (c *Client) FindUserByWallet(ctx context.Context, address string) (*models.User, error) {
	if c.db == nil {
		return nil, c.unavailable("find")
	}

	var user models.User
	err := c.db.WithContext(ctx).Where("wallet_address = ?", address).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.RecordDirectoryOperation("find", "success")
		return nil, nil
	}
	if err != nil {
		metrics.RecordDirectoryOperation("find", "failed")
		return nil, fmt.Errorf("failed to find user by wallet: %w", err)
	}

	metrics.RecordDirectoryOperation("find", "success")
	return &user, nil
}

// UpdateUser applies patch to the user with id and stamps last_active.
// It reports false when no such user exists.
func (c *Client) UpdateUser(ctx context.Context, id string, patch Patch) (bool, error) {
	if c.db == nil {
		return false, c.unavailable("update")
	}

	now := time.Now().UTC()
	values := make(map[string]any, len(patch)+2)
	for column, value := range patch {
		values[column] = value
	}
	values["last_active"] = now
	values["updated_at"] = now

	result := c.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		metrics.RecordDirectoryOperation("update", "failed")
		return false, &RemoteWriteError{Op: "update", ID: id, Err: result.Error}
	}

	if result.RowsAffected == 0 {
		metrics.RecordDirectoryOperation("update", "not_found")
		c.logger.Warn().Str("user_id", id).Msg("Update target not found")
		return false, nil
	}

	metrics.RecordDirectoryOperation("update", "success")
	c.logger.Debug().
		Str("user_id", id).
		Str("columns", columns(patch)).
		Msg("Updated user")

	c.notify()
	return true, nil
}

// DeleteUser removes the user with id. It reports false when no such user exists.
func (c *Client) DeleteUser(ctx context.Context, id string) (bool, error) {
	if c.db == nil {
		return false, c.unavailable("delete")
	}

	result := c.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		metrics.RecordDirectoryOperation("delete", "failed")
		return false, &RemoteWriteError{Op: "delete", ID: id, Err: result.Error}
	}

	if result.RowsAffected == 0 {
		metrics.RecordDirectoryOperation("delete", "not_found")
		return false, nil
	}

	metrics.RecordDirectoryOperation("delete", "success")
	c.logger.Info().Str("user_id", id).Msg("Deleted user")

	c.notify()
	return true, nil
}

// RecordConnection appends an entry to the wallet connection audit log
func (c *Client) RecordConnection(ctx context.Context, conn *models.WalletConnection) (string, error) {
	if c.db == nil {
		return "", c.unavailable("record_connection")
	}

	if conn.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate connection id: %w", err)
		}
		conn.ID = id.String()
	}
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = time.Now().UTC()
	}

	if err := c.db.WithContext(ctx).Create(conn).Error; err != nil {
		metrics.RecordDirectoryOperation("record_connection", "failed")
		return "", &RemoteWriteError{Op: "record_connection", ID: conn.ID, Err: err}
	}

	metrics.RecordDirectoryOperation("record_connection", "success")
	return conn.ID, nil
}

// Connections returns the audit entries of address, newest first
func (c *Client) Connections(ctx context.Context, address string) ([]models.WalletConnection, error) {
	if c.db == nil {
		return nil, c.unavailable("connections")
	}

	var conns []models.WalletConnection
	err := c.db.WithContext(ctx).
		Where("wallet_address = ?", address).
		Order("connected_at DESC").
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

func columns(patch Patch) string {
	names := make([]string, 0, len(patch))
	for column := range patch {
		names = append(names, column)
	}
	return strings.Join(names, ",")
}
