package autosnipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/events"
	"github.com/wnt/mevx/internal/localstate"
	"github.com/wnt/mevx/internal/models"
	"github.com/wnt/mevx/internal/utils"
)

// storageVersion is the schema of the autosnipe-storage blob. Version 0 blobs
// kept a wallet-less list of sniped token ids next to the configurations.
const storageVersion = 1

type storage struct {
	Configs []models.AutoSnipeConfig `json:"configs"`
}

// Store holds the AutoSnipe configurations of this device. Token toggles on
// listing screens are configurations too, matched by target token and wallet.
type Store struct {
	local  *localstate.Store
	bus    *events.Bus
	logger zerolog.Logger

	mu       sync.RWMutex
	configs  []models.AutoSnipeConfig
	activity []models.SnipeActivity

	// persistMu orders snapshots and saves so a stale snapshot never
	// overwrites a newer one
	persistMu sync.Mutex

	now func() time.Time
}

func NewStore(local *localstate.Store, bus *events.Bus, logger zerolog.Logger) *Store {
	local.Register(localstate.KeyAutoSnipeStorage, storageVersion, migrateStorage)

	return &Store{
		local:  local,
		bus:    bus,
		logger: logger.With().Str("component", "autosnipe").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// migrateStorage drops the version 0 token list. Those toggles carried no
// wallet and cannot be turned into configurations.
func migrateStorage(from int, data json.RawMessage) (json.RawMessage, error) {
	if from != 0 {
		return nil, fmt.Errorf("no migration from version %d", from)
	}
	var old struct {
		Configs []models.AutoSnipeConfig `json:"configs"`
	}
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}
	return json.Marshal(storage{Configs: old.Configs})
}

// Load restores configurations and toggle activity from local state
func (s *Store) Load(ctx context.Context) error {
	var stored storage
	if _, err := s.local.Load(ctx, localstate.KeyAutoSnipeStorage, &stored); err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}

	var activity []models.SnipeActivity
	if _, err := s.local.Load(ctx, localstate.KeyAutoSnipeActivity, &activity); err != nil {
		return fmt.Errorf("failed to load activity: %w", err)
	}

	s.mu.Lock()
	s.configs = stored.Configs
	s.activity = activity
	s.mu.Unlock()

	s.logger.Info().
		Int("configs", len(stored.Configs)).
		Int("activity", len(activity)).
		Msg("Loaded AutoSnipe state")
	return nil
}

func validate(cfg models.AutoSnipeConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return &ValidationError{Field: "name", Message: "configuration name is required"}
	}
	if strings.TrimSpace(cfg.TargetToken) == "" {
		return &ValidationError{Field: "targetToken", Message: "target token is required"}
	}
	if strings.TrimSpace(cfg.WalletAddress) == "" {
		return &ValidationError{Field: "walletAddress", Message: "please connect your wallet first"}
	}
	return nil
}

// AddConfig validates and stores a new configuration. ID and Created are
// assigned when empty.
func (s *Store) AddConfig(ctx context.Context, cfg models.AutoSnipeConfig) (models.AutoSnipeConfig, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.TargetToken = strings.TrimSpace(cfg.TargetToken)
	if err := validate(cfg); err != nil {
		return models.AutoSnipeConfig{}, err
	}

	if cfg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return models.AutoSnipeConfig{}, fmt.Errorf("failed to generate config id: %w", err)
		}
		cfg.ID = id.String()
	}
	if cfg.Created.IsZero() {
		cfg.Created = s.now()
	}

	s.mu.Lock()
	s.configs = append(s.configs, cfg)
	s.mu.Unlock()

	s.persistConfigs(ctx)
	s.logger.Info().
		Str("config_id", cfg.ID).
		Str("wallet", cfg.WalletAddress).
		Str("token", cfg.TargetToken).
		Msg("Added configuration")

	s.publishConfig(events.ChangeAdded, cfg)
	return cfg, nil
}

// UpdateConfig replaces the editable fields of the configuration with cfg.ID.
// Ownership, creation time and trigger count are kept.
func (s *Store) UpdateConfig(ctx context.Context, cfg models.AutoSnipeConfig) (models.AutoSnipeConfig, error) {
	s.mu.Lock()
	idx := s.indexOf(cfg.ID)
	if idx < 0 {
		s.mu.Unlock()
		return models.AutoSnipeConfig{}, ErrConfigNotFound
	}

	existing := s.configs[idx]
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.TargetToken = strings.TrimSpace(cfg.TargetToken)
	cfg.WalletAddress = existing.WalletAddress
	cfg.UserID = existing.UserID
	cfg.Created = existing.Created
	cfg.Triggers = existing.Triggers
	if err := validate(cfg); err != nil {
		s.mu.Unlock()
		return models.AutoSnipeConfig{}, err
	}
	s.configs[idx] = cfg
	s.mu.Unlock()

	s.persistConfigs(ctx)
	s.publishConfig(events.ChangeUpdated, cfg)
	return cfg, nil
}

// ToggleConfig flips IsActive of the configuration with id
func (s *Store) ToggleConfig(ctx context.Context, id string) (models.AutoSnipeConfig, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.AutoSnipeConfig{}, ErrConfigNotFound
	}
	s.configs[idx].IsActive = !s.configs[idx].IsActive
	cfg := s.configs[idx]
	s.mu.Unlock()

	s.persistConfigs(ctx)
	s.logger.Info().
		Str("config_id", id).
		Bool("active", cfg.IsActive).
		Msg("Toggled configuration")

	s.publishConfig(events.ChangeUpdated, cfg)
	return cfg, nil
}

// DeleteConfig removes the configuration with id
func (s *Store) DeleteConfig(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrConfigNotFound
	}
	removed := s.configs[idx]
	s.configs = append(s.configs[:idx:idx], s.configs[idx+1:]...)
	s.mu.Unlock()

	s.persistConfigs(ctx)
	s.logger.Info().Str("config_id", id).Msg("Deleted configuration")

	s.publishConfig(events.ChangeDeleted, removed)
	return nil
}

// ToggleAutoSnipe flips sniping of tokenID for wallet and returns the new
// state. The wallet's configurations targeting the token are switched
// together; when there are none a default configuration is created active.
// The toggle replaces any earlier activity record of the same token and wallet.
func (s *Store) ToggleAutoSnipe(ctx context.Context, tokenID, wallet string) (bool, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return false, &ValidationError{Field: "tokenId", Message: "token id is required"}
	}
	if strings.TrimSpace(wallet) == "" {
		return false, &ValidationError{Field: "walletAddress", Message: "please connect your wallet first"}
	}

	s.mu.Lock()
	var matched []int
	wasActive := false
	for i, c := range s.configs {
		if c.WalletAddress == wallet && c.TargetToken == tokenID {
			matched = append(matched, i)
			wasActive = wasActive || c.IsActive
		}
	}
	active := !wasActive

	var changed []models.AutoSnipeConfig
	change := events.ChangeUpdated
	if len(matched) == 0 {
		id, err := uuid.NewV7()
		if err != nil {
			s.mu.Unlock()
			return false, fmt.Errorf("failed to generate config id: %w", err)
		}
		cfg := models.DefaultAutoSnipeConfig()
		cfg.ID = id.String()
		cfg.Name = "AutoSnipe " + shortToken(tokenID)
		cfg.TargetToken = tokenID
		cfg.WalletAddress = wallet
		cfg.IsActive = true
		cfg.Created = s.now()
		s.configs = append(s.configs, cfg)
		changed = append(changed, cfg)
		change = events.ChangeAdded
	} else {
		for _, i := range matched {
			s.configs[i].IsActive = active
			changed = append(changed, s.configs[i])
		}
	}

	record := models.SnipeActivity{
		TokenID:       tokenID,
		WalletAddress: wallet,
		IsActive:      active,
		Timestamp:     s.now(),
	}
	s.activity = append(utils.Filter(s.activity, func(a models.SnipeActivity) bool {
		return !(a.TokenID == tokenID && a.WalletAddress == wallet)
	}), record)
	s.mu.Unlock()

	s.persistConfigs(ctx)
	s.persistActivity(ctx)

	s.logger.Info().
		Str("token", tokenID).
		Str("wallet", wallet).
		Bool("active", active).
		Msg("Toggled AutoSnipe")

	s.bus.Publish(events.TopicAutoSnipeTokenChanged, events.TokenChanged{
		Type:          events.ChangeToggled,
		TokenID:       tokenID,
		WalletAddress: wallet,
		IsActive:      active,
	})
	for _, cfg := range changed {
		s.publishConfig(change, cfg)
	}
	return active, nil
}

// IsAutoSniping reports whether wallet has an active configuration for tokenID
func (s *Store) IsAutoSniping(tokenID, wallet string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.configs {
		if c.IsActive && c.WalletAddress == wallet && c.TargetToken == tokenID {
			return true
		}
	}
	return false
}

// AutoSnipingTokens returns the tokens wallet is actively sniping
func (s *Store) AutoSnipingTokens(wallet string) []string {
	return utils.Unique(s.GetActiveConfigs(wallet), func(c models.AutoSnipeConfig) string {
		return c.TargetToken
	})
}

// GetUserConfigs returns the configurations owned by wallet
func (s *Store) GetUserConfigs(wallet string) []models.AutoSnipeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utils.Filter(s.configs, func(c models.AutoSnipeConfig) bool {
		return c.WalletAddress == wallet
	})
}

// GetActiveConfigs returns the active configurations owned by wallet
func (s *Store) GetActiveConfigs(wallet string) []models.AutoSnipeConfig {
	return utils.Filter(s.GetUserConfigs(wallet), func(c models.AutoSnipeConfig) bool {
		return c.IsActive
	})
}

// GetConfig returns the configuration with id
func (s *Store) GetConfig(id string) (models.AutoSnipeConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.configs[idx], true
	}
	return models.AutoSnipeConfig{}, false
}

// AllConfigs returns every configuration on this device
func (s *Store) AllConfigs() []models.AutoSnipeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AutoSnipeConfig{}, s.configs...)
}

// Activity returns the toggle audit records
func (s *Store) Activity() []models.SnipeActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SnipeActivity{}, s.activity...)
}

// ClearUserData removes every configuration. The activity audit is kept.
func (s *Store) ClearUserData(ctx context.Context) {
	s.mu.Lock()
	removed := s.configs
	s.configs = nil
	s.mu.Unlock()

	s.persistConfigs(ctx)
	s.logger.Info().Int("removed", len(removed)).Msg("Cleared AutoSnipe configurations")

	for _, cfg := range removed {
		s.publishConfig(events.ChangeDeleted, cfg)
	}
}

// indexOf must be called with mu held
func (s *Store) indexOf(id string) int {
	for i := range s.configs {
		if s.configs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistConfigs(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	stored := storage{Configs: append([]models.AutoSnipeConfig{}, s.configs...)}
	s.mu.RUnlock()

	if err := s.local.Save(ctx, localstate.KeyAutoSnipeStorage, stored); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist AutoSnipe configurations")
	}
}

func (s *Store) persistActivity(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	activity := append([]models.SnipeActivity{}, s.activity...)
	s.mu.RUnlock()

	if err := s.local.Save(ctx, localstate.KeyAutoSnipeActivity, activity); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist AutoSnipe activity")
	}
}

func (s *Store) publishConfig(change string, cfg models.AutoSnipeConfig) {
	s.bus.Publish(events.TopicAutoSnipeConfigChanged, events.ConfigChanged{
		Type:          change,
		Config:        cfg,
		WalletAddress: cfg.WalletAddress,
	})
}

func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:4] + "..." + token[len(token)-4:]
}
