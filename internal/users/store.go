package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/directory"
	"github.com/wnt/mevx/internal/events"
	"github.com/wnt/mevx/internal/metrics"
	"github.com/wnt/mevx/internal/models"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrWalletAddressRequired = errors.New("wallet address is required")
	ErrNegativeBalance       = errors.New("balance must not be negative")
)

// Directory is the remote user directory the store writes through to
type Directory interface {
	CreateUser(ctx context.Context, user *models.User) (string, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	FindUserByWallet(ctx context.Context, address string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch directory.Patch) (bool, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
	SubscribeUsers(callback func([]models.User)) func()
}

// Store is the local cache of platform users. Every mutation updates the
// cache first, then writes through to the directory in the same call. A
// failed remote write is logged and kept locally until the next reload or
// subscription push replaces the cache.
type Store struct {
	dir    Directory
	bus    *events.Bus
	logger zerolog.Logger

	// connectMu serialises AddUser so concurrent connects of one wallet
	// cannot both create a user
	connectMu sync.Mutex

	mu        sync.RWMutex
	users     []models.User
	currentID string
	loading   bool

	now func() time.Time
}

func NewStore(dir Directory, bus *events.Bus, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		bus:    bus,
		logger: logger.With().Str("component", "users").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddUser returns the user owning in.WalletAddress, creating it when the
// wallet connects for the first time. An existing user only has LastActive
// refreshed. New users always start at InitialBalance.
func (s *Store) AddUser(ctx context.Context, in models.User) (models.User, error) {
	if strings.TrimSpace(in.WalletAddress) == "" {
		return models.User{}, ErrWalletAddressRequired
	}

	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	log := s.logger.With().Str("wallet", in.WalletAddress).Logger()

	if existing, ok := s.GetUserByWallet(in.WalletAddress); ok {
		log.Debug().Str("user_id", existing.ID).Msg("Wallet already known locally")
		return s.touch(ctx, existing.ID)
	}

	remote, err := s.dir.FindUserByWallet(ctx, in.WalletAddress)
	if err != nil {
		log.Warn().Err(err).Msg("Remote lookup failed, continuing with local state")
	}
	if remote != nil {
		log.Debug().Str("user_id", remote.ID).Msg("Wallet already known remotely")
		s.upsert(*remote)
		return s.touch(ctx, remote.ID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to generate user id: %w", err)
	}

	now := s.now()
	user := models.User{
		ID:               id.String(),
		WalletAddress:    in.WalletAddress,
		WalletType:       in.WalletType,
		WalletName:       in.WalletName,
		ConnectionMethod: in.ConnectionMethod,
		Balance:          models.InitialBalance,
		TotalDeposited:   decimal.Zero,
		TotalWithdrawn:   decimal.Zero,
		ProfitLoss:       decimal.Zero,
		Status:           models.UserStatusActive,
		KYCStatus:        models.KYCPending,
		RiskLevel:        models.RiskLow,
		JoinDate:         now,
		LastActive:       now,
	}

	s.mu.Lock()
	s.users = append(s.users, user)
	s.currentID = user.ID
	s.mu.Unlock()
	s.updateGauge()

	remoteUser := user
	if _, err := s.dir.CreateUser(ctx, &remoteUser); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Remote create failed, user kept locally")
	}

	log.Info().Str("user_id", user.ID).Str("wallet_type", user.WalletType).Msg("Added user")
	s.publish(events.ChangeAdded, &user)
	return user, nil
}

// touch refreshes LastActive of id and makes it the current user
func (s *Store) touch(ctx context.Context, id string) (models.User, error) {
	user, err := s.mutate(ctx, id, func(*models.User) (directory.Patch, error) {
		return directory.Patch{}, nil
	})
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()
	return user, nil
}

// UpdateUser applies patch to the user with id
func (s *Store) UpdateUser(ctx context.Context, id string, patch Patch) (models.User, error) {
	if patch.Balance != nil && patch.Balance.IsNegative() {
		return models.User{}, ErrNegativeBalance
	}
	return s.mutate(ctx, id, func(u *models.User) (directory.Patch, error) {
		return patch.apply(u), nil
	})
}

// UpdateUserBalance sets the balance of id. A positive change is added to
// TotalDeposited and a negative change to TotalWithdrawn.
func (s *Store) UpdateUserBalance(ctx context.Context, id string, newBalance decimal.Decimal) (models.User, error) {
	if newBalance.IsNegative() {
		return models.User{}, ErrNegativeBalance
	}

	return s.mutate(ctx, id, func(u *models.User) (directory.Patch, error) {
		delta := newBalance.Sub(u.Balance)
		deposited := u.TotalDeposited
		withdrawn := u.TotalWithdrawn
		if delta.IsPositive() {
			deposited = deposited.Add(delta)
		} else if delta.IsNegative() {
			withdrawn = withdrawn.Add(delta.Abs())
		}

		return Patch{
			Balance:        &newBalance,
			TotalDeposited: &deposited,
			TotalWithdrawn: &withdrawn,
		}.apply(u), nil
	})
}

// ToggleUserStatus flips an active user to suspended and any other status to active
func (s *Store) ToggleUserStatus(ctx context.Context, id string) (models.User, error) {
	return s.mutate(ctx, id, func(u *models.User) (directory.Patch, error) {
		status := models.UserStatusActive
		if u.Status == models.UserStatusActive {
			status = models.UserStatusSuspended
		}
		return Patch{Status: &status}.apply(u), nil
	})
}

// ToggleVipStatus flips the VIP flag of id
func (s *Store) ToggleVipStatus(ctx context.Context, id string) (models.User, error) {
	return s.mutate(ctx, id, func(u *models.User) (directory.Patch, error) {
		vip := !u.IsVip
		return Patch{IsVip: &vip}.apply(u), nil
	})
}

// SetKYCStatus records the verification outcome of id
func (s *Store) SetKYCStatus(ctx context.Context, id string, status models.KYCStatus) (models.User, error) {
	return s.mutate(ctx, id, func(u *models.User) (directory.Patch, error) {
		return Patch{KYCStatus: &status}.apply(u), nil
	})
}

// SyncTradingStats stores the configuration counters of the user owning wallet
func (s *Store) SyncTradingStats(ctx context.Context, wallet string, configs, active int) (models.User, error) {
	user, ok := s.GetUserByWallet(wallet)
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	if user.AutoSnipeConfigs == configs && user.ActiveSnipes == active {
		return user, nil
	}

	return s.mutate(ctx, user.ID, func(u *models.User) (directory.Patch, error) {
		u.AutoSnipeConfigs = configs
		u.ActiveSnipes = active
		return directory.Patch{"auto_snipe_configs": configs, "active_snipes": active}, nil
	})
}

// DeleteUser removes id. Configurations owned by the wallet are left alone.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	removed := s.users[idx]
	s.users = append(s.users[:idx:idx], s.users[idx+1:]...)
	if s.currentID == id {
		s.currentID = ""
	}
	s.mu.Unlock()
	s.updateGauge()

	ok, err := s.dir.DeleteUser(ctx, id)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("user_id", id).Msg("Remote delete failed, user removed locally")
	case !ok:
		s.logger.Warn().Str("user_id", id).Msg("User missing from remote directory")
	}

	s.logger.Info().Str("user_id", id).Str("wallet", removed.WalletAddress).Msg("Deleted user")
	s.publish(events.ChangeDeleted, &removed)
	return nil
}

// mutate changes the cached user with id through fn, stamps LastActive, then
// writes the returned columns to the directory
func (s *Store) mutate(ctx context.Context, id string, fn func(*models.User) (directory.Patch, error)) (models.User, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.User{}, ErrUserNotFound
	}

	user := s.users[idx]
	patch, err := fn(&user)
	if err != nil {
		s.mu.Unlock()
		return models.User{}, err
	}
	user.LastActive = s.now()
	s.users[idx] = user
	s.mu.Unlock()

	ok, err := s.dir.UpdateUser(ctx, id, patch)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("user_id", id).Msg("Remote update failed, keeping local change")
	case !ok:
		s.logger.Warn().Str("user_id", id).Msg("User missing from remote directory")
	}

	s.publish(events.ChangeUpdated, &user)
	return user, nil
}

// upsert inserts or replaces a user in the cache by id
func (s *Store) upsert(user models.User) {
	s.mu.Lock()
	if idx := s.indexOf(user.ID); idx >= 0 {
		s.users[idx] = user
	} else {
		s.users = append(s.users, user)
	}
	s.mu.Unlock()
	s.updateGauge()
}

// indexOf must be called with mu held
func (s *Store) indexOf(id string) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}

// LoadUsers replaces the cache with the directory contents. On failure the
// cache is kept as is.
func (s *Store) LoadUsers(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	users, err := s.dir.ListUsers(ctx)

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load users from directory")
		return err
	}

	s.replace(users)
	s.logger.Info().Int("count", len(users)).Msg("Loaded users from directory")
	return nil
}

// SubscribeToRealtimeUpdates replaces the cache on every directory push
func (s *Store) SubscribeToRealtimeUpdates() func() {
	return s.dir.SubscribeUsers(func(users []models.User) {
		s.logger.Debug().Int("count", len(users)).Msg("Received user snapshot")
		s.replace(users)
	})
}

func (s *Store) replace(users []models.User) {
	s.mu.Lock()
	s.users = append([]models.User(nil), users...)
	s.mu.Unlock()
	s.updateGauge()

	s.bus.Publish(events.TopicUsersChanged, events.UsersChanged{Type: events.ChangeLoaded, Count: len(users)})
}

// Loading reports whether a bulk load is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// GetUser returns the cached user with id
func (s *Store) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.users[idx], true
	}
	return models.User{}, false
}

// GetUserByWallet returns the cached user owning address
func (s *Store) GetUserByWallet(address string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.WalletAddress == address {
			return u, true
		}
	}
	return models.User{}, false
}

// GetAllUsers returns a copy of the cache
func (s *Store) GetAllUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.users...)
}

// CurrentUser returns the user of the wallet connected on this device
func (s *Store) CurrentUser() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentID == "" {
		return models.User{}, false
	}
	if idx := s.indexOf(s.currentID); idx >= 0 {
		return s.users[idx], true
	}
	return models.User{}, false
}

// SetCurrentUser selects the current user; an empty id clears it
func (s *Store) SetCurrentUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = id
}

// Stats aggregates the cached users and the given configurations
func (s *Store) Stats(configs []models.AutoSnipeConfig) models.AdminStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.AdminStats{
		TotalUsers:     len(s.users),
		TotalBalance:   decimal.Zero,
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalConfigs:   len(configs),
	}

	for _, u := range s.users {
		switch u.Status {
		case models.UserStatusActive:
			stats.ActiveUsers++
		case models.UserStatusSuspended:
			stats.SuspendedUsers++
		case models.UserStatusBanned:
			stats.BannedUsers++
		}
		if u.IsVip {
			stats.VipUsers++
		}
		stats.TotalBalance = stats.TotalBalance.Add(u.Balance)
		stats.TotalDeposited = stats.TotalDeposited.Add(u.TotalDeposited)
		stats.TotalWithdrawn = stats.TotalWithdrawn.Add(u.TotalWithdrawn)
		stats.TotalTrades += u.TotalTrades
	}

	for _, c := range configs {
		if c.IsActive {
			stats.ActiveSnipes++
		}
	}

	return stats
}

// Search filters users by a case-insensitive substring of wallet address,
// type or name, and by status. The status filter also accepts "vip" and
// "verified"; "" and "all" disable it. Results are newest first.
func (s *Store) Search(query, status string) []models.User {
	query = strings.ToLower(strings.TrimSpace(query))

	var out []models.User
	for _, u := range s.GetAllUsers() {
		if query != "" &&
			!strings.Contains(strings.ToLower(u.WalletAddress), query) &&
			!strings.Contains(strings.ToLower(u.WalletType), query) &&
			!strings.Contains(strings.ToLower(u.WalletName), query) {
			continue
		}

		switch status {
		case "", "all":
		case "vip":
			if !u.IsVip {
				continue
			}
		case "verified":
			if u.KYCStatus != models.KYCVerified {
				continue
			}
		default:
			if string(u.Status) != status {
				continue
			}
		}

		out = append(out, u)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinDate.After(out[j].JoinDate)
	})
	return out
}

func (s *Store) publish(change string, user *models.User) {
	s.bus.Publish(events.TopicUsersChanged, events.UsersChanged{Type: change, User: user, Count: s.count()})
}

func (s *Store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) updateGauge() {
	metrics.CachedUsers.Set(float64(s.count()))
}
