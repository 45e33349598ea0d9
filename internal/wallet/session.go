package wallet

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnt/mevx/internal/localstate"
	"github.com/wnt/mevx/internal/models"
)

// SessionStore is the persisted wallet connection state of this device
type SessionStore struct {
	local  *localstate.Store
	logger zerolog.Logger

	// persistMu is held across each change and its save so the stored copy
	// always follows the latest session
	persistMu sync.Mutex

	mu      sync.RWMutex
	session models.WalletSession
}

func NewSessionStore(local *localstate.Store, logger zerolog.Logger) *SessionStore {
	return &SessionStore{
		local:  local,
		logger: logger.With().Str("component", "wallet_session").Logger(),
	}
}

// Load restores the session saved by a previous run
func (s *SessionStore) Load(ctx context.Context) error {
	var session models.WalletSession
	if _, err := s.local.Load(ctx, localstate.KeyWalletSession, &session); err != nil {
		return err
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return nil
}

// Connect marks the wallet as connected with a zero platform balance
func (s *SessionStore) Connect(ctx context.Context, walletType, walletName, address string) models.WalletSession {
	return s.update(ctx, func(session *models.WalletSession) {
		*session = models.WalletSession{
			IsConnected:   true,
			WalletType:    walletType,
			WalletName:    walletName,
			WalletAddress: address,
			Balance:       decimal.Zero,
		}
	})
}

// SetBalance updates the displayed platform balance
func (s *SessionStore) SetBalance(ctx context.Context, balance decimal.Decimal) models.WalletSession {
	return s.update(ctx, func(session *models.WalletSession) {
		session.Balance = balance
	})
}

// Disconnect clears the session and its persisted copy
func (s *SessionStore) Disconnect(ctx context.Context) models.WalletSession {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.session = models.WalletSession{}
	s.mu.Unlock()

	if err := s.local.Remove(ctx, localstate.KeyWalletSession); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to remove persisted wallet session")
	}
	return models.WalletSession{}
}

// Current returns the session
func (s *SessionStore) Current() models.WalletSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *SessionStore) update(ctx context.Context, change func(*models.WalletSession)) models.WalletSession {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	change(&s.session)
	session := s.session
	s.mu.Unlock()

	if err := s.local.Save(ctx, localstate.KeyWalletSession, session); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist wallet session")
	}
	return session
}
