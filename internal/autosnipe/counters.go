package autosnipe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/events"
	"github.com/wnt/mevx/internal/models"
	"github.com/wnt/mevx/internal/users"
	"github.com/wnt/mevx/internal/utils"
)

// StatsSyncer receives the per-wallet configuration counters
type StatsSyncer interface {
	SyncTradingStats(ctx context.Context, wallet string, configs, active int) (models.User, error)
}

// SyncCounters keeps AutoSnipeConfigs and ActiveSnipes of each user equal to
// the configurations the wallet owns. It returns the unsubscribe function.
func SyncCounters(bus *events.Bus, store *Store, syncer StatsSyncer, logger zerolog.Logger) func() {
	logger = logger.With().Str("component", "autosnipe_counters").Logger()

	// Counting and syncing run as one step so the last write always carries
	// the latest counts
	var mu sync.Mutex

	return bus.Subscribe(events.TopicAutoSnipeConfigChanged, func(e events.Event) {
		change, ok := e.Payload.(events.ConfigChanged)
		if !ok || change.WalletAddress == "" {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		configs := store.GetUserConfigs(change.WalletAddress)
		active := utils.Count(configs, func(c models.AutoSnipeConfig) bool { return c.IsActive })

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := syncer.SyncTradingStats(ctx, change.WalletAddress, len(configs), active)
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			logger.Debug().Str("wallet", change.WalletAddress).Msg("No user for configuration owner")
		case err != nil:
			logger.Warn().Err(err).Str("wallet", change.WalletAddress).Msg("Failed to sync configuration counters")
		}
	})
}
