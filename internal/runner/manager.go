package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// PriceUpdater is the price oracle's background refresh
type PriceUpdater interface {
	StartPriceUpdates(ctx context.Context) func()
}

// UserSync keeps the user cache aligned with the directory
type UserSync interface {
	LoadUsers(ctx context.Context) error
	SubscribeToRealtimeUpdates() func()
}

// Manager owns the background tasks of the service: price refresh, the
// directory subscription and the scheduled cache reconciliation
type Manager struct {
	prices   PriceUpdater
	users    UserSync
	schedule string
	logger   zerolog.Logger

	mutex    sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	eg       *errgroup.Group
	cron     *cron.Cron
	releases []func()
	started  bool
	stopped  bool
}

// NewManager creates a manager. schedule is a cron expression such as "@every 5m";
// an empty schedule disables reconciliation.
func NewManager(prices PriceUpdater, users UserSync, schedule string, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)

	return &Manager{
		prices:   prices,
		users:    users,
		schedule: schedule,
		logger:   logger.With().Str("component", "runner").Logger(),
		ctx:      egCtx,
		cancel:   cancel,
		eg:       eg,
		cron:     cron.New(),
	}
}

// Start loads the user cache and starts every background task
func (m *Manager) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.started {
		return fmt.Errorf("runner already started")
	}

	if m.schedule != "" {
		if _, err := m.cron.AddFunc(m.schedule, m.reconcile); err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", m.schedule, err)
		}
	}
	m.started = true

	m.logger.Info().Str("reconcile_schedule", m.schedule).Msg("Starting runner")

	if err := m.users.LoadUsers(m.ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Initial user load failed, serving local cache")
	}

	m.releases = append(m.releases,
		m.prices.StartPriceUpdates(m.ctx),
		m.users.SubscribeToRealtimeUpdates(),
	)

	m.cron.Start()
	m.eg.Go(func() error {
		<-m.ctx.Done()
		<-m.cron.Stop().Done()
		return nil
	})

	m.logger.Info().Msg("Runner started successfully")
	return nil
}

// reconcile replaces the user cache with the directory contents
func (m *Manager) reconcile() {
	start := time.Now()
	if err := m.users.LoadUsers(m.ctx); err != nil {
		metrics.RecordReconciliation("failed")
		m.logger.Warn().Err(err).Msg("Scheduled reconciliation failed")
		return
	}
	metrics.RecordReconciliation("success")
	m.logger.Debug().Dur("duration", time.Since(start)).Msg("Reconciled user cache")
}

// Stop releases every task handle and waits for the tasks to exit. It is
// safe to call more than once.
func (m *Manager) Stop() error {
	m.mutex.Lock()
	if m.stopped {
		m.mutex.Unlock()
		return nil
	}
	m.stopped = true
	releases := m.releases
	m.releases = nil
	m.mutex.Unlock()

	m.logger.Info().Msg("Stopping runner...")

	m.cancel()
	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}

	done := make(chan error, 1)
	go func() {
		done <- m.eg.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			m.logger.Error().Err(err).Msg("Error during runner shutdown")
			return err
		}
	case <-time.After(shutdownTimeout):
		m.logger.Warn().Msg("Runner shutdown timed out")
		return fmt.Errorf("runner shutdown timed out after %s", shutdownTimeout)
	}

	m.logger.Info().Msg("Runner stopped")
	return nil
}
