package price

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/events"
	"github.com/wnt/mevx/internal/logger"
	"github.com/wnt/mevx/internal/metrics"
	"github.com/wnt/mevx/internal/models"
	"github.com/wnt/mevx/internal/utils"
)

// DefaultSolPrice is served until a live price arrives and whenever every source fails
const DefaultSolPrice = 228.45

// FallbackMessage is the error flag set when the default price is served
const FallbackMessage = "Failed to fetch live price, using default"

// DefaultRefreshInterval is both the update period and the fetch debounce window
const DefaultRefreshInterval = 30 * time.Second

var ErrAllSourcesFailed = errors.New("all price sources failed")

// Oracle caches the SOL/USD price
type Oracle struct {
	pool     *pool
	http     *utils.HTTPClient
	bus      *events.Bus
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	sample  models.PriceSample
	loading bool
	errMsg  string
}

// Option configures an Oracle
type Option func(*Oracle)

// WithInterval sets the refresh interval and debounce window
func WithInterval(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithHTTPClient replaces the HTTP client used to query sources
func WithHTTPClient(c *utils.HTTPClient) Option {
	return func(o *Oracle) {
		o.http = c
	}
}

// NewOracle creates an oracle serving DefaultSolPrice until the first fetch.
// bus may be nil.
func NewOracle(sources []Source, bus *events.Bus, baseLogger zerolog.Logger, opts ...Option) *Oracle {
	o := &Oracle{
		pool:     newPool(sources, baseLogger),
		http:     utils.NewHTTPClient(
			utils.WithTimeout(5*time.Second),
			utils.WithRetries(0, 0),
			utils.WithDefaultHeaders(map[string]string{"Accept": "application/json"}),
		),
		bus:      bus,
		logger:   logger.WithComponent(baseLogger, "price"),
		interval: DefaultRefreshInterval,
		now:      time.Now,
		sample:   models.PriceSample{SolPrice: DefaultSolPrice},
	}
	for _, opt := range opts {
		opt(o)
	}
	metrics.SolPrice.Set(DefaultSolPrice)
	return o
}

// FetchSolPrice refreshes the cached price. A live price fetched within the
// refresh interval is kept. Sources are tried in order and the first positive
// price wins; when all fail the default price is cached with an error flag.
func (o *Oracle) FetchSolPrice(ctx context.Context) {
	o.mu.Lock()
	fresh := o.now().Sub(o.sample.LastUpdated) < o.interval && o.sample.SolPrice != DefaultSolPrice
	if fresh || o.loading {
		o.mu.Unlock()
		return
	}
	o.loading = true
	o.errMsg = ""
	o.mu.Unlock()

	price, source, err := o.fetch(ctx)

	o.mu.Lock()
	o.loading = false
	if err != nil {
		o.sample = models.PriceSample{SolPrice: DefaultSolPrice, LastUpdated: o.now()}
		o.errMsg = FallbackMessage
	} else {
		o.sample = models.PriceSample{SolPrice: price, LastUpdated: o.now()}
	}
	sample := o.sample
	o.mu.Unlock()

	metrics.SolPrice.Set(sample.SolPrice)
	if err != nil {
		o.logger.Warn().Err(err).Float64("price", sample.SolPrice).Msg("All price sources failed, using default price")
	} else {
		o.logger.Debug().Str("price_source", source).Float64("price", price).Msg("Updated SOL price")
	}

	if o.bus != nil {
		o.bus.Publish(events.TopicPriceUpdated, sample)
	}
}

func (o *Oracle) fetch(ctx context.Context) (float64, string, error) {
	candidates := o.pool.candidates()
	if len(candidates) == 0 {
		return 0, "", fmt.Errorf("%w: no source available", ErrAllSourcesFailed)
	}

	var errs []error
	for _, src := range candidates {
		log := logger.WithSource(o.logger, src.Name)

		price, err := o.fetchSource(ctx, src)
		if err != nil {
			log.Debug().Err(err).Msg("Price source failed")
			metrics.RecordPriceFetch(src.Name, "failed")
			o.pool.markFailure(src.Name)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		metrics.RecordPriceFetch(src.Name, "success")
		o.pool.markHealthy(src.Name)
		return price, src.Name, nil
	}

	return 0, "", fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
}

func (o *Oracle) fetchSource(ctx context.Context, src Source) (float64, error) {
	resp, err := o.http.Do(ctx, utils.Request{URL: src.URL, QueryParams: src.Query})
	if err != nil {
		return 0, err
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	price, err := src.Parse(resp)
	if err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("unusable price %v", price)
	}
	return price, nil
}

// StartPriceUpdates fetches immediately and then every interval until the
// returned function is called or ctx ends. The function may be called more
// than once and returns after the updater has stopped.
func (o *Oracle) StartPriceUpdates(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		o.FetchSolPrice(ctx)

		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.FetchSolPrice(ctx)
			}
		}
	}()

	o.logger.Info().Dur("interval", o.interval).Int("sources", len(o.pool.entries)).Msg("Started price updates")

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			o.logger.Info().Msg("Stopped price updates")
		})
	}
}

// Sample returns the cached price
func (o *Oracle) Sample() models.PriceSample {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sample
}

// IsLoading reports whether a fetch is in flight
func (o *Oracle) IsLoading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loading
}

// Error returns the error flag of the last fetch, empty when it succeeded
func (o *Oracle) Error() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.errMsg
}

// HealthySources returns how many sources are not cooling down
func (o *Oracle) HealthySources() int {
	return o.pool.healthyCount()
}
