package price

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/metrics"
	"golang.org/x/time/rate"
)

// pool tracks per-source rate limits and failure cooldowns
type pool struct {
	entries []*entry
	logger  zerolog.Logger
	now     func() time.Time
}

type entry struct {
	source  Source
	limiter *rate.Limiter

	mu            sync.Mutex
	cooldownUntil time.Time
}

func newPool(sources []Source, logger zerolog.Logger) *pool {
	entries := make([]*entry, len(sources))
	for i, src := range sources {
		limit := rate.Inf
		burst := src.Burst
		if src.RatePerSecond > 0 {
			limit = rate.Limit(src.RatePerSecond)
			if burst < 1 {
				burst = 1
			}
		}
		entries[i] = &entry{
			source:  src,
			limiter: rate.NewLimiter(limit, burst),
		}
		metrics.SetPriceSourceHealth(src.Name, true)
	}

	return &pool{
		entries: entries,
		logger:  logger.With().Str("component", "price_pool").Logger(),
		now:     time.Now,
	}
}

// candidates returns the sources that may be asked now, in priority order.
// Cooldowns are ignored when every source is cooling, so a fetch after a
// total failure always retries. Returning a source consumes one token of
// its rate limiter.
func (p *pool) candidates() []Source {
	now := p.now()
	out := make([]Source, 0, len(p.entries))

	cooling := make([]bool, len(p.entries))
	allCooling := true
	for i, e := range p.entries {
		e.mu.Lock()
		cooling[i] = now.Before(e.cooldownUntil)
		e.mu.Unlock()
		allCooling = allCooling && cooling[i]
	}

	for i, e := range p.entries {
		if cooling[i] && !allCooling {
			p.logger.Debug().Str("price_source", e.source.Name).Msg("Source cooling down, skipping")
			continue
		}
		if !e.limiter.AllowN(now, 1) {
			p.logger.Debug().Str("price_source", e.source.Name).Msg("Source rate limited, skipping")
			metrics.RecordPriceFetch(e.source.Name, "rate_limited")
			continue
		}
		out = append(out, e.source)
	}
	return out
}

func (p *pool) markFailure(name string) {
	for _, e := range p.entries {
		if e.source.Name != name {
			continue
		}
		cooldown := e.source.Cooldown
		if cooldown <= 0 {
			cooldown = defaultCooldown
		}

		e.mu.Lock()
		e.cooldownUntil = p.now().Add(cooldown)
		e.mu.Unlock()

		metrics.SetPriceSourceHealth(name, false)
		p.logger.Warn().
			Str("price_source", name).
			Dur("cooldown", cooldown).
			Msg("Set source cooldown")
		return
	}
}

func (p *pool) markHealthy(name string) {
	for _, e := range p.entries {
		if e.source.Name != name {
			continue
		}
		e.mu.Lock()
		e.cooldownUntil = time.Time{}
		e.mu.Unlock()

		metrics.SetPriceSourceHealth(name, true)
		return
	}
}

// healthyCount returns the number of sources not cooling down
func (p *pool) healthyCount() int {
	now := p.now()
	count := 0
	for _, e := range p.entries {
		e.mu.Lock()
		if !now.Before(e.cooldownUntil) {
			count++
		}
		e.mu.Unlock()
	}
	return count
}
