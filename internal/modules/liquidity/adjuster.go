// Package liquidity scales optimizer weights by how tradeable each asset is.
package liquidity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkaragia/nautilus/internal/domain"
)

// DefaultTTL bounds how stale a cached tier classification may get.
const DefaultTTL = 10 * time.Minute

// tierMultipliers maps a liquidity tier to the weight multiplier applied
// before renormalization. Thin markets get haircut hard.
var tierMultipliers = map[domain.LiquidityTier]float64{
	domain.TierInstitutional: 1.10,
	domain.TierHigh:          1.00,
	domain.TierMedium:        0.85,
	domain.TierLow:           0.65,
	domain.TierMicro:         0.35,
	domain.TierUnknown:       0.65,
}

// stablecoinFloor is the minimum multiplier for pegged assets regardless of
// their reported tier.
const stablecoinFloor = 0.85

type tierEntry struct {
	tier      domain.LiquidityTier
	fetchedAt time.Time
}

// Adjuster multiplies raw weights by per-symbol liquidity multipliers and
// renormalizes. Tier lookups go through a short-TTL cache over the asset
// metadata collaborator; a collaborator failure degrades every uncached
// symbol to unknown rather than failing the caller.
type Adjuster struct {
	meta domain.AssetMetadataSource
	ttl  time.Duration
	now  func() time.Time
	log  zerolog.Logger

	mu    sync.RWMutex
	tiers map[string]tierEntry
}

// Option configures an Adjuster.
type Option func(*Adjuster)

// WithTTL overrides the tier cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(a *Adjuster) { a.ttl = ttl }
}

// WithClock overrides the adjuster clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(a *Adjuster) { a.now = now }
}

// New creates a liquidity adjuster over the given metadata source.
func New(meta domain.AssetMetadataSource, log zerolog.Logger, opts ...Option) *Adjuster {
	a := &Adjuster{
		meta:  meta,
		ttl:   DefaultTTL,
		now:   time.Now,
		log:   log.With().Str("component", "liquidity").Logger(),
		tiers: make(map[string]tierEntry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Adjust multiplies rawWeights by per-symbol liquidity multipliers and
// renormalizes the result to sum to 1. The input map is not modified.
func (a *Adjuster) Adjust(ctx context.Context, symbols []string, rawWeights map[string]float64) map[string]float64 {
	tiers := a.resolveTiers(ctx, symbols)

	adjusted := make(map[string]float64, len(rawWeights))
	sum := 0.0
	for symbol, w := range rawWeights {
		m := a.multiplier(symbol, tiers[symbol])
		adjusted[symbol] = w * m
		sum += adjusted[symbol]
	}

	if sum <= 0 {
		// Degenerate input; hand back a copy untouched.
		for symbol, w := range rawWeights {
			adjusted[symbol] = w
		}
		return adjusted
	}

	for symbol := range adjusted {
		adjusted[symbol] /= sum
	}
	return adjusted
}

// Multiplier exposes the effective multiplier for a known tier. Used by the
// assessment layer for commentary.
func Multiplier(tier domain.LiquidityTier) float64 {
	if m, ok := tierMultipliers[tier]; ok {
		return m
	}
	return tierMultipliers[domain.TierUnknown]
}

func (a *Adjuster) multiplier(symbol string, tier domain.LiquidityTier) float64 {
	m := Multiplier(tier)
	if domain.IsStablecoin(symbol) && m < stablecoinFloor {
		m = stablecoinFloor
	}
	return m
}

// resolveTiers returns the tier per symbol, fetching uncached symbols from
// the metadata collaborator in one batch.
func (a *Adjuster) resolveTiers(ctx context.Context, symbols []string) map[string]domain.LiquidityTier {
	resolved := make(map[string]domain.LiquidityTier, len(symbols))
	var missing []string

	a.mu.RLock()
	for _, symbol := range symbols {
		if entry, ok := a.tiers[symbol]; ok && a.now().Sub(entry.fetchedAt) < a.ttl {
			resolved[symbol] = entry.tier
		} else {
			missing = append(missing, symbol)
		}
	}
	a.mu.RUnlock()

	if len(missing) == 0 {
		return resolved
	}

	infos, err := a.meta.GetAssetsForSymbols(ctx, missing)
	if err != nil {
		// A transient outage must not pin symbols to the unknown haircut
		// for a full TTL, so failure-derived tiers are never cached.
		a.log.Warn().Err(err).Msg("Asset metadata lookup failed, treating symbols as unknown tier")
		for _, symbol := range missing {
			resolved[symbol] = domain.TierUnknown
		}
		return resolved
	}

	a.mu.Lock()
	for _, symbol := range missing {
		tier := domain.TierUnknown
		if info, ok := infos[symbol]; ok && info.Tier != "" {
			tier = info.Tier
		}
		resolved[symbol] = tier
		a.tiers[symbol] = tierEntry{tier: tier, fetchedAt: a.now()}
	}
	a.mu.Unlock()

	return resolved
}
