// Package simulated provides deterministic in-process data sources: a demo
// portfolio, synthetic OHLCV history, and static asset metadata. It backs the
// server when no live exchange connector is configured, and doubles as the
// seam tests plug into.
package simulated

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/history"
)

// referencePrices seed the synthetic series at plausible levels.
var referencePrices = map[string]float64{
	"BTC":  64000,
	"ETH":  3100,
	"SOL":  145,
	"XRP":  0.52,
	"ADA":  0.38,
	"DOGE": 0.12,
	"USDT": 1.0,
	"USDC": 1.0,
	"DAI":  1.0,
}

// tiers assigns liquidity tiers to the simulated universe.
var tiers = map[string]domain.LiquidityTier{
	"BTC":  domain.TierInstitutional,
	"ETH":  domain.TierInstitutional,
	"USDT": domain.TierInstitutional,
	"USDC": domain.TierHigh,
	"SOL":  domain.TierHigh,
	"XRP":  domain.TierMedium,
	"ADA":  domain.TierMedium,
	"DOGE": domain.TierLow,
}

// Provider implements the three data source interfaces with deterministic
// synthetic data. The same symbol always produces the same series.
type Provider struct {
	now func() time.Time
	log zerolog.Logger
}

// New creates a simulated provider.
func New(log zerolog.Logger) *Provider {
	return &Provider{
		now: time.Now,
		log: log.With().Str("component", "simulated").Logger(),
	}
}

// SetClock overrides time.Now for tests.
func (p *Provider) SetClock(now func() time.Time) { p.now = now }

// GetConsolidatedPortfolio returns the demo portfolio. The userID only
// seeds position sizing so different users see different portfolios.
func (p *Provider) GetConsolidatedPortfolio(ctx context.Context, userID string) (domain.Portfolio, error) {
	rng := rand.New(rand.NewSource(int64(seed(userID))))

	symbols := []string{"BTC", "ETH", "SOL", "ADA", "USDC"}
	portfolio := domain.Portfolio{Source: domain.SourceSimulated}
	for _, s := range symbols {
		price := referencePrices[s]
		value := 2000 + rng.Float64()*18000
		portfolio.Positions = append(portfolio.Positions, domain.Position{
			Symbol:       s,
			Exchange:     "simulated",
			Quantity:     value / price,
			ValueUSD:     value,
			CurrentPrice: price,
		})
		portfolio.TotalValueUSD += value
	}
	for i := range portfolio.Positions {
		portfolio.Positions[i].Percentage = portfolio.Positions[i].ValueUSD / portfolio.TotalValueUSD * 100
	}
	portfolio.UserID = userID
	portfolio.LastUpdated = p.now().UTC()
	return portfolio, nil
}

// GetHistoricalOHLCV generates a deterministic geometric random walk ending
// near the symbol's reference price.
func (p *Provider) GetHistoricalOHLCV(ctx context.Context, symbol string, timeframe string, limit int) ([]domain.Candle, error) {
	base := history.BaseAsset(symbol)
	endPrice, ok := referencePrices[base]
	if !ok {
		endPrice = 10
	}

	annualVol := 0.60
	drift := 0.10
	if domain.IsStablecoin(base) {
		annualVol, drift = 0.005, 0
	}
	dailyVol := annualVol / math.Sqrt(365)

	rng := rand.New(rand.NewSource(int64(seed(base))))
	// Walk forward from 1.0, then rescale so the last close lands on the
	// reference price.
	walk := make([]float64, limit)
	level := 1.0
	for i := range walk {
		level *= math.Exp(drift/365 - 0.5*dailyVol*dailyVol + dailyVol*rng.NormFloat64())
		walk[i] = level
	}
	scale := endPrice / walk[limit-1]

	end := p.now().UTC().Truncate(24 * time.Hour)
	candles := make([]domain.Candle, limit)
	for i := range candles {
		closePrice := walk[i] * scale
		openPrice := closePrice
		if i > 0 {
			openPrice = walk[i-1] * scale
		}
		candles[i] = domain.Candle{
			Timestamp: end.Add(-time.Duration(limit-1-i) * 24 * time.Hour),
			Open:      openPrice,
			High:      math.Max(openPrice, closePrice) * 1.01,
			Low:       math.Min(openPrice, closePrice) * 0.99,
			Close:     closePrice,
			Volume:    1e6 * (0.5 + rng.Float64()),
		}
	}
	return candles, nil
}

// GetAssetsForSymbols returns static metadata for the simulated universe.
// Unknown symbols are omitted, matching the behavior of a live metadata API.
func (p *Provider) GetAssetsForSymbols(ctx context.Context, symbols []string) (map[string]domain.AssetInfo, error) {
	out := make(map[string]domain.AssetInfo, len(symbols))
	for _, s := range symbols {
		base := history.BaseAsset(s)
		tier, ok := tiers[base]
		if !ok {
			continue
		}
		price := referencePrices[base]
		out[s] = domain.AssetInfo{
			Symbol:       s,
			Tier:         tier,
			PriceUSD:     price,
			Volume24hUSD: 5e8,
		}
	}
	return out, nil
}

func seed(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
