// Package domain holds the core data model shared by every engine module.
// The domain layer is pure: no infrastructure dependencies, no I/O.
package domain

import (
	"strings"
	"time"
)

// PortfolioSource tags where a portfolio snapshot came from.
type PortfolioSource string

const (
	SourceLive      PortfolioSource = "live"
	SourceSimulated PortfolioSource = "simulated"
	SourceEmpty     PortfolioSource = "empty"
)

// Position is a single holding on a single exchange. Positions are ephemeral:
// they are recomputed per request and never persisted by the engine.
type Position struct {
	Symbol           string  `json:"symbol"`
	Exchange         string  `json:"exchange"`
	Quantity         float64 `json:"quantity"`
	ValueUSD         float64 `json:"value_usd"`
	Percentage       float64 `json:"percentage"`
	AvgEntryPrice    float64 `json:"avg_entry_price"`
	CurrentPrice     float64 `json:"current_price"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
}

// Portfolio is a consolidated multi-exchange snapshot for one user.
// It is passed by value into every engine call and treated as immutable
// within a call.
type Portfolio struct {
	UserID            string             `json:"user_id"`
	TotalValueUSD     float64            `json:"total_value_usd"`
	Positions         []Position         `json:"positions"`
	ExchangeBreakdown map[string]float64 `json:"exchange_breakdown,omitempty"`
	Source            PortfolioSource    `json:"source"`
	LastUpdated       time.Time          `json:"last_updated"`
}

// IsEmpty reports whether the portfolio holds nothing the engine can work with.
func (p Portfolio) IsEmpty() bool {
	return len(p.Positions) == 0 || p.TotalValueUSD <= 0
}

// Symbols returns the unique held symbols in position order.
func (p Portfolio) Symbols() []string {
	seen := make(map[string]bool, len(p.Positions))
	symbols := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		if pos.Symbol == "" || seen[pos.Symbol] {
			continue
		}
		seen[pos.Symbol] = true
		symbols = append(symbols, pos.Symbol)
	}
	return symbols
}

// CurrentWeights returns each symbol's fraction of total portfolio value,
// aggregated across exchanges. Returns an empty map for an empty portfolio.
func (p Portfolio) CurrentWeights() map[string]float64 {
	weights := make(map[string]float64)
	if p.TotalValueUSD <= 0 {
		return weights
	}
	for _, pos := range p.Positions {
		weights[pos.Symbol] += pos.ValueUSD / p.TotalValueUSD
	}
	return weights
}

// LiquidityTier classifies how deep an asset's market is.
type LiquidityTier string

const (
	TierInstitutional LiquidityTier = "institutional"
	TierHigh          LiquidityTier = "high"
	TierMedium        LiquidityTier = "medium"
	TierLow           LiquidityTier = "low"
	TierMicro         LiquidityTier = "micro"
	TierUnknown       LiquidityTier = "unknown"
)

// AssetInfo is metadata from the asset-discovery collaborator. All fields are
// best-effort; absence of metadata never blocks optimization.
type AssetInfo struct {
	Symbol       string        `json:"symbol"`
	Tier         LiquidityTier `json:"tier"`
	Volume24hUSD float64       `json:"volume_24h_usd"`
	PriceUSD     float64       `json:"price_usd"`
	MarketCapUSD float64       `json:"market_cap_usd"`
}

// stablecoins is the set of symbols treated as pegged assets throughout the
// engine (synthetic return parameters, heuristic fallbacks, liquidity floors).
var stablecoins = map[string]bool{
	"USDT": true,
	"USDC": true,
	"DAI":  true,
	"BUSD": true,
	"TUSD": true,
	"USDP": true,
	"GUSD": true,
	"FRAX": true,
}

// IsStablecoin reports whether a bare asset symbol is a known stablecoin.
func IsStablecoin(symbol string) bool {
	return stablecoins[strings.ToUpper(strings.TrimSpace(symbol))]
}
