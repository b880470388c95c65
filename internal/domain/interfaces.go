package domain

import (
	"context"
	"time"
)

// Candle is one OHLCV bar from the historical price collaborator.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PortfolioProvider resolves a user's consolidated multi-exchange portfolio.
// Owned by the exchange-account layer; injected into the engine.
type PortfolioProvider interface {
	GetConsolidatedPortfolio(ctx context.Context, userID string) (Portfolio, error)
}

// HistoricalPriceSource fetches OHLCV history for a trading pair.
// Unknown symbols yield an empty slice, not an error. Retry/backoff policy
// belongs to the implementation, not to the engine.
type HistoricalPriceSource interface {
	GetHistoricalOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// AssetMetadataSource looks up discovery metadata (liquidity tier, volume,
// market cap) for a batch of symbols. Partial and empty maps are valid
// responses.
type AssetMetadataSource interface {
	GetAssetsForSymbols(ctx context.Context, symbols []string) (map[string]AssetInfo, error)
}
