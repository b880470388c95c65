package simulated

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaragia/nautilus/internal/domain"
)

func TestGetConsolidatedPortfolio_Deterministic(t *testing.T) {
	p := New(zerolog.Nop())

	a, err := p.GetConsolidatedPortfolio(context.Background(), "alice")
	require.NoError(t, err)
	b, err := p.GetConsolidatedPortfolio(context.Background(), "alice")
	require.NoError(t, err)

	require.Equal(t, len(a.Positions), len(b.Positions))
	for i := range a.Positions {
		assert.Equal(t, a.Positions[i].Symbol, b.Positions[i].Symbol)
		assert.Equal(t, a.Positions[i].ValueUSD, b.Positions[i].ValueUSD)
	}

	c, err := p.GetConsolidatedPortfolio(context.Background(), "bob")
	require.NoError(t, err)
	assert.NotEqual(t, a.TotalValueUSD, c.TotalValueUSD, "different users get different books")
}

func TestGetConsolidatedPortfolio_IsConsistent(t *testing.T) {
	p := New(zerolog.Nop())
	portfolio, err := p.GetConsolidatedPortfolio(context.Background(), "u")
	require.NoError(t, err)

	sum := 0.0
	for _, pos := range portfolio.Positions {
		sum += pos.ValueUSD
		assert.Greater(t, pos.Quantity, 0.0)
	}
	assert.InDelta(t, portfolio.TotalValueUSD, sum, 1e-6)
	assert.Equal(t, domain.SourceSimulated, portfolio.Source)
}

func TestGetHistoricalOHLCV(t *testing.T) {
	p := New(zerolog.Nop())

	candles, err := p.GetHistoricalOHLCV(context.Background(), "BTC/USDT", "1d", 90)
	require.NoError(t, err)
	require.Len(t, candles, 90)

	// Deterministic per symbol.
	again, _ := p.GetHistoricalOHLCV(context.Background(), "BTC/USDT", "1d", 90)
	assert.Equal(t, candles[10].Close, again[10].Close)

	// Last close anchored to the reference price.
	assert.InDelta(t, 64000, candles[89].Close, 1)

	// Monotonic timestamps, sane OHLC.
	for i := 1; i < len(candles); i++ {
		assert.True(t, candles[i].Timestamp.After(candles[i-1].Timestamp))
		assert.GreaterOrEqual(t, candles[i].High, candles[i].Close)
		assert.LessOrEqual(t, candles[i].Low, candles[i].Close)
	}
}

func TestGetHistoricalOHLCV_StablecoinIsFlat(t *testing.T) {
	p := New(zerolog.Nop())
	candles, err := p.GetHistoricalOHLCV(context.Background(), "USDC/USDT", "1d", 60)
	require.NoError(t, err)

	for _, c := range candles {
		assert.InDelta(t, 1.0, c.Close, 0.02)
	}
}

func TestGetAssetsForSymbols(t *testing.T) {
	p := New(zerolog.Nop())
	infos, err := p.GetAssetsForSymbols(context.Background(), []string{"BTC", "DOGE", "NOPE"})
	require.NoError(t, err)

	assert.Equal(t, domain.TierInstitutional, infos["BTC"].Tier)
	assert.Equal(t, domain.TierLow, infos["DOGE"].Tier)
	assert.NotContains(t, infos, "NOPE", "unknown symbols are omitted")
}
