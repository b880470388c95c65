package rebalancing

import (
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaragia/nautilus/internal/domain"
)

func portfolioOf(positions ...domain.Position) domain.Portfolio {
	p := domain.Portfolio{Positions: positions, Source: domain.SourceLive}
	for _, pos := range positions {
		p.TotalValueUSD += pos.ValueUSD
	}
	return p
}

func TestGenerateTrades_BtcEthEqualWeight(t *testing.T) {
	// $15k BTC + $10k ETH moving to 50/50 should sell $2,500 of BTC and buy
	// $2,500 of ETH.
	portfolio := portfolioOf(
		domain.Position{Symbol: "BTC", Exchange: "binance", ValueUSD: 15000, Quantity: 0.25, CurrentPrice: 60000},
		domain.Position{Symbol: "ETH", Exchange: "binance", ValueUSD: 10000, Quantity: 3.2, CurrentPrice: 3125},
	)

	gen := New(zerolog.Nop())
	trades := gen.GenerateTrades(portfolio, map[string]float64{"BTC": 0.5, "ETH": 0.5})

	require.Len(t, trades, 2)

	bySymbol := make(map[string]Trade)
	for _, tr := range trades {
		bySymbol[tr.Symbol] = tr
	}

	btc := bySymbol["BTC"]
	assert.Equal(t, ActionSell, btc.Action)
	assert.InDelta(t, 2500, btc.NotionalUSD, 0.01)
	assert.InDelta(t, 0.60, btc.CurrentWeight, 1e-9)
	assert.InDelta(t, 0.50, btc.TargetWeight, 1e-9)
	assert.Equal(t, PriorityHigh, btc.Priority, "10pp drift is HIGH priority")

	eth := bySymbol["ETH"]
	assert.Equal(t, ActionBuy, eth.Action)
	assert.InDelta(t, 2500, eth.NotionalUSD, 0.01)
	assert.Equal(t, PriorityHigh, eth.Priority)
}

func TestGenerateTrades_NeverTradesUnheldSymbols(t *testing.T) {
	portfolio := portfolioOf(
		domain.Position{Symbol: "BTC", Exchange: "binance", ValueUSD: 10000},
	)

	gen := New(zerolog.Nop())
	trades := gen.GenerateTrades(portfolio, map[string]float64{"BTC": 0.5, "SOL": 0.5})

	for _, tr := range trades {
		assert.NotEqual(t, "SOL", tr.Symbol, "unheld symbols must never be traded")
	}
}

func TestGenerateTrades_SkipsDustTrades(t *testing.T) {
	// 0.2% drift on a $10k portfolio is $20 of trade value but below the
	// 0.3% floor ($30).
	portfolio := portfolioOf(
		domain.Position{Symbol: "BTC", Exchange: "binance", ValueUSD: 5020},
		domain.Position{Symbol: "ETH", Exchange: "binance", ValueUSD: 4980},
	)

	gen := New(zerolog.Nop())
	trades := gen.GenerateTrades(portfolio, map[string]float64{"BTC": 0.5, "ETH": 0.5})
	assert.Empty(t, trades)
}

func TestGenerateTrades_CapsAtTen(t *testing.T) {
	var positions []domain.Position
	targets := make(map[string]float64)
	for i := 0; i < 15; i++ {
		sym := fmt.Sprintf("COIN%02d", i)
		positions = append(positions, domain.Position{Symbol: sym, Exchange: "test", ValueUSD: 1000})
		// Heavily skewed targets so every position needs a large move.
		if i == 0 {
			targets[sym] = 0.50
		} else {
			targets[sym] = 0.50 / 14
		}
	}
	portfolio := portfolioOf(positions...)

	gen := New(zerolog.Nop())
	trades := gen.GenerateTrades(portfolio, targets)

	assert.LessOrEqual(t, len(trades), 10)
	require.NotEmpty(t, trades)
	// Largest absolute weight change first.
	for i := 1; i < len(trades); i++ {
		assert.GreaterOrEqual(t,
			math.Abs(trades[i-1].WeightChange),
			math.Abs(trades[i].WeightChange))
	}
}

func TestGenerateTrades_QuantityFieldsRequirePrice(t *testing.T) {
	portfolio := portfolioOf(
		domain.Position{Symbol: "BTC", Exchange: "a", ValueUSD: 8000, Quantity: 0.125, CurrentPrice: 64000},
		domain.Position{Symbol: "ETH", Exchange: "a", ValueUSD: 2000}, // no price known
	)

	gen := New(zerolog.Nop())
	trades := gen.GenerateTrades(portfolio, map[string]float64{"BTC": 0.5, "ETH": 0.5})
	require.Len(t, trades, 2)

	for _, tr := range trades {
		switch tr.Symbol {
		case "BTC":
			assert.Greater(t, tr.ReferencePrice, 0.0)
			assert.NotZero(t, tr.QuantityChange)
		case "ETH":
			assert.Zero(t, tr.ReferencePrice)
			assert.Zero(t, tr.QuantityChange)
		}
	}
}

func TestGenerateTrades_AggregatesAcrossExchanges(t *testing.T) {
	portfolio := portfolioOf(
		domain.Position{Symbol: "BTC", Exchange: "binance", ValueUSD: 6000, Quantity: 0.1, CurrentPrice: 60000},
		domain.Position{Symbol: "BTC", Exchange: "kraken", ValueUSD: 6000, Quantity: 0.1, CurrentPrice: 60000},
		domain.Position{Symbol: "ETH", Exchange: "binance", ValueUSD: 3000, Quantity: 1, CurrentPrice: 3000},
	)

	gen := New(zerolog.Nop())
	trades := gen.GenerateTrades(portfolio, map[string]float64{"BTC": 0.5, "ETH": 0.5})
	require.Len(t, trades, 2)

	for _, tr := range trades {
		if tr.Symbol == "BTC" {
			assert.InDelta(t, 12000, tr.CurrentValue, 1e-9, "both exchange rows folded into one")
			assert.Equal(t, ActionSell, tr.Action)
		}
	}
}

func TestGenerateTrades_EmptyInputs(t *testing.T) {
	gen := New(zerolog.Nop())
	assert.Nil(t, gen.GenerateTrades(domain.Portfolio{}, map[string]float64{"BTC": 1}))
	assert.Nil(t, gen.GenerateTrades(portfolioOf(domain.Position{Symbol: "BTC", ValueUSD: 100}), nil))
}
