// Package rebalancing converts target weights into an actionable trade list.
package rebalancing

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dkaragia/nautilus/internal/domain"
)

// Trade actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// Trade priorities.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
)

const (
	// minTradeFraction is the per-trade floor as a fraction of portfolio value.
	minTradeFraction = 0.003
	// minTradeUSD is the absolute per-trade floor.
	minTradeUSD = 1.0
	// highPriorityThreshold marks weight changes above 5pp as HIGH priority.
	highPriorityThreshold = 0.05
	// maxTrades caps the emitted trade list.
	maxTrades = 10
)

// Trade is one rebalancing instruction. Generated fresh per call; order
// placement is someone else's job.
type Trade struct {
	Symbol         string  `json:"symbol"`
	Action         string  `json:"action"`
	NotionalUSD    float64 `json:"notional_usd"`
	CurrentValue   float64 `json:"current_value"`
	TargetValue    float64 `json:"target_value"`
	CurrentWeight  float64 `json:"current_weight"`
	TargetWeight   float64 `json:"target_weight"`
	WeightChange   float64 `json:"weight_change"`
	Priority       string  `json:"priority"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	TargetQuantity float64 `json:"target_quantity,omitempty"`
	QuantityChange float64 `json:"quantity_change,omitempty"`
}

// holding is one symbol's exposure aggregated across exchanges.
type holding struct {
	value    float64
	quantity float64
	refPrice float64
}

// Generator diffs current against target weights into an ordered trade list.
type Generator struct {
	log zerolog.Logger
}

// New creates a trade generator.
func New(log zerolog.Logger) *Generator {
	return &Generator{log: log.With().Str("component", "rebalancing").Logger()}
}

// GenerateTrades produces at most 10 trades moving the portfolio toward
// targetWeights. Target weights for unheld symbols are discarded: the
// generator never proposes opening a new position. The retained targets are
// renormalized to sum to 1 before diffing.
func (g *Generator) GenerateTrades(portfolio domain.Portfolio, targetWeights map[string]float64) []Trade {
	if portfolio.IsEmpty() || len(targetWeights) == 0 {
		return nil
	}

	holdings := aggregateHoldings(portfolio)

	// Restrict targets to held symbols and renormalize.
	restricted := make(map[string]float64, len(holdings))
	sum := 0.0
	for symbol, w := range targetWeights {
		if _, held := holdings[symbol]; held && w > 0 {
			restricted[symbol] = w
			sum += w
		}
	}
	if sum <= 0 {
		return nil
	}
	for symbol := range restricted {
		restricted[symbol] /= sum
	}

	total := portfolio.TotalValueUSD
	minTrade := math.Max(minTradeFraction*total, minTradeUSD)

	trades := make([]Trade, 0, len(restricted))
	for symbol, target := range restricted {
		h := holdings[symbol]
		targetValue := target * total
		tradeValue := targetValue - h.value
		if math.Abs(tradeValue) < minTrade {
			continue
		}

		currentWeight := 0.0
		if total > 0 {
			currentWeight = h.value / total
		}
		weightChange := target - currentWeight

		action := ActionBuy
		if tradeValue < 0 {
			action = ActionSell
		}
		priority := PriorityMedium
		if math.Abs(weightChange) > highPriorityThreshold {
			priority = PriorityHigh
		}

		trade := Trade{
			Symbol:        symbol,
			Action:        action,
			NotionalUSD:   roundUSD(math.Abs(tradeValue)),
			CurrentValue:  h.value,
			TargetValue:   targetValue,
			CurrentWeight: currentWeight,
			TargetWeight:  target,
			WeightChange:  weightChange,
			Priority:      priority,
		}

		// Quantity fields are best-effort: without a reference price the
		// trade degrades gracefully to value-only.
		if h.refPrice > 0 {
			trade.ReferencePrice = h.refPrice
			trade.TargetQuantity = targetValue / h.refPrice
			trade.QuantityChange = tradeValue / h.refPrice
		}

		trades = append(trades, trade)
	}

	sort.Slice(trades, func(i, j int) bool {
		return math.Abs(trades[i].WeightChange) > math.Abs(trades[j].WeightChange)
	})
	if len(trades) > maxTrades {
		trades = trades[:maxTrades]
	}

	g.log.Debug().
		Str("user_id", portfolio.UserID).
		Int("trades", len(trades)).
		Msg("Generated rebalancing trades")

	return trades
}

// aggregateHoldings folds multiple exchange rows per symbol into one current
// value, quantity, and reference price. The reference price is value-weighted
// when values are known, quantity-weighted otherwise, and falls back to the
// last seen non-zero price.
func aggregateHoldings(portfolio domain.Portfolio) map[string]holding {
	type accum struct {
		value, quantity      float64
		valueWeightedPrice   float64
		qtyWeightedPrice     float64
		lastKnownPrice       float64
		priceValueWeightSum  float64
		priceQtyWeightSum    float64
	}

	accums := make(map[string]*accum)
	for _, pos := range portfolio.Positions {
		a, ok := accums[pos.Symbol]
		if !ok {
			a = &accum{}
			accums[pos.Symbol] = a
		}
		a.value += pos.ValueUSD
		a.quantity += pos.Quantity
		if pos.CurrentPrice > 0 {
			if pos.ValueUSD > 0 {
				a.valueWeightedPrice += pos.CurrentPrice * pos.ValueUSD
				a.priceValueWeightSum += pos.ValueUSD
			}
			if pos.Quantity > 0 {
				a.qtyWeightedPrice += pos.CurrentPrice * pos.Quantity
				a.priceQtyWeightSum += pos.Quantity
			}
			a.lastKnownPrice = pos.CurrentPrice
		}
	}

	holdings := make(map[string]holding, len(accums))
	for symbol, a := range accums {
		h := holding{value: a.value, quantity: a.quantity}
		switch {
		case a.priceValueWeightSum > 0:
			h.refPrice = a.valueWeightedPrice / a.priceValueWeightSum
		case a.priceQtyWeightSum > 0:
			h.refPrice = a.qtyWeightedPrice / a.priceQtyWeightSum
		default:
			h.refPrice = a.lastKnownPrice
		}
		holdings[symbol] = h
	}
	return holdings
}

// roundUSD rounds a notional amount to whole cents.
func roundUSD(v float64) float64 {
	rounded, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return rounded
}
