// Package optimization computes target allocations for a portfolio under six
// strategies, built on expected-return and covariance estimates from
// historical prices.
package optimization

import (
	"fmt"

	"github.com/dkaragia/nautilus/internal/modules/rebalancing"
)

// Strategy selects one of the six optimization branches. Dispatch is over
// this closed set only; free-form strings are rejected by ParseStrategy.
type Strategy string

const (
	StrategyRiskParity     Strategy = "risk_parity"
	StrategyEqualWeight    Strategy = "equal_weight"
	StrategyMaxSharpe      Strategy = "max_sharpe"
	StrategyMinVariance    Strategy = "min_variance"
	StrategyKellyCriterion Strategy = "kelly_criterion"
	StrategyAdaptive       Strategy = "adaptive"
)

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{
		StrategyRiskParity,
		StrategyEqualWeight,
		StrategyMaxSharpe,
		StrategyMinVariance,
		StrategyKellyCriterion,
		StrategyAdaptive,
	}
}

// ParseStrategy validates a strategy tag.
func ParseStrategy(s string) (Strategy, error) {
	for _, known := range Strategies() {
		if Strategy(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown optimization strategy: %q", s)
}

// WeightBand is a [Min, Max] weight constraint for one asset.
type WeightBand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Constraints carries optional caller overrides for a single optimize call.
type Constraints struct {
	// Bands override the adaptive strategy's per-asset caps.
	Bands map[string]WeightBand `json:"bands,omitempty"`
}

// HeuristicParams parameterizes the no-data fallback. The defaults are
// placeholder policy values, not domain law; they are configurable so the
// policy can be revisited without touching the engine.
type HeuristicParams struct {
	StablecoinReturn float64 // annual expected return for stablecoins
	DefaultReturn    float64 // annual expected return for everything else
	DiagonalVariance float64 // per-asset annual variance, zero correlation
}

// DefaultHeuristics returns the engine's stock no-data parameters.
func DefaultHeuristics() HeuristicParams {
	return HeuristicParams{
		StablecoinReturn: 0.03,
		DefaultReturn:    0.18,
		DiagonalVariance: 0.12,
	}
}

// Result is the outcome of one optimization call.
//
// Invariants: weights are non-negative and sum to 1 within 1e-6 whenever at
// least one symbol is held; Confidence is in [0.4, 0.99]; SuggestedTrades
// holds at most 10 entries.
type Result struct {
	Strategy            Strategy            `json:"strategy"`
	Weights             map[string]float64  `json:"weights"`
	ExpectedReturn      float64             `json:"expected_return"`
	ExpectedVolatility  float64             `json:"expected_volatility"`
	SharpeRatio         float64             `json:"sharpe_ratio"`
	MaxDrawdownEstimate float64             `json:"max_drawdown_estimate"`
	Confidence          float64             `json:"confidence"`
	RebalancingNeeded   bool                `json:"rebalancing_needed"`
	SuggestedTrades     []rebalancing.Trade `json:"suggested_trades,omitempty"`
}

// emptyResult is the well-formed outcome for a portfolio with no positions.
func emptyResult(strategy Strategy) Result {
	return Result{
		Strategy: strategy,
		Weights:  map[string]float64{},
	}
}
