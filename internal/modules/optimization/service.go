package optimization

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/history"
	"github.com/dkaragia/nautilus/internal/modules/liquidity"
	"github.com/dkaragia/nautilus/internal/modules/rebalancing"
	"github.com/dkaragia/nautilus/pkg/formulas"
)

const (
	// DefaultLookbackDays bounds the history window behind μ and Σ.
	DefaultLookbackDays = 180

	// defaultMatrixWorkers caps concurrent SVD/Cholesky work; the matrices
	// are small but SVD is O(n³) and requests can arrive in bursts.
	defaultMatrixWorkers = 4

	// rebalanceDeviationThreshold marks a portfolio as needing a rebalance
	// when any position drifts this far from target.
	rebalanceDeviationThreshold = 0.05

	// tradeEmissionThreshold filters suggested trades to meaningful moves.
	tradeEmissionThreshold = 0.01

	confidenceFloor   = 0.40
	confidenceCeiling = 0.99
)

// Engine runs portfolio optimization. All strategy branches go through the
// same input builder and result finalizer, so every Result carries the same
// invariants regardless of strategy.
type Engine struct {
	history   *history.Service
	liquidity *liquidity.Adjuster
	rebalance *rebalancing.Generator

	heuristics   HeuristicParams
	caps         map[string]WeightBand
	riskFreeRate float64
	lookback     int

	gate chan struct{}
	log  zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookback overrides the history window in days.
func WithLookback(days int) Option {
	return func(e *Engine) {
		if days > 1 {
			e.lookback = days
		}
	}
}

// WithRiskFreeRate overrides the annual risk-free rate.
func WithRiskFreeRate(rate float64) Option {
	return func(e *Engine) { e.riskFreeRate = rate }
}

// WithHeuristics overrides the no-data fallback parameters.
func WithHeuristics(params HeuristicParams) Option {
	return func(e *Engine) { e.heuristics = params }
}

// WithAdaptiveCaps replaces the adaptive strategy's default per-asset bands.
func WithAdaptiveCaps(caps map[string]WeightBand) Option {
	return func(e *Engine) { e.caps = caps }
}

// WithMatrixWorkers bounds concurrent matrix computations.
func WithMatrixWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.gate = make(chan struct{}, n)
		}
	}
}

// New builds an optimization engine on top of the history service, the
// liquidity adjuster, and the trade generator.
func New(hist *history.Service, liq *liquidity.Adjuster, reb *rebalancing.Generator, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		history:      hist,
		liquidity:    liq,
		rebalance:    reb,
		heuristics:   DefaultHeuristics(),
		caps:         defaultAdaptiveCaps(),
		riskFreeRate: 0.02,
		lookback:     DefaultLookbackDays,
		gate:         make(chan struct{}, defaultMatrixWorkers),
		log:          log.With().Str("component", "optimization").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Optimize computes target weights for the portfolio under the given
// strategy. It never returns an error: degenerate inputs produce a
// well-formed Result with empty weights or an equal-weight fallback, and the
// reason is logged.
func (e *Engine) Optimize(ctx context.Context, portfolio domain.Portfolio, strategy Strategy, constraints *Constraints) Result {
	if portfolio.IsEmpty() {
		return emptyResult(strategy)
	}

	symbols := portfolio.Symbols()
	if len(symbols) == 1 {
		result := emptyResult(strategy)
		result.Weights[symbols[0]] = 1.0
		return e.finalize(ctx, portfolio, strategy, result.Weights, e.buildInputs(ctx, symbols))
	}

	// SVD and Cholesky are the expensive part; bound their concurrency.
	select {
	case e.gate <- struct{}{}:
		defer func() { <-e.gate }()
	case <-ctx.Done():
		e.log.Warn().Err(ctx.Err()).Msg("Optimization cancelled while waiting for a worker slot")
		return emptyResult(strategy)
	}

	inputs := e.buildInputs(ctx, symbols)

	var weights map[string]float64
	switch strategy {
	case StrategyRiskParity:
		weights = e.riskParity(inputs)
	case StrategyEqualWeight:
		weights = e.equalWeight(inputs)
	case StrategyMaxSharpe:
		weights = e.maxSharpe(ctx, inputs)
	case StrategyMinVariance:
		weights = e.minVariance(inputs)
	case StrategyKellyCriterion:
		weights = e.kellyCriterion(inputs)
	case StrategyAdaptive:
		weights = e.adaptive(ctx, inputs, constraints)
	default:
		e.log.Error().Str("strategy", string(strategy)).Msg("Unknown strategy, defaulting to equal weight")
		strategy = StrategyEqualWeight
		weights = e.equalWeight(inputs)
	}

	result := e.finalize(ctx, portfolio, strategy, weights, inputs)

	if strategy == StrategyEqualWeight {
		e.attachRebalancing(portfolio, &result)
	}

	return result
}

// finalize normalizes the raw strategy weights and derives the shared result
// fields: expected return and volatility from μ and Σ under the final
// weights, the Sharpe ratio, the drawdown estimate, and the confidence.
func (e *Engine) finalize(ctx context.Context, portfolio domain.Portfolio, strategy Strategy, raw map[string]float64, inputs *modelInputs) Result {
	weights := clipAndNormalize(raw)
	if weights == nil {
		weights = e.equalWeight(inputs)
	}

	w := make([]float64, len(inputs.symbols))
	for i, s := range inputs.symbols {
		w[i] = weights[s]
	}

	expectedReturn := 0.0
	for i := range w {
		expectedReturn += w[i] * inputs.mu[i]
	}
	expectedVol := math.Sqrt(math.Max(quadraticForm(inputs.cov, w), 0))

	sharpe := 0.0
	if expectedVol > 1e-12 {
		sharpe = (expectedReturn - e.riskFreeRate) / expectedVol
	}

	return Result{
		Strategy:            strategy,
		Weights:             weights,
		ExpectedReturn:      expectedReturn,
		ExpectedVolatility:  expectedVol,
		SharpeRatio:         sharpe,
		MaxDrawdownEstimate: e.estimateDrawdown(weights, inputs, expectedVol),
		Confidence:          e.confidence(weights, inputs),
	}
}

// estimateDrawdown replays the aligned price history under the target
// weights and measures the realized maximum drawdown of that synthetic
// portfolio. Without enough real history it scales the expected volatility
// instead.
func (e *Engine) estimateDrawdown(weights map[string]float64, inputs *modelInputs, expectedVol float64) float64 {
	if len(inputs.prices) >= 2 {
		curve := make([]float64, len(inputs.prices))
		base := inputs.prices[0]
		for t, row := range inputs.prices {
			value := 0.0
			for j, s := range inputs.priceSymbols {
				if base[j] > 0 {
					value += weights[s] * row[j] / base[j]
				}
			}
			curve[t] = value
		}
		if dd := formulas.MaxDrawdown(curve); dd > 0 || curve[0] > 0 {
			return dd
		}
	}
	// Rough mapping from annual volatility to a plausible worst drawdown.
	return math.Min(0.90, 1.65*expectedVol)
}

// confidence scores how much real data backed the estimates: depth is the
// observation count relative to a trading year, coverage the weight mass
// sitting on symbols with real history. Bounded to [0.40, 0.99] so the
// caller always gets a usable, honest number.
func (e *Engine) confidence(weights map[string]float64, inputs *modelInputs) float64 {
	depth := math.Min(1, float64(inputs.observations)/formulas.TradingDaysPerYear)

	covered := 0.0
	for s, w := range weights {
		if inputs.coverage[s] {
			covered += w
		}
	}

	c := confidenceFloor + (confidenceCeiling-confidenceFloor)*depth*covered
	return math.Max(confidenceFloor, math.Min(confidenceCeiling, c))
}

// attachRebalancing compares current weights against the result's targets.
// The needs-rebalancing flag and trade emission use independent
// thresholds: the flag trips on drift beyond 5pp, while trades are emitted
// for any deviation past 1pp even when the flag stays off.
func (e *Engine) attachRebalancing(portfolio domain.Portfolio, result *Result) {
	current := portfolio.CurrentWeights()

	maxDrift := 0.0
	for s, target := range result.Weights {
		if d := math.Abs(current[s] - target); d > maxDrift {
			maxDrift = d
		}
	}
	result.RebalancingNeeded = maxDrift > rebalanceDeviationThreshold
	if maxDrift <= tradeEmissionThreshold {
		return
	}

	trades := e.rebalance.GenerateTrades(portfolio, result.Weights)
	kept := trades[:0]
	for _, t := range trades {
		if math.Abs(t.WeightChange) > tradeEmissionThreshold {
			kept = append(kept, t)
		}
	}
	result.SuggestedTrades = kept
}
