package optimization

import (
	"context"
	"math"
)

// fractionalKelly scales the full Kelly allocation down to 25% for risk
// control. The scale cancels under renormalization but is kept explicit so
// the unnormalized magnitudes stay meaningful in logs.
const fractionalKelly = 0.25

// adaptive blend proportions and floor.
const (
	adaptiveRiskParityShare = 0.80
	adaptiveMaxSharpeShare  = 0.20
	adaptiveMinWeight       = 0.02
)

// defaultAdaptiveCaps are hand-tuned bands for known volatile tickers. They
// are engine configuration, overridable per call via Constraints.Bands.
func defaultAdaptiveCaps() map[string]WeightBand {
	return map[string]WeightBand{
		"XRP":  {Min: 0.00, Max: 0.15},
		"ADA":  {Min: 0.00, Max: 0.12},
		"DOGE": {Min: 0.00, Max: 0.08},
		"USDC": {Min: 0.05, Max: 0.25},
		"REEF": {Min: 0.00, Max: 0.05},
	}
}

// riskParity weights each asset inversely to its volatility from the
// covariance diagonal. Equal risk contribution in its simplified
// inverse-volatility form.
func (e *Engine) riskParity(inputs *modelInputs) map[string]float64 {
	weights := make(map[string]float64, len(inputs.symbols))
	for i, s := range inputs.symbols {
		sigma := math.Sqrt(math.Max(inputs.cov.At(i, i), 0))
		if sigma < 1e-12 {
			// A flat series would absorb the whole portfolio; treat it as
			// the least volatile plausible asset instead.
			sigma = 1e-6
		}
		weights[s] = 1 / sigma
	}
	return weights
}

// equalWeight assigns 1/n to every held symbol.
func (e *Engine) equalWeight(inputs *modelInputs) map[string]float64 {
	n := float64(len(inputs.symbols))
	weights := make(map[string]float64, len(inputs.symbols))
	for _, s := range inputs.symbols {
		weights[s] = 1 / n
	}
	return weights
}

// maxSharpe computes the unconstrained tangency portfolio w ∝ Σ⁺(μ − rf),
// clips shorts, renormalizes, then applies the liquidity multiplier and
// renormalizes again.
func (e *Engine) maxSharpe(ctx context.Context, inputs *modelInputs) map[string]float64 {
	raw, err := e.tangencyWeights(inputs)
	if err != nil {
		e.log.Warn().Err(err).Msg("Max-Sharpe solve failed, falling back to equal weights")
		raw = e.equalWeight(inputs)
	}

	clipped := clipAndNormalize(raw)
	if clipped == nil {
		clipped = e.equalWeight(inputs)
	}

	adjusted := e.liquidity.Adjust(ctx, inputs.symbols, clipped)
	if normalized := clipAndNormalize(adjusted); normalized != nil {
		return normalized
	}
	return clipped
}

func (e *Engine) tangencyWeights(inputs *modelInputs) (map[string]float64, error) {
	pinv, err := pseudoInverse(inputs.cov)
	if err != nil {
		return nil, err
	}

	excess := make([]float64, len(inputs.mu))
	for i, m := range inputs.mu {
		excess[i] = m - e.riskFreeRate
	}

	w := matVec(pinv, excess)
	weights := make(map[string]float64, len(inputs.symbols))
	for i, s := range inputs.symbols {
		weights[s] = w[i]
	}
	return weights, nil
}

// minVariance computes w ∝ Σ⁺·1, the unconstrained minimum-variance
// portfolio, then clips and renormalizes.
func (e *Engine) minVariance(inputs *modelInputs) map[string]float64 {
	pinv, err := pseudoInverse(inputs.cov)
	if err != nil {
		e.log.Warn().Err(err).Msg("Min-variance solve failed, falling back to equal weights")
		return e.equalWeight(inputs)
	}

	ones := make([]float64, len(inputs.symbols))
	for i := range ones {
		ones[i] = 1
	}

	w := matVec(pinv, ones)
	weights := make(map[string]float64, len(inputs.symbols))
	for i, s := range inputs.symbols {
		weights[s] = w[i]
	}

	if normalized := clipAndNormalize(weights); normalized != nil {
		return normalized
	}
	return e.equalWeight(inputs)
}

// kellyCriterion computes w ∝ (Σ + εI)⁻¹(μ − rf) at a fixed 25% Kelly
// fraction. A singular or ill-conditioned matrix is caught here and
// substitutes equal weights; the failure never propagates.
func (e *Engine) kellyCriterion(inputs *modelInputs) map[string]float64 {
	excess := make([]float64, len(inputs.mu))
	for i, m := range inputs.mu {
		excess[i] = m - e.riskFreeRate
	}

	w, err := solveRidge(inputs.cov, excess, kellyEpsilon)
	if err != nil {
		e.log.Warn().Err(err).Msg("Kelly solve failed on degenerate covariance, using equal weights")
		return e.equalWeight(inputs)
	}

	weights := make(map[string]float64, len(inputs.symbols))
	for i, s := range inputs.symbols {
		weights[s] = fractionalKelly * w[i]
	}

	if normalized := clipAndNormalize(weights); normalized != nil {
		return normalized
	}
	return e.equalWeight(inputs)
}

// adaptive blends risk parity with max Sharpe, then applies per-ticker caps
// and a small floor before renormalizing. A degenerate zero-sum blend falls
// back to equal weights.
func (e *Engine) adaptive(ctx context.Context, inputs *modelInputs, constraints *Constraints) map[string]float64 {
	rp := clipAndNormalize(e.riskParity(inputs))
	ms := e.maxSharpe(ctx, inputs)
	if rp == nil {
		rp = e.equalWeight(inputs)
	}

	blend := make(map[string]float64, len(inputs.symbols))
	for _, s := range inputs.symbols {
		blend[s] = adaptiveRiskParityShare*rp[s] + adaptiveMaxSharpeShare*ms[s]
	}

	caps := e.caps
	if constraints != nil && len(constraints.Bands) > 0 {
		caps = constraints.Bands
	}

	normalized := clipAndNormalize(blend)
	if normalized == nil {
		return e.equalWeight(inputs)
	}
	return applyBands(normalized, caps, inputs.symbols)
}

// applyBands enforces per-symbol weight bands plus the global floor on an
// already-normalized allocation. Violating weights are pinned to their bound
// and the slack is redistributed across the unpinned symbols, iterating until
// no new violation appears, so the bounds hold after renormalization too.
func applyBands(weights map[string]float64, caps map[string]WeightBand, symbols []string) map[string]float64 {
	bounds := func(s string) (lo, hi float64) {
		lo, hi = adaptiveMinWeight, 1.0
		if band, ok := caps[s]; ok {
			lo = math.Max(lo, band.Min)
			hi = math.Min(hi, band.Max)
		}
		if hi < lo {
			hi = lo
		}
		return lo, hi
	}

	pinned := make(map[string]float64)
	free := make(map[string]float64, len(weights))
	for s, w := range weights {
		free[s] = w
	}

	for iter := 0; iter < len(symbols)+1 && len(free) > 0; iter++ {
		budget := 1.0
		freeSum := 0.0
		for _, w := range pinned {
			budget -= w
		}
		for _, w := range free {
			freeSum += w
		}
		if budget <= 0 || freeSum <= 0 {
			break
		}

		violated := false
		for s, w := range free {
			scaled := w / freeSum * budget
			lo, hi := bounds(s)
			switch {
			case scaled > hi:
				pinned[s] = hi
				delete(free, s)
				violated = true
			case scaled < lo:
				pinned[s] = lo
				delete(free, s)
				violated = true
			default:
				free[s] = scaled
			}
		}
		if !violated {
			break
		}
	}

	out := make(map[string]float64, len(weights))
	sum := 0.0
	for s, w := range pinned {
		out[s] = w
		sum += w
	}
	for s, w := range free {
		out[s] = w
		sum += w
	}
	// Conflicting bands can leave the total off 1; rescale as a last resort.
	if sum > 0 && math.Abs(sum-1) > 1e-9 {
		for s := range out {
			out[s] /= sum
		}
	}
	return out
}

// clipAndNormalize zeroes negative and non-finite weights and rescales the
// rest to sum to 1. Returns nil when nothing positive remains.
func clipAndNormalize(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	sum := 0.0
	for s, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		out[s] = w
		sum += w
	}
	if sum <= 0 {
		return nil
	}
	for s := range out {
		out[s] /= sum
	}
	return out
}
