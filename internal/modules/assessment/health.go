package assessment

import (
	"fmt"
	"math"

	"github.com/dkaragia/nautilus/internal/modules/risk"
)

// healthScore condenses the risk metrics and concentration into a 0-10
// score. Deductions are additive per concern; the score floors at 0.
func healthScore(metrics risk.Metrics, weights map[string]float64) (float64, []string) {
	score := 10.0
	var flags []string

	// Annual volatility: no penalty below 40%, scaling up to -3 at 120%.
	if metrics.VolatilityAnnual > 0.40 {
		penalty := math.Min(3, (metrics.VolatilityAnnual-0.40)/0.80*3)
		score -= penalty
		if metrics.VolatilityAnnual > 0.80 {
			flags = append(flags, fmt.Sprintf("Annualized volatility is very high (%.0f%%)", metrics.VolatilityAnnual*100))
		}
	}

	// Historical drawdown up to -2.5.
	if metrics.MaximumDrawdown > 0.20 {
		score -= math.Min(2.5, (metrics.MaximumDrawdown-0.20)/0.60*2.5)
		if metrics.MaximumDrawdown > 0.50 {
			flags = append(flags, fmt.Sprintf("Maximum drawdown over the lookback exceeded %.0f%%", metrics.MaximumDrawdown*100))
		}
	}

	// Daily VaR95 up to -2.
	if metrics.VaR95 > 0.03 {
		score -= math.Min(2, (metrics.VaR95-0.03)/0.07*2)
		if metrics.VaR95 > 0.07 {
			flags = append(flags, fmt.Sprintf("Daily VaR(95) of %.1f%% indicates outsized short-term risk", metrics.VaR95*100))
		}
	}

	// Concentration: largest single weight, up to -2 at full concentration.
	maxWeight := 0.0
	maxSymbol := ""
	for s, w := range weights {
		if w > maxWeight {
			maxWeight, maxSymbol = w, s
		}
	}
	if maxWeight > 0.40 {
		score -= math.Min(2, (maxWeight-0.40)/0.60*2)
		flags = append(flags, fmt.Sprintf("Portfolio is concentrated: %s holds %.0f%% of value", maxSymbol, maxWeight*100))
	}

	// Reward a positive risk-adjusted return, up to +0.5.
	if metrics.SharpeRatio > 1 {
		score += math.Min(0.5, (metrics.SharpeRatio-1)*0.25)
	}

	return math.Max(0, math.Min(10, score)), flags
}

// classify maps a health score onto the three-band classification.
func classify(score float64) string {
	switch {
	case score > 7:
		return HealthHealthy
	case score > 4:
		return HealthNeedsAttention
	default:
		return HealthHighRisk
	}
}
