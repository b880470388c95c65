package formulas

import (
	"math"
)

// SharpeRatio calculates the annualized Sharpe ratio from daily returns.
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Annualized Return - Risk-free Rate) / Annualized Volatility
//
// Args:
//
//	returns: Array of daily returns
//	riskFreeRate: Risk-free rate (annual, as decimal, e.g., 0.02 for 2%)
//
// Returns:
//
//	Sharpe ratio, or 0 if there is insufficient data or zero volatility
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	annualReturn := Mean(returns) * TradingDaysPerYear
	annualVol := AnnualizedVolatility(returns)
	if annualVol == 0 {
		return 0
	}

	return (annualReturn - riskFreeRate) / annualVol
}

// SortinoRatio calculates the annualized Sortino ratio from daily returns.
// Same numerator as Sharpe, but the denominator only counts downside deviation
// (returns below zero), so upside volatility is not penalized.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var downsideSquaredSum float64
	downsideCount := 0
	for _, ret := range returns {
		if ret < 0 {
			downsideSquaredSum += ret * ret
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return 0
	}

	downsideDeviation := math.Sqrt(downsideSquaredSum/float64(downsideCount)) * math.Sqrt(TradingDaysPerYear)
	if downsideDeviation == 0 {
		return 0
	}

	annualReturn := Mean(returns) * TradingDaysPerYear
	return (annualReturn - riskFreeRate) / downsideDeviation
}
