package formulas

// HistoricalVaR calculates Value at Risk from a daily return series using the
// historical-simulation method: the (1-confidence) quantile of the returns,
// reported as a positive loss fraction.
//
// A series that never lost money yields 0, never a negative VaR.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	q := Quantile(returns, 1.0-confidence)
	if q >= 0 {
		return 0
	}
	return -q
}

// ExpectedShortfall calculates CVaR: the average loss conditional on the loss
// exceeding the VaR threshold at the given confidence level. Reported as a
// positive loss fraction.
func ExpectedShortfall(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	threshold := Quantile(returns, 1.0-confidence)
	var sum float64
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return 0
	}

	mean := sum / float64(count)
	if mean >= 0 {
		return 0
	}
	return -mean
}
