package risk

import (
	"hash/fnv"
	"math/rand"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/pkg/formulas"
)

// Synthetic return parameters per asset class. These are documented
// placeholders for assets with no usable price history, not calibrated
// market models. Annual figures are converted to daily inside the generator.
const (
	syntheticStableAnnualReturn = 0.03
	syntheticStableAnnualVol    = 0.01

	syntheticMajorAnnualReturn = 0.18
	syntheticMajorAnnualVol    = 0.60

	syntheticAltAnnualReturn = 0.18
	syntheticAltAnnualVol    = 0.90
)

var majorAssets = map[string]bool{
	"BTC": true,
	"ETH": true,
}

// SyntheticReturns generates a deterministic normal-distribution
// approximation of an asset's daily returns. The generator is seeded from
// the symbol so repeated calls for one asset produce identical series.
func SyntheticReturns(symbol string, n int) []float64 {
	if n <= 0 {
		return nil
	}

	annualReturn, annualVol := syntheticParams(symbol)
	dailyMean := annualReturn / formulas.TradingDaysPerYear
	dailyVol := annualVol / sqrtTradingDays

	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	returns := make([]float64, n)
	for i := range returns {
		returns[i] = dailyMean + dailyVol*rng.NormFloat64()
	}
	return returns
}

func syntheticParams(symbol string) (annualReturn, annualVol float64) {
	switch {
	case domain.IsStablecoin(symbol):
		return syntheticStableAnnualReturn, syntheticStableAnnualVol
	case majorAssets[symbol]:
		return syntheticMajorAnnualReturn, syntheticMajorAnnualVol
	default:
		return syntheticAltAnnualReturn, syntheticAltAnnualVol
	}
}

// sqrt(252), precomputed to keep the generator allocation-free.
const sqrtTradingDays = 15.874507866387544
