package optimization

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/history"
	"github.com/dkaragia/nautilus/pkg/formulas"
)

// modelInputs is everything a strategy branch needs: annualized expected
// returns and covariance over the full symbol set, plus the aligned price
// matrix for drawdown replay.
type modelInputs struct {
	symbols []string // held symbols, order-preserving
	index   map[string]int

	mu  []float64     // annualized expected log return per symbol
	cov *mat.SymDense // annualized covariance

	// prices is the aligned, forward-filled price matrix (rows = time,
	// cols = symbols with real data). Empty in heuristic mode.
	prices       [][]float64
	priceSymbols []string

	coverage     map[string]bool // symbols backed by real history
	observations int             // return observations behind the estimates
	heuristic    bool
}

// buildInputs assembles μ and Σ from historical prices, falling back to the
// deterministic heuristic when no usable series exist at all. Symbols with
// no series of their own get heuristic diagonal entries so they stay
// eligible for allocation.
func (e *Engine) buildInputs(ctx context.Context, symbols []string) *modelInputs {
	series := e.history.FetchAll(ctx, symbols, e.lookback, history.DefaultTimeframe)

	dataSymbols := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if len(series[s]) >= 2 {
			dataSymbols = append(dataSymbols, s)
		}
	}

	if len(dataSymbols) == 0 {
		e.log.Warn().
			Int("symbols", len(symbols)).
			Msg("No historical data for any symbol, using heuristic inputs")
		return e.heuristicInputs(symbols)
	}

	prices := alignPriceMatrix(series, dataSymbols)
	if len(prices) < 2 {
		return e.heuristicInputs(symbols)
	}

	// Log returns per data symbol.
	returns := make([][]float64, len(dataSymbols))
	for j := range dataSymbols {
		col := make([]float64, len(prices))
		for t := range prices {
			col[t] = prices[t][j]
		}
		returns[j] = formulas.CalculateLogReturns(col)
	}
	observations := len(returns[0])

	inputs := &modelInputs{
		symbols:      append([]string(nil), symbols...),
		index:        indexOf(symbols),
		mu:           make([]float64, len(symbols)),
		cov:          mat.NewSymDense(len(symbols), nil),
		prices:       prices,
		priceSymbols: dataSymbols,
		coverage:     make(map[string]bool, len(dataSymbols)),
		observations: observations,
	}

	dataIndex := indexOf(dataSymbols)
	for _, s := range dataSymbols {
		inputs.coverage[s] = true
	}

	for i, si := range symbols {
		di, hasData := dataIndex[si]
		if !hasData {
			inputs.mu[i] = e.heuristics.DefaultReturn
			if domain.IsStablecoin(si) {
				inputs.mu[i] = e.heuristics.StablecoinReturn
			}
			inputs.cov.SetSym(i, i, e.heuristics.DiagonalVariance)
			continue
		}
		inputs.mu[i] = formulas.Mean(returns[di]) * formulas.TradingDaysPerYear
		for k := i; k < len(symbols); k++ {
			dk, ok := dataIndex[symbols[k]]
			if !ok {
				continue
			}
			cov := stat.Covariance(returns[di], returns[dk], nil) * formulas.TradingDaysPerYear
			inputs.cov.SetSym(i, k, cov)
		}
	}

	return inputs
}

// heuristicInputs substitutes the documented no-data policy: stablecoins get
// a small expected return, everything else a generic one, and the covariance
// is a diagonal with uniform variance and zero correlation.
func (e *Engine) heuristicInputs(symbols []string) *modelInputs {
	inputs := &modelInputs{
		symbols:   append([]string(nil), symbols...),
		index:     indexOf(symbols),
		mu:        make([]float64, len(symbols)),
		cov:       mat.NewSymDense(len(symbols), nil),
		coverage:  make(map[string]bool),
		heuristic: true,
	}
	for i, s := range symbols {
		if domain.IsStablecoin(s) {
			inputs.mu[i] = e.heuristics.StablecoinReturn
		} else {
			inputs.mu[i] = e.heuristics.DefaultReturn
		}
		inputs.cov.SetSym(i, i, e.heuristics.DiagonalVariance)
	}
	return inputs
}

// alignPriceMatrix builds a time × symbol close matrix over the union of
// timestamps, forward-fills gaps, and drops rows that still have gaps
// (leading NaNs before a symbol's first observation).
func alignPriceMatrix(series map[string][]history.PricePoint, symbols []string) [][]float64 {
	tsSet := make(map[int64]bool)
	for _, s := range symbols {
		for _, p := range series[s] {
			tsSet[p.Timestamp.Unix()] = true
		}
	}
	timestamps := make([]int64, 0, len(tsSet))
	for ts := range tsSet {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	matrix := make([][]float64, len(timestamps))
	for t := range matrix {
		matrix[t] = make([]float64, len(symbols))
		for j := range matrix[t] {
			matrix[t][j] = math.NaN()
		}
	}

	tsIndex := make(map[int64]int, len(timestamps))
	for i, ts := range timestamps {
		tsIndex[ts] = i
	}
	for j, s := range symbols {
		for _, p := range series[s] {
			matrix[tsIndex[p.Timestamp.Unix()]][j] = p.Close
		}
	}

	// Forward-fill per column.
	for j := range symbols {
		last := math.NaN()
		for t := range matrix {
			if math.IsNaN(matrix[t][j]) {
				matrix[t][j] = last
			} else {
				last = matrix[t][j]
			}
		}
	}

	// Drop rows with residual gaps.
	filled := matrix[:0]
	for _, row := range matrix {
		ok := true
		for _, v := range row {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			filled = append(filled, row)
		}
	}
	return filled
}

func indexOf(symbols []string) map[string]int {
	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		index[s] = i
	}
	return index
}
