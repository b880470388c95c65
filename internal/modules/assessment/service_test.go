package assessment

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/history"
	"github.com/dkaragia/nautilus/internal/modules/liquidity"
	"github.com/dkaragia/nautilus/internal/modules/optimization"
	"github.com/dkaragia/nautilus/internal/modules/rebalancing"
	"github.com/dkaragia/nautilus/internal/modules/risk"
)

type fakePortfolios struct {
	portfolio domain.Portfolio
	err       error
}

func (f *fakePortfolios) GetConsolidatedPortfolio(ctx context.Context, userID string) (domain.Portfolio, error) {
	if f.err != nil {
		return domain.Portfolio{}, f.err
	}
	return f.portfolio, nil
}

type fakeSource struct {
	candles map[string][]domain.Candle

	mu     sync.Mutex
	limits []int
}

func (f *fakeSource) GetHistoricalOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	return f.candles[symbol], nil
}

func (f *fakeSource) requestedLimits() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.limits...)
}

type fakeMeta struct{}

func (f *fakeMeta) GetAssetsForSymbols(ctx context.Context, symbols []string) (map[string]domain.AssetInfo, error) {
	return nil, nil
}

func seriesCandles(base, amplitude, phase float64, n int) []domain.Candle {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, n)
	for i := 0; i < n; i++ {
		price := base * (1 + amplitude*math.Sin(float64(i)*0.8+phase))
		candles[i] = domain.Candle{Timestamp: start.Add(time.Duration(i) * 24 * time.Hour), Close: price}
	}
	return candles
}

func testService(portfolio domain.Portfolio, candles map[string][]domain.Candle) *Service {
	provider := &fakePortfolios{portfolio: portfolio}
	hist := history.New(&fakeSource{candles: candles}, zerolog.Nop())
	riskEngine := risk.New(hist, 0.02, "BTC", zerolog.Nop())
	optimizer := optimization.New(hist,
		liquidity.New(&fakeMeta{}, zerolog.Nop()),
		rebalancing.New(zerolog.Nop()),
		zerolog.Nop(),
		optimization.WithLookback(60),
	)
	return New(provider, riskEngine, optimizer, hist, "BTC", zerolog.Nop(),
		WithRiskLookback(60))
}

func twoAssetPortfolio() domain.Portfolio {
	return domain.Portfolio{
		TotalValueUSD: 25000,
		Positions: []domain.Position{
			{Symbol: "BTC", Exchange: "binance", ValueUSD: 15000, CurrentPrice: 60000, Quantity: 0.25},
			{Symbol: "ETH", Exchange: "binance", ValueUSD: 10000, CurrentPrice: 3125, Quantity: 3.2},
		},
		Source: domain.SourceLive,
	}
}

func marketCandles() map[string][]domain.Candle {
	return map[string][]domain.Candle{
		"BTC/USDT": seriesCandles(60000, 0.03, 0, 120),
		"ETH/USDT": seriesCandles(3125, 0.05, 1.2, 120),
	}
}

func TestRiskAnalysis(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())

	report := svc.RiskAnalysis(context.Background(), "u1")

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, 25000.0, report.PortfolioValue)
	assert.Equal(t, 2, report.Positions)
	assert.GreaterOrEqual(t, report.Metrics.VaR99, report.Metrics.VaR95)
	assert.Greater(t, report.Metrics.VolatilityAnnual, 0.0)
}

func TestRiskAnalysis_EmptyPortfolio(t *testing.T) {
	svc := testService(domain.Portfolio{Source: domain.SourceEmpty}, nil)

	report := svc.RiskAnalysis(context.Background(), "u1")

	assert.False(t, report.Success)
	assert.NotEmpty(t, report.Reason)
	assert.Equal(t, risk.Metrics{}, report.Metrics)
}

func TestRiskAnalysis_ProviderErrorDegrades(t *testing.T) {
	provider := &fakePortfolios{err: fmt.Errorf("exchange unreachable")}
	hist := history.New(&fakeSource{}, zerolog.Nop())
	riskEngine := risk.New(hist, 0.02, "BTC", zerolog.Nop())
	optimizer := optimization.New(hist, liquidity.New(&fakeMeta{}, zerolog.Nop()), rebalancing.New(zerolog.Nop()), zerolog.Nop())
	svc := New(provider, riskEngine, optimizer, hist, "BTC", zerolog.Nop())

	report := svc.RiskAnalysis(context.Background(), "u1")
	assert.False(t, report.Success, "provider failure reads as an empty portfolio, never a panic")
}

func TestOptimizeAllocation(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())

	report := svc.OptimizeAllocation(context.Background(), "u1", optimization.StrategyRiskParity, nil)

	require.True(t, report.Success)
	sum := 0.0
	for _, w := range report.Result.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestCorrelationAnalysis(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())

	report := svc.CorrelationAnalysis(context.Background(), "u1", 0)

	require.True(t, report.Success)
	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "BTC", report.Pairs[0].SymbolA)
	assert.Equal(t, "ETH", report.Pairs[0].SymbolB)
	assert.GreaterOrEqual(t, report.Pairs[0].Correlation, -1.0)
	assert.LessOrEqual(t, report.Pairs[0].Correlation, 1.0)
	assert.NotEmpty(t, report.Commentary)
	assert.NotNil(t, report.HighestPair)
}

func TestCorrelationAnalysis_RequiresTwoPositions(t *testing.T) {
	single := domain.Portfolio{
		TotalValueUSD: 1000,
		Positions:     []domain.Position{{Symbol: "BTC", Exchange: "t", ValueUSD: 1000}},
		Source:        domain.SourceLive,
	}
	svc := testService(single, marketCandles())

	report := svc.CorrelationAnalysis(context.Background(), "u1", 0)
	assert.False(t, report.Success)
	assert.Contains(t, report.Reason, "two positions")
}

func TestCorrelationAnalysis_LookbackOverride(t *testing.T) {
	source := &fakeSource{candles: marketCandles()}
	hist := history.New(source, zerolog.Nop())
	riskEngine := risk.New(hist, 0.02, "BTC", zerolog.Nop())
	optimizer := optimization.New(hist, liquidity.New(&fakeMeta{}, zerolog.Nop()), rebalancing.New(zerolog.Nop()), zerolog.Nop())
	svc := New(&fakePortfolios{portfolio: twoAssetPortfolio()}, riskEngine, optimizer, hist, "BTC", zerolog.Nop(),
		WithRiskLookback(60))

	report := svc.CorrelationAnalysis(context.Background(), "u1", 30)

	require.True(t, report.Success)
	limits := source.requestedLimits()
	require.NotEmpty(t, limits)
	for _, limit := range limits {
		assert.Equal(t, 30, limit, "caller-supplied window overrides the risk lookback")
	}
}

func TestStressTest(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())

	report := svc.StressTest(context.Background(), "u1", nil)

	require.True(t, report.Success)
	assert.Len(t, report.Outcomes, len(DefaultScenarios()))
	require.NotNil(t, report.WorstCase)

	for _, outcome := range report.Outcomes {
		assert.GreaterOrEqual(t, report.WorstCase.LossUSD, outcome.LossUSD)
		assert.InDelta(t, report.PortfolioValue-outcome.LossUSD, outcome.PortfolioAfter, 0.01)
	}
}

func TestStressTest_CustomScenarios(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())
	custom := []StressScenario{
		{Name: "exchange_hack", MajorShock: -0.10, AltShock: -0.10, StableShock: 0},
	}

	report := svc.StressTest(context.Background(), "u1", custom)

	require.True(t, report.Success)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "exchange_hack", report.Outcomes[0].Scenario)
	assert.InDelta(t, 2500, report.Outcomes[0].LossUSD, 0.01)
}

func TestCompleteAssessment(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())

	report := svc.CompleteAssessment(context.Background(), "u1", true, true)

	require.True(t, report.Success)
	assert.NotNil(t, report.Risk)
	assert.NotNil(t, report.Optimization)
	assert.NotNil(t, report.Correlation)
	assert.NotNil(t, report.Stress)
	assert.GreaterOrEqual(t, report.HealthScore, 0.0)
	assert.LessOrEqual(t, report.HealthScore, 10.0)
	assert.Contains(t, []string{HealthHealthy, HealthNeedsAttention, HealthHighRisk}, report.Classification)
}

func TestCompleteAssessment_SectionsOffByFlags(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())

	report := svc.CompleteAssessment(context.Background(), "u1", false, false)

	require.True(t, report.Success)
	assert.NotNil(t, report.Risk, "risk is always computed")
	assert.NotNil(t, report.Correlation, "correlation runs for two-position portfolios")
	assert.Nil(t, report.Optimization, "optimization stays null when not requested")
	assert.Nil(t, report.Stress, "stress stays null when not requested")
	assert.GreaterOrEqual(t, report.HealthScore, 0.0)
	assert.LessOrEqual(t, report.HealthScore, 10.0)
}

func TestCompleteAssessment_EmptyPortfolio(t *testing.T) {
	svc := testService(domain.Portfolio{Source: domain.SourceEmpty}, nil)

	report := svc.CompleteAssessment(context.Background(), "u1", true, true)

	assert.False(t, report.Success)
	assert.Equal(t, HealthHighRisk, report.Classification)
	assert.Nil(t, report.Risk)
}

func TestReportIDsAreUnique(t *testing.T) {
	svc := testService(twoAssetPortfolio(), marketCandles())

	a := svc.RiskAnalysis(context.Background(), "u1")
	b := svc.RiskAnalysis(context.Background(), "u1")
	assert.NotEqual(t, a.ReportID, b.ReportID)
}
