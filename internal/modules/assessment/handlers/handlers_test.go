package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/assessment"
	"github.com/dkaragia/nautilus/internal/modules/history"
	"github.com/dkaragia/nautilus/internal/modules/liquidity"
	"github.com/dkaragia/nautilus/internal/modules/optimization"
	"github.com/dkaragia/nautilus/internal/modules/rebalancing"
	"github.com/dkaragia/nautilus/internal/modules/risk"
)

type fakePortfolios struct{ portfolio domain.Portfolio }

func (f *fakePortfolios) GetConsolidatedPortfolio(ctx context.Context, userID string) (domain.Portfolio, error) {
	return f.portfolio, nil
}

type fakeSource struct{ candles map[string][]domain.Candle }

func (f *fakeSource) GetHistoricalOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	return f.candles[symbol], nil
}

type fakeMeta struct{}

func (f *fakeMeta) GetAssetsForSymbols(ctx context.Context, symbols []string) (map[string]domain.AssetInfo, error) {
	return nil, nil
}

func testHandler() *Handler {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make(map[string][]domain.Candle)
	for symbol, base := range map[string]float64{"BTC/USDT": 60000, "ETH/USDT": 3000} {
		series := make([]domain.Candle, 90)
		for i := range series {
			price := base * (1 + 0.02*math.Sin(float64(i)))
			series[i] = domain.Candle{Timestamp: start.Add(time.Duration(i) * 24 * time.Hour), Close: price}
		}
		candles[symbol] = series
	}

	provider := &fakePortfolios{portfolio: domain.Portfolio{
		TotalValueUSD: 20000,
		Positions: []domain.Position{
			{Symbol: "BTC", Exchange: "t", ValueUSD: 12000},
			{Symbol: "ETH", Exchange: "t", ValueUSD: 8000},
		},
		Source: domain.SourceLive,
	}}

	hist := history.New(&fakeSource{candles: candles}, zerolog.Nop())
	riskEngine := risk.New(hist, 0.02, "BTC", zerolog.Nop())
	optimizer := optimization.New(hist, liquidity.New(&fakeMeta{}, zerolog.Nop()), rebalancing.New(zerolog.Nop()), zerolog.Nop())
	svc := assessment.New(provider, riskEngine, optimizer, hist, "BTC", zerolog.Nop())
	return NewHandler(svc, zerolog.Nop())
}

func TestHandleRiskAnalysis(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/risk?user_id=u1", nil)
	rec := httptest.NewRecorder()

	h.HandleRiskAnalysis(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report assessment.RiskReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Success)
	assert.NotEmpty(t, report.ReportID)
}

func TestHandleOptimize_DefaultsToAdaptive(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/optimize", nil)
	rec := httptest.NewRecorder()

	h.HandleOptimize(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report assessment.OptimizationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, optimization.StrategyAdaptive, report.Result.Strategy)
}

func TestHandleOptimize_PostWithStrategy(t *testing.T) {
	h := testHandler()
	body := strings.NewReader(`{"strategy": "min_variance"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/assessment/optimize", body)
	rec := httptest.NewRecorder()

	h.HandleOptimize(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report assessment.OptimizationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, optimization.StrategyMinVariance, report.Result.Strategy)
}

func TestHandleOptimize_RejectsUnknownStrategy(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/optimize?strategy=moonshot", nil)
	rec := httptest.NewRecorder()

	h.HandleOptimize(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown optimization strategy")
}

func TestHandleStrategies(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/strategies", nil)
	rec := httptest.NewRecorder()

	h.HandleStrategies(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Strategies []string `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Strategies, 6)
}

func TestHandleCompleteAssessment(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/complete", nil)
	rec := httptest.NewRecorder()

	h.HandleCompleteAssessment(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report assessment.CompleteReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Success)
	assert.NotEmpty(t, report.Classification)
	assert.NotNil(t, report.Optimization, "flags default to true")
	assert.NotNil(t, report.Stress, "flags default to true")
}

func TestHandleCompleteAssessment_FlagsOff(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/complete?include_optimization=false&include_stress_test=false", nil)
	rec := httptest.NewRecorder()

	h.HandleCompleteAssessment(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report assessment.CompleteReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Success)
	assert.NotNil(t, report.Risk)
	assert.NotNil(t, report.Correlation)
	assert.Nil(t, report.Optimization)
	assert.Nil(t, report.Stress)
}

func TestHandleCompleteAssessment_RejectsBadFlag(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/complete?include_optimization=maybe", nil)
	rec := httptest.NewRecorder()

	h.HandleCompleteAssessment(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "include_optimization")
}

func TestHandleCorrelation_LookbackParam(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/correlation?lookback_days=30", nil)
	rec := httptest.NewRecorder()

	h.HandleCorrelation(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report assessment.CorrelationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Success)
}

func TestHandleCorrelation_RejectsBadLookback(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/assessment/correlation?lookback_days=soon", nil)
	rec := httptest.NewRecorder()

	h.HandleCorrelation(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "lookback_days")
}

func TestHandleStressTest_CustomScenarios(t *testing.T) {
	h := testHandler()
	body := strings.NewReader(`{"scenarios": [{"name": "exchange_hack", "major_shock": -0.1, "alt_shock": -0.1, "stable_shock": 0}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/assessment/stress", body)
	rec := httptest.NewRecorder()

	h.HandleStressTest(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var report assessment.StressReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.True(t, report.Success)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "exchange_hack", report.Outcomes[0].Scenario)
}
