package assessment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/history"
	"github.com/dkaragia/nautilus/internal/modules/optimization"
	"github.com/dkaragia/nautilus/internal/modules/risk"
	"github.com/dkaragia/nautilus/pkg/formulas"
)

// Service produces the user-facing reports. Every method returns a report
// value, never an error: failures are encoded in the report's Success and
// Reason fields so callers get a well-formed response in all cases.
type Service struct {
	portfolios domain.PortfolioProvider
	risk       *risk.Engine
	optimizer  *optimization.Engine
	history    *history.Service

	marketSymbol string
	riskLookback int
	scenarios    []StressScenario

	now func() time.Time
	log zerolog.Logger
}

// Option configures the assessment service.
type Option func(*Service)

// WithScenarios replaces the default stress scenarios.
func WithScenarios(scenarios []StressScenario) Option {
	return func(s *Service) {
		if len(scenarios) > 0 {
			s.scenarios = scenarios
		}
	}
}

// WithRiskLookback overrides the risk metrics lookback window in days.
func WithRiskLookback(days int) Option {
	return func(s *Service) {
		if days > 1 {
			s.riskLookback = days
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New wires the assessment service.
func New(portfolios domain.PortfolioProvider, riskEngine *risk.Engine, optimizer *optimization.Engine, hist *history.Service, marketSymbol string, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		portfolios:   portfolios,
		risk:         riskEngine,
		optimizer:    optimizer,
		history:      hist,
		marketSymbol: marketSymbol,
		riskLookback: risk.DefaultLookbackDays,
		scenarios:    DefaultScenarios(),
		now:          time.Now,
		log:          log.With().Str("component", "assessment").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) meta(source domain.PortfolioSource) ReportMeta {
	return ReportMeta{
		ReportID:    uuid.NewString(),
		GeneratedAt: s.now().UTC(),
		Source:      source,
		Success:     true,
	}
}

func (s *Service) failed(source domain.PortfolioSource, reason string) ReportMeta {
	meta := s.meta(source)
	meta.Success = false
	meta.Reason = reason
	return meta
}

// loadPortfolio fetches the user's consolidated portfolio. A provider error
// is folded into an empty portfolio so report methods degrade instead of
// failing.
func (s *Service) loadPortfolio(ctx context.Context, userID string) domain.Portfolio {
	portfolio, err := s.portfolios.GetConsolidatedPortfolio(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load portfolio")
		return domain.Portfolio{Source: domain.SourceEmpty}
	}
	return portfolio
}

// RiskAnalysis computes the portfolio risk metrics with explanatory flags.
func (s *Service) RiskAnalysis(ctx context.Context, userID string) RiskReport {
	portfolio := s.loadPortfolio(ctx, userID)
	if portfolio.IsEmpty() {
		return RiskReport{ReportMeta: s.failed(portfolio.Source, "portfolio has no positions")}
	}

	metrics := s.risk.CalculatePortfolioRisk(ctx, portfolio, s.riskLookback)
	return RiskReport{
		ReportMeta:     s.meta(portfolio.Source),
		PortfolioValue: portfolio.TotalValueUSD,
		Positions:      len(portfolio.Positions),
		Metrics:        metrics,
		Flags:          riskFlags(metrics),
	}
}

// OptimizeAllocation runs one optimization strategy for the user.
func (s *Service) OptimizeAllocation(ctx context.Context, userID string, strategy optimization.Strategy, constraints *optimization.Constraints) OptimizationReport {
	portfolio := s.loadPortfolio(ctx, userID)
	if portfolio.IsEmpty() {
		return OptimizationReport{ReportMeta: s.failed(portfolio.Source, "portfolio has no positions")}
	}

	result := s.optimizer.Optimize(ctx, portfolio, strategy, constraints)
	return OptimizationReport{
		ReportMeta: s.meta(portfolio.Source),
		Result:     result,
	}
}

// CorrelationAnalysis computes pairwise return correlations across held
// assets over the given window (0 falls back to the risk lookback).
// Requires at least two positions and two symbols with usable history.
func (s *Service) CorrelationAnalysis(ctx context.Context, userID string, lookbackDays int) CorrelationReport {
	if lookbackDays <= 1 {
		lookbackDays = s.riskLookback
	}
	portfolio := s.loadPortfolio(ctx, userID)
	if portfolio.IsEmpty() {
		return CorrelationReport{ReportMeta: s.failed(portfolio.Source, "portfolio has no positions")}
	}
	symbols := portfolio.Symbols()
	if len(symbols) < 2 {
		return CorrelationReport{ReportMeta: s.failed(portfolio.Source, "correlation analysis requires at least two positions")}
	}

	series := s.history.FetchAll(ctx, symbols, lookbackDays, history.DefaultTimeframe)
	returns := make(map[string][]float64, len(series))
	for _, sym := range symbols {
		closes := history.Closes(series[sym])
		if len(closes) >= 3 {
			returns[sym] = formulas.CalculateReturns(closes)
		}
	}
	if len(returns) < 2 {
		return CorrelationReport{ReportMeta: s.failed(portfolio.Source, "not enough historical data for correlation analysis")}
	}

	report := CorrelationReport{ReportMeta: s.meta(portfolio.Source)}
	sum := 0.0
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			a, okA := returns[symbols[i]]
			b, okB := returns[symbols[j]]
			if !okA || !okB {
				continue
			}
			n := len(a)
			if len(b) < n {
				n = len(b)
			}
			corr := formulas.Correlation(a[len(a)-n:], b[len(b)-n:])
			pair := CorrelationPair{SymbolA: symbols[i], SymbolB: symbols[j], Correlation: corr}
			report.Pairs = append(report.Pairs, pair)
			sum += corr
			if report.HighestPair == nil || corr > report.HighestPair.Correlation {
				p := pair
				report.HighestPair = &p
			}
		}
	}
	if len(report.Pairs) == 0 {
		return CorrelationReport{ReportMeta: s.failed(portfolio.Source, "not enough historical data for correlation analysis")}
	}

	report.AverageCorrelation = sum / float64(len(report.Pairs))
	report.Commentary = correlationCommentary(report.AverageCorrelation)
	return report
}

// StressTest applies the given scenarios to the current portfolio; a nil
// or empty list runs the configured defaults.
func (s *Service) StressTest(ctx context.Context, userID string, scenarios []StressScenario) StressReport {
	if len(scenarios) == 0 {
		scenarios = s.scenarios
	}
	portfolio := s.loadPortfolio(ctx, userID)
	if portfolio.IsEmpty() {
		return StressReport{ReportMeta: s.failed(portfolio.Source, "portfolio has no positions")}
	}

	report := StressReport{
		ReportMeta:     s.meta(portfolio.Source),
		PortfolioValue: portfolio.TotalValueUSD,
	}
	for _, scenario := range scenarios {
		outcome := applyScenario(portfolio, scenario)
		report.Outcomes = append(report.Outcomes, outcome)
		if report.WorstCase == nil || outcome.LossUSD > report.WorstCase.LossUSD {
			o := outcome
			report.WorstCase = &o
		}
	}
	return report
}

// CompleteAssessment runs the analyses and condenses them into the 0-10
// health score. Risk is always computed and correlation whenever the
// portfolio has at least two positions; the optimization and stress
// sections are only attached when their flag is set and are left null
// otherwise. Sections that cannot be produced (e.g. correlation on a
// single-asset portfolio) are omitted rather than failing the report.
func (s *Service) CompleteAssessment(ctx context.Context, userID string, includeOptimization, includeStressTest bool) CompleteReport {
	portfolio := s.loadPortfolio(ctx, userID)
	if portfolio.IsEmpty() {
		return CompleteReport{
			ReportMeta:     s.failed(portfolio.Source, "portfolio has no positions"),
			Classification: HealthHighRisk,
		}
	}

	report := CompleteReport{ReportMeta: s.meta(portfolio.Source)}

	riskReport := s.RiskAnalysis(ctx, userID)
	report.Risk = &riskReport

	if includeOptimization {
		optReport := s.OptimizeAllocation(ctx, userID, optimization.StrategyAdaptive, nil)
		report.Optimization = &optReport
	}

	if corr := s.CorrelationAnalysis(ctx, userID, 0); corr.Success {
		report.Correlation = &corr
	}

	if includeStressTest {
		stress := s.StressTest(ctx, userID, nil)
		report.Stress = &stress
	}

	report.MarketTrend = s.marketTrend(ctx)

	score, flags := healthScore(riskReport.Metrics, portfolio.CurrentWeights())
	if report.Correlation != nil && report.Correlation.AverageCorrelation > 0.85 {
		score = math.Max(0, score-0.5)
		flags = append(flags, "Held assets are highly correlated, diversification benefit is minimal")
	}
	report.HealthScore = score
	report.Classification = classify(score)
	report.Flags = flags
	return report
}

// riskFlags derives human-readable warnings from the metrics alone.
func riskFlags(m risk.Metrics) []string {
	var flags []string
	if m.SharpeRatio < 0 {
		flags = append(flags, "Risk-adjusted return is negative over the lookback window")
	}
	if m.Beta > 1.3 {
		flags = append(flags, fmt.Sprintf("Portfolio beta of %.2f amplifies market moves", m.Beta))
	}
	if m.ExpectedShortfall > 0.10 {
		flags = append(flags, fmt.Sprintf("Expected shortfall of %.1f%% on tail days", m.ExpectedShortfall*100))
	}
	return flags
}

func correlationCommentary(avg float64) string {
	switch {
	case avg > 0.85:
		return "Assets move almost in lockstep; the portfolio behaves like a single position."
	case avg > 0.60:
		return "Correlations are elevated; diversification benefit is limited."
	case avg > 0.30:
		return "Moderate correlations; the portfolio retains some diversification."
	default:
		return "Correlations are low; the portfolio is well diversified."
	}
}
