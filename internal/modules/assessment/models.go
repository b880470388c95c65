// Package assessment orchestrates the analysis engines into user-facing
// reports: risk analysis, allocation optimization, correlation analysis,
// stress testing, and the combined health assessment.
package assessment

import (
	"time"

	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/optimization"
	"github.com/dkaragia/nautilus/internal/modules/risk"
)

// Health classifications, ordered best to worst.
const (
	HealthHealthy        = "HEALTHY"
	HealthNeedsAttention = "NEEDS_ATTENTION"
	HealthHighRisk       = "HIGH_RISK"
)

// ReportMeta is the envelope shared by every report. Success is false only
// when the report could not be produced at all (no portfolio, not enough
// positions); partial data degrades confidence, not success.
type ReportMeta struct {
	ReportID    string                 `json:"report_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Source      domain.PortfolioSource `json:"portfolio_source"`
	Success     bool                   `json:"success"`
	Reason      string                 `json:"reason,omitempty"`
}

// RiskReport carries the portfolio risk metrics plus human-readable flags.
type RiskReport struct {
	ReportMeta
	PortfolioValue float64      `json:"portfolio_value"`
	Positions      int          `json:"positions"`
	Metrics        risk.Metrics `json:"metrics"`
	Flags          []string     `json:"flags,omitempty"`
}

// OptimizationReport wraps a single optimization result.
type OptimizationReport struct {
	ReportMeta
	Result optimization.Result `json:"result"`
}

// CorrelationPair is the correlation between two held assets.
type CorrelationPair struct {
	SymbolA     string  `json:"symbol_a"`
	SymbolB     string  `json:"symbol_b"`
	Correlation float64 `json:"correlation"`
}

// CorrelationReport summarizes pairwise return correlations across the
// portfolio. Requires at least two positions.
type CorrelationReport struct {
	ReportMeta
	Pairs              []CorrelationPair `json:"pairs"`
	AverageCorrelation float64           `json:"average_correlation"`
	HighestPair        *CorrelationPair  `json:"highest_pair,omitempty"`
	Commentary         string            `json:"commentary,omitempty"`
}

// StressScenario is a named set of percentage shocks applied per asset
// class. Shock values are fractional losses, e.g. -0.30 for a 30% drop.
type StressScenario struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	MajorShock  float64 `json:"major_shock"`
	AltShock    float64 `json:"alt_shock"`
	StableShock float64 `json:"stable_shock"`
}

// StressOutcome is one scenario applied to the current portfolio.
type StressOutcome struct {
	Scenario       string  `json:"scenario"`
	Description    string  `json:"description"`
	LossUSD        float64 `json:"loss_usd"`
	LossPct        float64 `json:"loss_pct"`
	PortfolioAfter float64 `json:"portfolio_after"`
}

// StressReport is the full scenario sweep.
type StressReport struct {
	ReportMeta
	PortfolioValue float64         `json:"portfolio_value"`
	Outcomes       []StressOutcome `json:"outcomes"`
	WorstCase      *StressOutcome  `json:"worst_case,omitempty"`
}

// MarketTrend is a lightweight read of the market proxy used as context in
// the complete assessment.
type MarketTrend struct {
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	RSI       float64 `json:"rsi"`
	AboveSMA  bool    `json:"above_sma"`
}

// CompleteReport combines every analysis plus the 0-10 health score.
type CompleteReport struct {
	ReportMeta
	Risk           *RiskReport         `json:"risk,omitempty"`
	Optimization   *OptimizationReport `json:"optimization,omitempty"`
	Correlation    *CorrelationReport  `json:"correlation,omitempty"`
	Stress         *StressReport       `json:"stress,omitempty"`
	MarketTrend    *MarketTrend        `json:"market_trend,omitempty"`
	HealthScore    float64             `json:"health_score"`
	Classification string              `json:"classification"`
	Flags          []string            `json:"flags,omitempty"`
}
