package assessment

import (
	"github.com/dkaragia/nautilus/internal/domain"
	"github.com/dkaragia/nautilus/internal/modules/history"
)

// DefaultScenarios are the stock stress scenarios, loosely calibrated to
// historical crypto drawdown episodes.
func DefaultScenarios() []StressScenario {
	return []StressScenario{
		{
			Name:        "market_correction",
			Description: "Broad 20% correction across major assets",
			MajorShock:  -0.20,
			AltShock:    -0.30,
			StableShock: 0,
		},
		{
			Name:        "crypto_winter",
			Description: "Prolonged bear market on the scale of 2018/2022",
			MajorShock:  -0.55,
			AltShock:    -0.75,
			StableShock: -0.01,
		},
		{
			Name:        "flash_crash",
			Description: "Liquidity-driven intraday crash",
			MajorShock:  -0.30,
			AltShock:    -0.45,
			StableShock: 0,
		},
		{
			Name:        "altcoin_collapse",
			Description: "Rotation out of alts while majors hold",
			MajorShock:  -0.10,
			AltShock:    -0.50,
			StableShock: 0,
		},
		{
			Name:        "stablecoin_depeg",
			Description: "Major stablecoin loses its peg",
			MajorShock:  -0.15,
			AltShock:    -0.25,
			StableShock: -0.10,
		},
	}
}

var majorAssets = map[string]bool{"BTC": true, "ETH": true}

// applyScenario marks the portfolio to post-shock prices. Each position is
// shocked by its class: stablecoin, major, or alt.
func applyScenario(portfolio domain.Portfolio, scenario StressScenario) StressOutcome {
	before := portfolio.TotalValueUSD
	after := 0.0
	for _, pos := range portfolio.Positions {
		shock := scenario.AltShock
		base := history.BaseAsset(pos.Symbol)
		switch {
		case domain.IsStablecoin(base):
			shock = scenario.StableShock
		case majorAssets[base]:
			shock = scenario.MajorShock
		}
		after += pos.ValueUSD * (1 + shock)
	}

	outcome := StressOutcome{
		Scenario:       scenario.Name,
		Description:    scenario.Description,
		LossUSD:        before - after,
		PortfolioAfter: after,
	}
	if before > 0 {
		outcome.LossPct = (before - after) / before
	}
	return outcome
}
