package history

import (
	"strings"

	"github.com/dkaragia/nautilus/internal/domain"
)

// stablecoinPairs maps stablecoin base assets to quote pairs that actually
// move. Quoting a stablecoin against USDT would produce a flat series, so
// each pegged asset gets a dedicated mapping.
var stablecoinPairs = map[string]string{
	"USDT": "USDT/DAI",
	"USDC": "USDC/USDT",
	"DAI":  "DAI/USDT",
	"BUSD": "BUSD/USDT",
	"TUSD": "TUSD/USDT",
	"USDP": "USDP/USDT",
	"GUSD": "GUSD/USDT",
	"FRAX": "FRAX/USDT",
}

// NormalizeSymbol turns a bare asset symbol into the trading pair queried
// from the price source. Already-delimited pairs pass through unchanged.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return s
	}

	if strings.ContainsAny(s, "/-_") {
		return s
	}

	if pair, ok := stablecoinPairs[s]; ok {
		return pair
	}

	if domain.IsStablecoin(s) {
		return s + "/DAI"
	}

	return s + "/USDT"
}

// BaseAsset returns the base asset of a normalized pair ("BTC/USDT" -> "BTC").
func BaseAsset(pair string) string {
	for _, sep := range []string{"/", "-", "_"} {
		if i := strings.Index(pair, sep); i > 0 {
			return pair[:i]
		}
	}
	return pair
}
