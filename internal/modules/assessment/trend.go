package assessment

import (
	"context"

	"github.com/markcheno/go-talib"

	"github.com/dkaragia/nautilus/internal/modules/history"
)

const (
	trendSMAPeriod = 50
	trendRSIPeriod = 14
)

// marketTrend reads the market proxy's recent closes and classifies the
// trend with a 50-period SMA and 14-period RSI. Returns nil when there is
// not enough history; the complete assessment simply omits the section.
func (s *Service) marketTrend(ctx context.Context) *MarketTrend {
	points, err := s.history.Fetch(ctx, s.marketSymbol, trendSMAPeriod*2, history.DefaultTimeframe)
	if err != nil {
		s.log.Debug().Err(err).Str("symbol", s.marketSymbol).Msg("Market trend unavailable")
		return nil
	}
	closes := history.Closes(points)
	if len(closes) <= trendSMAPeriod {
		return nil
	}

	sma := talib.Sma(closes, trendSMAPeriod)
	rsi := talib.Rsi(closes, trendRSIPeriod)

	last := len(closes) - 1
	trend := &MarketTrend{
		Symbol:   s.marketSymbol,
		RSI:      rsi[last],
		AboveSMA: closes[last] > sma[last],
	}

	switch {
	case trend.AboveSMA && trend.RSI > 55:
		trend.Direction = "bullish"
	case !trend.AboveSMA && trend.RSI < 45:
		trend.Direction = "bearish"
	default:
		trend.Direction = "neutral"
	}
	return trend
}
