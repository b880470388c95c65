package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkaragia/nautilus/internal/calculations"
	"github.com/dkaragia/nautilus/internal/modules/history"
)

// CachePruneJob evicts expired rows from the persistent calculation cache.
type CachePruneJob struct {
	cache *calculations.Cache
	log   zerolog.Logger
}

// NewCachePruneJob creates the prune job.
func NewCachePruneJob(cache *calculations.Cache, log zerolog.Logger) *CachePruneJob {
	return &CachePruneJob{
		cache: cache,
		log:   log.With().Str("job", "cache_prune").Logger(),
	}
}

func (j *CachePruneJob) Name() string { return "cache_prune" }

func (j *CachePruneJob) Run() error {
	pruned, err := j.cache.PruneExpired()
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.log.Info().Int64("rows", pruned).Msg("Pruned expired cache entries")
	}
	return nil
}

// MarketPrewarmJob keeps the market proxy's price series warm so beta and
// trend reads do not pay the fetch latency on user requests.
type MarketPrewarmJob struct {
	history      *history.Service
	marketSymbol string
	lookback     int
	log          zerolog.Logger
}

// NewMarketPrewarmJob creates the prewarm job.
func NewMarketPrewarmJob(hist *history.Service, marketSymbol string, lookback int, log zerolog.Logger) *MarketPrewarmJob {
	return &MarketPrewarmJob{
		history:      hist,
		marketSymbol: marketSymbol,
		lookback:     lookback,
		log:          log.With().Str("job", "market_prewarm").Logger(),
	}
}

func (j *MarketPrewarmJob) Name() string { return "market_prewarm" }

func (j *MarketPrewarmJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	points, err := j.history.Fetch(ctx, j.marketSymbol, j.lookback, history.DefaultTimeframe)
	if err != nil {
		return err
	}
	j.log.Debug().Int("points", len(points)).Str("symbol", j.marketSymbol).Msg("Market series warmed")
	return nil
}
