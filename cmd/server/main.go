// Package main is the entry point for the Nautilus portfolio risk and
// optimization engine. It wires the data sources, the analysis engines, the
// HTTP API, and the background maintenance jobs, then runs until a shutdown
// signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkaragia/nautilus/internal/calculations"
	"github.com/dkaragia/nautilus/internal/config"
	"github.com/dkaragia/nautilus/internal/database"
	"github.com/dkaragia/nautilus/internal/modules/assessment"
	assessmenthandlers "github.com/dkaragia/nautilus/internal/modules/assessment/handlers"
	"github.com/dkaragia/nautilus/internal/modules/history"
	"github.com/dkaragia/nautilus/internal/modules/liquidity"
	"github.com/dkaragia/nautilus/internal/modules/optimization"
	"github.com/dkaragia/nautilus/internal/modules/rebalancing"
	"github.com/dkaragia/nautilus/internal/modules/risk"
	"github.com/dkaragia/nautilus/internal/scheduler"
	"github.com/dkaragia/nautilus/internal/server"
	"github.com/dkaragia/nautilus/internal/simulated"
	"github.com/dkaragia/nautilus/pkg/logger"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", version).Msg("Starting Nautilus")

	// Data sources. The simulated provider stands in for live exchange
	// connectors; it satisfies all three source interfaces.
	sources := simulated.New(log)

	// Optional persistent cache for price series.
	var cache *calculations.Cache
	if cfg.DataDir != "" {
		db, err := database.New(database.Config{Path: cfg.CacheDBPath(), Name: "calculations"})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open calculations database")
		}
		defer db.Close()

		cache, err = calculations.NewCache(db.Conn())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize calculations cache")
		}
	}

	historyOpts := []history.Option{history.WithTTL(cfg.PriceCacheTTL)}
	if cache != nil {
		historyOpts = append(historyOpts, history.WithPersistentCache(cache))
	}
	hist := history.New(sources, log, historyOpts...)

	riskEngine := risk.New(hist, cfg.RiskFreeRate, cfg.MarketSymbol, log)
	adjuster := liquidity.New(sources, log, liquidity.WithTTL(cfg.TierCacheTTL))
	generator := rebalancing.New(log)
	optimizer := optimization.New(hist, adjuster, generator, log,
		optimization.WithLookback(cfg.DefaultLookback),
		optimization.WithRiskFreeRate(cfg.RiskFreeRate),
	)
	assessor := assessment.New(sources, riskEngine, optimizer, hist, cfg.MarketSymbol, log,
		assessment.WithRiskLookback(cfg.RiskLookbackDays),
	)

	srv := server.New(server.Config{
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
		Log:               log,
		AssessmentHandler: assessmenthandlers.NewHandler(assessor, log),
		SystemHandlers:    server.NewSystemHandlers(version, log),
	})

	sched := scheduler.New(log)
	if cache != nil {
		if err := sched.AddJob("0 */10 * * * *", scheduler.NewCachePruneJob(cache, log)); err != nil {
			log.Error().Err(err).Msg("Failed to register cache prune job")
		}
	}
	prewarm := scheduler.NewMarketPrewarmJob(hist, cfg.MarketSymbol, cfg.RiskLookbackDays, log)
	if err := sched.AddJob("0 */5 * * * *", prewarm); err != nil {
		log.Error().Err(err).Msg("Failed to register market prewarm job")
	}
	sched.Start()
	defer sched.Stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Nautilus stopped")
}
