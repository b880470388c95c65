package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "BTC", cfg.MarketSymbol)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assert.Equal(t, 15*time.Minute, cfg.PriceCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.TierCacheTTL)
	assert.Equal(t, 180, cfg.DefaultLookback)
	assert.Equal(t, 252, cfg.RiskLookbackDays)
	assert.Empty(t, cfg.DataDir)
	assert.Empty(t, cfg.CacheDBPath(), "no data dir means no persistence")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NAUTILUS_PORT", "9000")
	t.Setenv("NAUTILUS_LOG_LEVEL", "debug")
	t.Setenv("NAUTILUS_RISK_FREE_RATE", "0.035")
	t.Setenv("NAUTILUS_PRICE_CACHE_TTL", "5m")
	t.Setenv("NAUTILUS_DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.035, cfg.RiskFreeRate)
	assert.Equal(t, 5*time.Minute, cfg.PriceCacheTTL)
	assert.True(t, cfg.DevMode)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("NAUTILUS_PORT", "-1")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ImplausibleRiskFreeRate(t *testing.T) {
	t.Setenv("NAUTILUS_RISK_FREE_RATE", "0.9")
	_, err := Load()
	assert.Error(t, err)
}

func TestCacheDBPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NAUTILUS_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "calculations.db"), cfg.CacheDBPath())
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("NAUTILUS_PORT", "not-a-number")
	t.Setenv("NAUTILUS_PRICE_CACHE_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.PriceCacheTTL)
}
