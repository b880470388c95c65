// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string        // Base directory for the calculations cache database ("" disables persistence)
	LogLevel         string        // debug, info, warn, error
	Port             int           // HTTP listen port
	DevMode          bool          // Pretty logging, relaxed CORS
	RiskFreeRate     float64       // Annual risk-free rate used by Sharpe/Kelly (decimal)
	MarketSymbol     string        // Market proxy for beta/alpha (BTC by default)
	PriceCacheTTL    time.Duration // TTL for in-memory price series entries
	TierCacheTTL     time.Duration // TTL for liquidity tier entries
	DefaultLookback  int           // Default lookback days for optimizer inputs
	RiskLookbackDays int           // Default lookback days for risk metrics
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:          getEnv("NAUTILUS_DATA_DIR", ""),
		LogLevel:         getEnv("NAUTILUS_LOG_LEVEL", "info"),
		Port:             getEnvInt("NAUTILUS_PORT", 8090),
		DevMode:          getEnvBool("NAUTILUS_DEV_MODE", false),
		RiskFreeRate:     getEnvFloat("NAUTILUS_RISK_FREE_RATE", 0.02),
		MarketSymbol:     getEnv("NAUTILUS_MARKET_SYMBOL", "BTC"),
		PriceCacheTTL:    getEnvDuration("NAUTILUS_PRICE_CACHE_TTL", 15*time.Minute),
		TierCacheTTL:     getEnvDuration("NAUTILUS_TIER_CACHE_TTL", 10*time.Minute),
		DefaultLookback:  getEnvInt("NAUTILUS_DEFAULT_LOOKBACK", 180),
		RiskLookbackDays: getEnvInt("NAUTILUS_RISK_LOOKBACK", 252),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.RiskFreeRate < 0 || cfg.RiskFreeRate > 0.5 {
		return nil, fmt.Errorf("implausible risk-free rate: %v", cfg.RiskFreeRate)
	}

	if cfg.DataDir != "" {
		abs, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve data dir: %w", err)
		}
		cfg.DataDir = abs
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	return cfg, nil
}

// CacheDBPath returns the path of the calculations cache database, or ""
// when persistence is disabled.
func (c *Config) CacheDBPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "calculations.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
