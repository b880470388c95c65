// Package history fetches and memoizes per-symbol close-price series.
package history

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkaragia/nautilus/internal/calculations"
	"github.com/dkaragia/nautilus/internal/domain"
)

const (
	// DefaultLookback is the number of daily bars fetched when the caller
	// does not specify a window.
	DefaultLookback = 180

	// DefaultTimeframe is the bar interval used across the engine.
	DefaultTimeframe = "1d"

	// DefaultTTL bounds how stale a memoized series may get.
	DefaultTTL = 15 * time.Minute
)

// PricePoint is a single close observation of a series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp" msgpack:"t"`
	Close     float64   `json:"close" msgpack:"c"`
}

type cacheKey struct {
	symbol    string
	timeframe string
	lookback  int
}

type cacheEntry struct {
	points    []PricePoint
	fetchedAt time.Time
}

// Service memoizes close-price series per (normalized symbol, timeframe,
// lookback). Entries are replaced atomically under the lock, so concurrent
// readers across requests never observe partial state.
type Service struct {
	source  domain.HistoricalPriceSource
	persist *calculations.Cache // optional second level, survives restarts
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock overrides the service clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPersistentCache layers a calculations cache under the in-memory map so
// warm series survive process restarts.
func WithPersistentCache(cache *calculations.Cache) Option {
	return func(s *Service) { s.persist = cache }
}

// New creates a price cache over the given source.
func New(source domain.HistoricalPriceSource, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		source:  source,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     log.With().Str("component", "history").Logger(),
		entries: make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns an ordered close-price series for a symbol, possibly empty.
// Bare asset symbols are normalized to trading pairs before hitting the
// source. An unknown symbol yields an empty series, not an error.
func (s *Service) Fetch(ctx context.Context, symbol string, lookback int, timeframe string) ([]PricePoint, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}

	normalized := NormalizeSymbol(symbol)
	key := cacheKey{symbol: normalized, timeframe: timeframe, lookback: lookback}

	if points, ok := s.lookup(key); ok {
		s.log.Debug().Str("symbol", normalized).Msg("Price series cache hit")
		return points, nil
	}

	candles, err := s.source.GetHistoricalOHLCV(ctx, normalized, timeframe, lookback)
	if err != nil {
		return nil, err
	}

	points := normalizeSeries(candles, lookback)
	s.store(key, points)

	s.log.Debug().
		Str("symbol", normalized).
		Int("points", len(points)).
		Msg("Fetched price series")

	return points, nil
}

// FetchAll fans out one goroutine per distinct symbol and gathers the
// results. A failing symbol is logged and dropped; it never aborts or delays
// the error handling of its siblings. Symbols without data are absent from
// the returned map.
func (s *Service) FetchAll(ctx context.Context, symbols []string, lookback int, timeframe string) map[string][]PricePoint {
	results := make(map[string][]PricePoint, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			points, err := s.Fetch(ctx, sym, lookback, timeframe)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", sym).Msg("Failed to fetch price series, dropping symbol")
				return
			}
			if len(points) == 0 {
				return
			}
			mu.Lock()
			results[sym] = points
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}

func (s *Service) lookup(key cacheKey) ([]PricePoint, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.fetchedAt) < s.ttl {
		return entry.points, true
	}

	if s.persist != nil {
		var points []PricePoint
		if s.persist.Get(persistKey(key), &points) {
			s.store(key, points)
			return points, true
		}
	}

	return nil, false
}

func (s *Service) store(key cacheKey, points []PricePoint) {
	s.mu.Lock()
	s.entries[key] = cacheEntry{points: points, fetchedAt: s.now()}
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Set(persistKey(key), points, calculations.TTLPriceSeries); err != nil {
			s.log.Warn().Err(err).Str("symbol", key.symbol).Msg("Failed to persist price series")
		}
	}
}

func persistKey(key cacheKey) string {
	return calculations.Key("prices", key.symbol, key.timeframe, strconv.Itoa(key.lookback))
}

// normalizeSeries deduplicates, sorts, and truncates a candle series to the
// lookback window, keeping only timestamps and closes.
func normalizeSeries(candles []domain.Candle, lookback int) []PricePoint {
	if len(candles) == 0 {
		return nil
	}

	// Last write wins for duplicate timestamps.
	byTime := make(map[int64]PricePoint, len(candles))
	for _, c := range candles {
		if c.Close <= 0 {
			continue
		}
		ts := c.Timestamp.Unix()
		byTime[ts] = PricePoint{Timestamp: c.Timestamp, Close: c.Close}
	}

	points := make([]PricePoint, 0, len(byTime))
	for _, p := range byTime {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	if len(points) > lookback {
		points = points[len(points)-lookback:]
	}
	return points
}

// Closes extracts the close values of a series in order.
func Closes(points []PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}
