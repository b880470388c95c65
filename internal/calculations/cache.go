// Package calculations provides a SQLite-backed TTL cache for derived
// numerical artifacts (price series, covariance inputs). Only intermediate
// data lives here; reports and results are never persisted.
package calculations

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// TTLs per artifact family.
const (
	TTLPriceSeries = 15 * time.Minute
	TTLMarketProxy = 30 * time.Minute
)

// Cache provides msgpack-encoded key-value storage with expiration.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// NewCache creates a cache on an open database, creating the schema if needed.
func NewCache(db *sql.DB) (*Cache, error) {
	c := &Cache{db: db, now: time.Now}
	if err := c.ensureSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetClock overrides the cache clock. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Key builds a namespaced cache key from its parts.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Set stores a msgpack-encoded value with a TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	expiresAt := c.now().Add(ttl).Unix()
	_, err = c.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, data, expiresAt)
	return err
}

// Get retrieves a value into dest. Returns false when the key is missing,
// expired, or cannot be decoded.
func (c *Cache) Get(key string, dest interface{}) bool {
	var data []byte
	var expiresAt int64
	err := c.db.QueryRow("SELECT value, expires_at FROM cache WHERE key = ?", key).Scan(&data, &expiresAt)
	if err != nil {
		return false
	}
	if c.now().Unix() >= expiresAt {
		return false
	}
	return msgpack.Unmarshal(data, dest) == nil
}

// Delete removes a cache entry.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// PruneExpired removes all expired rows and returns how many were deleted.
func (c *Cache) PruneExpired() (int64, error) {
	res, err := c.db.Exec("DELETE FROM cache WHERE expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
