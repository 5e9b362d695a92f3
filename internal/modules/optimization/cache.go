package optimization

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/invexis/invexis/pkg/formulas"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS optimization_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Cache persists optimization results in the calculations database, keyed by
// a hash of the symbol set and engine parameters. It replaces the ambient
// "last initialized symbols" mutable globals of older designs: the cache key
// is derived entirely from the request, so the engine stays stateless and
// safely callable from concurrent requests.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates the cache table if needed and returns the cache.
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) (*Cache, error) {
	if _, err := db.Exec(cacheSchema); err != nil {
		return nil, fmt.Errorf("failed to create optimization cache table: %w", err)
	}
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "optimization_cache").Logger(),
	}, nil
}

// cachedResult is the msgpack serialization form of Result (SymDense does not
// serialize directly).
type cachedResult struct {
	Symbols          []string           `msgpack:"symbols"`
	PosteriorReturns []float64          `msgpack:"posterior_returns"`
	PosteriorCov     [][]float64        `msgpack:"posterior_cov"`
	OptimalWeights   map[string]float64 `msgpack:"optimal_weights"`
	AlignedDays      int                `msgpack:"aligned_days"`
	Degraded         bool               `msgpack:"degraded"`
}

// HashKey creates a deterministic cache key from a symbol set and a parameter
// fingerprint. Symbols are sorted so the key is order-independent.
func HashKey(symbols []string, fingerprint string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, ",") + "|" + fingerprint))
	return hex.EncodeToString(h[:16])
}

// Get returns the cached result for key, or nil on miss or expiry.
func (c *Cache) Get(key string) *Result {
	var blob []byte
	var createdAt int64
	err := c.db.QueryRow(`SELECT value, created_at FROM optimization_cache WHERE key = ?`, key).
		Scan(&blob, &createdAt)
	if err != nil {
		return nil
	}
	if time.Since(time.Unix(createdAt, 0)) > c.ttl {
		_ = c.Evict(key)
		return nil
	}

	var cached cachedResult
	if err := msgpack.Unmarshal(blob, &cached); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached result, evicting")
		_ = c.Evict(key)
		return nil
	}

	return &Result{
		Symbols:          cached.Symbols,
		PosteriorReturns: cached.PosteriorReturns,
		PosteriorCov:     formulas.SymFromRows(cached.PosteriorCov),
		OptimalWeights:   cached.OptimalWeights,
		AlignedDays:      cached.AlignedDays,
		Degraded:         cached.Degraded,
	}
}

// Put stores a result under key.
func (c *Cache) Put(key string, result *Result) error {
	blob, err := msgpack.Marshal(cachedResult{
		Symbols:          result.Symbols,
		PosteriorReturns: result.PosteriorReturns,
		PosteriorCov:     formulas.RowsFromSym(result.PosteriorCov),
		OptimalWeights:   result.OptimalWeights,
		AlignedDays:      result.AlignedDays,
		Degraded:         result.Degraded,
	})
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO optimization_cache (key, value, created_at) VALUES (?, ?, ?)`,
		key, blob, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// Evict removes a cache entry. Failed initializations evict so callers never
// see stale derived state for a symbol set.
func (c *Cache) Evict(key string) error {
	_, err := c.db.Exec(`DELETE FROM optimization_cache WHERE key = ?`, key)
	return err
}
