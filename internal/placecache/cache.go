package placecache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeanthere/checkin-engine-go/internal/database"
	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/internal/spatial"
)

// DefaultTTL is how long a stored places-near result stays servable
const DefaultTTL = 24 * time.Hour

// DefaultMaxEntries bounds the on-device cache size. The oldest entries are
// pruned on write once the cap is exceeded.
const DefaultMaxEntries = 512

// Cache is a durable read cache for places-near queries. Coordinates are
// quantized to 4 decimal places (~11m grid) so queries within the same cell
// and radius share an entry. Every storage failure degrades to a miss:
// callers fall through to a live query, never an error.
type Cache struct {
	db         *sql.DB
	ttl        time.Duration
	maxEntries int
	log        zerolog.Logger
	now        func() time.Time
}

// New creates a cache over the given database. A nil db yields a disabled
// cache that always misses.
func New(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:         db,
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		log:        log,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests
func (c *Cache) SetNow(now func() time.Time) {
	c.now = now
}

// SetMaxEntries overrides the size cap, for tests
func (c *Cache) SetMaxEntries(n int) {
	c.maxEntries = n
}

// Key quantizes a query to its cache key
func Key(lat, lng float64, radius int) string {
	return fmt.Sprintf("%.4f:%.4f:%d", lat, lng, radius)
}

// Get returns the cached places for a query, or (nil, false) on a miss.
// Entries older than the TTL are treated as absent but are left in place
// for EvictExpired to remove.
func (c *Cache) Get(lat, lng float64, radius int) ([]models.Place, bool) {
	if c.db == nil {
		return nil, false
	}

	var placesJSON string
	var fetchedAt int64
	err := c.db.QueryRow(
		"SELECT places_json, fetched_at FROM place_cache WHERE cache_key = ?",
		Key(lat, lng, radius),
	).Scan(&placesJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache read failed, treating as miss")
		return nil, false
	}

	if c.now().UnixMilli()-fetchedAt > c.ttl.Milliseconds() {
		// Lazy expiry: stale rows are invisible until the sweep deletes them
		return nil, false
	}

	var places []models.Place
	if err := json.Unmarshal([]byte(placesJSON), &places); err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache entry corrupt, treating as miss")
		return nil, false
	}

	return places, true
}

// Put stores the result of a live query and prunes the oldest entries past
// the size cap in the same transaction. Last write wins on key collisions;
// entries are derived, re-fetchable data.
func (c *Cache) Put(lat, lng float64, radius int, places []models.Place) {
	if c.db == nil {
		return
	}

	placesJSON, err := json.Marshal(places)
	if err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache marshal failed, skipping store")
		return
	}

	err = database.Transaction(c.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO place_cache (cache_key, geohash, places_json, fetched_at)
			 VALUES (?, ?, ?, ?)`,
			Key(lat, lng, radius),
			spatial.CacheCellHash(lat, lng),
			string(placesJSON),
			c.now().UnixMilli(),
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(
			`DELETE FROM place_cache WHERE cache_key NOT IN (
				SELECT cache_key FROM place_cache ORDER BY fetched_at DESC LIMIT ?
			)`,
			c.maxEntries,
		)
		return err
	})
	if err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache write failed, skipping store")
	}
}

// EvictExpired removes every entry older than the TTL and returns the count
func (c *Cache) EvictExpired() int64 {
	if c.db == nil {
		return 0
	}

	cutoff := c.now().UnixMilli() - c.ttl.Milliseconds()
	res, err := c.db.Exec("DELETE FROM place_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache eviction sweep failed")
		return 0
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	if removed > 0 {
		c.log.Info().Int64("removed", removed).Msg("evicted expired cache entries")
	}
	return removed
}

// EvictArea removes all entries whose geohash cell falls under the given
// prefix, regardless of age. Used when the catalog for an area is known to
// have changed.
func (c *Cache) EvictArea(lat, lng float64) int64 {
	if c.db == nil {
		return 0
	}

	cell := spatial.CacheCellHash(lat, lng)
	res, err := c.db.Exec("DELETE FROM place_cache WHERE geohash = ?", cell)
	if err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache area eviction failed")
		return 0
	}
	removed, _ := res.RowsAffected()
	return removed
}

// Stats summarizes cache health for monitoring
func (c *Cache) Stats() models.CacheStats {
	if c.db == nil {
		return models.CacheStats{}
	}

	var stats models.CacheStats
	cutoff := c.now().UnixMilli() - c.ttl.Milliseconds()

	err := c.db.QueryRow("SELECT COUNT(*) FROM place_cache").Scan(&stats.TotalEntries)
	if err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache stats query failed")
		return models.CacheStats{}
	}

	err = c.db.QueryRow("SELECT COUNT(*) FROM place_cache WHERE fetched_at < ?", cutoff).Scan(&stats.StaleEntries)
	if err != nil {
		c.log.Warn().Str("error", err.Error()).Msg("cache stats query failed")
		return models.CacheStats{}
	}

	stats.FreshEntries = stats.TotalEntries - stats.StaleEntries
	if stats.TotalEntries > 0 {
		stats.HitRate = float64(stats.FreshEntries) / float64(stats.TotalEntries)
	}
	return stats
}
