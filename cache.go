package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Key namespaces. A namespace fixes the value type for its keys; changing a
// value's shape requires a new namespace, not a version field.
const (
	clusteringKeyPrefix = "clustering:batch:"
	articleKeyPrefix    = "article:"
)

// TTL policy per namespace. Clustering results are stable for identical
// input, the TTL only bounds cache growth. Published article content is
// treated as immutable.
const (
	ClusteringResultTTL = 30 * 24 * time.Hour
	ArticleBodyTTL      = 365 * 24 * time.Hour
)

// CacheBackend is the raw transport under the fail-open cache. Read reports
// found=false for missing or expired keys.
type CacheBackend interface {
	Read(key string) (value []byte, found bool, err error)
	Write(key string, value []byte, expiresAt time.Time) error
	Remove(key string) (removed bool, err error)
}

// Cache is a fail-open key/value layer: transport errors are logged and
// degrade to "miss" or "not stored", never propagate. It is an optimization,
// never a source of truth, so every caller must work without it.
type Cache struct {
	backend CacheBackend
}

func NewCache(backend CacheBackend) *Cache {
	return &Cache{backend: backend}
}

// Get unmarshals the stored value into dest and reports whether the key was
// present. Transport and decode failures count as misses.
func (c *Cache) Get(key string, dest any) bool {
	data, found, err := c.backend.Read(key)
	if err != nil {
		log.Printf("cache get error key=%s err=%v", key, err)
		metricCacheMisses.Inc()
		return false
	}
	if !found {
		metricCacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("cache decode error key=%s err=%v", key, err)
		metricCacheMisses.Inc()
		return false
	}
	metricCacheHits.Inc()
	return true
}

// Set stores value under key with the given TTL and reports whether the
// write landed.
func (c *Cache) Set(key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache encode error key=%s err=%v", key, err)
		return false
	}
	if err := c.backend.Write(key, data, time.Now().UTC().Add(ttl)); err != nil {
		log.Printf("cache set error key=%s err=%v", key, err)
		return false
	}
	return true
}

// Delete removes key and reports whether a live entry was removed.
func (c *Cache) Delete(key string) bool {
	removed, err := c.backend.Remove(key)
	if err != nil {
		log.Printf("cache delete error key=%s err=%v", key, err)
		return false
	}
	return removed
}

// Exists reports whether key is present and unexpired.
func (c *Cache) Exists(key string) bool {
	_, found, err := c.backend.Read(key)
	if err != nil {
		log.Printf("cache exists error key=%s err=%v", key, err)
		return false
	}
	return found
}

// GetOrFetch serves key from the cache when present; otherwise it invokes
// producer, stores its result under key, and returns it via dest. There is
// no mutual exclusion: concurrent callers on a miss all invoke producer and
// all write. Values are deterministic per key, so last write wins and the
// duplicate work is wasteful, not wrong.
func (c *Cache) GetOrFetch(key string, dest any, ttl time.Duration, producer func() (any, error)) error {
	if c.Get(key, dest) {
		return nil
	}
	value, err := producer()
	if err != nil {
		return err
	}
	c.Set(key, value, ttl)

	// Round-trip through JSON so hits and misses hand back the same shape.
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// --- sqlite backend ---

type sqliteCacheBackend struct {
	db *sql.DB
}

func NewSQLiteCacheBackend(db *sql.DB) CacheBackend {
	return &sqliteCacheBackend{db: db}
}

func (b *sqliteCacheBackend) Read(key string) ([]byte, bool, error) {
	var value string
	var expiresAt time.Time
	err := b.db.QueryRow(
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !expiresAt.After(time.Now().UTC()) {
		// Expired rows read as absent; the sweeper reclaims the space.
		return nil, false, nil
	}
	return []byte(value), true, nil
}

func (b *sqliteCacheBackend) Write(key string, value []byte, expiresAt time.Time) error {
	_, err := b.db.Exec(
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, string(value), expiresAt.UTC(),
	)
	return err
}

func (b *sqliteCacheBackend) Remove(key string) (bool, error) {
	res, err := b.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SweepExpiredCacheEntries physically deletes rows past their TTL and
// returns how many it removed.
func SweepExpiredCacheEntries(db *sql.DB) (int64, error) {
	res, err := db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartCacheSweeper runs SweepExpiredCacheEntries on the configured
// schedule. The schedule is a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func StartCacheSweeper(cfg Config, db *sql.DB) {
	schedule := strings.TrimSpace(cfg.CacheSweepSchedule)
	if schedule == "" {
		log.Println("Cache sweeper disabled (cache_sweep_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid cache_sweep_schedule '%s': %v — sweeper disabled", schedule, err)
		return
	}

	log.Printf("Cache sweeper scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			time.Sleep(next.Sub(now))

			removed, sweepErr := SweepExpiredCacheEntries(db)
			if sweepErr != nil {
				log.Printf("Cache sweep error: %v", sweepErr)
				continue
			}
			log.Printf("Cache sweep removed=%d", removed)
		}
	}()
}
