// Package cache provides a TTL- and size-bounded cache for log/metric query
// results (spec §4.7), grounded on the original source's QueryCache
// (src/services/cache.py): separate keyspaces for logs and metrics, FIFO
// eviction of the oldest entry by creation time, lazy expiry on read.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codeready-toolchain/rca-service/pkg/metrics"
)

// Entry is a single cached value with its expiration bookkeeping.
type Entry struct {
	Value     any
	CreatedAt time.Time
	TTL       time.Duration
	HitCount  int
}

// Expired reports whether the entry has outlived its TTL.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// Stats tracks hit/miss/eviction counters for one keyspace.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
	Size      int
}

// HitRate returns Hits/(Hits+Misses), or 0 when there have been no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type keyspace struct {
	name    string
	mu      sync.Mutex
	entries map[string]*Entry
	stats   Stats
}

func newKeyspace(name string) *keyspace {
	return &keyspace{name: name, entries: make(map[string]*Entry)}
}

func (k *keyspace) cleanupExpired(now time.Time) {
	for key, e := range k.entries {
		if e.Expired(now) {
			delete(k.entries, key)
			k.stats.Evictions++
			metrics.CacheEvictionsTotal.WithLabelValues(k.name).Inc()
		}
	}
	k.stats.Size = len(k.entries)
}

func (k *keyspace) evictIfNeeded(maxEntries int) {
	if len(k.entries) < maxEntries {
		return
	}
	type kv struct {
		key     string
		created time.Time
	}
	all := make([]kv, 0, len(k.entries))
	for key, e := range k.entries {
		all = append(all, kv{key, e.CreatedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].created.Before(all[j].created) })
	toRemove := len(k.entries) - maxEntries + 1
	for i := 0; i < toRemove && i < len(all); i++ {
		delete(k.entries, all[i].key)
		k.stats.Evictions++
		metrics.CacheEvictionsTotal.WithLabelValues(k.name).Inc()
	}
	k.stats.Size = len(k.entries)
}

func (k *keyspace) get(key string, now time.Time) (any, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cleanupExpired(now)
	e, ok := k.entries[key]
	if !ok || e.Expired(now) {
		k.stats.Misses++
		return nil, false
	}
	e.HitCount++
	k.stats.Hits++
	return e.Value, true
}

func (k *keyspace) set(key string, value any, ttl time.Duration, maxEntries int, now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.evictIfNeeded(maxEntries)
	k.entries[key] = &Entry{Value: value, CreatedAt: now, TTL: ttl}
	k.stats.Size = len(k.entries)
}

func (k *keyspace) clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries = make(map[string]*Entry)
	k.stats.Size = 0
}

func (k *keyspace) snapshot() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.stats
}

// Cache is a process-wide, two-keyspace (logs/metrics) query result cache.
type Cache struct {
	MaxEntries int
	DefaultTTL time.Duration

	loki   *keyspace
	cortex *keyspace
}

// New constructs a Cache bounded to maxEntries per keyspace with the given
// default TTL. Defaults mirror the original (1000 entries, 300s TTL).
func New(maxEntries int, defaultTTL time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = 300 * time.Second
	}
	return &Cache{
		MaxEntries: maxEntries,
		DefaultTTL: defaultTTL,
		loki:       newKeyspace("loki"),
		cortex:     newKeyspace("cortex"),
	}
}

// Key hashes query parameters into a stable cache key.
func Key(query, start, end string, extra ...string) string {
	h := md5.New()
	fmt.Fprintf(h, "%s|%s|%s", query, start, end)
	sort.Strings(extra)
	for _, e := range extra {
		fmt.Fprintf(h, "|%s", e)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) GetLoki(key string) (any, bool)  { return c.loki.get(key, time.Now()) }
func (c *Cache) GetCortex(key string) (any, bool) { return c.cortex.get(key, time.Now()) }

func (c *Cache) SetLoki(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	c.loki.set(key, value, ttl, c.MaxEntries, time.Now())
}

func (c *Cache) SetCortex(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	c.cortex.set(key, value, ttl, c.MaxEntries, time.Now())
}

// Clear empties both keyspaces.
func (c *Cache) Clear() {
	c.loki.clear()
	c.cortex.clear()
}

// LokiStats and CortexStats return a point-in-time snapshot of hit/miss/eviction counters.
func (c *Cache) LokiStats() Stats   { return c.loki.snapshot() }
func (c *Cache) CortexStats() Stats { return c.cortex.snapshot() }
