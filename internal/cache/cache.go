package cache

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rohankatakam/repolens/internal/logging"
)

// Default limits for analysis results
const (
	DefaultTTL             = 10 * time.Minute
	DefaultCapacity        = 100
	DefaultCleanupInterval = time.Minute
)

// Entry is an immutable cached value. A later Set for the same key
// replaces the entry instead of mutating it.
type Entry[T any] struct {
	Key      string
	Value    T
	StoredAt time.Time
}

// Config bounds a Cache in time and size
type Config struct {
	TTL             time.Duration
	Capacity        int           // <= 0 disables the size bound
	CleanupInterval time.Duration // background sweep of expired entries, 0 disables it
	Name            string        // used in log fields only

	// Now overrides the clock (tests). Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the limits used for analysis reports
func DefaultConfig() Config {
	return Config{
		TTL:             DefaultTTL,
		Capacity:        DefaultCapacity,
		CleanupInterval: DefaultCleanupInterval,
		Name:            "reports",
	}
}

// Cache is a process-local key/value store bounded by TTL and capacity.
// Keys are used verbatim; callers normalize them.
type Cache[T any] struct {
	store    *gocache.Cache
	ttl      time.Duration
	capacity int
	now      func() time.Time
	logger   *slog.Logger

	mu sync.Mutex // serializes writers so cleanup sees a stable view
}

// New creates a cache with the given limits
func New[T any](cfg Config) *Cache[T] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &Cache[T]{
		// go-cache drops items on its own schedule; our clock stays the
		// source of truth for freshness.
		store:    gocache.New(cfg.TTL, cfg.CleanupInterval),
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		now:      cfg.Now,
		logger:   logging.Component("cache").With("cache", cfg.Name),
	}
}

// Get returns the value for key, whether it was found, and its age.
// Entries older than the TTL are reported as missing but are not removed.
func (c *Cache[T]) Get(key string) (T, bool, time.Duration) {
	var zero T

	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false, 0
	}

	entry, ok := raw.(Entry[T])
	if !ok {
		return zero, false, 0
	}

	age := c.now().Sub(entry.StoredAt)
	if age > c.ttl {
		return zero, false, 0
	}

	return entry.Value, true, age
}

// Set stores value under key and runs a cleanup pass
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Set(key, Entry[T]{
		Key:      key,
		Value:    value,
		StoredAt: c.now(),
	}, c.ttl)

	c.cleanupLocked()
}

// Cleanup removes expired entries, then the oldest entries until the
// cache is within capacity. It returns the number of entries removed.
func (c *Cache[T]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanupLocked()
}

func (c *Cache[T]) cleanupLocked() int {
	c.store.DeleteExpired()

	now := c.now()
	removed := 0

	items := c.store.Items()
	live := make([]Entry[T], 0, len(items))
	for key, item := range items {
		entry, ok := item.Object.(Entry[T])
		if !ok || now.Sub(entry.StoredAt) > c.ttl {
			c.store.Delete(key)
			removed++
			continue
		}
		live = append(live, entry)
	}

	if c.capacity > 0 && len(live) > c.capacity {
		sort.Slice(live, func(i, j int) bool {
			return live[i].StoredAt.Before(live[j].StoredAt)
		})
		for _, entry := range live[:len(live)-c.capacity] {
			c.store.Delete(entry.Key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("cache cleanup", "removed", removed, "size", c.store.ItemCount())
	}
	return removed
}

// Len returns the number of stored entries, including expired entries
// not yet swept
func (c *Cache[T]) Len() int {
	return c.store.ItemCount()
}

// Keys returns the currently stored keys in no particular order
func (c *Cache[T]) Keys() []string {
	items := c.store.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

// Flush removes every entry
func (c *Cache[T]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Flush()
}
