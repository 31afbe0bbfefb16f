package urlcheck

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ResultCache memoizes validation verdicts keyed by the original URL string.
// Implementations must be safe for concurrent use.
type ResultCache interface {
	Get(url string) (valid bool, ok bool)
	Put(url string, valid bool)
	Reset()
}

// MemoryCache is a bounded in-process ResultCache. On overflow the whole map
// is cleared rather than evicting entries individually; a burst of misses at
// the boundary is acceptable, per-key eviction bookkeeping is not worth it
// for a cache this small.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]bool
	maxEntries int
	flushes    int
}

// NewMemoryCache creates a bounded cache. maxEntries <= 0 selects the default
// bound of 100.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &MemoryCache{
		entries:    make(map[string]bool),
		maxEntries: maxEntries,
	}
}

// Get returns the cached verdict for a URL
func (c *MemoryCache) Get(url string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	valid, ok := c.entries[url]
	return valid, ok
}

// Put stores a verdict, clearing the cache first if it is full
func (c *MemoryCache) Put(url string, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[url]; !exists {
			c.entries = make(map[string]bool)
			c.flushes++
		}
	}
	c.entries[url] = valid
}

// Reset clears the cache
func (c *MemoryCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]bool)
}

// Len returns the current number of entries
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flushes returns how many times the cache has been cleared on overflow
func (c *MemoryCache) Flushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

// RedisCache is a ResultCache backed by Redis, for horizontally scaled
// deployments where each instance keeping its own verdicts would let an
// endpoint flip-flop between instances. Entries carry a TTL instead of the
// clear-on-overflow rule; Redis owns eviction.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed ResultCache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client: client,
		prefix: "urlcheck:",
		ttl:    ttl,
	}
}

// Get returns the cached verdict for a URL
func (c *RedisCache) Get(url string) (bool, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefix+url).Result()
	if err != nil {
		// Cache miss and Redis being down look the same to the caller; the
		// validator just re-derives the verdict.
		return false, false
	}
	return val == "1", true
}

// Put stores a verdict with the configured TTL
func (c *RedisCache) Put(url string, valid bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val := "0"
	if valid {
		val = "1"
	}
	c.client.Set(ctx, c.prefix+url, val, c.ttl)
}

// Reset removes all cached verdicts
func (c *RedisCache) Reset() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

var _ ResultCache = (*MemoryCache)(nil)
var _ ResultCache = (*RedisCache)(nil)
