package pdfrelay

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryCache is the default envelope cache: a mutex-guarded map with
// TTL-based validity. Lookup skips stale entries without deleting them;
// removal is Sweep's job, keeping lookups free of write side effects.
type InMemoryCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   func() time.Duration
}

// NewInMemoryCache creates a cache whose servable age is read through ttl on
// every lookup, so runtime configuration changes apply immediately.
func NewInMemoryCache(ttl func() time.Duration) *InMemoryCache {
	return &InMemoryCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
	}
}

// Lookup returns the entry for key if present and fresh. Stale entries are
// left in place for the sweep.
func (c *InMemoryCache) Lookup(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.StoredAt) >= c.entryTTL(entry) {
		return nil, false
	}
	return entry, true
}

func (c *InMemoryCache) entryTTL(entry *CacheEntry) time.Duration {
	if entry.TTL > 0 {
		return entry.TTL
	}
	return c.ttl()
}

// Store overwrites the entry for key unconditionally. A zero ttl defers to
// the configured default at lookup time.
func (c *InMemoryCache) Store(key string, env *Envelope, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry{
		Envelope: env,
		StoredAt: time.Now(),
		TTL:      ttl,
	}
}

// Clear drops entries whose composite key contains pattern as a substring,
// or everything when pattern is empty.
func (c *InMemoryCache) Clear(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		c.store = make(map[string]*CacheEntry)
		return
	}
	for key := range c.store {
		if strings.Contains(key, pattern) {
			delete(c.store, key)
		}
	}
}

// Sweep drops every entry older than its TTL.
func (c *InMemoryCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.store {
		if time.Since(entry.StoredAt) >= c.entryTTL(entry) {
			delete(c.store, key)
		}
	}
}

// Len reports the number of stored entries, fresh or stale.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// sweeper runs Sweep on a fixed interval equal to the configured TTL until
// stop is closed. The interval is re-read each tick cycle so TTL changes
// take effect on the next pass.
func (c *Client) sweeper(stop <-chan struct{}) {
	for {
		interval := c.config.Snapshot().CacheTTL
		if interval <= 0 {
			interval = time.Minute
		}
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
			c.cache.Sweep()
			if mc, ok := c.cache.(*InMemoryCache); ok && c.metrics != nil {
				c.metrics.RecordCacheSize("default", mc.Len())
			}
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// DefaultCacheKeyFunc builds the composite cache key from the request method
// and absolute URL.
func DefaultCacheKeyFunc(method, url string) string {
	return method + ":" + url
}

// DefaultCacheCondition caches GET requests only. Opt-in still happens per
// request via context cache control; this is the eligibility gate.
func DefaultCacheCondition(method, url string) bool {
	return method == "GET"
}

// WithContextCacheEnabled marks the request on ctx as an opted-in cached
// read.
func WithContextCacheEnabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheControlKey, &CacheControl{Enabled: true})
}

// WithContextCacheDisabled disables caching for the request on ctx.
func WithContextCacheDisabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheControlKey, &CacheControl{Enabled: false})
}

// WithContextCacheTTL opts the request on ctx into caching with a custom
// TTL.
func WithContextCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheControlKey, &CacheControl{Enabled: true, TTL: ttl})
}

// cacheControlFrom extracts per-request cache control, if any.
func cacheControlFrom(ctx context.Context) (*CacheControl, bool) {
	cc, ok := ctx.Value(cacheControlKey).(*CacheControl)
	return cc, ok
}
