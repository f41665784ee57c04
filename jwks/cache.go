package jwks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/example/oauth-demo/core"
)

type fetchFunc func(ctx context.Context, jwksURI string) (jwk.Set, time.Duration, error)

// memoryCache is the default Cache.
type memoryCache struct {
	fetch  fetchFunc
	ttl    time.Duration
	now    func() time.Time
	logger core.Logger

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	// set, expiresAt and refreshAt are guarded by memoryCache.mu.
	set       jwk.Set
	expiresAt time.Time
	refreshAt time.Time

	refreshing atomic.Bool
	fetchMu    sync.Mutex
}

func newMemoryCache(fetch fetchFunc, ttl time.Duration, now func() time.Time, logger core.Logger) *memoryCache {
	return &memoryCache{
		fetch:   fetch,
		ttl:     ttl,
		now:     now,
		logger:  logger,
		entries: make(map[string]*cacheEntry),
	}
}

func (c *memoryCache) Get(ctx context.Context, jwksURI string) (jwk.Set, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[jwksURI]
	if ok && entry.set != nil && now.Before(entry.expiresAt) {
		set := entry.set
		stale := !now.Before(entry.refreshAt)
		c.mu.RUnlock()

		if stale && entry.refreshing.CompareAndSwap(false, true) {
			go c.refresh(jwksURI, entry)
		}
		return set, nil
	}
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		entry, ok = c.entries[jwksURI]
		if !ok {
			entry = &cacheEntry{}
			c.entries[jwksURI] = entry
		}
		c.mu.Unlock()
	}

	entry.fetchMu.Lock()
	defer entry.fetchMu.Unlock()

	// Another caller may have filled the entry while we waited.
	c.mu.RLock()
	if entry.set != nil && now.Before(entry.expiresAt) {
		set := entry.set
		c.mu.RUnlock()
		return set, nil
	}
	c.mu.RUnlock()

	set, maxAge, err := c.fetch(ctx, jwksURI)
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}
	c.store(entry, set, maxAge)
	return set, nil
}

// refresh replaces entry in the background. On failure the old set stays
// until it expires.
func (c *memoryCache) refresh(jwksURI string, entry *cacheEntry) {
	defer entry.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	entry.fetchMu.Lock()
	defer entry.fetchMu.Unlock()

	set, maxAge, err := c.fetch(ctx, jwksURI)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("background JWKS refresh failed", "jwks_uri", jwksURI, "error", err)
		}
		return
	}
	c.store(entry, set, maxAge)
}

// store uses the server's max-age when it is longer than the configured TTL.
func (c *memoryCache) store(entry *cacheEntry, set jwk.Set, maxAge time.Duration) {
	ttl := c.ttl
	if maxAge > ttl {
		ttl = maxAge
	}

	now := c.now()
	c.mu.Lock()
	entry.set = set
	entry.expiresAt = now.Add(ttl)
	entry.refreshAt = now.Add(ttl * 4 / 5)
	c.mu.Unlock()
}
