package catalog

import (
	"context"
	"sync"
	"time"

	"files-kraken/core/docstore"

	"golang.org/x/sync/singleflight"
)

// listing is a cached schema listing.
type listing struct {
	Docs  []docstore.Document
	Built time.Time
	TTL   time.Duration
}

// IsExpired returns true if the listing outlived its TTL.
func (l *listing) IsExpired() bool {
	if l.TTL == 0 {
		return true // No caching
	}
	return time.Since(l.Built) > l.TTL
}

// cacheStore holds listings keyed by schema name.
type cacheStore struct {
	mu      sync.RWMutex
	entries map[string]*listing
	sf      singleflight.Group
	ttl     time.Duration
}

func newCacheStore(ttl time.Duration) *cacheStore {
	return &cacheStore{entries: make(map[string]*listing), ttl: ttl}
}

// getOrBuild returns the cached listing for key or builds it with load.
func (c *cacheStore) getOrBuild(ctx context.Context, key string, load func(ctx context.Context) ([]docstore.Document, error)) ([]docstore.Document, error) {
	c.mu.RLock()
	cached, exists := c.entries[key]
	c.mu.RUnlock()

	if exists && !cached.IsExpired() {
		return cached.Docs, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Double-check after acquiring singleflight lock
		c.mu.RLock()
		cached, exists := c.entries[key]
		c.mu.RUnlock()

		if exists && !cached.IsExpired() {
			return cached, nil
		}

		docs, err := load(ctx)
		if err != nil {
			return nil, err
		}
		fresh := &listing{Docs: docs, Built: time.Now(), TTL: c.ttl}

		c.mu.Lock()
		c.entries[key] = fresh
		c.mu.Unlock()

		return fresh, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*listing).Docs, nil
}

// invalidate drops the listing for key, or every listing when key is empty.
func (c *cacheStore) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" {
		c.entries = make(map[string]*listing)
		return
	}
	delete(c.entries, key)
}
