package fundamental

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/newthinker/sigrelay/internal/metrics"
)

const (
	// DefaultCacheTTL is the freshness window for cached fundamentals.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultFetchBudget bounds one category refresh, independent of the
	// caller that triggered it.
	DefaultFetchBudget = 60 * time.Second
)

// Provenance describes where a cached lookup's value came from.
type Provenance string

const (
	ProvenanceFresh   Provenance = "fresh"   // served from cache inside the window
	ProvenanceFetched Provenance = "fetched" // fetched just now
	ProvenanceStale   Provenance = "stale"   // fetch failed, older value served
	ProvenanceEmpty   Provenance = "empty"   // fetch failed, nothing cached
)

// Degraded reports whether the value did not come from a successful fetch
// inside the freshness window.
func (p Provenance) Degraded() bool {
	return p == ProvenanceStale || p == ProvenanceEmpty
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

// FetchFunc produces a fresh value for a cache category.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cache holds one value per category with a freshness window. Concurrent
// misses on the same category share one fetch, and the lock is never held
// while fetching.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]cacheEntry[T]
	ttl     time.Duration
	budget  time.Duration
	group   singleflight.Group

	logger  *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

// NewCache creates a cache with the given freshness window.
func NewCache[T any](ttl time.Duration, logger *zap.Logger, reg *metrics.Registry) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[T]{
		entries: make(map[string]cacheEntry[T]),
		ttl:     ttl,
		budget:  DefaultFetchBudget,
		logger:  logger,
		metrics: reg,
		now:     time.Now,
	}
}

// Lookup returns the value for category. A fresh entry is returned without
// fetching. Otherwise fetch runs; on failure the last value is served if
// present, else the zero value. Lookup never fails.
//
// The fetch runs detached from ctx under the cache's fetch budget, so one
// caller giving up neither cuts the shared fetch short nor stores a partial
// value. A caller whose ctx ends first is served as if the fetch failed.
func (c *Cache[T]) Lookup(ctx context.Context, category string, fetch FetchFunc[T]) (T, Provenance) {
	if v, ok := c.fresh(category); ok {
		c.metrics.RecordCacheLookup("hit")
		return v, ProvenanceFresh
	}
	c.metrics.RecordCacheLookup("miss")

	ch := c.group.DoChan(category, func() (any, error) {
		// Another caller may have filled the entry while we queued.
		if v, ok := c.fresh(category); ok {
			return v, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.budget)
		defer cancel()

		v, err := fetch(fetchCtx)
		if err != nil {
			c.metrics.RecordFetch(category, "error")
			return nil, err
		}
		c.metrics.RecordFetch(category, "ok")

		c.mu.Lock()
		c.entries[category] = cacheEntry[T]{value: v, fetchedAt: c.now()}
		c.mu.Unlock()
		return v, nil
	})

	var err error
	select {
	case r := <-ch:
		if r.Err == nil {
			return r.Val.(T), ProvenanceFetched
		}
		err = r.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	e, ok := c.entries[category]
	c.mu.Unlock()

	if ok {
		c.logger.Warn("fetch failed, serving stale data",
			zap.String("category", category),
			zap.Duration("age", c.now().Sub(e.fetchedAt)),
			zap.Error(err),
		)
		c.metrics.RecordCacheLookup("stale")
		return e.value, ProvenanceStale
	}

	c.logger.Warn("fetch failed, no cached data",
		zap.String("category", category),
		zap.Error(err),
	)
	c.metrics.RecordCacheLookup("empty")
	var zero T
	return zero, ProvenanceEmpty
}

// Invalidate drops the entry for category.
func (c *Cache[T]) Invalidate(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, category)
}

// Len returns the number of cached categories.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) fresh(category string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[category]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}
