package fundamental

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache[int], *clock) {
	clk := &clock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	c := NewCache[int](ttl, nil, nil)
	c.now = clk.Now
	return c, clk
}

func TestCache_SingleFetchWithinWindow(t *testing.T) {
	c, clk := newTestCache(5 * time.Minute)

	var calls int
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, p := c.Lookup(context.Background(), "market_data", fetch)
	assert.Equal(t, 42, v)
	assert.Equal(t, ProvenanceFetched, p)

	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute - time.Second)
		v, p = c.Lookup(context.Background(), "market_data", fetch)
		assert.Equal(t, ProvenanceFresh, p)
	}
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "fresh lookups must not refetch")
}

func TestCache_RefetchAfterWindow(t *testing.T) {
	c, clk := newTestCache(5 * time.Minute)

	n := 0
	fetch := func(ctx context.Context) (int, error) {
		n++
		return n, nil
	}

	v, _ := c.Lookup(context.Background(), "k", fetch)
	assert.Equal(t, 1, v)

	clk.Advance(5 * time.Minute)
	v, p := c.Lookup(context.Background(), "k", fetch)
	assert.Equal(t, 2, v)
	assert.Equal(t, ProvenanceFetched, p)
}

func TestCache_ServesStaleOnError(t *testing.T) {
	c, clk := newTestCache(time.Minute)

	ok := func(ctx context.Context) (int, error) { return 7, nil }
	fail := func(ctx context.Context) (int, error) { return 0, errors.New("upstream down") }

	c.Lookup(context.Background(), "k", ok)
	clk.Advance(2 * time.Minute)

	v, p := c.Lookup(context.Background(), "k", fail)
	assert.Equal(t, 7, v)
	assert.Equal(t, ProvenanceStale, p)
	assert.True(t, p.Degraded())
}

func TestCache_EmptyOnErrorWithoutEntry(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	v, p := c.Lookup(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 99, errors.New("upstream down")
	})
	assert.Equal(t, 0, v)
	assert.Equal(t, ProvenanceEmpty, p)
	assert.Equal(t, 0, c.Len(), "failed fetches are not cached")
}

func TestCache_CategoriesAreIndependent(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Lookup(context.Background(), "news_EURUSD", func(ctx context.Context) (int, error) { return 1, nil })
	v, p := c.Lookup(context.Background(), "news_GBPUSD", func(ctx context.Context) (int, error) { return 2, nil })

	assert.Equal(t, 2, v)
	assert.Equal(t, ProvenanceFetched, p)
	assert.Equal(t, 2, c.Len())
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	var calls int
	fetch := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	c.Lookup(context.Background(), "k", fetch)
	c.Invalidate("k")
	v, _ := c.Lookup(context.Background(), "k", fetch)

	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestCache_CoalescesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 5, nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Lookup(context.Background(), "market_data", fetch)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load(), "concurrent misses must share one fetch")
	for _, v := range results {
		assert.Equal(t, 5, v)
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	c := NewCache[int](0, nil, nil)
	assert.Equal(t, DefaultCacheTTL, c.ttl)
}

func TestCache_CallerCancelDoesNotCutFetch(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	var sawCanceled atomic.Bool
	fetch := func(fetchCtx context.Context) (int, error) {
		close(started)
		<-release
		if fetchCtx.Err() != nil {
			sawCanceled.Store(true)
			return 0, fetchCtx.Err()
		}
		return 11, nil
	}

	done := make(chan Provenance, 1)
	go func() {
		_, p := c.Lookup(ctx, "market_data", fetch)
		done <- p
	}()

	<-started
	cancel()
	assert.Equal(t, ProvenanceEmpty, <-done, "the caller gives up without waiting")

	close(release)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, sawCanceled.Load(), "the fetch outlives its caller")

	v, p := c.Lookup(context.Background(), "market_data", func(ctx context.Context) (int, error) {
		t.Fatal("complete entry must be served from cache")
		return 0, nil
	})
	assert.Equal(t, 11, v)
	assert.Equal(t, ProvenanceFresh, p)
}

func TestCache_FetchBudget(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	c.budget = 10 * time.Millisecond

	c.Lookup(context.Background(), "k", func(ctx context.Context) (int, error) { return 3, nil })
	clk.Advance(2 * time.Minute)

	v, p := c.Lookup(context.Background(), "k", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.Equal(t, 3, v)
	assert.Equal(t, ProvenanceStale, p, "an exhausted budget keeps the previous entry")
}
