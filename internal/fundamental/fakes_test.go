package fundamental

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newthinker/sigrelay/internal/collector"
)

type fakePrices struct {
	mu    sync.Mutex
	bars  map[string][]collector.Bar
	err   error
	calls int
}

func (f *fakePrices) Name() string { return "fake-prices" }

func (f *fakePrices) FetchHistory(ctx context.Context, symbol, rng string) ([]collector.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, errors.New("unknown symbol " + symbol)
	}
	return bars, nil
}

func (f *fakePrices) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePrices) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFeeds struct {
	mu    sync.Mutex
	items map[string][]collector.Item
	errs  map[string]error
	err   error
	calls int
}

func (f *fakeFeeds) Name() string { return "fake-feeds" }

func (f *fakeFeeds) FetchFeed(ctx context.Context, url string, maxItems int) ([]collector.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	items := f.items[url]
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

func (f *fakeFeeds) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFeeds) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// closes builds a daily history ending with the given closes.
func closes(values ...float64) []collector.Bar {
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	bars := make([]collector.Bar, len(values))
	for i, v := range values {
		bars[i] = collector.Bar{Time: start.AddDate(0, 0, i), Close: v}
	}
	return bars
}

// calmMarket returns prices for every default indicator with no significant
// moves and a mid-range VIX.
func calmMarket() *fakePrices {
	return &fakePrices{bars: map[string][]collector.Bar{
		"^VIX":     closes(20, 20),
		"^GSPC":    closes(5000, 5000),
		"DX-Y.NYB": closes(100, 100),
		"^TNX":     closes(4, 4),
		"GLD":      closes(200, 200),
		"CL=F":     closes(80, 80),
		"TLT":      closes(90, 90),
	}}
}

func item(title, desc string) collector.Item {
	return collector.Item{Title: title, Description: desc}
}

// cancelingPrices serves prices and calls cancel once after calls fetches.
type cancelingPrices struct {
	*fakePrices
	after  int
	cancel context.CancelFunc
}

func (c *cancelingPrices) FetchHistory(ctx context.Context, symbol, rng string) ([]collector.Bar, error) {
	bars, err := c.fakePrices.FetchHistory(ctx, symbol, rng)
	if c.fakePrices.callCount() == c.after {
		c.cancel()
	}
	return bars, err
}

// cancelingFeeds serves feeds and calls cancel once after calls fetches.
type cancelingFeeds struct {
	*fakeFeeds
	after  int
	cancel context.CancelFunc
}

func (c *cancelingFeeds) FetchFeed(ctx context.Context, url string, maxItems int) ([]collector.Item, error) {
	items, err := c.fakeFeeds.FetchFeed(ctx, url, maxItems)
	if c.fakeFeeds.callCount() == c.after {
		c.cancel()
	}
	return items, err
}

// hangingPrices blocks on symbol until the context ends.
type hangingPrices struct {
	*fakePrices
	symbol string
}

func (h *hangingPrices) FetchHistory(ctx context.Context, symbol, rng string) ([]collector.Bar, error) {
	if symbol == h.symbol {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return h.fakePrices.FetchHistory(ctx, symbol, rng)
}
