package collector

import (
	"context"
	"time"
)

// Bar is one daily close from a price history.
type Bar struct {
	Time  time.Time
	Close float64
}

// Item is one entry from a news feed.
type Item struct {
	Title       string
	Description string
	Link        string
	PublishedAt time.Time
}

// PriceSource fetches recent daily closes for a market symbol.
type PriceSource interface {
	Name() string

	// FetchHistory returns closes for the given range ("5d", "1mo"),
	// oldest first, skipping missing data points.
	FetchHistory(ctx context.Context, symbol, rng string) ([]Bar, error)
}

// FeedSource fetches items from a news feed.
type FeedSource interface {
	Name() string
	FetchFeed(ctx context.Context, url string, maxItems int) ([]Item, error)
}
