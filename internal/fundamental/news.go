package fundamental

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/collector"
	"github.com/newthinker/sigrelay/internal/core"
)

// Sentiment classifications.
const (
	Bullish = "BULLISH"
	Bearish = "BEARISH"
	Neutral = "NEUTRAL"
)

const (
	DefaultItemsPerFeed = 5

	maxArticles        = 10
	maxTitleLen        = 100
	maxMatchedKeywords = 3
	minRelevantLen     = 10
	fullConfidenceAt   = 15
	maxNewsConfidence  = 0.8
	classifyThreshold  = 0.15
)

var (
	currencyKeywords = []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "NZD", "CHF"}
	ratesKeywords    = []string{"FED", "ECB", "BOE", "BOJ", "RATE", "CURRENCY", "DOLLAR", "FOREX", "CENTRAL BANK"}
)

// DefaultFeeds maps feed names to RSS URLs.
func DefaultFeeds() map[string]string {
	return map[string]string{
		"fed_news":  "https://www.federalreserve.gov/feeds/press_all.xml",
		"forexlive": "https://www.forexlive.com/feed/",
		"bloomberg": "https://feeds.bloomberg.com/markets/news.rss",
	}
}

// NewsCategory returns the cache category for a pair's news sentiment.
func NewsCategory(pair string) string {
	return "news_" + pair
}

// Article is one relevant news item with its polarity.
type Article struct {
	Title            string   `json:"title"`
	Sentiment        float64  `json:"sentiment"`
	Source           string   `json:"source"`
	RelevantKeywords []string `json:"relevant_keywords"`
}

// NewsSentiment aggregates the polarity of relevant news for a pair.
type NewsSentiment struct {
	SentimentScore   float64   `json:"sentiment_score"`
	Classification   string    `json:"classification"`
	ArticlesAnalyzed int       `json:"articles_analyzed"`
	Confidence       float64   `json:"confidence"`
	Articles         []Article `json:"articles"`
	Timestamp        time.Time `json:"timestamp"`
}

// NeutralNews is the sentiment reported when there is nothing to analyze.
func NeutralNews(now time.Time) NewsSentiment {
	return NewsSentiment{
		Classification: Neutral,
		Articles:       []Article{},
		Timestamp:      now,
	}
}

// ClassifySentiment maps a mean polarity to BULLISH, BEARISH or NEUTRAL.
func ClassifySentiment(score float64) string {
	switch {
	case score > classifyThreshold:
		return Bullish
	case score < -classifyThreshold:
		return Bearish
	default:
		return Neutral
	}
}

// NewsFetcher scores relevant items from a set of RSS feeds.
type NewsFetcher struct {
	source       collector.FeedSource
	feeds        map[string]string
	itemsPerFeed int
	scorer       Scorer
	guard        *sourceGuard
	logger       *zap.Logger
	now          func() time.Time
}

// NewNewsFetcher creates a fetcher for the given feeds (name -> URL).
// Nil or empty feeds use DefaultFeeds; a nil scorer uses DefaultLexicon.
func NewNewsFetcher(source collector.FeedSource, feeds map[string]string, itemsPerFeed int, scorer Scorer, rps float64, logger *zap.Logger) *NewsFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(feeds) == 0 {
		feeds = DefaultFeeds()
	}
	if itemsPerFeed <= 0 {
		itemsPerFeed = DefaultItemsPerFeed
	}
	if scorer == nil {
		scorer = DefaultLexicon()
	}
	return &NewsFetcher{
		source:       source,
		feeds:        feeds,
		itemsPerFeed: itemsPerFeed,
		scorer:       scorer,
		guard:        newSourceGuard(rps, logger),
		logger:       logger,
		now:          time.Now,
	}
}

// Names returns the configured feed names in sorted order.
func (f *NewsFetcher) Names() []string {
	names := make([]string, 0, len(f.feeds))
	for name := range f.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch reads every feed and scores the items relevant to pair. Failed feeds
// are skipped; the fetch fails when every feed failed or when ctx ends
// before every feed was tried. Feeds with no
// relevant items produce a neutral result.
func (f *NewsFetcher) Fetch(ctx context.Context, pair string) (NewsSentiment, error) {
	keywords := relevanceKeywords(pair)

	var (
		articles  []Article
		sum       float64
		succeeded int
		errs      []error
	)

	for _, name := range f.Names() {
		if err := ctx.Err(); err != nil {
			return NewsSentiment{}, interrupted("news", err)
		}

		url := f.feeds[name]
		var items []collector.Item
		err := f.guard.do(ctx, name, func(ctx context.Context) error {
			var err error
			items, err = f.source.FetchFeed(ctx, url, f.itemsPerFeed)
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return NewsSentiment{}, interrupted("news", ctxErr)
			}
			f.logger.Warn("rss feed error",
				zap.String("feed", name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		succeeded++

		for _, item := range items {
			text := strings.ToUpper(item.Title + " " + item.Description)
			matched := matchKeywords(text, keywords)
			if len(matched) == 0 || len(strings.TrimSpace(text)) <= minRelevantLen {
				continue
			}

			polarity := f.scorer.Polarity(text)
			sum += polarity

			if len(matched) > maxMatchedKeywords {
				matched = matched[:maxMatchedKeywords]
			}
			articles = append(articles, Article{
				Title:            truncate(item.Title, maxTitleLen),
				Sentiment:        polarity,
				Source:           name,
				RelevantKeywords: matched,
			})
		}
	}

	if len(f.feeds) > 0 && succeeded == 0 {
		return NewsSentiment{}, core.WrapError(core.ErrSourceFailed, errors.Join(errs...))
	}

	if len(articles) == 0 {
		return NeutralNews(f.now()), nil
	}

	n := len(articles)
	score := sum / float64(n)
	if len(articles) > maxArticles {
		articles = articles[len(articles)-maxArticles:]
	}

	return NewsSentiment{
		SentimentScore:   score,
		Classification:   ClassifySentiment(score),
		ArticlesAnalyzed: n,
		Confidence:       newsConfidence(n),
		Articles:         articles,
		Timestamp:        f.now(),
	}, nil
}

func (f *NewsFetcher) breakers() map[string]string {
	return f.guard.states()
}

func newsConfidence(n int) float64 {
	c := float64(n) / fullConfidenceAt
	if c > maxNewsConfidence {
		return maxNewsConfidence
	}
	return c
}

// relevanceKeywords lists the pair's currencies, the major currencies and
// the rates keywords, in that order and without duplicates.
func relevanceKeywords(pair string) []string {
	base, quote := SplitPair(pair)
	all := append([]string{base, quote}, currencyKeywords...)
	all = append(all, ratesKeywords...)

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, kw := range all {
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func matchKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
