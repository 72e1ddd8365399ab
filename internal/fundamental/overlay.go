package fundamental

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/collector"
	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/metrics"
)

// Defaults applied when the signal omits the field.
const (
	DefaultPair       = "EURUSD"
	DefaultConfidence = 0.7

	dataSources = "YAHOO_RSS"
)

// Outcome is how the overlay treated a signal.
type Outcome string

const (
	// OutcomeAdjusted means the factor was applied and fundamentals attached.
	OutcomeAdjusted Outcome = "adjusted"
	// OutcomePassthrough means the signal is returned untouched.
	OutcomePassthrough Outcome = "passthrough"
)

// Fundamentals is the data an adjustment was based on.
type Fundamentals struct {
	MarketData      MarketData      `json:"market_data"`
	NewsSentiment   NewsSentiment   `json:"news_sentiment"`
	RiskSentiment   string          `json:"risk_sentiment"`
	CurrencyFactors CurrencyFactors `json:"currency_factors"`
}

// Result is the outcome of running a signal through the overlay.
type Result struct {
	Outcome Outcome        `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
	Signal  core.RawSignal `json:"signal"`

	Pair               string        `json:"pair,omitempty"`
	OriginalConfidence float64       `json:"original_confidence"`
	EnhancedConfidence float64       `json:"enhanced_confidence"`
	EnhancementFactor  float64       `json:"enhancement_factor"`
	Fundamentals       *Fundamentals `json:"fundamental_data,omitempty"`

	// Sources reports the cache provenance per category; Degraded is set
	// when any category was served stale or empty.
	Sources  map[string]Provenance `json:"sources,omitempty"`
	Degraded bool                  `json:"degraded"`

	DataSources string    `json:"data_sources,omitempty"`
	Timestamp   time.Time `json:"enhancement_timestamp"`
}

// Config tunes the overlay.
type Config struct {
	CacheTTL     time.Duration
	FetchBudget  time.Duration // bound on one category refresh
	Indicators   map[string]string // name -> Yahoo symbol
	Feeds        map[string]string // name -> RSS URL
	ItemsPerFeed int
	MarketRPS    float64
	NewsRPS      float64
}

// Overlay adjusts signal confidence from market indicators and news
// sentiment, each cached per category.
type Overlay struct {
	market *MarketFetcher
	news   *NewsFetcher

	marketCache *Cache[MarketData]
	newsCache   *Cache[NewsSentiment]

	logger  *zap.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

// New creates an overlay reading prices and feeds from the given sources.
func New(prices collector.PriceSource, feeds collector.FeedSource, cfg Config, logger *zap.Logger, reg *metrics.Registry) *Overlay {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Overlay{
		market:      NewMarketFetcher(prices, cfg.Indicators, cfg.MarketRPS, logger),
		news:        NewNewsFetcher(feeds, cfg.Feeds, cfg.ItemsPerFeed, nil, cfg.NewsRPS, logger),
		marketCache: NewCache[MarketData](cfg.CacheTTL, logger, reg),
		newsCache:   NewCache[NewsSentiment](cfg.CacheTTL, logger, reg),
		logger:      logger,
		metrics:     reg,
		now:         time.Now,
	}
	if cfg.FetchBudget > 0 {
		o.marketCache.budget = cfg.FetchBudget
		o.newsCache.budget = cfg.FetchBudget
	}
	return o
}

// Enhance adjusts the signal's confidence. It never fails: coercion faults
// and internal errors yield a passthrough result carrying the raw signal.
func (o *Overlay) Enhance(ctx context.Context, raw core.RawSignal) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("signal enhancement error", zap.Any("panic", r))
			res = o.passthrough(raw, fmt.Sprintf("internal error: %v", r))
		}
	}()

	pair, _ := raw.String("ticker")
	if pair = core.NormalizeInstrument(pair); pair == "" {
		pair = DefaultPair
	}

	confidence, err := raw.Float("confidence", DefaultConfidence)
	if err != nil {
		o.logger.Warn("signal enhancement skipped", zap.String("pair", pair), zap.Error(err))
		return o.passthrough(raw, err.Error())
	}

	o.logger.Info("enhancing signal with fundamental data", zap.String("pair", pair))

	market, mp := o.marketData(ctx)
	news, np := o.newsSentiment(ctx, pair)

	factor := EnhancementFactor(pair, market, news)
	enhanced := ApplyEnhancement(confidence, factor)

	res = &Result{
		Outcome:            OutcomeAdjusted,
		Signal:             raw,
		Pair:               pair,
		OriginalConfidence: confidence,
		EnhancedConfidence: enhanced,
		EnhancementFactor:  factor,
		Fundamentals: &Fundamentals{
			MarketData:      market,
			NewsSentiment:   news,
			RiskSentiment:   RiskSentiment(market),
			CurrencyFactors: CalculateCurrencyFactors(pair, market),
		},
		Sources: map[string]Provenance{
			MarketCategory:     mp,
			NewsCategory(pair): np,
		},
		Degraded:    mp.Degraded() || np.Degraded(),
		DataSources: dataSources,
		Timestamp:   o.now(),
	}

	o.logger.Info("signal enhanced",
		zap.String("pair", pair),
		zap.Float64("original_confidence", confidence),
		zap.Float64("enhanced_confidence", enhanced),
		zap.Float64("factor", factor),
		zap.Bool("degraded", res.Degraded),
	)
	o.metrics.RecordOverlay(string(OutcomeAdjusted))
	return res
}

func (o *Overlay) passthrough(raw core.RawSignal, reason string) *Result {
	o.metrics.RecordOverlay(string(OutcomePassthrough))
	return &Result{
		Outcome:   OutcomePassthrough,
		Reason:    reason,
		Signal:    raw,
		Timestamp: o.now(),
	}
}

func (o *Overlay) marketData(ctx context.Context) (MarketData, Provenance) {
	data, p := o.marketCache.Lookup(ctx, MarketCategory, o.market.Fetch)
	if data == nil {
		data = MarketData{}
	}
	return data, p
}

func (o *Overlay) newsSentiment(ctx context.Context, pair string) (NewsSentiment, Provenance) {
	news, p := o.newsCache.Lookup(ctx, NewsCategory(pair), func(ctx context.Context) (NewsSentiment, error) {
		return o.news.Fetch(ctx, pair)
	})
	if p == ProvenanceEmpty {
		news = NeutralNews(o.now())
	}
	return news, p
}

// IndicatorSummary is the value and change of one indicator.
type IndicatorSummary struct {
	Value     float64 `json:"value"`
	ChangePct float64 `json:"change_pct"`
}

// Summary is a dashboard view of the fundamentals for one pair.
type Summary struct {
	CurrencyPair     string                      `json:"currency_pair"`
	RiskSentiment    string                      `json:"risk_sentiment"`
	NewsSentiment    string                      `json:"news_sentiment"`
	NewsConfidence   float64                     `json:"news_confidence"`
	ArticlesAnalyzed int                         `json:"articles_analyzed"`
	MarketIndicators map[string]IndicatorSummary `json:"market_indicators"`
	Sources          map[string]Provenance       `json:"sources"`
	Breakers         map[string]string           `json:"breakers"`
	LastUpdated      time.Time                   `json:"last_updated"`
}

// Summary returns the fundamentals for pair, using the cache.
func (o *Overlay) Summary(ctx context.Context, pair string) Summary {
	pair = core.NormalizeInstrument(pair)
	if pair == "" {
		pair = DefaultPair
	}

	market, mp := o.marketData(ctx)
	news, np := o.newsSentiment(ctx, pair)

	indicators := make(map[string]IndicatorSummary, len(market))
	for name, ind := range market {
		indicators[name] = IndicatorSummary{Value: ind.Value, ChangePct: ind.ChangePct}
	}

	breakers := o.market.breakers()
	for name, state := range o.news.breakers() {
		breakers[name] = state
	}

	return Summary{
		CurrencyPair:     pair,
		RiskSentiment:    RiskSentiment(market),
		NewsSentiment:    news.Classification,
		NewsConfidence:   news.Confidence,
		ArticlesAnalyzed: news.ArticlesAnalyzed,
		MarketIndicators: indicators,
		Sources: map[string]Provenance{
			MarketCategory:     mp,
			NewsCategory(pair): np,
		},
		Breakers:    breakers,
		LastUpdated: o.now(),
	}
}
