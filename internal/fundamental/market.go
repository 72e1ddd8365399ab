package fundamental

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/collector"
	"github.com/newthinker/sigrelay/internal/core"
)

const (
	// MarketCategory is the cache category for the indicator snapshot.
	MarketCategory = "market_data"

	historyRange = "5d"
)

// Indicator names used by the factor rules.
const (
	VIX = "VIX"
	SPX = "SPX"
	DXY = "DXY"
	TNX = "TNX"
	GLD = "GLD"
	OIL = "OIL"
	TLT = "TLT"
)

// DefaultIndicators maps indicator names to Yahoo Finance symbols.
func DefaultIndicators() map[string]string {
	return map[string]string{
		VIX: "^VIX",
		SPX: "^GSPC",
		DXY: "DX-Y.NYB",
		TNX: "^TNX",
		GLD: "GLD",
		OIL: "CL=F",
		TLT: "TLT",
	}
}

// Indicator is the latest reading of one market indicator.
type Indicator struct {
	Value       float64   `json:"value"`
	ChangePct   float64   `json:"change_pct"`
	DataPoints  int       `json:"data_points"`
	LastUpdated time.Time `json:"last_updated"`
}

// MarketData is a snapshot of indicators keyed by name.
type MarketData map[string]Indicator

// MarketFetcher builds MarketData from a price source.
type MarketFetcher struct {
	source     collector.PriceSource
	indicators map[string]string
	guard      *sourceGuard
	logger     *zap.Logger
	now        func() time.Time
}

// NewMarketFetcher creates a fetcher for the given indicators
// (name -> symbol). Nil or empty indicators use DefaultIndicators.
func NewMarketFetcher(source collector.PriceSource, indicators map[string]string, rps float64, logger *zap.Logger) *MarketFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(indicators) == 0 {
		indicators = DefaultIndicators()
	}
	return &MarketFetcher{
		source:     source,
		indicators: indicators,
		guard:      newSourceGuard(rps, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Names returns the configured indicator names in sorted order.
func (f *MarketFetcher) Names() []string {
	names := make([]string, 0, len(f.indicators))
	for name := range f.indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch reads every indicator. Failed indicators are skipped; the fetch
// fails when none succeeded or when ctx ends before every indicator was
// tried, so a partial snapshot is never returned as a success.
func (f *MarketFetcher) Fetch(ctx context.Context) (MarketData, error) {
	data := make(MarketData, len(f.indicators))
	var errs []error

	for _, name := range f.Names() {
		if err := ctx.Err(); err != nil {
			return nil, interrupted("market", err)
		}

		symbol := f.indicators[name]
		var bars []collector.Bar
		err := f.guard.do(ctx, name, func(ctx context.Context) error {
			var err error
			bars, err = f.source.FetchHistory(ctx, symbol, historyRange)
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, interrupted("market", ctxErr)
			}
			f.logger.Warn("failed to fetch indicator",
				zap.String("indicator", name),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		ind, ok := summarize(bars, f.now())
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no closes", name))
			continue
		}
		data[name] = ind
	}

	if len(data) == 0 && len(f.indicators) > 0 {
		return nil, core.WrapError(core.ErrSourceFailed, errors.Join(errs...))
	}
	return data, nil
}

// interrupted reports a fetch cut short by its context.
func interrupted(kind string, err error) error {
	return core.WrapError(core.ErrSourceFailed, fmt.Errorf("%s fetch interrupted: %w", kind, err))
}

// breakers returns the circuit breaker state per indicator.
func (f *MarketFetcher) breakers() map[string]string {
	return f.guard.states()
}

// summarize reduces a price history to its latest close and the percent
// change over the prior close.
func summarize(bars []collector.Bar, now time.Time) (Indicator, bool) {
	if len(bars) == 0 {
		return Indicator{}, false
	}

	latest := bars[len(bars)-1].Close
	prev := latest
	if len(bars) > 1 {
		prev = bars[len(bars)-2].Close
	}

	change := 0.0
	if prev != 0 {
		change = (latest - prev) / prev * 100
	}

	return Indicator{
		Value:       latest,
		ChangePct:   change,
		DataPoints:  len(bars),
		LastUpdated: now,
	}, true
}
