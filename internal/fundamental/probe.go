package fundamental

import (
	"context"
	"time"
)

// ProbeResult is the health of one upstream source.
type ProbeResult struct {
	Kind      string        `json:"kind"` // "market" or "news"
	Name      string        `json:"name"`
	Target    string        `json:"target"`
	OK        bool          `json:"ok"`
	Value     float64       `json:"value,omitempty"`
	ChangePct float64       `json:"change_pct,omitempty"`
	Items     int           `json:"items,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Probe queries every configured indicator and feed once, bypassing the
// cache and circuit breakers. Each source gets its own timeout when
// perSource is positive, so one hanging source does not starve the rest.
func (o *Overlay) Probe(ctx context.Context, perSource time.Duration) []ProbeResult {
	results := make([]ProbeResult, 0, len(o.market.indicators)+len(o.news.feeds))

	for _, name := range o.market.Names() {
		symbol := o.market.indicators[name]
		r := ProbeResult{Kind: "market", Name: name, Target: symbol}

		sctx, cancel := sourceContext(ctx, perSource)
		start := time.Now()
		bars, err := o.market.source.FetchHistory(sctx, symbol, historyRange)
		r.Duration = time.Since(start)
		cancel()

		if err != nil {
			r.Error = err.Error()
		} else if ind, ok := summarize(bars, o.now()); ok {
			r.OK = true
			r.Value = ind.Value
			r.ChangePct = ind.ChangePct
			r.Items = ind.DataPoints
		} else {
			r.Error = "no data"
		}
		results = append(results, r)
	}

	for _, name := range o.news.Names() {
		url := o.news.feeds[name]
		r := ProbeResult{Kind: "news", Name: name, Target: url}

		sctx, cancel := sourceContext(ctx, perSource)
		start := time.Now()
		items, err := o.news.source.FetchFeed(sctx, url, o.news.itemsPerFeed)
		r.Duration = time.Since(start)
		cancel()

		if err != nil {
			r.Error = err.Error()
		} else {
			r.OK = true
			r.Items = len(items)
		}
		results = append(results, r)
	}

	return results
}

func sourceContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
