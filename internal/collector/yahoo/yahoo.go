package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/newthinker/sigrelay/internal/collector"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// Yahoo rejects requests without a browser-like agent.
	userAgent = "Mozilla/5.0 (compatible; sigrelay/1.0)"
)

// validSymbol matches Yahoo symbols like GLD, ^VIX, DX-Y.NYB, CL=F
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^=.\-]{1,20}$`)

// validRange matches chart ranges like 1d, 5d, 1mo, 1y
var validRange = regexp.MustCompile(`^[0-9]{1,2}(d|mo|y)$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo fetches price history from the Yahoo Finance chart API
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// New creates a new Yahoo client with the given request timeout
func New(timeout time.Duration) *Yahoo {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Yahoo{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// FetchHistory fetches daily closes over rng
func (y *Yahoo) FetchHistory(ctx context.Context, symbol, rng string) ([]collector.Bar, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	if !validRange.MatchString(rng) {
		return nil, fmt.Errorf("invalid range: %s", rng)
	}

	u := fmt.Sprintf("%s/%s?interval=1d&range=%s", y.baseURL, url.PathEscape(symbol), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no data for symbol: %s", symbol)
	}

	r := result.Chart.Result[0]
	closes := r.Indicators.Quote[0].Close

	data := make([]collector.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // Skip missing data
		}
		data = append(data, collector.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no closes for symbol: %s", symbol)
	}

	return data, nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Close []*float64 `json:"close"`
}
