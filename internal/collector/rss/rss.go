package rss

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/sigrelay/internal/collector"
)

const (
	defaultMaxItems = 5
	maxBodyBytes    = 4 << 20
)

// RSS fetches and parses RSS 2.0 and RSS 1.0 (RDF) feeds
type RSS struct {
	client *http.Client
}

// New creates a new RSS client with the given request timeout
func New(timeout time.Duration) *RSS {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RSS{
		client: &http.Client{Timeout: timeout},
	}
}

func (r *RSS) Name() string {
	return "rss"
}

// FetchFeed returns the first maxItems items of the feed at feedURL.
// Descriptions have HTML tags stripped.
func (r *RSS) FetchFeed(ctx context.Context, feedURL string, maxItems int) ([]collector.Item, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")
	req.Header.Set("User-Agent", "sigrelay/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	feed, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode rss payload: %w", err)
	}

	rows := feed.items()
	if len(rows) > maxItems {
		rows = rows[:maxItems]
	}

	items := make([]collector.Item, 0, len(rows))
	for _, row := range rows {
		date := row.PubDate
		if strings.TrimSpace(date) == "" {
			date = row.Date
		}
		items = append(items, collector.Item{
			Title:       sanitizeText(row.Title),
			Description: sanitizeText(htmlStrip(row.Description)),
			Link:        strings.TrimSpace(row.Link),
			PublishedAt: parseDate(date),
		})
	}

	return items, nil
}

type feedItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"` // dc:date in RSS 1.0
}

// document covers RSS 2.0 (items inside channel) and RSS 1.0/RDF (items
// beside the channel, under the root).
type document struct {
	Channel struct {
		Title string     `xml:"title"`
		Items []feedItem `xml:"item"`
	} `xml:"channel"`
	Items []feedItem `xml:"item"`
}

func (d *document) items() []feedItem {
	if len(d.Channel.Items) > 0 {
		return d.Channel.Items
	}
	return d.Items
}

// decode parses a feed leniently. Real feeds carry bare ampersands and
// HTML entities that a strict decoder rejects.
func decode(body []byte) (*document, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		// Treat declared single-byte charsets as UTF-8
		return input, nil
	}

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func sanitizeText(in string) string {
	return strings.Join(strings.Fields(in), " ")
}

func htmlStrip(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}
