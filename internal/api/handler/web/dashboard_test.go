package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/pattern"
	"github.com/newthinker/sigrelay/internal/storage/signal"
)

func newTestHandler(t *testing.T, cfg Config, history *signal.History) *Handler {
	t.Helper()
	h, err := NewHandler(cfg, history, pattern.DefaultTable())
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func getDashboard(h *Handler, host string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/", nil)
	req.Host = host
	w := httptest.NewRecorder()
	h.Dashboard(w, req)
	return w
}

func TestDashboard_Empty(t *testing.T) {
	h := newTestHandler(t, Config{}, signal.NewHistory(10))

	w := getDashboard(h, "relay.example:5000")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %s", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		`http-equiv="refresh" content="30"`,
		"Waiting for signals",
		"http://relay.example:5000/webhook/tradingview",
		"GBPUSD DAILY: 79.5% &rarr; 133.0% return",
		"+ 8 more patterns",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
}

func TestDashboard_PatternsShowTimeframe(t *testing.T) {
	table, err := pattern.NewTable([]pattern.Entry{
		{Key: pattern.NewKey("GBPNZD", "DAILY"), Record: pattern.Record{BaseReturn: 21.3, EnhancedReturn: 35.7, ConfidenceBoost: 0.14}},
		{Key: pattern.NewKey("GBPNZD", "4H"), Record: pattern.Record{BaseReturn: 11.2, EnhancedReturn: 19.1, ConfidenceBoost: 0.20}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	h, err := NewHandler(Config{}, signal.NewHistory(10), table)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	body := getDashboard(h, "relay.example").Body.String()
	for _, want := range []string{
		"GBPNZD DAILY: 21.3% &rarr; 35.7% return",
		"GBPNZD 4H: 11.2% &rarr; 19.1% return",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
}

func TestDashboard_RecentSignals(t *testing.T) {
	history := signal.NewHistory(100)
	for i := 0; i < 25; i++ {
		pair := "EURUSD"
		if i == 24 {
			pair = "GBPUSD"
		}
		history.Record(core.EnhancedSignal{
			Timestamp:            time.Date(2026, 10, 19, 9, 0, i, 0, time.UTC),
			Pair:                 pair,
			Timeframe:            "DAILY",
			Action:               "BUY",
			OriginalConfidence:   0.72,
			EnhancedConfidence:   0.9,
			ConfidenceDelta:      0.18,
			OriginalPositionSize: 2,
			EnhancedPositionSize: 1.0038,
			ExpectedReturn:       133,
			Matched:              true,
			Strength:             core.StrengthStrong,
		})
	}

	h := newTestHandler(t, Config{}, history)
	before := history.Stats()

	body := getDashboard(h, "localhost").Body.String()

	if got := strings.Count(body, `class="signal-item`); got != DefaultRecentSignals {
		t.Errorf("expected %d signal rows, got %d", DefaultRecentSignals, got)
	}
	for _, want := range []string{"signal-strong", "72.0% &rarr;", "<strong>90.0%</strong>", "(+18.0%)", "1.00%", "2026-10-19 09:00:24", "GBPUSD"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}

	if after := history.Stats(); after.TotalSignals != before.TotalSignals || history.Len() != 25 {
		t.Error("rendering the dashboard must not change state")
	}
}

func TestDashboard_PublicURL(t *testing.T) {
	h := newTestHandler(t, Config{PublicURL: "https://relay.example.com/"}, signal.NewHistory(10))

	body := getDashboard(h, "internal:5000").Body.String()

	if !strings.Contains(body, "https://relay.example.com/webhook/tradingview") {
		t.Error("expected public URL in webhook hint")
	}
}

func TestDashboard_ForwardedProto(t *testing.T) {
	h := newTestHandler(t, Config{}, signal.NewHistory(10))

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "relay.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	h.Dashboard(w, req)

	if !strings.Contains(w.Body.String(), "https://relay.example.com/webhook/tradingview") {
		t.Error("expected https webhook hint behind a proxy")
	}
}

func TestDashboard_EscapesSignalFields(t *testing.T) {
	history := signal.NewHistory(10)
	history.Record(core.EnhancedSignal{Pair: "EURUSD", Action: "<script>x</script>", Strength: core.StrengthWeak})

	body := getDashboard(newTestHandler(t, Config{}, history), "localhost").Body.String()

	if strings.Contains(body, "<script>x</script>") {
		t.Error("signal fields must be escaped")
	}
}

func TestNewHandler_TemplatesDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("layout.html", `<html>{{template "content" .}}</html>`)
	write("dashboard.html", `{{define "content"}}custom {{.Stats.TotalSignals}}{{end}}`)

	h := newTestHandler(t, Config{TemplatesDir: dir}, signal.NewHistory(10))

	if body := getDashboard(h, "localhost").Body.String(); body != "<html>custom 0</html>" {
		t.Errorf("expected custom template output, got %q", body)
	}
}

func TestNewHandler_MissingTemplates(t *testing.T) {
	if _, err := NewHandler(Config{TemplatesDir: t.TempDir()}, signal.NewHistory(10), nil); err == nil {
		t.Error("expected error for missing templates")
	}
}
