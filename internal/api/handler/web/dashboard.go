// internal/api/handler/web/dashboard.go
package web

import (
	"net/http"
	"strings"

	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/storage/signal"
)

// featuredPatterns is how many patterns the dashboard lists by name.
const featuredPatterns = 3

// SignalView is one row of the recent signals log.
type SignalView struct {
	core.EnhancedSignal
	Time          string
	StrengthClass string
}

// PatternView is one highlighted pattern.
type PatternView struct {
	Name           string
	BaseReturn     float64
	EnhancedReturn float64
}

// DashboardData holds data for the dashboard template
type DashboardData struct {
	Title         string
	CurrentTime   string
	Stats         signal.Stats
	Patterns      []PatternView
	MorePatterns  int
	RecentSignals []SignalView
	WebhookURL    string
}

// Dashboard renders the dashboard page. It only reads state.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	recent := h.history.Recent(h.recent)
	views := make([]SignalView, len(recent))
	for i, sig := range recent {
		views[i] = SignalView{
			EnhancedSignal: sig,
			Time:           sig.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			StrengthClass:  "signal-" + strings.ToLower(string(sig.Strength)),
		}
	}

	data := DashboardData{
		Title:         "Dashboard",
		CurrentTime:   h.now().UTC().Format("2006-01-02 15:04:05 UTC"),
		Stats:         h.history.Stats(),
		RecentSignals: views,
		WebhookURL:    h.baseURL(r) + "/webhook/tradingview",
	}

	if h.table != nil {
		entries := h.table.Entries()
		for i, e := range entries {
			if i == featuredPatterns {
				data.MorePatterns = len(entries) - featuredPatterns
				break
			}
			data.Patterns = append(data.Patterns, PatternView{
				Name:           e.Key.Instrument + " " + e.Key.Timeframe,
				BaseReturn:     e.Record.BaseReturn,
				EnhancedReturn: e.Record.EnhancedReturn,
			})
		}
	}

	h.render(w, "dashboard.html", data)
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return strings.TrimRight(h.publicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
