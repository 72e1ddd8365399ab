// internal/api/handler/api/signals.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/sigrelay/internal/api/response"
	"github.com/newthinker/sigrelay/internal/storage/signal"
)

// DefaultRecentLimit is the most signals returned by List.
const DefaultRecentLimit = 50

// SignalsHandler serves the rolling history and its stats.
type SignalsHandler struct {
	history *signal.History
	limit   int
}

// NewSignalsHandler creates a new signals handler. limit caps List and
// defaults to DefaultRecentLimit.
func NewSignalsHandler(history *signal.History, limit int) *SignalsHandler {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &SignalsHandler{history: history, limit: limit}
}

// List returns the most recent signals, oldest first. The optional limit
// query parameter narrows the window but never widens it.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	n := h.limit
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v < n {
			n = v
		}
	}

	response.JSON(w, http.StatusOK, h.history.Recent(n))
}

// Performance returns the aggregate stats snapshot.
func (h *SignalsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.history.Stats())
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	SignalsProcessed int       `json:"signals_processed"`
	HistorySize      int       `json:"history_size"`
	Uptime           string    `json:"uptime"`
	Fundamentals     string    `json:"fundamentals"`
	Notifiers        int       `json:"notifiers"`
}

// HealthHandler reports liveness.
type HealthHandler struct {
	history      *signal.History
	fundamentals bool
	notifiers    int
	started      time.Time
	now          func() time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(history *signal.History, fundamentalsEnabled bool, notifiers int) *HealthHandler {
	return &HealthHandler{
		history:      history,
		fundamentals: fundamentalsEnabled,
		notifiers:    notifiers,
		started:      time.Now(),
		now:          time.Now,
	}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.history.Stats()
	now := h.now()

	fundamentals := "disabled"
	if h.fundamentals {
		fundamentals = "enabled"
	}

	response.JSON(w, http.StatusOK, HealthResponse{
		Status:           "healthy",
		Timestamp:        now,
		SignalsProcessed: stats.TotalSignals,
		HistorySize:      stats.HistorySize,
		Uptime:           now.Sub(h.started).Truncate(time.Second).String(),
		Fundamentals:     fundamentals,
		Notifiers:        h.notifiers,
	})
}
