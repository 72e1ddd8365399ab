// internal/storage/signal/history.go
package signal

import (
	"sort"
	"sync"
	"time"

	"github.com/newthinker/sigrelay/internal/core"
)

// DefaultCapacity is the number of enhanced signals retained.
const DefaultCapacity = 1000

// Reported as-is; outcomes of relayed signals are not tracked.
const (
	ValidatedSuccessRate = 100.0
	TotalReturn          = 0.0
)

// Stats is a point-in-time view of the aggregate counters.
type Stats struct {
	TotalSignals          int       `json:"total_signals"`
	SignalsToday          int       `json:"signals_today"`
	HighConfidenceSignals int       `json:"high_confidence_signals"`
	AvgConfidence         float64   `json:"avg_confidence"`
	ActivePairs           []string  `json:"active_pairs"`
	SuccessRate           float64   `json:"success_rate"`
	TotalReturn           float64   `json:"total_return"`
	HistorySize           int       `json:"history_size"`
	Timestamp             time.Time `json:"timestamp"`
}

// History is a bounded, in-memory log of enhanced signals together with the
// aggregate stats derived from it. Buffer and stats change under one lock.
type History struct {
	mu      sync.RWMutex
	signals []core.EnhancedSignal
	maxSize int

	total    int
	today    int
	todayKey string
	high     int
	avg      float64
	pairs    map[string]struct{}

	now func() time.Time
}

// NewHistory creates a history holding at most maxSize signals.
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultCapacity
	}
	return &History{
		signals: make([]core.EnhancedSignal, 0, maxSize),
		maxSize: maxSize,
		pairs:   make(map[string]struct{}),
		now:     time.Now,
	}
}

// Record appends sig, evicting the oldest entry past capacity, and updates
// the aggregate stats.
func (h *History) Record(sig core.EnhancedSignal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.signals = append(h.signals, sig)

	// Trim if over capacity (remove oldest)
	if len(h.signals) > h.maxSize {
		h.signals = h.signals[len(h.signals)-h.maxSize:]
	}

	h.total++
	day := dayKey(h.now())
	if day != h.todayKey {
		h.todayKey = day
		h.today = 0
	}
	h.today++

	if sig.EnhancedConfidence > core.StrongThreshold {
		h.high++
	}

	sum := 0.0
	for i := range h.signals {
		sum += h.signals[i].EnhancedConfidence
	}
	h.avg = sum / float64(len(h.signals))

	h.pairs[sig.Pair] = struct{}{}
}

// Recent returns up to n of the newest signals, oldest first.
// n <= 0 returns everything retained.
func (h *History) Recent(n int) []core.EnhancedSignal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if n > 0 && n < len(h.signals) {
		start = len(h.signals) - n
	}
	out := make([]core.EnhancedSignal, len(h.signals)-start)
	copy(out, h.signals[start:])
	return out
}

// Len returns the number of retained signals.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.signals)
}

// Capacity returns the maximum number of retained signals.
func (h *History) Capacity() int {
	return h.maxSize
}

// Stats returns a consistent snapshot of the aggregate counters.
func (h *History) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	today := h.today
	if dayKey(now) != h.todayKey {
		today = 0
	}

	pairs := make([]string, 0, len(h.pairs))
	for p := range h.pairs {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)

	return Stats{
		TotalSignals:          h.total,
		SignalsToday:          today,
		HighConfidenceSignals: h.high,
		AvgConfidence:         h.avg,
		ActivePairs:           pairs,
		SuccessRate:           ValidatedSuccessRate,
		TotalReturn:           TotalReturn,
		HistorySize:           len(h.signals),
		Timestamp:             now,
	}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
