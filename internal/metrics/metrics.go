package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
// Recording methods are no-ops on a nil *Registry.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	signalsEnhanced    *prometheus.CounterVec
	signalsFailed      prometheus.Counter
	historySize        prometheus.Gauge
	fundamentalFetches *prometheus.CounterVec
	fundamentalCache   *prometheus.CounterVec
	overlayTotal       *prometheus.CounterVec
	notifications      *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.signalsEnhanced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigrelay_signals_enhanced_total",
			Help: "Total number of signals run through the pattern enhancer",
		},
		[]string{"matched", "strength"},
	)
	r.signalsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sigrelay_signals_failed_total",
			Help: "Total number of signals rejected or failed during enhancement",
		},
	)
	r.historySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sigrelay_history_size",
			Help: "Number of enhanced signals retained in history",
		},
	)
	r.fundamentalFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigrelay_fundamental_fetch_total",
			Help: "Total number of fundamental data fetches",
		},
		[]string{"category", "outcome"},
	)
	r.fundamentalCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigrelay_fundamental_cache_total",
			Help: "Fundamental cache lookups by result",
		},
		[]string{"result"},
	)
	r.overlayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigrelay_overlay_total",
			Help: "Total number of fundamental overlay runs by outcome",
		},
		[]string{"outcome"},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigrelay_notifications_total",
			Help: "Total number of enhanced signals relayed to notifiers",
		},
		[]string{"notifier", "status"},
	)

	reg.MustRegister(r.signalsEnhanced)
	reg.MustRegister(r.signalsFailed)
	reg.MustRegister(r.historySize)
	reg.MustRegister(r.fundamentalFetches)
	reg.MustRegister(r.fundamentalCache)
	reg.MustRegister(r.overlayTotal)
	reg.MustRegister(r.notifications)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Dec()
}

// RecordEnhanced records a signal that went through the pattern enhancer.
func (r *Registry) RecordEnhanced(matched bool, strength string) {
	if r == nil {
		return
	}
	m := "false"
	if matched {
		m = "true"
	}
	r.signalsEnhanced.WithLabelValues(m, strength).Inc()
}

// RecordEnhanceFailure records a rejected or failed signal.
func (r *Registry) RecordEnhanceFailure() {
	if r == nil {
		return
	}
	r.signalsFailed.Inc()
}

// SetHistorySize sets the number of retained signals.
func (r *Registry) SetHistorySize(size int) {
	if r == nil {
		return
	}
	r.historySize.Set(float64(size))
}

// RecordFetch records a fundamental fetch for a cache category.
// outcome is "ok" or "error".
func (r *Registry) RecordFetch(category, outcome string) {
	if r == nil {
		return
	}
	r.fundamentalFetches.WithLabelValues(category, outcome).Inc()
}

// RecordCacheLookup records a cache lookup result (hit, miss, stale, empty).
func (r *Registry) RecordCacheLookup(result string) {
	if r == nil {
		return
	}
	r.fundamentalCache.WithLabelValues(result).Inc()
}

// RecordOverlay records a fundamental overlay run.
func (r *Registry) RecordOverlay(outcome string) {
	if r == nil {
		return
	}
	r.overlayTotal.WithLabelValues(outcome).Inc()
}

// RecordNotification records a relayed signal.
func (r *Registry) RecordNotification(notifier, status string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(notifier, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
