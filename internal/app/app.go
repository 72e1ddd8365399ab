package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/api"
	"github.com/newthinker/sigrelay/internal/collector"
	"github.com/newthinker/sigrelay/internal/collector/rss"
	"github.com/newthinker/sigrelay/internal/collector/yahoo"
	"github.com/newthinker/sigrelay/internal/config"
	"github.com/newthinker/sigrelay/internal/fundamental"
	"github.com/newthinker/sigrelay/internal/metrics"
	"github.com/newthinker/sigrelay/internal/notifier"
	"github.com/newthinker/sigrelay/internal/notifier/email"
	"github.com/newthinker/sigrelay/internal/notifier/telegram"
	"github.com/newthinker/sigrelay/internal/notifier/webhook"
	"github.com/newthinker/sigrelay/internal/pattern"
	"github.com/newthinker/sigrelay/internal/router"
	"github.com/newthinker/sigrelay/internal/storage/signal"
)

// Sources are the upstream data clients used by the fundamental overlay.
type Sources struct {
	Prices collector.PriceSource
	Feeds  collector.FeedSource
}

// App wires the relay's components from configuration.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	enhancer  *pattern.Enhancer
	history   *signal.History
	overlay   *fundamental.Overlay
	notifiers *notifier.Registry
	router    *router.Router
}

// New creates a new App instance using the Yahoo and RSS clients.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	timeout := cfg.Fundamentals.FetchTimeout
	return NewWithSources(cfg, Sources{
		Prices: yahoo.New(timeout),
		Feeds:  rss.New(timeout),
	}, logger)
}

// NewWithSources creates an App over the given upstream clients.
func NewWithSources(cfg *config.Config, sources Sources, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	table, err := buildTable(cfg.Patterns)
	if err != nil {
		return nil, fmt.Errorf("building pattern table: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		enhancer: pattern.NewEnhancer(table, logger.Named("pattern")),
		history:  signal.NewHistory(cfg.History.Capacity),
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}
	a.notifiers = notifier.NewRegistry(logger.Named("notifier"), a.metrics)
	a.router = router.New(router.Config{
		MinConfidence:  cfg.Routing.MinConfidence,
		Cooldown:       cfg.Routing.Cooldown,
		EnabledActions: cfg.Routing.EnabledActions,
	}, a.notifiers, logger.Named("router"))

	if cfg.Fundamentals.Enabled {
		a.overlay = fundamental.New(sources.Prices, sources.Feeds, fundamental.Config{
			CacheTTL:     cfg.Fundamentals.CacheTTL,
			FetchBudget:  cfg.Fundamentals.FetchBudget,
			Indicators:   cfg.Fundamentals.Indicators,
			Feeds:        cfg.Fundamentals.Feeds,
			ItemsPerFeed: cfg.Fundamentals.ItemsPerFeed,
			MarketRPS:    cfg.Fundamentals.MarketRPS,
			NewsRPS:      cfg.Fundamentals.NewsRPS,
		}, logger.Named("fundamental"), a.metrics)
	}

	if err := a.registerNotifiers(); err != nil {
		return nil, err
	}

	logger.Info("relay components ready",
		zap.Int("patterns", table.Len()),
		zap.Int("history_capacity", a.history.Capacity()),
		zap.Bool("fundamentals", a.overlay != nil),
		zap.Int("notifiers", a.notifiers.Len()),
	)

	return a, nil
}

func buildTable(patterns []config.PatternConfig) (*pattern.Table, error) {
	if len(patterns) == 0 {
		return pattern.DefaultTable(), nil
	}

	entries := make([]pattern.Entry, 0, len(patterns))
	for _, p := range patterns {
		entries = append(entries, pattern.Entry{
			Key: pattern.NewKey(p.Instrument, p.Timeframe),
			Record: pattern.Record{
				BaseReturn:      p.BaseReturn,
				EnhancedReturn:  p.EnhancedReturn,
				ConfidenceBoost: p.ConfidenceBoost,
			},
		})
	}
	return pattern.NewTable(entries)
}

func (a *App) registerNotifiers() error {
	for name, nc := range a.cfg.Notifiers {
		if !nc.Enabled {
			continue
		}

		var n notifier.Notifier
		params := map[string]any{}
		switch name {
		case "webhook":
			n = &webhook.Webhook{}
			params["url"] = nc.URL
			params["headers"] = nc.Headers
		case "telegram":
			n = &telegram.Telegram{}
			params["bot_token"] = nc.BotToken
			params["chat_id"] = nc.ChatID
		case "email":
			n = &email.Email{}
			params["host"] = nc.Host
			params["port"] = nc.Port
			params["username"] = nc.Username
			params["password"] = nc.Password
			params["from"] = nc.From
			params["to"] = nc.To
		default:
			a.logger.Warn("unknown notifier in config, skipping", zap.String("notifier", name))
			continue
		}

		if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
			return fmt.Errorf("initializing notifier %s: %w", name, err)
		}
		if err := a.RegisterNotifier(n); err != nil {
			return err
		}
	}
	return nil
}

// RegisterNotifier adds a notifier
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// Enhancer returns the pattern enhancer.
func (a *App) Enhancer() *pattern.Enhancer { return a.enhancer }

// History returns the rolling signal history.
func (a *App) History() *signal.History { return a.history }

// Overlay returns the fundamental overlay, or nil when disabled.
func (a *App) Overlay() *fundamental.Overlay { return a.overlay }

// Notifiers returns the notifier registry.
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Router returns the notification router in front of the registry.
func (a *App) Router() *router.Router { return a.router }

// Metrics returns the metrics registry, or nil when disabled.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Server builds the HTTP server over the app's components.
func (a *App) Server() (*api.Server, error) {
	deps := api.Dependencies{
		Enhancer:  a.enhancer,
		History:   a.history,
		Notifiers: a.router,
		Metrics:   a.metrics,
	}
	if a.overlay != nil {
		deps.Overlay = a.overlay
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}

	return api.NewServer(api.Config{
		Host:                a.cfg.Server.Host,
		Port:                a.cfg.Server.Port,
		APIKey:              a.cfg.Server.APIKey,
		PublicURL:           a.cfg.Server.PublicURL,
		RecentAPI:           a.cfg.History.RecentAPI,
		RecentDashboard:     a.cfg.History.RecentDashboard,
		MetricsPath:         metricsPath,
		FundamentalsTimeout: 2 * a.cfg.Fundamentals.FetchTimeout,
	}, deps, a.logger.Named("api"))
}

// GetStats returns a summary of the wired components.
func (a *App) GetStats() map[string]any {
	return map[string]any{
		"patterns":     a.enhancer.Table().Len(),
		"history":      a.history.Len(),
		"capacity":     a.history.Capacity(),
		"fundamentals": a.overlay != nil,
		"notifiers":    a.notifiers.Len(),
		"routing":      a.router.GetStats(),
		"metrics":      a.metrics != nil,
	}
}
