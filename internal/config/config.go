package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/sigrelay/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig              `mapstructure:"server"`
	History      HistoryConfig             `mapstructure:"history"`
	Patterns     []PatternConfig           `mapstructure:"patterns"`
	Fundamentals FundamentalsConfig        `mapstructure:"fundamentals"`
	Notifiers    map[string]NotifierConfig `mapstructure:"notifiers"`
	Routing      RoutingConfig             `mapstructure:"routing"`
	Metrics      MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" or "release"
	APIKey          string        `mapstructure:"api_key"`
	PublicURL       string        `mapstructure:"public_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HistoryConfig sizes the rolling signal history and its views.
type HistoryConfig struct {
	Capacity        int `mapstructure:"capacity"`
	RecentAPI       int `mapstructure:"recent_api"`
	RecentDashboard int `mapstructure:"recent_dashboard"`
}

// PatternConfig overrides one entry of the built-in pattern table.
type PatternConfig struct {
	Instrument      string  `mapstructure:"instrument"`
	Timeframe       string  `mapstructure:"timeframe"`
	BaseReturn      float64 `mapstructure:"base_return"`
	EnhancedReturn  float64 `mapstructure:"enhanced_return"`
	ConfidenceBoost float64 `mapstructure:"confidence_boost"`
}

// FundamentalsConfig holds fundamental overlay settings.
type FundamentalsConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	CacheTTL     time.Duration     `mapstructure:"cache_ttl"`
	FetchTimeout time.Duration     `mapstructure:"fetch_timeout"`
	FetchBudget  time.Duration     `mapstructure:"fetch_budget"` // whole refresh of one category
	MarketRPS    float64           `mapstructure:"market_rps"`
	NewsRPS      float64           `mapstructure:"news_rps"`
	ItemsPerFeed int               `mapstructure:"items_per_feed"`
	Indicators   map[string]string `mapstructure:"indicators"` // name -> Yahoo symbol
	Feeds        map[string]string `mapstructure:"feeds"`      // name -> RSS URL
}

type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`

	// webhook
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`

	// email
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// RoutingConfig filters which enhanced signals reach the notifiers.
type RoutingConfig struct {
	MinConfidence  float64       `mapstructure:"min_confidence"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	EnabledActions []string      `mapstructure:"enabled_actions"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file over the defaults. An empty path
// loads the defaults with environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// viper lowercases map keys; indicator names are upper case
	if len(cfg.Fundamentals.Indicators) > 0 {
		indicators := make(map[string]string, len(cfg.Fundamentals.Indicators))
		for name, symbol := range cfg.Fundamentals.Indicators {
			indicators[strings.ToUpper(name)] = symbol
		}
		cfg.Fundamentals.Indicators = indicators
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.public_url", d.Server.PublicURL)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("history.capacity", d.History.Capacity)
	v.SetDefault("history.recent_api", d.History.RecentAPI)
	v.SetDefault("history.recent_dashboard", d.History.RecentDashboard)

	v.SetDefault("fundamentals.enabled", d.Fundamentals.Enabled)
	v.SetDefault("fundamentals.cache_ttl", d.Fundamentals.CacheTTL)
	v.SetDefault("fundamentals.fetch_timeout", d.Fundamentals.FetchTimeout)
	v.SetDefault("fundamentals.fetch_budget", d.Fundamentals.FetchBudget)
	v.SetDefault("fundamentals.market_rps", d.Fundamentals.MarketRPS)
	v.SetDefault("fundamentals.news_rps", d.Fundamentals.NewsRPS)
	v.SetDefault("fundamentals.items_per_feed", d.Fundamentals.ItemsPerFeed)

	v.SetDefault("routing.min_confidence", d.Routing.MinConfidence)
	v.SetDefault("routing.cooldown", d.Routing.Cooldown)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			Mode:            "release",
			ShutdownTimeout: 10 * time.Second,
		},
		History: HistoryConfig{
			Capacity:        1000,
			RecentAPI:       50,
			RecentDashboard: 20,
		},
		Fundamentals: FundamentalsConfig{
			Enabled:      true,
			CacheTTL:     5 * time.Minute,
			FetchTimeout: 10 * time.Second,
			FetchBudget:  60 * time.Second,
			MarketRPS:    5,
			NewsRPS:      2,
			ItemsPerFeed: 5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// History validation
	if c.History.Capacity < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history capacity must be positive, got %d", c.History.Capacity))
	}
	if c.History.RecentAPI < 1 || c.History.RecentDashboard < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("history views must be positive, got recent_api=%d recent_dashboard=%d",
				c.History.RecentAPI, c.History.RecentDashboard))
	}

	for i, p := range c.Patterns {
		if strings.TrimSpace(p.Instrument) == "" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("patterns[%d]: instrument required", i))
		}
		if p.ConfidenceBoost < 0 || p.ConfidenceBoost >= 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("patterns[%d]: confidence_boost must be in [0, 1), got %f", i, p.ConfidenceBoost))
		}
	}

	// Fundamentals validation - only when the overlay is enabled
	if c.Fundamentals.Enabled {
		if c.Fundamentals.CacheTTL <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("fundamentals cache_ttl must be positive, got %s", c.Fundamentals.CacheTTL))
		}
		if c.Fundamentals.FetchTimeout <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("fundamentals fetch_timeout must be positive, got %s", c.Fundamentals.FetchTimeout))
		}
		if c.Fundamentals.FetchBudget < c.Fundamentals.FetchTimeout {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("fundamentals fetch_budget must be at least fetch_timeout, got %s", c.Fundamentals.FetchBudget))
		}
		if c.Fundamentals.MarketRPS < 0 || c.Fundamentals.NewsRPS < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("fundamentals rps cannot be negative"))
		}
	}

	if c.Routing.MinConfidence < 0 || c.Routing.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("routing min_confidence must be in [0, 1], got %f", c.Routing.MinConfidence))
	}
	if c.Routing.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("routing cooldown cannot be negative, got %s", c.Routing.Cooldown))
	}

	// Notifier validation - enabled notifiers need their endpoint
	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("telegram bot_token and chat_id required when enabled"))
			}
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("webhook url required when enabled"))
			}
		case "email":
			if n.Host == "" || n.From == "" || len(n.To) == 0 {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("email host, from and to required when enabled"))
			}
		}
	}

	return nil
}
