package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/core"
)

// Config holds router configuration
type Config struct {
	MinConfidence  float64       `mapstructure:"min_confidence"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	EnabledActions []string      `mapstructure:"enabled_actions"`
}

// DefaultConfig forwards every enhanced signal.
func DefaultConfig() Config {
	return Config{}
}

// Notifiers is the fan-out the router forwards to.
type Notifiers interface {
	NotifyAll(ctx context.Context, signal core.EnhancedSignal) map[string]error
	Len() int
}

// Router forwards enhanced signals to the notifiers when they clear the
// confidence threshold, the action allow-list and the per-pattern cooldown.
type Router struct {
	cfg       Config
	notifiers Notifiers
	logger    *zap.Logger
	cooldowns map[string]time.Time // pattern key -> last forwarded
	now       func() time.Time
	mu        sync.Mutex
}

// New creates a new signal router
func New(cfg Config, notifiers Notifiers, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	actions := make([]string, 0, len(cfg.EnabledActions))
	for _, a := range cfg.EnabledActions {
		actions = append(actions, strings.ToUpper(strings.TrimSpace(a)))
	}
	cfg.EnabledActions = actions
	return &Router{
		cfg:       cfg,
		notifiers: notifiers,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Len returns the number of notifiers behind the router.
func (r *Router) Len() int {
	if r.notifiers == nil {
		return 0
	}
	return r.notifiers.Len()
}

// NotifyAll forwards signal when it passes the filters. A filtered signal
// returns no errors.
func (r *Router) NotifyAll(ctx context.Context, signal core.EnhancedSignal) map[string]error {
	if r.notifiers == nil || r.notifiers.Len() == 0 {
		return nil
	}
	if !r.admit(signal) {
		r.logger.Debug("signal filtered out",
			zap.String("pair", signal.Pair),
			zap.String("action", signal.Action),
			zap.Float64("confidence", signal.EnhancedConfidence),
		)
		return nil
	}

	errs := r.notifiers.NotifyAll(ctx, signal)

	r.logger.Info("signal routed",
		zap.String("pair", signal.Pair),
		zap.String("timeframe", signal.Timeframe),
		zap.Int("notifiers", r.notifiers.Len()),
		zap.Int("errors", len(errs)),
	)
	return errs
}

// admit applies the filters and starts the cooldown of an admitted signal.
func (r *Router) admit(signal core.EnhancedSignal) bool {
	// Check confidence threshold
	if signal.EnhancedConfidence < r.cfg.MinConfidence {
		return false
	}

	// Check action whitelist
	if len(r.cfg.EnabledActions) > 0 {
		allowed := false
		for _, a := range r.cfg.EnabledActions {
			if strings.EqualFold(signal.Action, a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if r.cfg.Cooldown <= 0 {
		return true
	}

	key := cooldownKey(signal)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.cooldowns[key]; ok && now.Sub(last) < r.cfg.Cooldown {
		return false
	}
	r.cooldowns[key] = now
	return true
}

func cooldownKey(signal core.EnhancedSignal) string {
	return signal.Pair + "_" + signal.Timeframe
}

// ClearCooldown removes the cooldown for a pair and timeframe.
func (r *Router) ClearCooldown(pair, timeframe string) {
	r.mu.Lock()
	delete(r.cooldowns, cooldownKey(core.EnhancedSignal{Pair: pair, Timeframe: timeframe}))
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.Cooldown * 2
	removed := 0

	for key, last := range r.cooldowns {
		if now.Sub(last) > expiry {
			delete(r.cooldowns, key)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically cleans up expired cooldowns.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if r.cfg.Cooldown <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := r.CleanupExpiredCooldowns()
				if removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return map[string]any{
		"cooldowns_active": len(r.cooldowns),
		"min_confidence":   r.cfg.MinConfidence,
		"cooldown_seconds": r.cfg.Cooldown.Seconds(),
		"enabled_actions":  r.cfg.EnabledActions,
	}
}
