package fundamental

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	breakerInterval    = 60 * time.Second
	breakerTimeout     = 60 * time.Second
	breakerMaxFailures = 3
)

// sourceGuard paces calls to one kind of upstream and keeps a circuit
// breaker per named source, so a dead feed stops being polled.
type sourceGuard struct {
	limiter *rate.Limiter
	logger  *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newSourceGuard(rps float64, logger *zap.Logger) *sourceGuard {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &sourceGuard{
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (g *sourceGuard) breaker(name string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: breakerInterval,
		Timeout:  breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		// A call abandoned by its caller says nothing about the source.
		IsSuccessful: func(err error) bool {
			var aborted abortedError
			return err == nil || errors.As(err, &aborted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("source breaker state changed",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	g.breakers[name] = cb
	return cb
}

// do runs fn for the named source once the limiter allows it. An open
// breaker fails fast without waiting.
func (g *sourceGuard) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	cb := g.breaker(name)
	if cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("%s: %w", name, gobreaker.ErrOpenState)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	_, err := cb.Execute(func() (interface{}, error) {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, abortedError{err}
			}
			return nil, err
		}
		return nil, nil
	})

	var aborted abortedError
	if errors.As(err, &aborted) {
		return aborted.err
	}
	return err
}

// abortedError marks a failure that happened after the caller's context
// ended.
type abortedError struct{ err error }

func (e abortedError) Error() string { return e.err.Error() }
func (e abortedError) Unwrap() error { return e.err }

// states returns the breaker state of every source seen so far.
func (g *sourceGuard) states() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]string, len(g.breakers))
	for name, cb := range g.breakers {
		out[name] = cb.State().String()
	}
	return out
}
