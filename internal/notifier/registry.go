package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/metrics"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	logger    *zap.Logger
	metrics   *metrics.Registry
}

// NewRegistry creates a new notifier registry. logger and reg may be nil.
func NewRegistry(logger *zap.Logger, reg *metrics.Registry) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		notifiers: make(map[string]Notifier),
		logger:    logger,
		metrics:   reg,
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns all registered notifiers ordered by name
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends a signal to all registered notifiers. Failures are
// logged, counted and returned keyed by notifier name.
func (r *Registry) NotifyAll(ctx context.Context, signal core.EnhancedSignal) map[string]error {
	notifiers := r.GetAll()

	errs := make(map[string]error)
	for _, n := range notifiers {
		name := n.Name()
		if err := n.Send(ctx, signal); err != nil {
			errs[name] = core.WrapError(core.ErrNotifierFailed, err)
			r.metrics.RecordNotification(name, "failed")
			r.logger.Warn("notification failed",
				zap.String("notifier", name),
				zap.String("pair", signal.Pair),
				zap.Error(err),
			)
			continue
		}
		r.metrics.RecordNotification(name, "sent")
	}
	return errs
}
