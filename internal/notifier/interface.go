package notifier

import (
	"context"

	"github.com/newthinker/sigrelay/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Notifier relays enhanced signals to a downstream channel.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single enhanced signal
	Send(ctx context.Context, signal core.EnhancedSignal) error
}
