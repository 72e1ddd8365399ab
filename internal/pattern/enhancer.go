package pattern

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/newthinker/sigrelay/internal/core"
	"go.uber.org/zap"
)

const (
	DefaultConfidence   = 0.65
	DefaultPositionSize = 2.0

	MaxConfidence   = 0.95
	MaxPositionSize = 5.0

	// KellyScale damps the Kelly multiplier when sizing positions.
	KellyScale = 0.3

	FallbackBoost          = 0.05
	FallbackExpectedReturn = 15.0
)

// Enhancer maps signals through a pattern table. It has no side effects
// beyond logging; callers record successful results.
type Enhancer struct {
	table  *Table
	logger *zap.Logger
	now    func() time.Time
}

// NewEnhancer creates an enhancer over table.
func NewEnhancer(table *Table, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{
		table:  table,
		logger: logger,
		now:    time.Now,
	}
}

// Table returns the pattern table in use.
func (e *Enhancer) Table() *Table {
	return e.table
}

// Enhance applies the matching pattern, or the conservative fallback when
// none matches. A missing instrument or action is core.ErrInvalidInput;
// non-numeric confidence or position size is core.ErrEnhancementFailed.
func (e *Enhancer) Enhance(raw core.RawSignal) (*core.EnhancedSignal, error) {
	instrument, ok := raw.String("ticker", "symbol")
	if !ok {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("missing instrument (ticker or symbol)"))
	}
	action, ok := raw.String("action", "signal")
	if !ok {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("missing action"))
	}
	timeframe, _ := raw.String("timeframe")

	confidence, err := raw.Float("confidence", DefaultConfidence)
	if err != nil {
		return nil, core.WrapError(core.ErrEnhancementFailed, err)
	}
	size, err := raw.Float("position_size", DefaultPositionSize)
	if err != nil {
		return nil, core.WrapError(core.ErrEnhancementFailed, err)
	}

	key := NewKey(core.NormalizeInstrument(instrument), timeframe)
	sig := &core.EnhancedSignal{
		Timestamp:            e.now(),
		Pair:                 key.Instrument,
		Timeframe:            key.Timeframe,
		Action:               strings.ToUpper(action),
		OriginalConfidence:   confidence,
		OriginalPositionSize: size,
		Raw:                  raw,
	}

	rec, found := e.table.Lookup(key)
	if !found {
		sig.EnhancedConfidence = confidence + FallbackBoost
		sig.ConfidenceDelta = FallbackBoost
		sig.EnhancedPositionSize = size
		sig.KellyMultiplier = 1.0
		sig.ExpectedReturn = FallbackExpectedReturn
		sig.Strength = core.StrengthWeak

		e.logger.Warn("unknown pattern, applied conservative enhancement",
			zap.String("pattern", key.String()),
		)
		return sig, nil
	}

	enhanced := math.Min(MaxConfidence, confidence+rec.ConfidenceBoost)
	kelly := rec.KellyMultiplier()

	sig.EnhancedConfidence = enhanced
	sig.ConfidenceDelta = enhanced - confidence
	sig.KellyMultiplier = kelly
	sig.EnhancedPositionSize = math.Min(MaxPositionSize, size*kelly*KellyScale)
	sig.ExpectedReturn = rec.EnhancedReturn
	sig.Matched = true
	sig.Strength = core.StrengthFor(enhanced)

	e.logger.Info("enhanced signal",
		zap.String("pair", sig.Pair),
		zap.String("timeframe", sig.Timeframe),
		zap.Float64("original_confidence", confidence),
		zap.Float64("enhanced_confidence", enhanced),
	)
	return sig, nil
}
