package core

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Strength is the categorical label derived from an enhanced confidence.
type Strength string

const (
	StrengthStrong   Strength = "STRONG"
	StrengthModerate Strength = "MODERATE"
	StrengthWeak     Strength = "WEAK"
)

// Confidence thresholds used for strength labels and statistics.
const (
	StrongThreshold   = 0.8
	ModerateThreshold = 0.65
)

// StrengthFor maps an enhanced confidence to its strength label.
func StrengthFor(confidence float64) Strength {
	switch {
	case confidence > StrongThreshold:
		return StrengthStrong
	case confidence > ModerateThreshold:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// RawSignal is an inbound signal payload as posted by the alerting service.
// Numbers are kept as json.Number so the payload can be echoed back untouched.
type RawSignal map[string]any

// DecodeRawSignal reads a JSON object from r. Empty bodies, invalid JSON,
// non-object payloads and empty objects are input faults.
func DecodeRawSignal(r io.Reader) (RawSignal, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var sig RawSignal
	if err := dec.Decode(&sig); err != nil {
		if err == io.EOF {
			return nil, WrapError(ErrInvalidInput, fmt.Errorf("no data received"))
		}
		return nil, WrapError(ErrInvalidInput, err)
	}
	if len(sig) == 0 {
		return nil, WrapError(ErrInvalidInput, fmt.Errorf("no data received"))
	}
	return sig, nil
}

// String returns the first non-empty string value among keys.
func (s RawSignal) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := s[k]
		if !ok || v == nil {
			continue
		}
		var str string
		switch t := v.(type) {
		case string:
			str = t
		case json.Number:
			str = t.String()
		default:
			str = fmt.Sprint(t)
		}
		if str = strings.TrimSpace(str); str != "" {
			return str, true
		}
	}
	return "", false
}

// Float returns the numeric value at key, or def when the key is absent.
// Explicit nulls, non-numeric strings and non-finite values are errors.
func (s RawSignal) Float(key string, def float64) (float64, error) {
	v, ok := s[key]
	if !ok {
		return def, nil
	}

	var f float64
	var err error
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	case nil:
		return 0, fmt.Errorf("%s is null", key)
	default:
		return 0, fmt.Errorf("%s has non-numeric type %T", key, v)
	}
	if err != nil {
		return 0, fmt.Errorf("%s is not numeric: %w", key, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s is not finite", key)
	}
	return f, nil
}

// Clone returns a shallow copy of the payload.
func (s RawSignal) Clone() RawSignal {
	out := make(RawSignal, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// NormalizeInstrument upper-cases a symbol and strips an exchange prefix
// such as "OANDA:" or "FX:".
func NormalizeInstrument(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if i := strings.LastIndex(symbol, ":"); i >= 0 {
		symbol = symbol[i+1:]
	}
	return strings.ToUpper(symbol)
}

// EnhancedSignal is the immutable result of running a signal through the
// pattern enhancer.
type EnhancedSignal struct {
	Timestamp            time.Time `json:"timestamp"`
	Pair                 string    `json:"pair"`
	Timeframe            string    `json:"timeframe"`
	Action               string    `json:"action"`
	OriginalConfidence   float64   `json:"original_confidence"`
	EnhancedConfidence   float64   `json:"enhanced_confidence"`
	ConfidenceDelta      float64   `json:"confidence_improvement"`
	OriginalPositionSize float64   `json:"original_position_size"`
	EnhancedPositionSize float64   `json:"enhanced_position_size"`
	KellyMultiplier      float64   `json:"kelly_multiplier"`
	ExpectedReturn       float64   `json:"expected_return"`
	Matched              bool      `json:"power_upgrade_applied"`
	Strength             Strength  `json:"signal_strength"`
	Raw                  RawSignal `json:"raw_data"`
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
