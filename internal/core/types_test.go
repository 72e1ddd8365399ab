package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrengthFor(t *testing.T) {
	tests := []struct {
		confidence float64
		want       Strength
	}{
		{0.95, StrengthStrong},
		{0.81, StrengthStrong},
		{0.80, StrengthModerate},
		{0.66, StrengthModerate},
		{0.65, StrengthWeak},
		{0.10, StrengthWeak},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StrengthFor(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestDecodeRawSignal(t *testing.T) {
	sig, err := DecodeRawSignal(strings.NewReader(`{"ticker":"GBPUSD","confidence":0.72,"price":1.2650}`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("0.72"), sig["confidence"])
	ticker, ok := sig.String("ticker", "symbol")
	assert.True(t, ok)
	assert.Equal(t, "GBPUSD", ticker)
}

func TestDecodeRawSignal_InputFaults(t *testing.T) {
	bodies := map[string]string{
		"empty":      "",
		"invalid":    "{not json",
		"array":      `[1,2,3]`,
		"empty obj":  `{}`,
		"null value": `null`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRawSignal(strings.NewReader(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestRawSignal_StringFallback(t *testing.T) {
	sig := RawSignal{"symbol": "EURUSD", "signal": "SELL", "ticker": "  "}

	pair, ok := sig.String("ticker", "symbol")
	assert.True(t, ok)
	assert.Equal(t, "EURUSD", pair)

	action, ok := sig.String("action", "signal")
	assert.True(t, ok)
	assert.Equal(t, "SELL", action)

	_, ok = sig.String("missing")
	assert.False(t, ok)
}

func TestRawSignal_Float(t *testing.T) {
	sig := RawSignal{
		"num":    json.Number("0.5"),
		"native": 0.25,
		"str":    " 0.7 ",
		"bad":    "high",
		"null":   nil,
		"nan":    "NaN",
		"bool":   true,
	}

	v, err := sig.Float("num", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	v, err = sig.Float("native", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	v, err = sig.Float("str", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.7, v)

	v, err = sig.Float("absent", 0.65)
	require.NoError(t, err)
	assert.Equal(t, 0.65, v)

	for _, key := range []string{"bad", "null", "nan", "bool"} {
		_, err := sig.Float(key, 0)
		assert.Error(t, err, key)
	}
}

func TestRawSignal_Clone(t *testing.T) {
	sig := RawSignal{"ticker": "GBPUSD"}
	c := sig.Clone()
	c["ticker"] = "EURUSD"
	assert.Equal(t, "GBPUSD", sig["ticker"])
}

func TestNormalizeInstrument(t *testing.T) {
	tests := map[string]string{
		"gbpusd":       "GBPUSD",
		" EURUSD ":     "EURUSD",
		"OANDA:GBPUSD": "GBPUSD",
		"fx:audcad":    "AUDCAD",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeInstrument(in), in)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.95, Clamp(1.3, 0.1, 0.95))
	assert.Equal(t, 0.1, Clamp(-2, 0.1, 0.95))
	assert.Equal(t, 0.5, Clamp(0.5, 0.1, 0.95))
}
