package fundamental

import (
	"math"

	"github.com/newthinker/sigrelay/internal/core"
)

// Risk sentiment labels.
const (
	RiskOn      = "RISK_ON"
	RiskOff     = "RISK_OFF"
	RiskNeutral = "NEUTRAL"
	RiskUnknown = "UNKNOWN"
)

// Bounds applied to the enhancement factor and the adjusted confidence.
const (
	MinFactor     = 0.7
	MaxFactor     = 1.4
	MinConfidence = 0.1
	MaxConfidence = 0.95

	newsMinConfidence = 0.2
	newsWeight        = 0.15
	currencyThreshold = 0.1
	currencyWeight    = 0.1
	currencyMaxImpact = 0.2
)

// CurrencyFactors are the signed fundamental pressures on each side of a
// pair. Positive values favour the base currency.
type CurrencyFactors struct {
	Base  []float64 `json:"base_factors"`
	Quote []float64 `json:"quote_factors"`
}

// Total returns the sum of base and quote factors.
func (f CurrencyFactors) Total() float64 {
	total := 0.0
	for _, v := range f.Base {
		total += v
	}
	for _, v := range f.Quote {
		total += v
	}
	return total
}

// SplitPair splits a six-letter pair into base (first three letters) and
// quote (the rest).
func SplitPair(pair string) (base, quote string) {
	if len(pair) <= 3 {
		return pair, ""
	}
	return pair[:3], pair[3:]
}

// CalculateCurrencyFactors derives per-side factors for pair from market data.
// The base side takes the signed value, the quote side its negation.
func CalculateCurrencyFactors(pair string, market MarketData) CurrencyFactors {
	base, quote := SplitPair(pair)
	factors := CurrencyFactors{Base: []float64{}, Quote: []float64{}}

	add := func(curr string, v float64) {
		if base == curr {
			factors.Base = append(factors.Base, v)
		} else {
			factors.Quote = append(factors.Quote, -v)
		}
	}
	involves := func(curr string) bool {
		return base == curr || quote == curr
	}

	if involves("USD") {
		if dxy, ok := market[DXY]; ok && math.Abs(dxy.ChangePct) > 0.3 {
			add("USD", sign(dxy.ChangePct))
		}
		if tnx, ok := market[TNX]; ok && math.Abs(tnx.ChangePct) > 1 {
			add("USD", sign(tnx.ChangePct)*0.5)
		}
	}

	if involves("CAD") {
		if oil, ok := market[OIL]; ok && math.Abs(oil.ChangePct) > 1 {
			add("CAD", sign(oil.ChangePct)*0.7)
		}
	}

	// Safe havens gain when fear and gold rise.
	for _, curr := range []string{"JPY", "CHF"} {
		if !involves(curr) {
			continue
		}
		haven := 0.0
		if vix, ok := market[VIX]; ok {
			if vix.ChangePct > 5 {
				haven++
			} else if vix.ChangePct < -5 {
				haven--
			}
		}
		if gld, ok := market[GLD]; ok {
			if gld.ChangePct > 1 {
				haven += 0.5
			} else if gld.ChangePct < -1 {
				haven -= 0.5
			}
		}
		if haven != 0 {
			add(curr, haven)
		}
	}

	// Commodity currencies follow equities.
	for _, curr := range []string{"AUD", "NZD"} {
		if !involves(curr) {
			continue
		}
		if spx, ok := market[SPX]; ok {
			if spx.ChangePct > 1 {
				add(curr, 0.6)
			} else if spx.ChangePct < -1 {
				add(curr, -0.6)
			}
		}
	}

	return factors
}

// EnhancementFactor combines news sentiment and currency factors into a
// multiplier in [MinFactor, MaxFactor].
func EnhancementFactor(pair string, market MarketData, news NewsSentiment) float64 {
	factor := 1.0

	if news.ArticlesAnalyzed > 0 && news.Confidence > newsMinConfidence {
		factor *= 1 + news.SentimentScore*news.Confidence*newsWeight
	}

	total := CalculateCurrencyFactors(pair, market).Total()
	if math.Abs(total) > currencyThreshold {
		factor *= 1 + core.Clamp(total*currencyWeight, -currencyMaxImpact, currencyMaxImpact)
	}

	if math.IsNaN(factor) {
		return 1.0
	}
	return core.Clamp(factor, MinFactor, MaxFactor)
}

// ApplyEnhancement scales a confidence by factor, bounded to
// [MinConfidence, MaxConfidence].
func ApplyEnhancement(confidence, factor float64) float64 {
	return core.Clamp(confidence*factor, MinConfidence, MaxConfidence)
}

// RiskSentiment reads the overall risk appetite from VIX level, SPX change
// and TNX change.
func RiskSentiment(market MarketData) string {
	var votes []float64

	if vix, ok := market[VIX]; ok {
		switch {
		case vix.Value > 25:
			votes = append(votes, -1)
		case vix.Value < 15:
			votes = append(votes, 1)
		default:
			votes = append(votes, 0)
		}
	}
	if spx, ok := market[SPX]; ok {
		votes = append(votes, threshold(spx.ChangePct, 1))
	}
	if tnx, ok := market[TNX]; ok {
		votes = append(votes, threshold(tnx.ChangePct, 2))
	}

	if len(votes) == 0 {
		return RiskUnknown
	}

	sum := 0.0
	for _, v := range votes {
		sum += v
	}
	avg := sum / float64(len(votes))

	switch {
	case avg > 0.3:
		return RiskOn
	case avg < -0.3:
		return RiskOff
	default:
		return RiskNeutral
	}
}

// threshold returns 1 above limit, -1 below -limit, else 0.
func threshold(v, limit float64) float64 {
	switch {
	case v > limit:
		return 1
	case v < -limit:
		return -1
	default:
		return 0
	}
}

func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	return -1
}
