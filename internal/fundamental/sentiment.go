package fundamental

import (
	"strings"
	"unicode"

	"github.com/newthinker/sigrelay/internal/core"
)

// Scorer rates the polarity of a piece of text in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// Lexicon is a word-list polarity scorer. The polarity of a text is the mean
// polarity of the lexicon words it contains; a preceding negator flips and
// damps a word, a preceding intensifier scales it.
type Lexicon struct {
	words        map[string]float64
	intensifiers map[string]float64
	negators     map[string]struct{}
}

// negation damping, as in common pattern-based sentiment analyzers
const negationFactor = -0.5

// DefaultLexicon returns a lexicon tuned for market and central bank news.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		words: map[string]float64{
			// positive
			"gain": 0.5, "gains": 0.5, "gained": 0.5,
			"rise": 0.4, "rises": 0.4, "rising": 0.4, "rose": 0.4,
			"rally": 0.6, "rallies": 0.6, "rallied": 0.6,
			"surge": 0.6, "surges": 0.6, "surged": 0.6,
			"jump": 0.5, "jumps": 0.5, "jumped": 0.5,
			"climb": 0.4, "climbs": 0.4, "climbed": 0.4,
			"strong": 0.5, "stronger": 0.5, "strongest": 0.6, "strength": 0.4,
			"growth": 0.4, "expansion": 0.3, "robust": 0.5, "solid": 0.3,
			"improve": 0.4, "improves": 0.4, "improved": 0.4, "improving": 0.4,
			"recovery": 0.4, "recover": 0.4, "recovers": 0.4, "rebound": 0.4,
			"optimism": 0.6, "optimistic": 0.6, "confidence": 0.3, "upbeat": 0.6,
			"beat": 0.4, "beats": 0.4, "exceeded": 0.4, "record": 0.3,
			"boost": 0.5, "boosts": 0.5, "boosted": 0.5, "support": 0.2,
			"bullish": 0.7, "positive": 0.5, "good": 0.6, "better": 0.5,
			"best": 0.8, "great": 0.8, "stable": 0.3, "steady": 0.2,
			"easing": 0.2, "high": 0.16, "higher": 0.25,
			// negative
			"fall": -0.4, "falls": -0.4, "falling": -0.4, "fell": -0.4,
			"drop": -0.4, "drops": -0.4, "dropped": -0.4,
			"decline": -0.4, "declines": -0.4, "declined": -0.4,
			"slump": -0.6, "slumps": -0.6, "slumped": -0.6,
			"plunge": -0.7, "plunges": -0.7, "plunged": -0.7,
			"tumble": -0.6, "tumbles": -0.6, "tumbled": -0.6,
			"crash": -0.8, "crashes": -0.8, "collapse": -0.8,
			"weak": -0.5, "weaker": -0.5, "weakest": -0.6, "weakness": -0.5,
			"slowdown": -0.4, "slowing": -0.3, "recession": -0.7, "contraction": -0.5,
			"crisis": -0.7, "turmoil": -0.6, "volatile": -0.3, "volatility": -0.2,
			"fear": -0.6, "fears": -0.6, "worry": -0.5, "worries": -0.5,
			"concern": -0.4, "concerns": -0.4, "uncertainty": -0.4, "uncertain": -0.4,
			"risk": -0.2, "risks": -0.2, "threat": -0.5, "threatens": -0.5,
			"loss": -0.5, "losses": -0.5, "lost": -0.4,
			"miss": -0.4, "missed": -0.4, "disappointing": -0.6, "disappoint": -0.6,
			"bearish": -0.7, "negative": -0.5, "bad": -0.7, "worse": -0.6,
			"worst": -0.9, "poor": -0.5, "sluggish": -0.4, "default": -0.6,
			"low": -0.1, "lower": -0.2,
		},
		intensifiers: map[string]float64{
			"very": 1.3, "sharply": 1.5, "significantly": 1.4, "strongly": 1.4,
			"extremely": 1.6, "highly": 1.3, "much": 1.2,
			"slightly": 0.5, "modestly": 0.6, "somewhat": 0.7,
		},
		negators: map[string]struct{}{
			"not": {}, "no": {}, "never": {}, "without": {},
			"don't": {}, "doesn't": {}, "didn't": {}, "isn't": {}, "aren't": {},
			"wasn't": {}, "weren't": {}, "won't": {}, "can't": {}, "cannot": {},
		},
	}
}

// Polarity scores text in [-1, 1]. Text with no lexicon words scores 0.
func (l *Lexicon) Polarity(text string) float64 {
	tokens := tokenize(text)

	sum := 0.0
	n := 0
	for i, tok := range tokens {
		p, ok := l.words[tok]
		if !ok {
			continue
		}

		if i > 0 {
			if m, ok := l.intensifiers[tokens[i-1]]; ok {
				p *= m
			}
		}
		if l.negated(tokens, i) {
			p *= negationFactor
		}

		sum += core.Clamp(p, -1, 1)
		n++
	}

	if n == 0 {
		return 0
	}
	return core.Clamp(sum/float64(n), -1, 1)
}

// negated reports whether a negator appears within the two tokens before i.
func (l *Lexicon) negated(tokens []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if _, ok := l.negators[tokens[j]]; ok {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
