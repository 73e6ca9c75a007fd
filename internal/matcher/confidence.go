package matcher

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Tokenize lowercases s, splits it on whitespace and keeps words of at least minLength runes
func Tokenize(s string, minLength int) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		if utf8.RuneCountInString(word) >= minLength {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// SharesToken reports whether a and b have at least one token in common
func SharesToken(a, b string, minLength int) bool {
	left := Tokenize(a, minLength)
	if len(left) == 0 {
		return false
	}

	seen := make(map[string]struct{}, len(left))
	for _, t := range left {
		seen[t] = struct{}{}
	}
	for _, t := range Tokenize(b, minLength) {
		if _, ok := seen[t]; ok {
			return true
		}
	}
	return false
}

// FuzzyConfidence scores a candidate pair from its absolute amount
// difference, its date difference in days, and whether payee and description
// share a word. The result is clamped to [0, 1] and never increases as either
// difference grows.
func FuzzyConfidence(amountDelta decimal.Decimal, days int, sharedToken bool, p ConfidencePenalties) float64 {
	amountPenalty := math.Min(amountDelta.Abs().InexactFloat64()/p.AmountDivisor, p.MaxAmount)
	datePenalty := math.Min(math.Abs(float64(days))/p.DateDivisor, p.MaxDate)

	confidence := 1.0 - amountPenalty - datePenalty
	if !sharedToken {
		confidence -= p.NoSharedToken
	}

	return clamp01(confidence)
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
