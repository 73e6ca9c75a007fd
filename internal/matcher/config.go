// Package matcher provides the transaction matching engine and its configuration.
//
// Ledger transactions are paired with statement transactions in four passes:
//
//  1. exact: amounts within tolerance and dates at most one day apart
//  2. fuzzy: amounts within ten times the tolerance and dates within a week,
//     accepted only when the confidence score exceeds the configured minimum
//  3. every ledger transaction left over becomes an unmatched record
//  4. every statement transaction left over becomes an unmatched record
//
// Matching is greedy first-fit in input order. Each pass works on the pool
// of records the previous passes left behind.
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.Tolerance = decimal.RequireFromString("0.05")
//
//	engine := matcher.NewMatchingEngine(config)
//	result := engine.Match(ledgerTxns, statementTxns)
package matcher

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MatchType represents how a Match was produced
type MatchType int

const (
	// MatchExact pairs records whose amounts agree within tolerance and whose
	// dates are at most ExactDateWindowDays apart. Confidence is always 1.0.
	MatchExact MatchType = iota

	// MatchFuzzy pairs records found by the relaxed second pass. These carry
	// a confidence score and the absolute amount difference.
	MatchFuzzy

	// MatchUnmatched marks a record with no counterpart. Exactly one side is set.
	MatchUnmatched
)

// String returns the string representation of MatchType
func (mt MatchType) String() string {
	switch mt {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	case MatchUnmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// MarshalText encodes the match type by name
func (mt MatchType) MarshalText() ([]byte, error) {
	s := mt.String()
	if s == "unknown" {
		return nil, fmt.Errorf("unknown match type %d", int(mt))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a match type name
func (mt *MatchType) UnmarshalText(text []byte) error {
	parsed, err := ParseMatchType(string(text))
	if err != nil {
		return err
	}
	*mt = parsed
	return nil
}

// ParseMatchType converts a name back to a MatchType
func ParseMatchType(s string) (MatchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return MatchExact, nil
	case "fuzzy":
		return MatchFuzzy, nil
	case "unmatched":
		return MatchUnmatched, nil
	}
	return 0, fmt.Errorf("unknown match type %q", s)
}

// MatchingConfig holds configuration parameters for transaction matching.
//
// Use the provided factory functions for common scenarios:
//   - DefaultMatchingConfig(): the standard two-pass behaviour
//   - StrictMatchingConfig(): exact pass only, to-the-cent amounts
//   - RelaxedMatchingConfig(): wider windows for statements posted late
type MatchingConfig struct {
	// Tolerance is the largest absolute amount difference treated as equal
	Tolerance decimal.Decimal `json:"tolerance"`

	// ExactDateWindowDays bounds the date difference in the exact pass
	ExactDateWindowDays int `json:"exact_date_window_days"`

	// EnableFuzzyMatching turns the second pass on or off
	EnableFuzzyMatching bool `json:"enable_fuzzy_matching"`

	// FuzzyDateWindowDays bounds the date difference in the fuzzy pass
	FuzzyDateWindowDays int `json:"fuzzy_date_window_days"`

	// FuzzyAmountMultiplier scales Tolerance to give the fuzzy amount bound
	FuzzyAmountMultiplier decimal.Decimal `json:"fuzzy_amount_multiplier"`

	// MinFuzzyConfidence is the score a fuzzy candidate must strictly exceed
	MinFuzzyConfidence float64 `json:"min_fuzzy_confidence"`

	// MinTokenLength is the shortest word counted when comparing payee and description
	MinTokenLength int `json:"min_token_length"`

	// Penalties subtracted from a fuzzy candidate's score
	Penalties ConfidencePenalties `json:"penalties"`
}

// ConfidencePenalties defines how a fuzzy candidate loses confidence.
// The amount penalty is amountDelta/AmountDivisor capped at MaxAmount; the
// date penalty is days/DateDivisor capped at MaxDate; NoSharedToken applies
// when payee and description have no word in common.
type ConfidencePenalties struct {
	AmountDivisor float64 `json:"amount_divisor"`
	MaxAmount     float64 `json:"max_amount"`
	DateDivisor   float64 `json:"date_divisor"`
	MaxDate       float64 `json:"max_date"`
	NoSharedToken float64 `json:"no_shared_token"`
}

// DefaultTolerance is the amount tolerance used when none is supplied
var DefaultTolerance = decimal.New(1, -2)

func defaultPenalties() ConfidencePenalties {
	return ConfidencePenalties{
		AmountDivisor: 10,
		MaxAmount:     0.3,
		DateDivisor:   10,
		MaxDate:       0.3,
		NoSharedToken: 0.2,
	}
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		Tolerance:             DefaultTolerance,
		ExactDateWindowDays:   1,
		EnableFuzzyMatching:   true,
		FuzzyDateWindowDays:   7,
		FuzzyAmountMultiplier: decimal.NewFromInt(10),
		MinFuzzyConfidence:    0.5,
		MinTokenLength:        3,
		Penalties:             defaultPenalties(),
	}
}

// StrictMatchingConfig returns a configuration for strict matching
func StrictMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.Tolerance = decimal.Zero
	config.ExactDateWindowDays = 0
	config.EnableFuzzyMatching = false
	return config
}

// RelaxedMatchingConfig returns a configuration for relaxed matching
func RelaxedMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.ExactDateWindowDays = 3
	config.FuzzyDateWindowDays = 10
	return config
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	if mc.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative: %s", mc.Tolerance)
	}

	if mc.ExactDateWindowDays < 0 {
		return fmt.Errorf("exact date window cannot be negative: %d", mc.ExactDateWindowDays)
	}

	if mc.FuzzyDateWindowDays < mc.ExactDateWindowDays {
		return fmt.Errorf("fuzzy date window (%d) cannot be narrower than exact window (%d)",
			mc.FuzzyDateWindowDays, mc.ExactDateWindowDays)
	}

	if mc.FuzzyAmountMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("fuzzy amount multiplier must be at least 1: %s", mc.FuzzyAmountMultiplier)
	}

	if mc.MinFuzzyConfidence < 0.0 || mc.MinFuzzyConfidence >= 1.0 {
		return fmt.Errorf("minimum fuzzy confidence must be in [0.0, 1.0): %f", mc.MinFuzzyConfidence)
	}

	if mc.MinTokenLength < 1 {
		return fmt.Errorf("minimum token length must be positive: %d", mc.MinTokenLength)
	}

	if err := mc.Penalties.Validate(); err != nil {
		return fmt.Errorf("invalid penalties: %w", err)
	}

	return nil
}

// Validate checks if the confidence penalties are valid
func (cp *ConfidencePenalties) Validate() error {
	if cp.AmountDivisor <= 0 || cp.DateDivisor <= 0 {
		return fmt.Errorf("penalty divisors must be positive")
	}

	for name, v := range map[string]float64{
		"max amount":      cp.MaxAmount,
		"max date":        cp.MaxDate,
		"no shared token": cp.NoSharedToken,
	} {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s penalty must be between 0.0 and 1.0: %f", name, v)
		}
	}

	return nil
}

// Clone creates a copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}
	clone := *mc
	return &clone
}

// WithTolerance returns a copy using the given amount tolerance
func (mc *MatchingConfig) WithTolerance(tolerance decimal.Decimal) *MatchingConfig {
	clone := mc.Clone()
	clone.Tolerance = tolerance
	return clone
}

// FuzzyAmountBound is the largest amount difference the fuzzy pass considers
func (mc *MatchingConfig) FuzzyAmountBound() decimal.Decimal {
	return mc.Tolerance.Mul(mc.FuzzyAmountMultiplier)
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Tolerance: %s, ExactWindow: %d days, Fuzzy: %t, FuzzyWindow: %d days, MinConfidence: %.2f}",
		mc.Tolerance, mc.ExactDateWindowDays, mc.EnableFuzzyMatching, mc.FuzzyDateWindowDays, mc.MinFuzzyConfidence)
}
