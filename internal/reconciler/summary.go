package reconciler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
)

// Status classifies the overall reconciliation outcome
type Status string

const (
	StatusBalanced    Status = "balanced"
	StatusNeedsReview Status = "needs_review"
	StatusUnbalanced  Status = "unbalanced"
)

const (
	// reviewMaxDiscrepancies and reviewMaxBalanceGap bound the needs_review band
	reviewMaxDiscrepancies = 2
	lowConfidenceThreshold = 0.8
)

var reviewMaxBalanceGap = decimal.NewFromInt(10)

// Summary aggregates a reconciliation into a status and recommendations
type Summary struct {
	Status             Status          `json:"reconciliation_status"`
	ConfidenceScore    float64         `json:"confidence_score"`
	TotalDiscrepancies int             `json:"total_discrepancies"`
	LargestDiscrepancy decimal.Decimal `json:"largest_discrepancy"`
	Recommendations    []string        `json:"recommendations"`
}

// Summarize scores a reconciliation. balanceDiff is ledger minus statement.
func Summarize(matches []matcher.Match, discrepancies []Discrepancy, balanceDiff, tolerance decimal.Decimal) Summary {
	paired := 0
	for _, m := range matches {
		if m.Type == matcher.MatchExact || m.Type == matcher.MatchFuzzy {
			paired++
		}
	}

	confidence := 0.0
	if len(matches) > 0 {
		confidence = float64(paired) / float64(len(matches))
	}

	gap := balanceDiff.Abs()
	status := StatusUnbalanced
	switch {
	case gap.LessThanOrEqual(tolerance) && len(discrepancies) == 0:
		status = StatusBalanced
	case len(discrepancies) <= reviewMaxDiscrepancies && gap.LessThanOrEqual(reviewMaxBalanceGap):
		status = StatusNeedsReview
	}

	largest := gap
	for _, d := range discrepancies {
		if d.Amount != nil && d.Amount.Abs().GreaterThan(largest) {
			largest = d.Amount.Abs()
		}
	}

	return Summary{
		Status:             status,
		ConfidenceScore:    confidence,
		TotalDiscrepancies: len(discrepancies),
		LargestDiscrepancy: largest,
		Recommendations:    recommend(status, discrepancies, balanceDiff, tolerance, confidence),
	}
}

func recommend(status Status, discrepancies []Discrepancy, balanceDiff, tolerance decimal.Decimal, confidence float64) []string {
	if status == StatusBalanced {
		return []string{"Account is fully reconciled - no action needed"}
	}

	recommendations := make([]string, 0, 4)

	if balanceDiff.Abs().GreaterThan(tolerance) {
		recommendations = append(recommendations,
			fmt.Sprintf("Balance difference of %s needs investigation", models.FormatDollars(balanceDiff)))
	}

	if n := CountByType(discrepancies, DiscrepancyMissingInLedger); n > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d statement transactions need to be added to ledger", n))
	}

	if n := CountByType(discrepancies, DiscrepancyMissingInStatement); n > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d ledger transactions may need to be removed or marked as pending", n))
	}

	if confidence < lowConfidenceThreshold {
		recommendations = append(recommendations, "Low confidence in transaction matching - manual review recommended")
	}

	return recommendations
}
