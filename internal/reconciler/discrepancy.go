package reconciler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
)

// DiscrepancyType represents the type of discrepancy
type DiscrepancyType string

const (
	DiscrepancyMissingInLedger    DiscrepancyType = "missing_in_ledger"
	DiscrepancyMissingInStatement DiscrepancyType = "missing_in_statement"
	DiscrepancyAmountMismatch     DiscrepancyType = "amount_mismatch"
	// DiscrepancyDateMismatch is part of the result vocabulary but is not
	// currently produced; timing differences surface through fuzzy confidence.
	DiscrepancyDateMismatch DiscrepancyType = "date_mismatch"
)

// Discrepancy represents a detected difference between ledger and statement
type Discrepancy struct {
	Type        DiscrepancyType  `json:"type"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	// TransactionID is the ledger transaction involved, when there is one
	TransactionID string `json:"transaction_id,omitempty"`
}

// AnalyzeDiscrepancies derives discrepancies from a match sequence. Ledger-only
// records come first, then statement-only records, then fuzzy matches whose
// amount difference exceeds tolerance. Exact matches never produce one.
func AnalyzeDiscrepancies(matches []matcher.Match, tolerance decimal.Decimal) []Discrepancy {
	discrepancies := make([]Discrepancy, 0)

	for _, m := range matches {
		if m.Type != matcher.MatchUnmatched || m.Ledger == nil {
			continue
		}
		discrepancies = append(discrepancies, missingInStatement(m.Ledger))
	}

	for _, m := range matches {
		if m.Type != matcher.MatchUnmatched || m.Statement == nil {
			continue
		}
		discrepancies = append(discrepancies, missingInLedger(m.Statement))
	}

	for _, m := range matches {
		if m.Type != matcher.MatchFuzzy || m.Discrepancy == nil || !m.Discrepancy.GreaterThan(tolerance) {
			continue
		}
		discrepancies = append(discrepancies, amountMismatch(m))
	}

	return discrepancies
}

func missingInStatement(t *models.LedgerTransaction) Discrepancy {
	amount := t.Amount
	return Discrepancy{
		Type: DiscrepancyMissingInStatement,
		Description: fmt.Sprintf("Ledger transaction not found in statement: %s - %s on %s",
			t.PayeeOrUnknown(), models.FormatDollars(t.Amount), t.Date),
		Amount:        &amount,
		TransactionID: t.ID,
	}
}

func missingInLedger(s *models.StatementTransaction) Discrepancy {
	amount := s.Amount
	return Discrepancy{
		Type: DiscrepancyMissingInLedger,
		Description: fmt.Sprintf("Statement transaction not found in ledger: %s - %s on %s",
			s.Description, models.FormatDollars(s.Amount), s.Date),
		Amount: &amount,
	}
}

func amountMismatch(m matcher.Match) Discrepancy {
	diff := *m.Discrepancy
	return Discrepancy{
		Type: DiscrepancyAmountMismatch,
		Description: fmt.Sprintf("Amount mismatch: Ledger %s vs Statement %s (diff: %s)",
			models.FormatDollars(m.Ledger.Amount), models.FormatDollars(m.Statement.Amount), models.FormatDollars(diff)),
		Amount:        &diff,
		TransactionID: m.Ledger.ID,
	}
}

// CountByType returns how many discrepancies have the given type
func CountByType(discrepancies []Discrepancy, t DiscrepancyType) int {
	n := 0
	for _, d := range discrepancies {
		if d.Type == t {
			n++
		}
	}
	return n
}
