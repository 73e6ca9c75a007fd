package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/reconciler"
)

var balanceWarnBand = decimal.RequireFromString("0.01")

// balanceSymbol marks a zero difference, a sub-cent one, or anything larger
func balanceSymbol(diff decimal.Decimal) string {
	switch {
	case diff.IsZero():
		return "✅"
	case diff.Abs().LessThanOrEqual(balanceWarnBand):
		return "⚠️"
	default:
		return "❌"
	}
}

func statusSymbol(s reconciler.Status) string {
	switch s {
	case reconciler.StatusBalanced:
		return "✅"
	case reconciler.StatusNeedsReview:
		return "⚠️"
	default:
		return "❌"
	}
}

func (rg *ReportGenerator) writeMarkdown(r *reconciler.Result, w io.Writer) {
	fmt.Fprintf(w, "# Account Reconciliation Report\n\n")

	fmt.Fprintf(w, "## Account Information\n")
	fmt.Fprintf(w, "- **Account**: %s\n", r.AccountName)
	fmt.Fprintf(w, "- **Statement Date**: %s\n", r.StatementDate)
	fmt.Fprintf(w, "- **Reconciliation Date**: %s\n\n", r.ReconciliationDate)

	fmt.Fprintf(w, "## Balance Summary\n")
	fmt.Fprintf(w, "- **Statement Balance**: %s\n", models.FormatCurrency(r.StatementBalance))
	fmt.Fprintf(w, "- **Ledger Balance**: %s\n", models.FormatCurrency(r.LedgerBalance))
	fmt.Fprintf(w, "- **Balance Difference**: %s %s\n\n", models.FormatCurrency(r.BalanceDifference), balanceSymbol(r.BalanceDifference))

	fmt.Fprintf(w, "## Transaction Matching\n")
	fmt.Fprintf(w, "- **Total Ledger Transactions**: %d\n", r.TotalLedgerTransactions)
	fmt.Fprintf(w, "- **Total Statement Transactions**: %d\n", r.TotalStatementTransactions)
	fmt.Fprintf(w, "- **Exact Matches**: %d ✓\n", r.ExactMatches)
	fmt.Fprintf(w, "- **Fuzzy Matches**: %d ~\n", r.FuzzyMatches)
	fmt.Fprintf(w, "- **Unmatched Ledger**: %d ⚠️\n", r.UnmatchedLedger)
	fmt.Fprintf(w, "- **Unmatched Statement**: %d ⚠️\n\n", r.UnmatchedStatement)

	s := r.Summary
	fmt.Fprintf(w, "## Reconciliation Status\n")
	fmt.Fprintf(w, "- **Status**: %s %s\n", strings.ToUpper(string(s.Status)), statusSymbol(s.Status))
	fmt.Fprintf(w, "- **Confidence Score**: %.1f%%\n", s.ConfidenceScore*100)
	fmt.Fprintf(w, "- **Total Discrepancies**: %d\n", s.TotalDiscrepancies)
	fmt.Fprintf(w, "- **Largest Discrepancy**: %s\n\n", models.FormatCurrency(s.LargestDiscrepancy))

	if len(s.Recommendations) > 0 {
		fmt.Fprintf(w, "## Recommendations\n\n")
		for _, rec := range s.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(r.Discrepancies) > 0 {
		fmt.Fprintf(w, "## Discrepancies\n\n")
		writeDiscrepancyGroup(w, "Missing in Ledger (found in statement)", r.Discrepancies, reconciler.DiscrepancyMissingInLedger)
		writeDiscrepancyGroup(w, "Missing in Statement (found in ledger)", r.Discrepancies, reconciler.DiscrepancyMissingInStatement)
		writeDiscrepancyGroup(w, "Amount Mismatches", r.Discrepancies, reconciler.DiscrepancyAmountMismatch)
	}

	if r.ExactMatches > 0 {
		sample := exactSample(r.Matches, rg.config.MaxSampleMatches)
		if len(sample) > 0 {
			fmt.Fprintf(w, "## Matched Transactions (Sample)\n\n")
			fmt.Fprintf(w, "### Exact Matches (showing first %d)\n\n", rg.config.MaxSampleMatches)
			for _, m := range sample {
				fmt.Fprintf(w, "- **%s** - %s on %s\n", m.Ledger.PayeeOrUnknown(), models.FormatCurrency(m.Ledger.Amount), m.Ledger.Date)
			}
			fmt.Fprintf(w, "\n")
		}
	}

	if len(r.ParseWarnings) > 0 {
		fmt.Fprintf(w, "## Skipped Statement Rows\n\n")
		for _, warn := range r.ParseWarnings {
			fmt.Fprintf(w, "- Line %d: %s (`%s`)\n", warn.Line, warn.Reason, warn.Content)
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "## Note\n%s\n", r.Note)
}

func writeDiscrepancyGroup(w io.Writer, title string, discrepancies []reconciler.Discrepancy, t reconciler.DiscrepancyType) {
	header := false
	for _, d := range discrepancies {
		if d.Type != t {
			continue
		}
		if !header {
			fmt.Fprintf(w, "### %s\n\n", title)
			header = true
		}
		fmt.Fprintf(w, "- %s\n", d.Description)
	}
	if header {
		fmt.Fprintf(w, "\n")
	}
}

// exactSample returns up to n exact matches in match order
func exactSample(matches []matcher.Match, n int) []matcher.Match {
	sample := make([]matcher.Match, 0, n)
	for _, m := range matches {
		if len(sample) >= n {
			break
		}
		if m.Type == matcher.MatchExact && m.Ledger != nil {
			sample = append(sample, m)
		}
	}
	return sample
}
