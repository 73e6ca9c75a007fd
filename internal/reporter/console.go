package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/reconciler"
)

// palette holds the console colours; every colour is disabled when UseColors is off
type palette struct {
	header *color.Color
	good   *color.Color
	warn   *color.Color
	bad    *color.Color
	strong *color.Color
}

func newPalette(useColors bool) palette {
	p := palette{
		header: color.New(color.FgCyan, color.Bold),
		good:   color.New(color.FgGreen, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		bad:    color.New(color.FgRed, color.Bold),
		strong: color.New(color.Bold),
	}
	if !useColors {
		for _, c := range []*color.Color{p.header, p.good, p.warn, p.bad, p.strong} {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) status(s reconciler.Status) *color.Color {
	switch s {
	case reconciler.StatusBalanced:
		return p.good
	case reconciler.StatusNeedsReview:
		return p.warn
	default:
		return p.bad
	}
}

func (p palette) section(w io.Writer, title string) {
	p.header.Fprintf(w, "=== %s ===\n", title)
}

func (rg *ReportGenerator) writeConsole(r *reconciler.Result, w io.Writer) {
	p := newPalette(rg.config.UseColors)

	p.strong.Fprintf(w, "RECONCILIATION REPORT\n")
	fmt.Fprintf(w, "Run:     %s\n", r.RunID)
	fmt.Fprintf(w, "Account: %s (%s)\n", r.AccountName, r.AccountID)
	fmt.Fprintf(w, "Statement Date: %s   Reconciled: %s\n\n", r.StatementDate, r.ReconciliationDate)

	p.section(w, "BALANCES")
	fmt.Fprintf(w, "Statement Balance:  %s\n", models.FormatCurrency(r.StatementBalance))
	fmt.Fprintf(w, "Ledger Balance:     %s\n", models.FormatCurrency(r.LedgerBalance))
	diff := p.good
	if !r.BalanceDifference.IsZero() {
		diff = p.bad
	}
	fmt.Fprintf(w, "Difference:         %s\n\n", diff.Sprint(models.FormatCurrency(r.BalanceDifference)))

	p.section(w, "MATCHING")
	fmt.Fprintf(w, "Ledger Transactions:    %d\n", r.TotalLedgerTransactions)
	fmt.Fprintf(w, "Statement Transactions: %d\n", r.TotalStatementTransactions)
	fmt.Fprintf(w, "Exact Matches:          %d\n", r.ExactMatches)
	fmt.Fprintf(w, "Fuzzy Matches:          %d\n", r.FuzzyMatches)
	fmt.Fprintf(w, "Unmatched Ledger:       %d\n", r.UnmatchedLedger)
	fmt.Fprintf(w, "Unmatched Statement:    %d\n\n", r.UnmatchedStatement)

	s := r.Summary
	p.section(w, "STATUS")
	fmt.Fprintf(w, "Status:              %s\n", p.status(s.Status).Sprint(strings.ToUpper(string(s.Status))))
	fmt.Fprintf(w, "Confidence:          %.1f%%\n", s.ConfidenceScore*100)
	fmt.Fprintf(w, "Discrepancies:       %d\n", s.TotalDiscrepancies)
	fmt.Fprintf(w, "Largest Discrepancy: %s\n\n", models.FormatCurrency(s.LargestDiscrepancy))

	if len(s.Recommendations) > 0 {
		p.section(w, "RECOMMENDATIONS")
		for i, rec := range s.Recommendations {
			fmt.Fprintf(w, "  %d. %s\n", i+1, rec)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(r.Discrepancies) > 0 {
		p.section(w, "DISCREPANCIES")
		for _, t := range []reconciler.DiscrepancyType{
			reconciler.DiscrepancyMissingInLedger,
			reconciler.DiscrepancyMissingInStatement,
			reconciler.DiscrepancyAmountMismatch,
		} {
			n := reconciler.CountByType(r.Discrepancies, t)
			if n == 0 {
				continue
			}
			p.warn.Fprintf(w, "%s (%d):\n", strings.ToUpper(string(t)), n)
			for _, d := range r.Discrepancies {
				if d.Type == t {
					fmt.Fprintf(w, "  - %s\n", d.Description)
				}
			}
		}
		fmt.Fprintf(w, "\n")
	}

	if sample := exactSample(r.Matches, rg.config.MaxSampleMatches); len(sample) > 0 {
		p.section(w, "EXACT MATCHES")
		for i, m := range sample {
			fmt.Fprintf(w, "  %d. %s  %-30s %12s\n", i+1, m.Ledger.Date, m.Ledger.PayeeOrUnknown(), models.FormatCurrency(m.Ledger.Amount))
		}
		if r.ExactMatches > len(sample) {
			fmt.Fprintf(w, "  ... and %d more\n", r.ExactMatches-len(sample))
		}
		fmt.Fprintf(w, "\n")
	}

	if len(r.ParseWarnings) > 0 {
		p.section(w, "SKIPPED ROWS")
		for _, warn := range r.ParseWarnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "%s\n", r.Note)
}
