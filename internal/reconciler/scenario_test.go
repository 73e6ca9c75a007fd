package reconciler

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/parsers"
)

// scenario describes a generated ledger/statement pair and the outcome it must produce
type scenario struct {
	Name        string
	Seed        int64
	Count       int
	Extras      int
	ExactRatio  float64
	FuzzyRatio  float64
	ShuffleRows bool
}

// generated holds one generated dataset with its expected counts
type generated struct {
	ledger    []models.LedgerTransaction
	statement string

	exact, fuzzy, missing int
}

// generate builds ledger transactions and a statement export. Every ledger
// amount sits in its own $3 band so pairs can only form with the row built for
// them; extra statement rows are deposits and never pair.
func (sc scenario) generate() generated {
	rng := rand.New(rand.NewSource(sc.Seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var out generated
	var rows []string

	for i := 0; i < sc.Count; i++ {
		date := start.AddDate(0, 0, i%60)
		amount := decimal.NewFromInt(int64(-(10 + 3*i))).Sub(decimal.New(int64(rng.Intn(100)), -2))
		txn := models.LedgerTransaction{
			ID:       fmt.Sprintf("txn-%04d", i),
			Date:     models.DateOf(date),
			Amount:   amount,
			Payee:    fmt.Sprintf("Merchant%03d", i),
			Approved: true,
		}
		out.ledger = append(out.ledger, txn)

		roll := rng.Float64()
		switch {
		case roll < sc.ExactRatio:
			posted := date.AddDate(0, 0, rng.Intn(2))
			rows = append(rows, statementRow(i, posted, fmt.Sprintf("MERCHANT%03d PURCHASE", i), amount))
			out.exact++
		case roll < sc.ExactRatio+sc.FuzzyRatio:
			posted := date.AddDate(0, 0, 2+rng.Intn(4))
			rows = append(rows, statementRow(i, posted, fmt.Sprintf("MERCHANT%03d POS", i), amount.Sub(decimal.New(5, -2))))
			out.fuzzy++
		default:
			out.missing++
		}
	}

	for i := 0; i < sc.Extras; i++ {
		posted := start.AddDate(0, 0, rng.Intn(60))
		rows = append(rows, statementRow(i, posted, fmt.Sprintf("DEPOSIT REF%04d", i), decimal.NewFromInt(int64(1000+3*i))))
	}

	if sc.ShuffleRows {
		rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })
	}

	out.statement = "Date,Description,Amount\n" + strings.Join(rows, "\n") + "\n"
	return out
}

// statementRow alternates ISO and US date styles to exercise normalisation
func statementRow(i int, date time.Time, description string, amount decimal.Decimal) string {
	layout := models.DateLayout
	if i%2 == 1 {
		layout = "01/02/2006"
	}
	return fmt.Sprintf("%s,%s,%s", date.Format(layout), description, amount.StringFixed(2))
}

var scenarios = []scenario{
	{Name: "all_exact", Seed: 1, Count: 40, ExactRatio: 1},
	{Name: "mostly_exact", Seed: 7, Count: 120, Extras: 10, ExactRatio: 0.8, FuzzyRatio: 0.1},
	{Name: "late_postings", Seed: 42, Count: 80, Extras: 3, ExactRatio: 0.2, FuzzyRatio: 0.7, ShuffleRows: true},
	{Name: "sparse_statement", Seed: 99, Count: 60, Extras: 25, ExactRatio: 0.3, FuzzyRatio: 0.1, ShuffleRows: true},
	{Name: "empty_ledger", Seed: 5, Count: 0, Extras: 8},
}

func TestGeneratedScenarios(t *testing.T) {
	parser, err := parsers.NewStatementParser(parsers.DefaultParseConfig())
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	tolerance := matcher.DefaultTolerance

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			data := sc.generate()

			parsed, err := parser.Parse(context.Background(), data.statement)
			if err != nil {
				t.Fatalf("failed to parse generated statement: %v", err)
			}
			if parsed.DroppedRows != 0 {
				t.Fatalf("expected no dropped rows, got %d: %v", parsed.DroppedRows, parsed.Warnings)
			}

			result := matcher.NewMatchingEngine(matcher.DefaultMatchingConfig()).Match(data.ledger, parsed.Transactions)

			if result.ExactMatches != data.exact {
				t.Errorf("expected %d exact matches, got %d", data.exact, result.ExactMatches)
			}
			if result.FuzzyMatches != data.fuzzy {
				t.Errorf("expected %d fuzzy matches, got %d", data.fuzzy, result.FuzzyMatches)
			}
			if result.UnmatchedLedger != data.missing {
				t.Errorf("expected %d unmatched ledger, got %d", data.missing, result.UnmatchedLedger)
			}
			if result.UnmatchedStatement != sc.Extras {
				t.Errorf("expected %d unmatched statement, got %d", sc.Extras, result.UnmatchedStatement)
			}

			validateCoverage(t, data.ledger, parsed.Transactions, result)

			discrepancies := AnalyzeDiscrepancies(result.Matches, tolerance)
			expected := map[DiscrepancyType]int{
				DiscrepancyMissingInStatement: data.missing,
				DiscrepancyMissingInLedger:    sc.Extras,
				DiscrepancyAmountMismatch:     data.fuzzy,
			}
			for typ, want := range expected {
				if got := CountByType(discrepancies, typ); got != want {
					t.Errorf("expected %d %s discrepancies, got %d", want, typ, got)
				}
			}
			validateDiscrepancyOrder(t, discrepancies)

			summary := Summarize(result.Matches, discrepancies, decimal.Zero, tolerance)
			if summary.TotalDiscrepancies != len(discrepancies) {
				t.Errorf("expected total discrepancies %d, got %d", len(discrepancies), summary.TotalDiscrepancies)
			}
			if len(discrepancies) == 0 && summary.Status != StatusBalanced {
				t.Errorf("expected balanced with no discrepancies, got %s", summary.Status)
			}
			if len(discrepancies) > 2 && summary.Status != StatusUnbalanced {
				t.Errorf("expected unbalanced with %d discrepancies, got %s", len(discrepancies), summary.Status)
			}
		})
	}
}

// validateCoverage checks that every input record lands in exactly one match
func validateCoverage(t *testing.T, ledger []models.LedgerTransaction, statement []models.StatementTransaction, result *matcher.MatchResult) {
	t.Helper()

	seenLedger := make(map[string]int, len(ledger))
	seenStatement := make(map[int]int, len(statement))
	for _, m := range result.Matches {
		if m.Ledger != nil {
			seenLedger[m.Ledger.ID]++
		}
		if m.Statement != nil {
			seenStatement[m.Statement.Line]++
		}
		if m.Type == matcher.MatchFuzzy && (m.Confidence <= 0.5 || m.Confidence > 1) {
			t.Errorf("fuzzy match %s has confidence %.3f outside (0.5, 1]", m.Ledger.ID, m.Confidence)
		}
	}

	for _, l := range ledger {
		if seenLedger[l.ID] != 1 {
			t.Errorf("ledger %s appears %d times, expected once", l.ID, seenLedger[l.ID])
		}
	}
	for _, s := range statement {
		if seenStatement[s.Line] != 1 {
			t.Errorf("statement line %d appears %d times, expected once", s.Line, seenStatement[s.Line])
		}
	}

	paired := result.MatchedCount()
	if want := len(ledger) + len(statement) - paired; len(result.Matches) != want {
		t.Errorf("expected %d matches, got %d", want, len(result.Matches))
	}
}

func validateDiscrepancyOrder(t *testing.T, discrepancies []Discrepancy) {
	t.Helper()

	rank := map[DiscrepancyType]int{
		DiscrepancyMissingInStatement: 0,
		DiscrepancyMissingInLedger:    1,
		DiscrepancyAmountMismatch:     2,
	}
	for i := 1; i < len(discrepancies); i++ {
		if rank[discrepancies[i-1].Type] > rank[discrepancies[i].Type] {
			t.Fatalf("discrepancy %d (%s) is listed after %s", i, discrepancies[i].Type, discrepancies[i-1].Type)
		}
	}
}

func TestGeneratedScenario_Large(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large scenario in short mode")
	}

	sc := scenario{Name: "large", Seed: 2024, Count: 2000, Extras: 150, ExactRatio: 0.85, FuzzyRatio: 0.1, ShuffleRows: true}
	data := sc.generate()

	parser, err := parsers.NewStatementParser(parsers.DefaultParseConfig())
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	parsed, err := parser.Parse(context.Background(), data.statement)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	result := matcher.NewMatchingEngine(matcher.DefaultMatchingConfig()).Match(data.ledger, parsed.Transactions)
	if result.MatchedCount() != data.exact+data.fuzzy {
		t.Errorf("expected %d paired, got %d", data.exact+data.fuzzy, result.MatchedCount())
	}
	validateCoverage(t, data.ledger, parsed.Transactions, result)
}
