package reporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"ledger-reconciliation-service/internal/models"
)

// view is a read-only listing renderable in every format. Console output uses
// the markdown rendering.
type view struct {
	data     interface{}
	markdown func(w io.Writer)
	header   []string
	rows     func() [][]string
}

func (rg *ReportGenerator) renderView(v view) (string, error) {
	var buf bytes.Buffer
	switch rg.config.Format {
	case FormatJSON:
		if err := writeJSON(v.data, &buf); err != nil {
			return "", err
		}
	case FormatCSV:
		csvWriter := csv.NewWriter(&buf)
		csvWriter.Comma = rg.config.CSVDelimiter
		if rg.config.CSVHeaders {
			_ = csvWriter.Write(v.header)
		}
		for _, row := range v.rows() {
			_ = csvWriter.Write(row)
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return "", fmt.Errorf("failed to write CSV: %w", err)
		}
	default:
		v.markdown(&buf)
	}

	text, _ := Truncate(buf.String(), rg.config.CharacterLimit)
	return text, nil
}

// RenderBudgets renders the budget list
func (rg *ReportGenerator) RenderBudgets(budgets []models.Budget) (string, error) {
	return rg.renderView(view{
		data: map[string]interface{}{"budgets": budgets},
		markdown: func(w io.Writer) {
			fmt.Fprintf(w, "# Budgets\n\n")
			if len(budgets) == 0 {
				fmt.Fprintf(w, "No budgets found.\n")
				return
			}
			for _, b := range budgets {
				fmt.Fprintf(w, "- **%s** (`%s`)", b.Name, b.ID)
				if !b.LastModifiedOn.IsZero() {
					fmt.Fprintf(w, " - last modified %s", models.DateOf(b.LastModifiedOn))
				}
				fmt.Fprintf(w, "\n")
			}
		},
		header: []string{"ID", "Name", "Last_Modified_On", "Currency"},
		rows: func() [][]string {
			rows := make([][]string, 0, len(budgets))
			for _, b := range budgets {
				rows = append(rows, []string{b.ID, b.Name, models.DateOf(b.LastModifiedOn).String(), b.CurrencyCode})
			}
			return rows
		},
	})
}

// RenderAccounts renders an account list with balances
func (rg *ReportGenerator) RenderAccounts(accounts []models.Account) (string, error) {
	return rg.renderView(view{
		data: map[string]interface{}{"accounts": accounts},
		markdown: func(w io.Writer) {
			fmt.Fprintf(w, "# Accounts\n\n")
			if len(accounts) == 0 {
				fmt.Fprintf(w, "No open accounts found.\n")
				return
			}
			for _, a := range accounts {
				fmt.Fprintf(w, "- **%s** (`%s`) - %s: %s\n", a.Name, a.ID, a.Type, models.FormatCurrency(a.Balance))
			}
		},
		header: []string{"ID", "Name", "Type", "Balance", "Cleared_Balance", "On_Budget"},
		rows: func() [][]string {
			rows := make([][]string, 0, len(accounts))
			for _, a := range accounts {
				rows = append(rows, []string{
					a.ID, a.Name, a.Type, a.Balance.StringFixed(2), a.ClearedBalance.StringFixed(2), strconv.FormatBool(a.OnBudget),
				})
			}
			return rows
		},
	})
}

// RenderUnapproved renders transactions awaiting approval
func (rg *ReportGenerator) RenderUnapproved(txns []models.LedgerTransaction) (string, error) {
	return rg.renderView(view{
		data: map[string]interface{}{
			"transactions":      txns,
			"transaction_count": len(txns),
		},
		markdown: func(w io.Writer) {
			fmt.Fprintf(w, "# Unapproved Transactions\n\n")
			fmt.Fprintf(w, "Found %d unapproved transaction(s)\n\n", len(txns))
			if len(txns) == 0 {
				fmt.Fprintf(w, "No unapproved transactions found.\n")
				return
			}
			for _, t := range txns {
				fmt.Fprintf(w, "## %s\n", t.PayeeOrUnknown())
				fmt.Fprintf(w, "- **Date:** %s\n", t.Date)
				fmt.Fprintf(w, "- **Amount:** %s\n", models.FormatCurrency(t.Amount))
				if t.AccountName != "" {
					fmt.Fprintf(w, "- **Account:** %s\n", t.AccountName)
				}
				if t.CategoryName != "" {
					fmt.Fprintf(w, "- **Category:** %s\n", t.CategoryName)
				}
				if t.Memo != "" {
					fmt.Fprintf(w, "- **Memo:** %s\n", t.Memo)
				}
				fmt.Fprintf(w, "- **Transaction ID:** `%s`\n\n", t.ID)
			}
		},
		header: []string{"ID", "Date", "Payee", "Amount", "Account", "Category", "Memo"},
		rows: func() [][]string {
			rows := make([][]string, 0, len(txns))
			for _, t := range txns {
				rows = append(rows, []string{
					t.ID, t.Date.String(), t.PayeeOrUnknown(), t.Amount.StringFixed(2), t.AccountName, t.CategoryName, t.Memo,
				})
			}
			return rows
		},
	})
}
