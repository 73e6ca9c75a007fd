package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger-reconciliation-service/internal/parsers"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"
	"ledger-reconciliation-service/pkg/errors"
)

// reconcileOptions holds the reconcile command flags
type reconcileOptions struct {
	statement   string
	balance     string
	date        string
	accountID   string
	accountName string
	budget      string
	tolerance   string
	format      string
	output      string
}

func newReconcileCmd(a *app) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a ledger account against a bank statement",
		Long: `Reconcile pairs the ledger transactions of one account with the rows of a
bank statement export and reports matches, discrepancies and a status.

The statement is delimited text (comma, tab or semicolon) with a date, a
description and an amount per row; a header row is optional. Ledger
transactions are fetched from three months before the statement date.

Examples:
  # Basic reconciliation, markdown report on stdout
  reconciler reconcile --statement january.csv --balance=-1326.44 \
    --date 2024-01-31 --account-name checking

  # Statement from stdin, JSON report to a file
  cat january.csv | reconciler reconcile --statement - --balance 2500.00 \
    --date 2024-01-31 --account-id 7a4e... --format json --output report.json

  # Wider amount tolerance
  reconciler reconcile --statement jan.csv --balance 0 --date 2024-01-31 \
    --account-name savings --tolerance 0.05`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReconcile(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.statement, "statement", "s", "", "statement file, or - for stdin (required)")
	flags.StringVar(&opts.balance, "balance", "", "statement closing balance, e.g. -1326.44 (required)")
	flags.StringVar(&opts.date, "date", "", "statement date YYYY-MM-DD (required)")
	flags.StringVar(&opts.accountID, "account-id", "", "ledger account id")
	flags.StringVar(&opts.accountName, "account-name", "", "ledger account name or part of it")
	flags.StringVar(&opts.budget, "budget", "", "budget id (default: ledger.budget_id)")
	flags.StringVar(&opts.tolerance, "tolerance", "", "amount tolerance (default: matching.tolerance)")
	flags.StringVarP(&opts.format, "format", "f", "", "output format: markdown, json, console, csv (default: report.format)")
	flags.StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

// validate checks the flags that need no I/O
func (o *reconcileOptions) validate() error {
	if strings.TrimSpace(o.statement) == "" {
		return errors.ValidationError(errors.CodeMissingField, "statement", "", nil).
			WithSuggestion("pass --statement FILE, or --statement - to read stdin")
	}
	if strings.TrimSpace(o.balance) == "" {
		return errors.ValidationError(errors.CodeMissingField, "balance", "", nil).
			WithSuggestion("pass the statement closing balance, e.g. --balance=-1326.44")
	}
	if _, err := decimal.NewFromString(strings.TrimSpace(o.balance)); err != nil {
		return errors.ValidationError(errors.CodeInvalidAmount, "balance", o.balance, err)
	}
	if o.tolerance != "" {
		if _, err := decimal.NewFromString(strings.TrimSpace(o.tolerance)); err != nil {
			return errors.ValidationError(errors.CodeInvalidAmount, "tolerance", o.tolerance, err)
		}
	}
	return nil
}

// request builds the reconciliation request from the flags and statement text
func (o *reconcileOptions) request(statementData string) (*reconciler.Request, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	balance := decimal.RequireFromString(strings.TrimSpace(o.balance))
	request := &reconciler.Request{
		BudgetID:         o.budget,
		AccountID:        o.accountID,
		AccountName:      o.accountName,
		StatementData:    statementData,
		StatementBalance: &balance,
		StatementDate:    strings.TrimSpace(o.date),
		ReportFormat:     o.format,
	}
	if o.tolerance != "" {
		tolerance := decimal.RequireFromString(strings.TrimSpace(o.tolerance))
		request.Tolerance = &tolerance
	}

	if err := request.Validate(); err != nil {
		return nil, err
	}
	return request, nil
}

func (a *app) runReconcile(cmd *cobra.Command, opts *reconcileOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	generator, err := a.newGenerator(opts.format)
	if err != nil {
		return err
	}

	statementData, err := parsers.NewBaseParser(parsers.DefaultParseConfig()).ReadFile(opts.statement)
	if err != nil {
		return err
	}

	request, err := opts.request(statementData)
	if err != nil {
		return err
	}

	source, closeSource, err := a.openSource()
	if err != nil {
		return err
	}
	defer closeSource()

	service, err := a.newService(source)
	if err != nil {
		return err
	}

	result, err := service.Reconcile(cmd.Context(), request)
	if err != nil {
		return err
	}

	text, err := generator.Render(result)
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "render report", err)
	}
	if err := writeReport(cmd.OutOrStdout(), opts.output, text); err != nil {
		return err
	}

	if a.verbose {
		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "\nReconciliation %s completed: %s\n", result.RunID, result.Summary.Status)
		fmt.Fprintf(stderr, "Matched %d exact and %d fuzzy; %d ledger and %d statement transactions unmatched.\n",
			result.ExactMatches, result.FuzzyMatches, result.UnmatchedLedger, result.UnmatchedStatement)
		if len(result.ParseWarnings) > 0 {
			fmt.Fprintf(stderr, "Skipped %d statement rows.\n", len(result.ParseWarnings))
		}
	}
	return nil
}

// writeReport prints text to stdout, or to path when one is given
func writeReport(stdout io.Writer, path, text string) error {
	if path == "" || path == "-" {
		if _, err := io.WriteString(stdout, text); err != nil {
			return errors.IOError(errors.CodeWriteFailed, "write report", err)
		}
		return nil
	}
	return reporter.WriteOutput(path, text)
}
