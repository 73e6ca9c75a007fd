package cmd

import (
	"github.com/spf13/cobra"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"
	"ledger-reconciliation-service/pkg/errors"
)

// viewOptions holds the flags shared by the read-only ledger commands
type viewOptions struct {
	budget string
	format string
	output string
}

func (o *viewOptions) bind(cmd *cobra.Command, withBudget bool) {
	if withBudget {
		cmd.Flags().StringVar(&o.budget, "budget", "", "budget id (default: ledger.budget_id)")
	}
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "output format: markdown, json, csv (default: report.format)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default: stdout)")
}

func newBudgetsCmd(a *app) *cobra.Command {
	opts := &viewOptions{}
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "List the budgets visible to the ledger source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runView(cmd, opts, func(source ledger.Source, g *reporter.ReportGenerator) (string, error) {
				budgets, err := source.ListBudgets(cmd.Context())
				if err != nil {
					return "", asIOError("list budgets", err)
				}
				return g.RenderBudgets(budgets)
			})
		},
	}
	opts.bind(cmd, false)
	return cmd
}

func newAccountsCmd(a *app) *cobra.Command {
	opts := &viewOptions{}
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the open accounts of a budget",
		Long: `Accounts lists the open (not closed, not deleted) accounts of a budget.
Use an id or name from this list with 'reconciler reconcile'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runView(cmd, opts, func(source ledger.Source, g *reporter.ReportGenerator) (string, error) {
				accounts, err := source.ListAccounts(cmd.Context(), a.budgetID(opts.budget))
				if err != nil {
					return "", asIOError("list accounts", err)
				}
				return g.RenderAccounts(reconciler.OpenAccounts(accounts))
			})
		},
	}
	opts.bind(cmd, true)
	return cmd
}

func newUnapprovedCmd(a *app) *cobra.Command {
	opts := &viewOptions{}
	cmd := &cobra.Command{
		Use:   "unapproved",
		Short: "List unapproved transactions awaiting review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runView(cmd, opts, func(source ledger.Source, g *reporter.ReportGenerator) (string, error) {
				txns, err := source.ListUnapprovedTransactions(cmd.Context(), a.budgetID(opts.budget))
				if err != nil {
					return "", asIOError("list unapproved transactions", err)
				}
				return g.RenderUnapproved(txns)
			})
		},
	}
	opts.bind(cmd, true)
	return cmd
}

// runView opens the source, renders one view and writes it
func (a *app) runView(cmd *cobra.Command, opts *viewOptions, render func(ledger.Source, *reporter.ReportGenerator) (string, error)) error {
	generator, err := a.newGenerator(opts.format)
	if err != nil {
		return err
	}

	source, closeSource, err := a.openSource()
	if err != nil {
		return err
	}
	defer closeSource()

	text, err := render(source, generator)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), opts.output, text)
}

// asIOError keeps tagged source errors and tags anything else as io
func asIOError(operation string, err error) error {
	if rerr, ok := errors.AsReconcilerError(err); ok {
		return rerr
	}
	return errors.IOError(errors.CodeFetchFailed, operation, err)
}
