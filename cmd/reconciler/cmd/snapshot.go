package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ledger-reconciliation-service/internal/ledger/snapshot"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage offline ledger snapshots",
		Long: `A snapshot is a SQLite copy of one budget. Point ledger.source at
"snapshot" and ledger.snapshot_path at the file to reconcile without network
access.`,
	}
	cmd.AddCommand(newSnapshotExportCmd(a))
	return cmd
}

func newSnapshotExportCmd(a *app) *cobra.Command {
	var path, budget, since string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a budget from the configured ledger source into a snapshot file",
		Example: `  reconciler snapshot export --path ledger.db --since 2024-01-01
  RECONCILER_LEDGER_SOURCE=snapshot RECONCILER_LEDGER_SNAPSHOT_PATH=ledger.db \
    reconciler reconcile --statement jan.csv --balance 0 --date 2024-01-31 --account-name checking`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(path) == "" {
				return errors.ValidationError(errors.CodeMissingField, "path", "", nil).
					WithSuggestion("pass --path FILE for the snapshot database")
			}

			var from time.Time
			if since != "" {
				d, err := models.ParseDate(since)
				if err != nil {
					return errors.ValidationError(errors.CodeInvalidDate, "since", since, err)
				}
				from = d.Time
			}

			source, closeSource, err := a.openSource()
			if err != nil {
				return err
			}
			defer closeSource()

			store, err := snapshot.Create(path)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Export(cmd.Context(), source, a.budgetID(budget), from)
			if err != nil {
				return asIOError("export snapshot", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", stats, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "snapshot file to create or update (required)")
	cmd.Flags().StringVar(&budget, "budget", "", "budget id (default: ledger.budget_id)")
	cmd.Flags().StringVar(&since, "since", "", "only export transactions on or after YYYY-MM-DD (default: all)")
	return cmd
}
