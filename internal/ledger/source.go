// Package ledger defines where existing ledger data comes from.
//
// The reconciler only ever reads from a Source. Implementations live in
// subpackages: ynab talks to the hosted REST API, snapshot reads an offline
// SQLite export and fixture loads a YAML file.
package ledger

import (
	"context"
	"time"

	"ledger-reconciliation-service/internal/models"
)

// DefaultBudgetID selects the most recently used budget
const DefaultBudgetID = "last-used"

// Source supplies budgets, accounts and transactions from a ledger.
// Amounts are returned in currency units.
//
//go:generate mockgen -destination=mocks/mock_source.go -package=mocks -source=source.go Source
type Source interface {
	ListBudgets(ctx context.Context) ([]models.Budget, error)
	// ListAccounts includes closed and deleted accounts; callers filter
	ListAccounts(ctx context.Context, budgetID string) ([]models.Account, error)
	// ListTransactions returns an account's transactions dated on or after since
	ListTransactions(ctx context.Context, budgetID, accountID string, since time.Time) ([]models.LedgerTransaction, error)
	ListUnapprovedTransactions(ctx context.Context, budgetID string) ([]models.LedgerTransaction, error)
}

// ResolveBudgetID returns id, or DefaultBudgetID when id is blank
func ResolveBudgetID(id string) string {
	if id == "" {
		return DefaultBudgetID
	}
	return id
}
