package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// ExportStats counts the rows written by Export
type ExportStats struct {
	BudgetID     string `json:"budget_id"`
	Accounts     int    `json:"accounts"`
	Transactions int    `json:"transactions"`
}

// String returns a one-line summary
func (s ExportStats) String() string {
	return fmt.Sprintf("budget %s: %d accounts, %d transactions", s.BudgetID, s.Accounts, s.Transactions)
}

// Create opens (or creates) a writable snapshot and applies the schema
func Create(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.FileError("", path, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, errors.FileError("", path, fmt.Errorf("failed to enable foreign keys: %w", err))
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.FileError("", path, fmt.Errorf("failed to apply schema: %w", err))
	}

	return &Store{
		db:     db,
		path:   path,
		logger: logger.GetGlobalLogger().WithComponent("ledger_snapshot").WithField("path", path),
	}, nil
}

// SaveBudget inserts or replaces a budget row
func (s *Store) SaveBudget(ctx context.Context, b models.Budget) error {
	var modified interface{}
	if !b.LastModifiedOn.IsZero() {
		modified = b.LastModifiedOn.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO budgets (id, name, last_modified_on, currency_code)
		VALUES (?, ?, ?, ?)`,
		b.ID, b.Name, modified, b.CurrencyCode)
	if err != nil {
		return errors.IOError(errors.CodeWriteFailed, "save budget", err)
	}
	return nil
}

// SaveAccounts replaces the budget's accounts. Slice order is kept.
func (s *Store) SaveAccounts(ctx context.Context, budgetID string, accounts []models.Account) error {
	return s.inTx(ctx, "save accounts", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO accounts
			(id, budget_id, name, type, on_budget, closed, deleted, balance, cleared_balance, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, a := range accounts {
			if _, err := stmt.ExecContext(ctx,
				a.ID, budgetID, a.Name, a.Type, a.OnBudget, a.Closed, a.Deleted,
				models.ToMilliunits(a.Balance), models.ToMilliunits(a.ClearedBalance), i,
			); err != nil {
				return fmt.Errorf("account %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// SaveTransactions inserts or replaces transactions. Slice order is kept.
func (s *Store) SaveTransactions(ctx context.Context, budgetID string, txns []models.LedgerTransaction) error {
	return s.inTx(ctx, "save transactions", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO transactions
			(id, budget_id, account_id, date, amount, payee_name, memo, cleared, approved, deleted, category_name, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range txns {
			if _, err := stmt.ExecContext(ctx,
				t.ID, budgetID, t.AccountID, t.Date.String(), models.ToMilliunits(t.Amount),
				t.Payee, t.Memo, t.Cleared, t.Approved, t.Deleted, t.CategoryName, i,
			); err != nil {
				return fmt.Errorf("transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// Export copies one budget from src into the snapshot: the budget row, all of
// its accounts, and each account's transactions dated on or after since.
func (s *Store) Export(ctx context.Context, src ledger.Source, budgetID string, since time.Time) (*ExportStats, error) {
	budgets, err := src.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}

	budget, err := pickBudget(budgets, budgetID)
	if err != nil {
		return nil, err
	}
	if err := s.SaveBudget(ctx, *budget); err != nil {
		return nil, err
	}

	accounts, err := src.ListAccounts(ctx, budget.ID)
	if err != nil {
		return nil, err
	}
	if err := s.SaveAccounts(ctx, budget.ID, accounts); err != nil {
		return nil, err
	}

	stats := &ExportStats{BudgetID: budget.ID, Accounts: len(accounts)}
	for _, account := range accounts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		txns, err := src.ListTransactions(ctx, budget.ID, account.ID, since)
		if err != nil {
			return nil, err
		}
		for i := range txns {
			if txns[i].AccountID == "" {
				txns[i].AccountID = account.ID
			}
		}
		if err := s.SaveTransactions(ctx, budget.ID, txns); err != nil {
			return nil, err
		}
		stats.Transactions += len(txns)
	}

	s.logger.WithFields(logger.Fields{
		"budget_id":    stats.BudgetID,
		"accounts":     stats.Accounts,
		"transactions": stats.Transactions,
	}).Info("Snapshot exported")

	return stats, nil
}

// pickBudget selects the requested budget; "last-used" picks the most recently modified one
func pickBudget(budgets []models.Budget, budgetID string) (*models.Budget, error) {
	id := ledger.ResolveBudgetID(budgetID)
	var picked *models.Budget
	for i := range budgets {
		b := &budgets[i]
		if id != ledger.DefaultBudgetID {
			if b.ID == id {
				return b, nil
			}
			continue
		}
		if picked == nil || b.LastModifiedOn.After(picked.LastModifiedOn) {
			picked = b
		}
	}
	if picked == nil {
		return nil, errors.NotFoundError(errors.CodeBudgetNotFound, id)
	}
	return picked, nil
}

func (s *Store) inTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.IOError(errors.CodeWriteFailed, operation, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return errors.IOError(errors.CodeWriteFailed, operation, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.IOError(errors.CodeWriteFailed, operation, err)
	}
	return nil
}
