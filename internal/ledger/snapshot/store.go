// Package snapshot serves ledger data from a local SQLite file.
//
// A snapshot is written once with Export (typically from the live API) and
// then opened read-only so reconciliations can run offline and repeatably.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// Amounts are stored as ledger milliunits
const schema = `
CREATE TABLE IF NOT EXISTS budgets (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	last_modified_on TIMESTAMP,
	currency_code    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	budget_id       TEXT NOT NULL REFERENCES budgets(id),
	name            TEXT NOT NULL,
	type            TEXT NOT NULL DEFAULT '',
	on_budget       BOOLEAN NOT NULL DEFAULT 1,
	closed          BOOLEAN NOT NULL DEFAULT 0,
	deleted         BOOLEAN NOT NULL DEFAULT 0,
	balance         INTEGER NOT NULL DEFAULT 0,
	cleared_balance INTEGER NOT NULL DEFAULT 0,
	position        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	budget_id     TEXT NOT NULL REFERENCES budgets(id),
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	date          TEXT NOT NULL,
	amount        INTEGER NOT NULL,
	payee_name    TEXT NOT NULL DEFAULT '',
	memo          TEXT NOT NULL DEFAULT '',
	cleared       TEXT NOT NULL DEFAULT '',
	approved      BOOLEAN NOT NULL DEFAULT 1,
	deleted       BOOLEAN NOT NULL DEFAULT 0,
	category_name TEXT NOT NULL DEFAULT '',
	position      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date);
`

// Store is a ledger.Source backed by a snapshot file
type Store struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

var _ ledger.Source = (*Store)(nil)

// Open opens an existing snapshot read-only
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?mode=ro"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.FileError("", path, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}

	return &Store{
		db:     db,
		path:   path,
		logger: logger.GetGlobalLogger().WithComponent("ledger_snapshot").WithField("path", path),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ListBudgets returns budgets, most recently modified first
func (s *Store) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, last_modified_on, currency_code
		FROM budgets ORDER BY last_modified_on DESC, id`)
	if err != nil {
		return nil, errors.IOError(errors.CodeFetchFailed, "list budgets", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		var modified sql.NullTime
		if err := rows.Scan(&b.ID, &b.Name, &modified, &b.CurrencyCode); err != nil {
			return nil, errors.IOError(errors.CodeUnexpectedResponse, "list budgets", err)
		}
		if modified.Valid {
			b.LastModifiedOn = modified.Time
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IOError(errors.CodeFetchFailed, "list budgets", err)
	}
	return budgets, nil
}

// ListAccounts returns all accounts of a budget in their original order
func (s *Store) ListAccounts(ctx context.Context, budgetID string) ([]models.Account, error) {
	id, err := s.resolveBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, on_budget, closed, deleted, balance, cleared_balance
		FROM accounts WHERE budget_id = ? ORDER BY position, id`, id)
	if err != nil {
		return nil, errors.IOError(errors.CodeFetchFailed, "list accounts", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var balance, cleared int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.OnBudget, &a.Closed, &a.Deleted, &balance, &cleared); err != nil {
			return nil, errors.IOError(errors.CodeUnexpectedResponse, "list accounts", err)
		}
		a.Balance = models.FromMilliunits(balance)
		a.ClearedBalance = models.FromMilliunits(cleared)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IOError(errors.CodeFetchFailed, "list accounts", err)
	}
	return accounts, nil
}

// ListTransactions returns an account's transactions dated on or after since
func (s *Store) ListTransactions(ctx context.Context, budgetID, accountID string, since time.Time) ([]models.LedgerTransaction, error) {
	id, err := s.resolveBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, "list transactions", `
		SELECT t.id, t.date, t.amount, t.payee_name, t.memo, t.cleared, t.approved, t.deleted,
		       t.account_id, a.name, t.category_name
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE t.budget_id = ? AND t.account_id = ? AND t.date >= ?
		ORDER BY t.position, t.date, t.id`,
		id, accountID, models.DateOf(since).String())
}

// ListUnapprovedTransactions returns the budget's transactions awaiting approval
func (s *Store) ListUnapprovedTransactions(ctx context.Context, budgetID string) ([]models.LedgerTransaction, error) {
	id, err := s.resolveBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, "list unapproved transactions", `
		SELECT t.id, t.date, t.amount, t.payee_name, t.memo, t.cleared, t.approved, t.deleted,
		       t.account_id, a.name, t.category_name
		FROM transactions t JOIN accounts a ON a.id = t.account_id
		WHERE t.budget_id = ? AND t.approved = 0 AND t.deleted = 0
		ORDER BY t.position, t.date, t.id`, id)
}

func (s *Store) queryTransactions(ctx context.Context, operation, query string, args ...interface{}) ([]models.LedgerTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.IOError(errors.CodeFetchFailed, operation, err)
	}
	defer rows.Close()

	var txns []models.LedgerTransaction
	for rows.Next() {
		var t models.LedgerTransaction
		var date string
		var amount int64
		if err := rows.Scan(&t.ID, &date, &amount, &t.Payee, &t.Memo, &t.Cleared, &t.Approved, &t.Deleted,
			&t.AccountID, &t.AccountName, &t.CategoryName); err != nil {
			return nil, errors.IOError(errors.CodeUnexpectedResponse, operation, err)
		}
		if t.Date, err = models.ParseDate(date); err != nil {
			return nil, errors.IOError(errors.CodeUnexpectedResponse, operation, fmt.Errorf("transaction %s: %w", t.ID, err))
		}
		t.Amount = models.FromMilliunits(amount)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IOError(errors.CodeFetchFailed, operation, err)
	}

	s.logger.WithFields(logger.Fields{
		"operation": operation,
		"count":     len(txns),
	}).Debug("Loaded snapshot transactions")

	return txns, nil
}

// resolveBudget maps "last-used" (or "") to the most recently modified budget
func (s *Store) resolveBudget(ctx context.Context, budgetID string) (string, error) {
	if ledger.ResolveBudgetID(budgetID) != ledger.DefaultBudgetID {
		return budgetID, nil
	}

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM budgets ORDER BY last_modified_on DESC, id LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", errors.NotFoundError(errors.CodeBudgetNotFound, ledger.DefaultBudgetID)
	}
	if err != nil {
		return "", errors.IOError(errors.CodeFetchFailed, "resolve budget", err)
	}
	return id, nil
}
