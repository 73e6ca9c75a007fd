// Package fixture serves ledger data from a YAML file, for demos and tests.
//
// The file mirrors the ledger hierarchy:
//
//	budgets:
//	  - id: b1
//	    name: Household
//	    last_modified_on: 2024-01-31T10:00:00Z
//	    accounts:
//	      - id: a1
//	        name: Checking
//	        balance: -50000        # milliunits
//	        transactions:
//	          - id: t1
//	            date: "2024-01-15"
//	            amount: -50000
//	            payee_name: Grocery Store
package fixture

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
)

type fileDoc struct {
	Budgets []budgetDoc `yaml:"budgets"`
}

type budgetDoc struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name"`
	LastModifiedOn time.Time    `yaml:"last_modified_on"`
	CurrencyCode   string       `yaml:"currency_code"`
	Accounts       []accountDoc `yaml:"accounts"`
}

type accountDoc struct {
	ID             string           `yaml:"id"`
	Name           string           `yaml:"name"`
	Type           string           `yaml:"type"`
	OnBudget       *bool            `yaml:"on_budget"`
	Closed         bool             `yaml:"closed"`
	Deleted        bool             `yaml:"deleted"`
	Balance        int64            `yaml:"balance"`
	ClearedBalance int64            `yaml:"cleared_balance"`
	Transactions   []transactionDoc `yaml:"transactions"`
}

type transactionDoc struct {
	ID           string `yaml:"id"`
	Date         string `yaml:"date"`
	Amount       int64  `yaml:"amount"`
	PayeeName    string `yaml:"payee_name"`
	Memo         string `yaml:"memo"`
	Cleared      string `yaml:"cleared"`
	Approved     *bool  `yaml:"approved"`
	Deleted      bool   `yaml:"deleted"`
	CategoryName string `yaml:"category_name"`
}

// Source is a read-only ledger.Source loaded fully into memory
type Source struct {
	budgets []budgetDoc
}

var _ ledger.Source = (*Source)(nil)

// Load reads a fixture file
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError("", path, err)
	}

	src, err := Parse(data)
	if err != nil {
		if rerr, ok := errors.AsReconcilerError(err); ok {
			return nil, rerr.WithContext("file_path", path)
		}
		return nil, err
	}
	return src, nil
}

// Parse decodes fixture YAML. Dates are checked eagerly so a bad fixture fails on load.
func Parse(data []byte) (*Source, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "fixture", nil, err)
	}

	for _, b := range doc.Budgets {
		for _, a := range b.Accounts {
			for _, t := range a.Transactions {
				if _, err := models.ParseDate(t.Date); err != nil {
					return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "fixture", t.Date,
						fmt.Errorf("transaction %s: %w", t.ID, err))
				}
			}
		}
	}

	return &Source{budgets: doc.Budgets}, nil
}

// ListBudgets returns the fixture's budgets in file order
func (s *Source) ListBudgets(_ context.Context) ([]models.Budget, error) {
	budgets := make([]models.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		budgets = append(budgets, models.Budget{
			ID:             b.ID,
			Name:           b.Name,
			LastModifiedOn: b.LastModifiedOn,
			CurrencyCode:   b.CurrencyCode,
		})
	}
	return budgets, nil
}

// ListAccounts returns all accounts of a budget
func (s *Source) ListAccounts(_ context.Context, budgetID string) ([]models.Account, error) {
	b, err := s.budget(budgetID)
	if err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(b.Accounts))
	for _, a := range b.Accounts {
		accounts = append(accounts, a.toModel())
	}
	return accounts, nil
}

// ListTransactions returns an account's transactions dated on or after since
func (s *Source) ListTransactions(_ context.Context, budgetID, accountID string, since time.Time) ([]models.LedgerTransaction, error) {
	b, err := s.budget(budgetID)
	if err != nil {
		return nil, err
	}

	from := models.DateOf(since)
	var txns []models.LedgerTransaction
	for _, a := range b.Accounts {
		if a.ID != accountID {
			continue
		}
		for _, t := range a.Transactions {
			txn := t.toModel(a)
			if !since.IsZero() && txn.Date.Before(from.Time) {
				continue
			}
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

// ListUnapprovedTransactions returns the budget's live transactions awaiting approval
func (s *Source) ListUnapprovedTransactions(_ context.Context, budgetID string) ([]models.LedgerTransaction, error) {
	b, err := s.budget(budgetID)
	if err != nil {
		return nil, err
	}

	var txns []models.LedgerTransaction
	for _, a := range b.Accounts {
		for _, t := range a.Transactions {
			txn := t.toModel(a)
			if !txn.Approved && !txn.Deleted {
				txns = append(txns, txn)
			}
		}
	}
	return txns, nil
}

// budget resolves an id; "last-used" picks the most recently modified budget
func (s *Source) budget(budgetID string) (*budgetDoc, error) {
	id := ledger.ResolveBudgetID(budgetID)
	var picked *budgetDoc
	for i := range s.budgets {
		b := &s.budgets[i]
		if b.ID == id {
			return b, nil
		}
		if id == ledger.DefaultBudgetID && (picked == nil || b.LastModifiedOn.After(picked.LastModifiedOn)) {
			picked = b
		}
	}
	if picked == nil {
		return nil, errors.NotFoundError(errors.CodeBudgetNotFound, id)
	}
	return picked, nil
}

func (a accountDoc) toModel() models.Account {
	onBudget := true
	if a.OnBudget != nil {
		onBudget = *a.OnBudget
	}
	return models.Account{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		OnBudget:       onBudget,
		Closed:         a.Closed,
		Deleted:        a.Deleted,
		Balance:        models.FromMilliunits(a.Balance),
		ClearedBalance: models.FromMilliunits(a.ClearedBalance),
	}
}

// toModel converts a row; the date was validated by Parse
func (t transactionDoc) toModel(a accountDoc) models.LedgerTransaction {
	date, _ := models.ParseDate(t.Date)
	approved := true
	if t.Approved != nil {
		approved = *t.Approved
	}
	return models.LedgerTransaction{
		ID:           t.ID,
		Date:         date,
		Amount:       models.FromMilliunits(t.Amount),
		Payee:        t.PayeeName,
		Memo:         t.Memo,
		Cleared:      t.Cleared,
		Approved:     approved,
		Deleted:      t.Deleted,
		AccountID:    a.ID,
		AccountName:  a.Name,
		CategoryName: t.CategoryName,
	}
}
