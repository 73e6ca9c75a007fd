package ynab

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledger-reconciliation-service/internal/models"
)

// APIError is the error object the API returns with non-2xx responses
type APIError struct {
	StatusCode int    `json:"-"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Detail     string `json:"detail"`
}

// Error returns the API's detail message unchanged
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("ledger API returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error APIError `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		payload.Error.StatusCode = status
		apiErr = &payload.Error
	}
	return apiErr
}

type budgetDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LastModifiedOn time.Time `json:"last_modified_on"`
	CurrencyFormat *struct {
		ISOCode string `json:"iso_code"`
	} `json:"currency_format"`
}

func (b budgetDTO) toModel() models.Budget {
	budget := models.Budget{
		ID:             b.ID,
		Name:           b.Name,
		LastModifiedOn: b.LastModifiedOn,
	}
	if b.CurrencyFormat != nil {
		budget.CurrencyCode = b.CurrencyFormat.ISOCode
	}
	return budget
}

type accountDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	OnBudget       bool   `json:"on_budget"`
	Closed         bool   `json:"closed"`
	Deleted        bool   `json:"deleted"`
	Balance        int64  `json:"balance"`
	ClearedBalance int64  `json:"cleared_balance"`
}

func (a accountDTO) toModel() models.Account {
	return models.Account{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		OnBudget:       a.OnBudget,
		Closed:         a.Closed,
		Deleted:        a.Deleted,
		Balance:        models.FromMilliunits(a.Balance),
		ClearedBalance: models.FromMilliunits(a.ClearedBalance),
	}
}

type transactionDTO struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Amount       int64   `json:"amount"`
	Memo         *string `json:"memo"`
	Cleared      string  `json:"cleared"`
	Approved     bool    `json:"approved"`
	AccountID    string  `json:"account_id"`
	AccountName  string  `json:"account_name"`
	PayeeName    *string `json:"payee_name"`
	CategoryName *string `json:"category_name"`
	Deleted      bool    `json:"deleted"`
}

func (t transactionDTO) toModel() (models.LedgerTransaction, error) {
	date, err := models.ParseDate(t.Date)
	if err != nil {
		return models.LedgerTransaction{}, fmt.Errorf("transaction %s: %w", t.ID, err)
	}

	return models.LedgerTransaction{
		ID:           t.ID,
		Date:         date,
		Amount:       models.FromMilliunits(t.Amount),
		Payee:        deref(t.PayeeName),
		Memo:         deref(t.Memo),
		Deleted:      t.Deleted,
		Approved:     t.Approved,
		Cleared:      t.Cleared,
		AccountID:    t.AccountID,
		AccountName:  t.AccountName,
		CategoryName: deref(t.CategoryName),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
