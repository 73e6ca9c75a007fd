package reconciler

import (
	"strings"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
)

// OpenAccounts drops closed and deleted accounts, preserving order
func OpenAccounts(accounts []models.Account) []models.Account {
	open := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.IsOpen() {
			open = append(open, a)
		}
	}
	return open
}

// FindAccount resolves an account among open accounts. An id must match
// exactly. A name is tried as a case-insensitive exact match first, then as a
// case-insensitive substring; the first hit in list order wins.
func FindAccount(accounts []models.Account, accountID, accountName string) (*models.Account, error) {
	if accountID == "" && accountName == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "account_id or account_name", "", nil).
			WithSuggestion("pass --account-id or --account-name; run 'reconciler accounts' to list open accounts")
	}

	open := OpenAccounts(accounts)

	if accountID != "" {
		for i := range open {
			if open[i].ID == accountID {
				return &open[i], nil
			}
		}
		return nil, errors.NotFoundError(errors.CodeAccountNotFound, accountID)
	}

	query := strings.ToLower(strings.TrimSpace(accountName))
	for i := range open {
		if strings.ToLower(open[i].Name) == query {
			return &open[i], nil
		}
	}
	for i := range open {
		if strings.Contains(strings.ToLower(open[i].Name), query) {
			return &open[i], nil
		}
	}

	return nil, errors.NotFoundError(errors.CodeAccountNotFound, accountName)
}
