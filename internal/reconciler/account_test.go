package reconciler

import (
	"testing"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
)

func testAccounts() []models.Account {
	return []models.Account{
		{ID: "acc-closed", Name: "Checking", Closed: true},
		{ID: "acc-1", Name: "Everyday Checking"},
		{ID: "acc-2", Name: "checking"},
		{ID: "acc-3", Name: "Savings"},
		{ID: "acc-4", Name: "Old Card", Deleted: true},
	}
}

func TestFindAccount(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		query      string
		expectedID string
		category   errors.ErrorCategory
	}{
		{name: "by id", id: "acc-3", expectedID: "acc-3"},
		{name: "id wins over name", id: "acc-1", query: "Savings", expectedID: "acc-1"},
		{name: "exact name is case-insensitive and beats partial", query: "CHECKING", expectedID: "acc-2"},
		{name: "partial name", query: "saV", expectedID: "acc-3"},
		{name: "partial name in list order", query: "check", expectedID: "acc-1"},
		{name: "closed account by id", id: "acc-closed", category: errors.CategoryNotFound},
		{name: "deleted account by name", query: "Old Card", category: errors.CategoryNotFound},
		{name: "unknown name", query: "Brokerage", category: errors.CategoryNotFound},
		{name: "nothing given", category: errors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := FindAccount(testAccounts(), tt.id, tt.query)

			if tt.category != "" {
				if !errors.IsCategory(err, tt.category) {
					t.Fatalf("expected %s error, got %v", tt.category, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.ID != tt.expectedID {
				t.Errorf("expected account %s, got %s", tt.expectedID, account.ID)
			}
		})
	}
}

func TestOpenAccounts(t *testing.T) {
	open := OpenAccounts(testAccounts())
	if len(open) != 3 {
		t.Fatalf("expected 3 open accounts, got %d", len(open))
	}
	if open[0].ID != "acc-1" || open[2].ID != "acc-3" {
		t.Errorf("expected order to be preserved, got %+v", open)
	}
}
