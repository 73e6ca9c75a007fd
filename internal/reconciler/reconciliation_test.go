package reconciler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-reconciliation-service/internal/ledger/mocks"
	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

var fixedNow = time.Date(2024, 2, 1, 15, 4, 5, 0, time.UTC)

func newService(t *testing.T, source *mocks.MockSource) *reconciler.ReconciliationService {
	t.Helper()
	svc, err := reconciler.NewReconciliationService(source, nil,
		reconciler.WithClock(func() time.Time { return fixedNow }),
		reconciler.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	return svc
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func groceryAccount(balance string) []models.Account {
	return []models.Account{
		{ID: "acc-closed", Name: "Checking Old", Closed: true},
		{ID: "acc-1", Name: "Checking", Balance: decimal.RequireFromString(balance)},
	}
}

func groceryLedger() []models.LedgerTransaction {
	return []models.LedgerTransaction{
		{ID: "t1", Date: models.MustParseDate("2024-01-15"), Amount: models.FromMilliunits(-50000), Payee: "Grocery Store"},
	}
}

func TestReconcile_ExactMatchBalanced(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSource(ctrl)
	since := time.Date(2023, 10, 31, 0, 0, 0, 0, time.UTC)
	source.EXPECT().ListAccounts(gomock.Any(), "last-used").Return(groceryAccount("-50.00"), nil)
	source.EXPECT().ListTransactions(gomock.Any(), "last-used", "acc-1", since).Return(groceryLedger(), nil)

	result, err := newService(t, source).Reconcile(context.Background(), &reconciler.Request{
		AccountName:      "checking",
		StatementData:    "Date,Description,Amount\n2024-01-15,Grocery Store,-50.00",
		StatementBalance: amount("-50.00"),
		StatementDate:    "2024-01-31",
	})
	require.NoError(t, err)

	assert.Equal(t, "acc-1", result.AccountID)
	assert.Equal(t, "Checking", result.AccountName)
	assert.True(t, result.BalanceDifference.IsZero())
	assert.Equal(t, "2024-01-31", result.StatementDate.String())
	assert.Equal(t, "2024-02-01", result.ReconciliationDate.String())
	assert.Equal(t, 1, result.TotalLedgerTransactions)
	assert.Equal(t, 1, result.TotalStatementTransactions)
	assert.Equal(t, 1, result.ExactMatches)
	assert.Equal(t, 0, result.FuzzyMatches)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, matcher.MatchExact, result.Matches[0].Type)
	assert.Equal(t, 1.0, result.Matches[0].Confidence)
	assert.Empty(t, result.Discrepancies)
	assert.Equal(t, reconciler.StatusBalanced, result.Summary.Status)
	assert.Equal(t, []string{"Account is fully reconciled - no action needed"}, result.Summary.Recommendations)
	assert.Equal(t, reconciler.ResultNote, result.Note)
	assert.NotEmpty(t, result.RunID)
}

func TestReconcile_FuzzyAmountMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSource(ctrl)
	source.EXPECT().ListAccounts(gomock.Any(), "budget-1").Return(groceryAccount("-50.00"), nil)
	source.EXPECT().ListTransactions(gomock.Any(), "budget-1", "acc-1", gomock.Any()).Return(groceryLedger(), nil)

	result, err := newService(t, source).Reconcile(context.Background(), &reconciler.Request{
		BudgetID:         "budget-1",
		AccountID:        "acc-1",
		StatementData:    "Date,Description,Amount\n2024-01-15,Grocery Store,-50.05",
		StatementBalance: amount("-50.05"),
		StatementDate:    "2024-01-31",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExactMatches)
	assert.Equal(t, 1, result.FuzzyMatches)
	require.Len(t, result.Matches, 1)
	assert.InDelta(t, 0.995, result.Matches[0].Confidence, 1e-9)
	require.NotNil(t, result.Matches[0].Discrepancy)
	assert.True(t, result.Matches[0].Discrepancy.Equal(decimal.RequireFromString("0.05")))

	require.Len(t, result.Discrepancies, 1)
	assert.Equal(t, reconciler.DiscrepancyAmountMismatch, result.Discrepancies[0].Type)
	assert.Equal(t, "t1", result.Discrepancies[0].TransactionID)
	assert.True(t, result.BalanceDifference.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, reconciler.StatusNeedsReview, result.Summary.Status)
}

func TestReconcile_DroppedRowsAreNotCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSource(ctrl)
	source.EXPECT().ListAccounts(gomock.Any(), gomock.Any()).Return(groceryAccount("-50.00"), nil)
	source.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(groceryLedger(), nil)

	result, err := newService(t, source).Reconcile(context.Background(), &reconciler.Request{
		AccountID:        "acc-1",
		StatementData:    "Date,Description,Amount\nsometime,Mystery,-1.00\n2024-01-15,Grocery Store,-50.00",
		StatementBalance: amount("-50.00"),
		StatementDate:    "2024-01-31",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalStatementTransactions)
	require.Len(t, result.ParseWarnings, 1)
	assert.Equal(t, 2, result.ParseWarnings[0].Line)
	assert.Equal(t, errors.ReasonUnparseableDate, result.ParseWarnings[0].Reason)
}

func TestReconcile_EmptyStatement(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledgerTxns := []models.LedgerTransaction{
		{ID: "t1", Date: models.MustParseDate("2024-01-10"), Amount: models.FromMilliunits(-10000), Payee: "Netflix"},
		{ID: "t2", Date: models.MustParseDate("2024-01-11"), Amount: models.FromMilliunits(-20000), Payee: "Spotify", Deleted: true},
		{ID: "t3", Date: models.MustParseDate("2024-01-12"), Amount: models.FromMilliunits(-30000), Payee: "Gym"},
	}

	source := mocks.NewMockSource(ctrl)
	source.EXPECT().ListAccounts(gomock.Any(), gomock.Any()).Return(groceryAccount("-40.00"), nil)
	source.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), "acc-1", gomock.Any()).Return(ledgerTxns, nil)

	result, err := newService(t, source).Reconcile(context.Background(), &reconciler.Request{
		AccountID:        "acc-1",
		StatementData:    "Date,Description,Amount",
		StatementBalance: amount("0"),
		StatementDate:    "2024-01-31",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalLedgerTransactions, "deleted transactions are excluded")
	assert.Equal(t, 0, result.TotalStatementTransactions)
	assert.Equal(t, 2, result.UnmatchedLedger)
	require.Len(t, result.Discrepancies, 2)
	for _, d := range result.Discrepancies {
		assert.Equal(t, reconciler.DiscrepancyMissingInStatement, d.Type)
	}
	assert.Equal(t, reconciler.StatusUnbalanced, result.Summary.Status)
}

func TestReconcile_ValidationHappensBeforeIO(t *testing.T) {
	tests := []struct {
		name    string
		request reconciler.Request
		field   string
	}{
		{
			name:    "missing statement data",
			request: reconciler.Request{AccountID: "acc-1", StatementBalance: amount("1"), StatementDate: "2024-01-31"},
			field:   "statement_data",
		},
		{
			name:    "missing balance",
			request: reconciler.Request{AccountID: "acc-1", StatementData: "x", StatementDate: "2024-01-31"},
			field:   "statement_balance",
		},
		{
			name:    "missing date",
			request: reconciler.Request{AccountID: "acc-1", StatementData: "x", StatementBalance: amount("1")},
			field:   "statement_date",
		},
		{
			name:    "malformed date",
			request: reconciler.Request{AccountID: "acc-1", StatementData: "x", StatementBalance: amount("1"), StatementDate: "01/31/2024"},
			field:   "statement_date",
		},
		{
			name:    "negative tolerance",
			request: reconciler.Request{AccountID: "acc-1", StatementData: "x", StatementBalance: amount("1"), StatementDate: "2024-01-31", Tolerance: amount("-0.01")},
			field:   "tolerance",
		},
		{
			name:    "no account",
			request: reconciler.Request{StatementData: "x", StatementBalance: amount("1"), StatementDate: "2024-01-31"},
			field:   "account_id or account_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// no expectations: any ledger call fails the test
			source := mocks.NewMockSource(ctrl)

			_, err := newService(t, source).Reconcile(context.Background(), &tt.request)
			require.Error(t, err)

			rerr, ok := errors.AsReconcilerError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryValidation, rerr.Category)
			assert.Equal(t, tt.field, rerr.Context["field"])
		})
	}
}

func TestReconcile_ZeroBalanceIsAccepted(t *testing.T) {
	request := reconciler.Request{AccountID: "acc-1", StatementData: "x", StatementBalance: amount("0"), StatementDate: "2024-01-31"}
	assert.NoError(t, request.Validate())
}

func TestReconcile_AccountNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSource(ctrl)
	source.EXPECT().ListAccounts(gomock.Any(), gomock.Any()).Return(groceryAccount("0"), nil)

	_, err := newService(t, source).Reconcile(context.Background(), &reconciler.Request{
		AccountName:      "Brokerage",
		StatementData:    "2024-01-15,Grocery Store,-50.00",
		StatementBalance: amount("0"),
		StatementDate:    "2024-01-31",
	})

	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestReconcile_FetchFailuresAreIOErrors(t *testing.T) {
	request := &reconciler.Request{
		AccountID:        "acc-1",
		StatementData:    "2024-01-15,Grocery Store,-50.00",
		StatementBalance: amount("0"),
		StatementDate:    "2024-01-31",
	}

	t.Run("accounts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		source := mocks.NewMockSource(ctrl)
		source.EXPECT().ListAccounts(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("connection reset by peer"))

		_, err := newService(t, source).Reconcile(context.Background(), request)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryIO))
		assert.Equal(t, "connection reset by peer", err.Error())
	})

	t.Run("transactions", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		source := mocks.NewMockSource(ctrl)
		source.EXPECT().ListAccounts(gomock.Any(), gomock.Any()).Return(groceryAccount("0"), nil)
		source.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("rate limit exceeded"))

		_, err := newService(t, source).Reconcile(context.Background(), request)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryIO))
		assert.Equal(t, "rate limit exceeded", err.Error())
	})
}

func TestReconcile_ResultJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSource(ctrl)
	source.EXPECT().ListAccounts(gomock.Any(), gomock.Any()).Return(groceryAccount("-50.00"), nil)
	source.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(groceryLedger(), nil)

	result, err := newService(t, source).Reconcile(context.Background(), &reconciler.Request{
		AccountID:        "acc-1",
		StatementData:    "2024-01-15,Grocery Store,-50.00",
		StatementBalance: amount("-50.00"),
		StatementDate:    "2024-01-31",
	})
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{
		"account_id", "account_name", "statement_balance", "ledger_balance", "balance_difference",
		"statement_date", "reconciliation_date", "total_ledger_transactions", "total_statement_transactions",
		"exact_matches", "fuzzy_matches", "unmatched_ledger", "unmatched_statement",
		"matches", "discrepancies", "summary", "note", "run_id",
	} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "2024-01-31", decoded["statement_date"])

	summary, ok := decoded["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "balanced", summary["reconciliation_status"])
}

func TestNewReconciliationService_RequiresSource(t *testing.T) {
	_, err := reconciler.NewReconciliationService(nil, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	config := reconciler.DefaultConfig()
	config.LookbackMonths = 0
	ctrl := gomock.NewController(t)
	_, err = reconciler.NewReconciliationService(mocks.NewMockSource(ctrl), config)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
