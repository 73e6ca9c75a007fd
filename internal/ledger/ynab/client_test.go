package ynab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-reconciliation-service/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.Token = "test-token"
	config.RetryMax = 2
	config.RetryWaitMin = time.Millisecond
	config.RetryWaitMax = 5 * time.Millisecond

	client, err := NewClient(config)
	require.NoError(t, err)
	return client
}

func TestConfig_Validate(t *testing.T) {
	config := DefaultConfig()
	err := config.Validate()
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration), "missing token must be rejected")

	config.Token = "abc"
	assert.NoError(t, config.Validate())

	config.BaseURL = "not a url"
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Token = "abc"
	config.RetryWaitMin = time.Minute
	assert.Error(t, config.Validate())
}

func TestClient_ListBudgets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"budgets":[
			{"id":"b1","name":"Household","last_modified_on":"2024-01-31T10:00:00Z","currency_format":{"iso_code":"USD"}},
			{"id":"b2","name":"Side Business","last_modified_on":"2023-12-01T10:00:00Z"}
		]}}`))
	})

	budgets, err := client.ListBudgets(context.Background())
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, "b1", budgets[0].ID)
	assert.Equal(t, "USD", budgets[0].CurrencyCode)
	assert.Equal(t, "", budgets[1].CurrencyCode)
}

func TestClient_ListAccounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets/last-used/accounts", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"accounts":[
			{"id":"a1","name":"Checking","type":"checking","on_budget":true,"closed":false,"deleted":false,"balance":-50000,"cleared_balance":-45500},
			{"id":"a2","name":"Old Savings","type":"savings","closed":true,"balance":0}
		]}}`))
	})

	accounts, err := client.ListAccounts(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "-50", accounts[0].Balance.String())
	assert.Equal(t, "-45.5", accounts[0].ClearedBalance.String())
	assert.True(t, accounts[1].Closed)
}

func TestClient_ListTransactions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets/b1/accounts/a1/transactions", r.URL.Path)
		assert.Equal(t, "2023-10-31", r.URL.Query().Get("since_date"))
		_, _ = w.Write([]byte(`{"data":{"transactions":[
			{"id":"t1","date":"2024-01-15","amount":-50000,"memo":null,"cleared":"cleared","approved":true,"account_id":"a1","payee_name":"Grocery Store","deleted":false},
			{"id":"t2","date":"2024-01-16","amount":125990,"memo":" refund ","approved":false,"account_id":"a1","payee_name":null,"deleted":true}
		]}}`))
	})

	since := time.Date(2023, 10, 31, 0, 0, 0, 0, time.UTC)
	txns, err := client.ListTransactions(context.Background(), "b1", "a1", since)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "t1", txns[0].ID)
	assert.Equal(t, "2024-01-15", txns[0].Date.String())
	assert.Equal(t, "-50", txns[0].Amount.String())
	assert.Equal(t, "Grocery Store", txns[0].Payee)
	assert.Equal(t, "", txns[0].Memo)

	assert.Equal(t, "125.99", txns[1].Amount.String())
	assert.Equal(t, "refund", txns[1].Memo)
	assert.Equal(t, "Unknown", txns[1].PayeeOrUnknown())
	assert.True(t, txns[1].Deleted)
}

func TestClient_ListUnapprovedTransactions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets/b1/transactions", r.URL.Path)
		assert.Equal(t, "unapproved", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"data":{"transactions":[{"id":"t9","date":"2024-02-01","amount":-1000,"approved":false}]}}`))
	})

	txns, err := client.ListUnapprovedTransactions(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.False(t, txns[0].Approved)
}

func TestClient_APIErrorDetailIsPreserved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"id":"401","name":"unauthorized","detail":"Unauthorized"}}`))
	})

	_, err := client.ListBudgets(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryIO))
	assert.Equal(t, "Unauthorized", err.Error())

	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rerr.Context["status"])
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"budgets":[]}}`))
	})

	budgets, err := client.ListBudgets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, budgets)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"id":"500","name":"internal_server_error","detail":"Something went wrong"}}`))
	})

	_, err := client.ListBudgets(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Something went wrong", err.Error())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := client.ListBudgets(context.Background())
	require.Error(t, err)
	rerr, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeUnexpectedResponse, rerr.Code)
}
