// Package ynab reads budgets, accounts and transactions from the YNAB REST API.
package ynab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// DefaultBaseURL is the public API root
const DefaultBaseURL = "https://api.ynab.com/v1"

// Config holds configuration for the API client
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
}

// DefaultConfig returns a configuration with sensible defaults. Token is left empty.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// Validate checks if the client configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "ledger.token", nil, nil)
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.base_url", c.BaseURL, err)
	}
	if c.Timeout <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.timeout", c.Timeout, nil)
	}
	if c.RetryMax < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.retry_max", c.RetryMax, nil)
	}
	if c.RetryWaitMin > c.RetryWaitMax {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "ledger.retry_wait_min", c.RetryWaitMin,
			fmt.Errorf("retry_wait_min (%s) exceeds retry_wait_max (%s)", c.RetryWaitMin, c.RetryWaitMax))
	}
	return nil
}

// Client is a ledger.Source backed by the YNAB API
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	logger  logger.Logger
}

var _ ledger.Source = (*Client)(nil)

// NewClient creates an API client. Retries with exponential backoff cover
// connection errors, 429 and 5xx responses.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := logger.GetGlobalLogger().WithComponent("ledger_client")

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = config.RetryMax
	httpClient.RetryWaitMin = config.RetryWaitMin
	httpClient.RetryWaitMax = config.RetryWaitMax
	httpClient.HTTPClient.Timeout = config.Timeout
	httpClient.Logger = leveledLogger{log}
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		http:    httpClient,
		logger:  log,
	}, nil
}

// ListBudgets returns every budget visible to the token
func (c *Client) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	var data struct {
		Budgets []budgetDTO `json:"budgets"`
	}
	if err := c.get(ctx, "list budgets", "/budgets", nil, &data); err != nil {
		return nil, err
	}

	budgets := make([]models.Budget, 0, len(data.Budgets))
	for _, b := range data.Budgets {
		budgets = append(budgets, b.toModel())
	}
	return budgets, nil
}

// ListAccounts returns all accounts of a budget, including closed and deleted ones
func (c *Client) ListAccounts(ctx context.Context, budgetID string) ([]models.Account, error) {
	var data struct {
		Accounts []accountDTO `json:"accounts"`
	}
	path := "/budgets/" + url.PathEscape(ledger.ResolveBudgetID(budgetID)) + "/accounts"
	if err := c.get(ctx, "list accounts", path, nil, &data); err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(data.Accounts))
	for _, a := range data.Accounts {
		accounts = append(accounts, a.toModel())
	}
	return accounts, nil
}

// ListTransactions returns an account's transactions dated on or after since
func (c *Client) ListTransactions(ctx context.Context, budgetID, accountID string, since time.Time) ([]models.LedgerTransaction, error) {
	path := "/budgets/" + url.PathEscape(ledger.ResolveBudgetID(budgetID)) +
		"/accounts/" + url.PathEscape(accountID) + "/transactions"
	query := url.Values{}
	if !since.IsZero() {
		query.Set("since_date", since.Format(models.DateLayout))
	}
	return c.listTransactions(ctx, "list transactions", path, query)
}

// ListUnapprovedTransactions returns the budget's transactions awaiting approval
func (c *Client) ListUnapprovedTransactions(ctx context.Context, budgetID string) ([]models.LedgerTransaction, error) {
	path := "/budgets/" + url.PathEscape(ledger.ResolveBudgetID(budgetID)) + "/transactions"
	query := url.Values{"type": []string{"unapproved"}}
	return c.listTransactions(ctx, "list unapproved transactions", path, query)
}

func (c *Client) listTransactions(ctx context.Context, operation, path string, query url.Values) ([]models.LedgerTransaction, error) {
	var data struct {
		Transactions []transactionDTO `json:"transactions"`
	}
	if err := c.get(ctx, operation, path, query, &data); err != nil {
		return nil, err
	}

	txns := make([]models.LedgerTransaction, 0, len(data.Transactions))
	for _, t := range data.Transactions {
		txn, err := t.toModel()
		if err != nil {
			return nil, errors.IOError(errors.CodeUnexpectedResponse, operation, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// get performs a GET and decodes the "data" member of the response envelope into out
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.IOError(errors.CodeFetchFailed, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.IOError(errors.CodeFetchFailed, operation, err)
	}

	c.logger.WithFields(logger.Fields{
		"operation": operation,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	}).Debug("Ledger API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.IOError(errors.CodeFetchFailed, operation, decodeAPIError(resp.StatusCode, body)).
			WithContext("status", resp.StatusCode)
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errors.IOError(errors.CodeUnexpectedResponse, operation, fmt.Errorf("invalid response body: %w", err))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.IOError(errors.CodeUnexpectedResponse, operation, fmt.Errorf("invalid response data: %w", err))
	}
	return nil
}

// leveledLogger routes retryablehttp's logging through the service logger
type leveledLogger struct {
	log logger.Logger
}

func (l leveledLogger) fields(keysAndValues []interface{}) logger.Logger {
	fields := logger.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.log.WithFields(fields)
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
