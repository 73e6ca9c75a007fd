// Package reconciler compares a ledger account with a bank statement.
//
// ReconciliationService resolves the account, fetches its recent ledger
// transactions, parses the statement text, matches the two sides and scores
// the outcome. AnalyzeDiscrepancies and Summarize are pure functions over the
// match sequence and can be used on their own.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/parsers"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// ResultNote is attached to every result
const ResultNote = "All amounts are in currency units. This reconciliation compares ledger transactions with bank statement data to identify discrepancies and missing transactions."

// ReconciliationService orchestrates the complete reconciliation process
type ReconciliationService struct {
	source   ledger.Source
	parser   *parsers.StatementParser
	matching *matcher.MatchingConfig
	config   *Config
	now      func() time.Time
	logger   logger.Logger
}

// Config holds configuration options for the reconciliation service
type Config struct {
	// DefaultBudgetID is used when a request names no budget
	DefaultBudgetID string `json:"default_budget_id"`

	// LookbackMonths is how far before the statement date ledger transactions are fetched
	LookbackMonths int `json:"lookback_months"`

	// Parse configures the statement parser
	Parse *parsers.ParseConfig `json:"parse"`

	// Matching configures the matching engine; request tolerance overrides its Tolerance
	Matching *matcher.MatchingConfig `json:"matching"`
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		DefaultBudgetID: ledger.DefaultBudgetID,
		LookbackMonths:  3,
		Parse:           parsers.DefaultParseConfig(),
		Matching:        matcher.DefaultMatchingConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.LookbackMonths <= 0 {
		return fmt.Errorf("lookback months must be positive, got %d", c.LookbackMonths)
	}
	if c.Parse == nil {
		return fmt.Errorf("parse configuration is required")
	}
	if err := c.Parse.Validate(); err != nil {
		return fmt.Errorf("invalid parse configuration: %w", err)
	}
	if c.Matching == nil {
		return fmt.Errorf("matching configuration is required")
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("invalid matching configuration: %w", err)
	}
	return nil
}

// Option customises a ReconciliationService
type Option func(*ReconciliationService)

// WithClock sets the function used for the reconciliation date
func WithClock(now func() time.Time) Option {
	return func(rs *ReconciliationService) {
		rs.now = now
	}
}

// WithLogger sets the service logger
func WithLogger(log logger.Logger) Option {
	return func(rs *ReconciliationService) {
		rs.logger = log
	}
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(source ledger.Source, config *Config, opts ...Option) (*ReconciliationService, error) {
	if source == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "ledger.source", nil, nil)
	}

	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", err.Error(), err)
	}

	parser, err := parsers.NewStatementParser(config.Parse)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser", err.Error(), err)
	}

	rs := &ReconciliationService{
		source:   source,
		parser:   parser,
		matching: config.Matching,
		config:   config,
		now:      time.Now,
		logger:   logger.GetGlobalLogger().WithComponent("reconciler"),
	}
	for _, opt := range opts {
		opt(rs)
	}

	return rs, nil
}

// Request represents a request for reconciliation
type Request struct {
	BudgetID    string `json:"budget_id,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`

	// StatementData is the raw delimited statement text
	StatementData string `json:"statement_data"`
	// StatementBalance is required; zero is a valid balance
	StatementBalance *decimal.Decimal `json:"statement_balance"`
	// StatementDate is YYYY-MM-DD
	StatementDate string `json:"statement_date"`
	// Tolerance defaults to the configured matching tolerance when nil
	Tolerance *decimal.Decimal `json:"tolerance,omitempty"`

	// ReportFormat selects how callers render the result; the service ignores it
	ReportFormat string `json:"response_format,omitempty"`
}

// Validate validates the reconciliation request. No I/O is performed.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.StatementData) == "" {
		return errors.ValidationError(errors.CodeMissingField, "statement_data", "", nil)
	}

	if r.StatementBalance == nil {
		return errors.ValidationError(errors.CodeMissingField, "statement_balance", "", nil)
	}

	if strings.TrimSpace(r.StatementDate) == "" {
		return errors.ValidationError(errors.CodeMissingField, "statement_date", "", nil)
	}
	if _, err := models.ParseDate(r.StatementDate); err != nil {
		return errors.ValidationError(errors.CodeInvalidDate, "statement_date", r.StatementDate, err)
	}

	if r.Tolerance != nil && r.Tolerance.IsNegative() {
		return errors.ValidationError(errors.CodeOutOfRange, "tolerance", r.Tolerance.String(), nil).
			WithSuggestion("tolerance must be zero or a positive amount such as 0.01")
	}

	if r.AccountID == "" && strings.TrimSpace(r.AccountName) == "" {
		return errors.ValidationError(errors.CodeMissingField, "account_id or account_name", "", nil)
	}

	return nil
}

// Result contains the complete results of reconciliation
type Result struct {
	RunID string `json:"run_id"`

	AccountID          string          `json:"account_id"`
	AccountName        string          `json:"account_name"`
	StatementBalance   decimal.Decimal `json:"statement_balance"`
	LedgerBalance      decimal.Decimal `json:"ledger_balance"`
	BalanceDifference  decimal.Decimal `json:"balance_difference"`
	StatementDate      models.Date     `json:"statement_date"`
	ReconciliationDate models.Date     `json:"reconciliation_date"`

	TotalLedgerTransactions    int `json:"total_ledger_transactions"`
	TotalStatementTransactions int `json:"total_statement_transactions"`
	ExactMatches               int `json:"exact_matches"`
	FuzzyMatches               int `json:"fuzzy_matches"`
	UnmatchedLedger            int `json:"unmatched_ledger"`
	UnmatchedStatement         int `json:"unmatched_statement"`

	Matches       []matcher.Match `json:"matches"`
	Discrepancies []Discrepancy   `json:"discrepancies"`
	Summary       Summary         `json:"summary"`

	ParseWarnings []errors.RowWarning `json:"parse_warnings,omitempty"`
	Note          string              `json:"note"`
}

// Reconcile performs the complete reconciliation process
func (rs *ReconciliationService) Reconcile(ctx context.Context, request *Request) (*Result, error) {
	// Step 1: Validate before touching the ledger
	if request == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "request", "", nil)
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	statementDate := models.MustParseDate(request.StatementDate)
	tolerance := rs.matching.Tolerance
	if request.Tolerance != nil {
		tolerance = *request.Tolerance
	}
	budgetID := request.BudgetID
	if budgetID == "" {
		budgetID = ledger.ResolveBudgetID(rs.config.DefaultBudgetID)
	}

	runID := uuid.NewString()
	log := rs.logger.WithFields(logger.Fields{
		"run_id":    runID,
		"budget_id": budgetID,
	})

	// Step 2: Resolve the account
	accounts, err := rs.source.ListAccounts(ctx, budgetID)
	if err != nil {
		return nil, asIOError("list accounts", err)
	}

	account, err := FindAccount(accounts, request.AccountID, request.AccountName)
	if err != nil {
		return nil, err
	}
	log = log.WithField("account_id", account.ID)
	log.Debug("Resolved account")

	// Step 3: Fetch ledger transactions for the lookback window
	since := statementDate.AddMonths(-rs.config.LookbackMonths)
	ledgerTxns, err := rs.source.ListTransactions(ctx, budgetID, account.ID, since.Time)
	if err != nil {
		return nil, asIOError("list transactions", err)
	}
	ledgerTxns = rs.prepareLedger(log, ledgerTxns)

	// Step 4: Parse the statement
	parsed, err := rs.parser.Parse(ctx, request.StatementData)
	if err != nil {
		return nil, err
	}
	if parsed.DroppedRows > 0 {
		log.WithField("dropped", parsed.DroppedRows).Warn("Statement rows were dropped")
	}

	// Step 5: Match
	engine := matcher.NewMatchingEngine(rs.matching.WithTolerance(tolerance))
	matched := engine.Match(ledgerTxns, parsed.Transactions)

	// Step 6: Analyze and summarize
	balanceDiff := account.Balance.Sub(*request.StatementBalance)
	discrepancies := AnalyzeDiscrepancies(matched.Matches, tolerance)
	summary := Summarize(matched.Matches, discrepancies, balanceDiff, tolerance)

	log.WithFields(logger.Fields{
		"exact":         matched.ExactMatches,
		"fuzzy":         matched.FuzzyMatches,
		"discrepancies": len(discrepancies),
		"status":        summary.Status,
	}).Info("Reconciliation complete")

	return &Result{
		RunID:                      runID,
		AccountID:                  account.ID,
		AccountName:                account.Name,
		StatementBalance:           *request.StatementBalance,
		LedgerBalance:              account.Balance,
		BalanceDifference:          balanceDiff,
		StatementDate:              statementDate,
		ReconciliationDate:         models.DateOf(rs.now()),
		TotalLedgerTransactions:    len(ledgerTxns),
		TotalStatementTransactions: len(parsed.Transactions),
		ExactMatches:               matched.ExactMatches,
		FuzzyMatches:               matched.FuzzyMatches,
		UnmatchedLedger:            matched.UnmatchedLedger,
		UnmatchedStatement:         matched.UnmatchedStatement,
		Matches:                    matched.Matches,
		Discrepancies:              discrepancies,
		Summary:                    summary,
		ParseWarnings:              parsed.Warnings,
		Note:                       ResultNote,
	}, nil
}

// prepareLedger drops soft-deleted transactions and any record without an id or date
func (rs *ReconciliationService) prepareLedger(log logger.Logger, txns []models.LedgerTransaction) []models.LedgerTransaction {
	active := models.FilterDeleted(txns)
	valid := active[:0]
	for _, t := range active {
		if err := t.Validate(); err != nil {
			log.WithError(err).Warn("Skipping invalid ledger transaction")
			continue
		}
		valid = append(valid, t)
	}

	log.WithFields(logger.Fields{
		"fetched": len(txns),
		"kept":    len(valid),
	}).Debug("Prepared ledger transactions")

	return valid
}

// asIOError keeps a tagged error from the source as is and tags anything else as io
func asIOError(operation string, err error) error {
	if rerr, ok := errors.AsReconcilerError(err); ok {
		return rerr
	}
	return errors.IOError(errors.CodeFetchFailed, operation, err)
}
