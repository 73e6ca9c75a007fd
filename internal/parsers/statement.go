package parsers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// ColumnRoles records which field index holds each value in a row
type ColumnRoles struct {
	Date        int `json:"date"`
	Description int `json:"description"`
	Amount      int `json:"amount"`
}

// ParseResult is the outcome of parsing one statement
type ParseResult struct {
	Transactions []models.StatementTransaction `json:"transactions"`
	// Warnings holds the retained dropped-row warnings; DroppedRows counts all of them
	Warnings    []errors.RowWarning `json:"warnings,omitempty"`
	DroppedRows int                 `json:"dropped_rows"`
	Stats       ParseStats          `json:"stats"`
}

// StatementParser turns raw statement text into StatementTransactions
type StatementParser struct {
	*BaseParser
}

// NewStatementParser creates a new StatementParser with the given configuration
func NewStatementParser(config *ParseConfig) (*StatementParser, error) {
	if config == nil {
		config = DefaultParseConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parse configuration: %w", err)
	}

	return &StatementParser{
		BaseParser: NewBaseParser(config),
	}, nil
}

// ParseFile reads a statement from path ("-" for stdin) and parses it
func (sp *StatementParser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	text, err := sp.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return sp.Parse(ctx, text)
}

// Parse extracts transactions from statement text. Output order follows input
// order; unusable rows are dropped and reported as warnings. The only error
// returned is context cancellation.
func (sp *StatementParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	parseCtx := newParseContext(ctx, sp.config.MaxWarnings)
	lines := sp.SplitLines(text)

	result := &ParseResult{
		Transactions: make([]models.StatementTransaction, 0, len(lines)),
	}
	result.Stats.TotalLines = len(lines)

	for i, line := range lines {
		if parseCtx.isCancelled() {
			return nil, errors.Wrap(parseCtx.ctx.Err(), errors.CategoryInternal, errors.CodeUnexpectedError, "statement parsing cancelled")
		}

		lineNumber := i + 1
		if line == "" {
			result.Stats.BlankLines++
			continue
		}

		if i == 0 && sp.IsHeader(line) {
			result.Stats.HeaderSkipped = true
			continue
		}

		txn, reason, ok := sp.parseRow(line, lineNumber)
		if !ok {
			parseCtx.warnings.Add(lineNumber, line, reason)
			sp.logger.WithFields(logger.Fields{
				"line":   lineNumber,
				"reason": reason,
			}).Warn("Dropped statement row")
			continue
		}

		result.Transactions = append(result.Transactions, txn)
	}

	result.Warnings = parseCtx.warnings.Warnings()
	result.DroppedRows = parseCtx.warnings.Count()
	result.Stats.RowsParsed = len(result.Transactions)
	result.Stats.RowsDropped = result.DroppedRows

	sp.logger.WithFields(logger.Fields{
		"lines":        result.Stats.TotalLines,
		"transactions": result.Stats.RowsParsed,
		"dropped":      result.Stats.RowsDropped,
	}).Debug("Parsed statement")

	return result, nil
}

func (sp *StatementParser) parseRow(line string, lineNumber int) (models.StatementTransaction, string, bool) {
	fields := sp.SplitFields(line)
	if len(fields) < sp.config.MinFields {
		return models.StatementTransaction{}, errors.ReasonTooFewFields, false
	}

	roles := InferColumns(fields)

	date, ok := NormalizeDate(fieldAt(fields, roles.Date))
	if !ok {
		return models.StatementTransaction{}, errors.ReasonUnparseableDate, false
	}

	amount, err := models.ParseAmount(fieldAt(fields, roles.Amount))
	if err != nil {
		return models.StatementTransaction{}, errors.ReasonNonNumericAmount, false
	}

	description := fieldAt(fields, roles.Description)
	if description == "" {
		return models.StatementTransaction{}, errors.ReasonMissingDescr, false
	}

	return models.StatementTransaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Line:        lineNumber,
	}, "", true
}

// InferColumns assigns the date, amount and description roles for one row.
// Precedence is fixed: date first, then amount among the other fields, then
// the longest remaining field as description. A role left unresolved falls
// back to its positional default (0 date, 1 description, 2 amount).
func InferColumns(fields []string) ColumnRoles {
	roles := ColumnRoles{Date: -1, Description: -1, Amount: -1}

	for j, f := range fields {
		if LooksLikeDate(f) {
			roles.Date = j
			break
		}
	}

	for j, f := range fields {
		if j == roles.Date {
			continue
		}
		if LooksLikeAmount(f) {
			roles.Amount = j
			break
		}
	}

	maxLength := 0
	for j, f := range fields {
		if j == roles.Date || j == roles.Amount {
			continue
		}
		if n := utf8.RuneCountInString(f); n > maxLength {
			maxLength = n
			roles.Description = j
		}
	}

	if roles.Date == -1 {
		roles.Date = 0
	}
	if roles.Description == -1 {
		roles.Description = 1
	}
	if roles.Amount == -1 {
		roles.Amount = 2
	}

	return roles
}

// LooksLikeAmount reports whether a field is a signed decimal that carries a
// '.' or '-'. Plain integers such as check numbers are rejected.
func LooksLikeAmount(s string) bool {
	cleaned := models.CleanAmount(s)
	if !strings.ContainsAny(cleaned, ".-") {
		return false
	}
	_, err := models.ParseAmount(s)
	return err == nil
}

func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}
