// Package parsers extracts transaction records from raw bank statement text.
//
// Statement exports arrive as delimiter-separated rows with no agreed column
// layout. The parser does not rely on headers; instead it infers the role of
// each field per row using a fixed rule list:
//
//  1. date: the first field that looks like a calendar date
//  2. amount: the first other field that is numeric and contains '.' or '-'
//  3. description: the longest remaining field (lowest index wins ties)
//  4. any role still unresolved falls back to position 0/1/2
//
// Rows that cannot yield a date, a description and a numeric amount are
// dropped with a warning; parsing never aborts on a bad row.
//
// Example usage:
//
//	parser, err := NewStatementParser(nil)
//	result, err := parser.Parse(ctx, statementText)
//	for _, txn := range result.Transactions { ... }
package parsers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// BaseParser provides the line and field splitting shared by statement parsers
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("statement_parser")
	log.WithFields(logger.Fields{
		"delimiter":    string(config.Delimiter),
		"min_fields":   config.MinFields,
		"max_warnings": config.MaxWarnings,
	}).Debug("Created base parser")

	return &BaseParser{
		config: config,
		logger: log,
	}
}

// SplitLines trims the text and returns its lines, each trimmed of surrounding
// whitespace (including a trailing '\r').
func (bp *BaseParser) SplitLines(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

// SplitFields splits one row on the delimiter. The quote character toggles a
// quoted state in which delimiters are literal; quote characters themselves are
// never kept. Every field is trimmed.
func (bp *BaseParser) SplitFields(line string) []string {
	var (
		parts    []string
		current  strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == bp.config.Quote:
			inQuotes = !inQuotes
		case r == bp.config.Delimiter && !inQuotes:
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(parts, strings.TrimSpace(current.String()))
}

// IsHeader reports whether a line reads like a column header row
func (bp *BaseParser) IsHeader(line string) bool {
	lower := strings.ToLower(line)
	for _, keyword := range bp.config.HeaderKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ReadFile loads statement text from a path, or from stdin when path is "-"
func (bp *BaseParser) ReadFile(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.FileError("", "<stdin>", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.ErrorCode("")
		switch {
		case os.IsNotExist(err):
			code = errors.CodeFileNotFound
		case os.IsPermission(err):
			code = errors.CodeFilePermission
		}
		return "", errors.FileError(code, path, err)
	}

	bp.logger.WithFields(logger.Fields{
		"file_path": path,
		"bytes":     len(data),
	}).Debug("Read statement file")

	return string(data), nil
}

// parseContext holds state during one parse
type parseContext struct {
	ctx      context.Context
	warnings *errors.RowWarningCollector
}

func newParseContext(ctx context.Context, maxWarnings int) *parseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &parseContext{
		ctx:      ctx,
		warnings: errors.NewRowWarningCollector(maxWarnings),
	}
}

// isCancelled checks if the parsing context has been cancelled
func (pc *parseContext) isCancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	TotalLines    int  `json:"total_lines"`
	BlankLines    int  `json:"blank_lines"`
	HeaderSkipped bool `json:"header_skipped"`
	RowsParsed    int  `json:"rows_parsed"`
	RowsDropped   int  `json:"rows_dropped"`
}

// String returns a human-readable summary of parsing statistics
func (ps ParseStats) String() string {
	return fmt.Sprintf("Read %d lines, %d transactions parsed, %d rows dropped",
		ps.TotalLines, ps.RowsParsed, ps.RowsDropped)
}
