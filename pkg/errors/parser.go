package errors

import (
	"fmt"
	"strings"
)

// RowWarning describes a statement row that was skipped during parsing.
// Parsing never aborts on a bad row; warnings are collected and reported instead.
type RowWarning struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// String renders the warning on one line
func (w RowWarning) String() string {
	return fmt.Sprintf("line %d: %s (%s)", w.Line, w.Reason, w.Content)
}

// AsError converts the warning into a parse-category ReconcilerError
func (w RowWarning) AsError() *ReconcilerError {
	return ParseError(CodeRowDropped, w.Line, w.Content, nil).WithContext("reason", w.Reason)
}

// Reasons a statement row is dropped
const (
	ReasonTooFewFields     = "fewer than 3 fields"
	ReasonUnparseableDate  = "date could not be parsed"
	ReasonMissingDescr     = "description is empty"
	ReasonNonNumericAmount = "amount is not a number"
)

// RowWarningCollector accumulates row warnings up to a cap. Warnings past
// the cap are counted but not retained.
type RowWarningCollector struct {
	maxWarnings int
	warnings    []RowWarning
	dropped     int
}

// NewRowWarningCollector creates a collector; maxWarnings <= 0 means unlimited
func NewRowWarningCollector(maxWarnings int) *RowWarningCollector {
	return &RowWarningCollector{maxWarnings: maxWarnings}
}

// Add records a warning
func (c *RowWarningCollector) Add(line int, content, reason string) {
	if c.maxWarnings > 0 && len(c.warnings) >= c.maxWarnings {
		c.dropped++
		return
	}
	c.warnings = append(c.warnings, RowWarning{Line: line, Content: content, Reason: reason})
}

// HasWarnings returns true if any rows were skipped
func (c *RowWarningCollector) HasWarnings() bool {
	return c.Count() > 0
}

// Count returns the total number of skipped rows, retained or not
func (c *RowWarningCollector) Count() int {
	return len(c.warnings) + c.dropped
}

// Warnings returns the retained warnings in input order
func (c *RowWarningCollector) Warnings() []RowWarning {
	out := make([]RowWarning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Summary returns an ErrorSummary over the retained warnings
func (c *RowWarningCollector) Summary() *ErrorSummary {
	errs := make([]*ReconcilerError, len(c.warnings))
	for i, w := range c.warnings {
		errs[i] = w.AsError()
	}
	return NewErrorSummary(errs)
}

// FormatRowWarningsForUser formats skipped rows in a user-friendly way
func FormatRowWarningsForUser(warnings []RowWarning, total int) string {
	if total == 0 {
		return "No rows skipped"
	}

	lines := []string{fmt.Sprintf("Skipped %d statement row(s):", total)}
	maxDetailed := 5
	for i, w := range warnings {
		if i == maxDetailed {
			break
		}
		lines = append(lines, "  • "+w.String())
	}
	if total > maxDetailed {
		lines = append(lines, fmt.Sprintf("  ... and %d more", total-maxDetailed))
	}

	return strings.Join(lines, "\n")
}
