// Package errors defines the tagged error every component returns. A
// ReconcilerError carries a category (which drives CLI exit codes and HTTP
// statuses), a machine-readable code, a user-facing message and suggestion,
// and the stack where it was raised.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by how the caller should react
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryIO             ErrorCategory = "io"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeRowDropped    ErrorCode = "row_dropped"

	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeOutOfRange    ErrorCode = "out_of_range"

	CodeAccountNotFound ErrorCode = "account_not_found"
	CodeBudgetNotFound  ErrorCode = "budget_not_found"

	CodeFetchFailed        ErrorCode = "fetch_failed"
	CodeUnexpectedResponse ErrorCode = "unexpected_response"
	CodeWriteFailed        ErrorCode = "write_failed"

	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	CodeMatchingFailed ErrorCode = "matching_failed"

	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// text is a message template and a suggestion. Templates use explicit
// argument indexes so a constructor can pass arguments a template ignores.
type text struct {
	message    string
	suggestion string
}

// catalog holds the wording per category and code; the "" code is the
// category fallback. Arguments per category: file (path), parse (line,
// value), validation (field, value), not_found (query), configuration
// (setting, value), others (operation).
var catalog = map[ErrorCategory]map[ErrorCode]text{
	CategoryFile: {
		CodeFileNotFound:   {"file not found: %[1]s", "check if the file path is correct and the file exists"},
		CodeFilePermission: {"permission denied accessing file: %[1]s", "check file permissions and ensure you have read access"},
		"":                 {"file error: %[1]s", "check the file and try again"},
	},
	CategoryParse: {
		CodeInvalidFormat: {"invalid format at line %[1]d: '%[2]s'", "check the data format and ensure it matches the expected structure"},
		CodeRowDropped:    {"statement row %[1]d dropped: '%[2]s'", "each row needs a date, a description and a signed decimal amount"},
		"":                {"parse error at line %[1]d", "check the statement format and data integrity"},
	},
	CategoryValidation: {
		CodeInvalidAmount: {"invalid amount in field '%[1]s': %[2]v", "ensure amounts are valid decimal numbers (e.g., '12.34')"},
		CodeInvalidDate:   {"invalid date in field '%[1]s': %[2]v", "use date format YYYY-MM-DD"},
		CodeMissingField:  {"required field '%[1]s' is missing or empty", "provide a value for this required field"},
		CodeOutOfRange:    {"value out of range in field '%[1]s': %[2]v", "ensure the value is within the acceptable range"},
		"":                {"validation error in field '%[1]s': %[2]v", "check the field value and format"},
	},
	CategoryNotFound: {
		CodeAccountNotFound: {"account not found: %[1]s", "provide a valid account id or name; run 'reconciler accounts' to list open accounts"},
		CodeBudgetNotFound:  {"budget not found: %[1]s", "run 'reconciler budgets' to list available budgets"},
		"":                  {"not found: %[1]s", ""},
	},
	CategoryConfiguration: {
		CodeInvalidConfig: {"invalid configuration for '%[1]s': %[2]v", "check the configuration documentation for valid values"},
		CodeMissingConfig: {"missing required configuration: %[1]s", "provide this configuration setting, a RECONCILER_ environment variable, or a config file"},
		"":                {"configuration error: %[1]s", "check your configuration and try again"},
	},
	CategoryReconciliation: {
		CodeMatchingFailed: {"matching failed during %[1]s", "try adjusting the matching tolerance or check data quality"},
		"":                 {"reconciliation error during %[1]s", "review the data and configuration"},
	},
	CategoryInternal: {
		CodeUnexpectedError: {"unexpected error during %[1]s", "this is likely a bug, please report it with the error details"},
		"":                  {"internal error during %[1]s", "try again or report the problem with the error details"},
	},
}

func describe(category ErrorCategory, code ErrorCode, args ...interface{}) (string, string) {
	texts := catalog[category]
	t, ok := texts[code]
	if !ok {
		t = texts[""]
	}
	return fmt.Sprintf(t.message, args...), t.suggestion
}

var exitCodes = map[ErrorCategory]int{
	CategoryFile:           2,
	CategoryParse:          3,
	CategoryValidation:     3,
	CategoryConfiguration:  4,
	CategoryReconciliation: 5,
	CategoryInternal:       5,
	CategoryIO:             6,
	CategoryNotFound:       7,
}

// ReconcilerError is the error type returned across package boundaries
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the category to a process exit code; unknown categories exit 1
func (e *ReconcilerError) GetExitCode() int {
	if code, ok := exitCodes[e.Category]; ok {
		return code
	}
	return 1
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion replaces the suggestion
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a ReconcilerError with the caller's stack
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap tags err; a nil err yields nil
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// build creates the error from the catalog wording, wrapping err when present
func build(category ErrorCategory, code ErrorCode, err error, args ...interface{}) *ReconcilerError {
	message, suggestion := describe(category, code, args...)

	var e *ReconcilerError
	if err != nil {
		e = Wrap(err, category, code, message)
	} else {
		e = New(category, code, message)
	}
	if suggestion != "" {
		e.Suggestion = suggestion
	}
	return e
}

// FileError reports a statement or output file problem
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	return build(CategoryFile, code, err, path).
		WithContext("file_path", path)
}

// ParseError reports a statement row problem
func ParseError(code ErrorCode, line int, value string, err error) *ReconcilerError {
	return build(CategoryParse, code, err, line, value).
		WithContext("line", line).
		WithContext("value", value)
}

// ValidationError reports a bad or missing input field
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	return build(CategoryValidation, code, err, field, value).
		WithContext("field", field).
		WithContext("value", value)
}

// NotFoundError reports a ledger entity that could not be resolved
func NotFoundError(code ErrorCode, query string) *ReconcilerError {
	return build(CategoryNotFound, code, nil, query).
		WithContext("query", query)
}

// IOError wraps a ledger fetch failure. The message is the cause's message, unchanged.
func IOError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := operation + " failed"
	if err != nil {
		return Wrap(err, CategoryIO, code, err.Error()).WithContext("operation", operation)
	}
	return New(CategoryIO, code, message).WithContext("operation", operation)
}

// ConfigurationError reports a bad or missing setting
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	return build(CategoryConfiguration, code, err, setting, value).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError reports a failure inside the matching pipeline
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(CategoryReconciliation, code, err, operation).
		WithContext("operation", operation)
}

// InternalError reports a bug or an unexpected condition
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	return build(CategoryInternal, code, err, operation).
		WithContext("operation", operation)
}

// ErrorSummary counts a batch of errors by category
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	Errors     []*ReconcilerError    `json:"errors"`
}

func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		Errors:     errs,
	}
	for _, err := range errs {
		summary.ByCategory[err.Category]++
	}
	return summary
}

// Error lists category counts in name order
func (es *ErrorSummary) Error() string {
	switch es.Total {
	case 0:
		return "no errors"
	case 1:
		return es.Errors[0].Error()
	}

	categories := make([]string, 0, len(es.ByCategory))
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}
	sort.Strings(categories)

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := AsReconcilerError(err)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// IsCategory reports whether err carries a ReconcilerError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	rerr, ok := AsReconcilerError(err)
	return ok && rerr.Category == category
}

// WrapIfNeeded returns err's ReconcilerError if it has one, otherwise wraps it
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return Wrap(err, category, code, message)
}
