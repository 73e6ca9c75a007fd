package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "validation error",
			category:   CategoryValidation,
			code:       CodeMissingField,
			message:    "missing field",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "io error",
			category:   CategoryIO,
			code:       CodeFetchFailed,
			message:    "connection reset",
			cause:      errors.New("connection reset"),
			expectCode: 6,
		},
		{
			name:       "not found error",
			category:   CategoryNotFound,
			code:       CodeAccountNotFound,
			message:    "no such account",
			cause:      nil,
			expectCode: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a stack trace to be captured")
			}
		})
	}
}

func TestReconcilerErrorWithContext(t *testing.T) {
	err := New(CategoryValidation, CodeMissingField, "test error").
		WithContext("field", "statement_date").
		WithContext("line", 42).
		WithSuggestion("provide a date")

	if err.Context["field"] != "statement_date" {
		t.Errorf("expected field context 'statement_date', got %v", err.Context["field"])
	}
	if err.Context["line"] != 42 {
		t.Errorf("expected line context 42, got %v", err.Context["line"])
	}

	expected := "test error (suggestion: provide a date)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeMissingField, "statement_data", "", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "statement_data" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
		if !strings.Contains(err.Message, "statement_data") {
			t.Errorf("expected message to name the field, got %s", err.Message)
		}
	})

	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError(CodeAccountNotFound, "Savings")

		if err.Category != CategoryNotFound {
			t.Errorf("expected not_found category, got %s", err.Category)
		}
		if err.Context["query"] != "Savings" {
			t.Errorf("expected query context, got %v", err.Context["query"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
	})

	t.Run("IOError keeps the cause message verbatim", func(t *testing.T) {
		cause := errors.New("rate limit exceeded: 429")
		err := IOError(CodeFetchFailed, "list transactions", cause)

		if err.Category != CategoryIO {
			t.Errorf("expected io category, got %s", err.Category)
		}
		if err.Message != cause.Error() {
			t.Errorf("expected message %q, got %q", cause.Error(), err.Message)
		}
		if !errors.Is(err, cause) {
			t.Error("expected errors.Is to find the cause")
		}
	})

	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/statement.csv", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/test/statement.csv" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeRowDropped, 10, "bad,row", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["line"] != 10 {
			t.Errorf("expected line context, got %v", err.Context["line"])
		}
	})
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryValidation, CodeMissingField, "error 1"),
		New(CategoryValidation, CodeInvalidDate, "error 2"),
		New(CategoryParse, CodeRowDropped, "error 3"),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("expected total 3, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryValidation] != 2 {
		t.Errorf("expected 2 validation errors, got %d", summary.ByCategory[CategoryValidation])
	}
	if !strings.HasPrefix(summary.Error(), "3 errors occurred") {
		t.Errorf("unexpected summary string %q", summary.Error())
	}

	if NewErrorSummary(nil).Error() != "no errors" {
		t.Error("expected 'no errors' for an empty summary")
	}
	if NewErrorSummary(errs[:1]).Error() != "error 1" {
		t.Error("expected a single-error summary to use that error's message")
	}
}

func TestAsReconcilerError(t *testing.T) {
	reconcilerErr := NotFoundError(CodeAccountNotFound, "x")
	wrapped := fmt.Errorf("lookup: %w", reconcilerErr)
	genericErr := errors.New("generic error")

	if extracted, ok := AsReconcilerError(wrapped); !ok || extracted != reconcilerErr {
		t.Error("expected AsReconcilerError to extract a wrapped ReconcilerError")
	}
	if _, ok := AsReconcilerError(genericErr); ok {
		t.Error("expected AsReconcilerError to return false for generic error")
	}
	if _, ok := AsReconcilerError(nil); ok {
		t.Error("expected AsReconcilerError to return false for nil")
	}
	if !IsCategory(wrapped, CategoryNotFound) {
		t.Error("expected IsCategory to see through wrapping")
	}
	if IsCategory(wrapped, CategoryIO) {
		t.Error("expected IsCategory to reject other categories")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	reconcilerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if WrapIfNeeded(reconcilerErr, CategoryParse, CodeInvalidFormat, "wrapped") != reconcilerErr {
		t.Error("expected WrapIfNeeded to return original ReconcilerError")
	}

	result := WrapIfNeeded(genericErr, CategoryParse, CodeInvalidFormat, "wrapped")
	if result.Cause != genericErr {
		t.Error("expected WrapIfNeeded to wrap generic error")
	}
	if result.Category != CategoryParse {
		t.Error("expected wrapped error to have correct category")
	}

	if WrapIfNeeded(nil, CategoryParse, CodeInvalidFormat, "wrapped") != nil {
		t.Error("expected WrapIfNeeded to return nil for nil input")
	}
}

func TestRowWarningCollector(t *testing.T) {
	c := NewRowWarningCollector(2)
	c.Add(2, "bad,row,here", ReasonUnparseableDate)
	c.Add(3, "x,y,z", ReasonNonNumericAmount)
	c.Add(4, "a,b,c", ReasonNonNumericAmount)

	if c.Count() != 3 {
		t.Errorf("expected count 3, got %d", c.Count())
	}
	if len(c.Warnings()) != 2 {
		t.Errorf("expected 2 retained warnings, got %d", len(c.Warnings()))
	}
	if c.Warnings()[0].Line != 2 {
		t.Errorf("expected first warning on line 2, got %d", c.Warnings()[0].Line)
	}
	if c.Summary().ByCategory[CategoryParse] != 2 {
		t.Errorf("expected 2 parse errors in summary, got %d", c.Summary().ByCategory[CategoryParse])
	}

	out := FormatRowWarningsForUser(c.Warnings(), c.Count())
	if !strings.Contains(out, "Skipped 3 statement row(s)") {
		t.Errorf("unexpected formatted output %q", out)
	}
}

func TestCatalogWording(t *testing.T) {
	tests := []struct {
		name    string
		err     *ReconcilerError
		message string
	}{
		{"validation with parse code", ValidationError(CodeInvalidFormat, "format", "xml", nil), "validation error in field 'format': xml"},
		{"missing field ignores value", ValidationError(CodeMissingField, "balance", "", nil), "required field 'balance' is missing or empty"},
		{"file fallback", FileError("", "out/report.md", nil), "file error: out/report.md"},
		{"parse row", ParseError(CodeRowDropped, 4, "x,y", nil), "statement row 4 dropped: 'x,y'"},
		{"configuration", ConfigurationError(CodeInvalidConfig, "ledger.source", "ftp", nil), "invalid configuration for 'ledger.source': ftp"},
		{"internal", InternalError(CodeUnexpectedError, "render report", nil), "unexpected error during render report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, tt.err.Message)
			}
			if tt.err.Suggestion == "" {
				t.Error("expected a suggestion")
			}
		})
	}
}

func TestErrorSummaryOrder(t *testing.T) {
	summary := NewErrorSummary([]*ReconcilerError{
		New(CategoryValidation, CodeMissingField, "a"),
		New(CategoryFile, CodeFileNotFound, "b"),
		New(CategoryParse, CodeRowDropped, "c"),
	})

	expected := "3 errors occurred (file: 1, parse: 1, validation: 1)"
	if summary.Error() != expected {
		t.Errorf("expected %q, got %q", expected, summary.Error())
	}
}
