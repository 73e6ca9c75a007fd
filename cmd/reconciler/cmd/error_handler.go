package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	out     io.Writer
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a handler that writes to out
func NewCLIErrorHandler(out io.Writer, verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		out:     out,
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: verbose,
	}
}

// HandleError prints err and returns the exit code for it
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := categoryHelp(err.Category); help != "" {
		fmt.Fprintf(h.out, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError covers flag parsing and other untagged errors
func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case os.IsNotExist(err):
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	case os.IsPermission(err):
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if strings.Contains(err.Error(), "flag") || strings.Contains(err.Error(), "unknown command") {
		fmt.Fprintf(h.out, "Run 'reconciler --help' for usage.\n")
	}
	return 1
}

func categoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the statement file exists and is readable
• Use --statement - to read the statement from stdin`

	case errors.CategoryParse:
		return `Parse error help:
• The statement needs a date, a description and an amount on each row
• Amounts must be plain decimals such as -45.50 (no currency symbols)`

	case errors.CategoryValidation:
		return `Validation error help:
• --statement, --balance and --date are required; dates use YYYY-MM-DD
• Pass --account-id or --account-name; 'reconciler accounts' lists them`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check ledger.source and its settings in --config or RECONCILER_* variables
• The ynab source needs ledger.token (RECONCILER_LEDGER_TOKEN)`

	case errors.CategoryIO:
		return `Ledger access help:
• The ledger could not be reached; check network access and ledger.base_url
• Re-run with -v to see retries`

	case errors.CategoryNotFound:
		return `Lookup help:
• Run 'reconciler budgets' and 'reconciler accounts' to see valid ids and names`
	}
	return ""
}
