// Package reporter renders reconciliation results and ledger views.
//
// Supported output formats:
//   - Markdown: the default human-readable report
//   - JSON: the full result, indented, for programmatic consumption
//   - Console: sectioned terminal output with coloured status
//   - CSV: one row per match for spreadsheet applications
//
// Every rendering is capped at ReportConfig.CharacterLimit characters.
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{
//		Format:         reporter.FormatMarkdown,
//		CharacterLimit: reporter.DefaultCharacterLimit,
//	})
//	text, err := generator.Render(result)
package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ledger-reconciliation-service/internal/reconciler"
)

// DefaultCharacterLimit caps rendered output
const DefaultCharacterLimit = 25000

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatConsole  OutputFormat = "console"
	FormatCSV      OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatJSON, FormatConsole, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseFormat parses a format name case-insensitively; "" selects markdown
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatMarkdown, nil
	}
	if !f.IsValid() {
		return "", fmt.Errorf("unsupported output format: %s (expected markdown, json, console or csv)", s)
	}
	return f, nil
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// CharacterLimit caps the rendered output; 0 disables the cap
	CharacterLimit int `json:"character_limit"`

	// MaxSampleMatches is the number of exact matches listed in markdown and console output
	MaxSampleMatches int `json:"max_sample_matches"`

	// Console formatting options
	UseColors bool `json:"use_colors"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatMarkdown,
		CharacterLimit:   DefaultCharacterLimit,
		MaxSampleMatches: 10,
		UseColors:        true,
		CSVDelimiter:     ',',
		CSVHeaders:       true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.CharacterLimit < 0 {
		return fmt.Errorf("character limit cannot be negative, got %d", c.CharacterLimit)
	}
	if c.MaxSampleMatches < 0 {
		return fmt.Errorf("max sample matches cannot be negative, got %d", c.MaxSampleMatches)
	}
	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
	}
	return nil
}

// WithFormat returns a copy of the configuration using another format
func (c *ReportConfig) WithFormat(f OutputFormat) *ReportConfig {
	clone := *c
	clone.Format = f
	return &clone
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// Render renders the result in the configured format, applying the character limit
func (rg *ReportGenerator) Render(result *reconciler.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("reconciliation result cannot be nil")
	}

	var buf bytes.Buffer
	var err error
	switch rg.config.Format {
	case FormatMarkdown:
		rg.writeMarkdown(result, &buf)
	case FormatJSON:
		err = writeJSON(result, &buf)
	case FormatConsole:
		rg.writeConsole(result, &buf)
	case FormatCSV:
		err = rg.writeCSV(result, &buf)
	default:
		err = fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
	if err != nil {
		return "", err
	}

	text, _ := Truncate(buf.String(), rg.config.CharacterLimit)
	return text, nil
}

// ContentType returns the MIME type for the configured format
func (rg *ReportGenerator) ContentType() string {
	return rg.config.Format.ContentType()
}

// ContentType returns the MIME type of a rendering in this format
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func writeJSON(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// Truncate caps text at limit characters (runes) and appends a notice when it
// had to cut. A limit of 0 or less disables the cap.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		return text, false
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}

	return string(runes[:limit]) + fmt.Sprintf(truncationNotice, limit, len(runes)), true
}

const truncationNotice = "\n\n... [Output truncated: showing the first %d of %d characters. Use the json format or narrow the statement to see everything.]\n"
