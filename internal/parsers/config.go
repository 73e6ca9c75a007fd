package parsers

import (
	"fmt"
	"strings"
)

// ParseConfig holds configuration for statement parsing
type ParseConfig struct {
	// Delimiter separates fields within a row
	Delimiter rune `json:"delimiter"`
	// Quote toggles quoted state; delimiters inside quotes are literal
	Quote rune `json:"quote"`
	// HeaderKeywords mark the first row as a header when any appears in it (case-insensitive)
	HeaderKeywords []string `json:"header_keywords"`
	// MinFields is the minimum number of fields a row needs to be considered
	MinFields int `json:"min_fields"`
	// MaxWarnings caps how many dropped rows are retained for reporting; 0 means unlimited
	MaxWarnings int `json:"max_warnings"`
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:      ',',
		Quote:          '"',
		HeaderKeywords: []string{"date", "description", "details"},
		MinFields:      3,
		MaxWarnings:    100,
	}
}

// Validate checks if the parse configuration is valid
func (c *ParseConfig) Validate() error {
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}
	if c.Delimiter == c.Quote {
		return fmt.Errorf("delimiter and quote character must differ")
	}
	if c.Delimiter == '\n' || c.Quote == '\n' {
		return fmt.Errorf("newline cannot be used as delimiter or quote")
	}
	if c.MinFields < 3 {
		return fmt.Errorf("min fields must be at least 3 (date, description, amount), got %d", c.MinFields)
	}
	if c.MaxWarnings < 0 {
		return fmt.Errorf("max warnings cannot be negative")
	}
	for _, kw := range c.HeaderKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("header keywords cannot contain empty entries")
		}
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *ParseConfig) Clone() *ParseConfig {
	clone := *c
	clone.HeaderKeywords = append([]string(nil), c.HeaderKeywords...)
	return &clone
}

// WithDelimiter returns a copy using the given delimiter
func (c *ParseConfig) WithDelimiter(d rune) *ParseConfig {
	clone := c.Clone()
	clone.Delimiter = d
	return clone
}

// ParseDelimiter maps a flag value ("," ";" "tab" "|") to a rune
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r[0], nil
}
