package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar date layout used across the service
const DateLayout = "2006-01-02"

// milliunitExp is the decimal exponent of one ledger milliunit (1/1000 of a currency unit)
const milliunitExp = -3

// Date is a calendar date without time of day, always held at UTC midnight
type Date struct {
	time.Time
}

// NewDate creates a Date from its components
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a strict YYYY-MM-DD date
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date '%s': expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// MustParseDate is ParseDate for literals known to be valid
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the date as YYYY-MM-DD, or "" for the zero date
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DaysBetween returns the absolute number of whole days between two dates
func (d Date) DaysBetween(other Date) int {
	days := int(d.Sub(other.Time).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// AddMonths shifts the date by n calendar months
func (d Date) AddMonths(n int) Date {
	return Date{d.AddDate(0, n, 0)}
}

// MarshalJSON encodes the date as "YYYY-MM-DD"
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", an RFC3339 timestamp, or ""
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date format '%s': %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

// StatementTransaction is one row extracted from bank statement text. Immutable once parsed.
type StatementTransaction struct {
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	// Line is the 1-based line number in the source text
	Line int `json:"-"`
}

// String returns a string representation of the StatementTransaction
func (s StatementTransaction) String() string {
	return fmt.Sprintf("StatementTransaction{Date: %s, Description: %s, Amount: %s}",
		s.Date, s.Description, s.Amount.StringFixed(2))
}

// LedgerTransaction is a transaction already recorded in the ledger for one account.
// Amount is in currency units; the ledger delivers milliunits which are converted on read.
type LedgerTransaction struct {
	ID           string          `json:"id"`
	Date         Date            `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Payee        string          `json:"payee_name"`
	Memo         string          `json:"memo"`
	Deleted      bool            `json:"deleted"`
	Approved     bool            `json:"approved"`
	Cleared      string          `json:"cleared,omitempty"`
	AccountID    string          `json:"account_id,omitempty"`
	AccountName  string          `json:"account_name,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
}

// PayeeOrUnknown returns the payee, or "Unknown" when the ledger has none
func (t LedgerTransaction) PayeeOrUnknown() string {
	if strings.TrimSpace(t.Payee) == "" {
		return "Unknown"
	}
	return t.Payee
}

// Validate performs basic validation on the LedgerTransaction
func (t LedgerTransaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("ledger transaction ID cannot be empty")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("ledger transaction %s has no date", t.ID)
	}
	return nil
}

// String returns a string representation of the LedgerTransaction
func (t LedgerTransaction) String() string {
	return fmt.Sprintf("LedgerTransaction{ID: %s, Date: %s, Payee: %s, Amount: %s}",
		t.ID, t.Date, t.PayeeOrUnknown(), t.Amount.StringFixed(2))
}

// FilterDeleted returns the transactions that are not soft-deleted, preserving order
func FilterDeleted(txns []LedgerTransaction) []LedgerTransaction {
	out := make([]LedgerTransaction, 0, len(txns))
	for _, t := range txns {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	return out
}

// Account is a ledger account
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	OnBudget       bool            `json:"on_budget"`
	Closed         bool            `json:"closed"`
	Deleted        bool            `json:"deleted"`
	Balance        decimal.Decimal `json:"balance"`
	ClearedBalance decimal.Decimal `json:"cleared_balance"`
}

// IsOpen reports whether the account can be reconciled
func (a Account) IsOpen() bool {
	return !a.Closed && !a.Deleted
}

// Budget is a top-level ledger container of accounts
type Budget struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LastModifiedOn time.Time `json:"last_modified_on,omitempty"`
	CurrencyCode   string    `json:"currency_code,omitempty"`
}

// FromMilliunits converts a ledger milliunit integer to a currency amount
func FromMilliunits(m int64) decimal.Decimal {
	return decimal.New(m, milliunitExp)
}

// ToMilliunits converts a currency amount to ledger milliunits, rounding half away from zero
func ToMilliunits(d decimal.Decimal) int64 {
	return d.Shift(-milliunitExp).Round(0).IntPart()
}

// currencySymbols are stripped before an amount is parsed
var currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "")

// ParseAmount parses a signed decimal amount, ignoring currency symbols and thousand separators
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(currencySymbols.Replace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}
	cleaned = strings.TrimPrefix(cleaned, "+")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// CleanAmount returns s with currency symbols and thousand separators removed
func CleanAmount(s string) string {
	return strings.TrimSpace(currencySymbols.Replace(s))
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// FormatCurrency renders an amount as "$1,234.56" or "-$1,234.56"
func FormatCurrency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	intPart, frac := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, frac = fixed[:i], fixed[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + "$" + b.String() + frac
}

// FormatDollars renders an amount the way discrepancy descriptions quote it: "$-50.00"
func FormatDollars(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
