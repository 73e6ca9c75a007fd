package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"ledger-reconciliation-service/internal/models"
)

var (
	// D[D]/D[D]/YY[YY] and D[D]-D[D]-YY[YY]
	numericDayFirstPattern = regexp.MustCompile(`^\d{1,2}[/-]\d{1,2}[/-]\d{2,4}$`)
	// YYYY-MM-DD and YYYY/MM/DD
	numericYearFirstPattern = regexp.MustCompile(`^\d{4}[/-]\d{1,2}[/-]\d{1,2}$`)

	isoDatePattern = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
	usDatePattern  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	usShortPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2})$`)
)

// generalDateLayouts are tried, in order, for strings no numeric pattern covers
var generalDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Mon, Jan 2, 2006",
	"Mon Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// LooksLikeDate reports whether a field matches a numeric date shape or
// parses as a calendar date by any general layout.
func LooksLikeDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if numericDayFirstPattern.MatchString(s) || numericYearFirstPattern.MatchString(s) {
		return true
	}
	_, ok := parseGeneralDate(s)
	return ok
}

// NormalizeDate converts a statement date to a calendar date.
//
// Year-first strings are read as YYYY-MM-DD, day-and-month-first strings as
// MM/DD/YYYY (two-digit years pivot at 69, as time.Parse does). Anything else
// is attempted against the general layouts.
func NormalizeDate(s string) (models.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Date{}, false
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := usDatePattern.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[1], m[2])
	}
	if m := usShortPattern.FindStringSubmatch(s); m != nil {
		t, err := time.Parse("1/2/06", m[1]+"/"+m[2]+"/"+m[3])
		if err != nil {
			return models.Date{}, false
		}
		return models.DateOf(t), true
	}

	return parseGeneralDate(s)
}

func parseGeneralDate(s string) (models.Date, bool) {
	for _, layout := range generalDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), true
		}
	}
	return models.Date{}, false
}

// buildDate validates the components so that e.g. 2024-02-30 is rejected
// rather than rolled over into March.
func buildDate(year, month, day string) (models.Date, bool) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return models.Date{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return models.Date{}, false
	}

	date := models.NewDate(y, time.Month(m), d)
	if date.Day() != d || int(date.Month()) != m {
		return models.Date{}, false
	}
	return date, true
}
