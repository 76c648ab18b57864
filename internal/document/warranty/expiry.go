package warranty

import (
	"regexp"
	"strings"
	"time"
)

const (
	DateLayout = "02.01.2006"

	// Placeholder is printed where an item carries no warranty.
	Placeholder = "—"
)

// Expiry returns purchase plus months. Items without warranty have none.
func Expiry(purchase time.Time, months int) (time.Time, bool) {
	if months <= 0 {
		return time.Time{}, false
	}
	return purchase.AddDate(0, months, 0), true
}

// ExpiryLabel formats the expiry date or the placeholder.
func ExpiryLabel(purchase time.Time, months int) string {
	exp, ok := Expiry(purchase, months)
	if !ok {
		return Placeholder
	}
	return exp.Format(DateLayout)
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// NormalizeNotes cleans free-form notes before layout: CRLF becomes LF,
// non-breaking spaces become spaces and runs of blank lines collapse to one.
func NormalizeNotes(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
