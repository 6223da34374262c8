// Package dates implements the DD.MM birthday date math.
// All calculations are done at midnight UTC regardless of the
// process timezone, so a birthday means the same calendar day
// for everyone.
package dates

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var ddmmPattern = regexp.MustCompile(`^(\d{2})\.(\d{2})$`)

// Normalize validates a DD.MM string. Single-digit days or months are
// rejected ("1.1" is invalid, "01.01" is valid). Only per-field bounds
// are checked: "31.02" passes even though it never occurs.
func Normalize(s string) (string, bool) {
	m := ddmmPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return "", false
	}
	return fmt.Sprintf("%02d.%02d", day, month), true
}

// DaysUntil returns the number of whole days from `from` until the next
// occurrence of the given DD.MM date. `from` is truncated to midnight
// UTC; a birthday today yields 0, yesterday's rolls over to next year.
func DaysUntil(ddmm string, from time.Time) int {
	m := ddmmPattern.FindStringSubmatch(ddmm)
	if m == nil {
		return -1
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])

	today := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	candidate := time.Date(today.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if candidate.Before(today) {
		candidate = candidate.AddDate(1, 0, 0)
	}

	return int(math.Round(candidate.Sub(today).Hours() / 24))
}

// FormatDdMm renders the UTC day and month of t as DD.MM
func FormatDdMm(t time.Time) string {
	return fmt.Sprintf("%02d.%02d", t.UTC().Day(), int(t.UTC().Month()))
}
