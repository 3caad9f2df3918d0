package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dashboard-service/internal/models"
)

// Spreadsheet serial dates count days from 1899-12-30 (the Excel epoch with
// its leap-year quirk already folded in). Serials outside the plausible
// business window are rejected so cost and quantity numbers are never
// misread as dates.
var serialDateEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const (
	minDateYear = 1990
	maxDateYear = 2100
)

// defaultDateFormats is the fixed priority list shared by all import types.
// Order matters for ambiguous numeric strings like "01/02/2025": day-first
// formats come before month-first, because every marketplace export this
// dashboard ingests is day-first. The order is a documented constant, never
// inferred from data.
var defaultDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02.01.2006 15:04",
	"02.01.2006 15:04:05",
}

// DateFormats returns the candidate format list for an import type, in
// priority order. All current types share the default list; the indirection
// keeps the order a per-type contract.
func DateFormats(t models.ImportType) []string {
	return defaultDateFormats
}

// NormalizeDate parses a raw cell value into a calendar date using the
// first matching format, falling back to spreadsheet serial-date numbers
// for purely numeric values. Results outside 1990-2100 are invalid.
func NormalizeDate(raw string, formats []string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, format := range formats {
		if ts, err := time.Parse(format, s); err == nil {
			if err := checkDateRange(ts); err != nil {
				return time.Time{}, err
			}
			return ts, nil
		}
	}

	// Purely numeric values are spreadsheet serial day counts. The date
	// formats above all contain separators, so there is no overlap.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return serialToDate(serial)
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", raw)
}

// serialToDate converts an Excel serial day count to a date. Fractional
// parts (time of day) are dropped; imports deal in calendar dates.
func serialToDate(serial float64) (time.Time, error) {
	ts := serialDateEpoch.AddDate(0, 0, int(serial))
	if err := checkDateRange(ts); err != nil {
		return time.Time{}, fmt.Errorf("serial date %v out of range", serial)
	}
	return ts, nil
}

func checkDateRange(ts time.Time) error {
	if ts.Year() < minDateYear || ts.Year() > maxDateYear {
		return fmt.Errorf("date %s outside plausible range %d-%d", ts.Format("2006-01-02"), minDateYear, maxDateYear)
	}
	return nil
}
