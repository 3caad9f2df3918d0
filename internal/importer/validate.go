package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dashboard-service/internal/models"
)

// ValidRow is a fully-typed row that passed validation. Values hold string,
// float64, int64 or time.Time depending on the field kind.
type ValidRow struct {
	Line   int
	Values map[Field]interface{}
}

// String returns the string value of a field, or "" if absent.
func (r ValidRow) String(f Field) string {
	v, _ := r.Values[f].(string)
	return v
}

// Number returns the float64 value of a field, or 0 if absent.
func (r ValidRow) Number(f Field) float64 {
	switch v := r.Values[f].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Int returns the int64 value of a field, or 0 if absent.
func (r ValidRow) Int(f Field) int64 {
	v, _ := r.Values[f].(int64)
	return v
}

// Date returns the time.Time value of a field and whether it was present.
func (r ValidRow) Date(f Field) (time.Time, bool) {
	v, ok := r.Values[f].(time.Time)
	return v, ok
}

// NaturalKey joins the row's natural-key field values for duplicate
// detection. Dates are rendered as calendar dates so the same business row
// hashes identically across formats.
func (r ValidRow) NaturalKey(t models.ImportType) string {
	parts := make([]string, 0, len(keyFields[t]))
	for _, f := range keyFields[t] {
		switch v := r.Values[f].(type) {
		case time.Time:
			parts = append(parts, v.Format("2006-01-02"))
		case nil:
			parts = append(parts, "")
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, "|")
}

// ValidateRow resolves and validates one raw row for the given import type.
// It returns either a fully-typed valid row or a row-level error carrying
// the 1-indexed source line, offending field, raw value and reason.
// Validation is row-local: one row's failure never affects another row.
func ValidateRow(t models.ImportType, raw RawRow) (*ValidRow, *models.RowError) {
	resolved := ResolveColumns(t, raw.Cells)
	formats := DateFormats(t)

	row := &ValidRow{Line: raw.Line, Values: make(map[Field]interface{})}
	for _, spec := range FieldSpecs(t) {
		value, present := resolved[spec.Field]
		value = strings.TrimSpace(value)
		if !present || value == "" {
			if spec.Required {
				return nil, &models.RowError{
					Row:     raw.Line,
					Field:   string(spec.Field),
					Message: fmt.Sprintf("required field %q is missing", spec.Field),
				}
			}
			continue
		}

		switch spec.Kind {
		case KindString:
			row.Values[spec.Field] = value

		case KindNumber:
			n, err := parseNumber(value)
			if err != nil {
				return nil, rowError(raw.Line, spec.Field, value, "not a valid number")
			}
			if spec.NonNegative && n < 0 {
				return nil, rowError(raw.Line, spec.Field, value, "must not be negative")
			}
			row.Values[spec.Field] = n

		case KindInteger:
			n, err := parseNumber(value)
			if err != nil {
				return nil, rowError(raw.Line, spec.Field, value, "not a valid number")
			}
			if spec.NonNegative && n < 0 {
				return nil, rowError(raw.Line, spec.Field, value, "must not be negative")
			}
			if n != math.Trunc(n) {
				return nil, rowError(raw.Line, spec.Field, value, "must be a whole number")
			}
			row.Values[spec.Field] = int64(n)

		case KindDate:
			ts, err := NormalizeDate(value, formats)
			if err != nil {
				return nil, rowError(raw.Line, spec.Field, value, err.Error())
			}
			row.Values[spec.Field] = ts
		}
	}

	return row, nil
}

func rowError(line int, field Field, value, reason string) *models.RowError {
	return &models.RowError{Row: line, Field: string(field), Value: value, Message: reason}
}

// parseNumber parses localized numeric strings: currency symbols and space
// thousands separators are stripped; a comma is treated as a thousands
// separator when it groups digits in threes ("555,000" -> 555000) and as a
// decimal separator otherwise ("4,50" -> 4.5).
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	for _, cut := range []string{"₽", "$", "€", "руб.", "руб", " ", " "} {
		s = strings.ReplaceAll(s, cut, "")
	}
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if groupedThousands(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}

	return strconv.ParseFloat(s, 64)
}

// groupedThousands reports whether every comma in s separates groups of
// exactly three digits, i.e. the comma is a thousands separator.
func groupedThousands(s string) bool {
	s = strings.TrimPrefix(s, "-")
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return false
	}
	if len(parts[0]) == 0 || len(parts[0]) > 3 {
		return false
	}
	for _, part := range parts[1:] {
		if len(part) != 3 {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
