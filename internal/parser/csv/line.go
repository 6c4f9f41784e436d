// Package csv turns raw comma-separated lines into typed rows.
//
// The dialect is deliberately plain: fields are separated by a single comma,
// there is no quoting or escaping, and there is no header row. Column names
// and types come from a schema.Schema supplied by the caller.
//
// Parsing never fails. A field that does not conform to its declared type
// becomes a records.Invalid value carrying the raw text and a reason, so the
// row can still be counted and reported.
package csv

import (
	"strconv"
	"strings"

	"csvaudit/internal/schema"
	"csvaudit/pkg/records"
)

// Delimiter separates fields within a line.
const Delimiter = ","

// ParseLine parses one raw line against s and returns a row of exactly
// s.Len() values.
//
// When the field count differs from the schema width, every position is
// Invalid with records.ReasonFieldCountMismatch. Missing positions carry an
// empty raw string; surplus fields are joined back onto the last position so
// the report still shows everything the line held.
func ParseLine(raw string, s *schema.Schema) records.Row {
	fields := strings.Split(raw, Delimiter)
	width := s.Len()
	row := make(records.Row, width)

	if len(fields) != width {
		for i := range row {
			var text string
			switch {
			case i == width-1 && len(fields) > width:
				text = strings.Join(fields[i:], Delimiter)
			case i < len(fields):
				text = fields[i]
			}
			row[i] = records.Invalid(text, records.ReasonFieldCountMismatch)
		}
		return row
	}

	for i, f := range fields {
		row[i] = ParseField(f, s.At(i).Type)
	}
	return row
}

// ParseField converts one raw field to the declared type.
func ParseField(raw string, t schema.Type) records.Value {
	switch t {
	case schema.Integer:
		n, ok := ParseInteger(raw)
		if !ok {
			return records.Invalid(raw, records.ReasonTypeMismatch)
		}
		return records.Integer(n)
	case schema.Text:
		return records.Text(raw)
	default:
		return records.Invalid(raw, records.ReasonTypeMismatch)
	}
}

// ParseInteger accepts an optional '+' or '-' followed by one or more ASCII
// decimal digits and nothing else. Surrounding whitespace, decimal points,
// exponents, underscores and thousands separators are all rejected, as are
// values outside the int64 range.
func ParseInteger(raw string) (int64, bool) {
	digits := raw
	if len(digits) > 0 && (digits[0] == '+' || digits[0] == '-') {
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	// Only a range error is possible past the digit check.
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
