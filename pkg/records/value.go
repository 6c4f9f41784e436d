// Package records holds the typed field values produced by the row parser.
//
// A Value is a small tagged variant: it carries an int64, a string, or an
// Invalid marker that keeps the raw text and the reason it failed to
// conform. Invalid values are never coerced to a default; callers inspect the
// Kind and decide what to do with them.
package records

import (
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind so that an uninitialized Value is never
	// mistaken for a conforming one.
	KindInvalid Kind = iota
	KindInteger
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Reason explains why a field is Invalid.
type Reason string

const (
	// ReasonTypeMismatch marks a field whose text does not convert to the
	// column's declared type.
	ReasonTypeMismatch Reason = "type_mismatch"
	// ReasonFieldCountMismatch marks every field of a row whose field count
	// differs from the schema width.
	ReasonFieldCountMismatch Reason = "field_count_mismatch"
)

// Value is one parsed field.
type Value struct {
	kind   Kind
	i      int64
	s      string // text payload, or the raw text for Invalid
	reason Reason
}

// Integer returns a conforming integer value.
func Integer(v int64) Value { return Value{kind: KindInteger, i: v} }

// Text returns a conforming text value. The string is kept verbatim.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Invalid returns a non-conforming value that remembers the raw text.
func Invalid(raw string, reason Reason) Value {
	return Value{kind: KindInvalid, s: raw, reason: reason}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsInvalid reports whether v failed conformance.
func (v Value) IsInvalid() bool { return v.kind == KindInvalid }

// Int returns the integer payload and true when v is an integer value.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i, true
}

// Str returns the text payload and true when v is a text value.
func (v Value) Str() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.s, true
}

// Raw returns the source text for v. For integers this is the canonical
// decimal rendering, not necessarily the original spelling (e.g. "+7").
func (v Value) Raw() string {
	if v.kind == KindInteger {
		return strconv.FormatInt(v.i, 10)
	}
	return v.s
}

// Reason returns why v is Invalid, or "" for conforming values.
func (v Value) Reason() Reason { return v.reason }

// SQL returns v as a database/sql friendly value; Invalid maps to nil.
func (v Value) SQL() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindText:
		return v.s
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return fmt.Sprintf("Integer(%d)", v.i)
	case KindText:
		return fmt.Sprintf("Text(%q)", v.s)
	default:
		return fmt.Sprintf("Invalid(%q, %s)", v.s, v.reason)
	}
}

// Row is the ordered list of values parsed from one input line. Its length
// always equals the width of the schema it was parsed against.
type Row []Value

// HasInvalid reports whether any field in r failed conformance.
func (r Row) HasInvalid() bool {
	for _, v := range r {
		if v.IsInvalid() {
			return true
		}
	}
	return false
}
