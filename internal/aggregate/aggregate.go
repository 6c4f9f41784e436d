// Package aggregate computes reductions over an integer column of a
// table.Table. Only conforming integer values take part; everything else is
// counted as excluded so the caller can see how much of the column was
// ignored.
package aggregate

import (
	"fmt"
	"strings"

	"csvaudit/internal/schema"
	"csvaudit/internal/table"
)

// Result is an optional int64: Valid is false when the column held no
// conforming values.
type Result struct {
	Value int64
	Valid bool
}

func (r Result) String() string {
	if !r.Valid {
		return "none"
	}
	return fmt.Sprintf("%d", r.Value)
}

// TypeError is returned when a reduction is asked of a non-integer column.
type TypeError struct {
	Column string
	Have   schema.Type
	Want   schema.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("aggregate: column %q is %s, want %s", e.Column, e.Have, e.Want)
}

// Op names a reduction.
type Op string

const (
	OpMax Op = "max"
	OpMin Op = "min"
)

// ParseOp maps a config spelling onto an Op.
func ParseOp(s string) (Op, error) {
	switch Op(strings.ToLower(strings.TrimSpace(s))) {
	case OpMax, "":
		return OpMax, nil
	case OpMin:
		return OpMin, nil
	default:
		return "", fmt.Errorf("aggregate: unknown op %q", s)
	}
}

// MaxOf returns the largest conforming integer in column and the number of
// entries that were not integer values.
func MaxOf(t *table.Table, column string) (Result, int, error) {
	return reduce(t, column, func(best, v int64) bool { return v > best })
}

// MinOf is MaxOf with the comparison reversed.
func MinOf(t *table.Table, column string) (Result, int, error) {
	return reduce(t, column, func(best, v int64) bool { return v < best })
}

// Reduce dispatches on op.
func Reduce(t *table.Table, column string, op Op) (Result, int, error) {
	switch op {
	case OpMax:
		return MaxOf(t, column)
	case OpMin:
		return MinOf(t, column)
	default:
		return Result{}, 0, fmt.Errorf("aggregate: unknown op %q", op)
	}
}

// reduce walks the column once. better reports whether v should replace the
// current best.
func reduce(t *table.Table, column string, better func(best, v int64) bool) (Result, int, error) {
	vals, col, err := t.Column(column)
	if err != nil {
		return Result{}, 0, err
	}
	if col.Type != schema.Integer {
		return Result{}, 0, &TypeError{Column: col.Name, Have: col.Type, Want: schema.Integer}
	}

	var (
		res      Result
		excluded int
	)
	for _, v := range vals {
		n, ok := v.Int()
		if !ok {
			excluded++
			continue
		}
		if !res.Valid || better(res.Value, n) {
			res = Result{Value: n, Valid: true}
		}
	}
	return res, excluded, nil
}
