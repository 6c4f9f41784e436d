// Package table accumulates parsed rows into a column-oriented, in-memory
// table and records every non-conforming field in an integrity report.
//
// A Table is written by one goroutine through Append and becomes read-only
// after Finalize. Rows and fields are never dropped: every appended row is
// represented in every column, Invalid values included.
package table

import (
	"errors"
	"fmt"

	"csvaudit/internal/schema"
	"csvaudit/pkg/records"
)

var (
	// ErrFinalized is returned by Append once Finalize has been called.
	ErrFinalized = errors.New("table: append after finalize")
	// ErrRowWidth is returned by Append for a row whose length differs from
	// the schema width.
	ErrRowWidth = errors.New("table: row width does not match schema")
)

// Table is a column-oriented store of parsed values.
type Table struct {
	schema    *schema.Schema
	cols      [][]records.Value
	report    Report
	finalized bool
}

// Begin starts an empty table for s.
func Begin(s *schema.Schema) *Table {
	return &Table{
		schema: s,
		cols:   make([][]records.Value, s.Len()),
		report: Report{Errors: []Entry{}},
	}
}

// Append adds row to the table. Each Invalid field in row adds one entry to
// the integrity report tagged with the row's 0-based index.
func (t *Table) Append(row records.Row) error {
	if t.finalized {
		return ErrFinalized
	}
	if len(row) != len(t.cols) {
		return fmt.Errorf("%w: got %d, want %d", ErrRowWidth, len(row), len(t.cols))
	}

	index := t.report.RowsTotal
	bad := false
	for i, v := range row {
		t.cols[i] = append(t.cols[i], v)
		if v.IsInvalid() {
			bad = true
			t.report.Errors = append(t.report.Errors, Entry{
				RowIndex: index,
				Column:   t.schema.At(i).Name,
				Raw:      v.Raw(),
				Reason:   v.Reason(),
			})
		}
	}
	t.report.RowsTotal++
	if bad {
		t.report.RowsWithErrors++
	}
	return nil
}

// Finalize marks t read-only and returns it. Calling it twice is harmless.
func (t *Table) Finalize() *Table {
	t.finalized = true
	return t
}

// Finalized reports whether Finalize has been called.
func (t *Table) Finalized() bool { return t.finalized }

// Schema returns the schema the table was built against.
func (t *Table) Schema() *schema.Schema { return t.schema }

// RowsTotal returns the number of rows appended.
func (t *Table) RowsTotal() int { return t.report.RowsTotal }

// RowsWithErrors returns the number of rows holding at least one Invalid
// field.
func (t *Table) RowsWithErrors() int { return t.report.RowsWithErrors }

// Column returns the values of the named column in row order. The slice is
// shared with the table and must not be modified.
func (t *Table) Column(name string) ([]records.Value, schema.Column, error) {
	c, i, err := t.schema.Lookup(name)
	if err != nil {
		return nil, schema.Column{}, err
	}
	return t.cols[i], c, nil
}

// Row reassembles row i from the columns.
func (t *Table) Row(i int) (records.Row, bool) {
	if i < 0 || i >= t.report.RowsTotal {
		return nil, false
	}
	row := make(records.Row, len(t.cols))
	for c := range t.cols {
		row[c] = t.cols[c][i]
	}
	return row, true
}

// Report returns a copy of the integrity report.
func (t *Table) Report() Report {
	r := t.report
	r.Errors = make([]Entry, len(t.report.Errors))
	copy(r.Errors, t.report.Errors)
	return r
}
