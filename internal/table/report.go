package table

import (
	"csvaudit/pkg/records"
)

// Entry is one non-conforming field.
type Entry struct {
	RowIndex int            `json:"row_index"`
	Column   string         `json:"column"`
	Raw      string         `json:"raw_value"`
	Reason   records.Reason `json:"reason"`
}

// Report is the integrity report built alongside a Table. Errors are in
// input order: by row index, then by column position.
type Report struct {
	RowsTotal      int     `json:"rows_total"`
	RowsWithErrors int     `json:"rows_with_errors"`
	Errors         []Entry `json:"errors"`
}

// Clean reports whether every appended field conformed.
func (r Report) Clean() bool { return r.RowsWithErrors == 0 }

// CountByReason tallies entries per reason.
func (r Report) CountByReason() map[records.Reason]int {
	out := make(map[records.Reason]int)
	for _, e := range r.Errors {
		out[e.Reason]++
	}
	return out
}

// ForColumn returns the entries for one column.
func (r Report) ForColumn(name string) []Entry {
	var out []Entry
	for _, e := range r.Errors {
		if e.Column == name {
			out = append(out, e)
		}
	}
	return out
}
