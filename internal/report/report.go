// Package report renders the outcome of a run for people (text) and for
// tools (JSON), and writes rejected fields to a CSV side file.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"csvaudit/internal/aggregate"
	"csvaudit/internal/ingest"
	"csvaudit/internal/table"
)

// Format selects the rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a flag or config value onto a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("report: unknown format %q", s)
}

// Outcome is everything a report shows.
type Outcome struct {
	Column   string
	Op       aggregate.Op
	Result   aggregate.Result
	Excluded int
	Report   table.Report
	Summary  ingest.Summary
}

// Write renders o to w.
func Write(w io.Writer, f Format, o Outcome) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, o)
	case FormatText, "":
		return writeText(w, o)
	}
	return fmt.Errorf("report: unknown format %q", f)
}

func writeText(w io.Writer, o Outcome) error {
	var b strings.Builder
	if o.Summary.Job != "" {
		fmt.Fprintf(&b, "job: %s\n", o.Summary.Job)
	}
	if o.Summary.RunID != "" {
		fmt.Fprintf(&b, "run_id: %s\n", o.Summary.RunID)
		fmt.Fprintf(&b, "fingerprint: %s\n", o.Summary.FingerprintHex())
	}
	fmt.Fprintf(&b, "rows_total: %d\n", o.Report.RowsTotal)
	fmt.Fprintf(&b, "rows_with_errors: %d\n", o.Report.RowsWithErrors)
	fmt.Fprintf(&b, "%s(%s): %s\n", opName(o.Op), o.Column, o.Result)
	fmt.Fprintf(&b, "excluded: %d\n", o.Excluded)
	if len(o.Report.Errors) > 0 {
		b.WriteString("errors:\n")
		for _, e := range o.Report.Errors {
			fmt.Fprintf(&b, "  row %d column %s: %q (%s)\n", e.RowIndex, e.Column, e.Raw, e.Reason)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type jsonOutcome struct {
	Job            string         `json:"job,omitempty"`
	RunID          string         `json:"run_id,omitempty"`
	Fingerprint    string         `json:"fingerprint,omitempty"`
	Column         string         `json:"column"`
	Op             string         `json:"op"`
	Result         *int64         `json:"result"`
	Excluded       int            `json:"excluded"`
	RowsTotal      int            `json:"rows_total"`
	RowsWithErrors int            `json:"rows_with_errors"`
	ErrorsByReason map[string]int `json:"errors_by_reason"`
	Errors         []table.Entry  `json:"errors"`
}

func writeJSON(w io.Writer, o Outcome) error {
	doc := jsonOutcome{
		Job:            o.Summary.Job,
		RunID:          o.Summary.RunID,
		Column:         o.Column,
		Op:             opName(o.Op),
		Excluded:       o.Excluded,
		RowsTotal:      o.Report.RowsTotal,
		RowsWithErrors: o.Report.RowsWithErrors,
		ErrorsByReason: map[string]int{},
		Errors:         o.Report.Errors,
	}
	if o.Summary.RunID != "" {
		doc.Fingerprint = o.Summary.FingerprintHex()
	}
	if o.Result.Valid {
		v := o.Result.Value
		doc.Result = &v
	}
	for reason, n := range o.Report.CountByReason() {
		doc.ErrorsByReason[string(reason)] = n
	}
	if doc.Errors == nil {
		doc.Errors = []table.Entry{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

func opName(op aggregate.Op) string {
	if op == "" {
		return string(aggregate.OpMax)
	}
	return string(op)
}
