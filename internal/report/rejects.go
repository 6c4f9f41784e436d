package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"csvaudit/internal/table"
	"csvaudit/pkg/records"
)

// RejectHeader is the first line of every reject log.
var RejectHeader = []string{"row_index", "column", "raw_value", "reason"}

// RejectLog writes integrity entries to a CSV file so rejected values can be
// inspected or reprocessed without rerunning the import.
type RejectLog struct {
	f       *os.File
	w       *csv.Writer
	reasons map[records.Reason]int
}

// NewRejectLog creates path (and its parent directories) and writes the
// header row.
func NewRejectLog(path string) (*RejectLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(RejectHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header %s: %w", path, err)
	}
	return &RejectLog{f: f, w: w, reasons: make(map[records.Reason]int)}, nil
}

// Add appends one entry.
func (l *RejectLog) Add(e table.Entry) error {
	l.reasons[e.Reason]++
	return l.w.Write([]string{strconv.Itoa(e.RowIndex), e.Column, e.Raw, string(e.Reason)})
}

// AddReport appends every entry of r in order.
func (l *RejectLog) AddReport(r table.Report) error {
	for _, e := range r.Errors {
		if err := l.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Counts returns the number of entries written per reason.
func (l *RejectLog) Counts() map[records.Reason]int {
	out := make(map[records.Reason]int, len(l.reasons))
	for k, v := range l.reasons {
		out[k] = v
	}
	return out
}

// Close flushes buffered rows and closes the file.
func (l *RejectLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("flush rejects: %w", err)
	}
	return l.f.Close()
}
