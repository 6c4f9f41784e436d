// Package ingest drives one run: open a source, split it into lines, parse
// each line against a schema, and build the finalized table.
//
// Parsing is a pure per-line function, so with more than one worker lines
// are parsed concurrently. A single coordinator still appends rows in input
// order, which keeps row indexes and the integrity report identical to a
// sequential run.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"time"

	"csvaudit/internal/datasource"
	"csvaudit/internal/metrics"
	csvparse "csvaudit/internal/parser/csv"
	"csvaudit/internal/schema"
	"csvaudit/internal/table"
	"csvaudit/pkg/records"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

// StepName labels ingest step metrics.
const StepName = "ingest"

// Options tunes a run. The zero value is a sequential run with no progress
// logging.
type Options struct {
	// Job labels metrics and log lines.
	Job string

	// Workers is the number of parse goroutines. Values <= 1 parse on the
	// calling goroutine. Use -1 for runtime.NumCPU().
	Workers int

	// ChannelBuffer sizes the line and row channels of the worker pool.
	// Zero picks 4*Workers.
	ChannelBuffer int

	// ProgressEvery logs a progress line every N input lines. Zero disables.
	ProgressEvery int

	// RunID overrides the generated run id (tests).
	RunID string
}

// Summary describes a completed run.
type Summary struct {
	Job            string        `json:"job"`
	RunID          string        `json:"run_id"`
	Fingerprint    uint64        `json:"-"`
	Lines          int           `json:"lines"`
	RowsWithErrors int           `json:"rows_with_errors"`
	InvalidFields  int           `json:"invalid_fields"`
	Workers        int           `json:"workers"`
	Elapsed        time.Duration `json:"-"`
}

// FingerprintHex renders the input fingerprint as 16 hex digits.
func (s Summary) FingerprintHex() string {
	return fmt.Sprintf("%016x", s.Fingerprint)
}

// Run reads src to the end and returns the finalized table.
//
// Malformed data never fails a run; it is recorded in the table's integrity
// report. Errors are structural only: the source cannot be opened or read,
// or ctx is canceled.
func Run(ctx context.Context, src datasource.Source, s *schema.Schema, opt Options) (tbl *table.Table, sum Summary, err error) {
	start := time.Now()
	workers := opt.Workers
	if workers < 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	sum = Summary{Job: opt.Job, RunID: opt.RunID, Workers: workers}
	if sum.RunID == "" {
		sum.RunID = uuid.NewString()
	}
	defer func() {
		sum.Elapsed = time.Since(start)
		metrics.RecordStep(opt.Job, StepName, err, sum.Elapsed)
	}()

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, sum, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	tbl = table.Begin(s)
	h := xxh3.New()
	lines := 0

	// fingerprint and progress see lines in input order on every path.
	observe := func(line string) {
		_, _ = h.WriteString(line)
		_, _ = h.WriteString("\n")
		lines++
		if opt.ProgressEvery > 0 && lines%opt.ProgressEvery == 0 {
			log.Printf("ingest: progress job=%s lines=%d elapsed=%s", opt.Job, lines, time.Since(start).Truncate(time.Millisecond))
		}
	}

	if workers == 1 {
		err = csvparse.ReadLines(ctx, rc, func(_ int, line string) error {
			observe(line)
			return tbl.Append(csvparse.ParseLine(line, s))
		})
	} else {
		err = runParallel(ctx, rc, s, tbl, workers, opt.ChannelBuffer, observe)
	}
	if err != nil {
		return nil, sum, fmt.Errorf("ingest: %w", err)
	}

	tbl.Finalize()
	rep := tbl.Report()
	sum.Fingerprint = h.Sum64()
	sum.Lines = lines
	sum.RowsWithErrors = rep.RowsWithErrors
	sum.InvalidFields = len(rep.Errors)

	metrics.RecordRow(opt.Job, metrics.KindRows, int64(rep.RowsTotal))
	metrics.RecordRow(opt.Job, metrics.KindRowsWithErrors, int64(rep.RowsWithErrors))
	metrics.RecordRow(opt.Job, metrics.KindInvalidFields, int64(len(rep.Errors)))

	log.Printf("ingest: done job=%s run_id=%s rows=%d rows_with_errors=%d invalid_fields=%d workers=%d fingerprint=%s elapsed=%s",
		opt.Job, sum.RunID, rep.RowsTotal, rep.RowsWithErrors, len(rep.Errors), workers,
		sum.FingerprintHex(), time.Since(start).Truncate(time.Millisecond))

	return tbl, sum, nil
}

type numberedLine struct {
	index int
	line  string
}

type parsedRow struct {
	index int
	row   records.Row
}

// reorder restores input order behind a parallel parse. A slot is taken
// before a line is handed to the workers and given back once its row is
// appended, so at most cap(window) rows are ever in flight or pending.
type reorder struct {
	window  chan struct{}
	pending map[int]records.Row
	next    int
}

func newReorder(size int) *reorder {
	if size < 1 {
		size = 1
	}
	return &reorder{window: make(chan struct{}, size), pending: make(map[int]records.Row)}
}

// acquire blocks until a slot is free or ctx is done.
func (o *reorder) acquire(ctx context.Context) error {
	select {
	case o.window <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// put stores a parsed row and emits every row that is now contiguous with
// the last one emitted. Each emitted row frees its slot, including after
// emit has failed, so the reader never blocks on a dead coordinator.
func (o *reorder) put(index int, row records.Row, emit func(records.Row) error) error {
	o.pending[index] = row
	var err error
	for {
		r, ok := o.pending[o.next]
		if !ok {
			return err
		}
		delete(o.pending, o.next)
		o.next++
		<-o.window
		if e := emit(r); e != nil && err == nil {
			err = e
		}
	}
}

// runParallel fans lines out to workers and appends the parsed rows back in
// index order. observe runs on the reader goroutine only.
func runParallel(ctx context.Context, r io.Reader, s *schema.Schema, tbl *table.Table, workers, buf int, observe func(string)) error {
	if buf <= 0 {
		buf = 4 * workers
	}

	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan numberedLine, buf)
	parsed := make(chan parsedRow, buf)
	order := newReorder(2*buf + workers)

	g.Go(func() error {
		defer close(lines)
		return csvparse.ReadLines(gctx, r, func(i int, line string) error {
			observe(line)
			if err := order.acquire(gctx); err != nil {
				return err
			}
			select {
			case lines <- numberedLine{index: i, line: line}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	pool, pctx := errgroup.WithContext(gctx)
	for w := 0; w < workers; w++ {
		pool.Go(func() error {
			for nl := range lines {
				row := csvparse.ParseLine(nl.line, s)
				select {
				case parsed <- parsedRow{index: nl.index, row: row}:
				case <-pctx.Done():
					return pctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		err := pool.Wait()
		close(parsed)
		return err
	})

	// Coordinator: the table has a single writer.
	var appendErr error
	for pr := range parsed {
		if err := order.put(pr.index, pr.row, tbl.Append); err != nil && appendErr == nil {
			appendErr = err
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if appendErr != nil {
		return appendErr
	}
	if len(order.pending) > 0 {
		return fmt.Errorf("%d parsed rows never reached the table (next index %d)", len(order.pending), order.next)
	}
	return nil
}
