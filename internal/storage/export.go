package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"csvaudit/internal/ddl"
	"csvaudit/internal/metrics"
	"csvaudit/internal/table"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is used when ExportConfig.BatchSize is not positive.
const DefaultBatchSize = 1000

// ExportStep labels export step metrics.
const ExportStep = "export"

// ExportConfig describes where a finalized table goes.
type ExportConfig struct {
	// Job labels metrics and logs.
	Job string

	// Table receives row_index plus one column per schema column.
	Table string

	// IntegrityTable receives report entries. Empty skips them.
	IntegrityTable string

	// RunID tags integrity rows so several runs can share one table.
	RunID string

	// AutoCreate issues CREATE TABLE ... IF NOT EXISTS first.
	AutoCreate bool

	BatchSize int
}

// ExportResult counts what was written.
type ExportResult struct {
	Rows    int64
	Entries int64
	Batches int64
}

// Export writes every row of tbl to cfg.Table, Invalid fields as NULL, and
// every integrity entry to cfg.IntegrityTable. tbl must be finalized.
func Export(ctx context.Context, repo Repository, tbl *table.Table, cfg ExportConfig) (res ExportResult, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordStep(cfg.Job, ExportStep, err, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !tbl.Finalized() {
		return res, fmt.Errorf("export: table is not finalized")
	}
	if cfg.Table == "" {
		return res, fmt.Errorf("export: table name is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	d := repo.Dialect()
	data, err := ddl.DataTable(d, cfg.Table, tbl.Schema())
	if err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	var audit ddl.TableDef
	if cfg.IntegrityTable != "" {
		audit = ddl.IntegrityTable(d, cfg.IntegrityTable)
	}

	if cfg.AutoCreate {
		for _, td := range []ddl.TableDef{data, audit} {
			if td.FQN == "" {
				continue
			}
			if err := EnsureTable(ctx, repo, td); err != nil {
				return res, err
			}
		}
	}

	n := tbl.RowsTotal()
	res.Rows, err = load(ctx, repo, data, cfg, &res.Batches, func(emit func([]any) error) error {
		for i := 0; i < n; i++ {
			r, _ := tbl.Row(i)
			vals := make([]any, 0, len(r)+1)
			vals = append(vals, int64(i))
			for _, v := range r {
				vals = append(vals, v.SQL())
			}
			if err := emit(vals); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("export rows to %s: %w", cfg.Table, err)
	}

	if audit.FQN != "" {
		entries := tbl.Report().Errors
		res.Entries, err = load(ctx, repo, audit, cfg, &res.Batches, func(emit func([]any) error) error {
			for _, e := range entries {
				if err := emit([]any{cfg.RunID, int64(e.RowIndex), e.Column, e.Raw, string(e.Reason)}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("export integrity to %s: %w", cfg.IntegrityTable, err)
		}
	}

	metrics.RecordRow(cfg.Job, metrics.KindExported, res.Rows)
	metrics.RecordBatches(cfg.Job, res.Batches)
	log.Printf("export: done job=%s table=%s rows=%d integrity_table=%s entries=%d batches=%d elapsed=%s",
		cfg.Job, cfg.Table, res.Rows, cfg.IntegrityTable, res.Entries, res.Batches,
		time.Since(start).Truncate(time.Millisecond))
	return res, nil
}

// EnsureTable renders td in the repository's dialect and executes it.
func EnsureTable(ctx context.Context, repo Repository, td ddl.TableDef) error {
	stmt, err := repo.Dialect().CreateTableSQL(td)
	if err != nil {
		return fmt.Errorf("build ddl for %s: %w", td.FQN, err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", td.FQN, err)
	}
	return nil
}

// load streams rows produced by produce into td through LoadBatches.
func load(
	ctx context.Context,
	repo Repository,
	td ddl.TableDef,
	cfg ExportConfig,
	batches *int64,
	produce func(emit func([]any) error) error,
) (int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	in := make(chan []any, cfg.BatchSize)

	g.Go(func() error {
		defer close(in)
		return produce(func(row []any) error {
			select {
			case in <- row:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var total int64
	g.Go(func() error {
		var err error
		total, err = LoadBatches(gctx, td.FQN, td.Names(), in, cfg.BatchSize,
			func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
				n, err := repo.CopyFrom(ctx, td.FQN, columns, rows)
				if err == nil {
					*batches++
				}
				return n, err
			})
		return err
	})

	err := g.Wait()
	return total, err
}
