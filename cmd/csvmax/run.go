package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"csvaudit/internal/aggregate"
	"csvaudit/internal/config"
	"csvaudit/internal/datasource"
	"csvaudit/internal/datasource/file"
	"csvaudit/internal/datasource/httpds"
	"csvaudit/internal/ingest"
	"csvaudit/internal/metrics"
	"csvaudit/internal/report"
	"csvaudit/internal/storage"
	"csvaudit/internal/table"
)

const progressEvery = 1_000_000

// run executes a validated job: ingest, reduce, report, then the optional
// rejects log and export. The report is written before export so the
// statistic is visible even when the database is unreachable.
func run(ctx context.Context, j config.Job, stdin io.Reader, stdout io.Writer) error {
	s, err := j.Schema.Compile()
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	op, err := aggregate.ParseOp(j.Aggregate.Op)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(j.Report.Format)
	if err != nil {
		return err
	}
	src, err := buildSource(j.Source, stdin)
	if err != nil {
		return err
	}

	tbl, sum, err := ingest.Run(ctx, src, s, ingest.Options{
		Job:           j.Job,
		Workers:       j.Runtime.ParseWorkers,
		ChannelBuffer: j.Runtime.ChannelBuffer,
		ProgressEvery: progressEvery,
	})
	if err != nil {
		return err
	}

	res, excluded, err := aggregate.Reduce(tbl, j.Aggregate.Column, op)
	if err != nil {
		return err
	}
	metrics.RecordRow(j.Job, metrics.KindExcluded, int64(excluded))

	err = report.Write(stdout, format, report.Outcome{
		Column:   j.Aggregate.Column,
		Op:       op,
		Result:   res,
		Excluded: excluded,
		Report:   tbl.Report(),
		Summary:  sum,
	})
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if j.Report.RejectsPath != "" {
		if err := writeRejects(j.Report.RejectsPath, tbl.Report()); err != nil {
			return err
		}
	}
	if j.Storage.Kind != "" {
		if err := export(ctx, j, tbl, sum.RunID); err != nil {
			return err
		}
	}
	return nil
}

// buildSource maps the job's source section onto a datasource.Source.
func buildSource(src config.Source, stdin io.Reader) (datasource.Source, error) {
	switch src.Kind {
	case "file":
		return file.NewLocal(src.Path), nil
	case "http":
		cfg := httpds.Config{
			Timeout:    time.Duration(src.Options.Int("timeout_ms", 0)) * time.Millisecond,
			MaxRetries: src.Options.Int("max_retries", 0),
		}
		hdr := http.Header{}
		for k, v := range src.Options.StringMap("headers") {
			hdr.Set(k, v)
		}
		if ua := src.Options.String("user_agent", ""); ua != "" {
			hdr.Set("User-Agent", ua)
		}
		if len(hdr) > 0 {
			cfg.BaseHeaders = hdr
		}
		return httpds.NewSource(src.URL, cfg), nil
	case "stdin":
		return datasource.Reader{R: stdin}, nil
	}
	return nil, fmt.Errorf("unknown source kind %q", src.Kind)
}

func writeRejects(path string, rep table.Report) error {
	rl, err := report.NewRejectLog(path)
	if err != nil {
		return fmt.Errorf("rejects: %w", err)
	}
	if err := rl.AddReport(rep); err != nil {
		_ = rl.Close()
		return fmt.Errorf("rejects: %w", err)
	}
	if err := rl.Close(); err != nil {
		return fmt.Errorf("rejects: %w", err)
	}
	return nil
}

func export(ctx context.Context, j config.Job, tbl *table.Table, runID string) error {
	repo, err := storage.New(ctx, storage.Config{Kind: j.Storage.Kind, DSN: j.Storage.DB.DSN})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	_, err = storage.Export(ctx, repo, tbl, storage.ExportConfig{
		Job:            j.Job,
		Table:          j.Storage.DB.Table,
		IntegrityTable: j.Storage.DB.IntegrityTable,
		RunID:          runID,
		AutoCreate:     j.Storage.DB.AutoCreateTable,
		BatchSize:      j.Runtime.BatchSize,
	})
	return err
}
