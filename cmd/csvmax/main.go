// Command csvmax reads a comma-separated file against a declared schema,
// reports the maximum (or minimum) of one integer column, and lists every
// value that did not conform to its column type.
//
// Ad-hoc use:
//
//	csvmax -file data.csv -columns "id:integer,label:text" -column id
//
// Job file use, with flags overriding the file:
//
//	csvmax -config jobs/orders.yaml -format json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"csvaudit/internal/config"
	"csvaudit/internal/metrics"
	"csvaudit/internal/metrics/datadog"
	"csvaudit/internal/metrics/prompush"
	"csvaudit/internal/schema"

	// register all backends with the storage factory.
	_ "csvaudit/internal/storage/all"
)

const defaultJob = "csvmax"

// cliFlags holds the flags that can override a job file.
type cliFlags struct {
	file, url, columns, column, op  string
	format, rejects, job            string
	storage, dsn, table, integrity  string
	metricsBackend, pushgateway, dd string
	workers                         int
	autoCreate                      bool
}

func main() {
	var (
		cfgPath  string
		f        cliFlags
		validate bool
	)

	flag.StringVar(&cfgPath, "config", "", "job file (.json, .yaml or .yml); flags given explicitly override it")
	flag.StringVar(&f.file, "file", "", `input file path; "-" reads stdin`)
	flag.StringVar(&f.url, "url", "", "input URL (http or https)")
	flag.StringVar(&f.columns, "columns", "", `schema as "name:type,name:type" (types: integer, text)`)
	flag.StringVar(&f.column, "column", "", "integer column to reduce")
	flag.StringVar(&f.op, "op", "max", "reduction: max or min")
	flag.StringVar(&f.format, "format", "text", "report format: text or json")
	flag.StringVar(&f.rejects, "rejects", "", "write non-conforming values to this CSV file")
	flag.StringVar(&f.job, "job", "", "job name for logs and metrics")
	flag.IntVar(&f.workers, "workers", 1, "parse goroutines; 0 or 1 parses sequentially")
	flag.StringVar(&f.storage, "storage", "", "export backend (sqlite, postgres, mssql, mysql); empty disables export")
	flag.StringVar(&f.dsn, "dsn", "", "export database DSN")
	flag.StringVar(&f.table, "table", "", "export data table")
	flag.StringVar(&f.integrity, "integrity-table", "", "export integrity table")
	flag.BoolVar(&f.autoCreate, "auto-create", false, "create export tables if missing")
	flag.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend (none, pushgateway, datadog); falls back to env METRICS_BACKEND")
	flag.StringVar(&f.pushgateway, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&f.dd, "datadog-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	var job config.Job
	if cfgPath != "" {
		var err error
		if job, err = config.Load(cfgPath); err != nil {
			fatalf("load config: %v", err)
		}
	}

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	adhoc := cfgPath == ""
	applyFlags(&job, f, func(name string) bool { return adhoc || set[name] })
	if adhoc && job.Source.Kind == "" {
		job.Source.Kind = "stdin"
	}

	issues := config.Validate(job)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid")
	}
	if validate {
		fmt.Fprintln(os.Stderr, "configuration is valid")
		os.Exit(0)
	}

	flush := setupMetrics(job.Job, job.Metrics, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()

	err := run(ctx, job, os.Stdin, os.Stdout)
	flush()
	if err != nil {
		fatalf("%v", err)
	}
	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// applyFlags copies flag values onto j. use reports whether a flag should
// take effect; empty strings never clear a job file value.
func applyFlags(j *config.Job, f cliFlags, use func(string) bool) {
	str := func(name, v string, dst *string) {
		if use(name) && v != "" {
			*dst = v
		}
	}

	if use("file") && f.file != "" {
		if f.file == "-" {
			j.Source = config.Source{Kind: "stdin"}
		} else {
			j.Source = config.Source{Kind: "file", Path: f.file}
		}
	}
	if use("url") && f.url != "" {
		j.Source = config.Source{Kind: "http", URL: f.url, Options: j.Source.Options}
	}
	if use("columns") && f.columns != "" {
		name := j.Schema.Name
		j.Schema = schema.ParseContract(f.columns)
		j.Schema.Name = name
	}
	str("column", f.column, &j.Aggregate.Column)
	str("op", f.op, &j.Aggregate.Op)
	str("format", f.format, &j.Report.Format)
	str("rejects", f.rejects, &j.Report.RejectsPath)
	str("job", f.job, &j.Job)
	if use("workers") {
		j.Runtime.ParseWorkers = f.workers
	}
	str("storage", f.storage, &j.Storage.Kind)
	str("dsn", f.dsn, &j.Storage.DB.DSN)
	str("table", f.table, &j.Storage.DB.Table)
	str("integrity-table", f.integrity, &j.Storage.DB.IntegrityTable)
	if use("auto-create") && f.autoCreate {
		j.Storage.DB.AutoCreateTable = true
	}
	str("metrics-backend", f.metricsBackend, &j.Metrics.Backend)
	str("pushgateway-url", f.pushgateway, &j.Metrics.PushgatewayURL)
	str("datadog-addr", f.dd, &j.Metrics.DatadogAddr)

	if j.Job == "" {
		j.Job = defaultJob
	}
}

// setupMetrics installs the configured backend and returns its flush func.
// Backend choice: job/flag, then env METRICS_BACKEND. A backend that fails
// to initialize leaves metrics disabled rather than failing the run.
func setupMetrics(job string, m config.Metrics, verbose bool) func() {
	name := m.Backend
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}

	var (
		b   metrics.Backend
		err error
	)
	switch name {
	case "prometheus", "prom", "pushgateway":
		gwURL := firstNonEmpty(m.PushgatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err = prompush.NewBackend(job, gwURL)
		if err == nil {
			log.Printf("metrics: backend=%s url=%s job_name=%s", name, gwURL, job)
		}
	case "datadog", "dogstatsd":
		addr := firstNonEmpty(m.DatadogAddr, os.Getenv("DD_AGENT_ADDR"), "127.0.0.1:8125")
		b, err = datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "csvaudit.", GlobalTags: []string{"job:" + job}})
		if err == nil {
			log.Printf("metrics: backend=%s addr=%s job_name=%s", name, addr, job)
		}
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", name)
		}
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", name, err)
		return func() {}
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
