package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"csvaudit/internal/aggregate"
	"csvaudit/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the job (e.g. "aggregate.column",
// "schema.columns[1].type").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over a decoded Job without touching the
// input or any database. Callers decide whether warnings are fatal.
func Validate(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateSource(j.Source)...)

	s, schemaIssues := validateSchema(j.Schema)
	issues = append(issues, schemaIssues...)
	issues = append(issues, validateAggregate(j.Aggregate, s)...)
	issues = append(issues, validateReport(j.Report)...)
	issues = append(issues, validateRuntime(j.Runtime, j.Storage.Kind != "")...)
	issues = append(issues, validateStorage(j.Storage)...)
	issues = append(issues, validateMetrics(j.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "":
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	case "file":
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.url",
				Message:  fmt.Sprintf("http source requires an absolute http(s) URL, got %q", s.URL),
			})
		}
		if n := s.Options.Int("max_retries", 0); n < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.options.max_retries",
				Message:  "max_retries must not be negative",
			})
		}
	case "stdin":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; want file, http or stdin", s.Kind),
		})
	}
	return issues
}

// validateSchema compiles the contract so structural problems (duplicate
// names, unknown types) surface before any input is read. The compiled
// schema is returned for the aggregate checks; it is nil on error.
func validateSchema(c schema.Contract) (*schema.Schema, []Issue) {
	if len(c.Columns) == 0 {
		return nil, []Issue{{
			Severity: SeverityError,
			Path:     "schema.columns",
			Message:  "schema must declare at least one column",
		}}
	}

	var issues []Issue
	for i, f := range c.Columns {
		if _, err := schema.ParseType(f.Type); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("schema.columns[%d].type", i),
				Message:  err.Error(),
			})
		}
	}
	if len(issues) > 0 {
		return nil, issues
	}

	s, err := c.Compile()
	if err != nil {
		var dup *schema.DuplicateColumnError
		path := "schema.columns"
		if errors.As(err, &dup) {
			path = fmt.Sprintf("schema.columns[%d].name", dup.Second)
		}
		return nil, []Issue{{Severity: SeverityError, Path: path, Message: err.Error()}}
	}
	return s, nil
}

func validateAggregate(a Aggregate, s *schema.Schema) []Issue {
	var issues []Issue

	if _, err := aggregate.ParseOp(a.Op); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "aggregate.op",
			Message:  err.Error(),
		})
	}
	if strings.TrimSpace(a.Column) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "aggregate.column",
			Message:  "aggregate.column must not be empty",
		})
	}
	if s == nil {
		return issues
	}
	typ, err := s.TypeOf(a.Column)
	switch {
	case err != nil:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "aggregate.column",
			Message:  err.Error(),
		})
	case typ != schema.Integer:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "aggregate.column",
			Message:  fmt.Sprintf("column %q is %s; only integer columns can be reduced", a.Column, typ),
		})
	}
	return issues
}

func validateReport(r Report) []Issue {
	switch r.Format {
	case "", "text", "json":
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     "report.format",
		Message:  fmt.Sprintf("unknown report format %q; want text or json", r.Format),
	}}
}

func validateRuntime(r RuntimeConfig, exporting bool) []Issue {
	var issues []Issue

	if r.ParseWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.parse_workers",
			Message:  "parse_workers must not be negative",
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  "channel_buffer must not be negative",
		})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	} else if exporting && r.BatchSize == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  "batch_size is 0; the export default will be used",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}

	var issues []Issue
	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	db := s.DB
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(db.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}
	if db.IntegrityTable != "" && strings.EqualFold(db.IntegrityTable, db.Table) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.integrity_table",
			Message:  "integrity_table must differ from table",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "prometheus", "prom", "pushgateway":
		if m.PushgatewayURL == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway_url is empty; PUSHGATEWAY_URL from the environment will be used",
			}}
		}
		return nil
	case "datadog", "dogstatsd":
		if m.DatadogAddr == "" {
			return []Issue{{
				Severity: SeverityWarning,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr is empty; DD_AGENT_ADDR or 127.0.0.1:8125 will be used",
			}}
		}
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Path:     "metrics.backend",
		Message:  fmt.Sprintf("unknown metrics backend %q; want none, prometheus or datadog", m.Backend),
	}}
}
