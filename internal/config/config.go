// Package config defines the job file model for csvaudit runs and the
// helpers that load it from disk.
//
// A job names one input, the schema it is read against, the column to
// reduce, and where the report (and optionally the table) goes. Job files
// are JSON or YAML, selected by extension; field names are identical in
// both.
//
// Example (trimmed):
//
//	{
//	  "job":       "orders-daily",
//	  "source":    { "kind": "file", "path": "testdata/orders.csv" },
//	  "schema":    { "name": "orders", "columns": [
//	                   { "name": "id",    "type": "integer" },
//	                   { "name": "label", "type": "text" } ] },
//	  "aggregate": { "column": "id", "op": "max" },
//	  "report":    { "format": "text", "rejects_path": "out/rejects.csv" },
//	  "storage":   { "kind": "sqlite", "db": { "dsn": "file:out.db", "table": "orders" } }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"csvaudit/internal/schema"

	"gopkg.in/yaml.v3"
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job" yaml:"job"`

	Source    Source          `json:"source" yaml:"source"`
	Schema    schema.Contract `json:"schema" yaml:"schema"`
	Aggregate Aggregate       `json:"aggregate" yaml:"aggregate"`
	Report    Report          `json:"report" yaml:"report"`
	Runtime   RuntimeConfig   `json:"runtime" yaml:"runtime"`

	// Storage is optional; an empty Kind disables export.
	Storage Storage `json:"storage" yaml:"storage"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// Source identifies where input lines come from.
type Source struct {
	// Kind is one of "file", "http" or "stdin".
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
	URL  string `json:"url" yaml:"url"`

	// Options carries kind-specific settings. The http source reads
	// timeout_ms, max_retries, user_agent and headers.
	Options Options `json:"options" yaml:"options"`
}

// Aggregate selects the reduction to compute.
type Aggregate struct {
	Column string `json:"column" yaml:"column"`
	// Op is "max" (default) or "min".
	Op string `json:"op" yaml:"op"`
}

// Report controls how the outcome is rendered.
type Report struct {
	// Format is "text" (default) or "json".
	Format string `json:"format" yaml:"format"`
	// RejectsPath, when set, receives one CSV line per integrity entry.
	RejectsPath string `json:"rejects_path" yaml:"rejects_path"`
}

// RuntimeConfig controls parse concurrency and export batching.
type RuntimeConfig struct {
	ParseWorkers  int `json:"parse_workers" yaml:"parse_workers"`
	ChannelBuffer int `json:"channel_buffer" yaml:"channel_buffer"`
	BatchSize     int `json:"batch_size" yaml:"batch_size"`
}

// Storage selects the export sink.
type Storage struct {
	// Kind is a registered backend: "sqlite", "postgres", "mssql" or "mysql".
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the export tables.
type DBConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`

	// Table receives one row per input line: row_index plus the schema columns.
	Table string `json:"table" yaml:"table"`

	// IntegrityTable receives the integrity report entries. Empty skips them.
	IntegrityTable string `json:"integrity_table" yaml:"integrity_table"`

	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// Metrics selects a metrics backend. Empty Backend disables metrics.
type Metrics struct {
	// Backend is "", "none", "prometheus" or "datadog".
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Load reads a job file. ".yaml" and ".yml" decode as YAML, anything else
// as JSON. Unknown JSON fields are rejected so typos surface early.
func Load(path string) (Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var j Job
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = DecodeYAML(b, &j)
	default:
		err = DecodeJSON(b, &j)
	}
	if err != nil {
		return Job{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return j, nil
}

// DecodeJSON strictly decodes a JSON job document.
func DecodeJSON(b []byte, j *Job) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(j)
}

// DecodeYAML strictly decodes a YAML job document.
func DecodeYAML(b []byte, j *Job) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(j)
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns the provided default when
// a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json yields float64 and
// yaml.v3 yields int, so both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// StringMap returns the string-valued entries of the object at key. Non-string
// values are ignored. Missing keys yield an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns the string elements of the array at key, or nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null "options" object to a non-nil,
// empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (o *Options) UnmarshalYAML(n *yaml.Node) error {
	var tmp map[string]any
	if err := n.Decode(&tmp); err != nil {
		return err
	}
	if tmp == nil {
		tmp = map[string]any{}
	}
	*o = Options(tmp)
	return nil
}
