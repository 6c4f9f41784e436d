// Package ddl renders CREATE TABLE statements for the export tables in each
// supported SQL dialect.
//
// Two tables are derived from a run: the data table (row_index plus one
// nullable column per schema column) and the integrity table (one row per
// report entry). Invalid fields are exported as NULL, so every schema column
// is nullable.
package ddl

import (
	"fmt"
	"strings"

	"csvaudit/internal/schema"
)

// Reserved column names used by the export tables.
const (
	ColRowIndex   = "row_index"
	ColRunID      = "run_id"
	ColColumnName = "column_name"
	ColRawValue   = "raw_value"
	ColReason     = "reason"
)

// Guard selects how a dialect avoids failing on an existing table.
type Guard int

const (
	// IfNotExists renders CREATE TABLE IF NOT EXISTS.
	IfNotExists Guard = iota
	// ObjectIDGuard wraps CREATE TABLE in IF OBJECT_ID(...) IS NULL (T-SQL).
	ObjectIDGuard
)

// Dialect captures the per-database differences the export needs.
type Dialect struct {
	Name string

	// Open and Close delimit a quoted identifier; Close is doubled inside.
	Open, Close string

	Integer string
	Text    string
	Guard   Guard
}

var (
	SQLite   = Dialect{Name: "sqlite", Open: `"`, Close: `"`, Integer: "INTEGER", Text: "TEXT"}
	Postgres = Dialect{Name: "postgres", Open: `"`, Close: `"`, Integer: "BIGINT", Text: "TEXT"}
	MySQL    = Dialect{Name: "mysql", Open: "`", Close: "`", Integer: "BIGINT", Text: "LONGTEXT"}
	MSSQL    = Dialect{Name: "mssql", Open: "[", Close: "]", Integer: "BIGINT", Text: "NVARCHAR(MAX)", Guard: ObjectIDGuard}
)

// QuoteIdent quotes a single identifier segment.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func (d Dialect) QuoteIdent(id string) string {
	return d.Open + strings.ReplaceAll(id, d.Close, d.Close+d.Close) + d.Close
}

// QuoteFQN quotes each dot-separated segment of a possibly schema-qualified
// name. Empty segments are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// MapType maps a schema column type onto this dialect.
func (d Dialect) MapType(t schema.Type) string {
	if t == schema.Integer {
		return d.Integer
	}
	return d.Text
}

// CreateTableSQL renders a statement that creates t unless it exists.
func (d Dialect) CreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}
		col := d.QuoteIdent(name) + " " + typ
		if c.Nullable {
			col += " NULL"
		} else {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	quoted := d.QuoteFQN(fqn)
	switch d.Guard {
	case ObjectIDGuard:
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
			strings.ReplaceAll(quoted, "'", "''"), quoted, strings.Join(cols, ",\n    "),
		), nil
	default:
		return fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
			quoted, strings.Join(cols, ",\n  "),
		), nil
	}
}

// DataTable describes the table that receives the rows of a run: a
// non-null row_index followed by one nullable column per schema column.
func DataTable(d Dialect, fqn string, s *schema.Schema) (TableDef, error) {
	cols := make([]ColumnDef, 0, s.Len()+1)
	cols = append(cols, ColumnDef{Name: ColRowIndex, SQLType: d.Integer})
	for _, c := range s.Columns() {
		if strings.EqualFold(c.Name, ColRowIndex) {
			return TableDef{}, fmt.Errorf("ddl: column name %q is reserved in the export table", c.Name)
		}
		cols = append(cols, ColumnDef{Name: c.Name, SQLType: d.MapType(c.Type), Nullable: true})
	}
	return TableDef{FQN: fqn, Columns: cols}, nil
}

// IntegrityTable describes the table that receives integrity report entries.
func IntegrityTable(d Dialect, fqn string) TableDef {
	return TableDef{
		FQN: fqn,
		Columns: []ColumnDef{
			{Name: ColRunID, SQLType: d.Text},
			{Name: ColRowIndex, SQLType: d.Integer},
			{Name: ColColumnName, SQLType: d.Text},
			{Name: ColRawValue, SQLType: d.Text},
			{Name: ColReason, SQLType: d.Text},
		},
	}
}
