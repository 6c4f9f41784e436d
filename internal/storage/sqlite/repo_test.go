package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	csvparse "csvaudit/internal/parser/csv"
	"csvaudit/internal/schema"
	"csvaudit/internal/storage"
	"csvaudit/internal/table"
)

func newMemRepo(tb testing.TB) *Repository {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:"})
	if err != nil {
		tb.Fatalf("NewRepository(:memory:): %v", err)
	}
	tb.Cleanup(closeFn)
	return r
}

func mustExec(tb testing.TB, r *Repository, stmt string) {
	tb.Helper()
	if err := r.Exec(context.Background(), stmt); err != nil {
		tb.Fatalf("exec %q: %v", stmt, err)
	}
}

func queryRows(tb testing.TB, db *sql.DB, q string) [][]any {
	tb.Helper()
	rows, err := db.Query(q)
	if err != nil {
		tb.Fatalf("query %q: %v", q, err)
	}
	defer rows.Close()
	cols, _ := rows.Columns()
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			tb.Fatalf("scan: %v", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		tb.Fatalf("rows: %v", err)
	}
	return out
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "  "}); err == nil {
		t.Fatal("NewRepository(blank) error = nil")
	}
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got := insertSQL("main.t", []string{"row_index", `we"ird`})
	want := `INSERT INTO "main"."t" ("row_index", "we""ird") VALUES (?, ?)`
	if got != want {
		t.Fatalf("insertSQL = %s, want %s", got, want)
	}
}

func TestCopyFrom(t *testing.T) {
	t.Parallel()

	r := newMemRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE t (a INTEGER, b TEXT)`)

	n, err := r.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{int64(1), "x"}, {nil, "y"}})
	if err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	if n, err := r.CopyFrom(ctx, "t", []string{"a", "b"}, nil); err != nil || n != 0 {
		t.Fatalf("CopyFrom(empty) = %d, %v", n, err)
	}
	if _, err := r.CopyFrom(ctx, "t", nil, [][]any{{1}}); err == nil {
		t.Fatal("CopyFrom(no columns) error = nil")
	}

	// A short row rolls back the whole batch.
	if _, err := r.CopyFrom(ctx, "t", []string{"a", "b"}, [][]any{{int64(9), "z"}, {int64(10)}}); err == nil {
		t.Fatal("CopyFrom(short row) error = nil")
	}

	got := queryRows(t, r.db, `SELECT a, b FROM t ORDER BY rowid`)
	want := [][]any{{int64(1), "x"}, {nil, "y"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %#v, want %#v", got, want)
	}
}

func TestExec_BlankAndError(t *testing.T) {
	t.Parallel()

	r := newMemRepo(t)
	if err := r.Exec(context.Background(), "   "); err != nil {
		t.Fatalf("Exec(blank) = %v", err)
	}
	err := r.Exec(context.Background(), "CREATE TABLE (")
	if err == nil || !strings.Contains(err.Error(), "sqlite: exec") {
		t.Fatalf("Exec(bad) = %v", err)
	}
}

// TestExportRoundTrip pushes a table with invalid fields through
// storage.Export into a file database and reads it back.
func TestExportRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "out.db")

	s := schema.MustNew(
		schema.Column{Name: "n", Type: schema.Integer},
		schema.Column{Name: "label", Type: schema.Text},
	)
	tbl := table.Begin(s)
	for _, line := range []string{"1,a", "x,b", "-3,c", "7"} {
		if err := tbl.Append(csvparse.ParseLine(line, s)); err != nil {
			t.Fatal(err)
		}
	}
	tbl.Finalize()

	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	cfg := storage.ExportConfig{
		Job:            "roundtrip",
		Table:          "orders",
		IntegrityTable: "orders_integrity",
		RunID:          "run-1",
		AutoCreate:     true,
		BatchSize:      3,
	}
	res, err := storage.Export(ctx, repo, tbl, cfg)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Rows != 4 || res.Entries != 3 {
		t.Fatalf("result = %+v", res)
	}

	// Exporting again into existing tables must not fail on CREATE.
	if _, err := storage.Export(ctx, repo, tbl, cfg); err != nil {
		t.Fatalf("second Export: %v", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	got := queryRows(t, db, `SELECT row_index, n, label FROM orders WHERE rowid <= 4 ORDER BY row_index`)
	want := [][]any{
		{int64(0), int64(1), "a"},
		{int64(1), nil, "b"},
		{int64(2), int64(-3), "c"},
		{int64(3), nil, nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("orders = %#v\nwant %#v", got, want)
	}

	var maxN int64
	if err := db.QueryRow(`SELECT MAX(n) FROM orders`).Scan(&maxN); err != nil {
		t.Fatal(err)
	}
	if maxN != 1 {
		t.Fatalf("MAX(n) = %d, want 1 (NULLs ignored like excluded values)", maxN)
	}

	audit := queryRows(t, db, `SELECT run_id, row_index, column_name, raw_value, reason FROM orders_integrity WHERE rowid <= 3 ORDER BY rowid`)
	wantAudit := [][]any{
		{"run-1", int64(1), "n", "x", "type_mismatch"},
		{"run-1", int64(3), "n", "7", "field_count_mismatch"},
		{"run-1", int64(3), "label", "", "field_count_mismatch"},
	}
	if !reflect.DeepEqual(audit, wantAudit) {
		t.Fatalf("integrity = %#v\nwant %#v", audit, wantAudit)
	}
}

func BenchmarkCopyFrom(b *testing.B) {
	r := newMemRepo(b)
	mustExec(b, r, `CREATE TABLE bench (a INTEGER, b TEXT)`)

	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{int64(i), fmt.Sprintf("row%d", i)}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.CopyFrom(context.Background(), "bench", []string{"a", "b"}, rows); err != nil {
			b.Fatal(err)
		}
	}
}
