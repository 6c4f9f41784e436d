package mysql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"csvaudit/internal/storage"
)

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		table string
		cols  []string
		nrows int
		want  string
	}{
		{
			name:  "single row",
			table: "audit.data",
			cols:  []string{"row_index", "n"},
			nrows: 1,
			want:  "INSERT INTO `audit`.`data` (`row_index`, `n`) VALUES (?, ?)",
		},
		{
			name:  "multi row",
			table: "data",
			cols:  []string{"a"},
			nrows: 3,
			want:  "INSERT INTO `data` (`a`) VALUES (?), (?), (?)",
		},
		{
			name:  "backtick in name",
			table: "t",
			cols:  []string{"we`ird"},
			nrows: 1,
			want:  "INSERT INTO `t` (`we``ird`) VALUES (?)",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := insertSQL(tt.table, tt.cols, tt.nrows); got != tt.want {
				t.Fatalf("insertSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkRows(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{i}
	}
	chunks := chunkRows(rows, 3)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0][0] != 6 {
		t.Fatalf("last chunk = %v", chunks[2])
	}
	if got := chunkRows(rows, 0); len(got) != 7 {
		t.Fatalf("size 0 chunks = %d, want 7", len(got))
	}
}

func TestCopyFrom_RowWidth(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	_, err := r.CopyFrom(context.Background(), "t", []string{"a", "b"}, [][]any{{1}})
	if err == nil || !strings.Contains(err.Error(), "row 0 length 1") {
		t.Fatalf("err = %v, want row width error", err)
	}
	if n, err := r.CopyFrom(context.Background(), "t", []string{"a"}, nil); n != 0 || err != nil {
		t.Fatalf("empty CopyFrom = %d, %v", n, err)
	}
}

func TestNewRepository_InvalidDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "no-slash-here"})
	if err == nil || !strings.Contains(err.Error(), "mysql dsn") {
		t.Fatalf("err = %v, want mysql dsn error", err)
	}
}

// Not parallel: swaps the package-level hook.
func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotDSN string
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotDSN = cfg.DSN
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	dsn := "audit:pw@tcp(localhost:3306)/audit"
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: dsn})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gotDSN != dsn {
		t.Fatalf("DSN = %q, want %q", gotDSN, dsn)
	}
	if repo.Dialect().Name != "mysql" {
		t.Fatalf("Dialect = %q", repo.Dialect().Name)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not call closeFn")
	}

	boom := errors.New("access denied")
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		return nil, nil, boom
	}
	if _, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: dsn}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
