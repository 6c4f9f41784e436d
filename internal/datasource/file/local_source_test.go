package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	csvparse "csvaudit/internal/parser/csv"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// TestLocal_FeedsLineReader opens an export-style file (BOM, CRLF, trailing
// newline) and checks the line reader sees exactly the records in it.
func TestLocal_FeedsLineReader(t *testing.T) {
	t.Parallel()

	src := NewLocal(writeCSV(t, "\uFEFF12,apple\r\nx,pear\r\n-3,\r\n"))
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	var got []string
	err = csvparse.ReadLines(context.Background(), rc, func(_ int, line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	want := []string{"12,apple", "x,pear", "-3,"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

// TestLocal_Reopen checks every Open returns an independent stream from
// the start of the file.
func TestLocal_Reopen(t *testing.T) {
	t.Parallel()

	src := NewLocal(writeCSV(t, "1\n2\n"))
	for i := 0; i < 2; i++ {
		rc, err := src.Open(context.Background())
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil || string(b) != "1\n2\n" {
			t.Fatalf("Open #%d read %q, %v", i, b, err)
		}
	}
}

func TestLocal_OpenErrors(t *testing.T) {
	t.Parallel()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	missing := filepath.Join(t.TempDir(), "missing.csv")

	tests := []struct {
		name     string
		path     string
		ctx      context.Context
		wantIs   error
		contains string
	}{
		{"missing file", missing, context.Background(), os.ErrNotExist, missing},
		{"directory", t.TempDir(), context.Background(), nil, "is a directory"},
		{"canceled context", writeCSV(t, "1\n"), canceled, context.Canceled, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rc, err := NewLocal(tt.path).Open(tt.ctx)
			if err == nil {
				rc.Close()
				t.Fatal("Open error = nil")
			}
			if rc != nil {
				t.Fatalf("Open returned a reader with error %v", err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Fatalf("err = %v, want errors.Is %v", err, tt.wantIs)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.contains)
			}
		})
	}
}

func TestLocal_Path(t *testing.T) {
	t.Parallel()

	if got := NewLocal("data/orders.csv").Path(); got != "data/orders.csv" {
		t.Fatalf("Path() = %q", got)
	}
}
