// Package datasource defines where raw input bytes come from. The parser
// only ever sees an io.Reader, so a local file, an HTTP download and an
// in-memory fixture are interchangeable.
package datasource

import (
	"context"
	"io"
	"strings"
)

// Source opens a fresh stream of input bytes. The caller closes it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// String is an in-memory Source, handy for tests and for piping literal
// fixtures through the same code path as files.
type String string

// Open returns a reader over s.
func (s String) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(string(s))), nil
}

// Reader wraps an already-open stream (e.g. os.Stdin). It can be opened once.
type Reader struct {
	R io.Reader
}

// Open returns the wrapped reader. Closing it is a no-op so that callers
// never close a stream they did not open.
func (r Reader) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(r.R), nil
}
