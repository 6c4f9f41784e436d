package csv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LineFunc receives each raw line with its 0-based record index. Returning a
// non-nil error stops ReadLines and that error is returned.
type LineFunc func(index int, line string) error

// ReadLines streams r line by line and calls fn for each record in order.
//
// Behavior:
//   - The line terminator ("\n" or "\r\n") is removed; nothing else is
//     trimmed.
//   - A UTF-8 BOM at the very start of the input is dropped.
//   - A final newline does not produce an extra empty record, but empty
//     lines in the middle of the input are records (and will not match a
//     multi-column schema).
//   - Lines of any length are supported; nothing is buffered beyond the
//     current line.
//
// ctx is checked between lines.
func ReadLines(ctx context.Context, r io.Reader, fn LineFunc) error {
	br := bufio.NewReaderSize(r, 64*1024)
	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read line %d: %w", index, err)
		}
		eof := err != nil
		if eof && line == "" {
			return nil
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if index == 0 {
			line = stripBOM(line)
		}
		if ferr := fn(index, line); ferr != nil {
			return ferr
		}
		index++

		if eof {
			return nil
		}
	}
}
