package schema

import "fmt"

// DuplicateColumnError is returned by New when a column name repeats.
type DuplicateColumnError struct {
	Name   string
	First  int
	Second int
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("schema: duplicate column %q at positions %d and %d", e.Name, e.First, e.Second)
}

// UnknownColumnError is returned when a name does not match any column.
type UnknownColumnError struct {
	Name string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("schema: unknown column %q", e.Name)
}
