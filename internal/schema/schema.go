// Package schema declares the ordered, typed columns an input file is
// expected to carry. A Schema is built once and never mutated; every lookup
// is by column name or by position.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Type is the declared type of a column.
type Type uint8

const (
	Integer Type = iota + 1
	Text
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ParseType maps a config spelling onto a Type. Accepted spellings are
// "integer"/"int" and "text"/"string", case-insensitive.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int":
		return Integer, nil
	case "text", "string":
		return Text, nil
	default:
		return 0, fmt.Errorf("schema: unknown column type %q", s)
	}
}

// Column is one (name, type) declaration.
type Column struct {
	Name string
	Type Type
}

// Schema is an ordered set of columns with a name index.
type Schema struct {
	cols  []Column
	index map[string]int
}

// New builds a Schema from cols in declaration order. Names are compared in
// Unicode NFC form, so "é" typed as one rune or as "e" plus a combining
// accent names the same column.
func New(cols ...Column) (*Schema, error) {
	s := &Schema{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		name := norm.NFC.String(c.Name)
		if name == "" {
			return nil, fmt.Errorf("schema: column %d has an empty name", i)
		}
		if c.Type != Integer && c.Type != Text {
			return nil, fmt.Errorf("schema: column %q has unsupported type %v", name, c.Type)
		}
		if first, dup := s.index[name]; dup {
			return nil, &DuplicateColumnError{Name: name, First: first, Second: i}
		}
		s.index[name] = i
		s.cols = append(s.cols, Column{Name: name, Type: c.Type})
	}
	return s, nil
}

// MustNew is New for fixed, known-good declarations (tests, examples).
func MustNew(cols ...Column) *Schema {
	s, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.cols) }

// Columns returns a copy of the column declarations in order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.Name
	}
	return out
}

// At returns the column at position i. It panics when i is out of range,
// like a slice index.
func (s *Schema) At(i int) Column { return s.cols[i] }

// Lookup returns the column named name and its position.
func (s *Schema) Lookup(name string) (Column, int, error) {
	i, ok := s.index[norm.NFC.String(name)]
	if !ok {
		return Column{}, -1, &UnknownColumnError{Name: name}
	}
	return s.cols[i], i, nil
}

// TypeOf returns the declared type of the named column.
func (s *Schema) TypeOf(name string) (Type, error) {
	c, _, err := s.Lookup(name)
	if err != nil {
		return 0, err
	}
	return c.Type, nil
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, error) {
	_, i, err := s.Lookup(name)
	return i, err
}

func (s *Schema) String() string {
	parts := make([]string, len(s.cols))
	for i, c := range s.cols {
		parts[i] = c.Name + ":" + c.Type.String()
	}
	return strings.Join(parts, ",")
}
