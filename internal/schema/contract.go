package schema

import (
	"fmt"
	"strings"
)

// Field is the config form of a column.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"` // "integer" | "text"
}

// Contract is the JSON/YAML form of a Schema as it appears in job files.
type Contract struct {
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Columns []Field `json:"columns" yaml:"columns"`
}

// Compile turns the contract into a Schema.
func (c Contract) Compile() (*Schema, error) {
	if len(c.Columns) == 0 {
		return nil, fmt.Errorf("schema: contract %q declares no columns", c.Name)
	}
	cols := make([]Column, len(c.Columns))
	for i, f := range c.Columns {
		t, err := ParseType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		cols[i] = Column{Name: f.Name, Type: t}
	}
	return New(cols...)
}

// ParseContract parses the compact flag form "name:type,name:type" into a
// Contract without compiling it. A name with no ":type" suffix is a text
// column.
func ParseContract(spec string) Contract {
	var c Contract
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, ok := strings.Cut(part, ":")
		if !ok {
			typ = "text"
		}
		c.Columns = append(c.Columns, Field{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)})
	}
	return c
}

// ParseSpec parses and compiles the compact flag form.
func ParseSpec(spec string) (*Schema, error) {
	return ParseContract(spec).Compile()
}
