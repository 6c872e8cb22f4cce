package types

import "fmt"

// Row is a single table row in physical column order. A nil element is
// SQL NULL. The meaning of each position is given by a Layout.
type Row []Datum

// Clone returns a shallow copy of the row. Datum values are immutable
// except []byte, which callers must not mutate after handing a row to
// the routing core.
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	copy(cp, r)
	return cp
}

// Layout describes the physical column order of a table's rows.
// Parent and child tables in a partition hierarchy may order or name
// columns differently; the dispatch layer translates between layouts.
type Layout struct {
	// Columns is the ordered list of column definitions.
	Columns []Column `json:"columns"`
}

// Column is one column of a layout.
type Column struct {
	// Name is the column name. Names identify columns across layouts.
	Name string `json:"name"`

	// Type is the column's value type.
	Type ColumnType `json:"type"`

	// Dropped marks a column that still occupies a physical position
	// but holds no value. Dropped columns never participate in keys.
	Dropped bool `json:"dropped,omitempty"`
}

// Position returns the index of the named live column, or -1.
func (l Layout) Position(name string) int {
	for i, c := range l.Columns {
		if !c.Dropped && c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the layout for duplicate live column names.
func (l Layout) Validate() error {
	seen := make(map[string]bool, len(l.Columns))
	for _, c := range l.Columns {
		if c.Dropped {
			continue
		}
		if c.Name == "" {
			return fmt.Errorf("types: layout column with empty name")
		}
		if seen[c.Name] {
			return fmt.Errorf("types: duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
