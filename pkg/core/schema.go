package core

import "fmt"

// ColumnType is the logical type of a dataset column.
// Every column is textual today; the type is recorded so the schema is self-describing.
type ColumnType string

// TypeText is the only column type in use.
const TypeText ColumnType = "text"

// ColumnDef declares one column of a dataset.
type ColumnDef struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// ColumnSchema is the ordered column list used to create an empty dataset.
// Order is significant: it becomes the column order on disk.
type ColumnSchema []ColumnDef

// TextColumns builds a schema of text columns in the given order.
func TextColumns(names ...string) ColumnSchema {
	schema := make(ColumnSchema, len(names))
	for i, name := range names {
		schema[i] = ColumnDef{Name: name, Type: TypeText}
	}
	return schema
}

// Names returns the column names in order.
func (s ColumnSchema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s ColumnSchema) Index(name string) int {
	for i, col := range s {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that names are non-empty and unique.
func (s ColumnSchema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, col := range s {
		if col.Name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}

// EmptyTable returns a zero-row table with one column per schema entry.
func (s ColumnSchema) EmptyTable() *Table {
	t := &Table{Columns: make([]Column, len(s))}
	for i, col := range s {
		t.Columns[i] = Column{Name: col.Name, Values: []Text{}}
	}
	return t
}
