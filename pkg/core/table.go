package core

import (
	"fmt"
	"sort"
)

// Text is an optional text cell. The zero value is null.
type Text struct {
	Value string
	Valid bool
}

// Some returns a non-null cell holding s.
func Some(s string) Text {
	return Text{Value: s, Valid: true}
}

// Null returns a null cell.
func Null() Text {
	return Text{}
}

// String returns the cell value, or "" for null.
func (t Text) String() string {
	return t.Value
}

// Column is a named sequence of optional text values.
type Column struct {
	Name   string
	Values []Text
}

// Table is an in-memory columnar value. All columns of a valid table have the
// same length; use Validate before relying on that for tables built by hand.
type Table struct {
	Columns []Column
}

// Shape is a table's (rows, columns) pair.
type Shape struct {
	Rows    int
	Columns int
}

// String renders the shape as "rows×columns".
func (s Shape) String() string {
	return fmt.Sprintf("%d×%d", s.Rows, s.Columns)
}

// NewTable builds a table from columns and validates it.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{Columns: columns}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromRows builds a table from column names and row-major string values.
// Every row must have exactly one value per column.
func FromRows(names []string, rows [][]string) (*Table, error) {
	t := &Table{Columns: make([]Column, len(names))}
	for i, name := range names {
		t.Columns[i] = Column{Name: name, Values: make([]Text, 0, len(rows))}
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, want %d", r, len(row), len(names))
		}
		for i, v := range row {
			t.Columns[i].Values = append(t.Columns[i].Values, Some(v))
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NumRows returns the row count, taken from the first column.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Shape returns the (rows, columns) pair.
func (t *Table) Shape() Shape {
	return Shape{Rows: t.NumRows(), Columns: t.NumColumns()}
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, t.NumColumns())
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Text {
	row := make([]Text, len(t.Columns))
	for c, col := range t.Columns {
		row[c] = col.Values[i]
	}
	return row
}

// Validate checks that column names are non-empty and unique and that every
// column has the same number of values.
func (t *Table) Validate() error {
	if t == nil {
		return fmt.Errorf("nil table")
	}
	seen := make(map[string]struct{}, len(t.Columns))
	rows := t.NumRows()
	for i, col := range t.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[col.Name] = struct{}{}
		if len(col.Values) != rows {
			return fmt.Errorf("column %q has %d values, want %d", col.Name, len(col.Values), rows)
		}
	}
	return nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, col := range t.Columns {
		values := make([]Text, len(col.Values))
		copy(values, col.Values)
		out.Columns[i] = Column{Name: col.Name, Values: values}
	}
	return out
}

// Equal reports whether two tables have the same columns, in the same order,
// with the same cells. This is a full comparison; change detection for
// rendering uses the coarser shape rule in pkg/change instead.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == nil && other == nil
	}
	if len(t.Columns) != len(other.Columns) {
		return false
	}
	for i, col := range t.Columns {
		o := other.Columns[i]
		if col.Name != o.Name || len(col.Values) != len(o.Values) {
			return false
		}
		for r, v := range col.Values {
			if v != o.Values[r] {
				return false
			}
		}
	}
	return true
}

// Record is a single row addressed by column name.
type Record map[string]Text

// AppendRecord appends rec as a new row. Columns missing from rec are null.
// A key that does not name a column is an error and leaves t unchanged.
func (t *Table) AppendRecord(rec Record) error {
	var unknown []string
	for name := range rec {
		if _, ok := t.Column(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &UnknownColumnsError{Columns: unknown}
	}
	for i := range t.Columns {
		t.Columns[i].Values = append(t.Columns[i].Values, rec[t.Columns[i].Name])
	}
	return nil
}
