// Package ingest lines up tables from external sources (spreadsheets, CSV,
// Parquet) with a dataset's schema before they are persisted.
package ingest

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/recordkeeper/internal/catalog"
	"github.com/leapstack-labs/recordkeeper/internal/registry"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// MissingColumnsError is returned when a source lacks columns the dataset
// requires on import.
type MissingColumnsError struct {
	Dataset core.DatasetID
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("import into %s: missing required columns %v", e.Dataset, e.Missing)
}

// Report summarizes how a source table was conformed.
type Report struct {
	Rows int
	// Mapped maps source headers to the dataset columns they filled.
	Mapped map[string]string
	// Dropped lists source headers that matched no column or named a column
	// an earlier header already supplied.
	Dropped []string
	// Filled lists dataset columns the source did not provide; they are null
	// unless a dataset rule sets them.
	Filled []string
}

// Headers returns the header registry used to match source columns of a dataset.
func Headers(id core.DatasetID) *registry.HeaderRegistry {
	r := registry.NewHeaderRegistry(catalog.Schema(id))
	for label, column := range commonLabels {
		r.RegisterLabel(column, label)
	}
	for _, l := range rulesFor(id).labels {
		r.RegisterLabel(l.column, l.text)
	}
	return r
}

// Conform maps src onto the dataset's schema. Columns are matched by name or
// known label, unknown source columns are dropped, and schema columns missing
// from the source are null. Dataset-specific rules then normalize values.
//
// Datasets whose schema declares no columns accept the source columns as-is,
// with their headers normalized.
func Conform(id core.DatasetID, src *core.Table) (*core.Table, Report, error) {
	if err := src.Validate(); err != nil {
		return nil, Report{}, fmt.Errorf("invalid source table: %w", err)
	}
	rep := Report{Rows: src.NumRows(), Mapped: make(map[string]string)}

	schema := catalog.Schema(id)
	if len(schema) == 0 {
		return conformFree(src, rep)
	}

	headers := Headers(id)
	mapping, dropped := headers.ResolveHeaders(src.ColumnNames())
	rep.Dropped = dropped

	bySchemaCol := make(map[string]int, len(mapping))
	for i, col := range mapping {
		if col == "" {
			continue
		}
		bySchemaCol[col] = i
		rep.Mapped[src.Columns[i].Name] = col
	}

	dr := rulesFor(id)
	var missing []string
	for _, col := range dr.required {
		if _, ok := bySchemaCol[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, rep, &MissingColumnsError{Dataset: id, Missing: missing}
	}

	out := &core.Table{Columns: make([]core.Column, len(schema))}
	for c, def := range schema {
		values := make([]core.Text, rep.Rows)
		if i, ok := bySchemaCol[def.Name]; ok {
			copy(values, src.Columns[i].Values)
		} else {
			rep.Filled = append(rep.Filled, def.Name)
		}
		out.Columns[c] = core.Column{Name: def.Name, Values: values}
	}

	dr.apply(out)
	return out, rep, nil
}

func conformFree(src *core.Table, rep Report) (*core.Table, Report, error) {
	out := &core.Table{Columns: make([]core.Column, 0, len(src.Columns))}
	for _, col := range src.Columns {
		name := registry.Normalize(col.Name)
		if name == "" || slices.ContainsFunc(out.Columns, func(c core.Column) bool { return c.Name == name }) {
			rep.Dropped = append(rep.Dropped, col.Name)
			continue
		}
		values := make([]core.Text, len(col.Values))
		copy(values, col.Values)
		out.Columns = append(out.Columns, core.Column{Name: name, Values: values})
		rep.Mapped[col.Name] = name
	}
	return out, rep, nil
}
