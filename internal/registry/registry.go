// Package registry resolves external column headers to dataset columns.
// It maps the labels people type into spreadsheets ("ID Processo",
// "Objeto Resumido") to schema column names, so imports can line up
// foreign tables with a dataset without an explicit mapping file.
package registry

import (
	"strings"
	"sync"
	"unicode"

	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// HeaderRegistry maps header labels to the columns of one dataset schema.
type HeaderRegistry struct {
	mu sync.RWMutex

	// byColumn indexes schema column names: "id_processo" → "id_processo"
	byColumn map[string]string

	// byLabel maps normalized labels to columns:
	//   "objeto_resumido" → "objeto"
	//   "ptres"           → "programa_trabalho_resuminho"
	byLabel map[string]string
}

// NewHeaderRegistry creates a registry for the given schema.
func NewHeaderRegistry(schema core.ColumnSchema) *HeaderRegistry {
	r := &HeaderRegistry{
		byColumn: make(map[string]string, len(schema)),
		byLabel:  make(map[string]string),
	}
	for _, name := range schema.Names() {
		r.byColumn[name] = name
	}
	return r
}

// RegisterLabel adds a human-readable label for a schema column.
// Labels for columns outside the schema are ignored.
func (r *HeaderRegistry) RegisterLabel(column, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byColumn[column]; !ok {
		return
	}
	r.byLabel[Normalize(label)] = column
}

// Resolve attempts to resolve a header to a schema column.
// Returns the column and true if found, or empty string and false otherwise.
func (r *HeaderRegistry) Resolve(header string) (column string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 1. Try exact match on column name
	if col, ok := r.byColumn[header]; ok {
		return col, true
	}

	key := Normalize(header)

	// 2. Try registered labels
	if col, ok := r.byLabel[key]; ok {
		return col, true
	}

	// 3. Try the normalized header as a column name
	if col, ok := r.byColumn[key]; ok {
		return col, true
	}

	return "", false
}

// ResolveHeaders maps each header to a schema column. mapping[i] is the
// column for headers[i], or "" when the header matched nothing or named a
// column an earlier header already claimed. dropped lists both kinds of
// header, deduplicated, in input order.
func (r *HeaderRegistry) ResolveHeaders(headers []string) (mapping []string, dropped []string) {
	mapping = make([]string, len(headers))
	claimed := make(map[string]struct{})
	seenDropped := make(map[string]struct{})

	for i, header := range headers {
		if col, ok := r.Resolve(header); ok {
			if _, dup := claimed[col]; !dup {
				claimed[col] = struct{}{}
				mapping[i] = col
				continue
			}
		}
		if _, ok := seenDropped[header]; !ok {
			seenDropped[header] = struct{}{}
			dropped = append(dropped, header)
		}
	}
	return mapping, dropped
}

// Normalize folds a header into identifier form: accents stripped, lower
// case, and every run of non-alphanumeric characters collapsed to '_'.
//
//	"Objeto Resumido"             → "objeto_resumido"
//	"Material (M) ou Serviço (S)" → "material_m_ou_servico_s"
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
