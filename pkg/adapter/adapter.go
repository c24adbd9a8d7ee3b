// Package adapter provides the registry and shared plumbing for external data
// adapters: engines that read and write file formats recordkeeper does not own
// (CSV, Parquet) and convert them to and from core.Table.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Adapter is a core.Adapter that also advertises the formats it handles.
type Adapter interface {
	core.Adapter

	// Formats lists the external file formats ReadFile and WriteFile accept.
	Formats() []core.FileFormat
}

// Supports reports whether a handles format f.
func Supports(a Adapter, f core.FileFormat) bool {
	for _, have := range a.Formats() {
		if have == f {
			return true
		}
	}
	return false
}
