// Package core defines the shared language of recordkeeper.
//
// This package contains:
//   - Dataset identifiers (DatasetID) and their column schemas (ColumnSchema)
//   - The in-memory table value (Table, Column, Text) and its Shape
//   - Service interfaces (Adapter, Journal)
//   - Error kinds surfaced by the persistence layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
