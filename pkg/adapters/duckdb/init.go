package duckdb

// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/recordkeeper/pkg/adapters/duckdb"

import (
	"log/slog"

	"github.com/leapstack-labs/recordkeeper/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
