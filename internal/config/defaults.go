// Package config holds configuration shared by recordkeeper front ends:
// config file discovery, default values and the adapter section.
package config

import "path/filepath"

// Default configuration values.
const (
	DefaultJournalFile = ".recordkeeper/journal.db"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel    = "warn"
	DefaultAdapter     = "duckdb"
)

// ApplyAdapterDefaults fills unset adapter fields.
func ApplyAdapterDefaults(a *AdapterSection) {
	if a == nil {
		return
	}
	if a.Type == "" {
		a.Type = DefaultAdapter
	}
	if a.Type == "duckdb" && a.Path == "" {
		a.Path = ":memory:"
	}
}

// ResolvePath resolves path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, absolute or ":memory:".
func ResolvePath(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
