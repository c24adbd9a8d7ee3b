package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Adapter defines the interface that all external data adapters must implement.
// Adapters move tables between recordkeeper and formats it does not own.
type Adapter interface {
	// Connect establishes a connection to the engine backing the adapter.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the connection.
	Close() error

	// ReadFile reads an external file into a table of text columns.
	ReadFile(ctx context.Context, path string, format FileFormat) (*Table, error)

	// WriteFile writes a table to an external file, replacing it.
	WriteFile(ctx context.Context, path string, t *Table, format FileFormat) error
}

// AdapterConfig holds configuration for connecting an adapter.
type AdapterConfig struct {
	Type    string
	Path    string
	Options map[string]string
	Params  map[string]any
}

// FileFormat names an external file format.
type FileFormat string

// Supported external formats.
const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
)

// ParseFileFormat parses a format name. The empty string is not a format.
func ParseFileFormat(s string) (FileFormat, error) {
	switch FileFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet, "pq":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("unsupported file format %q (want csv or parquet)", s)
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (FileFormat, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer file format of %s: no extension", path)
	}
	return ParseFileFormat(ext)
}
