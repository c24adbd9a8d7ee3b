package core

import (
	"fmt"
	"strings"
)

// DirectoryCreateError is returned when a dataset's parent directory cannot be created.
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("create directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error { return e.Err }

// ReadError is returned when an existing dataset file cannot be read or parsed.
// Callers must not replace the table with an empty one on a ReadError.
type ReadError struct {
	Dataset DatasetID
	Path    string
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read dataset %s from %s: %v", e.Dataset, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is returned when a table cannot be serialized or written.
// The previous file, if any, is left intact.
type WriteError struct {
	Dataset DatasetID
	Path    string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write dataset %s to %s: %v", e.Dataset, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// UnknownDatasetError is returned when a user-supplied name matches no dataset.
type UnknownDatasetError struct {
	Name string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("unknown dataset %q\nAvailable datasets: %v", e.Name, DatasetNames())
}

// UnknownColumnsError is returned when a record names columns the table does not have.
type UnknownColumnsError struct {
	Columns []string
}

func (e *UnknownColumnsError) Error() string {
	return fmt.Sprintf("unknown columns: [%s]", strings.Join(e.Columns, " "))
}
