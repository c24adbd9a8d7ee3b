// Package store owns the on-disk protocol of a single dataset file: load it
// if it exists, otherwise create it from the catalog schema, and overwrite
// it on save.
//
// A Store holds no per-dataset state. It is safe for concurrent use on
// different datasets; callers serialize access to the same dataset.
package store

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/recordkeeper/internal/catalog"
	"github.com/leapstack-labs/recordkeeper/internal/paths"
	"github.com/leapstack-labs/recordkeeper/internal/tablefile"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// dirPerm is the mode used when creating the database directory.
const dirPerm = 0o755

// Outcome reports what Open did to produce a table.
type Outcome int

// Open outcomes.
const (
	OutcomeLoaded Outcome = iota
	OutcomeCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeCreated:
		return "created"
	}
	return "unknown"
}

// Store loads, creates and saves dataset files below a path registry.
type Store struct {
	paths  *paths.Registry
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store over the given registry.
func New(registry *paths.Registry, opts ...Option) *Store {
	s := &Store{
		paths:  registry,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Paths returns the registry the store resolves locations with.
func (s *Store) Paths() *paths.Registry { return s.paths }

// LoadOrCreate returns the dataset's table, creating the file with the
// catalog schema and zero rows when it does not exist yet.
func (s *Store) LoadOrCreate(ctx context.Context, id core.DatasetID) (*core.Table, error) {
	t, _, err := s.Open(ctx, id)
	return t, err
}

// Open is LoadOrCreate that also reports whether the file was loaded or created.
//
// Errors are *core.DirectoryCreateError when the database directory cannot be
// created, *core.ReadError when an existing file cannot be read or parsed,
// and *core.WriteError when a new file cannot be written. A file that fails
// to parse is never replaced.
func (s *Store) Open(ctx context.Context, id core.DatasetID) (*core.Table, Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, OutcomeLoaded, err
	}
	path := s.paths.DatasetLocation(id)
	logger := s.logger.With("dataset", id.Name(), "path", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, OutcomeLoaded, &core.DirectoryCreateError{Path: dir, Err: err}
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		t, err := s.read(id, path)
		if err != nil {
			return nil, OutcomeLoaded, err
		}
		logger.Debug("loaded dataset", "rows", t.NumRows(), "columns", t.NumColumns())
		return t, OutcomeLoaded, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, OutcomeLoaded, &core.ReadError{Dataset: id, Path: path, Err: err}
	}

	empty := catalog.Schema(id).EmptyTable()
	if err := s.write(id, path, empty); err != nil {
		return nil, OutcomeCreated, err
	}
	// Read back so callers get exactly what is on disk.
	t, err := s.read(id, path)
	if err != nil {
		return nil, OutcomeCreated, err
	}
	logger.Info("created dataset", "columns", t.NumColumns())
	return t, OutcomeCreated, nil
}

// Save overwrites the dataset file with t. It never creates directories and
// never merges with the previous contents. On failure the error is a
// *core.WriteError and the previous file is left intact.
func (s *Store) Save(ctx context.Context, id core.DatasetID, t *core.Table) error {
	path := s.paths.DatasetLocation(id)
	if err := ctx.Err(); err != nil {
		return &core.WriteError{Dataset: id, Path: path, Err: err}
	}
	if err := t.Validate(); err != nil {
		return &core.WriteError{Dataset: id, Path: path, Err: err}
	}
	if err := s.write(id, path, t); err != nil {
		return err
	}
	s.logger.Debug("saved dataset", "dataset", id.Name(), "path", path,
		"rows", t.NumRows(), "columns", t.NumColumns())
	return nil
}

// Exists reports whether the dataset file is present.
func (s *Store) Exists(id core.DatasetID) (bool, error) {
	_, err := os.Stat(s.paths.DatasetLocation(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Info describes a dataset file without creating it.
type Info struct {
	Dataset core.DatasetID
	Path    string
	Exists  bool
	Size    int64
	ModTime time.Time
	Shape   core.Shape
}

// Stat reads the dataset file, if present, and reports its size and shape.
func (s *Store) Stat(id core.DatasetID) (Info, error) {
	path := s.paths.DatasetLocation(id)
	info := Info{Dataset: id, Path: path}

	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, &core.ReadError{Dataset: id, Path: path, Err: err}
	}
	info.Exists = true
	info.Size = fi.Size()
	info.ModTime = fi.ModTime()

	t, err := s.read(id, path)
	if err != nil {
		return info, err
	}
	info.Shape = t.Shape()
	return info, nil
}

func (s *Store) read(id core.DatasetID, path string) (*core.Table, error) {
	t, hdr, err := tablefile.Read(path)
	if err != nil {
		return nil, &core.ReadError{Dataset: id, Path: path, Err: err}
	}
	if hdr.Dataset != "" && hdr.Dataset != id.Name() {
		s.logger.Warn("dataset file belongs to another dataset",
			"dataset", id.Name(), "path", path, "file_dataset", hdr.Dataset)
	}
	return t, nil
}

func (s *Store) write(id core.DatasetID, path string, t *core.Table) error {
	if err := tablefile.WriteAtomic(path, t, tablefile.WithDataset(id.Name()), tablefile.WithLogger(s.logger)); err != nil {
		return &core.WriteError{Dataset: id, Path: path, Err: err}
	}
	return nil
}
