package engine

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/recordkeeper/internal/ingest"
	"github.com/leapstack-labs/recordkeeper/pkg/adapter"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Import reads an external file, maps it onto the dataset's schema and
// replaces the dataset's contents with the result. An empty format is
// inferred from the file extension.
func (e *Engine) Import(ctx context.Context, id core.DatasetID, path string, format core.FileFormat) (ingest.Report, error) {
	format, err := resolveFormat(path, format)
	if err != nil {
		return ingest.Report{}, err
	}

	db, err := e.fileAdapter(ctx, format)
	if err != nil {
		return ingest.Report{}, err
	}

	src, err := db.ReadFile(ctx, path, format)
	if err != nil {
		return ingest.Report{}, fmt.Errorf("import %s: %w", path, err)
	}

	t, rep, err := ingest.Conform(id, src)
	if err != nil {
		return rep, err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.save(ctx, id, t, core.EventImported, path); err != nil {
		return rep, err
	}

	e.logger.Info("dataset imported",
		"dataset", id.Name(), "path", path, "rows", rep.Rows,
		"dropped", len(rep.Dropped), "filled", len(rep.Filled))
	return rep, nil
}

// Export writes the dataset to an external file. An empty format is inferred
// from the file extension.
func (e *Engine) Export(ctx context.Context, id core.DatasetID, path string, format core.FileFormat) error {
	format, err := resolveFormat(path, format)
	if err != nil {
		return err
	}

	t, err := e.Table(ctx, id)
	if err != nil {
		return err
	}

	db, err := e.fileAdapter(ctx, format)
	if err != nil {
		return err
	}

	if err := db.WriteFile(ctx, path, t, format); err != nil {
		return fmt.Errorf("export %s: %w", id.Name(), err)
	}

	shape := t.Shape()
	e.record(ctx, &core.Event{Dataset: id, Kind: core.EventExported, Rows: shape.Rows, Columns: shape.Columns, Detail: path})
	return nil
}

func resolveFormat(path string, format core.FileFormat) (core.FileFormat, error) {
	if format != "" {
		return format, nil
	}
	return core.FormatFromPath(path)
}

func (e *Engine) fileAdapter(ctx context.Context, format core.FileFormat) (adapter.Adapter, error) {
	db, err := e.ensureDBConnected(ctx)
	if err != nil {
		return nil, err
	}
	if !adapter.Supports(db, format) {
		return nil, fmt.Errorf("file adapter does not support %s files", format)
	}
	return db, nil
}
