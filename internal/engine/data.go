package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/leapstack-labs/recordkeeper/internal/cache"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Table returns the dataset's table, loading or creating it on first use.
// The returned table is shared with the cache and must not be modified;
// Clone it first.
func (e *Engine) Table(ctx context.Context, id core.DatasetID) (*core.Table, error) {
	return e.cache.GetOrLoad(ctx, id)
}

// Save persists t as the dataset's contents and makes it the cached value.
// Unlike the store, it creates the database directory when missing.
func (e *Engine) Save(ctx context.Context, id core.DatasetID, t *core.Table) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.save(ctx, id, t, core.EventSaved, "")
}

func (e *Engine) save(ctx context.Context, id core.DatasetID, t *core.Table, kind core.EventKind, detail string) error {
	dir := e.paths.DatabaseDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.DirectoryCreateError{Path: dir, Err: err}
	}

	if err := e.store.Save(ctx, id, t); err != nil {
		return err
	}
	e.expect(id)
	e.cache.Put(id, t)

	shape := t.Shape()
	e.logger.Debug("dataset saved", "dataset", id.Name(), "rows", shape.Rows, "columns", shape.Columns)
	e.record(ctx, &core.Event{Dataset: id, Kind: kind, Rows: shape.Rows, Columns: shape.Columns, Detail: detail})
	return nil
}

// AppendRecord adds one row to the dataset and persists the result.
// The cached table is left untouched if the record or the save is rejected.
func (e *Engine) AppendRecord(ctx context.Context, id core.DatasetID, rec core.Record) (*core.Table, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	current, err := e.cache.GetOrLoad(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := next.AppendRecord(rec); err != nil {
		return nil, fmt.Errorf("append to %s: %w", id.Name(), err)
	}
	if err := e.save(ctx, id, next, core.EventSaved, "append"); err != nil {
		return nil, err
	}
	return next, nil
}

// Invalidate drops the cached table so the next read goes to disk.
func (e *Engine) Invalidate(id core.DatasetID) {
	e.cache.Invalidate(id)
}

// Reload drops every cached table and reads all datasets from disk again,
// creating missing files as a first load would.
func (e *Engine) Reload(ctx context.Context) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.cache.InvalidateAll()
	return e.cache.Preload(ctx)
}

// Watch invalidates cached datasets when their files change on disk, until
// ctx is done. Writes made through the engine do not trigger invalidation.
func (e *Engine) Watch(ctx context.Context) error {
	return e.WatchFunc(ctx, nil)
}

// WatchFunc is Watch with a callback run after each external change has
// invalidated a dataset. A nil onChange is allowed.
func (e *Engine) WatchFunc(ctx context.Context, onChange func(core.DatasetID)) error {
	w, err := cache.NewWatcher(e.cache, e.paths,
		cache.WithWatchLogger(e.logger), cache.WithOnInvalidate(onChange))
	if err != nil {
		return err
	}

	e.watchMu.Lock()
	e.watcher = w
	e.watchMu.Unlock()

	defer func() {
		e.watchMu.Lock()
		e.watcher = nil
		e.watchMu.Unlock()
	}()

	return w.Run(ctx)
}

func (e *Engine) expect(id core.DatasetID) {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil {
		e.watcher.Expect(id)
	}
}
