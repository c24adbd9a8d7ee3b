// Package engine ties dataset persistence together for callers such as the CLI.
// It owns the path registry, the dataset store, the in-memory cache, the
// optional activity journal and a lazily connected file adapter.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/recordkeeper/internal/cache"
	"github.com/leapstack-labs/recordkeeper/internal/paths"
	"github.com/leapstack-labs/recordkeeper/internal/state"
	"github.com/leapstack-labs/recordkeeper/internal/store"
	"github.com/leapstack-labs/recordkeeper/pkg/adapter"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"golang.org/x/sync/errgroup"

	_ "github.com/leapstack-labs/recordkeeper/pkg/adapters/duckdb"   // register duckdb adapter
	_ "github.com/leapstack-labs/recordkeeper/pkg/adapters/postgres" // register postgres adapter
)

// ErrNoJournal is returned by History when the engine runs without a journal.
var ErrNoJournal = errors.New("activity journal is disabled")

// Engine coordinates dataset reads and writes.
type Engine struct {
	paths   *paths.Registry
	store   *store.Store
	cache   *cache.Cache
	journal core.Journal
	logger  *slog.Logger

	// Database adapter (lazy initialized)
	db       adapter.Adapter
	dbConfig core.AdapterConfig
	dbMu     sync.Mutex

	// writeMu serializes read-modify-write cycles.
	writeMu sync.Mutex

	watchMu sync.Mutex
	watcher *cache.Watcher
}

// Config holds engine configuration.
type Config struct {
	// BaseDir is the application base directory
	BaseDir string
	// JournalPath is the path to the SQLite journal (empty disables the journal)
	JournalPath string
	// Adapter configures the file adapter used by Import and Export.
	// An empty type selects duckdb; an empty path is in-memory.
	Adapter core.AdapterConfig
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine. The journal is opened immediately; the file adapter
// is only connected when Import or Export is called.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("base directory not specified")
	}

	reg := paths.New(cfg.BaseDir)
	st := store.New(reg, store.WithLogger(logger))

	e := &Engine{
		paths:    reg,
		store:    st,
		cache:    cache.New(st, cache.WithLogger(logger)),
		logger:   logger,
		dbConfig: cfg.Adapter,
	}

	logger.Debug("initializing engine", "base_dir", reg.BaseDir(), "journal", cfg.JournalPath)

	if cfg.JournalPath != "" {
		j, err := openJournal(cfg.JournalPath, logger)
		if err != nil {
			return nil, err
		}
		e.journal = j
	}
	return e, nil
}

func openJournal(path string, logger *slog.Logger) (*state.SQLiteJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	j := state.NewSQLiteJournal(logger)
	if err := j.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := j.InitSchema(); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

// Paths returns the engine's path registry.
func (e *Engine) Paths() *paths.Registry { return e.paths }

// Cache returns the engine's dataset cache.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// HasJournal reports whether an activity journal is open.
func (e *Engine) HasJournal() bool { return e.journal != nil }

// Close releases the adapter connection and the journal.
func (e *Engine) Close() error {
	var errs []error

	e.dbMu.Lock()
	if e.db != nil {
		errs = append(errs, e.db.Close())
		e.db = nil
	}
	e.dbMu.Unlock()

	if e.journal != nil {
		errs = append(errs, e.journal.Close())
	}
	return errors.Join(errs...)
}

// InitResult reports what Init did for one dataset.
type InitResult struct {
	Dataset core.DatasetID
	Path    string
	Outcome store.Outcome
	Shape   core.Shape
}

// Init ensures every dataset file exists, creating empty ones from the
// catalog, and warms the cache with what it read. Results are in dataset order.
func (e *Engine) Init(ctx context.Context) ([]InitResult, error) {
	ids := core.AllDatasets()
	results := make([]InitResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			t, outcome, err := e.store.Open(gctx, id)
			if err != nil {
				return err
			}
			e.cache.Put(id, t)
			results[i] = InitResult{
				Dataset: id,
				Path:    e.paths.DatasetLocation(id),
				Outcome: outcome,
				Shape:   t.Shape(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Outcome == store.OutcomeCreated {
			e.record(ctx, &core.Event{Dataset: r.Dataset, Kind: core.EventCreated, Columns: r.Shape.Columns})
		}
	}
	return results, nil
}

// Datasets describes every dataset file without creating any.
func (e *Engine) Datasets() ([]store.Info, error) {
	infos := make([]store.Info, 0, len(core.AllDatasets()))
	for _, id := range core.AllDatasets() {
		info, err := e.store.Stat(id)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// History returns journal events newest first. A nil dataset lists all.
func (e *Engine) History(ctx context.Context, dataset *core.DatasetID, limit int) ([]*core.Event, error) {
	if e.journal == nil {
		return nil, ErrNoJournal
	}
	return e.journal.List(ctx, dataset, limit)
}

// record writes a journal event. Journal failures are logged, not returned.
func (e *Engine) record(ctx context.Context, ev *core.Event) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ctx, ev); err != nil {
		e.logger.Warn("failed to record journal event",
			"dataset", ev.Dataset.Name(), "kind", string(ev.Kind), "error", err)
	}
}

// ensureDBConnected lazily connects the file adapter.
func (e *Engine) ensureDBConnected(ctx context.Context) (adapter.Adapter, error) {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.db != nil {
		return e.db, nil
	}

	e.logger.Debug("connecting file adapter", "adapter_type", e.dbConfig.Type)
	db, err := adapter.Open(ctx, e.dbConfig, e.logger)
	if err != nil {
		return nil, err
	}
	e.db = db
	return db, nil
}
