// Package cache memoizes dataset tables for the lifetime of a session.
//
// Each dataset has one slot that is either unloaded or loaded. The first
// GetOrLoad for a dataset fills its slot through the Loader; later calls
// return the memoized table without I/O until the slot is invalidated.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Loader produces a dataset's table, creating it if needed.
// *store.Store satisfies it.
type Loader interface {
	LoadOrCreate(ctx context.Context, id core.DatasetID) (*core.Table, error)
}

// slot holds one dataset. mu is held across check-then-fill so a dataset is
// loaded at most once even under concurrent demand.
type slot struct {
	mu     sync.Mutex
	loaded bool
	table  *core.Table
}

// Cache is a session-scoped arena of slots indexed by dataset.
// It is safe for concurrent use; different datasets load independently.
type Cache struct {
	loader Loader
	logger *slog.Logger
	slots  []*slot
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cache with every slot unloaded.
func New(loader Loader, opts ...Option) *Cache {
	ids := core.AllDatasets()
	c := &Cache{
		loader: loader,
		logger: slog.New(slog.DiscardHandler),
		slots:  make([]*slot, len(ids)),
	}
	for i := range c.slots {
		c.slots[i] = &slot{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) slotFor(id core.DatasetID) *slot {
	if !id.Valid() || int(id) >= len(c.slots) {
		panic(fmt.Sprintf("cache: unknown dataset id %d", int(id)))
	}
	return c.slots[id]
}

// GetOrLoad returns the dataset's table, loading it on first demand.
//
// The returned table is shared with the cache and with every other caller:
// Clone it before mutating, then hand the result back with Put. A failed
// load leaves the slot unloaded so the next call retries.
func (c *Cache) GetOrLoad(ctx context.Context, id core.DatasetID) (*core.Table, error) {
	s := c.slotFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.table, nil
	}

	t, err := c.loader.LoadOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.table = t
	s.loaded = true
	c.logger.Debug("cached dataset", "dataset", id.Name(), "rows", t.NumRows(), "columns", t.NumColumns())
	return t, nil
}

// Peek returns the memoized table without loading.
func (c *Cache) Peek(id core.DatasetID) (*core.Table, bool) {
	s := c.slotFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table, s.loaded
}

// Put marks the dataset loaded with t, replacing any memoized table.
func (c *Cache) Put(id core.DatasetID, t *core.Table) {
	s := c.slotFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	s.loaded = true
}

// Invalidate resets the dataset's slot to unloaded; the next GetOrLoad reads
// from disk again.
func (c *Cache) Invalidate(id core.DatasetID) {
	s := c.slotFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		c.logger.Debug("invalidated dataset", "dataset", id.Name())
	}
	s.table = nil
	s.loaded = false
}

// InvalidateAll resets every slot.
func (c *Cache) InvalidateAll() {
	for _, id := range core.AllDatasets() {
		c.Invalidate(id)
	}
}

// Loaded returns the datasets whose slots are loaded, in enumeration order.
func (c *Cache) Loaded() []core.DatasetID {
	var ids []core.DatasetID
	for _, id := range core.AllDatasets() {
		if _, ok := c.Peek(id); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Preload fills the given slots concurrently. With no ids it preloads every
// dataset. The first error is returned; slots that loaded stay loaded.
func (c *Cache) Preload(ctx context.Context, ids ...core.DatasetID) error {
	if len(ids) == 0 {
		ids = core.AllDatasets()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			_, err := c.GetOrLoad(gctx, id)
			return err
		})
	}
	return g.Wait()
}
