package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/recordkeeper/internal/paths"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// DefaultDebounce is how long a burst of events on one dataset must settle
// before the dataset is invalidated.
const DefaultDebounce = 100 * time.Millisecond

// Watcher invalidates cache slots when dataset files change on disk.
type Watcher struct {
	cache    *Cache
	paths    *paths.Registry
	logger   *slog.Logger
	debounce time.Duration
	onChange func(core.DatasetID)
	fsw      *fsnotify.Watcher

	mu     sync.Mutex
	timers map[core.DatasetID]*time.Timer
	own    map[core.DatasetID]os.FileInfo
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long the watcher waits for a burst of events on one
// dataset to settle before invalidating it.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithOnInvalidate registers fn to run after a changed dataset is invalidated.
// fn runs on the dataset's debounce timer goroutine, or on the Run goroutine
// after an event overflow.
func WithOnInvalidate(fn func(core.DatasetID)) WatchOption {
	return func(w *Watcher) { w.onChange = fn }
}

// NewWatcher starts watching the registry's database directory, which must
// exist. Events are only processed once Run is called; Run closes the watcher.
func NewWatcher(c *Cache, registry *paths.Registry, opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(registry.DatabaseDir()); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", registry.DatabaseDir(), err)
	}

	w := &Watcher{
		cache:    c,
		paths:    registry,
		logger:   slog.New(slog.DiscardHandler),
		debounce: DefaultDebounce,
		fsw:      fsw,
		timers:   make(map[core.DatasetID]*time.Timer),
		own:      make(map[core.DatasetID]os.FileInfo),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Expect records the dataset file as just written by this process. Must be
// called after the write completes. Events are ignored while the file on disk
// is still that file; any later write by someone else invalidates as usual.
func (w *Watcher) Expect(id core.DatasetID) {
	info, err := os.Stat(w.paths.DatasetLocation(id))

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		delete(w.own, id)
		return
	}
	w.own[id] = info
}

// ownWrite reports whether the dataset file is unchanged since Expect.
func (w *Watcher) ownWrite(id core.DatasetID) bool {
	w.mu.Lock()
	own, ok := w.own[id]
	w.mu.Unlock()
	if !ok {
		return false
	}

	info, err := os.Stat(w.paths.DatasetLocation(id))
	if err != nil {
		return false
	}
	return os.SameFile(own, info) && info.Size() == own.Size() && info.ModTime().Equal(own.ModTime())
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, ok := w.paths.DatasetForPath(event.Name)
			if !ok {
				continue
			}
			w.schedule(id, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.handleError(err)
		}
	}
}

// handleError logs err. After an event overflow any dataset may have changed
// unseen, so every slot is invalidated and reported.
func (w *Watcher) handleError(err error) {
	if !errors.Is(err, fsnotify.ErrEventOverflow) {
		w.logger.Error("watcher error", "error", err)
		return
	}

	w.logger.Warn("file events overflowed, invalidating all datasets", "error", err)
	w.stopTimers()
	w.cache.InvalidateAll()
	if w.onChange != nil {
		for _, id := range core.AllDatasets() {
			w.onChange(id)
		}
	}
}

func (w *Watcher) schedule(id core.DatasetID, event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Debounce
	if t := w.timers[id]; t != nil {
		t.Stop()
	}
	w.timers[id] = time.AfterFunc(w.debounce, func() {
		if w.ownWrite(id) {
			w.logger.Debug("ignoring own write", "dataset", id.Name(), "file", event.Name)
			return
		}
		w.logger.Debug("dataset file changed, invalidating", "dataset", id.Name(), "file", event.Name, "op", event.Op.String())
		w.cache.Invalidate(id)
		if w.onChange != nil {
			w.onChange(id)
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}
