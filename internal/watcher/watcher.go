// Package watcher watches the catalog database with fsnotify and reports debounced changes.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher invokes a callback when the database file or its write-ahead log changes.
// Bursts of events within the debounce window produce a single callback.
type Watcher struct {
	dbPath   string
	targets  map[string]bool
	onChange func()
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the 400ms debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher for the database at dbPath. onChange runs on its own goroutine
// after writes, creations, removals or renames of the database or its -wal file settle.
func NewWatcher(dbPath string, onChange func(), opts ...WatcherOption) *Watcher {
	clean := filepath.Clean(dbPath)
	if abs, err := filepath.Abs(clean); err == nil {
		clean = abs
	}
	w := &Watcher{
		dbPath:   clean,
		targets:  map[string]bool{clean: true, clean + "-wal": true},
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
// The directory containing the database must exist.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	dir := filepath.Dir(w.dbPath)
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch database directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("watch database directory: %s is not a directory", dir)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watching the directory keeps events flowing when the file is replaced by rename.
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch database directory: %w", err)
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting", zap.String("database", w.dbPath), zap.Duration("debounce", w.debounce))
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !w.targets[filepath.Clean(ev.Name)] {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		active := w.started
		w.mu.Unlock()
		if !active {
			return
		}
		w.logger.Debug("database changed (debounced)", zap.String("database", w.dbPath))
		if w.onChange != nil {
			w.onChange()
		}
	})
}

// Stop stops the watcher and releases resources. A pending debounced callback is dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
