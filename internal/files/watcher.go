// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package files

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/logging"
)

// DefaultDebounce is how long a file must be quiet before it is refreshed.
const DefaultDebounce = 300 * time.Millisecond

// Refresher re-reads one open file. The workspace store implements it.
type Refresher interface {
	RefreshPane(ctx context.Context, path string) error
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// Watcher refreshes tracked files after they change on disk. It watches
// the parent directories, since editors commonly save by renaming a temp
// file over the original.
type Watcher struct {
	target   Refresher
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	tracked map[string]bool      // absolute file path
	dirs    map[string]int       // watched dir -> tracked files inside
	pending map[string]time.Time // file path -> last change time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWatcher creates a watcher that calls target.RefreshPane for changed
// files. A debounce of zero or less uses DefaultDebounce.
func NewWatcher(target Refresher, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		target:   target,
		watcher:  fw,
		debounce: debounce,
		logger:   logging.OrNop(logger).Named("watcher"),
		tracked:  make(map[string]bool),
		dirs:     make(map[string]int),
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return w, nil
}

// Track replaces the set of watched files. Paths should be absolute.
func (w *Watcher) Track(paths []string) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[filepath.Clean(p)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.tracked {
		if !want[p] {
			delete(w.tracked, p)
			delete(w.pending, p)
			w.releaseDir(filepath.Dir(p))
		}
	}
	for p := range want {
		if w.tracked[p] {
			continue
		}
		dir := filepath.Dir(p)
		if w.dirs[dir] == 0 {
			if err := w.watcher.Add(dir); err != nil {
				// Non-fatal; the file may live in a folder that is gone
				w.logger.Debug("cannot watch directory", zap.String("dir", dir), zap.Error(err))
				continue
			}
		}
		w.dirs[dir]++
		w.tracked[p] = true
	}
}

// releaseDir drops one reference to dir. Caller holds mu.
func (w *Watcher) releaseDir(dir string) {
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return
	}
	delete(w.dirs, dir)
	if err := w.watcher.Remove(dir); err != nil {
		w.logger.Debug("failed to unwatch directory", zap.String("dir", dir), zap.Error(err))
	}
}

// Tracked returns the number of tracked files.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tracked)
}

// processEvents records changes to tracked files.
func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path := filepath.Clean(event.Name)
			w.mu.Lock()
			if w.tracked[path] {
				w.pending[path] = time.Now()
			}
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// processPending refreshes files that have been quiet for the debounce.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	interval := w.debounce / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				if err := w.target.RefreshPane(w.ctx, path); err != nil {
					w.logger.Warn("refresh failed", zap.String("path", path), zap.Error(err))
					continue
				}
				w.logger.Debug("refreshed from disk", zap.String("path", path))
			}
		}
	}
}

// Close stops watching and waits for the background goroutines to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
