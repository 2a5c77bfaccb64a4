// Package watcher turns file system events under the documents directory
// into batches of upserts and deletions. Events are debounced: a batch is
// emitted once no further event arrived for the debounce interval.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/source"
)

// BatchHandler applies one debounced batch. Returning an error stops the
// watcher.
type BatchHandler func(ctx context.Context, batch *source.Static) error

type Watcher struct {
	dir      *source.Dir
	debounce time.Duration
	handler  BatchHandler
	logger   *slog.Logger
}

func New(dir *source.Dir, debounce time.Duration, handler BatchHandler) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		handler:  handler,
		logger:   slog.Default().With("component", "watcher", "root", dir.Root()),
	}
}

// Run watches until ctx is cancelled, which is not an error. Events still
// pending at cancellation are dropped; the next full build picks them up.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()
	if err := w.addTree(fsw, w.dir.Root()); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "debounce", w.debounce)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				w.logger.Info("dropping pending changes on shutdown", "files", len(pending))
			}
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.track(fsw, event, pending) {
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := w.batch(pending)
			pending = make(map[string]struct{})
			w.logger.Info("applying changes", "files", batch.Len())
			if err := w.handler(ctx, batch); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// track records event and reports whether it concerns a document.
func (w *Watcher) track(fsw *fsnotify.Watcher, event fsnotify.Event, pending map[string]struct{}) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(w.dir.Root(), event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if !w.dir.Matches(rel) {
		return false
	}
	w.logger.Debug("change detected", "file", rel, "op", event.Op.String())
	pending[rel] = struct{}{}
	return true
}

// batch resolves every pending path against the current directory state:
// files that still exist are upserted, missing ones deleted.
func (w *Watcher) batch(pending map[string]struct{}) *source.Static {
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)
	fsys := os.DirFS(w.dir.Root())
	items := make([]ingestion.Item, 0, len(names))
	for _, name := range names {
		info, err := fs.Stat(fsys, name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			items = append(items, ingestion.Item{Document: ingestion.Document{Filename: name, Deleted: true}})
		case err != nil:
			items = append(items, ingestion.Item{Document: ingestion.Document{Filename: name}, Err: err})
		case info.Mode().IsRegular():
			items = append(items, source.ReadFile(fsys, name))
		}
	}
	return source.NewStatic("watch", items...)
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
