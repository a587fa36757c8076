package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/granola-sync/internal/storage"
)

// EventKind classifies a watcher-driven index change.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind EventKind, path string)

const reconcileDelay = 200 * time.Millisecond

// Watcher keeps the index in step with edits made to the vault outside of
// sync runs, so that a note moved or retagged by hand is still found by its
// granola_id on the next run.
type Watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// NewWatcher creates a watcher over the vault rooted at root.
func NewWatcher(db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) *Watcher {
	return &Watcher{db: db, store: store, root: root, logger: logger, cb: cb}
}

// Run processes file change events until ctx is cancelled. New directories
// are added to the watch list as they appear. Rename events schedule a
// debounced reconciliation that drops index entries whose files are gone.
func (wt *Watcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, wt.root); err != nil {
		return err
	}
	wt.logger.Info("watcher: started", slog.String("root", wt.root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			wt.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			wt.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if wt.handle(w, ev) {
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			wt.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle applies one event and reports whether a reconciliation is needed.
func (wt *Watcher) handle(w *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if hidden(filepath.Base(ev.Name)) {
				return false
			}
			if err := addDirsRecursive(w, ev.Name); err != nil {
				wt.logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			wt.indexDir(ev.Name)
			return false
		}
	}

	if !strings.HasSuffix(ev.Name, ".md") {
		return false
	}
	rel, err := filepath.Rel(wt.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := EventUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = EventCreated
		}
		wt.index(rel, kind)
	case ev.Op&fsnotify.Remove != 0:
		wt.remove(rel)
	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports a rename on the old path only; the new path
		// arrives as a Create when it stays inside a watched folder.
		wt.remove(rel)
		return true
	}
	return false
}

func (wt *Watcher) index(rel string, kind EventKind) {
	data, err := wt.store.Read(rel)
	if err != nil {
		wt.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if cs, _ := wt.db.GetChecksum(rel); cs == storage.Checksum(data) {
		return
	}
	if err := wt.db.IndexFile(rel, data); err != nil {
		wt.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	wt.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", string(kind)))
	wt.notify(kind, rel)
}

func (wt *Watcher) remove(rel string) {
	if err := wt.db.DeleteNote(rel); err != nil {
		wt.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	wt.logger.Debug("watcher: deleted", slog.String("path", rel))
	wt.notify(EventDeleted, rel)
}

func (wt *Watcher) notify(kind EventKind, rel string) {
	if wt.cb != nil {
		wt.cb(kind, rel)
	}
}

// reconcile removes entries without a file on disk and indexes files that
// are missing or changed.
func (wt *Watcher) reconcile() {
	checksums, err := wt.db.AllChecksums()
	if err != nil {
		wt.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := wt.store.List("")
	if err != nil {
		wt.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			wt.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] != cs {
			wt.index(p, EventCreated)
		}
	}
}

// indexDir indexes any .md files found in a newly created directory.
func (wt *Watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(wt.root, p)
		if relErr != nil {
			return nil
		}
		wt.index(filepath.ToSlash(rel), EventCreated)
		return nil
	})
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
