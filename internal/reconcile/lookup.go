package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/parser"
	"github.com/starford/granola-sync/internal/storage"
)

// Lookup resolves a granola_id to the note that carries it.
type Lookup interface {
	// FindByGranolaID returns the path of the note under dir whose header
	// granola_id equals id, or apperr.ErrNotFound.
	FindByGranolaID(dir, id string) (string, error)
	// IndexFile records a note written during the run.
	IndexFile(path string, data []byte) error
}

// ScanLookup finds notes by reading every file under the directory. It has
// no memory between calls.
type ScanLookup struct {
	Store storage.Provider
}

// FindByGranolaID implements Lookup.
func (s ScanLookup) FindByGranolaID(dir, id string) (string, error) {
	metas, err := s.Store.List(dir)
	if err != nil {
		return "", err
	}
	for _, m := range metas {
		data, err := s.Store.Read(m.Path)
		if err != nil {
			continue
		}
		if parser.GranolaID(data) == id {
			return m.Path, nil
		}
	}
	return "", apperr.ErrNotFound
}

// IndexFile implements Lookup.
func (ScanLookup) IndexFile(string, []byte) error { return nil }

// workspace is the per-run view of the vault. Writes made during the run are
// remembered so later documents see them, and in a dry run they never reach
// the store.
type workspace struct {
	store   storage.Provider
	lookup  Lookup
	dir     string
	dryRun  bool
	pending map[string][]byte
	deleted map[string]struct{}
	ids     map[string]string
}

func newWorkspace(store storage.Provider, lookup Lookup, dir string, dryRun bool) *workspace {
	return &workspace{
		store:   store,
		lookup:  lookup,
		dir:     dir,
		dryRun:  dryRun,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
		ids:     make(map[string]string),
	}
}

func (w *workspace) read(path string) ([]byte, error) {
	if data, ok := w.pending[path]; ok {
		return data, nil
	}
	if _, ok := w.deleted[path]; ok {
		return nil, fmt.Errorf("read %s: %w", path, apperr.ErrNotFound)
	}
	return w.store.Read(path)
}

func (w *workspace) exists(path string) (bool, error) {
	if _, ok := w.pending[path]; ok {
		return true, nil
	}
	if _, ok := w.deleted[path]; ok {
		return false, nil
	}
	return w.store.Exists(path)
}

// find returns the note carrying id, or "" when there is none. A path from
// the lookup is trusted only after its header is re-read and still matches.
func (w *workspace) find(id string) (string, error) {
	if p, ok := w.ids[id]; ok {
		return p, nil
	}
	p, err := w.lookup.FindByGranolaID(w.dir, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	data, err := w.read(p)
	if err == nil && parser.GranolaID(data) == id {
		return p, nil
	}
	// Stale lookup entry: fall back to a full scan of the directory.
	p, err = ScanLookup{Store: w}.FindByGranolaID(w.dir, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	return p, err
}

// write stores content at path. create refuses to replace an existing file.
func (w *workspace) write(path string, content []byte, create bool) error {
	if !w.dryRun {
		var err error
		if create {
			err = w.store.Create(path, content)
		} else {
			err = w.store.Write(path, content)
		}
		if err != nil {
			return err
		}
	}
	w.pending[path] = content
	delete(w.deleted, path)
	return nil
}

func (w *workspace) remove(path string) error {
	if !w.dryRun {
		if err := w.store.Delete(path); err != nil {
			return err
		}
	}
	delete(w.pending, path)
	w.deleted[path] = struct{}{}
	return nil
}

// remember records the owner of id for the rest of the run.
func (w *workspace) remember(id, path string, content []byte) error {
	w.ids[id] = path
	if w.dryRun {
		return nil
	}
	return w.lookup.IndexFile(path, content)
}

// The workspace is itself a read-only Provider for ScanLookup, so the
// fallback scan sees files written earlier in the run.

func (w *workspace) List(dir string) ([]models.NoteMetadata, error) {
	metas, err := w.store.List(dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(metas))
	out := metas[:0]
	for _, m := range metas {
		if _, gone := w.deleted[m.Path]; gone {
			continue
		}
		seen[m.Path] = struct{}{}
		out = append(out, m)
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"
	for p := range w.pending {
		if _, ok := seen[p]; ok {
			continue
		}
		if !strings.HasSuffix(p, ".md") {
			continue
		}
		if dir == "" || strings.HasPrefix(p, prefix) {
			out = append(out, models.NoteMetadata{Path: p})
		}
	}
	return out, nil
}

func (w *workspace) Read(path string) ([]byte, error)   { return w.read(path) }
func (w *workspace) Exists(path string) (bool, error)   { return w.exists(path) }
func (w *workspace) Write(path string, c []byte) error  { return w.write(path, c, false) }
func (w *workspace) Create(path string, c []byte) error { return w.write(path, c, true) }
func (w *workspace) Delete(path string) error           { return w.remove(path) }
