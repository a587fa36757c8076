package index

import (
	"log/slog"
	"time"

	"github.com/starford/granola-sync/internal/parser"
	"github.com/starford/granola-sync/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("index: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := db.IndexFile(m.Path, data); err != nil {
			logger.Warn("index: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("index: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("index: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("index: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it under path.
func (db *DB) IndexFile(path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	row := NoteRow{
		Path:      path,
		GranolaID: res.GranolaID,
		Title:     res.Title,
		Checksum:  storage.Checksum(data),
		Started:   res.Date,
		NoteEnded: res.NoteEnded,
		People:    res.People,
		Tags:      res.Tags,
		UpdatedAt: time.Now().UTC(),
	}
	return db.UpsertNote(row, res.Body, res.Links)
}
