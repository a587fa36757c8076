package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/granola-sync/internal/apperr"
)

const (
	linkInline = "inline"
	linkPerson = "person"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	GranolaID string
	Title     string
	Checksum  string
	Started   string
	NoteEnded string
	People    []string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path      string
	GranolaID string
	Title     string
	Snippet   string
}

// UpsertNote inserts or replaces a note, its FTS entry, and links within a transaction.
// People are stored as person links so meetings can be looked up by attendee.
func (db *DB) UpsertNote(n NoteRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	peopleJSON, _ := json.Marshal(nonNil(n.People))
	tagsJSON, _ := json.Marshal(nonNil(n.Tags))

	// Upsert notes table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO notes (path, granola_id, title, checksum, started, note_ended, people, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			granola_id = excluded.granola_id,
			title      = excluded.title,
			checksum   = excluded.checksum,
			started    = excluded.started,
			note_ended = excluded.note_ended,
			people     = excluded.people,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.GranolaID, n.Title, n.Checksum, n.Started, n.NoteEnded,
		string(peopleJSON), string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, n.Title, body, n.People); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path)
	if len(links)+len(n.People) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(n.Path, target, linkInline); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
		for _, person := range n.People {
			if _, err := stmt.Exec(n.Path, person, linkPerson); err != nil {
				return fmt.Errorf("index: insert person link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, and outgoing links.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// FindByGranolaID returns the path of the note under dir whose granola_id
// equals id. An empty dir searches the whole vault.
func (db *DB) FindByGranolaID(dir, id string) (string, error) {
	var p string
	err := db.conn.QueryRow(`
		SELECT path FROM notes
		WHERE granola_id = ?
		  AND (? = '' OR substr(path, 1, length(?) + 1) = ? || '/')
		ORDER BY path
		LIMIT 1
	`, id, dir, dir, dir).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("index: find by granola id: %w", err)
	}
	return p, nil
}

const noteColumns = `path, granola_id, title, checksum, started, note_ended, people, tags, updated_at`

func scanNote(sc interface{ Scan(...any) error }) (*NoteRow, error) {
	var n NoteRow
	var people, tags string
	if err := sc.Scan(&n.Path, &n.GranolaID, &n.Title, &n.Checksum, &n.Started, &n.NoteEnded, &people, &tags, &n.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(people), &n.People)
	_ = json.Unmarshal([]byte(tags), &n.Tags)
	return &n, nil
}

// GetNote returns the indexed row for path.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	n, err := scanNote(db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// ListMeetings returns synced meetings, newest first, optionally only those
// attended by person. The second result is the total before paging.
func (db *DB) ListMeetings(limit, offset int, person string) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := `WHERE granola_id != ''`
	args := []any{}
	if person != "" {
		where += ` AND path IN (SELECT source FROM links WHERE type = ? AND target = ? COLLATE NOCASE)`
		args = append(args, linkPerson, person)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count meetings: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+noteColumns+` FROM notes `+where+
		` ORDER BY started DESC, path LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list meetings: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// Backlinks returns all note paths that link to the given target, either in
// the body or through the people list.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
