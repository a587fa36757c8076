// Package meetings answers read queries about synced meeting notes for the
// HTTP and MCP surfaces.
package meetings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/granola-sync/internal/apperr"
	"github.com/starford/granola-sync/internal/index"
	"github.com/starford/granola-sync/internal/parser"
	"github.com/starford/granola-sync/internal/storage"
)

// Detail is the full representation of a meeting note.
type Detail struct {
	GranolaID   string         `json:"granola_id"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Date        string         `json:"date,omitempty"`
	NoteEnded   string         `json:"note_ended,omitempty"`
	People      []string       `json:"people"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Backlinks   []string       `json:"backlinks"`
}

// Item is a meeting in a listing.
type Item struct {
	GranolaID string    `json:"granola_id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Date      string    `json:"date,omitempty"`
	NoteEnded string    `json:"note_ended,omitempty"`
	People    []string  `json:"people"`
	Tags      []string  `json:"tags"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Hit is one search result.
type Hit struct {
	GranolaID string `json:"granola_id,omitempty"`
	Path      string `json:"path"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// Service reads meeting notes through the vault index.
type Service struct {
	store storage.Provider
	db    index.Reader
	dir   string
}

// NewService creates a service for meetings under dir.
func NewService(store storage.Provider, db index.Reader, dir string) *Service {
	return &Service{store: store, db: db, dir: dir}
}

// Get returns the note whose granola_id is id.
func (s *Service) Get(_ context.Context, id string) (*Detail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("meetings: empty id: %w", apperr.ErrNotFound)
	}
	p, err := s.db.FindByGranolaID(s.dir, id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	// The file changed since it was indexed.
	if res.GranolaID != id {
		return nil, fmt.Errorf("meetings: %s no longer carries %s: %w", p, id, apperr.ErrNotFound)
	}
	bl, err := s.db.Backlinks(strings.TrimSuffix(p, ".md"))
	if err != nil {
		return nil, err
	}
	return &Detail{
		GranolaID:   id,
		Path:        p,
		Title:       res.Title,
		Date:        res.Date,
		NoteEnded:   res.NoteEnded,
		People:      nonNilSlice(res.People),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Content:     string(data),
		Checksum:    storage.Checksum(data),
		Backlinks:   nonNilSlice(bl),
	}, nil
}

// List returns meetings newest first, optionally only those with person.
func (s *Service) List(_ context.Context, limit, offset int, person string) ([]Item, int, error) {
	rows, total, err := s.db.ListMeetings(limit, offset, strings.TrimSpace(person))
	if err != nil {
		return nil, 0, err
	}
	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = Item{
			GranolaID: r.GranolaID,
			Path:      r.Path,
			Title:     r.Title,
			Date:      r.Started,
			NoteEnded: r.NoteEnded,
			People:    nonNilSlice(r.People),
			Tags:      nonNilSlice(r.Tags),
			IndexedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search runs a full-text query over meeting titles, bodies and attendees.
func (s *Service) Search(_ context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Hit{}, nil
	}
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{GranolaID: r.GranolaID, Path: r.Path, Title: r.Title, Snippet: r.Snippet}
	}
	return hits, nil
}

// IsNotFound reports whether err means the meeting does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
