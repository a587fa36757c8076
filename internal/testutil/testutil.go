// Package testutil provides shared test helpers for setting up vaults,
// databases, and meeting documents.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/granola-sync/internal/index"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "granola-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// ReadFile returns a vault file's content, failing the test when it is missing.
func ReadFile(t *testing.T, vaultDir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(vaultDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

// WriteFile creates a vault file with content.
func WriteFile(t *testing.T, vaultDir, rel, content string) {
	t.Helper()
	p := filepath.Join(vaultDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Paragraphs builds a doc node with one paragraph per text.
func Paragraphs(texts ...string) *models.Node {
	doc := &models.Node{Type: models.NodeDoc}
	for _, s := range texts {
		doc.Content = append(doc.Content, &models.Node{
			Type:    models.NodeParagraph,
			Content: []*models.Node{{Type: models.NodeText, Text: s}},
		})
	}
	return doc
}

// Meeting builds a document whose my-notes panel holds notes.
func Meeting(id, title string, created time.Time, notes ...string) models.Document {
	d := models.Document{
		ID:        id,
		Title:     title,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if len(notes) > 0 {
		d.Panels = []models.Panel{{Kind: models.PanelMyNotes, Content: Paragraphs(notes...)}}
	}
	return d
}

// Logger returns a JSON logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
