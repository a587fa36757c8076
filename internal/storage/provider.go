// Package storage defines the vault file-system abstraction.
package storage

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/starford/granola-sync/internal/models"
)

// Provider is the interface for vault file operations. Paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a file or folder is present at path.
	Exists(path string) (bool, error)
	// Write atomically writes content to path, creating parent folders.
	Write(path string, content []byte) error
	// Create writes content to a path that must not exist yet.
	Create(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
