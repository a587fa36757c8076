package models

import "time"

// NoteMetadata is a lightweight representation of a vault file returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncedNote describes a vault note touched or confirmed by a sync run.
type SyncedNote struct {
	GranolaID string    `json:"granola_id"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
}
