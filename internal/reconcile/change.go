package reconcile

import (
	"time"

	"github.com/starford/granola-sync/internal/models"
)

// Action is the outcome of reconciling one document.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionPartial   Action = "partial"
	ActionUnchanged Action = "unchanged"
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// Synced reports whether the document counts as synced.
func (a Action) Synced() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionPartial, ActionUnchanged:
		return true
	}
	return false
}

// Wrote reports whether the note file was written.
func (a Action) Wrote() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionPartial:
		return true
	}
	return false
}

// Change records what happened to one document.
type Change struct {
	Action    Action
	GranolaID string
	Title     string
	Path      string
	Start     time.Time
	// Before and After hold the note content around a write.
	Before string
	After  string
	// Attachments lists attachment files written for the note.
	Attachments []string
	Err         error
}

// Result summarizes a run.
type Result struct {
	Changes []Change
	DryRun  bool
}

// Count returns the number of changes with the given action.
func (r *Result) Count(a Action) int {
	n := 0
	for _, c := range r.Changes {
		if c.Action == a {
			n++
		}
	}
	return n
}

// SyncedCount returns the number of documents that count as synced.
func (r *Result) SyncedCount() int {
	n := 0
	for _, c := range r.Changes {
		if c.Action.Synced() {
			n++
		}
	}
	return n
}

// Synced returns the notes that count as synced, in processing order.
func (r *Result) Synced() []models.SyncedNote {
	var out []models.SyncedNote
	for _, c := range r.Changes {
		if !c.Action.Synced() {
			continue
		}
		out = append(out, models.SyncedNote{
			GranolaID: c.GranolaID,
			Path:      c.Path,
			Title:     c.Title,
			Start:     c.Start,
		})
	}
	return out
}
