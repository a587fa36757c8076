package api

import (
	"github.com/starford/granola-sync/internal/meetings"
	"github.com/starford/granola-sync/internal/syncer"
)

// StatusResponse is the current sync status.
type StatusResponse = syncer.Status

// MeetingDetail is the full meeting response type (aliased from the domain layer).
type MeetingDetail = meetings.Detail

// MeetingListItem is a lightweight item in a list response (aliased from the domain layer).
type MeetingListItem = meetings.Item

// MeetingListResponse wraps paginated meeting listings.
type MeetingListResponse struct {
	Meetings []MeetingListItem `json:"meetings" validate:"required"`
	Total    int               `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = meetings.Hit

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// SyncResponse summarizes a finished sync pass.
type SyncResponse struct {
	Status    syncer.Status `json:"status"`
	Created   int           `json:"created" example:"2"`
	Updated   int           `json:"updated" example:"1"`
	Unchanged int           `json:"unchanged" example:"10"`
	Skipped   int           `json:"skipped" example:"0"`
	Failed    int           `json:"failed" example:"0"`
	DailyNote string        `json:"daily_note,omitempty" example:"Daily/2025-01-01.md"`
}
