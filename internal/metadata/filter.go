// Package metadata derives attendee, organisation, platform, and identity
// information from meeting documents. Every function is pure.
package metadata

import "github.com/starford/granola-sync/internal/models"

// ResponseFilter selects which attendees contribute to derived metadata.
type ResponseFilter string

// Response filter modes.
const (
	FilterAll               ResponseFilter = "all"
	FilterAccepted          ResponseFilter = "accepted"
	FilterAcceptedTentative ResponseFilter = "accepted_tentative"
	FilterExcludeDeclined   ResponseFilter = "exclude_declined"
)

// Allows reports whether a person with the given status passes the filter.
// A missing status always passes; an unknown mode behaves like FilterAll.
func (f ResponseFilter) Allows(status models.ResponseStatus) bool {
	if status == models.ResponseUnknown {
		return true
	}
	switch f {
	case FilterAccepted:
		return status == models.ResponseAccepted
	case FilterAcceptedTentative:
		return status == models.ResponseAccepted || status == models.ResponseTentative
	case FilterExcludeDeclined:
		return status != models.ResponseDeclined
	default:
		return true
	}
}

// Valid reports whether f is one of the known modes.
func (f ResponseFilter) Valid() bool {
	switch f {
	case FilterAll, FilterAccepted, FilterAcceptedTentative, FilterExcludeDeclined:
		return true
	}
	return false
}
