// Package models defines the domain types shared across the sync pipeline.
package models

import "time"

// PanelKind tags a rich-text panel of a meeting document.
type PanelKind string

const (
	PanelMyNotes       PanelKind = "my_notes"
	PanelEnhancedNotes PanelKind = "enhanced_notes"
)

// ResponseStatus is a calendar invitation response.
type ResponseStatus string

const (
	ResponseUnknown     ResponseStatus = ""
	ResponseAccepted    ResponseStatus = "accepted"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseTentative   ResponseStatus = "tentative"
	ResponseNeedsAction ResponseStatus = "needsAction"
)

// Document is a meeting document as delivered by the remote source.
// It is immutable for the duration of one sync run.
type Document struct {
	ID          string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Panels      []Panel
	Calendar    *CalendarEvent
	People      *People
	Transcript  []TranscriptSegment
	Attachments []Attachment
}

// Panel returns the content tree of the first panel of the given kind, or nil.
func (d *Document) Panel(kind PanelKind) *Node {
	for _, p := range d.Panels {
		if p.Kind == kind {
			return p.Content
		}
	}
	return nil
}

// Panel is a rich-text tree tagged by kind.
type Panel struct {
	Kind    PanelKind
	Content *Node
}

// CalendarEvent is the calendar data attached to a document.
type CalendarEvent struct {
	Start          time.Time
	End            time.Time
	Location       string
	ConferenceURIs []string
	Attendees      []CalendarAttendee
}

// CalendarAttendee is one invitee of a calendar event.
type CalendarAttendee struct {
	Email          string
	DisplayName    string
	ResponseStatus ResponseStatus
	Self           bool
}

// People holds the creator and attendee list of a document.
type People struct {
	Creator   *Person
	Attendees []Person
}

// Person is an entry of the people list, optionally enriched.
type Person struct {
	Name           string
	DisplayName    string
	Email          string
	ResponseStatus ResponseStatus
	Details        PersonDetails
}

// PersonDetails carries enrichment data for a person.
type PersonDetails struct {
	FullName   string
	GivenName  string
	FamilyName string
	Company    string
}

// TranscriptSegment is one timestamped utterance.
type TranscriptSegment struct {
	Source  string
	Speaker string
	Text    string
	Start   time.Time
	End     time.Time
}

// Attachment describes a binary attached to a document.
type Attachment struct {
	ID     string
	URL    string
	Type   string
	Width  int
	Height int
}
