package metadata

import (
	"strings"

	"github.com/starford/granola-sync/internal/models"
)

// SelfName finds the calendar attendee flagged as self and resolves their
// display name. It returns "" when no attendee carries the flag.
func SelfName(doc *models.Document) string {
	if doc == nil || doc.Calendar == nil {
		return ""
	}
	var self *models.CalendarAttendee
	for i := range doc.Calendar.Attendees {
		if doc.Calendar.Attendees[i].Self {
			self = &doc.Calendar.Attendees[i]
			break
		}
	}
	if self == nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(self.Email))

	var candidates []string
	if doc.People != nil {
		if c := doc.People.Creator; c != nil && email != "" && strings.EqualFold(strings.TrimSpace(c.Email), email) {
			candidates = append(candidates, c.Details.FullName, c.Name)
		}
		for _, p := range doc.People.Attendees {
			if email != "" && strings.EqualFold(strings.TrimSpace(p.Email), email) {
				candidates = append(candidates, p.Details.FullName)
				break
			}
		}
	}
	candidates = append(candidates, self.DisplayName, NameFromEmail(self.Email))

	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// ResolveSelfName returns override when set, otherwise the auto-detected
// name when autoDetect is on.
func ResolveSelfName(doc *models.Document, override string, autoDetect bool) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	if autoDetect {
		return SelfName(doc)
	}
	return ""
}

// MatchesSelf reports whether name probably refers to self. This is a
// best-effort heuristic, not identity resolution: it accepts a
// case-insensitive exact match, containment in either direction, or at
// least two shared words.
func MatchesSelf(name, self string) bool {
	a := strings.ToLower(strings.TrimSpace(name))
	b := strings.ToLower(strings.TrimSpace(self))
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	tokens := make(map[string]struct{})
	for _, t := range strings.Fields(b) {
		tokens[t] = struct{}{}
	}
	shared := 0
	for _, t := range strings.Fields(a) {
		if _, ok := tokens[t]; ok {
			shared++
			delete(tokens, t)
		}
	}
	return shared >= 2
}

// ExcludeSelf drops every name that MatchesSelf.
func ExcludeSelf(names []string, self string) []string {
	if strings.TrimSpace(self) == "" {
		return names
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !MatchesSelf(n, self) {
			out = append(out, n)
		}
	}
	return out
}
