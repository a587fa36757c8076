package metadata

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/granola-sync/internal/models"
)

// Attendee is a merged view of one meeting participant.
type Attendee struct {
	Name    string
	Email   string
	Status  models.ResponseStatus
	Company string
}

// Attendees merges the people list and the calendar attendee list,
// de-duplicated by lower-cased email, people first. Attendees rejected by
// the filter are dropped but still claim their email so the other source
// cannot re-add them. Name is left empty when neither source carries one.
func Attendees(doc *models.Document, filter ResponseFilter) []Attendee {
	if doc == nil {
		return nil
	}
	processed := make(map[string]struct{})
	claim := func(email string) bool {
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" {
			return true
		}
		if _, ok := processed[key]; ok {
			return false
		}
		processed[key] = struct{}{}
		return true
	}

	var out []Attendee
	if doc.People != nil {
		for _, p := range doc.People.Attendees {
			if !claim(p.Email) || !filter.Allows(p.ResponseStatus) {
				continue
			}
			out = append(out, Attendee{
				Name:    personName(p),
				Email:   p.Email,
				Status:  p.ResponseStatus,
				Company: strings.TrimSpace(p.Details.Company),
			})
		}
	}
	if doc.Calendar != nil {
		for _, a := range doc.Calendar.Attendees {
			if !claim(a.Email) || !filter.Allows(a.ResponseStatus) {
				continue
			}
			out = append(out, Attendee{
				Name:   strings.TrimSpace(a.DisplayName),
				Email:  a.Email,
				Status: a.ResponseStatus,
			})
		}
	}
	return out
}

// AttendeeNames returns unique display names: named attendees in merge
// order, followed by names derived from the email of nameless attendees.
func AttendeeNames(doc *models.Document, filter ResponseFilter) []string {
	attendees := Attendees(doc, filter)
	seen := make(map[string]struct{}, len(attendees))
	var out []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, a := range attendees {
		add(a.Name)
	}
	for _, a := range attendees {
		if a.Name == "" {
			add(NameFromEmail(a.Email))
		}
	}
	return out
}

// AttendeeEmails returns unique raw emails in merge order.
func AttendeeEmails(doc *models.Document, filter ResponseFilter) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, a := range Attendees(doc, filter) {
		email := strings.TrimSpace(a.Email)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// Companies returns the unique companies of the creator and every attendee
// of the people list that passes the filter, in order of first appearance.
func Companies(doc *models.Document, filter ResponseFilter) []string {
	if doc == nil || doc.People == nil {
		return nil
	}
	var people []models.Person
	if doc.People.Creator != nil {
		people = append(people, *doc.People.Creator)
	}
	people = append(people, doc.People.Attendees...)

	seen := make(map[string]struct{})
	var out []string
	for _, p := range people {
		if !filter.Allows(p.ResponseStatus) {
			continue
		}
		c := strings.TrimSpace(p.Details.Company)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// personName resolves a display name: full name, given+family name, given
// name, display name, then the plain name field.
func personName(p models.Person) string {
	d := p.Details
	given := strings.TrimSpace(d.GivenName)
	family := strings.TrimSpace(d.FamilyName)
	switch {
	case strings.TrimSpace(d.FullName) != "":
		return strings.TrimSpace(d.FullName)
	case given != "" && family != "":
		return given + " " + family
	case given != "":
		return given
	case strings.TrimSpace(p.DisplayName) != "":
		return strings.TrimSpace(p.DisplayName)
	default:
		return strings.TrimSpace(p.Name)
	}
}

// NameFromEmail derives a title-cased name from the local part of an email:
// "jane.doe@example.com" becomes "Jane Doe".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ", "+", " ").Replace(local)
	local = strings.Join(strings.Fields(local), " ")
	if local == "" {
		return ""
	}
	// Casers are stateful, so one is built per call.
	return cases.Title(language.Und).String(local)
}
