package metadata

import (
	"strings"

	"github.com/starford/granola-sync/internal/models"
)

type platformMarker struct {
	name    string
	markers []string
}

var platforms = []platformMarker{
	{name: "Zoom", markers: []string{"zoom.us", "zoom.com"}},
	{name: "Google Meet", markers: []string{"meet.google.com", "hangouts.google.com"}},
	{name: "Teams", markers: []string{"teams.microsoft.com", "teams.live.com"}},
}

// Platform detects the conferencing provider from the event location and
// conference entry points. The first source that matches wins; "" when
// nothing matches.
func Platform(doc *models.Document) string {
	if doc == nil || doc.Calendar == nil {
		return ""
	}
	sources := append([]string{doc.Calendar.Location}, doc.Calendar.ConferenceURIs...)
	for _, src := range sources {
		lower := strings.ToLower(src)
		if lower == "" {
			continue
		}
		for _, p := range platforms {
			for _, m := range p.markers {
				if strings.Contains(lower, m) {
					return p.name
				}
			}
		}
	}
	return ""
}
