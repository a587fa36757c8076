// Package dailynote maintains a generated list of meeting links under a
// heading of the day's journal note.
package dailynote

import (
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/granola-sync/internal/filename"
)

// Defaults.
const (
	DefaultHeading    = "## Meetings"
	DefaultDateFormat = "YYYY-MM-DD"
)

var headingRe = regexp.MustCompile(`^(#{1,6})(?:[ \t]+(.*))?$`)

// Entry is one synced meeting referenced from the daily note.
type Entry struct {
	Start time.Time
	Path  string
	Title string
}

// Path returns the vault path of the daily note for day.
func Path(dir, dateFormat string, day time.Time) string {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	return path.Join(dir, filename.FormatDate(day, dateFormat)+".md")
}

// Lines renders entries as bullets sorted by time of day.
func Lines(entries []Entry, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return clock(sorted[i].Start.In(loc)) < clock(sorted[j].Start.In(loc))
	})
	out := make([]string, 0, len(sorted))
	for _, e := range sorted {
		target := strings.TrimSuffix(e.Path, ".md")
		out = append(out, "- "+e.Start.In(loc).Format("15:04")+" [["+target+"|"+e.Title+"]]")
	}
	return out
}

func clock(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

// UpsertSection replaces the section introduced by heading with heading plus
// list, or appends both when no such heading exists. The section ends before
// the next heading of the same or a shallower level.
func UpsertSection(content, heading string, list []string) string {
	if strings.TrimSpace(heading) == "" {
		heading = DefaultHeading
	}
	want := headingText(heading)
	if !strings.HasPrefix(strings.TrimSpace(heading), "#") {
		heading = "## " + strings.TrimSpace(heading)
	}

	lines := strings.Split(content, "\n")
	start, level := -1, 0
	inFence := false
	for i, line := range lines {
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if lvl, text, ok := parseHeading(line); ok && text == want {
			start, level = i, lvl
			break
		}
	}

	if start < 0 {
		section := strings.Join(append([]string{heading}, list...), "\n") + "\n"
		trimmed := strings.TrimRight(content, "\n")
		if trimmed == "" {
			return section
		}
		return trimmed + "\n\n" + section
	}

	end := len(lines)
	inFence = false
	for i := start + 1; i < len(lines); i++ {
		if isFence(lines[i]) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if lvl, _, ok := parseHeading(lines[i]); ok && lvl <= level {
			end = i
			break
		}
	}

	out := make([]string, 0, len(lines)+len(list))
	out = append(out, lines[:start+1]...)
	out = append(out, list...)
	if end < len(lines) {
		out = append(out, "")
		out = append(out, lines[end:]...)
	} else {
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

func parseHeading(line string) (int, string, bool) {
	m := headingRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

func headingText(heading string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(heading), "#"))
}

func isFence(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~")
}
