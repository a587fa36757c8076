package frontmatter

import (
	"strings"
	"time"

	"github.com/starford/granola-sync/internal/metadata"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/names"
)

// TimestampLayout is the minute-precision layout of every date field.
const TimestampLayout = "2006-01-02 15:04"

// URLPrefix is prepended to the document id for granola_url.
const URLPrefix = "https://notes.granola.ai/d/"

// Options configures header assembly.
type Options struct {
	Fields         []FieldSetting
	Filter         metadata.ResponseFilter
	SelfName       string
	AutoDetectSelf bool
	DetectPlatform bool
	ConvertUmlauts bool
	IncludeEmails  bool
	Category       string
	Tags           []string
	Location       *time.Location
}

// Builder assembles the frontmatter of one document.
type Builder struct {
	doc  *models.Document
	opts Options
	loc  *time.Location
	self string
}

// NewBuilder prepares a builder for doc.
func NewBuilder(doc *models.Document, opts Options) *Builder {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Builder{
		doc:  doc,
		opts: opts,
		loc:  loc,
		self: metadata.ResolveSelfName(doc, opts.SelfName, opts.AutoDetectSelf),
	}
}

// Build returns the complete delimited frontmatter block, ending in a newline.
func (b *Builder) Build() string {
	var sb strings.Builder
	sb.WriteString(Delimiter + "\n")
	for _, line := range b.Lines() {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(Delimiter + "\n")
	return sb.String()
}

// Lines returns the header lines without delimiters.
func (b *Builder) Lines() []string {
	var out []string
	for _, f := range NormalizeFields(b.opts.Fields) {
		if !f.Enabled && !f.Key.Required() {
			continue
		}
		out = append(out, b.Field(f.Key)...)
	}
	return out
}

// Field returns the lines of a single field, or nil when the field is omitted.
func (b *Builder) Field(key FieldKey) []string {
	d := b.doc
	switch key {
	case FieldCategory:
		if strings.TrimSpace(b.opts.Category) == "" {
			return nil
		}
		return scalarLines(key, strings.TrimSpace(b.opts.Category))
	case FieldType, FieldTopics:
		return scalarLines(key, "")
	case FieldDate:
		start := d.CreatedAt
		if d.Calendar != nil && !d.Calendar.Start.IsZero() {
			start = d.Calendar.Start
		}
		return scalarLines(key, b.Timestamp(start))
	case FieldDateEnd:
		if d.Calendar == nil || d.Calendar.End.IsZero() {
			return nil
		}
		return scalarLines(key, b.Timestamp(d.Calendar.End))
	case FieldNoteStarted:
		return scalarLines(key, b.Timestamp(d.CreatedAt))
	case FieldNoteEnded:
		return scalarLines(key, b.Timestamp(LastUpdated(d)))
	case FieldOrg:
		return listLines(key, links(metadata.Companies(d, b.opts.Filter)))
	case FieldLoc:
		var loc []string
		if b.opts.DetectPlatform {
			if p := metadata.Platform(d); p != "" {
				loc = append(loc, Link(p))
			}
		}
		return listLines(key, loc)
	case FieldPeople:
		return listLines(key, links(b.People()))
	case FieldTags:
		tags := nonEmpty(b.opts.Tags)
		if len(tags) == 0 {
			return nil
		}
		return listLines(key, tags)
	case FieldEmails:
		if !b.opts.IncludeEmails {
			return nil
		}
		emails := metadata.AttendeeEmails(d, b.opts.Filter)
		if len(emails) == 0 {
			return nil
		}
		return listLines(key, emails)
	case FieldGranolaID:
		return scalarLines(key, d.ID)
	case FieldTitle:
		return scalarLines(key, d.Title)
	case FieldGranolaURL:
		return scalarLines(key, URLPrefix+d.ID)
	}
	return nil
}

// People returns attendee display names with the self name removed.
func (b *Builder) People() []string {
	raw := metadata.AttendeeNames(b.doc, b.opts.Filter)
	self := b.self
	if b.opts.ConvertUmlauts {
		for i := range raw {
			raw[i] = names.ConvertGermanUmlauts(raw[i])
		}
		self = names.ConvertGermanUmlauts(self)
	}
	return dedupe(metadata.ExcludeSelf(raw, self))
}

// Timestamp formats t in the builder's location at minute precision.
func (b *Builder) Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(b.loc).Format(TimestampLayout)
}

// LastUpdated is the document's update time, falling back to its creation time.
func LastUpdated(d *models.Document) time.Time {
	if d.UpdatedAt.IsZero() {
		return d.CreatedAt
	}
	return d.UpdatedAt
}

func links(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, Link(v))
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// dedupe removes repeats that umlaut conversion may introduce.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
