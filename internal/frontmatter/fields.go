// Package frontmatter assembles the YAML header of synced meeting notes and
// edits headers of existing notes without disturbing unrelated keys.
package frontmatter

import "fmt"

// FieldKey names one frontmatter field.
type FieldKey string

// Known fields, in default order.
const (
	FieldCategory    FieldKey = "category"
	FieldType        FieldKey = "type"
	FieldDate        FieldKey = "date"
	FieldDateEnd     FieldKey = "dateEnd"
	FieldNoteStarted FieldKey = "noteStarted"
	FieldNoteEnded   FieldKey = "noteEnded"
	FieldOrg         FieldKey = "org"
	FieldLoc         FieldKey = "loc"
	FieldPeople      FieldKey = "people"
	FieldTopics      FieldKey = "topics"
	FieldTags        FieldKey = "tags"
	FieldEmails      FieldKey = "emails"
	FieldGranolaID   FieldKey = "granola_id"
	FieldTitle       FieldKey = "title"
	FieldGranolaURL  FieldKey = "granola_url"
)

// AllFields lists every field in default order.
var AllFields = []FieldKey{
	FieldCategory, FieldType, FieldDate, FieldDateEnd, FieldNoteStarted, FieldNoteEnded,
	FieldOrg, FieldLoc, FieldPeople, FieldTopics, FieldTags, FieldEmails,
	FieldGranolaID, FieldTitle, FieldGranolaURL,
}

// Required reports whether the field is emitted regardless of configuration.
// granola_id is the note identity and noteEnded drives update detection.
func (k FieldKey) Required() bool {
	return k == FieldGranolaID || k == FieldNoteEnded
}

// Valid reports whether k is a known field.
func (k FieldKey) Valid() bool {
	for _, f := range AllFields {
		if f == k {
			return true
		}
	}
	return false
}

// FieldSetting enables or disables one field at a position in the header.
type FieldSetting struct {
	Key     FieldKey `yaml:"key" json:"key"`
	Enabled bool     `yaml:"enabled" json:"enabled"`
}

// DefaultFields returns every field enabled in default order.
func DefaultFields() []FieldSetting {
	out := make([]FieldSetting, len(AllFields))
	for i, k := range AllFields {
		out[i] = FieldSetting{Key: k, Enabled: true}
	}
	return out
}

// ValidateFields rejects unknown or repeated keys.
func ValidateFields(settings []FieldSetting) error {
	seen := make(map[FieldKey]struct{}, len(settings))
	for _, s := range settings {
		if !s.Key.Valid() {
			return fmt.Errorf("frontmatter: unknown field %q", s.Key)
		}
		if _, ok := seen[s.Key]; ok {
			return fmt.Errorf("frontmatter: field %q listed twice", s.Key)
		}
		seen[s.Key] = struct{}{}
	}
	return nil
}

// NormalizeFields returns the effective field order: configured fields in
// their configured order with required fields forced on, followed by any
// required field the configuration omitted. Unknown and repeated keys are
// dropped. An empty configuration yields DefaultFields.
func NormalizeFields(settings []FieldSetting) []FieldSetting {
	if len(settings) == 0 {
		return DefaultFields()
	}
	seen := make(map[FieldKey]struct{}, len(settings))
	out := make([]FieldSetting, 0, len(settings)+2)
	for _, s := range settings {
		if !s.Key.Valid() {
			continue
		}
		if _, ok := seen[s.Key]; ok {
			continue
		}
		seen[s.Key] = struct{}{}
		if s.Key.Required() {
			s.Enabled = true
		}
		out = append(out, s)
	}
	for _, k := range AllFields {
		if _, ok := seen[k]; !ok && k.Required() {
			out = append(out, FieldSetting{Key: k, Enabled: true})
		}
	}
	return out
}
