package frontmatter

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/granola-sync/internal/metadata"
	"github.com/starford/granola-sync/internal/models"
)

func richDoc() *models.Document {
	return &models.Document{
		ID:        "abc",
		Title:     "Weekly: Sync",
		CreatedAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 1, 1, 10, 30, 45, 0, time.UTC),
		Calendar: &models.CalendarEvent{
			Start:    time.Date(2025, 1, 1, 8, 55, 0, 0, time.UTC),
			End:      time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC),
			Location: "https://acme.zoom.us/j/1",
			Attendees: []models.CalendarAttendee{
				{Email: "me@example.com", DisplayName: "Jonas Mueller", Self: true},
				{Email: "ann@example.com", DisplayName: "Ann Schroeder"},
			},
		},
		People: &models.People{
			Attendees: []models.Person{
				{Email: "ann@example.com", Details: models.PersonDetails{FullName: "Ann Schroeder", Company: "Acme"}},
			},
		},
	}
}

func richOptions() Options {
	return Options{
		Filter:         metadata.FilterAll,
		AutoDetectSelf: true,
		DetectPlatform: true,
		ConvertUmlauts: true,
		IncludeEmails:  true,
		Category:       "[[Meetings]]",
		Tags:           []string{"meeting"},
		Location:       time.UTC,
	}
}

func TestBuild_DefaultFields(t *testing.T) {
	got := NewBuilder(richDoc(), richOptions()).Build()
	want := strings.Join([]string{
		"---",
		`category: "[[Meetings]]"`,
		"type:",
		`date: "2025-01-01 08:55"`,
		`dateEnd: "2025-01-01 09:30"`,
		`noteStarted: "2025-01-01 09:00"`,
		`noteEnded: "2025-01-01 10:30"`,
		"org:",
		`  - "[[Acme]]"`,
		"loc:",
		`  - "[[Zoom]]"`,
		"people:",
		`  - "[[Ann Schröder]]"`,
		"topics:",
		"tags:",
		"  - meeting",
		"emails:",
		"  - ann@example.com",
		"  - me@example.com",
		"granola_id: abc",
		`title: "Weekly: Sync"`,
		`granola_url: "https://notes.granola.ai/d/abc"`,
		"---",
		"",
	}, "\n")
	if got != want {
		t.Errorf("Build() =\n%s\nwant\n%s", got, want)
	}

	var decoded map[string]any
	header, _, err := Split(got)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := yaml.Unmarshal([]byte(strings.Join(header, "\n")), &decoded); err != nil {
		t.Fatalf("built header is not valid YAML: %v", err)
	}
	if decoded["title"] != "Weekly: Sync" {
		t.Errorf("title decoded as %v", decoded["title"])
	}
}

func TestBuild_RequiredFieldsCannotBeDisabled(t *testing.T) {
	opts := richOptions()
	opts.Fields = []FieldSetting{
		{Key: FieldTitle, Enabled: true},
		{Key: FieldNoteEnded, Enabled: false},
		{Key: FieldPeople, Enabled: false},
	}
	got := NewBuilder(richDoc(), opts).Lines()
	want := []string{
		`title: "Weekly: Sync"`,
		`noteEnded: "2025-01-01 10:30"`,
		"granola_id: abc",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestBuild_OptionalFieldsOmittedWhenEmpty(t *testing.T) {
	doc := &models.Document{ID: "x", Title: "Plain", CreatedAt: time.Date(2025, 2, 3, 4, 5, 0, 0, time.UTC)}
	got := NewBuilder(doc, Options{Location: time.UTC}).Lines()
	want := []string{
		"type:",
		`date: "2025-02-03 04:05"`,
		`noteStarted: "2025-02-03 04:05"`,
		`noteEnded: "2025-02-03 04:05"`,
		"org:",
		"loc:",
		"people:",
		"topics:",
		"granola_id: x",
		"title: Plain",
		`granola_url: "https://notes.granola.ai/d/x"`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() =\n%q\nwant\n%q", got, want)
	}
}

func TestBuild_PlatformDetectionDisabled(t *testing.T) {
	opts := richOptions()
	opts.DetectPlatform = false
	got := NewBuilder(richDoc(), opts).Field(FieldLoc)
	if !reflect.DeepEqual(got, []string{"loc:"}) {
		t.Errorf("loc = %q", got)
	}
}

func TestBuild_SelfOverrideExcludesName(t *testing.T) {
	opts := richOptions()
	opts.SelfName = "Ann Schroeder"
	got := NewBuilder(richDoc(), opts).People()
	want := []string{"Jonas Müller"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("People() = %v, want %v", got, want)
	}
}

func TestBuilder_EveryFieldHandled(t *testing.T) {
	b := NewBuilder(richDoc(), richOptions())
	for _, k := range AllFields {
		lines := b.Field(k)
		if len(lines) == 0 {
			t.Errorf("field %s produced no lines for a fully populated document", k)
			continue
		}
		if !strings.HasPrefix(lines[0], string(k)+":") {
			t.Errorf("field %s first line = %q", k, lines[0])
		}
	}
}

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"plain":           "plain",
		"":                "",
		"a: b":            `"a: b"`,
		"[[Link]]":        `"[[Link]]"`,
		`say "hi"`:        `"say \"hi\""`,
		`back\slash`:      `"back\\slash"`,
		" padded":         `" padded"`,
		"line\nbreak":     `"line\nbreak"`,
		"#hash":           `"#hash"`,
		"- dash":          `"- dash"`,
		"mid-dash":        "mid-dash",
		"2025-01-01 9:00": `"2025-01-01 9:00"`,
		"null":            `"null"`,
		"Null":            `"Null"`,
		"~":               `"~"`,
		"yes":             `"yes"`,
		"true":            `"true"`,
		"0123":            `"0123"`,
		"42":              `"42"`,
		"1.5":             `"1.5"`,
		"null pointer":    "null pointer",
	}
	for in, want := range cases {
		if got := Quote(in); got != want {
			t.Errorf("Quote(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNormalizeFields(t *testing.T) {
	got := NormalizeFields([]FieldSetting{
		{Key: FieldTitle, Enabled: true},
		{Key: "bogus", Enabled: true},
		{Key: FieldGranolaID, Enabled: false},
		{Key: FieldTitle, Enabled: false},
	})
	want := []FieldSetting{
		{Key: FieldTitle, Enabled: true},
		{Key: FieldGranolaID, Enabled: true},
		{Key: FieldNoteEnded, Enabled: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeFields = %v, want %v", got, want)
	}
	if got := NormalizeFields(nil); len(got) != len(AllFields) {
		t.Errorf("empty config should yield defaults, got %d fields", len(got))
	}
}

func TestValidateFields(t *testing.T) {
	if err := ValidateFields(DefaultFields()); err != nil {
		t.Fatalf("defaults rejected: %v", err)
	}
	if err := ValidateFields([]FieldSetting{{Key: "nope"}}); err == nil {
		t.Error("expected error for unknown field")
	}
	if err := ValidateFields([]FieldSetting{{Key: FieldTitle}, {Key: FieldTitle}}); err == nil {
		t.Error("expected error for duplicate field")
	}
}

const storedNote = `---
category: "[[Meetings]]"
noteEnded: "2025-01-01 09:00"
people:
  - "[[Hand Added]]"
  - "[[Someone Else]]"
# kept comment
granola_id: abc
tags: [a, b]
---

# Old

old body
`

func TestParse_GroupsEntries(t *testing.T) {
	b, body, err := Parse(storedNote)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if body != "\n# Old\n\nold body\n" {
		t.Errorf("body = %q", body)
	}
	var keys []string
	for _, e := range b.Entries {
		keys = append(keys, e.Key)
	}
	want := []string{"category", "noteEnded", "people", "granola_id", "tags"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
	if v, ok := b.Scalar(FieldNoteEnded); !ok || v != "2025-01-01 09:00" {
		t.Errorf("noteEnded = %q, %v", v, ok)
	}
	if v, ok := b.Scalar(FieldGranolaID); !ok || v != "abc" {
		t.Errorf("granola_id = %q, %v", v, ok)
	}
	if _, ok := b.Scalar(FieldPeople); ok {
		t.Error("people is a sequence, not a scalar")
	}
	if _, ok := b.Scalar(FieldTitle); ok {
		t.Error("missing key reported present")
	}
}

func TestBlock_SetPreservesOtherEntries(t *testing.T) {
	b, _, err := Parse(storedNote)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b.Set(FieldNoteEnded, []string{`noteEnded: "2025-01-02 10:00"`})
	out := b.String() + "\n# New\n"

	before := strings.Split(storedNote, "\n")
	after := strings.Split(out, "\n")
	for i := 0; i < 9; i++ {
		if i == 2 {
			if after[i] != `noteEnded: "2025-01-02 10:00"` {
				t.Errorf("noteEnded line = %q", after[i])
			}
			continue
		}
		if before[i] != after[i] {
			t.Errorf("line %d changed: %q -> %q", i, before[i], after[i])
		}
	}
	if !strings.HasSuffix(out, "---\n\n# New\n") {
		t.Errorf("body not replaced: %q", out)
	}
}

func TestBlock_SetAppendsMissingKey(t *testing.T) {
	b, err := ParseBlock([]string{"granola_id: abc"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b.Set(FieldNoteEnded, []string{"noteEnded: x"})
	if got := b.Lines(); !reflect.DeepEqual(got, []string{"granola_id: abc", "noteEnded: x"}) {
		t.Errorf("Lines() = %q", got)
	}
}

func TestSplit_Errors(t *testing.T) {
	if _, _, err := Split("# no header\n"); err != ErrNoBlock {
		t.Errorf("err = %v, want ErrNoBlock", err)
	}
	if _, _, err := Split("---\nkey: v\n"); err == nil {
		t.Error("expected error for unterminated block")
	}
	if _, err := ParseBlock([]string{"- a", "- b"}); err == nil {
		t.Error("expected error for sequence header")
	}
}

func TestSplit_LeadingBlankLines(t *testing.T) {
	header, body, err := Split("\n\r\n---\ngranola_id: abc\n---\n\n# Title\n")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if !reflect.DeepEqual(header, []string{"granola_id: abc"}) {
		t.Errorf("header = %q", header)
	}
	if body != "\n# Title\n" {
		t.Errorf("body = %q", body)
	}
}
