package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - granola\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "granola" {
		t.Errorf("tags = %v, want [go granola]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Invalid YAML falls back to treating everything as body.
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_SyncedNote(t *testing.T) {
	input := []byte("---\ngranola_id:  abc \nnoteEnded: \"2025-01-01 10:30\"\npeople:\n  - \"[[Ann Roe]]\"\n  - Plain\n---\n\n# Standup\n\nSee [[Ann Roe|Ann]].\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.GranolaID != "abc" {
		t.Errorf("granola id = %q", r.GranolaID)
	}
	if r.NoteEnded != "2025-01-01 10:30" {
		t.Errorf("noteEnded = %q", r.NoteEnded)
	}
	if len(r.People) != 2 || r.People[0] != "Ann Roe" || r.People[1] != "Plain" {
		t.Errorf("people = %v", r.People)
	}
	if r.Title != "Standup" {
		t.Errorf("title = %q", r.Title)
	}
	if len(r.Links) != 1 || r.Links[0] != "Ann Roe" {
		t.Errorf("links = %v", r.Links)
	}
}

func TestGranolaID(t *testing.T) {
	cases := map[string]string{
		"---\ngranola_id: abc\n---\nbody": "abc",
		"---\ngranola_id: 42\n---\nbody":  "42",
		"---\ntitle: x\n---\nbody":        "",
		"no header":                       "",
		"---\ngranola_id:\n  - a\n---\n":  "",
	}
	for in, want := range cases {
		if got := GranolaID([]byte(in)); got != want {
			t.Errorf("GranolaID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractLinks_Basic(t *testing.T) {
	body := "See [[Note A]] and [[Note B|alias]].\nAlso [[Note A]] again."
	links := extractLinks(body)
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2", len(links))
	}
	if links[0] != "Note A" || links[1] != "Note B" {
		t.Errorf("links = %v", links)
	}
}

func TestExtractLinks_EmptyTarget(t *testing.T) {
	links := extractLinks("see [[ ]] and [[|alias]]")
	if len(links) != 0 {
		t.Errorf("expected no links, got %v", links)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	body := "Some text #beta and #alpha again."
	tags := extractTags(body, fm)
	// alpha from FM, beta from body; alpha not duplicated.
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	body := "# H1 Title\ntext"
	title := deriveTitle(fm, body)
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
