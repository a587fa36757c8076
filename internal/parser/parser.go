// Package parser reads the header and links of notes already in the vault.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	GranolaID   string
	NoteEnded   string
	Date        string
	Title       string
	People      []string
	Links       []string
	Tags        []string
}

// Parse extracts the header, wikilinks, and tags from raw Markdown bytes.
// Content without a valid header is treated as body only.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		GranolaID:   scalar(fm, "granola_id"),
		NoteEnded:   scalar(fm, "noteEnded"),
		Date:        scalar(fm, "date"),
		Title:       deriveTitle(fm, body),
		People:      linkTargets(stringList(fm["people"])),
		Links:       extractLinks(body),
		Tags:        extractTags(body, fm),
	}, nil
}

// GranolaID returns the trimmed granola_id of a note, or "".
func GranolaID(data []byte) string {
	fm, _ := splitFrontmatter(data)
	return scalar(fm, "granola_id")
}

func splitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte("---")) {
		return nil, string(data)
	}
	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(trimmed), &fm)
	if err != nil || len(rest) == len(trimmed) {
		// Invalid or unterminated header: everything is body.
		return nil, string(data)
	}
	return fm, strings.TrimLeft(string(rest), "\n\r")
}

func scalar(fm map[string]any, key string) string {
	v, ok := fm[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []any, map[string]any, map[any]any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// linkTargets unwraps [[Name]] values, keeping plain values as they are.
func linkTargets(values []string) []string {
	for i, v := range values {
		if m := wikilinkRe.FindStringSubmatch(v); m != nil {
			values[i] = linkTarget(m[1])
		}
	}
	return values
}

func linkTarget(raw string) string {
	// Handle aliases: [[Target|Alias]] → Target.
	if i := strings.Index(raw, "|"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// extractLinks returns deduplicated wikilink targets, normalising aliases.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := linkTarget(m[1])
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractTags collects #tags from body and from the header "tags" field.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range stringList(fm["tags"]) {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the header "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if t := scalar(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
