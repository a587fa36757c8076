package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Delimiter opens and closes a frontmatter block.
	Delimiter = "---"

	listIndent = "  "
)

// needsQuote reports whether a plain scalar would be misread by YAML.
func needsQuote(s string) bool {
	if s != strings.TrimSpace(s) {
		return true
	}
	if strings.ContainsAny(s, ":[]{}#\"'\n\\") {
		return true
	}
	if strings.ContainsAny(s[:1], "-?,&*!|>%@`") {
		return true
	}
	if _, ok := yaml11Keywords[strings.ToLower(s)]; ok {
		return true
	}
	// Anything yaml resolves to a non-string (null, bool, number, timestamp).
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return true
	}
	str, ok := v.(string)
	return !ok || str != s
}

// yaml11Keywords are booleans in YAML 1.1 readers even though yaml.v3 keeps
// them as strings.
var yaml11Keywords = map[string]struct{}{
	"y": {}, "n": {}, "yes": {}, "no": {}, "on": {}, "off": {},
	"true": {}, "false": {}, "null": {}, "~": {},
}

// Quote returns s as a YAML scalar, double-quoted with backslashes, quotes,
// and newlines escaped when a plain scalar would be misread.
func Quote(s string) string {
	if s == "" || !needsQuote(s) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// scalarLines renders key: value, or a bare key when value is empty.
func scalarLines(key FieldKey, value string) []string {
	if value == "" {
		return []string{string(key) + ":"}
	}
	return []string{string(key) + ": " + Quote(value)}
}

// listLines renders key followed by a block sequence of values.
func listLines(key FieldKey, values []string) []string {
	lines := []string{string(key) + ":"}
	for _, v := range values {
		lines = append(lines, listIndent+"- "+Quote(v))
	}
	return lines
}

// Link wraps name in a wikilink.
func Link(name string) string {
	return "[[" + name + "]]"
}
