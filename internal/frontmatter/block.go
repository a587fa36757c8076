package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoBlock is returned when content does not open with a frontmatter block.
var ErrNoBlock = errors.New("frontmatter: no block")

// Entry is one top-level key of a stored header together with its raw lines,
// including any indented or sequence continuation lines.
type Entry struct {
	Key   string
	Lines []string
}

// Block is a parsed header that keeps every entry's original text so that
// rewriting one key leaves the others byte-identical.
type Block struct {
	Entries []Entry
}

// Split separates content into the header lines and the body that follows
// the closing delimiter. Blank lines before the opening delimiter are
// skipped.
func Split(content string) (header []string, body string, err error) {
	lines := strings.Split(content, "\n")
	start := 0
	for start < len(lines) && strings.TrimRight(lines[start], "\r") == "" {
		start++
	}
	if start == len(lines) || strings.TrimRight(lines[start], "\r") != Delimiter {
		return nil, content, ErrNoBlock
	}
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == Delimiter {
			return lines[start+1 : i], strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return nil, content, fmt.Errorf("frontmatter: unterminated block")
}

// Parse splits content and parses its header.
func Parse(content string) (*Block, string, error) {
	header, body, err := Split(content)
	if err != nil {
		return nil, body, err
	}
	b, err := ParseBlock(header)
	if err != nil {
		return nil, body, err
	}
	return b, body, nil
}

// ParseBlock groups header lines into top-level entries. The lines must form
// a YAML mapping.
func ParseBlock(lines []string) (*Block, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &root); err != nil {
		return nil, fmt.Errorf("frontmatter: parse: %w", err)
	}
	if len(root.Content) > 0 && root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: header is not a mapping")
	}

	b := &Block{}
	for _, line := range lines {
		if key, ok := topLevelKey(line); ok {
			b.Entries = append(b.Entries, Entry{Key: key, Lines: []string{line}})
			continue
		}
		if len(b.Entries) == 0 {
			b.Entries = append(b.Entries, Entry{})
		}
		last := &b.Entries[len(b.Entries)-1]
		last.Lines = append(last.Lines, line)
	}
	return b, nil
}

// topLevelKey reports the key of a line that starts a new mapping entry.
func topLevelKey(line string) (string, bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' || line[0] == '#' || line[0] == '-' {
		return "", false
	}
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", false
	}
	key := strings.TrimSpace(line[:idx])
	if len(key) >= 2 && (key[0] == '"' || key[0] == '\'') && key[len(key)-1] == key[0] {
		key = key[1 : len(key)-1]
	}
	return key, true
}

// Has reports whether key is present.
func (b *Block) Has(key FieldKey) bool {
	return b.index(key) >= 0
}

// Scalar returns the decoded scalar value of key. It reports false when the
// key is missing or not a scalar.
func (b *Block) Scalar(key FieldKey) (string, bool) {
	i := b.index(key)
	if i < 0 {
		return "", false
	}
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(strings.Join(b.Entries[i].Lines, "\n")), &root); err != nil {
		return "", false
	}
	if len(root.Content) == 0 || len(root.Content[0].Content) < 2 {
		return "", false
	}
	v := root.Content[0].Content[1]
	if v.Kind != yaml.ScalarNode {
		return "", false
	}
	if v.Tag == "!!null" {
		return "", true
	}
	return strings.TrimSpace(v.Value), true
}

// Set replaces the lines of key, appending a new entry when absent.
func (b *Block) Set(key FieldKey, lines []string) {
	if i := b.index(key); i >= 0 {
		b.Entries[i].Lines = lines
		return
	}
	b.Entries = append(b.Entries, Entry{Key: string(key), Lines: lines})
}

// Lines returns the header lines in stored order.
func (b *Block) Lines() []string {
	var out []string
	for _, e := range b.Entries {
		out = append(out, e.Lines...)
	}
	return out
}

// String renders the header with delimiters and a trailing newline.
func (b *Block) String() string {
	var sb strings.Builder
	sb.WriteString(Delimiter + "\n")
	for _, line := range b.Lines() {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(Delimiter + "\n")
	return sb.String()
}

func (b *Block) index(key FieldKey) int {
	for i, e := range b.Entries {
		if e.Key == string(key) {
			return i
		}
	}
	return -1
}
