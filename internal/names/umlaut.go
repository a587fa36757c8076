// Package names normalizes person display names before they become links.
package names

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wordSplitRe = regexp.MustCompile(`\s+`)

	leading = map[string]string{"Ae": "Ä", "Oe": "Ö", "Ue": "Ü"}
	inner   = map[string]string{"ae": "ä", "oe": "ö", "ue": "ü"}
)

// ConvertGermanUmlauts rewrites the digraphs ae/oe/ue of every word in name
// to ä/ö/ü. Whitespace is preserved. Words that look like non-German names
// (Miguel, Michael, Joel and similar) are left alone. The conversion is a
// heuristic and will get some names wrong.
func ConvertGermanUmlauts(name string) string {
	if name == "" {
		return name
	}
	spaces := wordSplitRe.FindAllStringIndex(name, -1)

	var sb strings.Builder
	sb.Grow(len(name))
	pos := 0
	for _, sp := range spaces {
		sb.WriteString(convertWord(name[pos:sp[0]]))
		sb.WriteString(name[sp[0]:sp[1]])
		pos = sp[1]
	}
	sb.WriteString(convertWord(name[pos:]))
	return sb.String()
}

func convertWord(word string) string {
	if word == "" || isProtected(word) {
		return word
	}
	runes := []rune(word)
	var sb strings.Builder
	sb.Grow(len(word))
	for i := 0; i < len(runes); i++ {
		if i+1 < len(runes) {
			pair := string(runes[i : i+2])
			// A capitalised digraph only converts at the start of a word
			// or after a non-letter (e.g. "Hans-Uemit").
			if i == 0 || !unicode.IsLetter(runes[i-1]) {
				if r, ok := leading[pair]; ok {
					sb.WriteString(r)
					i++
					continue
				}
			}
			if r, ok := inner[pair]; ok {
				sb.WriteString(r)
				i++
				continue
			}
		}
		sb.WriteRune(runes[i])
	}
	return sb.String()
}

// isProtected reports whether word contains "uel" not followed by another
// "l", or "ael" or "oel" anywhere, ignoring case.
func isProtected(word string) bool {
	lower := strings.ToLower(word)
	if strings.Contains(lower, "ael") || strings.Contains(lower, "oel") {
		return true
	}
	for i := 0; ; {
		j := strings.Index(lower[i:], "uel")
		if j < 0 {
			return false
		}
		end := i + j + len("uel")
		if end >= len(lower) || lower[end] != 'l' {
			return true
		}
		i = i + j + 1
	}
}
