// Package richtext renders rich-text node trees as Markdown.
package richtext

import (
	"strings"

	"github.com/starford/granola-sync/internal/models"
)

const indentUnit = "  "

// ToMarkdown renders the tree rooted at n and trims surrounding whitespace.
func ToMarkdown(n *models.Node) string {
	return strings.TrimSpace(Render(n))
}

// Render converts a node tree to Markdown. Unknown node types are not
// rendered themselves but their children are. A nil node renders as "".
func Render(n *models.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case models.NodeText:
		return n.Text
	case models.NodeHeading:
		level := n.IntAttr("level", 1)
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + renderChildren(n) + "\n\n"
	case models.NodeParagraph:
		return renderChildren(n) + "\n\n"
	case models.NodeBulletList:
		items := renderItems(n, 0)
		if len(items) == 0 {
			return ""
		}
		return strings.Join(items, "\n") + "\n\n"
	default:
		return renderChildren(n)
	}
}

func renderChildren(n *models.Node) string {
	var sb strings.Builder
	for _, c := range n.Content {
		sb.WriteString(Render(c))
	}
	return sb.String()
}

// renderItems renders the listItem children of a bulletList at the given depth.
func renderItems(list *models.Node, depth int) []string {
	var out []string
	for _, c := range list.Content {
		if c == nil || c.Type != models.NodeListItem {
			continue
		}
		if s := renderListItem(c, depth); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// renderListItem returns the bullet line for item followed by any nested
// bullets, or "" when the item has no text of its own.
func renderListItem(item *models.Node, depth int) string {
	var text string
	for _, c := range item.Content {
		if c != nil && c.Type == models.NodeParagraph {
			text = plainText(c)
			break
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	lines := []string{strings.Repeat(indentUnit, depth) + "- " + text}
	for _, c := range item.Content {
		if c != nil && c.Type == models.NodeBulletList {
			lines = append(lines, renderItems(c, depth+1)...)
		}
	}
	return strings.Join(lines, "\n")
}

// plainText concatenates every text node below n.
func plainText(n *models.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == models.NodeText {
		return n.Text
	}
	var sb strings.Builder
	for _, c := range n.Content {
		sb.WriteString(plainText(c))
	}
	return sb.String()
}
