package models

// Node kinds understood by the Markdown converter.
const (
	NodeDoc        = "doc"
	NodeHeading    = "heading"
	NodeParagraph  = "paragraph"
	NodeBulletList = "bulletList"
	NodeListItem   = "listItem"
	NodeText       = "text"
)

// Node is one element of a rich-text tree. Text nodes carry Text; every
// other kind carries an ordered list of children.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// IntAttr returns the integer attribute key, or def when absent or not numeric.
func (n *Node) IntAttr(key string, def int) int {
	if n == nil || n.Attrs == nil {
		return def
	}
	switch v := n.Attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
