package syntax

import "strings"

// Leaf returns a named leaf node with the given text.
func Leaf(kind, text string) *Node {
	return &Node{Kind: kind, Named: true, text: text}
}

// Token returns an anonymous leaf whose kind is its text, like punctuation
// and keywords in tree-sitter grammars.
func Token(text string) *Node {
	return &Node{Kind: text, text: text}
}

// Branch returns a named interior node.
func Branch(kind string, children ...*Node) *Node {
	return &Node{Kind: kind, Named: true, Children: children}
}

// Field attaches n to its future parent under the given field name.
func Field(name string, n *Node) *Node {
	n.Field = name
	return n
}

// Build links a hand-assembled node tree: parents, child indices, byte
// offsets and text. Interior text is the children's text joined by spaces.
func Build(root *Node) *Tree {
	layout(root, nil, 0, 0)
	return &Tree{Root: root, Source: []byte(root.text)}
}

func layout(n *Node, parent *Node, index, offset int) int {
	n.Parent = parent
	n.index = index
	n.Start = offset
	n.StartPoint = Point{Column: offset}
	if len(n.Children) == 0 {
		n.End = offset + len(n.text)
		n.EndPoint = Point{Column: n.End}
		return n.End
	}
	parts := make([]string, len(n.Children))
	pos := offset
	for i, c := range n.Children {
		if i > 0 {
			pos++
		}
		pos = layout(c, n, i, pos)
		parts[i] = c.text
	}
	n.text = strings.Join(parts, " ")
	n.End = pos
	n.EndPoint = Point{Column: pos}
	return pos
}
