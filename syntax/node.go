// Package syntax holds the language-neutral syntax tree the matcher walks.
// Trees are produced by a provider (tree-sitter backed) or assembled by hand
// with the builder helpers; both give pointer-stable nodes with parent links.
package syntax

import "strings"

// Point is a zero-based row/column position.
type Point struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Node is one node of a syntax tree.
type Node struct {
	Kind    string
	Field   string // field name on the parent, "" when unnamed
	Named   bool
	Missing bool

	Start      int
	End        int
	StartPoint Point
	EndPoint   Point

	Parent   *Node
	Children []*Node

	index int
	text  string
}

// Text returns the source text covered by the node.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return n.text
}

// Index returns the position of the node among its parent's children.
func (n *Node) Index() int {
	return n.index
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// IsError reports whether tree-sitter flagged the node as a parse error.
func (n *Node) IsError() bool {
	return n.Kind == "ERROR" || n.Missing
}

// NamedChildren returns the named children in order.
func (n *Node) NamedChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Named {
			out = append(out, c)
		}
	}
	return out
}

// ChildByField returns the first child attached under the given field name.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// Walk visits the subtree rooted at n in pre-order. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// String renders the subtree as an S-expression of named nodes.
func (n *Node) String() string {
	var b strings.Builder
	n.sexp(&b)
	return b.String()
}

func (n *Node) sexp(b *strings.Builder) {
	if n.Field != "" {
		b.WriteString(n.Field)
		b.WriteString(": ")
	}
	b.WriteByte('(')
	b.WriteString(n.Kind)
	for _, c := range n.Children {
		if !c.Named {
			continue
		}
		b.WriteByte(' ')
		c.sexp(b)
	}
	b.WriteByte(')')
}

// IsAncestor reports whether ancestor lies on the parent chain of node. When
// strict is false a node counts as its own ancestor.
func IsAncestor(ancestor, node *Node, strict bool) bool {
	if ancestor == nil || node == nil {
		return false
	}
	if strict {
		node = node.Parent
	}
	for ; node != nil; node = node.Parent {
		if node == ancestor {
			return true
		}
	}
	return false
}
