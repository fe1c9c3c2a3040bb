package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Tree is a converted syntax tree together with the source it was parsed from.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Errors returns the ERROR and MISSING nodes of the tree in pre-order.
func (t *Tree) Errors() []*Node {
	var out []*Node
	t.Root.Walk(func(n *Node) bool {
		if n.IsError() {
			out = append(out, n)
		}
		return true
	})
	return out
}

// HasErrors reports whether the tree contains parse errors.
func (t *Tree) HasErrors() bool {
	return len(t.Errors()) > 0
}

// NodeAt returns the innermost named node covering the byte offset.
func (t *Tree) NodeAt(offset int) *Node {
	if t.Root == nil || offset < t.Root.Start || offset > t.Root.End {
		return nil
	}
	cur := t.Root
	for {
		var next *Node
		for _, c := range cur.Children {
			if c.Named && c.Start <= offset && offset < c.End {
				next = c
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// FromSitter converts a tree-sitter tree into a Tree. The sitter tree may be
// closed once this returns. Node texts are slices of one copy of src.
func FromSitter(st *sitter.Tree, src []byte, language string) *Tree {
	root := convert(st.RootNode(), string(src), nil, "", 0)
	return &Tree{Root: root, Source: src, Language: language}
}

func convert(sn *sitter.Node, src string, parent *Node, field string, index int) *Node {
	start, end := int(sn.StartByte()), int(sn.EndByte())
	if end > len(src) {
		end = len(src)
	}
	if start > end {
		start = end
	}
	sp, ep := sn.StartPoint(), sn.EndPoint()
	n := &Node{
		Kind:       sn.Type(),
		Field:      field,
		Named:      sn.IsNamed(),
		Missing:    sn.IsMissing(),
		Start:      start,
		End:        end,
		StartPoint: Point{Row: int(sp.Row), Column: int(sp.Column)},
		EndPoint:   Point{Row: int(ep.Row), Column: int(ep.Column)},
		Parent:     parent,
		index:      index,
		text:       src[start:end],
	}
	count := int(sn.ChildCount())
	if count > 0 {
		n.Children = make([]*Node, 0, count)
	}
	for i := 0; i < count; i++ {
		child := sn.Child(i)
		if child == nil {
			continue
		}
		n.Children = append(n.Children, convert(child, src, n, sn.FieldNameForChild(i), len(n.Children)))
	}
	return n
}
