package matcher

import (
	"strings"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/internal/constraint"
	"github.com/termfx/sift/syntax"
)

// varPrefix turns a $name$ placeholder into an identifier every supported
// grammar accepts.
const varPrefix = "_sift_"

// Variable is a named wildcard of a template.
type Variable struct {
	Name      string
	Count     constraint.Range
	Predicate Predicate // nil when unconstrained
}

// PatternNode is one node of a compiled template. Exactly one of Var or Kind
// is set.
type PatternNode struct {
	Var *Variable

	Kind     string
	Named    bool
	Text     string // compared when the node has no children
	Children []*PatternNode
}

// IsVar reports whether the node is a wildcard.
func (p *PatternNode) IsVar() bool { return p.Var != nil }

func (p *PatternNode) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p *PatternNode) write(b *strings.Builder) {
	if p.Var != nil {
		b.WriteString("$" + p.Var.Name + "$")
		if !p.Var.Count.IsOne() {
			b.WriteString("{" + p.Var.Count.String() + "}")
		}
		return
	}
	if !p.Named {
		b.WriteString(`"` + p.Text + `"`)
		return
	}
	b.WriteString("(" + p.Kind)
	if len(p.Children) == 0 {
		b.WriteString(" " + p.Text)
	}
	for _, c := range p.Children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}

// Pattern is a compiled template: one or more roots matched against
// consecutive siblings.
type Pattern struct {
	Roots   []*PatternNode
	Loose   bool
	Context Predicate // applies to every node of the matched run
	vars    []*Variable
}

// Variables returns the template variables in order of first appearance.
func (p *Pattern) Variables() []string {
	names := make([]string, len(p.vars))
	for i, v := range p.vars {
		names[i] = v.Name
	}
	return names
}

// IsSequence reports whether the template has more than one root.
func (p *Pattern) IsSequence() bool { return len(p.Roots) > 1 }

func (p *Pattern) String() string {
	parts := make([]string, len(p.Roots))
	for i, r := range p.Roots {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

// expandPlaceholders replaces $name$ with an identifier and $$ with a literal
// dollar sign.
func expandPlaceholders(text string) (string, error) {
	return Substitute(text, func(name string) (string, error) {
		return varPrefix + name, nil
	})
}

// Substitute rewrites every $name$ placeholder in text with the value fn
// returns for it. $$ stands for a literal '$'.
func Substitute(text string, fn func(name string) (string, error)) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(text[i+1:], '$')
		if end < 0 {
			return "", core.MalformedPattern("unterminated variable at offset %d", i)
		}
		name := text[i+1 : i+1+end]
		i += end + 1
		if name == "" {
			b.WriteByte('$')
			continue
		}
		if !isVarName(name) {
			return "", core.MalformedPattern("invalid variable name '%s'", name)
		}
		v, err := fn(name)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

func isVarName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z') && !('0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// placeholderName returns the variable a node stands for, if its whole text
// is one expanded placeholder.
func placeholderName(n *syntax.Node) (string, bool) {
	if !n.Named {
		return "", false
	}
	name, ok := strings.CutPrefix(strings.TrimSpace(n.Text()), varPrefix)
	if !ok || !isVarName(name) {
		return "", false
	}
	return name, true
}

// patternBuilder converts parsed template nodes into pattern nodes, sharing
// one Variable per name.
type patternBuilder struct {
	ignorable func(kind string) bool
	vars      map[string]*Variable
	order     []*Variable
}

func newPatternBuilder(ignorable func(string) bool) *patternBuilder {
	return &patternBuilder{ignorable: ignorable, vars: make(map[string]*Variable)}
}

func (b *patternBuilder) convert(n *syntax.Node) *PatternNode {
	if name, ok := placeholderName(n); ok {
		v, seen := b.vars[name]
		if !seen {
			v = &Variable{Name: name, Count: constraint.One}
			b.vars[name] = v
			b.order = append(b.order, v)
		}
		return &PatternNode{Var: v}
	}

	p := &PatternNode{Kind: n.Kind, Named: n.Named}
	if n.IsLeaf() {
		p.Text = n.Text()
		return p
	}
	for _, c := range n.Children {
		if b.ignorable(c.Kind) {
			continue
		}
		p.Children = append(p.Children, b.convert(c))
	}
	if len(p.Children) == 0 {
		p.Text = n.Text()
	}
	return p
}
