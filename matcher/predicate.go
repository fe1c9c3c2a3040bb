package matcher

import (
	"context"
	"strconv"
	"strings"

	"github.com/coregx/coregex"

	"github.com/termfx/sift/syntax"
)

// Predicate is a boolean condition on a target node, attached to a template
// variable or to the whole match. Evaluate may read mc but must not change
// it.
type Predicate interface {
	Evaluate(ctx context.Context, node *syntax.Node, mc *MatchContext) (bool, error)
	String() string
}

// TextEquals holds when the node text equals Value.
type TextEquals struct {
	Value string
}

func (p *TextEquals) Evaluate(_ context.Context, node *syntax.Node, _ *MatchContext) (bool, error) {
	return node.Text() == p.Value, nil
}

func (p *TextEquals) String() string { return "text=" + strconv.Quote(p.Value) }

// TextRegex holds when the node text matches the expression anywhere.
type TextRegex struct {
	re *coregex.Regex
}

// NewTextRegex compiles expr.
func NewTextRegex(expr string) (*TextRegex, error) {
	re, err := coregex.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &TextRegex{re: re}, nil
}

func (p *TextRegex) Evaluate(_ context.Context, node *syntax.Node, _ *MatchContext) (bool, error) {
	return p.re.MatchString(node.Text()), nil
}

func (p *TextRegex) String() string {
	return "regex=/" + strings.ReplaceAll(p.re.String(), "/", `\/`) + "/"
}

// KindIs holds when the node has the given kind.
type KindIs struct {
	Kind string
}

func (p *KindIs) Evaluate(_ context.Context, node *syntax.Node, _ *MatchContext) (bool, error) {
	return node.Kind == p.Kind, nil
}

func (p *KindIs) String() string { return "kind=" + p.Kind }

// HasAncestorOfKind holds when a proper ancestor of the node has the given
// kind.
type HasAncestorOfKind struct {
	Kind string
}

func (p *HasAncestorOfKind) Evaluate(_ context.Context, node *syntax.Node, _ *MatchContext) (bool, error) {
	for a := node.Parent; a != nil; a = a.Parent {
		if a.Kind == p.Kind {
			return true, nil
		}
	}
	return false, nil
}

func (p *HasAncestorOfKind) String() string { return "inside=" + p.Kind }

// Not negates X.
type Not struct {
	X Predicate
}

func (p *Not) Evaluate(ctx context.Context, node *syntax.Node, mc *MatchContext) (bool, error) {
	ok, err := p.X.Evaluate(ctx, node, mc)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (p *Not) String() string {
	switch p.X.(type) {
	case *And, *Or:
		return "!(" + p.X.String() + ")"
	}
	return "!" + p.X.String()
}

// And holds when every operand holds. Evaluation stops at the first false
// operand.
type And struct {
	Operands []Predicate
}

func (p *And) Evaluate(ctx context.Context, node *syntax.Node, mc *MatchContext) (bool, error) {
	for _, op := range p.Operands {
		ok, err := op.Evaluate(ctx, node, mc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (p *And) String() string { return joinPredicates(p.Operands, " && ") }

// Or holds when any operand holds. Evaluation stops at the first true
// operand.
type Or struct {
	Operands []Predicate
}

func (p *Or) Evaluate(ctx context.Context, node *syntax.Node, mc *MatchContext) (bool, error) {
	for _, op := range p.Operands {
		ok, err := op.Evaluate(ctx, node, mc)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (p *Or) String() string { return joinPredicates(p.Operands, " || ") }

func joinPredicates(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		switch p.(type) {
		case *And, *Or:
			parts[i] = "(" + p.String() + ")"
		default:
			parts[i] = p.String()
		}
	}
	return strings.Join(parts, sep)
}
