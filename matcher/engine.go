package matcher

import (
	"context"
	"slices"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/providers"
	"github.com/termfx/sift/syntax"
)

// MatchResult is one occurrence of a template in a target tree. Nodes point
// into the target tree; the result does not own them.
type MatchResult struct {
	Node     *syntax.Node              // first node of the match
	Nodes    []*syntax.Node            // every named node of the matched run
	Bindings map[string][]*syntax.Node // variable name -> bound nodes
}

// Contains reports whether node lies inside the matched region.
func (r MatchResult) Contains(node *syntax.Node) bool {
	for _, n := range r.Nodes {
		if syntax.IsAncestor(n, node, false) {
			return true
		}
	}
	return false
}

// Matcher runs one compiled template against target trees. It is immutable
// and may be shared between goroutines.
type Matcher struct {
	options  core.SearchOptions
	pattern  *Pattern
	provider providers.Provider
}

// Options returns the search options the matcher was compiled from.
func (m *Matcher) Options() core.SearchOptions { return m.options }

// Pattern returns the compiled template.
func (m *Matcher) Pattern() *Pattern { return m.pattern }

func (m *Matcher) String() string { return m.options.Pattern }

// MatchTopDown scans the subtree under root in pre-order and returns a result
// for every named node where the template matches. For templates with
// several roots the node is the first of a run of siblings.
func (m *Matcher) MatchTopDown(ctx context.Context, root *syntax.Node) ([]MatchResult, error) {
	var (
		results []MatchResult
		err     error
	)
	root.Walk(func(n *syntax.Node) bool {
		if err != nil {
			return false
		}
		if err = ctx.Err(); err != nil {
			return false
		}
		if m.provider.Ignorable(n.Kind) {
			return false
		}
		if !n.Named {
			return true
		}
		var (
			r  MatchResult
			ok bool
		)
		r, ok, err = m.matchAt(ctx, m.runFrom(n))
		if ok {
			results = append(results, r)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MatchByDownUp looks for matches that cover node, trying node itself and
// then each ancestor from the innermost outwards. Templates with several
// roots are also tried on every run of siblings that includes the current
// node.
func (m *Matcher) MatchByDownUp(ctx context.Context, node *syntax.Node) ([]MatchResult, error) {
	var results []MatchResult
	for c := node; c != nil; c = c.Parent {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !m.pattern.IsSequence() {
			r, ok, err := m.matchAt(ctx, []*syntax.Node{c})
			if err != nil {
				return nil, err
			}
			if ok {
				results = append(results, r)
			}
			continue
		}

		siblings := []*syntax.Node{c}
		if c.Parent != nil {
			siblings = m.significant(c.Parent.Children)
		}
		idx := slices.Index(siblings, c)
		for start := 0; start <= idx; start++ {
			if !siblings[start].Named {
				continue
			}
			r, ok, err := m.matchAt(ctx, siblings[start:])
			if err != nil {
				return nil, err
			}
			if ok && slices.Contains(r.Nodes, c) {
				results = append(results, r)
			}
		}
	}
	return results, nil
}

// runFrom returns the target nodes a match anchored at n may consume.
func (m *Matcher) runFrom(n *syntax.Node) []*syntax.Node {
	if !m.pattern.IsSequence() || n.Parent == nil {
		return []*syntax.Node{n}
	}
	siblings := m.significant(n.Parent.Children)
	if i := slices.Index(siblings, n); i >= 0 {
		return siblings[i:]
	}
	return []*syntax.Node{n}
}

// matchAt aligns the template with a prefix of seq that starts at seq[0].
func (m *Matcher) matchAt(ctx context.Context, seq []*syntax.Node) (MatchResult, bool, error) {
	a := &aligner{ctx: ctx, m: m, mc: &MatchContext{}}
	var result MatchResult
	ok := a.seq(m.pattern.Roots, seq, false, func(rest []*syntax.Node) bool {
		nodes := namedOnly(seq[:len(seq)-len(rest)])
		if len(nodes) == 0 {
			return false
		}
		if m.pattern.Context != nil {
			for _, n := range nodes {
				ok, err := m.pattern.Context.Evaluate(ctx, n, a.mc)
				if err != nil {
					a.err = err
					return false
				}
				if !ok {
					return false
				}
			}
		}
		result = MatchResult{Node: nodes[0], Nodes: nodes, Bindings: a.mc.Bindings()}
		return true
	})
	if a.err != nil {
		return MatchResult{}, false, a.err
	}
	return result, ok, nil
}

// significant drops children the language ignores, such as comments.
func (m *Matcher) significant(children []*syntax.Node) []*syntax.Node {
	out := children
	for i, c := range children {
		if m.provider.Ignorable(c.Kind) {
			out = make([]*syntax.Node, i, len(children))
			copy(out, children[:i])
			for _, rest := range children[i+1:] {
				if !m.provider.Ignorable(rest.Kind) {
					out = append(out, rest)
				}
			}
			break
		}
	}
	return out
}
