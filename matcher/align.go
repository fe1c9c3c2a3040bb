package matcher

import (
	"context"

	"github.com/termfx/sift/syntax"
)

// next continues an alignment with the target nodes left unconsumed.
type next func(rest []*syntax.Node) bool

// aligner matches pattern nodes against target nodes with backtracking.
// Every step receives a continuation for the remainder of the match, so a
// later failure can resume an earlier choice point (a skipped child in loose
// mode, a shorter run for a counted variable).
type aligner struct {
	ctx   context.Context
	m     *Matcher
	mc    *MatchContext
	err   error
	steps int
}

func (a *aligner) loose() bool { return a.m.pattern.Loose }

// seq aligns ps against a prefix of ts. When skip is set, named target nodes
// in front of the next pattern node may be passed over.
func (a *aligner) seq(ps []*PatternNode, ts []*syntax.Node, skip bool, k next) bool {
	if !a.ok() {
		return false
	}
	if len(ps) == 0 {
		return k(ts)
	}

	p := ps[0]
	if p.Var != nil && !p.Var.Count.IsOne() {
		if a.run(p.Var, ps[1:], ts, k) {
			return true
		}
	} else if len(ts) > 0 {
		matched := a.node(p, ts[0], func() bool {
			return a.seq(ps[1:], ts[1:], a.loose(), k)
		})
		if matched {
			return true
		}
	}

	if skip && len(ts) > 0 && ts[0].Named && a.err == nil {
		return a.seq(ps, ts[1:], skip, k)
	}
	return false
}

// run binds a counted variable to a run of target nodes, longest first. A
// non-empty run begins and ends on named nodes; only named nodes count.
func (a *aligner) run(v *Variable, ps []*PatternNode, ts []*syntax.Node, k next) bool {
	for end := len(ts); end >= 0; end-- {
		run := ts[:end]
		if end > 0 && (!run[0].Named || !run[end-1].Named) {
			continue
		}
		named := namedOnly(run)
		if !v.Count.Allows(len(named)) {
			continue
		}
		mark := a.mc.mark()
		if a.bind(v, named) && a.seq(ps, ts[end:], a.loose(), k) {
			return true
		}
		a.mc.reset(mark)
		if a.err != nil {
			return false
		}
	}
	return false
}

// node aligns a single pattern node with t and calls k on success.
func (a *aligner) node(p *PatternNode, t *syntax.Node, k func() bool) bool {
	if !a.ok() {
		return false
	}
	if p.Var != nil {
		if !t.Named {
			return false
		}
		mark := a.mc.mark()
		if a.bind(p.Var, []*syntax.Node{t}) && k() {
			return true
		}
		a.mc.reset(mark)
		return false
	}

	if p.Kind != t.Kind || p.Named != t.Named {
		return false
	}
	if len(p.Children) == 0 {
		return p.Text == t.Text() && k()
	}
	return a.seq(p.Children, a.m.significant(t.Children), a.loose(), func(rest []*syntax.Node) bool {
		return a.exhausted(rest) && k()
	})
}

// exhausted reports whether the leftover children of a target node may be
// ignored.
func (a *aligner) exhausted(rest []*syntax.Node) bool {
	if len(rest) == 0 {
		return true
	}
	if !a.loose() {
		return false
	}
	for _, n := range rest {
		if !n.Named {
			return false
		}
	}
	return true
}

// bind checks consistency with an earlier binding of the same variable and
// the variable's predicate, then records the binding.
func (a *aligner) bind(v *Variable, nodes []*syntax.Node) bool {
	prev, bound := a.mc.Bound(v.Name)
	if bound && !sameText(prev, nodes) {
		return false
	}
	if v.Predicate != nil {
		for _, n := range nodes {
			ok, err := v.Predicate.Evaluate(a.ctx, n, a.mc)
			if err != nil {
				a.err = err
				return false
			}
			if !ok {
				return false
			}
		}
	}
	if !bound {
		a.mc.bind(v.Name, nodes)
	}
	return true
}

// ok stops the alignment once an error was recorded. Cancellation is polled
// every few hundred steps so large alignments stay interruptible.
func (a *aligner) ok() bool {
	if a.err != nil {
		return false
	}
	a.steps++
	if a.steps%256 == 0 {
		if err := a.ctx.Err(); err != nil {
			a.err = err
			return false
		}
	}
	return true
}

func sameText(a, b []*syntax.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Text() != b[i].Text() {
			return false
		}
	}
	return true
}

func namedOnly(nodes []*syntax.Node) []*syntax.Node {
	out := make([]*syntax.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Named {
			out = append(out, n)
		}
	}
	return out
}
