package matcher

import "github.com/termfx/sift/syntax"

type binding struct {
	name  string
	nodes []*syntax.Node
}

// MatchContext holds the variable bindings of one match attempt. Bindings
// are kept in an append-only log so the aligner can undo them when it
// backtracks. A context is never shared between attempts.
type MatchContext struct {
	log []binding
}

// Bound returns the nodes bound to name on the current alignment path.
func (mc *MatchContext) Bound(name string) ([]*syntax.Node, bool) {
	if mc == nil {
		return nil, false
	}
	for i := len(mc.log) - 1; i >= 0; i-- {
		if mc.log[i].name == name {
			return mc.log[i].nodes, true
		}
	}
	return nil, false
}

// Len returns the number of bindings.
func (mc *MatchContext) Len() int {
	if mc == nil {
		return 0
	}
	return len(mc.log)
}

// Bindings returns a copy of the current bindings.
func (mc *MatchContext) Bindings() map[string][]*syntax.Node {
	out := make(map[string][]*syntax.Node, mc.Len())
	if mc == nil {
		return out
	}
	for _, b := range mc.log {
		if _, ok := out[b.name]; !ok {
			out[b.name] = append([]*syntax.Node(nil), b.nodes...)
		}
	}
	return out
}

func (mc *MatchContext) bind(name string, nodes []*syntax.Node) {
	mc.log = append(mc.log, binding{name: name, nodes: nodes})
}

func (mc *MatchContext) mark() int { return len(mc.log) }

func (mc *MatchContext) reset(mark int) {
	clear(mc.log[mark:])
	mc.log = mc.log[:mark]
}
