package matcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/matcher/guard"
	"github.com/termfx/sift/providers"
	"github.com/termfx/sift/providers/golang"
	"github.com/termfx/sift/registry"
	"github.com/termfx/sift/syntax"
)

// spyTracker counts guard calls.
type spyTracker struct {
	*guard.Guard
	mu       sync.Mutex
	enters   int
	refusals int
	leaves   int
}

func newSpyTracker() *spyTracker {
	return &spyTracker{Guard: guard.New()}
}

func (s *spyTracker) Enter(ctx context.Context, name string) bool {
	ok := s.Guard.Enter(ctx, name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enters++
	if !ok {
		s.refusals++
	}
	return ok
}

func (s *spyTracker) Leave(ctx context.Context, name string) {
	s.Guard.Leave(ctx, name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves++
}

func (s *spyTracker) counts() (enters, refusals, leaves int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enters, s.refusals, s.leaves
}

// spyRegistry counts lookups.
type spyRegistry struct {
	inner   core.ConfigurationRegistry
	lookups atomic.Int64
}

func (s *spyRegistry) FindByName(ctx context.Context, name string) (*core.Configuration, bool, error) {
	s.lookups.Add(1)
	return s.inner.FindByName(ctx, name)
}

func goLanguages() *providers.Registry {
	return providers.NewRegistry(golang.New())
}

func newMemory(t *testing.T, configs ...core.Configuration) *registry.Memory {
	t.Helper()
	m, err := registry.NewMemory(configs...)
	require.NoError(t, err)
	return m
}

func goConfig(name, pattern string, constraints ...core.Constraint) core.Configuration {
	return core.Configuration{
		Name: name,
		Options: core.SearchOptions{
			Pattern:     pattern,
			Language:    "go",
			Constraints: constraints,
		},
	}
}

func looseGoConfig(name, pattern string, constraints ...core.Constraint) core.Configuration {
	c := goConfig(name, pattern, constraints...)
	c.Options.Loose = true
	return c
}

func goOptions(pattern string, constraints ...core.Constraint) core.SearchOptions {
	return core.SearchOptions{Pattern: pattern, Language: "go", Constraints: constraints}
}

func parseGo(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := golang.New().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.False(t, tree.HasErrors(), "test source must parse cleanly")
	return tree
}

// find returns the first node in pre-order with the given kind and text.
func find(t *testing.T, root *syntax.Node, kind, text string) *syntax.Node {
	t.Helper()
	var found *syntax.Node
	root.Walk(func(n *syntax.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == kind && n.Text() == text {
			found = n
			return false
		}
		return true
	})
	require.NotNil(t, found, "no %s node with text %q", kind, text)
	return found
}

func texts(nodes []*syntax.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Text()
	}
	return out
}

func bound(r MatchResult, name string) string {
	nodes := r.Bindings[name]
	if len(nodes) != 1 {
		return ""
	}
	return nodes[0].Text()
}

const handlerSource = `package demo

func handle() error {
	if err := run(); err != nil {
		return err
	}
	log.Println("done")
	return nil
}

func other() {
	log.Println("other")
}
`
