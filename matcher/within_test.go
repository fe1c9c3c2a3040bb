package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/matcher/guard"
	"github.com/termfx/sift/syntax"
)

func TestWithinUnknownConfiguration(t *testing.T) {
	tracker := newSpyTracker()
	c := NewCompiler(goLanguages(), newMemory(t), WithGuard(tracker))

	for _, name := range []string{"missing", "a.b", "x-1", "_"} {
		_, err := c.NewWithin(guard.WithSearch(context.Background()), name, "go")
		require.Error(t, err)
		assert.EqualError(t, err, fmt.Sprintf("Configuration '%s' not found", name))
		assert.True(t, core.IsMalformedPattern(err))
		assert.ErrorIs(t, err, core.ErrConfigurationNotFound)
	}

	enters, refusals, leaves := tracker.counts()
	assert.Equal(t, 4, enters)
	assert.Equal(t, 0, refusals)
	assert.Equal(t, enters, leaves, "guard released on the not-found path")
	assert.Equal(t, 0, tracker.Active())
}

func TestWithinUnknownConfigurationProperty(t *testing.T) {
	c := NewCompiler(goLanguages(), newMemory(t, goConfig("known", "f()")))
	properties := gopter.NewProperties(nil)

	properties.Property("unregistered names are reported by name", prop.ForAll(
		func(name string) bool {
			if name == "known" {
				return true
			}
			_, err := c.Compile(context.Background(), goOptions("f($x$)",
				core.Constraint{Var: "x", Predicate: "within=" + name}))
			return err != nil && err.Error() == fmt.Sprintf("Configuration '%s' not found", name)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestWithinNilRegistry(t *testing.T) {
	c := NewCompiler(goLanguages(), nil)
	_, err := c.NewWithin(context.Background(), "any", "go")
	assert.EqualError(t, err, "Configuration 'any' not found")
}

func TestWithinQuotedLiteralSkipsGuardAndRegistry(t *testing.T) {
	tracker := newSpyTracker()
	reg := &spyRegistry{inner: newMemory(t)}
	c := NewCompiler(goLanguages(), reg, WithGuard(tracker))

	for _, spec := range []string{
		`"func handle() error {}"`,
		"`log.Println($y$)`",
		`'return nil'`,
	} {
		w, err := c.NewWithin(context.Background(), spec, "go")
		require.NoError(t, err, spec)
		assert.True(t, w.Nested().Options().Loose, "inline templates match loosely")
		assert.Equal(t, "go", w.Nested().Options().Language)
		assert.Equal(t, "within="+spec, w.String())
	}

	enters, _, leaves := tracker.counts()
	assert.Zero(t, enters)
	assert.Zero(t, leaves)
	assert.Zero(t, reg.lookups.Load())

	_, err := c.NewWithin(context.Background(), `"func ("`, "go")
	require.Error(t, err)
	assert.True(t, core.IsMalformedPattern(err))
	enters, _, _ = tracker.counts()
	assert.Zero(t, enters)
}

func TestWithinSelfReference(t *testing.T) {
	selfRef := goConfig("A", "log.Println($x$)", core.Constraint{Var: "x", Predicate: "within=A"})
	mem := newMemory(t, selfRef)
	tracker := newSpyTracker()
	c := NewCompiler(goLanguages(), mem, WithGuard(tracker))

	_, err := c.Compile(context.Background(), goOptions("f($x$)",
		core.Constraint{Var: "x", Predicate: "within=A"}))
	require.Error(t, err)
	assert.EqualError(t, err, "Pattern recursively contained within itself")
	assert.True(t, core.IsMalformedPattern(err))

	_, refusals, _ := tracker.counts()
	assert.Equal(t, 1, refusals, "recursion is detected exactly once")
	assert.Equal(t, 0, tracker.Active(), "no guard residue after the failure")

	// compiling A's own options closes the cycle as well
	_, err = c.Compile(context.Background(), selfRef.Options)
	assert.EqualError(t, err, "Pattern recursively contained within itself")
	assert.Equal(t, 0, tracker.Active())

	// a fresh top-level search resolves a valid A
	require.NoError(t, mem.Put(goConfig("A", "log.Println($x$)")))
	w, err := c.NewWithin(guard.WithSearch(context.Background()), "A", "go")
	require.NoError(t, err)
	assert.Equal(t, "within=A", w.String())
	assert.Equal(t, 0, tracker.Active())
}

func TestWithinMutualRecursion(t *testing.T) {
	for length := 2; length <= 5; length++ {
		t.Run(fmt.Sprintf("cycle of %d", length), func(t *testing.T) {
			var configs []core.Configuration
			for i := 0; i < length; i++ {
				next := fmt.Sprintf("C%d", (i+1)%length)
				configs = append(configs, goConfig(fmt.Sprintf("C%d", i), "f($x$)",
					core.Constraint{Var: "x", Predicate: "within=" + next}))
			}
			tracker := newSpyTracker()
			c := NewCompiler(goLanguages(), newMemory(t, configs...), WithGuard(tracker))

			_, err := c.Compile(context.Background(), goOptions("g($y$)",
				core.Constraint{Var: "y", Predicate: "within=C0"}))
			require.Error(t, err)
			assert.EqualError(t, err, "Pattern recursively contained within itself")

			enters, refusals, leaves := tracker.counts()
			assert.Equal(t, length+1, enters)
			assert.Equal(t, 1, refusals)
			assert.Equal(t, length, leaves)
			assert.Equal(t, 0, tracker.Active())
		})
	}
}

func TestWithinRepeatedNameIsNotRecursion(t *testing.T) {
	// A appears twice in one template, side by side rather than nested.
	c := NewCompiler(goLanguages(), newMemory(t, goConfig("A", "func $f$() {}")))
	m, err := c.Compile(context.Background(), goOptions("$a$ + $b$",
		core.Constraint{Var: "a", Predicate: "within=A"},
		core.Constraint{Var: "b", Predicate: "within=A || within=A"},
	))
	require.NoError(t, err)
	assert.Equal(t, "within=A || within=A", m.Pattern().vars[1].Predicate.String())
}

func TestWithinContainment(t *testing.T) {
	tree := parseGo(t, handlerSource)
	c := NewCompiler(goLanguages(), newMemory(t, looseGoConfig("handler", "func handle() error {}")))
	ctx := guard.WithSearch(context.Background())

	byName, err := c.NewWithin(ctx, "handler", "go")
	require.NoError(t, err)
	inline, err := c.NewWithin(ctx, `"func handle() error {}"`, "go")
	require.NoError(t, err)
	self, err := c.NewWithin(ctx, `"log.Println($y$)"`, "go")
	require.NoError(t, err)

	done := find(t, tree.Root, "interpreted_string_literal", `"done"`)
	otherLit := find(t, tree.Root, "interpreted_string_literal", `"other"`)
	handleFn := tree.Root.NamedChildren()[1]
	doneCall := find(t, tree.Root, "call_expression", `log.Println("done")`)

	tests := []struct {
		name string
		pred *Within
		node *syntax.Node
		want bool
	}{
		{"descendant of a match", byName, done, true},
		{"inline template", inline, done, true},
		{"match at the node itself", inline, handleFn, true},
		{"outside every match", byName, otherLit, false},
		{"enclosing match not required to be direct parent", inline, find(t, tree.Root, "identifier", "err"), true},
		{"self match of the candidate", self, doneCall, true},
		{"descendant of a nested match", self, done, true},
		{"no match around the root", self, tree.Root, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pred.Evaluate(context.Background(), tt.node, &MatchContext{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithinEvaluateIsPure(t *testing.T) {
	tree := parseGo(t, handlerSource)
	c := NewCompiler(goLanguages(), nil)
	w, err := c.NewWithin(context.Background(), `"func handle() error {}"`, "go")
	require.NoError(t, err)

	mc := &MatchContext{}
	x := find(t, tree.Root, "interpreted_string_literal", `"done"`)
	mc.bind("x", []*syntax.Node{x})
	before := mc.Bindings()

	for _, node := range []*syntax.Node{x, find(t, tree.Root, "interpreted_string_literal", `"other"`)} {
		first, err := w.Evaluate(context.Background(), node, mc)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := w.Evaluate(context.Background(), node, mc)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
	assert.Equal(t, 1, mc.Len())
	assert.Equal(t, before, mc.Bindings())
}

func TestWithinInPattern(t *testing.T) {
	tree := parseGo(t, handlerSource)
	c := NewCompiler(goLanguages(), newMemory(t, looseGoConfig("handler", "func handle() error {}")))

	for _, pred := range []string{`within="func handle() error {}"`, "within=handler"} {
		m, err := c.Compile(context.Background(), goOptions("log.Println($x$)",
			core.Constraint{Var: "x", Predicate: pred}))
		require.NoError(t, err, pred)

		results, err := m.MatchTopDown(context.Background(), tree.Root)
		require.NoError(t, err)
		require.Len(t, results, 1, pred)
		assert.Equal(t, `"done"`, bound(results[0], "x"))
	}

	m, err := c.Compile(context.Background(), goOptions("log.Println($x$)",
		core.Constraint{Var: "x", Predicate: "!within=handler"}))
	require.NoError(t, err)
	results, err := m.MatchTopDown(context.Background(), tree.Root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, `"other"`, bound(results[0], "x"))
}

func TestWithinConcurrentSearchesAreIsolated(t *testing.T) {
	mem := newMemory(t,
		goConfig("A", "log.Println($x$)", core.Constraint{Var: "x", Predicate: "within=A"}),
		looseGoConfig("V", "func $f$() {}"),
	)
	g := guard.New()
	c := NewCompiler(goLanguages(), mem, WithGuard(g))
	tree := parseGo(t, handlerSource)

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := c.Compile(context.Background(), goOptions("f($x$)",
				core.Constraint{Var: "x", Predicate: "within=A"}))
			if err == nil || err.Error() != "Pattern recursively contained within itself" {
				errs <- fmt.Errorf("self-recursive search: got %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			m, err := c.Compile(context.Background(), goOptions("log.Println($x$)",
				core.Constraint{Var: "x", Predicate: "within=V"}))
			if err != nil {
				errs <- fmt.Errorf("valid search: %w", err)
				return
			}
			results, err := m.MatchTopDown(context.Background(), tree.Root)
			if err != nil || len(results) != 2 {
				errs <- errors.New("valid search returned wrong results")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 0, g.Active())
}

func TestContains(t *testing.T) {
	tree := parseGo(t, handlerSource)
	c := NewCompiler(goLanguages(), newMemory(t, goConfig("printsOther", `log.Println("other")`)))

	for _, pred := range []string{`contains='log.Println("other")'`, "contains=printsOther"} {
		m, err := c.Compile(context.Background(), core.SearchOptions{
			Pattern:  "func $f$() {}",
			Loose:    true,
			Language: "go",
			Constraints: []core.Constraint{
				{Var: core.CompleteMatch, Predicate: pred},
			},
		})
		require.NoError(t, err, pred)

		results, err := m.MatchTopDown(context.Background(), tree.Root)
		require.NoError(t, err)
		require.Len(t, results, 1, pred)
		assert.Equal(t, "other", bound(results[0], "f"))
	}
}

func TestContainsSharesRecursionGuard(t *testing.T) {
	c := NewCompiler(goLanguages(), newMemory(t,
		goConfig("A", "f($x$)", core.Constraint{Var: "x", Predicate: "contains=B"}),
		goConfig("B", "g($y$)", core.Constraint{Var: "y", Predicate: "within=A"}),
	))
	_, err := c.Compile(context.Background(), goOptions("h($z$)",
		core.Constraint{Var: "z", Predicate: "contains=A"}))
	assert.EqualError(t, err, "Pattern recursively contained within itself")
}

// gatedRegistry holds the first lookup of gate until release is closed.
type gatedRegistry struct {
	inner   core.ConfigurationRegistry
	gate    string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRegistry(inner core.ConfigurationRegistry, gate string) *gatedRegistry {
	return &gatedRegistry{
		inner:   inner,
		gate:    gate,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *gatedRegistry) FindByName(ctx context.Context, name string) (*core.Configuration, bool, error) {
	if name == r.gate {
		first := false
		r.once.Do(func() { first = true })
		if first {
			close(r.entered)
			<-r.release
		}
	}
	return r.inner.FindByName(ctx, name)
}

// resolveWhileHeld runs resolve twice: the first call is held inside the
// registry lookup of "V" while the second one runs to completion.
func resolveWhileHeld(t *testing.T, reg *gatedRegistry, resolve func() error) {
	t.Helper()
	held := make(chan error, 1)
	go func() { held <- resolve() }()
	<-reg.entered

	require.NoError(t, resolve(), "resolution that overlaps another one")
	close(reg.release)
	require.NoError(t, <-held, "resolution that was held in the registry")
}

func TestNewWithinWithoutSearchIsIsolated(t *testing.T) {
	reg := newGatedRegistry(newMemory(t, looseGoConfig("V", "func $f$() {}")), "V")
	g := guard.New()
	c := NewCompiler(goLanguages(), reg, WithGuard(g))

	resolveWhileHeld(t, reg, func() error {
		_, err := c.NewWithin(context.Background(), "V", "go")
		return err
	})
	assert.Equal(t, 0, g.Active())
}

func TestCompileStartsFreshSearch(t *testing.T) {
	reg := newGatedRegistry(newMemory(t, looseGoConfig("V", "func $f$() {}")), "V")
	g := guard.New()
	c := NewCompiler(goLanguages(), reg, WithGuard(g))
	parent := guard.WithSearch(context.Background())

	resolveWhileHeld(t, reg, func() error {
		_, err := c.Compile(parent, goOptions("log.Println($x$)",
			core.Constraint{Var: "x", Predicate: "within=V"}))
		return err
	})
	assert.Equal(t, 0, g.Active())
}
