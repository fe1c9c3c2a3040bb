package matcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/internal/constraint"
	"github.com/termfx/sift/matcher/guard"
	"github.com/termfx/sift/syntax"
)

// Error messages of nested pattern resolution.
const (
	msgRecursive = "Pattern recursively contained within itself"
	msgNotFound  = "Configuration '%s' not found"
)

// Within holds when the node lies inside, or is, a region matched by a
// nested template.
type Within struct {
	spec   string
	nested *Matcher
}

// Evaluate searches outward from node and reports whether some match covers
// it. A match at node itself counts.
func (w *Within) Evaluate(ctx context.Context, node *syntax.Node, _ *MatchContext) (bool, error) {
	results, err := w.nested.MatchByDownUp(ctx, node)
	if err != nil {
		return false, err
	}
	for _, r := range results {
		if r.Contains(node) {
			return true, nil
		}
	}
	return false, nil
}

func (w *Within) String() string { return "within=" + w.spec }

// Nested returns the matcher the predicate searches with.
func (w *Within) Nested() *Matcher { return w.nested }

// Contains holds when the nested template matches somewhere in the node's
// subtree, the node included.
type Contains struct {
	spec   string
	nested *Matcher
}

func (c *Contains) Evaluate(ctx context.Context, node *syntax.Node, _ *MatchContext) (bool, error) {
	results, err := c.nested.MatchTopDown(ctx, node)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

func (c *Contains) String() string { return "contains=" + c.spec }

// NewWithin builds a Within predicate from spec, which is either a quoted
// template or the name of a stored configuration. A ctx without a search id
// starts a search of its own.
func (c *Compiler) NewWithin(ctx context.Context, spec, language string) (*Within, error) {
	nested, err := c.resolveNested(guard.WithSearch(ctx), spec, language)
	if err != nil {
		return nil, err
	}
	return &Within{spec: spec, nested: nested}, nil
}

// NewContains builds a Contains predicate. spec is resolved like for
// NewWithin.
func (c *Compiler) NewContains(ctx context.Context, spec, language string) (*Contains, error) {
	nested, err := c.resolveNested(guard.WithSearch(ctx), spec, language)
	if err != nil {
		return nil, err
	}
	return &Contains{spec: spec, nested: nested}, nil
}

// resolveNested compiles the template a nested predicate refers to. Quoted
// templates compile with loose matching in the enclosing language and never
// reach the registry. Names are tracked by the recursion guard for the whole
// lookup and compilation, and released on every return path.
func (c *Compiler) resolveNested(ctx context.Context, spec, language string) (*Matcher, error) {
	if constraint.IsQuoted(spec) {
		return c.compile(ctx, core.SearchOptions{
			Pattern:  constraint.Unquote(spec),
			Loose:    true,
			Language: language,
		})
	}

	if !c.guard.Enter(ctx, spec) {
		c.logger.Debug("recursive configuration reference", zap.String("name", spec))
		return nil, core.MalformedPattern(msgRecursive)
	}
	defer c.guard.Leave(ctx, spec)

	cfg, err := c.lookup(ctx, spec)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("resolved nested configuration",
		zap.String("name", spec), zap.String("language", cfg.Options.Language))
	return c.compile(ctx, cfg.Options)
}

func (c *Compiler) lookup(ctx context.Context, name string) (*core.Configuration, error) {
	if c.registry == nil {
		return nil, core.MalformedPatternCause(core.ErrConfigurationNotFound, msgNotFound, name)
	}
	cfg, ok, err := c.registry.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up configuration %q: %w", name, err)
	}
	if !ok || cfg == nil {
		return nil, core.MalformedPatternCause(core.ErrConfigurationNotFound, msgNotFound, name)
	}
	return cfg, nil
}
