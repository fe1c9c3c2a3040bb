// Package matcher compiles search templates and finds their occurrences in
// syntax trees.
//
// A template is source text of the target language in which $name$
// placeholders stand for any named node. Constraints attach predicate
// expressions and occurrence counts to placeholders; the within and contains
// predicates refer to further templates, inline or by configuration name.
package matcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/termfx/sift/core"
	"github.com/termfx/sift/internal/constraint"
	"github.com/termfx/sift/internal/logging"
	"github.com/termfx/sift/matcher/guard"
	"github.com/termfx/sift/providers"
)

// Compiler turns SearchOptions into Matchers. It is safe for concurrent use;
// each Compile call is a separate search for the recursion guard.
type Compiler struct {
	languages *providers.Registry
	registry  core.ConfigurationRegistry
	guard     guard.Tracker
	logger    *zap.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithGuard replaces the compiler's recursion tracker.
func WithGuard(t guard.Tracker) Option {
	return func(c *Compiler) { c.guard = t }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// NewCompiler creates a compiler that parses templates with languages and
// resolves configuration names through registry. registry may be nil, in
// which case every name is unknown.
func NewCompiler(languages *providers.Registry, registry core.ConfigurationRegistry, opts ...Option) *Compiler {
	c := &Compiler{
		languages: languages,
		registry:  registry,
		guard:     guard.New(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles opts, including every template its predicates refer to.
// Problems with the template or its constraints are reported as
// *core.MalformedPatternError before any search runs.
func (c *Compiler) Compile(ctx context.Context, opts core.SearchOptions) (*Matcher, error) {
	return c.compile(guard.NewSearch(ctx), opts)
}

func (c *Compiler) compile(ctx context.Context, opts core.SearchOptions) (*Matcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	provider, ok := c.languages.Get(opts.Language)
	if !ok {
		return nil, core.MalformedPatternCause(core.ErrUnsupportedLanguage, "unsupported language '%s'", opts.Language)
	}

	text, err := expandPlaceholders(opts.Pattern)
	if err != nil {
		return nil, err
	}
	roots, err := provider.ParseTemplate(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.MalformedPattern("invalid pattern: %v", err)
	}

	b := newPatternBuilder(provider.Ignorable)
	pattern := &Pattern{Loose: opts.Loose}
	for _, r := range roots {
		pattern.Roots = append(pattern.Roots, b.convert(r))
	}
	pattern.vars = b.order

	if err := c.attachConstraints(ctx, pattern, b.vars, opts); err != nil {
		return nil, err
	}

	c.logger.Debug("compiled pattern",
		zap.String("language", provider.Language()),
		zap.Int("roots", len(pattern.Roots)),
		zap.Strings("variables", pattern.Variables()),
		zap.Bool("loose", opts.Loose),
	)
	return &Matcher{options: opts, pattern: pattern, provider: provider}, nil
}

func (c *Compiler) attachConstraints(ctx context.Context, pattern *Pattern, vars map[string]*Variable, opts core.SearchOptions) error {
	seen := make(map[string]bool, len(opts.Constraints))
	for _, con := range opts.Constraints {
		name := con.Var
		if seen[name] {
			return core.MalformedPattern("duplicate constraint for variable '%s'", name)
		}
		seen[name] = true

		v, known := vars[name]
		if !known && name != core.CompleteMatch {
			return core.MalformedPattern("constraint refers to unknown variable '%s'", name)
		}

		count, err := constraint.ParseCount(con.Count)
		if err != nil {
			return core.MalformedPattern("variable '%s': %v", name, err)
		}
		if name == core.CompleteMatch && !count.IsOne() {
			return core.MalformedPattern("count is not allowed for %s", core.CompleteMatch)
		}

		var pred Predicate
		if con.Predicate != "" {
			expr, err := constraint.Parse(con.Predicate)
			if err != nil {
				return core.MalformedPattern("variable '%s': %v", name, err)
			}
			if pred, err = c.buildPredicate(ctx, expr, opts.Language); err != nil {
				return err
			}
		}

		if name == core.CompleteMatch {
			pattern.Context = pred
			continue
		}
		v.Count = count
		v.Predicate = pred
	}
	return nil
}

// buildPredicate turns a parsed expression into predicates. Nested templates
// are compiled here, so construction errors abort the enclosing compile.
func (c *Compiler) buildPredicate(ctx context.Context, expr constraint.Expr, language string) (Predicate, error) {
	switch e := expr.(type) {
	case *constraint.Not:
		x, err := c.buildPredicate(ctx, e.X, language)
		if err != nil {
			return nil, err
		}
		return &Not{X: x}, nil
	case *constraint.And:
		ops, err := c.buildOperands(ctx, e.Operands, language)
		if err != nil {
			return nil, err
		}
		return &And{Operands: ops}, nil
	case *constraint.Or:
		ops, err := c.buildOperands(ctx, e.Operands, language)
		if err != nil {
			return nil, err
		}
		return &Or{Operands: ops}, nil
	case *constraint.Pred:
		return c.buildLeaf(ctx, e, language)
	default:
		return nil, fmt.Errorf("unexpected expression %T", expr)
	}
}

func (c *Compiler) buildOperands(ctx context.Context, exprs []constraint.Expr, language string) ([]Predicate, error) {
	ops := make([]Predicate, 0, len(exprs))
	for _, x := range exprs {
		p, err := c.buildPredicate(ctx, x, language)
		if err != nil {
			return nil, err
		}
		ops = append(ops, p)
	}
	return ops, nil
}

func (c *Compiler) buildLeaf(ctx context.Context, p *constraint.Pred, language string) (Predicate, error) {
	switch p.Name {
	case "within", "contains":
		if p.Kind == constraint.ValueRegex {
			return nil, core.MalformedPattern("%s expects a quoted template or a configuration name, got %s", p.Name, p.Raw)
		}
		if p.Name == "within" {
			w, err := c.NewWithin(ctx, p.Raw, language)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		cp, err := c.NewContains(ctx, p.Raw, language)
		if err != nil {
			return nil, err
		}
		return cp, nil
	case "text":
		return &TextEquals{Value: p.Text()}, nil
	case "regex":
		re, err := NewTextRegex(p.Text())
		if err != nil {
			return nil, core.MalformedPattern("invalid regex %s: %v", p.Raw, err)
		}
		return re, nil
	case "kind":
		return &KindIs{Kind: p.Text()}, nil
	case "inside":
		return &HasAncestorOfKind{Kind: p.Text()}, nil
	default:
		return nil, core.MalformedPattern("unknown predicate '%s'", p.Name)
	}
}
