package base

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/termfx/sift/providers"
	"github.com/termfx/sift/syntax"
)

// LanguageConfig defines language-specific behavior that must be implemented
type LanguageConfig interface {
	// Metadata
	Language() string
	Extensions() []string
	GetLanguage() *sitter.Language

	// TemplateWrappers lists the contexts a template is tried in, in order.
	TemplateWrappers() []Wrapper

	// UnwrapKinds are statement kinds that are replaced by their only named
	// child when they form the whole template.
	UnwrapKinds() []string

	// IgnorableKinds never take part in matching.
	IgnorableKinds() []string
}

// Wrapper embeds template text into a parseable source unit and extracts the
// template roots from the parsed result.
type Wrapper struct {
	Name    string
	Wrap    func(text string) string
	Extract func(root *syntax.Node) []*syntax.Node
}

// Provider provides common functionality for all language providers
type Provider struct {
	config  LanguageConfig
	lang    *sitter.Language
	parsers sync.Pool
	cache   *TreeCache
	unwrap  []string
	ignore  []string
}

// New creates a base provider with language-specific config
func New(config LanguageConfig) *Provider {
	lang := config.GetLanguage()
	if lang == nil {
		panic(fmt.Sprintf("failed to load %s language for tree-sitter", config.Language()))
	}

	p := &Provider{
		config: config,
		lang:   lang,
		cache:  NewTreeCache(DefaultCacheAge, DefaultCacheEntries),
		unwrap: config.UnwrapKinds(),
		ignore: config.IgnorableKinds(),
	}
	p.parsers.New = func() any {
		parser := sitter.NewParser()
		parser.SetLanguage(lang)
		return parser
	}
	return p
}

// Language returns language identifier
func (p *Provider) Language() string {
	return p.config.Language()
}

// Extensions returns supported file extensions
func (p *Provider) Extensions() []string {
	return p.config.Extensions()
}

// Ignorable reports kinds skipped during matching.
func (p *Provider) Ignorable(kind string) bool {
	return slices.Contains(p.ignore, kind)
}

// Stats reports cache counters.
func (p *Provider) Stats() providers.Stats {
	return p.cache.Stats()
}

// Parse parses a source file. Identical sources share one cached tree, so
// callers must treat the returned tree as read-only.
func (p *Provider) Parse(ctx context.Context, source []byte) (*syntax.Tree, error) {
	if tree, ok := p.cache.Get(source); ok {
		return tree, nil
	}
	tree, err := p.parse(ctx, source)
	if err != nil {
		return nil, err
	}
	p.cache.Put(source, tree)
	return tree, nil
}

func (p *Provider) parse(ctx context.Context, source []byte) (*syntax.Tree, error) {
	parser := p.parsers.Get().(*sitter.Parser)
	defer p.parsers.Put(parser)

	st, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", p.Language(), err)
	}
	if st == nil {
		return nil, fmt.Errorf("failed to parse %s source", p.Language())
	}
	defer st.Close()

	return syntax.FromSitter(st, source, p.Language()), nil
}

// ParseTemplate tries every wrapper of the language in order and returns the
// roots from the first one that parses without errors.
func (p *Provider) ParseTemplate(ctx context.Context, text string) ([]*syntax.Node, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty template")
	}

	var firstErr error
	for _, w := range p.config.TemplateWrappers() {
		src := []byte(w.Wrap(text))
		tree, err := p.parse(ctx, src)
		if err != nil {
			return nil, err
		}
		if errs := tree.Errors(); len(errs) > 0 {
			if firstErr == nil {
				firstErr = fmt.Errorf("template does not parse as %s: syntax error near %q", p.Language(), snippet(errs[0]))
			}
			continue
		}
		roots := p.filter(w.Extract(tree.Root))
		if len(roots) == 0 {
			continue
		}
		if len(roots) == 1 {
			roots[0] = p.unwrapStatement(roots[0])
		}
		return roots, nil
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("template does not parse as %s", p.Language())
	}
	return nil, firstErr
}

func (p *Provider) filter(nodes []*syntax.Node) []*syntax.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if !p.Ignorable(n.Kind) {
			out = append(out, n)
		}
	}
	return out
}

func (p *Provider) unwrapStatement(n *syntax.Node) *syntax.Node {
	if !slices.Contains(p.unwrap, n.Kind) {
		return n
	}
	named := p.filter(n.NamedChildren())
	if len(named) != 1 {
		return n
	}
	return named[0]
}

const snippetBytes = 20

// snippet returns up to snippetBytes of the node text, cut on a rune
// boundary.
func snippet(n *syntax.Node) string {
	text := n.Text()
	if len(text) > snippetBytes {
		cut := snippetBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	if text == "" && n.Parent != nil {
		return snippet(n.Parent)
	}
	return text
}

// NamedChildrenExcept returns the root's named children whose kind is not in
// skip. It serves wrappers that parse the template as a whole file.
func NamedChildrenExcept(skip ...string) func(*syntax.Node) []*syntax.Node {
	return func(root *syntax.Node) []*syntax.Node {
		var out []*syntax.Node
		for _, c := range root.NamedChildren() {
			if !slices.Contains(skip, c.Kind) {
				out = append(out, c)
			}
		}
		return out
	}
}

// BodyStatements returns the statements inside the body field of the first
// node of kind container, flattening a single statement list node.
func BodyStatements(container string, listKinds ...string) func(*syntax.Node) []*syntax.Node {
	return func(root *syntax.Node) []*syntax.Node {
		fn := FirstOfKind(root, container)
		if fn == nil {
			return nil
		}
		body := fn.ChildByField("body")
		if body == nil {
			return nil
		}
		stmts := body.NamedChildren()
		if len(stmts) == 1 && slices.Contains(listKinds, stmts[0].Kind) {
			stmts = stmts[0].NamedChildren()
		}
		return stmts
	}
}

// FirstOfKind returns the first node of the given kind in pre-order.
func FirstOfKind(root *syntax.Node, kind string) *syntax.Node {
	var found *syntax.Node
	root.Walk(func(n *syntax.Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == kind {
			found = n
			return false
		}
		return true
	})
	return found
}
