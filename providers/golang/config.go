package golang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/termfx/sift/providers/base"
	"github.com/termfx/sift/syntax"
)

// Config implements LanguageConfig for Go
type Config struct{}

// Language identifier
func (c *Config) Language() string {
	return "go"
}

// Extensions supported
func (c *Config) Extensions() []string {
	return []string{".go"}
}

// GetLanguage returns tree-sitter language for Go
func (c *Config) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

// TemplateWrappers tries top-level declarations first, then statements in a
// function body, then a bare expression.
func (c *Config) TemplateWrappers() []base.Wrapper {
	return []base.Wrapper{
		{
			Name:    "file",
			Wrap:    func(text string) string { return "package sift\n" + text + "\n" },
			Extract: base.NamedChildrenExcept("package_clause"),
		},
		{
			Name:    "body",
			Wrap:    func(text string) string { return "package sift\nfunc sift() {\n" + text + "\n}\n" },
			Extract: base.BodyStatements("function_declaration", "statement_list"),
		},
		{
			Name: "expression",
			Wrap: func(text string) string { return "package sift\nvar _ = " + text + "\n" },
			Extract: func(root *syntax.Node) []*syntax.Node {
				spec := base.FirstOfKind(root, "var_spec")
				if spec == nil {
					return nil
				}
				if value := spec.ChildByField("value"); value != nil {
					return value.NamedChildren()
				}
				return nil
			},
		},
	}
}

// UnwrapKinds lets a call template match the call itself, not only a call
// statement.
func (c *Config) UnwrapKinds() []string {
	return []string{"expression_statement"}
}

// IgnorableKinds returns the kinds skipped during matching.
func (c *Config) IgnorableKinds() []string {
	return []string{"comment"}
}
