package javascript

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/termfx/sift/providers/base"
)

// Config implements LanguageConfig for JavaScript
type Config struct{}

func (c *Config) Language() string { return "javascript" }

func (c *Config) Extensions() []string { return []string{".js", ".jsx", ".mjs", ".cjs"} }

func (c *Config) GetLanguage() *sitter.Language { return javascript.GetLanguage() }

func (c *Config) TemplateWrappers() []base.Wrapper {
	return []base.Wrapper{
		{
			Name:    "program",
			Wrap:    func(text string) string { return text + "\n" },
			Extract: base.NamedChildrenExcept(),
		},
		{
			Name:    "body",
			Wrap:    func(text string) string { return "function sift() {\n" + text + "\n}\n" },
			Extract: base.BodyStatements("function_declaration"),
		},
	}
}

func (c *Config) UnwrapKinds() []string { return []string{"expression_statement"} }

func (c *Config) IgnorableKinds() []string { return []string{"comment"} }
