package typescript

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/termfx/sift/providers/base"
)

// Config implements LanguageConfig for TypeScript. TSX files need their own
// grammar and are not covered.
type Config struct{}

// Language identifier
func (c *Config) Language() string {
	return "typescript"
}

// Extensions supported
func (c *Config) Extensions() []string {
	return []string{".ts", ".mts", ".cts"}
}

// GetLanguage returns tree-sitter language for TypeScript
func (c *Config) GetLanguage() *sitter.Language {
	return typescript.GetLanguage()
}

func (c *Config) TemplateWrappers() []base.Wrapper {
	return []base.Wrapper{
		{
			Name:    "program",
			Wrap:    func(text string) string { return text + "\n" },
			Extract: base.NamedChildrenExcept(),
		},
		{
			Name:    "body",
			Wrap:    func(text string) string { return "function sift(): void {\n" + text + "\n}\n" },
			Extract: base.BodyStatements("function_declaration"),
		},
	}
}

func (c *Config) UnwrapKinds() []string { return []string{"expression_statement"} }

func (c *Config) IgnorableKinds() []string { return []string{"comment"} }
