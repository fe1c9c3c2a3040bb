package python

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/termfx/sift/providers/base"
)

// Config implements LanguageConfig for Python
type Config struct{}

func (c *Config) Language() string { return "python" }

func (c *Config) Extensions() []string { return []string{".py", ".pyi"} }

func (c *Config) GetLanguage() *sitter.Language { return python.GetLanguage() }

// TemplateWrappers parses templates as a module, falling back to a function
// body for statements that are only valid there.
func (c *Config) TemplateWrappers() []base.Wrapper {
	return []base.Wrapper{
		{
			Name:    "module",
			Wrap:    func(text string) string { return text + "\n" },
			Extract: base.NamedChildrenExcept(),
		},
		{
			Name:    "body",
			Wrap:    func(text string) string { return "def sift():\n" + indent(text, "    ") + "\n" },
			Extract: base.BodyStatements("function_definition"),
		},
	}
}

func (c *Config) UnwrapKinds() []string { return []string{"expression_statement"} }

func (c *Config) IgnorableKinds() []string { return []string{"comment"} }

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
