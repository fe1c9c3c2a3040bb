package php

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/termfx/sift/providers/base"
	"github.com/termfx/sift/syntax"
)

// Config implements LanguageConfig for PHP
type Config struct{}

// Language identifier
func (c *Config) Language() string {
	return "php"
}

// Extensions supported
func (c *Config) Extensions() []string {
	return []string{".php", ".phtml", ".php5"}
}

// GetLanguage returns tree-sitter language for PHP
func (c *Config) GetLanguage() *sitter.Language {
	return php.GetLanguage()
}

// TemplateWrappers parses templates after an opening tag as top-level
// statements, then inside a function body, then as the value of an assignment. PHP variables are written $$name
// in templates since a single '$' starts a placeholder.
func (c *Config) TemplateWrappers() []base.Wrapper {
	return []base.Wrapper{
		{
			Name:    "program",
			Wrap:    func(text string) string { return "<?php\n" + text + "\n" },
			Extract: base.NamedChildrenExcept("php_tag", "text"),
		},
		{
			Name:    "body",
			Wrap:    func(text string) string { return "<?php\nfunction sift() {\n" + text + "\n}\n" },
			Extract: base.BodyStatements("function_definition"),
		},
		{
			Name: "expression",
			Wrap: func(text string) string { return "<?php\n$__sift = " + text + ";\n" },
			Extract: func(root *syntax.Node) []*syntax.Node {
				assign := base.FirstOfKind(root, "assignment_expression")
				if assign == nil {
					return nil
				}
				if right := assign.ChildByField("right"); right != nil {
					return []*syntax.Node{right}
				}
				return nil
			},
		},
	}
}

func (c *Config) UnwrapKinds() []string {
	return []string{"expression_statement"}
}

func (c *Config) IgnorableKinds() []string {
	return []string{"comment", "php_tag"}
}
