package matcher

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/sift/internal/logging"

	"github.com/termfx/sift/core"
)

func TestExpandPlaceholders(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"f($x$)", "f(_sift_x)"},
		{"$a$ + $b_2$", "_sift_a + _sift_b_2"},
		{"cost := $$5", "cost := $5"},
		{"no vars", "no vars"},
	}
	for _, tt := range tests {
		got, err := expandPlaceholders(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := expandPlaceholders("f($x)")
	assert.EqualError(t, err, "unterminated variable at offset 2")
	_, err = expandPlaceholders("f($a b$)")
	assert.EqualError(t, err, "invalid variable name 'a b'")
}

func TestCompileMalformed(t *testing.T) {
	c := NewCompiler(goLanguages(), newMemory(t))

	tests := []struct {
		name string
		opts core.SearchOptions
		msg  string
	}{
		{"unknown language", core.SearchOptions{Pattern: "f()", Language: "cobol"}, "unsupported language 'cobol'"},
		{"syntax error", goOptions("func ("), "invalid pattern: template does not parse as go"},
		{"empty pattern", goOptions("  "), "invalid pattern: empty template"},
		{"unknown variable", goOptions("f($x$)", core.Constraint{Var: "y", Predicate: "text=a"}), "constraint refers to unknown variable 'y'"},
		{"duplicate constraint", goOptions("f($x$)",
			core.Constraint{Var: "x", Predicate: "text=a"},
			core.Constraint{Var: "x", Predicate: "text=b"}), "duplicate constraint for variable 'x'"},
		{"bad predicate syntax", goOptions("f($x$)", core.Constraint{Var: "x", Predicate: "text="}), "variable 'x': invalid predicate"},
		{"unknown predicate", goOptions("f($x$)", core.Constraint{Var: "x", Predicate: "color=red"}), "unknown predicate 'color'"},
		{"bad regex", goOptions("f($x$)", core.Constraint{Var: "x", Predicate: "regex=/(/"}), "invalid regex /(/"},
		{"regex as within", goOptions("f($x$)", core.Constraint{Var: "x", Predicate: "within=/a/"}), "within expects a quoted template"},
		{"bad count", goOptions("f($x$)", core.Constraint{Var: "x", Count: "2..1"}), "variable 'x': invalid count"},
		{"count on context", goOptions("f($x$)", core.Constraint{Var: core.CompleteMatch, Count: "2"}), "count is not allowed for __context__"},
		{"nested quoted template", goOptions("f($x$)", core.Constraint{Var: "x", Predicate: `within="func ("`}), "invalid pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(context.Background(), tt.opts)
			require.Error(t, err)
			assert.True(t, core.IsMalformedPattern(err), "got %T", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := c.Compile(context.Background(), core.SearchOptions{Pattern: "f()", Language: "cobol"})
	assert.ErrorIs(t, err, core.ErrUnsupportedLanguage)
}

func TestCompileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCompiler(goLanguages(), nil).Compile(ctx, goOptions("f()"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, core.IsMalformedPattern(err))
}

func TestCompiledPattern(t *testing.T) {
	m := compileGo(t, goOptions("$f$($a$, $a$)",
		core.Constraint{Var: "a", Count: "0..1"},
		core.Constraint{Var: "f", Predicate: "text=max || kind=selector_expression"},
	))

	p := m.Pattern()
	assert.Equal(t, []string{"f", "a"}, p.Variables())
	assert.False(t, p.IsSequence())
	require.Len(t, p.Roots, 1)
	assert.Equal(t, "call_expression", p.Roots[0].Kind)
	assert.True(t, p.Roots[0].Children[0].IsVar())
	assert.Equal(t, `(call_expression $f$ (argument_list "(" $a${0..1} "," $a${0..1} ")"))`, p.String())
	assert.Equal(t, `text="max" || kind=selector_expression`, p.vars[0].Predicate.String())
	assert.Equal(t, "$f$($a$, $a$)", m.String())
}

func TestPredicates(t *testing.T) {
	tree := parseGo(t, handlerSource)

	tests := []struct {
		name      string
		pattern   string
		predicate string
		want      []string
	}{
		{"text", "return $x$", `text=nil`, []string{"return nil"}},
		{"quoted text", "log.Println($x$)", `text='"other"'`, []string{`log.Println("other")`}},
		{"regex", "log.Println($x$)", `regex=/^"d/`, []string{`log.Println("done")`}},
		{"kind", "return $x$", `kind=expression_list`, []string{"return err", "return nil"}},
		{"inside", "return $x$", `inside=if_statement`, []string{"return err"}},
		{"not inside", "return $x$", `!inside=if_statement`, []string{"return nil"}},
		{"and", "return $x$", `inside=function_declaration && text=err`, []string{"return err"}},
		{"or", "log.Println($x$)", `text='"done"' || text='"other"'`, []string{`log.Println("done")`, `log.Println("other")`}},
		{"nothing", "log.Println($x$)", `text=nope`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := compileGo(t, goOptions(tt.pattern, core.Constraint{Var: "x", Predicate: tt.predicate}))
			results, err := m.MatchTopDown(context.Background(), tree.Root)
			require.NoError(t, err)

			var got []string
			for _, r := range results {
				got = append(got, r.Node.Text())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextConstraint(t *testing.T) {
	tree := parseGo(t, handlerSource)
	m := compileGo(t, goOptions("return $x$",
		core.Constraint{Var: core.CompleteMatch, Predicate: "inside=if_statement"}))

	results, err := m.MatchTopDown(context.Background(), tree.Root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "return err", results[0].Node.Text())
	assert.NotNil(t, m.Pattern().Context)
}

func TestCompilerLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("debug", "json", &buf)
	require.NoError(t, err)
	c := NewCompiler(goLanguages(), nil, WithLogger(logger))

	_, err = c.Compile(context.Background(), goOptions("f($x$)"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"compiled pattern"`)
	assert.Contains(t, buf.String(), `"language":"go"`)
}
