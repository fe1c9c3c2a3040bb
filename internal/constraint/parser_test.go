package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens, err := NewLexer(`within="f($x$)" && !(text=_ || regex=/^a\/b$/)`).Tokenize()
	require.NoError(t, err)

	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenWord, TokenEq, TokenString, TokenAnd, TokenNot, TokenLParen,
		TokenWord, TokenEq, TokenWord, TokenOr, TokenWord, TokenEq, TokenRegex,
		TokenRParen, TokenEOF,
	}, types)
	assert.Equal(t, `"f($x$)"`, tokens[2].Value)
	assert.Equal(t, 7, tokens[2].Position)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single", `text=foo`, `text=foo`},
		{"quoted within", `within="func $f$() {}"`, `within="func $f$() {}"`},
		{"and binds tighter", `a=1 || b=2 && c=3`, `a=1 || (b=2 && c=3)`},
		{"parens", `(a=1 || b=2) && c=3`, `(a=1 || b=2) && c=3`},
		{"not", `!!kind=identifier`, `!!kind=identifier`},
		{"not group", `!(a=1 && b=2)`, `!(a=1 && b=2)`},
		{"flattened", `a=1 && b=2 && c=3`, `a=1 && b=2 && c=3`},
		{"config name", `within=errors.wrapped`, `within=errors.wrapped`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{``, "empty expression"},
		{`text`, "expected '=' after \"text\""},
		{`text=`, "expected value"},
		{`text=a &`, "expected &&"},
		{`(text=a`, "expected ')'"},
		{`text=a text=b`, "unexpected word"},
		{`within="abc`, "unterminated string"},
		{`regex=/ab`, "unterminated regex"},
		{`text=#`, "unexpected character"},
		{`&& text=a`, "expected predicate"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPredText(t *testing.T) {
	tests := []struct {
		input string
		kind  ValueKind
		text  string
	}{
		{`text=plain`, ValueWord, "plain"},
		{`text="a\tb"`, ValueString, "a\tb"},
		{`text='it\'s'`, ValueString, "it's"},
		{"text=`raw\\n`", ValueString, `raw\n`},
		{`regex=/a\/b/`, ValueRegex, "a/b"},
	}
	for _, tt := range tests {
		expr, err := Parse(tt.input)
		require.NoError(t, err, tt.input)
		pred, ok := expr.(*Pred)
		require.True(t, ok)
		assert.Equal(t, tt.kind, pred.Kind, tt.input)
		assert.Equal(t, tt.text, pred.Text(), tt.input)
	}
}

func TestUnquote(t *testing.T) {
	assert.True(t, IsQuoted(`"a"`))
	assert.True(t, IsQuoted("`a`"))
	assert.True(t, IsQuoted(`''`))
	assert.False(t, IsQuoted(`"a'`))
	assert.False(t, IsQuoted(`"`))
	assert.False(t, IsQuoted(`name`))

	assert.Equal(t, "name", Unquote("name"))
	assert.Equal(t, `f("x")`, Unquote(`"f(\"x\")"`))
	assert.Equal(t, `bad \q`, Unquote(`"bad \q"`))
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input string
		want  Range
	}{
		{"", One},
		{"2", Range{Min: 2, Max: 2}},
		{"0..3", Range{Min: 0, Max: 3}},
		{"1..", Range{Min: 1, Max: Unbounded}},
		{" 0 .. ", Range{Min: 0, Max: Unbounded}},
	}
	for _, tt := range tests {
		got, err := ParseCount(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	for _, bad := range []string{"x", "-1", "3..1", "1..y", "..2"} {
		_, err := ParseCount(bad)
		assert.Error(t, err, bad)
	}

	assert.True(t, One.IsOne())
	assert.True(t, Range{Min: 0, Max: Unbounded}.Allows(100))
	assert.False(t, Range{Min: 1, Max: 2}.Allows(0))
	assert.Equal(t, "1..", Range{Min: 1, Max: Unbounded}.String())
	assert.Equal(t, "0..2", Range{Min: 0, Max: 2}.String())
	assert.Equal(t, "3", Range{Min: 3, Max: 3}.String())
}
