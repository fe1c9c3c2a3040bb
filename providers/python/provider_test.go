package python

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	p := New()

	assert.Equal(t, "python", p.Language())
	assert.ElementsMatch(t, []string{".py", ".pyi"}, p.Extensions())

	tree, err := p.Parse(context.Background(), []byte("# note\nx = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "module", tree.Root.Kind)
	assert.False(t, tree.HasErrors())
	assert.True(t, p.Ignorable("comment"))
}

func TestParseTemplateStatementInBody(t *testing.T) {
	roots, err := New().ParseTemplate(context.Background(), "return _sift_x")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "return_statement", roots[0].Kind)
}
