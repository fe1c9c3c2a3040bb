package python

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	p := New()

	roots, err := p.ParseTemplate(context.Background(), "print(_sift_x)")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "call", roots[0].Kind)

	roots, err = p.ParseTemplate(context.Background(), "def _sift_f():\n    pass")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "function_definition", roots[0].Kind)
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n\n  b", indent("a\n\nb", "  "))
}
