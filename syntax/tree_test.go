package syntax

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unsafe"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseGo(t *testing.T, src string) *Tree {
	t.Helper()
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())
	st, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	defer st.Close()
	return FromSitter(st, []byte(src), "go")
}

func generatedSource(funcs int) string {
	var b strings.Builder
	b.WriteString("package sample\n\n")
	for i := range funcs {
		fmt.Fprintf(&b, "func f%d(x int) int {\n\tif x > %d {\n\t\treturn x - 1\n\t}\n\treturn x + %d\n}\n\n", i, i, i)
	}
	return b.String()
}

func TestFromSitterTexts(t *testing.T) {
	src := generatedSource(3)
	tree := parseGo(t, src)
	require.False(t, tree.HasErrors())
	assert.Equal(t, "go", tree.Language)

	tree.Root.Walk(func(n *Node) bool {
		assert.Equal(t, src[n.Start:n.End], n.Text(), n.Kind)
		return true
	})
	assert.Equal(t, "f1", tree.NodeAt(strings.Index(src, "f1")).Text())
}

func TestFromSitterTextsShareSource(t *testing.T) {
	tree := parseGo(t, generatedSource(200))
	root := tree.Root
	base := unsafe.StringData(root.Text())

	nodes := 0
	tree.Root.Walk(func(n *Node) bool {
		nodes++
		if n.Text() == "" {
			return true
		}
		want := unsafe.Add(unsafe.Pointer(base), n.Start-root.Start)
		if unsafe.Pointer(unsafe.StringData(n.Text())) != want {
			t.Errorf("%s at %d does not point into the shared source", n.Kind, n.Start)
			return false
		}
		return true
	})
	assert.Greater(t, nodes, 200*10)
}
