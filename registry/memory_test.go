package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/sift/core"
)

func config(name, pattern string) core.Configuration {
	return core.Configuration{
		Name:    name,
		Options: core.SearchOptions{Pattern: pattern, Language: "go"},
	}
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(config("b", "g()"), config("a", "f()"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	got, ok, err := m.FindByName(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f()", got.Options.Pattern)

	_, ok, err = m.FindByName(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(config("a", "h()")))
	got, _, _ = m.FindByName(ctx, "a")
	assert.Equal(t, "h()", got.Options.Pattern)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	assert.Equal(t, 1, m.Len())
}

func TestMemoryValidation(t *testing.T) {
	_, err := NewMemory(config("a", "f()"), config("a", "g()"))
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	m, err := NewMemory()
	require.NoError(t, err)

	tests := []core.Configuration{
		config("has space", "f()"),
		config("1starts_with_digit", "f()"),
		config("empty", ""),
		{Name: "nolang", Options: core.SearchOptions{Pattern: "f()"}},
	}
	for _, c := range tests {
		assert.ErrorIs(t, m.Put(c), core.ErrInvalidConfiguration, c.Name)
	}
	assert.Equal(t, 0, m.Len())
}

func TestMemoryReturnsCopies(t *testing.T) {
	c := config("a", "f($x$)")
	c.Options.Constraints = []core.Constraint{{Var: "x", Predicate: "text=y"}}
	m, err := NewMemory(c)
	require.NoError(t, err)

	c.Options.Constraints[0].Predicate = "changed"
	got, _, _ := m.FindByName(context.Background(), "a")
	assert.Equal(t, "text=y", got.Options.Constraints[0].Predicate)

	got.Options.Constraints[0].Predicate = "changed"
	again, _, _ := m.FindByName(context.Background(), "a")
	assert.Equal(t, "text=y", again.Options.Constraints[0].Predicate)
}

func TestMemoryCanceledContext(t *testing.T) {
	m, err := NewMemory(config("a", "f()"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = m.FindByName(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryConcurrentReaders(t *testing.T) {
	m, err := NewMemory(config("a", "f()"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok, err := m.FindByName(context.Background(), "a"); err != nil || !ok {
					t.Error("lookup failed")
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Put(config("a", "f()")))
	}
	wg.Wait()
}
