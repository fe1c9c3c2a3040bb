// Package guard detects configurations that reference themselves while a
// pattern is being compiled.
//
// Every top-level search carries its own id in its context. The guard keeps
// one set of in-flight configuration names per id, so concurrent searches
// never see each other's names.
package guard

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type searchKey struct{}

// NewSearch returns ctx tagged with a fresh search id, replacing any id ctx
// already carries.
func NewSearch(ctx context.Context) context.Context {
	return context.WithValue(ctx, searchKey{}, uuid.NewString())
}

// WithSearch returns ctx tagged with a fresh search id, unless ctx already
// carries one. Nested compilations reuse the id of their top-level search.
func WithSearch(ctx context.Context) context.Context {
	if _, ok := SearchID(ctx); ok {
		return ctx
	}
	return NewSearch(ctx)
}

// SearchID returns the search id stored in ctx.
func SearchID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(searchKey{}).(string)
	return id, ok
}

// Tracker records configuration names being resolved within a search.
type Tracker interface {
	// Enter marks name as in flight. It returns false when name is already
	// in flight for the same search.
	Enter(ctx context.Context, name string) bool
	// Leave removes name from the search's in-flight set.
	Leave(ctx context.Context, name string)
}

// Guard is the default Tracker. The zero value is ready to use.
type Guard struct {
	mu       sync.Mutex
	searches map[string]map[string]struct{}
}

// New returns an empty guard.
func New() *Guard {
	return &Guard{}
}

// Enter implements Tracker. A context without a search id belongs to no
// search and is always refused.
func (g *Guard) Enter(ctx context.Context, name string) bool {
	id, ok := SearchID(ctx)
	if !ok {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.searches == nil {
		g.searches = make(map[string]map[string]struct{})
	}
	names, ok := g.searches[id]
	if !ok {
		names = make(map[string]struct{})
		g.searches[id] = names
	}
	if _, busy := names[name]; busy {
		return false
	}
	names[name] = struct{}{}
	return true
}

// Leave implements Tracker. The search's set is dropped once it is empty.
func (g *Guard) Leave(ctx context.Context, name string) {
	id, ok := SearchID(ctx)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	names, ok := g.searches[id]
	if !ok {
		return
	}
	delete(names, name)
	if len(names) == 0 {
		delete(g.searches, id)
	}
}

// Active returns the number of searches with names in flight.
func (g *Guard) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.searches)
}
