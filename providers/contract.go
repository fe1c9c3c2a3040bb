package providers

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/termfx/sift/syntax"
)

// Provider turns source text and search templates of one language into
// syntax trees
type Provider interface {
	// Metadata
	Language() string
	Extensions() []string

	// Parse parses a complete source file.
	Parse(ctx context.Context, source []byte) (*syntax.Tree, error)

	// ParseTemplate parses template text (placeholders already replaced by
	// identifiers) and returns the template's root nodes.
	ParseTemplate(ctx context.Context, text string) ([]*syntax.Node, error)

	// Ignorable reports node kinds that never take part in matching, such as
	// comments.
	Ignorable(kind string) bool

	// Observability
	Stats() Stats
}

// Stats captures parse cache metrics exposed by providers.
type Stats struct {
	Parses    int64 `json:"parses"`
	CacheHits int64 `json:"cache_hits"`
}

// Registry manages all providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	byExt     map[string]Provider
}

// NewRegistry creates provider registry
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		byExt:     make(map[string]Provider),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider. A later registration for the same language or
// extension replaces the earlier one.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[strings.ToLower(provider.Language())] = provider
	for _, ext := range provider.Extensions() {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.byExt[ext] = provider
	}
}

// Get retrieves provider by language
func (r *Registry) Get(language string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exists := r.providers[strings.ToLower(language)]
	return p, exists
}

// ForPath returns the provider registered for the file's extension.
func (r *Registry) ForPath(path string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return p, ok
}

// DetectLanguage returns the language id for path, or "".
func (r *Registry) DetectLanguage(path string) string {
	if p, ok := r.ForPath(path); ok {
		return p.Language()
	}
	return ""
}

// Languages returns all registered language identifiers, sorted
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.providers))
	for k := range r.providers {
		langs = append(langs, k)
	}
	sort.Strings(langs)
	return langs
}
