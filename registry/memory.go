// Package registry provides an in-memory ConfigurationRegistry.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/termfx/sift/core"
)

// Memory stores configurations of one scope in a map. It is safe for
// concurrent use; readers receive copies.
type Memory struct {
	mu      sync.RWMutex
	configs map[string]core.Configuration
}

// NewMemory returns a registry holding configs. It fails on the first
// invalid or duplicate configuration.
func NewMemory(configs ...core.Configuration) (*Memory, error) {
	m := &Memory{configs: make(map[string]core.Configuration, len(configs))}
	for _, c := range configs {
		if _, exists := m.configs[c.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate name %q", core.ErrInvalidConfiguration, c.Name)
		}
		if err := m.Put(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put adds or replaces a configuration.
func (m *Memory) Put(c core.Configuration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.Options.Constraints = append([]core.Constraint(nil), c.Options.Constraints...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[c.Name] = c
	return nil
}

// Delete removes the named configuration and reports whether it existed.
func (m *Memory) Delete(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.configs[name]
	delete(m.configs, name)
	return ok
}

// FindByName implements core.ConfigurationRegistry.
func (m *Memory) FindByName(ctx context.Context, name string) (*core.Configuration, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	c, ok := m.configs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	c.Options.Constraints = append([]core.Constraint(nil), c.Options.Constraints...)
	return &c, true, nil
}

// List returns all configurations sorted by name.
func (m *Memory) List() []core.Configuration {
	m.mu.RLock()
	out := make([]core.Configuration, 0, len(m.configs))
	for _, c := range m.configs {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of configurations.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
