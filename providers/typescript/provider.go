package typescript

import "github.com/termfx/sift/providers/base"

// New creates a TypeScript provider
func New() *base.Provider {
	return base.New(&Config{})
}
