package python

import "github.com/termfx/sift/providers/base"

// New creates a Python provider
func New() *base.Provider {
	return base.New(&Config{})
}
