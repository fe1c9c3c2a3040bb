package javascript

import "github.com/termfx/sift/providers/base"

// New creates a JavaScript provider
func New() *base.Provider {
	return base.New(&Config{})
}
