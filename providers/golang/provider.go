package golang

import "github.com/termfx/sift/providers/base"

// New creates a Go provider using base functionality with Go-specific templates
func New() *base.Provider {
	return base.New(&Config{})
}
