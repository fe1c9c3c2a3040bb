package php

import "github.com/termfx/sift/providers/base"

// New creates a PHP provider
func New() *base.Provider {
	return base.New(&Config{})
}
