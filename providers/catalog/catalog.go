// Package catalog assembles the built-in language providers.
package catalog

import (
	"github.com/termfx/sift/providers"
	"github.com/termfx/sift/providers/golang"
	"github.com/termfx/sift/providers/javascript"
	"github.com/termfx/sift/providers/php"
	"github.com/termfx/sift/providers/python"
	"github.com/termfx/sift/providers/typescript"
)

// Default returns a registry holding every built-in provider.
func Default() *providers.Registry {
	return providers.NewRegistry(
		golang.New(),
		python.New(),
		javascript.New(),
		typescript.New(),
		php.New(),
	)
}
