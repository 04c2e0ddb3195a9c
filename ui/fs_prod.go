//go:build !debug

package ui

import (
	"embed"
	"io/fs"
)

//go:embed dist
var distFS embed.FS

// DistFS returns the embedded UI rooted at dist/ (production: baked into binary).
func DistFS() fs.FS {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		// dist is embedded at compile time, so this cannot fail at runtime
		panic(err)
	}
	return sub
}
