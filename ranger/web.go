//go:build !tinygo

package ranger

import (
	"embed"
	"io/fs"
)

//go:embed web
var webFS embed.FS

// UI returns the ranger's web page templates, for sonar.Server.ServeUI
func UI() fs.FS {
	sub, _ := fs.Sub(webFS, "web")
	return sub
}
