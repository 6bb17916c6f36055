package jsmodule

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded module wrapper template.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
