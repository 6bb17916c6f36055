package template

import (
	"io"
)

// TemplateRenderer renders named templates or inline template content. When
// writers are supplied the rendered output is also written to each of them.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
}
