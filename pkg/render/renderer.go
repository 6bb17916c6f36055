package render

import (
	"context"

	"github.com/goliatone/go-modelgen/pkg/model"
)

// Renderer converts a Model Descriptor into the source text of a module
// artifact. Extension is the file extension of the artifact without the dot.
type Renderer interface {
	Name() string
	Extension() string
	Render(ctx context.Context, desc model.Descriptor) ([]byte, error)
}
