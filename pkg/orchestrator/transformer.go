package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-modelgen/pkg/model"
)

// Transformer mutates a Descriptor before decorators run. Implementations
// can relabel fields, change the base type, or perform arbitrary rewrites.
type Transformer interface {
	Transform(ctx context.Context, desc *model.Descriptor) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, desc *model.Descriptor) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, desc *model.Descriptor) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, desc)
}

// PresetTransformer applies declarative overrides loaded from a YAML or JSON
// document. Fields are addressed by their normalized name:
//
//	label: Cooking Recipe
//	extend: apostrophe-pieces
//	fields:
//	  customName:
//	    label: Dish
//	    required: true
//	    options: {max: 80}
//	  body:
//	    rename: content
type PresetTransformer struct {
	document presetDocument
}

type presetDocument struct {
	Label  string                `yaml:"label" json:"label"`
	Extend string                `yaml:"extend" json:"extend"`
	Fields map[string]fieldPatch `yaml:"fields" json:"fields"`
}

type fieldPatch struct {
	Label    string         `yaml:"label" json:"label"`
	Rename   string         `yaml:"rename" json:"rename"`
	Required *bool          `yaml:"required" json:"required"`
	Options  map[string]any `yaml:"options" json:"options"`
}

// NewPresetTransformer constructs a transformer from raw YAML or JSON bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var document presetDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{document: document}, nil
}

// NewPresetTransformerFromFS loads a preset document from the provided
// filesystem path.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the declarative patches onto the supplied descriptor.
// Patches naming a field the descriptor does not carry fail the run.
func (t *PresetTransformer) Transform(ctx context.Context, desc *model.Descriptor) error {
	if desc == nil {
		return errors.New("preset transformer: descriptor is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.document.Label != "" {
		desc.Label = t.document.Label
	}
	if t.document.Extend != "" {
		desc.Extends = t.document.Extend
	}

	for name, patch := range t.document.Fields {
		field := findField(desc.Fields, name)
		if field == nil {
			return fmt.Errorf("preset transformer: field %q not found", name)
		}
		applyFieldPatch(field, patch)
	}
	return nil
}

func applyFieldPatch(field *model.Field, patch fieldPatch) {
	if patch.Label != "" {
		field.Label = patch.Label
	}
	if patch.Required != nil {
		field.Required = *patch.Required
	}
	if len(patch.Options) > 0 {
		merged := make(map[string]any, len(field.Options)+len(patch.Options))
		for key, value := range field.Options {
			merged[key] = value
		}
		for key, value := range patch.Options {
			merged[key] = value
		}
		field.Options = merged
	}
	if name := strings.TrimSpace(patch.Rename); name != "" {
		field.Name = name
	}
}

func findField(fields []model.Field, name string) *model.Field {
	for idx := range fields {
		if fields[idx].Name == name {
			return &fields[idx]
		}
	}
	return nil
}
