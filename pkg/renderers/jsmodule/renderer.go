package jsmodule

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/render"
	"github.com/goliatone/go-modelgen/pkg/render/jsliteral"
	rendertemplate "github.com/goliatone/go-modelgen/pkg/render/template"
	"github.com/goliatone/go-modelgen/pkg/render/template/pongo"
)

// Format selects the module system of the generated artifact.
type Format string

const (
	// FormatCommonJS emits `module.exports = {...}`.
	FormatCommonJS Format = "commonjs"
	// FormatESM emits `export default {...}`.
	FormatESM Format = "esm"
)

// FieldsKey is the descriptor property listing the derived type's fields.
const FieldsKey = "addFields"

const moduleTemplate = "templates/module"

type Option func(*config)

type config struct {
	format           Format
	style            jsliteral.Style
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
}

// WithFormat selects CommonJS or ES module output.
func WithFormat(format Format) Option {
	return func(cfg *config) {
		if format != "" {
			cfg.format = format
		}
	}
}

// WithStyle replaces the literal printing style.
func WithStyle(style jsliteral.Style) Option {
	return func(cfg *config) {
		cfg.style = style
	}
}

// WithPrintWidth overrides the line width of the default style.
func WithPrintWidth(width int) Option {
	return func(cfg *config) {
		if width > 0 {
			cfg.style.Width = width
		}
	}
}

// WithTemplatesFS supplies an alternate wrapper template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads the wrapper template from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// Renderer prints a Model Descriptor as a JavaScript module exporting one
// object literal.
type Renderer struct {
	format    Format
	style     jsliteral.Style
	templates rendertemplate.TemplateRenderer
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer. The default is CommonJS in the default style.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		format:     FormatCommonJS,
		style:      jsliteral.DefaultStyle(),
		templateFS: TemplatesFS(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	switch cfg.format {
	case FormatCommonJS, FormatESM:
	default:
		return nil, fmt.Errorf("jsmodule renderer: unknown format %q", cfg.format)
	}

	templates := cfg.templateRenderer
	if templates == nil {
		if cfg.templateFS == nil {
			cfg.templateFS = TemplatesFS()
		}
		engine, err := pongo.New(pongo.WithFS(cfg.templateFS), pongo.WithExtension(".tmpl"))
		if err != nil {
			return nil, fmt.Errorf("jsmodule renderer: configure template renderer: %w", err)
		}
		templates = engine
	}

	return &Renderer{format: cfg.format, style: cfg.style, templates: templates}, nil
}

func (r *Renderer) Name() string {
	return string(r.format)
}

func (r *Renderer) Extension() string {
	return "js"
}

func (r *Renderer) Render(_ context.Context, desc model.Descriptor) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("jsmodule renderer: template renderer is nil")
	}

	node, err := DescriptorNode(desc)
	if err != nil {
		return nil, fmt.Errorf("jsmodule renderer: build literal: %w", err)
	}

	prefix := r.exportPrefix()
	result, err := r.templates.RenderTemplate(moduleTemplate, map[string]any{
		"prefix": prefix,
		"body":   r.style.Format(node, utf8.RuneCountInString(prefix)),
		"semi":   r.style.Semi,
	})
	if err != nil {
		return nil, fmt.Errorf("jsmodule renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) exportPrefix() string {
	if r.format == FormatESM {
		return "export default "
	}
	return "module.exports = "
}

// DescriptorNode converts desc into the exported object literal:
// { extend, name, label, addFields }. extend is omitted when empty.
func DescriptorNode(desc model.Descriptor) (jsliteral.Object, error) {
	obj := make(jsliteral.Object, 0, 4)
	if desc.Extends != "" {
		obj = obj.Set("extend", jsliteral.String(desc.Extends))
	}
	obj = obj.Set("name", jsliteral.String(desc.Name))
	obj = obj.Set("label", jsliteral.String(desc.Label))

	fields := make(jsliteral.Array, 0, len(desc.Fields))
	for _, field := range desc.Fields {
		node, err := FieldNode(field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		fields = append(fields, node)
	}
	return obj.Set(FieldsKey, fields), nil
}

// FieldNode converts one canonical field. Canonical keys come first in fixed
// order, followed by option keys in sorted order.
func FieldNode(field model.Field) (jsliteral.Object, error) {
	obj := jsliteral.Object{
		{Key: model.KeyName, Value: jsliteral.String(field.Name)},
		{Key: model.KeyLabel, Value: jsliteral.String(field.Label)},
		{Key: model.KeyRequired, Value: jsliteral.Bool(field.Required)},
		{Key: model.KeyType, Value: jsliteral.String(field.Type)},
	}
	if len(field.Options) == 0 {
		return obj, nil
	}

	options, err := jsliteral.FromValue(field.Options)
	if err != nil {
		return nil, err
	}
	for _, prop := range options.(jsliteral.Object) {
		switch prop.Key {
		case model.KeyName, model.KeyLabel, model.KeyRequired, model.KeyType:
			continue
		}
		obj = append(obj, prop)
	}
	return obj, nil
}
