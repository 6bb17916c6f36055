package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

// Extension keys written on generated schemas.
const (
	ExtensionType    = "x-modelgen-type"
	ExtensionWidgets = "x-modelgen-widgets"
	ExtensionTitle   = "x-modelgen-title-field"
	ExtensionOptions = "x-modelgen-options"
)

// FileName is the conventional artifact name of the exported document.
const FileName = "openapi.json"

const colorPattern = `^#([0-9a-fA-F]{3}){1,2}$`

// Option configures the exported document.
type Option func(*exportConfig)

type exportConfig struct {
	version string
	openapi string
}

// WithVersion sets info.version (default "1.0.0").
func WithVersion(version string) Option {
	return func(cfg *exportConfig) {
		if version = strings.TrimSpace(version); version != "" {
			cfg.version = version
		}
	}
}

// Document builds an OpenAPI document holding desc as the component schema
// named after its slug. The document is validated before it is returned.
func Document(ctx context.Context, desc model.Descriptor, opts ...Option) (*openapi3.T, error) {
	cfg := exportConfig{version: "1.0.0", openapi: "3.0.3"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if strings.TrimSpace(desc.Name) == "" {
		return nil, fmt.Errorf("openapi: descriptor name is required")
	}

	title := desc.Label
	if strings.TrimSpace(title) == "" {
		title = desc.Name
	}

	doc := &openapi3.T{
		OpenAPI: cfg.openapi,
		Info: &openapi3.Info{
			Title:   title,
			Version: cfg.version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				desc.Name: ComponentSchema(desc).NewRef(),
			},
		},
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate %s: %w", desc.Name, err)
	}
	return doc, nil
}

// Marshal returns the indented JSON of Document(desc).
func Marshal(ctx context.Context, desc model.Descriptor, opts ...Option) ([]byte, error) {
	doc, err := Document(ctx, desc, opts...)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal %s: %w", desc.Name, err)
	}
	return append(payload, '\n'), nil
}

// ComponentSchema converts desc into an object schema with one property per
// field.
func ComponentSchema(desc model.Descriptor) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.Title = desc.Label
	out.Extensions = map[string]any{ExtensionType: desc.Name}
	for _, field := range desc.Fields {
		out.WithProperty(field.Name, FieldSchema(field))
		if field.Required {
			out.Required = append(out.Required, field.Name)
		}
	}
	return out
}

// FieldSchema converts one canonical field.
func FieldSchema(field model.Field) *openapi3.Schema {
	var out *openapi3.Schema
	opts := field.Options

	switch field.Type {
	case schema.TypeString:
		out = openapi3.NewStringSchema()
		if v, ok := number(opts["min"]); ok && v >= 0 {
			out.WithMinLength(int64(v))
		}
		if v, ok := number(opts["max"]); ok && v >= 0 {
			out.WithMaxLength(int64(v))
		}
		if textarea, ok := opts["textarea"].(bool); ok && textarea {
			out.Extensions = map[string]any{ExtensionOptions: map[string]any{"textarea": true}}
		}
	case schema.TypePassword:
		out = openapi3.NewStringSchema().WithFormat("password")
	case schema.TypeBoolean:
		out = openapi3.NewBoolSchema()
	case schema.TypeInteger:
		out = openapi3.NewIntegerSchema()
		bounds(out, opts)
	case schema.TypeFloat:
		out = openapi3.NewFloat64Schema()
		bounds(out, opts)
	case schema.TypeDate:
		out = openapi3.NewStringSchema().WithFormat("date")
	case schema.TypeTime:
		out = openapi3.NewStringSchema().WithFormat("time")
	case schema.TypeURL:
		out = openapi3.NewStringSchema().WithFormat("uri")
	case schema.TypeColor:
		out = openapi3.NewStringSchema().WithPattern(colorPattern)
	case schema.TypeSelect:
		out = openapi3.NewStringSchema()
		if values := choiceValues(opts); len(values) > 0 {
			out.WithEnum(values...)
		}
	case schema.TypeCheckboxes:
		items := openapi3.NewStringSchema()
		if values := choiceValues(opts); len(values) > 0 {
			items.WithEnum(values...)
		}
		out = openapi3.NewArraySchema().WithItems(items).WithUniqueItems(true)
	case schema.TypeObject:
		out = nestedObject(opts["schema"])
	case schema.TypeArray:
		out = openapi3.NewArraySchema().WithItems(nestedObject(opts["schema"]))
		if title, ok := opts["titleField"].(string); ok && title != "" {
			out.Extensions = map[string]any{ExtensionTitle: title}
		}
	case schema.TypeArea:
		out = openapi3.NewObjectSchema()
		if widgets := widgetNames(opts); len(widgets) > 0 {
			out.Extensions = map[string]any{ExtensionWidgets: widgets}
		}
	default:
		out = &openapi3.Schema{}
	}

	out.Title = field.Label
	if out.Extensions == nil {
		out.Extensions = map[string]any{}
	}
	out.Extensions[ExtensionType] = field.Type
	return out
}

func bounds(out *openapi3.Schema, opts map[string]any) {
	if v, ok := number(opts["min"]); ok {
		out.WithMin(v)
	}
	if v, ok := number(opts["max"]); ok {
		out.WithMax(v)
	}
}

// nestedObject builds an object schema from a list of {name, label, type,
// required} member descriptions.
func nestedObject(raw any) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	members, _ := raw.([]any)
	for _, item := range members {
		member, ok := item.(map[string]any)
		if !ok {
			continue
		}
		instance := model.FieldInstance(member)
		name := instance.Name()
		if name == "" {
			continue
		}
		label, _ := member["label"].(string)
		out.WithProperty(name, FieldSchema(model.Field{
			Name:     name,
			Label:    label,
			Type:     instance.Type(),
			Required: instance.Required(),
		}))
		if instance.Required() {
			out.Required = append(out.Required, name)
		}
	}
	return out
}

func choiceValues(opts map[string]any) []any {
	choices, _ := opts["choices"].([]any)
	var values []any
	for _, item := range choices {
		choice, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if value, ok := choice["value"].(string); ok && value != "" {
			values = append(values, value)
		}
	}
	return values
}

func widgetNames(opts map[string]any) []string {
	envelope, _ := opts["options"].(map[string]any)
	widgets, _ := envelope["widgets"].(map[string]any)
	names := make([]string, 0, len(widgets))
	for name := range widgets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
