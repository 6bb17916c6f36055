package model

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-modelgen/pkg/extract"
	"github.com/goliatone/go-modelgen/pkg/naming"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

// Option configures normalization and synthesis.
type Option func(*options)

type options struct {
	namer   func(string) string
	labeler func(string) string
	extends string
}

// WithLabeler overrides the label casing function (default naming.StartCase).
func WithLabeler(labeler func(string) string) Option {
	return func(opts *options) {
		if labeler != nil {
			opts.labeler = labeler
		}
	}
}

// WithNamer overrides the identifier casing function (default naming.CamelCase).
func WithNamer(namer func(string) string) Option {
	return func(opts *options) {
		if namer != nil {
			opts.namer = namer
		}
	}
}

// WithExtends sets the base type recorded on synthesized descriptors.
func WithExtends(extends string) Option {
	return func(opts *options) {
		opts.extends = strings.TrimSpace(extends)
	}
}

func newOptions(opts []Option) options {
	cfg := options{
		namer:   naming.CamelCase,
		labeler: naming.StartCase,
		extends: DefaultExtends,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Normalizer maps field instances to canonical field descriptors.
type Normalizer struct {
	extractor *extract.Extractor
	areaType  string
	opts      options
}

// NewNormalizer returns a Normalizer extracting options from registry.
func NewNormalizer(registry *schema.Registry, opts ...Option) *Normalizer {
	return &Normalizer{
		extractor: extract.New(registry),
		areaType:  registry.AreaType(),
		opts:      newOptions(opts),
	}
}

// Normalize canonicalizes one field instance. It fails with ErrMissingType
// when the instance has no type.
func (n *Normalizer) Normalize(instance FieldInstance) (Field, error) {
	fieldType := instance.Type()
	if strings.TrimSpace(fieldType) == "" {
		return Field{}, fmt.Errorf("%w: field %q", ErrMissingType, instance.Name())
	}

	name := instance.Name()
	field := Field{
		Name:     n.opts.namer(name),
		Label:    n.opts.labeler(name),
		Required: instance.Required(),
		Type:     fieldType,
	}

	extracted, ok := n.extractor.Field(instance).(map[string]any)
	if !ok {
		return field, nil
	}

	var merged map[string]any
	if n.areaType != "" && fieldType == n.areaType {
		merged = extracted
	} else {
		merged, _ = extracted[fieldType].(map[string]any)
	}
	field.Options = withoutCanonical(merged)
	return field, nil
}

// NormalizeAll normalizes instances in order, stopping at the first error.
func (n *Normalizer) NormalizeAll(instances []FieldInstance) ([]Field, error) {
	fields := make([]Field, 0, len(instances))
	for i, instance := range instances {
		field, err := n.Normalize(instance)
		if err != nil {
			return nil, fmt.Errorf("model: normalize field %d: %w", i, err)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func withoutCanonical(values map[string]any) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch k {
		case KeyName, KeyLabel, KeyRequired, KeyType:
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
