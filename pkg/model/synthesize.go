package model

import (
	"fmt"

	"github.com/goliatone/go-modelgen/pkg/schema"
)

// Synthesize builds the Model Descriptor for entity. The slug is used
// verbatim as the type name.
func Synthesize(entity Entity, fields []Field, opts ...Option) Descriptor {
	cfg := newOptions(opts)
	out := make([]Field, len(fields))
	copy(out, fields)
	return Descriptor{
		Kind:    KindDerivedType,
		Extends: cfg.extends,
		Name:    entity.Slug,
		Label:   cfg.labeler(entity.Title),
		Fields:  out,
	}
}

// Builder runs normalization and synthesis as one step.
type Builder struct {
	normalizer *Normalizer
	opts       []Option
	decorators []Decorator
}

// NewBuilder returns a Builder reading option schemas from registry.
func NewBuilder(registry *schema.Registry, opts ...Option) *Builder {
	return &Builder{
		normalizer: NewNormalizer(registry, opts...),
		opts:       opts,
	}
}

// WithDecorators returns a copy of b that applies decorators after synthesis.
func (b *Builder) WithDecorators(decorators ...Decorator) *Builder {
	clone := *b
	clone.decorators = append(append([]Decorator(nil), b.decorators...), decorators...)
	return &clone
}

// Build normalizes instances and synthesizes the descriptor for entity.
func (b *Builder) Build(entity Entity, instances []FieldInstance) (Descriptor, error) {
	fields, err := b.normalizer.NormalizeAll(instances)
	if err != nil {
		return Descriptor{}, err
	}
	desc := Synthesize(entity, fields, b.opts...)
	for _, decorator := range b.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&desc); err != nil {
			return Descriptor{}, fmt.Errorf("model: decorate descriptor: %w", err)
		}
	}
	return desc, nil
}
