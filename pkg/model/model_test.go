package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelgen/pkg/schema"
)

func registry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Default()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	return reg
}

func TestNormalize_Naming(t *testing.T) {
	n := NewNormalizer(registry(t))

	field, err := n.Normalize(FieldInstance{"name": "custom name", "type": "date", "required": true})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := Field{Name: "customName", Label: "Custom Name", Required: true, Type: "date"}
	if diff := cmp.Diff(want, field); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_UnknownTypeHasNoExtraKeys(t *testing.T) {
	n := NewNormalizer(registry(t))

	field, err := n.Normalize(FieldInstance{"name": "x", "type": "bogus", "bogusOptions": []any{"a"}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := map[string]any{"name": "x", "label": "X", "required": false, "type": "bogus"}
	if diff := cmp.Diff(want, field.Map()); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_MissingType(t *testing.T) {
	n := NewNormalizer(registry(t))

	_, err := n.Normalize(FieldInstance{"name": "x"})
	if !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}

	_, err = n.NormalizeAll([]FieldInstance{{"name": "a", "type": "string"}, {"name": "b", "type": ""}})
	if !errors.Is(err, ErrMissingType) || !strings.Contains(err.Error(), "field 1") {
		t.Fatalf("expected wrapped ErrMissingType for field 1, got %v", err)
	}
}

func TestNormalize_UnwrapsTypeOptions(t *testing.T) {
	n := NewNormalizer(registry(t))

	field, err := n.Normalize(FieldInstance{
		"name":              "rating",
		"type":              "integer",
		"required":          "true",
		"integerOptions":    []any{"min", "max"},
		"minIntegerOptions": 1,
		"maxIntegerOptions": 5,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := map[string]any{
		"name": "rating", "label": "Rating", "required": true, "type": "integer",
		"min": 1, "max": 5,
	}
	if diff := cmp.Diff(want, field.Map()); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_AreaKeepsEnvelope(t *testing.T) {
	n := NewNormalizer(registry(t))

	field, err := n.Normalize(FieldInstance{
		"name":        "body",
		"type":        "area",
		"areaOptions": []any{"apostrophe-rich-text"},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := map[string]any{
		"options": map[string]any{
			"widgets": map[string]any{"apostrophe-rich-text": map[string]any{}},
		},
	}
	if diff := cmp.Diff(want, field.Options); diff != "" {
		t.Fatalf("area options mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_CanonicalKeysWin(t *testing.T) {
	decl := schema.Declarations{
		Root: "type",
		Nodes: []schema.Node{
			{Name: "type", Type: schema.TypeSelect, Choices: []schema.Choice{
				{Value: "string", ShowFields: []string{"shadow"}},
			}},
			{Name: "shadow", Type: schema.TypeObject, Schema: []schema.Node{
				{Name: "label", Type: schema.TypeString},
				{Name: "help", Type: schema.TypeString},
			}},
		},
	}
	reg, err := schema.New(decl)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	field, err := NewNormalizer(reg).Normalize(FieldInstance{
		"name":   "headline",
		"type":   "string",
		"shadow": map[string]any{"label": "Overridden", "help": "Shown in the editor"},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if field.Label != "Headline" {
		t.Fatalf("option key replaced canonical label: %q", field.Label)
	}
	if diff := cmp.Diff(map[string]any{"help": "Shown in the editor"}, field.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesize(t *testing.T) {
	fields := []Field{{Name: "customName", Label: "Custom Name", Type: "string"}}

	desc := Synthesize(Entity{Title: "my recipe", Slug: "my-recipe"}, fields)
	want := Descriptor{
		Kind:    KindDerivedType,
		Extends: DefaultExtends,
		Name:    "my-recipe",
		Label:   "My Recipe",
		Fields:  fields,
	}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}

	fields[0].Name = "changed"
	if desc.Fields[0].Name != "customName" {
		t.Fatalf("descriptor shares the caller's field slice")
	}

	custom := Synthesize(Entity{Title: "x", Slug: "x"}, nil, WithExtends("apostrophe-custom-pages"))
	if custom.Extends != "apostrophe-custom-pages" {
		t.Fatalf("extends override ignored: %q", custom.Extends)
	}
}

func TestBuilder_AppliesDecorators(t *testing.T) {
	b := NewBuilder(registry(t), WithLabeler(strings.ToUpper)).WithDecorators(DecoratorFunc(func(d *Descriptor) error {
		d.Fields = append(d.Fields, Field{Name: "slugField", Label: "SLUG", Type: "string"})
		return nil
	}))

	desc, err := b.Build(Entity{Title: "recipe", Slug: "recipe"}, []FieldInstance{{"name": "title", "type": "string"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if desc.Label != "RECIPE" || len(desc.Fields) != 2 || desc.Fields[0].Label != "TITLE" {
		t.Fatalf("unexpected descriptor: %#v", desc)
	}

	failing := b.WithDecorators(DecoratorFunc(func(*Descriptor) error { return errors.New("nope") }))
	if _, err := failing.Build(Entity{Slug: "x"}, nil); err == nil {
		t.Fatalf("expected decorator error")
	}
}
