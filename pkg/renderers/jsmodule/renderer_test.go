package jsmodule

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/render/jsliteral"
	"github.com/goliatone/go-modelgen/pkg/render/template/pongo"
	"github.com/goliatone/go-modelgen/pkg/testsupport"
)

func recipe() model.Descriptor {
	return model.Descriptor{
		Kind:    model.KindDerivedType,
		Extends: model.DefaultExtends,
		Name:    "recipe",
		Label:   "Recipe",
		Fields: []model.Field{
			{
				Name: "customName", Label: "Custom Name", Required: true, Type: "string",
				Options: map[string]any{"max": 120},
			},
			{
				Name: "body", Label: "Body", Type: "area",
				Options: map[string]any{
					"options": map[string]any{
						"widgets": map[string]any{
							"apostrophe-images": map[string]any{"size": "full", "limit": 1},
						},
					},
				},
			},
		},
	}
}

func TestRenderer_CommonJSGolden(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if renderer.Name() != "commonjs" || renderer.Extension() != "js" {
		t.Fatalf("unexpected renderer identity %q/%q", renderer.Name(), renderer.Extension())
	}

	out, err := renderer.Render(testsupport.Context(), recipe())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	testsupport.AssertGolden(t, filepath.Join("testdata", "recipe.commonjs.golden"), out)
}

func TestRenderer_IsDeterministic(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	first, err := renderer.Render(testsupport.Context(), recipe())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := renderer.Render(testsupport.Context(), recipe())
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("render %d differs:\n%s\nvs\n%s", i, again, first)
		}
	}
}

func TestRenderer_ESM(t *testing.T) {
	renderer, err := New(WithFormat(FormatESM))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := renderer.Render(testsupport.Context(), model.Descriptor{Name: "x", Label: "X"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "export default {\n  name: 'x',\n  label: 'X',\n  addFields: [],\n}\n"
	if diff := testsupport.CompareGolden(want, string(out)); diff != "" {
		t.Fatalf("esm output mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderer_StyleOptions(t *testing.T) {
	style := jsliteral.DefaultStyle()
	style.Semi = true
	style.SingleQuote = false

	renderer, err := New(WithStyle(style), WithPrintWidth(120))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := renderer.Render(testsupport.Context(), model.Descriptor{Name: "x", Label: "X"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `module.exports = { name: "x", label: "X", addFields: [] };` + "\n"
	if string(out) != want {
		t.Fatalf("want %q, got %q", want, out)
	}
}

func TestRenderer_CustomTemplates(t *testing.T) {
	files := fstest.MapFS{
		"templates/module.tmpl": {Data: []byte("// generated\n{{ prefix|safe }}{{ body|safe }}\n")},
	}
	renderer, err := New(WithTemplatesFS(files))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := renderer.Render(testsupport.Context(), model.Descriptor{Name: "x", Label: "X"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(string(out), "// generated\nmodule.exports = {\n") {
		t.Fatalf("custom template ignored: %q", out)
	}
}

func TestEmbeddedTemplate_RendersPrefixAndBody(t *testing.T) {
	engine, err := pongo.New(pongo.WithFS(TemplatesFS()), pongo.WithExtension(".tmpl"))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	out, err := engine.RenderTemplate(moduleTemplate, map[string]any{
		"prefix": "export default ",
		"body":   "{}",
		"semi":   true,
	})
	if err != nil {
		t.Fatalf("render embedded template: %v", err)
	}
	if out != "export default {};\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

type failingTemplates struct{}

func (failingTemplates) RenderTemplate(string, any, ...io.Writer) (string, error) {
	return "", errors.New("template exploded")
}

func (failingTemplates) RenderString(string, any, ...io.Writer) (string, error) {
	return "", errors.New("template exploded")
}

func TestRenderer_Errors(t *testing.T) {
	if _, err := New(WithFormat("amd")); err == nil {
		t.Fatalf("expected unknown format error")
	}

	renderer, err := New(WithTemplateRenderer(failingTemplates{}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if _, err := renderer.Render(testsupport.Context(), recipe()); err == nil || !strings.Contains(err.Error(), "template exploded") {
		t.Fatalf("expected template error, got %v", err)
	}

	bad := recipe()
	bad.Fields[0].Options = map[string]any{"bad": make(chan int)}
	if _, err := renderer.Render(testsupport.Context(), bad); err == nil {
		t.Fatalf("expected literal conversion error")
	}
}

func TestFieldNode_CanonicalKeysFirst(t *testing.T) {
	node, err := FieldNode(model.Field{
		Name: "n", Label: "N", Type: "integer",
		Options: map[string]any{"min": 1, "type": "shadow", "a": true},
	})
	if err != nil {
		t.Fatalf("field node: %v", err)
	}
	keys := make([]string, 0, len(node))
	for _, prop := range node {
		keys = append(keys, prop.Key)
	}
	if got := strings.Join(keys, ","); got != "name,label,required,type,a,min" {
		t.Fatalf("unexpected key order %s", got)
	}
}
