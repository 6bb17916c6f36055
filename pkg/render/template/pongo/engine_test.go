package pongo

import (
	"embed"
	"io"
	"io/fs"
	"testing"

	"github.com/goliatone/go-modelgen/pkg/testsupport"
)

//go:embed testdata/templates/*.tmpl
var embedded embed.FS

func newEngine(t *testing.T) *Engine {
	t.Helper()
	sub, err := fs.Sub(embedded, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := New(WithFS(sub))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, w)
	})
	if result != "Hello Ada!\n" || written != result {
		t.Fatalf("unexpected output %q / %q", result, written)
	}

	again, err := engine.RenderTemplate("hello.tmpl", struct {
		Name string `json:"name"`
	}{Name: "Grace"})
	if err != nil {
		t.Fatalf("render cached: %v", err)
	}
	if again != "Hello Grace!\n" {
		t.Fatalf("unexpected output %q", again)
	}
}

func TestEngine_RenderStringAutoescape(t *testing.T) {
	engine := newEngine(t)

	got, err := engine.RenderString("{{ a }}|{{ a|safe }}", map[string]any{"a": "x > z"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "x &gt; z|x > z" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_Errors(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error without template source")
	}
	engine := newEngine(t)
	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected missing template error")
	}
}
