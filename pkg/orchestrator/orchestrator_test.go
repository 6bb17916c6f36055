package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelgen/pkg/artifact"
	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/openapi"
	"github.com/goliatone/go-modelgen/pkg/orchestrator"
	"github.com/goliatone/go-modelgen/pkg/reload"
	"github.com/goliatone/go-modelgen/pkg/render"
	"github.com/goliatone/go-modelgen/pkg/testsupport"
)

type fixture struct {
	root      string
	registry  string
	writer    *artifact.Writer
	restarted []string
	exits     []int
	failWith  error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		root:     filepath.Join(dir, "modules"),
		registry: filepath.Join(dir, "default.json"),
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		t.Fatalf("mkdir modules: %v", err)
	}
	if err := os.WriteFile(f.registry, []byte(`{"modules": {"existing": {}}}`), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	f.writer = artifact.NewWriter(f.root, artifact.NewModuleRegistry(f.registry))
	return f
}

func (f *fixture) coordinator() *reload.Coordinator {
	supervisor := reload.SupervisorFunc(func(_ context.Context, process string) error {
		f.restarted = append(f.restarted, process)
		return f.failWith
	})
	return reload.NewCoordinator(supervisor, reload.WithExit(func(code int) {
		f.exits = append(f.exits, code)
	}))
}

func recipeRequest() orchestrator.Request {
	return orchestrator.Request{
		Entity: model.Entity{Title: "recipe", Slug: "recipe"},
		Fields: []model.FieldInstance{
			{
				"name":             "custom name",
				"required":         true,
				"type":             "string",
				"stringOptions":    []any{"max"},
				"maxLengthOptions": 120,
			},
			{"name": "published", "type": "boolean"},
		},
	}
}

func TestGenerate_WritesRegistersAndReloads(t *testing.T) {
	f := newFixture(t)
	orch := orchestrator.New(
		orchestrator.WithPersister(f.writer),
		orchestrator.WithReloader(f.coordinator()),
	)

	result, err := orch.Generate(testsupport.Context(), recipeRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if result.Renderer != "commonjs" {
		t.Fatalf("expected default commonjs renderer, got %q", result.Renderer)
	}

	wantPath := filepath.Join(f.root, "recipe", "index.js")
	if result.Artifact.Path != wantPath {
		t.Fatalf("artifact path = %q, want %q", result.Artifact.Path, wantPath)
	}
	written, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(written) != string(result.Source) {
		t.Fatalf("artifact differs from rendered source:\n%s", written)
	}
	for _, line := range []string{
		"module.exports = {",
		"  extend: 'apostrophe-pieces',",
		"  name: 'recipe',",
		"  label: 'Recipe',",
		"      name: 'customName',",
		"      label: 'Custom Name',",
		"      max: 120,",
		"      type: 'boolean',",
	} {
		if !strings.Contains(string(written), line+"\n") {
			t.Fatalf("artifact missing %q:\n%s", line, written)
		}
	}

	modules, err := artifact.NewModuleRegistry(f.registry).Modules()
	if err != nil {
		t.Fatalf("modules: %v", err)
	}
	if diff := cmp.Diff([]string{"existing", "recipe"}, modules); diff != "" {
		t.Fatalf("registry modules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{reload.DefaultProcess}, f.restarted); diff != "" {
		t.Fatalf("restart requests mismatch (-want +got):\n%s", diff)
	}
	if len(f.exits) != 0 {
		t.Fatalf("unexpected exit calls %v", f.exits)
	}
}

func TestGenerate_ReloadFailureExits(t *testing.T) {
	f := newFixture(t)
	f.failWith = errors.New("connect ECONNREFUSED")
	orch := orchestrator.New(
		orchestrator.WithPersister(f.writer),
		orchestrator.WithReloader(f.coordinator()),
	)

	_, err := orch.Generate(testsupport.Context(), recipeRequest())
	if !errors.Is(err, reload.ErrSupervisor) {
		t.Fatalf("expected supervisor error, got %v", err)
	}
	if diff := cmp.Diff([]int{reload.ExitStatus}, f.exits); diff != "" {
		t.Fatalf("exit calls mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(f.root, "recipe", "index.js")); err != nil {
		t.Fatalf("artifact should stay on disk after a failed reload: %v", err)
	}
}

func TestGenerate_MissingTypeWritesNothing(t *testing.T) {
	f := newFixture(t)
	orch := orchestrator.New(orchestrator.WithPersister(f.writer))

	req := recipeRequest()
	req.Fields = append(req.Fields, model.FieldInstance{"name": "orphan"})
	_, err := orch.Generate(testsupport.Context(), req)
	if !errors.Is(err, model.ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.root, "recipe")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no module directory, stat err %v", err)
	}
}

func TestGenerate_Errors(t *testing.T) {
	f := newFixture(t)

	if _, err := orchestrator.New().Generate(testsupport.Context(), recipeRequest()); err == nil {
		t.Fatalf("expected error without persister")
	}

	orch := orchestrator.New(orchestrator.WithPersister(f.writer))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := orch.Generate(ctx, recipeRequest()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	req := recipeRequest()
	req.Renderer = "typescript"
	if _, err := orch.Generate(testsupport.Context(), req); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
}

func TestGenerate_NoReloaderStillPersists(t *testing.T) {
	f := newFixture(t)
	orch := orchestrator.New(orchestrator.WithPersister(f.writer))

	result, err := orch.Generate(testsupport.Context(), recipeRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !result.Artifact.Registered {
		t.Fatalf("expected the module to be registered")
	}
}

func TestGenerate_ExportsOpenAPI(t *testing.T) {
	f := newFixture(t)
	orch := orchestrator.New(
		orchestrator.WithPersister(f.writer),
		orchestrator.WithOpenAPIExport(true),
		orchestrator.WithDefaultRenderer("esm"),
	)

	result, err := orch.Generate(testsupport.Context(), recipeRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(string(result.Source), "export default {") {
		t.Fatalf("expected esm output, got:\n%s", result.Source)
	}
	data, err := os.ReadFile(filepath.Join(f.root, "recipe", openapi.FileName))
	if err != nil {
		t.Fatalf("read openapi document: %v", err)
	}
	if !strings.Contains(string(data), `"x-modelgen-type"`) {
		t.Fatalf("openapi document missing type extension:\n%s", data)
	}
}

func TestPreview_DoesNotTouchDisk(t *testing.T) {
	orch := orchestrator.New(
		orchestrator.WithReloader(reload.NewCoordinator(nil, reload.WithExit(func(int) {
			t.Fatalf("preview must not reload")
		}))),
	)

	result, err := orch.Preview(testsupport.Context(), recipeRequest())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if result.Artifact.Path != "" || result.Artifact.Registered {
		t.Fatalf("preview should not persist, got %#v", result.Artifact)
	}
	if got := result.Descriptor.Fields[0].Name; got != "customName" {
		t.Fatalf("expected normalized name, got %q", got)
	}
	if diff := cmp.Diff(map[string]any{"max": 120}, result.Descriptor.Fields[0].Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_AppliesTransformerThenDecorators(t *testing.T) {
	preset, err := orchestrator.NewPresetTransformerFromFS(fstest.MapFS{
		"preset.yaml": {Data: []byte("label: Cooking Recipe\nfields:\n  customName:\n    label: Dish\n    options: {max: 80}\n")},
	}, "preset.yaml")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}

	var order []string
	orch := orchestrator.New(
		orchestrator.WithTransformer(orchestrator.TransformerFunc(func(ctx context.Context, desc *model.Descriptor) error {
			order = append(order, "transform")
			return preset.Transform(ctx, desc)
		})),
		orchestrator.WithDecorators(model.DecoratorFunc(func(desc *model.Descriptor) error {
			order = append(order, "decorate")
			if desc.Label != "Cooking Recipe" {
				t.Fatalf("decorator ran before transformer, label %q", desc.Label)
			}
			return nil
		})),
	)

	result, err := orch.Preview(testsupport.Context(), recipeRequest())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if diff := cmp.Diff([]string{"transform", "decorate"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	field := result.Descriptor.Fields[0]
	if field.Label != "Dish" || field.Options["max"] != 80 {
		t.Fatalf("preset not applied: %#v", field)
	}
	if !strings.Contains(string(result.Source), "label: 'Dish',") {
		t.Fatalf("rendered source missing preset label:\n%s", result.Source)
	}
}

func TestPresetTransformer_UnknownField(t *testing.T) {
	preset, err := orchestrator.NewPresetTransformer([]byte(`{"fields": {"missing": {"label": "x"}}}`))
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	orch := orchestrator.New(orchestrator.WithTransformer(preset))
	if _, err := orch.Preview(testsupport.Context(), recipeRequest()); err == nil || !strings.Contains(err.Error(), `"missing"`) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if _, err := orchestrator.NewPresetTransformer([]byte("  ")); err == nil {
		t.Fatalf("expected empty document error")
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	stages []string
	runs   []string
	failed []string
}

func (r *recordingObserver) ObserveStage(stage string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	if err != nil {
		r.failed = append(r.failed, stage)
	}
}

func (r *recordingObserver) ObserveRun(renderer string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, renderer)
}

func TestOrchestrator_ReportsStages(t *testing.T) {
	f := newFixture(t)
	f.failWith = errors.New("pm2 down")
	observer := &recordingObserver{}
	orch := orchestrator.New(
		orchestrator.WithPersister(f.writer),
		orchestrator.WithReloader(f.coordinator()),
		orchestrator.WithObserver(observer),
	)

	if _, err := orch.Generate(testsupport.Context(), recipeRequest()); err == nil {
		t.Fatalf("expected reload failure")
	}

	wantStages := []string{
		orchestrator.StageNormalize,
		orchestrator.StageSynthesize,
		orchestrator.StageRender,
		orchestrator.StagePersist,
		orchestrator.StageReload,
	}
	if diff := cmp.Diff(wantStages, observer.stages); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{orchestrator.StageReload}, observer.failed); diff != "" {
		t.Fatalf("failed stages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"commonjs"}, observer.runs); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultRenderers(t *testing.T) {
	registry, err := orchestrator.DefaultRenderers()
	if err != nil {
		t.Fatalf("default renderers: %v", err)
	}
	if diff := cmp.Diff([]string{"commonjs", "esm"}, registry.List()); diff != "" {
		t.Fatalf("renderers mismatch (-want +got):\n%s", diff)
	}
}
