package modelgen

import (
	"context"

	"github.com/goliatone/go-modelgen/pkg/artifact"
	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/orchestrator"
	"github.com/goliatone/go-modelgen/pkg/reload"
)

// Entity describes the derived type being generated.
type Entity = model.Entity

// FieldInstance is one user-supplied field definition.
type FieldInstance = model.FieldInstance

// Request aliases orchestrator.Request for callers driving the pipeline from
// the top-level module.
type Request = orchestrator.Request

// Result aliases orchestrator.Result.
type Result = orchestrator.Result

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// RenderModule synthesizes and renders the module source for req without
// touching disk. It is the simplest entry point for callers that only want
// the JavaScript text.
func RenderModule(ctx context.Context, req Request, options ...orchestrator.Option) ([]byte, error) {
	result, err := orchestrator.New(options...).Preview(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Source, nil
}

// GenerateModule writes the module for req under modulesRoot, enables it in
// the module registry at registryPath, and restarts process through PM2.
// A failed restart terminates the program with exit status 2.
func GenerateModule(ctx context.Context, modulesRoot, registryPath, process string, req Request, options ...orchestrator.Option) (Result, error) {
	writer := artifact.NewWriter(modulesRoot, artifact.NewModuleRegistry(registryPath))
	coordinator := reload.NewCoordinator(reload.PM2(), reload.WithProcess(process))

	opts := append([]orchestrator.Option{
		orchestrator.WithPersister(writer),
		orchestrator.WithReloader(coordinator),
	}, options...)
	return orchestrator.New(opts...).Generate(ctx, req)
}
