package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-modelgen/pkg/artifact"
	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/openapi"
	"github.com/goliatone/go-modelgen/pkg/render"
	"github.com/goliatone/go-modelgen/pkg/renderers/jsmodule"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

const defaultRendererName = string(jsmodule.FormatCommonJS)

// Pipeline stages reported to observers and logs.
const (
	StageNormalize  = "normalize"
	StageSynthesize = "synthesize"
	StageRender     = "render"
	StagePersist    = "persist"
	StageReload     = "reload"
)

// Persister writes a rendered module and enables it. *artifact.Writer
// satisfies it.
type Persister interface {
	Persist(ctx context.Context, slug, ext string, source []byte, extras ...artifact.File) (artifact.Result, error)
}

// Reloader asks the host supervisor to pick up new modules.
// *reload.Coordinator satisfies it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Observer receives stage and run timings.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveRun(renderer string, elapsed time.Duration, err error)
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithProvider injects the source of type schema registry snapshots. A
// *schema.Registry or a *schema.Holder may be passed.
func WithProvider(provider schema.Provider) Option {
	return func(o *Orchestrator) {
		o.provider = provider
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		if name != "" {
			o.defaultRenderer = name
		}
	}
}

// WithPersister injects the artifact writer used by Generate.
func WithPersister(persister Persister) Option {
	return func(o *Orchestrator) {
		o.persister = persister
	}
}

// WithReloader injects the reload coordinator run after persistence.
func WithReloader(reloader Reloader) Option {
	return func(o *Orchestrator) {
		o.reloader = reloader
	}
}

// WithModelOptions forwards options to the normalizer and synthesizer.
func WithModelOptions(opts ...model.Option) Option {
	return func(o *Orchestrator) {
		o.modelOptions = append(o.modelOptions, opts...)
	}
}

// WithTransformer registers a Transformer that can mutate descriptors after
// synthesis but before decorators run.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithDecorators registers decorators that run against the synthesized
// descriptor before rendering.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		if len(decorators) == 0 {
			return
		}
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithOpenAPIExport writes an OpenAPI document next to every module.
func WithOpenAPIExport(enabled bool, opts ...openapi.Option) Option {
	return func(o *Orchestrator) {
		o.exportOpenAPI = enabled
		o.openapiOptions = opts
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver registers a timing observer, typically a metrics collector.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// Orchestrator coordinates the save pipeline from field instances to an
// enabled, reloaded module. Runs are serialised: the artifacts they touch
// have a single writer.
type Orchestrator struct {
	mu sync.Mutex

	provider        schema.Provider
	registry        *render.Registry
	defaultRenderer string
	persister       Persister
	reloader        Reloader
	modelOptions    []model.Option
	transformer     Transformer
	decorators      []model.Decorator
	exportOpenAPI   bool
	openapiOptions  []openapi.Option
	logger          zerolog.Logger
	observer        Observer
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations: the
// embedded schema registry and the commonjs/esm module renderers.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one derived type to generate.
type Request struct {
	// Entity carries the title and URL-safe slug of the new type.
	Entity model.Entity

	// Fields lists the collaborator field instances in display order.
	Fields []model.FieldInstance

	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string
}

// Result reports what a run produced.
type Result struct {
	RunID      string
	Renderer   string
	Descriptor model.Descriptor
	Source     []byte
	Artifact   artifact.Result
}

// Generate runs the full pipeline. Once started, a run is not cancelled by
// ctx: it completes or fails. A reload failure is handed to the Reloader,
// which terminates the host process by default.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if o.initialiseErr != nil {
		return Result{}, o.initialiseErr
	}
	if o.persister == nil {
		return Result{}, errors.New("orchestrator: artifact persister is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	run := o.newRun(req)
	started := time.Now()

	result, err := o.generate(ctx, run, req)
	o.finish(run, started, err)
	return result, err
}

// Preview runs normalize → synthesize → render without touching disk or the
// supervisor.
func (o *Orchestrator) Preview(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if o.initialiseErr != nil {
		return Result{}, o.initialiseErr
	}

	run := o.newRun(req)
	run.logger = run.logger.With().Bool("preview", true).Logger()
	started := time.Now()

	result, _, err := o.build(ctx, run, req)
	if err == nil {
		run.logger.Debug().Dur("duration", time.Since(started)).Msg("preview rendered")
	}
	return result, err
}

// Renderers lists the registered renderer names.
func (o *Orchestrator) Renderers() []string {
	if o.registry == nil {
		return nil
	}
	return o.registry.List()
}

type run struct {
	id       string
	renderer string
	logger   zerolog.Logger
}

func (o *Orchestrator) newRun(req Request) *run {
	id := uuid.NewString()
	name := req.Renderer
	if name == "" {
		name = o.defaultRenderer
	}
	return &run{
		id:       id,
		renderer: name,
		logger: o.logger.With().
			Str("run_id", id).
			Str("slug", req.Entity.Slug).
			Str("renderer", name).
			Logger(),
	}
}

func (o *Orchestrator) generate(ctx context.Context, r *run, req Request) (Result, error) {
	result, renderer, err := o.build(ctx, r, req)
	if err != nil {
		return Result{}, err
	}

	extras, err := o.extras(ctx, result.Descriptor)
	if err != nil {
		return Result{}, err
	}

	err = o.stage(r, StagePersist, func() error {
		written, err := o.persister.Persist(ctx, req.Entity.Slug, renderer.Extension(), result.Source, extras...)
		if err != nil {
			return fmt.Errorf("orchestrator: persist module: %w", err)
		}
		result.Artifact = written
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if o.reloader == nil {
		r.logger.Warn().Msg("no reloader configured, host keeps serving the previous modules")
		return result, nil
	}
	err = o.stage(r, StageReload, func() error {
		if err := o.reloader.Reload(ctx); err != nil {
			return fmt.Errorf("orchestrator: reload host: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (o *Orchestrator) build(ctx context.Context, r *run, req Request) (Result, render.Renderer, error) {
	renderer, err := o.rendererFor(r.renderer)
	if err != nil {
		return Result{}, nil, err
	}
	registry := o.provider.Get()
	if registry == nil {
		return Result{}, nil, errors.New("orchestrator: schema registry is not available")
	}

	var fields []model.Field
	err = o.stage(r, StageNormalize, func() error {
		normalizer := model.NewNormalizer(registry, o.modelOptions...)
		fields, err = normalizer.NormalizeAll(req.Fields)
		if err != nil {
			return fmt.Errorf("orchestrator: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, nil, err
	}

	var desc model.Descriptor
	err = o.stage(r, StageSynthesize, func() error {
		desc = model.Synthesize(req.Entity, fields, o.modelOptions...)
		if o.transformer != nil {
			if err := o.transformer.Transform(ctx, &desc); err != nil {
				return fmt.Errorf("orchestrator: transform descriptor: %w", err)
			}
		}
		return o.applyDecorators(&desc)
	})
	if err != nil {
		return Result{}, nil, err
	}

	var source []byte
	err = o.stage(r, StageRender, func() error {
		source, err = renderer.Render(ctx, desc)
		if err != nil {
			return fmt.Errorf("orchestrator: render %s: %w", renderer.Name(), err)
		}
		return nil
	})
	if err != nil {
		return Result{}, nil, err
	}

	return Result{
		RunID:      r.id,
		Renderer:   renderer.Name(),
		Descriptor: desc,
		Source:     source,
	}, renderer, nil
}

func (o *Orchestrator) extras(ctx context.Context, desc model.Descriptor) ([]artifact.File, error) {
	if !o.exportOpenAPI {
		return nil, nil
	}
	data, err := openapi.Marshal(ctx, desc, o.openapiOptions...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: export openapi: %w", err)
	}
	return []artifact.File{{Name: openapi.FileName, Data: data}}, nil
}

func (o *Orchestrator) stage(r *run, name string, fn func() error) error {
	started := time.Now()
	err := fn()
	elapsed := time.Since(started)
	if o.observer != nil {
		o.observer.ObserveStage(name, elapsed, err)
	}
	event := r.logger.Debug()
	if err != nil {
		event = r.logger.Error().Err(err)
	}
	event.Str("stage", name).Dur("duration", elapsed).Msg("stage finished")
	return err
}

func (o *Orchestrator) finish(r *run, started time.Time, err error) {
	elapsed := time.Since(started)
	if o.observer != nil {
		o.observer.ObserveRun(r.renderer, elapsed, err)
	}
	if err != nil {
		r.logger.Error().Err(err).Dur("duration", elapsed).Msg("generation failed")
		return
	}
	r.logger.Info().Dur("duration", elapsed).Msg("module generated")
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is not configured")
	}
	if name == "" {
		name = o.defaultRenderer
	}
	renderer, err := o.registry.Get(name)
	if err == nil {
		return renderer, nil
	}
	if name != o.defaultRenderer || len(o.registry.List()) == 0 {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	// Fall back to the first registered renderer when the default is absent.
	return o.registry.Get(o.registry.List()[0])
}

func (o *Orchestrator) applyDecorators(desc *model.Descriptor) error {
	for _, decorator := range o.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(desc); err != nil {
			return fmt.Errorf("orchestrator: decorate descriptor: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) applyDefaults() {
	if o.provider == nil {
		registry, err := schema.Default()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: load schema registry: %w", err)
			return
		}
		o.provider = registry
	}
	if o.registry == nil {
		registry, err := DefaultRenderers()
		if err != nil {
			o.initialiseErr = err
			return
		}
		o.registry = registry
	}
}

// DefaultRenderers returns a registry holding the commonjs and esm module
// renderers.
func DefaultRenderers(opts ...jsmodule.Option) (*render.Registry, error) {
	registry, err := render.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, format := range []jsmodule.Format{jsmodule.FormatCommonJS, jsmodule.FormatESM} {
		renderer, err := jsmodule.New(append(append([]jsmodule.Option(nil), opts...), jsmodule.WithFormat(format))...)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: init %s renderer: %w", format, err)
		}
		if err := registry.Register(renderer); err != nil {
			return nil, fmt.Errorf("orchestrator: register %s renderer: %w", format, err)
		}
	}
	return registry, nil
}
