// Package app wires configuration into a ready-to-run generation pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-modelgen/internal/config"
	"github.com/goliatone/go-modelgen/internal/httpapi"
	"github.com/goliatone/go-modelgen/internal/intake"
	"github.com/goliatone/go-modelgen/internal/metrics"
	"github.com/goliatone/go-modelgen/pkg/artifact"
	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/orchestrator"
	"github.com/goliatone/go-modelgen/pkg/reload"
	"github.com/goliatone/go-modelgen/pkg/renderers/jsmodule"
	"github.com/goliatone/go-modelgen/pkg/schema"
	"github.com/goliatone/go-modelgen/pkg/widgets"
)

// Option customises bootstrap.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	supervisor reload.Supervisor
	exit       func(int)
	registerer prometheus.Registerer
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSupervisor replaces the configured supervisor command.
func WithSupervisor(supervisor reload.Supervisor) Option {
	return func(o *options) { o.supervisor = supervisor }
}

// WithExit replaces os.Exit for fatal reload failures.
func WithExit(exit func(int)) Option {
	return func(o *options) { o.exit = exit }
}

// WithMetricsRegisterer registers metrics somewhere other than the default
// Prometheus registry.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// App holds the wired components.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Schemas      *schema.Holder
	Modules      *artifact.ModuleRegistry
	Writer       *artifact.Writer
	Coordinator  *reload.Coordinator
	Metrics      *metrics.Collector
	Validator    *intake.Validator
	Orchestrator *orchestrator.Orchestrator
}

// New builds every component from cfg. Widget discovery failures are fatal.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	o := options{logger: zerolog.Nop(), exit: os.Exit}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.registerer == nil {
		o.registerer = prometheus.DefaultRegisterer
	}

	a := &App{Config: cfg, Logger: o.logger}
	a.Metrics = metrics.NewWithRegistry(o.registerer)

	holder, err := schema.NewHolder(BuildRegistry(cfg, o.logger), o.logger.With().Str("component", "schema").Logger())
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Schemas = holder
	a.Metrics.ObserveSchema(holder.Get())
	holder.OnChange(a.Metrics.ObserveSchema)
	if cfg.Widgets.Watch {
		if err := holder.Watch(cfg.Widgets.Dir); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	a.Modules = artifact.NewModuleRegistry(cfg.RegistryPath)
	a.Writer = artifact.NewWriter(cfg.ModulesRoot, a.Modules,
		artifact.WithLogger(o.logger.With().Str("component", "artifact").Logger()))

	supervisor := o.supervisor
	if supervisor == nil {
		supervisor = reload.CommandSupervisor{
			Command: cfg.Supervisor.Command,
			Args:    cfg.Supervisor.Args,
			Timeout: cfg.Supervisor.Timeout,
		}
	}
	a.Coordinator = reload.NewCoordinator(supervisor,
		reload.WithProcess(cfg.Supervisor.Process),
		reload.WithExit(o.exit),
		reload.WithLogger(o.logger.With().Str("component", "reload").Logger()),
	)

	a.Validator, err = intake.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	renderers, err := orchestrator.DefaultRenderers(jsmodule.WithPrintWidth(cfg.Artifact.PrintWidth))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	orchOpts := []orchestrator.Option{
		orchestrator.WithProvider(holder),
		orchestrator.WithRegistry(renderers),
		orchestrator.WithDefaultRenderer(cfg.Artifact.Renderer),
		orchestrator.WithPersister(a.Writer),
		orchestrator.WithReloader(a.Coordinator),
		orchestrator.WithModelOptions(model.WithExtends(cfg.Artifact.Extends)),
		orchestrator.WithOpenAPIExport(cfg.Artifact.OpenAPI),
		orchestrator.WithLogger(o.logger.With().Str("component", "orchestrator").Logger()),
		orchestrator.WithObserver(a.Metrics),
	}
	if cfg.Artifact.Preset != "" {
		preset, err := orchestrator.NewPresetTransformerFromFS(os.DirFS(filepath.Dir(cfg.Artifact.Preset)), filepath.Base(cfg.Artifact.Preset))
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		orchOpts = append(orchOpts, orchestrator.WithTransformer(preset))
	}
	a.Orchestrator = orchestrator.New(orchOpts...)
	return a, nil
}

// BuildRegistry returns the schema build function for cfg: embedded or
// configured declarations plus the discovered widget contributors.
func BuildRegistry(cfg *config.Config, logger zerolog.Logger) schema.BuildFunc {
	return func() (*schema.Registry, error) {
		var opts []schema.Option
		if cfg.Widgets.Dir != "" {
			discovered, err := widgets.Discover(os.DirFS(cfg.Widgets.Dir), widgets.WithSuffix(cfg.Widgets.Suffix))
			if err != nil {
				return nil, err
			}
			contributors := widgets.NewRegistry()
			contributors.Register(discovered...)
			opts = append(opts, schema.WithWidgets(contributors.List()...))
			logger.Debug().Int("widgets", len(discovered)).Str("dir", cfg.Widgets.Dir).Msg("widget contributors discovered")
		}
		if cfg.Schema.Dir != "" {
			return schema.LoadFS(os.DirFS(cfg.Schema.Dir), opts...)
		}
		return schema.Default(opts...)
	}
}

// Handler returns the HTTP intake routes.
func (a *App) Handler() http.Handler {
	return httpapi.New(a.Orchestrator, a.Validator, a.Schemas,
		httpapi.WithModules(a.Modules),
		httpapi.WithMetrics(a.Metrics.Handler()),
		httpapi.WithLogger(a.Logger.With().Str("component", "http").Logger()),
	).Router()
}

// Serve runs the HTTP server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Close stops background watchers.
func (a *App) Close() {
	if a.Schemas != nil {
		a.Schemas.Stop()
	}
}
