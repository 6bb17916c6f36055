// Package httpapi exposes the generation pipeline over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-modelgen/internal/intake"
	"github.com/goliatone/go-modelgen/pkg/model"
	"github.com/goliatone/go-modelgen/pkg/orchestrator"
	"github.com/goliatone/go-modelgen/pkg/render"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

// Generator runs the pipeline. *orchestrator.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
	Preview(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
}

// ModuleLister lists enabled modules. *artifact.ModuleRegistry satisfies it.
type ModuleLister interface {
	Modules() ([]string, error)
}

// Handler serves the HTTP intake routes.
type Handler struct {
	generator Generator
	validator *intake.Validator
	schemas   schema.Provider
	modules   ModuleLister
	metrics   http.Handler
	logger    zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithModules enables GET /types.
func WithModules(modules ModuleLister) Option {
	return func(h *Handler) { h.modules = modules }
}

// WithMetrics mounts handler on GET /metrics.
func WithMetrics(handler http.Handler) Option {
	return func(h *Handler) { h.metrics = handler }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New returns a Handler. generator, validator and schemas are required.
func New(generator Generator, validator *intake.Validator, schemas schema.Provider, opts ...Option) *Handler {
	h := &Handler{
		generator: generator,
		validator: validator,
		schemas:   schemas,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Router builds the chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.healthz)
	r.Get("/schema", h.describeSchema)
	r.Route("/types", func(r chi.Router) {
		r.Get("/", h.listTypes)
		r.Post("/", h.createType)
		r.Post("/preview", h.previewType)
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	return r
}

// TypeResponse reports a generated type.
type TypeResponse struct {
	RunID      string `json:"run_id"`
	Name       string `json:"name"`
	Renderer   string `json:"renderer"`
	Path       string `json:"path,omitempty"`
	Registered bool   `json:"registered"`
	Source     string `json:"source,omitempty"`
}

// PreviewResponse carries a dry-run result.
type PreviewResponse struct {
	Renderer   string           `json:"renderer"`
	Descriptor model.Descriptor `json:"descriptor"`
	Source     string           `json:"source"`
}

func (h *Handler) createType(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		h.pipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TypeResponse{
		RunID:      result.RunID,
		Name:       result.Descriptor.Name,
		Renderer:   result.Renderer,
		Path:       result.Artifact.Path,
		Registered: result.Artifact.Registered,
	})
}

func (h *Handler) previewType(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.generator.Preview(r.Context(), req)
	if err != nil {
		h.pipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Renderer:   result.Renderer,
		Descriptor: result.Descriptor,
		Source:     string(result.Source),
	})
}

func (h *Handler) listTypes(w http.ResponseWriter, _ *http.Request) {
	if h.modules == nil {
		writeError(w, http.StatusNotImplemented, "NO_REGISTRY", "module registry is not configured")
		return
	}
	names, err := h.modules.Modules()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "REGISTRY_READ_FAILED", err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"modules": names})
}

// SchemaResponse describes the current type schema registry snapshot.
type SchemaResponse struct {
	FieldTypes []string      `json:"field_types"`
	AreaType   string        `json:"area_type,omitempty"`
	Widgets    string        `json:"widgets,omitempty"`
	Nodes      []schema.Node `json:"nodes"`
}

func (h *Handler) describeSchema(w http.ResponseWriter, _ *http.Request) {
	reg := h.schemas.Get()
	if reg == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_SCHEMA", "type schema registry is not available")
		return
	}
	writeJSON(w, http.StatusOK, SchemaResponse{
		FieldTypes: reg.FieldTypes(),
		AreaType:   reg.AreaType(),
		Widgets:    reg.WidgetNode(),
		Nodes:      reg.Nodes(),
	})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (orchestrator.Request, bool) {
	defer r.Body.Close()
	doc, err := h.validator.Decode(r.Body)
	if err != nil {
		status, code := http.StatusInternalServerError, "READ_FAILED"
		if errors.Is(err, intake.ErrInvalid) {
			status, code = http.StatusBadRequest, "INVALID_REQUEST"
		}
		writeError(w, status, code, err.Error())
		return orchestrator.Request{}, false
	}
	return doc.Orchestrator(), true
}

func (h *Handler) pipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, render.ErrRendererNotFound):
		writeError(w, http.StatusBadRequest, "UNKNOWN_RENDERER", err.Error())
	case errors.Is(err, model.ErrMissingType):
		writeError(w, http.StatusBadRequest, "INVALID_FIELD", err.Error())
	default:
		h.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("generation failed")
		writeError(w, http.StatusInternalServerError, "GENERATION_FAILED", err.Error())
	}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
