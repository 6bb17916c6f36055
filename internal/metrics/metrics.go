// Package metrics provides Prometheus metrics for the generation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-modelgen/pkg/orchestrator"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

const namespace = "modelgen"

// Collector holds all Prometheus metrics for modelgen.
type Collector struct {
	// Pipeline metrics
	GenerationsTotal *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	ReloadFailures   prometheus.Counter

	// Schema metrics
	SchemaReloads prometheus.Counter
	WidgetChoices prometheus.Gauge

	gatherer prometheus.Gatherer
}

var _ orchestrator.Observer = (*Collector)(nil)

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg. When reg is also
// a Gatherer, Handler serves it.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total number of generation runs by outcome",
			},
			[]string{"renderer", "outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
			},
			[]string{"stage", "outcome"},
		),
		ReloadFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reload_failures_total",
				Help:      "Total number of failed supervisor restarts",
			},
		),
		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of type schema registry rebuilds",
			},
		),
		WidgetChoices: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "widget_choices",
				Help:      "Number of widgets offered by the area field type",
			},
		),
		gatherer: prometheus.DefaultGatherer,
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// ObserveStage records one pipeline stage.
func (c *Collector) ObserveStage(stage string, elapsed time.Duration, err error) {
	c.StageDuration.WithLabelValues(stage, outcome(err)).Observe(elapsed.Seconds())
	if err != nil && stage == orchestrator.StageReload {
		c.ReloadFailures.Inc()
	}
}

// ObserveRun records one generation run.
func (c *Collector) ObserveRun(renderer string, _ time.Duration, err error) {
	c.GenerationsTotal.WithLabelValues(renderer, outcome(err)).Inc()
}

// ObserveSchema records a registry snapshot swap.
func (c *Collector) ObserveSchema(reg *schema.Registry) {
	c.SchemaReloads.Inc()
	if reg == nil {
		return
	}
	if node, ok := reg.Lookup(reg.WidgetNode()); ok {
		c.WidgetChoices.Set(float64(len(node.Choices)))
	}
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
