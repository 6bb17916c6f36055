package metrics_test

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-modelgen/internal/metrics"
	"github.com/goliatone/go-modelgen/pkg/orchestrator"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

// value gathers reg and returns the counter or gauge value of the series
// named name whose labels include labels.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			got := make(map[string]string, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				got[pair.GetName()] = pair.GetValue()
			}
			for key, want := range labels {
				if got[key] != want {
					continue series
				}
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	t.Fatalf("series %s%v not found", name, labels)
	return 0
}

func seriesCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return len(family.GetMetric())
		}
	}
	return 0
}

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m.GenerationsTotal == nil || m.StageDuration == nil || m.ReloadFailures == nil {
		t.Fatal("pipeline metrics not initialised")
	}
	if m.SchemaReloads == nil || m.WidgetChoices == nil {
		t.Fatal("schema metrics not initialised")
	}
}

func TestObserveRunAndStages(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveRun("commonjs", time.Millisecond, nil)
	m.ObserveRun("commonjs", time.Millisecond, errors.New("boom"))
	m.ObserveRun("esm", time.Millisecond, nil)
	m.ObserveStage(orchestrator.StageRender, time.Millisecond, nil)
	m.ObserveStage(orchestrator.StageReload, time.Millisecond, errors.New("pm2 down"))
	m.ObserveStage(orchestrator.StagePersist, time.Millisecond, errors.New("disk full"))

	if got := value(t, reg, "modelgen_generations_total", map[string]string{"renderer": "commonjs", "outcome": "success"}); got != 1 {
		t.Fatalf("commonjs success = %v, want 1", got)
	}
	if got := value(t, reg, "modelgen_generations_total", map[string]string{"renderer": "commonjs", "outcome": "error"}); got != 1 {
		t.Fatalf("commonjs error = %v, want 1", got)
	}
	if got := value(t, reg, "modelgen_reload_failures_total", nil); got != 1 {
		t.Fatalf("reload failures = %v, want 1", got)
	}
	if got := seriesCount(t, reg, "modelgen_stage_duration_seconds"); got != 3 {
		t.Fatalf("stage series = %d, want 3", got)
	}
}

func TestObserveSchema(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	registry, err := schema.Default()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	m.ObserveSchema(registry)
	m.ObserveSchema(nil)

	if got := value(t, reg, "modelgen_schema_reloads_total", nil); got != 2 {
		t.Fatalf("schema reloads = %v, want 2", got)
	}
	node, _ := registry.Lookup(registry.WidgetNode())
	if got := value(t, reg, "modelgen_widget_choices", nil); got != float64(len(node.Choices)) {
		t.Fatalf("widget choices = %v, want %d", got, len(node.Choices))
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	m.ObserveRun("esm", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `modelgen_generations_total{outcome="success",renderer="esm"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
