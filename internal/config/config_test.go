package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelgen/internal/config"
)

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "modelgen.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("SITE_ROOT", "/srv/site")
	cfg := writeAndLoad(t, `
modules_root: ${SITE_ROOT}/lib/modules
registry_path: ${SITE_ROOT}/config/default.json
artifact:
  renderer: esm
  print_width: 80
  openapi: true
widgets:
  dir: ${SITE_ROOT}/lib/modules
  watch: true
supervisor:
  args: [reload, "{name}"]
  process: site
  timeout: 5s
logging:
  level: debug
  format: console
`)

	if cfg.ModulesRoot != "/srv/site/lib/modules" {
		t.Fatalf("ModulesRoot = %q", cfg.ModulesRoot)
	}
	if cfg.RegistryPath != "/srv/site/config/default.json" {
		t.Fatalf("RegistryPath = %q", cfg.RegistryPath)
	}
	want := config.ArtifactConfig{Renderer: "esm", Extends: "apostrophe-pieces", PrintWidth: 80, OpenAPI: true}
	if diff := cmp.Diff(want, cfg.Artifact); diff != "" {
		t.Fatalf("artifact mismatch (-want +got):\n%s", diff)
	}
	wantSupervisor := config.SupervisorConfig{
		Command: "pm2",
		Args:    []string{"reload", "{name}"},
		Process: "site",
		Timeout: 5 * time.Second,
	}
	if diff := cmp.Diff(wantSupervisor, cfg.Supervisor); diff != "" {
		t.Fatalf("supervisor mismatch (-want +got):\n%s", diff)
	}
	if cfg.Widgets.Suffix != "-widgets" || !cfg.Widgets.Watch {
		t.Fatalf("widgets = %#v", cfg.Widgets)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("logging = %#v", cfg.Logging)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.ModulesRoot != "./lib/modules" || cfg.RegistryPath != "./config/default.json" {
		t.Fatalf("unexpected paths %q %q", cfg.ModulesRoot, cfg.RegistryPath)
	}
	if cfg.Artifact.Renderer != "commonjs" || cfg.Artifact.PrintWidth != 40 {
		t.Fatalf("unexpected artifact defaults %#v", cfg.Artifact)
	}
	if diff := cmp.Diff([]string{"restart", "{name}"}, cfg.Supervisor.Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if cfg.Supervisor.Process != "app" || cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected defaults %#v %#v", cfg.Supervisor, cfg.Server)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODELGEN_ARTIFACT_RENDERER", "esm")
	t.Setenv("MODELGEN_ARTIFACT_PRINT_WIDTH", "100")
	t.Setenv("MODELGEN_SUPERVISOR_ARGS", "restart {name} --update-env")
	t.Setenv("MODELGEN_SUPERVISOR_TIMEOUT", "2s")
	t.Setenv("MODELGEN_WIDGETS_WATCH", "true")
	t.Setenv("MODELGEN_WIDGETS_DIR", "/tmp/widgets")

	cfg := writeAndLoad(t, "artifact:\n  renderer: commonjs\n")
	if cfg.Artifact.Renderer != "esm" || cfg.Artifact.PrintWidth != 100 {
		t.Fatalf("artifact overrides not applied: %#v", cfg.Artifact)
	}
	if diff := cmp.Diff([]string{"restart", "{name}", "--update-env"}, cfg.Supervisor.Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if cfg.Supervisor.Timeout != 2*time.Second || !cfg.Widgets.Watch {
		t.Fatalf("overrides not applied: %#v %#v", cfg.Supervisor, cfg.Widgets)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "renderer", content: "artifact:\n  renderer: amd\n", want: "artifact.renderer"},
		{name: "watch without dir", content: "widgets:\n  watch: true\n", want: "widgets.watch"},
		{name: "format", content: "logging:\n  format: xml\n", want: "logging.format"},
		{name: "yaml", content: "artifact: [", want: "parse config"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "modelgen.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestLoadWithFallback_UsesEnvWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MODELGEN_SUPERVISOR_PROCESS", "site")

	cfg, err := config.LoadWithFallback("missing.yaml")
	if err != nil {
		t.Fatalf("load with fallback: %v", err)
	}
	if cfg.Supervisor.Process != "site" {
		t.Fatalf("Process = %q, want site", cfg.Supervisor.Process)
	}
}

func TestLoadWithFallback_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MODELGEN_DOTENV_PROBE_PROCESS=x\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("MODELGEN_DOTENV_PROBE_PROCESS", "")
	os.Unsetenv("MODELGEN_DOTENV_PROBE_PROCESS")

	if _, err := config.LoadWithFallback(""); err != nil {
		t.Fatalf("load with fallback: %v", err)
	}
	if got := os.Getenv("MODELGEN_DOTENV_PROBE_PROCESS"); got != "x" {
		t.Fatalf(".env not loaded, got %q", got)
	}
}
