// Package config loads modelgen configuration from YAML with environment
// variable expansion and MODELGEN_* overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MODELGEN_"

// Config is the complete modelgen configuration.
type Config struct {
	ModulesRoot  string           `yaml:"modules_root"`
	RegistryPath string           `yaml:"registry_path"`
	Artifact     ArtifactConfig   `yaml:"artifact"`
	Widgets      WidgetsConfig    `yaml:"widgets"`
	Schema       SchemaConfig     `yaml:"schema"`
	Supervisor   SupervisorConfig `yaml:"supervisor"`
	Server       ServerConfig     `yaml:"server"`
	Logging      LoggingConfig    `yaml:"logging"`
}

// ArtifactConfig controls how modules are rendered.
type ArtifactConfig struct {
	Renderer   string `yaml:"renderer"`
	Extends    string `yaml:"extends"`
	PrintWidth int    `yaml:"print_width"`
	OpenAPI    bool   `yaml:"openapi"`
	Preset     string `yaml:"preset"`
}

// WidgetsConfig points at the widget contributor directory.
type WidgetsConfig struct {
	Dir    string `yaml:"dir"`
	Suffix string `yaml:"suffix"`
	Watch  bool   `yaml:"watch"`
}

// SchemaConfig optionally replaces the embedded type schema declarations.
type SchemaConfig struct {
	Dir string `yaml:"dir"`
}

// SupervisorConfig describes the process supervisor command.
type SupervisorConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Process string        `yaml:"process"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP intake server.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path, expands ${VAR} references, applies overrides and
// defaults, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg)
}

// LoadFromEnv builds a configuration from defaults and MODELGEN_* variables.
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise. A .env file in the working directory is read first;
// variables already set win over it.
func LoadWithFallback(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := env("MODULES_ROOT"); v != "" {
		cfg.ModulesRoot = v
	}
	if v := env("REGISTRY_PATH"); v != "" {
		cfg.RegistryPath = v
	}

	if v := env("ARTIFACT_RENDERER"); v != "" {
		cfg.Artifact.Renderer = v
	}
	if v := env("ARTIFACT_EXTENDS"); v != "" {
		cfg.Artifact.Extends = v
	}
	if v := env("ARTIFACT_PRINT_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Artifact.PrintWidth = n
		}
	}
	if v := env("ARTIFACT_OPENAPI"); v != "" {
		cfg.Artifact.OpenAPI = parseBool(v)
	}
	if v := env("ARTIFACT_PRESET"); v != "" {
		cfg.Artifact.Preset = v
	}

	if v := env("WIDGETS_DIR"); v != "" {
		cfg.Widgets.Dir = v
	}
	if v := env("WIDGETS_SUFFIX"); v != "" {
		cfg.Widgets.Suffix = v
	}
	if v := env("WIDGETS_WATCH"); v != "" {
		cfg.Widgets.Watch = parseBool(v)
	}
	if v := env("SCHEMA_DIR"); v != "" {
		cfg.Schema.Dir = v
	}

	if v := env("SUPERVISOR_COMMAND"); v != "" {
		cfg.Supervisor.Command = v
	}
	if v := env("SUPERVISOR_ARGS"); v != "" {
		cfg.Supervisor.Args = strings.Fields(v)
	}
	if v := env("SUPERVISOR_PROCESS"); v != "" {
		cfg.Supervisor.Process = v
	}
	if v := env("SUPERVISOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Supervisor.Timeout = d
		}
	}

	if v := env("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func setDefaults(cfg *Config) {
	if cfg.ModulesRoot == "" {
		cfg.ModulesRoot = "./lib/modules"
	}
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = "./config/default.json"
	}

	if cfg.Artifact.Renderer == "" {
		cfg.Artifact.Renderer = "commonjs"
	}
	if cfg.Artifact.Extends == "" {
		cfg.Artifact.Extends = "apostrophe-pieces"
	}
	if cfg.Artifact.PrintWidth == 0 {
		cfg.Artifact.PrintWidth = 40
	}

	if cfg.Widgets.Suffix == "" {
		cfg.Widgets.Suffix = "-widgets"
	}

	if cfg.Supervisor.Command == "" {
		cfg.Supervisor.Command = "pm2"
	}
	if len(cfg.Supervisor.Args) == 0 {
		cfg.Supervisor.Args = []string{"restart", "{name}"}
	}
	if cfg.Supervisor.Process == "" {
		cfg.Supervisor.Process = "app"
	}
	if cfg.Supervisor.Timeout == 0 {
		cfg.Supervisor.Timeout = 30 * time.Second
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	switch cfg.Artifact.Renderer {
	case "commonjs", "esm":
	default:
		return fmt.Errorf("artifact.renderer must be commonjs or esm, got %q", cfg.Artifact.Renderer)
	}
	if cfg.Artifact.PrintWidth < 0 {
		return fmt.Errorf("artifact.print_width must be positive, got %d", cfg.Artifact.PrintWidth)
	}
	if cfg.Widgets.Watch && cfg.Widgets.Dir == "" {
		return errors.New("widgets.watch requires widgets.dir")
	}
	if cfg.Supervisor.Timeout < 0 {
		return errors.New("supervisor.timeout must not be negative")
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", cfg.Logging.Format)
	}
	return nil
}
