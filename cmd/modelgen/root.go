package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-modelgen/internal/app"
	"github.com/goliatone/go-modelgen/internal/config"
	"github.com/goliatone/go-modelgen/internal/logging"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modelgen",
	Short: "Generate derived type modules from field definitions",
	Long: `modelgen turns a list of field definitions into a derived type module,
enables it in the module registry and asks the process supervisor to
restart the host so the new type is served.

Quick start:
  modelgen author                 # Build a type interactively
  modelgen generate -f recipe.yaml
  modelgen serve                  # HTTP intake on :8080

Inspection:
  modelgen schema registry        # Field types and their options
  modelgen schema request         # JSON Schema of request documents`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "modelgen.yaml", "config file path")
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithFallback(cfgFile)
}

func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Logging, cmd.ErrOrStderr())
	return app.New(cfg, app.WithLogger(logger))
}
