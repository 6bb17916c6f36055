package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-modelgen/internal/app"
	"github.com/goliatone/go-modelgen/internal/intake"
	"github.com/goliatone/go-modelgen/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:       "schema [registry|request]",
	Short:     "Print the type schema registry or the request JSON Schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"registry", "request"},
	RunE:      runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

type registryDump struct {
	Root     string        `json:"root"`
	AreaType string        `json:"area_type,omitempty"`
	Widgets  string        `json:"widgets,omitempty"`
	Nodes    []schema.Node `json:"nodes"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	what := "registry"
	if len(args) == 1 {
		what = args[0]
	}

	var value any
	switch what {
	case "request":
		value = intake.JSONSchema()
	default:
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := app.BuildRegistry(cfg, zerolog.Nop())()
		if err != nil {
			return err
		}
		value = registryDump{
			Root:     reg.Root().Name,
			AreaType: reg.AreaType(),
			Widgets:  reg.WidgetNode(),
			Nodes:    reg.Nodes(),
		}
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
