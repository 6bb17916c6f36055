package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-modelgen/pkg/orchestrator"
)

var (
	requestFile string
	rendererArg string
	dryRun      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a module from a request document",
	Long: `Generate a derived type module from a YAML or JSON request document.

The module is written to <modules_root>/<slug>/index.js, enabled in the
module registry and the host process is restarted through the supervisor.
A failed restart terminates modelgen with exit status 2.

Examples:
  modelgen generate -f recipe.yaml
  modelgen generate -f - --renderer esm < recipe.json
  modelgen generate -f recipe.yaml --dry-run`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&requestFile, "file", "f", "", "request document, - for stdin")
	generateCmd.Flags().StringVar(&rendererArg, "renderer", "", "renderer override (commonjs or esm)")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the module without writing or reloading")
	_ = generateCmd.MarkFlagRequired("file")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var in io.Reader = cmd.InOrStdin()
	if requestFile != "-" {
		f, err := os.Open(requestFile)
		if err != nil {
			return fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		in = f
	}
	doc, err := a.Validator.Decode(in)
	if err != nil {
		return err
	}
	req := doc.Orchestrator()
	if rendererArg != "" {
		req.Renderer = rendererArg
	}
	return run(cmd, a.Orchestrator, req)
}

// run previews or generates req and reports the outcome on cmd's output.
func run(cmd *cobra.Command, orch *orchestrator.Orchestrator, req orchestrator.Request) error {
	out := cmd.OutOrStdout()
	if dryRun {
		result, err := orch.Preview(cmd.Context(), req)
		if err != nil {
			return err
		}
		_, err = out.Write(result.Source)
		return err
	}

	result, err := orch.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Generated %s (%s)\n", result.Descriptor.Name, result.Renderer)
	fmt.Fprintf(out, "  module:   %s\n", result.Artifact.Path)
	for _, extra := range result.Artifact.Extras {
		fmt.Fprintf(out, "  extra:    %s\n", extra)
	}
	if result.Artifact.Registered {
		fmt.Fprintln(out, "  registry: enabled")
	} else {
		fmt.Fprintln(out, "  registry: already enabled")
	}
	return nil
}
