package main

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-modelgen/internal/prompt"
)

var authorCmd = &cobra.Command{
	Use:   "author",
	Short: "Build a derived type interactively",
	Long: `Prompt for the entity and its fields. Only the options made visible by
earlier answers are asked for, following the type schema registry.`,
	RunE: runAuthor,
}

func init() {
	rootCmd.AddCommand(authorCmd)

	authorCmd.Flags().StringVar(&rendererArg, "renderer", "", "renderer override (commonjs or esm)")
	authorCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the module without writing or reloading")
}

func runAuthor(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	driver := prompt.NewSurveyDriver(cmd.OutOrStdout())
	req, err := prompt.NewAuthor(driver, a.Schemas.Get()).Request(cmd.Context())
	if err != nil {
		return err
	}
	if rendererArg != "" {
		req.Renderer = rendererArg
	}
	return run(cmd, a.Orchestrator, req)
}
