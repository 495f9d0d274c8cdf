package main

import (
	"context"
	"encoding/json"

	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/ui"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <repo-url>",
		Short: "Analyze one repository and print the report",
		Long: `Clones the repository, scores it and prints the report. Accepts
https://github.com/owner/repo, git@github.com:owner/repo.git or owner/repo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

func runAnalyze(cmd *cobra.Command, repoURL string, asJSON bool) error {
	a, err := analyzer.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.AnalyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.AnalyzeTimeout)
		defer cancel()
	}

	report, err := a.Analyze(ctx, repoURL)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	ui.RenderReport(cmd.OutOrStdout(), report)
	return nil
}
