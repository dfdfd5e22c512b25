package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/ingest"
	"clipper/internal/services"
	"clipper/internal/workflow"
)

func readLocatorList(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ingest", "read locators", "--list is required", nil)
	}
	return ingest.ReadLocators(path)
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var listPath string
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch and deduplicate every locator in a list file",
		Long: "Fetch and deduplicate every locator in a list file.\n\n" +
			"The list holds one locator per line. Blank lines and lines starting with # are ignored.\n" +
			"Locators already recorded in the ledger are skipped without fetching.",
		RunE: func(cmd *cobra.Command, args []string) error {
			locators, err := readLocatorList(listPath)
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(c context.Context, m *workflow.Manager) error {
				report, err := m.Ingest(c, locators, workers)
				printIngestReport(cmd.OutOrStdout(), report)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&listPath, "list", "l", "", "File with one locator per line")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count (defaults to configured value)")
	return cmd
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe every stored media item without segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, m *workflow.Manager) error {
				report, err := m.Transcribe(c, workers)
				if report.Stage != "" {
					printStageReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count (defaults to configured value)")
	return cmd
}

func newEmbedCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed every segment without a stored vector",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, m *workflow.Manager) error {
				report, err := m.Embed(c, workers)
				if report.Stage != "" {
					printStageReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count (defaults to configured value)")
	return cmd
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Score unscored segment pairs and store contradictions",
		Long: "Score every segment pair that has no stored contradiction.\n\n" +
			"Only scores strictly above the threshold are stored. Pairs below it are\n" +
			"scored again on the next run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := workflow.DetectOptions{Workers: workers}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = &threshold
			}
			return ctx.withManager(cmd, func(c context.Context, m *workflow.Manager) error {
				report, err := m.Detect(c, opts)
				if report.Stage != "" {
					printStageReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count (defaults to configured value)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override the configured storage threshold")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var listPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run ingest, transcribe, embed, and detect in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			locators, err := readLocatorList(listPath)
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(c context.Context, m *workflow.Manager) error {
				report, err := m.RunPipeline(c, locators)
				out := cmd.OutOrStdout()
				printIngestReport(out, report.Ingest)
				for _, r := range report.Stages {
					printStageReport(out, r)
				}
				if failed := report.Failed(); failed > 0 && err == nil {
					fmt.Fprintf(out, "%d work keys failed; rerun to retry them\n", failed)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&listPath, "list", "l", "", "File with one locator per line")
	return cmd
}
