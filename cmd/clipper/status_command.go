package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipper/internal/preflight"
	"clipper/internal/workflow"
)

type statusOutput struct {
	workflow.StatusSnapshot
	Checks []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger contents and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd, func(c context.Context, m *workflow.Manager) error {
				snapshot, err := m.Status(c)
				if err != nil {
					return err
				}
				checks := preflight.RunAll(c, cfg)
				if !offline {
					checks = append(checks, preflight.CheckEndpoints(c, cfg)...)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), statusOutput{StatusSnapshot: snapshot, Checks: checks})
				}
				printStatus(cmd, snapshot, checks)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip checks that contact remote endpoints")
	return cmd
}

func printStatus(cmd *cobra.Command, snapshot workflow.StatusSnapshot, checks []preflight.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	var lines []string
	lines = append(lines, renderSectionHeader("Ledger", colorize)...)
	lines = append(lines, renderStatusLine("Path", statusInfo, snapshot.LedgerPath, colorize))
	lines = append(lines, renderStatusLine("Schema", statusInfo, "v"+strconv.Itoa(snapshot.SchemaVersion), colorize))
	counts := snapshot.Counts
	lines = append(lines,
		renderStatusLine("Content objects", statusInfo, strconv.Itoa(counts.ContentObjects), colorize),
		renderStatusLine("Source references", statusInfo, strconv.Itoa(counts.SourceRefs), colorize),
		renderStatusLine("Segments", statusInfo, strconv.Itoa(counts.Segments), colorize),
		renderStatusLine("Embeddings", statusInfo, strconv.Itoa(counts.Embeddings), colorize),
		renderStatusLine("Contradictions", statusInfo, strconv.Itoa(counts.Contradictions), colorize),
	)
	if len(snapshot.Orphans) > 0 {
		lines = append(lines, renderStatusLine("Orphaned content", statusWarn,
			fmt.Sprintf("%d objects without a source reference", len(snapshot.Orphans)), colorize))
	} else {
		lines = append(lines, renderStatusLine("Orphaned content", statusOK, "none", colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, check := range checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
