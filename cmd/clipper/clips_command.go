package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/config"
	"clipper/internal/fileutil"
	"clipper/internal/ledger"
	"clipper/internal/workflow"
)

func newClipsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var outputPath string

	cmd := &cobra.Command{
		Use:   "clips",
		Short: "Export stored contradictions with both clip ranges as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd, func(c context.Context, m *workflow.Manager) error {
				clips, err := m.Clips(c, limit)
				if err != nil {
					return err
				}
				if clips == nil {
					clips = []ledger.ContradictionClip{}
				}
				target := strings.TrimSpace(outputPath)
				if target == "" {
					return writeJSON(cmd.OutOrStdout(), clips)
				}
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				var buf bytes.Buffer
				if err := writeJSON(&buf, clips); err != nil {
					return fmt.Errorf("encode clips: %w", err)
				}
				if err := fileutil.WriteFileAtomic(expanded, buf.Bytes(), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d clips to %s\n", len(clips), expanded)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of clips (0 for all)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write JSON to this file instead of stdout")
	return cmd
}
