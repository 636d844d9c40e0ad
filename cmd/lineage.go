package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
)

var lineageJSON bool

var lineageCmd = &cobra.Command{
	Use:   "lineage ID",
	Short: "Show a run's upstream ancestry",
	Long: `Walk the upstream chain from a run back to its root and print each
ancestor, nearest first. A run with no upstream has an empty lineage.

Examples:
  trackreg lineage 13
  trackreg lineage 13 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}

		return withService(cmd, jsonOutput(lineageJSON), func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			ancestors, err := svc.Lineage(ctx, id)
			if err != nil {
				return err
			}
			return out.FormatLineage(presentation.FromDomainLineage(id, ancestors))
		})
	},
}

func init() {
	lineageCmd.Flags().BoolVar(&lineageJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(lineageCmd)
}
