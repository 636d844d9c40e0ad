package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a single run in full",
	Long: `Print every recorded field of one run, including notes and the
upstream link if present.

Examples:
  trackreg show 7
  trackreg show 7 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}

		return withService(cmd, jsonOutput(showJSON), func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			run, err := svc.Get(ctx, id)
			if err != nil {
				return err
			}
			return out.FormatRun(presentation.FromDomainRun(run))
		})
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(showCmd)
}
