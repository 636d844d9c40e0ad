package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
)

var purgeCmd = &cobra.Command{
	Use:   "purge ID",
	Short: "Delete a run from the registry",
	Long: `Remove a run permanently. A doublet still referenced by triplet runs
cannot be purged; unlink or purge the dependents first.

Examples:
  trackreg purge 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			if err := svc.Purge(ctx, id); err != nil {
				return err
			}
			out.Success(fmt.Sprintf("purged run %d", id))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
