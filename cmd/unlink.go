package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
)

var unlinkCmd = &cobra.Command{
	Use:   "unlink TRIPLET_ID",
	Short: "Remove a triplet run's upstream link",
	Long: `Clear the upstream doublet reference on a triplet run.

Unlinking an already-unlinked run is a no-op, not an error.

Examples:
  trackreg unlink 13`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tripletID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid triplet id %q: %w", args[0], err)
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			if err := svc.Unlink(ctx, tripletID); err != nil {
				return err
			}
			out.Success(fmt.Sprintf("unlinked run %d", tripletID))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(unlinkCmd)
}
