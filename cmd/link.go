package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
)

var linkCmd = &cobra.Command{
	Use:   "link TRIPLET_ID DOUBLET_ID",
	Short: "Link a triplet run to its upstream doublet",
	Long: `Record that a triplet run trained from a doublet run's checkpoint.

The triplet must not be linked yet; use unlink first to repoint it. Both
runs must exist and have the right stage.

Examples:
  trackreg link 13 12`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tripletID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid triplet id %q: %w", args[0], err)
		}
		doubletID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid doublet id %q: %w", args[1], err)
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			if err := svc.Link(ctx, tripletID, doubletID); err != nil {
				return err
			}
			out.Success(fmt.Sprintf("linked run %d to upstream run %d", tripletID, doubletID))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}
