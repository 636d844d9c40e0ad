package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
	"trackreg/internal/runs/domain"
)

var reclassCmd = &cobra.Command{
	Use:   "reclass ID SIZE",
	Short: "Correct the size class of a run",
	Long: `Change the recorded dataset size class of a run.

Size classes are small, med, and large. The dataset path itself never
changes; this only fixes a wrong classification.

Examples:
  trackreg reclass 7 med
  trackreg reclass 12 large`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		size, err := domain.ParseSizeClass(args[1])
		if err != nil {
			return err
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			run, err := svc.Reclassify(ctx, id, size)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("run %d reclassified as %s", run.ID(), size))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reclassCmd)
}
