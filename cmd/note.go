package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
)

var noteAppend bool

var noteCmd = &cobra.Command{
	Use:   "note ID TEXT",
	Short: "Set or append notes on a run",
	Long: `Replace the notes on a run, or append to them with --append.

Appended text lands on a new line after the existing notes.

Examples:
  trackreg note 7 "diverged after epoch 40, restarted with lower lr"
  trackreg note 7 --append "second attempt converged"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			run, err := svc.Annotate(ctx, id, args[1], noteAppend)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("updated notes on run %d", run.ID()))
			return nil
		})
	},
}

func init() {
	noteCmd.Flags().BoolVar(&noteAppend, "append", false, "append to existing notes instead of replacing")
	rootCmd.AddCommand(noteCmd)
}
