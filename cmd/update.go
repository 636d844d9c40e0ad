package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
	"trackreg/internal/runs/domain"
)

var (
	updateStage    string
	updateDataset  string
	updateResult   string
	updateSize     string
	updateGraphs   int64
	updateDuration string
	updateNotes    string
)

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change the mutable fields of a run",
	Long: `Change several fields of a run in one command.

Size class, graph count, training duration, and notes can change after
registration. The stage, dataset path, and result path cannot: passing
one of those flags with a new value is rejected, while restating the
current value is accepted and changes nothing.

Examples:
  trackreg update 7 --graphs 90000 --notes "recount after dedup"
  trackreg update 12 --size large --duration 36h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		var fields registry.UpdateFields
		if cmd.Flags().Changed("stage") {
			stage, err := domain.ParseStage(updateStage)
			if err != nil {
				return err
			}
			fields.Stage = &stage
		}
		if cmd.Flags().Changed("dataset") {
			fields.Dataset = &updateDataset
		}
		if cmd.Flags().Changed("result") {
			fields.Result = &updateResult
		}
		if cmd.Flags().Changed("size") {
			size, err := domain.ParseSizeClass(updateSize)
			if err != nil {
				return err
			}
			fields.SizeClass = &size
		}
		if cmd.Flags().Changed("graphs") {
			graphs := updateGraphs
			fields.GraphCount = &graphs
		}
		if cmd.Flags().Changed("duration") {
			duration, err := time.ParseDuration(updateDuration)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", updateDuration, err)
			}
			fields.Duration = &duration
		}
		if cmd.Flags().Changed("notes") {
			fields.Notes = &updateNotes
		}
		if fields == (registry.UpdateFields{}) {
			return errors.New("nothing to update: pass at least one field flag")
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			run, err := svc.Update(ctx, id, fields)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("updated run %d", run.ID()))
			return nil
		})
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateStage, "stage", "", "run stage (fixed at registration)")
	updateCmd.Flags().StringVar(&updateDataset, "dataset", "", "dataset path (fixed at registration)")
	updateCmd.Flags().StringVar(&updateResult, "result", "", "result path (fixed at registration)")
	updateCmd.Flags().StringVar(&updateSize, "size", "", "dataset size class: small, med, or large")
	updateCmd.Flags().Int64Var(&updateGraphs, "graphs", 0, "number of graphs in the dataset")
	updateCmd.Flags().StringVar(&updateDuration, "duration", "", "training duration, e.g. 2h15m")
	updateCmd.Flags().StringVar(&updateNotes, "notes", "", "free-form notes (replaces existing)")
	rootCmd.AddCommand(updateCmd)
}
