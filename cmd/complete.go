package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
)

var (
	completeDuration string
	completeGraphs   int64
)

var completeCmd = &cobra.Command{
	Use:   "complete ID",
	Short: "Mark a run as finished",
	Long: `Record the training duration for a run, marking it complete.

The duration uses Go syntax: 90m, 2h15m, 36h. Pass --graphs to fill in
the graph count if it was unknown at registration time.

Examples:
  trackreg complete 7 --duration 2h15m
  trackreg complete 12 --duration 36h --graphs 250000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
		duration, err := time.ParseDuration(completeDuration)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", completeDuration, err)
		}

		var graphs *int64
		if cmd.Flags().Changed("graphs") {
			g := completeGraphs
			graphs = &g
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			run, err := svc.Complete(ctx, id, duration, graphs)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("run %d completed in %s", run.ID(), duration))
			return nil
		})
	},
}

func init() {
	completeCmd.Flags().StringVar(&completeDuration, "duration", "", "training duration, e.g. 2h15m (required)")
	completeCmd.Flags().Int64Var(&completeGraphs, "graphs", 0, "graph count, if not set at registration")
	_ = completeCmd.MarkFlagRequired("duration")
	rootCmd.AddCommand(completeCmd)
}
