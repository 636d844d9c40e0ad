package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/presentation"
	"trackreg/internal/runs/domain"
)

var (
	registerStage    string
	registerSize     string
	registerGraphs   int64
	registerDataset  string
	registerResult   string
	registerUpstream int64
	registerNotes    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Record a new training run",
	Long: `Record a new doublet or triplet training run in the registry.

The result path must be unique across the whole registry. A triplet run
may name the doublet it trained from with --upstream; the referenced run
must already exist and be a doublet.

Examples:
  trackreg register --stage doublet --dataset /doublet_data/hitgraphs_small --result /doublet_results/agnn07
  trackreg register --stage triplet --dataset /triplet_data/hitgraphs_med --result /triplet_results/t04 --upstream 12 --size med
  trackreg register --stage doublet --dataset '$DATA/hitgraphs_big' --result /doublet_results/agnn08 --graphs 120000 --notes "lr sweep"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := domain.ParseStage(registerStage)
		if err != nil {
			return err
		}

		input := registry.RegisterInput{
			Stage:   stage,
			Dataset: registerDataset,
			Result:  registerResult,
			Notes:   registerNotes,
		}
		if registerSize != "" {
			size, err := domain.ParseSizeClass(registerSize)
			if err != nil {
				return err
			}
			input.SizeClass = size
		}
		if cmd.Flags().Changed("graphs") {
			graphs := registerGraphs
			input.GraphCount = &graphs
		}
		if cmd.Flags().Changed("upstream") {
			upstream := registerUpstream
			input.UpstreamID = &upstream
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			run, err := svc.Register(ctx, input)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("registered run %d (%s)", run.ID(), run.ResultPath()))
			return nil
		})
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerStage, "stage", "", "run stage: doublet or triplet (required)")
	registerCmd.Flags().StringVar(&registerSize, "size", "", "dataset size class: small, med, or large")
	registerCmd.Flags().Int64Var(&registerGraphs, "graphs", 0, "number of graphs in the dataset")
	registerCmd.Flags().StringVar(&registerDataset, "dataset", "", "dataset path (required)")
	registerCmd.Flags().StringVar(&registerResult, "result", "", "result path, unique per run (required)")
	registerCmd.Flags().Int64Var(&registerUpstream, "upstream", 0, "id of the upstream doublet run (triplet only)")
	registerCmd.Flags().StringVar(&registerNotes, "notes", "", "free-form notes")
	_ = registerCmd.MarkFlagRequired("stage")
	_ = registerCmd.MarkFlagRequired("dataset")
	_ = registerCmd.MarkFlagRequired("result")
	rootCmd.AddCommand(registerCmd)
}
