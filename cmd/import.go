package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/ledger"
	"trackreg/internal/presentation"
)

var (
	importHistory bool
	importInit    bool
	importJSON    bool
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import runs from a YAML ledger",
	Long: `Parse a hand-maintained ledger file and register every entry in one
transaction. If any entry fails, nothing is imported.

Upstream references inside the ledger name other ledger entries, by entry
id when the ledger numbers its rows and by position otherwise; they are
rewritten to real run ids as the batch lands. Use --init to write a
starter ledger, and --history to list prior imports.

Examples:
  trackreg import runs.yaml
  trackreg import --init runs.yaml
  trackreg import --history`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importHistory {
			return withService(cmd, jsonOutput(importJSON), func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
				batches, err := svc.ImportHistory(ctx)
				if err != nil {
					return err
				}
				return out.FormatImports(presentation.FromDomainImports(batches))
			})
		}

		if len(args) != 1 {
			return fmt.Errorf("import needs a ledger file argument")
		}
		path := args[0]

		if importInit {
			if err := ledger.WriteTemplate(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote ledger template to %s\n", path)
			return nil
		}

		entries, err := ledger.Load(path)
		if err != nil {
			return err
		}

		return withService(cmd, false, func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			result, err := svc.ImportLedger(ctx, path, entries)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("imported %d runs from %s", len(result.Runs), path))
			return nil
		})
	},
}

func init() {
	importCmd.Flags().BoolVar(&importHistory, "history", false, "list prior import batches instead of importing")
	importCmd.Flags().BoolVar(&importInit, "init", false, "write a starter ledger template to FILE")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "output --history as JSON")
	rootCmd.AddCommand(importCmd)
}
