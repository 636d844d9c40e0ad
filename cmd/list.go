package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trackreg/internal/application/registry"
	"trackreg/internal/cachemanager"
	"trackreg/internal/config"
	"trackreg/internal/infrastructure/sqlite"
	"trackreg/internal/log"
	"trackreg/internal/presentation"
	"trackreg/internal/runs/domain"
	"trackreg/internal/watcher"
)

// watchLineageTTL bounds how stale a cached ancestor chain can get in watch
// mode. Change events flush the cache anyway; the TTL is a backstop.
const watchLineageTTL = time.Minute

var (
	listStage    string
	listSize     string
	listLinked   bool
	listUnlinked bool
	listWhere    string
	listLimit    int
	listJSON     bool
	listWatch    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered runs",
	Long: `List runs, newest first, with optional filters.

--where accepts an expression over the run fields (id, stage, size,
graphs, duration, dataset, result, upstream, notes, completed, linked),
evaluated per run after the stage and size filters.

Examples:
  trackreg list
  trackreg list --stage doublet --size large
  trackreg list --unlinked --stage triplet
  trackreg list --where 'graphs > 100000 && !completed'
  trackreg list --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listLinked && listUnlinked {
			return fmt.Errorf("cannot combine --linked and --unlinked")
		}

		filter := domain.ListFilter{Limit: listLimit}
		if listStage != "" {
			stage, err := domain.ParseStage(listStage)
			if err != nil {
				return err
			}
			filter.Stage = stage
		}
		if listSize != "" {
			size, err := domain.ParseSizeClass(listSize)
			if err != nil {
				return err
			}
			filter.SizeClass = size
		}
		if listLinked {
			linked := true
			filter.Linked = &linked
		}
		if listUnlinked {
			linked := false
			filter.Linked = &linked
		}

		var where *registry.WherePredicate
		if listWhere != "" {
			compiled, err := registry.CompileWhere(listWhere)
			if err != nil {
				return err
			}
			where = compiled
		}

		if listWatch {
			return runListWatch(cmd, filter, where)
		}

		return withService(cmd, jsonOutput(listJSON), func(ctx context.Context, svc *registry.Service, out *presentation.Formatter) error {
			runs, err := svc.List(ctx, filter, where)
			if err != nil {
				return err
			}
			return out.FormatRuns(presentation.FromDomainRuns(runs))
		})
	},
}

// runListWatch re-renders the listing whenever another process writes the
// database. It wires its own service so the lineage summaries under the
// table can go through a read cache that change events flush.
func runListWatch(cmd *cobra.Command, filter domain.ListFilter, where *registry.WherePredicate) error {
	closeLog := initLogging()
	defer closeLog()

	if err := config.Validate(cfg); err != nil {
		return err
	}

	provider, err := newTracingProvider()
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if shutdownErr := provider.Shutdown(context.Background()); shutdownErr != nil {
			log.ErrorErr(log.CatTrace, "failed to flush traces", shutdownErr)
		}
	}()

	dbPath := databasePath()
	db, err := sqlite.NewDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening registry database: %w", err)
	}
	defer db.Close()

	cache := cachemanager.NewInMemoryCacheManager[string, []*domain.Run](
		"lineage", watchLineageTTL, cachemanager.DefaultCleanupInterval)
	svc := registry.NewService(
		db.RunRepository(),
		db.ImportRepository(),
		domain.NewResolver(os.Getenv),
		registry.WithTracer(provider.Tracer()),
		registry.WithLineageCache(cache, watchLineageTTL, nil),
	)

	w, err := watcher.New(watcher.Config{DBPath: dbPath, DebounceDur: cfg.Watch.Debounce})
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	presentation.ConfigureColor(colorMode())
	out := presentation.NewFormatter(cmd.OutOrStdout(), false)

	render := func() error {
		// Clear screen and home the cursor before each refresh.
		fmt.Fprint(cmd.OutOrStdout(), "\x1b[2J\x1b[H")
		runs, err := svc.List(ctx, filter, where)
		if err != nil {
			return err
		}
		if err := out.FormatRuns(presentation.FromDomainRuns(runs)); err != nil {
			return err
		}
		for _, run := range runs {
			if run.UpstreamID() == nil {
				continue
			}
			ancestors, err := svc.Lineage(ctx, run.ID())
			if err != nil {
				return err
			}
			lineage := presentation.FromDomainLineage(run.ID(), ancestors)
			if err := out.LineageSummary(run.ID(), lineage.Ancestors); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nwatching %s (press ctrl+c to quit)\n", dbPath)
		return err
	}

	if err := render(); err != nil {
		return err
	}
	for {
		select {
		case <-changes:
			svc.FlushLineageCache(ctx)
			if err := render(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func init() {
	listCmd.Flags().StringVar(&listStage, "stage", "", "filter by stage: doublet or triplet")
	listCmd.Flags().StringVar(&listSize, "size", "", "filter by size class: small, med, or large")
	listCmd.Flags().BoolVar(&listLinked, "linked", false, "only runs with an upstream link")
	listCmd.Flags().BoolVar(&listUnlinked, "unlinked", false, "only runs without an upstream link")
	listCmd.Flags().StringVar(&listWhere, "where", "", "filter expression, e.g. 'graphs > 100000 && !completed'")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "cap the number of rows (0 = no cap)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	listCmd.Flags().BoolVar(&listWatch, "watch", false, "keep the listing open and refresh on database changes")
	rootCmd.AddCommand(listCmd)
}
