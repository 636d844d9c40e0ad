package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"trackreg/internal/config"
	"trackreg/internal/presentation"
	"trackreg/internal/runs/domain"
)

// resetCommandTree restores every flag in the command tree to its default
// so sequential Execute calls inside one test binary do not leak parsed
// flag state into each other.
func resetCommandTree(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCommandTree(sub)
	}
}

// runCLI drives the root command with args and returns its combined output
// with ANSI styling stripped.
func runCLI(args ...string) (string, error) {
	resetCommandTree(rootCmd)
	viper.Reset()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return ansi.Strip(buf.String()), err
}

// newTestHome points HOME at a temp dir so the auto-written config and
// default paths stay inside the test sandbox.
func newTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "registry.db")
}

func TestExitCode_MapsErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"malformed path", domain.ErrMalformedPath, 2},
		{"wrapped malformed path", fmt.Errorf("register: %w", domain.ErrMalformedPath), 2},
		{"duplicate result path", domain.ErrDuplicateResultPath, 3},
		{"duplicate id", domain.ErrDuplicateID, 4},
		{"not found", &domain.RunNotFoundError{ID: 9}, 5},
		{"wrapped not found", fmt.Errorf("show: %w", &domain.RunNotFoundError{ID: 9}), 5},
		{"immutable field", domain.ErrImmutableField, 6},
		{"stage mismatch", &domain.StageMismatchError{ID: 3, Got: domain.StageTriplet, Want: domain.StageDoublet}, 7},
		{"already linked", domain.ErrAlreadyLinked, 8},
		{"referenced by dependents", domain.ErrReferencedByDependents, 9},
		{"cycle detected", domain.ErrCycleDetected, 10},
		{"anything else", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := newTestHome(t)

	require.Equal(t, filepath.Join(home, "runs.db"), expandHome("~/runs.db"))
	require.Equal(t, "/abs/runs.db", expandHome("/abs/runs.db"))
	require.Equal(t, "relative.db", expandHome("relative.db"))
}

func TestDatabasePath_Precedence(t *testing.T) {
	home := newTestHome(t)
	t.Cleanup(func() {
		dbFlag = ""
		cfg = config.Config{}
	})

	cfg.Database.Path = "~/from-config.db"
	dbFlag = "/from/flag.db"
	t.Setenv("TRACKREG_DB", "/from/env.db")
	require.Equal(t, "/from/flag.db", databasePath(), "flag beats env and config")

	dbFlag = ""
	require.Equal(t, "/from/env.db", databasePath(), "env beats config")

	t.Setenv("TRACKREG_DB", "")
	require.Equal(t, filepath.Join(home, "from-config.db"), databasePath(), "config expands ~")

	cfg.Database.Path = ""
	require.Equal(t, config.DefaultDatabasePath(), databasePath(), "falls back to the home default")
}

func TestJSONOutput_FollowsConfigDefault(t *testing.T) {
	t.Cleanup(func() { cfg = config.Config{} })

	cfg.Output.Format = "table"
	require.False(t, jsonOutput(false))
	require.True(t, jsonOutput(true), "the flag always wins")

	cfg.Output.Format = "json"
	require.True(t, jsonOutput(false))
}

func TestRegisterShowListFlow(t *testing.T) {
	newTestHome(t)
	db := testDBPath(t)

	out, err := runCLI("register", "--db", db,
		"--stage", "doublet",
		"--dataset", "/doublet_data/hitgraphs_small",
		"--result", "/doublet_results/agnn00",
		"--size", "small",
		"--graphs", "8000")
	require.NoError(t, err)
	require.Contains(t, out, "registered run 1 (/doublet_results/agnn00)")

	out, err = runCLI("register", "--db", db,
		"--stage", "triplet",
		"--dataset", "/triplet_data/hitgraphs_small",
		"--result", "/triplet_results/t00",
		"--upstream", "1")
	require.NoError(t, err)
	require.Contains(t, out, "registered run 2")

	out, err = runCLI("list", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "/doublet_results/agnn00")
	require.Contains(t, out, "/triplet_results/t00")

	out, err = runCLI("show", "2", "--db", db, "--json")
	require.NoError(t, err)
	var run presentation.RunDTO
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	require.Equal(t, int64(2), run.ID)
	require.Equal(t, "triplet", run.Stage)
	require.Equal(t, "/triplet_results/t00", run.ResultPath)
	require.NotNil(t, run.UpstreamID)
	require.Equal(t, int64(1), *run.UpstreamID)
}

func TestCompleteNoteReclassFlow(t *testing.T) {
	newTestHome(t)
	db := testDBPath(t)

	_, err := runCLI("register", "--db", db,
		"--stage", "doublet",
		"--dataset", "/doublet_data/hitgraphs_med",
		"--result", "/doublet_results/agnn05")
	require.NoError(t, err)

	out, err := runCLI("complete", "1", "--db", db, "--duration", "2h15m", "--graphs", "80000")
	require.NoError(t, err)
	require.Contains(t, out, "run 1 completed in 2h15m")

	out, err = runCLI("note", "1", "diverged after epoch 40", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "updated notes on run 1")

	_, err = runCLI("note", "1", "second attempt converged", "--append", "--db", db)
	require.NoError(t, err)

	out, err = runCLI("reclass", "1", "med", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "run 1 reclassified as medium")

	out, err = runCLI("show", "1", "--db", db, "--json")
	require.NoError(t, err)
	var run presentation.RunDTO
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	require.Equal(t, "2h15m0s", run.TrainingDuration)
	require.Equal(t, "medium", run.SizeClass)
	require.NotNil(t, run.GraphCount)
	require.Equal(t, int64(80000), *run.GraphCount)
	require.Contains(t, run.Notes, "diverged after epoch 40")
	require.Contains(t, run.Notes, "second attempt converged")
}

func TestUpdateFlow(t *testing.T) {
	newTestHome(t)
	db := testDBPath(t)

	_, err := runCLI("register", "--db", db,
		"--stage", "doublet",
		"--dataset", "/doublet_data/hitgraphs_med",
		"--result", "/doublet_results/agnn05")
	require.NoError(t, err)

	out, err := runCLI("update", "1", "--db", db,
		"--size", "large", "--graphs", "120000", "--notes", "recount after dedup")
	require.NoError(t, err)
	require.Contains(t, out, "updated run 1")

	// Restating a fixed field with its stored value passes.
	_, err = runCLI("update", "1", "--db", db,
		"--stage", "doublet", "--duration", "36h")
	require.NoError(t, err)

	out, err = runCLI("show", "1", "--db", db, "--json")
	require.NoError(t, err)
	var run presentation.RunDTO
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	require.Equal(t, "large", run.SizeClass)
	require.NotNil(t, run.GraphCount)
	require.Equal(t, int64(120000), *run.GraphCount)
	require.Equal(t, "36h0m0s", run.TrainingDuration)
	require.Equal(t, "recount after dedup", run.Notes)

	_, err = runCLI("update", "1", "--db", db, "--stage", "triplet")
	require.Error(t, err)
	require.Equal(t, exitImmutableField, ExitCode(err))

	_, err = runCLI("update", "1", "--db", db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nothing to update")
}

func TestLinkLineageUnlinkFlow(t *testing.T) {
	newTestHome(t)
	db := testDBPath(t)

	_, err := runCLI("register", "--db", db,
		"--stage", "doublet",
		"--dataset", "/doublet_data/hitgraphs_med",
		"--result", "/doublet_results/agnn01")
	require.NoError(t, err)
	_, err = runCLI("register", "--db", db,
		"--stage", "triplet",
		"--dataset", "/triplet_data/hitgraphs_med",
		"--result", "/triplet_results/t01")
	require.NoError(t, err)

	out, err := runCLI("link", "2", "1", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "linked run 2 to upstream run 1")

	out, err = runCLI("lineage", "2", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "/doublet_results/agnn01")

	out, err = runCLI("unlink", "2", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "unlinked run 2")

	out, err = runCLI("lineage", "2", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "no upstream lineage")
}

func TestListFilters(t *testing.T) {
	newTestHome(t)
	db := testDBPath(t)

	_, err := runCLI("register", "--db", db,
		"--stage", "doublet", "--size", "small", "--graphs", "8000",
		"--dataset", "/doublet_data/hitgraphs_small",
		"--result", "/doublet_results/agnn00")
	require.NoError(t, err)
	_, err = runCLI("register", "--db", db,
		"--stage", "doublet", "--size", "large", "--graphs", "250000",
		"--dataset", "/doublet_data/hitgraphs_big",
		"--result", "/doublet_results/agnn01")
	require.NoError(t, err)
	_, err = runCLI("register", "--db", db,
		"--stage", "triplet", "--size", "small",
		"--dataset", "/triplet_data/hitgraphs_small",
		"--result", "/triplet_results/t00",
		"--upstream", "1")
	require.NoError(t, err)

	out, err := runCLI("list", "--db", db, "--stage", "doublet", "--json")
	require.NoError(t, err)
	var runs []presentation.RunDTO
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	for _, run := range runs {
		require.Equal(t, "doublet", run.Stage)
	}

	out, err = runCLI("list", "--db", db, "--unlinked", "--stage", "triplet", "--json")
	require.NoError(t, err)
	runs = nil
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Empty(t, runs, "the only triplet is linked")

	out, err = runCLI("list", "--db", db, "--where", "graphs > 100000", "--json")
	require.NoError(t, err)
	runs = nil
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, "/doublet_results/agnn01", runs[0].ResultPath)

	_, err = runCLI("list", "--db", db, "--linked", "--unlinked")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot combine")

	_, err = runCLI("list", "--db", db, "--where", "graphs >")
	require.Error(t, err)
}

func TestErrorFlows_MapToExitCodes(t *testing.T) {
	newTestHome(t)
	db := testDBPath(t)

	_, err := runCLI("register", "--db", db,
		"--stage", "doublet",
		"--dataset", "/doublet_data/hitgraphs_med",
		"--result", "/doublet_results/agnn00")
	require.NoError(t, err)
	_, err = runCLI("register", "--db", db,
		"--stage", "triplet",
		"--dataset", "/triplet_data/hitgraphs_med",
		"--result", "/triplet_results/t00",
		"--upstream", "1")
	require.NoError(t, err)

	_, err = runCLI("register", "--db", db,
		"--stage", "doublet",
		"--dataset", "/doublet_data/hitgraphs_med",
		"--result", "/doublet_results/agnn00")
	require.Error(t, err)
	require.Equal(t, exitDuplicateResultPath, ExitCode(err))

	_, err = runCLI("register", "--db", db,
		"--stage", "doublet",
		"--dataset", "/doublet_data/hitgraphs_med",
		"--result", "..")
	require.Error(t, err)
	require.Equal(t, exitMalformedPath, ExitCode(err))

	_, err = runCLI("show", "99", "--db", db)
	require.Error(t, err)
	require.Equal(t, exitNotFound, ExitCode(err))

	_, err = runCLI("update", "1", "--db", db,
		"--result", "/doublet_results/agnn99")
	require.Error(t, err)
	require.Equal(t, exitImmutableField, ExitCode(err))

	_, err = runCLI("register", "--db", db,
		"--stage", "triplet",
		"--dataset", "/triplet_data/hitgraphs_med",
		"--result", "/triplet_results/t09",
		"--upstream", "2")
	require.Error(t, err)
	require.Equal(t, exitStageMismatch, ExitCode(err))

	_, err = runCLI("link", "2", "1", "--db", db)
	require.Error(t, err)
	require.Equal(t, exitAlreadyLinked, ExitCode(err))

	_, err = runCLI("purge", "1", "--db", db)
	require.Error(t, err)
	require.Equal(t, exitReferencedByDependents, ExitCode(err))
}

func TestImportFlow(t *testing.T) {
	newTestHome(t)
	db := testDBPath(t)
	t.Setenv("DATA", "/data")
	ledgerPath := filepath.Join(t.TempDir(), "runs.yaml")

	out, err := runCLI("import", "--init", ledgerPath, "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "wrote ledger template")

	out, err = runCLI("import", ledgerPath, "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "imported 3 runs")

	out, err = runCLI("lineage", "3", "--db", db, "--json")
	require.NoError(t, err)
	var lineage presentation.LineageDTO
	require.NoError(t, json.Unmarshal([]byte(out), &lineage))
	require.Len(t, lineage.Ancestors, 1)
	require.Equal(t, int64(2), lineage.Ancestors[0].ID)

	out, err = runCLI("import", "--history", "--db", db, "--json")
	require.NoError(t, err)
	var batches []presentation.ImportDTO
	require.NoError(t, json.Unmarshal([]byte(out), &batches))
	require.Len(t, batches, 1)
	require.Equal(t, ledgerPath, batches[0].Source)
	require.Equal(t, int64(3), batches[0].RunCount)
}

func TestImport_RequiresFileArgument(t *testing.T) {
	newTestHome(t)

	_, err := runCLI("import", "--db", testDBPath(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "ledger file")
}

func TestFirstRun_WritesUserConfig(t *testing.T) {
	home := newTestHome(t)

	out, err := runCLI("list", "--db", testDBPath(t))
	require.NoError(t, err)
	require.Contains(t, out, "no runs registered")

	data, err := os.ReadFile(filepath.Join(home, ".config", "trackreg", "config.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "database:")
}

func TestVersionFlag(t *testing.T) {
	newTestHome(t)

	out, err := runCLI("--version")
	require.NoError(t, err)
	require.Contains(t, out, "trackreg version")
}
