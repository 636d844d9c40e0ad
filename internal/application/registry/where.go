package registry

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"trackreg/internal/runs/domain"
)

// WherePredicate is a compiled boolean expression evaluated against run
// records during list filtering.
//
// Expressions see one flat environment per run:
//
//	id        int     registry id
//	stage     string  "doublet" or "triplet"
//	size      string  "small", "medium", "large", or "" when unset
//	graphs    int     training graph count, 0 when unrecorded
//	duration  float   training duration in seconds, 0 while running
//	dataset   string  normalized dataset path
//	result    string  normalized result path
//	upstream  int     upstream run id, 0 when unlinked
//	linked    bool    whether an upstream edge exists
//	completed bool    whether a training duration was recorded
//	notes     string  free-text notes
//
// Optional fields surface as zero values so expressions stay total.
type WherePredicate struct {
	src     string
	program *vm.Program
}

// CompileWhere compiles a where expression. Unknown identifiers and
// non-boolean results are rejected at compile time.
func CompileWhere(src string) (*WherePredicate, error) {
	program, err := expr.Compile(src, expr.Env(wherePrototype()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid where expression: %w", err)
	}
	return &WherePredicate{src: src, program: program}, nil
}

// Match evaluates the predicate against one run.
func (p *WherePredicate) Match(run *domain.Run) (bool, error) {
	out, err := expr.Run(p.program, whereEnv(run))
	if err != nil {
		return false, fmt.Errorf("evaluate where expression: %w", err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("where expression yielded %T, want bool", out)
	}
	return matched, nil
}

// String returns the source text the predicate was compiled from.
func (p *WherePredicate) String() string {
	return p.src
}

// wherePrototype declares the environment shape for the type checker.
func wherePrototype() map[string]any {
	return map[string]any{
		"id":        int64(0),
		"stage":     "",
		"size":      "",
		"graphs":    int64(0),
		"duration":  float64(0),
		"dataset":   "",
		"result":    "",
		"upstream":  int64(0),
		"linked":    false,
		"completed": false,
		"notes":     "",
	}
}

func whereEnv(run *domain.Run) map[string]any {
	var graphs int64
	if c := run.GraphCount(); c != nil {
		graphs = *c
	}
	var seconds float64
	if d := run.TrainingDuration(); d != nil {
		seconds = d.Seconds()
	}
	var upstream int64
	if u := run.UpstreamID(); u != nil {
		upstream = *u
	}
	return map[string]any{
		"id":        run.ID(),
		"stage":     run.Stage().String(),
		"size":      run.SizeClass().String(),
		"graphs":    graphs,
		"duration":  seconds,
		"dataset":   run.DatasetPath(),
		"result":    run.ResultPath(),
		"upstream":  upstream,
		"linked":    run.IsLinked(),
		"completed": run.IsCompleted(),
		"notes":     run.Notes(),
	}
}
