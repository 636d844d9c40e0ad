package testutil

import (
	"time"

	"trackreg/internal/runs/domain"
)

// runData holds all data for a run to be seeded.
type runData struct {
	stage    domain.Stage
	size     domain.SizeClass
	graphs   *int64
	duration *time.Duration
	dataset  string
	result   string
	upstream *int64
	notes    string
}

// defaultRun returns a runData with a stage-appropriate dataset path.
// Datasets are shared between runs; only result paths must be unique.
func defaultRun(stage domain.Stage, result string) runData {
	dataset := "/doublet_data/hitgraphs_med"
	if stage == domain.StageTriplet {
		dataset = "/triplet_data/hitgraphs_med"
	}
	return runData{
		stage:   stage,
		dataset: dataset,
		result:  result,
	}
}

// RunOption configures a run during builder setup.
type RunOption func(*runData)

// Size sets the advisory size class.
func Size(class domain.SizeClass) RunOption {
	return func(r *runData) { r.size = class }
}

// Graphs sets the training graph count.
func Graphs(count int64) RunOption {
	return func(r *runData) { r.graphs = &count }
}

// Completed marks the run finished with the given training duration.
func Completed(d time.Duration) RunOption {
	return func(r *runData) { r.duration = &d }
}

// Dataset overrides the default dataset path.
func Dataset(path string) RunOption {
	return func(r *runData) { r.dataset = path }
}

// Upstream links the run to a doublet by id. Valid only on triplets;
// Build fails when the store rejects the edge.
func Upstream(id int64) RunOption {
	return func(r *runData) { r.upstream = &id }
}

// Notes sets the free-text notes.
func Notes(text string) RunOption {
	return func(r *runData) { r.notes = text }
}
