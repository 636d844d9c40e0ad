package presentation

import (
	"time"

	"trackreg/internal/runs/domain"
)

// RunDTO is the wire and display form of a run record. Durations travel as
// Go duration strings so `--json` consumers can parse them back.
type RunDTO struct {
	ID               int64     `json:"id"`
	Stage            string    `json:"stage"`
	SizeClass        string    `json:"size_class,omitempty"`
	GraphCount       *int64    `json:"graph_count,omitempty"`
	TrainingDuration string    `json:"training_duration,omitempty"`
	DatasetPath      string    `json:"dataset_path"`
	ResultPath       string    `json:"result_path"`
	UpstreamID       *int64    `json:"upstream_id,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LineageDTO is the ancestor chain of one run, nearest ancestor first.
type LineageDTO struct {
	RunID     int64    `json:"run_id"`
	Ancestors []RunDTO `json:"ancestors"`
}

// ImportDTO is one recorded ledger import batch.
type ImportDTO struct {
	BatchID   string    `json:"batch_id"`
	Source    string    `json:"source"`
	RunCount  int64     `json:"run_count"`
	CreatedAt time.Time `json:"created_at"`
}

// FromDomainRun converts a domain run to its presentation form.
func FromDomainRun(run *domain.Run) RunDTO {
	dto := RunDTO{
		ID:          run.ID(),
		Stage:       run.Stage().String(),
		SizeClass:   run.SizeClass().String(),
		DatasetPath: run.DatasetPath(),
		ResultPath:  run.ResultPath(),
		Notes:       run.Notes(),
		CreatedAt:   run.CreatedAt().UTC(),
		UpdatedAt:   run.UpdatedAt().UTC(),
	}
	if c := run.GraphCount(); c != nil {
		count := *c
		dto.GraphCount = &count
	}
	if d := run.TrainingDuration(); d != nil {
		dto.TrainingDuration = d.String()
	}
	if u := run.UpstreamID(); u != nil {
		id := *u
		dto.UpstreamID = &id
	}
	return dto
}

// FromDomainRuns converts a slice of domain runs to DTOs.
func FromDomainRuns(runs []*domain.Run) []RunDTO {
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = FromDomainRun(run)
	}
	return dtos
}

// FromDomainLineage converts a lineage walk result to its presentation form.
func FromDomainLineage(runID int64, ancestors []*domain.Run) LineageDTO {
	return LineageDTO{
		RunID:     runID,
		Ancestors: FromDomainRuns(ancestors),
	}
}

// FromDomainImport converts an import batch to its presentation form.
func FromDomainImport(batch domain.ImportBatch) ImportDTO {
	return ImportDTO{
		BatchID:   batch.ID,
		Source:    batch.Source,
		RunCount:  batch.RunCount,
		CreatedAt: batch.CreatedAt.UTC(),
	}
}

// FromDomainImports converts a slice of import batches to DTOs.
func FromDomainImports(batches []domain.ImportBatch) []ImportDTO {
	dtos := make([]ImportDTO, len(batches))
	for i, batch := range batches {
		dtos[i] = FromDomainImport(batch)
	}
	return dtos
}
