package sqlite

import (
	"time"

	"trackreg/internal/runs/domain"
)

// RunModel represents the database row for the runs table.
// Fields map directly to SQL columns, with Unix timestamps for time values
// and milliseconds for the training duration.
type RunModel struct {
	ID        int64
	Stage     string
	SizeClass *string // nullable

	GraphCount         *int64 // nullable
	TrainingDurationMs *int64 // nullable

	DatasetPath string
	ResultPath  string

	UpstreamID *int64 // nullable

	Notes string

	CreatedAt int64 // Unix timestamp
	UpdatedAt int64 // Unix timestamp
}

// toRunModel converts a domain Run entity to a database RunModel.
func toRunModel(r *domain.Run) *RunModel {
	m := &RunModel{
		ID:          r.ID(),
		Stage:       string(r.Stage()),
		DatasetPath: r.DatasetPath(),
		ResultPath:  r.ResultPath(),
		Notes:       r.Notes(),
		CreatedAt:   r.CreatedAt().Unix(),
		UpdatedAt:   r.UpdatedAt().Unix(),
	}
	if r.SizeClass() != domain.SizeUnspecified {
		sizeClass := string(r.SizeClass())
		m.SizeClass = &sizeClass
	}
	if r.GraphCount() != nil {
		graphCount := *r.GraphCount()
		m.GraphCount = &graphCount
	}
	if r.TrainingDuration() != nil {
		durationMs := r.TrainingDuration().Milliseconds()
		m.TrainingDurationMs = &durationMs
	}
	if r.UpstreamID() != nil {
		upstreamID := *r.UpstreamID()
		m.UpstreamID = &upstreamID
	}
	return m
}

// toDomain converts a database RunModel to a domain Run entity.
func (m *RunModel) toDomain() *domain.Run {
	sizeClass := domain.SizeUnspecified
	if m.SizeClass != nil {
		sizeClass = domain.SizeClass(*m.SizeClass)
	}
	var graphCount *int64
	if m.GraphCount != nil {
		count := *m.GraphCount
		graphCount = &count
	}
	var trainingDuration *time.Duration
	if m.TrainingDurationMs != nil {
		duration := time.Duration(*m.TrainingDurationMs) * time.Millisecond
		trainingDuration = &duration
	}
	var upstreamID *int64
	if m.UpstreamID != nil {
		id := *m.UpstreamID
		upstreamID = &id
	}
	return domain.ReconstituteRun(
		m.ID,
		domain.Stage(m.Stage),
		sizeClass,
		graphCount,
		trainingDuration,
		m.DatasetPath,
		m.ResultPath,
		upstreamID,
		m.Notes,
		time.Unix(m.CreatedAt, 0),
		time.Unix(m.UpdatedAt, 0),
	)
}

// ImportModel represents the database row for the imports table.
type ImportModel struct {
	ID        string
	Source    string
	RunCount  int64
	CreatedAt int64 // Unix timestamp
}

// toImportModel converts a domain ImportBatch to a database ImportModel.
func toImportModel(b domain.ImportBatch) *ImportModel {
	return &ImportModel{
		ID:        b.ID,
		Source:    b.Source,
		RunCount:  b.RunCount,
		CreatedAt: b.CreatedAt.Unix(),
	}
}

// toDomain converts a database ImportModel to a domain ImportBatch.
func (m *ImportModel) toDomain() domain.ImportBatch {
	return domain.ImportBatch{
		ID:        m.ID,
		Source:    m.Source,
		RunCount:  m.RunCount,
		CreatedAt: time.Unix(m.CreatedAt, 0),
	}
}
