package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trackreg/internal/infrastructure/sqlite"
	"trackreg/internal/runs/domain"
)

// Builder accumulates run records and saves them in declaration order, so
// ids are deterministic: in a fresh database the first run gets id 1, the
// second id 2, and so on. Upstream edges may therefore reference runs by
// their position-derived id.
type Builder struct {
	t    *testing.T
	db   *sqlite.DB
	runs []runData
}

// NewBuilder creates a builder over the given test database.
func NewBuilder(t *testing.T, db *sqlite.DB) *Builder {
	t.Helper()
	return &Builder{t: t, db: db}
}

// WithDoublet adds a doublet run with the given result path.
func (b *Builder) WithDoublet(result string, opts ...RunOption) *Builder {
	run := defaultRun(domain.StageDoublet, result)
	for _, opt := range opts {
		opt(&run)
	}
	b.runs = append(b.runs, run)
	return b
}

// WithTriplet adds a triplet run with the given result path.
func (b *Builder) WithTriplet(result string, opts ...RunOption) *Builder {
	run := defaultRun(domain.StageTriplet, result)
	for _, opt := range opts {
		opt(&run)
	}
	b.runs = append(b.runs, run)
	return b
}

// Build saves all accumulated runs and returns them with assigned ids.
func (b *Builder) Build() []*domain.Run {
	b.t.Helper()
	repo := b.db.RunRepository()
	saved := make([]*domain.Run, 0, len(b.runs))
	for _, data := range b.runs {
		run := domain.NewRun(data.stage, data.dataset, data.result)
		if data.size != domain.SizeUnspecified {
			run.SetSizeClass(data.size)
		}
		if data.graphs != nil {
			run.SetGraphCount(*data.graphs)
		}
		if data.duration != nil {
			run.Complete(*data.duration)
		}
		if data.upstream != nil {
			run.SetUpstream(*data.upstream)
		}
		if data.notes != "" {
			run.SetNotes(data.notes)
		}
		require.NoError(b.t, repo.Save(run), "Failed to seed run %s", data.result)
		saved = append(saved, run)
	}
	return saved
}
