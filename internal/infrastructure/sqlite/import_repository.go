package sqlite

import (
	"database/sql"
	"fmt"

	"trackreg/internal/runs/domain"
)

// importColumns is the list of columns to select for import queries.
const importColumns = `id, source, run_count, created_at`

// importRepository implements domain.ImportRepository using SQLite.
type importRepository struct {
	db *sql.DB
}

// newImportRepository creates a new importRepository instance.
func newImportRepository(db *sql.DB) *importRepository {
	return &importRepository{db: db}
}

// Ensure importRepository implements domain.ImportRepository.
var _ domain.ImportRepository = (*importRepository)(nil)

// ImportRuns persists an import batch and its run records inside one
// transaction. Runs are inserted in slice order; a run with id zero is
// assigned the next id, a nonzero id is preserved. upstreamOf maps a run's
// index to the index of its upstream doublet in the same slice; the
// upstream must come earlier so its id is already assigned when the edge
// row is written.
func (r *importRepository) ImportRuns(batch domain.ImportBatch, runs []*domain.Run, upstreamOf map[int]int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, run := range runs {
		if j, ok := upstreamOf[i]; ok {
			if j < 0 || j >= i {
				return fmt.Errorf("run %d of %d: upstream index %d does not precede it", i+1, len(runs), j)
			}
			run.SetUpstream(runs[j].ID())
		}

		id, err := insertRun(tx, toRunModel(run))
		if err != nil {
			return fmt.Errorf("run %d of %d: %w", i+1, len(runs), err)
		}
		run.SetID(id)
	}

	model := toImportModel(batch)
	if _, err := tx.Exec(
		`INSERT INTO imports (id, source, run_count, created_at) VALUES (?, ?, ?, ?)`,
		model.ID, model.Source, model.RunCount, model.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to record import batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// List retrieves all import batches, newest first.
func (r *importRepository) List() ([]domain.ImportBatch, error) {
	rows, err := r.db.Query(
		`SELECT ` + importColumns + ` FROM imports ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []domain.ImportBatch
	for rows.Next() {
		var model ImportModel
		if err := rows.Scan(&model.ID, &model.Source, &model.RunCount, &model.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import row: %w", err)
		}
		batches = append(batches, model.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import rows: %w", err)
	}

	return batches, nil
}

// Close releases any resources held by the repository.
// This is a no-op because the connection is owned by the DB struct.
func (r *importRepository) Close() error {
	// No-op: connection is owned by DB struct
	return nil
}
