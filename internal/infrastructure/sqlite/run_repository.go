package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/ncruces/go-sqlite3"

	"trackreg/internal/runs/domain"
)

// runColumns is the list of columns to select for run queries.
const runColumns = `id, stage, size_class, graph_count, training_duration_ms,
	dataset_path, result_path, upstream_id, notes, created_at, updated_at`

// runRepository implements domain.RunRepository using SQLite.
type runRepository struct {
	db *sql.DB
}

// newRunRepository creates a new runRepository instance.
func newRunRepository(db *sql.DB) *runRepository {
	return &runRepository{db: db}
}

// Ensure runRepository implements domain.RunRepository.
var _ domain.RunRepository = (*runRepository)(nil)

// scanRun scans a row into a RunModel.
func scanRun(scanner interface{ Scan(...any) error }) (*RunModel, error) {
	var model RunModel
	err := scanner.Scan(
		&model.ID, &model.Stage, &model.SizeClass,
		&model.GraphCount, &model.TrainingDurationMs,
		&model.DatasetPath, &model.ResultPath,
		&model.UpstreamID, &model.Notes,
		&model.CreatedAt, &model.UpdatedAt,
	)
	return &model, err
}

// isConstraint reports whether err is a SQLite constraint violation with the
// given extended error code.
func isConstraint(err error, code sqlite3.ExtendedErrorCode) bool {
	var serr *sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode() == code
}

// execer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// insertRun inserts a run row and returns its id. A zero model id lets
// SQLite assign the next id; a nonzero id is written explicitly, as when
// replaying numbered ledger entries. Constraint violations map to
// ErrDuplicateID and ErrDuplicateResultPath.
func insertRun(db execer, model *RunModel) (int64, error) {
	if model.ID == 0 {
		result, err := db.Exec(
			`INSERT INTO runs (
				stage, size_class, graph_count, training_duration_ms,
				dataset_path, result_path, upstream_id, notes,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			model.Stage, model.SizeClass, model.GraphCount, model.TrainingDurationMs,
			model.DatasetPath, model.ResultPath, model.UpstreamID, model.Notes,
			model.CreatedAt, model.UpdatedAt,
		)
		if err != nil {
			if isConstraint(err, sqlite3.CONSTRAINT_UNIQUE) {
				return 0, fmt.Errorf("%w: %s", domain.ErrDuplicateResultPath, model.ResultPath)
			}
			return 0, fmt.Errorf("failed to insert run: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get last insert id: %w", err)
		}
		return id, nil
	}

	_, err := db.Exec(
		`INSERT INTO runs (
			id, stage, size_class, graph_count, training_duration_ms,
			dataset_path, result_path, upstream_id, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		model.ID, model.Stage, model.SizeClass, model.GraphCount, model.TrainingDurationMs,
		model.DatasetPath, model.ResultPath, model.UpstreamID, model.Notes,
		model.CreatedAt, model.UpdatedAt,
	)
	if err != nil {
		switch {
		case isConstraint(err, sqlite3.CONSTRAINT_PRIMARYKEY), isConstraint(err, sqlite3.CONSTRAINT_ROWID):
			return 0, fmt.Errorf("%w: %d", domain.ErrDuplicateID, model.ID)
		case isConstraint(err, sqlite3.CONSTRAINT_UNIQUE):
			return 0, fmt.Errorf("%w: %s", domain.ErrDuplicateResultPath, model.ResultPath)
		}
		return 0, fmt.Errorf("failed to insert run with id %d: %w", model.ID, err)
	}
	return model.ID, nil
}

// Save persists a run to the database.
// For new runs (ID == 0), inserts a new row and sets the run ID.
// For existing runs (ID > 0), updates the mutable columns of the existing
// row; stage, dataset_path, result_path, and created_at never change after
// registration.
// Returns ErrDuplicateResultPath when an insert collides with another run's
// result path.
func (r *runRepository) Save(run *domain.Run) error {
	model := toRunModel(run)

	if run.ID() == 0 {
		id, err := insertRun(r.db, model)
		if err != nil {
			return err
		}
		run.SetID(id)
		return nil
	}

	// Update existing run
	_, err := r.db.Exec(
		`UPDATE runs SET
			size_class = ?, graph_count = ?, training_duration_ms = ?,
			upstream_id = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		model.SizeClass, model.GraphCount, model.TrainingDurationMs,
		model.UpstreamID, model.Notes, model.UpdatedAt,
		model.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// Insert persists a run under an explicit, caller-chosen id.
// Returns ErrDuplicateID when the id is already taken and
// ErrDuplicateResultPath on a result path collision.
func (r *runRepository) Insert(run *domain.Run) error {
	if run.ID() == 0 {
		return fmt.Errorf("explicit insert requires a nonzero id")
	}

	_, err := insertRun(r.db, toRunModel(run))
	return err
}

// FindByID retrieves a run by its id.
// Returns RunNotFoundError if no matching run exists.
func (r *runRepository) FindByID(id int64) (*domain.Run, error) {
	row := r.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE id = ?`,
		id,
	)
	model, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.RunNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run by id: %w", err)
	}
	return model.toDomain(), nil
}

// ExistsByResultPath reports whether any run claims the given normalized
// result path.
func (r *runRepository) ExistsByResultPath(path string) (bool, error) {
	row := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM runs WHERE result_path = ?)`,
		path,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check result path: %w", err)
	}
	return exists, nil
}

// FindDependents retrieves the runs whose upstream edge points at the given
// id, ordered by id ascending.
func (r *runRepository) FindDependents(id int64) ([]*domain.Run, error) {
	rows, err := r.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE upstream_id = ? ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find dependents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*domain.Run
	for rows.Next() {
		model, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, model.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// CountDependents counts the runs whose upstream edge points at the given id.
func (r *runRepository) CountDependents(id int64) (int64, error) {
	row := r.db.QueryRow(
		`SELECT COUNT(*) FROM runs WHERE upstream_id = ?`,
		id,
	)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dependents: %w", err)
	}
	return count, nil
}

// Delete permanently removes a run.
// Returns ErrReferencedByDependents while another run's upstream edge points
// at the target, and RunNotFoundError if no matching run exists.
func (r *runRepository) Delete(id int64) error {
	count, err := r.CountDependents(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: run %d has %d dependent(s)", domain.ErrReferencedByDependents, id, count)
	}

	result, err := r.db.Exec(
		`DELETE FROM runs WHERE id = ?`,
		id,
	)
	if err != nil {
		// The foreign key also rejects deletes that race past the count.
		if isConstraint(err, sqlite3.CONSTRAINT_FOREIGNKEY) {
			return fmt.Errorf("%w: run %d", domain.ErrReferencedByDependents, id)
		}
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.RunNotFoundError{ID: id}
	}
	return nil
}

// ListWithFilter retrieves runs matching the given filter criteria.
// Results are ordered by id ascending (registration order).
func (r *runRepository) ListWithFilter(filter domain.ListFilter) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := []any{}

	// Add stage filter if specified
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}

	// Add size class filter if specified
	if filter.SizeClass != domain.SizeUnspecified {
		query += ` AND size_class = ?`
		args = append(args, string(filter.SizeClass))
	}

	// Filter by linkage if specified
	if filter.Linked != nil {
		if *filter.Linked {
			query += ` AND upstream_id IS NOT NULL`
		} else {
			query += ` AND upstream_id IS NULL`
		}
	}

	// Order by id ascending (registration order)
	query += ` ORDER BY id ASC`

	// Add limit if specified
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*domain.Run
	for rows.Next() {
		model, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, model.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// Close releases any resources held by the repository.
// This is a no-op because the connection is owned by the DB struct.
func (r *runRepository) Close() error {
	// No-op: connection is owned by DB struct
	return nil
}
