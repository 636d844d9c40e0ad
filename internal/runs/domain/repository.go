package domain

// ListFilter provides filtering options for listing runs.
type ListFilter struct {
	// Stage filters runs by pipeline stage.
	// If empty, all stages are included.
	Stage Stage

	// SizeClass filters runs by their advisory size label.
	// If empty, all size classes are included.
	SizeClass SizeClass

	// Linked filters by the presence of an upstream edge.
	// true returns only linked runs, false only unlinked runs,
	// nil applies no linkage filtering.
	Linked *bool

	// Limit restricts the number of runs returned.
	// If 0, no limit is applied.
	Limit int
}

// RunRepository defines the persistence interface for Run entities.
// Implementations may use SQLite, in-memory storage, or other backends.
type RunRepository interface {
	// Save persists a run to the repository.
	// For new runs (ID == 0), this creates a new record and sets the ID.
	// For existing runs (ID > 0), this updates the mutable columns of the
	// existing record.
	// Returns ErrDuplicateResultPath when an insert collides with another
	// record's result path.
	Save(run *Run) error

	// Insert persists a run under an explicit, caller-chosen id.
	// Used when replaying records from the legacy ledger, where ids are
	// part of the source material. Returns ErrDuplicateID when the id is
	// already taken and ErrDuplicateResultPath on a result path collision.
	Insert(run *Run) error

	// FindByID retrieves a run by its id.
	// Returns RunNotFoundError if no matching run exists.
	FindByID(id int64) (*Run, error)

	// ExistsByResultPath reports whether any run claims the given
	// normalized result path.
	ExistsByResultPath(path string) (bool, error)

	// FindDependents retrieves the runs whose upstream edge points at the
	// given id, ordered by id ascending.
	FindDependents(id int64) ([]*Run, error)

	// CountDependents counts the runs whose upstream edge points at the
	// given id.
	CountDependents(id int64) (int64, error)

	// Delete permanently removes a run.
	// Returns ErrReferencedByDependents while another run's upstream edge
	// points at the target, and RunNotFoundError if no matching run exists.
	Delete(id int64) error

	// ListWithFilter retrieves runs matching the given filter criteria.
	// Results are ordered by id ascending (registration order).
	ListWithFilter(filter ListFilter) ([]*Run, error)

	// Close releases any resources held by the repository.
	Close() error
}
