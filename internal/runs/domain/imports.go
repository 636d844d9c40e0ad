package domain

import "time"

// ImportBatch is the audit record for one legacy ledger import.
// Batches are identified by a caller-assigned UUID rather than a monotonic
// id; they are provenance about the registry itself, not run records.
type ImportBatch struct {
	ID        string
	Source    string
	RunCount  int64
	CreatedAt time.Time
}

// ImportRepository defines the persistence interface for ledger imports.
type ImportRepository interface {
	// ImportRuns persists an import batch and its run records in one
	// atomic operation: either every run and the audit row land, or
	// nothing does. Runs are inserted in slice order; a run with id zero
	// is assigned the next id, a nonzero id is preserved. upstreamOf maps
	// a run's index to the index of its upstream doublet in the same
	// slice, which must come earlier so the edge resolves in one pass.
	// Returns ErrDuplicateID and ErrDuplicateResultPath on collisions
	// with existing records.
	ImportRuns(batch ImportBatch, runs []*Run, upstreamOf map[int]int) error

	// List retrieves all import batches, newest first.
	List() ([]ImportBatch, error)

	// Close releases any resources held by the repository.
	Close() error
}
