package domain

import (
	"errors"
	"fmt"
)

// Validation errors returned by the registry, resolver, and linker.
var (
	ErrMalformedPath          = errors.New("malformed path")
	ErrDuplicateResultPath    = errors.New("result path already registered")
	ErrDuplicateID            = errors.New("run id already registered")
	ErrImmutableField         = errors.New("field is immutable after creation")
	ErrAlreadyLinked          = errors.New("run already has an upstream link")
	ErrReferencedByDependents = errors.New("run is referenced by dependent runs")
	ErrCycleDetected          = errors.New("cycle detected in dependency walk")
)

// RunNotFoundError indicates that no run exists with the requested id.
type RunNotFoundError struct {
	ID int64
}

// Error implements the error interface.
func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run %d not found", e.ID)
}

// StageMismatchError indicates that a run's stage does not satisfy a linking
// rule, e.g. linking a doublet as the downstream side of an edge or naming a
// triplet as an upstream dependency. A zero ID refers to a run that has not
// been registered yet, as when a registration declares an upstream on a
// doublet.
type StageMismatchError struct {
	ID   int64
	Got  Stage
	Want Stage
}

// Error implements the error interface.
func (e *StageMismatchError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("new run has stage %s, want %s", e.Got, e.Want)
	}
	return fmt.Sprintf("run %d has stage %s, want %s", e.ID, e.Got, e.Want)
}
