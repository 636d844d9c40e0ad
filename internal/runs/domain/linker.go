package domain

import "fmt"

// Linker establishes and dissolves the dependency edge between a triplet
// run and the doublet run whose checkpoint it consumes.
//
// The edge rules keep the dependency relation a forest: only triplet runs
// carry an upstream edge, and the edge may only point at a doublet run.
// Lineage is still written as a general walk with a revisit guard so the
// algorithm stays correct if more stages are ever added in between.
type Linker struct {
	runs RunRepository
}

// NewLinker creates a Linker over the given repository.
func NewLinker(runs RunRepository) *Linker {
	return &Linker{runs: runs}
}

// Link records that the triplet run consumes the doublet run's checkpoint.
// Fails with StageMismatchError unless tripletID names a triplet run and
// doubletID names a doublet run, and with ErrAlreadyLinked when the triplet
// already has an upstream edge; relinking requires an explicit Unlink first.
func (l *Linker) Link(tripletID, doubletID int64) error {
	triplet, err := l.runs.FindByID(tripletID)
	if err != nil {
		return err
	}
	if triplet.Stage() != StageTriplet {
		return &StageMismatchError{ID: tripletID, Got: triplet.Stage(), Want: StageTriplet}
	}
	if triplet.IsLinked() {
		return fmt.Errorf("%w: run %d depends on run %d", ErrAlreadyLinked, tripletID, *triplet.UpstreamID())
	}

	if err := l.CheckUpstream(doubletID); err != nil {
		return err
	}

	triplet.SetUpstream(doubletID)
	return l.runs.Save(triplet)
}

// CheckUpstream verifies that id names an existing doublet run, the only
// kind of run an upstream edge may point at. Registration uses this to
// validate a dependency declared before the dependent run exists.
func (l *Linker) CheckUpstream(id int64) error {
	doublet, err := l.runs.FindByID(id)
	if err != nil {
		return err
	}
	if doublet.Stage() != StageDoublet {
		return &StageMismatchError{ID: id, Got: doublet.Stage(), Want: StageDoublet}
	}
	return nil
}

// Unlink clears the upstream edge on the triplet run. Clearing an edge that
// was never set is permitted and changes nothing.
func (l *Linker) Unlink(tripletID int64) error {
	triplet, err := l.runs.FindByID(tripletID)
	if err != nil {
		return err
	}
	if triplet.Stage() != StageTriplet {
		return &StageMismatchError{ID: tripletID, Got: triplet.Stage(), Want: StageTriplet}
	}
	if !triplet.IsLinked() {
		return nil
	}

	triplet.ClearUpstream()
	return l.runs.Save(triplet)
}

// Lineage returns the ordered ancestor chain of the given run, nearest
// ancestor first, by following upstream edges until none remains. The run
// itself is not included. Fails with ErrCycleDetected if the walk revisits
// an id; the edge rules make that unreachable, but the walk guards rather
// than assumes.
func (l *Linker) Lineage(id int64) ([]*Run, error) {
	run, err := l.runs.FindByID(id)
	if err != nil {
		return nil, err
	}

	visited := map[int64]bool{run.ID(): true}
	ancestors := make([]*Run, 0)

	for run.UpstreamID() != nil {
		next := *run.UpstreamID()
		if visited[next] {
			return nil, fmt.Errorf("%w: run %d revisited", ErrCycleDetected, next)
		}
		visited[next] = true

		run, err = l.runs.FindByID(next)
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, run)
	}

	return ancestors, nil
}
