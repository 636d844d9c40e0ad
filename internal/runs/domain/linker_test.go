package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// memRepo is a minimal in-memory RunRepository for exercising the linker
// without a database.
type memRepo struct {
	runs   map[int64]*Run
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{runs: make(map[int64]*Run), nextID: 1}
}

func (m *memRepo) Save(run *Run) error {
	if run.ID() == 0 {
		run.SetID(m.nextID)
		m.nextID++
	}
	m.runs[run.ID()] = run
	return nil
}

func (m *memRepo) Insert(run *Run) error {
	if _, ok := m.runs[run.ID()]; ok {
		return ErrDuplicateID
	}
	m.runs[run.ID()] = run
	if run.ID() >= m.nextID {
		m.nextID = run.ID() + 1
	}
	return nil
}

func (m *memRepo) FindByID(id int64) (*Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, &RunNotFoundError{ID: id}
	}
	return run, nil
}

func (m *memRepo) ExistsByResultPath(path string) (bool, error) {
	for _, run := range m.runs {
		if run.ResultPath() == path {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) FindDependents(id int64) ([]*Run, error) {
	var dependents []*Run
	for _, run := range m.runs {
		if run.UpstreamID() != nil && *run.UpstreamID() == id {
			dependents = append(dependents, run)
		}
	}
	return dependents, nil
}

func (m *memRepo) CountDependents(id int64) (int64, error) {
	dependents, _ := m.FindDependents(id)
	return int64(len(dependents)), nil
}

func (m *memRepo) Delete(id int64) error {
	if _, ok := m.runs[id]; !ok {
		return &RunNotFoundError{ID: id}
	}
	count, _ := m.CountDependents(id)
	if count > 0 {
		return ErrReferencedByDependents
	}
	delete(m.runs, id)
	return nil
}

func (m *memRepo) ListWithFilter(filter ListFilter) ([]*Run, error) {
	var runs []*Run
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	return runs, nil
}

func (m *memRepo) Close() error { return nil }

func seedLinkerRepo(t *testing.T) (*memRepo, *Run, *Run) {
	t.Helper()
	repo := newMemRepo()

	doublet := NewRun(StageDoublet, "/doublet_data/hitgraphs_med", "/doublet_results/agnn01")
	require.NoError(t, repo.Save(doublet))

	triplet := NewRun(StageTriplet, "/triplet_data/hitgraphs_med", "/triplet_results/t01")
	require.NoError(t, repo.Save(triplet))

	return repo, doublet, triplet
}

func TestLinker_Link(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)
	linker := NewLinker(repo)

	err := linker.Link(triplet.ID(), doublet.ID())
	require.NoError(t, err)

	linked, err := repo.FindByID(triplet.ID())
	require.NoError(t, err)
	require.True(t, linked.IsLinked())
	require.Equal(t, doublet.ID(), *linked.UpstreamID())
}

func TestLinker_Link_StageMismatch(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)

	otherDoublet := NewRun(StageDoublet, "/doublet_data/hitgraphs_med_002", "/doublet_results/agnn02")
	require.NoError(t, repo.Save(otherDoublet))

	linker := NewLinker(repo)

	// Doublet on the downstream side
	err := linker.Link(doublet.ID(), otherDoublet.ID())
	var mismatch *StageMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, doublet.ID(), mismatch.ID)
	require.Equal(t, StageTriplet, mismatch.Want)

	// Triplet on the upstream side
	otherTriplet := NewRun(StageTriplet, "/triplet_data/hitgraphs_med", "/triplet_results/t02")
	require.NoError(t, repo.Save(otherTriplet))

	err = linker.Link(triplet.ID(), otherTriplet.ID())
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, otherTriplet.ID(), mismatch.ID)
	require.Equal(t, StageDoublet, mismatch.Want)
}

func TestLinker_Link_AlreadyLinked(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)
	linker := NewLinker(repo)

	require.NoError(t, linker.Link(triplet.ID(), doublet.ID()))

	err := linker.Link(triplet.ID(), doublet.ID())
	require.ErrorIs(t, err, ErrAlreadyLinked)
}

func TestLinker_Link_NotFound(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)
	linker := NewLinker(repo)

	var notFound *RunNotFoundError

	err := linker.Link(999, doublet.ID())
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(999), notFound.ID)

	err = linker.Link(triplet.ID(), 888)
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(888), notFound.ID)
}

func TestLinker_CheckUpstream(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)
	linker := NewLinker(repo)

	require.NoError(t, linker.CheckUpstream(doublet.ID()))

	var mismatch *StageMismatchError
	err := linker.CheckUpstream(triplet.ID())
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, triplet.ID(), mismatch.ID)
	require.Equal(t, StageDoublet, mismatch.Want)

	var notFound *RunNotFoundError
	err = linker.CheckUpstream(404)
	require.ErrorAs(t, err, &notFound)
}

func TestLinker_Unlink(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)
	linker := NewLinker(repo)

	require.NoError(t, linker.Link(triplet.ID(), doublet.ID()))
	require.NoError(t, linker.Unlink(triplet.ID()))

	unlinked, err := repo.FindByID(triplet.ID())
	require.NoError(t, err)
	require.False(t, unlinked.IsLinked())

	// Unlinking an unlinked run is a no-op
	require.NoError(t, linker.Unlink(triplet.ID()))
}

func TestLinker_Unlink_Doublet(t *testing.T) {
	repo, doublet, _ := seedLinkerRepo(t)
	linker := NewLinker(repo)

	var mismatch *StageMismatchError
	err := linker.Unlink(doublet.ID())
	require.ErrorAs(t, err, &mismatch)
}

func TestLinker_Lineage(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)
	linker := NewLinker(repo)

	// Unlinked run has no ancestors
	ancestors, err := linker.Lineage(triplet.ID())
	require.NoError(t, err)
	require.Empty(t, ancestors)

	require.NoError(t, linker.Link(triplet.ID(), doublet.ID()))

	ancestors, err = linker.Lineage(triplet.ID())
	require.NoError(t, err)
	require.Len(t, ancestors, 1, "lineage should contain exactly the linked doublet")
	require.Equal(t, doublet.ID(), ancestors[0].ID())

	// A doublet's lineage is always empty
	ancestors, err = linker.Lineage(doublet.ID())
	require.NoError(t, err)
	require.Empty(t, ancestors)
}

func TestLinker_Lineage_NotFound(t *testing.T) {
	repo, _, _ := seedLinkerRepo(t)
	linker := NewLinker(repo)

	var notFound *RunNotFoundError
	_, err := linker.Lineage(404)
	require.ErrorAs(t, err, &notFound)
}

// The edge rules make cycles unconstructible through the linker, so the
// guard is exercised by corrupting a record directly.
func TestLinker_Lineage_CycleGuard(t *testing.T) {
	repo := newMemRepo()

	a := NewRun(StageTriplet, "/data/a", "/results/a")
	require.NoError(t, repo.Save(a))
	b := NewRun(StageTriplet, "/data/b", "/results/b")
	require.NoError(t, repo.Save(b))

	a.SetUpstream(b.ID())
	b.SetUpstream(a.ID())
	require.NoError(t, repo.Save(a))
	require.NoError(t, repo.Save(b))

	linker := NewLinker(repo)
	_, err := linker.Lineage(a.ID())
	require.ErrorIs(t, err, ErrCycleDetected)
}

func TestLinker_LinkUnlinkRelink(t *testing.T) {
	repo, doublet, triplet := seedLinkerRepo(t)

	second := NewRun(StageDoublet, "/doublet_data/hitgraphs_med_002", "/doublet_results/agnn02")
	require.NoError(t, repo.Save(second))

	linker := NewLinker(repo)

	require.NoError(t, linker.Link(triplet.ID(), doublet.ID()))
	require.ErrorIs(t, linker.Link(triplet.ID(), second.ID()), ErrAlreadyLinked)

	require.NoError(t, linker.Unlink(triplet.ID()))
	require.NoError(t, linker.Link(triplet.ID(), second.ID()))

	ancestors, err := linker.Lineage(triplet.ID())
	require.NoError(t, err)
	require.Len(t, ancestors, 1)
	require.Equal(t, second.ID(), ancestors[0].ID())
}
