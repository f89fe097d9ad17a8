// Package plan derives the rollback and commit revision lists that the
// revision state machine walks, given the world's change id and the
// checked-out revision. It never touches the working tree or the session
// store — it is a pure function of the repository graph.
package plan

import "github.com/git-sync-world/git-sync-world/vcs"

// Lists is the output of a plan: the revisions to roll back, newest first,
// followed by the revisions to commit, oldest first.
type Lists struct {
	Rollback []string
	Commit   []string
}

// AlreadySynced reports whether the plan represents a no-op sync.
func (l Lists) AlreadySynced() bool {
	return len(l.Rollback) == 0 && len(l.Commit) == 0
}

// Compute implements the three cases of the planner: equal ids, the
// pre-tracking sentinel, and the general ancestry case.
//
// The general case has a subtlety the abstract "reachable from X but not
// from Y" wording glosses over: when worldID and localID sit on diverging
// branches, the walk needs to pass through their common ancestor once,
// during the rollback leg, so the commit leg can start clean on the other
// branch. A plain ancestors_excluding(world, local) treats the common
// ancestor as "reachable from local" and drops it from the rollback list
// entirely, which leaves the walker with no step that lands it on the
// ancestor before it starts climbing the other branch. Resolving this
// requires a merge-base lookup: the rollback leg runs from worldID down to
// and including the merge base, the commit leg runs from just past the
// merge base up to and including localID. When worldID or localID already
// is the merge base (the purely linear, fast-forward-in-one-direction
// cases), this degenerates exactly to the literal
// ancestors_excluding(world, local) / ancestors_excluding_reverse(local,
// world) formula, so both routes agree wherever the history doesn't fork.
func Compute(repo vcs.Repository, worldID, localID string) (Lists, error) {
	if worldID == localID {
		return Lists{}, nil
	}

	if worldID == "" {
		history, err := repo.FullHistoryOldestFirst(localID)
		if err != nil {
			return Lists{}, err
		}
		return Lists{Commit: history}, nil
	}

	base, err := repo.MergeBase(worldID, localID)
	if err != nil {
		return Lists{}, err
	}

	if base == worldID || base == localID {
		rollback, err := repo.AncestorsExcluding(worldID, localID)
		if err != nil {
			return Lists{}, err
		}
		commit, err := repo.AncestorsExcludingReverse(localID, worldID)
		if err != nil {
			return Lists{}, err
		}
		return Lists{Rollback: rollback, Commit: commit}, nil
	}

	rollback, err := repo.AncestorsExcluding(worldID, base)
	if err != nil {
		return Lists{}, err
	}
	rollback = append(rollback, base)

	commit, err := repo.AncestorsExcludingReverse(localID, base)
	if err != nil {
		return Lists{}, err
	}

	return Lists{Rollback: rollback, Commit: commit}, nil
}
