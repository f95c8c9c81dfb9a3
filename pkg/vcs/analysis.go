package vcs

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Analyze classifies the fetched tip remote against the local branch tip.
//
// The local tip is "unborn" when the branch has no commits yet. A missing
// common ancestor is folded into AnalysisUnborn so that callers treat both
// cases as "adopt the remote branch".
func (r *Repository) Analyze(remote plumbing.Hash) (Analysis, error) {
	_, local, err := r.head()
	if err != nil || local.IsZero() {
		return AnalysisUnborn, nil
	}

	if local == remote {
		return AnalysisUpToDate, nil
	}

	localCommit, err := r.repo.CommitObject(local)
	if err != nil {
		return 0, opErr("analyze", ErrMergeFailed, fmt.Errorf("failed to read local tip %s: %w", local, err))
	}
	remoteCommit, err := r.repo.CommitObject(remote)
	if err != nil {
		return 0, opErr("analyze", ErrMergeFailed, fmt.Errorf("failed to read fetched tip %s: %w", remote, err))
	}

	return analyzeCommits(localCommit, remoteCommit)
}

func analyzeCommits(local, remote *object.Commit) (Analysis, error) {
	contained, err := remote.IsAncestor(local)
	if err != nil {
		return 0, opErr("analyze", ErrMergeFailed, err)
	}
	if contained {
		return AnalysisUpToDate, nil
	}

	behind, err := local.IsAncestor(remote)
	if err != nil {
		return 0, opErr("analyze", ErrMergeFailed, err)
	}
	if behind {
		return AnalysisFastForward, nil
	}

	bases, err := local.MergeBase(remote)
	if err != nil {
		return 0, opErr("analyze", ErrMergeFailed, err)
	}
	if len(bases) == 0 {
		return AnalysisUnborn, nil
	}
	return AnalysisNormal, nil
}
