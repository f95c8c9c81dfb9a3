package vcs

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// mergeHeadRef records the fetched tip of an unresolved merge.
const mergeHeadRef plumbing.ReferenceName = "MERGE_HEAD"

// Commit stages every change under the working tree root (new, modified and
// deleted paths; ignored paths excluded) and records exactly one new revision
// on the branch HEAD points at.
//
// The new revision has the current tip as its only parent. If the branch has
// no commits, or HEAD cannot be read, the revision has no parents and HEAD is
// pointed at the tracked branch. While a conflicted merge is pending the
// revision also records MERGE_HEAD as second parent, unless a conflicted path
// is still unresolved, in which case ErrConflictPending is returned and
// nothing is written.
func (r *Repository) Commit(message string, author Signature) (*CommitRecord, error) {
	const op = "commit"

	mergeHead, err := r.pendingMerge()
	if err != nil {
		return nil, opErr(op, ErrStagingFailed, err)
	}
	if !mergeHead.IsZero() {
		unresolved, err := r.UnresolvedConflicts()
		if err != nil {
			return nil, opErr(op, ErrStagingFailed, err)
		}
		if len(unresolved) > 0 {
			paths := make([]string, len(unresolved))
			for i, c := range unresolved {
				paths[i] = c.Path
			}
			return nil, opErr(op, ErrConflictPending, fmt.Errorf("unresolved: %s", strings.Join(paths, ", ")))
		}
	}

	// Stage everything, deletions included
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, opErr(op, ErrStagingFailed, err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return nil, opErr(op, ErrStagingFailed, err)
	}

	tree, err := r.writeIndexTree()
	if err != nil {
		return nil, opErr(op, ErrTreeWriteFailed, err)
	}

	rec, err := r.commitTree(op, tree, message, author, mergeHead)
	if err != nil {
		return nil, err
	}

	if !mergeHead.IsZero() {
		if err := r.repo.Storer.RemoveReference(mergeHeadRef); err != nil {
			return rec, opErr(op, ErrCommitWriteFailed, err)
		}
		if err := r.clearConflicts(); err != nil {
			return rec, opErr(op, ErrCommitWriteFailed, err)
		}
	}
	return rec, nil
}

// commitTree writes a commit for tree on top of the current tip (plus
// mergeHead when non-zero) and advances the branch.
func (r *Repository) commitTree(op string, tree plumbing.Hash, message string, author Signature, mergeHead plumbing.Hash) (*CommitRecord, error) {
	if err := author.Validate(); err != nil {
		return nil, opErr(op, ErrCommitWriteFailed, err)
	}

	branchRef, tip, err := r.head()
	repointHead := false
	if err != nil {
		// Unreadable HEAD: start a fresh root commit on the tracked branch.
		branchRef = plumbing.NewBranchReferenceName(r.branch)
		tip = plumbing.ZeroHash
		repointHead = true
	}

	var parents []plumbing.Hash
	if !tip.IsZero() {
		parents = append(parents, tip)
	}
	if !mergeHead.IsZero() {
		parents = append(parents, mergeHead)
	}

	when := r.now()
	commit := &object.Commit{
		Author:       author.object(when),
		Committer:    author.object(when),
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return nil, opErr(op, ErrCommitWriteFailed, err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return nil, opErr(op, ErrCommitWriteFailed, err)
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, hash)); err != nil {
		return nil, opErr(op, ErrCommitWriteFailed, err)
	}
	if repointHead {
		if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
			return nil, opErr(op, ErrCommitWriteFailed, err)
		}
	}

	return &CommitRecord{
		Hash:      hash,
		Parent:    tip,
		HasParent: !tip.IsZero(),
		MergeHead: mergeHead,
		Message:   message,
		Author:    author,
		When:      when,
		Branch:    branchRef.Short(),
	}, nil
}

// pendingMerge returns the MERGE_HEAD target, or the zero hash if no merge is pending.
func (r *Repository) pendingMerge() (plumbing.Hash, error) {
	ref, err := r.repo.Storer.Reference(mergeHeadRef)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}

// MergePending reports whether a conflicted merge is waiting for resolution.
func (r *Repository) MergePending() (bool, error) {
	h, err := r.pendingMerge()
	return !h.IsZero(), err
}
