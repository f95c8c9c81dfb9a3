package vcs

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/revlist"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Fetch downloads refs/heads/<branch> from the remote into
// refs/remotes/<remote>/<branch> and returns the fetched tip. A remote
// without that branch is reported through FetchResult.RemoteEmpty.
func (r *Repository) Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	const op = "fetch"

	remoteName, branch := r.remoteAndBranch(opts.Remote, opts.Branch)
	trackingRef := plumbing.NewRemoteReferenceName(remoteName, branch)
	result := &FetchResult{Remote: remoteName, Ref: trackingRef.String()}

	url, err := r.RemoteURL(remoteName)
	if err != nil {
		return nil, opErr(op, ErrFetchFailed, err)
	}
	auth, err := resolveAuth(opts.Credentials, url)
	if err != nil {
		return nil, opErr(op, ErrFetchFailed, err)
	}

	before, err := r.objectSet()
	if err != nil {
		return nil, opErr(op, ErrFetchFailed, err)
	}
	sizeBefore := r.objectsSize()

	spec := config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(branch), trackingRef))
	err = r.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
		Tags:       gogit.NoTags,
		Progress:   opts.Progress,
	})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
	case errors.Is(err, transport.ErrEmptyRemoteRepository), errors.Is(err, gogit.NoMatchingRefSpecError{}):
		result.RemoteEmpty = true
		return result, nil
	default:
		return nil, opErr(op, ErrFetchFailed, err)
	}

	ref, err := r.repo.Storer.Reference(trackingRef)
	if err != nil {
		return nil, opErr(op, ErrFetchFailed, fmt.Errorf("failed to read %s: %w", trackingRef, err))
	}
	result.Tip = ref.Hash()
	result.Stats = r.transferStats(before, result.Tip, sizeBefore)

	return result, nil
}

// Pull fetches the tracked branch and merges the fetched tip.
func (r *Repository) Pull(ctx context.Context, opts PullOptions) (*SyncResult, error) {
	fetched, err := r.Fetch(ctx, opts.FetchOptions)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Fetch: fetched}
	if fetched.RemoteEmpty {
		head, err := r.Head()
		if err != nil {
			return result, opErr("merge", ErrMergeFailed, err)
		}
		result.Merge = &MergeResult{Analysis: AnalysisUpToDate, Outcome: OutcomeNoOp, Head: head}
		return result, nil
	}

	_, branch := r.remoteAndBranch(opts.Remote, opts.Branch)
	merged, err := r.Merge(fetched.Tip, MergeOptions{Branch: branch, Signature: opts.Signature})
	if err != nil {
		return result, err
	}
	result.Merge = merged
	return result, nil
}

func (r *Repository) remoteAndBranch(remote, branch string) (string, string) {
	if remote == "" {
		remote = gogit.DefaultRemoteName
	}
	if branch == "" {
		branch = r.branch
	}
	return remote, branch
}

// objectSet snapshots the hashes of every object in the store.
func (r *Repository) objectSet() (map[plumbing.Hash]struct{}, error) {
	iter, err := r.repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	set := make(map[plumbing.Hash]struct{})
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		set[obj.Hash()] = struct{}{}
		return nil
	})
	return set, err
}

// transferStats compares the objects reachable from tip with the snapshot
// taken before the fetch. Failures degrade to zero counts.
func (r *Repository) transferStats(before map[plumbing.Hash]struct{}, tip plumbing.Hash, sizeBefore int64) TransferStats {
	var stats TransferStats

	reachable, err := revlist.Objects(r.repo.Storer, []plumbing.Hash{tip}, nil)
	if err == nil {
		for _, h := range reachable {
			if _, ok := before[h]; ok {
				stats.ObjectsReused++
			} else {
				stats.ObjectsReceived++
			}
		}
	}

	if grown := r.objectsSize() - sizeBefore; grown > 0 {
		stats.BytesReceived = grown
	}
	return stats
}

func resolveAuth(creds CredentialProvider, url string) (transport.AuthMethod, error) {
	if creds == nil {
		return nil, nil
	}
	auth, err := creds.Resolve(url)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	return auth, nil
}
