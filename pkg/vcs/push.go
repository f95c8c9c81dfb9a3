package vcs

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// Push publishes refs/heads/<branch> to the same-named branch of the remote.
//
// A missing remote is not an error: the result reports PushRemoteMissing.
// Rejections, transport and authentication failures wrap ErrPushFailed. The
// local branch is never modified by Push.
func (r *Repository) Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	const op = "push"

	remoteName, branch := r.remoteAndBranch(opts.Remote, opts.Branch)
	branchRef := plumbing.NewBranchReferenceName(branch)
	result := &PushResult{Remote: remoteName, Ref: branchRef.String()}

	remote, err := r.repo.Remote(remoteName)
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		result.Outcome = PushRemoteMissing
		return result, nil
	}
	if err != nil {
		return nil, opErr(op, ErrPushFailed, err)
	}

	tip, err := r.repo.Storer.Reference(branchRef)
	if err != nil {
		return nil, opErr(op, ErrPushFailed, fmt.Errorf("failed to read %s: %w", branchRef, err))
	}
	result.Head = tip.Hash()

	var url string
	if urls := remote.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}
	auth, err := resolveAuth(opts.Credentials, url)
	if err != nil {
		return nil, opErr(op, ErrPushFailed, err)
	}

	spec := config.RefSpec(fmt.Sprintf("%s:%s", branchRef, branchRef))
	err = remote.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
		Progress:   opts.Progress,
	})
	switch {
	case err == nil:
		result.Outcome = PushPushed
	case errors.Is(err, gogit.NoErrAlreadyUpToDate):
		result.Outcome = PushUpToDate
	default:
		return nil, opErr(op, ErrPushFailed, err)
	}

	return result, nil
}
