package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultBranch is the branch tracked when none is configured.
const DefaultBranch = "master"

// InitialCommitMessage is the message of the empty commit created for a fresh repository.
const InitialCommitMessage = "Initial commit"

// Repository is a handle on a git working tree. It is opened for the duration
// of one operation and dropped afterwards.
type Repository struct {
	repo   *gogit.Repository
	path   string
	branch string
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithNow overrides the time source used for commit signatures.
func WithNow(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// Open opens an existing working tree at path. The tracked branch is the one
// HEAD points at, or DefaultBranch when HEAD is detached or unreadable.
// Returns ErrNotRepository if path holds no repository.
func Open(path string, opts ...Option) (*Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, &OpError{Op: "open", Err: fmt.Errorf("%w: %s", ErrNotRepository, path)}
		}
		return nil, &OpError{Op: "open", Err: err}
	}

	r := newRepository(repo, path, DefaultBranch, opts)
	if head, err := repo.Storer.Reference(plumbing.HEAD); err == nil && head.Type() == plumbing.SymbolicReference {
		if head.Target().IsBranch() {
			r.branch = head.Target().Short()
		}
	}
	return r, nil
}

// OpenOrInit opens the working tree at path, or initializes a new repository
// there with HEAD pointing at refs/heads/<branch>. The directory is created if
// it does not exist.
func OpenOrInit(path, branch string, opts ...Option) (*Repository, error) {
	if branch == "" {
		branch = DefaultBranch
	}

	repo, err := gogit.PlainOpen(path)
	if err == nil {
		return newRepository(repo, path, branch, opts), nil
	}
	if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, &OpError{Op: "open", Err: err}
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, &OpError{Op: "init", Err: fmt.Errorf("failed to create directory: %w", err)}
	}

	repo, err = gogit.PlainInitWithOptions(path, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
	})
	if err != nil {
		return nil, &OpError{Op: "init", Err: err}
	}

	return newRepository(repo, path, branch, opts), nil
}

func newRepository(repo *gogit.Repository, path, branch string, opts []Option) *Repository {
	r := &Repository{
		repo:   repo,
		path:   path,
		branch: branch,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the root of the working tree.
func (r *Repository) Path() string {
	return r.path
}

// Branch returns the short name of the tracked branch.
func (r *Repository) Branch() string {
	return r.branch
}

// Git exposes the underlying go-git repository.
func (r *Repository) Git() *gogit.Repository {
	return r.repo
}

// head returns the ref HEAD advances and its current tip. The tip is zero when
// the branch is unborn. A detached HEAD is returned as plumbing.HEAD itself.
func (r *Repository) head() (plumbing.ReferenceName, plumbing.Hash, error) {
	ref, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", plumbing.ZeroHash, err
	}

	if ref.Type() != plumbing.SymbolicReference {
		return plumbing.HEAD, ref.Hash(), nil
	}

	target := ref.Target()
	tip, err := r.repo.Storer.Reference(target)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return target, plumbing.ZeroHash, nil
	}
	if err != nil {
		return target, plumbing.ZeroHash, err
	}
	return target, tip.Hash(), nil
}

// Head returns the current tip of the tracked branch, or the zero hash if the
// branch has no commits yet.
func (r *Repository) Head() (plumbing.Hash, error) {
	_, tip, err := r.head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	return tip, err
}

// IsClean reports whether the working tree matches HEAD.
func (r *Repository) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	return status.IsClean(), nil
}

// CreateInitialCommit records an empty-tree commit on the tracked branch when
// the branch has no commits yet. It is a no-op, returning nil, otherwise.
func (r *Repository) CreateInitialCommit(sig Signature) (*CommitRecord, error) {
	const op = "initial commit"

	_, tip, err := r.head()
	if err == nil && !tip.IsZero() {
		return nil, nil
	}

	tree, err := r.storeTree(&object.Tree{})
	if err != nil {
		return nil, opErr(op, ErrTreeWriteFailed, err)
	}

	return r.commitTree(op, tree, InitialCommitMessage, sig, plumbing.ZeroHash)
}

// EnsureRemote registers a remote called name pointing at url. An existing
// remote is kept as is; its first URL is returned so that callers can warn
// about a mismatch.
func (r *Repository) EnsureRemote(name, url string) (existingURL string, created bool, err error) {
	remote, err := r.repo.Remote(name)
	if err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			existingURL = urls[0]
		}
		return existingURL, false, nil
	}
	if !errors.Is(err, gogit.ErrRemoteNotFound) {
		return "", false, &OpError{Op: "remote", Err: err}
	}

	_, err = r.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return "", false, &OpError{Op: "remote", Err: fmt.Errorf("failed to add remote %s: %w", name, err)}
	}
	return url, true, nil
}

// RemoteURL returns the first URL configured for the named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", name)
	}
	return urls[0], nil
}

// ConfiguredSignature returns user.name / user.email from the repository and
// global git configuration, falling back to fallback for missing fields.
func (r *Repository) ConfiguredSignature(fallback Signature) Signature {
	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return fallback
	}

	sig := fallback
	if cfg.User.Name != "" {
		sig.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		sig.Email = cfg.User.Email
	}
	if sig.Validate() != nil {
		return fallback
	}
	return sig
}

// objectsSize returns the number of bytes stored under .git/objects.
func (r *Repository) objectsSize() int64 {
	var total int64
	root := filepath.Join(r.path, gogit.GitDirName, "objects")
	_ = filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
