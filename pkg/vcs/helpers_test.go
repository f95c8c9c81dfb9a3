package vcs

import (
	"os"
	"path/filepath"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var testSig = Signature{Name: "Test User", Email: "test@example.com"}

// newTestRepo initializes an empty repository in a temp directory.
func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := OpenOrInit(t.TempDir(), "master")
	require.NoError(t, err)
	return repo
}

// newBareRemote creates a bare repository usable as a file remote.
func newBareRemote(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, true)
	require.NoError(t, err)
	return dir
}

// newClone creates a working repository with origin pointing at remote.
func newClone(t *testing.T, remote string) *Repository {
	t.Helper()

	repo := newTestRepo(t)
	_, created, err := repo.EnsureRemote("origin", remote)
	require.NoError(t, err)
	require.True(t, created)
	return repo
}

func writeFile(t *testing.T, repo *Repository, name, content string) {
	t.Helper()

	full := filepath.Join(repo.Path(), filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func removeFile(t *testing.T, repo *Repository, name string) {
	t.Helper()

	require.NoError(t, os.Remove(filepath.Join(repo.Path(), filepath.FromSlash(name))))
}

func fileExists(t *testing.T, repo *Repository, name string) bool {
	t.Helper()

	_, err := os.Lstat(filepath.Join(repo.Path(), filepath.FromSlash(name)))
	if os.IsNotExist(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

func readFile(t *testing.T, repo *Repository, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(repo.Path(), filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func commitFile(t *testing.T, repo *Repository, name, content string) *CommitRecord {
	t.Helper()

	writeFile(t, repo, name, content)
	rec, err := repo.Commit("update "+name, testSig)
	require.NoError(t, err)
	return rec
}

func commitObject(t *testing.T, repo *Repository, h plumbing.Hash) *object.Commit {
	t.Helper()

	c, err := repo.Git().CommitObject(h)
	require.NoError(t, err)
	return c
}

// fileAt returns the content of name in the tree of commit h.
func fileAt(t *testing.T, repo *Repository, h plumbing.Hash, name string) string {
	t.Helper()

	tree, err := commitObject(t, repo, h).Tree()
	require.NoError(t, err)
	f, err := tree.File(name)
	require.NoError(t, err)
	content, err := f.Contents()
	require.NoError(t, err)
	return content
}

func pull(t *testing.T, repo *Repository) *SyncResult {
	t.Helper()

	res, err := repo.Pull(t.Context(), PullOptions{
		FetchOptions: FetchOptions{Remote: "origin", Branch: "master", Credentials: NoAuth{}},
		Signature:    testSig,
	})
	require.NoError(t, err)
	return res
}

func push(t *testing.T, repo *Repository) *PushResult {
	t.Helper()

	res, err := repo.Push(t.Context(), PushOptions{Remote: "origin", Branch: "master", Credentials: NoAuth{}})
	require.NoError(t, err)
	return res
}
