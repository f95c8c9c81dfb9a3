package vcs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// conflictsFile lists the conflicted paths of the pending merge. It lives in
// the git directory next to MERGE_HEAD and goes away with it.
const conflictsFile = "MERGE_CONFLICTS"

// oursLabel names the local side of a conflict.
const oursLabel = "HEAD"

// conflictMarker starts the "ours" side of a conflict hunk.
var conflictMarker = []byte("<<<<<<< ")

// theirsLabel names the fetched side of a conflict in side files.
func theirsLabel(remote plumbing.Hash) string {
	return remote.String()[:7]
}

func (r *Repository) conflictsPath() string {
	return filepath.Join(r.path, gogit.GitDirName, conflictsFile)
}

func (r *Repository) recordConflicts(conflicts []Conflict) error {
	data, err := json.MarshalIndent(conflicts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.conflictsPath(), data, 0644)
}

func (r *Repository) clearConflicts() error {
	if err := os.Remove(r.conflictsPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// UnresolvedConflicts returns the conflicts of the pending merge that still
// need a hand. A path conflicted line by line is resolved once its markers are
// gone. A path whose other side was written to a side file is resolved once
// that side file is removed or renamed. Without a pending merge the result is
// empty.
//
// A MERGE_HEAD without a conflict list (left by another git client) falls back
// to scanning every changed file for markers.
func (r *Repository) UnresolvedConflicts() ([]Conflict, error) {
	mergeHead, err := r.pendingMerge()
	if err != nil || mergeHead.IsZero() {
		return nil, err
	}

	data, err := os.ReadFile(r.conflictsPath())
	if errors.Is(err, os.ErrNotExist) {
		return r.markedFiles()
	}
	if err != nil {
		return nil, err
	}
	var recorded []Conflict
	if err := json.Unmarshal(data, &recorded); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", conflictsFile, err)
	}

	var unresolved []Conflict
	for _, c := range recorded {
		open, err := r.conflictOpen(c)
		if err != nil {
			return nil, err
		}
		if open {
			unresolved = append(unresolved, c)
		}
	}
	return unresolved, nil
}

func (r *Repository) conflictOpen(c Conflict) (bool, error) {
	if c.SideFile != "" {
		_, err := os.Lstat(r.worktreePath(c.SideFile))
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
	return fileHasMarker(r.worktreePath(c.Path))
}

// markedFiles scans every changed path for a line starting a conflict hunk.
func (r *Repository) markedFiles() ([]Conflict, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}

	var marked []Conflict
	for path, st := range status {
		if st.Worktree == gogit.Deleted || (st.Worktree == gogit.Unmodified && st.Staging == gogit.Unmodified) {
			continue
		}
		found, err := fileHasMarker(r.worktreePath(path))
		if err != nil {
			return nil, err
		}
		if found {
			marked = append(marked, Conflict{Path: path, Reason: "conflict markers"})
		}
	}
	return marked, nil
}

// sideFile picks a free name of the form path~label for the other side of a
// conflict, skipping names used by any of trees or present on disk.
func (r *Repository) sideFile(path, label string, trees ...map[string]treeFile) string {
	name := path + "~" + label
	for n := 1; r.nameTaken(name, trees); n++ {
		name = fmt.Sprintf("%s~%s_%d", path, label, n)
	}
	return name
}

func (r *Repository) nameTaken(name string, trees []map[string]treeFile) bool {
	for _, t := range trees {
		if _, ok := t[name]; ok {
			return true
		}
	}
	_, err := os.Lstat(r.worktreePath(name))
	return err == nil
}

func (r *Repository) worktreePath(path string) string {
	return filepath.Join(r.path, filepath.FromSlash(path))
}

func fileHasMarker(name string) (bool, error) {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if bytes.HasPrefix(scanner.Bytes(), conflictMarker) {
			return true, nil
		}
	}
	return false, scanner.Err()
}
