package vcs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// treeFile is one blob entry of a flattened tree.
type treeFile struct {
	Hash plumbing.Hash
	Mode filemode.FileMode
}

// pathChange is the new state of one path; a nil file means deletion.
type pathChange struct {
	file    *treeFile
	content []byte
}

// Merge integrates the fetched tip remote into the tracked branch.
//
// Up-to-date histories are left alone. A fast-forward or unborn branch moves
// to remote, creating refs/heads/<branch> if needed, and the working tree is
// updated to match. Diverged histories are merged three-way; a clean result is
// committed with parents [local, remote]. A conflicted one is written to the
// working tree, with markers for text and side files named path~HEAD or
// path~<remote> for the rest; the conflicted paths and MERGE_HEAD are recorded
// and no commit is made.
func (r *Repository) Merge(remote plumbing.Hash, opts MergeOptions) (*MergeResult, error) {
	const op = "merge"

	if remote.IsZero() {
		head, err := r.Head()
		return &MergeResult{Analysis: AnalysisUpToDate, Outcome: OutcomeNoOp, Head: head}, err
	}

	pending, err := r.pendingMerge()
	if err != nil {
		return nil, opErr(op, ErrMergeFailed, err)
	}
	if !pending.IsZero() {
		return nil, opErr(op, ErrConflictPending, nil)
	}

	analysis, err := r.Analyze(remote)
	if err != nil {
		return nil, err
	}

	branch := opts.Branch
	if branch == "" {
		branch = r.branch
	}

	_, local, err := r.head()
	if err != nil {
		local = plumbing.ZeroHash
	}

	result := &MergeResult{Analysis: analysis, Previous: local}

	switch analysis {
	case AnalysisUpToDate:
		result.Outcome = OutcomeNoOp
		result.Head = local
	case AnalysisFastForward, AnalysisUnborn:
		if err := r.fastForward(branch, local, remote); err != nil {
			return nil, opErr(op, ErrMergeFailed, err)
		}
		result.Outcome = OutcomeFastForwarded
		result.Head = remote
	case AnalysisNormal:
		if err := r.normalMerge(local, remote, r.ConfiguredSignature(opts.Signature), result); err != nil {
			return nil, err
		}
	default:
		return nil, opErr(op, ErrMergeFailed, fmt.Errorf("unknown analysis %v", analysis))
	}

	return result, nil
}

// fastForward points refs/heads/<branch> and HEAD at target and rewrites the
// paths that differ between the previous tip and target.
func (r *Repository) fastForward(branch string, previous, target plumbing.Hash) error {
	from, err := r.flattenCommit(previous)
	if err != nil {
		return err
	}
	to, err := r.flattenCommit(target)
	if err != nil {
		return err
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, target)); err != nil {
		return fmt.Errorf("failed to update %s: %w", branchRef, err)
	}
	if err := r.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
		return fmt.Errorf("failed to point HEAD at %s: %w", branchRef, err)
	}
	r.branch = branch

	changes := make(map[string]pathChange)
	for path, f := range to {
		if old, ok := from[path]; !ok || old != f {
			f := f
			changes[path] = pathChange{file: &f}
		}
	}
	for path := range from {
		if _, ok := to[path]; !ok {
			changes[path] = pathChange{}
		}
	}

	return r.applyChanges(changes, nil)
}

// normalMerge merges remote into local against their merge base.
func (r *Repository) normalMerge(local, remote plumbing.Hash, sig Signature, result *MergeResult) error {
	const op = "merge"

	localCommit, err := r.repo.CommitObject(local)
	if err != nil {
		return opErr(op, ErrMergeFailed, err)
	}
	remoteCommit, err := r.repo.CommitObject(remote)
	if err != nil {
		return opErr(op, ErrMergeFailed, err)
	}
	bases, err := localCommit.MergeBase(remoteCommit)
	if err != nil {
		return opErr(op, ErrMergeFailed, err)
	}
	if len(bases) == 0 {
		return opErr(op, ErrMergeFailed, errors.New("no merge base"))
	}

	base, err := r.flattenCommit(bases[0].Hash)
	if err != nil {
		return opErr(op, ErrMergeFailed, err)
	}
	ours, err := r.flattenCommit(local)
	if err != nil {
		return opErr(op, ErrMergeFailed, err)
	}
	theirs, err := r.flattenCommit(remote)
	if err != nil {
		return opErr(op, ErrMergeFailed, err)
	}

	merged, changes, conflicts, err := r.mergeTrees(base, ours, theirs, remote)
	if err != nil {
		return opErr(op, ErrMergeFailed, err)
	}

	if len(conflicts) > 0 {
		conflicted := make(map[string]bool, 2*len(conflicts))
		for _, c := range conflicts {
			conflicted[c.Path] = true
			if c.SideFile != "" {
				conflicted[c.SideFile] = true
			}
		}
		if err := r.applyChanges(changes, conflicted); err != nil {
			return opErr(op, ErrMergeFailed, err)
		}
		if err := r.recordConflicts(conflicts); err != nil {
			return opErr(op, ErrMergeFailed, err)
		}
		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(mergeHeadRef, remote)); err != nil {
			return opErr(op, ErrMergeFailed, err)
		}
		result.Outcome = OutcomeConflicts
		result.Head = local
		result.Conflicts = conflicts
		return nil
	}

	tree, err := r.writeFlatTree(merged)
	if err != nil {
		return opErr(op, ErrTreeWriteFailed, err)
	}

	message := fmt.Sprintf("Merge: %s into %s", remote, local)
	rec, err := r.commitTree(op, tree, message, sig, remote)
	if err != nil {
		return err
	}

	if err := r.applyChanges(changes, nil); err != nil {
		return opErr(op, ErrMergeFailed, err)
	}

	result.Outcome = OutcomeMerged
	result.Head = rec.Hash
	return nil
}

// mergeTrees resolves every path of the three flattened trees. It returns the
// merged tree, the changes relative to ours, and the conflicted paths.
func (r *Repository) mergeTrees(base, ours, theirs map[string]treeFile, remote plumbing.Hash) (map[string]treeFile, map[string]pathChange, []Conflict, error) {
	paths := make(map[string]struct{}, len(ours)+len(theirs))
	for _, m := range []map[string]treeFile{base, ours, theirs} {
		for p := range m {
			paths[p] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	merged := make(map[string]treeFile, len(ours))
	changes := make(map[string]pathChange)
	var conflicts []Conflict

	for _, path := range sorted {
		b, inBase := base[path]
		o, inOurs := ours[path]
		t, inTheirs := theirs[path]

		same := func(x treeFile, hasX bool, y treeFile, hasY bool) bool {
			return hasX == hasY && (!hasX || x == y)
		}

		switch {
		case same(o, inOurs, t, inTheirs), same(t, inTheirs, b, inBase):
			if inOurs {
				merged[path] = o
			}
			continue
		case same(o, inOurs, b, inBase):
			if inTheirs {
				merged[path] = t
				t := t
				changes[path] = pathChange{file: &t}
			} else {
				changes[path] = pathChange{}
			}
			continue
		}

		// Both sides changed the path differently. Versions that cannot be
		// marked up in place go to a side file next to the path.
		switch {
		case !inOurs:
			side := r.sideFile(path, theirsLabel(remote), base, ours, theirs)
			conflicts = append(conflicts, Conflict{Path: path, Reason: "deleted locally, modified remotely", SideFile: side})
			t := t
			changes[side] = pathChange{file: &t}
			continue
		case !inTheirs:
			side := r.sideFile(path, oursLabel, base, ours, theirs)
			conflicts = append(conflicts, Conflict{Path: path, Reason: "modified locally, deleted remotely", SideFile: side})
			merged[path] = o
			o := o
			changes[side] = pathChange{file: &o}
			changes[path] = pathChange{}
			continue
		}

		var baseContent []byte
		if inBase {
			var err error
			if baseContent, err = r.blobContent(b.Hash); err != nil {
				return nil, nil, nil, err
			}
		}
		oursContent, err := r.blobContent(o.Hash)
		if err != nil {
			return nil, nil, nil, err
		}
		theirsContent, err := r.blobContent(t.Hash)
		if err != nil {
			return nil, nil, nil, err
		}

		mode := o.Mode
		if inBase && o.Mode == b.Mode {
			mode = t.Mode
		}

		if o.Mode == filemode.Symlink || t.Mode == filemode.Symlink || isBinary(baseContent) || isBinary(oursContent) || isBinary(theirsContent) {
			side := r.sideFile(path, theirsLabel(remote), base, ours, theirs)
			conflicts = append(conflicts, Conflict{Path: path, Reason: "binary content changed on both sides", SideFile: side})
			merged[path] = o
			t := t
			changes[side] = pathChange{file: &t}
			continue
		}

		text, conflict := merge3(string(baseContent), string(oursContent), string(theirsContent), "HEAD", remote.String())
		if conflict {
			conflicts = append(conflicts, Conflict{Path: path, Reason: "content changed on both sides"})
			merged[path] = o
			changes[path] = pathChange{file: &treeFile{Mode: mode}, content: []byte(text)}
			continue
		}

		h, err := r.storeBlob([]byte(text))
		if err != nil {
			return nil, nil, nil, err
		}
		f := treeFile{Hash: h, Mode: mode}
		merged[path] = f
		changes[path] = pathChange{file: &f}
	}

	return merged, changes, conflicts, nil
}

// applyChanges writes changes into the working tree and the index. Paths in
// skipIndex are written to the working tree only.
func (r *Repository) applyChanges(changes map[string]pathChange, skipIndex map[string]bool) error {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(changes))
	for p := range changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		ch := changes[path]
		full := filepath.Join(r.path, filepath.FromSlash(path))

		if ch.file == nil {
			if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
			r.pruneEmptyDirs(filepath.Dir(full))
			if !skipIndex[path] {
				if _, err := idx.Remove(path); err != nil && !errors.Is(err, index.ErrEntryNotFound) {
					return err
				}
			}
			continue
		}

		content := ch.content
		if content == nil {
			if content, err = r.blobContent(ch.file.Hash); err != nil {
				return err
			}
		}
		if err := writeWorktreeFile(full, ch.file.Mode, content); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		if skipIndex[path] {
			continue
		}
		e, err := idx.Entry(path)
		if err != nil {
			e = idx.Add(path)
		}
		e.Hash = ch.file.Hash
		e.Mode = ch.file.Mode
		if info, err := os.Lstat(full); err == nil {
			e.ModifiedAt = info.ModTime()
			e.Size = uint32(info.Size())
		}
	}

	return r.repo.Storer.SetIndex(idx)
}

func (r *Repository) pruneEmptyDirs(dir string) {
	root := filepath.Clean(r.path)
	for dir != root && len(dir) > len(root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func writeWorktreeFile(name string, mode filemode.FileMode, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	if mode == filemode.Symlink {
		_ = os.Remove(name)
		return os.Symlink(string(content), name)
	}

	perm := os.FileMode(0644)
	if mode == filemode.Executable {
		perm = 0755
	}
	if err := os.WriteFile(name, content, perm); err != nil {
		return err
	}
	return os.Chmod(name, perm)
}

// flattenCommit maps every blob path of the commit's tree to its entry. The
// zero hash flattens to an empty tree.
func (r *Repository) flattenCommit(h plumbing.Hash) (map[string]treeFile, error) {
	files := make(map[string]treeFile)
	if h.IsZero() {
		return files, nil
	}

	commit, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", h, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree of %s: %w", h, err)
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		files[f.Name] = treeFile{Hash: f.Hash, Mode: f.Mode}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk tree of %s: %w", h, err)
	}
	return files, nil
}

func (r *Repository) blobContent(h plumbing.Hash) ([]byte, error) {
	blob, err := r.repo.BlobObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", h, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return io.ReadAll(rd)
}

func (r *Repository) storeBlob(content []byte) (plumbing.Hash, error) {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return r.repo.Storer.SetEncodedObject(obj)
}

// isBinary applies git's heuristic: a NUL byte in the first 8000 bytes.
func isBinary(content []byte) bool {
	if len(content) > 8000 {
		content = content[:8000]
	}
	return bytes.IndexByte(content, 0) >= 0
}
