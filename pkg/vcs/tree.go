package vcs

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// treeNode is a directory being assembled from flat index paths.
type treeNode struct {
	files map[string]object.TreeEntry
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{
		files: make(map[string]object.TreeEntry),
		dirs:  make(map[string]*treeNode),
	}
}

func (n *treeNode) insert(path string, mode filemode.FileMode, hash plumbing.Hash) {
	parts := strings.Split(path, "/")
	node := n
	for _, dir := range parts[:len(parts)-1] {
		child, ok := node.dirs[dir]
		if !ok {
			child = newTreeNode()
			node.dirs[dir] = child
		}
		node = child
	}
	name := parts[len(parts)-1]
	node.files[name] = object.TreeEntry{Name: name, Mode: mode, Hash: hash}
}

// writeIndexTree writes the tree objects described by the current index and
// returns the root tree hash.
func (r *Repository) writeIndexTree() (plumbing.Hash, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	root := newTreeNode()
	for _, e := range idx.Entries {
		if e.Stage > index.Merged {
			continue
		}
		root.insert(e.Name, e.Mode, e.Hash)
	}
	return r.writeNode(root)
}

// writeFlatTree writes the tree objects for a path -> entry map.
func (r *Repository) writeFlatTree(files map[string]treeFile) (plumbing.Hash, error) {
	root := newTreeNode()
	for path, f := range files {
		root.insert(path, f.Mode, f.Hash)
	}
	return r.writeNode(root)
}

func (r *Repository) writeNode(n *treeNode) (plumbing.Hash, error) {
	tree := &object.Tree{}
	for _, e := range n.files {
		tree.Entries = append(tree.Entries, e)
	}
	for name, child := range n.dirs {
		h, err := r.writeNode(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h})
	}
	return r.storeTree(tree)
}

// storeTree sorts the entries in git order and writes the tree object.
func (r *Repository) storeTree(tree *object.Tree) (plumbing.Hash, error) {
	sort.Slice(tree.Entries, func(i, j int) bool {
		return treeSortKey(tree.Entries[i]) < treeSortKey(tree.Entries[j])
	})

	obj := r.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return r.repo.Storer.SetEncodedObject(obj)
}

// treeSortKey compares directories as if their name ended in a slash.
func treeSortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
