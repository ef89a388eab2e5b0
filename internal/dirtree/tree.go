// Package dirtree incrementally reconstructs as much of a filesystem's
// directory hierarchy as a journal walk reveals: a content-addressed
// parent/child graph built from decoded directory entries, with cycle
// protection and a path cache, per the analyzer's directory-tree component.
package dirtree

import (
	"fmt"
	"strings"
)

const (
	rootInode      = 2
	lostFoundInode = 11
	maxDepth       = 256
)

// Node is one inode's position in the reconstructed tree.
type Node struct {
	InodeNumber uint64
	ParentInode uint64
	Name        string
	Children    []uint64
	IsDirectory bool
}

// Entry is a decoded directory record, the unit add_entry consumes.
type Entry struct {
	Inode    uint64
	Name     string
	FileType uint8 // 2 == directory, per EXT4DirectoryEntry
}

// Tree holds every node observed so far and a path cache keyed by inode.
type Tree struct {
	nodes     map[uint64]*Node
	pathCache map[uint64]string
}

// New returns a Tree pre-seeded with its two fixed nodes: root (inode 2,
// path "/") and lost+found (inode 11, path "/lost+found").
func New() *Tree {
	t := &Tree{
		nodes:     make(map[uint64]*Node),
		pathCache: make(map[uint64]string),
	}
	t.nodes[rootInode] = &Node{InodeNumber: rootInode, ParentInode: rootInode, Name: "", IsDirectory: true}
	t.nodes[lostFoundInode] = &Node{InodeNumber: lostFoundInode, ParentInode: rootInode, Name: "lost+found", IsDirectory: true}
	t.pathCache[rootInode] = "/"
	t.pathCache[lostFoundInode] = "/lost+found"
	return t
}

// AddEntry records parent's child entry. "." and ".." and entries with a
// zero inode or empty name are ignored. A later call for the same
// (inode, parent) pair replaces the earlier one's name/type — the tree
// keeps the most recent observation.
func (t *Tree) AddEntry(parentInode uint64, e Entry) {
	if e.Name == "." || e.Name == ".." || e.Inode == 0 || e.Name == "" {
		return
	}

	n, exists := t.nodes[e.Inode]
	if !exists {
		n = &Node{InodeNumber: e.Inode}
		t.nodes[e.Inode] = n
	}
	n.ParentInode = parentInode
	n.Name = e.Name
	n.IsDirectory = e.FileType == 2

	if parent, ok := t.nodes[parentInode]; ok {
		if !containsInode(parent.Children, e.Inode) {
			parent.Children = append(parent.Children, e.Inode)
		}
	}

	t.invalidateCache()
}

// AddInodeInfo updates a node's is_directory flag from an inode's mode
// bits, for inodes discovered via BlockClassifier's inode-table path rather
// than a directory entry. It is a no-op if no node exists for inode yet.
func (t *Tree) AddInodeInfo(inode uint64, isDirectory bool) {
	if n, ok := t.nodes[inode]; ok {
		n.IsDirectory = isDirectory
	}
}

// BuildFullPath resolves inode to an absolute path, walking parents up to
// maxDepth hops and guarding against cycles with a visited set.
func (t *Tree) BuildFullPath(inode uint64) string {
	switch inode {
	case rootInode:
		return "/"
	case lostFoundInode:
		return "/lost+found"
	}

	if p, ok := t.pathCache[inode]; ok {
		return p
	}

	n, ok := t.nodes[inode]
	if !ok {
		return fmt.Sprintf("/unknown_inode_%d", inode)
	}

	// Only the inode originally requested gets the root/lost+found
	// shortcut; an ancestor reached mid-walk is followed through its own
	// recorded parent so a cycle through inode 11 is still caught below.
	visited := map[uint64]bool{inode: true}
	var components []string
	cur := n
	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			return fmt.Sprintf("/cycle_detected_%d", inode)
		}
		if cur.InodeNumber == rootInode {
			break
		}
		components = append([]string{cur.Name}, components...)

		parent, ok := t.nodes[cur.ParentInode]
		if !ok {
			break
		}
		if visited[parent.InodeNumber] {
			return fmt.Sprintf("/cycle_detected_%d", inode)
		}
		visited[parent.InodeNumber] = true
		cur = parent
	}

	full := normalizeSlashes("/" + strings.Join(components, "/"))
	t.pathCache[inode] = full
	return full
}

func (t *Tree) invalidateCache() {
	t.pathCache = map[uint64]string{
		rootInode:      "/",
		lostFoundInode: "/lost+found",
	}
}

func normalizeSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

func containsInode(list []uint64, inode uint64) bool {
	for _, v := range list {
		if v == inode {
			return true
		}
	}
	return false
}
