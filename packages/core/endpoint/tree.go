package endpoint

import (
	"iter"
	"os"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
)

// Node is one entry produced by a tree traversal.
type Node struct {
	Handle Handle
	// Depth is relative to the traversal start: direct children have depth 1.
	Depth int
	// IsEndpoint is false for pure namespace nodes that only hold children.
	IsEndpoint bool
}

// Children walks the tree below h depth-first in path-lexical order, yielding
// nodes lazily. A negative maxDepth means unbounded; zero yields nothing.
func (s *Store) Children(h Handle, maxDepth int) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		if !s.Exists(h) {
			yield(Node{}, errdef.New(errdef.ErrNotFound, "no endpoint at %s", h))
			return
		}
		s.walk(h, 1, maxDepth, yield)
	}
}

func (s *Store) walk(h Handle, depth, maxDepth int, yield func(Node, error) bool) bool {
	if maxDepth >= 0 && depth > maxDepth {
		return true
	}
	names, err := s.childNames(h)
	if err != nil {
		return yield(Node{}, err)
	}
	for _, name := range names {
		child, err := h.Join(name)
		if err != nil {
			// Directories that cannot be handles are not part of the tree.
			continue
		}
		if !yield(Node{Handle: child, Depth: depth, IsEndpoint: s.IsEndpoint(child)}, nil) {
			return false
		}
		if !s.walk(child, depth+1, maxDepth, yield) {
			return false
		}
	}
	return true
}

// childNames lists sub-directories of h. os.ReadDir returns them sorted.
func (s *Store) childNames(h Handle) ([]string, error) {
	entries, err := os.ReadDir(s.Dir(h))
	if err != nil {
		return nil, errdef.Persist(err, "listing %s", h)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// TreeNode is an immutable snapshot of part of the tree, used for display.
type TreeNode struct {
	Handle     Handle
	IsEndpoint bool
	Method     string
	URL        string
	Children   []*TreeNode
}

// Tree builds a snapshot rooted at h, descending at most maxDepth levels
// (negative for unbounded). Each endpoint node carries its own method and url.
func (s *Store) Tree(h Handle, maxDepth int) (*TreeNode, error) {
	if !s.Exists(h) {
		return nil, errdef.New(errdef.ErrNotFound, "no endpoint at %s", h)
	}
	return s.buildTree(h, maxDepth)
}

func (s *Store) buildTree(h Handle, remaining int) (*TreeNode, error) {
	node := &TreeNode{Handle: h, IsEndpoint: !h.IsRoot() && s.IsEndpoint(h)}
	if node.IsEndpoint {
		own, err := s.Load(h)
		if err != nil {
			return nil, err
		}
		node.Method = own.Method
		node.URL = own.URL
	}
	if remaining == 0 {
		return node, nil
	}
	names, err := s.childNames(h)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		child, err := h.Join(name)
		if err != nil {
			continue
		}
		sub, err := s.buildTree(child, remaining-1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, sub)
	}
	return node, nil
}
