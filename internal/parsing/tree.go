// Package parsing implements the language-agnostic parser abstraction
//. It wraps the tree-sitter grammar runtimes —
// treated as a black-box collaborator by convention — behind a uniform
// Tree/Node AST and a Parser contract that every per-language extractor
// implements.
package parsing

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Point is a 0-indexed (row, column) position in source bytes.
type Point struct {
	Row    uint32
	Column uint32
}

// Node is one node of a parsed AST, detached from the underlying
// tree-sitter tree so extractors never hold a pointer into cgo/ffi
// memory across goroutine boundaries.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	HasError   bool
	Children   []*Node
	parent     *Node
}

// Tree is a parsed AST plus the source bytes it was parsed from.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Content returns the source slice spanned by n.
func (n *Node) Content(source []byte) string {
	if n == nil || n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// Parent returns n's parent node, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// ChildByFieldType returns the first direct child whose Type matches.
func (n *Node) ChildByFieldType(nodeType string) *Node {
	for _, c := range n.Children {
		if c.Type == nodeType {
			return c
		}
	}
	return nil
}

// ChildrenByType returns all direct children whose Type matches.
func (n *Node) ChildrenByType(nodeType string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == nodeType {
			out = append(out, c)
		}
	}
	return out
}

// Walk performs a depth-first traversal, calling fn for every node. If fn
// returns false the subtree rooted at that node is not descended into.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// FindAllByType recursively collects every node with the given Type.
func (n *Node) FindAllByType(nodeType string) []*Node {
	var out []*Node
	n.Walk(func(node *Node) bool {
		if node.Type == nodeType {
			out = append(out, node)
		}
		return true
	})
	return out
}

// maxRecursionDepth bounds tree conversion depth"); pathological trees deeper than
// this are truncated rather than blowing the Go stack.
const maxRecursionDepth = 200

func convert(tsNode *sitter.Node, parent *Node, depth int) *Node {
	if tsNode == nil {
		return nil
	}
	node := &Node{
		Type:      tsNode.Type(),
		StartByte: tsNode.StartByte(),
		EndByte:   tsNode.EndByte(),
		StartPoint: Point{
			Row:    tsNode.StartPoint().Row,
			Column: tsNode.StartPoint().Column,
		},
		EndPoint: Point{
			Row:    tsNode.EndPoint().Row,
			Column: tsNode.EndPoint().Column,
		},
		HasError: tsNode.HasError(),
		parent:   parent,
	}
	if depth >= maxRecursionDepth {
		node.HasError = true
		return node
	}
	node.Children = make([]*Node, 0, int(tsNode.ChildCount()))
	for i := uint32(0); i < tsNode.ChildCount(); i++ {
		if child := convert(tsNode.Child(int(i)), node, depth+1); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}
