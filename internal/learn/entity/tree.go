package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrBadEdge marks a path element with no matching edge in the tree.
	ErrBadEdge = errors.New("no such edge")
	// ErrBadTree marks a structurally invalid tree document.
	ErrBadTree = errors.New("invalid scenario tree")
)

// Walk follows the tree one edge per path element and returns the node the
// path lands on together with its id. The empty path returns the root.
func (t Tree) Walk(path string) (Node, string, error) {
	id := t.Root
	node, ok := t.Nodes[id]
	if !ok {
		return Node{}, "", fmt.Errorf("%w: missing root node %q", ErrBadTree, id)
	}
	for _, edge := range path {
		choiceID := string(edge)
		next := ""
		for _, opt := range node.Choices {
			if opt.ChoiceID == choiceID {
				next = opt.Next
				break
			}
		}
		if next == "" {
			return Node{}, "", fmt.Errorf("%w: %q at node %q", ErrBadEdge, choiceID, id)
		}
		node, ok = t.Nodes[next]
		if !ok {
			return Node{}, "", fmt.Errorf("%w: dangling edge %q -> %q", ErrBadTree, choiceID, next)
		}
		id = next
	}
	return node, id, nil
}

// Validate checks that the root exists, every edge points at a known node
// and no node is reachable from itself.
func (t Tree) Validate() error {
	if _, ok := t.Nodes[t.Root]; !ok {
		return fmt.Errorf("%w: missing root node %q", ErrBadTree, t.Root)
	}
	for id, node := range t.Nodes {
		for _, opt := range node.Choices {
			if opt.Next == "" {
				continue
			}
			if _, ok := t.Nodes[opt.Next]; !ok {
				return fmt.Errorf("%w: node %q edge %q targets unknown node %q", ErrBadTree, id, opt.ChoiceID, opt.Next)
			}
		}
	}
	// DFS cycle check
	const (
		unseen = 0
		open   = 1
		done   = 2
	)
	state := map[string]int{}
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case open:
			return fmt.Errorf("%w: cycle through node %q", ErrBadTree, id)
		case done:
			return nil
		}
		state[id] = open
		for _, opt := range t.Nodes[id].Choices {
			if opt.Next == "" {
				continue
			}
			if err := visit(opt.Next); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	return visit(t.Root)
}
