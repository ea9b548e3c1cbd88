package mantaray

import (
	"context"
)

// WalkFunc is called for every node visited by Walk, with the full path leading to the node.
//
// Loading errors are reported with a nil node. Returning an error stops the walk.
type WalkFunc func(path []byte, node *Node, err error) error

// Walk visits the nodes below some path, depth first in lexicographic order of paths
func (n *Node) Walk(ctx context.Context, root []byte, l Loader, fn WalkFunc) error {
	start, err := n.LookupNode(ctx, root, l)
	if err != nil {
		return fn(root, nil, err)
	}

	type item struct {
		path []byte
		node *Node
	}
	stack := []item{{path: root, node: start}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := it.node.load(ctx, l); err != nil {
			if err = fn(it.path, nil, err); err != nil {
				return err
			}
			continue
		}
		if err := fn(it.path, it.node, nil); err != nil {
			return err
		}

		keys := it.node.sortedForkKeys()
		for i := len(keys) - 1; i >= 0; i-- {
			f := it.node.forks[keys[i]]
			path := make([]byte, 0, len(it.path)+len(f.prefix))
			path = append(append(path, it.path...), f.prefix...)
			stack = append(stack, item{path: path, node: f.node})
		}
	}
	return nil
}

// Entries lists all entries below some path
func (n *Node) Entries(ctx context.Context, root []byte, l Loader) (map[string][]byte, error) {
	entries := make(map[string][]byte)
	err := n.Walk(ctx, root, l, func(path []byte, node *Node, err error) error {
		if err != nil {
			return err
		}
		if node.IsValueType() {
			entries[string(path)] = node.entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
