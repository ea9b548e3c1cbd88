package mantaray

import (
	"bytes"
	"context"

	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// Add an entry at some path, with optional metadata.
//
// Saved nodes along the path are copied before being modified. Adding to a saved node
// returns ErrImmutable: use Mutable first.
func (n *Node) Add(ctx context.Context, path, entry []byte, metadata map[string]string, l Loader) error {
	if n.ref != nil {
		return ErrImmutable
	}
	if len(entry) != 0 && len(entry) != swarm.HashSize && len(entry) != swarm.EncryptedReferenceSize {
		return ErrInvalidInput.WrapMessage("invalid entry size %d", len(entry))
	}
	if err := n.load(ctx, l); err != nil {
		return err
	}
	if n.refBytesSize == 0 {
		n.refBytesSize = len(entry)
	}

	if len(path) == 0 {
		n.entry = entry
		n.makeValue()
		if len(metadata) > 0 {
			n.metadata = metadata
			n.makeWithMetadata()
		}
		return nil
	}

	f, ok := n.forks[path[0]]
	if !ok {
		nn := New()
		nn.refBytesSize = n.refBytesSize
		prefix := path
		if len(prefix) > nodePrefixMaxSize {
			prefix = path[:nodePrefixMaxSize]
			if err := nn.Add(ctx, path[nodePrefixMaxSize:], entry, metadata, l); err != nil {
				return err
			}
		} else if err := nn.Add(ctx, nil, entry, metadata, l); err != nil {
			return err
		}
		nn.updateIsWithPathSeparator(prefix)
		n.forks[path[0]] = &fork{prefix: append([]byte{}, prefix...), node: nn}
		n.makeEdge()
		return nil
	}

	c := common(f.prefix, path)
	rest := f.prefix[len(c):]

	var nn *Node
	if len(rest) > 0 {
		// split the fork where the paths diverge
		nn = New()
		nn.refBytesSize = n.refBytesSize
		nn.forks[rest[0]] = &fork{prefix: rest, node: f.node.retyped(rest)}
		nn.makeEdge()
	} else {
		m, err := f.node.Mutable(ctx, l)
		if err != nil {
			return err
		}
		nn = m
	}

	if err := nn.Add(ctx, path[len(c):], entry, metadata, l); err != nil {
		return err
	}
	nn.updateIsWithPathSeparator(c)
	n.forks[path[0]] = &fork{prefix: c, node: nn}
	n.makeEdge()
	return nil
}

// retyped returns the node with the path separator flag matching a new prefix.
// Saved nodes are shallow copied.
func (n *Node) retyped(prefix []byte) *Node {
	if n.ref == nil {
		n.updateIsWithPathSeparator(prefix)
		return n
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	m := &Node{
		nodeType:       n.nodeType,
		refBytesSize:   n.refBytesSize,
		obfuscationKey: n.obfuscationKey,
		ref:            n.ref,
		entry:          n.entry,
		metadata:       n.metadata,
		forks:          n.forks,
		loaded:         n.loaded,
	}
	m.updateIsWithPathSeparator(prefix)
	return m
}

// Remove a path, and everything below it
func (n *Node) Remove(ctx context.Context, path []byte, l Loader) error {
	if n.ref != nil {
		return ErrImmutable
	}
	if len(path) == 0 {
		return ErrEmptyPath
	}
	if err := n.load(ctx, l); err != nil {
		return err
	}

	f, ok := n.forks[path[0]]
	if !ok || !bytes.HasPrefix(path, f.prefix) {
		return notFound(path)
	}

	rest := path[len(f.prefix):]
	if len(rest) == 0 {
		n.deleteFork(path[0])
		return nil
	}

	child, err := f.node.Mutable(ctx, l)
	if err != nil {
		return err
	}
	if err = child.Remove(ctx, rest, l); err != nil {
		return err
	}
	if !child.IsValueType() && len(child.forks) == 0 {
		n.deleteFork(path[0])
		return nil
	}
	n.forks[path[0]] = &fork{prefix: f.prefix, node: child}
	return nil
}

func (n *Node) deleteFork(k byte) {
	delete(n.forks, k)
	if len(n.forks) == 0 {
		n.makeNotEdge()
	}
}

// LookupNode finds the node at some path
func (n *Node) LookupNode(ctx context.Context, path []byte, l Loader) (*Node, error) {
	node := n
	rest := path
	for {
		if err := node.load(ctx, l); err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			return node, nil
		}
		f, ok := node.forks[rest[0]]
		if !ok || !bytes.HasPrefix(rest, f.prefix) {
			return nil, notFound(path)
		}
		rest = rest[len(f.prefix):]
		node = f.node
	}
}

// Lookup the entry at some path
func (n *Node) Lookup(ctx context.Context, path []byte, l Loader) ([]byte, error) {
	node, err := n.LookupNode(ctx, path, l)
	if err != nil {
		return nil, err
	}
	if !node.IsValueType() {
		return nil, notFound(path)
	}
	return node.entry, nil
}

// HasPrefix tells if some path is a prefix of a path in the manifest
func (n *Node) HasPrefix(ctx context.Context, path []byte, l Loader) (bool, error) {
	node := n
	rest := path
	for {
		if err := node.load(ctx, l); err != nil {
			return false, err
		}
		if len(rest) == 0 {
			return true, nil
		}
		f, ok := node.forks[rest[0]]
		if !ok {
			return false, nil
		}
		c := common(f.prefix, rest)
		switch {
		case len(c) == len(f.prefix):
			rest = rest[len(c):]
			node = f.node
		case len(c) == len(rest):
			return true, nil
		default:
			return false, nil
		}
	}
}
