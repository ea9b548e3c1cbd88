// Package mantaray implements manifests: compressed radix tries mapping paths
// to content references, stored themselves as content.
//
// A node holds an optional entry (a content reference) and up to 256 forks,
// keyed by the first byte of their prefix. Nodes are loaded lazily from their
// reference. Once saved, a node is immutable: use Mutable to derive an
// editable copy, children being copied on write.
package mantaray

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/oneconcern/swarmtrie/pkg/errors"
)

const (
	// PathSeparator splits paths in manifests
	PathSeparator = '/'

	// HeaderSize is the size of the header identifying serialized nodes
	HeaderSize = nodeHeaderSize

	nodeObfuscationKeySize    = 32
	versionHashSize           = 31
	nodeRefBytesSize          = 1
	nodeForkTypeBytesSize     = 1
	nodeForkPrefixBytesSize   = 1
	nodeForkHeaderSize        = nodeForkTypeBytesSize + nodeForkPrefixBytesSize
	nodeForkPreReferenceSize  = 32
	nodePrefixMaxSize         = nodeForkPreReferenceSize - nodeForkHeaderSize
	nodeForkMetadataBytesSize = 2
	nodeHeaderSize            = nodeObfuscationKeySize + versionHashSize + nodeRefBytesSize
	forksIndexSize            = 32
)

const (
	nodeTypeValue             = uint8(2)
	nodeTypeEdge              = uint8(4)
	nodeTypeWithPathSeparator = uint8(8)
	nodeTypeWithMetadata      = uint8(16)

	nodeTypeMask = uint8(255)
)

var (
	// ErrNotFound is returned when a path is not in the manifest
	ErrNotFound = errors.New("not found")

	// ErrEmptyPath is returned when removing the empty path
	ErrEmptyPath = errors.New("empty path")

	// ErrImmutable is returned when modifying a node which reference is already computed
	ErrImmutable = errors.New("node is immutable once saved")

	// ErrNoLoader is returned when a lazily loaded node is accessed without a loader
	ErrNoLoader = errors.New("no loader to retrieve node")

	// ErrTooShort is returned when unmarshaling truncated node data
	ErrTooShort = errors.New("serialized input too short")

	// ErrInvalidVersionHash is returned when unmarshaling data which is not a known manifest node version
	ErrInvalidVersionHash = errors.New("invalid version hash")

	// ErrInvalidInput is returned for references or entries of inconsistent sizes
	ErrInvalidInput = errors.New("invalid input")

	// ErrMetadataTooLarge is returned when the metadata of a node does not fit in a fork record
	ErrMetadataTooLarge = errors.New("metadata too large")
)

// Loader retrieves serialized nodes
type Loader interface {
	Load(ctx context.Context, ref []byte) ([]byte, error)
}

// Saver stores serialized nodes, and returns their reference
type Saver interface {
	Save(ctx context.Context, data []byte) ([]byte, error)
}

// LoadSaver loads and saves nodes
type LoadSaver interface {
	Loader
	Saver
}

type fork struct {
	prefix []byte
	node   *Node
}

// Node of a manifest trie
type Node struct {
	nodeType       uint8
	refBytesSize   int
	obfuscationKey []byte
	ref            []byte
	entry          []byte
	metadata       map[string]string
	forks          map[byte]*fork

	mu     sync.Mutex
	loaded bool
}

// New builds an empty, editable node
func New() *Node {
	return &Node{
		forks:  make(map[byte]*fork),
		loaded: true,
	}
}

// NewNodeRef builds a node from its reference. It is loaded on first access.
func NewNodeRef(ref []byte) *Node {
	return &Node{ref: ref}
}

func notFound(path []byte) error {
	return ErrNotFound.WrapMessage("%q", path)
}

// Reference of the saved node, nil if the node has been modified since
func (n *Node) Reference() []byte {
	return n.ref
}

// Entry is the content reference held by the node, if any
func (n *Node) Entry() []byte {
	return n.entry
}

// Metadata of the node
func (n *Node) Metadata() map[string]string {
	return n.metadata
}

// IsValueType tells if the node holds an entry
func (n *Node) IsValueType() bool {
	return n.nodeType&nodeTypeValue == nodeTypeValue
}

// IsEdgeType tells if the node has forks
func (n *Node) IsEdgeType() bool {
	return n.nodeType&nodeTypeEdge == nodeTypeEdge
}

// IsWithPathSeparatorType tells if the prefix leading to the node contains a path separator
func (n *Node) IsWithPathSeparatorType() bool {
	return n.nodeType&nodeTypeWithPathSeparator == nodeTypeWithPathSeparator
}

// IsWithMetadataType tells if the node carries metadata
func (n *Node) IsWithMetadataType() bool {
	return n.nodeType&nodeTypeWithMetadata == nodeTypeWithMetadata
}

func (n *Node) makeValue() {
	n.nodeType |= nodeTypeValue
}

func (n *Node) makeEdge() {
	n.nodeType |= nodeTypeEdge
}

func (n *Node) makeWithMetadata() {
	n.nodeType |= nodeTypeWithMetadata
}

func (n *Node) makeNotEdge() {
	n.nodeType &= nodeTypeMask ^ nodeTypeEdge
}

// updateIsWithPathSeparator sets the path separator flag from the prefix leading to the node.
//
// The node type is serialized by the parent: changing it leaves the node reference valid.
func (n *Node) updateIsWithPathSeparator(path []byte) {
	if bytes.IndexByte(path, PathSeparator) >= 0 {
		n.nodeType |= nodeTypeWithPathSeparator
		return
	}
	n.nodeType &= nodeTypeMask ^ nodeTypeWithPathSeparator
}

// SetObfuscationKey sets the key obfuscating the serialized node
func (n *Node) SetObfuscationKey(key []byte) {
	n.obfuscationKey = key
}

// load the node from its reference, once
func (n *Node) load(ctx context.Context, l Loader) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.loaded {
		return nil
	}
	if l == nil {
		return ErrNoLoader
	}
	data, err := l.Load(ctx, n.ref)
	if err != nil {
		return err
	}
	nodeType, metadata := n.nodeType, n.metadata
	if err = n.UnmarshalBinary(data); err != nil {
		return err
	}
	// type and metadata come from the parent fork record
	if nodeType != 0 {
		n.nodeType = nodeType
	}
	if metadata != nil {
		n.metadata = metadata
	}
	n.loaded = true
	return nil
}

// Mutable returns an editable copy of the node. Forks are shared until modified.
func (n *Node) Mutable(ctx context.Context, l Loader) (*Node, error) {
	if n.ref == nil {
		return n, nil
	}
	if err := n.load(ctx, l); err != nil {
		return nil, err
	}
	m := &Node{
		nodeType:     n.nodeType,
		refBytesSize: n.refBytesSize,
		entry:        n.entry,
		forks:        make(map[byte]*fork, len(n.forks)),
		loaded:       true,
	}
	if n.metadata != nil {
		m.metadata = make(map[string]string, len(n.metadata))
		for k, v := range n.metadata {
			m.metadata[k] = v
		}
	}
	for k, f := range n.forks {
		m.forks[k] = &fork{prefix: f.prefix, node: f.node}
	}
	return m, nil
}

// Forks returns the children of the node, by prefix
func (n *Node) Forks(ctx context.Context, l Loader) (map[string]*Node, error) {
	if err := n.load(ctx, l); err != nil {
		return nil, err
	}
	res := make(map[string]*Node, len(n.forks))
	for _, f := range n.forks {
		res[string(f.prefix)] = f.node
	}
	return res, nil
}

func (n *Node) sortedForkKeys() []byte {
	keys := make([]byte, 0, len(n.forks))
	for k := range n.forks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func common(a, b []byte) []byte {
	c := 0
	for c < len(a) && c < len(b) && a[c] == b[c] {
		c++
	}
	return a[:c]
}
