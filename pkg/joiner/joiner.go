// Package joiner reads content back from its chunk trie.
package joiner

import (
	"context"
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/encryption"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/replicas"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

var (
	// ErrOutOfRange is returned when seeking or reading outside of the content
	ErrOutOfRange = errors.New("offset out of range")

	// ErrInvalidWhence is returned by Seek for an unknown whence
	ErrInvalidWhence = errors.New("invalid whence")
)

var (
	_ io.ReadSeeker = &ChunkDataStream{}
	_ io.ReaderAt   = &ChunkDataStream{}
	_ io.Closer     = &ChunkDataStream{}
)

// node is a decrypted chunk on the path from the root to a leaf
type node struct {
	addr  swarm.Address
	data  []byte
	start uint64
	span  uint64
	level redundancy.Level
}

func newNode(addr swarm.Address, data []byte, start uint64) (*node, error) {
	if len(data) < swarm.SpanSize {
		return nil, status.ErrMalformedChunk.WrapMessage("%s: %d bytes", addr, len(data))
	}
	span, level := redundancy.DecodeSpanLevel(data[:swarm.SpanSize])
	if span <= swarm.ChunkSize && uint64(len(data)) < swarm.SpanSize+span {
		return nil, status.ErrMalformedChunk.WrapMessage("%s: leaf shorter than its span", addr)
	}
	return &node{addr: addr, data: data, start: start, span: span, level: level}, nil
}

func (n *node) contains(off uint64) bool {
	return off >= n.start && off < n.start+n.span
}

func (n *node) isLeaf() bool {
	return n.span <= swarm.ChunkSize
}

// ChunkDataStream reads the content of a chunk trie.
//
// The path from the root to the last leaf read is kept, so that sequential
// reads and nearby seeks only fetch the chunks that differ.
type ChunkDataStream struct {
	*options
	ctx       context.Context
	getter    chunkstore.BulkGetter
	ref       swarm.Reference
	encrypted bool
	root      *node
	off       int64
	decoders  *lru.Cache

	mu   sync.Mutex
	path []*node
}

// New builds a stream over the content of some reference.
//
// The root chunk is retrieved immediately, from its replicas if needed.
func New(ctx context.Context, getter chunkstore.BulkGetter, ref swarm.Reference, opts ...Option) (*ChunkDataStream, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions(opts)

	rootGetter := replicas.NewGetter(getter, o.replicaLevel, o.l)
	ch, err := rootGetter.Get(ctx, ref.Address())
	if err != nil {
		return nil, err
	}

	j := &ChunkDataStream{
		options:   o,
		ctx:       ctx,
		getter:    getter,
		ref:       ref,
		encrypted: ref.IsEncrypted(),
	}

	data, err := j.decrypt(ch.Data(), ref)
	if err != nil {
		return nil, err
	}
	if j.root, err = newNode(ref.Address(), data, 0); err != nil {
		return nil, err
	}
	j.path = []*node{j.root}

	j.decoders, err = lru.NewWithEvict(o.decoderCache, func(_ interface{}, v interface{}) {
		_ = v.(*redundancy.Decoder).Close()
	})
	if err != nil {
		return nil, err
	}

	return j, nil
}

// Size of the content
func (j *ChunkDataStream) Size() int64 {
	return int64(j.root.span)
}

// Level of redundancy of the trie
func (j *ChunkDataStream) Level() redundancy.Level {
	return j.root.level
}

// RootData returns the decrypted root chunk
func (j *ChunkDataStream) RootData() []byte {
	return j.root.data
}

// Read the content from the current offset
func (j *ChunkDataStream) Read(b []byte) (int, error) {
	n, err := j.ReadAt(b, j.off)
	j.off += int64(n)
	return n, err
}

// Seek sets the offset of the next Read
func (j *ChunkDataStream) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = j.off + offset
	case io.SeekEnd:
		abs = j.Size() + offset
	default:
		return j.off, ErrInvalidWhence.WrapMessage("%d", whence)
	}
	if abs < 0 || abs > j.Size() {
		return j.off, ErrOutOfRange.WrapMessage("%d not in [0, %d]", abs, j.Size())
	}
	j.off = abs
	return abs, nil
}

// ReadAt reads the content at some offset. It is safe for concurrent use.
func (j *ChunkDataStream) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrOutOfRange.WrapMessage("%d", off)
	}
	size := j.Size()
	if off >= size {
		return 0, io.EOF
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	n := 0
	for n < len(b) && off+int64(n) < size {
		pos := uint64(off) + uint64(n)
		leaf, err := j.leafAt(pos)
		if err != nil {
			return n, err
		}
		start := swarm.SpanSize + pos - leaf.start
		n += copy(b[n:], leaf.data[start:swarm.SpanSize+leaf.span])
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// leafAt returns the leaf holding some offset. The cached path is reused as long as it covers the offset.
func (j *ChunkDataStream) leafAt(off uint64) (*node, error) {
	depth := 1
	for depth < len(j.path) && j.path[depth].contains(off) {
		depth++
	}
	j.path = j.path[:depth]

	n := j.path[depth-1]
	for !n.isLeaf() {
		child, err := j.child(n, off)
		if err != nil {
			return nil, err
		}
		j.path = append(j.path, child)
		n = child
	}
	return n, nil
}

func (j *ChunkDataStream) child(parent *node, off uint64) (*node, error) {
	childSpan := redundancy.ChildSpan(parent.span, parent.level, j.encrypted)
	shards, _ := redundancy.ReferenceCount(parent.span, parent.level, j.encrypted)
	index := (off - parent.start) / childSpan
	if index >= uint64(shards) {
		return nil, status.ErrMalformedChunk.WrapMessage("%s: no child at offset %d", parent.addr, off)
	}

	refSize := uint64(redundancy.RefSize(j.encrypted))
	begin := swarm.SpanSize + index*refSize
	if uint64(len(parent.data)) < begin+refSize {
		return nil, status.ErrMalformedChunk.WrapMessage("%s: missing reference %d", parent.addr, index)
	}
	ref := swarm.Reference(parent.data[begin : begin+refSize])

	ch, err := j.fetch(parent, ref.Address())
	if err != nil {
		return nil, err
	}
	data, err := j.decrypt(ch.Data(), ref)
	if err != nil {
		return nil, err
	}
	return newNode(ref.Address(), data, parent.start+index*childSpan)
}

// fetch a child chunk, recovering it from parities when the parent carries some
func (j *ChunkDataStream) fetch(parent *node, addr swarm.Address) (*swarm.Chunk, error) {
	if parent.level == redundancy.NONE {
		return j.getter.Get(j.ctx, addr)
	}

	var dec *redundancy.Decoder
	if v, ok := j.decoders.Get(parent.addr); ok {
		dec = v.(*redundancy.Decoder)
	} else {
		var err error
		dec, err = redundancy.NewDecoder(j.getter, parent.data, j.encrypted, j.decoderOptions()...)
		if err != nil {
			return nil, err
		}
		j.decoders.Add(parent.addr, dec)
	}

	ch, err := dec.Get(j.ctx, addr)
	if err != nil {
		j.l.Debug("could not retrieve chunk", zap.Stringer("address", addr), zap.Stringer("parent", parent.addr), zap.Error(err))
		return nil, err
	}
	return ch, nil
}

func (j *ChunkDataStream) decrypt(data []byte, ref swarm.Reference) ([]byte, error) {
	if !ref.IsEncrypted() {
		return data, nil
	}
	return encryption.DecryptChunkData(data, ref.Key())
}

// Close releases redundancy decoders
func (j *ChunkDataStream) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.decoders.Purge()
	return nil
}

// ReadAll reads the whole content of a reference
func ReadAll(ctx context.Context, getter chunkstore.BulkGetter, ref swarm.Reference, opts ...Option) ([]byte, error) {
	j, err := New(ctx, getter, ref, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = j.Close() }()

	buf := make([]byte, j.Size())
	if _, err = io.ReadFull(j, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
