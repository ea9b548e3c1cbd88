// Package traversal visits all the chunks of some content: trie chunks, parities
// and, for manifests, the content of every fork and entry.
package traversal

import (
	"context"
	"sort"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/encryption"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/joiner"
	"github.com/oneconcern/swarmtrie/pkg/mantaray"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/replicas"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

// Kind of visited chunk
type Kind uint8

const (
	// KindLeaf is a chunk holding content
	KindLeaf Kind = iota
	// KindIntermediate is a chunk holding references
	KindIntermediate
	// KindParity is an erasure coded parity chunk
	KindParity
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindIntermediate:
		return "intermediate"
	case KindParity:
		return "parity"
	default:
		return "unknown"
	}
}

// Visit describes a retrieved chunk
type Visit struct {
	Address swarm.Address
	Kind    Kind
	// Data is the decrypted span and payload, nil for parities
	Data []byte
	// Manifest tells if the chunk belongs to a serialized manifest node
	Manifest bool
}

// Callbacks receive the outcome of every chunk visit. Nil callbacks are skipped.
type Callbacks struct {
	// OnFound is called for every retrieved chunk. Returning an error stops the traversal.
	OnFound func(Visit) error
	// OnInvalid is called for chunks which cannot be decoded
	OnInvalid func(swarm.Address, error)
	// OnNotFound is called for chunks missing from the store
	OnNotFound func(swarm.Address)
}

func (c Callbacks) found(v Visit) error {
	if c.OnFound == nil {
		return nil
	}
	return c.OnFound(v)
}

func (c Callbacks) invalid(addr swarm.Address, err error) {
	if c.OnInvalid != nil {
		c.OnInvalid(addr, err)
	}
}

func (c Callbacks) notFound(addr swarm.Address) {
	if c.OnNotFound != nil {
		c.OnNotFound(addr)
	}
}

// Option configures a traverser
type Option func(*Traverser)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(t *Traverser) {
		if l != nil {
			t.l = l
		}
	}
}

// WithJoinerOptions configures the joiners reading manifest nodes
func WithJoinerOptions(opts ...joiner.Option) Option {
	return func(t *Traverser) {
		t.joinerOpts = append(t.joinerOpts, opts...)
	}
}

// WithReplicaLevel sets the highest redundancy level for which root replicas are looked up
func WithReplicaLevel(level redundancy.Level) Option {
	return func(t *Traverser) {
		t.replicaLevel = level
	}
}

// Traverser walks chunk tries breadth first
type Traverser struct {
	getter       chunkstore.BulkGetter
	replicaLevel redundancy.Level
	joinerOpts   []joiner.Option
	l            *zap.Logger
}

// New traverser over a chunk store
func New(getter chunkstore.BulkGetter, opts ...Option) *Traverser {
	t := &Traverser{
		getter:       getter,
		replicaLevel: redundancy.PARANOID,
		l:            zap.NewNop(),
	}
	for _, apply := range opts {
		apply(t)
	}
	return t
}

type item struct {
	ref  swarm.Reference
	kind Kind
}

// Traverse all the chunks reachable from a reference, each chunk being visited once.
//
// Missing or invalid chunks are reported to the callbacks, and their siblings are still visited.
// Only cancellation and errors returned by OnFound stop the traversal.
func (t *Traverser) Traverse(ctx context.Context, ref swarm.Reference, cb Callbacks) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	visited := make(map[swarm.Address]struct{})
	contents := []swarm.Reference{ref}
	manifests := make(map[swarm.Address]bool)

	for len(contents) > 0 {
		r := contents[0]
		contents = contents[1:]

		complete, isManifest, err := t.traverseTrie(ctx, r, cb, visited, manifests[r.Address()])
		if err != nil {
			return err
		}
		if !complete || !isManifest {
			continue
		}

		refs, err := t.manifestRefs(ctx, r)
		if err != nil {
			t.l.Debug("invalid manifest node", zap.Stringer("address", r.Address()), zap.Error(err))
			cb.invalid(r.Address(), err)
			continue
		}
		for _, child := range refs.forks {
			manifests[child.Address()] = true
		}
		contents = append(contents, refs.forks...)
		contents = append(contents, refs.entries...)
	}
	return nil
}

// traverseTrie visits the chunks of the trie of some content, level by level.
//
// It tells if all chunks were retrieved, and if the content is a manifest node.
func (t *Traverser) traverseTrie(ctx context.Context, ref swarm.Reference, cb Callbacks, visited map[swarm.Address]struct{}, knownManifest bool) (bool, bool, error) {
	if _, ok := visited[ref.Address()]; ok {
		return false, false, nil
	}

	complete, isManifest := true, knownManifest
	level := []item{{ref: ref}}
	root := true
	for len(level) > 0 {
		var next []item
		for _, it := range level {
			if err := ctx.Err(); err != nil {
				return false, false, err
			}
			addr := it.ref.Address()
			if _, ok := visited[addr]; ok {
				continue
			}
			visited[addr] = struct{}{}

			ch, err := t.get(ctx, addr, root)
			if err != nil {
				if ctx.Err() != nil {
					return false, false, ctx.Err()
				}
				complete = false
				if errors.Is(err, status.ErrNotFound) {
					cb.notFound(addr)
				} else {
					cb.invalid(addr, err)
				}
				continue
			}

			if it.kind == KindParity {
				if err = cb.found(Visit{Address: addr, Kind: KindParity, Manifest: isManifest}); err != nil {
					return false, false, err
				}
				continue
			}

			data, children, err := decode(ch, it.ref)
			if err != nil {
				complete = false
				cb.invalid(addr, err)
				continue
			}
			if root && len(children) == 0 {
				isManifest = isManifest || mantaray.IsManifest(data[swarm.SpanSize:])
			}
			kind := KindLeaf
			if len(children) > 0 {
				kind = KindIntermediate
			}
			if err = cb.found(Visit{Address: addr, Kind: kind, Data: data, Manifest: isManifest}); err != nil {
				return false, false, err
			}
			next = append(next, children...)
		}
		level = next
		root = false
	}

	return complete, isManifest || t.startsWithManifestHeader(ctx, ref, complete), nil
}

// get a chunk, the root being possibly retrieved from its replicas
func (t *Traverser) get(ctx context.Context, addr swarm.Address, root bool) (*swarm.Chunk, error) {
	if root {
		return replicas.NewGetter(t.getter, t.replicaLevel, t.l).Get(ctx, addr)
	}
	return t.getter.Get(ctx, addr)
}

// decode a chunk into its decrypted data and the references of its children
func decode(ch *swarm.Chunk, ref swarm.Reference) ([]byte, []item, error) {
	data := ch.Data()
	if ref.IsEncrypted() {
		var err error
		if data, err = encryption.DecryptChunkData(data, ref.Key()); err != nil {
			return nil, nil, err
		}
	}
	if len(data) < swarm.SpanSize {
		return nil, nil, status.ErrMalformedChunk.WrapMessage("%s: %d bytes", ch.Address(), len(data))
	}

	span, _ := redundancy.DecodeSpanLevel(data[:swarm.SpanSize])
	if span <= swarm.ChunkSize {
		return data, nil, nil
	}

	shards, err := redundancy.ParseShards(data, ref.IsEncrypted())
	if err != nil {
		return nil, nil, err
	}
	children := make([]item, 0, len(shards.Data)+len(shards.Parities))
	for _, r := range shards.Data {
		children = append(children, item{ref: r})
	}
	for _, p := range shards.Parities {
		children = append(children, item{ref: swarm.Reference(p.Bytes()), kind: KindParity})
	}
	return data, children, nil
}

// startsWithManifestHeader checks the first bytes of content spanning many chunks
func (t *Traverser) startsWithManifestHeader(ctx context.Context, ref swarm.Reference, complete bool) bool {
	if !complete {
		return false
	}
	j, err := joiner.New(ctx, t.getter, ref, t.joinerOpts...)
	if err != nil {
		return false
	}
	defer func() { _ = j.Close() }()

	if j.Size() <= swarm.ChunkSize || j.Size() < mantaray.HeaderSize {
		// single chunk content is already checked
		return false
	}
	header := make([]byte, mantaray.HeaderSize)
	if _, err = j.ReadAt(header, 0); err != nil {
		return false
	}
	return mantaray.IsManifest(header)
}

type manifestRefs struct {
	forks   []swarm.Reference
	entries []swarm.Reference
}

// manifestRefs lists the references held by a manifest node
func (t *Traverser) manifestRefs(ctx context.Context, ref swarm.Reference) (manifestRefs, error) {
	var refs manifestRefs
	data, err := joiner.ReadAll(ctx, t.getter, ref, t.joinerOpts...)
	if err != nil {
		return refs, err
	}

	node := mantaray.NewNodeRef(ref)
	if err = node.UnmarshalBinary(data); err != nil {
		return refs, err
	}
	if entry := node.Entry(); len(entry) > 0 {
		refs.entries = append(refs.entries, swarm.Reference(entry))
	}
	forks, err := node.Forks(ctx, nil)
	if err != nil {
		return refs, err
	}
	prefixes := make([]string, 0, len(forks))
	for prefix := range forks {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		refs.forks = append(refs.forks, swarm.Reference(forks[prefix].Reference()))
	}
	return refs, nil
}
