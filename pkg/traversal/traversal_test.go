package traversal

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/mantaray"
	"github.com/oneconcern/swarmtrie/pkg/pipeline"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type recorder struct {
	mu       sync.Mutex
	found    map[swarm.Address]Visit
	visits   int
	invalid  []swarm.Address
	notFound []swarm.Address
}

func newRecorder() *recorder {
	return &recorder{found: make(map[swarm.Address]Visit)}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnFound: func(v Visit) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.visits++
			r.found[v.Address] = v
			return nil
		},
		OnInvalid: func(addr swarm.Address, _ error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.invalid = append(r.invalid, addr)
		},
		OnNotFound: func(addr swarm.Address) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.notFound = append(r.notFound, addr)
		},
	}
}

func (r *recorder) count(kind Kind) int {
	n := 0
	for _, v := range r.found {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

func upload(t testing.TB, store chunkstore.Store, data []byte, encrypt bool, level redundancy.Level) swarm.Reference {
	ctx := context.Background()
	p := pipeline.NewPipelineBuilder(ctx, store, encrypt, level)
	ref, err := pipeline.FeedPipeline(ctx, p, bytes.NewReader(data))
	require.NoError(t, err)
	return ref
}

func TestTraverseDataTrie(t *testing.T) {
	for _, encrypt := range []bool{false, true} {
		encrypt := encrypt
		t.Run(fmt.Sprintf("encrypted=%t", encrypt), func(t *testing.T) {
			store := chunkstore.NewInMemory()
			ref := upload(t, store, rand.Bytes(10000), encrypt, redundancy.MEDIUM)

			r := newRecorder()
			require.NoError(t, New(store).Traverse(context.Background(), ref, r.callbacks()))

			assert.Empty(t, r.invalid)
			assert.Empty(t, r.notFound)
			assert.Equal(t, 3, r.count(KindLeaf))
			assert.Equal(t, 1, r.count(KindIntermediate))
			assert.Equal(t, redundancy.MEDIUM.Parities(3, encrypt), r.count(KindParity))
			assert.Equal(t, len(r.found), r.visits)

			root := r.found[ref.Address()]
			assert.Equal(t, KindIntermediate, root.Kind)
			assert.False(t, root.Manifest)
			span, level := redundancy.DecodeSpanLevel(root.Data[:swarm.SpanSize])
			assert.Equal(t, uint64(10000), span)
			assert.Equal(t, redundancy.MEDIUM, level)
		})
	}
}

func TestTraverseMissingChunks(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	ref := upload(t, store, rand.Bytes(3*swarm.ChunkSize), false, redundancy.NONE)

	all := newRecorder()
	require.NoError(t, New(store).Traverse(ctx, ref, all.callbacks()))
	require.Equal(t, 3, all.count(KindLeaf))

	var deleted swarm.Address
	for addr, v := range all.found {
		if v.Kind == KindLeaf {
			deleted = addr
			break
		}
	}
	require.NoError(t, store.Delete(ctx, deleted))

	r := newRecorder()
	require.NoError(t, New(store).Traverse(ctx, ref, r.callbacks()))
	assert.Equal(t, []swarm.Address{deleted}, r.notFound)
	assert.Equal(t, 2, r.count(KindLeaf))
	assert.Equal(t, 1, r.count(KindIntermediate))
}

type faultyGetter struct {
	chunkstore.Store
	bad swarm.Address
}

func (f faultyGetter) Get(ctx context.Context, addr swarm.Address, opts ...chunkstore.GetOption) (*swarm.Chunk, error) {
	if addr == f.bad {
		return nil, status.ErrMalformedChunk
	}
	return f.Store.Get(ctx, addr, opts...)
}

func TestTraverseInvalidChunk(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	ref := upload(t, store, rand.Bytes(3*swarm.ChunkSize), false, redundancy.NONE)

	all := newRecorder()
	require.NoError(t, New(store).Traverse(ctx, ref, all.callbacks()))
	var bad swarm.Address
	for addr, v := range all.found {
		if v.Kind == KindLeaf {
			bad = addr
			break
		}
	}

	r := newRecorder()
	require.NoError(t, New(faultyGetter{Store: store, bad: bad}).Traverse(ctx, ref, r.callbacks()))
	assert.Equal(t, []swarm.Address{bad}, r.invalid)
	assert.Empty(t, r.notFound)
	assert.Equal(t, 2, r.count(KindLeaf))
}

func TestTraverseManifest(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	ls := mantaray.NewLoadSaver(store, false, redundancy.NONE)

	shared := upload(t, store, rand.Bytes(5000), false, redundancy.NONE)
	files := map[string]swarm.Reference{
		"index.html":     upload(t, store, rand.Bytes(100), false, redundancy.NONE),
		"img/big.png":    upload(t, store, rand.Bytes(9000), false, redundancy.NONE),
		"img/shared.png": shared,
		"copy/shared":    shared,
	}
	n := mantaray.New()
	for p, ref := range files {
		require.NoError(t, n.Add(ctx, []byte(p), ref, nil, ls))
	}
	require.NoError(t, n.Save(ctx, ls))
	root := swarm.Reference(n.Reference())

	r := newRecorder()
	require.NoError(t, New(store).Traverse(ctx, root, r.callbacks()))
	assert.Empty(t, r.invalid)
	assert.Empty(t, r.notFound)
	assert.Equal(t, len(r.found), r.visits)

	for p, ref := range files {
		v, ok := r.found[ref.Address()]
		require.True(t, ok, p)
		assert.False(t, v.Manifest, p)
	}
	assert.True(t, r.found[root.Address()].Manifest)

	manifestNodes := make(map[swarm.Address]struct{})
	require.NoError(t, mantaray.NewNodeRef(root).Walk(ctx, nil, ls, func(path []byte, node *mantaray.Node, err error) error {
		require.NoError(t, err)
		v, ok := r.found[swarm.MustNewAddress(node.Reference())]
		require.True(t, ok, string(path))
		assert.True(t, v.Manifest, string(path))
		manifestNodes[v.Address] = struct{}{}
		return nil
	}))

	// the 9000 bytes file has 4 chunks, the shared one 3, the small one 1
	assert.Equal(t, len(manifestNodes)+8, len(r.found))
}

func TestTraverseStops(t *testing.T) {
	store := chunkstore.NewInMemory()
	ref := upload(t, store, rand.Bytes(3*swarm.ChunkSize), false, redundancy.NONE)

	stop := errors.New("stop")
	visits := 0
	err := New(store).Traverse(context.Background(), ref, Callbacks{
		OnFound: func(Visit) error {
			visits++
			return stop
		},
	})
	assert.True(t, errors.Is(err, stop))
	assert.Equal(t, 1, visits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(New(store).Traverse(ctx, ref, Callbacks{}), context.Canceled))

	assert.Error(t, New(store).Traverse(context.Background(), swarm.Reference{1, 2}, Callbacks{}))
}
